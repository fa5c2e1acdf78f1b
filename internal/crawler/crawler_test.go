package crawler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/reviewaudit/internal/model"
	"github.com/nao1215/reviewaudit/internal/site"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// servePage registers an HTML handler for an exact path.
func servePage(mux *http.ServeMux, path, body string) {
	pattern := "GET " + path
	if strings.HasSuffix(path, "/") {
		pattern += "{$}"
	}
	mux.HandleFunc(pattern, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, body) //nolint:errcheck // test handler
	})
}

// newLocksmithServer serves a small site: the home page links to a city
// page, a service page, an unlisted page, an asset and an external host.
func newLocksmithServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	servePage(mux, "/", `<html><head><title>Home</title></head><body>
		<a href="service-areas/locksmith-austin.html">Austin</a>
		<a href="/services/car-lockout.html#reviews">Car lockout</a>
		<a href="/blog/">Blog</a>
		<a href="/styles/site.css">Styles</a>
		<a href="https://elsewhere.example/">Elsewhere</a>
	</body></html>`)
	servePage(mux, "/service-areas/locksmith-austin.html", `<html><body>
		<div class="review-card"><p>Fast and friendly.</p></div>
		<a href="/">Home</a>
	</body></html>`)
	servePage(mux, "/services/car-lockout.html", `<html><body>Car lockout</body></html>`)
	servePage(mux, "/blog/", `<html><body>Blog</body></html>`)
	mux.HandleFunc("GET /styles/site.css", func(w http.ResponseWriter, _ *http.Request) {
		t.Error("asset should not be requested")
		w.Header().Set("Content-Type", "text/css")
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func paths(pages []Page) []string {
	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = p.Path
	}
	return out
}

func TestParser(t *testing.T) {
	t.Parallel()

	t.Run("extracts title", func(t *testing.T) {
		t.Parallel()

		doc := `<html><head><title> Locksmith Austin </title></head><body></body></html>`
		parser, err := NewParser("https://locksmith.example/page")
		if err != nil {
			t.Fatalf("failed to create parser: %v", err)
		}

		result, err := parser.Parse(strings.NewReader(doc))
		if err != nil {
			t.Fatalf("failed to parse: %v", err)
		}

		if result.Title != "Locksmith Austin" {
			t.Errorf("expected title 'Locksmith Austin', got %q", result.Title)
		}
	})

	t.Run("resolves and classifies links", func(t *testing.T) {
		t.Parallel()

		doc := `<html><body>
			<a href="/services.html">Services</a>
			<a href="about.html">About</a>
			<a href="https://LOCKSMITH.example/index.html">Home</a>
			<a href="https://other.example/">Other</a>
			<a href="mailto:office@locksmith.example">Mail</a>
			<a href="#top">Top</a>
			<a href="/services.html#pricing">Services again</a>
			<map><area href="/service-areas.html"></map>
		</body></html>`

		parser, err := NewParser("https://locksmith.example/dir/page.html")
		if err != nil {
			t.Fatalf("failed to create parser: %v", err)
		}

		result, err := parser.Parse(strings.NewReader(doc))
		if err != nil {
			t.Fatalf("failed to parse: %v", err)
		}

		wantLinks := []string{
			"https://locksmith.example/services.html",
			"https://locksmith.example/dir/about.html",
			"https://LOCKSMITH.example/index.html",
			"https://other.example/",
			"https://locksmith.example/service-areas.html",
		}
		if strings.Join(result.Links, " ") != strings.Join(wantLinks, " ") {
			t.Errorf("Links = %v, want %v", result.Links, wantLinks)
		}
		if len(result.InternalLinks) != 4 {
			t.Errorf("expected 4 internal links, got %d: %v", len(result.InternalLinks), result.InternalLinks)
		}
	})

	t.Run("base element changes resolution", func(t *testing.T) {
		t.Parallel()

		doc := `<html><head><base href="https://locksmith.example/services/"></head>
			<body><a href="car-lockout.html">Car</a></body></html>`

		parser, err := NewParser("https://locksmith.example/")
		if err != nil {
			t.Fatalf("failed to create parser: %v", err)
		}

		result, err := parser.Parse(strings.NewReader(doc))
		if err != nil {
			t.Fatalf("failed to parse: %v", err)
		}

		if len(result.Links) != 1 || result.Links[0] != "https://locksmith.example/services/car-lockout.html" {
			t.Errorf("unexpected links: %v", result.Links)
		}
	})

	t.Run("invalid base URL", func(t *testing.T) {
		t.Parallel()

		if _, err := NewParser("http://[::1"); err == nil {
			t.Error("expected error for invalid base URL")
		}
	})
}

func TestSpider(t *testing.T) {
	t.Parallel()

	t.Run("collects pages listed by the layout", func(t *testing.T) {
		t.Parallel()

		server := newLocksmithServer(t)
		spider := NewSpider(server.Client(), WithDelay(0), WithLogger(quietLogger()))

		pages, err := spider.Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{"index.html", "service-areas/locksmith-austin.html", "services/car-lockout.html"}
		if got := paths(pages); strings.Join(got, ",") != strings.Join(want, ",") {
			t.Fatalf("paths = %v, want %v", got, want)
		}

		wantCategories := []model.Category{
			model.CategoryMain,
			model.CategoryServiceArea,
			model.CategoryIndividualService,
		}
		for i, p := range pages {
			if p.Category != wantCategories[i] {
				t.Errorf("%s: category = %s, want %s", p.Path, p.Category, wantCategories[i])
			}
			if len(p.Body) == 0 {
				t.Errorf("%s: empty body", p.Path)
			}
			if !strings.HasPrefix(p.URL, server.URL) {
				t.Errorf("%s: unexpected URL %s", p.Path, p.URL)
			}
		}
		if !strings.Contains(string(pages[1].Body), "review-card") {
			t.Errorf("city page body not kept: %s", pages[1].Body)
		}
	})

	t.Run("depth zero fetches only the start page", func(t *testing.T) {
		t.Parallel()

		server := newLocksmithServer(t)
		spider := NewSpider(server.Client(), WithMaxDepth(0), WithDelay(0), WithLogger(quietLogger()))

		pages, err := spider.Crawl(context.Background(), server.URL+"/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(pages) != 1 || pages[0].Path != "index.html" {
			t.Errorf("unexpected pages: %v", paths(pages))
		}
		if stats := spider.Stats(); stats.PagesFetched != 1 {
			t.Errorf("expected 1 fetch, got %d", stats.PagesFetched)
		}
	})

	t.Run("respects max pages", func(t *testing.T) {
		t.Parallel()

		server := newLocksmithServer(t)
		spider := NewSpider(server.Client(), WithMaxPages(2), WithDelay(0), WithLogger(quietLogger()))

		if _, err := spider.Crawl(context.Background(), server.URL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stats := spider.Stats(); stats.PagesFetched != 2 {
			t.Errorf("expected 2 fetches, got %d", stats.PagesFetched)
		}
	})

	t.Run("paths are relative to the start directory", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		servePage(mux, "/preview/index.html", `<html><body>
			<a href="about.html">About</a>
			<a href="/index.html">Outside</a>
		</body></html>`)
		servePage(mux, "/preview/about.html", `<html><body>About</body></html>`)
		mux.HandleFunc("GET /index.html", func(w http.ResponseWriter, _ *http.Request) {
			t.Error("page outside the start directory should not be requested")
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		spider := NewSpider(server.Client(), WithDelay(0), WithLogger(quietLogger()))
		pages, err := spider.Crawl(context.Background(), server.URL+"/preview/index.html")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{"about.html", "index.html"}
		if got := paths(pages); strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("paths = %v, want %v", got, want)
		}
	})

	t.Run("skips failed and non-HTML pages", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		servePage(mux, "/", `<html><body>
			<a href="/about.html">About</a>
			<a href="/services.html">Services</a>
		</body></html>`)
		mux.HandleFunc("GET /about.html", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "gone", http.StatusNotFound)
		})
		mux.HandleFunc("GET /services.html", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{}`) //nolint:errcheck // test handler
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		spider := NewSpider(server.Client(), WithDelay(0), WithLogger(quietLogger()))
		pages, err := spider.Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(pages) != 1 || pages[0].Path != "index.html" {
			t.Errorf("unexpected pages: %v", paths(pages))
		}
	})

	t.Run("custom layout and user agent", func(t *testing.T) {
		t.Parallel()

		var agent atomic.Value
		mux := http.NewServeMux()
		mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
			agent.Store(r.UserAgent())
			w.Header().Set("Content-Type", "text/html")
			_, _ = io.WriteString(w, `<html><body><a href="/city/dallas.html">Dallas</a></body></html>`) //nolint:errcheck // test handler
		})
		servePage(mux, "/city/dallas.html", `<html><body>Dallas</body></html>`)
		server := httptest.NewServer(mux)
		defer server.Close()

		layout := site.Layout{model.CategoryServiceArea: {"city/*.html"}}
		spider := NewSpider(server.Client(),
			WithLayout(layout), WithUserAgent("audit-test/1.0"), WithDelay(0), WithLogger(quietLogger()))

		pages, err := spider.Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(pages) != 1 || pages[0].Category != model.CategoryServiceArea {
			t.Errorf("unexpected pages: %+v", pages)
		}
		if got := agent.Load(); got != "audit-test/1.0" {
			t.Errorf("User-Agent = %v, want audit-test/1.0", got)
		}
	})

	t.Run("ambiguous layout is an error", func(t *testing.T) {
		t.Parallel()

		server := newLocksmithServer(t)
		layout := site.Layout{
			model.CategoryMain:        {"index.html"},
			model.CategoryServiceArea: {"*.html"},
		}
		spider := NewSpider(server.Client(), WithLayout(layout), WithDelay(0), WithLogger(quietLogger()))

		_, err := spider.Crawl(context.Background(), server.URL)
		if !errors.Is(err, site.ErrAmbiguousPage) {
			t.Errorf("expected ErrAmbiguousPage, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		server := newLocksmithServer(t)
		spider := NewSpider(server.Client(), WithDelay(time.Minute), WithLogger(quietLogger()))

		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()

		pages, err := spider.Crawl(ctx, server.URL)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline exceeded, got %v", err)
		}
		if len(pages) != 1 {
			t.Errorf("expected the start page to be kept, got %v", paths(pages))
		}
	})

	t.Run("invalid start URL", func(t *testing.T) {
		t.Parallel()

		spider := NewSpider(nil)
		for _, raw := range []string{"ftp://locksmith.example/", "/index.html", "http://[::1"} {
			if _, err := spider.Crawl(context.Background(), raw); !errors.Is(err, ErrInvalidURL) {
				t.Errorf("Crawl(%q): expected ErrInvalidURL, got %v", raw, err)
			}
		}
	})
}

func TestSpiderOptions(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		s := NewSpider(nil)
		if s.client == nil || s.client.Timeout != DefaultTimeout {
			t.Error("expected a client with the default timeout")
		}
		if s.maxDepth != DefaultMaxDepth {
			t.Errorf("maxDepth = %d, want %d", s.maxDepth, DefaultMaxDepth)
		}
		if s.maxPages != DefaultMaxPages {
			t.Errorf("maxPages = %d, want %d", s.maxPages, DefaultMaxPages)
		}
		if s.delay != DefaultDelay {
			t.Errorf("delay = %v, want %v", s.delay, DefaultDelay)
		}
		if s.maxBodySize != DefaultMaxBodySize {
			t.Errorf("maxBodySize = %d, want %d", s.maxBodySize, DefaultMaxBodySize)
		}
		if s.userAgent != defaultUserAgent {
			t.Errorf("userAgent = %q", s.userAgent)
		}
	})

	t.Run("invalid values keep defaults", func(t *testing.T) {
		t.Parallel()

		s := NewSpider(nil,
			WithMaxDepth(-1), WithMaxPages(0), WithDelay(-time.Second),
			WithUserAgent(""), WithMaxBodySize(0), WithLayout(nil), WithLogger(nil))
		if s.maxDepth != DefaultMaxDepth || s.maxPages != DefaultMaxPages || s.delay != DefaultDelay {
			t.Errorf("limits changed: depth=%d pages=%d delay=%v", s.maxDepth, s.maxPages, s.delay)
		}
		if s.userAgent != defaultUserAgent || s.maxBodySize != DefaultMaxBodySize {
			t.Errorf("request settings changed: ua=%q body=%d", s.userAgent, s.maxBodySize)
		}
		if s.layout == nil || s.logger == nil {
			t.Error("nil layout or logger accepted")
		}
	})

	t.Run("body size limit", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		servePage(mux, "/", `<html><body>`+strings.Repeat("x", 1000)+`</body></html>`)
		server := httptest.NewServer(mux)
		defer server.Close()

		spider := NewSpider(server.Client(), WithMaxBodySize(64), WithDelay(0), WithLogger(quietLogger()))
		pages, err := spider.Crawl(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(pages) != 1 || len(pages[0].Body) != 64 {
			t.Errorf("expected one 64 byte body, got %+v", paths(pages))
		}
	})
}

func TestSpiderReset(t *testing.T) {
	t.Parallel()

	server := newLocksmithServer(t)
	spider := NewSpider(server.Client(), WithMaxDepth(0), WithDelay(0), WithLogger(quietLogger()))

	if _, err := spider.Crawl(context.Background(), server.URL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Without a reset the start page is already visited
	pages, err := spider.Crawl(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 0 {
		t.Errorf("expected no pages before reset, got %v", paths(pages))
	}

	spider.Reset()
	if stats := spider.Stats(); stats.PagesFetched != 0 || stats.URLsSeen != 0 {
		t.Errorf("stats not cleared: %+v", stats)
	}

	pages, err = spider.Crawl(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 1 {
		t.Errorf("expected 1 page after reset, got %v", paths(pages))
	}
}

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected string
	}{
		{"https://locksmith.example", "https://locksmith.example/"},
		{"HTTPS://LOCKSMITH.EXAMPLE/About.html", "https://locksmith.example/About.html"},
		{"https://locksmith.example/page#section", "https://locksmith.example/page"},
		{"https://locksmith.example/page?a=1", "https://locksmith.example/page?a=1"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			if got := normalizeURL(tt.input); got != tt.expected {
				t.Errorf("normalizeURL(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestShouldFollow(t *testing.T) {
	t.Parallel()

	s := NewSpider(nil)
	tests := []struct {
		name string
		root string
		link string
		want bool
	}{
		{"html page", "/", "https://locksmith.example/about.html", true},
		{"htm page", "/", "https://locksmith.example/old.HTM", true},
		{"directory", "/", "https://locksmith.example/services/", true},
		{"no extension", "/", "https://locksmith.example/contact", true},
		{"host case", "/", "https://Locksmith.Example/about.html", true},
		{"asset", "/", "https://locksmith.example/logo.png", false},
		{"other host", "/", "https://other.example/about.html", false},
		{"outside root", "/preview/", "https://locksmith.example/about.html", false},
		{"inside root", "/preview/", "https://locksmith.example/preview/about.html", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := s.shouldFollow("locksmith.example", tt.root, tt.link); got != tt.want {
				t.Errorf("shouldFollow(%q, %q) = %v, want %v", tt.root, tt.link, got, tt.want)
			}
		})
	}
}

func TestRelativePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		url    string
		root   string
		want   string
		wantOK bool
	}{
		{"site root", "https://locksmith.example", "/", "index.html", true},
		{"slash", "https://locksmith.example/", "/", "index.html", true},
		{"page", "https://locksmith.example/services/car-lockout.html", "/", "services/car-lockout.html", true},
		{"directory", "https://locksmith.example/services/", "/", "services/index.html", true},
		{"nested root", "https://locksmith.example/preview/about.html", "/preview/", "about.html", true},
		{"outside root", "https://locksmith.example/about.html", "/preview/", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := relativePath(tt.url, tt.root)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("relativePath(%q, %q) = %q, %v, want %q, %v", tt.url, tt.root, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestRootPath(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"":                    "/",
		"/":                   "/",
		"/index.html":         "/",
		"/preview/":           "/preview/",
		"/preview/index.html": "/preview/",
	}
	for input, want := range tests {
		if got := rootPath(input); got != want {
			t.Errorf("rootPath(%q) = %q, want %q", input, got, want)
		}
	}
}
