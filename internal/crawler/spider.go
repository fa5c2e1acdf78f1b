package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nao1215/reviewaudit/internal/model"
	"github.com/nao1215/reviewaudit/internal/site"
)

// Default crawl limits.
const (
	DefaultMaxDepth    = 5
	DefaultMaxPages    = 200
	DefaultDelay       = 500 * time.Millisecond
	DefaultMaxBodySize = 10 * 1024 * 1024
	DefaultTimeout     = 30 * time.Second

	defaultUserAgent = "reviewaudit (+https://github.com/nao1215/reviewaudit)"

	// indexDocument is the page served for a directory URL.
	indexDocument = "index.html"
)

// ErrInvalidURL is returned by Crawl for a start URL that is not an
// absolute http(s) URL.
var ErrInvalidURL = errors.New("invalid start URL")

// Page is a fetched page that matched the layout.
type Page struct {
	// URL is the address the page was fetched from.
	URL string

	// Path is the page path relative to the site root, as used by the
	// layout ("index.html", "services/car-lockout.html").
	Path string

	// Category is the category whose pattern matched Path.
	Category model.Category

	// Body is the response body, at most the configured size.
	Body []byte
}

// Spider crawls a live site and collects the pages the layout lists.
// It follows same-host links breadth-first and respects depth and page
// limits. A Spider keeps visited state; use Reset or a new Spider per
// site.
type Spider struct {
	// client performs the requests.
	client *http.Client

	// layout decides which fetched pages are kept and their category.
	layout site.Layout

	// maxDepth limits how deep to crawl from the starting URL.
	// 0 means only the starting page, 1 means one level of links, etc.
	maxDepth int

	// maxPages limits the number of pages fetched.
	maxPages int

	// delay is the time to wait between requests.
	delay time.Duration

	// userAgent is the User-Agent header to use.
	userAgent string

	// maxBodySize limits the size of response bodies to read.
	maxBodySize int64

	logger *slog.Logger

	// visited tracks URLs already visited to avoid duplicates.
	visited map[string]bool

	// mutex protects visited and pageCount.
	mutex sync.Mutex

	// pageCount tracks pages fetched.
	pageCount int
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxDepth sets the maximum crawl depth.
// 0 = only the starting page, 1 = starting page plus linked pages, etc.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) {
		if depth >= 0 {
			s.maxDepth = depth
		}
	}
}

// WithMaxPages sets the maximum number of pages to fetch.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		if maxPages > 0 {
			s.maxPages = maxPages
		}
	}
}

// WithDelay sets the delay between requests.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		if d >= 0 {
			s.delay = d
		}
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) SpiderOption {
	return func(s *Spider) {
		if ua != "" {
			s.userAgent = ua
		}
	}
}

// WithMaxBodySize sets the maximum response body size.
func WithMaxBodySize(size int64) SpiderOption {
	return func(s *Spider) {
		if size > 0 {
			s.maxBodySize = size
		}
	}
}

// WithLayout sets the layout used to select and categorize pages.
// Default is site.DefaultLayout().
func WithLayout(layout site.Layout) SpiderOption {
	return func(s *Spider) {
		if layout != nil {
			s.layout = layout
		}
	}
}

// WithLogger sets the logger used for skipped pages and fetch errors.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSpider creates a new Spider. A nil client means a client with
// DefaultTimeout.
func NewSpider(client *http.Client, opts ...SpiderOption) *Spider {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	s := &Spider{
		client:      client,
		layout:      site.DefaultLayout(),
		maxDepth:    DefaultMaxDepth,
		maxPages:    DefaultMaxPages,
		delay:       DefaultDelay,
		userAgent:   defaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
		logger:      slog.Default(),
		visited:     make(map[string]bool),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Crawl starts crawling from startURL and returns the pages the layout
// lists, sorted by path.
//
// Page paths are relative to the directory of the start URL, so
// "https://example.com/" and "https://example.com/index.html" both root
// the site at "/". Links leaving that directory or the host are not
// followed. Pages that fail to load are logged and skipped. On
// cancellation the pages collected so far are returned with the error.
func (s *Spider) Crawl(ctx context.Context, startURL string) ([]Page, error) {
	start, err := url.Parse(startURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if start.Scheme != "http" && start.Scheme != "https" || start.Host == "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidURL, startURL)
	}
	start.Fragment = ""

	root := rootPath(start.Path)
	pages := make([]Page, 0)
	queue := []queueItem{{url: start.String(), depth: 0}}

	for len(queue) > 0 && s.pageCount < s.maxPages {
		select {
		case <-ctx.Done():
			sortPages(pages)
			return pages, ctx.Err()
		default:
		}

		item := queue[0]
		queue = queue[1:]

		if s.isVisited(item.url) {
			continue
		}
		s.markVisited(item.url)

		body, links, err := s.fetchPage(ctx, item.url)
		s.pageCount++
		if err != nil {
			s.logger.Warn("page skipped", "url", item.url, "error", err)
			continue
		}

		if rel, ok := relativePath(item.url, root); ok {
			category, listed, err := s.layout.Categorize(rel)
			if err != nil {
				return nil, err
			}
			if listed {
				pages = append(pages, Page{URL: item.url, Path: rel, Category: category, Body: body})
			} else {
				s.logger.Debug("page not in layout", "url", item.url)
			}
		}

		if item.depth < s.maxDepth {
			for _, link := range links {
				if !s.isVisited(link) && s.shouldFollow(start.Host, root, link) {
					queue = append(queue, queueItem{url: link, depth: item.depth + 1})
				}
			}
		}

		// Politeness delay
		if s.delay > 0 && len(queue) > 0 {
			select {
			case <-ctx.Done():
				sortPages(pages)
				return pages, ctx.Err()
			case <-time.After(s.delay):
			}
		}
	}

	sortPages(pages)
	return pages, nil
}

// queueItem represents an item in the crawl queue.
type queueItem struct {
	url   string
	depth int
}

// fetchPage fetches an HTML page and returns its body and internal links.
func (s *Spider) fetchPage(ctx context.Context, pageURL string) ([]byte, []string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, nil, err
	}

	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mediaType, _, err := mime.ParseMediaType(ct); err != nil || mediaType != "text/html" {
			return nil, nil, fmt.Errorf("not an HTML page (%s)", ct)
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodySize))
	if err != nil {
		return nil, nil, err
	}

	// Links resolve against the final URL after redirects
	parser, err := NewParser(resp.Request.URL.String())
	if err != nil {
		return body, nil, nil
	}
	result, err := parser.Parse(bytes.NewReader(body))
	if err != nil {
		return body, nil, nil
	}
	return body, result.InternalLinks, nil
}

// isVisited checks if a URL has been visited.
func (s *Spider) isVisited(pageURL string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.visited[normalizeURL(pageURL)]
}

// markVisited marks a URL as visited.
func (s *Spider) markVisited(pageURL string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.visited[normalizeURL(pageURL)] = true
}

// shouldFollow reports whether a link stays on the host, below the site
// root, and looks like a page rather than an asset.
func (s *Spider) shouldFollow(host, root, link string) bool {
	u, err := url.Parse(link)
	if err != nil || !strings.EqualFold(u.Host, host) {
		return false
	}
	p := u.Path
	if p == "" {
		p = "/"
	}
	if !strings.HasPrefix(p, root) {
		return false
	}
	switch strings.ToLower(path.Ext(p)) {
	case "", ".html", ".htm":
		return true
	default:
		return false
	}
}

// Reset clears the spider's state, allowing it to be reused.
func (s *Spider) Reset() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.visited = make(map[string]bool)
	s.pageCount = 0
}

// Stats returns current crawl statistics.
func (s *Spider) Stats() SpiderStats {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return SpiderStats{
		PagesFetched: s.pageCount,
		URLsSeen:     len(s.visited),
	}
}

// SpiderStats contains crawl statistics.
type SpiderStats struct {
	// PagesFetched is the number of requests made.
	PagesFetched int

	// URLsSeen is the number of unique URLs visited.
	URLsSeen int
}

// normalizeURL normalizes a URL for deduplication: the fragment is
// dropped, scheme and host are lowercased, and an empty path is "/".
func normalizeURL(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}

	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}

// rootPath returns the directory of the start URL path, ending with "/".
func rootPath(p string) string {
	if p == "" {
		return "/"
	}
	if strings.HasSuffix(p, "/") {
		return p
	}
	dir := path.Dir(p)
	if dir == "/" {
		return dir
	}
	return dir + "/"
}

// relativePath converts a page URL into the layout path below root.
// Directory URLs map to their index document.
func relativePath(pageURL, root string) (string, bool) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", false
	}
	p := u.Path
	if p == "" {
		p = "/"
	}
	if !strings.HasPrefix(p, root) {
		return "", false
	}
	rel := strings.TrimPrefix(p, root)
	if rel == "" || strings.HasSuffix(rel, "/") {
		rel += indexDocument
	}
	return rel, true
}

func sortPages(pages []Page) {
	sort.Slice(pages, func(i, j int) bool { return pages[i].Path < pages[j].Path })
}
