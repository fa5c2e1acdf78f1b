package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/reviewaudit/internal/model"
	"github.com/nao1215/reviewaudit/internal/site"
)

// Markup class names of the review widget.
const (
	classReviewCard  = "review-card"
	classServiceTag  = "service-tag"
	className        = "font-bold"
	classIcon        = "material-icons"
	classBubble      = "bg-white"
	classBubbleShape = "rounded-2xl"

	locationIcon = "location_on"
)

// defaultConcurrency is the number of pages parsed at once by BuildCorpus.
const defaultConcurrency = 8

// Result contains the review data found on one page.
type Result struct {
	// Reviews are the populated review records in document order.
	Reviews []model.ReviewRecord

	// ServiceTags are all service tags on the page in document order.
	ServiceTags []string
}

// Extractor parses review widgets out of page markup.
// An Extractor has no state and is safe for concurrent use.
type Extractor struct {
	concurrency int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithConcurrency sets how many pages BuildCorpus parses at once.
func WithConcurrency(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// New creates an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{concurrency: defaultConcurrency}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract parses one page.
//
// A service tag nested in a review card belongs to that card. Cards without
// one are paired with the page's service tags by position, which is only
// as reliable as the page markup.
func (e *Extractor) Extract(r io.Reader) (*Result, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Reviews:     make([]model.ReviewRecord, 0),
		ServiceTags: make([]string, 0),
	}

	var cards []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "div" {
			switch {
			case hasClass(n, classServiceTag):
				if tag := serviceTagText(n); tag != "" {
					result.ServiceTags = append(result.ServiceTags, tag)
				}
			case hasClass(n, classReviewCard):
				cards = append(cards, n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	for i, card := range cards {
		record := parseCard(card)
		if record.ServiceTag == "" && i < len(result.ServiceTags) {
			record.ServiceTag = result.ServiceTags[i]
		}
		if !record.IsEmpty() {
			result.Reviews = append(result.Reviews, record)
		}
	}

	return result, nil
}

// ExtractFile parses the page stored at path.
func (e *Extractor) ExtractFile(path string) (*Result, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from site discovery
	if err != nil {
		return nil, err
	}
	defer f.Close()

	result, err := e.Extract(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return result, nil
}

// BuildCorpus extracts every discovered page and assembles the corpus.
// Pages are parsed concurrently; the first failure cancels the rest.
func (e *Extractor) BuildCorpus(ctx context.Context, pages []site.Page) (*model.Corpus, error) {
	entries := make([]*model.PageEntry, len(pages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, p := range pages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result, err := e.ExtractFile(p.AbsPath)
			if err != nil {
				return fmt.Errorf("page %q: %w", p.Path, err)
			}
			entries[i] = &model.PageEntry{
				Path:           p.Path,
				Category:       p.Category,
				Reviews:        result.Reviews,
				AllServiceTags: result.ServiceTags,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return model.NewCorpus(entries...), nil
}

// parseCard reads the fields of one review card.
func parseCard(card *html.Node) model.ReviewRecord {
	var record model.ReviewRecord

	if p := findFirst(card, func(n *html.Node) bool {
		return isElement(n, "p") && hasClass(n, className)
	}); p != nil {
		record.CustomerName = collapse(textContent(p))
	}

	if icon := findFirst(card, func(n *html.Node) bool {
		return isElement(n, "span") && hasClass(n, classIcon) && strings.TrimSpace(textContent(n)) == locationIcon
	}); icon != nil {
		if next := icon.NextSibling; next != nil && next.Type == html.TextNode {
			record.Location = collapse(next.Data)
		}
	}

	if bubble := findFirst(card, func(n *html.Node) bool {
		return isElement(n, "div") && hasClass(n, classBubble) && hasClass(n, classBubbleShape)
	}); bubble != nil {
		if p := findFirst(bubble, func(n *html.Node) bool { return isElement(n, "p") }); p != nil {
			record.ReviewText = collapse(textContent(p))
		}
	}

	if tag := findFirst(card, func(n *html.Node) bool {
		return isElement(n, "div") && hasClass(n, classServiceTag)
	}); tag != nil {
		record.ServiceTag = serviceTagText(tag)
	}

	return record
}

// serviceTagText returns the label of a service tag element, the text of
// its first span.
func serviceTagText(n *html.Node) string {
	span := findFirst(n, func(c *html.Node) bool { return isElement(c, "span") })
	if span == nil {
		return ""
	}
	return collapse(textContent(span))
}

// findFirst returns the first descendant of n, in document order, for
// which match is true.
func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if match(c) {
			return c
		}
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

func isElement(n *html.Node, tag string) bool {
	return n.Type == html.ElementNode && n.Data == tag
}

// hasClass reports whether the class attribute of n lists cls.
func hasClass(n *html.Node, cls string) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(attr.Val) {
			if c == cls {
				return true
			}
		}
	}
	return false
}

// textContent concatenates the text nodes below n.
func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// collapse trims s and replaces every whitespace run with one space.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
