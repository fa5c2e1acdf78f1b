package crawler

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Parser extracts the links of an HTML page.
type Parser struct {
	// baseURL is used to resolve relative links.
	baseURL *url.URL
}

// ParseResult contains the information extracted from a page.
type ParseResult struct {
	// Title is the page title.
	Title string

	// Links are all resolved anchor targets in document order, without
	// duplicates.
	Links []string

	// InternalLinks are the links on the same host as the page.
	InternalLinks []string
}

// NewParser creates a new HTML parser with the given base URL.
// The base URL is used to resolve relative links.
func NewParser(baseURL string) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Parser{baseURL: u}, nil
}

// Parse parses HTML content and extracts its title and links.
// A <base href> element changes how later links are resolved.
func (p *Parser) Parse(content io.Reader) (*ParseResult, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{
		Links:         make([]string, 0),
		InternalLinks: make([]string, 0),
	}
	seen := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if result.Title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					result.Title = strings.TrimSpace(n.FirstChild.Data)
				}
			case "base":
				if href := getAttr(n, "href"); href != "" {
					if u, err := p.baseURL.Parse(href); err == nil {
						p.baseURL = u
					}
				}
			case "a", "area":
				link := p.resolveURL(getAttr(n, "href"))
				if link != "" && !seen[link] {
					seen[link] = true
					result.Links = append(result.Links, link)
					if p.isInternal(link) {
						result.InternalLinks = append(result.InternalLinks, link)
					}
				}
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return result, nil
}

// resolveURL resolves a relative URL against the base URL.
// Non-navigational schemes and bare fragments resolve to "".
// The fragment of a resolved link is dropped.
func (p *Parser) resolveURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := p.baseURL.ResolveReference(u)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	resolved.Fragment = ""
	return resolved.String()
}

// isInternal reports whether link points at the page's host.
func (p *Parser) isInternal(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, p.baseURL.Host)
}

// getAttr returns the value of an attribute, or "".
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
