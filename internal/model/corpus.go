package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrNilPage is returned by Corpus.Validate when a page entry is missing.
var ErrNilPage = errors.New("page entry is nil")

// ErrPathMismatch is returned by Corpus.Validate when a page entry's path
// differs from the key it is stored under.
var ErrPathMismatch = errors.New("page path does not match corpus key")

// ErrEmptyPath is returned by Corpus.Validate for a page stored under an
// empty key.
var ErrEmptyPath = errors.New("page path is empty")

// Corpus is the set of audited pages for one run, keyed by page path.
// A Corpus is built once and only read afterwards.
type Corpus struct {
	pages map[string]*PageEntry
}

// NewCorpus builds a Corpus from the given pages.
// Review records without any populated field are dropped.
// When two entries share a path, the later one wins.
func NewCorpus(pages ...*PageEntry) *Corpus {
	c := &Corpus{pages: make(map[string]*PageEntry, len(pages))}
	for _, p := range pages {
		if p == nil {
			continue
		}
		c.pages[p.Path] = retainPopulated(p)
	}
	return c
}

// NewCorpusFromMap builds a Corpus from the extraction collaborator's
// mapping of page path to entry. Entries are copied; the map is not kept.
func NewCorpusFromMap(pages map[string]*PageEntry) *Corpus {
	c := &Corpus{pages: make(map[string]*PageEntry, len(pages))}
	for path, p := range pages {
		if p == nil {
			c.pages[path] = nil
			continue
		}
		entry := retainPopulated(p)
		if entry.Path == "" {
			entry.Path = path
		}
		c.pages[path] = entry
	}
	return c
}

// retainPopulated returns a copy of p holding only non-empty records.
func retainPopulated(p *PageEntry) *PageEntry {
	entry := &PageEntry{
		Path:           p.Path,
		Category:       p.Category,
		Reviews:        make([]ReviewRecord, 0, len(p.Reviews)),
		AllServiceTags: append([]string(nil), p.AllServiceTags...),
	}
	if entry.AllServiceTags == nil {
		entry.AllServiceTags = []string{}
	}
	for _, r := range p.Reviews {
		if !r.IsEmpty() {
			entry.Reviews = append(entry.Reviews, r)
		}
	}
	return entry
}

// Len returns the number of pages.
func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return len(c.pages)
}

// Paths returns all page paths in lexicographic order.
func (c *Corpus) Paths() []string {
	if c == nil {
		return nil
	}
	paths := make([]string, 0, len(c.pages))
	for path := range c.pages {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Page returns the entry stored under path, or nil.
func (c *Corpus) Page(path string) *PageEntry {
	if c == nil {
		return nil
	}
	return c.pages[path]
}

// Pages returns all entries in lexicographic path order.
func (c *Corpus) Pages() []*PageEntry {
	paths := c.Paths()
	pages := make([]*PageEntry, 0, len(paths))
	for _, path := range paths {
		if p := c.pages[path]; p != nil {
			pages = append(pages, p)
		}
	}
	return pages
}

// TotalReviews returns the number of review records across all pages.
func (c *Corpus) TotalReviews() int {
	total := 0
	for _, p := range c.Pages() {
		total += len(p.Reviews)
	}
	return total
}

// Validate checks the structural integrity of the corpus.
// The returned error names the first offending page in path order.
func (c *Corpus) Validate() error {
	for _, path := range c.Paths() {
		p := c.pages[path]
		switch {
		case path == "":
			return ErrEmptyPath
		case p == nil:
			return fmt.Errorf("page %q: %w", path, ErrNilPage)
		case p.Path != path:
			return fmt.Errorf("page %q: %w (entry path %q)", path, ErrPathMismatch, p.Path)
		}
	}
	return nil
}

// corpusEntryJSON is the serialized form of a page inside a corpus file.
// The path is the object key, so it is not repeated in the value.
type corpusEntryJSON struct {
	Category       string         `json:"category"`
	Reviews        []ReviewRecord `json:"reviews"`
	AllServiceTags []string       `json:"all_service_tags,omitempty"`
}

// MarshalJSON encodes the corpus as an object keyed by page path.
func (c *Corpus) MarshalJSON() ([]byte, error) {
	out := make(map[string]corpusEntryJSON, c.Len())
	for _, p := range c.Pages() {
		out[p.Path] = corpusEntryJSON{
			Category:       string(p.Category),
			Reviews:        p.Reviews,
			AllServiceTags: p.AllServiceTags,
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes an object keyed by page path.
// Category names are normalized with ParseCategory; unknown names are kept.
func (c *Corpus) UnmarshalJSON(data []byte) error {
	var raw map[string]corpusEntryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	pages := make(map[string]*PageEntry, len(raw))
	for path, entry := range raw {
		category, _ := ParseCategory(entry.Category)
		pages[path] = &PageEntry{
			Path:           path,
			Category:       category,
			Reviews:        entry.Reviews,
			AllServiceTags: entry.AllServiceTags,
		}
	}

	*c = *NewCorpusFromMap(pages)
	return nil
}
