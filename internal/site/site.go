// Package site enumerates the audited pages of a static site and assigns
// each one its category.
//
// Categorization is a lookup table: every category lists glob patterns
// relative to the site root. The default layout matches a locksmith site
// with city pages under service-areas/ and service pages under services/.
package site

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nao1215/reviewaudit/internal/model"
)

var (
	// ErrSiteNotFound is returned when the site root is missing or not a
	// directory.
	ErrSiteNotFound = errors.New("site directory not found")

	// ErrAmbiguousPage is returned when a page matches patterns of two
	// categories.
	ErrAmbiguousPage = errors.New("page matches more than one category")
)

// Layout maps each category to glob patterns relative to the site root.
// Patterns use "/" as separator and filepath.Match syntax.
type Layout map[model.Category][]string

// DefaultLayout returns the layout of the audited locksmith site.
func DefaultLayout() Layout {
	return Layout{
		model.CategoryServiceArea: {
			"service-areas/locksmith-*.html",
		},
		model.CategoryMain: {
			"index.html",
			"about.html",
			"services.html",
			"service-areas.html",
		},
		model.CategoryServiceCategory: {
			"services/residential-locksmith.html",
			"services/auto-locksmith.html",
			"services/commercial-locksmith.html",
		},
		model.CategoryIndividualService: {
			"services/car-lockout.html",
			"services/house-lockout.html",
			"services/business-lockout.html",
			"services/storage-unit-lockout.html",
			"services/lock-rekey.html",
			"services/lock-replacement.html",
			"services/car-key-replacement.html",
		},
	}
}

// Validate checks that every pattern is well formed.
func (l Layout) Validate() error {
	for category, patterns := range l {
		for _, pattern := range patterns {
			if _, err := filepath.Match(filepath.FromSlash(pattern), ""); err != nil {
				return fmt.Errorf("layout pattern %q for %s: %w", pattern, category, err)
			}
		}
	}
	return nil
}

// categories returns the layout's categories, known ones first in
// reporting order and then any others sorted by name.
func (l Layout) categories() []model.Category {
	out := make([]model.Category, 0, len(l))
	for _, c := range model.Categories {
		if _, ok := l[c]; ok {
			out = append(out, c)
		}
	}
	var extra []model.Category
	for c := range l {
		if !c.Known() {
			extra = append(extra, c)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}

// Categorize returns the category whose patterns match the
// slash-separated page path. ok is false when no pattern matches; a page
// matched by two categories is an ErrAmbiguousPage error.
func (l Layout) Categorize(page string) (category model.Category, ok bool, err error) {
	page = strings.TrimPrefix(page, "/")
	for _, c := range l.categories() {
		for _, pattern := range l[c] {
			matched, err := path.Match(pattern, page)
			if err != nil {
				return "", false, fmt.Errorf("layout pattern %q: %w", pattern, err)
			}
			if !matched {
				continue
			}
			if ok && category != c {
				return "", false, fmt.Errorf("%w: %s (%s and %s)", ErrAmbiguousPage, page, category, c)
			}
			category, ok = c, true
		}
	}
	return category, ok, nil
}

// Page is a discovered page file.
type Page struct {
	// Path is the page path relative to the site root, "/"-separated.
	Path string

	// Category is the category whose pattern matched the page.
	Category model.Category

	// AbsPath is the file location on disk.
	AbsPath string
}

// Discover lists the pages of the site at root.
// Patterns matching no file are skipped. Pages are sorted by path.
func Discover(root string, layout Layout) ([]Page, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrSiteNotFound, root)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	found := make(map[string]Page)
	for _, category := range layout.categories() {
		for _, pattern := range layout[category] {
			matches, err := filepath.Glob(filepath.Join(abs, filepath.FromSlash(pattern)))
			if err != nil {
				return nil, fmt.Errorf("layout pattern %q: %w", pattern, err)
			}
			for _, match := range matches {
				if fi, err := os.Stat(match); err != nil || fi.IsDir() {
					continue
				}
				rel, err := filepath.Rel(abs, match)
				if err != nil {
					return nil, err
				}
				rel = filepath.ToSlash(rel)

				if prev, ok := found[rel]; ok {
					if prev.Category != category {
						return nil, fmt.Errorf("%w: %s (%s and %s)", ErrAmbiguousPage, rel, prev.Category, category)
					}
					continue
				}
				found[rel] = Page{Path: rel, Category: category, AbsPath: match}
			}
		}
	}

	pages := make([]Page, 0, len(found))
	for _, p := range found {
		pages = append(pages, p)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Path < pages[j].Path })
	return pages, nil
}
