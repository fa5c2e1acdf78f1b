package model

import "strings"

// Category is the structural classification of a page.
// It decides which categorization rules apply to the page.
type Category string

const (
	// CategoryServiceArea is a page describing one city or region served.
	CategoryServiceArea Category = "service_area"

	// CategoryServiceCategory is a page covering a family of services
	// (residential, automotive, commercial).
	CategoryServiceCategory Category = "service_category"

	// CategoryIndividualService is a page about one specific service.
	CategoryIndividualService Category = "individual_service"

	// CategoryMain is a top-level page such as the home or about page.
	CategoryMain Category = "main"
)

// Categories lists every known category in reporting order.
var Categories = []Category{
	CategoryServiceArea,
	CategoryServiceCategory,
	CategoryIndividualService,
	CategoryMain,
}

// legacyCategorySuffix is appended to category names by older extraction
// output ("service_area_pages" and so on).
const legacyCategorySuffix = "_pages"

// ParseCategory converts a raw category value into a Category.
// Both the canonical names and the legacy plural names are accepted.
// Unknown values are returned verbatim with ok set to false so that a
// malformed page can still be carried through the audit.
func ParseCategory(raw string) (Category, bool) {
	normalized := strings.TrimSuffix(strings.TrimSpace(raw), legacyCategorySuffix)
	category := Category(normalized)
	if category.Known() {
		return category, true
	}
	return Category(raw), false
}

// Known reports whether c is one of the four recognized categories.
func (c Category) Known() bool {
	switch c {
	case CategoryServiceArea, CategoryServiceCategory, CategoryIndividualService, CategoryMain:
		return true
	default:
		return false
	}
}

// Label returns a human-readable label such as "Service Area".
func (c Category) Label() string {
	switch c {
	case CategoryServiceArea:
		return "Service Area"
	case CategoryServiceCategory:
		return "Service Category"
	case CategoryIndividualService:
		return "Individual Service"
	case CategoryMain:
		return "Main"
	default:
		return string(c)
	}
}

// ReviewRecord is one customer testimonial found on a page.
// An empty string means the field could not be extracted.
type ReviewRecord struct {
	// CustomerName is the displayed name of the reviewer.
	CustomerName string `json:"customer_name,omitempty"`

	// ReviewText is the entity-decoded, whitespace-normalized testimonial.
	ReviewText string `json:"review_text,omitempty"`

	// ServiceTag is the service label displayed next to the review.
	// It is paired with the review by position on the page, so it may be
	// mis-associated when the markup is irregular.
	ServiceTag string `json:"service_tag,omitempty"`

	// Location is the reviewer location, if shown.
	Location string `json:"location,omitempty"`
}

// IsEmpty reports whether no field of the record is populated.
func (r ReviewRecord) IsEmpty() bool {
	return r.CustomerName == "" && r.ReviewText == "" && r.ServiceTag == "" && r.Location == ""
}

// PageEntry is one audited page.
type PageEntry struct {
	// Path is the page identifier relative to the site root, using "/" as
	// separator. It is the key of the page in the Corpus.
	Path string `json:"path"`

	// Category is fixed when the page is ingested.
	Category Category `json:"category"`

	// Reviews are in document order.
	Reviews []ReviewRecord `json:"reviews"`

	// AllServiceTags holds every service tag found on the page, whether or
	// not a review was paired with it.
	AllServiceTags []string `json:"all_service_tags"`
}

// ReviewTags returns the non-empty service tags carried by the page's
// reviews, in review order and including repeats.
func (p *PageEntry) ReviewTags() []string {
	tags := make([]string, 0, len(p.Reviews))
	for _, r := range p.Reviews {
		if r.ServiceTag != "" {
			tags = append(tags, r.ServiceTag)
		}
	}
	return tags
}
