package pagination

import "math"

const (
	// DefaultPage is used when the caller omits or sends an invalid page.
	DefaultPage = 1
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 20
	// MaxLimit caps how many rows any list query can request.
	MaxLimit = 100
)

// Params holds page based pagination inputs from controllers or services.
type Params struct {
	Page  int
	Limit int
}

// Meta is the pagination block returned alongside list responses.
type Meta struct {
	CurrentPage  int   `json:"currentPage"`
	TotalPages   int   `json:"totalPages"`
	TotalItems   int64 `json:"totalItems"`
	ItemsPerPage int   `json:"itemsPerPage"`
	HasNextPage  bool  `json:"hasNextPage"`
	HasPrevPage  bool  `json:"hasPrevPage"`
}

// Page is a generic result page returned by list operations.
type Page[T any] struct {
	Items []T
	Meta  Meta
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Normalize returns params with page and limit clamped to usable values.
func (p Params) Normalize() Params {
	page := p.Page
	if page < 1 {
		page = DefaultPage
	}
	return Params{Page: page, Limit: NormalizeLimit(p.Limit)}
}

// Offset is the number of rows to skip for the normalized page.
func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// NewMeta builds the response block for a page of total rows.
func NewMeta(p Params, total int64) Meta {
	n := p.Normalize()
	totalPages := int(math.Ceil(float64(total) / float64(n.Limit)))
	return Meta{
		CurrentPage:  n.Page,
		TotalPages:   totalPages,
		TotalItems:   total,
		ItemsPerPage: n.Limit,
		HasNextPage:  n.Page < totalPages,
		HasPrevPage:  n.Page > 1,
	}
}

// NewPage wraps items with their pagination metadata.
func NewPage[T any](items []T, p Params, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Meta: NewMeta(p, total)}
}
