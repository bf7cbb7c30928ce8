package domain

import "math"

// MaxPageLimit caps the number of records a single page may request.
const MaxPageLimit = 100

// PageRequest is a 1-based pagination window.
type PageRequest struct {
	Page  int
	Limit int
}

// NewPageRequest clamps page to a minimum of 1 and limit to [1, MaxPageLimit].
func NewPageRequest(page, limit int) PageRequest {
	return PageRequest{Page: max(1, page), Limit: min(max(1, limit), MaxPageLimit)}
}

// Offset returns the number of rows to skip for this window, saturating at
// math.MaxInt rather than overflowing.
func (p PageRequest) Offset() int {
	page, limit := max(1, p.Page), max(1, p.Limit)
	if page-1 > math.MaxInt/limit {
		return math.MaxInt
	}
	return (page - 1) * limit
}

// Page is one window of a larger result set. Total counts every matching
// record regardless of the window.
type Page[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// NewPage wraps data with the window that produced it.
func NewPage[T any](data []T, total int, req PageRequest) *Page[T] {
	if data == nil {
		data = []T{}
	}
	return &Page[T]{Data: data, Total: total, Page: req.Page, Limit: req.Limit}
}
