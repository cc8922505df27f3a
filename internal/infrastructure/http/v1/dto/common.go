// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"encoding/json"
	"time"

	"majifix/internal/core/apperror"
	"majifix/internal/core/id"
	"majifix/internal/domain"
	"majifix/internal/domain/filter"
)

// --- List request ---

// ListRequest carries the query parameters understood by list endpoints.
// Either skip or page positions the window; page wins when both are present.
type ListRequest struct {
	Limit int    `form:"limit"`
	Skip  int    `form:"skip"`
	Page  int    `form:"page"`
	Query string `form:"q"`

	// Jurisdiction scopes results to one jurisdiction
	Jurisdiction string `form:"jurisdiction"`

	// External filters on the external flag ("true"/"false")
	External *bool `form:"external"`

	// Filter is a JSON array of {field, operator, value} conditions
	Filter string `form:"filter"`

	// Deleted includes soft-deleted records
	Deleted bool `form:"deleted"`
}

// ToListFilter converts the request into a domain list filter.
func (r *ListRequest) ToListFilter() (domain.ListFilter, error) {
	f := domain.DefaultListFilter()

	if r.Limit > 0 {
		f.Limit = r.Limit
	}
	f.Skip = r.Skip
	if r.Page > 0 {
		f.Skip = (r.Page - 1) * f.Limit
	}

	f.Search = r.Query
	f.External = r.External
	f.IncludeDeleted = r.Deleted

	if r.Jurisdiction != "" {
		jID, err := id.Parse(r.Jurisdiction)
		if err != nil {
			return f, apperror.NewValidation("invalid jurisdiction id").
				WithDetail("jurisdiction", r.Jurisdiction)
		}
		f.Jurisdiction = &jID
	}

	if r.Filter != "" {
		var items []filter.Item
		if err := json.Unmarshal([]byte(r.Filter), &items); err != nil {
			return f, apperror.NewValidation("invalid filter").
				WithDetail("error", err.Error())
		}
		f.Filters = items
	}

	return f, nil
}

// --- List response ---

// ListResponse is the pagination envelope for list endpoints.
type ListResponse[T any] struct {
	Data         []T        `json:"data"`
	Total        int64      `json:"total"`
	Size         int        `json:"size"`
	Limit        int        `json:"limit"`
	Skip         int        `json:"skip"`
	Page         int        `json:"page"`
	Pages        int        `json:"pages"`
	LastModified *time.Time `json:"lastModified,omitempty"`
}

// NewListResponse builds the envelope from a repository page. Page numbers
// are 1-based; pages is the total page count at the given limit.
func NewListResponse[T any](data []T, total int64, limit, skip int, lastModified *time.Time) ListResponse[T] {
	if limit <= 0 {
		limit = domain.DefaultLimit
	}

	pages := int(total) / limit
	if int(total)%limit > 0 {
		pages++
	}
	if pages == 0 {
		pages = 1
	}

	return ListResponse[T]{
		Data:         data,
		Total:        total,
		Size:         len(data),
		Limit:        limit,
		Skip:         skip,
		Page:         skip/limit + 1,
		Pages:        pages,
		LastModified: lastModified,
	}
}

// --- Success / Error ---

// SuccessResponse for operations without data.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse mirrors the failure envelope produced by the error
// middleware, for documentation and tests.
type ErrorResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Error   map[string]any `json:"error"`
}
