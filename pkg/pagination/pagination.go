package pagination

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// =============================================================================
// Page-Based Pagination (Offset Pagination)
// =============================================================================

// Pagination represents pagination parameters
type Pagination struct {
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"total_pages"`
	HasNext     bool  `json:"has_next"`
	HasPrev     bool  `json:"has_prev"`
}

// PaginationParams represents input parameters for pagination
type PaginationParams struct {
	Page    int `form:"page" json:"page"`
	PerPage int `form:"per_page" json:"per_page"`
}

const (
	DefaultPerPage = 15
	MaxPerPage     = 100
)

// Validate ensures pagination parameters are within valid ranges
func (p *PaginationParams) Validate() {
	if p.Page < 1 {
		p.Page = 1
	}
	p.PerPage = clampLimit(p.PerPage)
}

func clampLimit(n int) int {
	if n < 1 {
		return DefaultPerPage
	}
	if n > MaxPerPage {
		return MaxPerPage
	}
	return n
}

// Offset calculates the offset for SQL queries
func (p *PaginationParams) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// NewPagination creates a new Pagination response
func NewPagination(page, perPage int, total int64) *Pagination {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))

	return &Pagination{
		CurrentPage: page,
		PerPage:     perPage,
		Total:       total,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrev:     page > 1,
	}
}

// PaginatedResult represents a paginated result with items and pagination info
type PaginatedResult[T any] struct {
	Items      []T         `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

// NewPaginatedResult creates a new paginated result
func NewPaginatedResult[T any](items []T, pagination *Pagination) *PaginatedResult[T] {
	return &PaginatedResult[T]{
		Items:      items,
		Pagination: pagination,
	}
}

// =============================================================================
// Cursor-Based Pagination (Keyset Pagination)
// =============================================================================

// CursorDirection represents the direction of cursor navigation
type CursorDirection string

const (
	CursorDirectionNext CursorDirection = "next"
	CursorDirectionPrev CursorDirection = "prev"
)

// Cursor represents the decoded cursor data
type Cursor struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// CursorParams represents input parameters for cursor-based pagination
type CursorParams struct {
	Cursor    string          `form:"cursor" json:"cursor"`       // Base64 encoded cursor
	Direction CursorDirection `form:"direction" json:"direction"` // "next" or "prev"
	Limit     int             `form:"limit" json:"limit"`
}

// CursorPagination represents cursor-based pagination response metadata
type CursorPagination struct {
	NextCursor *string `json:"next_cursor,omitempty"` // Cursor to fetch next page
	PrevCursor *string `json:"prev_cursor,omitempty"` // Cursor to fetch previous page
	HasNext    bool    `json:"has_next"`
	HasPrev    bool    `json:"has_prev"`
	Limit      int     `json:"limit"`
}

// Validate ensures cursor pagination parameters are within valid ranges
func (c *CursorParams) Validate() {
	c.Limit = clampLimit(c.Limit)
	if c.Direction != CursorDirectionPrev {
		c.Direction = CursorDirectionNext
	}
}

// DecodeCursor decodes a base64 cursor string into a Cursor struct
func (c *CursorParams) DecodeCursor() (*Cursor, error) {
	if c.Cursor == "" {
		return nil, nil
	}

	decoded, err := base64.URLEncoding.DecodeString(c.Cursor)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor format: %w", err)
	}

	var cursor Cursor
	if err := json.Unmarshal(decoded, &cursor); err != nil {
		return nil, fmt.Errorf("invalid cursor data: %w", err)
	}

	return &cursor, nil
}

// EncodeCursor creates a base64 encoded cursor from an ID and optional timestamp
func EncodeCursor(id string, createdAt ...time.Time) string {
	cursor := Cursor{ID: id}
	if len(createdAt) > 0 {
		cursor.CreatedAt = createdAt[0]
	}

	data, _ := json.Marshal(cursor)
	return base64.URLEncoding.EncodeToString(data)
}

// NewCursorPagination builds the response metadata for a keyset page.
// items must have been fetched with params.Limit+1 rows and already be in
// display order; the extra row only signals that more data exists in the
// direction of travel.
func NewCursorPagination[T any](items []T, params *CursorParams, getID func(T) string, getCreatedAt func(T) time.Time) (*CursorPagination, []T) {
	limit := params.Limit
	hasMore := len(items) > limit
	if hasMore {
		if params.Direction == CursorDirectionPrev {
			items = items[len(items)-limit:]
		} else {
			items = items[:limit]
		}
	}

	pagination := &CursorPagination{Limit: limit}
	if params.Direction == CursorDirectionPrev {
		pagination.HasPrev = hasMore
		pagination.HasNext = params.Cursor != ""
	} else {
		pagination.HasNext = hasMore
		pagination.HasPrev = params.Cursor != ""
	}

	if len(items) > 0 {
		lastItem := items[len(items)-1]
		nextCursor := EncodeCursor(getID(lastItem), getCreatedAt(lastItem))
		pagination.NextCursor = &nextCursor

		firstItem := items[0]
		prevCursor := EncodeCursor(getID(firstItem), getCreatedAt(firstItem))
		pagination.PrevCursor = &prevCursor
	}

	return pagination, items
}

// =============================================================================
// Unified Pagination (Supports Both Strategies)
// =============================================================================

// UnifiedPaginationParams accepts both page-based and cursor-based parameters
type UnifiedPaginationParams struct {
	// Page-based parameters
	Page    int `form:"page" json:"page"`
	PerPage int `form:"per_page" json:"per_page"`

	// Cursor-based parameters
	Cursor    string          `form:"cursor" json:"cursor"`
	Direction CursorDirection `form:"direction" json:"direction"`
	Limit     int             `form:"limit" json:"limit"`
}

// IsCursorBased returns true if cursor-based pagination is being used
func (u *UnifiedPaginationParams) IsCursorBased() bool {
	return u.Cursor != "" || u.Limit > 0
}

// ToPaginationParams converts to page-based params
func (u *UnifiedPaginationParams) ToPaginationParams() *PaginationParams {
	params := &PaginationParams{
		Page:    u.Page,
		PerPage: u.PerPage,
	}
	params.Validate()
	return params
}

// ToCursorParams converts to cursor-based params
func (u *UnifiedPaginationParams) ToCursorParams() *CursorParams {
	params := &CursorParams{
		Cursor:    u.Cursor,
		Direction: u.Direction,
		Limit:     u.Limit,
	}
	if params.Limit == 0 && u.PerPage > 0 {
		params.Limit = u.PerPage
	}
	params.Validate()
	return params
}

// UnifiedPaginatedResult represents a result that includes both pagination types
type UnifiedPaginatedResult[T any] struct {
	Items []T `json:"items"`

	// Page-based fields (present when using page-based pagination)
	CurrentPage *int   `json:"current_page,omitempty"`
	TotalPages  *int   `json:"total_pages,omitempty"`
	Total       *int64 `json:"total,omitempty"`

	// Cursor-based fields (present when using cursor-based pagination)
	NextCursor *string `json:"next_cursor,omitempty"`
	PrevCursor *string `json:"prev_cursor,omitempty"`

	// Common fields
	HasNext bool `json:"has_next"`
	HasPrev bool `json:"has_prev"`
	PerPage int  `json:"per_page"`
}

// NewUnifiedPaginatedResultFromCursor creates a unified result from cursor-based pagination
func NewUnifiedPaginatedResultFromCursor[T any](items []T, pagination *CursorPagination) *UnifiedPaginatedResult[T] {
	return &UnifiedPaginatedResult[T]{
		Items:      items,
		NextCursor: pagination.NextCursor,
		PrevCursor: pagination.PrevCursor,
		HasNext:    pagination.HasNext,
		HasPrev:    pagination.HasPrev,
		PerPage:    pagination.Limit,
	}
}
