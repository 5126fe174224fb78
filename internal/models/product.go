package models

import (
	"math"
	"time"
)

// Product is the upstream object as this service sees it. Data is an open
// JSON object whose shape belongs to the caller.
type Product struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Data      map[string]any `json:"data"`
	CreatedAt *time.Time     `json:"createdAt,omitempty"`
	UpdatedAt *time.Time     `json:"updatedAt,omitempty"`
}

type CreateProductRequest struct {
	Name string
	Data map[string]any
}

type ReplaceProductRequest struct {
	ID   string
	Name string
	Data map[string]any
}

// PatchProductRequest replaces Name and/or Data when set. Data is replaced
// as a whole, never merged key by key.
type PatchProductRequest struct {
	ID   string
	Name *string
	Data map[string]any
}

type GetProductParams struct {
	ProductID string
}

type GetProductsParams struct {
	ProductIDs []string
}

type DeleteProductParams struct {
	ProductID string
}

type ListProductsFilter struct {
	Name     *string
	Page     int
	PageSize int
}

// Offset is the number of filtered products skipped before the page starts.
// It saturates at math.MaxInt instead of overflowing.
func (f ListProductsFilter) Offset() int {
	if f.Page <= 1 || f.PageSize <= 0 {
		return 0
	}
	if f.Page-1 > math.MaxInt/f.PageSize {
		return math.MaxInt
	}
	return (f.Page - 1) * f.PageSize
}
