package api

import (
	"strings"
	"time"
)

// CreateProductRequest represents the request body for creating a product.
// @Description Request payload for creating a product
type CreateProductRequest struct {
	Name string         `json:"name" validate:"required,min=3,max=100" example:"Gadget"`
	Data map[string]any `json:"data" validate:"required" swaggertype:"object"`
}

// ReplaceProductRequest represents the request body for replacing a product.
// @Description Request payload for replacing a product; data replaces the stored data entirely
type ReplaceProductRequest struct {
	Name string         `json:"name" validate:"required,min=3,max=100" example:"Gadget"`
	Data map[string]any `json:"data" validate:"required" swaggertype:"object"`
}

// PatchProductRequest represents the request body for patching a product.
// @Description Request payload for patching a product; a present data object replaces the stored one
type PatchProductRequest struct {
	Name *string        `json:"name" validate:"omitnil,min=3,max=100" example:"Gadget"`
	Data map[string]any `json:"data,omitempty" swaggertype:"object"`
}

// normalize trims surrounding whitespace from the name before validation,
// so a blank name fails the length rules.
func (r *CreateProductRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
}

func (r *ReplaceProductRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
}

func (r *PatchProductRequest) normalize() {
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		r.Name = &name
	}
}

// ProductResponse represents a product resource in API responses.
// @Description Product resource
type ProductResponse struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Data      map[string]any `json:"data" swaggertype:"object"`
	CreatedAt *time.Time     `json:"createdAt,omitempty"`
	UpdatedAt *time.Time     `json:"updatedAt,omitempty"`
}
