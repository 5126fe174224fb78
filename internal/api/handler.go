package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/nhalm/canonlog"
	"github.com/yourorg/productproxy/internal/apperrors"
	"github.com/yourorg/productproxy/internal/models"
)

// ProductService defines only the methods the API layer needs from the product service.
type ProductService interface {
	ListProducts(ctx context.Context, filter models.ListProductsFilter) ([]*models.Product, error)
	GetProducts(ctx context.Context, params models.GetProductsParams) ([]*models.Product, error)
	GetProduct(ctx context.Context, params models.GetProductParams) (*models.Product, error)
	CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error)
	ReplaceProduct(ctx context.Context, req *models.ReplaceProductRequest) (*models.Product, error)
	PatchProduct(ctx context.Context, req *models.PatchProductRequest) (*models.Product, error)
	DeleteProduct(ctx context.Context, params models.DeleteProductParams) error
}

type Handler struct {
	productSvc ProductService
}

func NewHandler(productSvc ProductService) *Handler {
	return &Handler{
		productSvc: productSvc,
	}
}

// ListProducts godoc
// @Summary List products
// @Description Fetches the upstream collection, filters by name (case-insensitive substring) and returns one page.
// @Tags products
// @Produce json
// @Param name query string false "Name filter"
// @Param page query int false "Page number" default(1) minimum(1)
// @Param pageSize query int false "Page size" default(10) minimum(1)
// @Success 200 {array} ProductResponse
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /products [get]
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	fields := map[string]any{
		"page":      filter.Page,
		"page_size": filter.PageSize,
	}
	if filter.Name != nil {
		fields["filter"] = *filter.Name
	}
	canonlog.AddRequestFields(r.Context(), fields)

	products, err := h.productSvc.ListProducts(r.Context(), filter)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	Success(w, convertToProductResponses(products))
}

// GetProducts godoc
// @Summary Get several products
// @Description Ids unknown upstream are omitted from the result.
// @Tags products
// @Produce json
// @Param id query []string true "Product ids" collectionFormat(multi)
// @Success 200 {array} ProductResponse
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /products/batch [get]
func (h *Handler) GetProducts(w http.ResponseWriter, r *http.Request) {
	ids, err := parseIDs(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	canonlog.AddRequestFields(r.Context(), map[string]any{
		"batch_size": len(ids),
	})

	products, err := h.productSvc.GetProducts(r.Context(), models.GetProductsParams{
		ProductIDs: ids,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	Success(w, convertToProductResponses(products))
}

// GetProduct godoc
// @Summary Get a product
// @Tags products
// @Produce json
// @Param id path string true "Product id"
// @Success 200 {object} ProductResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /products/{id} [get]
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	canonlog.AddRequestFields(r.Context(), map[string]any{
		"product_id": id,
	})

	product, err := h.productSvc.GetProduct(r.Context(), models.GetProductParams{
		ProductID: id,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	Success(w, convertToProductResponse(product))
}

// CreateProduct godoc
// @Summary Create a product
// @Tags products
// @Accept json
// @Produce json
// @Param product body CreateProductRequest true "Product"
// @Success 201 {object} ProductResponse
// @Header 201 {string} Location "Path of the created product"
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /products [post]
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := decodeBody(r, &req); err != nil {
		BadRequest(w, r, err, "invalid request body", "")
		return
	}

	req.normalize()
	if err := ValidateStruct(req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	canonlog.AddRequestFields(r.Context(), map[string]any{
		"product_name": req.Name,
	})

	serviceReq := models.CreateProductRequest{
		Name: req.Name,
		Data: req.Data,
	}

	product, err := h.productSvc.CreateProduct(r.Context(), &serviceReq)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	canonlog.AddRequestFields(r.Context(), map[string]any{
		"product_id": product.ID,
	})

	Created(w, productLocation(product.ID), convertToProductResponse(product))
}

// ReplaceProduct godoc
// @Summary Replace a product
// @Tags products
// @Accept json
// @Produce json
// @Param id path string true "Product id"
// @Param product body ReplaceProductRequest true "Product"
// @Success 200 {object} ProductResponse
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /products/{id} [put]
func (h *Handler) ReplaceProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	var req ReplaceProductRequest
	if err := decodeBody(r, &req); err != nil {
		BadRequest(w, r, err, "invalid request body", "")
		return
	}

	req.normalize()
	if err := ValidateStruct(req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	canonlog.AddRequestFields(r.Context(), map[string]any{
		"product_id":   id,
		"product_name": req.Name,
	})

	serviceReq := models.ReplaceProductRequest{
		ID:   id,
		Name: req.Name,
		Data: req.Data,
	}

	product, err := h.productSvc.ReplaceProduct(r.Context(), &serviceReq)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	Success(w, convertToProductResponse(product))
}

// PatchProduct godoc
// @Summary Patch a product
// @Description Replaces name and/or data when present. data is replaced as a whole, not merged.
// @Tags products
// @Accept json
// @Produce json
// @Param id path string true "Product id"
// @Param product body PatchProductRequest true "Fields to replace"
// @Success 200 {object} ProductResponse
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /products/{id} [patch]
func (h *Handler) PatchProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	var req PatchProductRequest
	if err := decodeBody(r, &req); err != nil {
		BadRequest(w, r, err, "invalid request body", "")
		return
	}

	req.normalize()
	if err := ValidateStruct(req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	if req.Name == nil && req.Data == nil {
		handleServiceError(w, r, apperrors.NewValidationError("", "at least one of name or data is required"))
		return
	}

	canonlog.AddRequestFields(r.Context(), map[string]any{
		"product_id": id,
	})

	serviceReq := models.PatchProductRequest{
		ID:   id,
		Name: req.Name,
		Data: req.Data,
	}

	product, err := h.productSvc.PatchProduct(r.Context(), &serviceReq)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	Success(w, convertToProductResponse(product))
}

// DeleteProduct godoc
// @Summary Delete a product
// @Tags products
// @Param id path string true "Product id"
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /products/{id} [delete]
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	canonlog.AddRequestFields(r.Context(), map[string]any{
		"product_id": id,
	})

	if err := h.productSvc.DeleteProduct(r.Context(), models.DeleteProductParams{
		ProductID: id,
	}); err != nil {
		handleServiceError(w, r, err)
		return
	}

	NoContent(w)
}

// decodeBody decodes a single JSON object, keeping numbers in data exactly
// as sent. Anything after the object is rejected.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&json.RawMessage{}); !errors.Is(err, io.EOF) {
		return errTrailingData
	}
	return nil
}

func productLocation(id string) string {
	return apiPrefix + "/products/" + url.PathEscape(id)
}

func convertToProductResponse(product *models.Product) ProductResponse {
	return ProductResponse{
		ID:        product.ID,
		Name:      product.Name,
		Data:      product.Data,
		CreatedAt: product.CreatedAt,
		UpdatedAt: product.UpdatedAt,
	}
}

func convertToProductResponses(products []*models.Product) []ProductResponse {
	responses := make([]ProductResponse, len(products))
	for i, p := range products {
		responses[i] = convertToProductResponse(p)
	}
	return responses
}
