package service

import (
	"context"
	"errors"
	"strings"

	"github.com/yourorg/productproxy/internal/apperrors"
	"github.com/yourorg/productproxy/internal/models"
	"github.com/yourorg/productproxy/internal/upstream"
)

type ProductGateway interface {
	ListAll(ctx context.Context) ([]*models.Product, error)
	GetByIDs(ctx context.Context, params models.GetProductsParams) ([]*models.Product, error)
	GetByID(ctx context.Context, params models.GetProductParams) (*models.Product, error)
	Create(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error)
	Replace(ctx context.Context, req *models.ReplaceProductRequest) (*models.Product, error)
	Patch(ctx context.Context, req *models.PatchProductRequest) (*models.Product, error)
	Delete(ctx context.Context, params models.DeleteProductParams) error
}

// Options tunes how upstream failures are classified.
type Options struct {
	// StrictNotFound reports 404 only when the upstream store answered 4xx
	// and 503 for transport failures and 5xx answers. When false, get-one
	// treats every failure as absent and delete treats every non-2xx answer
	// as absent.
	StrictNotFound bool
}

type ProductService struct {
	gateway ProductGateway
	opts    Options
}

func NewProductService(gateway ProductGateway, opts Options) *ProductService {
	return &ProductService{gateway: gateway, opts: opts}
}

// ListProducts fetches the whole upstream collection once, keeps products
// whose name contains the filter text regardless of case, then returns the
// requested page. Upstream order is preserved.
func (s *ProductService) ListProducts(ctx context.Context, filter models.ListProductsFilter) ([]*models.Product, error) {
	products, err := s.gateway.ListAll(ctx)
	if err != nil {
		return nil, classify(err, "list products")
	}

	if filter.Name != nil && *filter.Name != "" {
		products = filterByName(products, *filter.Name)
	}
	return paginate(products, filter.Offset(), filter.PageSize), nil
}

// GetProducts returns whichever of the requested products exist upstream.
func (s *ProductService) GetProducts(ctx context.Context, params models.GetProductsParams) ([]*models.Product, error) {
	products, err := s.gateway.GetByIDs(ctx, params)
	if err != nil {
		return nil, classify(err, "get products")
	}
	return products, nil
}

func (s *ProductService) GetProduct(ctx context.Context, params models.GetProductParams) (*models.Product, error) {
	product, err := s.gateway.GetByID(ctx, params)
	if err == nil {
		return product, nil
	}

	if !s.opts.StrictNotFound {
		if isUpstreamFailure(err) {
			return nil, apperrors.NewNotFoundError("product", params.ProductID)
		}
		return nil, err
	}
	return nil, s.classifyMissing(err, "get product", params.ProductID)
}

func (s *ProductService) CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error) {
	product, err := s.gateway.Create(ctx, req)
	if err != nil {
		return nil, classify(err, "create product")
	}
	return product, nil
}

func (s *ProductService) ReplaceProduct(ctx context.Context, req *models.ReplaceProductRequest) (*models.Product, error) {
	product, err := s.gateway.Replace(ctx, req)
	if err != nil {
		if s.opts.StrictNotFound {
			return nil, s.classifyMissing(err, "replace product", req.ID)
		}
		return nil, classify(err, "replace product")
	}
	return product, nil
}

func (s *ProductService) PatchProduct(ctx context.Context, req *models.PatchProductRequest) (*models.Product, error) {
	product, err := s.gateway.Patch(ctx, req)
	if err != nil {
		if s.opts.StrictNotFound {
			return nil, s.classifyMissing(err, "patch product", req.ID)
		}
		return nil, classify(err, "patch product")
	}
	return product, nil
}

func (s *ProductService) DeleteProduct(ctx context.Context, params models.DeleteProductParams) error {
	err := s.gateway.Delete(ctx, params)
	if err == nil {
		return nil
	}

	if s.opts.StrictNotFound {
		return s.classifyMissing(err, "delete product", params.ProductID)
	}

	var statusErr *upstream.StatusError
	if errors.As(err, &statusErr) {
		return apperrors.NewNotFoundError("product", params.ProductID)
	}
	return classify(err, "delete product")
}

// classifyMissing maps upstream 4xx answers to NotFound and everything else
// through classify.
func (s *ProductService) classifyMissing(err error, operation, productID string) error {
	var statusErr *upstream.StatusError
	if errors.As(err, &statusErr) && statusErr.ClientError() {
		return apperrors.NewNotFoundError("product", productID)
	}
	return classify(err, operation)
}

// classify turns upstream failures into the application error taxonomy.
// Errors that are not upstream failures, such as undecodable bodies, pass
// through unchanged and surface as internal errors.
func classify(err error, operation string) error {
	var transportErr *upstream.TransportError
	if errors.As(err, &transportErr) {
		if transportErr.Timeout() {
			return apperrors.NewTimeoutError(operation, err)
		}
		if transportErr.BreakerOpen() {
			return apperrors.NewServiceUnavailableError(operation+": circuit open", err)
		}
		return apperrors.NewServiceUnavailableError(operation, err)
	}

	var statusErr *upstream.StatusError
	if errors.As(err, &statusErr) {
		return apperrors.NewServiceUnavailableError(operation, err)
	}
	return err
}

func isUpstreamFailure(err error) bool {
	var transportErr *upstream.TransportError
	var statusErr *upstream.StatusError
	return errors.As(err, &transportErr) || errors.As(err, &statusErr)
}

func filterByName(products []*models.Product, name string) []*models.Product {
	needle := strings.ToLower(name)
	out := make([]*models.Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			out = append(out, p)
		}
	}
	return out
}

// paginate returns at most limit items starting at offset. An offset past
// the end yields an empty, non-nil slice.
func paginate[T any](items []T, offset, limit int) []T {
	if offset < 0 || limit <= 0 || offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) || end < offset {
		end = len(items)
	}
	return items[offset:end]
}
