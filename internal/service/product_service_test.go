package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/productproxy/internal/apperrors"
	"github.com/yourorg/productproxy/internal/models"
	"github.com/yourorg/productproxy/internal/upstream"
)

type stubGateway struct {
	products []*models.Product
	err      error
	calls    int
}

func (g *stubGateway) ListAll(_ context.Context) ([]*models.Product, error) {
	g.calls++
	return g.products, g.err
}

func (g *stubGateway) GetByIDs(_ context.Context, params models.GetProductsParams) ([]*models.Product, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	wanted := make(map[string]bool, len(params.ProductIDs))
	for _, id := range params.ProductIDs {
		wanted[id] = true
	}
	out := []*models.Product{}
	for _, p := range g.products {
		if wanted[p.ID] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (g *stubGateway) GetByID(_ context.Context, params models.GetProductParams) (*models.Product, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	for _, p := range g.products {
		if p.ID == params.ProductID {
			return p, nil
		}
	}
	return nil, &upstream.StatusError{Method: http.MethodGet, Path: "/objects/" + params.ProductID, StatusCode: http.StatusNotFound}
}

func (g *stubGateway) Create(_ context.Context, req *models.CreateProductRequest) (*models.Product, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return &models.Product{ID: "new", Name: req.Name, Data: req.Data}, nil
}

func (g *stubGateway) Replace(_ context.Context, req *models.ReplaceProductRequest) (*models.Product, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return &models.Product{ID: req.ID, Name: req.Name, Data: req.Data}, nil
}

func (g *stubGateway) Patch(_ context.Context, req *models.PatchProductRequest) (*models.Product, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return &models.Product{ID: req.ID, Data: req.Data}, nil
}

func (g *stubGateway) Delete(_ context.Context, _ models.DeleteProductParams) error {
	g.calls++
	return g.err
}

func namedProducts(names ...string) []*models.Product {
	out := make([]*models.Product, len(names))
	for i, name := range names {
		out[i] = &models.Product{ID: fmt.Sprintf("%d", i+1), Name: name}
	}
	return out
}

func names(products []*models.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.Name
	}
	return out
}

func strPtr(s string) *string {
	return &s
}

var (
	errTransport   = &upstream.TransportError{Method: http.MethodGet, Path: "/objects", Err: errors.New("connection refused")}
	errTimeout     = &upstream.TransportError{Method: http.MethodGet, Path: "/objects", Err: context.DeadlineExceeded}
	errBreakerOpen = &upstream.TransportError{Method: http.MethodGet, Path: "/objects", Err: gobreaker.ErrOpenState}
	errNotFound    = &upstream.StatusError{Method: http.MethodGet, Path: "/objects/1", StatusCode: http.StatusNotFound}
	errServer      = &upstream.StatusError{Method: http.MethodGet, Path: "/objects/1", StatusCode: http.StatusInternalServerError}
	errDecode      = errors.New("decode product: unexpected end of JSON input")
)

func TestProductService_ListProducts_Pagination(t *testing.T) {
	catalog := namedProducts("p1", "p2", "p3", "p4", "p5")

	tests := []struct {
		name     string
		page     int
		pageSize int
		want     []string
	}{
		{"first page", 1, 2, []string{"p1", "p2"}},
		{"second page", 2, 2, []string{"p3", "p4"}},
		{"partial last page", 3, 2, []string{"p5"}},
		{"past the end", 4, 2, []string{}},
		{"far past the end", 1000, 10, []string{}},
		{"page larger than collection", 1, 10, []string{"p1", "p2", "p3", "p4", "p5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &stubGateway{products: catalog}
			svc := NewProductService(gw, Options{})

			got, err := svc.ListProducts(context.Background(), models.ListProductsFilter{Page: tt.page, PageSize: tt.pageSize})
			require.NoError(t, err)
			assert.NotNil(t, got)
			assert.Equal(t, tt.want, names(got))
			assert.Equal(t, 1, gw.calls)
		})
	}
}

func TestProductService_ListProducts_PageOverflow(t *testing.T) {
	gw := &stubGateway{products: namedProducts("p1")}
	svc := NewProductService(gw, Options{})

	maxInt := int(^uint(0) >> 1)
	got, err := svc.ListProducts(context.Background(), models.ListProductsFilter{Page: maxInt, PageSize: maxInt})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestProductService_ListProducts_FiltersBeforePaginating(t *testing.T) {
	gw := &stubGateway{products: namedProducts(
		"Apple iPhone 12", "Samsung Galaxy", "apple watch", "Google Pixel", "APPLE MacBook",
	)}
	svc := NewProductService(gw, Options{})

	got, err := svc.ListProducts(context.Background(), models.ListProductsFilter{
		Name:     strPtr("aPpLe"),
		Page:     2,
		PageSize: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"APPLE MacBook"}, names(got))
}

func TestProductService_ListProducts_EmptyFilterMatchesAll(t *testing.T) {
	gw := &stubGateway{products: namedProducts("a", "b", "c")}
	svc := NewProductService(gw, Options{})

	got, err := svc.ListProducts(context.Background(), models.ListProductsFilter{Name: strPtr(""), Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestProductService_ListProducts_UnicodeFilter(t *testing.T) {
	gw := &stubGateway{products: namedProducts("ÉCLAIR box", "croissant")}
	svc := NewProductService(gw, Options{})

	got, err := svc.ListProducts(context.Background(), models.ListProductsFilter{Name: strPtr("éclair"), Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"ÉCLAIR box"}, names(got))
}

func TestProductService_ListProducts_Errors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		checkFn func(t *testing.T, err error)
	}{
		{"transport", errTransport, func(t *testing.T, err error) {
			var target *apperrors.ServiceUnavailableError
			assert.ErrorAs(t, err, &target)
		}},
		{"timeout", errTimeout, func(t *testing.T, err error) {
			var target *apperrors.TimeoutError
			assert.ErrorAs(t, err, &target)
		}},
		{"breaker open", errBreakerOpen, func(t *testing.T, err error) {
			var target *apperrors.ServiceUnavailableError
			assert.ErrorAs(t, err, &target)
		}},
		{"upstream status", errServer, func(t *testing.T, err error) {
			var target *apperrors.ServiceUnavailableError
			assert.ErrorAs(t, err, &target)
		}},
		{"undecodable body", errDecode, func(t *testing.T, err error) {
			assert.Equal(t, errDecode, err)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewProductService(&stubGateway{err: tt.err}, Options{})
			_, err := svc.ListProducts(context.Background(), models.ListProductsFilter{Page: 1, PageSize: 10})
			require.Error(t, err)
			tt.checkFn(t, err)
		})
	}
}

func TestProductService_GetProducts_Subset(t *testing.T) {
	gw := &stubGateway{products: namedProducts("three", "five", "ten")}
	svc := NewProductService(gw, Options{})

	got, err := svc.GetProducts(context.Background(), models.GetProductsParams{ProductIDs: []string{"1", "404", "3"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"three", "ten"}, names(got))
	assert.Equal(t, 1, gw.calls)
}

func TestProductService_GetProduct(t *testing.T) {
	tests := []struct {
		name   string
		strict bool
		err    error
		want   string
	}{
		{"lenient not found", false, errNotFound, "not_found"},
		{"lenient server error", false, errServer, "not_found"},
		{"lenient transport", false, errTransport, "not_found"},
		{"lenient timeout", false, errTimeout, "not_found"},
		{"lenient decode failure", false, errDecode, "internal"},
		{"strict not found", true, errNotFound, "not_found"},
		{"strict server error", true, errServer, "unavailable"},
		{"strict transport", true, errTransport, "unavailable"},
		{"strict timeout", true, errTimeout, "timeout"},
		{"strict decode failure", true, errDecode, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewProductService(&stubGateway{err: tt.err}, Options{StrictNotFound: tt.strict})
			_, err := svc.GetProduct(context.Background(), models.GetProductParams{ProductID: "1"})
			assert.Equal(t, tt.want, errorKind(err))
		})
	}
}

func TestProductService_GetProduct_Found(t *testing.T) {
	svc := NewProductService(&stubGateway{products: namedProducts("Gadget")}, Options{})

	product, err := svc.GetProduct(context.Background(), models.GetProductParams{ProductID: "1"})
	require.NoError(t, err)
	assert.Equal(t, "Gadget", product.Name)
}

func TestProductService_DeleteProduct(t *testing.T) {
	tests := []struct {
		name   string
		strict bool
		err    error
		want   string
	}{
		{"lenient success", false, nil, ""},
		{"lenient not found", false, errNotFound, "not_found"},
		{"lenient server error", false, errServer, "not_found"},
		{"lenient transport", false, errTransport, "unavailable"},
		{"lenient timeout", false, errTimeout, "timeout"},
		{"strict not found", true, errNotFound, "not_found"},
		{"strict server error", true, errServer, "unavailable"},
		{"strict transport", true, errTransport, "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewProductService(&stubGateway{err: tt.err}, Options{StrictNotFound: tt.strict})
			err := svc.DeleteProduct(context.Background(), models.DeleteProductParams{ProductID: "1"})
			assert.Equal(t, tt.want, errorKind(err))
		})
	}
}

func TestProductService_Mutations(t *testing.T) {
	name := "Gadget"
	ops := map[string]func(svc *ProductService) error{
		"create": func(svc *ProductService) error {
			_, err := svc.CreateProduct(context.Background(), &models.CreateProductRequest{Name: name})
			return err
		},
		"replace": func(svc *ProductService) error {
			_, err := svc.ReplaceProduct(context.Background(), &models.ReplaceProductRequest{ID: "1", Name: name})
			return err
		},
		"patch": func(svc *ProductService) error {
			_, err := svc.PatchProduct(context.Background(), &models.PatchProductRequest{ID: "1", Name: &name})
			return err
		},
	}

	tests := []struct {
		name   string
		strict bool
		err    error
		want   map[string]string
	}{
		{"lenient 4xx", false, errNotFound, map[string]string{"create": "unavailable", "replace": "unavailable", "patch": "unavailable"}},
		{"lenient 5xx", false, errServer, map[string]string{"create": "unavailable", "replace": "unavailable", "patch": "unavailable"}},
		{"lenient timeout", false, errTimeout, map[string]string{"create": "timeout", "replace": "timeout", "patch": "timeout"}},
		{"strict 4xx", true, errNotFound, map[string]string{"create": "unavailable", "replace": "not_found", "patch": "not_found"}},
		{"strict 5xx", true, errServer, map[string]string{"create": "unavailable", "replace": "unavailable", "patch": "unavailable"}},
		{"decode failure", false, errDecode, map[string]string{"create": "internal", "replace": "internal", "patch": "internal"}},
	}

	for _, tt := range tests {
		for op, call := range ops {
			t.Run(tt.name+"/"+op, func(t *testing.T) {
				gw := &stubGateway{err: tt.err}
				svc := NewProductService(gw, Options{StrictNotFound: tt.strict})
				assert.Equal(t, tt.want[op], errorKind(call(svc)))
				assert.Equal(t, 1, gw.calls)
			})
		}
	}
}

func TestProductService_CreateProduct(t *testing.T) {
	svc := NewProductService(&stubGateway{}, Options{})

	product, err := svc.CreateProduct(context.Background(), &models.CreateProductRequest{
		Name: "Gadget",
		Data: map[string]any{"price": 9.99},
	})
	require.NoError(t, err)
	assert.Equal(t, "new", product.ID)
	assert.Equal(t, "Gadget", product.Name)
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3}

	assert.Equal(t, []int{2, 3}, paginate(items, 1, 5))
	assert.Equal(t, []int{}, paginate(items, 3, 1))
	assert.Equal(t, []int{}, paginate(items, -1, 1))
	assert.Equal(t, []int{}, paginate(items, 0, 0))
	assert.Equal(t, []int{}, paginate([]int(nil), 0, 10))
	assert.Equal(t, []int{3}, paginate(items, 2, int(^uint(0)>>1)))
}

func errorKind(err error) string {
	var (
		notFoundErr    *apperrors.NotFoundError
		unavailableErr *apperrors.ServiceUnavailableError
		timeoutErr     *apperrors.TimeoutError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &notFoundErr):
		return "not_found"
	case errors.As(err, &timeoutErr):
		return "timeout"
	case errors.As(err, &unavailableErr):
		return "unavailable"
	default:
		return "internal"
	}
}
