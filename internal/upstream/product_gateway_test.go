package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/productproxy/internal/models"
	"github.com/yourorg/productproxy/internal/upstream/upstreamtest"
)

func newTestGateway(t *testing.T) (*ProductGateway, *upstreamtest.Server) {
	t.Helper()
	srv := upstreamtest.NewServer()
	t.Cleanup(srv.Close)
	return NewProductGateway(newTestClient(t, srv.URL, nil)), srv
}

func TestProductGateway_ListAll(t *testing.T) {
	gw, srv := newTestGateway(t)
	srv.Seed("Google Pixel 6 Pro", "Apple iPhone 12 Mini")

	products, err := gw.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Google Pixel 6 Pro", products[0].Name)
	assert.Equal(t, "Apple iPhone 12 Mini", products[1].Name)

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodGet, reqs[0].Method)
	assert.Equal(t, "/objects", reqs[0].Path)
	assert.Empty(t, reqs[0].RawQuery)
}

func TestProductGateway_ListAll_EmptyCollections(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"null", "null"},
		{"empty array", "[]"},
		{"empty body", ""},
		{"whitespace", "  \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw, srv := newTestGateway(t)
			srv.SetCollectionBody(tt.body)

			products, err := gw.ListAll(context.Background())
			require.NoError(t, err)
			assert.NotNil(t, products)
			assert.Empty(t, products)
		})
	}
}

func TestProductGateway_ListAll_KeepsNumbersAndDropsNulls(t *testing.T) {
	gw, srv := newTestGateway(t)
	srv.SetCollectionBody(`[{"id":"1","name":"Gadget","data":{"price":9.99,"stock":12345678901234567890}},null]`)

	products, err := gw.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, json.Number("9.99"), products[0].Data["price"])
	assert.Equal(t, json.Number("12345678901234567890"), products[0].Data["stock"])
}

func TestProductGateway_ListAll_UndecodableBody(t *testing.T) {
	for _, body := range []string{`{"not":"a list"}`, `[] junk`, `[]]`, `[][]`} {
		t.Run(body, func(t *testing.T) {
			gw, srv := newTestGateway(t)
			srv.SetCollectionBody(body)

			_, err := gw.ListAll(context.Background())
			require.Error(t, err)

			var statusErr *StatusError
			var transportErr *TransportError
			assert.NotErrorAs(t, err, &statusErr)
			assert.NotErrorAs(t, err, &transportErr)
		})
	}
}

func TestProductGateway_GetByIDs(t *testing.T) {
	gw, srv := newTestGateway(t)
	ids := srv.Seed("first", "second", "third")

	products, err := gw.GetByIDs(context.Background(), models.GetProductsParams{
		ProductIDs: []string{ids[0], "missing", ids[2]},
	})
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, ids[0], products[0].ID)
	assert.Equal(t, ids[2], products[1].ID)

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/objects", reqs[0].Path)
	assert.Equal(t, "id="+ids[0]+"&id=missing&id="+ids[2], reqs[0].RawQuery)
}

func TestProductGateway_GetByID(t *testing.T) {
	gw, srv := newTestGateway(t)
	ids := srv.Seed("Apple Watch")

	product, err := gw.GetByID(context.Background(), models.GetProductParams{ProductID: ids[0]})
	require.NoError(t, err)
	assert.Equal(t, ids[0], product.ID)
	assert.Equal(t, "Apple Watch", product.Name)
	assert.NotNil(t, product.CreatedAt)
}

func TestProductGateway_GetByID_NotFound(t *testing.T) {
	gw, _ := newTestGateway(t)

	_, err := gw.GetByID(context.Background(), models.GetProductParams{ProductID: "missing"})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestProductGateway_Create(t *testing.T) {
	gw, srv := newTestGateway(t)

	product, err := gw.Create(context.Background(), &models.CreateProductRequest{
		Name: "Gadget",
		Data: map[string]any{"price": json.Number("9.99")},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, product.ID)
	assert.Equal(t, "Gadget", product.Name)
	assert.Equal(t, json.Number("9.99"), product.Data["price"])

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.JSONEq(t, `{"name":"Gadget","data":{"price":9.99}}`, reqs[0].Body)
}

func TestProductGateway_Create_NullData(t *testing.T) {
	gw, srv := newTestGateway(t)

	_, err := gw.Create(context.Background(), &models.CreateProductRequest{Name: "Gadget"})
	require.NoError(t, err)

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.JSONEq(t, `{"name":"Gadget","data":null}`, reqs[0].Body)
}

func TestProductGateway_Replace(t *testing.T) {
	gw, srv := newTestGateway(t)
	ids := srv.Seed("Old name")

	product, err := gw.Replace(context.Background(), &models.ReplaceProductRequest{
		ID:   ids[0],
		Name: "New name",
		Data: map[string]any{"color": "red"},
	})
	require.NoError(t, err)
	assert.Equal(t, "New name", product.Name)
	assert.Equal(t, map[string]any{"color": "red"}, product.Data)
	assert.NotNil(t, product.UpdatedAt)

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPut, reqs[0].Method)
	assert.Equal(t, "/objects/"+ids[0], reqs[0].Path)
}

func TestProductGateway_Patch(t *testing.T) {
	t.Run("name only", func(t *testing.T) {
		gw, srv := newTestGateway(t)
		srv.Put(upstreamtest.Object{ID: "7", Name: "Old name", Data: map[string]any{"color": "blue"}})

		name := "New name"
		product, err := gw.Patch(context.Background(), &models.PatchProductRequest{ID: "7", Name: &name})
		require.NoError(t, err)
		assert.Equal(t, "New name", product.Name)
		assert.Equal(t, map[string]any{"color": "blue"}, product.Data)

		reqs := srv.Requests()
		require.Len(t, reqs, 1)
		assert.Equal(t, http.MethodPatch, reqs[0].Method)
		assert.JSONEq(t, `{"name":"New name"}`, reqs[0].Body)
	})

	t.Run("data replaces whole object", func(t *testing.T) {
		gw, srv := newTestGateway(t)
		srv.Put(upstreamtest.Object{ID: "7", Name: "Phone", Data: map[string]any{"color": "blue", "size": "L"}})

		product, err := gw.Patch(context.Background(), &models.PatchProductRequest{
			ID:   "7",
			Data: map[string]any{"color": "red"},
		})
		require.NoError(t, err)
		assert.Equal(t, "Phone", product.Name)
		assert.Equal(t, map[string]any{"color": "red"}, product.Data)

		reqs := srv.Requests()
		require.Len(t, reqs, 1)
		assert.JSONEq(t, `{"data":{"color":"red"}}`, reqs[0].Body)
	})
}

func TestProductGateway_Delete(t *testing.T) {
	gw, srv := newTestGateway(t)
	ids := srv.Seed("Doomed")

	require.NoError(t, gw.Delete(context.Background(), models.DeleteProductParams{ProductID: ids[0]}))

	err := gw.Delete(context.Background(), models.DeleteProductParams{ProductID: ids[0]})
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, 2, srv.RequestCount())
}

func TestDecodeProduct_EmptyBody(t *testing.T) {
	for _, body := range []string{"", "null", " "} {
		_, err := decodeProduct([]byte(body))
		assert.ErrorIs(t, err, errEmptyBody, "body %q", body)
	}
}

func TestDecodeProduct_TrailingData(t *testing.T) {
	_, err := decodeProduct([]byte(`{"id":"1","name":"a"} {"id":"2"}`))
	assert.Error(t, err)
}
