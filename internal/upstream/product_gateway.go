package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/yourorg/productproxy/internal/models"
)

const objectsPath = "objects"

// ProductGateway maps product operations onto the upstream /objects resource.
// Every method issues exactly one upstream call.
type ProductGateway struct {
	client *Client
}

func NewProductGateway(client *Client) *ProductGateway {
	return &ProductGateway{client: client}
}

// ListAll fetches the entire upstream collection. A null or empty body is an
// empty collection.
func (g *ProductGateway) ListAll(ctx context.Context) ([]*models.Product, error) {
	resp, err := g.client.Do(ctx, http.MethodGet, []string{objectsPath}, nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeProducts(resp.Body)
}

// GetByIDs fetches several products in one call, repeating the id query key
// per id. Ids unknown upstream are simply absent from the result.
func (g *ProductGateway) GetByIDs(ctx context.Context, params models.GetProductsParams) ([]*models.Product, error) {
	query := url.Values{"id": params.ProductIDs}
	resp, err := g.client.Do(ctx, http.MethodGet, []string{objectsPath}, query, nil)
	if err != nil {
		return nil, err
	}
	return decodeProducts(resp.Body)
}

func (g *ProductGateway) GetByID(ctx context.Context, params models.GetProductParams) (*models.Product, error) {
	resp, err := g.client.Do(ctx, http.MethodGet, []string{objectsPath, params.ProductID}, nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeProduct(resp.Body)
}

func (g *ProductGateway) Create(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error) {
	body := productPayload{Name: req.Name, Data: req.Data}
	resp, err := g.client.Do(ctx, http.MethodPost, []string{objectsPath}, nil, body)
	if err != nil {
		return nil, err
	}
	return decodeProduct(resp.Body)
}

func (g *ProductGateway) Replace(ctx context.Context, req *models.ReplaceProductRequest) (*models.Product, error) {
	body := productPayload{Name: req.Name, Data: req.Data}
	resp, err := g.client.Do(ctx, http.MethodPut, []string{objectsPath, req.ID}, nil, body)
	if err != nil {
		return nil, err
	}
	return decodeProduct(resp.Body)
}

// Patch sends only the fields that are set. A present Data replaces the
// stored data object as a whole, including an explicitly empty one.
func (g *ProductGateway) Patch(ctx context.Context, req *models.PatchProductRequest) (*models.Product, error) {
	body := map[string]any{}
	if req.Name != nil {
		body["name"] = *req.Name
	}
	if req.Data != nil {
		body["data"] = req.Data
	}

	resp, err := g.client.Do(ctx, http.MethodPatch, []string{objectsPath, req.ID}, nil, body)
	if err != nil {
		return nil, err
	}
	return decodeProduct(resp.Body)
}

// Delete succeeds only on a 2xx answer; the response body is ignored.
func (g *ProductGateway) Delete(ctx context.Context, params models.DeleteProductParams) error {
	_, err := g.client.Do(ctx, http.MethodDelete, []string{objectsPath, params.ProductID}, nil, nil)
	return err
}

type productPayload struct {
	Name string         `json:"name"`
	Data map[string]any `json:"data"`
}

var errEmptyBody = errors.New("empty response body")

func decodeProducts(body []byte) ([]*models.Product, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return []*models.Product{}, nil
	}

	var products []*models.Product
	if err := unmarshalJSON(trimmed, &products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	if products == nil {
		return []*models.Product{}, nil
	}

	out := products[:0]
	for _, p := range products {
		if p != nil {
			out = append(out, p)
		}
	}
	return out, nil
}

func decodeProduct(body []byte) (*models.Product, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("decode product: %w", errEmptyBody)
	}

	var product *models.Product
	if err := unmarshalJSON(trimmed, &product); err != nil {
		return nil, fmt.Errorf("decode product: %w", err)
	}
	if product == nil {
		return nil, fmt.Errorf("decode product: %w", errEmptyBody)
	}
	return product, nil
}

// unmarshalJSON keeps numbers inside data as json.Number so they are passed
// on exactly as the upstream store wrote them.
func unmarshalJSON(body []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&json.RawMessage{}); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON value")
	}
	return nil
}
