// Package postgrest implements catalog.Repository against a hosted
// PostgREST-style REST endpoint (as exposed by Supabase).
package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/vegasarees/storefront/internal/catalog"
	apperrors "github.com/vegasarees/storefront/pkg/errors"
	"github.com/vegasarees/storefront/pkg/httpclient"
)

const (
	serviceName  = "catalog"
	productsPath = "/rest/v1/products"
	resetPath    = "/rest/v1/rpc/reset_products_table"
)

// Client talks to the products table through PostgREST. Every request
// carries the anon key as both apikey and bearer token.
type Client struct {
	baseURL string
	apiKey  string
	http    httpclient.Doer
}

var _ catalog.Repository = (*Client)(nil)

// New creates a Client. doer is normally a circuit-breaking
// httpclient.CircuitBreakerClient around an httpclient.Client.
func New(baseURL, apiKey string, doer httpclient.Doer) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    doer,
	}
}

// payload is the writable column set. Empty optional text is sent as null.
type payload struct {
	Name        string   `json:"name"`
	Price       float64  `json:"price"`
	OldPrice    *float64 `json:"old_price"`
	Discount    float64  `json:"discount"`
	Size        *string  `json:"size"`
	Fabric      *string  `json:"fabric"`
	Colour      *string  `json:"colour"`
	Occasion    *string  `json:"occasion"`
	Tag         *string  `json:"tag"`
	Description *string  `json:"description"`
	Images      []string `json:"images"`
}

func newPayload(p *catalog.Product) payload {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	return payload{
		Name:        p.Name,
		Price:       p.Price,
		OldPrice:    p.OldPrice,
		Discount:    p.Discount,
		Size:        nullable(p.Size),
		Fabric:      nullable(p.Fabric),
		Colour:      nullable(p.Colour),
		Occasion:    nullable(p.Occasion),
		Tag:         nullable(p.Tag),
		Description: nullable(p.Description),
		Images:      images,
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// List returns every product, newest first.
func (c *Client) List(ctx context.Context) ([]catalog.Product, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "created_at.desc")

	var products []catalog.Product
	if err := c.do(ctx, http.MethodGet, productsPath, q, nil, &products); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return normalize(products), nil
}

// GetByID retrieves a product by its ID.
func (c *Client) GetByID(ctx context.Context, id int64) (*catalog.Product, error) {
	q := idQuery(id)
	q.Set("select", "*")

	var products []catalog.Product
	if err := c.do(ctx, http.MethodGet, productsPath, q, nil, &products); err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if len(products) == 0 {
		return nil, apperrors.NotFound("product", strconv.FormatInt(id, 10))
	}
	p := normalize(products)[0]
	return &p, nil
}

// Create inserts p and fills in its generated ID and creation time.
func (c *Client) Create(ctx context.Context, p *catalog.Product) error {
	var created []catalog.Product
	if err := c.do(ctx, http.MethodPost, productsPath, nil, []payload{newPayload(p)}, &created); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	if len(created) == 0 {
		return apperrors.Internal(fmt.Errorf("insert product: empty representation"))
	}
	p.ID = created[0].ID
	p.CreatedAt = created[0].CreatedAt
	return nil
}

// Update overwrites every editable column of the product with p.ID.
func (c *Client) Update(ctx context.Context, p *catalog.Product) error {
	var updated []catalog.Product
	if err := c.do(ctx, http.MethodPatch, productsPath, idQuery(p.ID), newPayload(p), &updated); err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if len(updated) == 0 {
		return apperrors.NotFound("product", strconv.FormatInt(p.ID, 10))
	}
	p.CreatedAt = updated[0].CreatedAt
	return nil
}

// Delete removes a product by its ID.
func (c *Client) Delete(ctx context.Context, id int64) error {
	var deleted []catalog.Product
	if err := c.do(ctx, http.MethodDelete, productsPath, idQuery(id), nil, &deleted); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if len(deleted) == 0 {
		return apperrors.NotFound("product", strconv.FormatInt(id, 10))
	}
	return nil
}

// Reset calls the reset_products_table function, which truncates the table
// and restarts its identity.
func (c *Client) Reset(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, resetPath, nil, struct{}{}, nil); err != nil {
		return fmt.Errorf("reset products: %w", err)
	}
	return nil
}

// Ping runs a one-row select and reports whether it succeeded.
func (c *Client) Ping(ctx context.Context) error {
	q := url.Values{}
	q.Set("select", "id")
	q.Set("limit", "1")
	var rows []json.RawMessage
	return c.do(ctx, http.MethodGet, productsPath, q, nil, &rows)
}

func idQuery(id int64) url.Values {
	q := url.Values{}
	q.Set("id", "eq."+strconv.FormatInt(id, 10))
	return q
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return apperrors.Unavailable("catalog backend unavailable", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return httpclient.ParseResponseError(resp, serviceName)
	}
	defer func() { _ = resp.Body.Close() }()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func normalize(products []catalog.Product) []catalog.Product {
	if products == nil {
		return []catalog.Product{}
	}
	for i := range products {
		if products[i].Images == nil {
			products[i].Images = []string{}
		}
	}
	return products
}
