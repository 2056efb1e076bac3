// Package catalog defines the product catalog record, its local filter and
// sort, and the repository contracts implemented by the postgres and
// postgrest backends.
package catalog

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/vegasarees/storefront/internal/domain"
)

// Product is a catalog row. Optional text columns are empty when unset and
// Discount is 0 when unset.
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	OldPrice    *float64  `json:"old_price"`
	Discount    float64   `json:"discount"`
	Size        string    `json:"size,omitempty"`
	Fabric      string    `json:"fabric,omitempty"`
	Colour      string    `json:"colour,omitempty"`
	Occasion    string    `json:"occasion,omitempty"`
	Tag         string    `json:"tag,omitempty"`
	Description string    `json:"description,omitempty"`
	Images      []string  `json:"images"`
	CreatedAt   time.Time `json:"created_at"`
}

// ToShopProduct projects p onto the snapshot kept in carts and wishlists. A
// zero old price is treated as absent.
func (p Product) ToShopProduct() domain.Product {
	sp := domain.Product{
		ID:    p.ID,
		Name:  p.Name,
		Price: p.Price,
	}
	if p.OldPrice != nil && *p.OldPrice != 0 {
		old := *p.OldPrice
		sp.OldPrice = &old
	}
	if len(p.Images) > 0 {
		sp.Image = p.Images[0]
	}
	return sp
}

// Reader is the read side of the catalog.
type Reader interface {
	// List returns every product, newest first.
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
}

// Repository is the full catalog used by the admin panel.
type Repository interface {
	Reader
	// Create inserts p and fills in its ID and CreatedAt.
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id int64) error
	// Reset deletes every product and restarts the ID sequence.
	Reset(ctx context.Context) error
}

// Matches reports whether p passes f: price inside the inclusive range,
// discount at least the threshold, and every set selector equal.
func Matches(p Product, f domain.ProductFilters) bool {
	if p.Price < f.PriceRange[0] || p.Price > f.PriceRange[1] {
		return false
	}
	if p.Discount < f.Discount {
		return false
	}
	return selector(f.Size, p.Size) &&
		selector(f.Fabric, p.Fabric) &&
		selector(f.Colour, p.Colour) &&
		selector(f.Occasion, p.Occasion)
}

func selector(want, got string) bool {
	return want == "" || want == got
}

// Apply filters products with f and orders the result by f.SortBy. SortNew
// keeps the source order; the price orders are stable. products is not
// modified.
func Apply(products []Product, f domain.ProductFilters) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if Matches(p, f) {
			out = append(out, p)
		}
	}

	switch f.SortBy {
	case domain.SortPriceLow:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	case domain.SortPriceHigh:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price > out[j].Price })
	}
	return out
}

// Search keeps products whose name or tag contains search (case-insensitive)
// and whose tag equals tag. An empty tag or "all" matches every tag.
func Search(products []Product, search, tag string) []Product {
	search = strings.ToLower(strings.TrimSpace(search))
	tag = strings.ToLower(strings.TrimSpace(tag))

	out := make([]Product, 0, len(products))
	for _, p := range products {
		ptag := strings.ToLower(p.Tag)
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) && !strings.Contains(ptag, search) {
			continue
		}
		if tag != "" && tag != "all" && ptag != tag {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Tags returns the distinct trimmed non-empty tags of products in first-seen
// order.
func Tags(products []Product) []string {
	seen := make(map[string]struct{})
	tags := make([]string, 0)
	for _, p := range products {
		t := strings.TrimSpace(p.Tag)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}
	return tags
}
