package domain

// SortOrder selects how the catalog listing is ordered.
type SortOrder string

const (
	SortNew       SortOrder = "new"
	SortPriceLow  SortOrder = "priceLow"
	SortPriceHigh SortOrder = "priceHigh"
)

// Valid reports whether s is one of the known orders.
func (s SortOrder) Valid() bool {
	switch s {
	case SortNew, SortPriceLow, SortPriceHigh:
		return true
	}
	return false
}

// Default filter bounds.
const (
	DefaultMinPrice = 0
	DefaultMaxPrice = 60000
)

// ProductFilters is the shopper's active catalog filter. Empty selectors are
// unset.
type ProductFilters struct {
	PriceRange [2]float64 `json:"priceRange"`
	Discount   float64    `json:"discount"`
	Size       string     `json:"size"`
	Fabric     string     `json:"fabric"`
	Colour     string     `json:"colour"`
	Occasion   string     `json:"occasion"`
	SortBy     SortOrder  `json:"sortBy"`
}

// DefaultFilters returns the reset value: full price range, no discount
// threshold, no selectors, newest first.
func DefaultFilters() ProductFilters {
	return ProductFilters{
		PriceRange: [2]float64{DefaultMinPrice, DefaultMaxPrice},
		SortBy:     SortNew,
	}
}

// FiltersPatch is a partial update; nil fields are left untouched.
type FiltersPatch struct {
	PriceRange *[2]float64 `json:"priceRange,omitempty"`
	Discount   *float64    `json:"discount,omitempty"`
	Size       *string     `json:"size,omitempty"`
	Fabric     *string     `json:"fabric,omitempty"`
	Colour     *string     `json:"colour,omitempty"`
	Occasion   *string     `json:"occasion,omitempty"`
	SortBy     *SortOrder  `json:"sortBy,omitempty"`
}

// Empty reports whether the patch sets no field.
func (p FiltersPatch) Empty() bool {
	return p.PriceRange == nil && p.Discount == nil && p.Size == nil && p.Fabric == nil &&
		p.Colour == nil && p.Occasion == nil && p.SortBy == nil
}

// Merge returns f with every set field of p applied. No validation is done.
func (f ProductFilters) Merge(p FiltersPatch) ProductFilters {
	if p.PriceRange != nil {
		f.PriceRange = *p.PriceRange
	}
	if p.Discount != nil {
		f.Discount = *p.Discount
	}
	if p.Size != nil {
		f.Size = *p.Size
	}
	if p.Fabric != nil {
		f.Fabric = *p.Fabric
	}
	if p.Colour != nil {
		f.Colour = *p.Colour
	}
	if p.Occasion != nil {
		f.Occasion = *p.Occasion
	}
	if p.SortBy != nil {
		f.SortBy = *p.SortBy
	}
	return f
}
