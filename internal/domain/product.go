// Package domain holds the shopping-state model shared by the store, the
// catalog and the HTTP surface, together with its snapshot codecs.
package domain

import "sort"

// Product is the read-only product snapshot the store keeps in carts,
// wishlists and history. Prices are in rupees.
type Product struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Price    float64  `json:"price"`
	OldPrice *float64 `json:"oldPrice,omitempty"`
	Image    string   `json:"image"`
}

// CartLine pairs a product with a positive quantity.
type CartLine struct {
	Product Product `json:"product"`
	Qty     int     `json:"qty"`
}

// Cart maps product ID to its single line.
type Cart map[int64]CartLine

// Clone returns an independent copy of c. A nil cart clones to an empty one.
func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	for id, line := range c {
		out[id] = line
	}
	return out
}

// Lines returns the cart lines ordered by product ID.
func (c Cart) Lines() []CartLine {
	lines := make([]CartLine, 0, len(c))
	for _, l := range c {
		lines = append(lines, l)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].Product.ID < lines[j].Product.ID })
	return lines
}

// Count is the sum of quantities over all lines.
func (c Cart) Count() int {
	n := 0
	for _, l := range c {
		n += l.Qty
	}
	return n
}

// Subtotal is the sum of price times quantity over all lines.
func (c Cart) Subtotal() float64 {
	var sum float64
	for _, l := range c {
		sum += l.Product.Price * float64(l.Qty)
	}
	return sum
}

// Total is what the shopper owes for the cart. It currently equals Subtotal;
// shipping and discounts are quoted separately by Summarize.
func (c Cart) Total() float64 {
	return c.Subtotal()
}

// Wishlist maps product ID to the snapshot taken when it was added.
type Wishlist map[int64]Product

// Clone returns an independent copy of w.
func (w Wishlist) Clone() Wishlist {
	out := make(Wishlist, len(w))
	for id, p := range w {
		out[id] = p
	}
	return out
}

// Products returns the wishlisted products ordered by ID.
func (w Wishlist) Products() []Product {
	ps := make([]Product, 0, len(w))
	for _, p := range w {
		ps = append(ps, p)
	}
	sort.Slice(ps, func(i, j int) bool { return ps[i].ID < ps[j].ID })
	return ps
}
