package domain

// ShippingFee is the flat delivery charge quoted on the cart page.
const ShippingFee = 500

// Summary is the cart page quote.
type Summary struct {
	Lines    []CartLine `json:"lines"`
	Count    int        `json:"count"`
	Subtotal float64    `json:"subtotal"`
	Shipping float64    `json:"shipping"`
	Total    float64    `json:"total"`
}

// Summarize quotes cart: shipping applies only when the cart has lines.
func Summarize(cart Cart) Summary {
	s := Summary{
		Lines:    cart.Lines(),
		Count:    cart.Count(),
		Subtotal: cart.Subtotal(),
	}
	if len(cart) > 0 {
		s.Shipping = ShippingFee
	}
	s.Total = s.Subtotal + s.Shipping
	return s
}
