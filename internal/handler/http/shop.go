package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vegasarees/storefront/internal/catalog"
	"github.com/vegasarees/storefront/internal/domain"
	"github.com/vegasarees/storefront/internal/store"
	apperrors "github.com/vegasarees/storefront/pkg/errors"
	"github.com/vegasarees/storefront/pkg/httputil"
	"github.com/vegasarees/storefront/pkg/validator"
)

// ShopHandler exposes the session's shopping state. Every mutation responds
// with the resulting state.
type ShopHandler struct {
	catalog catalog.Reader
	logger  *slog.Logger
}

// NewShopHandler creates a ShopHandler. Products named by ID in requests are
// looked up in reader.
func NewShopHandler(reader catalog.Reader, logger *slog.Logger) *ShopHandler {
	return &ShopHandler{catalog: reader, logger: logger}
}

// --- Request DTOs ---

// AddItemRequest is the body of POST /shop/cart/items. Quantity defaults to 1.
type AddItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"omitempty,gte=1,lte=99"`
}

// UpdateQuantityRequest is the body of PUT /shop/cart/items/{productId}. A
// zero quantity removes the line.
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,gte=0,lte=99"`
}

// ProductRefRequest names a catalog product.
type ProductRefRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
}

// SearchRequest is the body of POST /shop/searches.
type SearchRequest struct {
	Query string `json:"query" validate:"required,max=200"`
}

// FiltersRequest is the body of PATCH /shop/filters. Absent fields are left
// unchanged; an empty selector clears it.
type FiltersRequest struct {
	PriceRange *[2]float64 `json:"priceRange"`
	Discount   *float64    `json:"discount" validate:"omitempty,gte=0,lte=100"`
	Size       *string     `json:"size" validate:"omitempty,max=64"`
	Fabric     *string     `json:"fabric" validate:"omitempty,max=64"`
	Colour     *string     `json:"colour" validate:"omitempty,max=64"`
	Occasion   *string     `json:"occasion" validate:"omitempty,max=64"`
	SortBy     *string     `json:"sortBy"`
}

func (req FiltersRequest) patch() (domain.FiltersPatch, error) {
	p := domain.FiltersPatch{
		PriceRange: req.PriceRange,
		Discount:   req.Discount,
		Size:       req.Size,
		Fabric:     req.Fabric,
		Colour:     req.Colour,
		Occasion:   req.Occasion,
	}
	if pr := req.PriceRange; pr != nil && (pr[0] < 0 || pr[0] > pr[1]) {
		return p, apperrors.InvalidInput("priceRange must be [min, max] with 0 <= min <= max")
	}
	if req.SortBy != nil {
		order := domain.SortOrder(*req.SortBy)
		if !order.Valid() {
			return p, apperrors.InvalidInput("sortBy must be one of: new, priceLow, priceHigh")
		}
		p.SortBy = &order
	}
	return p, nil
}

// --- Handlers ---

// GetState handles GET /api/v1/shop
func (h *ShopHandler) GetState(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, store.MustFromContext(r.Context()).State())
}

// GetCartSummary handles GET /api/v1/shop/cart/summary
func (h *ShopHandler) GetCartSummary(w http.ResponseWriter, r *http.Request) {
	s := store.MustFromContext(r.Context())
	httputil.WriteData(w, http.StatusOK, domain.Summarize(s.Cart()))
}

// AddToCart handles POST /api/v1/shop/cart/items
func (h *ShopHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	p, err := h.catalog.GetByID(r.Context(), req.ProductID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	s := store.MustFromContext(r.Context())
	if err := s.AddToCart(r.Context(), p.ToShopProduct(), req.Quantity); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, s.State())
}

// UpdateQuantity handles PUT /api/v1/shop/cart/items/{productId}
func (h *ShopHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	var req UpdateQuantityRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	h.mutate(w, r, func(s *store.Store) error { return s.ChangeQty(r.Context(), id, *req.Quantity) })
}

// RemoveFromCart handles DELETE /api/v1/shop/cart/items/{productId}
func (h *ShopHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "productId"))
	if !ok {
		return
	}
	h.mutate(w, r, func(s *store.Store) error { return s.RemoveFromCart(r.Context(), id) })
}

// ClearCart handles DELETE /api/v1/shop/cart
func (h *ShopHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(s *store.Store) error { return s.ClearCart(r.Context()) })
}

// ToggleWishlist handles POST /api/v1/shop/wishlist/{productId}/toggle.
// Removing uses the stored snapshot, so products deleted from the catalog
// can still be unwishlisted.
func (h *ShopHandler) ToggleWishlist(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	s := store.MustFromContext(r.Context())
	snapshot, wished := s.Wishlist()[id]
	if !wished {
		p, err := h.catalog.GetByID(r.Context(), id)
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		snapshot = p.ToShopProduct()
	}

	h.mutate(w, r, func(s *store.Store) error { return s.ToggleWishlist(r.Context(), snapshot) })
}

// ClearWishlist handles DELETE /api/v1/shop/wishlist
func (h *ShopHandler) ClearWishlist(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(s *store.Store) error { return s.ClearWishlist(r.Context()) })
}

// MoveWishlistToCart handles POST /api/v1/shop/wishlist/move-to-cart
func (h *ShopHandler) MoveWishlistToCart(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(s *store.Store) error { return s.MoveWishlistToCart(r.Context()) })
}

// RecordView handles POST /api/v1/shop/recently-viewed
func (h *ShopHandler) RecordView(w http.ResponseWriter, r *http.Request) {
	var req ProductRefRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	p, err := h.catalog.GetByID(r.Context(), req.ProductID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.mutate(w, r, func(s *store.Store) error { return s.AddRecentlyViewed(r.Context(), p.ToShopProduct()) })
}

// RecordSearch handles POST /api/v1/shop/searches. Blank queries are ignored.
func (h *ShopHandler) RecordSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("query must not be blank"), h.logger)
		return
	}

	h.mutate(w, r, func(s *store.Store) error { return s.AddSearchQuery(r.Context(), req.Query) })
}

// UpdateFilters handles PATCH /api/v1/shop/filters
func (h *ShopHandler) UpdateFilters(w http.ResponseWriter, r *http.Request) {
	var req FiltersRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	patch, err := req.patch()
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.mutate(w, r, func(s *store.Store) error { return s.UpdateProductFilters(r.Context(), patch) })
}

// ResetFilters handles DELETE /api/v1/shop/filters
func (h *ShopHandler) ResetFilters(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(s *store.Store) error { return s.ResetProductFilters(r.Context()) })
}

func (h *ShopHandler) mutate(w http.ResponseWriter, r *http.Request, fn func(*store.Store) error) {
	s := store.MustFromContext(r.Context())
	if err := fn(s); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, s.State())
}
