package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vegasarees/storefront/internal/catalog"
	"github.com/vegasarees/storefront/internal/domain"
	"github.com/vegasarees/storefront/internal/store"
	"github.com/vegasarees/storefront/pkg/httputil"
	"github.com/vegasarees/storefront/pkg/pagination"
)

// ProductHandler serves the public catalog.
type ProductHandler struct {
	catalog catalog.Reader
	logger  *slog.Logger
}

// NewProductHandler creates a ProductHandler.
func NewProductHandler(reader catalog.Reader, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{catalog: reader, logger: logger}
}

// ProductListResponse is one page of the filtered listing together with the
// filters that produced it.
type ProductListResponse struct {
	pagination.Result[catalog.Product]
	Filters domain.ProductFilters `json:"filters"`
}

// ListProducts handles GET /api/v1/products?page=&per_page=. The session's
// product filters select and order the catalog, which is then paged.
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	all, err := h.catalog.List(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	filters := store.MustFromContext(r.Context()).ProductFilters()
	products := catalog.Apply(all, filters)

	httputil.WriteData(w, http.StatusOK, ProductListResponse{
		Result:  pagination.Paginate(products, pagination.FromRequest(r)),
		Filters: filters,
	})
}

// GetProduct handles GET /api/v1/products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	p, err := h.catalog.GetByID(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, p)
}
