package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vegasarees/storefront/internal/admin"
	apperrors "github.com/vegasarees/storefront/pkg/errors"
	"github.com/vegasarees/storefront/pkg/httputil"
	"github.com/vegasarees/storefront/pkg/validator"
)

// AdminHandler serves the admin login and the catalog editor.
type AdminHandler struct {
	gate     *admin.Gate
	products *admin.ProductService
	logger   *slog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(gate *admin.Gate, products *admin.ProductService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{gate: gate, products: products, logger: logger}
}

// LoginRequest is the body of POST /admin/login.
type LoginRequest struct {
	Password string `json:"password" validate:"required,max=256"`
}

// RequireAdmin rejects sessions that have not passed the gate.
func (h *AdminHandler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, err := h.gate.LoggedIn(r.Context(), sessionID(r.Context()))
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		if !ok {
			httputil.WriteError(w, r, apperrors.Unauthorized("admin login required"), h.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Login handles POST /api/v1/admin/login
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.gate.Login(r.Context(), sessionID(r.Context()), req.Password); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.writeStatus(w, r)
}

// Logout handles POST /api/v1/admin/logout
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.gate.Logout(r.Context(), sessionID(r.Context())); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.writeStatus(w, r)
}

// Status handles GET /api/v1/admin/status
func (h *AdminHandler) Status(w http.ResponseWriter, r *http.Request) {
	h.writeStatus(w, r)
}

func (h *AdminHandler) writeStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.gate.Status(r.Context(), sessionID(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, st)
}

// ListProducts handles GET /api/v1/admin/products?search=&tag=
func (h *AdminHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	listing, err := h.products.List(r.Context(), q.Get("search"), q.Get("tag"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, listing)
}

// GetProduct handles GET /api/v1/admin/products/{id}
func (h *AdminHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	p, err := h.products.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, p)
}

// CreateProduct handles POST /api/v1/admin/products
func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, 0, http.StatusCreated)
}

// UpdateProduct handles PUT /api/v1/admin/products/{id}
func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	h.save(w, r, id, http.StatusOK)
}

func (h *AdminHandler) save(w http.ResponseWriter, r *http.Request, id int64, status int) {
	var in admin.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httputil.WriteValidationError(w, fmt.Errorf("decode request body: %w", err))
		return
	}

	p, err := h.products.Save(r.Context(), in, id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, status, p)
}

// DeleteProduct handles DELETE /api/v1/admin/products/{id}
func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if err := h.products.Delete(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResetProducts handles POST /api/v1/admin/products/reset
func (h *AdminHandler) ResetProducts(w http.ResponseWriter, r *http.Request) {
	if err := h.products.Reset(r.Context()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
