package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vegasarees/storefront/internal/admin"
	"github.com/vegasarees/storefront/internal/catalog"
	"github.com/vegasarees/storefront/internal/catalog/catalogtest"
	"github.com/vegasarees/storefront/internal/domain"
	"github.com/vegasarees/storefront/internal/storage/memory"
	"github.com/vegasarees/storefront/internal/store"
	apperrors "github.com/vegasarees/storefront/pkg/errors"
	"github.com/vegasarees/storefront/pkg/health"
	"github.com/vegasarees/storefront/pkg/logger"
	"github.com/vegasarees/storefront/pkg/middleware"
)

const adminPassword = "VEGA_SUPER_ADMIN_2025"

var created = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	handler  http.Handler
	repo     *catalogtest.MockRepository
	registry *store.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, RouterConfig{ServiceName: "storefront-test"})
}

func newTestEnvWith(t *testing.T, cfg RouterConfig) *testEnv {
	t.Helper()

	kv := memory.New()
	registry := store.NewRegistry(kv, logger.Discard())
	t.Cleanup(registry.CloseAll)

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	require.NoError(t, err)
	gate, err := admin.NewGate(kv, string(hash), logger.Discard())
	require.NoError(t, err)

	repo := &catalogtest.MockRepository{}
	svc := admin.NewProductService(repo, nil, logger.Discard())

	h := NewRouter(cfg, registry, repo, gate, svc, health.NewHandler(), logger.Discard())
	return &testEnv{handler: h, repo: repo, registry: registry}
}

func silk() *catalog.Product {
	old := 15000.0
	return &catalog.Product{
		ID: 1, Name: "Banarasi Silk", Price: 12000, OldPrice: &old, Discount: 20,
		Colour: "Red", Images: []string{"/img/silk.jpg"}, CreatedAt: created,
	}
}

func cotton() *catalog.Product {
	return &catalog.Product{ID: 2, Name: "Cotton Daily", Price: 1500, Colour: "Blue", Images: []string{}, CreatedAt: created.Add(-time.Hour)}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

func (e *testEnv) do(t *testing.T, method, path, session string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if session != "" {
		req.Header.Set(middleware.SessionHeader, session)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func decodeState(t *testing.T, env envelope) domain.State {
	t.Helper()
	var st domain.State
	require.NoError(t, json.Unmarshal(env.Data, &st))
	return st
}

func TestSession_IssuesAndEchoesID(t *testing.T) {
	e := newTestEnv(t)

	rec, _ := e.do(t, http.MethodGet, "/api/v1/shop", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	issued := rec.Header().Get(middleware.SessionHeader)
	assert.NotEmpty(t, issued)

	rec, _ = e.do(t, http.MethodGet, "/api/v1/shop", "sess-abc", nil)
	assert.Equal(t, "sess-abc", rec.Header().Get(middleware.SessionHeader))

	rec, _ = e.do(t, http.MethodGet, "/api/v1/shop", "bad id with spaces", nil)
	assert.NotEqual(t, "bad id with spaces", rec.Header().Get(middleware.SessionHeader))
}

func TestShop_AddToCart(t *testing.T) {
	e := newTestEnv(t)
	e.repo.On("GetByID", mock.Anything, int64(1)).Return(silk(), nil)

	rec, env := e.do(t, http.MethodPost, "/api/v1/shop/cart/items", "s1", AddItemRequest{ProductID: 1})
	require.Equal(t, http.StatusOK, rec.Code)
	st := decodeState(t, env)
	assert.Equal(t, 1, st.Counts.Cart)
	assert.Equal(t, int64(1), st.AnimationToken)
	require.NotNil(t, st.LastAdded)
	assert.Equal(t, "/img/silk.jpg", st.LastAdded.Image)

	rec, env = e.do(t, http.MethodPost, "/api/v1/shop/cart/items", "s1", AddItemRequest{ProductID: 1, Quantity: 2})
	require.Equal(t, http.StatusOK, rec.Code)
	st = decodeState(t, env)
	assert.Equal(t, 3, st.Counts.Cart)
	assert.Equal(t, int64(2), st.AnimationToken)
	assert.Equal(t, 36000.0, st.CartSubtotal)
	assert.Equal(t, st.CartSubtotal, st.CartTotal)

	// Sessions are isolated.
	_, env = e.do(t, http.MethodGet, "/api/v1/shop", "s2", nil)
	assert.Zero(t, decodeState(t, env).Counts.Cart)
}

func TestShop_AddToCart_Errors(t *testing.T) {
	e := newTestEnv(t)
	e.repo.On("GetByID", mock.Anything, int64(404)).Return(nil, apperrors.NotFound("product", "404"))

	rec, env := e.do(t, http.MethodPost, "/api/v1/shop/cart/items", "s1", AddItemRequest{ProductID: 404})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	rec, env = e.do(t, http.MethodPost, "/api/v1/shop/cart/items", "s1", map[string]any{"quantity": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Fields, "product_id")

	rec, _ = e.do(t, http.MethodPost, "/api/v1/shop/cart/items", "s1", map[string]any{"product_id": 1, "quantity": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShop_QuantityAndRemoval(t *testing.T) {
	e := newTestEnv(t)
	e.repo.On("GetByID", mock.Anything, int64(1)).Return(silk(), nil)
	e.repo.On("GetByID", mock.Anything, int64(2)).Return(cotton(), nil)

	e.do(t, http.MethodPost, "/api/v1/shop/cart/items", "s1", AddItemRequest{ProductID: 1})
	e.do(t, http.MethodPost, "/api/v1/shop/cart/items", "s1", AddItemRequest{ProductID: 2})

	zero := 0
	rec, env := e.do(t, http.MethodPut, "/api/v1/shop/cart/items/1", "s1", UpdateQuantityRequest{Quantity: &zero})
	require.Equal(t, http.StatusOK, rec.Code)
	st := decodeState(t, env)
	assert.NotContains(t, st.Cart, int64(1))
	assert.Equal(t, 1, st.Counts.Cart)

	rec, _ = e.do(t, http.MethodPut, "/api/v1/shop/cart/items/2", "s1", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = e.do(t, http.MethodPut, "/api/v1/shop/cart/items/abc", "s1", UpdateQuantityRequest{Quantity: &zero})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, env = e.do(t, http.MethodDelete, "/api/v1/shop/cart/items/2", "s1", nil)
	assert.Empty(t, decodeState(t, env).Cart)
}

func TestShop_CartSummary(t *testing.T) {
	e := newTestEnv(t)
	e.repo.On("GetByID", mock.Anything, int64(2)).Return(cotton(), nil)

	e.do(t, http.MethodPost, "/api/v1/shop/cart/items", "s1", AddItemRequest{ProductID: 2, Quantity: 2})

	rec, env := e.do(t, http.MethodGet, "/api/v1/shop/cart/summary", "s1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sum domain.Summary
	require.NoError(t, json.Unmarshal(env.Data, &sum))
	assert.Equal(t, 3000.0, sum.Subtotal)
	assert.Equal(t, 500.0, sum.Shipping)
	assert.Equal(t, 3500.0, sum.Total)

	_, env = e.do(t, http.MethodDelete, "/api/v1/shop/cart", "s1", nil)
	assert.Empty(t, decodeState(t, env).Cart)
}

func TestShop_WishlistToggleAndMove(t *testing.T) {
	e := newTestEnv(t)
	e.repo.On("GetByID", mock.Anything, int64(1)).Return(silk(), nil).Once()

	_, env := e.do(t, http.MethodPost, "/api/v1/shop/wishlist/1/toggle", "s1", nil)
	assert.Equal(t, 1, decodeState(t, env).Counts.Wishlist)

	// Un-wishlisting uses the stored snapshot.
	_, env = e.do(t, http.MethodPost, "/api/v1/shop/wishlist/1/toggle", "s1", nil)
	assert.Zero(t, decodeState(t, env).Counts.Wishlist)
	e.repo.AssertExpectations(t)

	e.repo.On("GetByID", mock.Anything, int64(1)).Return(silk(), nil).Once()
	e.do(t, http.MethodPost, "/api/v1/shop/wishlist/1/toggle", "s1", nil)

	rec, env := e.do(t, http.MethodPost, "/api/v1/shop/wishlist/move-to-cart", "s1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st := decodeState(t, env)
	assert.Empty(t, st.Wishlist)
	assert.Equal(t, 1, st.Counts.Cart)
	assert.Zero(t, st.AnimationToken)

	e.repo.On("GetByID", mock.Anything, int64(1)).Return(silk(), nil).Once()
	e.do(t, http.MethodPost, "/api/v1/shop/wishlist/1/toggle", "s2", nil)
	_, env = e.do(t, http.MethodDelete, "/api/v1/shop/wishlist", "s2", nil)
	assert.Empty(t, decodeState(t, env).Wishlist)
}

func TestShop_History(t *testing.T) {
	e := newTestEnv(t)
	e.repo.On("GetByID", mock.Anything, int64(2)).Return(cotton(), nil)

	_, env := e.do(t, http.MethodPost, "/api/v1/shop/recently-viewed", "s1", ProductRefRequest{ProductID: 2})
	st := decodeState(t, env)
	require.Len(t, st.RecentlyViewed, 1)
	assert.Equal(t, int64(2), st.RecentlyViewed[0].ID)

	e.do(t, http.MethodPost, "/api/v1/shop/searches", "s1", SearchRequest{Query: "Silk"})
	_, env = e.do(t, http.MethodPost, "/api/v1/shop/searches", "s1", SearchRequest{Query: " silk "})
	assert.Equal(t, []string{"silk"}, decodeState(t, env).RecentSearches)

	rec, _ := e.do(t, http.MethodPost, "/api/v1/shop/searches", "s1", SearchRequest{Query: "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProducts_ListUsesSessionFilters(t *testing.T) {
	e := newTestEnv(t)
	e.repo.On("List", mock.Anything).Return([]catalog.Product{*silk(), *cotton()}, nil)

	_, env := e.do(t, http.MethodGet, "/api/v1/products", "s1", nil)
	var list ProductListResponse
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, 2, list.Total)
	assert.Equal(t, int64(1), list.Items[0].ID)

	sortBy := "priceLow"
	colour := "Blue"
	rec, _ := e.do(t, http.MethodPatch, "/api/v1/shop/filters", "s1", FiltersRequest{SortBy: &sortBy})
	require.Equal(t, http.StatusOK, rec.Code)

	_, env = e.do(t, http.MethodGet, "/api/v1/products", "s1", nil)
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, int64(2), list.Items[0].ID)
	assert.Equal(t, domain.SortPriceLow, list.Filters.SortBy)

	e.do(t, http.MethodPatch, "/api/v1/shop/filters", "s1", FiltersRequest{Colour: &colour})
	_, env = e.do(t, http.MethodGet, "/api/v1/products", "s1", nil)
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, 1, list.Total)

	_, env = e.do(t, http.MethodDelete, "/api/v1/shop/filters", "s1", nil)
	assert.Equal(t, domain.DefaultFilters(), decodeState(t, env).Filters)
}

func TestProducts_ListPaged(t *testing.T) {
	e := newTestEnv(t)
	all := make([]catalog.Product, 26)
	for i := range all {
		all[i] = catalog.Product{ID: int64(i + 1), Name: fmt.Sprintf("Saree %d", i+1), Price: 1000, Images: []string{}, CreatedAt: created.Add(-time.Duration(i) * time.Hour)}
	}
	e.repo.On("List", mock.Anything).Return(all, nil)

	page := func(query string) ProductListResponse {
		t.Helper()
		rec, env := e.do(t, http.MethodGet, "/api/v1/products"+query, "s1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var list ProductListResponse
		require.NoError(t, json.Unmarshal(env.Data, &list))
		return list
	}

	first := page("")
	assert.Len(t, first.Items, 12)
	assert.Equal(t, 26, first.Total)
	assert.Equal(t, 1, first.Page)
	assert.Equal(t, 12, first.PerPage)
	assert.Equal(t, 3, first.TotalPages)
	assert.True(t, first.HasNext)
	assert.False(t, first.HasPrev)
	assert.Equal(t, int64(1), first.Items[0].ID)

	last := page("?page=3")
	require.Len(t, last.Items, 2)
	assert.Equal(t, int64(25), last.Items[0].ID)
	assert.False(t, last.HasNext)
	assert.True(t, last.HasPrev)

	past := page("?page=4")
	assert.Empty(t, past.Items)
	assert.Equal(t, 3, past.TotalPages)

	wide := page("?per_page=30&page=0")
	assert.Len(t, wide.Items, 26)
	assert.Equal(t, 1, wide.TotalPages)
	assert.Equal(t, 1, wide.Page)
}

func TestShop_UpdateFilters_Invalid(t *testing.T) {
	e := newTestEnv(t)

	bad := "cheapest"
	rec, env := e.do(t, http.MethodPatch, "/api/v1/shop/filters", "s1", FiltersRequest{SortBy: &bad})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", env.Error.Code)

	inverted := [2]float64{5000, 100}
	rec, _ = e.do(t, http.MethodPatch, "/api/v1/shop/filters", "s1", FiltersRequest{PriceRange: &inverted})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	discount := 150.0
	rec, env = e.do(t, http.MethodPatch, "/api/v1/shop/filters", "s1", FiltersRequest{Discount: &discount})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestProducts_Get(t *testing.T) {
	e := newTestEnv(t)
	e.repo.On("GetByID", mock.Anything, int64(1)).Return(silk(), nil)

	rec, env := e.do(t, http.MethodGet, "/api/v1/products/1", "s1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var p catalog.Product
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, "Banarasi Silk", p.Name)

	rec, _ = e.do(t, http.MethodGet, "/api/v1/products/0", "s1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdmin_RequiresLogin(t *testing.T) {
	e := newTestEnv(t)

	rec, env := e.do(t, http.MethodGet, "/api/v1/admin/products", "s1", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	rec, env = e.do(t, http.MethodPost, "/api/v1/admin/login", "s1", LoginRequest{Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, env.Error.Message, "4 attempts left")
}

func TestAdmin_ProductLifecycle(t *testing.T) {
	e := newTestEnv(t)

	rec, env := e.do(t, http.MethodPost, "/api/v1/admin/login", "admin-1", LoginRequest{Password: adminPassword})
	require.Equal(t, http.StatusOK, rec.Code)
	var st admin.Status
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.True(t, st.LoggedIn)

	e.repo.On("Create", mock.Anything, mock.AnythingOfType("*catalog.Product")).
		Run(func(args mock.Arguments) { args.Get(1).(*catalog.Product).ID = 9 }).
		Return(nil).Once()

	rec, env = e.do(t, http.MethodPost, "/api/v1/admin/products", "admin-1", admin.ProductInput{
		Name: "Organza", Price: "3200", Images: "/a.jpg, /b.jpg",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var p catalog.Product
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, int64(9), p.ID)
	assert.Equal(t, []string{"/a.jpg", "/b.jpg"}, p.Images)

	rec, env = e.do(t, http.MethodPost, "/api/v1/admin/products", "admin-1", admin.ProductInput{Name: "x", Price: "abc"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Price must be numeric", env.Error.Message)

	e.repo.On("Update", mock.Anything, mock.MatchedBy(func(p *catalog.Product) bool { return p.ID == 9 })).Return(nil).Once()
	rec, _ = e.do(t, http.MethodPut, "/api/v1/admin/products/9", "admin-1", admin.ProductInput{Name: "Organza", Price: "3000"})
	assert.Equal(t, http.StatusOK, rec.Code)

	e.repo.On("List", mock.Anything).Return([]catalog.Product{{ID: 9, Name: "Organza", Tag: "Festive"}}, nil).Once()
	rec, env = e.do(t, http.MethodGet, "/api/v1/admin/products?search=org", "admin-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing admin.Listing
	require.NoError(t, json.Unmarshal(env.Data, &listing))
	assert.Len(t, listing.Products, 1)
	assert.Equal(t, []string{"Festive"}, listing.Tags)

	e.repo.On("Delete", mock.Anything, int64(9)).Return(nil).Once()
	rec, _ = e.do(t, http.MethodDelete, "/api/v1/admin/products/9", "admin-1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	e.repo.On("Reset", mock.Anything).Return(nil).Once()
	rec, _ = e.do(t, http.MethodPost, "/api/v1/admin/products/reset", "admin-1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = e.do(t, http.MethodPost, "/api/v1/admin/logout", "admin-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = e.do(t, http.MethodGet, "/api/v1/admin/products", "admin-1", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	e.repo.AssertExpectations(t)
}

func TestContentTypeJSON(t *testing.T) {
	e := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/shop/searches", bytes.NewBufferString("query=silk"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestClosedRegistryIsUnavailable(t *testing.T) {
	e := newTestEnv(t)
	e.registry.CloseAll()

	rec, env := e.do(t, http.MethodGet, "/api/v1/shop", "s1", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "SERVICE_UNAVAILABLE", env.Error.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	e := newTestEnv(t)

	rec, _ := e.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	mrec := httptest.NewRecorder()
	e.handler.ServeHTTP(mrec, req)
	assert.Equal(t, http.StatusOK, mrec.Code)
	assert.Contains(t, mrec.Body.String(), "storefront_sessions_open")
}

func TestMustFromContextPanicsWithoutSession(t *testing.T) {
	h := NewShopHandler(&catalogtest.MockRepository{}, logger.Discard())
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(context.Background())
	assert.Panics(t, func() { h.GetState(httptest.NewRecorder(), req) })
}

func TestRateLimitOnAPI(t *testing.T) {
	kv := memory.New()
	registry := store.NewRegistry(kv, logger.Discard())
	t.Cleanup(registry.CloseAll)

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	require.NoError(t, err)
	gate, err := admin.NewGate(kv, string(hash), logger.Discard())
	require.NoError(t, err)
	repo := &catalogtest.MockRepository{}

	h := NewRouter(RouterConfig{ServiceName: "storefront-test", RateLimitRPS: 0.001, RateLimitBurst: 1},
		registry, repo, gate, admin.NewProductService(repo, nil, logger.Discard()), health.NewHandler(), logger.Discard())

	codes := make([]int, 0, 3)
	for _, path := range []string{"/api/v1/shop", "/api/v1/shop", "/health/live"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests, http.StatusOK}, codes)
}

func TestAdminLogin_LimitedPerClientAcrossSessions(t *testing.T) {
	e := newTestEnvWith(t, RouterConfig{ServiceName: "storefront-test", LoginRateLimitRPS: 0.001, LoginRateLimitBurst: 2})

	// No session header: every request starts a fresh session, so the
	// per-session lockout never sees more than one attempt.
	var codes []int
	for range 3 {
		rec, env := e.do(t, http.MethodPost, "/api/v1/admin/login", "", LoginRequest{Password: "wrong"})
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusUnauthorized {
			assert.Contains(t, env.Error.Message, "4 attempts left")
		}
	}
	assert.Equal(t, []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests}, codes)

	// Other routes keep their own budget.
	rec, _ := e.do(t, http.MethodGet, "/api/v1/shop", "s1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
