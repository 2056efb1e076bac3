package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vegasarees/storefront/internal/config"
	"github.com/vegasarees/storefront/internal/storage/leveldb"
	"github.com/vegasarees/storefront/internal/store"
	"github.com/vegasarees/storefront/pkg/logger"
	"github.com/vegasarees/storefront/pkg/middleware"
)

const productJSON = `{"id":1,"name":"Banarasi Silk","price":12000,"old_price":null,"discount":0,` +
	`"images":["/img/silk.jpg"],"created_at":"2025-06-15T12:00:00Z"}`

// catalogServer fakes the hosted catalog and counts product lookups.
func catalogServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var lookups atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		q := r.URL.Query()
		switch {
		case q.Get("id") == "eq.1":
			lookups.Add(1)
			_, _ = w.Write([]byte("[" + productJSON + "]"))
		case q.Get("id") != "":
			_, _ = w.Write([]byte("[]"))
		case q.Get("select") == "id":
			_, _ = w.Write([]byte(`[{"id":1}]`))
		default:
			_, _ = w.Write([]byte("[" + productJSON + "]"))
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &lookups
}

func testConfig(t *testing.T, catalogURL string) *config.Config {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)

	return &config.Config{
		Environment:       "test",
		HTTPPort:          0,
		RequestTimeout:    5 * time.Second,
		StorageBackend:    config.StorageMemory,
		SessionIdle:       time.Minute,
		SessionSweepInt:   time.Minute,
		CatalogBackend:    config.CatalogPostgREST,
		SupabaseURL:       catalogURL,
		SupabaseKey:       "anon",
		RedisKeyPrefix:    "vega:",
		EventRelayBuffer:  16,
		AdminPasswordHash: string(hash),
	}
}

func serve(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set(middleware.SessionHeader, "s1")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewApp_HostedCatalogInMemory(t *testing.T) {
	srv, _ := catalogServer(t)

	a, err := NewApp(testConfig(t, srv.URL), logger.Discard())
	require.NoError(t, err)

	rec := serve(t, a.Handler(), http.MethodGet, "/api/v1/products", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"total":1`)

	rec = serve(t, a.Handler(), http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.NoError(t, a.shutdown(nil))

	_, err = a.registry.Get(context.Background(), "s1")
	assert.ErrorIs(t, err, store.ErrClosed)
}

func TestNewApp_RedisStorageAndCatalogCache(t *testing.T) {
	srv, lookups := catalogServer(t)
	mr := miniredis.RunT(t)

	cfg := testConfig(t, srv.URL)
	cfg.StorageBackend = config.StorageRedis
	cfg.CatalogCacheTTL = time.Minute
	cfg.RedisHost = mr.Host()
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	cfg.RedisPort = port

	a, err := NewApp(cfg, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.shutdown(nil) })

	for range 2 {
		rec := serve(t, a.Handler(), http.MethodPost, "/api/v1/shop/cart/items", `{"product_id":1}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	assert.Equal(t, int32(1), lookups.Load())
	assert.True(t, mr.Exists("vega:session:s1:"+store.KeyCart))
}

func TestNewApp_LevelDBIsReleasedOnShutdown(t *testing.T) {
	srv, _ := catalogServer(t)

	cfg := testConfig(t, srv.URL)
	cfg.StorageBackend = config.StorageLevelDB
	cfg.LevelDBPath = t.TempDir()

	a, err := NewApp(cfg, logger.Discard())
	require.NoError(t, err)

	rec := serve(t, a.Handler(), http.MethodPost, "/api/v1/shop/searches", `{"query":"kanjivaram"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, a.shutdown(nil))

	db, err := leveldb.Open(cfg.LevelDBPath)
	require.NoError(t, err)
	defer db.Close()

	data, err := db.Get(context.Background(), "session:s1:"+store.KeyRecentSearches)
	require.NoError(t, err)
	assert.JSONEq(t, `["kanjivaram"]`, string(data))
}

func TestNewApp_InvalidAdminHashReleasesResources(t *testing.T) {
	srv, _ := catalogServer(t)

	cfg := testConfig(t, srv.URL)
	cfg.StorageBackend = config.StorageLevelDB
	cfg.LevelDBPath = t.TempDir()
	cfg.AdminPasswordHash = "plaintext"

	a, err := NewApp(cfg, logger.Discard())
	require.Error(t, err)
	assert.Nil(t, a)
	assert.Contains(t, err.Error(), "admin gate")

	db, err := leveldb.Open(cfg.LevelDBPath)
	require.NoError(t, err)
	assert.NoError(t, db.Close())
}

func TestRun_StopsOnCancel(t *testing.T) {
	srv, _ := catalogServer(t)

	a, err := NewApp(testConfig(t, srv.URL), logger.Discard())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
