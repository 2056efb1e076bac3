// Package cache is a Redis read-through cache in front of a
// catalog.Repository. Writes bump a generation counter so every cached read
// from the previous generation is ignored and left to expire.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	goredis "github.com/redis/go-redis/v9"

	"github.com/vegasarees/storefront/internal/catalog"
)

const (
	defaultPrefix = "catalog:"
	generationKey = "generation"
)

var lookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "storefront_catalog_cache_lookups_total",
		Help: "Catalog cache lookups by operation and result (hit, miss, error)",
	},
	[]string{"op", "result"},
)

// Repository caches List and GetByID. Redis failures degrade to calling the
// wrapped repository directly.
type Repository struct {
	next   catalog.Repository
	client goredis.UniversalClient
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

var _ catalog.Repository = (*Repository)(nil)

// Option configures a Repository.
type Option func(*Repository)

// WithKeyPrefix overrides the default "catalog:" key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(r *Repository) { r.prefix = prefix }
}

// New wraps next. Cached entries expire after ttl.
func New(next catalog.Repository, client goredis.UniversalClient, ttl time.Duration, logger *slog.Logger, opts ...Option) *Repository {
	r := &Repository{
		next:   next,
		client: client,
		ttl:    ttl,
		prefix: defaultPrefix,
		logger: logger,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Repository) List(ctx context.Context) ([]catalog.Product, error) {
	gen, ok := r.generation(ctx)
	key := fmt.Sprintf("%s%d:products", r.prefix, gen)

	var products []catalog.Product
	if ok && r.lookup(ctx, "list", key, &products) {
		return products, nil
	}

	products, err := r.next.List(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		r.store(ctx, key, products)
	}
	return products, nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*catalog.Product, error) {
	gen, ok := r.generation(ctx)
	key := fmt.Sprintf("%s%d:product:%d", r.prefix, gen, id)

	var p catalog.Product
	if ok && r.lookup(ctx, "get", key, &p) {
		return &p, nil
	}

	found, err := r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ok {
		r.store(ctx, key, found)
	}
	return found, nil
}

func (r *Repository) Create(ctx context.Context, p *catalog.Product) error {
	if err := r.next.Create(ctx, p); err != nil {
		return err
	}
	r.Invalidate(ctx)
	return nil
}

func (r *Repository) Update(ctx context.Context, p *catalog.Product) error {
	if err := r.next.Update(ctx, p); err != nil {
		return err
	}
	r.Invalidate(ctx)
	return nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	if err := r.next.Delete(ctx, id); err != nil {
		return err
	}
	r.Invalidate(ctx)
	return nil
}

func (r *Repository) Reset(ctx context.Context) error {
	if err := r.next.Reset(ctx); err != nil {
		return err
	}
	r.Invalidate(ctx)
	return nil
}

// Invalidate starts a new cache generation.
func (r *Repository) Invalidate(ctx context.Context) {
	if err := r.client.Incr(ctx, r.prefix+generationKey).Err(); err != nil {
		r.logger.WarnContext(ctx, "catalog cache invalidation failed", slog.String("error", err.Error()))
	}
}

// generation returns the current generation and whether the cache is usable.
func (r *Repository) generation(ctx context.Context) (int64, bool) {
	gen, err := r.client.Get(ctx, r.prefix+generationKey).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, true
	}
	if err != nil {
		lookupsTotal.WithLabelValues("generation", "error").Inc()
		r.logger.WarnContext(ctx, "catalog cache unavailable", slog.String("error", err.Error()))
		return 0, false
	}
	return gen, true
}

func (r *Repository) lookup(ctx context.Context, op, key string, out any) bool {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		lookupsTotal.WithLabelValues(op, "miss").Inc()
		return false
	}
	if err == nil {
		err = json.Unmarshal(data, out)
	}
	if err != nil {
		lookupsTotal.WithLabelValues(op, "error").Inc()
		r.logger.WarnContext(ctx, "catalog cache read failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return false
	}
	lookupsTotal.WithLabelValues(op, "hit").Inc()
	return true
}

func (r *Repository) store(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		r.logger.WarnContext(ctx, "catalog cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}
