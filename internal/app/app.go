package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/vegasarees/storefront/internal/admin"
	"github.com/vegasarees/storefront/internal/catalog"
	"github.com/vegasarees/storefront/internal/catalog/cache"
	"github.com/vegasarees/storefront/internal/catalog/postgres"
	"github.com/vegasarees/storefront/internal/catalog/postgrest"
	"github.com/vegasarees/storefront/internal/config"
	"github.com/vegasarees/storefront/internal/event"
	handler "github.com/vegasarees/storefront/internal/handler/http"
	"github.com/vegasarees/storefront/internal/storage"
	"github.com/vegasarees/storefront/internal/storage/leveldb"
	"github.com/vegasarees/storefront/internal/storage/memory"
	redisstore "github.com/vegasarees/storefront/internal/storage/redis"
	"github.com/vegasarees/storefront/internal/store"
	"github.com/vegasarees/storefront/pkg/database"
	"github.com/vegasarees/storefront/pkg/health"
	"github.com/vegasarees/storefront/pkg/httpclient"
	pkgkafka "github.com/vegasarees/storefront/pkg/kafka"
	"github.com/vegasarees/storefront/pkg/tracing"
)

const serviceName = "storefront"

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	rdb            *goredis.Client
	producer       *pkgkafka.Producer
	relay          *event.Relay
	registry       *store.Registry
	closers        []io.Closer
	handler        http.Handler
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
// On error every resource opened so far is released.
func NewApp(cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.release()
		}
	}()

	// Initialize OpenTelemetry tracing.
	a.tracerShutdown, err = tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	healthHandler := health.NewHandler()

	// Redis backs session storage and the catalog cache.
	if cfg.UsesRedis() {
		a.rdb, err = database.NewRedisClient(ctx, cfg.Redis())
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis",
			slog.String("addr", cfg.Redis().Addr()),
			slog.Int("db", cfg.RedisDB),
		)
		rdb := a.rdb
		healthHandler.Register("redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}

	kv, err := a.newStorage()
	if err != nil {
		return nil, err
	}

	repo, err := a.newCatalog(ctx, healthHandler)
	if err != nil {
		return nil, err
	}

	// Kafka is optional; without brokers nothing is published.
	var publisher admin.ChangePublisher
	a.registry = store.NewRegistry(kv, logger)
	if len(cfg.KafkaBrokers) > 0 {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		eventProducer := event.NewProducer(a.producer, logger)
		a.relay = event.NewRelay(eventProducer, cfg.EventRelayBuffer, logger)
		a.registry.OnOpen(a.relay.Attach)
		publisher = eventProducer

		producer := a.producer
		healthHandler.RegisterOptional("kafka", producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	gate, err := admin.NewGate(kv, cfg.AdminPasswordHash, logger)
	if err != nil {
		return nil, fmt.Errorf("admin gate: %w", err)
	}
	productService := admin.NewProductService(repo, publisher, logger)

	// HTTP router.
	a.handler = handler.NewRouter(handler.RouterConfig{
		ServiceName:         serviceName,
		CORSOrigins:         cfg.CORSOrigins,
		RequestTimeout:      cfg.RequestTimeout,
		RateLimitRPS:        cfg.RateLimitRPS,
		RateLimitBurst:      cfg.RateLimitBurst,
		LoginRateLimitRPS:   cfg.LoginRateLimitRPS,
		LoginRateLimitBurst: cfg.LoginRateLimitBurst,
	}, a.registry, repo, gate, productService, healthHandler, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           a.handler,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// newStorage opens the session state backend.
func (a *App) newStorage() (storage.KV, error) {
	switch a.cfg.StorageBackend {
	case config.StorageRedis:
		return redisstore.New(a.rdb,
			redisstore.WithKeyPrefix(a.cfg.RedisKeyPrefix),
			redisstore.WithTTL(a.cfg.SessionTTL),
		), nil
	case config.StorageLevelDB:
		db, err := leveldb.Open(a.cfg.LevelDBPath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db)
		a.logger.Info("opened LevelDB session storage", slog.String("path", a.cfg.LevelDBPath))
		return db, nil
	default:
		a.logger.Warn("using in-memory session storage; state is lost on restart")
		return memory.New(), nil
	}
}

// newCatalog connects the product catalog backend and wraps it in the Redis
// cache when one is configured.
func (a *App) newCatalog(ctx context.Context, healthHandler *health.Handler) (catalog.Repository, error) {
	var repo catalog.Repository

	switch a.cfg.CatalogBackend {
	case config.CatalogPostgREST:
		doer := httpclient.NewCircuitBreakerClient(
			httpclient.New(httpclient.DefaultConfig()),
			httpclient.DefaultCircuitBreakerConfig("catalog"),
			a.logger,
		)
		client := postgrest.New(a.cfg.SupabaseURL, a.cfg.SupabaseKey, doer)
		healthHandler.Register("catalog", client.Ping)
		repo = client
		a.logger.Info("using hosted catalog", slog.String("url", a.cfg.SupabaseURL))

	default:
		pgCfg := a.cfg.Postgres()
		pool, err := database.NewPostgresPool(ctx, &pgCfg, a.logger)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		a.pool = pool
		a.logger.Info("connected to PostgreSQL",
			slog.String("host", a.cfg.PostgresHost),
			slog.Int("port", a.cfg.PostgresPort),
			slog.String("database", a.cfg.PostgresDB),
		)
		if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, serviceName); err != nil {
			a.logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
		}

		if err := database.RunMigrations(ctx, pool, postgres.Migrations(), a.logger); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		a.logger.Info("database migrations completed")

		if a.cfg.SlowQueryThresholdMs > 0 {
			database.SetSlowQueryLogging(time.Duration(a.cfg.SlowQueryThresholdMs)*time.Millisecond, a.logger)
		}

		healthHandler.Register("postgres", func(ctx context.Context) error {
			return pool.Ping(ctx)
		})
		repo = postgres.NewProductRepository(pool)
	}

	if a.cfg.CatalogCacheTTL > 0 {
		repo = cache.New(repo, a.rdb, a.cfg.CatalogCacheTTL, a.logger)
		a.logger.Info("catalog cache enabled", slog.Duration("ttl", a.cfg.CatalogCacheTTL))
	}
	return repo, nil
}

// Handler returns the HTTP handler served by Run.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run starts the HTTP server and background jobs, then blocks until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	relayCtx, stopRelay := context.WithCancel(context.Background())
	var relayDone sync.WaitGroup
	if a.relay != nil {
		relayDone.Add(1)
		go func() {
			defer relayDone.Done()
			a.relay.Run(relayCtx)
		}()
	}

	go a.runSessionSweeper(ctx)

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
	}

	shutdownErr := a.shutdown(func() {
		stopRelay()
		relayDone.Wait()
	})
	return errors.Join(runErr, shutdownErr)
}

// runSessionSweeper closes stores that have been idle longer than the
// configured timeout. Their state stays in storage and is rehydrated on the
// next request.
func (a *App) runSessionSweeper(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.SessionSweepInt)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.registry.Sweep(a.cfg.SessionIdle); n > 0 {
				a.logger.Debug("idle sessions closed",
					slog.Int("closed", n),
					slog.Int("open", a.registry.Len()),
				)
			}
		}
	}
}

// shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Session stores
// 3. Event relay (publish what is still queued)
// 4. Tracer
// 5. Kafka producer and storage connections
func (a *App) shutdown(stopRelay func()) error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.registry.CloseAll()

	if stopRelay != nil {
		stopRelay()
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.tracerShutdown = nil
	}

	errs = append(errs, a.release())

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// release closes the Kafka producer and storage connections.
func (a *App) release() error {
	var errs []error

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.producer = nil
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Error("storage close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.rdb = nil
	}
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	if a.tracerShutdown != nil {
		_ = a.tracerShutdown(context.Background())
		a.tracerShutdown = nil
	}
	return errors.Join(errs...)
}
