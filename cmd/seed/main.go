// Command seed fills the Postgres catalog with a deterministic demo set of
// sarees.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/vegasarees/storefront/internal/catalog/postgres"
	"github.com/vegasarees/storefront/internal/catalog/seed"
	pkgconfig "github.com/vegasarees/storefront/pkg/config"
	"github.com/vegasarees/storefront/pkg/database"
	"github.com/vegasarees/storefront/pkg/logger"
)

type seedConfig struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Count int    `env:"SEED_COUNT" envDefault:"120"`
	Seed  uint64 `env:"SEED_VALUE" envDefault:"2025"`
	Reset bool   `env:"SEED_RESET" envDefault:"true"`

	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"vega"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"vega"`
	PostgresDB   string `env:"POSTGRES_DB" envDefault:"storefront"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
}

func main() {
	if err := pkgconfig.LoadDotEnv(".env"); err != nil {
		slog.Error("failed to load .env", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var cfg seedConfig
	if err := pkgconfig.Load(&cfg); err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New("storefront-seed", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pgCfg := database.DefaultPostgresConfig()
	pgCfg.Host = cfg.PostgresHost
	pgCfg.Port = cfg.PostgresPort
	pgCfg.User = cfg.PostgresUser
	pgCfg.Password = cfg.PostgresPass
	pgCfg.DBName = cfg.PostgresDB
	pgCfg.SSLMode = cfg.PostgresSSL

	pool, err := database.NewPostgresPool(ctx, &pgCfg, log)
	if err != nil {
		log.Error("failed to connect to postgres", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, postgres.Migrations(), log); err != nil {
		log.Error("failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	products := seed.Generate(cfg.Count, cfg.Seed, time.Now().UTC())
	n, err := seed.Load(ctx, postgres.NewProductRepository(pool), products, cfg.Reset, log)
	if err != nil {
		log.Error("seeding failed", slog.Int("created", n), slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("catalog seeded", slog.Int("products", n), slog.Bool("reset", cfg.Reset))
}
