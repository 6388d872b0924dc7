package bootstrap

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rotisserie/eris"

	"dealbrief-backend/internal/deals"
	"dealbrief-backend/internal/generator"
	"dealbrief-backend/internal/generator/anthropic"
	"dealbrief-backend/internal/generator/gemini"
	"dealbrief-backend/internal/generator/openai"
	"dealbrief-backend/internal/services/health"
	"dealbrief-backend/internal/shared/config"
	"dealbrief-backend/internal/shared/server"
	"dealbrief-backend/internal/shared/server/middleware"
	"dealbrief-backend/internal/shared/storage/db"
	"dealbrief-backend/internal/shared/storage/object"
	localstore "dealbrief-backend/internal/shared/storage/object/local"
	s3store "dealbrief-backend/internal/shared/storage/object/s3"
	"dealbrief-backend/internal/shared/telemetry"
)

// App holds shared dependencies for the API server and the CLI.
type App struct {
	Config    config.Config
	DB        *sql.DB
	Store     deals.Store
	Archive   object.ObjectStore
	Generator generator.Generator
	Deals     *deals.Service
	Health    *health.Service
}

// Build connects the record store, applies migrations and wires the deals
// service. Callers must Close the returned App.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}

	sqlDB, store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app := &App{Config: cfg, DB: sqlDB, Store: store}

	if app.Generator, err = NewGenerator(ctx, cfg); err != nil {
		app.Close()
		return nil, err
	}
	if app.Archive, err = buildArchive(ctx, cfg); err != nil {
		app.Close()
		return nil, err
	}

	app.Deals = deals.NewService(app.Store, app.Generator, app.Archive)
	if sqlDB != nil {
		app.Health = health.NewService(sqlDB)
	} else {
		app.Health = health.NewService(nil)
	}

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":       cfg.Env,
		"store":     cfg.StoreDriver,
		"generator": cfg.GeneratorProvider,
		"archive":   cfg.ArchiveStore,
	})
	return app, nil
}

// NewRouter returns the HTTP engine serving the app.
func (a *App) NewRouter() *gin.Engine {
	return server.NewRouter(server.RouterDeps{
		Config:  a.Config,
		Deals:   a.Deals,
		Health:  a.Health,
		Limiter: middleware.NewRateLimiter(nil),
	})
}

// Close releases the database pool.
func (a *App) Close() {
	if a == nil || a.DB == nil {
		return
	}
	if err := a.DB.Close(); err != nil {
		telemetry.Warn("bootstrap.close", map[string]any{"error": err})
	}
}

func buildStore(ctx context.Context, cfg config.Config) (*sql.DB, deals.Store, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		sqlDB, err := connectAndMigrate(ctx, db.DriverPostgres, cfg.DatabaseURL, cfg.DB)
		if err != nil {
			return nil, nil, err
		}
		return sqlDB, &deals.PGStore{DB: sqlDB}, nil
	case config.StoreSQLite:
		if err := ensureParentDir(cfg.SQLitePath); err != nil {
			return nil, nil, err
		}
		sqlDB, err := connectAndMigrate(ctx, db.DriverSQLite, cfg.SQLitePath, cfg.DB)
		if err != nil {
			return nil, nil, err
		}
		return sqlDB, &deals.SQLiteStore{DB: sqlDB}, nil
	case config.StoreMemory, "":
		telemetry.Warn("bootstrap.store", map[string]any{"store": config.StoreMemory, "message": "records are not persisted"})
		return nil, deals.NewMemoryStore(), nil
	default:
		return nil, nil, eris.Errorf("bootstrap: unknown store driver %q", cfg.StoreDriver)
	}
}

// OpenDB connects to the configured SQL store without wiring services.
func OpenDB(ctx context.Context, cfg config.Config, opts db.Options) (*sql.DB, db.Driver, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		sqlDB, err := db.Connect(ctx, db.DriverPostgres, cfg.DatabaseURL, opts)
		return sqlDB, db.DriverPostgres, err
	case config.StoreSQLite:
		if err := ensureParentDir(cfg.SQLitePath); err != nil {
			return nil, "", err
		}
		sqlDB, err := db.Connect(ctx, db.DriverSQLite, cfg.SQLitePath, opts)
		return sqlDB, db.DriverSQLite, err
	default:
		return nil, "", eris.Errorf("bootstrap: store %q has no database", cfg.StoreDriver)
	}
}

func connectAndMigrate(ctx context.Context, driver db.Driver, dsn string, opts db.Options) (*sql.DB, error) {
	sqlDB, err := db.Connect(ctx, driver, dsn, opts)
	if err != nil {
		return nil, eris.Wrapf(err, "bootstrap: connect %s", driver)
	}
	if err := db.RunMigrations(ctx, sqlDB, driver); err != nil {
		sqlDB.Close()
		return nil, eris.Wrapf(err, "bootstrap: migrate %s", driver)
	}
	return sqlDB, nil
}

func ensureParentDir(path string) error {
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "bootstrap: create %s", dir)
	}
	return nil
}

// NewGenerator returns the generator for cfg.GeneratorProvider. In dev a
// provider missing its credentials degrades to generator.NotConfigured.
func NewGenerator(ctx context.Context, cfg config.Config) (generator.Generator, error) {
	var (
		gen generator.Generator
		err error
	)
	switch cfg.GeneratorProvider {
	case config.ProviderGemini:
		gen, err = gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeneratorModel, cfg.GeneratorTimeout)
	case config.ProviderOpenAI:
		gen, err = openai.New(cfg.OpenAIAPIKey, cfg.GeneratorModel, cfg.GeneratorTimeout)
	case config.ProviderAnthropic:
		gen, err = anthropic.New(cfg.AnthropicAPIKey, cfg.GeneratorModel, cfg.GeneratorTimeout)
	case config.ProviderStub:
		return generator.Offline{}, nil
	default:
		return nil, eris.Errorf("bootstrap: unknown generator provider %q", cfg.GeneratorProvider)
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.generator", map[string]any{
				"provider": cfg.GeneratorProvider,
				"error":    err,
				"message":  "generator not configured; every brief will fail",
			})
			return generator.NotConfigured{}, nil
		}
		return nil, eris.Wrapf(err, "bootstrap: %s generator", cfg.GeneratorProvider)
	}
	return gen, nil
}

func buildArchive(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ArchiveStore {
	case config.ArchiveLocal:
		return localstore.New(cfg.LocalStoreDir), nil
	case config.ArchiveS3:
		store, err := s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
		if err != nil {
			return nil, eris.Wrap(err, "bootstrap: s3 archive")
		}
		return store, nil
	case config.ArchiveNone, "":
		return nil, nil
	default:
		return nil, eris.Errorf("bootstrap: unknown archive store %q", cfg.ArchiveStore)
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
