package main

// Run database migrations for the configured store:
//   go run ./cmd/migrate

import (
	"context"
	"os"

	"dealbrief-backend/internal/bootstrap"
	"dealbrief-backend/internal/shared/config"
	"dealbrief-backend/internal/shared/storage/db"
	"dealbrief-backend/internal/shared/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		telemetry.Error("migrate.config", map[string]any{"error": err})
		os.Exit(1)
	}
	if err := telemetry.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		telemetry.Error("migrate.logger", map[string]any{"error": err})
		os.Exit(1)
	}
	defer telemetry.Sync()
	ctx := context.Background()

	opts := cfg.DB
	defaults := db.DefaultMigrateOptions()
	opts.MaxOpenConns, opts.MaxIdleConns = defaults.MaxOpenConns, defaults.MaxIdleConns

	sqlDB, driver, err := bootstrap.OpenDB(ctx, cfg, opts)
	if err != nil {
		telemetry.Error("migrate.connect", map[string]any{"error": err})
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := db.RunMigrations(ctx, sqlDB, driver); err != nil {
		telemetry.Error("migrate.run", map[string]any{"error": err, "driver": string(driver)})
		sqlDB.Close()
		os.Exit(1)
	}
	telemetry.Info("migrate.done", map[string]any{"driver": string(driver)})
}
