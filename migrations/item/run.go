package main

import (
	"context"
	"embed"
	"log/slog"
	"os"

	"github.com/ghuser/inventory/pkg/config"
	"github.com/ghuser/inventory/pkg/migrator"
)

//go:embed *.sql
var MigrationsFS embed.FS

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.StoreDriver != config.DriverPostgres {
		slog.Error("item migrations target postgres; sqlite stores migrate on open", "store_driver", cfg.StoreDriver)
		os.Exit(1)
	}
	applied, err := migrator.RunMigrations(context.Background(), cfg.DatabaseURL, MigrationsFS)
	if err != nil {
		slog.Error("item migrations failed", "error", err)
		os.Exit(1)
	}
	slog.Info("item migrations applied", "count", len(applied), "files", applied)
}
