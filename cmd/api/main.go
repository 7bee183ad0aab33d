package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	_ "github.com/ghuser/inventory/docs/swagger"
	"github.com/ghuser/inventory/pkg/app"
	"github.com/ghuser/inventory/pkg/auth"
	"github.com/ghuser/inventory/pkg/cache"
	"github.com/ghuser/inventory/pkg/config"
	"github.com/ghuser/inventory/pkg/database"
	"github.com/ghuser/inventory/pkg/events"
	"github.com/ghuser/inventory/pkg/httpx"
	"github.com/ghuser/inventory/pkg/logger"
	"github.com/ghuser/inventory/pkg/telemetry"
	itemApi "github.com/ghuser/inventory/services/item/application/api"
	"github.com/ghuser/inventory/services/item/infrastructure/persistence/sqlite"
)

// @title					Inventory API
// @version				1.0
// @description			Authenticated inventory catalog with slug-addressed items.
// @license.name			MIT
// @license.url			https://opensource.org/licenses/MIT
// @host					localhost:8080
// @BasePath				/api
// @schemes				http https
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := config.ValidateForProduction(cfg); err != nil {
		slog.Error("production config validation failed", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg)

	// Telemetry: OTel tracing + metrics
	ctx := context.Background()
	otelShutdown, metricsHandler, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		log.Error("failed to setup otel", "error", err)
		os.Exit(1)
	}
	defer otelShutdown(ctx) //nolint:errcheck

	// Crash reporting: Sentry (optional, log and continue on failure)
	if err := telemetry.SetupSentry(cfg); err != nil {
		log.Warn("failed to setup sentry, continuing without crash reporting", "error", err)
	}
	defer telemetry.SentryFlush()

	db, eventBus, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open item store", "error", err, "store_driver", cfg.StoreDriver)
		os.Exit(1) //nolint:gocritic // intentional: startup failure, deferred flushes are best-effort
	}
	defer db.Close() //nolint:errcheck
	if eventBus != nil {
		defer eventBus.Close() //nolint:errcheck
	}
	log.Info("item store opened", "store_driver", db.Driver())

	redisClient, err := cache.NewRedisClient(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1) //nolint:gocritic // intentional: startup failure
	}
	defer redisClient.Close() //nolint:errcheck
	log.Info("redis connected")

	sessionStore := auth.NewSessionStore(
		redisClient.Client(),
		[]byte(cfg.SessionAuthKey),
		[]byte(cfg.SessionEncryptionKey),
		cfg.Environment == config.EnvProduction,
	)
	log.Info("session store initialized", "backend", "redis")

	appConfig := &app.Application{
		Config:       cfg,
		Db:           db,
		Logger:       log,
		EventBus:     eventBus,
		Redis:        redisClient,
		SessionStore: sessionStore,
	}

	r := httpx.NewRouter(
		httpx.ServerConfig{
			ServiceName:        cfg.ServiceName,
			IsDevelopment:      cfg.IsDevelopment(),
			CORSAllowedOrigins: cfg.CORSAllowedOrigins,
			RequestsPerMinute:  cfg.RateLimitPerMinute,
		},
		logger.Middleware(log),
		logger.Recovery(log),
		telemetry.SentryMiddleware(),
		otelhttp.NewMiddleware(cfg.ServiceName),
	)

	checks := httpx.HealthChecks{Database: db, Redis: redisClient}
	if eventBus != nil {
		checks.EventBus = eventBus
	}
	r.Get("/health", httpx.HealthHandler(checks))
	r.Get("/metrics", metricsHandler.ServeHTTP)
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	r.Route("/api", func(r chi.Router) {
		r.Use(auth.LoadSession(sessionStore, log))
		registerRoutes(r, appConfig)
	})

	srv := httpx.NewServer(cfg.HTTPAddr, r)

	go func() {
		log.Info("server listening", "addr", srv.Addr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// openStore opens the configured item store. Postgres comes with an
// outbox-backed event bus; SQLite migrates itself on open and has no bus.
func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (*database.Database, *events.EventBus, error) {
	if cfg.StoreDriver == config.DriverSQLite {
		db, err := database.OpenSQLite(ctx, cfg.SQLitePath, log)
		if err != nil {
			return nil, nil, err
		}
		if err := sqlite.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return db, nil, nil
	}

	db, err := database.NewPool(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return nil, nil, err
	}
	eventBus, err := events.NewEventBusWithForwarder(cfg, log)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	if err := eventBus.StartForwarder(ctx); err != nil {
		_ = eventBus.Close()
		_ = db.Close()
		return nil, nil, err
	}
	return db, eventBus, nil
}

// registerRoutes mounts all service routes under /api.
func registerRoutes(r chi.Router, a *app.Application) {
	itemApi.AuthRoutes(r, a)
	itemApi.ItemRoutes(r, a)
}
