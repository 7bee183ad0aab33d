package app

import (
	"github.com/gorilla/sessions"

	"github.com/ghuser/inventory/pkg/cache"
	"github.com/ghuser/inventory/pkg/config"
	"github.com/ghuser/inventory/pkg/database"
	"github.com/ghuser/inventory/pkg/events"
	"github.com/ghuser/inventory/pkg/logger"
)

// Application holds shared infrastructure dependencies for all services.
// Pass it to each service's route registration during server start-up.
//
// Logging: app.Logger injects trace_id, span_id and request_id from the
// context, so prefer the *Context methods inside request handling:
//
//	app.Logger.InfoContext(ctx, "item updated", "item_id", id)
//
// EventBus is nil when the SQLite store is in use. SessionStore is nil in
// the worker process.
type Application struct {
	Config       *config.Config
	Db           *database.Database
	Logger       logger.Logger
	EventBus     *events.EventBus
	Redis        *cache.RedisClient
	SessionStore sessions.Store
}
