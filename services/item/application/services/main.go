package services

import (
	"github.com/ghuser/inventory/pkg/app"
	"github.com/ghuser/inventory/pkg/cache"
	"github.com/ghuser/inventory/pkg/config"
	"github.com/ghuser/inventory/services/item/domain/repositories"
	"github.com/ghuser/inventory/services/item/infrastructure/persistence/postgres"
	"github.com/ghuser/inventory/services/item/infrastructure/persistence/sqlite"
)

// Services is the application-layer service container for this bounded context.
// It wires domain services with their infrastructure implementations.
type Services struct {
	Item *ItemService
}

// New wires all item application services with infrastructure from the Application container.
func New(a *app.Application) *Services {
	var itemCache ItemCache
	if a.Redis != nil {
		itemCache = cache.NewItemCache(a.Redis)
	}
	return &Services{
		Item: NewItemService(NewRepository(a), itemCache, a.Logger.With("service", "item")),
	}
}

// NewRepository returns the item store matching the database driver.
// Only the Postgres store publishes events.
func NewRepository(a *app.Application) repositories.ItemRepository {
	if a.Db.Driver() == config.DriverSQLite {
		return sqlite.NewItemRepository(a.Db)
	}
	return postgres.NewItemRepository(a.Db, a.EventBus)
}
