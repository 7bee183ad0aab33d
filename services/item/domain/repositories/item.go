package repositories

import (
	"context"

	"github.com/ghuser/inventory/services/item/domain/models"
)

// ItemRepository is the persistence interface for the Item aggregate.
// The domain layer owns this interface; infrastructure implements it.
//
// Implementations report a missing row as domain.ErrItemNotFound and a
// duplicate slug as domain.ErrSlugTaken; the slug uniqueness check must be
// enforced atomically by the storage engine, not by a prior read.
type ItemRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Item, error)
	FindBySlug(ctx context.Context, slug string) (*models.Item, error)

	// FindAll returns every live item ordered by id ascending.
	FindAll(ctx context.Context) ([]*models.Item, error)

	// Create persists a new item, assigning item.ID. The owner's display
	// fields are recorded alongside so reads can show who added the item.
	Create(ctx context.Context, item *models.Item) error

	// Update persists the editable fields and slug of an existing item.
	// previousSlug is the slug the item held before this change.
	Update(ctx context.Context, item *models.Item, previousSlug string) error

	// Delete hard-deletes the item. Deleting a missing id is ErrItemNotFound.
	Delete(ctx context.Context, item *models.Item) error
}
