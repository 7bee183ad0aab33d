// Package postgres implements the item store on PostgreSQL. Writes run in a
// transaction that also appends the matching domain event to the Watermill
// outbox, so subscribers never observe an event for a rolled-back change.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ghuser/inventory/pkg/database"
	"github.com/ghuser/inventory/pkg/events"
	itemdomain "github.com/ghuser/inventory/services/item/domain"
	domainevents "github.com/ghuser/inventory/services/item/domain/events"
	"github.com/ghuser/inventory/services/item/domain/models"
	"github.com/ghuser/inventory/services/item/domain/repositories"
	"github.com/ghuser/inventory/services/item/infrastructure/persistence/postgres/db"
)

const (
	uniqueViolation = "23505"
	slugConstraint  = "items_slug_key"
)

var _ repositories.ItemRepository = (*ItemRepository)(nil)

// ItemRepository implements repositories.ItemRepository against PostgreSQL.
type ItemRepository struct {
	db  *database.Database
	bus *events.EventBus
}

// NewItemRepository returns an ItemRepository backed by the given connection pool.
// bus may be nil, in which case no events are written.
func NewItemRepository(database *database.Database, bus *events.EventBus) *ItemRepository {
	return &ItemRepository{db: database, bus: bus}
}

func (r *ItemRepository) FindByID(ctx context.Context, id int64) (*models.Item, error) {
	row, err := db.New(r.db.DB()).GetItemByID(ctx, id)
	if err != nil {
		return nil, readError("query item by id", err)
	}
	return rowToItem(row), nil
}

func (r *ItemRepository) FindBySlug(ctx context.Context, slug string) (*models.Item, error) {
	row, err := db.New(r.db.DB()).GetItemBySlug(ctx, slug)
	if err != nil {
		return nil, readError("query item by slug", err)
	}
	return rowToItem(row), nil
}

func (r *ItemRepository) FindAll(ctx context.Context) ([]*models.Item, error) {
	rows, err := db.New(r.db.DB()).ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list items: %w", itemdomain.ErrStore, err)
	}
	items := make([]*models.Item, len(rows))
	for i, row := range rows {
		items[i] = rowToItem(row)
	}
	return items, nil
}

// Create records the owner, inserts the item and publishes ItemCreatedEvent
// in one transaction. A duplicate slug returns ErrSlugTaken.
func (r *ItemRepository) Create(ctx context.Context, item *models.Item) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		q := db.New(tx)
		if err := q.UpsertUser(ctx, db.UpsertUserParams{
			ID:    item.Owner.ID,
			Name:  nullString(item.Owner.Name),
			Email: item.Owner.Email,
		}); err != nil {
			return fmt.Errorf("%w: upsert user: %w", itemdomain.ErrStore, err)
		}

		id, err := q.InsertItem(ctx, db.InsertItemParams{
			Slug:        item.Slug,
			Name:        item.Name.String(),
			Description: nullString(item.Description),
			Quantity:    int32(item.Quantity),
			Price:       item.Price,
			SKU:         item.SKU,
			Category:    item.Category,
			OwnerUserID: item.OwnerUserID,
			CreatedAt:   item.CreatedAt,
		})
		if err != nil {
			return writeError("insert item", err)
		}
		item.ID = id

		event := domainevents.ItemCreatedEvent{
			EventID:     uuid.New(),
			Version:     domainevents.SchemaVersion,
			ItemID:      item.ID,
			Slug:        item.Slug,
			OwnerUserID: item.OwnerUserID,
			Name:        item.Name.String(),
			OccurredAt:  item.CreatedAt,
		}
		return r.publish(ctx, tx, domainevents.TopicItemCreated, event.EventID, event)
	})
}

// Update writes the editable fields and slug and publishes ItemUpdatedEvent.
func (r *ItemRepository) Update(ctx context.Context, item *models.Item, previousSlug string) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		n, err := db.New(tx).UpdateItem(ctx, db.UpdateItemParams{
			ID:          item.ID,
			Slug:        item.Slug,
			Name:        item.Name.String(),
			Description: nullString(item.Description),
			Quantity:    int32(item.Quantity),
			Price:       item.Price,
			SKU:         item.SKU,
			Category:    item.Category,
		})
		if err != nil {
			return writeError("update item", err)
		}
		if n == 0 {
			return itemdomain.ErrItemNotFound
		}

		event := domainevents.ItemUpdatedEvent{
			EventID:      uuid.New(),
			Version:      domainevents.SchemaVersion,
			ItemID:       item.ID,
			Slug:         item.Slug,
			PreviousSlug: previousSlug,
			OccurredAt:   time.Now().UTC(),
		}
		return r.publish(ctx, tx, domainevents.TopicItemUpdated, event.EventID, event)
	})
}

// Delete removes the row and publishes ItemDeletedEvent.
func (r *ItemRepository) Delete(ctx context.Context, item *models.Item) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		n, err := db.New(tx).DeleteItem(ctx, item.ID)
		if err != nil {
			return fmt.Errorf("%w: delete item: %w", itemdomain.ErrStore, err)
		}
		if n == 0 {
			return itemdomain.ErrItemNotFound
		}

		event := domainevents.ItemDeletedEvent{
			EventID:    uuid.New(),
			Version:    domainevents.SchemaVersion,
			ItemID:     item.ID,
			Slug:       item.Slug,
			OccurredAt: time.Now().UTC(),
		}
		return r.publish(ctx, tx, domainevents.TopicItemDeleted, event.EventID, event)
	})
}

func (r *ItemRepository) publish(ctx context.Context, tx *sql.Tx, topic string, eventID uuid.UUID, event any) error {
	if r.bus == nil {
		return nil
	}
	msg, err := events.NewJSONMessage(eventID.String(), domainevents.SchemaVersion, event)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", itemdomain.ErrStore, topic, err)
	}
	if err := r.bus.PublishTx(ctx, tx, topic, msg); err != nil {
		return fmt.Errorf("%w: publish %s: %w", itemdomain.ErrStore, topic, err)
	}
	return nil
}

// isSlugViolation reports whether err is the unique violation on items.slug.
func isSlugViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == slugConstraint
}

func writeError(op string, err error) error {
	if isSlugViolation(err) {
		return itemdomain.ErrSlugTaken
	}
	return fmt.Errorf("%w: %s: %w", itemdomain.ErrStore, op, err)
}

func readError(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return itemdomain.ErrItemNotFound
	}
	return fmt.Errorf("%w: %s: %w", itemdomain.ErrStore, op, err)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// rowToItem maps a db.ItemRow to a domain models.Item.
func rowToItem(row db.ItemRow) *models.Item {
	return &models.Item{
		ID:          row.ID,
		Slug:        row.Slug,
		Name:        models.ItemName(row.Name),
		Description: row.Description.String,
		Quantity:    int(row.Quantity),
		Price:       row.Price,
		SKU:         row.SKU,
		Category:    row.Category,
		OwnerUserID: row.OwnerUserID,
		Owner: models.User{
			ID:    row.OwnerUserID,
			Name:  row.OwnerName.String,
			Email: row.OwnerEmail.String,
		},
		CreatedAt: row.CreatedAt.UTC(),
	}
}
