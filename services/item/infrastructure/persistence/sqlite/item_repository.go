// Package sqlite implements the item store on an embedded SQLite file for
// single-node and development deployments. It publishes no events.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"
	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/ghuser/inventory/pkg/database"
	"github.com/ghuser/inventory/pkg/migrator"
	itemdomain "github.com/ghuser/inventory/services/item/domain"
	"github.com/ghuser/inventory/services/item/domain/models"
	"github.com/ghuser/inventory/services/item/domain/repositories"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

var _ repositories.ItemRepository = (*ItemRepository)(nil)

// Migrate applies the embedded schema to d.
func Migrate(ctx context.Context, d *database.Database) error {
	files, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("sqlite migrations: %w", err)
	}
	if _, err := migrator.Up(ctx, d.DB(), goose.DialectSQLite3, files); err != nil {
		return fmt.Errorf("sqlite migrations: %w", err)
	}
	return nil
}

// ItemRepository implements repositories.ItemRepository using SQLite.
type ItemRepository struct {
	db *database.Database
}

// NewItemRepository returns an ItemRepository over an already-migrated database.
func NewItemRepository(d *database.Database) *ItemRepository {
	return &ItemRepository{db: d}
}

const selectItem = `
SELECT i.id, i.slug, i.name, COALESCE(i.description, ''), i.quantity, i.price, i.sku, i.category,
       i.owner_user_id, i.created_at, COALESCE(u.name, ''), COALESCE(u.email, '')
FROM items i
LEFT JOIN users u ON u.id = i.owner_user_id
`

func (r *ItemRepository) FindByID(ctx context.Context, id int64) (*models.Item, error) {
	return r.findOne(ctx, selectItem+"WHERE i.id = ?", id)
}

func (r *ItemRepository) FindBySlug(ctx context.Context, slug string) (*models.Item, error) {
	return r.findOne(ctx, selectItem+"WHERE i.slug = ?", slug)
}

func (r *ItemRepository) findOne(ctx context.Context, query string, arg any) (*models.Item, error) {
	item, err := scanItem(r.db.DB().QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, itemdomain.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: query item: %w", itemdomain.ErrStore, err)
	}
	return item, nil
}

func (r *ItemRepository) FindAll(ctx context.Context) ([]*models.Item, error) {
	rows, err := r.db.DB().QueryContext(ctx, selectItem+"ORDER BY i.id ASC")
	if err != nil {
		return nil, fmt.Errorf("%w: list items: %w", itemdomain.ErrStore, err)
	}
	defer rows.Close() //nolint:errcheck

	items := []*models.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan item: %w", itemdomain.ErrStore, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list items: %w", itemdomain.ErrStore, err)
	}
	return items, nil
}

func (r *ItemRepository) Create(ctx context.Context, item *models.Item) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO users (id, name, email) VALUES (?, ?, ?)
			 ON CONFLICT (id) DO UPDATE SET name = excluded.name, email = excluded.email`,
			item.Owner.ID, nullable(item.Owner.Name), item.Owner.Email,
		)
		if err != nil {
			return fmt.Errorf("%w: upsert user: %w", itemdomain.ErrStore, err)
		}

		result, err := tx.ExecContext(ctx,
			`INSERT INTO items (slug, name, description, quantity, price, sku, category, owner_user_id, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			item.Slug, item.Name.String(), nullable(item.Description), item.Quantity,
			item.Price.StringFixed(2), item.SKU, item.Category, item.OwnerUserID,
			item.CreatedAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return writeError("insert item", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("%w: last insert id: %w", itemdomain.ErrStore, err)
		}
		item.ID = id
		return nil
	})
}

func (r *ItemRepository) Update(ctx context.Context, item *models.Item, _ string) error {
	result, err := r.db.DB().ExecContext(ctx,
		`UPDATE items
		 SET slug = ?, name = ?, description = ?, quantity = ?, price = ?, sku = ?, category = ?
		 WHERE id = ?`,
		item.Slug, item.Name.String(), nullable(item.Description), item.Quantity,
		item.Price.StringFixed(2), item.SKU, item.Category, item.ID,
	)
	if err != nil {
		return writeError("update item", err)
	}
	return requireRow(result, "update item")
}

func (r *ItemRepository) Delete(ctx context.Context, item *models.Item) error {
	result, err := r.db.DB().ExecContext(ctx, `DELETE FROM items WHERE id = ?`, item.ID)
	if err != nil {
		return fmt.Errorf("%w: delete item: %w", itemdomain.ErrStore, err)
	}
	return requireRow(result, "delete item")
}

func requireRow(result sql.Result, op string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %s: %w", itemdomain.ErrStore, op, err)
	}
	if n == 0 {
		return itemdomain.ErrItemNotFound
	}
	return nil
}

// isSlugViolation reports whether err is the UNIQUE failure on items.slug.
func isSlugViolation(err error) bool {
	var sqliteErr *sqlitedrv.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	// Primary code in the low byte; SQLITE_CONSTRAINT_UNIQUE when extended codes are on.
	if sqliteErr.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
		return false
	}
	return strings.Contains(sqliteErr.Error(), "items.slug")
}

func writeError(op string, err error) error {
	if isSlugViolation(err) {
		return itemdomain.ErrSlugTaken
	}
	return fmt.Errorf("%w: %s: %w", itemdomain.ErrStore, op, err)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*models.Item, error) {
	var (
		item      models.Item
		name      string
		price     string
		createdAt string
	)
	err := row.Scan(
		&item.ID,
		&item.Slug,
		&name,
		&item.Description,
		&item.Quantity,
		&price,
		&item.SKU,
		&item.Category,
		&item.OwnerUserID,
		&createdAt,
		&item.Owner.Name,
		&item.Owner.Email,
	)
	if err != nil {
		return nil, err
	}

	item.Name = models.ItemName(name)
	item.Owner.ID = item.OwnerUserID
	if item.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parse price %q: %w", price, err)
	}
	if item.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	return &item, nil
}
