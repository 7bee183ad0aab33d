package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

const selectItem = `
SELECT i.id, i.slug, i.name, i.description, i.quantity, i.price::text, i.sku, i.category,
       i.owner_user_id, i.created_at, u.name, u.email
FROM items i
LEFT JOIN users u ON u.id = i.owner_user_id
`

const getItemByID = selectItem + `WHERE i.id = $1`

func (q *Queries) GetItemByID(ctx context.Context, id int64) (ItemRow, error) {
	return scanItem(q.db.QueryRowContext(ctx, getItemByID, id))
}

const getItemBySlug = selectItem + `WHERE i.slug = $1`

func (q *Queries) GetItemBySlug(ctx context.Context, slug string) (ItemRow, error) {
	return scanItem(q.db.QueryRowContext(ctx, getItemBySlug, slug))
}

const listItems = selectItem + `ORDER BY i.id ASC`

func (q *Queries) ListItems(ctx context.Context) ([]ItemRow, error) {
	rows, err := q.db.QueryContext(ctx, listItems)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ItemRow
	for rows.Next() {
		i, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertUser = `
INSERT INTO users (id, name, email)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email
`

type UpsertUserParams struct {
	ID    string
	Name  sql.NullString
	Email string
}

func (q *Queries) UpsertUser(ctx context.Context, arg UpsertUserParams) error {
	_, err := q.db.ExecContext(ctx, upsertUser, arg.ID, arg.Name, arg.Email)
	return err
}

const insertItem = `
INSERT INTO items (slug, name, description, quantity, price, sku, category, owner_user_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id
`

type InsertItemParams struct {
	Slug        string
	Name        string
	Description sql.NullString
	Quantity    int32
	Price       decimal.Decimal
	SKU         string
	Category    string
	OwnerUserID string
	CreatedAt   time.Time
}

func (q *Queries) InsertItem(ctx context.Context, arg InsertItemParams) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, insertItem,
		arg.Slug,
		arg.Name,
		arg.Description,
		arg.Quantity,
		arg.Price.StringFixed(2),
		arg.SKU,
		arg.Category,
		arg.OwnerUserID,
		arg.CreatedAt,
	).Scan(&id)
	return id, err
}

const updateItem = `
UPDATE items
SET slug = $2, name = $3, description = $4, quantity = $5, price = $6, sku = $7, category = $8
WHERE id = $1
`

type UpdateItemParams struct {
	ID          int64
	Slug        string
	Name        string
	Description sql.NullString
	Quantity    int32
	Price       decimal.Decimal
	SKU         string
	Category    string
}

// UpdateItem returns the number of rows changed.
func (q *Queries) UpdateItem(ctx context.Context, arg UpdateItemParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateItem,
		arg.ID,
		arg.Slug,
		arg.Name,
		arg.Description,
		arg.Quantity,
		arg.Price.StringFixed(2),
		arg.SKU,
		arg.Category,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteItem = `DELETE FROM items WHERE id = $1`

// DeleteItem returns the number of rows removed.
func (q *Queries) DeleteItem(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteItem, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (ItemRow, error) {
	var i ItemRow
	var price string
	err := row.Scan(
		&i.ID,
		&i.Slug,
		&i.Name,
		&i.Description,
		&i.Quantity,
		&price,
		&i.SKU,
		&i.Category,
		&i.OwnerUserID,
		&i.CreatedAt,
		&i.OwnerName,
		&i.OwnerEmail,
	)
	if err != nil {
		return i, err
	}
	i.Price, err = decimal.NewFromString(price)
	return i, err
}
