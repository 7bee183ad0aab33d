package db

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// ItemRow is an items row joined with its owner's display fields.
type ItemRow struct {
	ID          int64
	Slug        string
	Name        string
	Description sql.NullString
	Quantity    int32
	Price       decimal.Decimal
	SKU         string
	Category    string
	OwnerUserID string
	CreatedAt   time.Time
	OwnerName   sql.NullString
	OwnerEmail  sql.NullString
}
