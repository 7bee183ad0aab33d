package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Item is the core aggregate for this bounded context.
type Item struct {
	ID          int64 // store-assigned; zero until persisted
	Slug        string
	Name        ItemName
	Description string // optional; empty means none
	Quantity    int
	Price       decimal.Decimal
	SKU         string
	Category    string
	OwnerUserID string // immutable after creation
	Owner       User   // display fields, populated on reads
	CreatedAt   time.Time
}

// ItemFields are the user-editable attributes submitted on create and update.
type ItemFields struct {
	Name        string
	Description string
	Quantity    int
	Price       decimal.Decimal
	SKU         string
	Category    string
}

// Trimmed returns a copy with surrounding whitespace removed from text fields.
func (f ItemFields) Trimmed() ItemFields {
	f.Name = strings.TrimSpace(f.Name)
	f.Description = strings.TrimSpace(f.Description)
	f.SKU = strings.TrimSpace(f.SKU)
	f.Category = strings.TrimSpace(f.Category)
	return f
}

// NewItem constructs an unsaved Item owned by owner with the given slug.
// Fields must already be validated.
func NewItem(owner User, fields ItemFields, slug string) (*Item, error) {
	name, err := NewItemName(fields.Name)
	if err != nil {
		return nil, err
	}
	return &Item{
		Slug:        slug,
		Name:        name,
		Description: fields.Description,
		Quantity:    fields.Quantity,
		Price:       fields.Price,
		SKU:         fields.SKU,
		Category:    fields.Category,
		OwnerUserID: owner.ID,
		Owner:       owner,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// Apply overwrites the editable attributes. Identity, owner and creation time
// never change; the slug is set separately by the caller.
func (i *Item) Apply(fields ItemFields) error {
	name, err := NewItemName(fields.Name)
	if err != nil {
		return err
	}
	i.Name = name
	i.Description = fields.Description
	i.Quantity = fields.Quantity
	i.Price = fields.Price
	i.SKU = fields.SKU
	i.Category = fields.Category
	return nil
}

// OwnedBy reports whether userID owns the item.
func (i *Item) OwnedBy(userID string) bool {
	return userID != "" && i.OwnerUserID == userID
}
