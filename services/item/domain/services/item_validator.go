// Package services contains stateless domain services for the item bounded context.
// Domain services enforce business rules that operate purely on domain types
// and have no infrastructure dependencies.
package services

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	itemdomain "github.com/ghuser/inventory/services/item/domain"
	"github.com/ghuser/inventory/services/item/domain/models"
)

const (
	maxTextFieldLength   = 255
	maxDescriptionLength = 2000
	maxQuantity          = 1<<31 - 1
	priceScale           = 2
)

// maxPrice matches NUMERIC(12,2).
var maxPrice = decimal.New(1, 10)

// ValidateName enforces business rules for an item name beyond the length
// constraints enforced by the ItemName constructor.
//
// Business rules:
//   - No leading or trailing whitespace
//   - Must not be only whitespace characters
//   - No control characters (Unicode category Cc)
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name is required")
	}
	if name != strings.TrimSpace(name) {
		return fmt.Errorf("name must not have leading or trailing whitespace")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("name must not contain control characters")
		}
	}
	if _, err := models.NewItemName(name); err != nil {
		return err
	}
	return nil
}

// ValidateFields checks every submitted attribute and reports all violations
// at once as a *ValidationError. Callers pass trimmed fields.
func ValidateFields(f models.ItemFields) error {
	var problems []string

	if err := ValidateName(f.Name); err != nil {
		problems = append(problems, err.Error())
	}
	problems = append(problems, requiredText("sku", f.SKU)...)
	problems = append(problems, requiredText("category", f.Category)...)

	if utf8.RuneCountInString(f.Description) > maxDescriptionLength {
		problems = append(problems, fmt.Sprintf("description must not exceed %d characters", maxDescriptionLength))
	}

	if f.Quantity < 0 {
		problems = append(problems, "quantity must not be negative")
	} else if f.Quantity > maxQuantity {
		problems = append(problems, fmt.Sprintf("quantity must not exceed %d", maxQuantity))
	}

	switch {
	case f.Price.IsNegative():
		problems = append(problems, "price must not be negative")
	case f.Price.GreaterThanOrEqual(maxPrice):
		problems = append(problems, fmt.Sprintf("price must be less than %s", maxPrice))
	case !f.Price.Equal(f.Price.Round(priceScale)):
		problems = append(problems, fmt.Sprintf("price must have at most %d decimal places", priceScale))
	}

	if len(problems) > 0 {
		return itemdomain.NewValidationError(problems...)
	}
	return nil
}

// ValidateItemForCreation performs cross-field validation on a constructed
// Item before it is persisted.
func ValidateItemForCreation(item *models.Item) error {
	if item == nil {
		return fmt.Errorf("item cannot be nil")
	}
	if item.OwnerUserID == "" {
		return fmt.Errorf("owner_user_id must be set")
	}
	if item.Slug == "" {
		return fmt.Errorf("slug must be set")
	}
	if item.ID != 0 {
		return fmt.Errorf("id is assigned by the store")
	}
	return nil
}

func requiredText(field, value string) []string {
	switch n := utf8.RuneCountInString(value); {
	case n == 0:
		return []string{field + " is required"}
	case n > maxTextFieldLength:
		return []string{fmt.Sprintf("%s must not exceed %d characters", field, maxTextFieldLength)}
	}
	return nil
}
