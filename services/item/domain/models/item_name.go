package models

import (
	"fmt"
	"unicode/utf8"
)

// ItemName is a value object representing a valid item name.
// Encapsulates validation rules: 1 <= length <= 255 characters.
type ItemName string

const (
	minItemNameLength = 1
	maxItemNameLength = 255
)

// NewItemName constructs a valid ItemName or returns an error if constraints are violated.
func NewItemName(s string) (ItemName, error) {
	n := utf8.RuneCountInString(s)
	if n < minItemNameLength {
		return "", fmt.Errorf("name is required")
	}
	if n > maxItemNameLength {
		return "", fmt.Errorf("name must not exceed %d characters", maxItemNameLength)
	}
	return ItemName(s), nil
}

// String returns the underlying string value.
func (n ItemName) String() string {
	return string(n)
}
