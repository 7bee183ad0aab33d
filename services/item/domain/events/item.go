package events

import (
	"time"

	"github.com/google/uuid"
)

// Watermill topics published by the item store inside the write transaction.
const (
	TopicItemCreated = "item.created"
	TopicItemUpdated = "item.updated"
	TopicItemDeleted = "item.deleted"
)

// SchemaVersion is bumped on breaking payload changes.
const SchemaVersion = 1

// ItemCreatedEvent is published after a new Item is persisted.
type ItemCreatedEvent struct {
	EventID     uuid.UUID `json:"event_id"` // Unique publish-time identifier for deduplication
	Version     int       `json:"version"`
	ItemID      int64     `json:"item_id"`
	Slug        string    `json:"slug"`
	OwnerUserID string    `json:"owner_user_id"`
	Name        string    `json:"name"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// ItemUpdatedEvent is published after an Item's fields are changed.
// PreviousSlug equals Slug when the name did not change.
type ItemUpdatedEvent struct {
	EventID      uuid.UUID `json:"event_id"`
	Version      int       `json:"version"`
	ItemID       int64     `json:"item_id"`
	Slug         string    `json:"slug"`
	PreviousSlug string    `json:"previous_slug"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// SlugChanged reports whether the update moved the item to a new slug.
func (e ItemUpdatedEvent) SlugChanged() bool {
	return e.Slug != e.PreviousSlug
}

// ItemDeletedEvent is published after an Item is hard-deleted. The slug is
// free for reuse from this point on.
type ItemDeletedEvent struct {
	EventID    uuid.UUID `json:"event_id"`
	Version    int       `json:"version"`
	ItemID     int64     `json:"item_id"`
	Slug       string    `json:"slug"`
	OccurredAt time.Time `json:"occurred_at"`
}
