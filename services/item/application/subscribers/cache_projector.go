// Package subscribers holds the worker-side handlers for item domain events.
package subscribers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/ghuser/inventory/pkg/events"
	"github.com/ghuser/inventory/pkg/logger"
	itemdomain "github.com/ghuser/inventory/services/item/domain"
	itemEvents "github.com/ghuser/inventory/services/item/domain/events"
	"github.com/ghuser/inventory/services/item/domain/models"
)

// ItemLoader reads the current state of an item.
type ItemLoader interface {
	FindByID(ctx context.Context, id int64) (*models.Item, error)
}

// ItemCache is the slug-keyed cache the projector keeps warm.
type ItemCache interface {
	Set(ctx context.Context, item *models.Item) error
	Delete(ctx context.Context, slugs ...string) error
}

// Subscriber is satisfied by *events.EventBus.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string, handler func(context.Context, *message.Message) error) (<-chan error, error)
}

// CacheProjector keeps the slug cache in line with item events. Handlers are
// idempotent. Store failures are returned so the bus retries them, payloads
// that do not decode are permanent, and cache failures are only logged.
type CacheProjector struct {
	items ItemLoader
	cache ItemCache
	log   logger.Logger
}

func NewCacheProjector(items ItemLoader, cache ItemCache, log logger.Logger) *CacheProjector {
	return &CacheProjector{items: items, cache: cache, log: log}
}

// Register subscribes every handler and drains subscriber errors into the log.
func (p *CacheProjector) Register(ctx context.Context, bus Subscriber) error {
	handlers := map[string]func(context.Context, *message.Message) error{
		itemEvents.TopicItemCreated: p.HandleCreated,
		itemEvents.TopicItemUpdated: p.HandleUpdated,
		itemEvents.TopicItemDeleted: p.HandleDeleted,
	}
	topics := make([]string, 0, len(handlers))
	for topic, h := range handlers {
		errCh, err := bus.Subscribe(ctx, topic, h)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
		go func() {
			for err := range errCh {
				p.log.ErrorContext(ctx, "subscriber error", "topic", topic, "error", err)
			}
		}()
		topics = append(topics, topic)
	}
	p.log.Info("event subscribers registered", "topics", topics)
	return nil
}

// HandleCreated warms the cache with the new item.
func (p *CacheProjector) HandleCreated(ctx context.Context, msg *message.Message) error {
	var evt itemEvents.ItemCreatedEvent
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		return events.Permanent(fmt.Errorf("decode %s: %w", itemEvents.TopicItemCreated, err))
	}
	return p.warm(ctx, evt.ItemID)
}

// HandleUpdated evicts the previous slug when it changed, then re-warms.
func (p *CacheProjector) HandleUpdated(ctx context.Context, msg *message.Message) error {
	var evt itemEvents.ItemUpdatedEvent
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		return events.Permanent(fmt.Errorf("decode %s: %w", itemEvents.TopicItemUpdated, err))
	}
	if evt.SlugChanged() {
		p.evict(ctx, evt.ItemID, evt.PreviousSlug)
	}
	return p.warm(ctx, evt.ItemID)
}

// HandleDeleted evicts the deleted item's slug.
func (p *CacheProjector) HandleDeleted(ctx context.Context, msg *message.Message) error {
	var evt itemEvents.ItemDeletedEvent
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		return events.Permanent(fmt.Errorf("decode %s: %w", itemEvents.TopicItemDeleted, err))
	}
	p.evict(ctx, evt.ItemID, evt.Slug)
	return nil
}

func (p *CacheProjector) warm(ctx context.Context, id int64) error {
	item, err := p.items.FindByID(ctx, id)
	if errors.Is(err, itemdomain.ErrItemNotFound) {
		// Deleted before the event was handled; the delete event evicts.
		p.log.DebugContext(ctx, "skip cache warm for missing item", "item_id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load item %d: %w", id, err)
	}
	if err := p.cache.Set(ctx, item); err != nil {
		p.log.WarnContext(ctx, "cache warm failed", "item_id", id, "slug", item.Slug, "error", err)
		return nil
	}
	p.log.InfoContext(ctx, "cache warmed", "item_id", id, "slug", item.Slug)
	return nil
}

func (p *CacheProjector) evict(ctx context.Context, id int64, slug string) {
	if err := p.cache.Delete(ctx, slug); err != nil {
		p.log.WarnContext(ctx, "cache eviction failed", "item_id", id, "slug", slug, "error", err)
		return
	}
	p.log.InfoContext(ctx, "cache evicted", "item_id", id, "slug", slug)
}
