package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/ghuser/inventory/services/item/domain/models"
)

const (
	// ItemCacheTTL bounds how long a slug lookup may be served from Redis.
	ItemCacheTTL = 24 * time.Hour

	itemCacheKeyPrefix = "item:slug:"
)

// ErrMiss is returned by Get when the slug has no cache entry.
var ErrMiss = redis.Nil

// ItemCache is a read-through cache of items keyed by slug.
// Key format: "item:slug:{slug}", stored as a Redis hash.
type ItemCache struct {
	client *RedisClient
	ttl    time.Duration
}

// NewItemCache creates a new ItemCache backed by the given RedisClient.
func NewItemCache(r *RedisClient) *ItemCache {
	return &ItemCache{client: r, ttl: ItemCacheTTL}
}

// Get returns the cached item for slug, or ErrMiss.
func (c *ItemCache) Get(ctx context.Context, slug string) (*models.Item, error) {
	vals, err := c.client.Client().HGetAll(ctx, Key(slug)).Result()
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	if len(vals) == 0 {
		return nil, ErrMiss
	}
	item, err := decodeItem(vals)
	if err != nil {
		return nil, fmt.Errorf("cache decode %s: %w", slug, err)
	}
	return item, nil
}

// Set stores item under its current slug and refreshes the TTL.
func (c *ItemCache) Set(ctx context.Context, item *models.Item) error {
	key := Key(item.Slug)
	pipe := c.client.Client().TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, encodeItem(item))
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Delete evicts the given slugs. Empty slugs are ignored.
func (c *ItemCache) Delete(ctx context.Context, slugs ...string) error {
	keys := make([]string, 0, len(slugs))
	for _, s := range slugs {
		if s != "" {
			keys = append(keys, Key(s))
		}
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Client().Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// Key builds the Redis key for slug.
func Key(slug string) string {
	return itemCacheKeyPrefix + slug
}

func encodeItem(item *models.Item) map[string]any {
	return map[string]any{
		"id":            strconv.FormatInt(item.ID, 10),
		"slug":          item.Slug,
		"name":          item.Name.String(),
		"description":   item.Description,
		"quantity":      strconv.Itoa(item.Quantity),
		"price":         item.Price.String(),
		"sku":           item.SKU,
		"category":      item.Category,
		"owner_user_id": item.OwnerUserID,
		"owner_name":    item.Owner.Name,
		"owner_email":   item.Owner.Email,
		"created_at":    item.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func decodeItem(vals map[string]string) (*models.Item, error) {
	id, err := strconv.ParseInt(vals["id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse id: %w", err)
	}
	quantity, err := strconv.Atoi(vals["quantity"])
	if err != nil {
		return nil, fmt.Errorf("parse quantity: %w", err)
	}
	price, err := decimal.NewFromString(vals["price"])
	if err != nil {
		return nil, fmt.Errorf("parse price: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, vals["created_at"])
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	return &models.Item{
		ID:          id,
		Slug:        vals["slug"],
		Name:        models.ItemName(vals["name"]),
		Description: vals["description"],
		Quantity:    quantity,
		Price:       price,
		SKU:         vals["sku"],
		Category:    vals["category"],
		OwnerUserID: vals["owner_user_id"],
		Owner: models.User{
			ID:    vals["owner_user_id"],
			Name:  vals["owner_name"],
			Email: vals["owner_email"],
		},
		CreatedAt: createdAt,
	}, nil
}
