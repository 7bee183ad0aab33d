package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/ghuser/inventory/services/item/domain/models"
)

func setupItemCache(t *testing.T) (*ItemCache, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewItemCache(Wrap(client)), s
}

func sampleItem() *models.Item {
	return &models.Item{
		ID:          12,
		Slug:        "red-widget",
		Name:        "Red Widget",
		Description: "bright",
		Quantity:    4,
		Price:       decimal.RequireFromString("19.99"),
		SKU:         "RW-1",
		Category:    "widgets",
		OwnerUserID: "u1",
		Owner:       models.User{ID: "u1", Name: "Ann", Email: "ann@example.com"},
		CreatedAt:   time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC),
	}
}

func TestItemCache_SetGet(t *testing.T) {
	c, s := setupItemCache(t)
	ctx := context.Background()
	item := sampleItem()

	if err := c.Set(ctx, item); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !s.Exists("item:slug:red-widget") {
		t.Fatal("expected hash under item:slug:red-widget")
	}
	if ttl := s.TTL("item:slug:red-widget"); ttl != ItemCacheTTL {
		t.Fatalf("expected TTL %v, got %v", ItemCacheTTL, ttl)
	}

	got, err := c.Get(ctx, "red-widget")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != item.ID || got.Name != item.Name || got.Quantity != item.Quantity {
		t.Fatalf("unexpected item %+v", got)
	}
	if !got.Price.Equal(item.Price) {
		t.Fatalf("expected price %s, got %s", item.Price, got.Price)
	}
	if got.Owner != item.Owner || !got.CreatedAt.Equal(item.CreatedAt) {
		t.Fatalf("unexpected owner or created_at: %+v", got)
	}
}

func TestItemCache_Miss(t *testing.T) {
	c, _ := setupItemCache(t)
	_, err := c.Get(context.Background(), "nothing-here")
	if !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss, got %v", err)
	}
}

func TestItemCache_Expires(t *testing.T) {
	c, s := setupItemCache(t)
	ctx := context.Background()
	if err := c.Set(ctx, sampleItem()); err != nil {
		t.Fatalf("Set: %v", err)
	}

	s.FastForward(ItemCacheTTL + time.Second)

	if _, err := c.Get(ctx, "red-widget"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss after TTL, got %v", err)
	}
}

func TestItemCache_SetReplacesStaleFields(t *testing.T) {
	c, _ := setupItemCache(t)
	ctx := context.Background()
	item := sampleItem()
	if err := c.Set(ctx, item); err != nil {
		t.Fatalf("Set: %v", err)
	}

	item.Description = ""
	if err := c.Set(ctx, item); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := c.Get(ctx, item.Slug)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Description != "" {
		t.Fatalf("expected cleared description, got %q", got.Description)
	}
}

func TestItemCache_Delete(t *testing.T) {
	c, s := setupItemCache(t)
	ctx := context.Background()
	item := sampleItem()
	if err := c.Set(ctx, item); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if err := c.Delete(ctx, "", item.Slug, "never-cached"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if s.Exists(Key(item.Slug)) {
		t.Fatal("expected key to be evicted")
	}
	if err := c.Delete(ctx); err != nil {
		t.Fatalf("Delete with no slugs: %v", err)
	}
}

func TestItemCache_CorruptEntry(t *testing.T) {
	c, s := setupItemCache(t)
	s.HSet(Key("broken"), "id", "not-a-number")

	_, err := c.Get(context.Background(), "broken")
	if err == nil || errors.Is(err, ErrMiss) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestItemCache_RedisDown(t *testing.T) {
	c, s := setupItemCache(t)
	s.Close()

	if _, err := c.Get(context.Background(), "red-widget"); err == nil || errors.Is(err, ErrMiss) {
		t.Fatalf("expected connection error, got %v", err)
	}
}
