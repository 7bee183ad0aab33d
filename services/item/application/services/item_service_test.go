package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/ghuser/inventory/pkg/cache"
	"github.com/ghuser/inventory/pkg/logger"
	itemdomain "github.com/ghuser/inventory/services/item/domain"
	"github.com/ghuser/inventory/services/item/domain/models"
	domainsvcs "github.com/ghuser/inventory/services/item/domain/services"
)

var (
	alice = models.User{ID: "1", Name: "Alice", Email: "alice@example.com"}
	bob   = models.User{ID: "2", Email: "bob@example.com"}
)

func redWidget() models.ItemFields {
	return models.ItemFields{
		Name:     "Red Widget",
		SKU:      "RW1",
		Category: "Widgets",
		Quantity: 5,
		Price:    decimal.RequireFromString("9.99"),
	}
}

func named(name string) models.ItemFields {
	f := redWidget()
	f.Name = name
	return f
}

func newTestService(repo *fakeRepo) *ItemService {
	return NewItemService(repo, nil, logger.Discard())
}

func newCachedService(t *testing.T, repo *fakeRepo) (*ItemService, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewItemService(repo, cache.NewItemCache(cache.Wrap(client)), logger.Discard()), s
}

func mustCreate(t *testing.T, svc *ItemService, owner models.User, fields models.ItemFields) *models.Item {
	t.Helper()
	item, err := svc.Create(context.Background(), owner, fields)
	if err != nil {
		t.Fatalf("Create(%q): %v", fields.Name, err)
	}
	return item
}

func TestCreate_SequentialSlugsHaveNoGaps(t *testing.T) {
	svc := newTestService(newFakeRepo())

	names := []string{"Red Widget", "red widget", "RED  WIDGET!", "Red-Widget", "  Red Widget  "}
	for i, name := range names {
		item := mustCreate(t, svc, alice, named(name))
		want := domainsvcs.SlugCandidate("red-widget", i)
		if item.Slug != want {
			t.Fatalf("item %d: expected slug %q, got %q", i, want, item.Slug)
		}
	}
}

func TestCreate_RedWidgetScenario(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	first := mustCreate(t, svc, alice, redWidget())
	if first.Slug != "red-widget" {
		t.Fatalf("expected red-widget, got %q", first.Slug)
	}
	second := mustCreate(t, svc, bob, redWidget())
	if second.Slug != "red-widget-1" {
		t.Fatalf("expected red-widget-1, got %q", second.Slug)
	}

	updated, err := svc.Update(ctx, first.ID, alice.ID, redWidget())
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Slug != "red-widget" {
		t.Fatalf("expected slug to remain red-widget, got %q", updated.Slug)
	}
}

func TestCreate_RecordsOwner(t *testing.T) {
	item := mustCreate(t, newTestService(newFakeRepo()), alice, redWidget())
	if item.OwnerUserID != alice.ID || item.Owner != alice {
		t.Fatalf("expected owner %+v, got %q / %+v", alice, item.OwnerUserID, item.Owner)
	}
	if item.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set")
	}
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.ItemFields)
	}{
		{"blank name", func(f *models.ItemFields) { f.Name = "  " }},
		{"punctuation only name", func(f *models.ItemFields) { f.Name = "!!!" }},
		{"missing sku", func(f *models.ItemFields) { f.SKU = "" }},
		{"missing category", func(f *models.ItemFields) { f.Category = " " }},
		{"negative quantity", func(f *models.ItemFields) { f.Quantity = -1 }},
		{"negative price", func(f *models.ItemFields) { f.Price = decimal.RequireFromString("-0.01") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			fields := redWidget()
			tt.mutate(&fields)

			_, err := newTestService(repo).Create(context.Background(), alice, fields)

			var verr *itemdomain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if len(verr.Problems) == 0 {
				t.Fatal("expected at least one problem")
			}
			if repo.creates != 0 {
				t.Fatalf("store must not be written on invalid input, got %d creates", repo.creates)
			}
		})
	}
}

func TestCreate_RequiresOwner(t *testing.T) {
	_, err := newTestService(newFakeRepo()).Create(context.Background(), models.User{}, redWidget())
	if !errors.Is(err, itemdomain.ErrSignInRequired) {
		t.Fatalf("expected ErrSignInRequired, got %v", err)
	}
}

func TestCreate_RetriesOnceAfterConcurrentWrite(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	var once sync.Once
	repo.beforeWrite = func(item *models.Item) {
		// Another request claims the predicted slug between lookup and write.
		once.Do(func() { repo.insert(models.Item{Slug: item.Slug, Name: "Red Widget", OwnerUserID: bob.ID}) })
	}

	item := mustCreate(t, svc, alice, redWidget())
	if item.Slug != "red-widget-1" {
		t.Fatalf("expected retry to land on red-widget-1, got %q", item.Slug)
	}
	if repo.creates != 2 {
		t.Fatalf("expected 2 write attempts, got %d", repo.creates)
	}
}

func TestCreate_ConflictAfterBoundedAttempts(t *testing.T) {
	repo := newFakeRepo()
	repo.alwaysTaken = true

	_, err := newTestService(repo).Create(context.Background(), alice, redWidget())
	if !errors.Is(err, itemdomain.ErrSlugConflict) {
		t.Fatalf("expected ErrSlugConflict, got %v", err)
	}
	if repo.creates != maxSlugAttempts {
		t.Fatalf("expected %d write attempts, got %d", maxSlugAttempts, repo.creates)
	}
}

func TestCreate_StoreFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.failWith = fmt.Errorf("%w: connection refused", itemdomain.ErrStore)

	_, err := newTestService(repo).Create(context.Background(), alice, redWidget())
	if !errors.Is(err, itemdomain.ErrStore) {
		t.Fatalf("expected ErrStore, got %v", err)
	}
}

func TestCreate_ConcurrentSameNameAllDistinct(t *testing.T) {
	svc := newTestService(newFakeRepo())
	const writers = 10

	var wg sync.WaitGroup
	slugs := make(chan string, writers)
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			item, err := svc.Create(context.Background(), alice, redWidget())
			if err != nil {
				errs <- err
				return
			}
			slugs <- item.Slug
		}()
	}
	wg.Wait()
	close(slugs)
	close(errs)

	seen := map[string]bool{}
	for s := range slugs {
		if seen[s] {
			t.Fatalf("duplicate slug %q", s)
		}
		seen[s] = true
	}
	for err := range errs {
		if !errors.Is(err, itemdomain.ErrSlugConflict) {
			t.Fatalf("only ErrSlugConflict may surface under contention, got %v", err)
		}
	}
}

func TestUpdate_RenameToSameBaseIsNoop(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	item := mustCreate(t, svc, alice, redWidget())
	for _, name := range []string{"red widget", "RED WIDGET", "Red, Widget!"} {
		updated, err := svc.Update(ctx, item.ID, alice.ID, named(name))
		if err != nil {
			t.Fatalf("Update(%q): %v", name, err)
		}
		if updated.Slug != "red-widget" {
			t.Fatalf("Update(%q): expected red-widget, got %q", name, updated.Slug)
		}
	}
	for _, call := range repo.updates {
		if call.Slug != call.PreviousSlug {
			t.Fatalf("expected no slug change to be written, got %+v", call)
		}
	}
}

func TestUpdate_SuffixedItemKeepsItsSlug(t *testing.T) {
	svc := newTestService(newFakeRepo())
	ctx := context.Background()

	mustCreate(t, svc, alice, redWidget())
	second := mustCreate(t, svc, bob, redWidget())

	updated, err := svc.Update(ctx, second.ID, bob.ID, named("Red Widget!"))
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Slug != "red-widget-1" {
		t.Fatalf("expected red-widget-1 to be kept, got %q", updated.Slug)
	}
}

func TestUpdate_RenameAssignsNewSlug(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	item := mustCreate(t, svc, alice, redWidget())
	mustCreate(t, svc, bob, named("Blue Widget"))

	updated, err := svc.Update(ctx, item.ID, alice.ID, named("Blue Widget"))
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Slug != "blue-widget-1" {
		t.Fatalf("expected blue-widget-1, got %q", updated.Slug)
	}
	if updated.Name.String() != "Blue Widget" || updated.ID != item.ID || updated.OwnerUserID != alice.ID {
		t.Fatalf("unexpected item after update: %+v", updated)
	}
	if _, err := repo.FindBySlug(ctx, "red-widget"); !errors.Is(err, itemdomain.ErrItemNotFound) {
		t.Fatalf("expected old slug to be free, got %v", err)
	}
}

func TestUpdate_NonOwnerRejected(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	item := mustCreate(t, svc, alice, redWidget())

	if _, err := svc.Update(ctx, item.ID, bob.ID, named("Stolen")); !errors.Is(err, itemdomain.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if _, err := svc.Update(ctx, item.ID, "", named("Stolen")); !errors.Is(err, itemdomain.ErrSignInRequired) {
		t.Fatalf("expected ErrSignInRequired, got %v", err)
	}
	if len(repo.updates) != 0 {
		t.Fatalf("store must not be written, got %+v", repo.updates)
	}
}

func TestUpdate_MissingItem(t *testing.T) {
	_, err := newTestService(newFakeRepo()).Update(context.Background(), 404, alice.ID, redWidget())
	if !errors.Is(err, itemdomain.ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
}

func TestUpdate_InvalidFields(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	item := mustCreate(t, svc, alice, redWidget())

	_, err := svc.Update(context.Background(), item.ID, alice.ID, named(" "))
	var verr *itemdomain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(repo.updates) != 0 {
		t.Fatalf("store must not be written, got %+v", repo.updates)
	}
}

func TestUpdate_ConflictAfterBoundedAttempts(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	item := mustCreate(t, svc, alice, redWidget())
	repo.alwaysTaken = true

	_, err := svc.Update(context.Background(), item.ID, alice.ID, named("Green Widget"))
	if !errors.Is(err, itemdomain.ErrSlugConflict) {
		t.Fatalf("expected ErrSlugConflict, got %v", err)
	}
	if len(repo.updates) != maxSlugAttempts {
		t.Fatalf("expected %d write attempts, got %d", maxSlugAttempts, len(repo.updates))
	}
}

func TestDelete(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	item := mustCreate(t, svc, alice, redWidget())

	if err := svc.Delete(ctx, item.ID, bob.ID); !errors.Is(err, itemdomain.ErrNotAuthorized) {
		t.Fatalf("non-owner: expected ErrNotAuthorized, got %v", err)
	}
	if err := svc.Delete(ctx, item.ID, ""); !errors.Is(err, itemdomain.ErrSignInRequired) {
		t.Fatalf("anonymous: expected ErrSignInRequired, got %v", err)
	}
	if err := svc.Delete(ctx, item.ID, alice.ID); err != nil {
		t.Fatalf("owner: %v", err)
	}
	if err := svc.Delete(ctx, item.ID, alice.ID); !errors.Is(err, itemdomain.ErrItemNotFound) {
		t.Fatalf("repeat delete: expected ErrItemNotFound, got %v", err)
	}
	if err := svc.Delete(ctx, 999, alice.ID); !errors.Is(err, itemdomain.ErrItemNotFound) {
		t.Fatalf("unknown id: expected ErrItemNotFound, got %v", err)
	}

	again := mustCreate(t, svc, bob, redWidget())
	if again.Slug != "red-widget" {
		t.Fatalf("expected freed slug to be reused, got %q", again.Slug)
	}
}

func TestResolve(t *testing.T) {
	svc := newTestService(newFakeRepo())
	ctx := context.Background()
	item := mustCreate(t, svc, alice, redWidget())

	tests := []struct {
		name       string
		ref        ItemRef
		acting     string
		wantAccess domainsvcs.Access
	}{
		{"owner by id", ItemRef{ID: item.ID}, alice.ID, domainsvcs.AccessFull},
		{"non-owner by id", ItemRef{ID: item.ID}, bob.ID, domainsvcs.AccessViewOnly},
		{"non-owner by slug", ItemRef{Slug: "red-widget"}, bob.ID, domainsvcs.AccessViewOnly},
		{"anonymous by slug", ItemRef{Slug: "red-widget"}, "", domainsvcs.AccessViewOnly},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Resolve(ctx, tt.ref, tt.acting)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if res.Item.ID != item.ID {
				t.Fatalf("expected item %d, got %d", item.ID, res.Item.ID)
			}
			if res.Access != tt.wantAccess || res.IsOwner != (tt.wantAccess == domainsvcs.AccessFull) {
				t.Fatalf("expected %v, got %v (is_owner=%v)", tt.wantAccess, res.Access, res.IsOwner)
			}
		})
	}

	if _, err := svc.Update(ctx, item.ID, bob.ID, named("Mine")); !errors.Is(err, itemdomain.ErrNotAuthorized) {
		t.Fatalf("update by the same non-owner must fail, got %v", err)
	}
}

func TestResolve_NotFound(t *testing.T) {
	svc := newTestService(newFakeRepo())
	for _, ref := range []ItemRef{{ID: 5}, {Slug: "ghost"}, {}} {
		if _, err := svc.Resolve(context.Background(), ref, alice.ID); !errors.Is(err, itemdomain.ErrItemNotFound) {
			t.Fatalf("%+v: expected ErrItemNotFound, got %v", ref, err)
		}
	}
}

func TestEdit(t *testing.T) {
	svc := newTestService(newFakeRepo())
	ctx := context.Background()
	item := mustCreate(t, svc, alice, redWidget())

	tests := []struct {
		name     string
		id       int64
		acting   string
		wantItem bool
		want     *domainsvcs.Redirect
	}{
		{"owner", item.ID, alice.ID, true, nil},
		{"non-owner", item.ID, bob.ID, false, &domainsvcs.Redirect{Target: domainsvcs.RedirectCanonicalView, Slug: "red-widget"}},
		{"anonymous", item.ID, "", false, &domainsvcs.Redirect{Target: domainsvcs.RedirectSignIn}},
		{"unknown id", 999, alice.ID, false, &domainsvcs.Redirect{Target: domainsvcs.RedirectListing}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Edit(ctx, tt.id, tt.acting)
			if err != nil {
				t.Fatalf("Edit: %v", err)
			}
			if (res.Item != nil) != tt.wantItem {
				t.Fatalf("expected item=%v, got %+v", tt.wantItem, res.Item)
			}
			if tt.want == nil {
				if res.Redirect != nil {
					t.Fatalf("expected no redirect, got %+v", res.Redirect)
				}
				return
			}
			if res.Redirect == nil || *res.Redirect != *tt.want {
				t.Fatalf("expected redirect %+v, got %+v", tt.want, res.Redirect)
			}
		})
	}
}

func TestList_OrderedWithOwnership(t *testing.T) {
	svc := newTestService(newFakeRepo())
	mustCreate(t, svc, alice, named("Zeta"))
	mustCreate(t, svc, bob, named("Alpha"))

	list, err := svc.List(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].Item.Slug != "zeta" || list[1].Item.Slug != "alpha" {
		t.Fatalf("expected items in id order, got %+v", list)
	}
	if !list[0].IsOwner || list[1].IsOwner {
		t.Fatalf("unexpected ownership flags: %v, %v", list[0].IsOwner, list[1].IsOwner)
	}
}

func TestResolve_ReadThroughCache(t *testing.T) {
	repo := newFakeRepo()
	svc, s := newCachedService(t, repo)
	ctx := context.Background()
	item := mustCreate(t, svc, alice, redWidget())
	s.FlushAll()

	if _, err := svc.Resolve(ctx, ItemRef{Slug: item.Slug}, bob.ID); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !s.Exists(cache.Key(item.Slug)) {
		t.Fatal("expected resolve to warm the cache")
	}

	// Served from cache even if the store is unavailable.
	repo.failWith = errors.New("store down")
	res, err := svc.Resolve(ctx, ItemRef{Slug: item.Slug}, alice.ID)
	if err != nil {
		t.Fatalf("expected cached resolve, got %v", err)
	}
	if !res.IsOwner || !res.Item.Price.Equal(item.Price) {
		t.Fatalf("unexpected cached resolution %+v", res)
	}
}

func TestUpdateAndDelete_EvictCache(t *testing.T) {
	repo := newFakeRepo()
	svc, s := newCachedService(t, repo)
	ctx := context.Background()
	item := mustCreate(t, svc, alice, redWidget())

	if _, err := svc.Resolve(ctx, ItemRef{Slug: "red-widget"}, alice.ID); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if _, err := svc.Update(ctx, item.ID, alice.ID, named("Crimson Widget")); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if s.Exists(cache.Key("red-widget")) {
		t.Fatal("expected previous slug to be evicted on rename")
	}
	if _, err := svc.Resolve(ctx, ItemRef{Slug: "red-widget"}, alice.ID); !errors.Is(err, itemdomain.ErrItemNotFound) {
		t.Fatalf("expected old slug to stop resolving, got %v", err)
	}

	if _, err := svc.Resolve(ctx, ItemRef{Slug: "crimson-widget"}, alice.ID); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if err := svc.Delete(ctx, item.ID, alice.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if s.Exists(cache.Key("crimson-widget")) {
		t.Fatal("expected slug to be evicted on delete")
	}
}

func TestResolve_CacheOutageFallsBackToStore(t *testing.T) {
	repo := newFakeRepo()
	svc, s := newCachedService(t, repo)
	item := mustCreate(t, svc, alice, redWidget())
	s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := svc.Resolve(ctx, ItemRef{Slug: item.Slug}, alice.ID)
	if err != nil {
		t.Fatalf("expected store fallback, got %v", err)
	}
	if res.Item.ID != item.ID {
		t.Fatalf("unexpected item %+v", res.Item)
	}
}

func TestCreate_WarmsCache(t *testing.T) {
	repo := newFakeRepo()
	svc, s := newCachedService(t, repo)
	item := mustCreate(t, svc, alice, redWidget())

	if !s.Exists(cache.Key(item.Slug)) {
		t.Fatal("expected create to cache the new item")
	}
	if got := s.HGet(cache.Key(item.Slug), "id"); got != fmt.Sprint(item.ID) {
		t.Fatalf("expected cached id %d, got %q", item.ID, got)
	}
}

func TestResolve_DeleteDuringFillThenRecreate(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newCachedService(t, repo)
	ctx := context.Background()
	old := mustCreate(t, svc, alice, redWidget())
	_ = svc.cache.Delete(ctx, old.Slug)

	// The delete commits after Resolve read the store but before it fills the cache.
	repo.afterSlugRead = func() {
		if err := svc.Delete(ctx, old.ID, alice.ID); err != nil {
			t.Errorf("Delete: %v", err)
		}
	}
	if _, err := svc.Resolve(ctx, ItemRef{Slug: old.Slug}, bob.ID); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	fresh := mustCreate(t, svc, bob, redWidget())
	if fresh.Slug != old.Slug {
		t.Fatalf("expected slug %q to be reused, got %q", old.Slug, fresh.Slug)
	}
	res, err := svc.Resolve(ctx, ItemRef{Slug: fresh.Slug}, bob.ID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Item.ID != fresh.ID || res.Item.OwnerUserID != bob.ID || !res.IsOwner {
		t.Fatalf("expected live item %d owned by bob, got id=%d owner=%s isOwner=%v",
			fresh.ID, res.Item.ID, res.Item.OwnerUserID, res.IsOwner)
	}
}

func TestResolve_DeletedItemLeftInCacheIsReplacedOnRecreate(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newCachedService(t, repo)
	ctx := context.Background()
	old := mustCreate(t, svc, alice, redWidget())

	// Deleted behind the service's back, as when eviction fails: the key stays.
	if err := repo.Delete(ctx, old); err != nil {
		t.Fatalf("repo.Delete: %v", err)
	}

	fresh := mustCreate(t, svc, bob, redWidget())
	res, err := svc.Resolve(ctx, ItemRef{Slug: fresh.Slug}, bob.ID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Item.ID != fresh.ID || !res.IsOwner {
		t.Fatalf("expected live item %d, got id=%d isOwner=%v", fresh.ID, res.Item.ID, res.IsOwner)
	}
}

func TestResolve_EditDuringFillDropsCachedCopy(t *testing.T) {
	repo := newFakeRepo()
	svc, s := newCachedService(t, repo)
	ctx := context.Background()
	item := mustCreate(t, svc, alice, redWidget())
	s.FlushAll()

	edited := redWidget()
	edited.Quantity = 42
	repo.afterSlugRead = func() {
		if _, err := svc.Update(ctx, item.ID, alice.ID, edited); err != nil {
			t.Errorf("Update: %v", err)
		}
	}
	if _, err := svc.Resolve(ctx, ItemRef{Slug: item.Slug}, alice.ID); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if s.Exists(cache.Key(item.Slug)) {
		t.Fatal("expected the pre-edit copy not to stay cached")
	}

	res, err := svc.Resolve(ctx, ItemRef{Slug: item.Slug}, alice.ID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Item.Quantity != 42 {
		t.Fatalf("expected quantity 42, got %d", res.Item.Quantity)
	}
}
