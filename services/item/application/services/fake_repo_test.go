package services

import (
	"context"
	"sort"
	"sync"

	itemdomain "github.com/ghuser/inventory/services/item/domain"
	"github.com/ghuser/inventory/services/item/domain/models"
)

type updateCall struct {
	Slug         string
	PreviousSlug string
}

// fakeRepo is an in-memory item store with a unique slug index. Hooks let
// tests inject a concurrent writer between slug lookup and write.
type fakeRepo struct {
	mu      sync.Mutex
	items   map[int64]models.Item
	nextID  int64
	updates []updateCall
	creates int

	// beforeWrite runs at the start of Create/Update with the lock released.
	beforeWrite func(item *models.Item)
	// afterSlugRead runs once, after the next FindBySlug has read its result
	// and released the lock.
	afterSlugRead func()
	// alwaysTaken makes every write report ErrSlugTaken.
	alwaysTaken bool
	// failWith is returned from every method when set.
	failWith error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{items: map[int64]models.Item{}}
}

func (r *fakeRepo) FindByID(_ context.Context, id int64) (*models.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	item, ok := r.items[id]
	if !ok {
		return nil, itemdomain.ErrItemNotFound
	}
	return &item, nil
}

func (r *fakeRepo) FindBySlug(_ context.Context, slug string) (*models.Item, error) {
	r.mu.Lock()
	item, err := r.findBySlugLocked(slug)
	hook := r.afterSlugRead
	r.afterSlugRead = nil
	r.mu.Unlock()
	if hook != nil {
		hook()
	}
	return item, err
}

func (r *fakeRepo) findBySlugLocked(slug string) (*models.Item, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	for _, item := range r.items {
		if item.Slug == slug {
			return &item, nil
		}
	}
	return nil, itemdomain.ErrItemNotFound
}

func (r *fakeRepo) FindAll(_ context.Context) ([]*models.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	out := make([]*models.Item, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, &item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRepo) Create(_ context.Context, item *models.Item) error {
	r.runHook(item)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	if r.failWith != nil {
		return r.failWith
	}
	if r.alwaysTaken || r.slugHeldByOther(item.Slug, 0) {
		return itemdomain.ErrSlugTaken
	}
	r.nextID++
	item.ID = r.nextID
	r.items[item.ID] = *item
	return nil
}

func (r *fakeRepo) Update(_ context.Context, item *models.Item, previousSlug string) error {
	r.runHook(item)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, updateCall{Slug: item.Slug, PreviousSlug: previousSlug})
	if r.failWith != nil {
		return r.failWith
	}
	if _, ok := r.items[item.ID]; !ok {
		return itemdomain.ErrItemNotFound
	}
	if r.alwaysTaken || r.slugHeldByOther(item.Slug, item.ID) {
		return itemdomain.ErrSlugTaken
	}
	r.items[item.ID] = *item
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, item *models.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	if _, ok := r.items[item.ID]; !ok {
		return itemdomain.ErrItemNotFound
	}
	delete(r.items, item.ID)
	return nil
}

// insert stores an item directly, bypassing hooks.
func (r *fakeRepo) insert(item models.Item) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	item.ID = r.nextID
	r.items[item.ID] = item
	return item.ID
}

func (r *fakeRepo) runHook(item *models.Item) {
	r.mu.Lock()
	hook := r.beforeWrite
	r.mu.Unlock()
	if hook != nil {
		hook(item)
	}
}

func (r *fakeRepo) slugHeldByOther(slug string, id int64) bool {
	for _, other := range r.items {
		if other.Slug == slug && other.ID != id {
			return true
		}
	}
	return false
}
