package services

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	pkgcache "github.com/ghuser/inventory/pkg/cache"
	"github.com/ghuser/inventory/pkg/logger"
	itemdomain "github.com/ghuser/inventory/services/item/domain"
	"github.com/ghuser/inventory/services/item/domain/models"
	"github.com/ghuser/inventory/services/item/domain/repositories"
	domainsvcs "github.com/ghuser/inventory/services/item/domain/services"
)

const instrumentationName = "github.com/ghuser/inventory/services/item"

// maxSlugAttempts is how many times a write is tried when the store reports
// that the predicted slug was taken in the meantime.
const maxSlugAttempts = 2

// ItemCache is the slug-keyed read cache consulted by Resolve.
type ItemCache interface {
	Get(ctx context.Context, slug string) (*models.Item, error)
	Set(ctx context.Context, item *models.Item) error
	Delete(ctx context.Context, slugs ...string) error
}

// ItemRef addresses an item by numeric id or by slug. ID wins when both are set.
type ItemRef struct {
	ID   int64
	Slug string
}

// Resolution is an item together with what the acting user may do with it.
type Resolution struct {
	Item    *models.Item
	Access  domainsvcs.Access
	IsOwner bool
}

// EditResult carries either the item to edit or where to send the caller.
type EditResult struct {
	Item     *models.Item
	Redirect *domainsvcs.Redirect
}

// ItemService orchestrates slug assignment, ownership checks and persistence
// for Items. Event publishing is handled by the repository layer.
type ItemService struct {
	repo   repositories.ItemRepository
	cache  ItemCache
	log    logger.Logger
	tracer trace.Tracer

	slugCollisions metric.Int64Counter
	slugConflicts  metric.Int64Counter
}

// NewItemService returns an ItemService. itemCache may be nil.
func NewItemService(repo repositories.ItemRepository, itemCache ItemCache, log logger.Logger) *ItemService {
	meter := otel.Meter(instrumentationName)
	collisions, err := meter.Int64Counter("item.slug.collisions",
		metric.WithDescription("Writes rejected by the store because the predicted slug was taken"))
	if err != nil {
		collisions = noop.Int64Counter{}
	}
	conflicts, err := meter.Int64Counter("item.slug.conflicts",
		metric.WithDescription("Writes that gave up after exhausting slug attempts"))
	if err != nil {
		conflicts = noop.Int64Counter{}
	}

	return &ItemService{
		repo:           repo,
		cache:          itemCache,
		log:            log,
		tracer:         otel.Tracer(instrumentationName),
		slugCollisions: collisions,
		slugConflicts:  conflicts,
	}
}

// Create validates fields, assigns a unique slug derived from the name and
// persists a new item owned by owner.
func (s *ItemService) Create(ctx context.Context, owner models.User, fields models.ItemFields) (item *models.Item, err error) {
	ctx, span := s.tracer.Start(ctx, "ItemService.Create")
	defer func() { endSpan(span, err) }()

	if owner.ID == "" {
		return nil, itemdomain.ErrSignInRequired
	}
	fields = fields.Trimmed()
	if err := domainsvcs.ValidateFields(fields); err != nil {
		return nil, err
	}
	base, err := domainsvcs.NormalizeSlug(fields.Name)
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		slug, err := domainsvcs.AssignUniqueSlug(ctx, base, 0, s.lookupSlug)
		if err != nil {
			return nil, s.slugFailure(ctx, "create", err)
		}
		item, err := models.NewItem(owner, fields, slug)
		if err != nil {
			return nil, itemdomain.NewValidationError(err.Error())
		}
		if err := domainsvcs.ValidateItemForCreation(item); err != nil {
			return nil, err
		}

		err = s.repo.Create(ctx, item)
		if err == nil {
			s.warm(ctx, item)
			span.SetAttributes(attribute.Int64("item.id", item.ID), attribute.String("item.slug", item.Slug))
			s.log.InfoContext(ctx, "item created", "item_id", item.ID, "slug", item.Slug, "owner_user_id", owner.ID)
			return item, nil
		}
		if !errors.Is(err, itemdomain.ErrSlugTaken) {
			return nil, fmt.Errorf("create item: %w", err)
		}
		if err := s.slugTaken(ctx, "create", slug, attempt); err != nil {
			return nil, err
		}
	}
}

// Update replaces the editable fields of item id. Only the owner may update.
// The slug is recomputed only when the name changes, and the item never
// collides with its own current slug.
func (s *ItemService) Update(ctx context.Context, id int64, actingUserID string, fields models.ItemFields) (item *models.Item, err error) {
	ctx, span := s.tracer.Start(ctx, "ItemService.Update", trace.WithAttributes(attribute.Int64("item.id", id)))
	defer func() { endSpan(span, err) }()

	fields = fields.Trimmed()
	for attempt := 1; ; attempt++ {
		// Each attempt re-reads and re-authorizes against current state.
		item, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := domainsvcs.AuthorizeMutation(actingUserID, item); err != nil {
			s.log.WarnContext(ctx, "item update rejected", "item_id", id, "user_id", actingUserID, "error", err)
			return nil, err
		}
		if err := domainsvcs.ValidateFields(fields); err != nil {
			return nil, err
		}

		previousSlug := item.Slug
		if fields.Name != item.Name.String() {
			base, err := domainsvcs.NormalizeSlug(fields.Name)
			if err != nil {
				return nil, err
			}
			slug, err := domainsvcs.AssignUniqueSlug(ctx, base, item.ID, s.lookupSlug)
			if err != nil {
				return nil, s.slugFailure(ctx, "update", err)
			}
			item.Slug = slug
		}
		if err := item.Apply(fields); err != nil {
			return nil, itemdomain.NewValidationError(err.Error())
		}

		err = s.repo.Update(ctx, item, previousSlug)
		if err == nil {
			s.evict(ctx, previousSlug, item.Slug)
			span.SetAttributes(attribute.String("item.slug", item.Slug))
			s.log.InfoContext(ctx, "item updated", "item_id", item.ID, "slug", item.Slug, "previous_slug", previousSlug)
			return item, nil
		}
		if !errors.Is(err, itemdomain.ErrSlugTaken) {
			return nil, fmt.Errorf("update item: %w", err)
		}
		if err := s.slugTaken(ctx, "update", item.Slug, attempt); err != nil {
			return nil, err
		}
	}
}

// Delete hard-deletes item id. Only the owner may delete; deleting a missing
// item is ErrItemNotFound, including a repeat delete.
func (s *ItemService) Delete(ctx context.Context, id int64, actingUserID string) (err error) {
	ctx, span := s.tracer.Start(ctx, "ItemService.Delete", trace.WithAttributes(attribute.Int64("item.id", id)))
	defer func() { endSpan(span, err) }()

	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := domainsvcs.AuthorizeMutation(actingUserID, item); err != nil {
		s.log.WarnContext(ctx, "item delete rejected", "item_id", id, "user_id", actingUserID, "error", err)
		return err
	}
	if err := s.repo.Delete(ctx, item); err != nil {
		if errors.Is(err, itemdomain.ErrItemNotFound) {
			return err
		}
		return fmt.Errorf("delete item: %w", err)
	}

	s.evict(ctx, item.Slug)
	s.log.InfoContext(ctx, "item deleted", "item_id", item.ID, "slug", item.Slug)
	return nil
}

// Resolve loads an item by id or slug and reports whether actingUserID owns
// it. Reads never fail for non-owners; an empty actingUserID gets view-only
// data. Slug lookups are served read-through from the cache.
func (s *ItemService) Resolve(ctx context.Context, ref ItemRef, actingUserID string) (res *Resolution, err error) {
	ctx, span := s.tracer.Start(ctx, "ItemService.Resolve")
	defer func() { endSpan(span, err) }()

	var item *models.Item
	switch {
	case ref.ID != 0:
		item, err = s.repo.FindByID(ctx, ref.ID)
	case ref.Slug != "":
		item, err = s.findBySlugCached(ctx, ref.Slug)
	default:
		return nil, itemdomain.ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return resolution(item, actingUserID), nil
}

// Edit decides whether the edit surface of item id may be shown. Callers
// without a session are sent to sign-in before any lookup, unknown ids to the
// listing and non-owners to the canonical view.
func (s *ItemService) Edit(ctx context.Context, id int64, actingUserID string) (*EditResult, error) {
	if actingUserID == "" {
		return &EditResult{Redirect: &domainsvcs.Redirect{Target: domainsvcs.RedirectSignIn}}, nil
	}
	item, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, itemdomain.ErrItemNotFound) {
		return &EditResult{Redirect: &domainsvcs.Redirect{Target: domainsvcs.RedirectListing}}, nil
	}
	if err != nil {
		return nil, err
	}
	if redirect := domainsvcs.EditRedirect(actingUserID, item); redirect != nil {
		return &EditResult{Redirect: redirect}, nil
	}
	return &EditResult{Item: item}, nil
}

// List returns every item ordered by id with per-item ownership.
func (s *ItemService) List(ctx context.Context, actingUserID string) ([]*Resolution, error) {
	items, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	out := make([]*Resolution, len(items))
	for i, item := range items {
		out[i] = resolution(item, actingUserID)
	}
	return out, nil
}

// lookupSlug always reads the store; the cache may lag behind a concurrent write.
func (s *ItemService) lookupSlug(ctx context.Context, slug string) (int64, bool, error) {
	item, err := s.repo.FindBySlug(ctx, slug)
	if errors.Is(err, itemdomain.ErrItemNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return item.ID, true, nil
}

func (s *ItemService) findBySlugCached(ctx context.Context, slug string) (*models.Item, error) {
	if s.cache != nil {
		item, err := s.cache.Get(ctx, slug)
		if err == nil {
			return item, nil
		}
		if !errors.Is(err, pkgcache.ErrMiss) {
			s.log.WarnContext(ctx, "item cache read failed", "slug", slug, "error", err)
		}
	}

	item, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.fill(ctx, item)
	}
	return item, nil
}

// fill caches an item read from the store, then re-reads it by id. A delete,
// rename or edit that committed between the two reads has already run its
// eviction, so the copy just written is dropped instead of outliving it.
func (s *ItemService) fill(ctx context.Context, item *models.Item) {
	if err := s.cache.Set(ctx, item); err != nil {
		s.log.WarnContext(ctx, "item cache write failed", "slug", item.Slug, "error", err)
		return
	}
	current, err := s.repo.FindByID(ctx, item.ID)
	if err == nil && sameContent(current, item) {
		return
	}
	s.evict(ctx, item.Slug)
}

// warm replaces whatever the cache holds under a freshly written item's slug.
// A key left behind by an earlier item with the same slug would otherwise be
// served for the new one. If the write fails the key is evicted instead.
func (s *ItemService) warm(ctx context.Context, item *models.Item) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, item); err != nil {
		s.log.WarnContext(ctx, "item cache write failed", "slug", item.Slug, "error", err)
		s.evict(ctx, item.Slug)
	}
}

func sameContent(a, b *models.Item) bool {
	return a.ID == b.ID &&
		a.Slug == b.Slug &&
		a.Name == b.Name &&
		a.Description == b.Description &&
		a.Quantity == b.Quantity &&
		a.Price.Equal(b.Price) &&
		a.SKU == b.SKU &&
		a.Category == b.Category &&
		a.OwnerUserID == b.OwnerUserID
}

func (s *ItemService) evict(ctx context.Context, slugs ...string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, slugs...); err != nil {
		s.log.WarnContext(ctx, "item cache eviction failed", "slugs", slugs, "error", err)
	}
}

// slugTaken records a store-reported collision and returns ErrSlugConflict
// once the attempts are used up.
func (s *ItemService) slugTaken(ctx context.Context, op, slug string, attempt int) error {
	s.slugCollisions.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
	s.log.WarnContext(ctx, "slug taken by concurrent write", "op", op, "slug", slug, "attempt", attempt)
	if attempt < maxSlugAttempts {
		return nil
	}
	s.slugConflicts.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
	return fmt.Errorf("%w: %q still taken after %d attempts", itemdomain.ErrSlugConflict, slug, attempt)
}

func (s *ItemService) slugFailure(ctx context.Context, op string, err error) error {
	if errors.Is(err, itemdomain.ErrSlugConflict) {
		s.slugConflicts.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
		return err
	}
	return fmt.Errorf("assign slug: %w", err)
}

func resolution(item *models.Item, actingUserID string) *Resolution {
	access := domainsvcs.Authorize(actingUserID, item.OwnerUserID)
	if access == domainsvcs.AccessSignIn {
		access = domainsvcs.AccessViewOnly
	}
	return &Resolution{Item: item, Access: access, IsOwner: access == domainsvcs.AccessFull}
}

// endSpan marks the span failed only for unexpected errors; domain outcomes
// such as not-found or validation are recorded as events.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, itemdomain.ErrStore) || errors.Is(err, itemdomain.ErrSlugConflict) {
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}
