package catalog

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/geofeed/internal/db"
	"github.com/kailas-cloud/geofeed/internal/domain/discovery"
	"github.com/kailas-cloud/geofeed/internal/domain/discovery/predicate"
	"github.com/kailas-cloud/geofeed/internal/domain/entity"
	"github.com/kailas-cloud/geofeed/internal/domain/geo"
)

// store is the consumer interface for the catalog (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchFiltered(ctx context.Context, q *db.FilterQuery) (*db.SearchResult, error)
}

// Limits sizes the unpaginated reads.
type Limits struct {
	// Nested is the page size of nested event/promotion reads. Nested reads
	// page until every match is read.
	Nested int
	// MapVenues caps venues read by an unpaginated (map view) query. Venues
	// past the cap in id order are not returned.
	MapVenues int
}

// Repo implements the discovery catalog read contract on RediSearch.
type Repo struct {
	store  store
	keys   keys
	limits Limits
}

// New creates a catalog repository. prefix namespaces every key and index.
func New(s store, prefix string) *Repo {
	return &Repo{store: s, keys: keys{prefix: prefix}, limits: Limits{Nested: 1000, MapVenues: 500}}
}

// WithLimits overrides the read caps.
func (r *Repo) WithLimits(l Limits) *Repo {
	if l.Nested > 0 {
		r.limits.Nested = l.Nested
	}
	if l.MapVenues > 0 {
		r.limits.MapVenues = l.MapVenues
	}
	return r
}

// FindVenues runs one logical filtered fetch: venues matching the spatial and
// venue predicates, each carrying the nested events and promotions that match
// their own predicates and the date window. When an event or promotion
// predicate is active, only venues owning at least one matching nested entity
// of any active kind are returned.
func (r *Repo) FindVenues(ctx context.Context, q discovery.VenueQuery) ([]entity.Venue, error) {
	if q.Spatial.Empty {
		return nil, nil
	}

	var restrict []int64
	if q.Predicates.Event.IsActive() || q.Predicates.Promotion.IsActive() {
		ids, err := r.owningVenues(ctx, q)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, nil
		}
		restrict = ids
	}

	cb := &conditionBuilder{}
	cb.spatial(q.Spatial)
	cb.predicate(q.Predicates.Venue)
	if restrict != nil {
		cb.venues(restrict)
	}
	expr, err := cb.build()
	if err != nil {
		return nil, fmt.Errorf("venue filter: %w", err)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = r.limits.MapVenues
	}
	res, err := r.store.SearchFiltered(ctx, &db.FilterQuery{
		IndexName: r.keys.index(string(entity.KindVenue)),
		Filters:   expr,
		SortBy:    fieldID,
		Offset:    q.Offset,
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("search venues: %w", err)
	}

	venues := make([]entity.Venue, 0, len(res.Entries))
	for _, e := range res.Entries {
		v, err := venueFromHash(e.Fields)
		if err != nil {
			return nil, fmt.Errorf("parse venue %s: %w", e.Key, err)
		}
		venues = append(venues, v)
	}
	if len(venues) == 0 {
		return venues, nil
	}

	if err := r.expand(ctx, venues, q); err != nil {
		return nil, err
	}
	return venues, nil
}

// owningVenues returns the ids of venues owning a nested entity that matches
// an active event or promotion predicate, deduplicated and ordered.
func (r *Repo) owningVenues(ctx context.Context, q discovery.VenueQuery) ([]int64, error) {
	preds := make([]predicate.Predicate, 0, 2)
	if q.Predicates.Event.IsActive() {
		preds = append(preds, q.Predicates.Event)
	}
	if q.Predicates.Promotion.IsActive() {
		preds = append(preds, q.Predicates.Promotion)
	}

	found := make([][]int64, len(preds))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range preds {
		g.Go(func() error {
			cb := &conditionBuilder{}
			cb.spatial(q.Spatial)
			cb.predicate(p)
			cb.window(q.Window)
			expr, err := cb.build()
			if err != nil {
				return fmt.Errorf("%s filter: %w", p.Kind(), err)
			}
			entries, err := r.searchAll(gctx, db.FilterQuery{
				IndexName:    r.keys.index(string(p.Kind())),
				Filters:      expr,
				SortBy:       fieldID,
				ReturnFields: []string{fieldVenueID},
			})
			if err != nil {
				return fmt.Errorf("search %s owners: %w", p.Kind(), err)
			}
			ids := make([]int64, 0, len(entries))
			for _, e := range entries {
				if id := parseInt(e.Fields[fieldVenueID]); id > 0 {
					ids = append(ids, id)
				}
			}
			found[i] = ids
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var union []int64
	for _, ids := range found {
		union = append(union, ids...)
	}
	slices.Sort(union)
	return slices.Compact(union), nil
}

// expand attaches nested events and promotions to venues in place.
func (r *Repo) expand(ctx context.Context, venues []entity.Venue, q discovery.VenueQuery) error {
	ids := make([]int64, len(venues))
	for i := range venues {
		ids[i] = venues[i].ID
	}

	var (
		events     []entity.Event
		promotions []entity.Promotion
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		entries, err := r.nested(gctx, q.Predicates.Event, ids, q.Window)
		if err != nil {
			return err
		}
		events = make([]entity.Event, 0, len(entries))
		for _, e := range entries {
			ev, err := eventFromHash(e.Fields)
			if err != nil {
				return fmt.Errorf("parse event %s: %w", e.Key, err)
			}
			events = append(events, ev)
		}
		return nil
	})
	g.Go(func() error {
		entries, err := r.nested(gctx, q.Predicates.Promotion, ids, q.Window)
		if err != nil {
			return err
		}
		promotions = make([]entity.Promotion, 0, len(entries))
		for _, e := range entries {
			p, err := promotionFromHash(e.Fields)
			if err != nil {
				return fmt.Errorf("parse promotion %s: %w", e.Key, err)
			}
			promotions = append(promotions, p)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	byID := make(map[int64]int, len(venues))
	for i := range venues {
		byID[venues[i].ID] = i
	}
	for _, e := range events {
		if i, ok := byID[e.VenueID]; ok {
			venues[i].Events = append(venues[i].Events, e)
		}
	}
	for _, p := range promotions {
		if i, ok := byID[p.VenueID]; ok {
			venues[i].Promotions = append(venues[i].Promotions, p)
		}
	}
	return nil
}

func (r *Repo) nested(
	ctx context.Context, p predicate.Predicate, venueIDs []int64, w discovery.DateWindow,
) ([]db.SearchEntry, error) {
	cb := &conditionBuilder{}
	cb.venues(venueIDs)
	cb.predicate(p)
	cb.window(w)
	expr, err := cb.build()
	if err != nil {
		return nil, fmt.Errorf("%s filter: %w", p.Kind(), err)
	}
	entries, err := r.searchAll(ctx, db.FilterQuery{
		IndexName: r.keys.index(string(p.Kind())),
		Filters:   expr,
		SortBy:    fieldStartDate,
	})
	if err != nil {
		return nil, fmt.Errorf("search nested %s: %w", p.Kind(), err)
	}
	return entries, nil
}

// searchAll reads every match of q in pages of limits.Nested. It stops at
// the reported total or on a short page.
func (r *Repo) searchAll(ctx context.Context, q db.FilterQuery) ([]db.SearchEntry, error) {
	q.Limit = r.limits.Nested
	var out []db.SearchEntry
	for {
		page := q
		res, err := r.store.SearchFiltered(ctx, &page)
		if err != nil {
			return nil, err
		}
		out = append(out, res.Entries...)
		if len(res.Entries) < q.Limit || len(out) >= res.Total {
			return out, nil
		}
		q.Offset += len(res.Entries)
	}
}

// FindVenuesByIDs returns the venues with the given ids, in input order.
// Missing ids are skipped.
func (r *Repo) FindVenuesByIDs(ctx context.Context, ids []int64) ([]entity.Venue, error) {
	maps, err := r.getAll(ctx, entity.KindVenue, ids)
	if err != nil {
		return nil, err
	}
	out := make([]entity.Venue, 0, len(maps))
	for _, m := range maps {
		v, err := venueFromHash(m)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// FindEventsByIDs returns the events with the given ids, in input order.
// Venue name and location are denormalized onto each event.
func (r *Repo) FindEventsByIDs(ctx context.Context, ids []int64) ([]entity.Event, error) {
	maps, err := r.getAll(ctx, entity.KindEvent, ids)
	if err != nil {
		return nil, err
	}
	out := make([]entity.Event, 0, len(maps))
	for _, m := range maps {
		e, err := eventFromHash(m)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// FindPromotionsByIDs returns the promotions with the given ids, in input order.
func (r *Repo) FindPromotionsByIDs(ctx context.Context, ids []int64) ([]entity.Promotion, error) {
	maps, err := r.getAll(ctx, entity.KindPromotion, ids)
	if err != nil {
		return nil, err
	}
	out := make([]entity.Promotion, 0, len(maps))
	for _, m := range maps {
		p, err := promotionFromHash(m)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// FindPerformersByIDs returns the performers with the given ids, in input order.
func (r *Repo) FindPerformersByIDs(ctx context.Context, ids []int64) ([]entity.Performer, error) {
	maps, err := r.getAll(ctx, entity.KindPerformer, ids)
	if err != nil {
		return nil, err
	}
	out := make([]entity.Performer, 0, len(maps))
	for _, m := range maps {
		p, err := performerFromHash(m)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *Repo) getAll(ctx context.Context, kind entity.Kind, ids []int64) ([]map[string]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	results, err := r.store.HGetAllMulti(ctx, r.keys.entities(kind, ids))
	if err != nil {
		return nil, fmt.Errorf("hgetall multi %s: %w", kind, err)
	}
	out := make([]map[string]string, 0, len(results))
	for _, m := range results {
		if len(m) == 0 {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// NearestRegion returns the region of the stored location closest to
// (lat, lng). found is false when no location is stored.
func (r *Repo) NearestRegion(ctx context.Context, lat, lng float64) (int64, bool, error) {
	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.keys.index(kindLocation),
		Vector:       geo.ToVector(lat, lng),
		K:            1,
		ReturnFields: []string{fieldCityID},
	})
	if err != nil {
		return 0, false, fmt.Errorf("search nearest location: %w", err)
	}
	for _, e := range res.Entries {
		id, err := strconv.ParseInt(e.Fields[fieldCityID], 10, 64)
		if err != nil {
			continue
		}
		return id, true, nil
	}
	return 0, false, nil
}

// CategoryOf returns the category id of the entity. found is false when the
// entity does not exist; a stored entity without category yields (0, true).
func (r *Repo) CategoryOf(ctx context.Context, kind entity.Kind, id int64) (int64, bool, error) {
	field, ok := categoryField(kind)
	if !ok {
		return 0, false, fmt.Errorf("unknown kind %q", kind)
	}
	m, err := r.store.HGetAll(ctx, r.keys.entity(kind, id))
	if err != nil {
		return 0, false, fmt.Errorf("hgetall %s %d: %w", kind, id, err)
	}
	if len(m) == 0 {
		return 0, false, nil
	}
	return parseInt(m[field]), true, nil
}
