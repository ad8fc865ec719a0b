package catalog

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/kailas-cloud/geofeed/internal/db"
	"github.com/kailas-cloud/geofeed/internal/domain/discovery"
	"github.com/kailas-cloud/geofeed/internal/domain/discovery/predicate"
	"github.com/kailas-cloud/geofeed/internal/domain/entity"
	"github.com/kailas-cloud/geofeed/internal/domain/geo"
	"github.com/kailas-cloud/geofeed/internal/db/filter"
)

const (
	venueIdx     = "geofeed:idx:venue"
	eventIdx     = "geofeed:idx:event"
	promotionIdx = "geofeed:idx:promotion"
)

func condition(expr filter.Expression, key string) (filter.Condition, bool) {
	return expr.Find(key)
}

func emptyPredicates() discovery.Predicates {
	return discovery.Predicates{
		Venue:     predicate.NewBuilder(entity.KindVenue).Build(),
		Event:     predicate.NewBuilder(entity.KindEvent).Build(),
		Promotion: predicate.NewBuilder(entity.KindPromotion).Build(),
	}
}

func venueFields(id string) map[string]string {
	return map[string]string{
		"id": id, "venue_id": id, "name": "Venue " + id,
		"venue_type_id": "2", "category_name": "Bar",
		"lat": "40.7", "lng": "-74", "location_id": "9", "city_id": "1",
		"has_events": "1", "is_accessible": "0",
	}
}

// --- FindVenues ---

func TestFindVenues_EmptySpatialSkipsStore(t *testing.T) {
	repo, ms := newTestRepo(t)

	venues, err := repo.FindVenues(context.Background(), discovery.VenueQuery{
		Spatial:    discovery.Spatial{Empty: true},
		Predicates: emptyPredicates(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if venues != nil {
		t.Errorf("expected nil, got %v", venues)
	}
	if len(ms.searches) != 0 {
		t.Errorf("expected no searches, got %d", len(ms.searches))
	}
}

func TestFindVenues_MapBoundsExpandsNested(t *testing.T) {
	repo, ms := newTestRepo(t)
	from := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	ms.searchFilteredFn = func(_ context.Context, q *db.FilterQuery) (*db.SearchResult, error) {
		switch q.IndexName {
		case venueIdx:
			return &db.SearchResult{Total: 2, Entries: []db.SearchEntry{
				entry("geofeed:venue:1", venueFields("1")),
				entry("geofeed:venue:2", venueFields("2")),
			}}, nil
		case eventIdx:
			return &db.SearchResult{Total: 2, Entries: []db.SearchEntry{
				entry("geofeed:event:10", map[string]string{"id": "10", "venue_id": "1", "title": "A"}),
				entry("geofeed:event:11", map[string]string{"id": "11", "venue_id": "1", "title": "B"}),
			}}, nil
		case promotionIdx:
			return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{
				entry("geofeed:promotion:20", map[string]string{"id": "20", "venue_id": "2", "title": "C"}),
			}}, nil
		}
		return &db.SearchResult{}, nil
	}

	bb := geo.BoundingBox{MinLat: 40, MaxLat: 41, MinLng: -75, MaxLng: -73}
	venues, err := repo.FindVenues(context.Background(), discovery.VenueQuery{
		Spatial:    discovery.Spatial{Bounds: &bb},
		Predicates: emptyPredicates(),
		Window:     discovery.DateWindow{From: &from, To: &to},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(venues) != 2 {
		t.Fatalf("expected 2 venues, got %d", len(venues))
	}
	if len(venues[0].Events) != 2 || len(venues[0].Promotions) != 0 {
		t.Errorf("venue 1 nested = %d events, %d promotions", len(venues[0].Events), len(venues[0].Promotions))
	}
	if len(venues[1].Promotions) != 1 || venues[1].Promotions[0].ID != 20 {
		t.Errorf("venue 2 promotions = %+v", venues[1].Promotions)
	}

	vq := ms.searchesOn(venueIdx)
	if len(vq) != 1 {
		t.Fatalf("expected one venue search, got %d", len(vq))
	}
	if vq[0].Limit != 500 || vq[0].SortBy != "id" {
		t.Errorf("venue search limit/sort = %d/%q", vq[0].Limit, vq[0].SortBy)
	}
	lat, ok := condition(vq[0].Filters, "lat")
	if !ok || *lat.Range().Min() != 40 || *lat.Range().Max() != 41 {
		t.Errorf("lat condition = %+v", lat)
	}
	if _, ok := condition(vq[0].Filters, "venue_id"); ok {
		t.Error("venue search must not be restricted without nested predicates")
	}

	eq := ms.searchesOn(eventIdx)
	if len(eq) != 1 {
		t.Fatalf("expected one event search, got %d", len(eq))
	}
	owners, _ := condition(eq[0].Filters, "venue_id")
	if !slices.Equal(owners.Values(), []string{"1", "2"}) {
		t.Errorf("nested owners = %v", owners.Values())
	}
	start, ok := condition(eq[0].Filters, "start_date")
	if !ok || *start.Range().Min() != float64(from.Unix()) || *start.Range().Max() != float64(to.Unix()) {
		t.Errorf("window condition = %+v", start)
	}
}

func TestFindVenues_RestrictsToOwners(t *testing.T) {
	repo, ms := newTestRepo(t)
	price := 30.0

	ms.searchFilteredFn = func(_ context.Context, q *db.FilterQuery) (*db.SearchResult, error) {
		if q.IndexName == eventIdx && slices.Equal(q.ReturnFields, []string{"venue_id"}) {
			return &db.SearchResult{Total: 3, Entries: []db.SearchEntry{
				entry("geofeed:event:1", map[string]string{"venue_id": "3"}),
				entry("geofeed:event:2", map[string]string{"venue_id": "1"}),
				entry("geofeed:event:3", map[string]string{"venue_id": "3"}),
			}}, nil
		}
		if q.IndexName == venueIdx {
			return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{entry("geofeed:venue:1", venueFields("1"))}}, nil
		}
		return &db.SearchResult{}, nil
	}

	preds := emptyPredicates()
	preds.Event = predicate.NewBuilder(entity.KindEvent).PriceAtMost(&price).Build()

	_, err := repo.FindVenues(context.Background(), discovery.VenueQuery{
		Spatial:    discovery.Spatial{Regions: []int64{7}},
		Predicates: preds,
		Offset:     60,
		Limit:      30,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := ms.searchesOn(promotionIdx); len(got) != 1 {
		t.Errorf("inactive promotion predicate must not run an owner search, got %d promotion searches", len(got))
	}

	vq := ms.searchesOn(venueIdx)[0]
	restrict, ok := condition(vq.Filters, "venue_id")
	if !ok || !slices.Equal(restrict.Values(), []string{"1", "3"}) {
		t.Errorf("restriction = %v", restrict.Values())
	}
	city, _ := condition(vq.Filters, "city_id")
	if !slices.Equal(city.Values(), []string{"7"}) {
		t.Errorf("region condition = %v", city.Values())
	}
	if vq.Offset != 60 || vq.Limit != 30 {
		t.Errorf("pagination = %d/%d", vq.Offset, vq.Limit)
	}
}

// pagedStore serves entries of one index honouring Offset and Limit.
func pagedStore(ms *mockStore, index string, all []db.SearchEntry, other func(q *db.FilterQuery) *db.SearchResult) {
	ms.searchFilteredFn = func(_ context.Context, q *db.FilterQuery) (*db.SearchResult, error) {
		if q.IndexName != index {
			return other(q), nil
		}
		lo := min(q.Offset, len(all))
		hi := min(lo+q.Limit, len(all))
		return &db.SearchResult{Total: len(all), Entries: all[lo:hi]}, nil
	}
}

func TestFindVenues_PagesNestedReads(t *testing.T) {
	repo, ms := newTestRepo(t)
	repo.WithLimits(Limits{Nested: 2})

	events := []db.SearchEntry{
		entry("geofeed:event:10", map[string]string{"id": "10", "venue_id": "1", "title": "A"}),
		entry("geofeed:event:11", map[string]string{"id": "11", "venue_id": "1", "title": "B"}),
		entry("geofeed:event:12", map[string]string{"id": "12", "venue_id": "1", "title": "C"}),
	}
	pagedStore(ms, eventIdx, events, func(q *db.FilterQuery) *db.SearchResult {
		if q.IndexName == venueIdx {
			return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{entry("geofeed:venue:1", venueFields("1"))}}
		}
		return &db.SearchResult{}
	})

	bb := geo.BoundingBox{MinLat: 40, MaxLat: 41, MinLng: -75, MaxLng: -73}
	venues, err := repo.FindVenues(context.Background(), discovery.VenueQuery{
		Spatial:    discovery.Spatial{Bounds: &bb},
		Predicates: emptyPredicates(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(venues) != 1 || len(venues[0].Events) != 3 {
		t.Fatalf("expected venue 1 with 3 events, got %+v", venues)
	}
	if venues[0].Events[2].ID != 12 {
		t.Errorf("last event = %d, want 12", venues[0].Events[2].ID)
	}

	eq := ms.searchesOn(eventIdx)
	if len(eq) != 2 {
		t.Fatalf("expected 2 event pages, got %d", len(eq))
	}
	if eq[0].Offset != 0 || eq[1].Offset != 2 || eq[0].Limit != 2 || eq[1].Limit != 2 {
		t.Errorf("pages = %d/%d, %d/%d", eq[0].Offset, eq[0].Limit, eq[1].Offset, eq[1].Limit)
	}
}

func TestFindVenues_PagesOwnerReads(t *testing.T) {
	repo, ms := newTestRepo(t)
	repo.WithLimits(Limits{Nested: 2})
	price := 30.0

	owners := []db.SearchEntry{
		entry("geofeed:event:1", map[string]string{"venue_id": "4"}),
		entry("geofeed:event:2", map[string]string{"venue_id": "2"}),
		entry("geofeed:event:3", map[string]string{"venue_id": "9"}),
	}
	pagedStore(ms, eventIdx, owners, func(_ *db.FilterQuery) *db.SearchResult {
		return &db.SearchResult{}
	})

	preds := emptyPredicates()
	preds.Event = predicate.NewBuilder(entity.KindEvent).PriceAtMost(&price).Build()

	if _, err := repo.FindVenues(context.Background(), discovery.VenueQuery{
		Spatial:    discovery.Spatial{Regions: []int64{7}},
		Predicates: preds,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	vq := ms.searchesOn(venueIdx)
	if len(vq) != 1 {
		t.Fatalf("expected one venue search, got %d", len(vq))
	}
	restrict, _ := condition(vq[0].Filters, "venue_id")
	if !slices.Equal(restrict.Values(), []string{"2", "4", "9"}) {
		t.Errorf("restriction = %v, want every owner", restrict.Values())
	}
}

func TestFindVenues_MapVenueCap(t *testing.T) {
	repo, ms := newTestRepo(t)
	repo.WithLimits(Limits{MapVenues: 50})

	bb := geo.BoundingBox{MinLat: 40, MaxLat: 41, MinLng: -75, MaxLng: -73}
	if _, err := repo.FindVenues(context.Background(), discovery.VenueQuery{
		Spatial:    discovery.Spatial{Bounds: &bb},
		Predicates: emptyPredicates(),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	vq := ms.searchesOn(venueIdx)
	if len(vq) != 1 || vq[0].Limit != 50 || vq[0].Offset != 0 || vq[0].SortBy != "id" {
		t.Fatalf("venue search = %+v", vq)
	}
}

func TestFindVenues_NoOwnersShortCircuits(t *testing.T) {
	repo, ms := newTestRepo(t)

	preds := emptyPredicates()
	preds.Promotion = predicate.NewBuilder(entity.KindPromotion).CategoryIn([]int64{4}).Build()

	venues, err := repo.FindVenues(context.Background(), discovery.VenueQuery{
		Spatial:    discovery.Spatial{Regions: []int64{1}},
		Predicates: preds,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(venues) != 0 {
		t.Errorf("expected no venues, got %d", len(venues))
	}
	if len(ms.searchesOn(venueIdx)) != 0 {
		t.Error("venue index must not be searched without owners")
	}
	owner := ms.searchesOn(promotionIdx)[0]
	if c, ok := condition(owner.Filters, "promotion_type_id"); !ok || !slices.Equal(c.Values(), []string{"4"}) {
		t.Errorf("category condition = %+v", c)
	}
}

func TestFindVenues_VenuePredicateTranslation(t *testing.T) {
	repo, ms := newTestRepo(t)
	yes := true

	preds := emptyPredicates()
	preds.Venue = predicate.NewBuilder(entity.KindVenue).
		CategoryIn([]int64{2, 5}).
		HasNested(entity.KindEvent, true).
		FlagEquals(predicate.FieldOutdoor, &yes).
		TextMatch("rooftop", predicate.FieldName, predicate.FieldDescription).
		Build()

	if _, err := repo.FindVenues(context.Background(), discovery.VenueQuery{
		Spatial:    discovery.Spatial{Regions: []int64{1}},
		Predicates: preds,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f := ms.searchesOn(venueIdx)[0].Filters
	if c, _ := condition(f, "venue_type_id"); !slices.Equal(c.Values(), []string{"2", "5"}) {
		t.Errorf("category = %v", c.Values())
	}
	if c, _ := condition(f, "has_events"); !slices.Equal(c.Values(), []string{"1"}) {
		t.Errorf("has_events = %q", c.Values())
	}
	if c, _ := condition(f, "is_outdoor"); !slices.Equal(c.Values(), []string{"1"}) {
		t.Errorf("is_outdoor = %q", c.Values())
	}
	c, ok := condition(f, "name|description")
	if !ok || c.Kind() != filter.KindText || c.Text().Tokens()[0] != "rooftop" {
		t.Errorf("text = %+v", c)
	}
}

func TestFindVenues_SearchError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchFilteredFn = func(_ context.Context, _ *db.FilterQuery) (*db.SearchResult, error) {
		return nil, &db.Error{Op: db.OpSearch, Err: errors.New("connection lost")}
	}

	_, err := repo.FindVenues(context.Background(), discovery.VenueQuery{
		Spatial:    discovery.Spatial{Regions: []int64{1}},
		Predicates: emptyPredicates(),
	})
	var dbErr *db.Error
	if !errors.As(err, &dbErr) {
		t.Fatalf("expected db.Error, got %v", err)
	}
}

// --- Direct reads ---

func TestFindEventsByIDs_SkipsMissing(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hgetAllMultiFn = func(_ context.Context, keys []string) ([]map[string]string, error) {
		if !slices.Equal(keys, []string{"geofeed:event:5", "geofeed:event:6"}) {
			t.Errorf("keys = %v", keys)
		}
		return []map[string]string{
			{},
			{
				"id": "6", "title": "Jazz", "price": "12.5", "start_date": "1777593600",
				"event_type_id": "4", "category_name": "Music", "venue_name": "Blue Note",
				"performers": `[{"id":100,"name":"Trio"}]`,
			},
		}, nil
	}

	events, err := repo.FindEventsByIDs(context.Background(), []int64{5, 6})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.Price == nil || *e.Price != 12.5 {
		t.Errorf("price = %v", e.Price)
	}
	if e.StartDate.Unix() != 1777593600 {
		t.Errorf("start = %v", e.StartDate)
	}
	if e.Category == nil || e.Category.ID != 4 || len(e.Performers) != 1 || e.Performers[0].Name != "Trio" {
		t.Errorf("event = %+v", e)
	}
	if e.Location != nil {
		t.Errorf("expected no location, got %+v", e.Location)
	}
}

func TestFindVenuesByIDs_Empty(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hgetAllMultiFn = func(_ context.Context, _ []string) ([]map[string]string, error) {
		t.Fatal("store must not be called for empty ids")
		return nil, nil
	}
	venues, err := repo.FindVenuesByIDs(context.Background(), nil)
	if err != nil || len(venues) != 0 {
		t.Fatalf("got %v, %v", venues, err)
	}
}

func TestFindPerformersByIDs(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hgetAllMultiFn = func(_ context.Context, keys []string) ([]map[string]string, error) {
		if keys[0] != "geofeed:performer:3" {
			t.Errorf("keys = %v", keys)
		}
		return []map[string]string{{"id": "3", "name": "Trio", "category_id": "8", "category_name": "Jazz"}}, nil
	}
	ps, err := repo.FindPerformersByIDs(context.Background(), []int64{3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ps) != 1 || ps[0].CategoryID != 8 || ps[0].CategoryName != "Jazz" {
		t.Errorf("performers = %+v", ps)
	}
}

func TestFindPromotionsByIDs_Error(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hgetAllMultiFn = func(_ context.Context, _ []string) ([]map[string]string, error) {
		return nil, errors.New("timeout")
	}
	if _, err := repo.FindPromotionsByIDs(context.Background(), []int64{1}); err == nil {
		t.Fatal("expected error")
	}
}

// --- NearestRegion ---

func TestNearestRegion(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		if q.IndexName != "geofeed:idx:location" || q.K != 1 || q.VectorField != "" {
			t.Errorf("unexpected query %+v", q)
		}
		if len(q.Vector) != geo.VectorDim {
			t.Errorf("vector dim = %d", len(q.Vector))
		}
		return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{
			entry("geofeed:location:9", map[string]string{"city_id": "42"}),
		}}, nil
	}

	id, found, err := repo.NearestRegion(context.Background(), 40.7, -74)
	if err != nil || !found || id != 42 {
		t.Fatalf("got %d %v %v", id, found, err)
	}
}

func TestNearestRegion_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t)
	_, found, err := repo.NearestRegion(context.Background(), 0, 0)
	if err != nil || found {
		t.Fatalf("expected not found, got %v %v", found, err)
	}
}

// --- CategoryOf ---

func TestCategoryOf(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hgetAllFn = func(_ context.Context, key string) (map[string]string, error) {
		switch key {
		case "geofeed:performer:3":
			return map[string]string{"id": "3", "category_id": "8"}, nil
		case "geofeed:venue:1":
			return map[string]string{"id": "1", "venue_type_id": "2"}, nil
		}
		return map[string]string{}, nil
	}

	tests := []struct {
		kind      entity.Kind
		id        int64
		wantCat   int64
		wantFound bool
	}{
		{entity.KindPerformer, 3, 8, true},
		{entity.KindVenue, 1, 2, true},
		{entity.KindEvent, 99, 0, false},
	}
	for _, tc := range tests {
		cat, found, err := repo.CategoryOf(context.Background(), tc.kind, tc.id)
		if err != nil {
			t.Fatalf("%s %d: %v", tc.kind, tc.id, err)
		}
		if cat != tc.wantCat || found != tc.wantFound {
			t.Errorf("%s %d: got (%d, %v)", tc.kind, tc.id, cat, found)
		}
	}

	if _, _, err := repo.CategoryOf(context.Background(), entity.Kind("tile"), 1); err == nil {
		t.Error("expected error for unknown kind")
	}
}

// --- Indexes ---

func TestEnsureIndexes_IgnoresExisting(t *testing.T) {
	repo, ms := newTestRepo(t)
	var names []string
	ms.createIndexFn = func(_ context.Context, def *db.IndexDefinition) error {
		names = append(names, def.Name)
		if def.Name == venueIdx {
			return db.ErrIndexExists
		}
		return nil
	}

	if err := repo.EnsureIndexes(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(names, repo.IndexNames()) {
		t.Errorf("created %v, want %v", names, repo.IndexNames())
	}
}

func TestEnsureIndexes_Error(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.createIndexFn = func(_ context.Context, _ *db.IndexDefinition) error {
		return errors.New("out of memory")
	}
	if err := repo.EnsureIndexes(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestBuildIndexes_LocationVectorAlias(t *testing.T) {
	defs, err := buildIndexes(keys{prefix: testPrefix})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	loc := defs[len(defs)-1]
	vec := loc.Fields[len(loc.Fields)-1]
	if vec.Alias != "vector" || vec.VectorDim != geo.VectorDim || vec.VectorDistance != db.DistanceL2 {
		t.Errorf("vector field = %+v", vec)
	}
	if defs[0].Fields[0].Name != "id" || !defs[0].Fields[0].Sortable {
		t.Errorf("venue id must be sortable: %+v", defs[0].Fields[0])
	}
}

// --- Put ---

func TestPut_DenormalizesOwner(t *testing.T) {
	repo, ms := newTestRepo(t)
	var written map[string]map[string]string
	ms.hsetMultiFn = func(_ context.Context, items []db.HashSetItem) error {
		written = make(map[string]map[string]string, len(items))
		for _, it := range items {
			written[it.Key] = it.Fields
		}
		return nil
	}

	loc := &entity.Location{ID: 9, Lat: 40.7, Lng: -74, RegionID: 1}
	err := repo.Put(context.Background(), Snapshot{
		Venues:     []entity.Venue{{ID: 1, Name: "Blue Note", Location: loc}},
		Events:     []entity.Event{{ID: 10, Title: "Set", VenueID: 1}},
		Promotions: []entity.Promotion{{ID: 20, Title: "Deal", VenueID: 1}},
		Performers: []entity.Performer{{ID: 3, Name: "Trio", CategoryID: 8}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(written) != 5 {
		t.Fatalf("expected 5 hashes, got %d", len(written))
	}
	ev := written["geofeed:event:10"]
	if ev["venue_name"] != "Blue Note" || ev["city_id"] != "1" || ev["lat"] != "40.7" {
		t.Errorf("event not denormalized: %v", ev)
	}
	if _, ok := ev["price"]; ok {
		t.Error("nil price must not be stored")
	}
	if written["geofeed:promotion:20"]["lng"] != "-74" {
		t.Errorf("promotion not denormalized: %v", written["geofeed:promotion:20"])
	}
	if v := written["geofeed:location:9"]["__vector"]; len(v) != geo.VectorDim*4 {
		t.Errorf("location vector length = %d", len(v))
	}
	if v := written["geofeed:venue:1"]; v["has_events"] != "1" || v["has_promotions"] != "1" {
		t.Errorf("venue flags = %v", v)
	}
}

func TestPut_DerivesNestedFlagsFromOwnedEntities(t *testing.T) {
	repo, ms := newTestRepo(t)
	written := map[string]map[string]string{}
	ms.hsetMultiFn = func(_ context.Context, items []db.HashSetItem) error {
		for _, it := range items {
			written[it.Key] = it.Fields
		}
		return nil
	}

	err := repo.Put(context.Background(), Snapshot{
		Venues: []entity.Venue{
			{ID: 1, HasEvents: false},
			{ID: 2, HasEvents: true, HasPromotions: true},
			{ID: 3},
		},
		Events:     []entity.Event{{ID: 5, VenueID: 1}},
		Promotions: []entity.Promotion{{ID: 6, VenueID: 3}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		key            string
		events, promos string
	}{
		{"geofeed:venue:1", "1", "0"},
		{"geofeed:venue:2", "0", "0"},
		{"geofeed:venue:3", "0", "1"},
	}
	for _, tt := range tests {
		v := written[tt.key]
		if v["has_events"] != tt.events || v["has_promotions"] != tt.promos {
			t.Errorf("%s: has_events=%q has_promotions=%q, want %q/%q",
				tt.key, v["has_events"], v["has_promotions"], tt.events, tt.promos)
		}
	}
}

func TestDropIndexes_SkipsMissing(t *testing.T) {
	repo, ms := newTestRepo(t)
	var dropped []string
	ms.dropIndexFn = func(_ context.Context, name string) error {
		dropped = append(dropped, name)
		if name == eventIdx {
			return db.ErrIndexNotFound
		}
		return nil
	}

	if err := repo.DropIndexes(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(dropped, repo.IndexNames()) {
		t.Errorf("dropped %v, want %v", dropped, repo.IndexNames())
	}
}

func TestDropIndexes_Error(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.dropIndexFn = func(_ context.Context, _ string) error {
		return errors.New("READONLY")
	}
	if err := repo.DropIndexes(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
