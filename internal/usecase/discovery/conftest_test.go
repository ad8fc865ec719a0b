package discovery

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	domdisc "github.com/kailas-cloud/geofeed/internal/domain/discovery"
	"github.com/kailas-cloud/geofeed/internal/domain/entity"
)

// mockCatalog implements Catalog for tests and counts every read.
type mockCatalog struct {
	nearestRegionFn       func(ctx context.Context, lat, lng float64) (int64, bool, error)
	findVenuesFn          func(ctx context.Context, q domdisc.VenueQuery) ([]entity.Venue, error)
	findVenuesByIDsFn     func(ctx context.Context, ids []int64) ([]entity.Venue, error)
	findEventsByIDsFn     func(ctx context.Context, ids []int64) ([]entity.Event, error)
	findPromotionsByIDsFn func(ctx context.Context, ids []int64) ([]entity.Promotion, error)
	findPerformersByIDsFn func(ctx context.Context, ids []int64) ([]entity.Performer, error)

	reads atomic.Int32
}

func (m *mockCatalog) NearestRegion(ctx context.Context, lat, lng float64) (int64, bool, error) {
	m.reads.Add(1)
	if m.nearestRegionFn != nil {
		return m.nearestRegionFn(ctx, lat, lng)
	}
	return 0, false, nil
}

func (m *mockCatalog) FindVenues(ctx context.Context, q domdisc.VenueQuery) ([]entity.Venue, error) {
	m.reads.Add(1)
	if m.findVenuesFn != nil {
		return m.findVenuesFn(ctx, q)
	}
	return nil, nil
}

func (m *mockCatalog) FindVenuesByIDs(ctx context.Context, ids []int64) ([]entity.Venue, error) {
	m.reads.Add(1)
	if m.findVenuesByIDsFn != nil {
		return m.findVenuesByIDsFn(ctx, ids)
	}
	return nil, nil
}

func (m *mockCatalog) FindEventsByIDs(ctx context.Context, ids []int64) ([]entity.Event, error) {
	m.reads.Add(1)
	if m.findEventsByIDsFn != nil {
		return m.findEventsByIDsFn(ctx, ids)
	}
	return nil, nil
}

func (m *mockCatalog) FindPromotionsByIDs(ctx context.Context, ids []int64) ([]entity.Promotion, error) {
	m.reads.Add(1)
	if m.findPromotionsByIDsFn != nil {
		return m.findPromotionsByIDsFn(ctx, ids)
	}
	return nil, nil
}

func (m *mockCatalog) FindPerformersByIDs(ctx context.Context, ids []int64) ([]entity.Performer, error) {
	m.reads.Add(1)
	if m.findPerformersByIDsFn != nil {
		return m.findPerformersByIDsFn(ctx, ids)
	}
	return nil, nil
}

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *mockCatalog) {
	t.Helper()
	mc := &mockCatalog{}
	svc := New(mc, Config{PageSize: 30, MapWindow: 24 * time.Hour})
	svc.now = func() time.Time { return testNow }
	return svc, mc
}

func testVenue(id int64) entity.Venue {
	return entity.Venue{
		ID:       id,
		Name:     "Venue",
		Category: &entity.Category{ID: 2, Name: "Bar"},
		Location: &entity.Location{ID: id * 10, Lat: 40.7, Lng: -74},
	}
}
