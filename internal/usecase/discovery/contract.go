package discovery

import (
	"context"

	domdisc "github.com/kailas-cloud/geofeed/internal/domain/discovery"
	"github.com/kailas-cloud/geofeed/internal/domain/entity"
)

// Catalog defines the storage contract for discovery reads.
type Catalog interface {
	RegionLocator

	FindVenues(ctx context.Context, q domdisc.VenueQuery) ([]entity.Venue, error)
	FindVenuesByIDs(ctx context.Context, ids []int64) ([]entity.Venue, error)
	FindEventsByIDs(ctx context.Context, ids []int64) ([]entity.Event, error)
	FindPromotionsByIDs(ctx context.Context, ids []int64) ([]entity.Promotion, error)
	FindPerformersByIDs(ctx context.Context, ids []int64) ([]entity.Performer, error)
}

// RegionLocator resolves the region of the stored location nearest to a point.
type RegionLocator interface {
	NearestRegion(ctx context.Context, lat, lng float64) (regionID int64, found bool, err error)
}
