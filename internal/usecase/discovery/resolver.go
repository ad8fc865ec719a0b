package discovery

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/geofeed/internal/db/filter"
	"github.com/kailas-cloud/geofeed/internal/domain"
	domdisc "github.com/kailas-cloud/geofeed/internal/domain/discovery"
	"github.com/kailas-cloud/geofeed/internal/domain/geo"
)

// Validate checks the filtered-fetch preconditions. It never touches the store.
func Validate(f domdisc.Filters) error {
	if !f.View.Valid() {
		return domain.NewValidationError("view", fmt.Sprintf("unknown view %q", f.View))
	}
	if f.Page < 0 {
		return domain.NewValidationError("page", "must not be negative")
	}
	if f.StartDate != nil && f.EndDate != nil && f.EndDate.Before(*f.StartDate) {
		return domain.NewValidationError("endDate", "must not be before startDate")
	}
	if n := len(strings.Fields(f.Search)); n > filter.MaxConditions {
		return domain.NewValidationError("search",
			fmt.Sprintf("at most %d words, got %d", filter.MaxConditions, n))
	}

	switch f.View {
	case domdisc.ViewMap:
		if _, err := geo.NormalizeBounds(f.Bounds); err != nil {
			return domain.NewValidationError("bounds", err.Error())
		}
	case domdisc.ViewList:
		if len(f.Regions) > 0 {
			return nil
		}
		if len(f.Coords) != 2 {
			return domain.NewValidationError("coords", "list view requires coords or locations")
		}
		if !geo.ValidateCoordinates(f.Coords[0], f.Coords[1]) {
			return domain.NewValidationError("coords", "coordinates out of range")
		}
	}
	return nil
}

// Resolver turns the spatial part of the filters into a spatial predicate.
type Resolver struct {
	regions RegionLocator
}

// NewResolver creates a resolver backed by regions.
func NewResolver(regions RegionLocator) *Resolver {
	return &Resolver{regions: regions}
}

// Resolve returns the spatial predicate for f. Map view yields a normalized
// bounding box; list view yields region membership, either the explicit
// region list or the region nearest to the coordinates. When no nearest
// region exists the predicate matches nothing.
func (r *Resolver) Resolve(ctx context.Context, f domdisc.Filters) (domdisc.Spatial, error) {
	if err := Validate(f); err != nil {
		return domdisc.Spatial{}, err
	}

	if f.View == domdisc.ViewMap {
		bb, err := geo.NormalizeBounds(f.Bounds)
		if err != nil {
			return domdisc.Spatial{}, domain.NewValidationError("bounds", err.Error())
		}
		return domdisc.Spatial{Bounds: &bb}, nil
	}

	if len(f.Regions) > 0 {
		return domdisc.Spatial{Regions: append([]int64(nil), f.Regions...)}, nil
	}

	id, found, err := r.regions.NearestRegion(ctx, f.Coords[0], f.Coords[1])
	if err != nil {
		return domdisc.Spatial{}, domain.Upstream("nearest region", err)
	}
	if !found {
		return domdisc.Spatial{Empty: true}, nil
	}
	return domdisc.Spatial{Regions: []int64{id}}, nil
}
