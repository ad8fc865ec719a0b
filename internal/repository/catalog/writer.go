package catalog

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/geofeed/internal/db"
	"github.com/kailas-cloud/geofeed/internal/domain/entity"
)

// Snapshot is a batch of catalog entities written together.
type Snapshot struct {
	Venues     []entity.Venue
	Events     []entity.Event
	Promotions []entity.Promotion
	Performers []entity.Performer
}

// Len returns the number of entities in the snapshot.
func (s Snapshot) Len() int {
	return len(s.Venues) + len(s.Events) + len(s.Promotions) + len(s.Performers)
}

// Put writes the snapshot in one pipelined round-trip. Every venue location
// is also stored as a location document for nearest-region lookups.
//
// Events and promotions without their own venue name or location inherit them
// from an owning venue in the same snapshot. A venue's has_events and
// has_promotions flags are derived from the events and promotions it owns in
// the snapshot.
func (r *Repo) Put(ctx context.Context, s Snapshot) error {
	items := make([]db.HashSetItem, 0, s.Len()+len(s.Venues))
	owners := make(map[int64]entity.Venue, len(s.Venues))

	withEvents := make(map[int64]bool, len(s.Events))
	for _, e := range s.Events {
		withEvents[e.VenueID] = true
	}
	withPromotions := make(map[int64]bool, len(s.Promotions))
	for _, p := range s.Promotions {
		withPromotions[p.VenueID] = true
	}

	for _, v := range s.Venues {
		v.HasEvents, v.HasPromotions = withEvents[v.ID], withPromotions[v.ID]
		owners[v.ID] = v
		items = append(items, db.HashSetItem{Key: r.keys.entity(entity.KindVenue, v.ID), Fields: venueToHash(v)})
		if v.Location != nil {
			items = append(items, db.HashSetItem{Key: r.keys.location(v.Location.ID), Fields: locationToHash(*v.Location)})
		}
	}

	for _, e := range s.Events {
		if v, ok := owners[e.VenueID]; ok {
			e.VenueName, e.Location = denormalize(v, e.VenueName, e.Location)
		}
		m, err := eventToHash(e)
		if err != nil {
			return fmt.Errorf("event %d: %w", e.ID, err)
		}
		items = append(items, db.HashSetItem{Key: r.keys.entity(entity.KindEvent, e.ID), Fields: m})
	}
	for _, p := range s.Promotions {
		if v, ok := owners[p.VenueID]; ok {
			p.VenueName, p.Location = denormalize(v, p.VenueName, p.Location)
		}
		items = append(items, db.HashSetItem{Key: r.keys.entity(entity.KindPromotion, p.ID), Fields: promotionToHash(p)})
	}
	for _, p := range s.Performers {
		items = append(items, db.HashSetItem{Key: r.keys.entity(entity.KindPerformer, p.ID), Fields: performerToHash(p)})
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("hset multi catalog: %w", err)
	}
	return nil
}

func denormalize(v entity.Venue, name string, loc *entity.Location) (string, *entity.Location) {
	if name == "" {
		name = v.Name
	}
	if loc == nil {
		loc = v.Location
	}
	return name, loc
}
