package discovery

import (
	domdisc "github.com/kailas-cloud/geofeed/internal/domain/discovery"
	"github.com/kailas-cloud/geofeed/internal/domain/entity"
	"github.com/kailas-cloud/geofeed/internal/domain/feed"
)

// emission is what one venue contributes to the flattened feed.
type emission struct {
	venue      bool
	events     bool
	promotions bool
}

// emissionFor applies the precedence rules:
//   - no active predicate: nested events and promotions, not the venue
//   - only the venue predicate: the venue
//   - otherwise events when the event predicate is active, promotions when
//     the promotion predicate is active
func emissionFor(p domdisc.Predicates) emission {
	hasVenue, hasEvent, hasPromotion := p.Venue.IsActive(), p.Event.IsActive(), p.Promotion.IsActive()
	switch {
	case !hasVenue && !hasEvent && !hasPromotion:
		return emission{events: true, promotions: true}
	case !hasEvent && !hasPromotion:
		return emission{venue: true}
	}
	return emission{events: hasEvent, promotions: hasPromotion}
}

// Flatten projects venues with their nested sets into feed entries, in venue
// order. Map view yields markers, list view yields items.
func Flatten(venues []entity.Venue, p domdisc.Predicates, view domdisc.View) feed.Result {
	em := emissionFor(p)
	if view == domdisc.ViewMap {
		return feed.Result{Markers: flattenMarkers(venues, em)}
	}
	return feed.Result{Items: flattenItems(venues, em)}
}

func flattenItems(venues []entity.Venue, em emission) []feed.Item {
	items := make([]feed.Item, 0, len(venues))
	for i := range venues {
		v := &venues[i]
		if em.venue {
			items = append(items, feed.VenueItem(*v))
		}
		if em.events {
			for _, e := range v.Events {
				items = append(items, feed.EventItem(e, v))
			}
		}
		if em.promotions {
			for _, pr := range v.Promotions {
				items = append(items, feed.PromotionItem(pr, v))
			}
		}
	}
	return items
}

func flattenMarkers(venues []entity.Venue, em emission) []feed.Marker {
	markers := make([]feed.Marker, 0, len(venues))
	add := func(m feed.Marker, ok bool) {
		if ok {
			markers = append(markers, m)
		}
	}
	for i := range venues {
		v := &venues[i]
		if em.venue {
			add(feed.VenueMarker(*v))
		}
		if em.events {
			for _, e := range v.Events {
				add(feed.EventMarker(e, v))
			}
		}
		if em.promotions {
			for _, pr := range v.Promotions {
				add(feed.PromotionMarker(pr, v))
			}
		}
	}
	return markers
}
