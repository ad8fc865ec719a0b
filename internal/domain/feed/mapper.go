package feed

import (
	"time"

	"github.com/kailas-cloud/geofeed/internal/domain/entity"
)

// EventCard is the projection of an event: either the event itself, or the
// single performer billed on it.
type EventCard interface {
	Item() Item
	eventCard()
}

// EventVariant renders the event itself.
type EventVariant struct {
	Event     entity.Event
	VenueName string
	Location  *entity.Location
}

// PerformerVariant renders the only performer of an event, carrying the
// event's price, date and category.
type PerformerVariant struct {
	Performer entity.Performer
	Event     entity.Event
	VenueName string
	Location  *entity.Location
}

func (EventVariant) eventCard()     {}
func (PerformerVariant) eventCard() {}

// Item implements EventCard.
func (v EventVariant) Item() Item {
	return Item{
		ID:          v.Event.ID,
		Image:       v.Event.Image,
		Title:       v.Event.Title,
		Price:       v.Event.Price,
		Date:        datePtr(v.Event.StartDate),
		VenueName:   strPtr(v.VenueName),
		Subcategory: entity.CategoryName(v.Event.Category),
		Type:        entity.KindEvent,
		Location:    v.Location,
		CategoryID:  entity.CategoryID(v.Event.Category),
	}
}

// Item implements EventCard.
func (v PerformerVariant) Item() Item {
	return Item{
		ID:          v.Performer.ID,
		Image:       v.Performer.Image,
		Title:       v.Performer.Name,
		Price:       v.Event.Price,
		Date:        datePtr(v.Event.StartDate),
		VenueName:   strPtr(v.VenueName),
		Subcategory: entity.CategoryName(v.Event.Category),
		Type:        entity.KindPerformer,
		Location:    v.Location,
		CategoryID:  entity.CategoryID(v.Event.Category),
	}
}

// CardForEvent picks the event projection. venue may be nil when the event
// was fetched without its owner.
func CardForEvent(e entity.Event, venue *entity.Venue) EventCard {
	name := venueName(venue, e.VenueName)
	loc := ownerLocation(venue, e.Location)
	if len(e.Performers) == 1 {
		return PerformerVariant{Performer: e.Performers[0], Event: e, VenueName: name, Location: loc}
	}
	return EventVariant{Event: e, VenueName: name, Location: loc}
}

// VenueItem projects a venue into a feed card.
func VenueItem(v entity.Venue) Item {
	return Item{
		ID:          v.ID,
		Image:       v.Image,
		Title:       v.Name,
		Subcategory: entity.CategoryName(v.Category),
		Type:        entity.KindVenue,
		Location:    v.Location,
		CategoryID:  entity.CategoryID(v.Category),
	}
}

// EventItem projects an event into a feed card.
func EventItem(e entity.Event, venue *entity.Venue) Item {
	return CardForEvent(e, venue).Item()
}

// PromotionItem projects a promotion into a feed card.
func PromotionItem(p entity.Promotion, venue *entity.Venue) Item {
	return Item{
		ID:          p.ID,
		Image:       p.Image,
		Title:       p.Title,
		Price:       p.Price,
		Date:        datePtr(p.StartDate),
		VenueName:   strPtr(venueName(venue, p.VenueName)),
		Subcategory: entity.CategoryName(p.Category),
		Type:        entity.KindPromotion,
		Location:    ownerLocation(venue, p.Location),
		CategoryID:  entity.CategoryID(p.Category),
	}
}

// PerformerItem projects a standalone performer into a feed card.
func PerformerItem(p entity.Performer) Item {
	return Item{
		ID:          p.ID,
		Image:       p.Image,
		Title:       p.Name,
		Subcategory: p.CategoryName,
		Type:        entity.KindPerformer,
		CategoryID:  p.CategoryID,
	}
}

// VenueMarker projects a venue into a marker. ok is false when the venue has
// no location.
func VenueMarker(v entity.Venue) (Marker, bool) {
	return marker(v.ID, v.Name, entity.KindVenue, v.Location)
}

// EventMarker projects an event into a marker placed at its venue.
func EventMarker(e entity.Event, venue *entity.Venue) (Marker, bool) {
	return marker(e.ID, e.Title, entity.KindEvent, ownerLocation(venue, e.Location))
}

// PromotionMarker projects a promotion into a marker placed at its venue.
func PromotionMarker(p entity.Promotion, venue *entity.Venue) (Marker, bool) {
	return marker(p.ID, p.Title, entity.KindPromotion, ownerLocation(venue, p.Location))
}

func marker(id int64, title string, kind entity.Kind, loc *entity.Location) (Marker, bool) {
	if loc == nil {
		return Marker{}, false
	}
	return Marker{ID: id, Lat: loc.Lat, Lng: loc.Lng, Title: title, Type: kind}, true
}

// ownerLocation prefers the venue location and falls back to the entity's own.
func ownerLocation(venue *entity.Venue, own *entity.Location) *entity.Location {
	if venue != nil && venue.Location != nil {
		return venue.Location
	}
	return own
}

func venueName(venue *entity.Venue, fallback string) string {
	if venue != nil && venue.Name != "" {
		return venue.Name
	}
	return fallback
}

func datePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
