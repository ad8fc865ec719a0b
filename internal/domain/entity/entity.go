// Package entity holds the catalog entities read by the discovery feed.
package entity

import "time"

// Kind names one of the catalog entity kinds.
type Kind string

const (
	// KindVenue is a physical place.
	KindVenue Kind = "venue"
	// KindEvent is a dated happening at a venue.
	KindEvent Kind = "event"
	// KindPromotion is a dated offer at a venue.
	KindPromotion Kind = "promotion"
	// KindPerformer is an act appearing at events.
	KindPerformer Kind = "performer"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindVenue, KindEvent, KindPromotion, KindPerformer:
		return true
	}
	return false
}

// Category is the type taxonomy entry of an entity (venue type, event type, ...).
type Category struct {
	ID   int64
	Name string
}

// Location is a geocoded address belonging to a region.
type Location struct {
	ID       int64   `json:"id"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Address  string  `json:"address,omitempty"`
	RegionID int64   `json:"regionId,omitempty"`
}

// Venue is a place hosting events and promotions.
type Venue struct {
	ID            int64
	Name          string
	Description   string
	Image         string
	Category      *Category
	Location      *Location
	IsAccessible  bool
	IsOutdoor     bool
	HasEvents     bool
	HasPromotions bool

	// Nested sets, populated only by the filtered fetch.
	Events     []Event
	Promotions []Promotion
}

// Performer is an act billed on an event.
type Performer struct {
	ID           int64
	Name         string
	Image        string
	CategoryID   int64
	CategoryName string
}

// Event is a dated happening owned by a venue.
type Event struct {
	ID          int64
	Title       string
	Description string
	Headline    string
	Image       string
	Price       *float64
	StartDate   time.Time
	Category    *Category
	VenueID     int64
	VenueName   string
	Location    *Location
	Performers  []Performer
}

// Promotion is a dated offer owned by a venue.
type Promotion struct {
	ID          int64
	Title       string
	Description string
	Headline    string
	Image       string
	Price       *float64
	StartDate   time.Time
	Category    *Category
	VenueID     int64
	VenueName   string
	Location    *Location
}

// CategoryID returns the category id or 0 when the relation is absent.
func CategoryID(c *Category) int64 {
	if c == nil {
		return 0
	}
	return c.ID
}

// CategoryName returns the category name or "" when the relation is absent.
func CategoryName(c *Category) string {
	if c == nil {
		return ""
	}
	return c.Name
}
