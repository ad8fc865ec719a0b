// Package discovery defines the typed inputs and intermediate query shapes of
// the discovery feed.
package discovery

import (
	"time"

	"github.com/kailas-cloud/geofeed/internal/domain/discovery/predicate"
	"github.com/kailas-cloud/geofeed/internal/domain/geo"
)

// View selects the output projection and the spatial strategy.
type View string

const (
	// ViewMap resolves a viewport and returns markers.
	ViewMap View = "map"
	// ViewList resolves a region and returns paginated feed items.
	ViewList View = "list"
)

// Valid reports whether v is a known view.
func (v View) Valid() bool { return v == ViewMap || v == ViewList }

// Filters is the parsed discovery request. It is never mutated after parsing.
type Filters struct {
	View   View
	Bounds []float64
	Coords []float64

	VenueIDs     []int64
	EventIDs     []int64
	PromotionIDs []int64

	VenueTypes     []int64
	EventTypes     []int64
	PromotionTypes []int64

	HasEvents     bool
	HasPromotions bool
	IsAccessible  *bool
	IsOutdoors    *bool

	MaxPrice  *float64
	Date      *time.Time
	StartDate *time.Time
	EndDate   *time.Time
	Search    string

	Regions []int64
	Page    int
}

// HasDirectIDs reports whether the request targets specific entities by id.
func (f Filters) HasDirectIDs() bool {
	return len(f.VenueIDs) > 0 || len(f.EventIDs) > 0 || len(f.PromotionIDs) > 0
}

// Spatial is the resolved spatial constraint on venues.
type Spatial struct {
	// Bounds restricts venues to a viewport (map view).
	Bounds *geo.BoundingBox
	// Regions restricts venues to region membership (list view).
	Regions []int64
	// Empty means nothing can match; the store is not queried.
	Empty bool
}

// DateWindow bounds nested event and promotion start dates. Nil sides are open.
type DateWindow struct {
	From *time.Time
	To   *time.Time
}

// IsOpen reports whether neither side is bounded.
func (w DateWindow) IsOpen() bool { return w.From == nil && w.To == nil }

// Predicates holds the compiled per-kind predicates.
type Predicates struct {
	Venue     predicate.Predicate
	Event     predicate.Predicate
	Promotion predicate.Predicate
}

// VenueQuery is one logical filtered fetch of venues with their nested sets.
type VenueQuery struct {
	Spatial    Spatial
	Predicates Predicates
	Window     DateWindow
	Offset     int
	// Limit of 0 means unpaginated.
	Limit int
}
