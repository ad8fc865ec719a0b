// Package feed holds the presentation shapes of the discovery feed and the
// pure projections from catalog entities into them.
package feed

import (
	"strconv"
	"time"

	"github.com/kailas-cloud/geofeed/internal/domain/entity"
)

// Item is a feed card.
type Item struct {
	ID          int64            `json:"id"`
	Image       string           `json:"image"`
	Title       string           `json:"title"`
	Price       *float64         `json:"price"`
	Date        *time.Time       `json:"date"`
	VenueName   *string          `json:"venueName,omitempty"`
	Subcategory string           `json:"subcategory"`
	Type        entity.Kind      `json:"type"`
	Location    *entity.Location `json:"location"`

	// CategoryID keys the item for scoring. Performer items carry the
	// category of the event they were collapsed from.
	CategoryID int64 `json:"-"`
}

// Key identifies an item across kinds, since ids are only unique per kind.
func (i Item) Key() string {
	return string(i.Type) + ":" + strconv.FormatInt(i.ID, 10)
}

// Marker is the coordinate-only projection used by the map view.
type Marker struct {
	ID    int64       `json:"id"`
	Lat   float64     `json:"lat"`
	Lng   float64     `json:"lng"`
	Title string      `json:"title"`
	Type  entity.Kind `json:"type"`
}

// Result is the output of one feed assembly. Exactly one of Items or Markers
// is populated depending on the projection.
type Result struct {
	Items   []Item
	Markers []Marker
}

// Len returns the number of entries in whichever projection is populated.
func (r Result) Len() int {
	return len(r.Items) + len(r.Markers)
}
