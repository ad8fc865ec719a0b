package catalog

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"github.com/kailas-cloud/geofeed/internal/domain/entity"
	"github.com/kailas-cloud/geofeed/internal/domain/geo"
)

// Stored hash fields.
const (
	fieldID            = "id"
	fieldVenueID       = "venue_id"
	fieldVenueName     = "venue_name"
	fieldName          = "name"
	fieldTitle         = "title"
	fieldDescription   = "description"
	fieldHeadline      = "headline"
	fieldImage         = "image"
	fieldPrice         = "price"
	fieldStartDate     = "start_date"
	fieldVenueType     = "venue_type_id"
	fieldEventType     = "event_type_id"
	fieldPromotionType = "promotion_type_id"
	fieldCategoryName  = "category_name"
	fieldCategoryID    = "category_id"
	fieldLocationID    = "location_id"
	fieldLat           = "lat"
	fieldLng           = "lng"
	fieldAddress       = "address"
	fieldCityID        = "city_id"
	fieldAccessible    = "is_accessible"
	fieldOutdoor       = "is_outdoor"
	fieldHasEvents     = "has_events"
	fieldHasPromotions = "has_promotions"
	fieldPerformers    = "performers"
	fieldVector        = "__vector"
)

// performerRow is the JSON form of a performer embedded in an event hash.
type performerRow struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Image      string `json:"image,omitempty"`
	CategoryID int64  `json:"categoryId,omitempty"`
}

func venueToHash(v entity.Venue) map[string]string {
	m := map[string]string{
		fieldID:            itoa(v.ID),
		fieldVenueID:       itoa(v.ID),
		fieldName:          v.Name,
		fieldDescription:   v.Description,
		fieldImage:         v.Image,
		fieldAccessible:    flag(v.IsAccessible),
		fieldOutdoor:       flag(v.IsOutdoor),
		fieldHasEvents:     flag(v.HasEvents),
		fieldHasPromotions: flag(v.HasPromotions),
	}
	putCategory(m, fieldVenueType, v.Category)
	putLocation(m, v.Location)
	return m
}

func venueFromHash(m map[string]string) (entity.Venue, error) {
	id, err := strconv.ParseInt(m[fieldID], 10, 64)
	if err != nil {
		return entity.Venue{}, fmt.Errorf("invalid venue id: %w", err)
	}
	return entity.Venue{
		ID:            id,
		Name:          m[fieldName],
		Description:   m[fieldDescription],
		Image:         m[fieldImage],
		Category:      categoryFrom(m, fieldVenueType),
		Location:      locationFrom(m),
		IsAccessible:  m[fieldAccessible] == flagTrue,
		IsOutdoor:     m[fieldOutdoor] == flagTrue,
		HasEvents:     m[fieldHasEvents] == flagTrue,
		HasPromotions: m[fieldHasPromotions] == flagTrue,
	}, nil
}

func eventToHash(e entity.Event) (map[string]string, error) {
	rows := make([]performerRow, len(e.Performers))
	for i, p := range e.Performers {
		rows[i] = performerRow{ID: p.ID, Name: p.Name, Image: p.Image, CategoryID: p.CategoryID}
	}
	performersJSON, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("marshal performers: %w", err)
	}

	m := datedToHash(e.ID, e.Title, e.Description, e.Headline, e.Image, e.Price, e.StartDate, e.VenueID, e.VenueName)
	m[fieldPerformers] = string(performersJSON)
	putCategory(m, fieldEventType, e.Category)
	putLocation(m, e.Location)
	return m, nil
}

func eventFromHash(m map[string]string) (entity.Event, error) {
	id, err := strconv.ParseInt(m[fieldID], 10, 64)
	if err != nil {
		return entity.Event{}, fmt.Errorf("invalid event id: %w", err)
	}

	var rows []performerRow
	if raw := m[fieldPerformers]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &rows); err != nil {
			return entity.Event{}, fmt.Errorf("unmarshal performers: %w", err)
		}
	}
	var performers []entity.Performer
	if len(rows) > 0 {
		performers = make([]entity.Performer, len(rows))
		for i, r := range rows {
			performers[i] = entity.Performer{ID: r.ID, Name: r.Name, Image: r.Image, CategoryID: r.CategoryID}
		}
	}

	return entity.Event{
		ID:          id,
		Title:       m[fieldTitle],
		Description: m[fieldDescription],
		Headline:    m[fieldHeadline],
		Image:       m[fieldImage],
		Price:       priceFrom(m),
		StartDate:   dateFrom(m),
		Category:    categoryFrom(m, fieldEventType),
		VenueID:     parseInt(m[fieldVenueID]),
		VenueName:   m[fieldVenueName],
		Location:    locationFrom(m),
		Performers:  performers,
	}, nil
}

func promotionToHash(p entity.Promotion) map[string]string {
	m := datedToHash(p.ID, p.Title, p.Description, p.Headline, p.Image, p.Price, p.StartDate, p.VenueID, p.VenueName)
	putCategory(m, fieldPromotionType, p.Category)
	putLocation(m, p.Location)
	return m
}

func promotionFromHash(m map[string]string) (entity.Promotion, error) {
	id, err := strconv.ParseInt(m[fieldID], 10, 64)
	if err != nil {
		return entity.Promotion{}, fmt.Errorf("invalid promotion id: %w", err)
	}
	return entity.Promotion{
		ID:          id,
		Title:       m[fieldTitle],
		Description: m[fieldDescription],
		Headline:    m[fieldHeadline],
		Image:       m[fieldImage],
		Price:       priceFrom(m),
		StartDate:   dateFrom(m),
		Category:    categoryFrom(m, fieldPromotionType),
		VenueID:     parseInt(m[fieldVenueID]),
		VenueName:   m[fieldVenueName],
		Location:    locationFrom(m),
	}, nil
}

func performerToHash(p entity.Performer) map[string]string {
	return map[string]string{
		fieldID:           itoa(p.ID),
		fieldName:         p.Name,
		fieldImage:        p.Image,
		fieldCategoryID:   itoa(p.CategoryID),
		fieldCategoryName: p.CategoryName,
	}
}

func performerFromHash(m map[string]string) (entity.Performer, error) {
	id, err := strconv.ParseInt(m[fieldID], 10, 64)
	if err != nil {
		return entity.Performer{}, fmt.Errorf("invalid performer id: %w", err)
	}
	return entity.Performer{
		ID:           id,
		Name:         m[fieldName],
		Image:        m[fieldImage],
		CategoryID:   parseInt(m[fieldCategoryID]),
		CategoryName: m[fieldCategoryName],
	}, nil
}

// locationToHash stores the coordinates next to their ECEF vector, which the
// nearest-region KNN search runs on.
func locationToHash(l entity.Location) map[string]string {
	return map[string]string{
		fieldID:      itoa(l.ID),
		fieldLat:     ftoa(l.Lat),
		fieldLng:     ftoa(l.Lng),
		fieldAddress: l.Address,
		fieldCityID:  itoa(l.RegionID),
		fieldVector:  vectorBytes(geo.ToVector(l.Lat, l.Lng)),
	}
}

func datedToHash(
	id int64, title, description, headline, image string,
	price *float64, start time.Time, venueID int64, venueName string,
) map[string]string {
	m := map[string]string{
		fieldID:          itoa(id),
		fieldTitle:       title,
		fieldDescription: description,
		fieldHeadline:    headline,
		fieldImage:       image,
		fieldVenueID:     itoa(venueID),
		fieldVenueName:   venueName,
	}
	if price != nil {
		m[fieldPrice] = ftoa(*price)
	}
	if !start.IsZero() {
		m[fieldStartDate] = itoa(start.Unix())
	}
	return m
}

func putCategory(m map[string]string, idField string, c *entity.Category) {
	if c == nil {
		return
	}
	m[idField] = itoa(c.ID)
	m[fieldCategoryName] = c.Name
}

func putLocation(m map[string]string, l *entity.Location) {
	if l == nil {
		return
	}
	m[fieldLocationID] = itoa(l.ID)
	m[fieldLat] = ftoa(l.Lat)
	m[fieldLng] = ftoa(l.Lng)
	m[fieldAddress] = l.Address
	m[fieldCityID] = itoa(l.RegionID)
}

func categoryFrom(m map[string]string, idField string) *entity.Category {
	raw, ok := m[idField]
	if !ok || raw == "" {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &entity.Category{ID: id, Name: m[fieldCategoryName]}
}

func locationFrom(m map[string]string) *entity.Location {
	latStr, okLat := m[fieldLat]
	lngStr, okLng := m[fieldLng]
	if !okLat || !okLng {
		return nil
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return nil
	}
	return &entity.Location{
		ID:       parseInt(m[fieldLocationID]),
		Lat:      lat,
		Lng:      lng,
		Address:  m[fieldAddress],
		RegionID: parseInt(m[fieldCityID]),
	}
}

func priceFrom(m map[string]string) *float64 {
	raw, ok := m[fieldPrice]
	if !ok || raw == "" {
		return nil
	}
	p, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &p
}

func dateFrom(m map[string]string) time.Time {
	sec := parseInt(m[fieldStartDate])
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

const (
	flagTrue  = "1"
	flagFalse = "0"
)

func flag(b bool) string {
	if b {
		return flagTrue
	}
	return flagFalse
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func parseInt(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func vectorBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
