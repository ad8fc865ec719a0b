package chi

import (
	"errors"
	"net/url"
	"slices"
	"testing"
	"time"

	"github.com/kailas-cloud/geofeed/internal/domain"
	domdisc "github.com/kailas-cloud/geofeed/internal/domain/discovery"
	"github.com/kailas-cloud/geofeed/internal/domain/engagement"
	"github.com/kailas-cloud/geofeed/internal/domain/entity"
)

func TestParseFilters_Full(t *testing.T) {
	q := url.Values{
		"view":          {"list"},
		"coords":        {"40.7, -74"},
		"venueTypes":    {"1,2,,3"},
		"eventIds":      {"9"},
		"hasEvents":     {"true"},
		"isOutdoors":    {"false"},
		"maxPrice":      {"25.5"},
		"startDate":     {"2026-05-01T10:00:00+02:00"},
		"endDate":       {"2026-05-03"},
		"search":        {"  jazz  "},
		"locations":     {"7"},
		"page":          {"2"},
		"hasPromotions": {"0"},
	}

	f, err := parseFilters(q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.View != domdisc.ViewList {
		t.Errorf("view = %q", f.View)
	}
	if !slices.Equal(f.Coords, []float64{40.7, -74}) {
		t.Errorf("coords = %v", f.Coords)
	}
	if !slices.Equal(f.VenueTypes, []int64{1, 2, 3}) {
		t.Errorf("venueTypes = %v", f.VenueTypes)
	}
	if !slices.Equal(f.EventIDs, []int64{9}) || !slices.Equal(f.Regions, []int64{7}) {
		t.Errorf("eventIds = %v, regions = %v", f.EventIDs, f.Regions)
	}
	if !f.HasEvents || f.HasPromotions {
		t.Errorf("hasEvents = %v, hasPromotions = %v", f.HasEvents, f.HasPromotions)
	}
	if f.IsOutdoors == nil || *f.IsOutdoors || f.IsAccessible != nil {
		t.Errorf("isOutdoors = %v, isAccessible = %v", f.IsOutdoors, f.IsAccessible)
	}
	if f.MaxPrice == nil || *f.MaxPrice != 25.5 {
		t.Errorf("maxPrice = %v", f.MaxPrice)
	}
	if f.StartDate == nil || !f.StartDate.Equal(time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("startDate = %v", f.StartDate)
	}
	if f.EndDate == nil || !f.EndDate.Equal(time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("endDate = %v", f.EndDate)
	}
	if f.Search != "jazz" || f.Page != 2 {
		t.Errorf("search = %q, page = %d", f.Search, f.Page)
	}
}

func TestParseFilters_DefaultsToMap(t *testing.T) {
	f, err := parseFilters(url.Values{"bounds": {"40,-74,41,-73"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.View != domdisc.ViewMap || len(f.Bounds) != 4 {
		t.Errorf("filters = %+v", f)
	}
}

func TestParseFilters_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		q     url.Values
		field string
	}{
		{"view", url.Values{"view": {"grid"}}, "view"},
		{"bounds", url.Values{"bounds": {"1,x"}}, "bounds"},
		{"ids", url.Values{"venueIds": {"1,-2"}}, "venueIds"},
		{"bool", url.Values{"isAccessible": {"maybe"}}, "isAccessible"},
		{"price", url.Values{"maxPrice": {"cheap"}}, "maxPrice"},
		{"negative price", url.Values{"maxPrice": {"-1"}}, "maxPrice"},
		{"date", url.Values{"date": {"tomorrow"}}, "date"},
		{"page", url.Values{"page": {"1.5"}}, "page"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFilters(tt.q)
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tt.field {
				t.Errorf("field = %q, want %q", ve.Field, tt.field)
			}
		})
	}
}

func TestParsePopular(t *testing.T) {
	kind, limit, err := parsePopular(url.Values{"kind": {"event"}, "limit": {"5"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kind != entity.KindEvent || limit != 5 {
		t.Errorf("kind = %q, limit = %d", kind, limit)
	}

	for _, q := range []url.Values{
		{},
		{"kind": {"bar"}},
		{"kind": {"venue"}, "limit": {"500"}},
		{"kind": {"venue"}, "limit": {"ten"}},
	} {
		if _, _, err := parsePopular(q); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("%v: expected ErrValidation, got %v", q, err)
		}
	}
}

func TestMetricsRequest_Validation(t *testing.T) {
	dur := int64(1200)
	ok := metricsRequest{Entries: []metricEntry{
		{Subcategory: "venue", EngagementSource: "map", EngagementType: "dwellTime", ID: 3, Duration: &dur},
	}}
	if err := validateStruct(&ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := ok.metrics()
	if m[0].SubjectKind != entity.KindVenue || m[0].Type != engagement.TypeDwellTime || m[0].Duration != 1200 {
		t.Errorf("metric = %+v", m[0])
	}

	bad := metricsRequest{Entries: []metricEntry{
		{Subcategory: "venue", EngagementType: "click", ID: 1},
		{Subcategory: "venue", EngagementType: "hover", ID: 1},
	}}
	err := validateStruct(&bad)
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Field != "entries[1].engagementType" {
		t.Errorf("field = %q", ve.Field)
	}

	if err := validateStruct(&metricsRequest{}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("empty entries: expected ErrValidation, got %v", err)
	}
}
