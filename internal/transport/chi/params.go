package chi

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kailas-cloud/geofeed/internal/domain"
	domdisc "github.com/kailas-cloud/geofeed/internal/domain/discovery"
	"github.com/kailas-cloud/geofeed/internal/domain/engagement"
	"github.com/kailas-cloud/geofeed/internal/domain/entity"
)

const maxLimit = 100

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// requestValidator returns the shared validator. Field names in errors come
// from the query or json tag.
func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"query", "json"} {
				if name, _, _ := strings.Cut(f.Tag.Get(tag), ","); name != "" && name != "-" {
					return name
				}
			}
			return f.Name
		})
	})
	return validate
}

// validateStruct runs the validator and reports the first failure as a
// domain validation error.
func validateStruct(v any) error {
	err := requestValidator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return domain.NewValidationError("request", err.Error())
	}
	fe := verrs[0]
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	return domain.NewValidationError(field, failureReason(fe))
}

func failureReason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}

// discoverQuery is the raw query string of the discovery routes.
type discoverQuery struct {
	View           string `query:"view" validate:"omitempty,oneof=map list"`
	Bounds         string `query:"bounds"`
	Coords         string `query:"coords"`
	VenueIDs       string `query:"venueIds"`
	EventIDs       string `query:"eventIds"`
	PromotionIDs   string `query:"promotionIds"`
	VenueTypes     string `query:"venueTypes"`
	EventTypes     string `query:"eventTypes"`
	PromotionTypes string `query:"promotionTypes"`
	HasEvents      string `query:"hasEvents" validate:"omitempty,boolean"`
	HasPromotions  string `query:"hasPromotions" validate:"omitempty,boolean"`
	IsAccessible   string `query:"isAccessible" validate:"omitempty,boolean"`
	IsOutdoors     string `query:"isOutdoors" validate:"omitempty,boolean"`
	MaxPrice       string `query:"maxPrice" validate:"omitempty,numeric"`
	Date           string `query:"date"`
	StartDate      string `query:"startDate"`
	EndDate        string `query:"endDate"`
	Search         string `query:"search" validate:"max=200"`
	Locations      string `query:"locations"`
	Page           string `query:"page" validate:"omitempty,number"`
}

func readDiscoverQuery(q url.Values) discoverQuery {
	return discoverQuery{
		View:           q.Get("view"),
		Bounds:         q.Get("bounds"),
		Coords:         q.Get("coords"),
		VenueIDs:       q.Get("venueIds"),
		EventIDs:       q.Get("eventIds"),
		PromotionIDs:   q.Get("promotionIds"),
		VenueTypes:     q.Get("venueTypes"),
		EventTypes:     q.Get("eventTypes"),
		PromotionTypes: q.Get("promotionTypes"),
		HasEvents:      q.Get("hasEvents"),
		HasPromotions:  q.Get("hasPromotions"),
		IsAccessible:   q.Get("isAccessible"),
		IsOutdoors:     q.Get("isOutdoors"),
		MaxPrice:       q.Get("maxPrice"),
		Date:           q.Get("date"),
		StartDate:      q.Get("startDate"),
		EndDate:        q.Get("endDate"),
		Search:         strings.TrimSpace(q.Get("search")),
		Locations:      q.Get("locations"),
		Page:           q.Get("page"),
	}
}

// parseFilters converts the query string into discovery filters. The view
// defaults to map.
func parseFilters(q url.Values) (domdisc.Filters, error) {
	raw := readDiscoverQuery(q)
	if err := validateStruct(&raw); err != nil {
		return domdisc.Filters{}, err
	}

	f := domdisc.Filters{View: domdisc.ViewMap, Search: raw.Search}
	if raw.View != "" {
		f.View = domdisc.View(raw.View)
	}

	var err error
	if f.Bounds, err = floatList("bounds", raw.Bounds); err != nil {
		return domdisc.Filters{}, err
	}
	if f.Coords, err = floatList("coords", raw.Coords); err != nil {
		return domdisc.Filters{}, err
	}

	ids := []struct {
		name string
		raw  string
		dst  *[]int64
	}{
		{"venueIds", raw.VenueIDs, &f.VenueIDs},
		{"eventIds", raw.EventIDs, &f.EventIDs},
		{"promotionIds", raw.PromotionIDs, &f.PromotionIDs},
		{"venueTypes", raw.VenueTypes, &f.VenueTypes},
		{"eventTypes", raw.EventTypes, &f.EventTypes},
		{"promotionTypes", raw.PromotionTypes, &f.PromotionTypes},
		{"locations", raw.Locations, &f.Regions},
	}
	for _, p := range ids {
		if *p.dst, err = intList(p.name, p.raw); err != nil {
			return domdisc.Filters{}, err
		}
	}

	f.HasEvents = raw.HasEvents != "" && mustBool(raw.HasEvents)
	f.HasPromotions = raw.HasPromotions != "" && mustBool(raw.HasPromotions)
	f.IsAccessible = optBool(raw.IsAccessible)
	f.IsOutdoors = optBool(raw.IsOutdoors)

	if raw.MaxPrice != "" {
		p, _ := strconv.ParseFloat(raw.MaxPrice, 64)
		if p < 0 {
			return domdisc.Filters{}, domain.NewValidationError("maxPrice", "must not be negative")
		}
		f.MaxPrice = &p
	}

	dates := []struct {
		name string
		raw  string
		dst  **time.Time
	}{
		{"date", raw.Date, &f.Date},
		{"startDate", raw.StartDate, &f.StartDate},
		{"endDate", raw.EndDate, &f.EndDate},
	}
	for _, d := range dates {
		if *d.dst, err = parseDate(d.name, d.raw); err != nil {
			return domdisc.Filters{}, err
		}
	}

	if raw.Page != "" {
		page, err := strconv.Atoi(raw.Page)
		if err != nil {
			return domdisc.Filters{}, domain.NewValidationError("page", "must be an integer")
		}
		f.Page = page
	}
	return f, nil
}

func floatList(name, raw string) ([]float64, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, domain.NewValidationError(name, fmt.Sprintf("invalid number %q", p))
		}
		out[i] = v
	}
	return out, nil
}

func intList(name, raw string) ([]int64, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil || v <= 0 {
			return nil, domain.NewValidationError(name, fmt.Sprintf("invalid id %q", p))
		}
		out = append(out, v)
	}
	return out, nil
}

func mustBool(raw string) bool {
	b, _ := strconv.ParseBool(raw)
	return b
}

func optBool(raw string) *bool {
	if raw == "" {
		return nil
	}
	b := mustBool(raw)
	return &b
}

// parseDate accepts RFC3339 or a bare YYYY-MM-DD (midnight UTC).
func parseDate(name, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, domain.NewValidationError(name, "must be an RFC3339 timestamp or YYYY-MM-DD")
}

// popularQuery is the raw query string of the popular route.
type popularQuery struct {
	Kind  string `query:"kind" validate:"required,oneof=venue event promotion performer"`
	Limit int    `query:"limit" validate:"gte=0,lte=100"`
}

func parsePopular(q url.Values) (entity.Kind, int, error) {
	raw := popularQuery{Kind: q.Get("kind")}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return "", 0, domain.NewValidationError("limit", "must be an integer")
		}
		raw.Limit = n
	}
	if err := validateStruct(&raw); err != nil {
		return "", 0, err
	}
	return entity.Kind(raw.Kind), raw.Limit, nil
}

// parseTopN reads the optional limit of the personalized feed.
func parseTopN(q url.Values) (int, error) {
	s := q.Get("limit")
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > maxLimit {
		return 0, domain.NewValidationError("limit", fmt.Sprintf("must be between 0 and %d", maxLimit))
	}
	return n, nil
}

// metricsRequest is the body of POST /metrics.
type metricsRequest struct {
	Entries []metricEntry `json:"entries" validate:"required,min=1,max=100,dive"`
}

type metricEntry struct {
	Subcategory      string `json:"subcategory" validate:"required,oneof=venue event promotion performer"`
	EngagementSource string `json:"engagementSource" validate:"omitempty,oneof=map list page"`
	EngagementType   string `json:"engagementType" validate:"required,oneof=click impression dwellTime"`
	ID               int64  `json:"id" validate:"required,gt=0"`
	Duration         *int64 `json:"duration" validate:"omitempty,gte=0"`
}

func (r metricsRequest) metrics() []engagement.Metric {
	out := make([]engagement.Metric, len(r.Entries))
	for i, e := range r.Entries {
		out[i] = engagement.Metric{
			SubjectID:   e.ID,
			SubjectKind: entity.Kind(e.Subcategory),
			Type:        engagement.Type(e.EngagementType),
			Source:      engagement.Source(e.EngagementSource),
		}
		if e.Duration != nil {
			out[i].Duration = *e.Duration
		}
	}
	return out
}
