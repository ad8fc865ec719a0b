package discovery

import (
	"time"

	domdisc "github.com/kailas-cloud/geofeed/internal/domain/discovery"
	"github.com/kailas-cloud/geofeed/internal/domain/discovery/predicate"
	"github.com/kailas-cloud/geofeed/internal/domain/entity"
)

// Compile builds the per-kind predicates from the flat filters. A kind's
// predicate is active only when at least one of its filters was supplied.
func Compile(f domdisc.Filters) domdisc.Predicates {
	return domdisc.Predicates{
		Venue: predicate.NewBuilder(entity.KindVenue).
			CategoryIn(f.VenueTypes).
			HasNested(entity.KindEvent, f.HasEvents).
			HasNested(entity.KindPromotion, f.HasPromotions).
			FlagEquals(predicate.FieldAccessible, f.IsAccessible).
			FlagEquals(predicate.FieldOutdoor, f.IsOutdoors).
			TextMatch(f.Search, predicate.FieldName, predicate.FieldDescription).
			Build(),

		Event: predicate.NewBuilder(entity.KindEvent).
			CategoryIn(f.EventTypes).
			PriceAtMost(f.MaxPrice).
			TextMatch(f.Search, predicate.FieldTitle, predicate.FieldDescription, predicate.FieldHeadline).
			Build(),

		Promotion: predicate.NewBuilder(entity.KindPromotion).
			CategoryIn(f.PromotionTypes).
			TextMatch(f.Search, predicate.FieldTitle, predicate.FieldDescription, predicate.FieldHeadline).
			Build(),
	}
}

// Window returns the nested date window. Map view covers span from the target
// date, or from now when no date is given. List view uses startDate/endDate
// and leaves absent sides open.
func Window(f domdisc.Filters, now time.Time, span time.Duration) domdisc.DateWindow {
	if f.View == domdisc.ViewList {
		return domdisc.DateWindow{From: f.StartDate, To: f.EndDate}
	}
	from := now
	if f.Date != nil {
		from = *f.Date
	}
	to := from.Add(span)
	return domdisc.DateWindow{From: &from, To: &to}
}
