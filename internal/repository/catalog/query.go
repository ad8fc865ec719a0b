package catalog

import (
	"fmt"
	"strconv"

	"github.com/kailas-cloud/geofeed/internal/db/filter"
	"github.com/kailas-cloud/geofeed/internal/domain/discovery"
	"github.com/kailas-cloud/geofeed/internal/domain/discovery/predicate"
	"github.com/kailas-cloud/geofeed/internal/domain/entity"
)

// categoryField maps a kind to the stored field holding its category id.
func categoryField(kind entity.Kind) (string, bool) {
	switch kind {
	case entity.KindVenue:
		return fieldVenueType, true
	case entity.KindEvent:
		return fieldEventType, true
	case entity.KindPromotion:
		return fieldPromotionType, true
	case entity.KindPerformer:
		return fieldCategoryID, true
	}
	return "", false
}

// conditionBuilder accumulates conditions, keeping the first error.
type conditionBuilder struct {
	conds []filter.Condition
	err   error
}

func (b *conditionBuilder) add(c filter.Condition, err error) {
	if b.err != nil {
		return
	}
	if err != nil {
		b.err = err
		return
	}
	b.conds = append(b.conds, c)
}

func (b *conditionBuilder) rangeOf(key string, gte, lte *float64) {
	b.add(filter.Between(key, gte, lte))
}

func (b *conditionBuilder) spatial(s discovery.Spatial) {
	if s.Bounds != nil {
		bb := *s.Bounds
		b.rangeOf(fieldLat, &bb.MinLat, &bb.MaxLat)
		b.rangeOf(fieldLng, &bb.MinLng, &bb.MaxLng)
	}
	if len(s.Regions) > 0 {
		b.add(filter.Tag(fieldCityID, formatIDs(s.Regions)...))
	}
}

func (b *conditionBuilder) window(w discovery.DateWindow) {
	if w.IsOpen() {
		return
	}
	var from, to *float64
	if w.From != nil {
		v := float64(w.From.Unix())
		from = &v
	}
	if w.To != nil {
		v := float64(w.To.Unix())
		to = &v
	}
	b.rangeOf(fieldStartDate, from, to)
}

func (b *conditionBuilder) venues(ids []int64) {
	b.add(filter.Tag(fieldVenueID, formatIDs(ids)...))
}

func (b *conditionBuilder) predicate(p predicate.Predicate) {
	for _, c := range p.Conditions() {
		switch c := c.(type) {
		case predicate.CategoryIn:
			key, ok := categoryField(p.Kind())
			if !ok {
				b.add(filter.Condition{}, fmt.Errorf("no category field for %s", p.Kind()))
				continue
			}
			b.add(filter.Tag(key, formatIDs(c.IDs)...))
		case predicate.PriceAtMost:
			ceiling := c.Max
			b.rangeOf(fieldPrice, nil, &ceiling)
		case predicate.TextMatch:
			fields := make([]string, len(c.Fields))
			for i, f := range c.Fields {
				fields[i] = string(f)
			}
			b.add(filter.FullText(fields, c.Term))
		case predicate.HasNested:
			switch c.Kind {
			case entity.KindEvent:
				b.add(filter.Tag(fieldHasEvents, flagTrue))
			case entity.KindPromotion:
				b.add(filter.Tag(fieldHasPromotions, flagTrue))
			default:
				b.add(filter.Condition{}, fmt.Errorf("unsupported nested kind %s", c.Kind))
			}
		case predicate.FlagEquals:
			b.add(filter.Tag(string(c.Field), flag(c.Value)))
		default:
			b.add(filter.Condition{}, fmt.Errorf("unsupported condition %s", c.Name()))
		}
	}
}

func (b *conditionBuilder) build() (filter.Expression, error) {
	if b.err != nil {
		return filter.Expression{}, b.err
	}
	return filter.All(b.conds...)
}

func formatIDs(ids []int64) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = strconv.FormatInt(id, 10)
	}
	return out
}
