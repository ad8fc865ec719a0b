package scoring

import (
	"math"
	"sort"
	"time"

	"github.com/kailas-cloud/geofeed/internal/domain/engagement"
)

// Rank orders items by score descending and keeps the first topN. Items
// without a score count as 0; equal scores keep input order. topN <= 0 keeps
// every item.
func Rank[T any](items []T, key func(T) string, scores map[string]float64, topN int) []T {
	ranked := make([]T, len(items))
	copy(ranked, items)
	sort.SliceStable(ranked, func(i, j int) bool {
		return scores[key(ranked[i])] > scores[key(ranked[j])]
	})
	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}

// Popular is an entity with its decayed click popularity.
type Popular struct {
	EntityID int64
	Score    float64
}

// Popularity sums exp(-rate * hoursAgo) over each entity's clicks and orders
// entities by that sum descending, ties by entity id ascending. Clicks in
// the future count as now.
func Popularity(clicks []engagement.Click, now time.Time, rate float64) []Popular {
	sums := make(map[int64]float64)
	for _, c := range clicks {
		hours := max(now.Sub(c.At).Hours(), 0)
		sums[c.EntityID] += math.Exp(-rate * hours)
	}

	out := make([]Popular, 0, len(sums))
	for id, s := range sums {
		out = append(out, Popular{EntityID: id, Score: s})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].EntityID < out[j].EntityID
	})
	return out
}
