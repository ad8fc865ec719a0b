package engagement

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/geofeed/internal/db"
	"github.com/kailas-cloud/geofeed/internal/domain/engagement"
	"github.com/kailas-cloud/geofeed/internal/domain/entity"
)

// store is the consumer interface for engagement data (ISP).
type store interface {
	HIncrByMulti(ctx context.Context, items []db.HashIncrItem) error
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	SAdd(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	ZAdd(ctx context.Context, key string, members ...db.ScoredMember) error
	ZRangeByScore(ctx context.Context, key string, minScore, maxScore float64) ([]db.ScoredMember, error)
	ZRemRangeByScore(ctx context.Context, key string, minScore, maxScore float64) error
}

// Aggregate field suffixes: {categoryId}:{suffix}.
const (
	suffixClicks      = "clicks"
	suffixDwell       = "dwell"
	suffixImpressions = "impressions"
)

// Delta is an increment of one user's aggregate for one category.
type Delta struct {
	Kind        entity.Kind
	CategoryID  int64
	Clicks      int64
	DwellTime   int64
	Impressions int64
}

// Repo stores per-user engagement aggregates, preference sets and the
// per-kind click timeline.
//
// Keys, for prefix p:
//
//	{p}engagement:{kind}:{user}  hash  {cat}:clicks {cat}:dwell {cat}:impressions
//	{p}prefs:{kind}:{user}       set   category ids
//	{p}clicks:{kind}             zset  {entityId}:{uuid} scored by unix seconds
type Repo struct {
	store  store
	prefix string
	newID  func() string
}

// New creates an engagement repository.
func New(s store, prefix string) *Repo {
	return &Repo{store: s, prefix: prefix, newID: uuid.NewString}
}

// Increment applies deltas to userID's aggregates in one pipelined round-trip.
func (r *Repo) Increment(ctx context.Context, userID string, deltas []Delta) error {
	items := make([]db.HashIncrItem, 0, len(deltas)*3)
	for _, d := range deltas {
		key := r.aggregateKey(d.Kind, userID)
		cat := strconv.FormatInt(d.CategoryID, 10)
		if d.Clicks != 0 {
			items = append(items, db.HashIncrItem{Key: key, Field: cat + ":" + suffixClicks, By: d.Clicks})
		}
		if d.DwellTime != 0 {
			items = append(items, db.HashIncrItem{Key: key, Field: cat + ":" + suffixDwell, By: d.DwellTime})
		}
		if d.Impressions != 0 {
			items = append(items, db.HashIncrItem{Key: key, Field: cat + ":" + suffixImpressions, By: d.Impressions})
		}
	}
	if len(items) == 0 {
		return nil
	}
	if err := r.store.HIncrByMulti(ctx, items); err != nil {
		return fmt.Errorf("increment engagement: %w", err)
	}
	return nil
}

// MetricsByCategory returns userID's aggregates per category, summed across
// kinds, ordered by category id.
func (r *Repo) MetricsByCategory(ctx context.Context, userID string, kinds ...entity.Kind) ([]engagement.CategoryStats, error) {
	if len(kinds) == 0 {
		return nil, nil
	}
	keys := make([]string, len(kinds))
	for i, k := range kinds {
		keys[i] = r.aggregateKey(k, userID)
	}
	hashes, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("read engagement: %w", err)
	}

	byCat := make(map[int64]*engagement.CategoryStats)
	for _, h := range hashes {
		for field, raw := range h {
			catStr, suffix, ok := strings.Cut(field, ":")
			if !ok {
				continue
			}
			cat, err := strconv.ParseInt(catStr, 10, 64)
			if err != nil {
				continue
			}
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				continue
			}
			s, ok := byCat[cat]
			if !ok {
				s = &engagement.CategoryStats{CategoryID: cat}
				byCat[cat] = s
			}
			switch suffix {
			case suffixClicks:
				s.Clicks += n
			case suffixDwell:
				s.DwellTime += n
			case suffixImpressions:
				s.Impressions += n
			}
		}
	}

	out := make([]engagement.CategoryStats, 0, len(byCat))
	for _, s := range byCat {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryID < out[j].CategoryID })
	return out, nil
}

// PreferenceSet returns the category ids userID explicitly prefers for kind.
func (r *Repo) PreferenceSet(ctx context.Context, userID string, kind entity.Kind) (map[int64]struct{}, error) {
	members, err := r.store.SMembers(ctx, r.prefsKey(kind, userID))
	if err != nil {
		return nil, fmt.Errorf("read preferences: %w", err)
	}
	out := make(map[int64]struct{}, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		out[id] = struct{}{}
	}
	return out, nil
}

// AddPreferences adds category ids to userID's preference set for kind.
func (r *Repo) AddPreferences(ctx context.Context, userID string, kind entity.Kind, categoryIDs ...int64) error {
	if len(categoryIDs) == 0 {
		return nil
	}
	members := make([]string, len(categoryIDs))
	for i, id := range categoryIDs {
		members[i] = strconv.FormatInt(id, 10)
	}
	if err := r.store.SAdd(ctx, r.prefsKey(kind, userID), members...); err != nil {
		return fmt.Errorf("add preferences: %w", err)
	}
	return nil
}

// AppendClicks adds clicks to the kind's timeline and trims entries older
// than retain relative to now.
func (r *Repo) AppendClicks(ctx context.Context, kind entity.Kind, clicks []engagement.Click, now time.Time, retain time.Duration) error {
	if len(clicks) == 0 {
		return nil
	}
	members := make([]db.ScoredMember, len(clicks))
	for i, c := range clicks {
		members[i] = db.ScoredMember{
			Member: strconv.FormatInt(c.EntityID, 10) + ":" + r.newID(),
			Score:  float64(c.At.Unix()),
		}
	}
	key := r.clicksKey(kind)
	if err := r.store.ZAdd(ctx, key, members...); err != nil {
		return fmt.Errorf("append clicks: %w", err)
	}
	if retain > 0 {
		cutoff := float64(now.Add(-retain).Unix())
		if err := r.store.ZRemRangeByScore(ctx, key, math.Inf(-1), cutoff-1); err != nil {
			return fmt.Errorf("trim clicks: %w", err)
		}
	}
	return nil
}

// ClicksSince returns the kind's timeline entries at or after since.
func (r *Repo) ClicksSince(ctx context.Context, kind entity.Kind, since time.Time) ([]engagement.Click, error) {
	members, err := r.store.ZRangeByScore(ctx, r.clicksKey(kind), float64(since.Unix()), math.Inf(1))
	if err != nil {
		return nil, fmt.Errorf("read clicks: %w", err)
	}
	out := make([]engagement.Click, 0, len(members))
	for _, m := range members {
		idStr, _, _ := strings.Cut(m.Member, ":")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, engagement.Click{EntityID: id, At: time.Unix(int64(m.Score), 0).UTC()})
	}
	return out, nil
}

func (r *Repo) aggregateKey(kind entity.Kind, userID string) string {
	return r.prefix + "engagement:" + string(kind) + ":" + userID
}

func (r *Repo) prefsKey(kind entity.Kind, userID string) string {
	return r.prefix + "prefs:" + string(kind) + ":" + userID
}

func (r *Repo) clicksKey(kind entity.Kind) string {
	return r.prefix + "clicks:" + string(kind)
}
