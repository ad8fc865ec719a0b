// Package scoring ranks feed candidates for a user from their engagement
// history and explicit category preferences.
package scoring

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/geofeed/internal/domain/engagement"
	"github.com/kailas-cloud/geofeed/internal/domain/entity"
	"github.com/kailas-cloud/geofeed/internal/metrics"
)

// MaxScore bounds every score.
const MaxScore = 1.25

// Config holds the scoring weights and thresholds.
type Config struct {
	ClickWeight     float64
	DwellWeight     float64
	PreferenceBonus float64

	// A user is cold when total clicks or total dwell (ms) is below these.
	ColdStartClicks int64
	ColdStartDwell  int64
	// Cold users get raw*ColdStartScale + ColdStartFloor.
	ColdStartScale float64
	ColdStartFloor float64

	// DecayRate is the per-hour exponential decay of popularity.
	DecayRate float64
}

// DefaultConfig returns the production weights.
func DefaultConfig() Config {
	return Config{
		ClickWeight:     0.30,
		DwellWeight:     0.45,
		PreferenceBonus: 0.25,
		ColdStartClicks: 200,
		ColdStartDwell:  120_000,
		ColdStartScale:  0.6,
		ColdStartFloor:  0.4,
		DecayRate:       0.05,
	}
}

// Store reads the inputs of a score.
type Store interface {
	MetricsByCategory(ctx context.Context, userID string, kinds ...entity.Kind) ([]engagement.CategoryStats, error)
	PreferenceSet(ctx context.Context, userID string, kind entity.Kind) (map[int64]struct{}, error)
}

// Candidate is one item to score, keyed by an id unique within the call.
type Candidate struct {
	ID         string
	CategoryID int64
}

// Scorer scores candidates of one kind.
type Scorer struct {
	store       Store
	cfg         Config
	kind        entity.Kind
	metricKinds []entity.Kind
}

// NewVenueScorer scores venues from venue engagement and venue-type preferences.
func NewVenueScorer(store Store, cfg Config) *Scorer {
	return &Scorer{store: store, cfg: cfg, kind: entity.KindVenue, metricKinds: []entity.Kind{entity.KindVenue}}
}

// NewEventScorer scores events from event and performer engagement merged per
// event type, and event-type preferences.
func NewEventScorer(store Store, cfg Config) *Scorer {
	return &Scorer{
		store: store, cfg: cfg, kind: entity.KindEvent,
		metricKinds: []entity.Kind{entity.KindEvent, entity.KindPerformer},
	}
}

// NewPromotionScorer scores promotions from promotion engagement and
// promotion-type preferences.
func NewPromotionScorer(store Store, cfg Config) *Scorer {
	return &Scorer{store: store, cfg: cfg, kind: entity.KindPromotion, metricKinds: []entity.Kind{entity.KindPromotion}}
}

// Kind returns the preference kind of the scorer.
func (s *Scorer) Kind() entity.Kind { return s.kind }

// Score returns a score per candidate id. Scores are comparison keys only.
func (s *Scorer) Score(ctx context.Context, userID string, items []Candidate) (map[string]float64, error) {
	var (
		stats []engagement.CategoryStats
		prefs map[int64]struct{}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats, err = s.store.MetricsByCategory(gctx, userID, s.metricKinds...)
		if err != nil {
			return fmt.Errorf("read %s metrics: %w", s.kind, err)
		}
		return nil
	})
	g.Go(func() (err error) {
		prefs, err = s.store.PreferenceSet(gctx, userID, s.kind)
		if err != nil {
			return fmt.Errorf("read %s preferences: %w", s.kind, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var totalClicks, totalDwell int64
	clicks := make(map[int64]int64, len(stats))
	dwell := make(map[int64]int64, len(stats))
	for _, st := range stats {
		totalClicks += st.Clicks
		totalDwell += st.DwellTime
		clicks[st.CategoryID] += st.Clicks
		dwell[st.CategoryID] += st.DwellTime
	}

	cold := s.cfg.isCold(totalClicks, totalDwell)
	if cold {
		metrics.ScoringColdStartTotal.WithLabelValues(string(s.kind)).Inc()
	}

	scores := make(map[string]float64, len(items))
	for _, it := range items {
		_, preferred := prefs[it.CategoryID]
		scores[it.ID] = s.cfg.score(
			ratio(clicks[it.CategoryID], totalClicks),
			ratio(dwell[it.CategoryID], totalDwell),
			preferred, cold,
		)
	}
	return scores, nil
}

func (c Config) isCold(totalClicks, totalDwell int64) bool {
	return totalClicks < c.ColdStartClicks || totalDwell < c.ColdStartDwell
}

// score combines the category weights into one value in [0, MaxScore].
func (c Config) score(clickWeight, dwellWeight float64, preferred, cold bool) float64 {
	raw := clickWeight*c.ClickWeight + dwellWeight*c.DwellWeight
	if preferred {
		raw += c.PreferenceBonus
	}
	if cold {
		raw = raw*c.ColdStartScale + c.ColdStartFloor
	}
	return min(max(raw, 0), MaxScore)
}

func ratio(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total)
}
