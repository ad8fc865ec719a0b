package recommend

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/geofeed/internal/domain"
	domdisc "github.com/kailas-cloud/geofeed/internal/domain/discovery"
	"github.com/kailas-cloud/geofeed/internal/domain/entity"
	"github.com/kailas-cloud/geofeed/internal/domain/feed"
	"github.com/kailas-cloud/geofeed/internal/logger"
	"github.com/kailas-cloud/geofeed/internal/metrics"
	"github.com/kailas-cloud/geofeed/internal/usecase/discovery"
	"github.com/kailas-cloud/geofeed/internal/usecase/scoring"
)

// Config holds the recommendation parameters.
type Config struct {
	TopN          int
	PopularWindow time.Duration
	DecayRate     float64
}

// Service builds the personalized and popular feeds.
type Service struct {
	assembler Assembler
	timeline  Timeline
	scorers   map[entity.Kind]Scorer
	cfg       Config
	now       func() time.Time
}

// New creates a recommendation service. Each scorer serves the kind it
// reports; performer items are scored by the event scorer.
func New(assembler Assembler, timeline Timeline, cfg Config, scorers ...Scorer) *Service {
	if cfg.TopN <= 0 {
		cfg.TopN = 10
	}
	if cfg.PopularWindow <= 0 {
		cfg.PopularWindow = 7 * 24 * time.Hour
	}
	byKind := make(map[entity.Kind]Scorer, len(scorers))
	for _, s := range scorers {
		byKind[s.Kind()] = s
	}
	return &Service{assembler: assembler, timeline: timeline, scorers: byKind, cfg: cfg, now: time.Now}
}

// ForYou runs the list-view fetch for f and ranks the candidates for userID.
// When any scorer fails the first topN candidates are returned unranked.
func (s *Service) ForYou(ctx context.Context, userID string, f domdisc.Filters, topN int) ([]feed.Item, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	if topN <= 0 {
		topN = s.cfg.TopN
	}

	f.View = domdisc.ViewList
	res, err := s.assembler.Assemble(ctx, f)
	if err != nil {
		return nil, err
	}
	items := res.Items

	scores, err := s.score(ctx, userID, items)
	if err != nil {
		logger.FromContext(ctx).Warn("personalization degraded",
			zap.String("user_id", userID),
			zap.Int("candidates", len(items)),
			zap.Error(err),
		)
		metrics.ScoringDegradedTotal.Inc()
		if len(items) > topN {
			items = items[:topN]
		}
		return items, nil
	}

	return scoring.Rank(items, feed.Item.Key, scores, topN), nil
}

// score groups items by scorer kind and scores the groups concurrently.
func (s *Service) score(ctx context.Context, userID string, items []feed.Item) (map[string]float64, error) {
	groups := make(map[entity.Kind][]scoring.Candidate)
	for _, it := range items {
		kind := it.Type
		if kind == entity.KindPerformer {
			kind = entity.KindEvent
		}
		groups[kind] = append(groups[kind], scoring.Candidate{ID: it.Key(), CategoryID: it.CategoryID})
	}

	kinds := make([]entity.Kind, 0, len(groups))
	for kind := range groups {
		if _, ok := s.scorers[kind]; !ok {
			return nil, fmt.Errorf("no scorer for %s", kind)
		}
		kinds = append(kinds, kind)
	}

	results := make([]map[string]float64, len(kinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		g.Go(func() error {
			scores, err := s.scorers[kind].Score(gctx, userID, groups[kind])
			if err != nil {
				return fmt.Errorf("score %s: %w", kind, err)
			}
			results[i] = scores
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]float64, len(items))
	for _, r := range results {
		for k, v := range r {
			merged[k] = v
		}
	}
	return merged, nil
}

// Popular returns the topN entities of kind by decayed click popularity over
// the popular window, in rank order.
func (s *Service) Popular(ctx context.Context, kind entity.Kind, topN int) ([]feed.Item, error) {
	if !kind.Valid() {
		return nil, domain.NewValidationError("kind", fmt.Sprintf("unknown kind %q", kind))
	}
	if topN <= 0 {
		topN = s.cfg.TopN
	}

	now := s.now().UTC()
	clicks, err := s.timeline.ClicksSince(ctx, kind, now.Add(-s.cfg.PopularWindow))
	if err != nil {
		return nil, domain.Upstream("read click timeline", err)
	}

	ranked := scoring.Popularity(clicks, now, s.cfg.DecayRate)
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	if len(ranked) == 0 {
		return []feed.Item{}, nil
	}

	ids := make([]int64, len(ranked))
	for i, p := range ranked {
		ids[i] = p.EntityID
	}

	var target discovery.IDs
	switch kind {
	case entity.KindVenue:
		target.Venues = ids
	case entity.KindEvent:
		target.Events = ids
	case entity.KindPromotion:
		target.Promotions = ids
	case entity.KindPerformer:
		target.Performers = ids
	}
	return s.assembler.FetchByIDs(ctx, target)
}
