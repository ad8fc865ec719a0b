// Package engagement records user interactions into the per-user aggregates
// and the per-kind click timeline.
package engagement

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/geofeed/internal/domain"
	domeng "github.com/kailas-cloud/geofeed/internal/domain/engagement"
	"github.com/kailas-cloud/geofeed/internal/domain/entity"
	"github.com/kailas-cloud/geofeed/internal/logger"
	"github.com/kailas-cloud/geofeed/internal/metrics"
	"github.com/kailas-cloud/geofeed/internal/repository/engagement"
)

// maxLookups bounds concurrent category reads per request.
const maxLookups = 8

// Result summarizes one Record call.
type Result struct {
	Recorded int
	Skipped  int
}

// Service is the engagement recorder.
type Service struct {
	catalog CategoryResolver
	store   Store
	retain  time.Duration
	now     func() time.Time
}

// New creates a recorder. Timeline entries older than retain are trimmed on
// every write; retain <= 0 keeps everything.
func New(catalog CategoryResolver, store Store, retain time.Duration) *Service {
	return &Service{catalog: catalog, store: store, retain: retain, now: time.Now}
}

type subject struct {
	kind entity.Kind
	id   int64
}

type aggKey struct {
	kind entity.Kind
	cat  int64
}

// Record validates entries, resolves their categories, and applies them for
// userID. Entries whose subject is not in the catalog are skipped.
func (s *Service) Record(ctx context.Context, userID string, entries []domeng.Metric) (Result, error) {
	if userID == "" {
		return Result{}, domain.ErrUnauthorized
	}
	now := s.now().UTC()
	for i := range entries {
		entries[i].UserID = userID
		if entries[i].Timestamp.IsZero() {
			entries[i].Timestamp = now
		}
		if err := entries[i].Validate(); err != nil {
			return Result{}, domain.NewValidationError(fmt.Sprintf("entries[%d]", i), err.Error())
		}
	}
	if len(entries) == 0 {
		return Result{}, nil
	}

	categories, err := s.resolve(ctx, entries)
	if err != nil {
		return Result{}, domain.Upstream("resolve categories", err)
	}

	var res Result
	agg := make(map[aggKey]*engagement.Delta)
	clicks := make(map[entity.Kind][]domeng.Click)
	for _, e := range entries {
		cat, ok := categories[subject{e.SubjectKind, e.SubjectID}]
		if !ok {
			res.Skipped++
			continue
		}
		k := aggKey{e.SubjectKind, cat}
		d, ok := agg[k]
		if !ok {
			d = &engagement.Delta{Kind: e.SubjectKind, CategoryID: cat}
			agg[k] = d
		}
		switch e.Type {
		case domeng.TypeClick:
			d.Clicks++
			clicks[e.SubjectKind] = append(clicks[e.SubjectKind], domeng.Click{EntityID: e.SubjectID, At: e.Timestamp})
		case domeng.TypeDwellTime:
			d.DwellTime += e.Duration
		case domeng.TypeImpression:
			d.Impressions++
		}
		res.Recorded++
	}

	if res.Skipped > 0 {
		logger.FromContext(ctx).Info("engagement entries skipped",
			zap.String("user_id", userID),
			zap.Int("skipped", res.Skipped),
		)
	}
	if len(agg) == 0 {
		return res, nil
	}

	deltas := make([]engagement.Delta, 0, len(agg))
	for _, d := range agg {
		deltas = append(deltas, *d)
	}
	sort.Slice(deltas, func(i, j int) bool {
		if deltas[i].Kind != deltas[j].Kind {
			return deltas[i].Kind < deltas[j].Kind
		}
		return deltas[i].CategoryID < deltas[j].CategoryID
	})
	if err := s.store.Increment(ctx, userID, deltas); err != nil {
		return Result{}, domain.Upstream("increment engagement", err)
	}

	for kind, cs := range clicks {
		if err := s.store.AppendClicks(ctx, kind, cs, now, s.retain); err != nil {
			return Result{}, domain.Upstream("append clicks", err)
		}
	}

	for _, e := range entries {
		if _, ok := categories[subject{e.SubjectKind, e.SubjectID}]; ok {
			metrics.EngagementRecordedTotal.WithLabelValues(string(e.SubjectKind), string(e.Type)).Inc()
		}
	}
	return res, nil
}

// resolve looks up the category of every distinct subject. Missing subjects
// are absent from the result.
func (s *Service) resolve(ctx context.Context, entries []domeng.Metric) (map[subject]int64, error) {
	seen := make(map[subject]struct{}, len(entries))
	subjects := make([]subject, 0, len(entries))
	for _, e := range entries {
		sub := subject{e.SubjectKind, e.SubjectID}
		if _, ok := seen[sub]; ok {
			continue
		}
		seen[sub] = struct{}{}
		subjects = append(subjects, sub)
	}

	cats := make([]int64, len(subjects))
	found := make([]bool, len(subjects))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxLookups)
	for i, sub := range subjects {
		g.Go(func() error {
			cat, ok, err := s.catalog.CategoryOf(gctx, sub.kind, sub.id)
			if err != nil {
				return err
			}
			cats[i], found[i] = cat, ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[subject]int64, len(subjects))
	for i, sub := range subjects {
		if found[i] {
			out[sub] = cats[i]
		}
	}
	return out, nil
}
