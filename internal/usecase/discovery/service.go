package discovery

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/geofeed/internal/domain"
	domdisc "github.com/kailas-cloud/geofeed/internal/domain/discovery"
	"github.com/kailas-cloud/geofeed/internal/domain/entity"
	"github.com/kailas-cloud/geofeed/internal/domain/feed"
	"github.com/kailas-cloud/geofeed/internal/logger"
	"github.com/kailas-cloud/geofeed/internal/metrics"
)

const (
	strategyDirect   = "direct"
	strategyFiltered = "filtered"
)

// Config holds the assembler parameters.
type Config struct {
	// PageSize is the number of venues per list page.
	PageSize int
	// MapWindow is the span of the map view date window.
	MapWindow time.Duration
}

// IDs targets entities directly.
type IDs struct {
	Venues     []int64
	Events     []int64
	Promotions []int64
	Performers []int64
}

// Len returns the number of targeted ids.
func (ids IDs) Len() int {
	return len(ids.Venues) + len(ids.Events) + len(ids.Promotions) + len(ids.Performers)
}

// Service assembles discovery feeds.
type Service struct {
	catalog  Catalog
	resolver *Resolver
	cfg      Config
	now      func() time.Time
}

// New creates a discovery service.
func New(catalog Catalog, cfg Config) *Service {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 30
	}
	if cfg.MapWindow <= 0 {
		cfg.MapWindow = 24 * time.Hour
	}
	return &Service{
		catalog:  catalog,
		resolver: NewResolver(catalog),
		cfg:      cfg,
		now:      time.Now,
	}
}

// Assemble builds the discovery feed for f. Direct ids take precedence over
// every other filter and always yield items; otherwise the filtered fetch
// runs and the view selects items or markers.
func (s *Service) Assemble(ctx context.Context, f domdisc.Filters) (feed.Result, error) {
	if f.HasDirectIDs() {
		items, err := s.FetchByIDs(ctx, IDs{Venues: f.VenueIDs, Events: f.EventIDs, Promotions: f.PromotionIDs})
		if err != nil {
			return feed.Result{}, err
		}
		metrics.FeedItemsTotal.WithLabelValues(string(f.View), strategyDirect).Add(float64(len(items)))
		return feed.Result{Items: items}, nil
	}

	spatial, err := s.resolver.Resolve(ctx, f)
	if err != nil {
		return feed.Result{}, err
	}

	preds := Compile(f)
	q := domdisc.VenueQuery{
		Spatial:    spatial,
		Predicates: preds,
		Window:     Window(f, s.now().UTC(), s.cfg.MapWindow),
	}
	if f.View == domdisc.ViewList {
		q.Offset = f.Page * s.cfg.PageSize
		q.Limit = s.cfg.PageSize
	}

	venues, err := s.catalog.FindVenues(ctx, q)
	if err != nil {
		return feed.Result{}, domain.Upstream("find venues", err)
	}

	res := Flatten(venues, preds, f.View)
	metrics.FeedItemsTotal.WithLabelValues(string(f.View), strategyFiltered).Add(float64(res.Len()))
	logger.FromContext(ctx).Debug("feed assembled",
		zap.String("view", string(f.View)),
		zap.Int("venues", len(venues)),
		zap.Int("entries", res.Len()),
		zap.Bool("venue_active", preds.Venue.IsActive()),
		zap.Bool("event_active", preds.Event.IsActive()),
		zap.Bool("promotion_active", preds.Promotion.IsActive()),
	)
	return res, nil
}

// FetchByIDs reads the targeted entities concurrently and returns them as
// items: venues, then events, then promotions, then performers, each in
// input order. Missing ids are skipped.
func (s *Service) FetchByIDs(ctx context.Context, ids IDs) ([]feed.Item, error) {
	var (
		venues     []entity.Venue
		events     []entity.Event
		promotions []entity.Promotion
		performers []entity.Performer
	)

	g, gctx := errgroup.WithContext(ctx)
	if len(ids.Venues) > 0 {
		g.Go(func() (err error) {
			venues, err = s.catalog.FindVenuesByIDs(gctx, ids.Venues)
			return domain.Upstream("find venues by ids", err)
		})
	}
	if len(ids.Events) > 0 {
		g.Go(func() (err error) {
			events, err = s.catalog.FindEventsByIDs(gctx, ids.Events)
			return domain.Upstream("find events by ids", err)
		})
	}
	if len(ids.Promotions) > 0 {
		g.Go(func() (err error) {
			promotions, err = s.catalog.FindPromotionsByIDs(gctx, ids.Promotions)
			return domain.Upstream("find promotions by ids", err)
		})
	}
	if len(ids.Performers) > 0 {
		g.Go(func() (err error) {
			performers, err = s.catalog.FindPerformersByIDs(gctx, ids.Performers)
			return domain.Upstream("find performers by ids", err)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	items := make([]feed.Item, 0, len(venues)+len(events)+len(promotions)+len(performers))
	for _, v := range venues {
		items = append(items, feed.VenueItem(v))
	}
	for _, e := range events {
		items = append(items, feed.EventItem(e, nil))
	}
	for _, p := range promotions {
		items = append(items, feed.PromotionItem(p, nil))
	}
	for _, p := range performers {
		items = append(items, feed.PerformerItem(p))
	}
	return items, nil
}
