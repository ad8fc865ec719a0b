package recommend

import (
	"context"
	"time"

	domdisc "github.com/kailas-cloud/geofeed/internal/domain/discovery"
	"github.com/kailas-cloud/geofeed/internal/domain/engagement"
	"github.com/kailas-cloud/geofeed/internal/domain/entity"
	"github.com/kailas-cloud/geofeed/internal/domain/feed"
	"github.com/kailas-cloud/geofeed/internal/usecase/discovery"
	"github.com/kailas-cloud/geofeed/internal/usecase/scoring"
)

// Assembler produces unranked candidates.
type Assembler interface {
	Assemble(ctx context.Context, f domdisc.Filters) (feed.Result, error)
	FetchByIDs(ctx context.Context, ids discovery.IDs) ([]feed.Item, error)
}

// Scorer scores candidates of one kind for a user.
type Scorer interface {
	Kind() entity.Kind
	Score(ctx context.Context, userID string, items []scoring.Candidate) (map[string]float64, error)
}

// Timeline reads the per-kind click timeline.
type Timeline interface {
	ClicksSince(ctx context.Context, kind entity.Kind, since time.Time) ([]engagement.Click, error)
}
