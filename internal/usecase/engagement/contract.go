package engagement

import (
	"context"
	"time"

	domeng "github.com/kailas-cloud/geofeed/internal/domain/engagement"
	"github.com/kailas-cloud/geofeed/internal/domain/entity"
	"github.com/kailas-cloud/geofeed/internal/repository/engagement"
)

// CategoryResolver finds the category of a catalog entity.
type CategoryResolver interface {
	CategoryOf(ctx context.Context, kind entity.Kind, id int64) (int64, bool, error)
}

// Store persists aggregates and the click timeline.
type Store interface {
	Increment(ctx context.Context, userID string, deltas []engagement.Delta) error
	AppendClicks(ctx context.Context, kind entity.Kind, clicks []domeng.Click, now time.Time, retain time.Duration) error
}
