package engagement

import (
	"context"
	"strconv"
	"testing"

	"github.com/kailas-cloud/geofeed/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hincrByMultiFn     func(ctx context.Context, items []db.HashIncrItem) error
	hgetAllMultiFn     func(ctx context.Context, keys []string) ([]map[string]string, error)
	saddFn             func(ctx context.Context, key string, members ...string) error
	smembersFn         func(ctx context.Context, key string) ([]string, error)
	zaddFn             func(ctx context.Context, key string, members ...db.ScoredMember) error
	zrangeByScoreFn    func(ctx context.Context, key string, minScore, maxScore float64) ([]db.ScoredMember, error)
	zremRangeByScoreFn func(ctx context.Context, key string, minScore, maxScore float64) error
}

func (m *mockStore) HIncrByMulti(ctx context.Context, items []db.HashIncrItem) error {
	if m.hincrByMultiFn != nil {
		return m.hincrByMultiFn(ctx, items)
	}
	return nil
}

func (m *mockStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if m.hgetAllMultiFn != nil {
		return m.hgetAllMultiFn(ctx, keys)
	}
	return make([]map[string]string, len(keys)), nil
}

func (m *mockStore) SAdd(ctx context.Context, key string, members ...string) error {
	if m.saddFn != nil {
		return m.saddFn(ctx, key, members...)
	}
	return nil
}

func (m *mockStore) SMembers(ctx context.Context, key string) ([]string, error) {
	if m.smembersFn != nil {
		return m.smembersFn(ctx, key)
	}
	return nil, nil
}

func (m *mockStore) ZAdd(ctx context.Context, key string, members ...db.ScoredMember) error {
	if m.zaddFn != nil {
		return m.zaddFn(ctx, key, members...)
	}
	return nil
}

func (m *mockStore) ZRangeByScore(ctx context.Context, key string, minScore, maxScore float64) ([]db.ScoredMember, error) {
	if m.zrangeByScoreFn != nil {
		return m.zrangeByScoreFn(ctx, key, minScore, maxScore)
	}
	return nil, nil
}

func (m *mockStore) ZRemRangeByScore(ctx context.Context, key string, minScore, maxScore float64) error {
	if m.zremRangeByScoreFn != nil {
		return m.zremRangeByScoreFn(ctx, key, minScore, maxScore)
	}
	return nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	repo := New(ms, "geofeed:")
	n := 0
	repo.newID = func() string {
		n++
		return "id" + strconv.Itoa(n)
	}
	return repo, ms
}
