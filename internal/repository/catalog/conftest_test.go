package catalog

import (
	"context"
	"sync"
	"testing"

	"github.com/kailas-cloud/geofeed/internal/db"
)

const testPrefix = "geofeed:"

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetMultiFn      func(ctx context.Context, items []db.HashSetItem) error
	hgetAllFn        func(ctx context.Context, key string) (map[string]string, error)
	hgetAllMultiFn   func(ctx context.Context, keys []string) ([]map[string]string, error)
	createIndexFn    func(ctx context.Context, def *db.IndexDefinition) error
	dropIndexFn      func(ctx context.Context, name string) error
	searchKNNFn      func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	searchFilteredFn func(ctx context.Context, q *db.FilterQuery) (*db.SearchResult, error)

	mu       sync.Mutex
	searches []*db.FilterQuery
}

func (m *mockStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if m.hsetMultiFn != nil {
		return m.hsetMultiFn(ctx, items)
	}
	return nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if m.hgetAllMultiFn != nil {
		return m.hgetAllMultiFn(ctx, keys)
	}
	return make([]map[string]string, len(keys)), nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) DropIndex(ctx context.Context, name string) error {
	if m.dropIndexFn != nil {
		return m.dropIndexFn(ctx, name)
	}
	return nil
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchFiltered(ctx context.Context, q *db.FilterQuery) (*db.SearchResult, error) {
	m.mu.Lock()
	m.searches = append(m.searches, q)
	m.mu.Unlock()
	if m.searchFilteredFn != nil {
		return m.searchFilteredFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) searchesOn(index string) []*db.FilterQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*db.FilterQuery
	for _, q := range m.searches {
		if q.IndexName == index {
			out = append(out, q)
		}
	}
	return out
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, testPrefix), ms
}

func entry(key string, fields map[string]string) db.SearchEntry {
	return db.SearchEntry{Key: key, Fields: fields}
}
