package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade; consumers declare narrow interfaces of their own
type Store interface {
	Pinger
	HashStore
	SetStore
	SortedSetStore
	IndexManager
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashSetItem holds a single key+fields pair for pipelined HSET.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// HashIncrItem is one field increment for pipelined HINCRBY.
type HashIncrItem struct {
	Key   string
	Field string
	By    int64
}

// HashStore provides hash-based key-value operations.
type HashStore interface {
	HSetMulti(ctx context.Context, items []HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	HIncrByMulti(ctx context.Context, items []HashIncrItem) error
}

// SetStore provides unordered set operations.
type SetStore interface {
	SAdd(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
}

// ScoredMember is a sorted set member with its score.
type ScoredMember struct {
	Member string
	Score  float64
}

// SortedSetStore provides sorted set operations keyed by score.
type SortedSetStore interface {
	ZAdd(ctx context.Context, key string, members ...ScoredMember) error
	ZRangeByScore(ctx context.Context, key string, minScore, maxScore float64) ([]ScoredMember, error)
	ZRemRangeByScore(ctx context.Context, key string, minScore, maxScore float64) error
}

// IndexManager provides FT index lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher provides search operations over FT indexes.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
	SearchFiltered(ctx context.Context, q *FilterQuery) (*SearchResult, error)
}
