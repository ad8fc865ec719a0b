// Package breaker guards store reads with a circuit breaker so a failing Redis
// fails requests fast instead of piling up timeouts.
package breaker

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/kailas-cloud/geofeed/internal/db"
)

// OpBreaker tags errors returned while the circuit is open.
const OpBreaker = "BREAKER"

// Config tunes the breaker.
type Config struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
	// OnStateChange is called on every transition; may be nil.
	OnStateChange func(name string, from, to gobreaker.State)
}

// Store decorates a db.Store. Reads and writes go through the breaker;
// lifecycle calls (Ping, Close, WaitForReady, index management) bypass it.
type Store struct {
	db.Store
	cb *gobreaker.CircuitBreaker[any]
}

var _ db.Store = (*Store)(nil)

// New wraps inner with a consecutive-failure circuit breaker.
func New(inner db.Store, cfg Config) *Store {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellations say nothing about store health.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: cfg.OnStateChange,
	}
	return &Store{Store: inner, cb: gobreaker.NewCircuitBreaker[any](settings)}
}

// State reports the current breaker state.
func (s *Store) State() gobreaker.State {
	return s.cb.State()
}

func (s *Store) call(fn func() (any, error)) (any, error) {
	v, err := s.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &db.Error{Op: OpBreaker, Err: err}
	}
	return v, err
}

func (s *Store) exec(fn func() error) error {
	_, err := s.call(func() (any, error) { return nil, fn() })
	return err
}

// HSetMulti implements db.HashStore.
func (s *Store) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	return s.exec(func() error { return s.Store.HSetMulti(ctx, items) })
}

// HGetAll implements db.HashStore.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	v, err := s.call(func() (any, error) { return s.Store.HGetAll(ctx, key) })
	if err != nil {
		return nil, err
	}
	return v.(map[string]string), nil
}

// HGetAllMulti implements db.HashStore.
func (s *Store) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	v, err := s.call(func() (any, error) { return s.Store.HGetAllMulti(ctx, keys) })
	if err != nil {
		return nil, err
	}
	return v.([]map[string]string), nil
}

// HIncrByMulti implements db.HashStore.
func (s *Store) HIncrByMulti(ctx context.Context, items []db.HashIncrItem) error {
	return s.exec(func() error { return s.Store.HIncrByMulti(ctx, items) })
}

// SAdd implements db.SetStore.
func (s *Store) SAdd(ctx context.Context, key string, members ...string) error {
	return s.exec(func() error { return s.Store.SAdd(ctx, key, members...) })
}

// SMembers implements db.SetStore.
func (s *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	v, err := s.call(func() (any, error) { return s.Store.SMembers(ctx, key) })
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// ZAdd implements db.SortedSetStore.
func (s *Store) ZAdd(ctx context.Context, key string, members ...db.ScoredMember) error {
	return s.exec(func() error { return s.Store.ZAdd(ctx, key, members...) })
}

// ZRangeByScore implements db.SortedSetStore.
func (s *Store) ZRangeByScore(ctx context.Context, key string, minScore, maxScore float64) ([]db.ScoredMember, error) {
	v, err := s.call(func() (any, error) { return s.Store.ZRangeByScore(ctx, key, minScore, maxScore) })
	if err != nil {
		return nil, err
	}
	return v.([]db.ScoredMember), nil
}

// ZRemRangeByScore implements db.SortedSetStore.
func (s *Store) ZRemRangeByScore(ctx context.Context, key string, minScore, maxScore float64) error {
	return s.exec(func() error { return s.Store.ZRemRangeByScore(ctx, key, minScore, maxScore) })
}

// SearchKNN implements db.Searcher.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	v, err := s.call(func() (any, error) { return s.Store.SearchKNN(ctx, q) })
	if err != nil {
		return nil, err
	}
	return v.(*db.SearchResult), nil
}

// SearchFiltered implements db.Searcher.
func (s *Store) SearchFiltered(ctx context.Context, q *db.FilterQuery) (*db.SearchResult, error) {
	v, err := s.call(func() (any, error) { return s.Store.SearchFiltered(ctx, q) })
	if err != nil {
		return nil, err
	}
	return v.(*db.SearchResult), nil
}

// Open reports whether the circuit is currently rejecting calls.
func (s *Store) Open() bool {
	return s.cb.State() == gobreaker.StateOpen
}
