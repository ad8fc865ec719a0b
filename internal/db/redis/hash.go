package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/geofeed/internal/db"
)

// HSetMulti writes every hash in one pipelined round-trip. The first failed
// write is reported with its key.
func (s *Store) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if len(items) == 0 {
		return nil
	}
	cmds := make([]rueidis.Completed, 0, len(items))
	for _, item := range items {
		hset := s.b().Hset().Key(item.Key).FieldValue()
		for field, value := range item.Fields {
			hset = hset.FieldValue(field, value)
		}
		cmds = append(cmds, hset.Build())
	}
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpHSet, Err: fmt.Errorf("%s: %w", items[i].Key, err)}
		}
	}
	return nil
}

// HGetAll returns the fields of one hash; a missing key yields an empty map.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m, err := s.do(ctx, s.b().Hgetall().Key(key).Build()).AsStrMap()
	if err != nil {
		return nil, &db.Error{Op: db.OpHGetAll, Err: err}
	}
	return m, nil
}

// HGetAllMulti reads many hashes in one pipelined round-trip. Results follow
// the order of keys.
func (s *Store) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	cmds := make([]rueidis.Completed, len(keys))
	for i, key := range keys {
		cmds[i] = s.b().Hgetall().Key(key).Build()
	}

	out := make([]map[string]string, len(keys))
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		m, err := res.AsStrMap()
		if err != nil {
			return nil, &db.Error{Op: db.OpHGetAll, Err: fmt.Errorf("%s: %w", keys[i], err)}
		}
		out[i] = m
	}
	return out, nil
}

// HIncrByMulti applies counter increments in one pipelined round-trip.
// Increments are not transactional: a failure can leave earlier ones applied.
func (s *Store) HIncrByMulti(ctx context.Context, items []db.HashIncrItem) error {
	if len(items) == 0 {
		return nil
	}
	cmds := make([]rueidis.Completed, len(items))
	for i, item := range items {
		cmds[i] = s.b().Hincrby().Key(item.Key).Field(item.Field).Increment(item.By).Build()
	}
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			it := items[i]
			return &db.Error{Op: db.OpHIncrBy, Err: fmt.Errorf("%s %s: %w", it.Key, it.Field, err)}
		}
	}
	return nil
}
