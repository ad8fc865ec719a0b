package redis

import (
	"context"
	"math"
	"strconv"

	"github.com/kailas-cloud/geofeed/internal/db"
)

// ZAdd adds or updates scored members of a sorted set.
func (s *Store) ZAdd(ctx context.Context, key string, members ...db.ScoredMember) error {
	if len(members) == 0 {
		return nil
	}
	cmd := s.b().Zadd().Key(key).ScoreMember()
	for _, m := range members {
		cmd = cmd.ScoreMember(m.Score, m.Member)
	}
	if err := s.do(ctx, cmd.Build()).Error(); err != nil {
		return &db.Error{Op: db.OpZAdd, Err: err}
	}
	return nil
}

// ZRangeByScore returns members with scores in [minScore, maxScore], ascending.
func (s *Store) ZRangeByScore(ctx context.Context, key string, minScore, maxScore float64) ([]db.ScoredMember, error) {
	cmd := s.b().Zrangebyscore().Key(key).
		Min(scoreBound(minScore)).
		Max(scoreBound(maxScore)).
		Withscores().
		Build()

	scores, err := s.do(ctx, cmd).AsZScores()
	if err != nil {
		return nil, &db.Error{Op: db.OpZRangeByScore, Err: err}
	}

	out := make([]db.ScoredMember, len(scores))
	for i, z := range scores {
		out[i] = db.ScoredMember{Member: z.Member, Score: z.Score}
	}
	return out, nil
}

// ZRemRangeByScore removes members with scores in [minScore, maxScore].
func (s *Store) ZRemRangeByScore(ctx context.Context, key string, minScore, maxScore float64) error {
	cmd := s.b().Zremrangebyscore().Key(key).
		Min(scoreBound(minScore)).
		Max(scoreBound(maxScore)).
		Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpZRemRangeByScore, Err: err}
	}
	return nil
}

func scoreBound(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "+inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
