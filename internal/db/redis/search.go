package redis

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/geofeed/internal/db"
	"github.com/kailas-cloud/geofeed/internal/db/filter"
)

// knnScoreField is the pseudo-field FT.SEARCH fills with the KNN distance.
const knnScoreField = "__vector_score"

// SearchKNN runs a KNN query, optionally pre-filtered. Entry scores are raw
// distances under the index metric, nearest first.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	switch {
	case q.IndexName == "":
		return nil, errors.New("index name is required")
	case len(q.Vector) == 0:
		return nil, errors.New("vector is required")
	case q.K <= 0:
		return nil, errors.New("k must be positive")
	}

	field := q.VectorField
	if field == "" {
		field = "vector"
	}
	pre := buildFilter(q.Filters)
	if pre == "" {
		pre = "*"
	} else {
		pre = "(" + pre + ")"
	}
	query := fmt.Sprintf("%s=>[KNN %d @%s $BLOB]", pre, q.K, field)

	args := []string{q.IndexName, query}
	if len(q.ReturnFields) > 0 {
		args = appendReturn(args, append(slices.Clone(q.ReturnFields), knnScoreField))
	}
	args = append(args, "PARAMS", "2", "BLOB", vectorToBytes(q.Vector), "DIALECT", "2")

	return s.search(ctx, args)
}

// SearchFiltered runs a paginated pre-filter search. An empty filter matches
// every document of the index.
func (s *Store) SearchFiltered(ctx context.Context, q *db.FilterQuery) (*db.SearchResult, error) {
	switch {
	case q.IndexName == "":
		return nil, errors.New("index name is required")
	case q.Limit <= 0:
		return nil, errors.New("limit must be positive")
	case q.Offset < 0:
		return nil, errors.New("offset must not be negative")
	}

	query := buildFilter(q.Filters)
	if query == "" {
		query = "*"
	}

	args := appendReturn([]string{q.IndexName, query}, q.ReturnFields)
	if q.SortBy != "" {
		order := "ASC"
		if q.SortDesc {
			order = "DESC"
		}
		args = append(args, "SORTBY", q.SortBy, order)
	}
	args = append(args, "LIMIT", strconv.Itoa(q.Offset), strconv.Itoa(q.Limit), "DIALECT", "2")

	return s.search(ctx, args)
}

func appendReturn(args, fields []string) []string {
	if len(fields) == 0 {
		return args
	}
	args = append(args, "RETURN", strconv.Itoa(len(fields)))
	return append(args, fields...)
}

func (s *Store) search(ctx context.Context, args []string) (*db.SearchResult, error) {
	raw, err := s.do(ctx, s.b().Arbitrary("FT.SEARCH").Args(args...).Build()).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	return parseSearchReply(raw)
}

// parseSearchReply decodes a RESP2 FT.SEARCH reply laid out as
// [total, key1, fields1, key2, fields2, ...]. Malformed pairs are skipped.
func parseSearchReply(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}

	res := &db.SearchResult{Total: int(total)}
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		pairs, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}
		e := db.SearchEntry{Key: key, Fields: parseFieldPairs(pairs)}
		if score, ok := e.Fields[knnScoreField]; ok {
			if d, err := strconv.ParseFloat(score, 64); err == nil {
				e.Score = d
			}
			delete(e.Fields, knnScoreField)
		}
		res.Entries = append(res.Entries, e)
	}
	return res, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// --- Filter building ---

// buildFilter renders an expression as an FT.SEARCH pre-filter. Juxtaposed
// clauses intersect.
func buildFilter(expr filter.Expression) string {
	conds := expr.Conditions()
	parts := make([]string, 0, len(conds))
	for _, cond := range conds {
		switch cond.Kind() {
		case filter.KindTag:
			parts = append(parts, buildTagFilter(cond.Key(), cond.Values()))
		case filter.KindRange:
			parts = append(parts, buildNumericFilter(cond.Key(), cond.Range()))
		case filter.KindText:
			parts = append(parts, buildTextFilter(cond.Text()))
		}
	}
	return strings.Join(parts, " ")
}

func buildTagFilter(key string, values []string) string {
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = tagEscaper.Replace(v)
	}
	return fmt.Sprintf("@%s:{%s}", key, strings.Join(escaped, " | "))
}

// buildTextFilter ANDs prefix matches of every token across the field union.
func buildTextFilter(t filter.Text) string {
	terms := make([]string, len(t.Tokens()))
	for i, tok := range t.Tokens() {
		terms[i] = escapeQuery(strings.ToLower(tok)) + "*"
	}
	return fmt.Sprintf("@%s:(%s)", strings.Join(t.Fields(), "|"), strings.Join(terms, " "))
}

func buildNumericFilter(key string, r filter.Range) string {
	low, high := "-inf", "+inf"
	if r.Min() != nil {
		low = scoreBound(*r.Min())
	}
	if r.Max() != nil {
		high = scoreBound(*r.Max())
	}
	return fmt.Sprintf("@%s:[%s %s]", key, low, high)
}

// --- Query helpers ---

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	" ", "\\ ",
)

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
)

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
