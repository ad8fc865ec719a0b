// Package engagement holds user engagement signals used for ranking.
package engagement

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/geofeed/internal/domain/entity"
)

// Type is the kind of interaction recorded.
type Type string

const (
	TypeClick      Type = "click"
	TypeImpression Type = "impression"
	TypeDwellTime  Type = "dwellTime"
)

// Valid reports whether t is a known engagement type.
func (t Type) Valid() bool {
	switch t {
	case TypeClick, TypeImpression, TypeDwellTime:
		return true
	}
	return false
}

// Source is the surface the interaction happened on.
type Source string

const (
	SourceMap  Source = "map"
	SourceList Source = "list"
	SourcePage Source = "page"
)

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	switch s {
	case SourceMap, SourceList, SourcePage:
		return true
	}
	return false
}

// Metric is one append-only engagement record.
type Metric struct {
	SubjectID   int64
	SubjectKind entity.Kind
	Type        Type
	Source      Source
	UserID      string
	// Duration is the dwell time in milliseconds; zero for other types.
	Duration  int64
	Timestamp time.Time
}

// Validate checks the fields required to record m.
func (m Metric) Validate() error {
	if m.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	if m.SubjectID <= 0 {
		return fmt.Errorf("id must be positive")
	}
	if !m.SubjectKind.Valid() {
		return fmt.Errorf("unknown subcategory %q", m.SubjectKind)
	}
	if !m.Type.Valid() {
		return fmt.Errorf("unknown engagement type %q", m.Type)
	}
	if m.Source != "" && !m.Source.Valid() {
		return fmt.Errorf("unknown engagement source %q", m.Source)
	}
	if m.Duration < 0 {
		return fmt.Errorf("duration must not be negative")
	}
	if m.Type == TypeDwellTime && m.Duration == 0 {
		return fmt.Errorf("duration is required for dwellTime")
	}
	return nil
}

// CategoryStats is a user's aggregated engagement for one category.
type CategoryStats struct {
	CategoryID  int64
	Clicks      int64
	DwellTime   int64
	Impressions int64
}

// Click is one timeline entry used for popularity.
type Click struct {
	EntityID int64
	At       time.Time
}
