// Package predicate builds per-kind entity predicates as explicit lists of
// typed conditions.
package predicate

import (
	"slices"
	"strings"

	"github.com/kailas-cloud/geofeed/internal/domain/entity"
)

// Field is a stored attribute a condition refers to.
type Field string

const (
	FieldName        Field = "name"
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
	FieldHeadline    Field = "headline"
	FieldPrice       Field = "price"
	FieldAccessible  Field = "is_accessible"
	FieldOutdoor     Field = "is_outdoor"
)

// Condition is one clause of a predicate. Conditions are ANDed.
type Condition interface {
	// Name identifies the clause for logging and tests.
	Name() string
}

// CategoryIn matches entities whose category is one of IDs.
type CategoryIn struct {
	IDs []int64
}

// Name implements Condition.
func (CategoryIn) Name() string { return "category_in" }

// PriceAtMost matches entities priced at or below Max.
type PriceAtMost struct {
	Max float64
}

// Name implements Condition.
func (PriceAtMost) Name() string { return "price_at_most" }

// TextMatch matches entities where any of Fields contains Term (case-insensitive).
type TextMatch struct {
	Term   string
	Fields []Field
}

// Name implements Condition.
func (TextMatch) Name() string { return "text_match" }

// HasNested matches venues owning at least one entity of Kind.
type HasNested struct {
	Kind entity.Kind
}

// Name implements Condition.
func (c HasNested) Name() string { return "has_nested_" + string(c.Kind) }

// FlagEquals matches entities whose boolean Field equals Value.
type FlagEquals struct {
	Field Field
	Value bool
}

// Name implements Condition.
func (c FlagEquals) Name() string { return "flag_" + string(c.Field) }

// Predicate is an immutable conjunction of conditions for one entity kind.
type Predicate struct {
	kind       entity.Kind
	conditions []Condition
}

// Kind returns the entity kind the predicate applies to.
func (p Predicate) Kind() entity.Kind { return p.kind }

// Conditions returns a copy of the clauses.
func (p Predicate) Conditions() []Condition { return slices.Clone(p.conditions) }

// IsActive reports whether the predicate has at least one clause.
func (p Predicate) IsActive() bool { return len(p.conditions) > 0 }

// Len returns the number of clauses.
func (p Predicate) Len() int { return len(p.conditions) }

// Builder accumulates conditions for a Predicate. Absent inputs add no clause.
type Builder struct {
	kind       entity.Kind
	conditions []Condition
}

// NewBuilder starts a predicate for kind.
func NewBuilder(kind entity.Kind) *Builder {
	return &Builder{kind: kind}
}

// CategoryIn adds category membership when ids is non-empty.
func (b *Builder) CategoryIn(ids []int64) *Builder {
	if len(ids) == 0 {
		return b
	}
	b.conditions = append(b.conditions, CategoryIn{IDs: slices.Clone(ids)})
	return b
}

// PriceAtMost adds a price ceiling when max is set.
func (b *Builder) PriceAtMost(maxPrice *float64) *Builder {
	if maxPrice == nil {
		return b
	}
	b.conditions = append(b.conditions, PriceAtMost{Max: *maxPrice})
	return b
}

// TextMatch adds a free-text OR-match over fields when term is non-blank.
func (b *Builder) TextMatch(term string, fields ...Field) *Builder {
	term = strings.TrimSpace(term)
	if term == "" || len(fields) == 0 {
		return b
	}
	b.conditions = append(b.conditions, TextMatch{Term: term, Fields: slices.Clone(fields)})
	return b
}

// HasNested adds an existence clause for nested entities of kind when want is true.
func (b *Builder) HasNested(kind entity.Kind, want bool) *Builder {
	if !want {
		return b
	}
	b.conditions = append(b.conditions, HasNested{Kind: kind})
	return b
}

// FlagEquals adds flag equality when value is set.
func (b *Builder) FlagEquals(field Field, value *bool) *Builder {
	if value == nil {
		return b
	}
	b.conditions = append(b.conditions, FlagEquals{Field: field, Value: *value})
	return b
}

// Build freezes the accumulated conditions.
func (b *Builder) Build() Predicate {
	return Predicate{kind: b.kind, conditions: slices.Clone(b.conditions)}
}
