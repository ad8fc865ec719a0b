// Package filter models the pre-filter of an indexed search: a conjunction of
// tag, numeric range and full-text conditions.
package filter

import (
	"errors"
	"fmt"
	"strings"
)

// MaxConditions bounds the conditions of one expression and the tokens of
// one text condition.
const MaxConditions = 32

// Expression is a conjunction of conditions. The zero value matches
// everything.
type Expression struct {
	all []Condition
}

// All validates conds and joins them into an Expression.
func All(conds ...Condition) (Expression, error) {
	if len(conds) > MaxConditions {
		return Expression{}, fmt.Errorf("too many conditions (max %d)", MaxConditions)
	}
	for i, c := range conds {
		if c.kind == kindNone {
			return Expression{}, fmt.Errorf("condition %d is empty", i)
		}
	}
	return Expression{all: append([]Condition(nil), conds...)}, nil
}

// Conditions returns the joined conditions.
func (e Expression) Conditions() []Condition { return e.all }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool { return len(e.all) == 0 }

// Find returns the first condition on key.
func (e Expression) Find(key string) (Condition, bool) {
	for _, c := range e.all {
		if c.key == key {
			return c, true
		}
	}
	return Condition{}, false
}

// Kind tells the condition variants apart.
type Kind int

const (
	kindNone Kind = iota
	// KindTag matches a tag field against a set of values.
	KindTag
	// KindRange bounds a numeric field.
	KindRange
	// KindText prefix-matches tokens over text fields.
	KindText
)

// Condition is a single clause of an Expression.
type Condition struct {
	kind   Kind
	key    string
	values []string
	rng    Range
	text   Text
}

// Tag matches key against any of values.
func Tag(key string, values ...string) (Condition, error) {
	if key == "" {
		return Condition{}, errors.New("filter key is required")
	}
	if len(values) == 0 {
		return Condition{}, fmt.Errorf("at least one value is required for key %q", key)
	}
	for _, v := range values {
		if v == "" {
			return Condition{}, fmt.Errorf("empty value for key %q", key)
		}
	}
	return Condition{kind: KindTag, key: key, values: append([]string(nil), values...)}, nil
}

// Between bounds key to [low, high]. A nil bound is open; at least one is
// required. An inverted range is valid and matches nothing.
func Between(key string, low, high *float64) (Condition, error) {
	if key == "" {
		return Condition{}, errors.New("filter key is required")
	}
	if low == nil && high == nil {
		return Condition{}, fmt.Errorf("range on %q needs a bound", key)
	}
	return Condition{kind: KindRange, key: key, rng: Range{min: low, max: high}}, nil
}

// FullText requires every token of term to prefix-match a word in at least
// one of fields.
func FullText(fields []string, term string) (Condition, error) {
	if len(fields) == 0 {
		return Condition{}, errors.New("at least one text field is required")
	}
	tokens := strings.Fields(term)
	if len(tokens) == 0 {
		return Condition{}, errors.New("text term is required")
	}
	if len(tokens) > MaxConditions {
		return Condition{}, fmt.Errorf("too many search tokens (max %d)", MaxConditions)
	}
	return Condition{
		kind: KindText,
		key:  strings.Join(fields, "|"),
		text: Text{fields: append([]string(nil), fields...), tokens: tokens},
	}, nil
}

// Kind returns the variant of the condition.
func (c Condition) Kind() Kind { return c.kind }

// Key returns the field name; text conditions join their fields with "|".
func (c Condition) Key() string { return c.key }

// Values returns the accepted tag values.
func (c Condition) Values() []string { return c.values }

// Range returns the numeric bounds.
func (c Condition) Range() Range { return c.rng }

// Text returns the full-text term.
func (c Condition) Text() Text { return c.text }

// Range is an inclusive numeric interval; nil bounds are open.
type Range struct {
	min *float64
	max *float64
}

// Min returns the lower bound.
func (r Range) Min() *float64 { return r.min }

// Max returns the upper bound.
func (r Range) Max() *float64 { return r.max }

// Text is a tokenized full-text term scoped to a set of fields.
type Text struct {
	fields []string
	tokens []string
}

// Fields returns the searched fields.
func (t Text) Fields() []string { return t.fields }

// Tokens returns the whitespace-separated terms.
func (t Text) Tokens() []string { return t.tokens }
