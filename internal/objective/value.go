// Package objective implements distance-to-goal scores and their Sum and
// BestOf composition.
package objective

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// WorstValue is the score of unsatisfiable states and empty BestOf nodes.
// Normalised distances stay strictly below it.
var WorstValue = decimal.NewFromInt(1)

// Value is a non-negative score where zero is optimal.
type Value interface {
	Get() decimal.Decimal
	IsOptimal() bool
	Description() string
	// write renders the value tree at the given depth.
	write(b *strings.Builder, depth int)
	attach(parent *Multi)
}

// node links a value to the Multi values that aggregate it, so a change to
// the value drops their cached totals.
type node struct {
	parents []*Multi
}

func (n *node) attach(parent *Multi) { n.parents = append(n.parents, parent) }

func (n *node) invalidateParents() {
	for _, p := range n.parents {
		p.invalidate()
	}
}

// BetterThan reports whether a is strictly better (smaller) than b.
func BetterThan(a, b Value) bool {
	if b == nil {
		return a != nil
	}
	if a == nil {
		return false
	}
	return a.Get().LessThan(b.Get())
}

// Render returns an indented tree of the value and its children.
func Render(v Value) string {
	if v == nil {
		return "<nil>"
	}
	var b strings.Builder
	v.write(&b, 0)
	return b.String()
}

func writeLine(b *strings.Builder, depth int, desc string, v decimal.Decimal) {
	b.WriteString(strings.Repeat("  ", depth))
	if desc != "" {
		b.WriteString(desc)
		b.WriteString(": ")
	}
	b.WriteString(v.String())
	b.WriteByte('\n')
}

// Score is a leaf value.
type Score struct {
	node
	desc  string
	value decimal.Decimal
}

// NewScore returns a score, taking the absolute value of v.
func NewScore(desc string, v decimal.Decimal) *Score {
	return &Score{desc: desc, value: v.Abs()}
}

// Optimal returns a zero score.
func Optimal(desc string) *Score { return &Score{desc: desc, value: decimal.Zero} }

// Worst returns the worst score.
func Worst(desc string) *Score { return &Score{desc: desc, value: WorstValue} }

// Bool returns Optimal when ok, otherwise Worst.
func Bool(desc string, ok bool) *Score {
	if ok {
		return Optimal(desc)
	}
	return Worst(desc)
}

// Get implements Value.
func (s *Score) Get() decimal.Decimal { return s.value }

// IsOptimal implements Value.
func (s *Score) IsOptimal() bool { return s.value.IsZero() }

// Description implements Value.
func (s *Score) Description() string { return s.desc }

// SetValue replaces the score.
func (s *Score) SetValue(v decimal.Decimal) {
	s.value = v.Abs()
	s.invalidateParents()
}

func (s *Score) write(b *strings.Builder, depth int) { writeLine(b, depth, s.desc, s.value) }

func (s *Score) String() string { return Render(s) }

// Distance is a score derived from a raw distance d as d / (d + 1).
type Distance struct {
	Score
	distance    decimal.Decimal
	hasDistance bool
}

// NewDistance returns an optimal distance value.
func NewDistance(desc string) *Distance {
	return &Distance{Score: Score{desc: desc}}
}

// FromDistance returns a value normalised from d.
func FromDistance(desc string, d decimal.Decimal) *Distance {
	v := NewDistance(desc)
	v.SetValueUsingDistance(d)
	return v
}

// SetValueUsingDistance normalises |d| onto [0, 1).
func (v *Distance) SetValueUsingDistance(d decimal.Decimal) {
	d = d.Abs()
	v.distance = d
	v.hasDistance = true
	v.Score.value = Normalize(d)
	v.invalidateParents()
}

// SetValue stores a score directly and forgets the raw distance.
func (v *Distance) SetValue(s decimal.Decimal) {
	v.Score.SetValue(s)
	v.hasDistance = false
	v.distance = decimal.Zero
}

// Distance returns the raw distance, if the value was set from one.
func (v *Distance) Distance() (decimal.Decimal, bool) { return v.distance, v.hasDistance }

func (v *Distance) write(b *strings.Builder, depth int) {
	desc := v.desc
	if v.hasDistance {
		desc = fmt.Sprintf("%s (distance %s)", desc, v.distance)
	}
	writeLine(b, depth, desc, v.value)
}

func (v *Distance) String() string { return Render(v) }

// Normalize maps a non-negative distance onto [0, 1), strictly monotonically,
// with 0 mapping to 0. Neighbouring distances near d differ by about 1/d^2
// in the result, so the division precision grows with the digits of d.
func Normalize(d decimal.Decimal) decimal.Decimal {
	if d.Sign() <= 0 {
		return decimal.Zero
	}
	digits := int32(len(d.Coefficient().String()))
	return d.DivRound(d.Add(decimal.NewFromInt(1)), 2*digits+normalizePrecision)
}

// normalizePrecision is the number of digits kept beyond 2*digits(d).
const normalizePrecision = 16
