package search

import (
	"context"

	"schemaanalyst/internal/data"
	"schemaanalyst/internal/objective"

	"github.com/shopspring/decimal"
)

// accelerationBase is the growth factor of consecutive numeric steps.
var accelerationBase = decimal.NewFromInt(2)

// AlternatingValueSearch visits every cell in turn and applies small moves,
// keeping a move only when it improves the objective. When a full pass over
// the cells brings no improvement the candidate is reinitialized.
type AlternatingValueSearch struct {
	Base
	start   Initializer
	restart Initializer

	candidate *data.Data
	last      objective.Value
}

// NewAlternatingValueSearch returns a search using the given start and
// restart initializers.
func NewAlternatingValueSearch(start, restart Initializer) *AlternatingValueSearch {
	if start == nil {
		start = NoInitialization{}
	}
	if restart == nil {
		restart = NoInitialization{}
	}
	return &AlternatingValueSearch{start: start, restart: restart}
}

// Name implements Search.
func (s *AlternatingValueSearch) Name() string { return "avs" }

// Search implements Search.
func (s *AlternatingValueSearch) Search(ctx context.Context, candidate *data.Data) (*Result, error) {
	if err := s.begin(ctx); err != nil {
		return nil, err
	}
	s.candidate = candidate
	cells := candidate.Cells()

	s.start.Initialize(candidate)
	s.last = nil
	s.improves()

	for !s.terminated() && len(cells) > 0 {
		before := s.bestValue
		s.alternate(cells)
		if r, ok := s.restart.(Rewarder); ok && s.restarts.Value() > 0 {
			r.Reward(objective.BetterThan(s.bestValue, before))
		}
		if s.terminated() {
			break
		}
		s.restarts.Increment()
		s.restart.Initialize(candidate)
		s.last = nil
		s.improves()
	}
	return s.result()
}

// improves evaluates the candidate and reports whether it beat the last
// accepted value of this run.
func (s *AlternatingValueSearch) improves() bool {
	v := s.evaluate(s.candidate)
	if v == nil {
		return false
	}
	if s.last == nil || objective.BetterThan(v, s.last) {
		s.last = v
		return true
	}
	return false
}

// alternate cycles through the cells until a full cycle brings no improvement.
func (s *AlternatingValueSearch) alternate(cells []*data.Cell) {
	without := 0
	for i := 0; without < len(cells) && !s.terminated(); i = (i + 1) % len(cells) {
		if s.cellSearch(cells[i]) {
			without = 0
		} else {
			without++
		}
	}
}

func (s *AlternatingValueSearch) cellSearch(cell *data.Cell) bool {
	improvement := s.nullMove(cell)
	if !cell.IsNull() && s.valueSearch(cell.Value()) {
		improvement = true
	}
	return improvement
}

func (s *AlternatingValueSearch) nullMove(cell *data.Cell) bool {
	if s.terminated() {
		return false
	}
	was := cell.IsNull()
	cell.SetNull(!was)
	if s.improves() {
		return true
	}
	cell.SetNull(was)
	return false
}

func (s *AlternatingValueSearch) valueSearch(v data.Value) bool {
	switch val := v.(type) {
	case *data.Boolean:
		return s.booleanSearch(val)
	case *data.Numeric:
		return s.numericSearch(val)
	case *data.Timestamp:
		return s.numericSearch(val.Seconds)
	case *data.String:
		return s.stringSearch(val)
	case data.Compound:
		return s.compoundSearch(val)
	default:
		return false
	}
}

func (s *AlternatingValueSearch) booleanSearch(b *data.Boolean) bool {
	if s.terminated() {
		return false
	}
	b.V = !b.V
	if s.improves() {
		return true
	}
	b.V = !b.V
	return false
}

// compoundSearch searches each element until a pass improves nothing. For
// constrained compounds such as dates, moves that produce an invalid value
// are refused.
func (s *AlternatingValueSearch) compoundSearch(v data.Compound) bool {
	var valid func() bool
	if c, ok := v.(data.Constrained); ok {
		valid = c.Valid
	}
	improvement := false
	for pass := true; pass && !s.terminated(); {
		pass = false
		elements := v.Elements()
		for i := 0; i < len(elements) && !s.terminated(); i++ {
			if s.boundedSearch(elements[i], valid) {
				improvement = true
				pass = true
			}
		}
	}
	return improvement
}

func (s *AlternatingValueSearch) stringSearch(str *data.String) bool {
	improvement := false
	for pass := true; pass && !s.terminated(); {
		pass = false
		if s.removeCharacterMove(str) {
			improvement, pass = true, true
		}
		if s.addCharacterMove(str) {
			improvement, pass = true, true
		}
		if !s.terminated() && s.compoundSearch(str) {
			improvement, pass = true, true
		}
	}
	return improvement
}

func (s *AlternatingValueSearch) removeCharacterMove(str *data.String) bool {
	if s.terminated() {
		return false
	}
	last := str.RemoveLast()
	if last == nil {
		return false
	}
	if s.improves() {
		return true
	}
	str.Restore(last)
	return false
}

func (s *AlternatingValueSearch) addCharacterMove(str *data.String) bool {
	if s.terminated() {
		return false
	}
	if !str.Append(data.DefaultChar) {
		return false
	}
	if s.improves() {
		return true
	}
	str.RemoveLast()
	return false
}

// numericSearch tries both directions, doubling the step after every
// accepted move, and repeats while either direction improves.
func (s *AlternatingValueSearch) numericSearch(n *data.Numeric) bool {
	return s.boundedSearch(n, nil)
}

// boundedSearch is numericSearch with an extra validity check on every move.
func (s *AlternatingValueSearch) boundedSearch(n *data.Numeric, valid func() bool) bool {
	improvement := false
	for pass := true; pass && !s.terminated(); {
		pass = false
		for _, direction := range []int64{1, -1} {
			for step := int64(0); !s.terminated(); step++ {
				if !s.numericMove(n, direction, step, valid) {
					break
				}
				improvement, pass = true, true
			}
		}
	}
	return improvement
}

// numericMove adds direction * 2^step at the value's scale. Moves that leave
// the value's bounds, or that valid rejects, are refused without an
// evaluation.
func (s *AlternatingValueSearch) numericMove(n *data.Numeric, direction, step int64, valid func() bool) bool {
	original := n.Get()
	delta := accelerationBase.Pow(decimal.NewFromInt(step)).Shift(-n.Scale()).Mul(decimal.NewFromInt(direction))
	if !n.Set(original.Add(delta)) {
		return false
	}
	if valid != nil && !valid() {
		n.Set(original)
		return false
	}
	if s.improves() {
		return true
	}
	n.Set(original)
	return false
}
