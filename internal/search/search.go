// Package search runs local searches that optimise candidate data against an
// objective function.
package search

import (
	"context"
	"time"

	"schemaanalyst/internal/data"
	"schemaanalyst/internal/objective"

	"github.com/pkg/errors"
)

// Function is the objective a search minimises.
type Function = objective.Function[*data.Data]

var (
	// ErrNoObjective is returned when a search starts without an objective function.
	ErrNoObjective = errors.New("search has no objective function")
	// ErrNoTermination is returned when a search starts without a termination criterion.
	ErrNoTermination = errors.New("search has no termination criterion")
)

// Search optimises a candidate in place.
type Search interface {
	SetObjectiveFunction(fn Function)
	SetTerminationCriterion(c Criterion)
	// Search runs until the termination criterion holds. The returned error
	// is non-nil only when the objective function failed or ctx ended.
	Search(ctx context.Context, candidate *data.Data) (*Result, error)
	Name() string
}

// Result summarises one search run.
type Result struct {
	Best        *data.Data
	Value       objective.Value
	Success     bool
	Evaluations int
	Restarts    int
	Duration    time.Duration
}

// Base holds the bookkeeping shared by every search: evaluation counting,
// the best candidate so far and termination.
type Base struct {
	function    Function
	termination Criterion
	evaluations Counter
	restarts    Counter

	best      *data.Data
	bestValue objective.Value
	err       error
	ctx       context.Context
	started   time.Time
}

// SetObjectiveFunction implements Search.
func (b *Base) SetObjectiveFunction(fn Function) { b.function = fn }

// SetTerminationCriterion implements Search.
func (b *Base) SetTerminationCriterion(c Criterion) { b.termination = c }

// EvaluationsCounter returns the counter incremented by every evaluation.
func (b *Base) EvaluationsCounter() *Counter { return &b.evaluations }

// BestObjectiveValue returns the best value of the current run.
func (b *Base) BestObjectiveValue() objective.Value { return b.bestValue }

// BestCandidate returns a copy of the best candidate of the current run.
func (b *Base) BestCandidate() *data.Data { return b.best }

func (b *Base) begin(ctx context.Context) error {
	if b.function == nil {
		return ErrNoObjective
	}
	if b.termination == nil {
		return ErrNoTermination
	}
	if ctx == nil {
		ctx = context.Background()
	}
	b.ctx = ctx
	b.evaluations.Reset()
	b.restarts.Reset()
	b.best = nil
	b.bestValue = nil
	b.err = nil
	b.started = time.Now()
	return nil
}

// evaluate scores candidate and keeps a copy when it beats the best so far.
// A failing objective function stops the search.
func (b *Base) evaluate(candidate *data.Data) objective.Value {
	b.evaluations.Increment()
	v, err := b.function.Evaluate(candidate)
	if err != nil {
		b.err = errors.Wrap(err, "evaluate candidate")
		return nil
	}
	if objective.BetterThan(v, b.bestValue) {
		b.bestValue = v
		b.best = candidate.Duplicate()
	}
	return v
}

// terminated is checked before every move.
func (b *Base) terminated() bool {
	if b.err != nil {
		return true
	}
	if err := b.ctx.Err(); err != nil {
		b.err = errors.Wrap(err, "search interrupted")
		return true
	}
	return b.termination.Satisfied()
}

func (b *Base) result() (*Result, error) {
	res := &Result{
		Best:        b.best,
		Value:       b.bestValue,
		Success:     b.bestValue != nil && b.bestValue.IsOptimal(),
		Evaluations: b.evaluations.Value(),
		Restarts:    b.restarts.Value(),
		Duration:    time.Since(b.started),
	}
	return res, b.err
}
