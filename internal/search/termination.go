package search

import (
	"context"

	"schemaanalyst/internal/objective"
)

// Counter counts objective function evaluations.
type Counter struct {
	n int
}

// Increment adds one.
func (c *Counter) Increment() { c.n++ }

// Value returns the count.
func (c *Counter) Value() int { return c.n }

// Reset sets the count to zero.
func (c *Counter) Reset() { c.n = 0 }

// Criterion decides when a search stops.
type Criterion interface {
	Satisfied() bool
}

// CriterionFunc adapts a function to Criterion.
type CriterionFunc func() bool

// Satisfied implements Criterion.
func (f CriterionFunc) Satisfied() bool { return f() }

// CounterCriterion stops once the counter reaches max.
func CounterCriterion(c *Counter, max int) Criterion {
	return CriterionFunc(func() bool { return c.Value() >= max })
}

// BestTracker exposes the best value seen by a search.
type BestTracker interface {
	BestObjectiveValue() objective.Value
}

// OptimumCriterion stops once the best value is optimal.
func OptimumCriterion(t BestTracker) Criterion {
	return CriterionFunc(func() bool {
		best := t.BestObjectiveValue()
		return best != nil && best.IsOptimal()
	})
}

// ContextCriterion stops once ctx is done.
func ContextCriterion(ctx context.Context) Criterion {
	return CriterionFunc(func() bool { return ctx.Err() != nil })
}

// Combined is satisfied when any of its criteria is.
func Combined(criteria ...Criterion) Criterion {
	return CriterionFunc(func() bool {
		for _, c := range criteria {
			if c != nil && c.Satisfied() {
				return true
			}
		}
		return false
	})
}
