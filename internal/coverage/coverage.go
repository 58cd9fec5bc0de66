// Package coverage drives one search per constraint coverage goal and
// collects the generated rows.
package coverage

import (
	"context"
	"fmt"
	"time"

	"schemaanalyst/internal/data"
	"schemaanalyst/internal/objective"
	"schemaanalyst/internal/objective/constraint"
	"schemaanalyst/internal/schema"
	"schemaanalyst/internal/search"
	"schemaanalyst/internal/util"

	"github.com/pkg/errors"
)

// Options controls goal construction.
type Options struct {
	// SatisfyRows is the row count per table for the satisfy-all goal.
	SatisfyRows int
	// NegateRows is the row count per table for each violate goal.
	NegateRows   int
	ConsiderNull bool
}

// GoalReport is the outcome of one goal.
type GoalReport struct {
	// Constraint is the violated constraint, nil for the satisfy-all goal.
	Constraint schema.Constraint
	Tables     []*schema.Table
	// State is a copy of the accepted rows the goal was searched against.
	State       *data.Data
	Data        *data.Data
	Success     bool
	Evaluations int
	Restarts    int
	Value       objective.Value
	Duration    time.Duration
	// Interrupted is set when the run's context ended before or during the
	// goal's search.
	Interrupted bool
}

// Satisfy reports whether this is the satisfy-all goal.
func (g *GoalReport) Satisfy() bool { return g.Constraint == nil }

// Description names the goal.
func (g *GoalReport) Description() string {
	if g.Constraint == nil {
		return "satisfy all constraints"
	}
	return fmt.Sprintf("violate %s", g.Constraint)
}

// Coverer generates data for every coverage goal of a schema. Goals run in
// order; rows of successful goals are kept as state for later goals.
type Coverer struct {
	schema *schema.Schema
	search search.Search
	opts   Options
	state  *data.Data

	// OnGoal, when set, is called after each goal.
	OnGoal func(*GoalReport)
}

// NewCoverer returns a coverer that runs srch for each goal.
func NewCoverer(s *schema.Schema, srch search.Search, opts Options) *Coverer {
	if opts.SatisfyRows <= 0 {
		opts.SatisfyRows = 2
	}
	if opts.NegateRows <= 0 {
		opts.NegateRows = 1
	}
	return &Coverer{schema: s, search: srch, opts: opts, state: data.New()}
}

// State returns the rows accepted so far.
func (c *Coverer) State() *data.Data { return c.state }

// Generate runs the satisfy-all goal and then one violate goal per
// constraint. A goal that does not reach the optimum is reported, not
// returned as an error. Once ctx ends, the running goal keeps its best rows
// and the remaining goals are reported as interrupted.
func (c *Coverer) Generate(ctx context.Context) (*Report, error) {
	report := NewReport(c.schema, c.search.Name())
	started := time.Now()
	goal, err := c.generate(ctx, nil, c.schema.Tables, c.opts.SatisfyRows)
	if err != nil {
		return nil, err
	}
	report.Add(goal)
	for _, con := range c.schema.Constraints() {
		goal, err := c.generate(ctx, con, c.schema.GoalTables(con.Table()), c.opts.NegateRows)
		if err != nil {
			return nil, err
		}
		report.Add(goal)
	}
	report.Duration = time.Since(started)
	if n := report.Interrupted(); n > 0 {
		util.Warnf("run interrupted: %d of %d goal searches did not finish", n, len(report.Goals))
	}
	return report, nil
}

func (c *Coverer) generate(ctx context.Context, target schema.Constraint, tables []*schema.Table, rows int) (*GoalReport, error) {
	goal := &GoalReport{Constraint: target, Tables: tables, State: c.state.Duplicate()}
	if ctx.Err() != nil {
		goal.Interrupted = true
		c.finish(goal)
		return goal, nil
	}
	candidate := data.New()
	for _, tbl := range tables {
		candidate.AddRows(tbl, rows)
	}
	fn, err := constraint.NewSchemaFunction(c.schema, target, c.state, c.opts.ConsiderNull)
	if err != nil {
		return nil, errors.Wrapf(err, "compile goal %q", goal.Description())
	}
	c.search.SetObjectiveFunction(fn)
	res, err := c.search.Search(ctx, candidate)
	if err != nil {
		if ctx.Err() == nil || res == nil {
			return nil, errors.Wrapf(err, "search goal %q", goal.Description())
		}
		goal.Interrupted = true
	}
	goal.Data = res.Best
	goal.Success = res.Success
	goal.Evaluations = res.Evaluations
	goal.Restarts = res.Restarts
	goal.Value = res.Value
	goal.Duration = res.Duration

	if goal.Success {
		var exclude []*schema.Table
		if target != nil {
			exclude = append(exclude, target.Table())
		}
		c.state.AppendData(goal.Data, exclude...)
		util.Infof("goal %q covered in %d evaluations", goal.Description(), goal.Evaluations)
	} else if !goal.Interrupted {
		util.Warnf("goal %q not covered after %d evaluations, %d restarts, best %s",
			goal.Description(), goal.Evaluations, goal.Restarts, valueString(goal.Value))
	}
	c.finish(goal)
	return goal, nil
}

func (c *Coverer) finish(goal *GoalReport) {
	if c.OnGoal != nil {
		c.OnGoal(goal)
	}
}

func valueString(v objective.Value) string {
	if v == nil {
		return "none"
	}
	return v.Get().String()
}
