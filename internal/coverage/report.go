package coverage

import (
	"fmt"
	"strings"
	"time"

	"schemaanalyst/internal/data"
	"schemaanalyst/internal/schema"
)

// Report collects goal reports for one schema.
type Report struct {
	Schema    *schema.Schema
	Algorithm string
	Goals     []*GoalReport
	Duration  time.Duration

	numConstraints int
}

// NewReport returns an empty report.
func NewReport(s *schema.Schema, algorithm string) *Report {
	return &Report{Schema: s, Algorithm: algorithm, numConstraints: len(s.Constraints())}
}

// Add appends a goal report.
func (r *Report) Add(g *GoalReport) { r.Goals = append(r.Goals, g) }

// NumGoals is two goals per constraint: satisfy and violate.
func (r *Report) NumGoals() int { return r.numConstraints * 2 }

// TotalCovered counts covered goals. A successful satisfy-all goal covers
// the satisfy goal of every constraint.
func (r *Report) TotalCovered() int {
	total := 0
	for _, g := range r.Goals {
		if !g.Success {
			continue
		}
		if g.Constraint == nil {
			total += r.numConstraints
		} else {
			total++
		}
	}
	return total
}

// Coverage returns the covered share of goals as a percentage.
func (r *Report) Coverage() float64 {
	if r.NumGoals() == 0 {
		return 100
	}
	return float64(r.TotalCovered()) * 100 / float64(r.NumGoals())
}

// Interrupted counts goals whose search was cut short by the context.
func (r *Report) Interrupted() int {
	n := 0
	for _, g := range r.Goals {
		if g.Interrupted {
			n++
		}
	}
	return n
}

// Evaluations returns the total evaluation count.
func (r *Report) Evaluations() int {
	total := 0
	for _, g := range r.Goals {
		total += g.Evaluations
	}
	return total
}

// Statements renders the INSERT statements of a goal, tables in schema order.
func Statements(s *schema.Schema, d *data.Data) []string {
	if d == nil {
		return nil
	}
	return d.InsertStatements(s.Tables)
}

// String renders a plain text summary followed by the schema and each goal.
func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "-- Constraint coverage for %s (%s)\n", r.Schema.Name, r.Algorithm)
	fmt.Fprintf(&b, "-- Covered %d of %d goals (%.1f%%), %d evaluations\n",
		r.TotalCovered(), r.NumGoals(), r.Coverage(), r.Evaluations())
	for _, stmt := range r.Schema.DropStatements() {
		b.WriteString(stmt + ";\n")
	}
	b.WriteString(r.Schema.SQL())
	for i, g := range r.Goals {
		status := "covered"
		switch {
		case g.Interrupted && !g.Success:
			status = "NOT covered (interrupted)"
		case !g.Success:
			status = "NOT covered"
		}
		fmt.Fprintf(&b, "\n-- Goal %d: %s [%s, %d evaluations, %d restarts]\n",
			i+1, g.Description(), status, g.Evaluations, g.Restarts)
		for _, stmt := range Statements(r.Schema, g.Data) {
			b.WriteString(stmt + ";\n")
		}
	}
	return b.String()
}
