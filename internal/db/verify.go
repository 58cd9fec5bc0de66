package db

import (
	"context"

	"schemaanalyst/internal/coverage"
	"schemaanalyst/internal/data"
	"schemaanalyst/internal/schema"
	"schemaanalyst/internal/util"

	"github.com/pkg/errors"
)

// Outcome records how the database handled one statement.
type Outcome struct {
	SQL      string `json:"sql"`
	Table    string `json:"table"`
	Accepted bool   `json:"accepted"`
	Code     int    `json:"code,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Verdict is the verification result of one goal.
type Verdict struct {
	Goal string `json:"goal"`
	// Confirmed is set when the database agreed with the goal: every insert
	// accepted for satisfy-all, a rejected target-table insert otherwise.
	Confirmed  bool      `json:"confirmed"`
	State      []Outcome `json:"state,omitempty"`
	Statements []Outcome `json:"statements"`
}

// ApplySchema drops and recreates every table of s.
func (d *DB) ApplySchema(ctx context.Context, s *schema.Schema) error {
	for _, stmt := range append(s.DropStatements(), s.CreateStatements()...) {
		if _, err := d.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "apply schema: %s", stmt)
		}
	}
	return nil
}

// VerifyGoal replays the state a goal was searched against followed by the
// goal rows on a freshly created schema.
func (d *DB) VerifyGoal(ctx context.Context, s *schema.Schema, goal *coverage.GoalReport) (*Verdict, error) {
	v := &Verdict{Goal: goal.Description()}
	if goal.Data == nil {
		return v, nil
	}
	if err := d.ApplySchema(ctx, s); err != nil {
		return nil, err
	}
	var err error
	if v.State, err = d.replay(ctx, s, goal.State); err != nil {
		return nil, err
	}
	if v.Statements, err = d.replay(ctx, s, goal.Data); err != nil {
		return nil, err
	}
	v.Confirmed = confirmed(goal, v.Statements)
	if !v.Confirmed {
		util.Warnf("database disagrees with goal %q", goal.Description())
	}
	return v, nil
}

// VerifyReport verifies every goal of r that produced data.
func (d *DB) VerifyReport(ctx context.Context, r *coverage.Report) ([]*Verdict, error) {
	verdicts := make([]*Verdict, 0, len(r.Goals))
	for _, goal := range r.Goals {
		v, err := d.VerifyGoal(ctx, r.Schema, goal)
		if err != nil {
			return nil, errors.Wrapf(err, "verify goal %q", goal.Description())
		}
		verdicts = append(verdicts, v)
	}
	return verdicts, nil
}

// replay executes the inserts of rows in schema order. A rejected insert is
// an outcome; only context and connection failures are errors.
func (d *DB) replay(ctx context.Context, s *schema.Schema, rows *data.Data) ([]Outcome, error) {
	if rows == nil {
		return nil, nil
	}
	var out []Outcome
	for _, tbl := range s.Tables {
		for _, row := range rows.Rows(tbl) {
			stmt := data.InsertSQL(row)
			o := Outcome{SQL: stmt, Table: tbl.Name, Accepted: true}
			if _, err := d.ExecContext(ctx, stmt); err != nil {
				if ctx.Err() != nil {
					return nil, errors.Wrap(ctx.Err(), "replay interrupted")
				}
				code, ok := ErrorCode(err)
				if !ok {
					return nil, errors.Wrapf(err, "exec %s", stmt)
				}
				o.Accepted = false
				o.Code = code
				o.Error = err.Error()
			}
			out = append(out, o)
		}
	}
	return out, nil
}

func confirmed(goal *coverage.GoalReport, statements []Outcome) bool {
	if goal.Constraint == nil {
		for _, o := range statements {
			if !o.Accepted {
				return false
			}
		}
		return true
	}
	target := goal.Constraint.Table().Name
	rejected := false
	for _, o := range statements {
		if o.Accepted {
			continue
		}
		if o.Table != target {
			return false
		}
		rejected = true
	}
	return rejected
}
