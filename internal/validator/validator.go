// Package validator checks generated SQL against the TiDB grammar before it
// is written out or replayed.
package validator

import (
	"schemaanalyst/internal/coverage"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/mysql"
	_ "github.com/pingcap/tidb/pkg/types/parser_driver" // Register TiDB parser driver.
	"github.com/pkg/errors"
)

// Validator wraps a TiDB parser. String literals are read without backslash
// escapes, matching the session mode used for verification.
type Validator struct {
	parser *parser.Parser
}

// Issue is a statement that failed to parse.
type Issue struct {
	Goal string `json:"goal"`
	SQL  string `json:"sql"`
	Err  string `json:"error"`
}

// New returns a Validator.
func New() *Validator {
	p := parser.New()
	p.SetSQLMode(mysql.ModeNoBackslashEscapes)
	return &Validator{parser: p}
}

// Validate parses one statement and returns any syntax error.
func (v *Validator) Validate(sql string) error {
	stmts, _, err := v.parser.Parse(sql, "", "")
	if err != nil {
		return err
	}
	if len(stmts) != 1 {
		return errors.Errorf("expected one statement, got %d", len(stmts))
	}
	return nil
}

// ValidateReport parses the schema and every goal's INSERT statements.
func (v *Validator) ValidateReport(rep *coverage.Report) []Issue {
	var issues []Issue
	check := func(goal string, statements []string) {
		for _, sql := range statements {
			if err := v.Validate(sql); err != nil {
				issues = append(issues, Issue{Goal: goal, SQL: sql, Err: err.Error()})
			}
		}
	}
	check("schema", append(rep.Schema.DropStatements(), rep.Schema.CreateStatements()...))
	for _, goal := range rep.Goals {
		check(goal.Description(), coverage.Statements(rep.Schema, goal.Data))
	}
	return issues
}
