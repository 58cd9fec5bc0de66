// Package schema models tables, columns and integrity constraints of a relational schema.
package schema

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrSchemaConstruction reports a defect while assembling a schema.
var ErrSchemaConstruction = errors.New("schema construction error")

// Column describes a table column.
type Column struct {
	Name string
	Type DataType
}

// String returns the column name.
func (c *Column) String() string {
	return c.Name
}

// Table describes a database table and the constraints declared on it.
type Table struct {
	Name        string
	Columns     []*Column
	PrimaryKey  *PrimaryKey
	ForeignKeys []*ForeignKey
	Uniques     []*Unique
	NotNulls    []*NotNull
	Checks      []*Check
}

// Schema is an ordered set of tables.
type Schema struct {
	Name   string
	Tables []*Table
}

// New creates an empty schema.
func New(name string) *Schema {
	return &Schema{Name: name}
}

// CreateTable appends a new table to the schema.
func (s *Schema) CreateTable(name string) (*Table, error) {
	if _, ok := s.TableByName(name); ok {
		return nil, errors.Wrapf(ErrSchemaConstruction, "schema %q already has a table named %q", s.Name, name)
	}
	tbl := &Table{Name: name}
	s.Tables = append(s.Tables, tbl)
	return tbl, nil
}

// TableByName returns a table by case-insensitive name if present.
func (s *Schema) TableByName(name string) (*Table, bool) {
	for _, tbl := range s.Tables {
		if strings.EqualFold(tbl.Name, name) {
			return tbl, true
		}
	}
	return nil, false
}

// Constraints returns every constraint of the schema in table order.
func (s *Schema) Constraints() []Constraint {
	var out []Constraint
	for _, tbl := range s.Tables {
		out = append(out, tbl.Constraints()...)
	}
	return out
}

// ConnectedTables returns the tables reachable from tbl by following foreign
// key references transitively, in schema order. tbl itself is excluded.
func (s *Schema) ConnectedTables(tbl *Table) []*Table {
	seen := map[*Table]bool{tbl: true}
	queue := []*Table{tbl}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, ref := range cur.ReferencedTables() {
			if seen[ref] {
				continue
			}
			seen[ref] = true
			queue = append(queue, ref)
		}
	}
	out := make([]*Table, 0, len(seen))
	for _, candidate := range s.Tables {
		if candidate != tbl && seen[candidate] {
			out = append(out, candidate)
		}
	}
	return out
}

// GoalTables returns the working tables for a goal on tbl: the table plus its
// connected tables, in schema order.
func (s *Schema) GoalTables(tbl *Table) []*Table {
	connected := s.ConnectedTables(tbl)
	keep := make(map[*Table]bool, len(connected)+1)
	keep[tbl] = true
	for _, t := range connected {
		keep[t] = true
	}
	out := make([]*Table, 0, len(keep))
	for _, t := range s.Tables {
		if keep[t] {
			out = append(out, t)
		}
	}
	return out
}

// AddColumn appends a column to the table.
func (t *Table) AddColumn(name string, typ DataType) (*Column, error) {
	if _, ok := t.ColumnByName(name); ok {
		return nil, errors.Wrapf(ErrSchemaConstruction, "table %q already has a column named %q", t.Name, name)
	}
	col := &Column{Name: name, Type: typ}
	t.Columns = append(t.Columns, col)
	return col, nil
}

// ColumnByName returns a column by case-insensitive name if present.
func (t *Table) ColumnByName(name string) (*Column, bool) {
	for _, col := range t.Columns {
		if strings.EqualFold(col.Name, name) {
			return col, true
		}
	}
	return nil, false
}

// ColumnIndex returns the position of col in the table or -1.
func (t *Table) ColumnIndex(col *Column) int {
	for i, c := range t.Columns {
		if c == col {
			return i
		}
	}
	return -1
}

// ReferencedTables returns the distinct tables referenced by foreign keys.
func (t *Table) ReferencedTables() []*Table {
	var out []*Table
	seen := map[*Table]bool{}
	for _, fk := range t.ForeignKeys {
		if seen[fk.RefTable] {
			continue
		}
		seen[fk.RefTable] = true
		out = append(out, fk.RefTable)
	}
	return out
}

// Constraints lists the table constraints: primary key, foreign keys,
// uniques, not-nulls, then checks.
func (t *Table) Constraints() []Constraint {
	var out []Constraint
	if t.PrimaryKey != nil {
		out = append(out, t.PrimaryKey)
	}
	for _, fk := range t.ForeignKeys {
		out = append(out, fk)
	}
	for _, u := range t.Uniques {
		out = append(out, u)
	}
	for _, nn := range t.NotNulls {
		out = append(out, nn)
	}
	for _, chk := range t.Checks {
		out = append(out, chk)
	}
	return out
}

// SetPrimaryKey declares the table primary key.
func (t *Table) SetPrimaryKey(name string, cols ...*Column) (*PrimaryKey, error) {
	if len(cols) == 0 {
		return nil, errors.Wrapf(ErrSchemaConstruction, "primary key on %q has no columns", t.Name)
	}
	if t.PrimaryKey != nil {
		return nil, errors.Wrapf(ErrSchemaConstruction, "table %q already has a primary key", t.Name)
	}
	if err := t.ownsColumns(cols); err != nil {
		return nil, err
	}
	t.PrimaryKey = &PrimaryKey{base: base{table: t, name: name}, Columns: cols}
	return t.PrimaryKey, nil
}

// AddForeignKey declares a foreign key from cols to refCols of refTable.
func (t *Table) AddForeignKey(name string, cols []*Column, refTable *Table, refCols []*Column) (*ForeignKey, error) {
	if len(cols) == 0 || len(cols) != len(refCols) {
		return nil, errors.Wrapf(ErrSchemaConstruction,
			"foreign key on %q has %d columns referencing %d", t.Name, len(cols), len(refCols))
	}
	if err := t.ownsColumns(cols); err != nil {
		return nil, err
	}
	if err := refTable.ownsColumns(refCols); err != nil {
		return nil, err
	}
	fk := &ForeignKey{base: base{table: t, name: name}, Columns: cols, RefTable: refTable, RefColumns: refCols}
	t.ForeignKeys = append(t.ForeignKeys, fk)
	return fk, nil
}

// AddUnique declares a unique constraint.
func (t *Table) AddUnique(name string, cols ...*Column) (*Unique, error) {
	if len(cols) == 0 {
		return nil, errors.Wrapf(ErrSchemaConstruction, "unique constraint on %q has no columns", t.Name)
	}
	if err := t.ownsColumns(cols); err != nil {
		return nil, err
	}
	u := &Unique{base: base{table: t, name: name}, Columns: cols}
	t.Uniques = append(t.Uniques, u)
	return u, nil
}

// AddNotNull declares a not-null constraint; duplicates are ignored.
func (t *Table) AddNotNull(name string, col *Column) (*NotNull, error) {
	if err := t.ownsColumns([]*Column{col}); err != nil {
		return nil, err
	}
	for _, nn := range t.NotNulls {
		if nn.Column == col {
			return nn, nil
		}
	}
	nn := &NotNull{base: base{table: t, name: name}, Column: col}
	t.NotNulls = append(t.NotNulls, nn)
	return nn, nil
}

// AddCheck declares a check constraint over a predicate.
func (t *Table) AddCheck(name string, pred Predicate) (*Check, error) {
	if err := Validate(pred); err != nil {
		return nil, errors.Wrapf(err, "check on %q", t.Name)
	}
	for _, col := range PredicateColumns(pred) {
		if t.ColumnIndex(col) < 0 {
			return nil, errors.Wrapf(ErrSchemaConstruction, "check on %q references foreign column %q", t.Name, col.Name)
		}
	}
	chk := &Check{base: base{table: t, name: name}, Predicate: pred}
	t.Checks = append(t.Checks, chk)
	return chk, nil
}

func (t *Table) ownsColumns(cols []*Column) error {
	for _, col := range cols {
		if col == nil || t.ColumnIndex(col) < 0 {
			return errors.Wrapf(ErrSchemaConstruction, "column %v does not belong to table %q", col, t.Name)
		}
	}
	return nil
}

// ColumnRef builds a fully qualified column reference.
func ColumnRef(table, column string) string {
	return fmt.Sprintf("%s.%s", table, column)
}
