package schema

import (
	"fmt"
	"strings"
)

// ConstraintKind enumerates the supported integrity constraints.
type ConstraintKind int

// Constraint kinds.
const (
	KindPrimaryKey ConstraintKind = iota
	KindForeignKey
	KindUnique
	KindNotNull
	KindCheck
)

// String returns a short label for the kind.
func (k ConstraintKind) String() string {
	switch k {
	case KindPrimaryKey:
		return "PRIMARY KEY"
	case KindForeignKey:
		return "FOREIGN KEY"
	case KindUnique:
		return "UNIQUE"
	case KindNotNull:
		return "NOT NULL"
	case KindCheck:
		return "CHECK"
	default:
		return "UNKNOWN"
	}
}

// Constraint is implemented by *PrimaryKey, *ForeignKey, *Unique, *NotNull
// and *Check. Callers switch on the concrete type.
type Constraint interface {
	Table() *Table
	Name() string
	Kind() ConstraintKind
	String() string
	isConstraint()
}

type base struct {
	table *Table
	name  string
}

// Table returns the table the constraint is declared on.
func (b base) Table() *Table { return b.table }

// Name returns the declared constraint name, possibly empty.
func (b base) Name() string { return b.name }

func (b base) isConstraint() {}

// PrimaryKey is a primary key constraint.
type PrimaryKey struct {
	base
	Columns []*Column
}

// ForeignKey references RefColumns of RefTable from Columns.
type ForeignKey struct {
	base
	Columns    []*Column
	RefTable   *Table
	RefColumns []*Column
}

// Unique is a unique constraint.
type Unique struct {
	base
	Columns []*Column
}

// NotNull is a single-column not-null constraint.
type NotNull struct {
	base
	Column *Column
}

// Check is a check constraint over a predicate tree.
type Check struct {
	base
	Predicate Predicate
}

// Kind implements Constraint.
func (*PrimaryKey) Kind() ConstraintKind { return KindPrimaryKey }

// Kind implements Constraint.
func (*ForeignKey) Kind() ConstraintKind { return KindForeignKey }

// Kind implements Constraint.
func (*Unique) Kind() ConstraintKind { return KindUnique }

// Kind implements Constraint.
func (*NotNull) Kind() ConstraintKind { return KindNotNull }

// Kind implements Constraint.
func (*Check) Kind() ConstraintKind { return KindCheck }

func (c *PrimaryKey) String() string {
	return fmt.Sprintf("%s PRIMARY KEY(%s)", c.table.Name, columnList(c.Columns))
}

func (c *ForeignKey) String() string {
	return fmt.Sprintf("%s FOREIGN KEY(%s) REFERENCES %s(%s)",
		c.table.Name, columnList(c.Columns), c.RefTable.Name, columnList(c.RefColumns))
}

func (c *Unique) String() string {
	return fmt.Sprintf("%s UNIQUE(%s)", c.table.Name, columnList(c.Columns))
}

func (c *NotNull) String() string {
	return fmt.Sprintf("%s NOT NULL(%s)", c.table.Name, c.Column.Name)
}

func (c *Check) String() string {
	return fmt.Sprintf("%s CHECK(%s)", c.table.Name, c.Predicate.String())
}

func columnList(cols []*Column) string {
	names := make([]string, 0, len(cols))
	for _, col := range cols {
		names = append(names, col.Name)
	}
	return strings.Join(names, ", ")
}
