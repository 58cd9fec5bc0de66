package schema

import (
	"fmt"
	"strings"

	"schemaanalyst/internal/logic"

	"github.com/pkg/errors"
)

// ErrMalformedPredicate reports a predicate tree that cannot be evaluated.
var ErrMalformedPredicate = errors.New("malformed predicate")

// Operand is either a *ColumnOperand or a *Literal.
type Operand interface {
	String() string
	isOperand()
}

// ColumnOperand refers to a column of the row being checked.
type ColumnOperand struct {
	Column *Column
}

// Literal is a constant. Quoted literals were written as SQL strings.
type Literal struct {
	Text   string
	Quoted bool
	Null   bool
}

func (*ColumnOperand) isOperand() {}
func (*Literal) isOperand()       {}

func (o *ColumnOperand) String() string {
	if o.Column == nil {
		return "<nil column>"
	}
	return o.Column.Name
}

func (l *Literal) String() string {
	switch {
	case l.Null:
		return "NULL"
	case l.Quoted:
		return "'" + strings.ReplaceAll(l.Text, "'", "''") + "'"
	default:
		return l.Text
	}
}

// Col wraps a column as an operand.
func Col(c *Column) *ColumnOperand { return &ColumnOperand{Column: c} }

// Num builds an unquoted numeric literal.
func Num(text string) *Literal { return &Literal{Text: text} }

// Str builds a quoted string literal.
func Str(text string) *Literal { return &Literal{Text: text, Quoted: true} }

// Null builds the NULL literal.
func Null() *Literal { return &Literal{Null: true} }

// Predicate is one of *Relational, *Between, *In, *And, *Or.
type Predicate interface {
	String() string
	isPredicate()
}

// Relational compares two operands.
type Relational struct {
	Left  Operand
	Op    logic.RelationalOperator
	Right Operand
}

// Between tests Lower <= Subject <= Upper, or its negation when Not is set.
type Between struct {
	Subject Operand
	Lower   Operand
	Upper   Operand
	Not     bool
}

// In tests membership of Subject in List, or its negation when Not is set.
type In struct {
	Subject Operand
	List    []Operand
	Not     bool
}

// And is a conjunction.
type And struct {
	Children []Predicate
}

// Or is a disjunction.
type Or struct {
	Children []Predicate
}

func (*Relational) isPredicate() {}
func (*Between) isPredicate()    {}
func (*In) isPredicate()         {}
func (*And) isPredicate()        {}
func (*Or) isPredicate()         {}

func (p *Relational) String() string {
	return fmt.Sprintf("%s %s %s", operandString(p.Left), p.Op, operandString(p.Right))
}

func (p *Between) String() string {
	not := ""
	if p.Not {
		not = "NOT "
	}
	return fmt.Sprintf("%s %sBETWEEN %s AND %s",
		operandString(p.Subject), not, operandString(p.Lower), operandString(p.Upper))
}

func (p *In) String() string {
	items := make([]string, 0, len(p.List))
	for _, item := range p.List {
		items = append(items, operandString(item))
	}
	not := ""
	if p.Not {
		not = "NOT "
	}
	return fmt.Sprintf("%s %sIN (%s)", operandString(p.Subject), not, strings.Join(items, ", "))
}

func (p *And) String() string { return joinPredicates(p.Children, " AND ") }

func (p *Or) String() string { return joinPredicates(p.Children, " OR ") }

func joinPredicates(children []Predicate, sep string) string {
	parts := make([]string, 0, len(children))
	for _, child := range children {
		if child == nil {
			parts = append(parts, "<nil>")
			continue
		}
		parts = append(parts, "("+child.String()+")")
	}
	return strings.Join(parts, sep)
}

func operandString(o Operand) string {
	if o == nil {
		return "<nil>"
	}
	return o.String()
}

// Validate checks that a predicate tree is complete.
func Validate(pred Predicate) error {
	switch p := pred.(type) {
	case nil:
		return errors.Wrap(ErrMalformedPredicate, "nil predicate")
	case *Relational:
		if err := validateOperands(p.Left, p.Right); err != nil {
			return err
		}
		if !p.Op.Valid() {
			return errors.Wrapf(ErrMalformedPredicate, "invalid operator %s", p.Op)
		}
		return nil
	case *Between:
		return validateOperands(p.Subject, p.Lower, p.Upper)
	case *In:
		if len(p.List) == 0 {
			return errors.Wrap(ErrMalformedPredicate, "empty IN list")
		}
		return validateOperands(append([]Operand{p.Subject}, p.List...)...)
	case *And:
		return validateChildren("AND", p.Children)
	case *Or:
		return validateChildren("OR", p.Children)
	default:
		return errors.Wrapf(ErrMalformedPredicate, "unsupported predicate %T", pred)
	}
}

func validateChildren(kind string, children []Predicate) error {
	if len(children) == 0 {
		return errors.Wrapf(ErrMalformedPredicate, "empty %s", kind)
	}
	for _, child := range children {
		if err := Validate(child); err != nil {
			return err
		}
	}
	return nil
}

func validateOperands(ops ...Operand) error {
	for _, op := range ops {
		switch o := op.(type) {
		case nil:
			return errors.Wrap(ErrMalformedPredicate, "missing operand")
		case *ColumnOperand:
			if o.Column == nil {
				return errors.Wrap(ErrMalformedPredicate, "column operand without column")
			}
		case *Literal:
		default:
			return errors.Wrapf(ErrMalformedPredicate, "unsupported operand %T", op)
		}
	}
	return nil
}

// PredicateColumns returns the distinct columns referenced by a predicate.
func PredicateColumns(pred Predicate) []*Column {
	var out []*Column
	seen := map[*Column]bool{}
	add := func(ops ...Operand) {
		for _, op := range ops {
			if c, ok := op.(*ColumnOperand); ok && c.Column != nil && !seen[c.Column] {
				seen[c.Column] = true
				out = append(out, c.Column)
			}
		}
	}
	var walk func(Predicate)
	walk = func(pred Predicate) {
		switch p := pred.(type) {
		case *Relational:
			add(p.Left, p.Right)
		case *Between:
			add(p.Subject, p.Lower, p.Upper)
		case *In:
			add(p.Subject)
			add(p.List...)
		case *And:
			for _, child := range p.Children {
				walk(child)
			}
		case *Or:
			for _, child := range p.Children {
				walk(child)
			}
		}
	}
	walk(pred)
	return out
}
