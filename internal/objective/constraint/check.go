package constraint

import (
	"schemaanalyst/internal/data"
	"schemaanalyst/internal/logic"
	"schemaanalyst/internal/objective"
	"schemaanalyst/internal/schema"

	"github.com/pkg/errors"
)

// rowFunction scores a predicate against one row.
type rowFunction func(row *data.Row) (objective.Value, error)

// operandFunction yields the value of an operand for a row.
type operandFunction func(row *data.Row) data.Value

// checkFunction sums the predicate score of every candidate row.
type checkFunction struct {
	desc  string
	table *schema.Table
	row   rowFunction
}

func (f *checkFunction) Evaluate(d *data.Data) (objective.Value, error) {
	out := objective.NewSum(f.desc)
	for _, row := range d.Rows(f.table) {
		v, err := f.row(row)
		if err != nil {
			return nil, err
		}
		out.Add(v)
	}
	return out, nil
}

func newCheckFunction(chk *schema.Check, satisfy, allowNull bool) (*checkFunction, error) {
	row, err := compilePredicate(chk.Predicate, satisfy, allowNull)
	if err != nil {
		return nil, errors.Wrapf(err, "compile %s", chk)
	}
	return &checkFunction{desc: chk.String(), table: chk.Table(), row: row}, nil
}

// compilePredicate turns a predicate tree into a row scorer. When violating,
// AND and OR swap roles and leaf operators are inverted.
func compilePredicate(pred schema.Predicate, satisfy, allowNull bool) (rowFunction, error) {
	if err := schema.Validate(pred); err != nil {
		return nil, err
	}
	switch p := pred.(type) {
	case *schema.Relational:
		return compileRelational(p.Left, p.Op, p.Right, satisfy, allowNull)
	case *schema.Between:
		// BETWEEN is lower <= x AND x <= upper.
		conj := &schema.And{Children: []schema.Predicate{
			&schema.Relational{Left: p.Subject, Op: logic.GreaterOrEquals, Right: p.Lower},
			&schema.Relational{Left: p.Subject, Op: logic.LessOrEquals, Right: p.Upper},
		}}
		return compileNamed(p.String(), conj, satisfy != p.Not, allowNull)
	case *schema.In:
		// IN is x = v1 OR x = v2 ...
		disj := &schema.Or{}
		for _, item := range p.List {
			disj.Children = append(disj.Children, &schema.Relational{Left: p.Subject, Op: logic.Equals, Right: item})
		}
		return compileNamed(p.String(), disj, satisfy != p.Not, allowNull)
	case *schema.And:
		return compileJunction(p.String(), p.Children, satisfy, satisfy, allowNull)
	case *schema.Or:
		return compileJunction(p.String(), p.Children, !satisfy, satisfy, allowNull)
	default:
		return nil, errors.Wrapf(schema.ErrMalformedPredicate, "unsupported predicate %T", pred)
	}
}

func compileNamed(desc string, pred schema.Predicate, satisfy, allowNull bool) (rowFunction, error) {
	switch p := pred.(type) {
	case *schema.And:
		return compileJunction(desc, p.Children, satisfy, satisfy, allowNull)
	case *schema.Or:
		return compileJunction(desc, p.Children, !satisfy, satisfy, allowNull)
	default:
		return compilePredicate(pred, satisfy, allowNull)
	}
}

// compileJunction builds a Sum node when sum is set, a BestOf node otherwise.
func compileJunction(desc string, children []schema.Predicate, sum, satisfy, allowNull bool) (rowFunction, error) {
	fns := make([]rowFunction, 0, len(children))
	for _, child := range children {
		fn, err := compilePredicate(child, satisfy, allowNull)
		if err != nil {
			return nil, err
		}
		fns = append(fns, fn)
	}
	return func(row *data.Row) (objective.Value, error) {
		var out *objective.Multi
		if sum {
			out = objective.NewSum(desc)
		} else {
			out = objective.NewBestOf(desc)
		}
		for _, fn := range fns {
			v, err := fn(row)
			if err != nil {
				return nil, err
			}
			out.Add(v)
		}
		return out, nil
	}, nil
}

func compileRelational(left schema.Operand, op logic.RelationalOperator, right schema.Operand, satisfy, allowNull bool) (rowFunction, error) {
	typ := operandType(left, right)
	lfn, err := compileOperand(left, typ)
	if err != nil {
		return nil, err
	}
	rfn, err := compileOperand(right, typ)
	if err != nil {
		return nil, err
	}
	if !satisfy {
		op = op.Inverse()
	}
	return func(row *data.Row) (objective.Value, error) {
		return compareValues(lfn(row), op, rfn(row), allowNull)
	}, nil
}

// operandType picks the type literals are read as: the type of a column
// operand if there is one, otherwise a guess from the literal itself.
func operandType(ops ...schema.Operand) schema.DataType {
	for _, op := range ops {
		if c, ok := op.(*schema.ColumnOperand); ok {
			return c.Column.Type
		}
	}
	for _, op := range ops {
		if lit, ok := op.(*schema.Literal); ok && !lit.Null {
			return data.LiteralType(lit)
		}
	}
	return schema.Int()
}

func compileOperand(op schema.Operand, typ schema.DataType) (operandFunction, error) {
	switch o := op.(type) {
	case *schema.ColumnOperand:
		col := o.Column
		return func(row *data.Row) data.Value {
			cell := row.Cell(col)
			if cell == nil {
				return nil
			}
			return cell.Get()
		}, nil
	case *schema.Literal:
		v, err := data.FromLiteral(o, typ)
		if err != nil {
			return nil, err
		}
		return func(*data.Row) data.Value { return v }, nil
	default:
		return nil, errors.Wrapf(schema.ErrMalformedPredicate, "unsupported operand %T", op)
	}
}
