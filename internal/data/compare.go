package data

import (
	"schemaanalyst/internal/logic"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrTypeMismatch is returned when two values of different kinds are compared.
	ErrTypeMismatch = errors.New("value type mismatch")
	// ErrUnsupportedOperator is returned for operators a value kind cannot evaluate.
	ErrUnsupportedOperator = errors.New("unsupported operator")
)

// Compare evaluates lhs op rhs. When either side is NULL the result is
// allowNull, leaving the three-valued interpretation to the caller.
func Compare(lhs Value, op logic.RelationalOperator, rhs Value, allowNull bool) (bool, error) {
	if lhs == nil || rhs == nil {
		return allowNull, nil
	}
	if lhs.Kind() != rhs.Kind() {
		return false, errors.Wrapf(ErrTypeMismatch, "%s %s %s", lhs.Kind(), op, rhs.Kind())
	}
	switch l := lhs.(type) {
	case *Boolean:
		r := rhs.(*Boolean)
		switch op {
		case logic.Equals:
			return l.V == r.V, nil
		case logic.NotEquals:
			return l.V != r.V, nil
		default:
			return false, errors.Wrapf(ErrUnsupportedOperator, "%s on boolean", op)
		}
	case *Numeric:
		return CompareDecimal(l.Get(), op, rhs.(*Numeric).Get())
	case *Timestamp:
		return CompareDecimal(l.Seconds.Get(), op, rhs.(*Timestamp).Seconds.Get())
	case Compound:
		return compareElements(l.Elements(), op, rhs.(Compound).Elements())
	default:
		return false, errors.Wrapf(ErrTypeMismatch, "uncomparable %T", lhs)
	}
}

// CompareDecimal applies op to two decimals.
func CompareDecimal(l decimal.Decimal, op logic.RelationalOperator, r decimal.Decimal) (bool, error) {
	c := l.Cmp(r)
	switch op {
	case logic.Equals:
		return c == 0, nil
	case logic.NotEquals:
		return c != 0, nil
	case logic.Greater:
		return c > 0, nil
	case logic.GreaterOrEquals:
		return c >= 0, nil
	case logic.Less:
		return c < 0, nil
	case logic.LessOrEquals:
		return c <= 0, nil
	default:
		return false, errors.Wrapf(ErrUnsupportedOperator, "%s", op)
	}
}

// compareElements decides at the first differing element. A strict prefix
// orders before the longer sequence.
func compareElements(l []*Numeric, op logic.RelationalOperator, r []*Numeric) (bool, error) {
	i := 0
	for ; i < len(l) && i < len(r); i++ {
		if l[i].Get().Equal(r[i].Get()) {
			continue
		}
		return CompareDecimal(l[i].Get(), op, r[i].Get())
	}
	leftRemains := i < len(l)
	rightRemains := i < len(r)
	if !leftRemains && !rightRemains {
		switch op {
		case logic.Equals, logic.GreaterOrEquals, logic.LessOrEquals:
			return true, nil
		case logic.NotEquals, logic.Greater, logic.Less:
			return false, nil
		}
		return false, errors.Wrapf(ErrUnsupportedOperator, "%s", op)
	}
	switch op {
	case logic.Equals:
		return false, nil
	case logic.NotEquals:
		return true, nil
	case logic.Greater, logic.GreaterOrEquals:
		return leftRemains, nil
	case logic.Less, logic.LessOrEquals:
		return rightRemains, nil
	default:
		return false, errors.Wrapf(ErrUnsupportedOperator, "%s", op)
	}
}
