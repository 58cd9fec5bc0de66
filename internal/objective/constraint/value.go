package constraint

import (
	"fmt"

	"schemaanalyst/internal/data"
	"schemaanalyst/internal/logic"
	"schemaanalyst/internal/objective"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// k is the gap added when a strict comparison fails on equal operands.
var k = decimal.NewFromInt(1)

// compareValues scores lhs op rhs: optimal when the comparison holds,
// otherwise a distance that shrinks as the operands approach each other.
func compareValues(lhs data.Value, op logic.RelationalOperator, rhs data.Value, allowNull bool) (objective.Value, error) {
	desc := fmt.Sprintf("%s %s %s", valueText(lhs), op, valueText(rhs))
	ok, err := data.Compare(lhs, op, rhs, allowNull)
	if err != nil {
		return nil, err
	}
	if ok {
		return objective.Optimal(desc), nil
	}
	if lhs == nil || rhs == nil {
		return objective.Worst(desc), nil
	}
	switch l := lhs.(type) {
	case *data.Boolean:
		return objective.FromDistance(desc, k), nil
	case *data.Numeric:
		return objective.FromDistance(desc, numericDistance(l.Get(), op, rhs.(*data.Numeric).Get())), nil
	case *data.Timestamp:
		return objective.FromDistance(desc, numericDistance(l.Seconds.Get(), op, rhs.(*data.Timestamp).Seconds.Get())), nil
	case data.Compound:
		return compoundDistance(desc, l.Elements(), op, rhs.(data.Compound).Elements())
	default:
		return nil, errors.Wrapf(data.ErrTypeMismatch, "no distance for %T", lhs)
	}
}

// numericDistance is the gap to close for l op r to hold. It is only
// called when the comparison fails.
func numericDistance(l decimal.Decimal, op logic.RelationalOperator, r decimal.Decimal) decimal.Decimal {
	switch op {
	case logic.Equals:
		return l.Sub(r).Abs()
	case logic.NotEquals:
		return k
	case logic.Less:
		return l.Sub(r).Add(k)
	case logic.LessOrEquals:
		return l.Sub(r)
	case logic.Greater:
		return r.Sub(l).Add(k)
	default:
		return r.Sub(l)
	}
}

// missingElementDistance is charged for each position only one side has.
var missingElementDistance = decimal.NewFromInt(256)

// compoundDistance scores a failed comparison of element sequences. Equality
// adds up the per-position gaps plus a fixed charge for each missing
// position; the other operators are decided at the first differing position.
func compoundDistance(desc string, l []*data.Numeric, op logic.RelationalOperator, r []*data.Numeric) (objective.Value, error) {
	if op == logic.Equals {
		total := decimal.Zero
		n := len(l)
		if len(r) > n {
			n = len(r)
		}
		for i := 0; i < n; i++ {
			if i >= len(l) || i >= len(r) {
				total = total.Add(missingElementDistance)
				continue
			}
			total = total.Add(l[i].Get().Sub(r[i].Get()).Abs())
		}
		return objective.FromDistance(desc, total), nil
	}
	for i := 0; i < len(l) && i < len(r); i++ {
		if l[i].Get().Equal(r[i].Get()) {
			continue
		}
		return objective.FromDistance(desc, numericDistance(l[i].Get(), op, r[i].Get())), nil
	}
	return objective.FromDistance(desc, k), nil
}

// compareTuples scores the columnwise comparison of two tuples. Equality
// needs every position to match; inequality needs one differing position.
// Any null element yields allowNull, as SQL does for composite keys; a
// disallowed null scores as if every position were worst.
func compareTuples(desc string, lhs []data.Value, op logic.RelationalOperator, rhs []data.Value, allowNull bool) (objective.Value, error) {
	if hasNull(lhs) || hasNull(rhs) {
		if allowNull {
			return objective.Optimal(desc), nil
		}
		return objective.NewScore(desc, objective.WorstValue.Mul(decimal.NewFromInt(int64(len(lhs))))), nil
	}
	var out *objective.Multi
	if op == logic.Equals {
		out = objective.NewSum(desc)
	} else {
		out = objective.NewBestOf(desc)
	}
	for i := range lhs {
		v, err := compareValues(lhs[i], op, rhs[i], allowNull)
		if err != nil {
			return nil, err
		}
		out.Add(v)
	}
	return out, nil
}

func hasNull(values []data.Value) bool {
	for _, v := range values {
		if v == nil {
			return true
		}
	}
	return false
}

func valueText(v data.Value) string {
	if v == nil {
		return "NULL"
	}
	return v.SQL()
}
