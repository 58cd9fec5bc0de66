// Package logic defines the relational operators shared by predicates and values.
package logic

import (
	"fmt"

	"github.com/pkg/errors"
)

// RelationalOperator enumerates the comparison operators of the predicate vocabulary.
type RelationalOperator int

// Relational operators.
const (
	Equals RelationalOperator = iota
	NotEquals
	Greater
	GreaterOrEquals
	Less
	LessOrEquals
)

// ErrUnknownOperator is returned when operator text cannot be mapped.
var ErrUnknownOperator = errors.New("unknown relational operator")

var operatorSymbols = map[RelationalOperator]string{
	Equals:          "=",
	NotEquals:       "<>",
	Greater:         ">",
	GreaterOrEquals: ">=",
	Less:            "<",
	LessOrEquals:    "<=",
}

// ParseOperator maps SQL operator text onto a RelationalOperator.
func ParseOperator(symbol string) (RelationalOperator, error) {
	switch symbol {
	case "=", "==":
		return Equals, nil
	case "<>", "!=":
		return NotEquals, nil
	case ">":
		return Greater, nil
	case ">=":
		return GreaterOrEquals, nil
	case "<":
		return Less, nil
	case "<=":
		return LessOrEquals, nil
	default:
		return Equals, errors.Wrapf(ErrUnknownOperator, "%q", symbol)
	}
}

// Inverse returns the operator whose result is the negation of op.
func (op RelationalOperator) Inverse() RelationalOperator {
	switch op {
	case Equals:
		return NotEquals
	case NotEquals:
		return Equals
	case Greater:
		return LessOrEquals
	case GreaterOrEquals:
		return Less
	case Less:
		return GreaterOrEquals
	default:
		return Greater
	}
}

// Valid reports whether op is one of the declared operators.
func (op RelationalOperator) Valid() bool {
	_, ok := operatorSymbols[op]
	return ok
}

// String returns the SQL symbol of the operator.
func (op RelationalOperator) String() string {
	if sym, ok := operatorSymbols[op]; ok {
		return sym
	}
	return fmt.Sprintf("op(%d)", int(op))
}

// Ordering reports whether the operator requires an ordering between operands.
func (op RelationalOperator) Ordering() bool {
	return op != Equals && op != NotEquals
}
