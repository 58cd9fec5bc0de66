// Package constraint compiles integrity constraints into objective functions
// over candidate data.
package constraint

import (
	"fmt"

	"schemaanalyst/internal/data"
	"schemaanalyst/internal/objective"
	"schemaanalyst/internal/schema"

	"github.com/pkg/errors"
)

// ErrUnknownConstraint is returned for constraint types the compiler does not know.
var ErrUnknownConstraint = errors.New("unknown constraint")

// Function is an objective function over candidate data.
type Function = objective.Function[*data.Data]

// NewFunction compiles c for the given goal. Rows in state count as already
// inserted. considerNull lets satisfying goals use SQL NULL semantics; it is
// ignored for primary keys, which never accept a null key.
func NewFunction(c schema.Constraint, state *data.Data, satisfy, considerNull bool) (Function, error) {
	allowNull := considerNull && satisfy
	switch con := c.(type) {
	case *schema.PrimaryKey:
		unique := &uniqueFunction{
			desc:    con.String(),
			table:   con.Table(),
			columns: con.Columns,
			state:   state,
			satisfy: satisfy,
		}
		if !satisfy {
			return unique, nil
		}
		fn := &sumFunction{desc: con.String(), parts: []Function{unique}}
		for _, col := range con.Columns {
			fn.parts = append(fn.parts, &notNullFunction{desc: col.Name + " not null", table: con.Table(), column: col})
		}
		return fn, nil
	case *schema.Unique:
		return &uniqueFunction{
			desc:      con.String(),
			table:     con.Table(),
			columns:   con.Columns,
			state:     state,
			satisfy:   satisfy,
			allowNull: allowNull,
		}, nil
	case *schema.ForeignKey:
		return &referenceFunction{fk: con, state: state, satisfy: satisfy, allowNull: allowNull}, nil
	case *schema.NotNull:
		return &notNullFunction{desc: con.String(), table: con.Table(), column: con.Column, wantIsNull: !satisfy}, nil
	case *schema.Check:
		return newCheckFunction(con, satisfy, allowNull)
	default:
		return nil, errors.Wrapf(ErrUnknownConstraint, "%T", c)
	}
}

// SchemaFunction scores a candidate against every constraint of a schema:
// the target constraint must be violated and all others satisfied. A nil
// target asks for every constraint to be satisfied.
type SchemaFunction struct {
	desc  string
	parts []Function
}

// NewSchemaFunction compiles all constraints of s.
func NewSchemaFunction(s *schema.Schema, target schema.Constraint, state *data.Data, considerNull bool) (*SchemaFunction, error) {
	desc := "satisfy all constraints"
	if target != nil {
		desc = fmt.Sprintf("violate %s", target)
	}
	f := &SchemaFunction{desc: desc}
	for _, c := range s.Constraints() {
		fn, err := NewFunction(c, state, c != target, considerNull)
		if err != nil {
			return nil, err
		}
		f.parts = append(f.parts, fn)
	}
	return f, nil
}

// Evaluate implements objective.Function.
func (f *SchemaFunction) Evaluate(d *data.Data) (objective.Value, error) {
	out := objective.NewSum(f.desc)
	for _, part := range f.parts {
		v, err := part.Evaluate(d)
		if err != nil {
			return nil, err
		}
		out.Add(v)
	}
	return out, nil
}

func (f *SchemaFunction) String() string { return f.desc }
