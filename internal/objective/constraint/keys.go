package constraint

import (
	"schemaanalyst/internal/data"
	"schemaanalyst/internal/logic"
	"schemaanalyst/internal/objective"
	"schemaanalyst/internal/schema"
)

// uniqueFunction scores distinctness of key tuples across the candidate rows
// of a table and the rows already accepted into state. Satisfying needs every
// pair to differ; violating needs one pair to coincide.
type uniqueFunction struct {
	desc      string
	table     *schema.Table
	columns   []*schema.Column
	state     *data.Data
	satisfy   bool
	allowNull bool
}

func (f *uniqueFunction) Evaluate(d *data.Data) (objective.Value, error) {
	var out *objective.Multi
	op := logic.Equals
	if f.satisfy {
		out = objective.NewSum(f.desc)
		op = logic.NotEquals
	} else {
		out = objective.NewBestOf(f.desc)
	}
	var stateRows []*data.Row
	if f.state != nil {
		stateRows = f.state.Rows(f.table)
	}
	rows := d.Rows(f.table)
	for i, row := range rows {
		values := row.Values(f.columns)
		for _, other := range stateRows {
			v, err := compareTuples("state", values, op, other.Values(f.columns), f.allowNull)
			if err != nil {
				return nil, err
			}
			out.Add(v)
		}
		for _, other := range rows[:i] {
			v, err := compareTuples("pair", values, op, other.Values(f.columns), f.allowNull)
			if err != nil {
				return nil, err
			}
			out.Add(v)
		}
	}
	return out, nil
}

// notNullFunction scores each cell of a column against the wanted null flag.
type notNullFunction struct {
	desc       string
	table      *schema.Table
	column     *schema.Column
	wantIsNull bool
}

func (f *notNullFunction) Evaluate(d *data.Data) (objective.Value, error) {
	out := objective.NewSum(f.desc)
	for _, row := range d.Rows(f.table) {
		cell := row.Cell(f.column)
		out.Add(objective.Bool(f.column.Name, cell.IsNull() == f.wantIsNull))
	}
	return out, nil
}

// sumFunction adds up several functions.
type sumFunction struct {
	desc  string
	parts []objective.Function[*data.Data]
}

func (f *sumFunction) Evaluate(d *data.Data) (objective.Value, error) {
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
