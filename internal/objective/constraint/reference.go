package constraint

import (
	"schemaanalyst/internal/data"
	"schemaanalyst/internal/logic"
	"schemaanalyst/internal/objective"
	"schemaanalyst/internal/schema"
)

// referenceFunction scores a foreign key. Candidate rows of the referenced
// table and state rows both count as reference rows.
type referenceFunction struct {
	fk        *schema.ForeignKey
	state     *data.Data
	satisfy   bool
	allowNull bool
}

func (f *referenceFunction) referenceRows(d *data.Data) []*data.Row {
	rows := append([]*data.Row(nil), d.Rows(f.fk.RefTable)...)
	if f.state != nil {
		rows = append(rows, f.state.Rows(f.fk.RefTable)...)
	}
	return rows
}

func (f *referenceFunction) Evaluate(d *data.Data) (objective.Value, error) {
	out := objective.NewSum(f.fk.String())
	refs := f.referenceRows(d)
	for _, row := range d.Rows(f.fk.Table()) {
		values := row.Values(f.fk.Columns)
		if hasNull(values) {
			out.Add(objective.Bool("null reference", f.allowNull))
			continue
		}
		var rowValue *objective.Multi
		op := logic.NotEquals
		if f.satisfy {
			// Match any one reference row.
			rowValue = objective.NewBestOf("row")
			op = logic.Equals
		} else {
			rowValue = objective.NewSum("row")
		}
		for _, ref := range refs {
			refValues := ref.Values(f.fk.RefColumns)
			if hasNull(refValues) {
				// A null key never matches.
				rowValue.Add(objective.Bool("null key", !f.satisfy))
				continue
			}
			v, err := compareTuples("reference", values, op, refValues, f.allowNull)
			if err != nil {
				return nil, err
			}
			rowValue.Add(v)
		}
		out.Add(rowValue)
	}
	return out, nil
}
