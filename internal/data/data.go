package data

import (
	"fmt"
	"strings"

	"schemaanalyst/internal/schema"
)

// Cell is one (row, column) slot. Toggling null keeps the stored value so the
// toggle can be undone without allocation.
type Cell struct {
	column *schema.Column
	value  Value
	null   bool
}

// NewCell returns a non-null cell holding v.
func NewCell(col *schema.Column, v Value) *Cell {
	return &Cell{column: col, value: v}
}

// Column returns the column of the cell.
func (c *Cell) Column() *schema.Column { return c.column }

// Value returns the stored value, whether or not the cell is null.
func (c *Cell) Value() Value { return c.value }

// Get returns the effective value: nil when the cell is null.
func (c *Cell) Get() Value {
	if c.null {
		return nil
	}
	return c.value
}

// IsNull reports whether the cell is null.
func (c *Cell) IsNull() bool { return c.null }

// SetNull sets the null flag.
func (c *Cell) SetNull(null bool) { c.null = null }

// SetValue stores v and clears the null flag. A nil v makes the cell null.
func (c *Cell) SetValue(v Value) {
	if v == nil {
		c.null = true
		return
	}
	c.value = v
	c.null = false
}

// Duplicate returns a deep copy.
func (c *Cell) Duplicate() *Cell {
	return &Cell{column: c.column, value: c.value.Duplicate(), null: c.null}
}

func (c *Cell) String() string {
	if c.null {
		return "NULL"
	}
	return c.value.SQL()
}

// Row is an ordered set of cells for one table.
type Row struct {
	table *schema.Table
	cells []*Cell
}

// Table returns the table of the row.
func (r *Row) Table() *schema.Table { return r.table }

// Cells returns the cells in column order.
func (r *Row) Cells() []*Cell { return r.cells }

// Cell returns the cell for col, or nil if the column is not in the table.
func (r *Row) Cell(col *schema.Column) *Cell {
	idx := r.table.ColumnIndex(col)
	if idx < 0 || idx >= len(r.cells) {
		return nil
	}
	return r.cells[idx]
}

// Values returns the effective values of cols.
func (r *Row) Values(cols []*schema.Column) []Value {
	out := make([]Value, len(cols))
	for i, col := range cols {
		if cell := r.Cell(col); cell != nil {
			out[i] = cell.Get()
		}
	}
	return out
}

// Duplicate returns a deep copy.
func (r *Row) Duplicate() *Row {
	cp := &Row{table: r.table, cells: make([]*Cell, len(r.cells))}
	for i, c := range r.cells {
		cp.cells[i] = c.Duplicate()
	}
	return cp
}

func (r *Row) String() string {
	parts := make([]string, 0, len(r.cells))
	for _, c := range r.cells {
		parts = append(parts, fmt.Sprintf("%s=%s", c.column.Name, c))
	}
	return fmt.Sprintf("%s(%s)", r.table.Name, strings.Join(parts, ", "))
}

// Data maps tables to their rows. Table order is the order tables were
// first added.
type Data struct {
	tables []*schema.Table
	rows   map[*schema.Table][]*Row
}

// New returns empty data.
func New() *Data {
	return &Data{rows: make(map[*schema.Table][]*Row)}
}

// NewRow builds a row of default values for tbl.
func NewRow(tbl *schema.Table) *Row {
	row := &Row{table: tbl, cells: make([]*Cell, 0, len(tbl.Columns))}
	for _, col := range tbl.Columns {
		row.cells = append(row.cells, NewCell(col, DefaultValue(col.Type)))
	}
	return row
}

// AddRows appends n default rows to tbl and returns them.
func (d *Data) AddRows(tbl *schema.Table, n int) []*Row {
	added := make([]*Row, 0, n)
	for i := 0; i < n; i++ {
		row := NewRow(tbl)
		d.AddRow(row)
		added = append(added, row)
	}
	return added
}

// AddRow appends a row to its table.
func (d *Data) AddRow(row *Row) {
	d.ensureTable(row.table)
	d.rows[row.table] = append(d.rows[row.table], row)
}

func (d *Data) ensureTable(tbl *schema.Table) {
	if _, ok := d.rows[tbl]; ok {
		return
	}
	d.tables = append(d.tables, tbl)
	d.rows[tbl] = nil
}

// Tables returns the tables with rows, in insertion order.
func (d *Data) Tables() []*schema.Table { return d.tables }

// Rows returns the rows of tbl.
func (d *Data) Rows(tbl *schema.Table) []*Row { return d.rows[tbl] }

// NumRows returns the total row count.
func (d *Data) NumRows() int {
	total := 0
	for _, tbl := range d.tables {
		total += len(d.rows[tbl])
	}
	return total
}

// Cells returns every cell, table by table and row by row.
func (d *Data) Cells() []*Cell {
	var out []*Cell
	for _, tbl := range d.tables {
		for _, row := range d.rows[tbl] {
			out = append(out, row.cells...)
		}
	}
	return out
}

// Duplicate returns a deep copy.
func (d *Data) Duplicate() *Data {
	cp := New()
	for _, tbl := range d.tables {
		cp.ensureTable(tbl)
		for _, row := range d.rows[tbl] {
			cp.rows[tbl] = append(cp.rows[tbl], row.Duplicate())
		}
	}
	return cp
}

// AppendData copies every row of other whose table is not excluded.
func (d *Data) AppendData(other *Data, exclude ...*schema.Table) {
	skip := make(map[*schema.Table]bool, len(exclude))
	for _, tbl := range exclude {
		skip[tbl] = true
	}
	for _, tbl := range other.tables {
		if skip[tbl] {
			continue
		}
		for _, row := range other.rows[tbl] {
			d.AddRow(row.Duplicate())
		}
	}
}

// InsertStatements renders one INSERT per row, tables in the order given.
func (d *Data) InsertStatements(order []*schema.Table) []string {
	var out []string
	for _, tbl := range order {
		for _, row := range d.rows[tbl] {
			out = append(out, InsertSQL(row))
		}
	}
	return out
}

func (d *Data) String() string {
	var b strings.Builder
	for _, tbl := range d.tables {
		for _, row := range d.rows[tbl] {
			b.WriteString(row.String())
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// InsertSQL renders an INSERT statement for a row.
func InsertSQL(row *Row) string {
	cols := make([]string, 0, len(row.cells))
	vals := make([]string, 0, len(row.cells))
	for _, c := range row.cells {
		cols = append(cols, c.column.Name)
		vals = append(vals, c.String())
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", row.table.Name, strings.Join(cols, ", "), strings.Join(vals, ", "))
}
