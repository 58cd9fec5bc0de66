package schema

import (
	"fmt"
	"strings"
)

// CreateTableSQL renders a CREATE TABLE statement with every constraint inline.
func CreateTableSQL(tbl *Table) string {
	parts := make([]string, 0, len(tbl.Columns)+len(tbl.Constraints()))
	notNull := make(map[*Column]bool, len(tbl.NotNulls))
	for _, nn := range tbl.NotNulls {
		notNull[nn.Column] = true
	}
	for _, col := range tbl.Columns {
		line := fmt.Sprintf("%s %s", col.Name, col.Type.SQLType())
		if notNull[col] {
			line += " NOT NULL"
		}
		parts = append(parts, line)
	}
	if pk := tbl.PrimaryKey; pk != nil {
		parts = append(parts, constraintPrefix(pk.Name())+fmt.Sprintf("PRIMARY KEY (%s)", columnList(pk.Columns)))
	}
	for _, u := range tbl.Uniques {
		parts = append(parts, constraintPrefix(u.Name())+fmt.Sprintf("UNIQUE (%s)", columnList(u.Columns)))
	}
	for _, fk := range tbl.ForeignKeys {
		parts = append(parts, constraintPrefix(fk.Name())+fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
			columnList(fk.Columns), fk.RefTable.Name, columnList(fk.RefColumns)))
	}
	for _, chk := range tbl.Checks {
		parts = append(parts, constraintPrefix(chk.Name())+fmt.Sprintf("CHECK (%s)", chk.Predicate.String()))
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", tbl.Name, strings.Join(parts, ", "))
}

func constraintPrefix(name string) string {
	if name == "" {
		return ""
	}
	return fmt.Sprintf("CONSTRAINT %s ", name)
}

// DropTableSQL renders a DROP TABLE IF EXISTS statement.
func DropTableSQL(tbl *Table) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", tbl.Name)
}

// CreateStatements returns CREATE TABLE statements in schema order.
func (s *Schema) CreateStatements() []string {
	out := make([]string, 0, len(s.Tables))
	for _, tbl := range s.Tables {
		out = append(out, CreateTableSQL(tbl))
	}
	return out
}

// DropStatements returns DROP TABLE statements in reverse schema order so that
// referencing tables go first.
func (s *Schema) DropStatements() []string {
	out := make([]string, 0, len(s.Tables))
	for i := len(s.Tables) - 1; i >= 0; i-- {
		out = append(out, DropTableSQL(s.Tables[i]))
	}
	return out
}

// SQL renders the whole schema as a semicolon terminated script.
func (s *Schema) SQL() string {
	var b strings.Builder
	for _, stmt := range s.CreateStatements() {
		b.WriteString(stmt)
		b.WriteString(";\n")
	}
	return b.String()
}
