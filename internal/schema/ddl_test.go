package schema

import (
	"os"
	"path/filepath"
	"testing"

	"schemaanalyst/internal/logic"

	"github.com/pkg/errors"
)

const shopDDL = `
CREATE TABLE customers (
	id INT PRIMARY KEY,
	email VARCHAR(20) NOT NULL UNIQUE,
	active BOOLEAN
);
CREATE TABLE orders (
	id INT,
	customer_id INT REFERENCES customers(id),
	qty INT CHECK (qty > 0),
	price DECIMAL(8,2),
	status VARCHAR(10),
	placed DATE,
	PRIMARY KEY (id),
	CONSTRAINT chk_price CHECK (price BETWEEN 0 AND 1000 AND status IN ('new', 'paid')),
	CONSTRAINT chk_neg CHECK (NOT (qty < -5))
);
`

func TestParseDDL(t *testing.T) {
	s, err := Parse("shop", shopDDL)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(s.Tables) != 2 {
		t.Fatalf("expected 2 tables, got %d", len(s.Tables))
	}
	customers, orders := s.Tables[0], s.Tables[1]
	if customers.PrimaryKey == nil || customers.PrimaryKey.Columns[0].Name != "id" {
		t.Fatalf("customers primary key not parsed")
	}
	if len(customers.NotNulls) != 1 || len(customers.Uniques) != 1 {
		t.Fatalf("customers email constraints not parsed: %d not null, %d unique",
			len(customers.NotNulls), len(customers.Uniques))
	}
	active, _ := customers.ColumnByName("active")
	if active.Type.Kind != TypeBool {
		t.Fatalf("BOOLEAN should map to bool, got %v", active.Type.Kind)
	}
	if len(orders.ForeignKeys) != 1 || orders.ForeignKeys[0].RefTable != customers {
		t.Fatalf("orders foreign key not parsed")
	}
	price, _ := orders.ColumnByName("price")
	if price.Type.Kind != TypeDecimal || price.Type.Precision != 8 || price.Type.Scale != 2 {
		t.Fatalf("unexpected decimal type %+v", price.Type)
	}
	if len(orders.Checks) != 3 {
		t.Fatalf("expected 3 checks, got %d", len(orders.Checks))
	}
	rel, ok := orders.Checks[0].Predicate.(*Relational)
	if !ok || rel.Op != logic.Greater {
		t.Fatalf("qty check should be relational >, got %s", orders.Checks[0].Predicate)
	}
	and, ok := orders.Checks[1].Predicate.(*And)
	if !ok || len(and.Children) != 2 {
		t.Fatalf("price check should be a conjunction, got %s", orders.Checks[1].Predicate)
	}
	if _, ok := and.Children[0].(*Between); !ok {
		t.Fatalf("expected BETWEEN, got %T", and.Children[0])
	}
	in, ok := and.Children[1].(*In)
	if !ok || len(in.List) != 2 || !in.List[0].(*Literal).Quoted {
		t.Fatalf("expected IN of strings, got %s", and.Children[1])
	}
	neg, ok := orders.Checks[2].Predicate.(*Relational)
	if !ok || neg.Op != logic.GreaterOrEquals || neg.Right.(*Literal).Text != "-5" {
		t.Fatalf("NOT should be pushed into the comparison, got %s", orders.Checks[2].Predicate)
	}
	if orders.Checks[1].Name() != "chk_price" {
		t.Fatalf("constraint name lost: %q", orders.Checks[1].Name())
	}
}

func TestParseRoundTrip(t *testing.T) {
	s, err := Parse("shop", shopDDL)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	again, err := Parse("shop", s.SQL())
	if err != nil {
		t.Fatalf("reparse rendered schema: %v\n%s", err, s.SQL())
	}
	if len(again.Constraints()) != len(s.Constraints()) {
		t.Fatalf("constraint count changed: %d vs %d", len(again.Constraints()), len(s.Constraints()))
	}
}

func TestParseRejectsUnsupported(t *testing.T) {
	if _, err := Parse("x", "SELECT 1"); errors.Cause(err) != ErrUnsupportedDDL {
		t.Fatalf("expected unsupported ddl, got %v", err)
	}
	if _, err := Parse("x", "CREATE TABLE a (id INT REFERENCES b(id))"); errors.Cause(err) != ErrSchemaConstruction {
		t.Fatalf("expected construction error for undefined reference, got %v", err)
	}
	if _, err := Parse("x", "CREATE TABLE a (id INT CHECK (id LIKE 'x%'))"); errors.Cause(err) != ErrUnsupportedDDL {
		t.Fatalf("expected unsupported check, got %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "people.sql")
	if err := os.WriteFile(path, []byte("CREATE TABLE person (id INT PRIMARY KEY, age INT CHECK (age > 0));"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Name != "people" || len(s.Constraints()) != 2 {
		t.Fatalf("unexpected schema %s with %d constraints", s.Name, len(s.Constraints()))
	}
}
