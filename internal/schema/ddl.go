package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"schemaanalyst/internal/logic"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/mysql"
	"github.com/pingcap/tidb/pkg/parser/opcode"
	_ "github.com/pingcap/tidb/pkg/types/parser_driver"
	"github.com/pkg/errors"
)

// ErrUnsupportedDDL reports DDL outside the supported vocabulary.
var ErrUnsupportedDDL = errors.New("unsupported ddl")

// LoadFile parses a DDL script from disk. The schema is named after the file.
func LoadFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read schema file")
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Parse(name, string(data))
}

// Parse builds a schema from a script of CREATE TABLE statements. Referenced
// tables must be created before the tables that reference them.
func Parse(name, ddl string) (*Schema, error) {
	p := parser.New()
	stmts, _, err := p.Parse(ddl, "", "")
	if err != nil {
		return nil, errors.Wrap(err, "parse ddl")
	}
	s := New(name)
	for _, stmt := range stmts {
		create, ok := stmt.(*ast.CreateTableStmt)
		if !ok {
			return nil, errors.Wrapf(ErrUnsupportedDDL, "statement %T", stmt)
		}
		if err := s.addCreateTable(create); err != nil {
			return nil, err
		}
	}
	if len(s.Tables) == 0 {
		return nil, errors.Wrap(ErrUnsupportedDDL, "no tables")
	}
	return s, nil
}

func (s *Schema) addCreateTable(stmt *ast.CreateTableStmt) error {
	tbl, err := s.CreateTable(stmt.Table.Name.O)
	if err != nil {
		return err
	}
	for _, def := range stmt.Cols {
		typ, err := columnType(def)
		if err != nil {
			return errors.Wrapf(err, "table %s", tbl.Name)
		}
		if _, err := tbl.AddColumn(def.Name.Name.O, typ); err != nil {
			return err
		}
	}
	// Column options are applied after every column exists so that inline
	// checks may reference later columns.
	for _, def := range stmt.Cols {
		col, _ := tbl.ColumnByName(def.Name.Name.O)
		for _, opt := range def.Options {
			if err := s.applyColumnOption(tbl, col, opt); err != nil {
				return errors.Wrapf(err, "column %s.%s", tbl.Name, col.Name)
			}
		}
	}
	for _, cons := range stmt.Constraints {
		if err := s.applyConstraint(tbl, cons); err != nil {
			return errors.Wrapf(err, "table %s", tbl.Name)
		}
	}
	return nil
}

func (s *Schema) applyColumnOption(tbl *Table, col *Column, opt *ast.ColumnOption) error {
	switch opt.Tp {
	case ast.ColumnOptionPrimaryKey:
		_, err := tbl.SetPrimaryKey("", col)
		return err
	case ast.ColumnOptionNotNull:
		_, err := tbl.AddNotNull("", col)
		return err
	case ast.ColumnOptionUniqKey:
		_, err := tbl.AddUnique("", col)
		return err
	case ast.ColumnOptionCheck:
		pred, err := predicateFromExpr(tbl, opt.Expr)
		if err != nil {
			return err
		}
		_, err = tbl.AddCheck("", pred)
		return err
	case ast.ColumnOptionReference:
		refTable, refCols, err := s.resolveReference(opt.Refer)
		if err != nil {
			return err
		}
		_, err = tbl.AddForeignKey("", []*Column{col}, refTable, refCols)
		return err
	default:
		return nil
	}
}

func (s *Schema) applyConstraint(tbl *Table, cons *ast.Constraint) error {
	switch cons.Tp {
	case ast.ConstraintPrimaryKey:
		cols, err := keyColumns(tbl, cons.Keys)
		if err != nil {
			return err
		}
		_, err = tbl.SetPrimaryKey(cons.Name, cols...)
		return err
	case ast.ConstraintUniq, ast.ConstraintUniqKey, ast.ConstraintUniqIndex:
		cols, err := keyColumns(tbl, cons.Keys)
		if err != nil {
			return err
		}
		_, err = tbl.AddUnique(cons.Name, cols...)
		return err
	case ast.ConstraintForeignKey:
		cols, err := keyColumns(tbl, cons.Keys)
		if err != nil {
			return err
		}
		refTable, refCols, err := s.resolveReference(cons.Refer)
		if err != nil {
			return err
		}
		_, err = tbl.AddForeignKey(cons.Name, cols, refTable, refCols)
		return err
	case ast.ConstraintCheck:
		pred, err := predicateFromExpr(tbl, cons.Expr)
		if err != nil {
			return err
		}
		_, err = tbl.AddCheck(cons.Name, pred)
		return err
	case ast.ConstraintIndex, ast.ConstraintKey:
		return nil
	default:
		return errors.Wrapf(ErrUnsupportedDDL, "constraint type %d", cons.Tp)
	}
}

func (s *Schema) resolveReference(ref *ast.ReferenceDef) (*Table, []*Column, error) {
	if ref == nil || ref.Table == nil {
		return nil, nil, errors.Wrap(ErrUnsupportedDDL, "reference without table")
	}
	refTable, ok := s.TableByName(ref.Table.Name.O)
	if !ok {
		return nil, nil, errors.Wrapf(ErrSchemaConstruction, "referenced table %q is not defined yet", ref.Table.Name.O)
	}
	if len(ref.IndexPartSpecifications) == 0 {
		if refTable.PrimaryKey == nil {
			return nil, nil, errors.Wrapf(ErrSchemaConstruction, "table %q has no primary key to reference", refTable.Name)
		}
		return refTable, refTable.PrimaryKey.Columns, nil
	}
	cols, err := keyColumns(refTable, ref.IndexPartSpecifications)
	return refTable, cols, err
}

func keyColumns(tbl *Table, keys []*ast.IndexPartSpecification) ([]*Column, error) {
	cols := make([]*Column, 0, len(keys))
	for _, key := range keys {
		if key.Column == nil {
			return nil, errors.Wrap(ErrUnsupportedDDL, "expression key part")
		}
		col, ok := tbl.ColumnByName(key.Column.Name.O)
		if !ok {
			return nil, errors.Wrapf(ErrSchemaConstruction, "unknown column %q in table %q", key.Column.Name.O, tbl.Name)
		}
		cols = append(cols, col)
	}
	return cols, nil
}

func columnType(def *ast.ColumnDef) (DataType, error) {
	tp := def.Tp
	flen := tp.GetFlen()
	if flen < 0 {
		flen = 0
	}
	dec := tp.GetDecimal()
	if dec < 0 {
		dec = 0
	}
	switch tp.GetType() {
	case mysql.TypeTiny:
		if flen == 1 {
			return Bool(), nil
		}
		return DataType{Kind: TypeTinyInt}, nil
	case mysql.TypeShort:
		return DataType{Kind: TypeSmallInt}, nil
	case mysql.TypeInt24, mysql.TypeLong:
		return Int(), nil
	case mysql.TypeLonglong:
		return BigInt(), nil
	case mysql.TypeNewDecimal:
		return Decimal(flen, dec), nil
	case mysql.TypeFloat:
		return DataType{Kind: TypeFloat}, nil
	case mysql.TypeDouble:
		return DataType{Kind: TypeDouble}, nil
	case mysql.TypeVarchar, mysql.TypeVarString:
		return Varchar(flen), nil
	case mysql.TypeString:
		return DataType{Kind: TypeChar, Length: flen}, nil
	case mysql.TypeBlob, mysql.TypeTinyBlob, mysql.TypeMediumBlob, mysql.TypeLongBlob:
		return DataType{Kind: TypeText}, nil
	case mysql.TypeDate:
		return Date(), nil
	case mysql.TypeDuration:
		return Time(), nil
	case mysql.TypeDatetime:
		return Datetime(), nil
	case mysql.TypeTimestamp:
		return Timestamp(), nil
	default:
		return DataType{}, errors.Wrapf(ErrUnsupportedDDL, "column %s type %s", def.Name.Name.O, tp.String())
	}
}

var relationalOps = map[opcode.Op]logic.RelationalOperator{
	opcode.EQ: logic.Equals,
	opcode.NE: logic.NotEquals,
	opcode.GT: logic.Greater,
	opcode.GE: logic.GreaterOrEquals,
	opcode.LT: logic.Less,
	opcode.LE: logic.LessOrEquals,
}

func predicateFromExpr(tbl *Table, expr ast.ExprNode) (Predicate, error) {
	switch e := expr.(type) {
	case *ast.ParenthesesExpr:
		return predicateFromExpr(tbl, e.Expr)
	case *ast.BinaryOperationExpr:
		switch e.Op {
		case opcode.LogicAnd, opcode.LogicOr:
			left, err := predicateFromExpr(tbl, e.L)
			if err != nil {
				return nil, err
			}
			right, err := predicateFromExpr(tbl, e.R)
			if err != nil {
				return nil, err
			}
			if e.Op == opcode.LogicAnd {
				return &And{Children: flatten(left, right, true)}, nil
			}
			return &Or{Children: flatten(left, right, false)}, nil
		}
		op, ok := relationalOps[e.Op]
		if !ok {
			return nil, errors.Wrapf(ErrUnsupportedDDL, "operator %s", e.Op)
		}
		left, err := operandFromExpr(tbl, e.L)
		if err != nil {
			return nil, err
		}
		right, err := operandFromExpr(tbl, e.R)
		if err != nil {
			return nil, err
		}
		return &Relational{Left: left, Op: op, Right: right}, nil
	case *ast.BetweenExpr:
		subject, err := operandFromExpr(tbl, e.Expr)
		if err != nil {
			return nil, err
		}
		lower, err := operandFromExpr(tbl, e.Left)
		if err != nil {
			return nil, err
		}
		upper, err := operandFromExpr(tbl, e.Right)
		if err != nil {
			return nil, err
		}
		return &Between{Subject: subject, Lower: lower, Upper: upper, Not: e.Not}, nil
	case *ast.PatternInExpr:
		if e.Sel != nil {
			return nil, errors.Wrap(ErrUnsupportedDDL, "IN subquery")
		}
		subject, err := operandFromExpr(tbl, e.Expr)
		if err != nil {
			return nil, err
		}
		list := make([]Operand, 0, len(e.List))
		for _, item := range e.List {
			op, err := operandFromExpr(tbl, item)
			if err != nil {
				return nil, err
			}
			list = append(list, op)
		}
		return &In{Subject: subject, List: list, Not: e.Not}, nil
	case *ast.UnaryOperationExpr:
		if e.Op != opcode.Not {
			return nil, errors.Wrapf(ErrUnsupportedDDL, "unary operator %s", e.Op)
		}
		inner, err := predicateFromExpr(tbl, e.V)
		if err != nil {
			return nil, err
		}
		return Negate(inner), nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedDDL, "check expression %T", expr)
	}
}

// Negate returns the logical complement of a predicate, pushing the negation
// down to the leaves.
func Negate(pred Predicate) Predicate {
	switch p := pred.(type) {
	case *Relational:
		return &Relational{Left: p.Left, Op: p.Op.Inverse(), Right: p.Right}
	case *Between:
		return &Between{Subject: p.Subject, Lower: p.Lower, Upper: p.Upper, Not: !p.Not}
	case *In:
		return &In{Subject: p.Subject, List: p.List, Not: !p.Not}
	case *And:
		children := make([]Predicate, 0, len(p.Children))
		for _, child := range p.Children {
			children = append(children, Negate(child))
		}
		return &Or{Children: children}
	case *Or:
		children := make([]Predicate, 0, len(p.Children))
		for _, child := range p.Children {
			children = append(children, Negate(child))
		}
		return &And{Children: children}
	default:
		return pred
	}
}

// flatten merges nested conjunctions (or disjunctions) into one node.
func flatten(left, right Predicate, and bool) []Predicate {
	var out []Predicate
	for _, p := range []Predicate{left, right} {
		switch node := p.(type) {
		case *And:
			if and {
				out = append(out, node.Children...)
				continue
			}
		case *Or:
			if !and {
				out = append(out, node.Children...)
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

func operandFromExpr(tbl *Table, expr ast.ExprNode) (Operand, error) {
	switch e := expr.(type) {
	case *ast.ParenthesesExpr:
		return operandFromExpr(tbl, e.Expr)
	case *ast.ColumnNameExpr:
		col, ok := tbl.ColumnByName(e.Name.Name.O)
		if !ok {
			return nil, errors.Wrapf(ErrSchemaConstruction, "unknown column %q in check on %q", e.Name.Name.O, tbl.Name)
		}
		return Col(col), nil
	case *ast.UnaryOperationExpr:
		if e.Op != opcode.Minus {
			return nil, errors.Wrapf(ErrUnsupportedDDL, "unary operator %s", e.Op)
		}
		inner, err := operandFromExpr(tbl, e.V)
		if err != nil {
			return nil, err
		}
		lit, ok := inner.(*Literal)
		if !ok || lit.Quoted || lit.Null {
			return nil, errors.Wrap(ErrUnsupportedDDL, "negated non-numeric operand")
		}
		if strings.HasPrefix(lit.Text, "-") {
			return Num(strings.TrimPrefix(lit.Text, "-")), nil
		}
		return Num("-" + lit.Text), nil
	case ast.ValueExpr:
		return literalFromValue(e.GetValue())
	default:
		return nil, errors.Wrapf(ErrUnsupportedDDL, "operand %T", expr)
	}
}

func literalFromValue(v any) (*Literal, error) {
	switch val := v.(type) {
	case nil:
		return Null(), nil
	case int64:
		return Num(strconv.FormatInt(val, 10)), nil
	case uint64:
		return Num(strconv.FormatUint(val, 10)), nil
	case float64:
		return Num(strconv.FormatFloat(val, 'f', -1, 64)), nil
	case float32:
		return Num(strconv.FormatFloat(float64(val), 'f', -1, 32)), nil
	case string:
		return Str(val), nil
	case []byte:
		return Str(string(val)), nil
	case fmt.Stringer:
		return Num(val.String()), nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedDDL, "literal %T", v)
	}
}
