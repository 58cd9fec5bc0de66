package schema

import "fmt"

// ColumnType enumerates column data types.
type ColumnType int

// Column type constants.
const (
	TypeInt ColumnType = iota
	TypeTinyInt
	TypeSmallInt
	TypeBigInt
	TypeDecimal
	TypeFloat
	TypeDouble
	TypeVarchar
	TypeChar
	TypeText
	TypeBool
	TypeDate
	TypeTime
	TypeDatetime
	TypeTimestamp
)

// DataType is a column type plus its length/precision/scale parameters.
// Zero parameters mean "unspecified".
type DataType struct {
	Kind      ColumnType
	Length    int
	Precision int
	Scale     int
}

// Int returns an INT type.
func Int() DataType { return DataType{Kind: TypeInt} }

// BigInt returns a BIGINT type.
func BigInt() DataType { return DataType{Kind: TypeBigInt} }

// Decimal returns a DECIMAL(precision, scale) type.
func Decimal(precision, scale int) DataType {
	return DataType{Kind: TypeDecimal, Precision: precision, Scale: scale}
}

// Varchar returns a VARCHAR(length) type.
func Varchar(length int) DataType { return DataType{Kind: TypeVarchar, Length: length} }

// Bool returns a BOOLEAN type.
func Bool() DataType { return DataType{Kind: TypeBool} }

// Date returns a DATE type.
func Date() DataType { return DataType{Kind: TypeDate} }

// Time returns a TIME type.
func Time() DataType { return DataType{Kind: TypeTime} }

// Datetime returns a DATETIME type.
func Datetime() DataType { return DataType{Kind: TypeDatetime} }

// Timestamp returns a TIMESTAMP type.
func Timestamp() DataType { return DataType{Kind: TypeTimestamp} }

// IsNumeric reports whether values of the type are plain numbers.
func (t DataType) IsNumeric() bool {
	switch t.Kind {
	case TypeInt, TypeTinyInt, TypeSmallInt, TypeBigInt, TypeDecimal, TypeFloat, TypeDouble:
		return true
	default:
		return false
	}
}

// IsString reports whether values of the type are character strings.
func (t DataType) IsString() bool {
	return t.Kind == TypeVarchar || t.Kind == TypeChar || t.Kind == TypeText
}

// SQLType returns the SQL type string for this data type.
func (t DataType) SQLType() string {
	switch t.Kind {
	case TypeInt:
		return "INT"
	case TypeTinyInt:
		return "TINYINT"
	case TypeSmallInt:
		return "SMALLINT"
	case TypeBigInt:
		return "BIGINT"
	case TypeDecimal:
		if t.Precision > 0 {
			return fmt.Sprintf("DECIMAL(%d,%d)", t.Precision, t.Scale)
		}
		return "DECIMAL"
	case TypeFloat:
		return "FLOAT"
	case TypeDouble:
		return "DOUBLE"
	case TypeVarchar:
		if t.Length > 0 {
			return fmt.Sprintf("VARCHAR(%d)", t.Length)
		}
		return "VARCHAR(255)"
	case TypeChar:
		if t.Length > 0 {
			return fmt.Sprintf("CHAR(%d)", t.Length)
		}
		return "CHAR(1)"
	case TypeText:
		return "TEXT"
	case TypeBool:
		return "BOOLEAN"
	case TypeDate:
		return "DATE"
	case TypeTime:
		return "TIME"
	case TypeDatetime:
		return "DATETIME"
	case TypeTimestamp:
		return "TIMESTAMP"
	default:
		return "INT"
	}
}
