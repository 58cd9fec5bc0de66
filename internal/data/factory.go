package data

import (
	"strconv"
	"strings"
	"time"

	"schemaanalyst/internal/schema"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ErrBadLiteral reports a literal that cannot be read as the requested type.
var ErrBadLiteral = errors.New("bad literal")

const (
	timestampLayout = "2006-01-02 15:04:05"
	dateLayout      = "2006-01-02"
	timeLayout      = "15:04:05"
)

func timestampText(seconds int64) string {
	return time.Unix(seconds, 0).UTC().Format(timestampLayout)
}

// ApproximateScale is the number of decimal places searched for FLOAT and
// DOUBLE columns declared without one.
const ApproximateScale = 4

type intRange struct{ min, max int64 }

var integerRanges = map[schema.ColumnType]intRange{
	schema.TypeTinyInt:  {-128, 127},
	schema.TypeSmallInt: {-32768, 32767},
	schema.TypeInt:      {-2147483648, 2147483647},
	schema.TypeBigInt:   {-9223372036854775808, 9223372036854775807},
}

// DefaultValue returns the starting value for a column of type typ.
func DefaultValue(typ schema.DataType) Value {
	switch {
	case typ.Kind == schema.TypeBool:
		return NewBoolean(false)
	case typ.IsNumeric():
		return numericFor(typ, decimal.Zero)
	case typ.IsString():
		return NewString("", maxLength(typ))
	}
	switch typ.Kind {
	case schema.TypeDate:
		return NewDate(2000, 1, 1)
	case schema.TypeTime:
		return NewTime(0, 0, 0)
	case schema.TypeDatetime:
		return NewDateTime(2000, 1, 1, 0, 0, 0)
	case schema.TypeTimestamp:
		return NewTimestamp(MinTimestamp)
	default:
		return numericFor(schema.Int(), decimal.Zero)
	}
}

func numericFor(typ schema.DataType, v decimal.Decimal) *Numeric {
	if r, ok := integerRanges[typ.Kind]; ok {
		return NewBoundedNumeric(v, decimal.NewFromInt(r.min), decimal.NewFromInt(r.max), 0)
	}
	if typ.Kind == schema.TypeDecimal && typ.Precision > 0 {
		scale := int32(typ.Scale)
		// DECIMAL(p,s) holds |v| <= 10^(p-s) - 10^-s.
		limit := decimal.New(1, int32(typ.Precision)-scale).Sub(decimal.New(1, -scale))
		return NewBoundedNumeric(v, limit.Neg(), limit, scale)
	}
	scale := int32(typ.Scale)
	if scale == 0 && (typ.Kind == schema.TypeFloat || typ.Kind == schema.TypeDouble) {
		scale = ApproximateScale
	}
	return NewNumeric(v, scale)
}

func maxLength(typ schema.DataType) int {
	switch {
	case typ.Kind == schema.TypeText:
		return -1
	case typ.Length > 0:
		return typ.Length
	case typ.Kind == schema.TypeChar:
		return 1
	default:
		return 255
	}
}

// FromLiteral converts a schema literal into a value of the given column
// type. NULL literals yield a nil Value.
func FromLiteral(lit *schema.Literal, typ schema.DataType) (Value, error) {
	if lit == nil || lit.Null {
		return nil, nil
	}
	text := strings.TrimSpace(lit.Text)
	switch {
	case typ.Kind == schema.TypeBool:
		switch strings.ToUpper(text) {
		case "TRUE", "1":
			return NewBoolean(true), nil
		case "FALSE", "0":
			return NewBoolean(false), nil
		}
		return nil, errors.Wrapf(ErrBadLiteral, "boolean %q", lit.Text)
	case typ.IsNumeric():
		d, err := decimal.NewFromString(text)
		if err != nil {
			return nil, errors.Wrapf(ErrBadLiteral, "numeric %q", lit.Text)
		}
		scale := int32(0)
		if d.Exponent() < 0 {
			scale = -d.Exponent()
		}
		return NewNumeric(d, scale), nil
	case typ.IsString():
		return NewLiteralString(lit.Text), nil
	}
	switch typ.Kind {
	case schema.TypeDate:
		t, err := time.Parse(dateLayout, text)
		if err != nil {
			return nil, errors.Wrapf(ErrBadLiteral, "date %q", lit.Text)
		}
		return NewDate(t.Year(), int(t.Month()), t.Day()), nil
	case schema.TypeTime:
		t, err := time.Parse(timeLayout, text)
		if err != nil {
			return nil, errors.Wrapf(ErrBadLiteral, "time %q", lit.Text)
		}
		return NewTime(t.Hour(), t.Minute(), t.Second()), nil
	case schema.TypeDatetime:
		t, err := time.Parse(timestampLayout, text)
		if err != nil {
			return nil, errors.Wrapf(ErrBadLiteral, "datetime %q", lit.Text)
		}
		return NewDateTime(t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second()), nil
	case schema.TypeTimestamp:
		if !lit.Quoted {
			secs, err := strconv.ParseInt(text, 10, 64)
			if err != nil {
				return nil, errors.Wrapf(ErrBadLiteral, "timestamp %q", lit.Text)
			}
			return &Timestamp{Seconds: Int(secs)}, nil
		}
		t, err := time.Parse(timestampLayout, text)
		if err != nil {
			return nil, errors.Wrapf(ErrBadLiteral, "timestamp %q", lit.Text)
		}
		return &Timestamp{Seconds: Int(t.Unix())}, nil
	}
	return nil, errors.Wrapf(ErrBadLiteral, "unsupported column type %s", typ.SQLType())
}

// LiteralType guesses the column type of a literal compared against another
// literal.
func LiteralType(lit *schema.Literal) schema.DataType {
	if lit.Quoted {
		return schema.DataType{Kind: schema.TypeText}
	}
	if _, err := decimal.NewFromString(lit.Text); err == nil {
		return schema.Decimal(0, 0)
	}
	return schema.Bool()
}
