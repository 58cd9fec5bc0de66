// Package data holds typed values and the Data/Row/Cell candidate container
// that searches mutate in place.
package data

import (
	"fmt"
	"strings"

	"schemaanalyst/internal/util"

	"github.com/shopspring/decimal"
)

// ValueKind identifies a Value variant.
type ValueKind int

// Value kinds.
const (
	KindBoolean ValueKind = iota
	KindNumeric
	KindString
	KindDate
	KindTime
	KindDateTime
	KindTimestamp
)

func (k ValueKind) String() string {
	switch k {
	case KindBoolean:
		return "boolean"
	case KindNumeric:
		return "numeric"
	case KindString:
		return "string"
	case KindDate:
		return "date"
	case KindTime:
		return "time"
	case KindDateTime:
		return "datetime"
	case KindTimestamp:
		return "timestamp"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is one of *Boolean, *Numeric, *String, *Date, *Time, *DateTime or
// *Timestamp. A nil Value stands for SQL NULL.
type Value interface {
	Kind() ValueKind
	Duplicate() Value
	// SQL renders the value as a literal.
	SQL() string
	String() string
}

// Compound values are ordered sequences of numeric elements.
type Compound interface {
	Value
	Elements() []*Numeric
}

// Constrained is implemented by compounds whose elements are not
// independent. Valid reports whether the current elements form a value.
type Constrained interface {
	Compound
	Valid() bool
}

// Boolean is a boolean value.
type Boolean struct {
	V bool
}

// NewBoolean returns a boolean value.
func NewBoolean(v bool) *Boolean { return &Boolean{V: v} }

// Kind implements Value.
func (*Boolean) Kind() ValueKind { return KindBoolean }

// Duplicate implements Value.
func (b *Boolean) Duplicate() Value { return &Boolean{V: b.V} }

// SQL implements Value.
func (b *Boolean) SQL() string {
	if b.V {
		return "TRUE"
	}
	return "FALSE"
}

func (b *Boolean) String() string { return b.SQL() }

// Numeric is a fixed-scale decimal with optional inclusive bounds.
type Numeric struct {
	v     decimal.Decimal
	min   *decimal.Decimal
	max   *decimal.Decimal
	scale int32
}

// NewNumeric returns an unbounded numeric with the given scale.
func NewNumeric(v decimal.Decimal, scale int32) *Numeric {
	return &Numeric{v: v.Round(scale), scale: scale}
}

// NewBoundedNumeric returns a numeric limited to [min, max]. The initial value
// is clamped into range.
func NewBoundedNumeric(v decimal.Decimal, min, max decimal.Decimal, scale int32) *Numeric {
	n := &Numeric{min: &min, max: &max, scale: scale}
	n.v = n.clamp(v.Round(scale))
	return n
}

// Int is a convenience for an unbounded integer.
func Int(v int64) *Numeric { return NewNumeric(decimal.NewFromInt(v), 0) }

// Kind implements Value.
func (*Numeric) Kind() ValueKind { return KindNumeric }

// Duplicate implements Value.
func (n *Numeric) Duplicate() Value { return n.Clone() }

// Clone returns a typed copy.
func (n *Numeric) Clone() *Numeric {
	cp := *n
	return &cp
}

// Get returns the current value.
func (n *Numeric) Get() decimal.Decimal { return n.v }

// Scale returns the number of fractional digits.
func (n *Numeric) Scale() int32 { return n.scale }

// Min returns the lower bound if any.
func (n *Numeric) Min() (decimal.Decimal, bool) {
	if n.min == nil {
		return decimal.Zero, false
	}
	return *n.min, true
}

// Max returns the upper bound if any.
func (n *Numeric) Max() (decimal.Decimal, bool) {
	if n.max == nil {
		return decimal.Zero, false
	}
	return *n.max, true
}

// InRange reports whether v lies within the bounds.
func (n *Numeric) InRange(v decimal.Decimal) bool {
	if n.min != nil && v.LessThan(*n.min) {
		return false
	}
	if n.max != nil && v.GreaterThan(*n.max) {
		return false
	}
	return true
}

// Set stores v rounded to the scale. It leaves the value untouched and
// returns false when v is out of range.
func (n *Numeric) Set(v decimal.Decimal) bool {
	v = v.Round(n.scale)
	if !n.InRange(v) {
		return false
	}
	n.v = v
	return true
}

// SetInt is Set for integers.
func (n *Numeric) SetInt(v int64) bool { return n.Set(decimal.NewFromInt(v)) }

// IntPart returns the integral part of the value.
func (n *Numeric) IntPart() int64 { return n.v.IntPart() }

func (n *Numeric) clamp(v decimal.Decimal) decimal.Decimal {
	if n.min != nil && v.LessThan(*n.min) {
		return *n.min
	}
	if n.max != nil && v.GreaterThan(*n.max) {
		return *n.max
	}
	return v
}

// SQL implements Value.
func (n *Numeric) SQL() string { return n.v.StringFixed(n.scale) }

func (n *Numeric) String() string { return n.SQL() }

// Character code range and default used for generated strings.
const (
	MinChar     = 'A'
	MaxChar     = 'z'
	DefaultChar = 'a'
)

// String is a sequence of character codes with an optional maximum length.
// A negative maximum length means unbounded.
type String struct {
	chars     []*Numeric
	maxLength int
	bounded   bool
}

// NewString returns a string whose characters are searched within
// [MinChar, MaxChar].
func NewString(s string, maxLength int) *String {
	str := &String{maxLength: maxLength, bounded: true}
	str.Set(s)
	return str
}

// NewLiteralString returns a string whose characters are unbounded. Literal
// strings are compared, never searched.
func NewLiteralString(s string) *String {
	str := &String{maxLength: -1}
	str.Set(s)
	return str
}

// Kind implements Value.
func (*String) Kind() ValueKind { return KindString }

// Duplicate implements Value.
func (s *String) Duplicate() Value {
	cp := &String{maxLength: s.maxLength, bounded: s.bounded, chars: make([]*Numeric, len(s.chars))}
	for i, c := range s.chars {
		cp.chars[i] = c.Clone()
	}
	return cp
}

// Elements implements Compound.
func (s *String) Elements() []*Numeric { return s.chars }

// Len returns the number of characters.
func (s *String) Len() int { return len(s.chars) }

// MaxLength returns the maximum length, negative when unbounded.
func (s *String) MaxLength() int { return s.maxLength }

// Get returns the string contents.
func (s *String) Get() string {
	var b strings.Builder
	for _, c := range s.chars {
		b.WriteRune(rune(c.IntPart()))
	}
	return b.String()
}

// Set replaces the contents, truncating to the maximum length.
func (s *String) Set(v string) {
	runes := []rune(v)
	if s.maxLength >= 0 && len(runes) > s.maxLength {
		runes = runes[:s.maxLength]
	}
	s.chars = s.chars[:0]
	for _, r := range runes {
		s.chars = append(s.chars, s.newChar(int64(r)))
	}
}

func (s *String) newChar(code int64) *Numeric {
	if s.bounded {
		return NewBoundedNumeric(decimal.NewFromInt(code), decimal.NewFromInt(MinChar), decimal.NewFromInt(MaxChar), 0)
	}
	return Int(code)
}

// CanAppend reports whether another character fits.
func (s *String) CanAppend() bool {
	return s.maxLength < 0 || len(s.chars) < s.maxLength
}

// Append adds a character. It is a no-op returning false at the maximum length.
func (s *String) Append(code rune) bool {
	if !s.CanAppend() {
		return false
	}
	s.chars = append(s.chars, s.newChar(int64(code)))
	return true
}

// RemoveLast drops the last character and returns it, or nil when empty.
func (s *String) RemoveLast() *Numeric {
	if len(s.chars) == 0 {
		return nil
	}
	last := s.chars[len(s.chars)-1]
	s.chars = s.chars[:len(s.chars)-1]
	return last
}

// Restore appends a previously removed character.
func (s *String) Restore(c *Numeric) {
	s.chars = append(s.chars, c)
}

// SQL implements Value.
func (s *String) SQL() string {
	return "'" + strings.ReplaceAll(s.Get(), "'", "''") + "'"
}

func (s *String) String() string { return s.SQL() }

func field(v, min, max int64) *Numeric {
	return NewBoundedNumeric(decimal.NewFromInt(v), decimal.NewFromInt(min), decimal.NewFromInt(max), 0)
}

// Date is a (year, month, day) compound.
type Date struct {
	Year, Month, Day *Numeric
}

// NewDate returns a date with fields bounded to valid calendar ranges.
func NewDate(year, month, day int) *Date {
	return &Date{Year: field(int64(year), 1000, 9999), Month: field(int64(month), 1, 12), Day: field(int64(day), 1, 31)}
}

// Kind implements Value.
func (*Date) Kind() ValueKind { return KindDate }

// Duplicate implements Value.
func (d *Date) Duplicate() Value {
	return &Date{Year: d.Year.Clone(), Month: d.Month.Clone(), Day: d.Day.Clone()}
}

// Elements implements Compound.
func (d *Date) Elements() []*Numeric { return []*Numeric{d.Year, d.Month, d.Day} }

func (d *Date) text() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year.IntPart(), d.Month.IntPart(), d.Day.IntPart())
}

// SQL implements Value.
func (d *Date) SQL() string { return "'" + d.text() + "'" }

func (d *Date) String() string { return d.SQL() }

// Valid reports whether the day exists in the month of the year.
func (d *Date) Valid() bool {
	return d.Day.IntPart() <= int64(util.DaysInMonth(int(d.Year.IntPart()), int(d.Month.IntPart())))
}

// Time is an (hour, minute, second) compound.
type Time struct {
	Hour, Minute, Second *Numeric
}

// NewTime returns a time of day.
func NewTime(hour, minute, second int) *Time {
	return &Time{Hour: field(int64(hour), 0, 23), Minute: field(int64(minute), 0, 59), Second: field(int64(second), 0, 59)}
}

// Kind implements Value.
func (*Time) Kind() ValueKind { return KindTime }

// Duplicate implements Value.
func (t *Time) Duplicate() Value {
	return &Time{Hour: t.Hour.Clone(), Minute: t.Minute.Clone(), Second: t.Second.Clone()}
}

// Elements implements Compound.
func (t *Time) Elements() []*Numeric { return []*Numeric{t.Hour, t.Minute, t.Second} }

func (t *Time) text() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour.IntPart(), t.Minute.IntPart(), t.Second.IntPart())
}

// SQL implements Value.
func (t *Time) SQL() string { return "'" + t.text() + "'" }

func (t *Time) String() string { return t.SQL() }

// DateTime is a date followed by a time of day.
type DateTime struct {
	Date *Date
	Time *Time
}

// NewDateTime returns a date-time.
func NewDateTime(year, month, day, hour, minute, second int) *DateTime {
	return &DateTime{Date: NewDate(year, month, day), Time: NewTime(hour, minute, second)}
}

// Kind implements Value.
func (*DateTime) Kind() ValueKind { return KindDateTime }

// Duplicate implements Value.
func (dt *DateTime) Duplicate() Value {
	return &DateTime{Date: dt.Date.Duplicate().(*Date), Time: dt.Time.Duplicate().(*Time)}
}

// Elements implements Compound.
func (dt *DateTime) Elements() []*Numeric {
	return append(dt.Date.Elements(), dt.Time.Elements()...)
}

// SQL implements Value.
func (dt *DateTime) SQL() string { return "'" + dt.Date.text() + " " + dt.Time.text() + "'" }

func (dt *DateTime) String() string { return dt.SQL() }

// Valid implements Constrained.
func (dt *DateTime) Valid() bool { return dt.Date.Valid() }

// Timestamp limits, in seconds since the Unix epoch.
const (
	MinTimestamp = 1
	MaxTimestamp = 2147483647
)

// Timestamp is a single numeric scalar of epoch seconds.
type Timestamp struct {
	Seconds *Numeric
}

// NewTimestamp returns a bounded timestamp.
func NewTimestamp(seconds int64) *Timestamp {
	return &Timestamp{Seconds: field(seconds, MinTimestamp, MaxTimestamp)}
}

// Kind implements Value.
func (*Timestamp) Kind() ValueKind { return KindTimestamp }

// Duplicate implements Value.
func (ts *Timestamp) Duplicate() Value { return &Timestamp{Seconds: ts.Seconds.Clone()} }

// SQL implements Value.
func (ts *Timestamp) SQL() string {
	return "'" + timestampText(ts.Seconds.IntPart()) + "'"
}

func (ts *Timestamp) String() string { return ts.SQL() }
