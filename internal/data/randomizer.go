package data

import (
	"math/rand"

	"schemaanalyst/internal/util"

	"github.com/shopspring/decimal"
)

// Profile bounds the values a Randomizer produces.
type Profile struct {
	NullPercent     int
	NumericMin      int
	NumericMax      int
	StringMaxLength int
	YearMin         int
	YearMax         int
}

// SmallProfile keeps random values close to zero and strings short.
func SmallProfile() Profile {
	return Profile{
		NullPercent:     10,
		NumericMin:      -100,
		NumericMax:      100,
		StringMaxLength: 8,
		YearMin:         1990,
		YearMax:         2030,
	}
}

// WideProfile spreads random values further out.
func WideProfile() Profile {
	return Profile{
		NullPercent:     5,
		NumericMin:      -100000,
		NumericMax:      100000,
		StringMaxLength: 32,
		YearMin:         1000,
		YearMax:         9999,
	}
}

// Randomizer assigns random values to cells.
type Randomizer struct {
	Rand    *rand.Rand
	Profile Profile
}

// NewRandomizer returns a randomizer over r.
func NewRandomizer(r *rand.Rand, profile Profile) *Randomizer {
	return &Randomizer{Rand: r, Profile: profile}
}

// RandomizeCell sets a random value and null flag on c.
func (rz *Randomizer) RandomizeCell(c *Cell) {
	c.SetNull(util.Chance(rz.Rand, rz.Profile.NullPercent))
	rz.RandomizeValue(c.Value())
}

// RandomizeData randomizes every cell of d.
func (rz *Randomizer) RandomizeData(d *Data) {
	for _, c := range d.Cells() {
		rz.RandomizeCell(c)
	}
}

// RandomizeValue mutates v in place.
func (rz *Randomizer) RandomizeValue(v Value) {
	switch val := v.(type) {
	case *Boolean:
		val.V = rz.Rand.Intn(2) == 1
	case *Numeric:
		rz.randomizeNumeric(val, rz.Profile.NumericMin, rz.Profile.NumericMax)
	case *String:
		limit := rz.Profile.StringMaxLength
		if max := val.MaxLength(); max >= 0 && max < limit {
			limit = max
		}
		n := util.RandIntRange(rz.Rand, 0, limit)
		buf := make([]rune, n)
		for i := range buf {
			buf[i] = rune(util.RandIntRange(rz.Rand, MinChar, MaxChar))
		}
		val.Set(string(buf))
	case *Date:
		rz.randomizeDate(val)
	case *Time:
		rz.randomizeTime(val)
	case *DateTime:
		rz.randomizeDate(val.Date)
		rz.randomizeTime(val.Time)
	case *Timestamp:
		rz.randomizeTimestamp(val)
	}
}

// randomizeNumeric picks a value in [lo, hi] intersected with the bounds,
// with a random fractional part when the scale allows one.
func (rz *Randomizer) randomizeNumeric(n *Numeric, lo, hi int) {
	if min, ok := n.Min(); ok && min.GreaterThan(decimal.NewFromInt(int64(lo))) {
		lo = int(min.IntPart())
	}
	if max, ok := n.Max(); ok && max.LessThan(decimal.NewFromInt(int64(hi))) {
		hi = int(max.IntPart())
	}
	v := decimal.NewFromInt(int64(util.RandIntRange(rz.Rand, lo, hi)))
	if n.Scale() > 0 && util.Chance(rz.Rand, 50) {
		v = v.Add(decimal.New(int64(rz.Rand.Intn(10)), -1))
	}
	if !n.Set(v) {
		n.Set(decimal.NewFromInt(int64(lo)))
	}
}

// randomizeTimestamp draws seconds for the profile's years, limited to the
// range the timestamp can hold.
func (rz *Randomizer) randomizeTimestamp(ts *Timestamp) {
	lo := int64(rz.Profile.YearMin-1970) * 365 * 86400
	hi := int64(rz.Profile.YearMax-1970) * 365 * 86400
	if min, ok := ts.Seconds.Min(); ok && min.IntPart() > lo {
		lo = min.IntPart()
	}
	if max, ok := ts.Seconds.Max(); ok && max.IntPart() < hi {
		hi = max.IntPart()
	}
	if hi <= lo {
		ts.Seconds.SetInt(lo)
		return
	}
	ts.Seconds.SetInt(lo + rz.Rand.Int63n(hi-lo+1))
}

func (rz *Randomizer) randomizeDate(d *Date) {
	year := util.RandIntRange(rz.Rand, rz.Profile.YearMin, rz.Profile.YearMax)
	month := util.RandIntRange(rz.Rand, 1, 12)
	d.Year.SetInt(int64(year))
	d.Month.SetInt(int64(month))
	d.Day.SetInt(int64(util.RandIntRange(rz.Rand, 1, util.DaysInMonth(year, month))))
}

func (rz *Randomizer) randomizeTime(t *Time) {
	// Mostly whole hours.
	if util.PickWeighted(rz.Rand, []int{3, 1}) == 0 {
		t.Hour.SetInt(int64(rz.Rand.Intn(24)))
		t.Minute.SetInt(0)
		t.Second.SetInt(0)
		return
	}
	t.Hour.SetInt(int64(rz.Rand.Intn(24)))
	t.Minute.SetInt(int64(rz.Rand.Intn(60)))
	t.Second.SetInt(int64(rz.Rand.Intn(60)))
}
