package data

import (
	"testing"

	"schemaanalyst/internal/logic"

	"github.com/pkg/errors"
)

var allOps = []logic.RelationalOperator{
	logic.Equals, logic.NotEquals, logic.Greater, logic.GreaterOrEquals, logic.Less, logic.LessOrEquals,
}

func mustCompare(t *testing.T, l Value, op logic.RelationalOperator, r Value) bool {
	t.Helper()
	got, err := Compare(l, op, r, false)
	if err != nil {
		t.Fatalf("compare %v %s %v: %v", l, op, r, err)
	}
	return got
}

func TestCompareNullUsesAllowNull(t *testing.T) {
	for _, op := range allOps {
		for _, allow := range []bool{true, false} {
			got, err := Compare(nil, op, Int(1), allow)
			if err != nil || got != allow {
				t.Fatalf("null %s 1 with allowNull=%v = %v, %v", op, allow, got, err)
			}
			got, err = Compare(NewString("a", 5), op, nil, allow)
			if err != nil || got != allow {
				t.Fatalf("'a' %s null with allowNull=%v = %v, %v", op, allow, got, err)
			}
		}
	}
}

func TestComparePrefixRule(t *testing.T) {
	a := NewString("a", -1)
	ab := NewString("ab", -1)
	if mustCompare(t, a, logic.Greater, ab) {
		t.Fatalf("'a' > 'ab' should be false")
	}
	if !mustCompare(t, ab, logic.Greater, a) {
		t.Fatalf("'ab' > 'a' should be true")
	}
	if !mustCompare(t, a, logic.Less, ab) || !mustCompare(t, a, logic.LessOrEquals, ab) {
		t.Fatalf("'a' should order before 'ab'")
	}
	if mustCompare(t, a, logic.Equals, ab) || !mustCompare(t, a, logic.NotEquals, ab) {
		t.Fatalf("prefix should not be equal")
	}
	same := NewString("ab", -1)
	want := map[logic.RelationalOperator]bool{
		logic.Equals: true, logic.GreaterOrEquals: true, logic.LessOrEquals: true,
		logic.NotEquals: false, logic.Greater: false, logic.Less: false,
	}
	for op, w := range want {
		if got := mustCompare(t, ab, op, same); got != w {
			t.Fatalf("'ab' %s 'ab' = %v, want %v", op, got, w)
		}
	}
	if !mustCompare(t, NewString("b", -1), logic.Greater, ab) {
		t.Fatalf("first differing element should decide")
	}
}

func TestCompareNumericAndDates(t *testing.T) {
	if !mustCompare(t, Int(3), logic.Greater, Int(2)) || mustCompare(t, Int(3), logic.LessOrEquals, Int(2)) {
		t.Fatalf("numeric ordering broken")
	}
	if !mustCompare(t, NewDate(2020, 5, 1), logic.Greater, NewDate(2020, 4, 30)) {
		t.Fatalf("date ordering should use month before day")
	}
	if !mustCompare(t, NewTimestamp(10), logic.Less, NewTimestamp(11)) {
		t.Fatalf("timestamp ordering broken")
	}
}

func TestCompareErrors(t *testing.T) {
	_, err := Compare(NewBoolean(true), logic.Greater, NewBoolean(false), false)
	if errors.Cause(err) != ErrUnsupportedOperator {
		t.Fatalf("expected unsupported operator, got %v", err)
	}
	if !mustCompare(t, NewBoolean(true), logic.NotEquals, NewBoolean(false)) {
		t.Fatalf("boolean inequality broken")
	}
	_, err = Compare(Int(1), logic.Equals, NewString("1", -1), false)
	if errors.Cause(err) != ErrTypeMismatch {
		t.Fatalf("expected type mismatch, got %v", err)
	}
}
