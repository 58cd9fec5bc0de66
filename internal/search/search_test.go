package search

import (
	"context"
	"math/rand"
	"testing"

	"schemaanalyst/internal/data"
	"schemaanalyst/internal/logic"
	"schemaanalyst/internal/objective"
	"schemaanalyst/internal/objective/constraint"
	"schemaanalyst/internal/schema"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

func singleCell(t *testing.T, typ schema.DataType) (*data.Data, *data.Cell) {
	t.Helper()
	s := schema.New("s")
	tbl, _ := s.CreateTable("t")
	if _, err := tbl.AddColumn("x", typ); err != nil {
		t.Fatalf("add column: %v", err)
	}
	d := data.New()
	row := d.AddRows(tbl, 1)[0]
	return d, row.Cells()[0]
}

// distanceTo scores |x - target| on the first cell, treating null as worst.
func distanceTo(target int64) Function {
	return objective.FunctionFunc[*data.Data](func(d *data.Data) (objective.Value, error) {
		cell := d.Cells()[0]
		if cell.IsNull() {
			return objective.Worst("x"), nil
		}
		x := cell.Value().(*data.Numeric).Get()
		return objective.FromDistance("x", x.Sub(decimal.NewFromInt(target))), nil
	})
}

func newAVS(t *testing.T, max int) Search {
	t.Helper()
	s, err := New("avs", Options{MaxEvaluations: max, Rand: rand.New(rand.NewSource(7)), Profile: data.SmallProfile()})
	if err != nil {
		t.Fatalf("new search: %v", err)
	}
	return s
}

func TestNumericConvergence(t *testing.T) {
	d, cell := singleCell(t, schema.Int())
	s := newAVS(t, 10000)
	s.SetObjectiveFunction(distanceTo(42))
	res, err := s.Search(context.Background(), d)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !res.Success || !res.Value.IsOptimal() {
		t.Fatalf("search did not converge: %s", objective.Render(res.Value))
	}
	if got := res.Best.Cells()[0].Value().(*data.Numeric).IntPart(); got != 42 {
		t.Fatalf("best candidate = %d, want 42", got)
	}
	if got := cell.Value().(*data.Numeric).IntPart(); got != 42 {
		t.Fatalf("candidate should be optimised in place, got %d", got)
	}
}

func TestLargeNumericConvergence(t *testing.T) {
	cases := []struct {
		name   string
		typ    schema.DataType
		target int64
	}{
		{"int", schema.Int(), 1000000000},
		{"bigint", schema.BigInt(), 100000000000000000},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d, _ := singleCell(t, c.typ)
			s := newAVS(t, 20000)
			s.SetObjectiveFunction(distanceTo(c.target))
			res, err := s.Search(context.Background(), d)
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			if !res.Success {
				t.Fatalf("no convergence to %d after %d evaluations: %s", c.target, res.Evaluations, objective.Render(res.Value))
			}
			if got := res.Best.Cells()[0].Value().(*data.Numeric).IntPart(); got != c.target {
				t.Fatalf("best = %d, want %d", got, c.target)
			}
		})
	}
}

func TestDecimalConvergence(t *testing.T) {
	d, _ := singleCell(t, schema.Decimal(6, 2))
	s := newAVS(t, 10000)
	target := decimal.RequireFromString("12.34")
	s.SetObjectiveFunction(objective.FunctionFunc[*data.Data](func(d *data.Data) (objective.Value, error) {
		cell := d.Cells()[0]
		if cell.IsNull() {
			return objective.Worst("x"), nil
		}
		return objective.FromDistance("x", cell.Value().(*data.Numeric).Get().Sub(target)), nil
	}))
	res, err := s.Search(context.Background(), d)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !res.Success {
		t.Fatalf("decimal search did not converge: %s", objective.Render(res.Value))
	}
}

func TestStringConvergence(t *testing.T) {
	d, _ := singleCell(t, schema.Varchar(3))
	s := newAVS(t, 20000)
	target := data.NewLiteralString("cat")
	maxSeen := 0
	s.SetObjectiveFunction(objective.FunctionFunc[*data.Data](func(d *data.Data) (objective.Value, error) {
		cell := d.Cells()[0]
		if cell.IsNull() {
			return objective.Worst("x"), nil
		}
		str := cell.Value().(*data.String)
		if str.Len() > maxSeen {
			maxSeen = str.Len()
		}
		// Character gaps plus a large charge per missing character.
		gap := decimal.Zero
		want := target.Elements()
		got := str.Elements()
		for i := 0; i < len(want) || i < len(got); i++ {
			if i >= len(want) || i >= len(got) {
				gap = gap.Add(decimal.NewFromInt(256))
				continue
			}
			gap = gap.Add(got[i].Get().Sub(want[i].Get()).Abs())
		}
		return objective.FromDistance("x = 'cat'", gap), nil
	}))
	res, err := s.Search(context.Background(), d)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !res.Success {
		t.Fatalf("string search did not converge: %s", objective.Render(res.Value))
	}
	if got := res.Best.Cells()[0].Value().(*data.String).Get(); got != "cat" {
		t.Fatalf("best = %q, want cat", got)
	}
	if maxSeen > 3 {
		t.Fatalf("string exceeded max length: %d", maxSeen)
	}
}

// checkedColumn returns a one-row candidate for column x of typ and the
// compiled objective of CHECK (x op literal). NULL does not satisfy it.
func checkedColumn(t *testing.T, typ schema.DataType, op logic.RelationalOperator, lit *schema.Literal) (*data.Data, Function) {
	t.Helper()
	s := schema.New("s")
	tbl, _ := s.CreateTable("t")
	x, err := tbl.AddColumn("x", typ)
	if err != nil {
		t.Fatalf("add column: %v", err)
	}
	if _, err := tbl.AddCheck("", &schema.Relational{Left: schema.Col(x), Op: op, Right: lit}); err != nil {
		t.Fatalf("add check: %v", err)
	}
	fn, err := constraint.NewSchemaFunction(s, nil, data.New(), false)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	d := data.New()
	d.AddRows(tbl, 1)
	return d, fn
}

func TestTypedConvergence(t *testing.T) {
	cases := []struct {
		name string
		typ  schema.DataType
		op   logic.RelationalOperator
		lit  *schema.Literal
		want string
	}{
		{"boolean", schema.Bool(), logic.Equals, schema.Num("TRUE"), ""},
		{"date equals", schema.Date(), logic.Equals, schema.Str("2021-07-15"), "'2021-07-15'"},
		{"date after", schema.Date(), logic.Greater, schema.Str("2030-01-01"), ""},
		{"leap day", schema.Date(), logic.Equals, schema.Str("2024-02-29"), "'2024-02-29'"},
		{"time equals", schema.Time(), logic.Equals, schema.Str("13:45:30"), "'13:45:30'"},
		{"time after", schema.Time(), logic.Greater, schema.Str("12:00:00"), ""},
		{"datetime equals", schema.Datetime(), logic.Equals, schema.Str("2021-02-28 23:59:59"), "'2021-02-28 23:59:59'"},
		{"datetime before", schema.Datetime(), logic.Less, schema.Str("1999-06-01 00:00:00"), ""},
		{"timestamp equals", schema.Timestamp(), logic.Equals, schema.Str("2001-09-09 01:46:40"), "'2001-09-09 01:46:40'"},
		{"timestamp after", schema.Timestamp(), logic.GreaterOrEquals, schema.Str("2020-01-01 00:00:00"), ""},
		{"double equals", schema.DataType{Kind: schema.TypeDouble}, logic.Equals, schema.Num("9.99"), "9.9900"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d, fn := checkedColumn(t, c.typ, c.op, c.lit)
			s := newAVS(t, 20000)
			s.SetObjectiveFunction(objective.FunctionFunc[*data.Data](func(d *data.Data) (objective.Value, error) {
				cell := d.Cells()[0]
				if v, ok := cell.Value().(data.Constrained); ok && !cell.IsNull() && !v.Valid() {
					t.Errorf("evaluated an invalid calendar value %s", v.SQL())
				}
				return fn.Evaluate(d)
			}))
			res, err := s.Search(context.Background(), d)
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			if !res.Success {
				t.Fatalf("no convergence after %d evaluations: %s", res.Evaluations, objective.Render(res.Value))
			}
			cell := res.Best.Cells()[0]
			if cell.IsNull() {
				t.Fatalf("null cannot satisfy the check")
			}
			if c.want != "" && cell.Value().SQL() != c.want {
				t.Fatalf("best = %s, want %s", cell.Value().SQL(), c.want)
			}
			if b, ok := cell.Value().(*data.Boolean); ok && !b.V {
				t.Fatalf("boolean should have flipped to true")
			}
		})
	}
}

func TestDateMovesStayOnTheCalendar(t *testing.T) {
	// The nearest element-wise value, 2021-02-30, does not exist.
	d, fn := checkedColumn(t, schema.Date(), logic.Equals, schema.Str("2021-02-28"))
	born := d.Cells()[0].Value().(*data.Date)
	born.Year.SetInt(2021)
	born.Month.SetInt(3)
	born.Day.SetInt(31)
	s := newAVS(t, 5000)
	s.SetObjectiveFunction(objective.FunctionFunc[*data.Data](func(d *data.Data) (objective.Value, error) {
		if v := d.Cells()[0].Value().(*data.Date); !v.Valid() {
			t.Errorf("evaluated %s", v.SQL())
		}
		return fn.Evaluate(d)
	}))
	res, err := s.Search(context.Background(), d)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !res.Success || res.Best.Cells()[0].Value().SQL() != "'2021-02-28'" {
		t.Fatalf("date search ended at %s: %s", res.Best.Cells()[0].Value().SQL(), objective.Render(res.Value))
	}
}

func TestBudgetRespected(t *testing.T) {
	for _, name := range Names() {
		d, _ := singleCell(t, schema.Int())
		s, err := New(name, Options{MaxEvaluations: 50, Rand: rand.New(rand.NewSource(1)), Profile: data.SmallProfile()})
		if err != nil {
			t.Fatalf("new %s: %v", name, err)
		}
		calls := 0
		// Unreachable target so the budget is what stops the search.
		s.SetObjectiveFunction(objective.FunctionFunc[*data.Data](func(d *data.Data) (objective.Value, error) {
			calls++
			return objective.NewScore("never", decimal.NewFromInt(1)), nil
		}))
		res, err := s.Search(context.Background(), d)
		if err != nil {
			t.Fatalf("%s search: %v", name, err)
		}
		if res.Success {
			t.Fatalf("%s should not succeed", name)
		}
		if res.Evaluations != calls {
			t.Fatalf("%s reported %d evaluations but made %d calls", name, res.Evaluations, calls)
		}
		if calls > 50 {
			t.Fatalf("%s exceeded the budget: %d", name, calls)
		}
	}
}

func TestRestartsCounted(t *testing.T) {
	d, _ := singleCell(t, schema.Bool())
	s := newAVS(t, 200)
	s.SetObjectiveFunction(objective.FunctionFunc[*data.Data](func(*data.Data) (objective.Value, error) {
		return objective.Worst("flat"), nil
	}))
	res, err := s.Search(context.Background(), d)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Restarts == 0 {
		t.Fatalf("a flat objective should force restarts")
	}
}

func TestEvaluationErrorAborts(t *testing.T) {
	d, _ := singleCell(t, schema.Int())
	s := newAVS(t, 1000)
	boom := errors.New("boom")
	s.SetObjectiveFunction(objective.FunctionFunc[*data.Data](func(*data.Data) (objective.Value, error) {
		return nil, boom
	}))
	res, err := s.Search(context.Background(), d)
	if errors.Cause(err) != boom {
		t.Fatalf("expected evaluation error, got %v", err)
	}
	if res.Evaluations != 1 {
		t.Fatalf("search should stop at the first failure, made %d evaluations", res.Evaluations)
	}
}

func TestContextCancellation(t *testing.T) {
	d, _ := singleCell(t, schema.Int())
	s := newAVS(t, 1000000)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	s.SetObjectiveFunction(objective.FunctionFunc[*data.Data](func(*data.Data) (objective.Value, error) {
		calls++
		if calls == 10 {
			cancel()
		}
		return objective.Worst("flat"), nil
	}))
	_, err := s.Search(ctx, d)
	if errors.Cause(err) != context.Canceled {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if calls != 10 {
		t.Fatalf("search kept evaluating after cancellation: %d", calls)
	}
}

func TestUnknownSearch(t *testing.T) {
	_, err := New("hill-climb", Options{MaxEvaluations: 1, Rand: rand.New(rand.NewSource(1))})
	if errors.Cause(err) != ErrUnknownSearch {
		t.Fatalf("expected unknown search, got %v", err)
	}
	s := NewRandomSearch(nil)
	if _, err := s.Search(context.Background(), data.New()); err != ErrNoObjective {
		t.Fatalf("expected missing objective, got %v", err)
	}
}

type countingInitializer struct{ calls int }

func (c *countingInitializer) Initialize(*data.Data) { c.calls++ }

func TestBanditInitializerRewardsArms(t *testing.T) {
	a, b := &countingInitializer{}, &countingInitializer{}
	bi := NewBanditInitializer(rand.New(rand.NewSource(1)), a, b)
	bi.Reward(true) // nothing picked yet
	for i := 0; i < 20; i++ {
		bi.Initialize(data.New())
		bi.Reward(bi.last == 1)
	}
	snap := bi.Snapshot()
	if snap.Total != 20 || a.calls+b.calls != 20 {
		t.Fatalf("unexpected bandit totals: %+v, calls %d/%d", snap, a.calls, b.calls)
	}
	if b.calls <= a.calls {
		t.Fatalf("rewarded arm should be preferred, got %d vs %d", b.calls, a.calls)
	}
}
