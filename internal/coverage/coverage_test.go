package coverage

import (
	"context"
	"math/rand"
	"strings"
	"testing"

	"schemaanalyst/internal/data"
	"schemaanalyst/internal/logic"
	"schemaanalyst/internal/schema"
	"schemaanalyst/internal/search"

	"github.com/shopspring/decimal"
)

func personSchema(t *testing.T) (*schema.Schema, *schema.Table) {
	t.Helper()
	s := schema.New("people")
	tbl, err := s.CreateTable("person")
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	id, _ := tbl.AddColumn("id", schema.Int())
	age, _ := tbl.AddColumn("age", schema.Int())
	if _, err := tbl.SetPrimaryKey("", id); err != nil {
		t.Fatalf("primary key: %v", err)
	}
	check := &schema.Relational{Left: schema.Col(age), Op: logic.Greater, Right: schema.Num("0")}
	if _, err := tbl.AddCheck("", check); err != nil {
		t.Fatalf("check: %v", err)
	}
	return s, tbl
}

func newSearch(t *testing.T) search.Search {
	t.Helper()
	srch, err := search.New("avs", search.Options{
		MaxEvaluations: 20000,
		Rand:           rand.New(rand.NewSource(3)),
		Profile:        data.SmallProfile(),
	})
	if err != nil {
		t.Fatalf("new search: %v", err)
	}
	return srch
}

func intValue(t *testing.T, row *data.Row, col string) (int64, bool) {
	t.Helper()
	c, ok := row.Table().ColumnByName(col)
	if !ok {
		t.Fatalf("no column %s", col)
	}
	cell := row.Cell(c)
	if cell.IsNull() {
		return 0, false
	}
	return cell.Value().(*data.Numeric).IntPart(), true
}

func TestGenerateSingleTable(t *testing.T) {
	s, tbl := personSchema(t)
	cov := NewCoverer(s, newSearch(t), Options{SatisfyRows: 2, NegateRows: 1, ConsiderNull: true})
	goals := 0
	cov.OnGoal = func(*GoalReport) { goals++ }
	report, err := cov.Generate(context.Background())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(report.Goals) != 3 || goals != 3 {
		t.Fatalf("expected satisfy-all plus two violate goals, got %d reports and %d callbacks", len(report.Goals), goals)
	}
	if report.NumGoals() != 4 {
		t.Fatalf("num goals = %d, want 4", report.NumGoals())
	}
	if report.TotalCovered() != 4 || report.Coverage() != 100 {
		t.Fatalf("covered %d of %d goals:\n%s", report.TotalCovered(), report.NumGoals(), report)
	}

	satisfy := report.Goals[0]
	if !satisfy.Satisfy() {
		t.Fatalf("first goal should be satisfy-all, got %s", satisfy.Description())
	}
	rows := satisfy.Data.Rows(tbl)
	if len(rows) != 2 {
		t.Fatalf("satisfy-all rows = %d, want 2", len(rows))
	}
	seen := map[int64]bool{}
	for _, row := range rows {
		id, ok := intValue(t, row, "id")
		if !ok {
			t.Fatalf("primary key column is null in %s", row)
		}
		if seen[id] {
			t.Fatalf("duplicate primary key %d", id)
		}
		seen[id] = true
		if age, ok := intValue(t, row, "age"); ok && age <= 0 {
			t.Fatalf("check violated by %s", row)
		}
	}

	var checkGoal *GoalReport
	for _, g := range report.Goals {
		if g.Constraint != nil && g.Constraint.Kind() == schema.KindCheck {
			checkGoal = g
		}
	}
	if checkGoal == nil {
		t.Fatalf("no violate goal for the check constraint")
	}
	if checkGoal.State.NumRows() != 2 {
		t.Fatalf("violate goal should see the two accepted rows, got %d", checkGoal.State.NumRows())
	}
	row := checkGoal.Data.Rows(tbl)[0]
	age, ok := intValue(t, row, "age")
	if !ok || age > 0 {
		t.Fatalf("check should be violated by a non-null age <= 0, got %s", row)
	}
	id, ok := intValue(t, row, "id")
	if !ok || seen[id] {
		t.Fatalf("violating row must keep the primary key satisfied, got %s", row)
	}
	// Rows of the constrained table are not carried forward.
	if cov.State().NumRows() != 2 {
		t.Fatalf("state rows = %d, want 2", cov.State().NumRows())
	}
}

func TestGenerateForeignKey(t *testing.T) {
	s := schema.New("shop")
	customer, _ := s.CreateTable("customer")
	cid, _ := customer.AddColumn("id", schema.Int())
	if _, err := customer.SetPrimaryKey("", cid); err != nil {
		t.Fatalf("primary key: %v", err)
	}
	orders, _ := s.CreateTable("orders")
	oid, _ := orders.AddColumn("id", schema.Int())
	ocust, _ := orders.AddColumn("customer_id", schema.Int())
	if _, err := orders.SetPrimaryKey("", oid); err != nil {
		t.Fatalf("primary key: %v", err)
	}
	fk, err := orders.AddForeignKey("fk_customer", []*schema.Column{ocust}, customer, []*schema.Column{cid})
	if err != nil {
		t.Fatalf("foreign key: %v", err)
	}

	cov := NewCoverer(s, newSearch(t), Options{SatisfyRows: 2, NegateRows: 1, ConsiderNull: true})
	report, err := cov.Generate(context.Background())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	var fkGoal *GoalReport
	for _, g := range report.Goals {
		if g.Constraint == schema.Constraint(fk) {
			fkGoal = g
		}
	}
	if fkGoal == nil || !fkGoal.Success {
		t.Fatalf("foreign key violation not covered:\n%s", report)
	}
	refs := map[string]bool{}
	for _, d := range []*data.Data{fkGoal.State, fkGoal.Data} {
		for _, row := range d.Rows(customer) {
			refs[row.Cell(cid).Value().SQL()] = true
		}
	}
	for _, row := range fkGoal.Data.Rows(orders) {
		cell := row.Cell(ocust)
		if cell.IsNull() {
			t.Fatalf("a null reference does not violate the foreign key: %s", row)
		}
		if refs[cell.Value().SQL()] {
			t.Fatalf("reference %s matches an existing customer", cell.Value().SQL())
		}
	}
}

func TestGenerateInterrupted(t *testing.T) {
	s, _ := personSchema(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cov := NewCoverer(s, newSearch(t), Options{ConsiderNull: true})
	cov.OnGoal = func(g *GoalReport) {
		if g.Satisfy() {
			cancel()
		}
	}
	report, err := cov.Generate(ctx)
	if err != nil {
		t.Fatalf("an ended context should not fail the run: %v", err)
	}
	if len(report.Goals) != 3 {
		t.Fatalf("expected every goal to be reported, got %d", len(report.Goals))
	}
	if !report.Goals[0].Success || report.Goals[0].Interrupted {
		t.Fatalf("satisfy-all finished before the cancel: %+v", report.Goals[0])
	}
	for _, g := range report.Goals[1:] {
		if !g.Interrupted || g.Success || g.Evaluations != 0 {
			t.Fatalf("goal %q should be skipped: %+v", g.Description(), g)
		}
	}
	if report.Interrupted() != 2 || report.TotalCovered() != 2 {
		t.Fatalf("interrupted %d, covered %d", report.Interrupted(), report.TotalCovered())
	}
	if !strings.Contains(report.String(), "NOT covered (interrupted)") {
		t.Fatalf("report does not mark interrupted goals:\n%s", report)
	}
}

func TestGenerateWithEndedContext(t *testing.T) {
	s, _ := personSchema(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := NewCoverer(s, newSearch(t), Options{}).Generate(ctx)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	for _, g := range report.Goals {
		if !g.Interrupted {
			t.Fatalf("goal %q ran after the context ended", g.Description())
		}
	}
}

// cancellingSearch ends the context as its search starts.
type cancellingSearch struct {
	inner  search.Search
	cancel context.CancelFunc
}

func (c cancellingSearch) SetObjectiveFunction(fn search.Function) { c.inner.SetObjectiveFunction(fn) }

func (c cancellingSearch) SetTerminationCriterion(crit search.Criterion) {
	c.inner.SetTerminationCriterion(crit)
}

func (c cancellingSearch) Name() string { return c.inner.Name() }

func (c cancellingSearch) Search(ctx context.Context, candidate *data.Data) (*search.Result, error) {
	c.cancel()
	return c.inner.Search(ctx, candidate)
}

func TestGenerateKeepsRowsOfInterruptedSearch(t *testing.T) {
	s, tbl := personSchema(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	report, err := NewCoverer(s, cancellingSearch{inner: newSearch(t), cancel: cancel}, Options{}).Generate(ctx)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	first := report.Goals[0]
	if !first.Interrupted || first.Evaluations == 0 || first.Data == nil {
		t.Fatalf("interrupted search should keep its best candidate: %+v", first)
	}
	if len(first.Data.Rows(tbl)) != 2 {
		t.Fatalf("expected the two satisfy-all rows, got %d", len(first.Data.Rows(tbl)))
	}
}

func TestReportText(t *testing.T) {
	s, tbl := personSchema(t)
	report := NewReport(s, "avs")
	d := data.New()
	row := d.AddRows(tbl, 1)[0]
	age, _ := tbl.ColumnByName("age")
	row.Cell(age).Value().(*data.Numeric).Set(decimal.NewFromInt(5))
	report.Add(&GoalReport{Tables: s.Tables, Data: d, Success: true, Evaluations: 3})
	report.Add(&GoalReport{Constraint: s.Constraints()[1], Tables: s.Tables, Evaluations: 7})

	if report.TotalCovered() != 2 || report.Evaluations() != 10 {
		t.Fatalf("covered %d, evaluations %d", report.TotalCovered(), report.Evaluations())
	}
	text := report.String()
	for _, want := range []string{
		"Covered 2 of 4 goals (50.0%)",
		"DROP TABLE IF EXISTS person;",
		"CREATE TABLE person",
		"Goal 1: satisfy all constraints [covered",
		"Goal 2: violate person CHECK",
		"NOT covered",
		"INSERT INTO person",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("report missing %q:\n%s", want, text)
		}
	}
}
