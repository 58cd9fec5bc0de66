package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"schemaanalyst/internal/config"
	"schemaanalyst/internal/report"
	"schemaanalyst/internal/schema"
)

const personDDL = `CREATE TABLE person (
	id INT PRIMARY KEY,
	age INT CHECK (age > 0)
);`

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "person.sql")
	if err := os.WriteFile(path, []byte(personDDL), 0o644); err != nil {
		t.Fatalf("write schema: %v", err)
	}
	cfg := config.Default()
	cfg.SchemaFile = path
	cfg.Seed = 11
	cfg.Search.MaxEvaluations = 20000
	cfg.Database = config.DatabaseConfig{Dialect: config.DialectSQLite, DSN: ":memory:"}
	cfg.Report.Dir = filepath.Join(dir, "reports")
	cfg.Metrics = config.MetricsConfig{Enabled: true, File: "metrics.prom"}
	return cfg
}

func TestRunEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	r, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Seed != 11 {
		t.Fatalf("seed=%d", res.Seed)
	}
	if res.Report.Coverage() != 100 {
		t.Fatalf("expected full coverage:\n%s", res.Report)
	}
	if len(res.Issues) != 0 {
		t.Fatalf("generated SQL does not parse: %+v", res.Issues)
	}
	if len(res.Verdicts) != len(res.Report.Goals) {
		t.Fatalf("expected one verdict per goal, got %d", len(res.Verdicts))
	}
	for i, goal := range res.Report.Goals {
		if goal.Constraint != nil && goal.Constraint.Kind() == schema.KindPrimaryKey {
			continue
		}
		if !res.Verdicts[i].Confirmed {
			t.Fatalf("sqlite disagrees with %q: %+v", goal.Description(), res.Verdicts[i].Statements)
		}
	}
	for _, name := range []string{"schema.sql", "report.txt", "summary.json", "metrics.prom", report.ArchiveName} {
		if _, err := os.Stat(filepath.Join(res.Run.Dir, name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}
	if res.Summary.ArchiveName != report.ArchiveName || res.Summary.Seed != 11 {
		t.Fatalf("unexpected summary: %+v", res.Summary)
	}
}

func TestRunWithoutReportDir(t *testing.T) {
	cfg := testConfig(t)
	cfg.Report.Dir = ""
	cfg.Database = config.DatabaseConfig{}
	r, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Run.Dir != "" || res.Verdicts != nil {
		t.Fatalf("nothing should be written or verified: %+v", res.Run)
	}
}

func TestRunErrors(t *testing.T) {
	cfg := testConfig(t)
	cfg.SchemaFile = ""
	r, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	if _, err := r.Run(context.Background()); err == nil {
		t.Fatalf("expected missing schema error")
	}

	cfg = testConfig(t)
	cfg.Search.Algorithm = "simulated-annealing"
	r, _ = New(context.Background(), cfg)
	if _, err := r.Run(context.Background()); err == nil {
		t.Fatalf("expected unknown search error")
	}
}

func TestProfile(t *testing.T) {
	p := Profile(config.RandomizerConfig{Profile: "wide", NullPercent: 0})
	if p.NullPercent != 0 || p.NumericMax <= 100 {
		t.Fatalf("unexpected profile: %+v", p)
	}
	if p := Profile(config.RandomizerConfig{Profile: "small", NullPercent: -1}); p.NullPercent != 10 {
		t.Fatalf("profile default null percent lost: %+v", p)
	}
}
