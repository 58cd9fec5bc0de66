package report

import (
	"archive/tar"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"schemaanalyst/internal/coverage"
	"schemaanalyst/internal/data"
	"schemaanalyst/internal/db"
	"schemaanalyst/internal/logic"
	"schemaanalyst/internal/objective"
	"schemaanalyst/internal/schema"

	"github.com/klauspost/compress/zstd"
)

func sampleReport(t *testing.T) *coverage.Report {
	t.Helper()
	s := schema.New("people")
	tbl, _ := s.CreateTable("person")
	id, _ := tbl.AddColumn("id", schema.Int())
	age, _ := tbl.AddColumn("age", schema.Int())
	if _, err := tbl.SetPrimaryKey("", id); err != nil {
		t.Fatalf("primary key: %v", err)
	}
	check, err := tbl.AddCheck("", &schema.Relational{Left: schema.Col(age), Op: logic.Greater, Right: schema.Num("0")})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	rows := data.New()
	rows.AddRows(tbl, 1)[0].Cell(age).Value().(*data.Numeric).SetInt(3)
	violating := data.New()
	violating.AddRows(tbl, 1)[0].Cell(id).Value().(*data.Numeric).SetInt(1)

	rep := coverage.NewReport(s, "avs")
	rep.Add(&coverage.GoalReport{Data: rows, State: data.New(), Success: true, Evaluations: 4, Value: objective.Optimal("ok"), Duration: time.Millisecond})
	rep.Add(&coverage.GoalReport{Constraint: tbl.PrimaryKey, Evaluations: 9})
	rep.Add(&coverage.GoalReport{Constraint: check, Data: violating, State: rows, Success: true, Evaluations: 2})
	return rep
}

func TestWriteRun(t *testing.T) {
	r := New(t.TempDir())
	run, err := r.NewRun()
	if err != nil {
		t.Fatalf("new run: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(run.Dir), "run_") || run.ID == "" {
		t.Fatalf("unexpected run: %+v", run)
	}
	verdicts := []*db.Verdict{{Goal: "satisfy all constraints", Confirmed: true}, nil, {Confirmed: false}}
	summary, err := r.WriteRun(run, sampleReport(t), verdicts)
	if err != nil {
		t.Fatalf("write run: %v", err)
	}
	if summary.Goals != 4 || summary.Covered != 3 || len(summary.GoalResults) != 3 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.GoalResults[1].File != "" || summary.GoalResults[1].Verified != nil {
		t.Fatalf("goal without data should have no file or verdict: %+v", summary.GoalResults[1])
	}
	if v := summary.GoalResults[2].Verified; v == nil || *v {
		t.Fatalf("expected an unconfirmed verdict, got %v", v)
	}

	schemaSQL, err := os.ReadFile(filepath.Join(run.Dir, "schema.sql"))
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if !strings.HasPrefix(string(schemaSQL), "DROP TABLE IF EXISTS person;\nCREATE TABLE person") {
		t.Fatalf("unexpected schema.sql:\n%s", schemaSQL)
	}
	goalSQL, err := os.ReadFile(filepath.Join(run.Dir, "goal_03_violate_person_check.sql"))
	if err != nil {
		t.Fatalf("read goal file: %v", err)
	}
	text := string(goalSQL)
	if !strings.Contains(text, "-- accepted rows from earlier goals\n") || !strings.Contains(text, "-- violate person CHECK") {
		t.Fatalf("unexpected goal file:\n%s", text)
	}
	if strings.Count(text, "INSERT INTO person") != 2 {
		t.Fatalf("expected state and goal inserts:\n%s", text)
	}

	summary.UploadLocation = "s3://bucket/run"
	if err := r.WriteSummary(run, summary); err != nil {
		t.Fatalf("write summary: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(run.Dir, "summary.json"))
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	var decoded Summary
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if decoded.UploadLocation != "s3://bucket/run" || decoded.GoalResults[0].Value != "0" {
		t.Fatalf("unexpected decoded summary: %+v", decoded)
	}
}

func TestWriteArchive(t *testing.T) {
	r := New(t.TempDir())
	run, err := r.NewRun()
	if err != nil {
		t.Fatalf("new run: %v", err)
	}
	if err := r.WriteText(run, "schema.sql", "CREATE TABLE t (a INT);\n"); err != nil {
		t.Fatalf("write text: %v", err)
	}
	if err := r.WriteText(run, "goals/one.sql", "INSERT INTO t (a) VALUES (1);\n"); err != nil {
		t.Fatalf("write nested text: %v", err)
	}
	name, codec, err := r.WriteArchive(run)
	if err != nil {
		t.Fatalf("write archive: %v", err)
	}
	if name != ArchiveName || codec != ArchiveCodec {
		t.Fatalf("unexpected archive %s/%s", name, codec)
	}

	f, err := os.Open(filepath.Join(run.Dir, name))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer f.Close()
	zr, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd reader: %v", err)
	}
	defer zr.Close()
	tr := tar.NewReader(zr)
	var names []string
	for {
		h, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("read tar: %v", err)
		}
		names = append(names, h.Name)
	}
	sort.Strings(names)
	if strings.Join(names, ",") != "goals/one.sql,schema.sql" {
		t.Fatalf("unexpected archive entries: %v", names)
	}
}
