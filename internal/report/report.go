// Package report writes the artifacts of a generation run to disk.
package report

import (
	"archive/tar"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"schemaanalyst/internal/coverage"
	"schemaanalyst/internal/db"
	"schemaanalyst/internal/runinfo"
	"schemaanalyst/internal/util"
	"schemaanalyst/internal/validator"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

const (
	ArchiveName  = "run.tar.zst"
	ArchiveCodec = "zstd"
)

// Reporter writes run directories under OutputDir.
type Reporter struct {
	OutputDir string
}

// Run is one run directory.
type Run struct {
	ID  string
	Dir string
}

// Summary is the persisted metadata for a run.
type Summary struct {
	RunID          string            `json:"run_id"`
	Schema         string            `json:"schema"`
	Algorithm      string            `json:"algorithm"`
	Seed           int64             `json:"seed"`
	Goals          int               `json:"goals"`
	Covered        int               `json:"covered"`
	Coverage       float64           `json:"coverage"`
	Evaluations    int               `json:"evaluations"`
	DurationMs     int64             `json:"duration_ms"`
	GoalResults    []GoalSummary     `json:"goal_results"`
	SyntaxIssues   []validator.Issue `json:"syntax_issues,omitempty"`
	RunInfo        *runinfo.Info     `json:"run_info,omitempty"`
	UploadLocation string            `json:"upload_location,omitempty"`
	ArchiveName    string            `json:"archive_name,omitempty"`
	ArchiveCodec   string            `json:"archive_codec,omitempty"`
	Timestamp      string            `json:"timestamp"`
}

// GoalSummary is the persisted outcome of one goal.
type GoalSummary struct {
	Goal        string      `json:"goal"`
	File        string      `json:"file,omitempty"`
	Success     bool        `json:"success"`
	Evaluations int         `json:"evaluations"`
	Restarts    int         `json:"restarts"`
	Value       string      `json:"value,omitempty"`
	DurationMs  int64       `json:"duration_ms"`
	Interrupted bool        `json:"interrupted,omitempty"`
	Verified    *bool       `json:"verified,omitempty"`
	Verdict     *db.Verdict `json:"verdict,omitempty"`
}

// New creates a reporter that writes to outputDir.
func New(outputDir string) *Reporter {
	return &Reporter{OutputDir: outputDir}
}

// NewRun allocates a run directory named after a time-ordered UUID.
func (r *Reporter) NewRun() (Run, error) {
	id := uuid.New().String()
	if v7, err := uuid.NewV7(); err == nil {
		id = v7.String()
	}
	dir := filepath.Join(r.OutputDir, "run_"+id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Run{}, errors.Wrapf(err, "create run dir %s", dir)
	}
	return Run{ID: id, Dir: dir}, nil
}

// GoalFile names the SQL file of the i-th goal, counting from zero.
func GoalFile(i int, goal *coverage.GoalReport) string {
	if goal.Constraint == nil {
		return fmt.Sprintf("goal_%02d_satisfy_all.sql", i+1)
	}
	kind := strings.ReplaceAll(strings.ToLower(goal.Constraint.Kind().String()), " ", "_")
	return fmt.Sprintf("goal_%02d_violate_%s_%s.sql", i+1, goal.Constraint.Table().Name, kind)
}

// WriteRun writes schema.sql, report.txt and one SQL file per goal, and
// returns the summary to be completed and written by WriteSummary.
func (r *Reporter) WriteRun(run Run, rep *coverage.Report, verdicts []*db.Verdict) (Summary, error) {
	s := rep.Schema
	if err := r.WriteSQL(run, "schema.sql", append(s.DropStatements(), s.CreateStatements()...)); err != nil {
		return Summary{}, err
	}
	if err := r.WriteText(run, "report.txt", rep.String()); err != nil {
		return Summary{}, err
	}
	summary := Summary{
		RunID:       run.ID,
		Schema:      s.Name,
		Algorithm:   rep.Algorithm,
		Goals:       rep.NumGoals(),
		Covered:     rep.TotalCovered(),
		Coverage:    rep.Coverage(),
		Evaluations: rep.Evaluations(),
		DurationMs:  rep.Duration.Milliseconds(),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	for i, goal := range rep.Goals {
		gs := GoalSummary{
			Goal:        goal.Description(),
			Success:     goal.Success,
			Evaluations: goal.Evaluations,
			Restarts:    goal.Restarts,
			DurationMs:  goal.Duration.Milliseconds(),
			Interrupted: goal.Interrupted,
		}
		if goal.Value != nil {
			gs.Value = goal.Value.Get().String()
		}
		if goal.Data != nil {
			gs.File = GoalFile(i, goal)
			if err := r.WriteSQL(run, gs.File, goalStatements(rep, goal)); err != nil {
				return Summary{}, err
			}
		}
		if i < len(verdicts) && verdicts[i] != nil && goal.Data != nil {
			confirmed := verdicts[i].Confirmed
			gs.Verified = &confirmed
			gs.Verdict = verdicts[i]
		}
		summary.GoalResults = append(summary.GoalResults, gs)
	}
	return summary, nil
}

func goalStatements(rep *coverage.Report, goal *coverage.GoalReport) []string {
	var out []string
	if state := coverage.Statements(rep.Schema, goal.State); len(state) > 0 {
		out = append(out, "-- accepted rows from earlier goals")
		out = append(out, state...)
	}
	out = append(out, "-- "+goal.Description())
	return append(out, coverage.Statements(rep.Schema, goal.Data)...)
}

// WriteSummary writes summary.json into the run directory.
func (r *Reporter) WriteSummary(run Run, summary Summary) error {
	f, err := os.Create(filepath.Join(run.Dir, "summary.json"))
	if err != nil {
		return errors.Wrap(err, "create summary")
	}
	defer util.CloseWithErr(f, "summary output")
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return errors.Wrap(enc.Encode(summary), "encode summary")
}

// WriteSQL writes statements to name, one per line. Comment lines are kept
// as they are; everything else is terminated with a semicolon.
func (r *Reporter) WriteSQL(run Run, name string, statements []string) error {
	var b strings.Builder
	for _, stmt := range statements {
		b.WriteString(stmt)
		if !strings.HasPrefix(stmt, "--") {
			b.WriteString(";")
		}
		b.WriteString("\n")
	}
	return r.WriteText(run, name, b.String())
}

// WriteText writes raw text content into the run directory.
func (r *Reporter) WriteText(run Run, name string, content string) error {
	path := filepath.Join(run.Dir, name)
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create %s", dir)
		}
	}
	return errors.Wrapf(os.WriteFile(path, []byte(content), 0o644), "write %s", name)
}

// WriteArchive packs the run directory into a zstd-compressed tarball
// inside it.
func (r *Reporter) WriteArchive(run Run) (name string, codec string, err error) {
	archivePath := filepath.Join(run.Dir, ArchiveName)
	if removeErr := os.Remove(archivePath); removeErr != nil && !os.IsNotExist(removeErr) {
		return "", "", removeErr
	}
	defer func() {
		if err != nil {
			_ = os.Remove(archivePath)
		}
	}()
	file, err := os.Create(archivePath)
	if err != nil {
		return "", "", err
	}
	defer util.CloseWithErr(file, "archive output")

	zw, err := zstd.NewWriter(file)
	if err != nil {
		return "", "", err
	}
	defer func() {
		if closeErr := zw.Close(); err == nil && closeErr != nil {
			err = closeErr
		}
	}()
	tw := tar.NewWriter(zw)
	defer func() {
		if closeErr := tw.Close(); err == nil && closeErr != nil {
			err = closeErr
		}
	}()

	err = filepath.WalkDir(run.Dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || path == archivePath {
			return nil
		}
		return addFile(tw, run.Dir, path, d)
	})
	if err != nil {
		return "", "", errors.Wrap(err, "archive run")
	}
	return ArchiveName, ArchiveCodec, nil
}

func addFile(tw *tar.Writer, root, path string, d fs.DirEntry) error {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return err
	}
	info, err := d.Info()
	if err != nil {
		return err
	}
	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	header.Name = filepath.ToSlash(rel)
	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer util.CloseWithErr(src, "archive source")
	_, err = io.Copy(tw, src)
	return err
}
