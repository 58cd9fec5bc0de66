// Package runner wires a configured generation run end to end: schema
// loading, goal search, verification, reports, upload and metrics.
package runner

import (
	"context"
	"math/rand"
	"path/filepath"
	"time"

	"schemaanalyst/internal/config"
	"schemaanalyst/internal/coverage"
	"schemaanalyst/internal/data"
	"schemaanalyst/internal/db"
	"schemaanalyst/internal/metrics"
	"schemaanalyst/internal/report"
	"schemaanalyst/internal/schema"
	"schemaanalyst/internal/search"
	"schemaanalyst/internal/uploader"
	"schemaanalyst/internal/util"
	"schemaanalyst/internal/validator"

	"github.com/pkg/errors"
)

// Runner executes one configured run.
type Runner struct {
	cfg      config.Config
	metrics  *metrics.Recorder
	uploader uploader.Uploader
}

// Result is what a run produced.
type Result struct {
	Seed     int64
	Report   *coverage.Report
	Verdicts []*db.Verdict
	Issues   []validator.Issue
	// Run and Summary are empty when no report directory is configured.
	Run     report.Run
	Summary report.Summary
}

// New constructs a Runner. Cloud storage clients are created here so
// credential problems surface before any search runs.
func New(ctx context.Context, cfg config.Config) (*Runner, error) {
	up, err := uploader.New(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	return &Runner{cfg: cfg, metrics: metrics.NewRecorder(), uploader: up}, nil
}

// Profile resolves the configured randomizer profile.
func Profile(cfg config.RandomizerConfig) data.Profile {
	profile := data.SmallProfile()
	if cfg.Profile == "wide" {
		profile = data.WideProfile()
	}
	if cfg.NullPercent >= 0 {
		profile.NullPercent = cfg.NullPercent
	}
	return profile
}

// Run loads the configured schema and covers it.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if r.cfg.SchemaFile == "" {
		return nil, errors.New("no schema file configured")
	}
	s, err := schema.LoadFile(r.cfg.SchemaFile)
	if err != nil {
		return nil, err
	}
	return r.RunSchema(ctx, s)
}

// RunSchema covers s.
func (r *Runner) RunSchema(ctx context.Context, s *schema.Schema) (*Result, error) {
	seed := r.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	util.Infof("covering schema %s: %d tables, %d constraints, search %s, seed %d",
		s.Name, len(s.Tables), len(s.Constraints()), r.cfg.Search.Algorithm, seed)

	srch, err := search.New(r.cfg.Search.Algorithm, search.Options{
		MaxEvaluations: r.cfg.Search.MaxEvaluations,
		Rand:           rand.New(rand.NewSource(seed)),
		Profile:        Profile(r.cfg.Randomizer),
	})
	if err != nil {
		return nil, err
	}
	// The timeout bounds the searches only; verification and reports of an
	// interrupted run still use ctx.
	searchCtx := ctx
	if r.cfg.Search.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, time.Duration(r.cfg.Search.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	cov := coverage.NewCoverer(s, srch, coverage.Options{
		SatisfyRows:  r.cfg.SatisfyRows,
		NegateRows:   r.cfg.NegateRows,
		ConsiderNull: r.cfg.ConsiderNull,
	})
	cov.OnGoal = func(g *coverage.GoalReport) {
		r.metrics.ObserveGoal(g)
		util.Debugf("goal %q value %s", g.Description(), describe(g))
	}
	rep, err := cov.Generate(searchCtx)
	if err != nil {
		return nil, err
	}
	r.metrics.ObserveReport(rep)
	util.Highlightf("covered %d of %d goals (%.1f%%) in %d evaluations",
		rep.TotalCovered(), rep.NumGoals(), rep.Coverage(), rep.Evaluations())

	res := &Result{Seed: seed, Report: rep, Issues: validator.New().ValidateReport(rep)}
	for _, issue := range res.Issues {
		util.Warnf("%s: unparsable statement %q: %s", issue.Goal, issue.SQL, issue.Err)
	}
	if r.cfg.Database.Enabled() {
		if res.Verdicts, err = r.verify(ctx, rep); err != nil {
			return nil, err
		}
		r.metrics.ObserveVerdicts(res.Verdicts)
	}
	if r.cfg.Report.Dir != "" {
		if err := r.writeReport(ctx, res); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (r *Runner) verify(ctx context.Context, rep *coverage.Report) ([]*db.Verdict, error) {
	dbCfg := r.cfg.Database
	if err := db.EnsureDatabase(ctx, dbCfg.Dialect, dbCfg.DSN); err != nil {
		return nil, err
	}
	conn, err := db.Open(ctx, dbCfg.Dialect, dbCfg.DSN)
	if err != nil {
		return nil, err
	}
	defer util.CloseWithErr(conn, "verification db")
	verdicts, err := conn.VerifyReport(ctx, rep)
	if err != nil {
		return nil, err
	}
	confirmed := 0
	for _, v := range verdicts {
		if v.Confirmed {
			confirmed++
		}
	}
	util.Infof("%s confirmed %d of %d goals", dbCfg.Dialect, confirmed, len(verdicts))
	return verdicts, nil
}

func (r *Runner) writeReport(ctx context.Context, res *Result) error {
	reporter := report.New(r.cfg.Report.Dir)
	run, err := reporter.NewRun()
	if err != nil {
		return err
	}
	summary, err := reporter.WriteRun(run, res.Report, res.Verdicts)
	if err != nil {
		return err
	}
	summary.Seed = res.Seed
	summary.RunInfo = r.cfg.RunInfo
	summary.SyntaxIssues = res.Issues
	if r.cfg.Metrics.Enabled {
		if err := r.metrics.WriteTextfile(filepath.Join(run.Dir, r.cfg.Metrics.File)); err != nil {
			return err
		}
	}
	if err := reporter.WriteSummary(run, summary); err != nil {
		return err
	}
	if r.cfg.Report.Archive {
		name, codec, err := reporter.WriteArchive(run)
		if err != nil {
			return err
		}
		summary.ArchiveName, summary.ArchiveCodec = name, codec
	}
	if r.uploader.Enabled() {
		location, err := r.uploader.UploadDir(ctx, run.Dir)
		if err != nil {
			// Upload failures leave the local report in place.
			util.Errorf("upload %s failed: %v", run.Dir, err)
		} else {
			summary.UploadLocation = location
			util.Infof("uploaded report to %s", location)
		}
	}
	if err := reporter.WriteSummary(run, summary); err != nil {
		return err
	}
	util.Infof("report written to %s", run.Dir)
	res.Run, res.Summary = run, summary
	return nil
}

func describe(g *coverage.GoalReport) string {
	if g.Value == nil {
		return "none"
	}
	return g.Value.Get().String()
}
