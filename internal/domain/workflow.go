package domain

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/pmezard/go-difflib/difflib"

	"mutago.dev/pkg/mutago/internal/adapter"
	"mutago.dev/pkg/mutago/internal/controller"
	"mutago.dev/pkg/mutago/internal/domain/coverage"
	"mutago.dev/pkg/mutago/internal/domain/mutagens"
	m "mutago.dev/pkg/mutago/internal/model"
	"mutago.dev/pkg/mutago/pkg"
)

// Exit codes returned by Run besides the number of surviving mutants.
const (
	ExitBaselineFailure = -1
	ExitLoadError       = -2
)

// Defaults for the time budget of a mutant run.
const (
	DefaultTimeoutFactor = 5.0
	DefaultMinTimeout    = 10 * time.Second
)

// ErrBaselineFailed is returned when the tests fail on the unmodified code.
var ErrBaselineFailed = errors.New("tests fail on the unmodified code")

// MutatorArgs selects how mutants are generated.
type MutatorArgs struct {
	// Operators are operator codes. Empty selects every operator.
	Operators []string
	// Order is the number of mutations per mutant. Values below 2 mean
	// first-order mutants.
	Order       int
	HOMStrategy string
	// Percentage of mutants to keep. Zero keeps all of them.
	Percentage float64
	// Seed drives sampling and the random strategy. Zero picks one.
	Seed           uint64
	DisableIgnores bool
}

// RunArgs contains the arguments of a mutation run.
type RunArgs struct {
	LoadArgs
	MutatorArgs

	Coverage      bool
	TimeoutFactor float64
	MinTimeout    time.Duration
	GracePeriod   time.Duration
	// Reports is the directory the run report is written to. Empty skips it.
	Reports m.Path
}

// ListArgs contains the arguments for listing mutations without running tests.
type ListArgs struct {
	LoadArgs
	MutatorArgs
}

// ViewArgs points at a stored run report.
type ViewArgs struct {
	Reports m.Path
}

// Workflow drives mutation runs and the read-only commands around them.
type Workflow interface {
	// Run mutates the targets and tests every mutant. It returns the number
	// of surviving mutants, or ExitLoadError or ExitBaselineFailure together
	// with an error wrapping ErrLoad or ErrBaselineFailed.
	Run(ctx context.Context, args RunArgs) (int, error)
	List(ctx context.Context, args ListArgs) error
	ListOperators(ctx context.Context) error
	View(ctx context.Context, args ViewArgs) error
}

type workflow struct {
	adapter.SourceFSAdapter
	adapter.ReportStore
	Loader
	Orchestrator

	ui       controller.UI
	notifier *controller.Notifier
}

// NewWorkflow creates a new Workflow instance with the provided dependencies.
func NewWorkflow(
	fsAdapter adapter.SourceFSAdapter,
	reportStore adapter.ReportStore,
	ui controller.UI,
	loader Loader,
	orchestrator Orchestrator,
) Workflow {
	return &workflow{
		SourceFSAdapter: fsAdapter,
		ReportStore:     reportStore,
		Loader:          loader,
		Orchestrator:    orchestrator,
		ui:              ui,
		notifier:        controller.NewNotifier(ui),
	}
}

func (w *workflow) Run(ctx context.Context, args RunArgs) (int, error) {
	started := time.Now()
	runID := uuid.NewString()
	logger := slog.With("run", runID)

	if err := w.ui.Start(ctx, controller.WithTestMode()); err != nil {
		return ExitLoadError, fmt.Errorf("failed to start UI: %w", err)
	}

	defer func() {
		w.ui.Wait(ctx)
		w.ui.Close(ctx)
	}()

	mutator, err := newMutator(args.MutatorArgs)
	if err != nil {
		return w.loadFailed(ctx, loadError(err))
	}

	prog, err := w.Load(ctx, args.LoadArgs)
	if err != nil {
		return w.loadFailed(ctx, err)
	}

	targets := make([]m.Path, 0, len(prog.Targets))
	for _, t := range prog.Targets {
		targets = append(targets, t.File.Rel)
	}

	tests := prog.Project.Tests
	w.notifier.Notify(ctx, controller.StartEvent{RunID: runID, Targets: targets, Tests: tests})

	slot, err := adapter.NewSlot(ctx, w.SourceFSAdapter, prog.Project.Root)
	if err != nil {
		return w.loadFailed(ctx, loadError(err))
	}

	defer func() {
		if err := slot.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Error("Failed to remove sandbox", "root", slot.Root(), "error", err)
		}
	}()

	baseline, err := w.Baseline(ctx, slot, tests)
	if err != nil || !baseline.Passed {
		if err != nil {
			baseline.Output = err.Error()
		}

		w.notifier.Notify(ctx, controller.BaselineFailedEvent{Run: baseline})
		logger.Error("Baseline test run failed", "failures", len(baseline.Failures), "error", err)

		return ExitBaselineFailure, fmt.Errorf("%w: %d failing test(s)", ErrBaselineFailed, len(baseline.Failures))
	}

	w.notifier.Notify(ctx, controller.BaselineEvent{Run: baseline})

	budget := Budget{
		Limit: timeBudget(baseline.Duration, args.TimeoutFactor, args.MinTimeout),
		Grace: args.GracePeriod,
	}
	logger.Info("Baseline passed", "duration", baseline.Duration, "budget", budget.Limit)

	spill, err := pkg.NewFileSpill[m.MutantReport]("")
	if err != nil {
		return 0, fmt.Errorf("failed to create report spill: %w", err)
	}

	defer func() { _ = spill.Remove() }()

	var sinkDir m.Path
	if args.Coverage {
		sinkDir, err = w.CreateTempDir(ctx, "mutago-coverage-*")
		if err != nil {
			return 0, fmt.Errorf("failed to create coverage directory: %w", err)
		}

		defer func() { _ = w.RemoveAll(context.WithoutCancel(ctx), sinkDir) }()
	}

	var score m.MutationScore

	for i, target := range prog.Targets {
		var cov Coverage
		if args.Coverage {
			sink := w.JoinPath(ctx, string(sinkDir), fmt.Sprintf("%d.markers", i))
			cov = w.measureCoverage(ctx, slot, target, tests, sink, &score)
		}

		if err := w.mutateTarget(ctx, slot, mutator, target, cov, tests, budget, &score, spill); err != nil {
			return 0, err
		}
	}

	duration := time.Since(started)
	w.notifier.Notify(ctx, controller.EndEvent{Score: score, Duration: duration})
	logger.Info("Mutation run finished", "score", score.Count(), "killed", score.Killed, "survived", score.Survived, "duration", duration)

	if args.Reports != "" {
		if err := w.saveReport(ctx, args.Reports, runID, started, duration, score, spill); err != nil {
			return score.Survived, err
		}
	}

	return score.Survived, nil
}

func (w *workflow) loadFailed(ctx context.Context, err error) (int, error) {
	w.notifier.Notify(ctx, controller.LoadErrorEvent{Err: err})
	return ExitLoadError, err
}

//nolint:funlen // one loop over the mutants of a target
func (w *workflow) mutateTarget(
	ctx context.Context,
	slot *adapter.Slot,
	mutator Mutator,
	target Target,
	cov Coverage,
	tests []string,
	budget Budget,
	score *m.MutationScore,
	spill pkg.FileSpill[m.MutantReport],
) error {
	base, err := target.Tree.Format()
	if err != nil {
		return fmt.Errorf("failed to print %s: %w", target.File.Rel, err)
	}

	for mutant, err := range mutator.Mutate(target.Tree, cov) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		var report m.MutantReport
		if err != nil {
			report = m.MutantReport{Target: target.File.Rel, Status: m.Incompetent, Error: err.Error()}
		} else {
			report, err = w.testMutant(ctx, slot, target, base, mutant, tests, budget)
			if err != nil {
				return err
			}
		}

		slog.Debug("Mutant classified", "target", report.Target, "number", report.Number, "status", report.Status.String())

		score.Record(report.Status)

		if err := spill.Append(report); err != nil {
			return fmt.Errorf("failed to spill mutant report: %w", err)
		}

		w.notifier.Notify(ctx, controller.OutcomeEvent{Report: report})
	}

	return nil
}

// testMutant installs the mutant, runs the tests and classifies the result.
// Only cancellation of ctx is returned as an error.
func (w *workflow) testMutant(
	ctx context.Context,
	slot *adapter.Slot,
	target Target,
	base []byte,
	mutant Mutant,
	tests []string,
	budget Budget,
) (m.MutantReport, error) {
	report := m.MutantReport{
		Number:    mutant.Number,
		Target:    target.File.Rel,
		Mutations: make([]m.MutationRecord, 0, len(mutant.Mutations)),
	}

	for _, mu := range mutant.Mutations {
		report.Mutations = append(report.Mutations, mu.Record())
	}

	if formatted, err := mutant.Tree.Format(); err == nil {
		report.Diff = unifiedDiff(string(target.File.Rel), base, formatted)
	}

	w.notifier.Notify(ctx, controller.MutationEvent{
		Number:    report.Number,
		Target:    report.Target,
		Mutations: report.Mutations,
		Diff:      report.Diff,
	})

	src, err := mutant.Tree.Source()
	if err != nil {
		report.Status = m.Incompetent
		report.Error = err.Error()

		return report, nil
	}

	started := time.Now()
	run, err := w.TestFiles(ctx, slot, []adapter.SandboxFile{{Rel: target.File.Rel, Content: src}}, tests, nil, budget)
	report.Duration = time.Since(started)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return report, ctxErr
	}

	classify(&report, run, err)

	return report, nil
}

// classify sets the status of a mutant from its test run. The first failing
// test is the killer.
func classify(report *m.MutantReport, run m.TestRun, err error) {
	switch {
	case err != nil:
		report.Status = m.Incompetent
		report.Error = err.Error()
	case run.TimedOut:
		report.Status = m.Timeout
	case run.BuildFailed:
		report.Status = m.Incompetent
		report.Error = "build failed"
	case len(run.Failures) > 0:
		report.Status = m.Killed
		report.Killer = run.Failures[0].String()
	case !run.Passed:
		report.Status = m.Incompetent
		report.Error = "tests failed without a failing test"
	default:
		report.Status = m.Survived
	}
}

// measureCoverage runs the instrumented target and returns the covered node
// set. A nil result means every node counts as covered.
func (w *workflow) measureCoverage(
	ctx context.Context,
	slot *adapter.Slot,
	target Target,
	tests []string,
	sink m.Path,
	score *m.MutationScore,
) Coverage {
	tracker := coverage.NewTracker()

	unit, err := tracker.Run(target.Tree, string(sink))
	if err != nil {
		slog.Warn("Failed to instrument target, mutating every node", "target", target.File.Rel, "error", err)
		return nil
	}

	files := []adapter.SandboxFile{
		{Rel: target.File.Rel, Content: unit.Source},
		{Rel: m.Path(path.Join(string(target.File.Package), coverage.SupportFile)), Content: unit.Support},
	}

	run, err := w.TestFiles(ctx, slot, files, tests, unit.Env(), Budget{})
	if err != nil || !run.Passed {
		slog.Warn("Coverage run failed, mutating every node", "target", target.File.Rel, "failures", len(run.Failures), "error", err)
		return nil
	}

	data, err := w.ReadFile(ctx, sink)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failed to read coverage sink", "sink", sink, "error", err)
		return nil
	}

	if err := unit.Collect(data); err != nil {
		slog.Warn("Failed to collect coverage", "target", target.File.Rel, "error", err)
		return nil
	}

	covered, total := tracker.Result()
	score.UpdateCoverage(covered, total)
	w.notifier.Notify(ctx, controller.CoverageEvent{Target: target.File.Rel, Covered: covered, Total: total})

	return tracker
}

func (w *workflow) saveReport(
	ctx context.Context,
	dir m.Path,
	runID string,
	started time.Time,
	duration time.Duration,
	score m.MutationScore,
	spill pkg.FileSpill[m.MutantReport],
) error {
	mutants, err := spill.Items()
	if err != nil {
		return fmt.Errorf("failed to read mutant reports: %w", err)
	}

	reportPath, err := w.SaveReport(ctx, dir, m.RunReport{
		RunID:    runID,
		Started:  started,
		Duration: duration,
		Score:    score,
		Mutants:  mutants,
	})
	if err != nil {
		return err
	}

	slog.Info("Saved run report", "path", reportPath)

	return nil
}

func (w *workflow) List(ctx context.Context, args ListArgs) error {
	if err := w.ui.Start(ctx, controller.WithEstimateMode()); err != nil {
		return err
	}
	defer w.ui.Close(ctx)

	mutator, err := newMutator(args.MutatorArgs)
	if err != nil {
		return w.ui.DisplayEstimation(ctx, nil, err)
	}

	prog, err := w.Load(ctx, args.LoadArgs)
	if err != nil {
		return w.ui.DisplayEstimation(ctx, nil, err)
	}

	estimates := make([]controller.TargetEstimate, 0, len(prog.Targets))

	for _, target := range prog.Targets {
		found, err := mutator.Candidates(target.Tree, nil)
		if err != nil {
			slog.Warn("Some mutation rules failed", "target", target.File.Rel, "error", err)
		}

		counts := make(map[string]int)
		for _, mu := range found {
			counts[mu.Code()]++
		}

		estimates = append(estimates, controller.TargetEstimate{Path: target.File.Rel, Operators: counts})
	}

	return w.ui.DisplayEstimation(ctx, estimates, nil)
}

func (w *workflow) ListOperators(ctx context.Context) error {
	ops := mutagens.All()

	infos := make([]controller.OperatorInfo, 0, len(ops))
	for _, op := range ops {
		infos = append(infos, controller.OperatorInfo{Code: op.Code(), Name: op.Name()})
	}

	return w.ui.DisplayOperators(ctx, infos)
}

func (w *workflow) View(ctx context.Context, args ViewArgs) error {
	report, err := w.LoadReport(ctx, args.Reports)
	if err != nil {
		return err
	}

	return w.ui.DisplayReport(ctx, report)
}

func newMutator(args MutatorArgs) (Mutator, error) {
	ops, err := mutagens.ByCode(args.Operators...)
	if err != nil {
		return nil, err
	}

	seed := args.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	rng := rand.New(rand.NewPCG(seed, seed))

	percentage := args.Percentage
	if percentage <= 0 {
		percentage = 100
	}

	opts := []MutatorOption{WithPercentage(percentage), WithRand(rng), WithIgnores(!args.DisableIgnores)}

	if args.Order < 2 {
		return NewFirstOrderMutator(ops, opts...), nil
	}

	name := args.HOMStrategy
	if name == "" {
		name = FirstToLast
	}

	strategy, err := NewHOMStrategy(name, func(ms []mutagens.Mutation) {
		rng.Shuffle(len(ms), func(i, j int) { ms[i], ms[j] = ms[j], ms[i] })
	})
	if err != nil {
		return nil, err
	}

	return NewHighOrderMutator(ops, args.Order, strategy, opts...), nil
}

// timeBudget is max(baseline × factor, floor).
func timeBudget(baseline time.Duration, factor float64, floor time.Duration) time.Duration {
	if factor <= 0 {
		factor = DefaultTimeoutFactor
	}

	if floor <= 0 {
		floor = DefaultMinTimeout
	}

	return max(time.Duration(float64(baseline)*factor), floor)
}

func unifiedDiff(name string, before, after []byte) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: "a/" + name,
		ToFile:   "b/" + name,
		Context:  3,
	})
	if err != nil {
		slog.Warn("Failed to diff mutant", "target", name, "error", err)
		return ""
	}

	return diff
}
