package domain

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mutago.dev/pkg/mutago/internal/adapter"
	m "mutago.dev/pkg/mutago/internal/model"
)

// DefaultGracePeriod is how long a test run may take to stop once its budget
// is spent.
const DefaultGracePeriod = 10 * time.Second

// Budget bounds a test run. A zero Limit means no time limit. Once Limit is
// spent the run gets Grace to stop before it is abandoned.
type Budget struct {
	Limit time.Duration
	Grace time.Duration
}

// Orchestrator coordinates installing files into the sandbox and running the
// tests against them.
type Orchestrator interface {
	// Baseline runs the tests against the unmodified sandbox, without budget.
	Baseline(ctx context.Context, slot *adapter.Slot, tests []string) (m.TestRun, error)
	// TestFiles installs files, runs the tests within budget and restores
	// the sandbox.
	TestFiles(ctx context.Context, slot *adapter.Slot, files []adapter.SandboxFile, tests []string, env []string, budget Budget) (m.TestRun, error)
}

type orchestrator struct {
	testAdapter adapter.TestRunnerAdapter
}

// NewOrchestrator constructs an Orchestrator backed by the provided test
// runner.
func NewOrchestrator(testAdapter adapter.TestRunnerAdapter) Orchestrator {
	return &orchestrator{testAdapter: testAdapter}
}

func (to *orchestrator) Baseline(ctx context.Context, slot *adapter.Slot, tests []string) (m.TestRun, error) {
	return to.runTests(ctx, string(slot.Root()), tests, nil, Budget{})
}

func (to *orchestrator) TestFiles(
	ctx context.Context,
	slot *adapter.Slot,
	files []adapter.SandboxFile,
	tests []string,
	env []string,
	budget Budget,
) (m.TestRun, error) {
	var run m.TestRun

	err := slot.With(ctx, files, func(ctx context.Context) error {
		var err error

		run, err = to.runTests(ctx, string(slot.Root()), tests, env, budget)

		return err
	})
	if err != nil {
		return m.TestRun{}, err
	}

	return run, nil
}

type runResult struct {
	run m.TestRun
	err error
}

// runTests runs the tests on a worker goroutine. Once the budget is spent the
// worker gets the grace period to return; after that it is abandoned and the
// run counts as timed out.
func (to *orchestrator) runTests(ctx context.Context, dir string, tests []string, env []string, budget Budget) (m.TestRun, error) {
	if err := ctx.Err(); err != nil {
		return m.TestRun{}, err
	}

	var (
		runCtx context.Context
		cancel context.CancelFunc
	)

	if budget.Limit > 0 {
		runCtx, cancel = context.WithTimeout(ctx, budget.Limit)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	done := make(chan runResult, 1)

	go func() {
		run, err := to.testAdapter.RunGoTest(runCtx, dir, tests, env)
		done <- runResult{run: run, err: err}
	}()

	select {
	case res := <-done:
		return to.finish(ctx, runCtx, res)
	case <-runCtx.Done():
	}

	graceTime := budget.Grace
	if graceTime <= 0 {
		graceTime = DefaultGracePeriod
	}

	grace := time.NewTimer(graceTime)
	defer grace.Stop()

	select {
	case res := <-done:
		return to.finish(ctx, runCtx, res)
	case <-grace.C:
		if err := ctx.Err(); err != nil {
			return m.TestRun{}, err
		}

		slog.Warn("Abandoning test run that outlived its budget", "dir", dir, "budget", budget.Limit, "grace", graceTime)

		return m.TestRun{TimedOut: true, Duration: budget.Limit + graceTime}, nil
	}
}

func (to *orchestrator) finish(ctx, runCtx context.Context, res runResult) (m.TestRun, error) {
	if err := ctx.Err(); err != nil {
		return m.TestRun{}, err
	}

	if runCtx.Err() != nil {
		res.run.TimedOut = true
		res.run.Passed = false

		return res.run, nil
	}

	if res.err != nil {
		slog.Error("Failed to run tests", "error", res.err)
		return m.TestRun{}, fmt.Errorf("failed to run tests: %w", res.err)
	}

	return res.run, nil
}
