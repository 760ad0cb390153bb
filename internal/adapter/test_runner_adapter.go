package adapter

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	m "mutago.dev/pkg/mutago/internal/model"
)

// DefaultWaitDelay bounds how long a killed go test process may keep its
// output pipes open.
const DefaultWaitDelay = 5 * time.Second

// TestRunnerAdapter abstracts test execution operations for mutation testing.
type TestRunnerAdapter interface {
	// RunGoTest runs 'go test' for packages in workDir with env added to the
	// process environment. A failing or timed-out run is reported in the
	// returned TestRun; err is only set when the tool could not be run.
	RunGoTest(ctx context.Context, workDir string, packages []string, env []string) (m.TestRun, error)
}

// LocalTestRunnerAdapter runs the go tool through os/exec.
type LocalTestRunnerAdapter struct {
	goBin     string
	waitDelay time.Duration
}

// TestRunnerOption configures a LocalTestRunnerAdapter.
type TestRunnerOption func(*LocalTestRunnerAdapter)

// WithGoBinary sets the go executable.
func WithGoBinary(path string) TestRunnerOption {
	return func(a *LocalTestRunnerAdapter) { a.goBin = path }
}

// WithWaitDelay sets how long to wait for a killed process to release its pipes.
func WithWaitDelay(d time.Duration) TestRunnerOption {
	return func(a *LocalTestRunnerAdapter) { a.waitDelay = d }
}

// NewLocalTestRunnerAdapter constructs a LocalTestRunnerAdapter.
func NewLocalTestRunnerAdapter(opts ...TestRunnerOption) *LocalTestRunnerAdapter {
	a := &LocalTestRunnerAdapter{goBin: "go", waitDelay: DefaultWaitDelay}
	for _, opt := range opts {
		opt(a)
	}

	return a
}

// RunGoTest runs 'go test -json' and classifies the outcome from its event stream.
func (a *LocalTestRunnerAdapter) RunGoTest(ctx context.Context, workDir string, packages []string, env []string) (m.TestRun, error) {
	args := []string{"test", "-json", "-count=1", "-vet=off"}

	// the test binary outlives a killed go command, so bound it as well
	if deadline, ok := ctx.Deadline(); ok {
		args = append(args, "-timeout="+(time.Until(deadline)+a.waitDelay).Round(time.Millisecond).String())
	}

	args = append(args, packages...)

	cmd := exec.CommandContext(ctx, a.goBin, args...)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(), env...)
	cmd.WaitDelay = a.waitDelay

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	run := parseTestEvents(stdout.Bytes())
	run.Duration = elapsed
	run.Output = stdout.String() + stderr.String()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		run.TimedOut = true
		run.Passed = false

		return run, nil
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return run, runErr
		}

		run.Passed = false

		if len(run.Failures) == 0 && !run.BuildFailed && looksLikeBuildFailure(stderr.String()) {
			run.BuildFailed = true
		}

		return run, nil
	}

	run.Passed = !run.BuildFailed && len(run.Failures) == 0

	return run, nil
}

// testEvent is one line of test2json output.
type testEvent struct {
	Action      string
	Package     string
	Test        string
	Output      string
	FailedBuild string
}

func parseTestEvents(data []byte) m.TestRun {
	var run m.TestRun

	failedPackages := make(map[string]bool)
	testFailures := make(map[string]bool)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		var ev testEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			continue
		}

		switch {
		case ev.FailedBuild != "":
			run.BuildFailed = true
		case ev.Action == "output" && ev.Test == "" && looksLikeBuildFailure(ev.Output):
			run.BuildFailed = true
		case ev.Action == "fail" && ev.Test != "":
			run.Failures = append(run.Failures, m.TestCase{Package: ev.Package, Name: ev.Test})
			testFailures[ev.Package] = true
		case ev.Action == "fail":
			failedPackages[ev.Package] = true
		}
	}

	// a package that failed without a failing test crashed outside of one
	if !run.BuildFailed {
		for pkg := range failedPackages {
			if !testFailures[pkg] {
				run.Failures = append(run.Failures, m.TestCase{Package: pkg})
			}
		}
	}

	return run
}

func looksLikeBuildFailure(output string) bool {
	return strings.Contains(output, "[build failed]") || strings.Contains(output, "[setup failed]")
}
