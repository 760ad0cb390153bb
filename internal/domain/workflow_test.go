package domain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"mutago.dev/pkg/mutago/internal/adapter"
	adaptermocks "mutago.dev/pkg/mutago/internal/adapter/mocks"
	"mutago.dev/pkg/mutago/internal/controller"
	"mutago.dev/pkg/mutago/internal/domain/coverage"
	m "mutago.dev/pkg/mutago/internal/model"
)

const compareSource = `package calc

func Add(a, b int) int {
	return a + b
}

func Less(a, b int) bool {
	return a < b
}
`

type workflowFixture struct {
	root   string
	runner *adaptermocks.MockTestRunnerAdapter
	out    *bytes.Buffer
	wf     Workflow
}

func newWorkflowFixture(t *testing.T) workflowFixture {
	t.Helper()

	root := writeModule(t, map[string]string{"calc/calc.go": compareSource})
	fs := adapter.NewLocalSourceFSAdapter()
	runner := adaptermocks.NewMockTestRunnerAdapter(t)

	var out bytes.Buffer

	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	wf := NewWorkflow(
		fs,
		adapter.NewLocalReportStore(),
		controller.NewSimpleUI(cmd),
		NewLoader(fs, adapter.NewLocalGoFileAdapter()),
		NewOrchestrator(runner),
	)

	return workflowFixture{root: root, runner: runner, out: &out, wf: wf}
}

func (f workflowFixture) paths() LoadArgs {
	return LoadArgs{Paths: []m.Path{m.Path(f.root + "/...")}}
}

func installed(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, "calc", "calc.go"))
	if err != nil {
		return ""
	}

	return string(data)
}

// killSubtraction passes the unmodified code and kills only the mutant that
// turns a + b into a - b.
func killSubtraction(_ context.Context, dir string, _ []string, _ []string) (m.TestRun, error) {
	src := installed(dir)

	switch {
	case src == compareSource:
		return m.TestRun{Passed: true, Duration: time.Millisecond}, nil
	case strings.Contains(src, "a - b"):
		return m.TestRun{Failures: []m.TestCase{{Package: "example.com/calc/calc", Name: "TestAdd"}}}, nil
	default:
		return m.TestRun{Passed: true}, nil
	}
}

func TestWorkflow_Run(t *testing.T) {
	f := newWorkflowFixture(t)
	reports := t.TempDir()

	f.runner.EXPECT().RunGoTest(mock.Anything, mock.Anything, []string{"./calc"}, mock.Anything).RunAndReturn(killSubtraction)

	code, err := f.wf.Run(context.Background(), RunArgs{
		LoadArgs:    f.paths(),
		MutatorArgs: MutatorArgs{Operators: []string{"AOR", "ROR"}},
		MinTimeout:  time.Minute,
		Reports:     m.Path(reports),
	})
	require.NoError(t, err)

	report, err := adapter.NewLocalReportStore().LoadReport(context.Background(), m.Path(reports))
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(report.Mutants), 2)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, len(report.Mutants), report.Score.AllMutants)
	assert.Equal(t, 1, report.Score.Killed)
	assert.Equal(t, report.Score.AllMutants-1, report.Score.Survived)
	assert.Equal(t, report.Score.Survived, code)

	first := report.Mutants[0]
	assert.Equal(t, m.Killed, first.Status)
	assert.Equal(t, m.Path("calc/calc.go"), first.Target)
	assert.Equal(t, "example.com/calc/calc.TestAdd", first.Killer)
	require.Len(t, first.Mutations, 1)
	assert.Equal(t, "AOR", first.Mutations[0].Operator)
	assert.Contains(t, first.Diff, "-\treturn a + b")
	assert.Contains(t, first.Diff, "+\treturn a - b")

	for _, mutant := range report.Mutants[1:] {
		assert.Equal(t, m.Survived, mutant.Status)
		assert.Equal(t, "ROR", mutant.Mutations[0].Operator)
	}

	original, err := os.ReadFile(filepath.Join(f.root, "calc", "calc.go"))
	require.NoError(t, err)
	assert.Equal(t, compareSource, string(original), "the module itself is never touched")

	out := f.out.String()
	assert.Contains(t, out, "Mutation run "+report.RunID)
	assert.Contains(t, out, "killed by example.com/calc/calc.TestAdd")
	assert.Contains(t, out, "Mutation score:")
}

func TestWorkflow_RunHighOrder(t *testing.T) {
	f := newWorkflowFixture(t)
	reports := t.TempDir()

	f.runner.EXPECT().RunGoTest(mock.Anything, mock.Anything, mock.Anything, mock.Anything).RunAndReturn(killSubtraction)

	_, err := f.wf.Run(context.Background(), RunArgs{
		LoadArgs:    f.paths(),
		MutatorArgs: MutatorArgs{Operators: []string{"AOR", "ROR"}, Order: 2, HOMStrategy: EachChoice, Seed: 7},
		MinTimeout:  time.Minute,
		Reports:     m.Path(reports),
	})
	require.NoError(t, err)

	report, err := adapter.NewLocalReportStore().LoadReport(context.Background(), m.Path(reports))
	require.NoError(t, err)

	require.NotEmpty(t, report.Mutants)
	assert.Len(t, report.Mutants[0].Mutations, 2)
	assert.Equal(t, m.Killed, report.Mutants[0].Status)
}

func TestWorkflow_RunBaselineFailure(t *testing.T) {
	f := newWorkflowFixture(t)

	f.runner.EXPECT().RunGoTest(mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(m.TestRun{Failures: []m.TestCase{{Package: "example.com/calc/calc", Name: "TestAdd"}}}, nil).Once()

	code, err := f.wf.Run(context.Background(), RunArgs{LoadArgs: f.paths(), MinTimeout: time.Minute})
	require.ErrorIs(t, err, ErrBaselineFailed)
	assert.Equal(t, ExitBaselineFailure, code)
	assert.Contains(t, f.out.String(), "Baseline failed: 1 failing test(s)")
}

func TestWorkflow_RunLoadError(t *testing.T) {
	tests := []struct {
		name string
		args func(f workflowFixture) RunArgs
	}{
		{
			name: "missing path",
			args: func(f workflowFixture) RunArgs {
				return RunArgs{LoadArgs: LoadArgs{Paths: []m.Path{m.Path(filepath.Join(f.root, "nope.go"))}}}
			},
		},
		{
			name: "unknown operator",
			args: func(f workflowFixture) RunArgs {
				return RunArgs{LoadArgs: f.paths(), MutatorArgs: MutatorArgs{Operators: []string{"XYZ"}}}
			},
		},
		{
			name: "unknown strategy",
			args: func(f workflowFixture) RunArgs {
				return RunArgs{LoadArgs: f.paths(), MutatorArgs: MutatorArgs{Order: 2, HOMStrategy: "sideways"}}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newWorkflowFixture(t)

			code, err := f.wf.Run(context.Background(), tt.args(f))
			require.ErrorIs(t, err, ErrLoad)
			assert.Equal(t, ExitLoadError, code)
			assert.Contains(t, f.out.String(), "Load error")
		})
	}
}

func TestWorkflow_RunTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newWorkflowFixture(t)

	f.runner.EXPECT().RunGoTest(mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		RunAndReturn(func(ctx context.Context, dir string, _ []string, _ []string) (m.TestRun, error) {
			if installed(dir) == compareSource {
				return m.TestRun{Passed: true, Duration: time.Millisecond}, nil
			}

			<-ctx.Done()

			return m.TestRun{}, ctx.Err()
		})

	code, err := f.wf.Run(context.Background(), RunArgs{
		LoadArgs:      f.paths(),
		MutatorArgs:   MutatorArgs{Operators: []string{"AOR"}},
		TimeoutFactor: 1,
		MinTimeout:    50 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Contains(t, f.out.String(), "timeout")
}

func TestWorkflow_RunCoverage(t *testing.T) {
	f := newWorkflowFixture(t)
	reports := t.TempDir()

	f.runner.EXPECT().RunGoTest(mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		RunAndReturn(func(ctx context.Context, dir string, pkgs []string, env []string) (m.TestRun, error) {
			for _, kv := range env {
				sink, ok := strings.CutPrefix(kv, coverage.SinkEnv+"=")
				if !ok {
					continue
				}

				if _, err := os.Stat(filepath.Join(dir, "calc", coverage.SupportFile)); err != nil {
					return m.TestRun{BuildFailed: true}, nil
				}

				var markers strings.Builder
				for i := range 500 {
					fmt.Fprintf(&markers, "%d\n", i)
				}

				if err := os.WriteFile(sink, []byte(markers.String()), 0o600); err != nil {
					return m.TestRun{}, err
				}

				return m.TestRun{Passed: true}, nil
			}

			return killSubtraction(ctx, dir, pkgs, env)
		})

	_, err := f.wf.Run(context.Background(), RunArgs{
		LoadArgs:    f.paths(),
		MutatorArgs: MutatorArgs{Operators: []string{"AOR"}},
		Coverage:    true,
		MinTimeout:  time.Minute,
		Reports:     m.Path(reports),
	})
	require.NoError(t, err)

	report, err := adapter.NewLocalReportStore().LoadReport(context.Background(), m.Path(reports))
	require.NoError(t, err)

	assert.Positive(t, report.Score.AllNodes)
	assert.Equal(t, report.Score.AllNodes, report.Score.CoveredNodes)
	assert.Equal(t, 1, report.Score.Killed)
	assert.Contains(t, f.out.String(), "Coverage calc/calc.go:")

	_, err = os.Stat(filepath.Join(f.root, "calc", coverage.SupportFile))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestWorkflow_RunCoverageFiltersUnreachedNodes(t *testing.T) {
	f := newWorkflowFixture(t)

	f.runner.EXPECT().RunGoTest(mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		RunAndReturn(func(_ context.Context, _ string, _ []string, _ []string) (m.TestRun, error) {
			return m.TestRun{Passed: true, Duration: time.Millisecond}, nil
		}).Twice()

	code, err := f.wf.Run(context.Background(), RunArgs{
		LoadArgs:    f.paths(),
		MutatorArgs: MutatorArgs{Operators: []string{"AOR", "ROR"}},
		Coverage:    true,
		MinTimeout:  time.Minute,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, code, "nothing was reached, so nothing is mutated")
	assert.Contains(t, f.out.String(), "Coverage calc/calc.go: 1/")
}

func TestWorkflow_List(t *testing.T) {
	f := newWorkflowFixture(t)

	require.NoError(t, f.wf.List(context.Background(), ListArgs{
		LoadArgs:    f.paths(),
		MutatorArgs: MutatorArgs{Operators: []string{"AOR"}},
	}))

	assert.Contains(t, f.out.String(), "calc/calc.go")
	assert.Contains(t, f.out.String(), "AOR:1")
}

func TestWorkflow_ListLoadError(t *testing.T) {
	f := newWorkflowFixture(t)

	err := f.wf.List(context.Background(), ListArgs{LoadArgs: LoadArgs{Paths: []m.Path{m.Path(filepath.Join(f.root, "nope"))}}})
	require.ErrorIs(t, err, ErrLoad)
	assert.Contains(t, f.out.String(), "estimation error")
}

func TestWorkflow_ListOperators(t *testing.T) {
	f := newWorkflowFixture(t)

	require.NoError(t, f.wf.ListOperators(context.Background()))

	for _, code := range []string{"AOR", "ROR", "SDL", "SVD"} {
		assert.Contains(t, f.out.String(), code)
	}
}

func TestWorkflow_View(t *testing.T) {
	f := newWorkflowFixture(t)
	dir := t.TempDir()

	_, err := adapter.NewLocalReportStore().SaveReport(context.Background(), m.Path(dir), m.RunReport{
		RunID: "r1",
		Score: m.MutationScore{AllMutants: 1, Survived: 1},
		Mutants: []m.MutantReport{
			{Number: 1, Target: "calc/calc.go", Status: m.Survived, Diff: "+\treturn a - b\n"},
		},
	})
	require.NoError(t, err)

	require.NoError(t, f.wf.View(context.Background(), ViewArgs{Reports: m.Path(dir)}))
	assert.Contains(t, f.out.String(), "Run r1")
	assert.Contains(t, f.out.String(), "return a - b")

	require.Error(t, f.wf.View(context.Background(), ViewArgs{Reports: m.Path(t.TempDir())}))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		run    m.TestRun
		err    error
		status m.TestStatus
		killer string
	}{
		{name: "runner error", err: errors.New("exec"), status: m.Incompetent},
		{name: "timeout", run: m.TestRun{TimedOut: true, Failures: []m.TestCase{{Package: "p"}}}, status: m.Timeout},
		{name: "build failure", run: m.TestRun{BuildFailed: true}, status: m.Incompetent},
		{
			name:   "first failure kills",
			run:    m.TestRun{Failures: []m.TestCase{{Package: "p", Name: "TestA"}, {Package: "p", Name: "TestB"}}},
			status: m.Killed,
			killer: "p.TestA",
		},
		{name: "failed without test", run: m.TestRun{}, status: m.Incompetent},
		{name: "passed", run: m.TestRun{Passed: true}, status: m.Survived},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var report m.MutantReport

			classify(&report, tt.run, tt.err)
			assert.Equal(t, tt.status, report.Status)
			assert.Equal(t, tt.killer, report.Killer)
		})
	}
}

func TestTimeBudget(t *testing.T) {
	assert.Equal(t, 10*time.Second, timeBudget(2*time.Second, 5, time.Second))
	assert.Equal(t, time.Minute, timeBudget(2*time.Second, 5, time.Minute))
	assert.Equal(t, DefaultMinTimeout, timeBudget(time.Millisecond, 0, 0))
}
