package controller

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "mutago.dev/pkg/mutago/internal/model"
)

func update(t *testing.T, rm runModel, msgs ...tea.Msg) runModel {
	t.Helper()

	for _, msg := range msgs {
		next, _ := rm.Update(msg)

		var ok bool

		rm, ok = next.(runModel)
		require.True(t, ok)
	}

	return rm
}

func TestRunModel_TracksRun(t *testing.T) {
	rm := update(t, newRunModel(),
		tea.WindowSizeMsg{Width: 120, Height: 40},
		StartEvent{RunID: "r1", Targets: []m.Path{"a.go", "b.go"}},
		BaselineEvent{},
		MutationEvent{Number: 1, Target: "a.go"},
		OutcomeEvent{Report: m.MutantReport{Number: 1, Target: "a.go", Status: m.Killed}},
		MutationEvent{Number: 1, Target: "b.go"},
		OutcomeEvent{Report: m.MutantReport{Number: 1, Target: "b.go", Status: m.Survived, Diff: "+x\n"}},
	)

	assert.Equal(t, "r1", rm.runID)
	assert.Equal(t, "mutating", rm.phase)
	assert.InDelta(t, 0.5, rm.progressPercent(), 0.001)
	assert.Len(t, rm.results.Items(), 2)
	assert.Equal(t, 1, rm.score.Killed)
	assert.Equal(t, 1, rm.score.Survived)
	assert.False(t, rm.finished)
	assert.Contains(t, rm.View(), "mutago r1")

	rm = update(t, rm, EndEvent{Score: m.MutationScore{AllMutants: 2, Killed: 1, Survived: 1}})
	assert.True(t, rm.finished)
	assert.InDelta(t, 1.0, rm.progressPercent(), 0.001)
	assert.Contains(t, rm.View(), "50.00%")
}

func TestRunModel_Failures(t *testing.T) {
	rm := update(t, newRunModel(), LoadErrorEvent{Err: errors.New("no go.mod")})
	assert.Contains(t, rm.View(), "load error: no go.mod")

	rm = update(t, newRunModel(), BaselineFailedEvent{Run: m.TestRun{Failures: []m.TestCase{{Package: "p", Name: "TestX"}}}})
	assert.Equal(t, "baseline failed: p.TestX", rm.failure)
}

func TestRunModel_Keys(t *testing.T) {
	rm := update(t, newRunModel(),
		StartEvent{Targets: []m.Path{"a.go"}},
		OutcomeEvent{Report: m.MutantReport{Number: 1, Target: "a.go", Status: m.Survived, Diff: "+changed line\n"}},
	)

	rm = update(t, rm, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, rm.showDiff, "diff opens only after the run")

	rm = update(t, rm, EndEvent{}, tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, rm.showDiff)
	assert.Contains(t, rm.View(), "+changed line")

	_, cmd := rm.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestRunModel_TickStopsWhenFinished(t *testing.T) {
	rm := newRunModel()

	_, cmd := rm.Update(tickMsg{})
	assert.NotNil(t, cmd)

	rm = update(t, rm, EndEvent{})
	_, cmd = rm.Update(tickMsg{})
	assert.Nil(t, cmd)
}

func TestTUI_StaticDisplays(t *testing.T) {
	var buf bytes.Buffer

	ui := NewTUI(&buf)
	ctx := context.Background()

	require.NoError(t, ui.Start(ctx, WithEstimateMode()))
	require.NoError(t, ui.DisplayEstimation(ctx, []TargetEstimate{{Path: "calc.go", Operators: map[string]int{"AOR": 3}}}, nil))
	require.NoError(t, ui.DisplayOperators(ctx, []OperatorInfo{{Code: "ROR", Name: "relational operator replacement"}}))
	require.NoError(t, ui.DisplayReport(ctx, m.RunReport{RunID: "r2", Mutants: []m.MutantReport{{Number: 1, Target: "calc.go", Status: m.Survived, Diff: "+y\n"}}}))

	// observers are no-ops until a run view is started
	ui.OnStart(ctx, StartEvent{})
	ui.Wait(ctx)
	ui.Close(ctx)

	out := buf.String()
	assert.Contains(t, out, "calc.go")
	assert.Contains(t, out, "AOR:3")
	assert.Contains(t, out, "relational operator replacement")
	assert.Contains(t, out, "mutago r2")
}

func TestTUI_RunView(t *testing.T) {
	var buf bytes.Buffer

	ui := NewTUI(&buf, tea.WithInput(nil), tea.WithoutRenderer())
	ctx := context.Background()

	require.NoError(t, ui.Start(ctx, WithTestMode()))
	require.Error(t, ui.Start(ctx, WithTestMode()))

	n := NewNotifier(ui)
	n.Notify(ctx, StartEvent{RunID: "r3", Targets: []m.Path{"a.go"}})
	n.Notify(ctx, OutcomeEvent{Report: m.MutantReport{Number: 1, Target: "a.go", Status: m.Killed}})
	n.Notify(ctx, EndEvent{})

	ui.Close(ctx)
	require.NoError(t, ui.Err())
}

func TestNewUI_TTYMode(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})

	ui := NewUI(cmd, true)

	if _, ok := ui.(*TUI); !ok {
		t.Errorf("NewUI(true) returned %T, want *TUI", ui)
	}
}

func TestNewUI_NonTTYMode(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})

	ui := NewUI(cmd, false)

	if _, ok := ui.(*SimpleUI); !ok {
		t.Errorf("NewUI(false) returned %T, want *SimpleUI", ui)
	}
}

func TestIsTTY_WithRegularFile(t *testing.T) {
	file, err := os.CreateTemp(t.TempDir(), "mutago-tty")
	if err != nil {
		t.Fatalf("CreateTemp error: %v", err)
	}
	defer file.Close()

	if IsTTY(file) {
		t.Fatalf("IsTTY(regular file) = true, want false")
	}
}

func TestIsTTY_WithNonFile(t *testing.T) {
	var buf bytes.Buffer

	if IsTTY(&buf) {
		t.Error("IsTTY(buffer) = true, want false")
	}
}
