package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	m "mutago.dev/pkg/mutago/internal/model"
)

// TUI implements UI using Bubble Tea for interactive display.
type TUI struct {
	output  io.Writer
	options []tea.ProgramOption

	mu      sync.Mutex
	program *tea.Program
	done    chan struct{}
	err     error
}

// NewTUI creates a new TUI.
func NewTUI(output io.Writer, options ...tea.ProgramOption) *TUI {
	return &TUI{output: output, options: options}
}

// Start launches the run view in test mode. Estimation mode renders
// statically and starts nothing.
func (t *TUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if newStartConfig(options).mode != ModeTest {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.program != nil {
		return errors.New("tui already started")
	}

	opts := append([]tea.ProgramOption{tea.WithOutput(t.output), tea.WithContext(ctx), tea.WithAltScreen()}, t.options...)
	t.program = tea.NewProgram(newRunModel(), opts...)
	t.done = make(chan struct{})

	go func() {
		defer close(t.done)

		if _, err := t.program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			t.err = err
		}
	}()

	return nil
}

// Wait blocks until the user quits the run view.
func (t *TUI) Wait(ctx context.Context) {
	done := t.doneChan()
	if done == nil {
		return
	}

	select {
	case <-done:
	case <-ctx.Done():
	}
}

// Close stops the run view.
func (t *TUI) Close(ctx context.Context) {
	t.mu.Lock()
	program := t.program
	t.mu.Unlock()

	if program == nil {
		return
	}

	program.Quit()
	t.Wait(ctx)
}

// Err returns the error the program stopped with, if any.
func (t *TUI) Err() error {
	t.Wait(context.Background())
	return t.err
}

func (t *TUI) doneChan() chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.done
}

func (t *TUI) send(msg tea.Msg) {
	t.mu.Lock()
	program := t.program
	t.mu.Unlock()

	if program != nil {
		program.Send(msg)
	}
}

// DisplayEstimation renders the estimation table with a title.
func (t *TUI) DisplayEstimation(ctx context.Context, estimates []TargetEstimate, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	if err != nil {
		t.print(errorStyle.Render(fmt.Sprintf("estimation error: %v", err)) + "\n")
		return err
	}

	t.print(lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("mutago mutations"),
		lipgloss.NewStyle().Padding(1, 2).Render(renderEstimationTable(estimates)),
	) + "\n")

	return nil
}

// DisplayOperators renders the operator table.
func (t *TUI) DisplayOperators(ctx context.Context, operators []OperatorInfo) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.print(lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("mutago operators"),
		lipgloss.NewStyle().Padding(1, 2).Render(renderOperatorTable(operators)),
	) + "\n")

	return nil
}

// DisplayReport renders a stored run report.
func (t *TUI) DisplayReport(ctx context.Context, report m.RunReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sections := []string{
		titleStyle.Render("mutago " + report.RunID),
		lipgloss.NewStyle().Padding(1, 2).Render(renderMutantTable(report.Mutants)),
	}

	for _, mutant := range report.Mutants {
		if mutant.Status == m.Survived && mutant.Diff != "" {
			sections = append(sections, renderDiff(mutant.Diff))
		}
	}

	sections = append(sections, lipgloss.NewStyle().Padding(1, 2).Render(renderScoreTable(report.Score, report.Duration)))
	t.print(lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n")

	return nil
}

func (t *TUI) print(s string) {
	_, _ = fmt.Fprint(t.output, s)
}

// OnStart implements StartObserver.
func (t *TUI) OnStart(_ context.Context, ev StartEvent) { t.send(ev) }

// OnBaseline implements BaselineObserver.
func (t *TUI) OnBaseline(_ context.Context, ev BaselineEvent) { t.send(ev) }

// OnBaselineFailed implements BaselineFailedObserver.
func (t *TUI) OnBaselineFailed(_ context.Context, ev BaselineFailedEvent) { t.send(ev) }

// OnLoadError implements LoadErrorObserver.
func (t *TUI) OnLoadError(_ context.Context, ev LoadErrorEvent) { t.send(ev) }

// OnCoverage implements CoverageObserver.
func (t *TUI) OnCoverage(_ context.Context, ev CoverageEvent) { t.send(ev) }

// OnMutation implements MutationObserver.
func (t *TUI) OnMutation(_ context.Context, ev MutationEvent) { t.send(ev) }

// OnOutcome implements OutcomeObserver.
func (t *TUI) OnOutcome(_ context.Context, ev OutcomeEvent) { t.send(ev) }

// OnEnd implements EndObserver.
func (t *TUI) OnEnd(_ context.Context, ev EndEvent) { t.send(ev) }
