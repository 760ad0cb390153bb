// Package controller provides the observers that report mutation runs to
// the user, and the event types they receive.
package controller

import (
	"context"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	m "mutago.dev/pkg/mutago/internal/model"
)

// TargetEstimate is the number of applicable mutations in one target, by
// operator code.
type TargetEstimate struct {
	Path      m.Path
	Operators map[string]int
}

// Total returns the number of mutations across operators.
func (e TargetEstimate) Total() int {
	total := 0
	for _, n := range e.Operators {
		total += n
	}

	return total
}

// OperatorInfo describes an available mutation operator.
type OperatorInfo struct {
	Code string
	Name string
}

// StartMode defines the mode of operation for the UI.
type StartMode int

// Available StartMode values.
const (
	ModeEstimate StartMode = iota
	ModeTest
)

// StartOption is a functional option for Start method.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	mode StartMode
}

// WithEstimateMode sets the UI to estimation mode.
func WithEstimateMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeEstimate
	}
}

// WithTestMode sets the UI to test execution mode.
func WithTestMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeTest
	}
}

func newStartConfig(options []StartOption) StartConfig {
	cfg := StartConfig{mode: ModeEstimate}
	for _, opt := range options {
		opt(&cfg)
	}

	return cfg
}

// UI observes a run and renders the list and view commands.
type UI interface {
	StartObserver
	BaselineObserver
	BaselineFailedObserver
	LoadErrorObserver
	CoverageObserver
	MutationObserver
	OutcomeObserver
	EndObserver

	Start(ctx context.Context, options ...StartOption) error
	Close(ctx context.Context)
	Wait(ctx context.Context) // Wait for UI to finish (user closes it)
	DisplayEstimation(ctx context.Context, estimates []TargetEstimate, err error) error
	DisplayOperators(ctx context.Context, operators []OperatorInfo) error
	DisplayReport(ctx context.Context, report m.RunReport) error
}

// NewUI returns a TUI for terminals and a SimpleUI otherwise.
func NewUI(cmd *cobra.Command, useTTY bool) UI {
	if useTTY {
		return NewTUI(cmd.OutOrStdout())
	}

	return NewSimpleUI(cmd)
}

// IsTTY reports whether w is an interactive terminal.
func IsTTY(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}
