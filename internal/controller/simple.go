package controller

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	m "mutago.dev/pkg/mutago/internal/model"
)

// SimpleUI implements UI using cobra Command's output.
type SimpleUI struct {
	cmd *cobra.Command
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context, _ ...StartOption) error {
	return ctx.Err()
}

// Close finalizes the UI.
func (s *SimpleUI) Close(context.Context) {}

// Wait returns at once; SimpleUI never blocks.
func (s *SimpleUI) Wait(context.Context) {}

// DisplayEstimation prints the number of mutations per target.
func (s *SimpleUI) DisplayEstimation(ctx context.Context, estimates []TargetEstimate, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	if err != nil {
		s.printf("estimation error: %v\n", err)
		return err
	}

	s.printf("\n%s", renderEstimationTable(estimates))

	return nil
}

// DisplayOperators prints the available operators.
func (s *SimpleUI) DisplayOperators(ctx context.Context, operators []OperatorInfo) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("%s", renderOperatorTable(operators))

	return nil
}

// DisplayReport prints a stored run report.
func (s *SimpleUI) DisplayReport(ctx context.Context, report m.RunReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("Run %s started %s, took %s\n\n", report.RunID, report.Started.Format(time.RFC3339), report.Duration.Round(time.Millisecond))
	s.printf("%s\n", renderMutantTable(report.Mutants))

	for _, mutant := range report.Mutants {
		if mutant.Status == m.Survived && mutant.Diff != "" {
			s.printf("Survived #%d %s\n%s\n", mutant.Number, mutant.Target, mutant.Diff)
		}
	}

	s.printf("%s", renderScoreTable(report.Score, report.Duration))

	return nil
}

// OnStart implements StartObserver.
func (s *SimpleUI) OnStart(_ context.Context, ev StartEvent) {
	s.printf("Mutation run %s: %d target(s), tests %s\n", ev.RunID, len(ev.Targets), strings.Join(ev.Tests, " "))
}

// OnBaseline implements BaselineObserver.
func (s *SimpleUI) OnBaseline(_ context.Context, ev BaselineEvent) {
	s.printf("Baseline passed in %s\n", ev.Run.Duration.Round(time.Millisecond))
}

// OnBaselineFailed implements BaselineFailedObserver.
func (s *SimpleUI) OnBaselineFailed(_ context.Context, ev BaselineFailedEvent) {
	switch {
	case ev.Run.BuildFailed:
		s.printf("Baseline failed: tests do not build\n")
	case len(ev.Run.Failures) > 0:
		s.printf("Baseline failed: %d failing test(s)\n", len(ev.Run.Failures))

		for _, tc := range ev.Run.Failures {
			s.printf("  %s\n", tc)
		}
	default:
		s.printf("Baseline failed\n")
	}

	if ev.Run.Output != "" {
		s.printf("%s\n", strings.TrimRight(ev.Run.Output, "\n"))
	}
}

// OnLoadError implements LoadErrorObserver.
func (s *SimpleUI) OnLoadError(_ context.Context, ev LoadErrorEvent) {
	s.printf("Load error: %v\n", ev.Err)
}

// OnCoverage implements CoverageObserver.
func (s *SimpleUI) OnCoverage(_ context.Context, ev CoverageEvent) {
	s.printf("Coverage %s: %d/%d nodes\n", ev.Target, ev.Covered, ev.Total)
}

// OnMutation implements MutationObserver.
func (s *SimpleUI) OnMutation(_ context.Context, ev MutationEvent) {
	s.printf("[#%d] %s %s\n", ev.Number, ev.Target, describeMutations(ev.Mutations))
}

// OnOutcome implements OutcomeObserver.
func (s *SimpleUI) OnOutcome(_ context.Context, ev OutcomeEvent) {
	r := ev.Report
	duration := r.Duration.Round(time.Millisecond)

	switch r.Status {
	case m.Killed:
		s.printf("  killed by %s [%s]\n", r.Killer, duration)
	case m.Survived:
		s.printf("  survived [%s]\n", duration)

		if r.Diff != "" {
			s.printf("%s\n", r.Diff)
		}
	case m.Incompetent:
		s.printf("  incompetent: %s\n", r.Error)
	case m.Timeout:
		s.printf("  timeout [%s]\n", duration)
	}
}

// OnEnd implements EndObserver.
func (s *SimpleUI) OnEnd(_ context.Context, ev EndEvent) {
	s.printf("\n%s", renderScoreTable(ev.Score, ev.Duration))
}

func (s *SimpleUI) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}

func describeMutations(records []m.MutationRecord) string {
	parts := make([]string, 0, len(records))
	for _, r := range records {
		parts = append(parts, r.String())
	}

	return strings.Join(parts, ", ")
}

func renderEstimationTable(estimates []TargetEstimate) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Path", "Mutations", "Operators"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_LEFT})

	sorted := slices.SortedFunc(slices.Values(estimates), func(a, b TargetEstimate) int {
		return strings.Compare(string(a.Path), string(b.Path))
	})

	total := 0

	for _, est := range sorted {
		total += est.Total()
		table.Append([]string{string(est.Path), fmt.Sprintf("%d", est.Total()), formatOperatorCounts(est.Operators)})
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Files %d", len(sorted)),
		fmt.Sprintf("%d", total),
		"",
	})

	table.Render()

	return tableBuffer.String()
}

func formatOperatorCounts(counts map[string]int) string {
	parts := make([]string, 0, len(counts))
	for _, code := range slices.Sorted(maps.Keys(counts)) {
		parts = append(parts, fmt.Sprintf("%s:%d", code, counts[code]))
	}

	return strings.Join(parts, " ")
}

func renderOperatorTable(operators []OperatorInfo) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Code", "Operator"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT})

	for _, op := range operators {
		table.Append([]string{op.Code, op.Name})
	}

	table.Render()

	return tableBuffer.String()
}

func renderMutantTable(mutants []m.MutantReport) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"#", "Target", "Mutations", "Status", "Killer"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetCenterSeparator("")

	for _, mutant := range mutants {
		table.Append([]string{
			fmt.Sprintf("%d", mutant.Number),
			string(mutant.Target),
			describeMutations(mutant.Mutations),
			mutant.Status.String(),
			mutant.Killer,
		})
	}

	table.Render()

	return tableBuffer.String()
}

func renderScoreTable(score m.MutationScore, duration time.Duration) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Mutants", "Killed", "Survived", "Incompetent", "Timeout"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.Append([]string{
		fmt.Sprintf("%d", score.AllMutants),
		fmt.Sprintf("%d", score.Killed),
		fmt.Sprintf("%d", score.Survived),
		fmt.Sprintf("%d", score.Incompetent),
		fmt.Sprintf("%d", score.Timeout),
	})
	table.Render()

	fmt.Fprintf(&tableBuffer, "Mutation score: %.2f%%\n", score.Count())

	if score.AllNodes > 0 {
		fmt.Fprintf(&tableBuffer, "Coverage: %.2f%% of %d nodes\n", score.Coverage(), score.AllNodes)
	}

	fmt.Fprintf(&tableBuffer, "Time: %s\n", duration.Round(time.Millisecond))

	return tableBuffer.String()
}
