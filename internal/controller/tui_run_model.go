package controller

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	m "mutago.dev/pkg/mutago/internal/model"
)

var (
	accentColor = lipgloss.Color("6")

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Padding(1, 0, 0, 2)

	summaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Padding(0, 0, 1, 2)

	accentStyle = lipgloss.NewStyle().Foreground(accentColor)
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true).Padding(0, 2)

	statusColors = map[string]lipgloss.Color{
		m.Killed.String():      lipgloss.Color("2"),
		m.Survived.String():    lipgloss.Color("1"),
		m.Incompetent.String(): lipgloss.Color("8"),
		m.Timeout.String():     lipgloss.Color("3"),
	}
)

type resultDelegate struct{}

func (d resultDelegate) Height() int  { return 1 }
func (d resultDelegate) Spacing() int { return 0 }
func (d resultDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

func (d resultDelegate) Render(w io.Writer, lm list.Model, index int, item list.Item) {
	result, ok := item.(resultItem)
	if !ok {
		return
	}

	statusStyle := lipgloss.NewStyle().Foreground(statusColors[result.status]).Bold(true).Width(12)
	numberStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Width(6)
	targetStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14"))

	if index == lm.Index() {
		selected := lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(accentColor).Bold(true)
		statusStyle = selected.Width(12)
		numberStyle = selected.Width(6)
		targetStyle = selected
	}

	line := fmt.Sprintf("%s %s %s",
		numberStyle.Render(fmt.Sprintf("#%d", result.number)),
		statusStyle.Render(result.status),
		targetStyle.Render(truncate(result.target+" "+result.muts, lm.Width()-20)),
	)
	_, _ = fmt.Fprint(w, line)
}

// runModel renders a mutation run as it happens and lets the user browse the
// results once it ends.
type runModel struct {
	width    int
	height   int
	spinner  spinner.Model
	progress progress.Model
	results  list.Model

	runID    string
	targets  []m.Path
	done     map[m.Path]bool
	current  string
	phase    string
	failure  string
	score    m.MutationScore
	duration time.Duration
	finished bool
	showDiff bool
}

func newRunModel() runModel {
	results := list.New([]list.Item{}, resultDelegate{}, 80, 20)
	results.SetShowPagination(false)
	results.SetShowHelp(false)
	results.SetShowTitle(false)
	results.SetShowStatusBar(false)

	return runModel{
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(accentStyle)),
		progress: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(40),
			progress.WithoutPercentage(),
		),
		results: results,
		done:    make(map[m.Path]bool),
		phase:   "loading",
	}
}

func (rm runModel) Init() tea.Cmd {
	return tea.Batch(rm.spinner.Tick, tick())
}

func tick() tea.Cmd {
	return tea.Tick(150*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

//nolint:cyclop // one case per message kind
func (rm runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		rm.width, rm.height = msg.Width, msg.Height
		rm.progress.Width = max(msg.Width-8, 20)
		rm.results.SetSize(max(msg.Width-4, 20), max(msg.Height-12, 5))
	case tea.KeyMsg:
		return rm.handleKey(msg)
	case spinner.TickMsg:
		var cmd tea.Cmd
		rm.spinner, cmd = rm.spinner.Update(msg)

		return rm, cmd
	case tickMsg:
		if rm.finished {
			return rm, nil
		}

		return rm, tick()
	case StartEvent:
		rm.runID = msg.RunID
		rm.targets = msg.Targets
		rm.phase = "baseline"
	case BaselineEvent:
		rm.phase = "mutating"
	case BaselineFailedEvent:
		rm.failure = "baseline failed"
		if len(msg.Run.Failures) > 0 {
			rm.failure += ": " + msg.Run.Failures[0].String()
		}
	case LoadErrorEvent:
		rm.failure = "load error: " + msg.Err.Error()
	case CoverageEvent:
		rm.current = fmt.Sprintf("coverage %s %d/%d", msg.Target, msg.Covered, msg.Total)
	case MutationEvent:
		rm.markTarget(msg.Target)
		rm.current = fmt.Sprintf("#%d %s %s", msg.Number, msg.Target, describeMutations(msg.Mutations))
	case OutcomeEvent:
		rm.addResult(msg.Report)
	case EndEvent:
		rm.score = msg.Score
		rm.duration = msg.Duration
		rm.finished = true
		rm.phase = "done"
	}

	return rm, nil
}

// markTarget counts every target before t as finished; targets are mutated
// in order.
func (rm *runModel) markTarget(t m.Path) {
	for _, target := range rm.targets {
		if target == t {
			return
		}

		rm.done[target] = true
	}
}

func (rm *runModel) addResult(r m.MutantReport) {
	item := resultItem{
		number: r.Number,
		target: string(r.Target),
		muts:   describeMutations(r.Mutations),
		status: r.Status.String(),
		killer: r.Killer,
		diff:   r.Diff,
	}

	rm.results.InsertItem(len(rm.results.Items()), item)
	rm.score.Record(r.Status)
}

func (rm runModel) progressPercent() float64 {
	if rm.finished {
		return 1
	}

	if len(rm.targets) == 0 {
		return 0
	}

	return float64(len(rm.done)) / float64(len(rm.targets))
}

func (rm runModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return rm, tea.Quit
	case "enter", " ":
		if rm.finished {
			rm.showDiff = !rm.showDiff
		}

		return rm, nil
	}

	if !rm.finished {
		return rm, nil
	}

	var cmd tea.Cmd
	rm.results, cmd = rm.results.Update(msg)

	return rm, cmd
}

func (rm runModel) View() string {
	title := titleStyle.Render("mutago")
	if rm.runID != "" {
		title = titleStyle.Render("mutago " + rm.runID)
	}

	sections := []string{title, rm.viewSummary()}

	if rm.failure != "" {
		sections = append(sections, errorStyle.Render(rm.failure))
	} else if !rm.finished {
		sections = append(sections,
			lipgloss.NewStyle().Padding(0, 2).Render(rm.progress.ViewAs(rm.progressPercent())),
			lipgloss.NewStyle().Padding(1, 2).Render(rm.spinner.View()+" "+rm.phase+" "+rm.current),
		)
	}

	if len(rm.results.Items()) > 0 {
		sections = append(sections, lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Padding(0, 1).
			Render(rm.results.View()))
	}

	if rm.showDiff {
		if item, ok := rm.results.SelectedItem().(resultItem); ok && item.diff != "" {
			sections = append(sections, renderDiff(item.diff))
		}
	}

	sections = append(sections, footerStyle.Padding(0, 2).Render("↑/k up • ↓/j down • / filter • enter diff • q quit"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (rm runModel) viewSummary() string {
	count := func(n int) string { return accentStyle.Render(fmt.Sprintf("%d", n)) }

	line := fmt.Sprintf("Mutants: %s  •  Killed: %s  •  Survived: %s  •  Incompetent: %s  •  Timeout: %s",
		count(rm.score.AllMutants), count(rm.score.Killed), count(rm.score.Survived),
		count(rm.score.Incompetent), count(rm.score.Timeout))

	if rm.finished {
		line += fmt.Sprintf("  •  Score: %s  •  Time: %s",
			accentStyle.Render(fmt.Sprintf("%.2f%%", rm.score.Count())),
			accentStyle.Render(rm.duration.Round(time.Millisecond).String()))
	}

	return summaryStyle.Render(line)
}

func renderDiff(diff string) string {
	lines := strings.Split(strings.TrimRight(diff, "\n"), "\n")
	styled := make([]string, 0, len(lines))

	for _, line := range lines {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color("252"))

		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			style = style.Bold(true)
		case strings.HasPrefix(line, "@@"):
			style = lipgloss.NewStyle().Foreground(accentColor)
		case strings.HasPrefix(line, "+"):
			style = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
		case strings.HasPrefix(line, "-"):
			style = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
		}

		styled = append(styled, style.Render(line))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accentColor).
		Padding(0, 1).
		Render(lipgloss.JoinVertical(lipgloss.Left, styled...))
}

func truncate(text string, width int) string {
	if width <= 1 {
		return "…"
	}

	if lipgloss.Width(text) <= width {
		return text
	}

	runes := []rune(text)
	for len(runes) > 0 && lipgloss.Width(string(runes)) > width-1 {
		runes = runes[:len(runes)-1]
	}

	return string(runes) + "…"
}
