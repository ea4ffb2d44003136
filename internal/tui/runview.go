package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ralphcodes/ralph/internal/runner"
	"github.com/ralphcodes/ralph/internal/util"
)

// tickMsg drives the periodic snapshot refresh.
type tickMsg time.Time

const refreshInterval = 250 * time.Millisecond

// RunModel is the live view of one running task: status, attempt counter,
// waiting countdown, and the controls the loop supports.
type RunModel struct {
	task    *runner.Task
	snap    runner.Snapshot
	spinner spinner.Model
	width   int
	// quitOnFinish exits the program automatically once the run reaches a
	// terminal status.
	quitOnFinish bool
}

// NewRunView creates the live view for a task.
func NewRunView(task *runner.Task, quitOnFinish bool) *RunModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return &RunModel{
		task:         task,
		snap:         task.Runner.Snapshot(),
		spinner:      sp,
		quitOnFinish: quitOnFinish,
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init implements tea.Model.
func (m *RunModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tick())
}

// Update implements tea.Model.
func (m *RunModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.snap = m.task.Runner.Snapshot()
		if m.quitOnFinish && m.snap.Status.Terminal() {
			return m, tea.Quit
		}
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "p":
			m.task.Runner.Pause()
		case "r":
			m.task.Runner.Resume()
		case "s":
			m.task.Runner.Stop()
		case "k":
			m.task.Runner.ForceKill()
		case "c":
			m.task.Runner.Decide(true)
		case "x":
			m.task.Runner.Decide(false)
		}
		m.snap = m.task.Runner.Snapshot()
		return m, nil
	}
	return m, nil
}

// View implements tea.Model.
func (m *RunModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Ralph run"))
	b.WriteString("\n\n")

	// Value columns start after the 9-wide label
	valueWidth := m.width - 9

	status := string(m.snap.Status)
	line := statusStyle(status).Render(status)
	if !m.snap.Status.Terminal() {
		line = m.spinner.View() + " " + line
	}
	if valueWidth > 0 {
		line = util.TruncateANSI(line, valueWidth)
	}
	target := m.task.Folder
	if valueWidth > 0 {
		target = util.TruncateString(target, valueWidth)
	}
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("status: "), line)
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("target: "), target)
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("model:  "), m.task.Model)
	fmt.Fprintf(&b, "%s %d/%d\n", labelStyle.Render("attempt:"), m.snap.Attempt, m.snap.MaxAttempts)
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("elapsed:"), util.FormatElapsed(m.task.Elapsed()))

	if m.snap.Status == runner.StatusWaiting {
		fmt.Fprintf(&b, "%s %s (%ds remaining)\n",
			labelStyle.Render("waiting:"), m.snap.WaitReason,
			int(m.snap.WaitRemaining.Seconds())+1)
	}
	if m.snap.PausePending {
		b.WriteString(labelStyle.Render("pause queued for next loop boundary") + "\n")
	}
	if m.snap.Status == runner.StatusMissingCheckpoint {
		b.WriteString("\nno checkpoint was written this iteration\n")
		b.WriteString(helpStyle.Render("c: continue anyway  x: stop the loop") + "\n")
	}
	if m.snap.Err != "" {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("error:  "), m.snap.Err)
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("p: pause  r: resume  s: stop  k: kill  q: quit"))
	b.WriteString("\n")
	return b.String()
}
