package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/ralphcodes/ralph/internal/workspace"
)

// viewerTab is one document in the results viewer.
type viewerTab struct {
	title   string
	content string // raw markdown
}

// ViewerModel is a tabbed, markdown-rendered viewer for the files a run
// leaves behind (RALPH-COMPLETE.md and RALPH-PROGRESS.md).
type ViewerModel struct {
	tabs     []viewerTab
	active   int
	viewport viewport.Model
	style    string
	wrap     int
	width    int
	height   int
	ready    bool
}

// NewViewer loads the result documents from dir. Missing files get a
// placeholder so the viewer always opens. style is the glamour style name;
// wrap is the render width (0 = follow the terminal).
func NewViewer(dir, style string, wrap int) *ViewerModel {
	return &ViewerModel{
		tabs: []viewerTab{
			{title: workspace.CompleteFile, content: readOrPlaceholder(dir, workspace.CompleteFile)},
			{title: workspace.ProgressFile, content: readOrPlaceholder(dir, workspace.ProgressFile)},
		},
		style: style,
		wrap:  wrap,
	}
}

func readOrPlaceholder(dir, name string) string {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return fmt.Sprintf("*%s not found in %s*\n", name, dir)
	}
	return string(data)
}

// Init implements tea.Model.
func (m *ViewerModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *ViewerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		headerHeight := 2
		footerHeight := 1
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - headerHeight - footerHeight
		}
		m.setContent()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab", "right", "l":
			m.active = (m.active + 1) % len(m.tabs)
			m.setContent()
			return m, nil
		case "shift+tab", "left", "h":
			m.active = (m.active - 1 + len(m.tabs)) % len(m.tabs)
			m.setContent()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// setContent renders the active tab's markdown into the viewport.
func (m *ViewerModel) setContent() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.render(m.tabs[m.active].content))
	m.viewport.GotoTop()
}

// render turns markdown into styled terminal text, falling back to the raw
// text when glamour cannot render.
func (m *ViewerModel) render(md string) string {
	width := m.wrap
	if width <= 0 {
		width = m.width
	}
	if width <= 0 {
		width = 80
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(m.style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

// View implements tea.Model.
func (m *ViewerModel) View() string {
	if !m.ready {
		return "loading..."
	}

	var tabs []string
	for i, tab := range m.tabs {
		if i == m.active {
			tabs = append(tabs, activeTabStyle.Render(tab.title))
		} else {
			tabs = append(tabs, tabStyle.Render(tab.title))
		}
	}
	header := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)
	footer := helpStyle.Render("tab: switch  ↑/↓: scroll  q: quit")

	return strings.Join([]string{header, "", m.viewport.View(), footer}, "\n")
}

// ActiveTab returns the title of the currently selected tab.
func (m *ViewerModel) ActiveTab() string {
	return m.tabs[m.active].title
}
