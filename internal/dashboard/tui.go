// Package dashboard renders a ScanSnapshot as a live-refreshing terminal
// tree view, reachable via `vibetree tree`. Adapted from the teacher's
// internal/dashboard task-queue TUI: same bubbletea/lipgloss panel
// chrome and git-graph sub-panel, rebuilt around a branch tree instead
// of a task queue.
package dashboard

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vibetree/vibetree/internal/scanner"
)

const (
	panelTotalWidth = 69
	panelInnerWidth = 65
)

var (
	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8b949e"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8b949e"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#c9d1d9"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d4a054"))

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7eb8da"))

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7ec699"))

	dirtyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d48a8a"))

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#c9d1d9"))
)

// ScanFn re-runs a scan of the watched repo. Injected by cmd/vibetree so
// the dashboard package stays decoupled from internal/gateway's wiring.
type ScanFn func() (*scanner.Snapshot, error)

// Model is the TUI model for the tree view.
type Model struct {
	version     string
	projectPath string
	scan        ScanFn

	snapshot *scanner.Snapshot
	err      string
	selected int

	width, height int
	quitting      bool

	gitGraphMode   GitGraphMode
	gitGraphState  *GitGraphState
	gitGraphScroll int
	gitGraphFocus  bool
}

type tickMsg time.Time

type scanResultMsg struct {
	snapshot *scanner.Snapshot
	err      error
}

// NewModel builds a Model that scans projectPath via scan on each refresh.
func NewModel(version, projectPath string, scan ScanFn) Model {
	return Model{
		version:     version,
		projectPath: projectPath,
		scan:        scan,
		gitGraphMode: GitGraphHidden,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.refreshCmd(), refreshGitGraphCmd(m.projectPath), gitRefreshTickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		if m.scan == nil {
			return scanResultMsg{}
		}
		snap, err := m.scan()
		return scanResultMsg{snapshot: snap, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			return m, m.refreshCmd()
		case "g":
			if m.gitGraphMode == GitGraphHidden {
				m.gitGraphMode = GitGraphVisible
			} else {
				m.gitGraphMode = GitGraphHidden
			}
			return m, refreshGitGraphCmd(m.projectPath)
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
			return m, nil
		case "down", "j":
			if m.snapshot != nil && m.selected < len(m.snapshot.Nodes)-1 {
				m.selected++
			}
			return m, nil
		}
		return m, nil

	case tickMsg:
		return m, tea.Batch(tickCmd(), m.refreshCmd())

	case scanResultMsg:
		if msg.err != nil {
			m.err = msg.err.Error()
		} else {
			m.err = ""
			m.snapshot = msg.snapshot
		}
		return m, nil

	case gitRefreshMsg:
		m.gitGraphState = msg.state
		return m, nil

	case gitRefreshTickMsg:
		if m.gitGraphMode == GitGraphVisible {
			return m, tea.Batch(refreshGitGraphCmd(m.projectPath), gitRefreshTickCmd())
		}
		return m, gitRefreshTickCmd()
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(renderPanel("vibetree "+m.version, m.renderTree()))
	if m.gitGraphMode == GitGraphVisible {
		b.WriteString("\n")
		b.WriteString(m.renderGitGraph())
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓ select  g git graph  r refresh  q quit"))
	return b.String()
}

func (m Model) renderTree() string {
	if m.err != "" {
		return warningStyle.Render("scan failed: " + m.err)
	}
	if m.snapshot == nil {
		return dimStyle.Render("scanning…")
	}

	children := make(map[string][]string)
	for _, e := range m.snapshot.Edges {
		children[e.Parent] = append(children[e.Parent], e.Child)
	}
	byName := make(map[string]scanner.TreeNode, len(m.snapshot.Nodes))
	for _, n := range m.snapshot.Nodes {
		byName[n.BranchName] = n
	}

	var lines []string
	var walk func(name string, depth int)
	walk = func(name string, depth int) {
		if node, ok := byName[name]; ok {
			lines = append(lines, m.renderNode(node, depth, len(lines) == m.selected))
		}
		for _, child := range children[name] {
			walk(child, depth+1)
		}
	}
	walk(m.snapshot.DefaultBranch, 0)

	if len(lines) == 0 {
		return dimStyle.Render("no branches")
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderNode(node scanner.TreeNode, depth int, selected bool) string {
	indent := strings.Repeat("  ", depth)
	name := node.BranchName
	style := labelStyle
	if selected {
		style = selectedStyle
	}
	line := indent + "├─ " + style.Render(name)

	var badges []string
	for _, badge := range node.Badges {
		switch badge {
		case scanner.BadgeDirty:
			badges = append(badges, dirtyStyle.Render("dirty"))
		case scanner.BadgeActive:
			badges = append(badges, activeStyle.Render("active"))
		case scanner.BadgePR:
			badges = append(badges, activeStyle.Render("pr"))
		case scanner.BadgePRMerged:
			badges = append(badges, doneStyle.Render("merged"))
		default:
			badges = append(badges, badge)
		}
	}
	if len(badges) > 0 {
		line += " " + dimStyle.Render("["+strings.Join(badges, " ")+"]")
	}
	return line
}

func renderPanel(title, content string) string {
	titleUpper := strings.ToUpper(title)
	prefixStr := "╭─ " + titleUpper + " "
	dashCount := panelTotalWidth - lipgloss.Width(prefixStr) - 1
	if dashCount < 0 {
		dashCount = 0
	}
	top := "╭─ " + titleUpper + " " + strings.Repeat("─", dashCount) + "╮"
	bottom := "╰" + strings.Repeat("─", panelTotalWidth-2) + "╯"

	var lines []string
	lines = append(lines, top)
	for _, l := range strings.Split(content, "\n") {
		lines = append(lines, "│ "+padOrTruncate(l, panelInnerWidth)+" │")
	}
	lines = append(lines, bottom)
	return strings.Join(lines, "\n")
}

func padOrTruncate(s string, width int) string {
	w := lipgloss.Width(s)
	if w > width {
		return truncateVisual(s, width)
	}
	return s + strings.Repeat(" ", width-w)
}

func truncateVisual(s string, width int) string {
	if width <= 1 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "…"
}

// Run starts the tree TUI over projectPath, re-scanning via scan.
func Run(version, projectPath string, scan ScanFn) error {
	p := tea.NewProgram(NewModel(version, projectPath, scan), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
