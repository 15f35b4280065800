package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// BrowseCmd opens a scrollable, searchable view of the tree.
type BrowseCmd struct {
	Tree treeFlags `embed:""`
}

func (cmd *BrowseCmd) Run(ctx context.Context, cfg *UserConfig) error {
	root, err := loadView(ctx, cfg, cmd.Tree)
	if err != nil {
		return err
	}
	title := "Catalog"
	if cmd.Tree.Primary {
		title += " (primary categories)"
	}
	p := tea.NewProgram(newBrowseModel(title, root), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	return err
}

// browseModel is the Bubble Tea model for the tree browser.
type browseModel struct {
	viewport viewport.Model
	title    string
	root     *viewNode
	lines    []string // rendered tree lines
	plain    []string // lines without styling, for search
	ready    bool
	width    int
	height   int

	// Search state
	searching bool
	filter    string
	matches   []int // line indices that match
	matchIdx  int   // current match index
}

var (
	brTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#89b4fa"))

	brHelpStyle = lipgloss.NewStyle().
			Faint(true)

	brSearchStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bb9af7"))

	brMatchStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#414868")).
			Foreground(lipgloss.Color("#c0caf5"))
)

func newBrowseModel(title string, root *viewNode) browseModel {
	return browseModel{title: title, root: root}
}

func (m browseModel) Init() tea.Cmd {
	return nil
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 2 // title + divider
		footerHeight := 1 // help line
		viewportHeight := max(m.height-headerHeight-footerHeight, 1)

		if !m.ready {
			m.viewport = viewport.New(m.width, viewportHeight)
			m.viewport.YPosition = headerHeight
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = viewportHeight
		}

		// Lines depend on the width, so re-render on every resize.
		m.lines = renderTree(m.root, m.width)
		m.plain = make([]string, len(m.lines))
		for i, l := range m.lines {
			m.plain[i] = ansi.Strip(l)
		}
		m.updateMatches()
		m.refreshContent()
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.handleSearchInput(msg)
		}
		return m.handleNormalInput(msg)
	}

	return m, nil
}

func (m browseModel) handleSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.searching = false
		m.clearSearch()
	case tea.KeyEnter:
		m.searching = false
		if m.filter != "" {
			m.updateMatches()
			m.refreshContent()
			if len(m.matches) > 0 {
				m.jumpToMatch(0)
			}
		}
	case tea.KeyBackspace:
		if len(m.filter) > 0 {
			m.filter = m.filter[:len(m.filter)-1]
		}
	case tea.KeyCtrlU:
		m.filter = ""
	case tea.KeyCtrlW:
		i := len(m.filter)
		for i > 0 && m.filter[i-1] == ' ' {
			i--
		}
		for i > 0 && m.filter[i-1] != ' ' {
			i--
		}
		m.filter = m.filter[:i]
	default:
		if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
			m.filter += string(msg.Runes)
		}
	}
	return m, nil
}

func (m browseModel) handleNormalInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		if m.filter != "" {
			m.clearSearch()
			return m, nil
		}
		return m, tea.Quit
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyRunes:
		if len(msg.Runes) == 1 {
			switch msg.Runes[0] {
			case 'q':
				return m, tea.Quit
			case 'g':
				if m.ready {
					m.viewport.GotoTop()
				}
				return m, nil
			case 'G':
				if m.ready {
					m.viewport.GotoBottom()
				}
				return m, nil
			case '/':
				m.searching = true
				m.filter = ""
				return m, nil
			case 'n':
				if len(m.matches) > 0 {
					m.jumpToMatch((m.matchIdx + 1) % len(m.matches))
				}
				return m, nil
			case 'N':
				if len(m.matches) > 0 {
					m.jumpToMatch((m.matchIdx - 1 + len(m.matches)) % len(m.matches))
				}
				return m, nil
			}
		}
	}

	// Pass remaining keys to viewport (arrows, j/k, pgup/pgdown)
	if m.ready {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *browseModel) clearSearch() {
	m.filter = ""
	m.matches = nil
	m.matchIdx = 0
	m.refreshContent()
}

func (m *browseModel) updateMatches() {
	m.matches = nil
	m.matchIdx = 0
	if m.filter == "" {
		return
	}
	lower := strings.ToLower(m.filter)
	for i, l := range m.plain {
		if strings.Contains(strings.ToLower(l), lower) {
			m.matches = append(m.matches, i)
		}
	}
}

func (m *browseModel) jumpToMatch(idx int) {
	if idx < 0 || idx >= len(m.matches) {
		return
	}
	m.matchIdx = idx
	m.viewport.SetYOffset(max(m.matches[idx]-m.viewport.Height/2, 0))
	m.refreshContent()
}

func (m *browseModel) refreshContent() {
	if !m.ready {
		return
	}
	if len(m.lines) == 0 {
		m.viewport.SetContent(brHelpStyle.Render(" (no fields)"))
		return
	}

	current := -1
	if len(m.matches) > 0 {
		current = m.matches[m.matchIdx]
	}
	var content strings.Builder
	for i, l := range m.lines {
		if i > 0 {
			content.WriteString("\n")
		}
		if i == current {
			content.WriteString(brMatchStyle.Render(m.plain[i]))
		} else {
			content.WriteString(l)
		}
	}
	m.viewport.SetContent(content.String())
}

func (m browseModel) View() string {
	if !m.ready {
		return ""
	}

	var b strings.Builder

	title := " " + m.title
	if m.filter != "" && !m.searching {
		title += brSearchStyle.Render(fmt.Sprintf(" [%s] ", m.filter))
		if len(m.matches) > 0 {
			title += brHelpStyle.Render(fmt.Sprintf("%d/%d", m.matchIdx+1, len(m.matches)))
		} else {
			title += brHelpStyle.Render("no matches")
		}
	}
	b.WriteString(brTitleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(brHelpStyle.Render(strings.Repeat("─", m.width)))
	b.WriteString("\n")

	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	b.WriteString(m.renderFooter())
	return b.String()
}

func (m browseModel) renderFooter() string {
	if m.searching {
		return " " + brSearchStyle.Render("/") + m.filter + brHelpStyle.Render("▏")
	}

	position := ""
	if m.viewport.TotalLineCount() > m.viewport.Height {
		position = fmt.Sprintf(" %.0f%%", m.viewport.ScrollPercent()*100)
	}

	help := "↑/↓ scroll  g/G top/bottom  / search  q quit"
	if m.filter != "" {
		help = "n/N match  Esc clear  " + help
	}
	return " " + brHelpStyle.Render(help) + brHelpStyle.Render(position)
}
