// Package tui is an interactive terminal browser for published briefs.
package tui

import (
	"fmt"
	"strings"

	"newsbrief/internal/core"
	"newsbrief/internal/render"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const defaultWidth = 100

var (
	docStyle      = lipgloss.NewStyle().Margin(1, 2)
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	paneStyle     = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), true).Padding(0, 1)
)

// Model is the browser state: a list of briefs, newest first, and the
// selected item of the current brief.
type Model struct {
	briefs      []*core.BriefManifest
	briefIdx    int
	selectedIdx int
	width       int
	height      int
	quitting    bool
}

// New returns a browser over briefs, starting at the first one.
func New(briefs []*core.BriefManifest) Model {
	return Model{briefs: briefs}
}

// Brief returns the brief on screen, nil when there are none.
func (m Model) Brief() *core.BriefManifest {
	if len(m.briefs) == 0 {
		return nil
	}
	return m.briefs[m.briefIdx]
}

// Selected returns the highlighted item, nil when the brief is empty.
func (m Model) Selected() *core.ManifestItem {
	b := m.Brief()
	if b == nil || m.selectedIdx >= len(b.Items) {
		return nil
	}
	return &b.Items[m.selectedIdx]
}

// Init is the first command that will be run. We don't need any.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model accordingly.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		case "up", "k":
			if m.selectedIdx > 0 {
				m.selectedIdx--
			}
		case "down", "j":
			if b := m.Brief(); b != nil && m.selectedIdx < len(b.Items)-1 {
				m.selectedIdx++
			}
		case "right", "l", "n":
			// Older brief.
			if m.briefIdx < len(m.briefs)-1 {
				m.briefIdx++
				m.selectedIdx = 0
			}
		case "left", "h", "p":
			if m.briefIdx > 0 {
				m.briefIdx--
				m.selectedIdx = 0
			}
		}
	}

	return m, nil
}

// View renders the item list next to the selected item.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	b := m.Brief()
	if b == nil {
		return docStyle.Render("No briefs found.\n\n" + mutedStyle.Render("[q] Quit"))
	}

	width := m.width
	if width <= 0 {
		width = defaultWidth
	}
	paneWidth := width/2 - 5
	if paneWidth < 20 {
		paneWidth = 20
	}

	heading := render.Title(b)
	if b.Topic != "" {
		heading += " (" + b.Topic + ")"
	}
	heading = titleStyle.Render(heading) + mutedStyle.Render(fmt.Sprintf("  %d of %d", m.briefIdx+1, len(m.briefs)))

	left := paneStyle.Width(paneWidth).Render(m.listView())
	right := paneStyle.Width(paneWidth).Render(m.detailView())
	help := mutedStyle.Render("[↑/k] Up | [↓/j] Down | [←/h] Newer | [→/l] Older | [q] Quit")

	return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		heading,
		lipgloss.JoinHorizontal(lipgloss.Top, left, right),
		help,
	))
}

func (m Model) listView() string {
	b := m.Brief()
	if len(b.Items) == 0 {
		return "No stories matched this brief."
	}
	lines := make([]string, 0, len(b.Items))
	for i, it := range b.Items {
		line := fmt.Sprintf("%d. %s", it.Rank, it.Title)
		if i == m.selectedIdx {
			line = selectedStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) detailView() string {
	it := m.Selected()
	if it == nil {
		return mutedStyle.Render("Nothing selected.")
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render(it.Title) + "\n")
	s.WriteString(mutedStyle.Render(fmt.Sprintf("%s · %s · score %.2f", it.Source, it.PublishedAt.UTC().Format("2006-01-02 15:04"), it.Score)) + "\n\n")
	if it.Summary != nil {
		s.WriteString(*it.Summary)
	} else {
		s.WriteString(mutedStyle.Render(render.UnavailableMarker))
	}
	s.WriteString("\n\n")
	if len(it.AlternateSources) > 0 {
		s.WriteString("Also reported by: " + strings.Join(it.AlternateSources, ", ") + "\n")
	}
	if len(it.MatchedTopics) > 0 {
		s.WriteString("Topics: " + strings.Join(it.MatchedTopics, ", ") + "\n")
	}
	s.WriteString(it.URL)
	return s.String()
}

// Run starts the browser in the alternate screen and blocks until it quits.
func Run(briefs []*core.BriefManifest, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)
	if _, err := tea.NewProgram(New(briefs), opts...).Run(); err != nil {
		return fmt.Errorf("error running browser: %w", err)
	}
	return nil
}
