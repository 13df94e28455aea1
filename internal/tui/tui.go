// Package tui is a terminal browser for a finished content run.
package tui

import (
	"fmt"
	"strings"

	"dealerstudio/internal/core"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Model holds the review state for one pipeline result.
type Model struct {
	result      core.PipelineResult
	selectedIdx int
	width       int
	height      int
	quitting    bool
}

// NewModel returns the initial review state for result.
func NewModel(result core.PipelineResult) Model {
	return Model{result: result, width: 120}
}

// Selected returns the item under the cursor and false when the run is empty.
func (m Model) Selected() (core.ContentItem, bool) {
	if m.selectedIdx < 0 || m.selectedIdx >= len(m.result.Content) {
		return core.ContentItem{}, false
	}
	return m.result.Content[m.selectedIdx], true
}

// Init is the first command that will be run. We don't need any.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles key presses and resizes.
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
			if m.selectedIdx < len(m.result.Content)-1 {
				m.selectedIdx++
			}
		case "home", "g":
			m.selectedIdx = 0
		case "end", "G":
			if n := len(m.result.Content); n > 0 {
				m.selectedIdx = n - 1
			}
		}
	}
	return m, nil
}

// View renders the item list beside the selected item's details.
func (m Model) View() string {
	if m.quitting {
		return "Quitting...\n"
	}

	paneWidth := m.width/2 - 5
	if paneWidth < 30 {
		paneWidth = 30
	}
	docStyle := lipgloss.NewStyle().Margin(1, 2)
	listStyle := lipgloss.NewStyle().Border(lipgloss.NormalBorder(), true).Padding(1).Width(paneWidth)
	detailStyle := lipgloss.NewStyle().Border(lipgloss.NormalBorder(), true).Padding(1).Width(paneWidth)
	cursorStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))

	var list strings.Builder
	fmt.Fprintf(&list, "Run %s (%d items)\n\n", m.result.RunID, len(m.result.Content))
	if len(m.result.Content) == 0 {
		list.WriteString("No content in this run.")
	}
	for i, item := range m.result.Content {
		mark := "✅"
		if !item.Success {
			mark = "❌"
		}
		line := fmt.Sprintf("%s %-9s %s", mark, item.Platform, item.CarID)
		if i == m.selectedIdx {
			line = cursorStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		list.WriteString(line + "\n")
	}

	q := m.result.QualityMetrics
	fmt.Fprintf(&list, "\nUniqueness %.0f · Accuracy %.0f · Images %.0f%%\n",
		q.Metrics.TextUniqueness, q.Metrics.Accuracy, q.Metrics.ImageSuccessRate)
	if q.Report.Approved {
		list.WriteString("Approved")
	} else {
		list.WriteString("Not approved")
	}

	leftPane := listStyle.Render(list.String())
	rightPane := detailStyle.Render(m.detail())
	help := "\n\n[↑/k] Up | [↓/j] Down | [g/G] First/Last | [q] Quit"

	return docStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top, leftPane, rightPane) + help)
}

func (m Model) detail() string {
	item, ok := m.Selected()
	if !ok {
		return "Nothing selected."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s · %s\n\n", item.Platform, item.CarID)
	if item.Text != "" {
		b.WriteString(item.Text)
		b.WriteString("\n\n")
	}
	if len(item.Hashtags) > 0 {
		b.WriteString(strings.Join(item.Hashtags, " "))
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Image: %s\n", item.ImageStatus)
	if item.ImageURL != "" {
		fmt.Fprintf(&b, "%s\n", item.ImageURL)
	}
	if item.Transform != "" {
		fmt.Fprintf(&b, "Scene: %s\n", item.Transform)
	}
	fmt.Fprintf(&b, "Cost: $%s", item.Cost.StringFixed(4))
	if item.Cached {
		b.WriteString(" (cached)")
	}
	for _, e := range item.Errors {
		fmt.Fprintf(&b, "\n⚠ %s", e)
	}
	return b.String()
}

// Run starts the review program on the alternate screen.
func Run(result core.PipelineResult) error {
	p := tea.NewProgram(NewModel(result), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running review UI: %w", err)
	}
	return nil
}
