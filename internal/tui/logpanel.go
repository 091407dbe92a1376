package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/clive/sprint-carryover/internal/model"
)

// LogPanel shows the session log, collapsed to its last line by default
type LogPanel struct {
	expanded bool
	viewport viewport.Model
}

// NewLogPanel creates a collapsed log panel
func NewLogPanel() LogPanel {
	return LogPanel{viewport: viewport.New(0, 0)}
}

// Expanded reports whether the full log is visible
func (p *LogPanel) Expanded() bool {
	return p.expanded
}

// Toggle expands or collapses the panel
func (p *LogPanel) Toggle() {
	p.expanded = !p.expanded
}

// SetSize sizes the scrollable area
func (p *LogPanel) SetSize(width, height int) {
	p.viewport.Width = width
	p.viewport.Height = height
}

// Sync re-renders the viewport. It stays pinned to the bottom unless the user
// scrolled up.
func (p *LogPanel) Sync(entries []model.LogEntry) {
	follow := p.viewport.AtBottom()
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = severityStyle(e.Severity).Render(e.String())
	}
	p.viewport.SetContent(strings.Join(lines, "\n"))
	if follow {
		p.viewport.GotoBottom()
	}
}

// ScrollUp scrolls the expanded log
func (p *LogPanel) ScrollUp(n int) {
	p.viewport.LineUp(n)
}

// ScrollDown scrolls the expanded log
func (p *LogPanel) ScrollDown(n int) {
	p.viewport.LineDown(n)
}

// Height returns the rendered height including the border
func (p *LogPanel) Height() int {
	if !p.expanded {
		return 1
	}
	return p.viewport.Height + 3
}

// Render renders the panel
func (p *LogPanel) Render(width int, entries []model.LogEntry) string {
	if !p.expanded {
		line := DimStyle.Render("▸ Log (l to expand)")
		if len(entries) > 0 {
			last := entries[len(entries)-1]
			line += DimStyle.Render("  ") + severityStyle(last.Severity).Render(truncate(last.String(), width-24))
		}
		return line
	}

	title := lipgloss.NewStyle().
		Foreground(ColorYellow).
		Bold(true).
		Render("▾ LOG")

	return lipgloss.NewStyle().
		Width(width-2).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorYellow).
		Padding(0, 1).
		Render(title + "\n" + p.viewport.View())
}
