package theme

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
)

// Color palette
var (
	Primary = lipgloss.Color("#8B5CF6") // Vivid Purple
	Accent  = lipgloss.Color("#F97316") // Orange
	Success = lipgloss.Color("#22C55E") // Green
	Error   = lipgloss.Color("#F43F5E") // Rose
	TextDim = lipgloss.Color("#94A3B8") // Slate
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)
)

// States
var (
	OK = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	Fail = lipgloss.NewStyle().
		Foreground(Error).
		Bold(true)

	Warn = lipgloss.NewStyle().
		Foreground(Accent)
)

// Rule is a horizontal separator of width n.
func Rule(n int) string {
	return Hint.Render(strings.Repeat("─", n))
}

// ReviewStatus colors a review status label: overdue in red, due in
// orange, anything else dimmed.
func ReviewStatus(status string) string {
	switch status {
	case "overdue":
		return Fail.Render(status)
	case "due":
		return Warn.Render(status)
	default:
		return Hint.Render(status)
	}
}

// Check renders a pass/fail mark.
func Check(ok bool) string {
	if ok {
		return OK.Render("✓")
	}
	return Fail.Render("✗")
}

// Count renders "n label" with the number highlighted.
func Count(n int, label string) string {
	return fmt.Sprintf("%s %s", Title.Render(fmt.Sprint(n)), label)
}
