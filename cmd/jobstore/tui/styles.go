package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/marshallshelly/jobstore/pkg/migration"
)

// Palette follows the storefront brand: teal accent on slate.
var (
	accent  = lipgloss.AdaptiveColor{Light: "#0F766E", Dark: "#2DD4BF"}
	good    = lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#4ADE80"}
	caution = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}
	bad     = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	faint   = lipgloss.AdaptiveColor{Light: "#64748B", Dark: "#94A3B8"}
	ink     = lipgloss.AdaptiveColor{Light: "#0F172A", Dark: "#E2E8F0"}
	slate   = lipgloss.AdaptiveColor{Light: "#CBD5E1", Dark: "#334155"}
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(accent).MarginBottom(1)
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(good)
	warningStyle = lipgloss.NewStyle().Bold(true).Foreground(caution)
	dangerStyle  = lipgloss.NewStyle().Bold(true).Foreground(bad)
	infoStyle    = lipgloss.NewStyle().Foreground(accent)
	mutedStyle   = lipgloss.NewStyle().Foreground(faint)
	helpStyle    = mutedStyle.MarginTop(1)
	helpKeyStyle = lipgloss.NewStyle().Foreground(accent)

	selectedItemStyle   = lipgloss.NewStyle().Bold(true).Foreground(accent).PaddingLeft(2)
	unselectedItemStyle = lipgloss.NewStyle().Foreground(ink).PaddingLeft(4)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(slate).
			Padding(1, 2)

	activeButtonStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#042F2E")).Background(accent).Padding(0, 3)
	inactiveButtonStyle = lipgloss.NewStyle().Foreground(faint).Background(slate).Padding(0, 3)
)

var statusGlyphs = map[migration.MigrationStatus]struct {
	glyph string
	style lipgloss.Style
}{
	migration.StatusApplied: {"✓", successStyle},
	migration.StatusPending: {"○", warningStyle},
	migration.StatusFailed:  {"✗", dangerStyle},
}

// FormatStatus renders a migration status with its glyph.
func FormatStatus(status migration.MigrationStatus) string {
	if g, ok := statusGlyphs[status]; ok {
		return g.style.Render(g.glyph + " " + string(status))
	}
	return mutedStyle.Render(string(status))
}

// FormatProgressBar renders current/total as a bar of width cells.
func FormatProgressBar(current, total, width int) string {
	filled := 0
	if total > 0 {
		filled = min(width*current/total, width)
	}
	bar := infoStyle.Render(strings.Repeat("█", filled)) + mutedStyle.Render(strings.Repeat("░", width-filled))
	if total <= 0 {
		return bar
	}
	return bar + " " + fmt.Sprintf("%d/%d", current, total)
}

// FormatKey renders one help entry.
func FormatKey(key, description string) string {
	return helpKeyStyle.Render(key) + " " + mutedStyle.Render(description)
}
