package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/marshallshelly/jobstore/pkg/migration"
)

// ConfirmationDialog asks before migrations touch the database. No is the
// default answer.
type ConfirmationDialog struct {
	Title       string
	Message     string
	YesSelected bool
}

func NewConfirmationDialog(title, message string) ConfirmationDialog {
	return ConfirmationDialog{Title: title, Message: message}
}

// Update applies a key press. decided is true once the user has answered.
func (d *ConfirmationDialog) Update(msg tea.KeyMsg) (decided, confirmed bool) {
	switch msg.String() {
	case "y", "Y":
		return true, true
	case "n", "N", "esc", "q":
		return true, false
	case "enter":
		return true, d.YesSelected
	case "tab":
		d.YesSelected = !d.YesSelected
	case "left", "h":
		d.YesSelected = true
	case "right", "l":
		d.YesSelected = false
	}
	return false, false
}

func (d ConfirmationDialog) View() string {
	yes, no := inactiveButtonStyle, activeButtonStyle
	if d.YesSelected {
		yes, no = activeButtonStyle, inactiveButtonStyle
	}
	buttons := lipgloss.JoinHorizontal(lipgloss.Left, yes.Render("Yes"), "  ", no.Render("No"))
	help := helpStyle.Render(strings.Join([]string{
		FormatKey("←/→", "choose"),
		FormatKey("y/n", "answer"),
		FormatKey("esc", "back"),
	}, " • "))
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(d.Title), d.Message, "", buttons, help))
}

// MigrationItem is one row of the migration list.
type MigrationItem struct {
	Version   string
	Name      string
	Status    migration.MigrationStatus
	AppliedAt *time.Time
	Marked    bool
}

func (i MigrationItem) FilterValue() string { return i.Version + " " + i.Name }

func (i MigrationItem) Title() string {
	box := "[ ]"
	if i.Marked {
		box = infoStyle.Render("[x]")
	}
	return box + " " + FormatStatus(i.Status) + " " + i.Version + " " + i.Name
}

func (i MigrationItem) Description() string {
	if i.AppliedAt == nil {
		return mutedStyle.Render("not applied")
	}
	return mutedStyle.Render("applied " + i.AppliedAt.Local().Format(time.DateTime))
}

// MigrationItemDelegate draws a MigrationItem on two lines with a cursor
// marker on the selected row.
type MigrationItemDelegate struct{}

func (MigrationItemDelegate) Height() int                         { return 2 }
func (MigrationItemDelegate) Spacing() int                        { return 1 }
func (MigrationItemDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }

func (MigrationItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	i, ok := item.(MigrationItem)
	if !ok {
		return
	}
	style, cursor := unselectedItemStyle, "  "
	if index == m.Index() {
		style, cursor = selectedItemStyle, "▸ "
	}
	fmt.Fprint(w, style.Render(cursor+i.Title()+"\n  "+i.Description()))
}

// ProgressView shows how far through the queue a run is.
type ProgressView struct {
	Current int
	Total   int
	Message string
}

func (p ProgressView) View() string {
	rows := []string{titleStyle.Render("Running migrations")}
	if p.Message != "" {
		rows = append(rows, infoStyle.Render(p.Message), "")
	}
	rows = append(rows, FormatProgressBar(p.Current, p.Total, 40))
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// LogView keeps the last MaxLen lines of a run.
type LogView struct {
	Logs   []string
	MaxLen int
}

func NewLogView(maxLen int) LogView {
	return LogView{MaxLen: maxLen}
}

func (l *LogView) AddLog(entry string) {
	l.Logs = append(l.Logs, entry)
	if over := len(l.Logs) - l.MaxLen; l.MaxLen > 0 && over > 0 {
		l.Logs = l.Logs[over:]
	}
}

func (l LogView) View() string {
	if len(l.Logs) == 0 {
		return mutedStyle.Render("waiting for output")
	}
	lines := make([]string, len(l.Logs))
	for i, entry := range l.Logs {
		lines[i] = mutedStyle.Render("› ") + entry
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}
