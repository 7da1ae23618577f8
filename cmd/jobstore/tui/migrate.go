// Package tui is the interactive migration runner behind "migrate -i".
package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/marshallshelly/jobstore/pkg/migration"
)

// Action is the direction the UI migrates in.
type Action string

const (
	ActionUp   Action = "up"
	ActionDown Action = "down"
)

// Mode is the current screen of the migration UI.
type Mode int

const (
	ModeList Mode = iota
	ModeConfirm
	ModeExecuting
	ModeComplete
	ModeError
)

// Executor is the part of *migration.Executor the UI drives.
type Executor interface {
	GetStatus(ctx context.Context, migrations []migration.Migration) ([]migration.MigrationRecord, error)
	WithLock(ctx context.Context, fn func(ctx context.Context) error) error
	Apply(ctx context.Context, m migration.Migration, dryRun bool) error
	Rollback(ctx context.Context, m migration.Migration, dryRun bool) error
}

// Model is the Bubbletea model for interactive migrations.
type Model struct {
	ctx        context.Context
	action     Action
	executor   Executor
	migrations []migration.Migration
	status     []migration.MigrationRecord

	mode     Mode
	list     list.Model
	marked   map[int]bool
	queue    []int
	confirm  ConfirmationDialog
	progress ProgressView
	logs     LogView
	err      error
	width    int
	height   int
}

// New creates the UI for migrations, which must be in version order.
func New(ctx context.Context, action Action, executor Executor, migrations []migration.Migration) Model {
	l := list.New(nil, MigrationItemDelegate{}, 0, 0)
	l.Title = fmt.Sprintf("Database Migrations (%s)", action)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = titleStyle

	return Model{
		ctx:        ctx,
		action:     action,
		executor:   executor,
		migrations: migrations,
		mode:       ModeList,
		list:       l,
		marked:     map[int]bool{},
		logs:       NewLogView(10),
	}
}

type statusLoadedMsg struct {
	status []migration.MigrationRecord
}

type migrationDoneMsg struct {
	version string
	err     error
}

type errorMsg struct {
	err error
}

// Init loads the current status.
func (m Model) Init() tea.Cmd {
	return func() tea.Msg {
		status, err := m.executor.GetStatus(m.ctx, m.migrations)
		if err != nil {
			return errorMsg{err: fmt.Errorf("failed to get migration status: %w", err)}
		}
		return statusLoadedMsg{status: status}
	}
}

func (m Model) run(idx int) tea.Cmd {
	mig := m.migrations[idx]
	action := m.action
	return func() tea.Msg {
		err := m.executor.WithLock(m.ctx, func(ctx context.Context) error {
			if action == ActionUp {
				return m.executor.Apply(ctx, mig, false)
			}
			return m.executor.Rollback(ctx, mig, false)
		})
		return migrationDoneMsg{version: mig.Version, err: err}
	}
}

// eligible reports whether migration idx can run in the current direction.
func (m Model) eligible(idx int) bool {
	if idx < 0 || idx >= len(m.status) {
		return false
	}
	applied := m.status[idx].Status == migration.StatusApplied
	if m.action == ActionUp {
		return !applied
	}
	return applied
}

func (m *Model) item(idx int) MigrationItem {
	s := m.status[idx]
	return MigrationItem{
		Version:   s.Version,
		Name:      s.Name,
		Status:    s.Status,
		AppliedAt: s.AppliedAt,
		Marked:    m.marked[idx],
	}
}

func (m *Model) toggle(idx int, on bool) tea.Cmd {
	if !m.eligible(idx) {
		return nil
	}
	if on {
		m.marked[idx] = true
	} else {
		delete(m.marked, idx)
	}
	return m.list.SetItem(idx, m.item(idx))
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case statusLoadedMsg:
		m.status = msg.status
		items := make([]list.Item, len(msg.status))
		for i := range msg.status {
			items[i] = m.item(i)
		}
		return m, m.list.SetItems(items)

	case migrationDoneMsg:
		if msg.err != nil {
			m.mode = ModeError
			m.err = msg.err
			m.logs.AddLog(dangerStyle.Render("Failed: " + msg.version + " - " + msg.err.Error()))
			return m, nil
		}
		m.logs.AddLog(successStyle.Render("✓ Completed: " + msg.version))
		m.progress.Current++
		if m.progress.Current >= m.progress.Total {
			m.mode = ModeComplete
			return m, nil
		}
		next := m.queue[m.progress.Current]
		m.progress.Message = fmt.Sprintf("Executing: %s - %s", m.migrations[next].Version, m.migrations[next].Name)
		return m, m.run(next)

	case errorMsg:
		m.mode = ModeError
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.mode == ModeList {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case ModeList:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case " ", "x":
			idx := m.list.Index()
			return m, m.toggle(idx, !m.marked[idx])
		case "a":
			var cmds []tea.Cmd
			for i := range m.status {
				cmds = append(cmds, m.toggle(i, true))
			}
			return m, tea.Batch(cmds...)
		case "enter":
			m.queue = m.selection()
			if len(m.queue) == 0 {
				return m, nil
			}
			m.confirm = NewConfirmationDialog(
				fmt.Sprintf("Confirm Migration %s", strings.ToUpper(string(m.action))),
				fmt.Sprintf("Are you sure you want to %s %d migration(s):\n%s", m.action, len(m.queue), m.describeQueue()),
			)
			m.mode = ModeConfirm
			return m, nil
		}

	case ModeConfirm:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		decided, confirmed := m.confirm.Update(msg)
		if !decided {
			return m, nil
		}
		if !confirmed {
			m.mode = ModeList
			return m, nil
		}
		first := m.queue[0]
		m.mode = ModeExecuting
		m.progress = ProgressView{
			Total:   len(m.queue),
			Message: fmt.Sprintf("Executing: %s - %s", m.migrations[first].Version, m.migrations[first].Name),
		}
		return m, m.run(first)

	case ModeExecuting:
		return m, nil

	case ModeComplete, ModeError:
		switch msg.String() {
		case "ctrl+c", "q", "enter":
			return m, tea.Quit
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// selection returns the marked migrations, or the highlighted one, in the
// order they must run: oldest first going up, newest first going down.
func (m Model) selection() []int {
	var queue []int
	for idx := range m.marked {
		queue = append(queue, idx)
	}
	if len(queue) == 0 && m.eligible(m.list.Index()) {
		queue = []int{m.list.Index()}
	}
	slices.Sort(queue)
	if m.action == ActionDown {
		slices.Reverse(queue)
	}
	return queue
}

func (m Model) describeQueue() string {
	lines := make([]string, len(m.queue))
	for i, idx := range m.queue {
		lines[i] = fmt.Sprintf("  %s - %s", m.migrations[idx].Version, m.migrations[idx].Name)
	}
	return strings.Join(lines, "\n")
}

// Err returns the failure that ended the session, if any.
func (m Model) Err() error { return m.err }

// View renders the UI
func (m Model) View() string {
	center := func(s string) string {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, s)
	}

	switch m.mode {
	case ModeList:
		help := helpStyle.Render(
			FormatKey("↑/↓", "navigate") + " • " +
				FormatKey("space", "mark") + " • " +
				FormatKey("a", "mark all") + " • " +
				FormatKey("enter", "execute") + " • " +
				FormatKey("q", "quit"),
		)
		return lipgloss.JoinVertical(lipgloss.Left, m.list.View(), help)

	case ModeConfirm:
		return center(m.confirm.View())

	case ModeExecuting:
		return center(lipgloss.JoinVertical(lipgloss.Left, m.progress.View(), "\n", m.logs.View()))

	case ModeComplete:
		msg := titleStyle.Render("Migration Complete!") + "\n\n" +
			successStyle.Render(fmt.Sprintf("Successfully executed %d migration(s)", m.progress.Total)) + "\n\n" +
			helpStyle.Render(FormatKey("enter/q", "exit"))
		return center(boxStyle.Render(msg))

	case ModeError:
		msg := titleStyle.Render("Migration Failed") + "\n\n" +
			dangerStyle.Render(m.err.Error()) + "\n\n" +
			m.logs.View() + "\n" +
			helpStyle.Render(FormatKey("enter/q", "exit"))
		return center(boxStyle.Render(msg))
	}
	return "Unknown mode"
}

// Run starts the interactive migration UI and returns the error that stopped
// it, if any.
func Run(ctx context.Context, action Action, executor Executor, migrations []migration.Migration) error {
	p := tea.NewProgram(New(ctx, action, executor, migrations), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(Model); ok {
		return m.Err()
	}
	return nil
}
