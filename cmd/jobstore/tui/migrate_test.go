package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marshallshelly/jobstore/pkg/migration"
)

type fakeExecutor struct {
	status  []migration.MigrationRecord
	ran     []string
	locks   int
	failOn  string
	failErr error
}

func (f *fakeExecutor) GetStatus(context.Context, []migration.Migration) ([]migration.MigrationRecord, error) {
	return f.status, nil
}

func (f *fakeExecutor) WithLock(ctx context.Context, fn func(ctx context.Context) error) error {
	f.locks++
	return fn(ctx)
}

func (f *fakeExecutor) Apply(_ context.Context, m migration.Migration, _ bool) error {
	return f.record("up:" + m.Version)
}

func (f *fakeExecutor) Rollback(_ context.Context, m migration.Migration, _ bool) error {
	return f.record("down:" + m.Version)
}

func (f *fakeExecutor) record(op string) error {
	if op == f.failOn {
		return f.failErr
	}
	f.ran = append(f.ran, op)
	return nil
}

var testMigrations = []migration.Migration{
	{Version: "20260101000000", Name: "init"},
	{Version: "20260201000000", Name: "add_sku"},
	{Version: "20260301000000", Name: "add_views"},
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// drive feeds msg to m and keeps running returned commands until none are
// left or one quits.
func drive(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	for msg != nil {
		next, cmd := m.Update(msg)
		m = next.(Model)
		if cmd == nil {
			return m
		}
		msg = cmd()
		if _, ok := msg.(tea.BatchMsg); ok {
			return m
		}
	}
	return m
}

func loaded(t *testing.T, action Action, exec *fakeExecutor) Model {
	t.Helper()
	m := New(context.Background(), action, exec, testMigrations)
	return drive(t, m, m.Init()())
}

func TestMigrateUpMarkedInOrder(t *testing.T) {
	exec := &fakeExecutor{status: []migration.MigrationRecord{
		{Version: "20260101000000", Name: "init", Status: migration.StatusApplied},
		{Version: "20260201000000", Name: "add_sku", Status: migration.StatusPending},
		{Version: "20260301000000", Name: "add_views", Status: migration.StatusPending},
	}}
	m := loaded(t, ActionUp, exec)

	m = drive(t, m, key("a"))
	assert.Len(t, m.marked, 2, "applied migration must not be markable going up")

	m = drive(t, m, key("enter"))
	require.Equal(t, ModeConfirm, m.mode)
	assert.Equal(t, []int{1, 2}, m.queue)

	m = drive(t, m, key("y"))
	assert.Equal(t, ModeComplete, m.mode)
	assert.Equal(t, []string{"up:20260201000000", "up:20260301000000"}, exec.ran)
	assert.Equal(t, 2, exec.locks)
	assert.Contains(t, m.View(), "Successfully executed 2 migration(s)")
}

func TestMigrateDownNewestFirst(t *testing.T) {
	exec := &fakeExecutor{status: []migration.MigrationRecord{
		{Version: "20260101000000", Status: migration.StatusApplied},
		{Version: "20260201000000", Status: migration.StatusApplied},
		{Version: "20260301000000", Status: migration.StatusPending},
	}}
	m := loaded(t, ActionDown, exec)

	m = drive(t, m, key("a"))
	m = drive(t, m, key("enter"))
	m = drive(t, m, key("y"))
	assert.Equal(t, []string{"down:20260201000000", "down:20260101000000"}, exec.ran)
}

func TestMigrateCancelAndNoSelection(t *testing.T) {
	exec := &fakeExecutor{status: []migration.MigrationRecord{
		{Version: "20260101000000", Status: migration.StatusApplied},
		{Version: "20260201000000", Status: migration.StatusPending},
		{Version: "20260301000000", Status: migration.StatusPending},
	}}
	m := loaded(t, ActionUp, exec)

	m = drive(t, m, key("enter"))
	assert.Equal(t, ModeList, m.mode, "highlighted migration is already applied")

	m = drive(t, m, key("a"))
	m = drive(t, m, key("enter"))
	m = drive(t, m, key("n"))
	assert.Equal(t, ModeList, m.mode)
	assert.Empty(t, exec.ran)
}

func TestMigrateStopsOnFailure(t *testing.T) {
	exec := &fakeExecutor{
		status: []migration.MigrationRecord{
			{Version: "20260101000000", Status: migration.StatusPending},
			{Version: "20260201000000", Status: migration.StatusPending},
			{Version: "20260301000000", Status: migration.StatusPending},
		},
		failOn:  "up:20260201000000",
		failErr: errors.New("relation \"products\" already exists"),
	}
	m := loaded(t, ActionUp, exec)

	m = drive(t, m, key("a"))
	m = drive(t, m, key("enter"))
	m = drive(t, m, key("y"))
	assert.Equal(t, ModeError, m.mode)
	assert.Equal(t, []string{"up:20260101000000"}, exec.ran)
	assert.ErrorIs(t, m.Err(), exec.failErr)
}

func TestConfirmationDialog(t *testing.T) {
	d := NewConfirmationDialog("Confirm", "sure?")
	decided, confirmed := d.Update(key("enter"))
	assert.True(t, decided)
	assert.False(t, confirmed, "no is preselected")

	decided, _ = d.Update(tea.KeyMsg{Type: tea.KeyLeft})
	assert.False(t, decided)
	decided, confirmed = d.Update(key("enter"))
	assert.True(t, decided)
	assert.True(t, confirmed)
}

func TestLogViewKeepsTail(t *testing.T) {
	l := NewLogView(2)
	l.AddLog("a")
	l.AddLog("b")
	l.AddLog("c")
	assert.Equal(t, []string{"b", "c"}, l.Logs)
}
