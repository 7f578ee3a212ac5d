package tui

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/jask/contacts/internal/controller"
	"github.com/jask/contacts/internal/service"
)

func newController(t *testing.T) *controller.Controller {
	t.Helper()
	ctx := context.Background()
	svc := service.NewContactService(service.Options{})
	require.NoError(t, svc.Initialize(ctx, filepath.Join(t.TempDir(), "contacts.db")))
	ctrl := controller.New(ctx, svc, controller.Options{StrictUpdate: true, SearchDistance: 1})
	t.Cleanup(func() {
		ctrl.Close()
		_ = svc.Close()
	})
	return ctrl
}

func newApp(t *testing.T) (*App, *controller.Controller) {
	t.Helper()
	ctrl := newController(t)
	return New(ctrl, 0, nil), ctrl
}

func typeText(a *App, s string) {
	a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func press(a *App, k tea.KeyType) {
	a.Update(tea.KeyMsg{Type: k})
}

// settle waits for dispatched intents and feeds the resulting state to the
// model the way the program loop would.
func settle(a *App, ctrl *controller.Controller) {
	ctrl.Wait()
	a.Update(stateMsg(ctrl.State()))
}

func addContact(t *testing.T, a *App, ctrl *controller.Controller, name, phone string) {
	t.Helper()
	typeText(a, name)
	press(a, tea.KeyTab)
	typeText(a, phone)
	press(a, tea.KeyEnter)
	settle(a, ctrl)
}

func TestAddContactClearsForm(t *testing.T) {
	a, ctrl := newApp(t)

	addContact(t, a, ctrl, "Ana", "555-1111")

	require.Len(t, a.state.Contacts, 1)
	require.Equal(t, controller.MsgAdded, a.state.Message)
	require.Empty(t, a.name)
	require.Empty(t, a.phone)
	require.Equal(t, fieldName, a.focus)
	require.Contains(t, a.View(), "Ana")
	require.Contains(t, a.View(), controller.MsgAdded)
	require.Contains(t, a.View(), "[ctrl+e] edit")
}

func TestInvalidInputKeepsForm(t *testing.T) {
	a, ctrl := newApp(t)

	addContact(t, a, ctrl, "R2D2", "555")

	require.Empty(t, a.state.Contacts)
	require.Equal(t, controller.MsgInvalidName, a.state.Message)
	require.Equal(t, "R2D2", a.name)
	require.Equal(t, "555", a.phone)
}

func TestEditFlow(t *testing.T) {
	a, ctrl := newApp(t)
	addContact(t, a, ctrl, "Ana", "1")

	a.Update(tea.KeyMsg{Type: tea.KeyCtrlE})
	settle(a, ctrl)
	require.Equal(t, controller.ModeEditing, a.state.Mode)
	require.Equal(t, "Ana", a.name)
	require.Equal(t, "1", a.phone)
	require.Contains(t, a.View(), "Edit contact")

	press(a, tea.KeyTab)
	press(a, tea.KeyBackspace)
	typeText(a, "2")
	press(a, tea.KeyEnter)
	settle(a, ctrl)

	require.Equal(t, controller.ModeAdding, a.state.Mode)
	require.Equal(t, controller.MsgUpdated, a.state.Message)
	require.Equal(t, "2", a.state.Contacts[0].Phone)
	require.Empty(t, a.name)
}

func TestEscCancelsEdit(t *testing.T) {
	a, ctrl := newApp(t)
	addContact(t, a, ctrl, "Ana", "1")

	a.Update(tea.KeyMsg{Type: tea.KeyCtrlE})
	press(a, tea.KeyEsc)
	settle(a, ctrl)

	require.Equal(t, controller.ModeAdding, a.state.Mode)
	require.Empty(t, a.name)
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	a, ctrl := newApp(t)
	addContact(t, a, ctrl, "Ana", "1")

	a.Update(tea.KeyMsg{Type: tea.KeyCtrlD})
	require.Equal(t, modalConfirmDelete, a.modal)
	require.Contains(t, a.View(), "Delete Ana?")

	typeText(a, "n")
	settle(a, ctrl)
	require.Len(t, a.state.Contacts, 1)

	a.Update(tea.KeyMsg{Type: tea.KeyCtrlD})
	typeText(a, "y")
	settle(a, ctrl)
	require.Empty(t, a.state.Contacts)
	require.Equal(t, controller.MsgDeleted, a.state.Message)
}

func TestDeleteAll(t *testing.T) {
	a, ctrl := newApp(t)
	addContact(t, a, ctrl, "Ana", "1")
	addContact(t, a, ctrl, "Beto", "2")

	a.Update(tea.KeyMsg{Type: tea.KeyCtrlX})
	require.Equal(t, modalConfirmDeleteAll, a.modal)
	typeText(a, "y")
	settle(a, ctrl)
	require.Empty(t, a.state.Contacts)
	require.Contains(t, a.View(), "no contacts yet")
}

func TestSearchFiltersList(t *testing.T) {
	a, ctrl := newApp(t)
	addContact(t, a, ctrl, "Ana", "1")
	addContact(t, a, ctrl, "Beto", "2")

	a.Update(tea.KeyMsg{Type: tea.KeyCtrlF})
	typeText(a, "bet")
	press(a, tea.KeyEnter)

	require.Len(t, a.visible(), 1)
	require.Equal(t, "Beto", a.visible()[0].Name)
	require.NotContains(t, a.View(), "Ana ")

	a.Update(tea.KeyMsg{Type: tea.KeyCtrlF})
	press(a, tea.KeyEsc)
	require.Len(t, a.visible(), 2)
}

func TestMessageClearsAfterTTL(t *testing.T) {
	a, ctrl := newApp(t)
	a.ttl = time.Millisecond

	typeText(a, "Ana")
	press(a, tea.KeyTab)
	typeText(a, "1")
	press(a, tea.KeyEnter)
	ctrl.Wait()

	_, cmd := a.Update(stateMsg(ctrl.State()))
	require.NotNil(t, cmd)

	// a stale tick is ignored
	a.Update(clearMessageMsg{seq: a.messageSeq - 1})
	require.Equal(t, controller.MsgAdded, ctrl.State().Message)

	a.Update(clearMessageMsg{seq: a.messageSeq})
	require.Empty(t, ctrl.State().Message)
}

func TestQuit(t *testing.T) {
	a, _ := newApp(t)
	_, cmd := a.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
}
