package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jask/contacts/internal/controller"
	"github.com/jask/contacts/internal/database/repository"
)

type field int

const (
	fieldName field = iota
	fieldPhone
)

type modalState string

const (
	modalNone             modalState = ""
	modalConfirmDelete    modalState = "confirmDelete"
	modalConfirmDeleteAll modalState = "confirmDeleteAll"
	modalSearch           modalState = "search"
)

// App renders the controller state and turns keys into intents. It is the
// only reader of the controller's update channel.
type App struct {
	ctrl  *controller.Controller
	keys  *KeyRegistry
	state controller.State
	ttl   time.Duration

	cursor  int
	focus   field
	name    string
	phone   string
	query   string
	modal   modalState
	pending repository.Contact // contact awaiting delete confirmation

	resets     int
	shownMsg   string
	messageSeq int
}

// New builds the screen. A nil keys uses the default bindings.
func New(ctrl *controller.Controller, messageTTL time.Duration, keys *KeyRegistry) *App {
	if keys == nil {
		keys = NewKeyRegistry()
	}
	st := ctrl.State()
	return &App{ctrl: ctrl, keys: keys, state: st, ttl: messageTTL, resets: st.FormResets}
}

type stateMsg controller.State

type clearMessageMsg struct{ seq int }

func (a *App) Init() tea.Cmd {
	return a.waitForState()
}

// waitForState blocks on the controller's update channel off the event
// loop and delivers the state back into it.
func (a *App) waitForState() tea.Cmd {
	ch := a.ctrl.Updates()
	return func() tea.Msg {
		return stateMsg(<-ch)
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.KeyMsg:
		scope := a.scope()
		var action Action
		if b := a.keys.Lookup(m.String(), scope); b != nil {
			action = b.Action
		}
		if action == actionQuit {
			return a, tea.Quit
		}
		switch scope {
		case scopeConfirm:
			a.handleConfirm(action)
		case scopeSearch:
			a.handleSearch(action, m)
		default:
			a.handleForm(action, m)
		}
		return a, nil
	case stateMsg:
		return a, tea.Batch(a.applyState(controller.State(m)), a.waitForState())
	case clearMessageMsg:
		if m.seq == a.messageSeq && a.state.Message != "" {
			a.ctrl.ClearMessage()
		}
	}
	return a, nil
}

func (a *App) scope() string {
	switch a.modal {
	case modalConfirmDelete, modalConfirmDeleteAll:
		return scopeConfirm
	case modalSearch:
		return scopeSearch
	}
	return scopeForm
}

func (a *App) applyState(st controller.State) tea.Cmd {
	a.state = st
	if st.FormResets != a.resets {
		a.resets = st.FormResets
		a.name, a.phone, a.focus = "", "", fieldName
	}
	if n := len(a.visible()); a.cursor >= n {
		a.cursor = max(n-1, 0)
	}
	if st.Message == a.shownMsg {
		return nil
	}
	a.shownMsg = st.Message
	a.messageSeq++
	if st.Message == "" || a.ttl <= 0 {
		return nil
	}
	seq := a.messageSeq
	return tea.Tick(a.ttl, func(time.Time) tea.Msg { return clearMessageMsg{seq: seq} })
}

func (a *App) handleForm(action Action, m tea.KeyMsg) {
	switch action {
	case actionUp:
		if a.cursor > 0 {
			a.cursor--
		}
	case actionDown:
		if a.cursor < len(a.visible())-1 {
			a.cursor++
		}
	case actionEdit:
		if c, ok := a.selected(); ok {
			a.ctrl.Edit(c)
			a.name, a.phone, a.focus = c.Name, c.Phone, fieldName
		}
	case actionDelete:
		if c, ok := a.selected(); ok {
			a.pending = c
			a.modal = modalConfirmDelete
		}
	case actionDeleteAll:
		if len(a.state.Contacts) > 0 {
			a.modal = modalConfirmDeleteAll
		}
	case actionSearch:
		a.modal = modalSearch
	case actionCancel:
		a.ctrl.Cancel()
	case actionNextField:
		if a.focus == fieldName {
			a.focus = fieldPhone
		} else {
			a.focus = fieldName
		}
	case actionSubmit:
		a.submit()
	default:
		if s, ok := editText(a.input(), m); ok {
			a.setInput(s)
		}
	}
}

func (a *App) handleConfirm(action Action) {
	switch action {
	case actionConfirm:
		if a.modal == modalConfirmDelete {
			a.ctrl.Delete(a.pending)
		} else {
			a.ctrl.DeleteAll()
		}
		a.modal = modalNone
	case actionCancel:
		a.modal = modalNone
	}
}

func (a *App) handleSearch(action Action, m tea.KeyMsg) {
	switch action {
	case actionCancel:
		a.modal = modalNone
		a.query = ""
	case actionSubmit:
		a.modal = modalNone
	default:
		if s, ok := editText(a.query, m); ok {
			a.query = s
		}
	}
	a.cursor = 0
}

// editText applies a typing key to s.
func editText(s string, m tea.KeyMsg) (string, bool) {
	switch m.Type {
	case tea.KeyBackspace, tea.KeyCtrlH, tea.KeyDelete:
		return dropLast(s), true
	case tea.KeySpace:
		return s + " ", true
	case tea.KeyRunes:
		return s + string(m.Runes), true
	}
	return s, false
}

// submit inserts or updates depending on the form mode. Validation
// failures surface as the status message.
func (a *App) submit() {
	if a.state.Mode == controller.ModeEditing {
		_ = a.ctrl.Update(repository.Contact{ID: a.state.EditingID, Name: a.name, Phone: a.phone})
		return
	}
	_ = a.ctrl.Insert(a.name, a.phone)
}

func (a *App) visible() []repository.Contact {
	if strings.TrimSpace(a.query) == "" {
		return a.state.Contacts
	}
	return a.ctrl.Search(a.query)
}

func (a *App) selected() (repository.Contact, bool) {
	list := a.visible()
	if a.cursor < 0 || a.cursor >= len(list) {
		return repository.Contact{}, false
	}
	return list[a.cursor], true
}

func (a *App) input() string {
	if a.focus == fieldPhone {
		return a.phone
	}
	return a.name
}

func (a *App) setInput(s string) {
	if a.focus == fieldPhone {
		a.phone = s
	} else {
		a.name = s
	}
}

func dropLast(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return string(r[:len(r)-1])
}

var titleStyle = lipgloss.NewStyle().Bold(true)

func (a *App) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Contacts (%d)", len(a.state.Contacts))))
	b.WriteString("\n")

	list := a.visible()
	if len(list) == 0 {
		if a.query != "" {
			b.WriteString("  no matches\n")
		} else {
			b.WriteString("  no contacts yet\n")
		}
	}
	for i, c := range list {
		marker := "  "
		if i == a.cursor {
			marker = "> "
		}
		edit := ""
		if a.state.Mode == controller.ModeEditing && c.ID == a.state.EditingID {
			edit = " *"
		}
		fmt.Fprintf(&b, "%s%-24s %s%s\n", marker, c.Name, c.Phone, edit)
	}

	b.WriteString("\n")
	if a.state.Mode == controller.ModeEditing {
		b.WriteString(titleStyle.Render("Edit contact"))
	} else {
		b.WriteString(titleStyle.Render("Add contact"))
	}
	b.WriteString("\n")
	b.WriteString(a.renderField("Name ", a.name, fieldName))
	b.WriteString(a.renderField("Phone", a.phone, fieldPhone))

	switch a.modal {
	case modalConfirmDelete:
		fmt.Fprintf(&b, "\nDelete %s? [y/n]\n", a.pending.Name)
	case modalConfirmDeleteAll:
		fmt.Fprintf(&b, "\nDelete all %d contacts? [y/n]\n", len(a.state.Contacts))
	case modalSearch:
		fmt.Fprintf(&b, "\nSearch: %s_\n", a.query)
	}

	if a.state.Message != "" {
		b.WriteString("\n" + a.state.Message + "\n")
	}
	b.WriteString("\n" + a.keys.Help(a.scope()))
	return b.String()
}

func (a *App) renderField(label, value string, f field) string {
	cursor := ""
	if a.modal == modalNone && a.focus == f {
		cursor = "_"
	}
	return fmt.Sprintf("%s: %s%s\n", label, value, cursor)
}
