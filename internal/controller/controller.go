// Package controller holds the view state of the contacts screen: the
// current list, the status message and which contact, if any, is being
// edited. It validates user intents and hands them to the contact service.
package controller

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/jask/contacts/internal/database/repository"
	"github.com/jask/contacts/internal/service"
)

// Status messages published after each intent.
const (
	MsgFillAllFields       = "Please fill in all fields"
	MsgFillAllFieldsUpdate = "Please fill in all fields to update"
	MsgInvalidName         = "Name may only contain letters, spaces, periods, hyphens and apostrophes."
	MsgAdded               = "Contact added successfully"
	MsgUpdated             = "Contact updated successfully"
	MsgDeleted             = "Contact deleted successfully"
	MsgDeletedAll          = "All contacts deleted"
	MsgAddFailed           = "Error adding contact: "
	MsgUpdateFailed        = "Error updating contact: "
	MsgDeleteFailed        = "Error deleting contact: "
	MsgDeleteAllFailed     = "Error deleting contacts: "
)

// Contacts is the subset of the contact service the controller drives.
type Contacts interface {
	Insert(ctx context.Context, name, phone string) (int64, error)
	Update(ctx context.Context, c repository.Contact) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
	Snapshot() []repository.Contact
	Subscribe() chan struct{}
	Unsubscribe(ch chan struct{})
}

// Mode is the form state.
type Mode int

const (
	ModeAdding Mode = iota
	ModeEditing
)

func (m Mode) String() string {
	if m == ModeEditing {
		return "editing"
	}
	return "adding"
}

// State is what the presentation layer renders. Contacts must be treated
// as read-only.
type State struct {
	Contacts  []repository.Contact
	Message   string
	Mode      Mode
	EditingID int64
	// FormResets increments whenever the form fields should be cleared.
	FormResets int
}

// Options configures a Controller.
type Options struct {
	// StrictUpdate applies the name format rule to updates as well as
	// inserts.
	StrictUpdate bool
	// SearchDistance is the largest edit distance Search accepts between
	// the query and a word of a name.
	SearchDistance int
	Logger         *slog.Logger
}

// Controller owns the view state. Intent methods return immediately; store
// work happens on background goroutines and its outcome is published on
// Updates.
type Controller struct {
	ctx      context.Context
	contacts Contacts
	opts     Options
	log      *slog.Logger

	mu      sync.Mutex
	state   State
	updates chan State

	inflight sync.WaitGroup
	sub      chan struct{}
	stop     chan struct{}
	stopped  chan struct{}
	once     sync.Once
}

// New builds a controller over contacts and starts following its
// snapshot. ctx is used for every store call the controller issues.
func New(ctx context.Context, contacts Contacts, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Controller{
		ctx:      ctx,
		contacts: contacts,
		opts:     opts,
		log:      logger.With("component", "controller"),
		state:    State{Contacts: contacts.Snapshot(), Mode: ModeAdding},
		updates:  make(chan State, 1),
		sub:      contacts.Subscribe(),
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	c.updates <- c.state
	go c.follow()
	return c
}

// follow republishes the service snapshot whenever it changes.
func (c *Controller) follow() {
	defer close(c.stopped)
	for {
		select {
		case _, ok := <-c.sub:
			if !ok {
				return
			}
			c.mu.Lock()
			c.state.Contacts = c.contacts.Snapshot()
			c.publishLocked()
			c.mu.Unlock()
		case <-c.stop:
			return
		}
	}
}

// publishLocked replaces any unread state on the updates channel with the
// current one. Every sender holds c.mu, so the send never blocks.
func (c *Controller) publishLocked() {
	select {
	case <-c.updates:
	default:
	}
	c.updates <- c.state
}

// Updates delivers the latest state to a single consumer. Intermediate
// states the consumer did not read in time are dropped.
func (c *Controller) Updates() <-chan State { return c.updates }

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Insert validates name and phone and, if valid, adds a contact. The
// returned error is the validation failure, if any; store failures are
// reported through the status message.
func (c *Controller) Insert(name, phone string) error {
	name, phone = clean(name), clean(phone)
	if name == "" || phone == "" {
		c.setMessage(MsgFillAllFields)
		return ErrBlankField
	}
	if !ValidName(name) {
		c.setMessage(MsgInvalidName)
		return ErrInvalidName
	}
	c.dispatch("insert", func(ctx context.Context) error {
		_, err := c.contacts.Insert(ctx, name, phone)
		return err
	}, func(st *State) {
		st.Message = MsgAdded
		st.FormResets++
	}, MsgAddFailed)
	return nil
}

// Update validates and overwrites the contact with ct.ID. On success an
// edit of that contact ends.
func (c *Controller) Update(ct repository.Contact) error {
	ct.Name, ct.Phone = clean(ct.Name), clean(ct.Phone)
	if ct.Name == "" || ct.Phone == "" {
		c.setMessage(MsgFillAllFieldsUpdate)
		return ErrBlankField
	}
	if c.opts.StrictUpdate && !ValidName(ct.Name) {
		c.setMessage(MsgInvalidName)
		return ErrInvalidName
	}
	c.dispatch("update", func(ctx context.Context) error {
		_, err := c.contacts.Update(ctx, ct)
		return err
	}, func(st *State) {
		st.Message = MsgUpdated
		if st.Mode == ModeEditing && st.EditingID == ct.ID {
			resetForm(st)
		}
	}, MsgUpdateFailed)
	return nil
}

// Delete removes ct. Deleting the contact being edited ends the edit
// straight away.
func (c *Controller) Delete(ct repository.Contact) {
	c.mu.Lock()
	if c.state.Mode == ModeEditing && c.state.EditingID == ct.ID {
		resetForm(&c.state)
		c.publishLocked()
	}
	c.mu.Unlock()

	c.dispatch("delete", func(ctx context.Context) error {
		_, err := c.contacts.Delete(ctx, ct.ID)
		return err
	}, func(st *State) {
		st.Message = MsgDeleted
	}, MsgDeleteFailed)
}

// DeleteAll removes every contact and ends any edit.
func (c *Controller) DeleteAll() {
	c.mu.Lock()
	if c.state.Mode == ModeEditing {
		resetForm(&c.state)
		c.publishLocked()
	}
	c.mu.Unlock()

	c.dispatch("delete_all", func(ctx context.Context) error {
		_, err := c.contacts.DeleteAll(ctx)
		return err
	}, func(st *State) {
		st.Message = MsgDeletedAll
	}, MsgDeleteAllFailed)
}

// Edit selects ct for editing.
func (c *Controller) Edit(ct repository.Contact) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Mode = ModeEditing
	c.state.EditingID = ct.ID
	c.publishLocked()
}

// Cancel ends an edit and asks for the form to be cleared.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	resetForm(&c.state)
	c.publishLocked()
}

// ClearMessage empties the status message once it has been shown.
func (c *Controller) ClearMessage() { c.setMessage("") }

// Wait blocks until every dispatched intent has completed.
func (c *Controller) Wait() { c.inflight.Wait() }

// Close waits for in-flight intents and stops following the service.
func (c *Controller) Close() {
	c.once.Do(func() {
		c.inflight.Wait()
		close(c.stop)
		<-c.stopped
		c.contacts.Unsubscribe(c.sub)
	})
}

func (c *Controller) setMessage(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Message = msg
	c.publishLocked()
}

// dispatch runs fn off the caller's goroutine and publishes its outcome.
func (c *Controller) dispatch(op string, fn func(context.Context) error, onSuccess func(*State), failPrefix string) {
	log := c.log.With("intent", uuid.NewString(), "op", op)
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		err := fn(c.ctx)
		if errors.Is(err, service.ErrNotInitialized) {
			panic(err)
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if err != nil {
			log.Warn("intent failed", "err", err)
			c.state.Message = failPrefix + err.Error()
		} else {
			log.Info("intent applied")
			onSuccess(&c.state)
		}
		c.state.Contacts = c.contacts.Snapshot()
		c.publishLocked()
	}()
}

func resetForm(st *State) {
	st.Mode = ModeAdding
	st.EditingID = 0
	st.FormResets++
}
