package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/jask/contacts/internal/database"
	"github.com/jask/contacts/internal/database/repository"
	"github.com/jask/contacts/internal/notifier"
)

var (
	// ErrNotInitialized is returned by every operation issued before
	// Initialize. It signals a wiring mistake, not a runtime condition.
	ErrNotInitialized = errors.New("contact service not initialized: call Initialize first")
	// ErrNotFound reports an update or delete that matched no row.
	ErrNotFound = errors.New("contact not found")
	// ErrClosed is returned for work submitted after Close.
	ErrClosed = errors.New("contact service closed")
)

// Options configures a ContactService.
type Options struct {
	Locale string
	Logger *slog.Logger
}

// ContactService owns the contacts store and the published snapshot.
//
// All mutations run on a single writer goroutine in submission order. After
// each one the full table is reloaded and listeners are pinged, so the
// snapshot seen after the last completed mutation always matches the
// latest committed state.
type ContactService struct {
	opts   Options
	log    *slog.Logger
	notify *notifier.Notifier

	initMu sync.Mutex
	repo   atomic.Pointer[repository.ContactRepo]
	db     *sql.DB
	jobs   chan job
	quit   chan struct{}
	exited chan struct{}
	closed bool

	mu       sync.RWMutex
	snapshot []repository.Contact
}

type job struct {
	op     string
	ctx    context.Context
	run    func(ctx context.Context, repo *repository.ContactRepo) (int64, error)
	result chan<- jobResult
}

type jobResult struct {
	n   int64
	err error
}

func NewContactService(opts Options) *ContactService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ContactService{
		opts:     opts,
		log:      logger.With("component", "contacts"),
		notify:   notifier.New(),
		snapshot: []repository.Contact{},
	}
}

// Initialize opens the store at path and loads the first snapshot. Only the
// first successful call has any effect.
func (s *ContactService) Initialize(ctx context.Context, path string) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()
	if s.repo.Load() != nil {
		return nil
	}
	if s.closed {
		return ErrClosed
	}

	db, err := database.Open(path, database.Options{Locale: s.opts.Locale})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if err := database.Migrate(db, s.log); err != nil {
		_ = db.Close()
		return fmt.Errorf("migrate store: %w", err)
	}
	repo := repository.NewContactRepo(db)
	if err := s.reload(ctx, repo); err != nil {
		_ = db.Close()
		return fmt.Errorf("initial load: %w", err)
	}

	s.db = db
	s.jobs = make(chan job)
	s.quit = make(chan struct{})
	s.exited = make(chan struct{})
	go s.writer(repo)
	s.repo.Store(repo)
	s.log.Info("store ready", "path", path, "contacts", len(s.Snapshot()))
	return nil
}

func (s *ContactService) requireRepo() (*repository.ContactRepo, error) {
	repo := s.repo.Load()
	if repo == nil {
		return nil, ErrNotInitialized
	}
	return repo, nil
}

// Snapshot returns a copy of the current contact list, ordered by name.
func (s *ContactService) Snapshot() []repository.Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.snapshot)
}

// Subscribe returns a channel pinged after every snapshot refresh. The
// listener should read Snapshot when woken.
func (s *ContactService) Subscribe() chan struct{} { return s.notify.Subscribe() }

func (s *ContactService) Unsubscribe(ch chan struct{}) { s.notify.Unsubscribe(ch) }

// Insert adds a contact and returns its id.
func (s *ContactService) Insert(ctx context.Context, name, phone string) (int64, error) {
	return s.submit(ctx, "insert", func(ctx context.Context, repo *repository.ContactRepo) (int64, error) {
		return repo.Insert(ctx, name, phone)
	})
}

// Update overwrites the contact with c.ID and returns the affected count.
// A missing id yields ErrNotFound.
func (s *ContactService) Update(ctx context.Context, c repository.Contact) (int64, error) {
	return s.submit(ctx, "update", func(ctx context.Context, repo *repository.ContactRepo) (int64, error) {
		n, err := repo.Update(ctx, c)
		if err == nil && n == 0 {
			err = fmt.Errorf("update contact %d: %w", c.ID, ErrNotFound)
		}
		return n, err
	})
}

// Delete removes the contact with id. A missing id yields ErrNotFound.
func (s *ContactService) Delete(ctx context.Context, id int64) (int64, error) {
	return s.submit(ctx, "delete", func(ctx context.Context, repo *repository.ContactRepo) (int64, error) {
		n, err := repo.Delete(ctx, id)
		if err == nil && n == 0 {
			err = fmt.Errorf("delete contact %d: %w", id, ErrNotFound)
		}
		return n, err
	})
}

// DeleteAll removes every contact. Deleting from an empty store is not an
// error.
func (s *ContactService) DeleteAll(ctx context.Context) (int64, error) {
	return s.submit(ctx, "delete_all", func(ctx context.Context, repo *repository.ContactRepo) (int64, error) {
		return repo.DeleteAll(ctx)
	})
}

// Reload refreshes the snapshot from the store without mutating it.
func (s *ContactService) Reload(ctx context.Context) error {
	_, err := s.submit(ctx, "reload", func(context.Context, *repository.ContactRepo) (int64, error) {
		return 0, nil
	})
	return err
}

// submit queues fn on the writer and waits for it. Once queued, a job runs
// to completion even if ctx is cancelled.
func (s *ContactService) submit(ctx context.Context, op string, fn func(context.Context, *repository.ContactRepo) (int64, error)) (int64, error) {
	if _, err := s.requireRepo(); err != nil {
		return 0, err
	}
	res := make(chan jobResult, 1)
	j := job{op: op, ctx: context.WithoutCancel(ctx), run: fn, result: res}
	select {
	case s.jobs <- j:
	case <-s.quit:
		return 0, ErrClosed
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	r := <-res
	return r.n, r.err
}

func (s *ContactService) writer(repo *repository.ContactRepo) {
	defer close(s.exited)
	for {
		select {
		case j := <-s.jobs:
			n, err := j.run(j.ctx, repo)
			// reload even when nothing changed so listeners always see the
			// committed state
			if rerr := s.reload(j.ctx, repo); rerr != nil {
				s.log.Error("reload after mutation failed", "op", j.op, "err", rerr)
				if err == nil {
					err = fmt.Errorf("reload contacts: %w", rerr)
				}
			}
			if err != nil {
				s.log.Warn("mutation failed", "op", j.op, "err", err)
			} else {
				s.log.Debug("mutation applied", "op", j.op, "result", n)
			}
			j.result <- jobResult{n: n, err: err}
		case <-s.quit:
			return
		}
	}
}

func (s *ContactService) reload(ctx context.Context, repo *repository.ContactRepo) error {
	list, err := repo.List(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.snapshot = list
	s.mu.Unlock()
	s.notify.Broadcast()
	return nil
}

// Close stops the writer and closes the store. Queued callers receive
// ErrClosed.
func (s *ContactService) Close() error {
	s.initMu.Lock()
	defer s.initMu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.db == nil {
		return nil
	}
	close(s.quit)
	<-s.exited
	return s.db.Close()
}
