// Package tokenstore holds the durable, process-wide session snapshot.
//
// The Store is the only shared mutable state in the auth core: the engine
// writes it, the route guard and gateway read it, and UI code may
// subscribe to changes. Writes are linearized by a monotonically
// increasing epoch so that a slow in-flight operation can never clobber
// the result of a later one.
package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/chinkauchenna2021/bankauth/session"
)

// ErrStaleWrite is returned when a write carries an epoch older than the
// store's current epoch and is therefore discarded.
var ErrStaleWrite = errors.New("stale write discarded")

const defaultHydrateTimeout = time.Second

// Store is the in-memory holder of the current Session, persisted through
// a Backend. All methods are safe for concurrent use.
type Store struct {
	backend        Backend
	logger         *slog.Logger
	hydrateTimeout time.Duration

	mu       sync.RWMutex
	session  session.Session
	epoch    uint64
	hydrated bool
	subs     map[int]func(session.Session)
	nextSub  int
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the structured logger. If not set, a default JSON
// logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithHydrateTimeout bounds how long Hydrate waits on the backend before
// degrading to an anonymous session. Default: 1 second.
func WithHydrateTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.hydrateTimeout = d
	}
}

// New creates a Store backed by the given Backend. The store starts empty;
// call Hydrate before trusting the first Read.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:        backend,
		hydrateTimeout: defaultHydrateTimeout,
		subs:           make(map[int]func(session.Session)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	return s
}

// Hydrate loads the last-persisted session into memory. It is idempotent
// and never fails closed: a missing, malformed, or slow backend yields the
// empty anonymous session rather than an error or a hang.
func (s *Store) Hydrate(ctx context.Context) error {
	s.mu.Lock()
	if s.hydrated {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.hydrateTimeout)
	defer cancel()

	type loadResult struct {
		blob []byte
		err  error
	}
	ch := make(chan loadResult, 1)
	go func() {
		blob, err := s.backend.Load(ctx)
		ch <- loadResult{blob, err}
	}()

	var loaded session.Session
	select {
	case res := <-ch:
		switch {
		case errors.Is(res.err, ErrNoSession):
			// First run, nothing persisted.
		case res.err != nil:
			s.logger.Warn("session hydrate failed, treating as anonymous", "error", res.err)
		default:
			if err := json.Unmarshal(res.blob, &loaded); err != nil {
				s.logger.Warn("persisted session malformed, treating as anonymous", "error", err)
				loaded = session.Session{}
			}
		}
	case <-ctx.Done():
		s.logger.Warn("session hydrate timed out, treating as anonymous")
	}

	// A session without an access token must not hydrate as authenticated.
	if loaded.AccessToken == "" {
		loaded = session.Session{}
	}

	s.mu.Lock()
	if !s.hydrated {
		s.session = loaded
		s.hydrated = true
	}
	s.mu.Unlock()
	return nil
}

// Read returns a synchronous snapshot of the current session. It never
// blocks.
func (s *Store) Read() session.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSession(s.session)
}

// Epoch returns the current write epoch. Callers that will commit the
// result of an asynchronous operation should capture the epoch before
// starting it and commit with WriteAt.
func (s *Store) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// ReadWithEpoch returns the session snapshot together with the epoch it
// was read at, under a single lock acquisition. Callers that will commit
// a result derived from the snapshot must use this instead of separate
// Read and Epoch calls: a clear landing between the two would pair a
// pre-clear snapshot with a post-clear epoch, and WriteAt would then
// commit state the clear was meant to destroy.
func (s *Store) ReadWithEpoch() (session.Session, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSession(s.session), s.epoch
}

// Write replaces the session unconditionally, bumps the epoch, persists
// the result, and notifies subscribers.
func (s *Store) Write(sess session.Session) error {
	s.mu.Lock()
	return s.commitLocked(sess)
}

// WriteAt commits the session only if the store's epoch still equals
// epoch; otherwise the write is discarded with ErrStaleWrite. This is how
// a logout invalidates the effect of a refresh that was already in flight.
func (s *Store) WriteAt(epoch uint64, sess session.Session) error {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return ErrStaleWrite
	}
	return s.commitLocked(sess)
}

// Clear resets the store to the empty default, removes the persisted
// blob, and notifies subscribers.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.session = session.Session{}
	s.epoch++
	s.hydrated = true
	snapshot := s.session
	subs := s.subscribersLocked()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}

	if err := s.backend.Delete(context.Background()); err != nil {
		s.logger.Warn("failed to remove persisted session", "error", err)
		return err
	}
	return nil
}

// Subscribe registers fn to be called after every committed write or
// clear, with the new snapshot. The returned function removes the
// subscription.
func (s *Store) Subscribe(fn func(session.Session)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// commitLocked applies sess, bumps the epoch, releases the lock, then
// notifies subscribers and persists. The caller must hold s.mu.
func (s *Store) commitLocked(sess session.Session) error {
	s.session = cloneSession(sess)
	s.epoch++
	s.hydrated = true
	snapshot := cloneSession(s.session)
	subs := s.subscribersLocked()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}

	blob, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	if err := s.backend.Save(context.Background(), blob); err != nil {
		s.logger.Warn("failed to persist session", "error", err)
		return err
	}
	return nil
}

func (s *Store) subscribersLocked() []func(session.Session) {
	out := make([]func(session.Session), 0, len(s.subs))
	for _, fn := range s.subs {
		out = append(out, fn)
	}
	return out
}

func cloneSession(sess session.Session) session.Session {
	if sess.User != nil {
		u := *sess.User
		sess.User = &u
	}
	return sess
}
