// Package conversation runs per-user finite state machines over chat
// turns. The engine owns the session arena; workflows supply the step
// graphs. Distinct users advance fully concurrently, while steps for the
// same user are serialized: no two steps of one user's workflow ever run
// at once.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrNoSession is returned when input arrives for a user with no active
// workflow. Callers surface it as a "session expired, restart" message,
// never as a crash.
var ErrNoSession = errors.New("no active conversation session")

// Handler processes one input for a session. Handlers mutate sess.Data /
// sess.Refs directly and describe what happens next through the Result:
// advance (Next set), stay for a retry (Next empty), or finish (Done).
// A returned error is a terminal defect: the session is destroyed and the
// caller reports a generic failure.
type Handler func(ctx context.Context, sess *Session, input string) (Result, error)

// Option is a choice offered to the user alongside a reply; the transport
// renders options as buttons whose callback data is Value.
type Option struct {
	Label string
	Value string
}

// Result is the outcome of one step invocation.
type Result struct {
	// Reply is the user-visible message for this turn.
	Reply string

	// Options are optional choices presented with the reply.
	Options []Option

	// Next is the step to move to. Empty means stay on the current step
	// (validation rejected the input).
	Next StepID

	// Done terminates the session after this turn.
	Done bool
}

// Definition is a workflow's step graph.
type Definition struct {
	Kind    Kind
	Initial StepID
	Steps   map[StepID]Handler
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithNowTime sets the clock (primarily for testing).
func WithNowTime(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// userLock serializes one user's steps. refs counts goroutines between
// acquire and release, so the arena can drop entries for users with no
// session without racing a waiter that already holds the pointer.
type userLock struct {
	mu   sync.Mutex
	refs int
}

// Engine is the session arena plus the registered workflow definitions.
type Engine struct {
	mu       sync.Mutex
	defs     map[Kind]*Definition
	sessions map[int64]*Session
	locks    map[int64]*userLock

	now func() time.Time
	log zerolog.Logger
}

// New creates an empty engine.
func New(logger zerolog.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		defs:     make(map[Kind]*Definition),
		sessions: make(map[int64]*Session),
		locks:    make(map[int64]*userLock),
		now:      time.Now,
		log:      logger.With().Str("component", "conversation").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register adds a workflow definition. Definitions are registered at
// startup, before any input flows.
func (e *Engine) Register(def *Definition) error {
	if def.Kind == "" {
		return errors.New("workflow kind is required")
	}
	if _, ok := def.Steps[def.Initial]; !ok {
		return fmt.Errorf("workflow %q: initial step %q has no handler", def.Kind, def.Initial)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.defs[def.Kind]; exists {
		return fmt.Errorf("workflow %q already registered", def.Kind)
	}
	e.defs[def.Kind] = def
	return nil
}

// Start creates a session for the user at the workflow's initial step,
// silently discarding any existing session (stale drafts never survive a
// fresh workflow entry). refs carries the ids the workflow operates on,
// such as the event being edited.
func (e *Engine) Start(userID int64, kind Kind, data, refs map[string]string) (*Session, error) {
	lock := e.lockUser(userID)
	defer e.unlockUser(userID, lock)

	e.mu.Lock()
	def, ok := e.defs[kind]
	if !ok {
		e.mu.Unlock()
		return nil, fmt.Errorf("unknown workflow %q", kind)
	}
	if old := e.sessions[userID]; old != nil {
		e.log.Debug().Int64("telegram_id", userID).Str("workflow", string(old.Kind)).Msg("discarding stale session")
	}

	if data == nil {
		data = make(map[string]string)
	}
	if refs == nil {
		refs = make(map[string]string)
	}
	now := e.now()
	sess := &Session{
		ID:          uuid.New().String(),
		UserID:      userID,
		Kind:        kind,
		Step:        def.Initial,
		Data:        data,
		Refs:        refs,
		CreatedAt:   now,
		LastTouched: now,
	}
	e.sessions[userID] = sess
	e.mu.Unlock()

	e.log.Info().Int64("telegram_id", userID).Str("workflow", string(kind)).Str("session_id", sess.ID).Msg("workflow started")
	return sess, nil
}

// Active returns the user's current session, if any.
func (e *Engine) Active(userID int64) (*Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sess, ok := e.sessions[userID]
	return sess, ok
}

// Advance feeds one input to the user's active workflow. The per-user
// lock is held for the whole step, including any network I/O the handler
// performs; the arena lock is only held for map access, so other users
// are never blocked on one user's slow commit.
func (e *Engine) Advance(ctx context.Context, userID int64, input string) (Result, error) {
	lock := e.lockUser(userID)
	defer e.unlockUser(userID, lock)

	e.mu.Lock()
	sess, ok := e.sessions[userID]
	if !ok {
		e.mu.Unlock()
		return Result{}, ErrNoSession
	}
	def := e.defs[sess.Kind]
	e.mu.Unlock()

	handler, ok := def.Steps[sess.Step]
	if !ok {
		// Corrupt state; drop the session rather than wedge the user.
		e.remove(userID)
		e.log.Error().Int64("telegram_id", userID).Str("workflow", string(sess.Kind)).Str("step", string(sess.Step)).Msg("no handler for step, session dropped")
		return Result{}, ErrNoSession
	}

	result, err := handler(ctx, sess, input)
	if err != nil {
		// Terminal failure: no dangling drafts.
		e.remove(userID)
		e.log.Error().Err(err).Int64("telegram_id", userID).Str("workflow", string(sess.Kind)).Str("step", string(sess.Step)).Msg("step handler failed, session destroyed")
		return Result{}, err
	}

	sess.LastTouched = e.now()
	switch {
	case result.Done:
		e.remove(userID)
		e.log.Info().Int64("telegram_id", userID).Str("workflow", string(sess.Kind)).Msg("workflow finished")
	case result.Next != "":
		if _, ok := def.Steps[result.Next]; !ok {
			e.remove(userID)
			return Result{}, fmt.Errorf("workflow %q: transition to unknown step %q", sess.Kind, result.Next)
		}
		sess.Step = result.Next
	}
	return result, nil
}

// Cancel destroys the user's active session. Returns false when there was
// nothing to cancel.
func (e *Engine) Cancel(userID int64) bool {
	lock := e.lockUser(userID)
	defer e.unlockUser(userID, lock)

	e.mu.Lock()
	sess, ok := e.sessions[userID]
	if ok {
		delete(e.sessions, userID)
	}
	e.mu.Unlock()

	if ok {
		e.log.Info().Int64("telegram_id", userID).Str("workflow", string(sess.Kind)).Msg("workflow cancelled")
	}
	return ok
}

// SweepIdle removes sessions untouched for longer than maxIdle and
// returns how many were dropped. The engine applies no timeout on its
// own; staleness policy belongs to the caller.
func (e *Engine) SweepIdle(maxIdle time.Duration) int {
	cutoff := e.now().Add(-maxIdle)

	e.mu.Lock()
	defer e.mu.Unlock()
	removed := 0
	for userID, sess := range e.sessions {
		if sess.LastTouched.Before(cutoff) {
			delete(e.sessions, userID)
			if lock, ok := e.locks[userID]; ok && lock.refs == 0 {
				delete(e.locks, userID)
			}
			removed++
		}
	}
	return removed
}

func (e *Engine) remove(userID int64) {
	e.mu.Lock()
	delete(e.sessions, userID)
	e.mu.Unlock()
}

func (e *Engine) lockUser(userID int64) *userLock {
	e.mu.Lock()
	lock, ok := e.locks[userID]
	if !ok {
		lock = &userLock{}
		e.locks[userID] = lock
	}
	lock.refs++
	e.mu.Unlock()

	lock.mu.Lock()
	return lock
}

// unlockUser releases the step lock and drops the arena entry once the
// last holder is gone and the user has no session, so the lock map does
// not grow with every user ever seen.
func (e *Engine) unlockUser(userID int64, lock *userLock) {
	lock.mu.Unlock()

	e.mu.Lock()
	lock.refs--
	if lock.refs == 0 && e.sessions[userID] == nil {
		delete(e.locks, userID)
	}
	e.mu.Unlock()
}
