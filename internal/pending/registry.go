package pending

import (
	"context"
	"errors"
	"sync"
	"time"

	"taskbot/internal/identity"
	"taskbot/pkg/logging"
)

// DefaultTimeout is how long an attempt waits for its callback.
const DefaultTimeout = 60 * time.Second

var (
	// ErrAuthTimeout completes attempts whose callback never arrived.
	ErrAuthTimeout = errors.New("Authentication timeout")
	// ErrSuperseded completes attempts replaced by a newer one for the same user.
	ErrSuperseded = errors.New("Authentication superseded by a newer request")
)

// Outcome classifies how an attempt completed.
type Outcome string

const (
	OutcomeResolved   Outcome = "resolved"
	OutcomeRejected   Outcome = "rejected"
	OutcomeTimeout    Outcome = "timeout"
	OutcomeSuperseded Outcome = "superseded"
)

// Observer is told about registry activity. Implementations must be safe
// for concurrent use and must not call back into the registry.
type Observer interface {
	PendingChanged(n int)
	Completed(outcome Outcome)
}

type result struct {
	profile *identity.Profile
	err     error
}

type entry struct {
	userID string
	done   chan result
	timer  *time.Timer
	once   sync.Once
}

// complete delivers r once. It reports whether this call won.
func (e *entry) complete(r result) bool {
	won := false
	e.once.Do(func() {
		won = true
		if e.timer != nil {
			e.timer.Stop()
		}
		e.done <- r
	})
	return won
}

// Handle is the awaitable side of a registered attempt.
type Handle struct {
	e *entry
}

// UserID returns the user the attempt was registered for.
func (h *Handle) UserID() string { return h.e.userID }

// Await blocks until the attempt completes or ctx is done.
func (h *Handle) Await(ctx context.Context) (*identity.Profile, error) {
	select {
	case r := <-h.e.done:
		return r.profile, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Option configures a Registry.
type Option func(*Registry)

// WithRejectSuperseded makes Register complete a replaced attempt
// immediately with ErrSuperseded instead of leaving it to its deadline.
func WithRejectSuperseded(reject bool) Option {
	return func(r *Registry) { r.rejectSuperseded = reject }
}

// WithObserver attaches an observer, typically the metrics collector.
func WithObserver(o Observer) Option {
	return func(r *Registry) { r.observer = o }
}

// Registry maps user ids to their pending attempt.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry

	rejectSuperseded bool
	observer         Observer
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{entries: make(map[string]*entry)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register records a new attempt for userID, replacing any existing one.
// A non-positive timeout selects DefaultTimeout.
func (r *Registry) Register(userID string, timeout time.Duration) *Handle {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	e := &entry{userID: userID, done: make(chan result, 1)}

	r.mu.Lock()
	old := r.entries[userID]
	r.entries[userID] = e
	// Armed under the lock so the timer cannot observe a half-registered entry.
	e.timer = time.AfterFunc(timeout, func() { r.expire(e) })
	n := len(r.entries)
	r.mu.Unlock()

	if old != nil {
		logging.Debug("Pending", "Replacing pending authentication for user=%s", logging.Truncate(userID))
		if r.rejectSuperseded && old.complete(result{err: ErrSuperseded}) {
			r.notifyCompleted(OutcomeSuperseded)
		}
	}

	logging.Debug("Pending", "Registered authentication for user=%s timeout=%s", logging.Truncate(userID), timeout)
	r.notifyPending(n)
	return &Handle{e: e}
}

// Resolve completes the user's attempt with a profile. It reports false
// when nothing is pending for the user.
func (r *Registry) Resolve(userID string, profile *identity.Profile) bool {
	return r.finish(userID, result{profile: profile}, OutcomeResolved)
}

// Reject completes the user's attempt with reason. It reports false when
// nothing is pending for the user.
func (r *Registry) Reject(userID string, reason error) bool {
	return r.finish(userID, result{err: reason}, OutcomeRejected)
}

// Pending reports whether userID has an attempt in flight.
func (r *Registry) Pending(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[userID]
	return ok
}

// Len returns the number of attempts in flight.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) finish(userID string, res result, outcome Outcome) bool {
	r.mu.Lock()
	e, ok := r.entries[userID]
	if ok {
		delete(r.entries, userID)
	}
	n := len(r.entries)
	r.mu.Unlock()

	if !ok {
		return false
	}

	r.notifyPending(n)
	if !e.complete(res) {
		return false
	}
	r.notifyCompleted(outcome)
	return true
}

func (r *Registry) expire(e *entry) {
	r.mu.Lock()
	removed := false
	if r.entries[e.userID] == e {
		delete(r.entries, e.userID)
		removed = true
	}
	n := len(r.entries)
	r.mu.Unlock()

	if removed {
		r.notifyPending(n)
	}
	if e.complete(result{err: ErrAuthTimeout}) {
		logging.Info("Pending", "Authentication timed out for user=%s", logging.Truncate(e.userID))
		r.notifyCompleted(OutcomeTimeout)
	}
}

func (r *Registry) notifyPending(n int) {
	if r.observer != nil {
		r.observer.PendingChanged(n)
	}
}

func (r *Registry) notifyCompleted(o Outcome) {
	if r.observer != nil {
		r.observer.Completed(o)
	}
}
