package debate

import (
	"fmt"
	"slices"
	"sync"

	"github.com/ashureev/debate-labs/internal/domain"
)

// Binding is a caller's active session and its working history.
type Binding struct {
	SessionID string
	History   []domain.Message
	Debate    *domain.DebateInfo
}

type binding struct {
	sessionID string
	history   []domain.Message
	debate    *domain.DebateInfo
	streaming bool
}

// turn is one in-flight PostMessage against a binding.
type turn struct {
	caller    string
	b         *binding
	sessionID string
	history   []domain.Message
	debate    *domain.DebateInfo
}

// Registry tracks the active session of every caller. Each caller has at
// most one binding; binding again replaces it.
type Registry struct {
	mu       sync.Mutex
	bindings map[string]*binding // callerID -> binding
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{bindings: make(map[string]*binding)}
}

// Bind makes sessionID the caller's active session with the given history.
// Returns ErrBusy if the caller's current binding has a reply streaming.
func (r *Registry) Bind(callerID, sessionID string, sess domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.bindings[callerID]; ok && cur.streaming {
		return ErrBusy
	}
	sess = sess.Clone()
	r.bindings[callerID] = &binding{
		sessionID: sessionID,
		history:   sess.History,
		debate:    sess.Debate,
	}
	return nil
}

// Active returns a copy of the caller's binding.
func (r *Registry) Active(callerID string) (Binding, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bindings[callerID]
	if !ok {
		return Binding{}, false
	}
	out := Binding{
		SessionID: b.sessionID,
		History:   slices.Clone(b.history),
	}
	if b.debate != nil {
		d := *b.debate
		out.Debate = &d
	}
	return out, true
}

// Busy reports whether the caller has a reply streaming.
func (r *Registry) Busy(callerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bindings[callerID]
	return ok && b.streaming
}

// Reset drops every binding and returns how many there were. In-flight turns
// against dropped bindings will not be committed.
func (r *Registry) Reset() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.bindings)
	r.bindings = make(map[string]*binding)
	return n
}

// Len returns the number of bound callers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bindings)
}

// check reports whether a turn on sessionID could be acquired now.
func (r *Registry) check(callerID, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.lookup(callerID, sessionID)
	return err
}

func (r *Registry) lookup(callerID, sessionID string) (*binding, error) {
	b, ok := r.bindings[callerID]
	if !ok || b.sessionID != sessionID {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotBound, sessionID)
	}
	if b.streaming {
		return nil, ErrBusy
	}
	return b, nil
}

// acquire starts a turn on the caller's binding for sessionID.
func (r *Registry) acquire(callerID, sessionID string) (*turn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, err := r.lookup(callerID, sessionID)
	if err != nil {
		return nil, err
	}
	b.streaming = true

	t := &turn{
		caller:    callerID,
		b:         b,
		sessionID: b.sessionID,
		history:   slices.Clone(b.history),
	}
	if b.debate != nil {
		d := *b.debate
		t.debate = &d
	}
	return t, nil
}

// valid reports whether the turn's binding is still the caller's binding.
func (r *Registry) valid(t *turn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bindings[t.caller] == t.b
}

// commit replaces the working history of the turn's binding if it is still
// current.
func (r *Registry) commit(t *turn, history []domain.Message) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bindings[t.caller] != t.b {
		return false
	}
	t.b.history = slices.Clone(history)
	return true
}

// release ends the turn.
func (r *Registry) release(t *turn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.b.streaming = false
}
