// Package debate implements the session and streaming-completion engine:
// session lifecycle, per-caller working history, the role adapter applied
// before every completion request, and the finalize-and-persist step that
// runs after a streamed reply.
package debate

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ashureev/debate-labs/internal/domain"
	"github.com/google/uuid"
)

// SessionStore is the persistence the controller needs. store.Serialized
// satisfies it.
type SessionStore interface {
	Load(ctx context.Context) domain.Snapshot
	Update(ctx context.Context, fn func(domain.Snapshot) error) error
	Clear(ctx context.Context) error
}

// StartParams seeds a new session.
type StartParams struct {
	SystemPrompt   string
	InitialMessage string
	Debate         *domain.DebateInfo
}

// PostRequest is one caller turn.
type PostRequest struct {
	SessionID string
	Text      string
	// IsFirstTurn lets the model speak first; Text is not appended.
	IsFirstTurn bool
	// Buffered requests the reply non-streaming, delivered as one fragment.
	Buffered bool
}

// Controller orchestrates session lifecycle across the registry and store.
type Controller struct {
	store    SessionStore
	registry *Registry
	pipeline *Pipeline
	model    string
	logger   *slog.Logger
	newID    func() string

	// lifecycle is held exclusively by ClearAll and shared by every other
	// operation that writes the store, so a clear never interleaves with a
	// start, resume, or finalize.
	lifecycle sync.RWMutex
}

// NewController creates a controller.
func NewController(store SessionStore, pipeline *Pipeline, model string, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		store:    store,
		registry: NewRegistry(),
		pipeline: pipeline,
		model:    model,
		logger:   logger,
		newID:    func() string { return uuid.Must(uuid.NewV7()).String() },
	}
}

// Model returns the backend model used for completions.
func (c *Controller) Model() string {
	return c.model
}

// Registry exposes the caller bindings.
func (c *Controller) Registry() *Registry {
	return c.registry
}

// Start creates a session seeded with the system prompt and an opening
// assistant message, persists it, and binds it to the caller.
func (c *Controller) Start(ctx context.Context, callerID string, p StartParams) (string, error) {
	c.lifecycle.RLock()
	defer c.lifecycle.RUnlock()

	if c.registry.Busy(callerID) {
		return "", ErrBusy
	}

	id := c.newID()
	sess := domain.Session{
		History: []domain.Message{
			domain.SystemMessage(p.SystemPrompt),
			domain.AssistantMessage(p.InitialMessage),
		},
		Debate: p.Debate,
	}

	err := c.store.Update(ctx, func(snap domain.Snapshot) error {
		if _, exists := snap[id]; exists {
			return fmt.Errorf("session id %s already in use", id)
		}
		snap[id] = sess.Clone()
		return nil
	})
	if err != nil {
		c.logger.Error("failed to persist new session", "caller_id", callerID, "session_id", id, "error", err)
		return "", fmt.Errorf("start session: %w", err)
	}

	// A turn acquired since the Busy check makes Bind fail; the session
	// must not outlive the failed start.
	if err := c.registry.Bind(callerID, id, sess); err != nil {
		rmErr := c.store.Update(ctx, func(snap domain.Snapshot) error {
			delete(snap, id)
			return nil
		})
		if rmErr != nil {
			c.logger.Error("failed to remove unbound session", "caller_id", callerID, "session_id", id, "error", rmErr)
		}
		return "", err
	}

	c.logger.Info("debate session started", "caller_id", callerID, "session_id", id)
	return id, nil
}

// Resume binds a persisted session to the caller. The history always comes
// from the store, never from a cached binding.
func (c *Controller) Resume(ctx context.Context, callerID, sessionID string) (domain.Session, error) {
	c.lifecycle.RLock()
	defer c.lifecycle.RUnlock()

	sess, ok := c.store.Load(ctx)[sessionID]
	if !ok {
		return domain.Session{}, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	if err := c.registry.Bind(callerID, sessionID, sess); err != nil {
		return domain.Session{}, err
	}

	c.logger.Info("debate session resumed", "caller_id", callerID, "session_id", sessionID, "messages", len(sess.History))
	return sess.Clone(), nil
}

// History returns the caller's active binding.
func (c *Controller) History(callerID string) (Binding, bool) {
	return c.registry.Active(callerID)
}

// PostMessage sends a caller turn to the model. Validation and binding
// errors are returned immediately. Otherwise the returned sequence yields
// reply fragments and may be ranged over once: the turn is acquired on the
// first pull, so a sequence that is never ranged holds nothing. After the
// last fragment the user turn and the assembled reply are persisted and
// committed to the working history. A non-nil error is always the final
// element; ErrBusy or ErrSessionNotBound may still arrive there if the
// binding changed before the first pull.
//
// If the consumer stops early, forwarding stops but the reply is still read
// to the end and persisted. The backend request does not observe ctx
// cancellation for the same reason.
func (c *Controller) PostMessage(ctx context.Context, callerID string, req PostRequest) (iter.Seq2[string, error], error) {
	text := strings.TrimSpace(req.Text)
	if !req.IsFirstTurn && text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrValidation)
	}
	if err := c.registry.check(callerID, req.SessionID); err != nil {
		return nil, err
	}

	backendCtx := context.WithoutCancel(ctx)

	var used atomic.Bool
	return func(yield func(string, error) bool) {
		if !used.CompareAndSwap(false, true) {
			yield("", ErrSequenceConsumed)
			return
		}
		t, err := c.registry.acquire(callerID, req.SessionID)
		if err != nil {
			yield("", err)
			return
		}
		defer c.registry.release(t)

		staged := t.history
		if !req.IsFirstTurn {
			staged = append(staged, domain.UserMessage(text))
		}

		var reply strings.Builder
		forwarding := true
		fragments := 0

		for frag, err := range c.pipeline.Complete(backendCtx, Adapt(staged), c.model, !req.Buffered) {
			if err != nil {
				c.logger.Error("completion failed",
					"caller_id", callerID,
					"session_id", t.sessionID,
					"fragments", fragments,
					"error", err,
				)
				if forwarding {
					yield("", err)
				}
				return
			}

			fragments++
			reply.WriteString(frag)
			if forwarding && !yield(frag, nil) {
				forwarding = false
				c.logger.Info("caller stopped reading, finishing reply",
					"caller_id", callerID,
					"session_id", t.sessionID,
				)
			}
		}

		if err := c.finalize(backendCtx, t, staged, reply.String()); err != nil {
			c.logger.Error("failed to persist reply",
				"caller_id", callerID,
				"session_id", t.sessionID,
				"error", err,
			)
			if forwarding {
				yield("", err)
			}
		}
	}, nil
}

// finalize persists the staged history plus the reply, then commits it to
// the working history. Nothing is written if the binding was cleared while
// the reply streamed.
func (c *Controller) finalize(ctx context.Context, t *turn, staged []domain.Message, reply string) error {
	c.lifecycle.RLock()
	defer c.lifecycle.RUnlock()

	if !c.registry.valid(t) {
		c.logger.Warn("session cleared while streaming, reply discarded",
			"caller_id", t.caller,
			"session_id", t.sessionID,
		)
		return nil
	}

	final := make([]domain.Message, 0, len(staged)+1)
	final = append(final, staged...)
	final = append(final, domain.AssistantMessage(reply))

	err := c.store.Update(ctx, func(snap domain.Snapshot) error {
		snap[t.sessionID] = domain.Session{History: final, Debate: t.debate}.Clone()
		return nil
	})
	if err != nil {
		return fmt.Errorf("persist session %s: %w", t.sessionID, err)
	}

	c.registry.commit(t, final)
	c.logger.Debug("reply persisted",
		"caller_id", t.caller,
		"session_id", t.sessionID,
		"messages", len(final),
	)
	return nil
}

// ClearAll deletes every persisted session and drops every binding.
func (c *Controller) ClearAll(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	dropped := c.registry.Reset()
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear sessions: %w", err)
	}

	c.logger.Info("all debate sessions cleared", "bindings_dropped", dropped)
	return nil
}
