package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/ashureev/debate-labs/internal/debate"
	"github.com/ashureev/debate-labs/internal/domain"
	"github.com/ashureev/debate-labs/internal/identity"
	"github.com/go-chi/chi/v5"
)

// DebateHandler serves the debate lifecycle endpoints.
type DebateHandler struct {
	ctrl      *debate.Controller
	aiEnabled bool
	maxBody   int64
	logger    *slog.Logger
}

// NewDebateHandler creates a debate handler. aiEnabled is reported by
// /api/config so the UI can warn when no backend key is configured.
func NewDebateHandler(ctrl *debate.Controller, aiEnabled bool, maxBody int64, logger *slog.Logger) *DebateHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DebateHandler{
		ctrl:      ctrl,
		aiEnabled: aiEnabled,
		maxBody:   maxBody,
		logger:    logger,
	}
}

// RegisterRoutes mounts the debate endpoints. limit wraps the message
// endpoint, which is the only one that reaches the backend.
func (h *DebateHandler) RegisterRoutes(r chi.Router, limit func(http.Handler) http.Handler) {
	if limit == nil {
		limit = func(next http.Handler) http.Handler { return next }
	}
	r.Get("/api/config", h.Config)
	r.Route("/api/debate", func(r chi.Router) {
		r.Post("/start", h.Start)
		r.With(limit).Post("/message", h.Message)
		r.Post("/resume", h.Resume)
		r.Post("/clear", h.Clear)
	})
}

type startRequest struct {
	Topic          string          `json:"topic"`
	UserPosition   domain.Position `json:"user_position"`
	InitialMessage string          `json:"initial_message"`
}

type startResponse struct {
	SessionID  string           `json:"session_id"`
	Message    string           `json:"message"`
	AIPosition domain.Position  `json:"ai_position"`
	History    []domain.Message `json:"history"`
}

type messageRequest struct {
	SessionID   string `json:"session_id"`
	Text        string `json:"text"`
	IsFirstTurn bool   `json:"is_first_turn"`
}

type messageResponse struct {
	Message       string `json:"message"`
	ProcessedText string `json:"processed_text"`
}

type resumeRequest struct {
	SessionID string `json:"session_id"`
}

type resumeResponse struct {
	SessionID string             `json:"session_id"`
	History   []domain.Message   `json:"history"`
	Debate    *domain.DebateInfo `json:"debate,omitempty"`
}

// Config reports whether completions are available and which model is used.
func (h *DebateHandler) Config(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]any{
		"ai_enabled": h.aiEnabled,
		"model":      h.ctrl.Model(),
	})
}

// Start opens a new debate for the caller.
func (h *DebateHandler) Start(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req startRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		writeDebateError(w, err)
		return
	}
	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" {
		Error(w, http.StatusBadRequest, "topic is required")
		return
	}
	aiPosition := req.UserPosition.Opposite()
	if aiPosition == "" {
		Error(w, http.StatusBadRequest, "user_position must be 'affirmative' or 'negative'")
		return
	}

	opening := strings.TrimSpace(req.InitialMessage)
	if opening == "" {
		opening = DefaultOpening(req.Topic, aiPosition)
	}

	id, err := h.ctrl.Start(r.Context(), callerID, debate.StartParams{
		SystemPrompt:   BuildSystemPrompt(req.Topic, aiPosition),
		InitialMessage: opening,
		Debate: &domain.DebateInfo{
			Topic:        req.Topic,
			UserPosition: req.UserPosition,
			AIPosition:   aiPosition,
		},
	})
	if err != nil {
		writeDebateError(w, err)
		return
	}

	var history []domain.Message
	if b, ok := h.ctrl.History(callerID); ok && b.SessionID == id {
		history = b.History
	}

	h.logger.Info("debate started", "caller_id", callerID, "session_id", id, "ai_position", aiPosition)
	JSON(w, http.StatusOK, startResponse{
		SessionID:  id,
		Message:    "Debate context has been set.",
		AIPosition: aiPosition,
		History:    history,
	})
}

// Message posts a caller turn and streams the reply. The response is
// chunked text/plain by default, SSE when the client accepts
// text/event-stream, and a single JSON object with ?stream=false.
func (h *DebateHandler) Message(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req messageRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		writeDebateError(w, err)
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		Error(w, http.StatusBadRequest, "session_id is required")
		return
	}

	buffered := r.URL.Query().Get("stream") == "false"
	if !buffered {
		if _, ok := w.(http.Flusher); !ok {
			Error(w, http.StatusInternalServerError, "streaming not supported")
			return
		}
	}

	seq, err := h.ctrl.PostMessage(r.Context(), callerID, debate.PostRequest{
		SessionID:   req.SessionID,
		Text:        strings.TrimSpace(req.Text),
		IsFirstTurn: req.IsFirstTurn,
		Buffered:    buffered,
	})
	if err != nil {
		writeDebateError(w, err)
		return
	}

	switch {
	case buffered:
		var reply strings.Builder
		for frag, err := range seq {
			if err != nil {
				writeDebateError(w, err)
				return
			}
			reply.WriteString(frag)
		}
		JSON(w, http.StatusOK, messageResponse{
			Message:       "AI processed the message.",
			ProcessedText: reply.String(),
		})
	case strings.Contains(r.Header.Get("Accept"), "text/event-stream"):
		streamFragments(w, seq, sseFraming{}, h.logger.With("caller_id", callerID, "session_id", req.SessionID))
	default:
		streamFragments(w, seq, plainFraming{}, h.logger.With("caller_id", callerID, "session_id", req.SessionID))
	}
}

// Resume rebinds the caller to a persisted session.
func (h *DebateHandler) Resume(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req resumeRequest
	if err := decodeJSON(w, r, h.maxBody, &req); err != nil {
		writeDebateError(w, err)
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		Error(w, http.StatusBadRequest, "session_id is required")
		return
	}

	sess, err := h.ctrl.Resume(r.Context(), callerID, req.SessionID)
	if err != nil {
		writeDebateError(w, err)
		return
	}

	JSON(w, http.StatusOK, resumeResponse{
		SessionID: req.SessionID,
		History:   sess.History,
		Debate:    sess.Debate,
	})
}

// Clear deletes every debate session.
func (h *DebateHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.ClearAll(r.Context()); err != nil {
		h.logger.Error("failed to clear sessions", "error", err)
		writeDebateError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"message": "All debate sessions have been cleared."})
}

func (h *DebateHandler) caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := identity.CallerIDFromContext(r.Context())
	if id == "" {
		Error(w, http.StatusInternalServerError, "caller identity missing")
		return "", false
	}
	return id, true
}
