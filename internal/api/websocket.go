package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/ashureev/debate-labs/internal/debate"
	"github.com/ashureev/debate-labs/internal/identity"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// Limiter admits or rejects one request for a key.
type Limiter interface {
	Allow(key string) bool
}

// WebSocketHandler streams debate replies over a WebSocket. Each client
// frame is one caller turn; the reply comes back as fragment frames
// followed by a done or error frame.
type WebSocketHandler struct {
	ctrl           *debate.Controller
	originPatterns []string
	limiter        Limiter
	logger         *slog.Logger
}

// NewWebSocketHandler creates a WebSocket handler. limiter may be nil.
func NewWebSocketHandler(ctrl *debate.Controller, originPatterns []string, limiter Limiter, logger *slog.Logger) *WebSocketHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketHandler{
		ctrl:           ctrl,
		originPatterns: originPatterns,
		limiter:        limiter,
		logger:         logger,
	}
}

// OriginPatterns converts allowed CORS origins into host patterns for the
// WebSocket handshake. Development mode accepts any origin.
func OriginPatterns(origins []string, isDev bool) []string {
	if isDev {
		return []string{"*"}
	}
	var out []string
	for _, o := range origins {
		if o == "*" {
			return []string{"*"}
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
		} else {
			out = append(out, o)
		}
	}
	return out
}

type wsClientFrame struct {
	Type        string `json:"type"`
	SessionID   string `json:"session_id"`
	Text        string `json:"text"`
	IsFirstTurn bool   `json:"is_first_turn"`
}

type wsServerFrame struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	callerID := identity.CallerIDFromContext(r.Context())
	logger := h.logger.With("caller_id", callerID)

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		logger.Error("failed to accept websocket", "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "debate ended"); closeErr != nil {
			logger.Debug("failed to close websocket", "error", closeErr)
		}
	}()

	ctx := r.Context()
	for {
		var frame wsClientFrame
		if err := wsjson.Read(ctx, ws, &frame); err != nil {
			if websocket.CloseStatus(err) != -1 {
				logger.Debug("websocket closed by client")
			} else {
				logger.Warn("websocket read error", "error", err)
			}
			return
		}

		if err := h.handleFrame(ctx, ws, callerID, frame); err != nil {
			logger.Info("websocket write failed", "error", err)
			return
		}
	}
}

// handleFrame runs one turn. The returned error is a write failure on the
// connection; request errors are reported to the client as error frames.
func (h *WebSocketHandler) handleFrame(ctx context.Context, ws *websocket.Conn, callerID string, frame wsClientFrame) error {
	if frame.Type != "message" {
		return h.write(ctx, ws, wsServerFrame{Type: "error", Error: "unsupported frame type"})
	}
	if h.limiter != nil && !h.limiter.Allow(callerID) {
		return h.write(ctx, ws, wsServerFrame{Type: "error", Error: "rate limit exceeded"})
	}

	seq, err := h.ctrl.PostMessage(ctx, callerID, debate.PostRequest{
		SessionID:   frame.SessionID,
		Text:        strings.TrimSpace(frame.Text),
		IsFirstTurn: frame.IsFirstTurn,
	})
	if err != nil {
		_, msg := debateErrorStatus(err)
		return h.write(ctx, ws, wsServerFrame{Type: "error", Error: msg})
	}

	for frag, err := range seq {
		if err != nil {
			_, msg := debateErrorStatus(err)
			return h.write(ctx, ws, wsServerFrame{Type: "error", Error: msg})
		}
		if err := h.write(ctx, ws, wsServerFrame{Type: "fragment", Content: frag}); err != nil {
			return err
		}
	}
	return h.write(ctx, ws, wsServerFrame{Type: "done"})
}

func (h *WebSocketHandler) write(ctx context.Context, ws *websocket.Conn, frame wsServerFrame) error {
	return wsjson.Write(ctx, ws, frame)
}
