package api

import (
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
)

// framing writes reply fragments in one wire format.
type framing interface {
	header(h http.Header)
	fragment(w io.Writer, content string) error
	fail(w io.Writer, message string) error
	done(w io.Writer) error
}

type plainFraming struct{}

func (plainFraming) header(h http.Header) {
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Cache-Control", "no-cache")
}

func (plainFraming) fragment(w io.Writer, content string) error {
	_, err := io.WriteString(w, content)
	return err
}

// Plain streams have no error channel once the status is sent; the stream
// is simply closed.
func (plainFraming) fail(io.Writer, string) error { return nil }

func (plainFraming) done(io.Writer) error { return nil }

type sseFraming struct{}

func (sseFraming) header(h http.Header) {
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
}

func (sseFraming) fragment(w io.Writer, content string) error {
	return writeSSEJSON(w, "message", map[string]string{"content": content})
}

func (sseFraming) fail(w io.Writer, message string) error {
	return writeSSEJSON(w, "error", map[string]string{"error": message})
}

func (sseFraming) done(w io.Writer) error {
	return writeSSE(w, "done", "{}")
}

// streamFragments forwards seq to w. Headers are deferred until the first
// fragment so an error before any output still gets a proper status code.
// Returning early on a write failure stops forwarding; the controller
// finishes and persists the reply on its own.
func streamFragments(w http.ResponseWriter, seq iter.Seq2[string, error], f framing, logger *slog.Logger) {
	flusher, _ := w.(http.Flusher)
	flush := func() {
		if flusher != nil {
			flusher.Flush()
		}
	}

	started := false
	begin := func() {
		f.header(w.Header())
		w.WriteHeader(http.StatusOK)
		started = true
	}

	fragments := 0
	for frag, err := range seq {
		if err != nil {
			if !started {
				writeDebateError(w, err)
				return
			}
			_, msg := debateErrorStatus(err)
			logger.Warn("reply stream ended with error", "fragments", fragments, "error", err)
			if writeErr := f.fail(w, msg); writeErr != nil {
				logger.Debug("failed to write stream error", "error", writeErr)
			}
			flush()
			return
		}

		if !started {
			begin()
		}
		if err := f.fragment(w, frag); err != nil {
			logger.Info("caller disconnected mid-stream", "fragments", fragments, "error", err)
			return
		}
		fragments++
		flush()
	}

	if !started {
		begin()
	}
	if err := f.done(w); err != nil {
		logger.Debug("failed to write stream end", "error", err)
	}
	flush()
}

func writeSSE(w io.Writer, event, data string) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

// writeSSEJSON encodes data as JSON so fragments containing newlines cannot
// break event framing.
func writeSSEJSON(w io.Writer, event string, data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return writeSSE(w, event, string(b))
}
