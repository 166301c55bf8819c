package debate

import (
	"context"
	"iter"
	"log/slog"
	"strings"
	"unicode"

	"github.com/ashureev/debate-labs/internal/domain"
)

// NoResponsePlaceholder is delivered in place of an empty model reply.
const NoResponsePlaceholder = "The AI did not return a valid response."

// CompletionRequest is what the pipeline sends to a Backend.
type CompletionRequest struct {
	Model    string
	Messages []domain.Message
}

// Backend is a chat completion service.
type Backend interface {
	// CreateCompletion returns the whole reply at once.
	CreateCompletion(ctx context.Context, req CompletionRequest) (string, error)

	// StreamCompletion yields reply fragments in delivery order. A non-nil
	// error is always the last element.
	StreamCompletion(ctx context.Context, req CompletionRequest) iter.Seq2[string, error]
}

// Pipeline issues completion requests and normalizes their output.
type Pipeline struct {
	backend Backend
	logger  *slog.Logger
}

// NewPipeline creates a pipeline over backend.
func NewPipeline(backend Backend, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{backend: backend, logger: logger}
}

// Complete requests a reply for messages from model. The returned sequence
// yields text fragments; when stream is false it yields exactly one
// fragment. Either way the text is trimmed of surrounding whitespace and an
// empty reply becomes NoResponsePlaceholder. Errors are *BackendError or
// *TransportError and end the sequence.
func (p *Pipeline) Complete(ctx context.Context, messages []domain.Message, model string, stream bool) iter.Seq2[string, error] {
	req := CompletionRequest{Model: model, Messages: messages}

	if !stream {
		return func(yield func(string, error) bool) {
			text, err := p.backend.CreateCompletion(ctx, req)
			if err != nil {
				yield("", classifyBackendErr(err))
				return
			}
			text = strings.TrimSpace(text)
			if text == "" {
				p.logger.Warn("backend returned empty completion", "model", model)
				text = NoResponsePlaceholder
			}
			yield(text, nil)
		}
	}

	return func(yield func(string, error) bool) {
		// Leading whitespace is dropped and trailing whitespace is held back
		// until more content follows, so the fragments join to the same
		// trimmed text a buffered request returns.
		var pending string
		delivered := 0
		for frag, err := range p.backend.StreamCompletion(ctx, req) {
			if err != nil {
				yield("", classifyBackendErr(err))
				return
			}
			if delivered == 0 {
				frag = strings.TrimLeftFunc(frag, unicode.IsSpace)
			}
			if frag == "" {
				continue
			}

			text := pending + frag
			content := strings.TrimRightFunc(text, unicode.IsSpace)
			pending = text[len(content):]
			if content == "" {
				continue
			}
			delivered++
			if !yield(content, nil) {
				return
			}
		}
		if delivered == 0 {
			p.logger.Warn("backend stream ended without content", "model", model)
			yield(NoResponsePlaceholder, nil)
		}
	}
}
