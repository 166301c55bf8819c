package llm

import (
	"context"
	"errors"
	"io"
	"iter"
	"log/slog"
	"net/http"

	"github.com/ashureev/debate-labs/internal/debate"
	"github.com/ashureev/debate-labs/internal/domain"
	openai "github.com/sashabaranov/go-openai"
)

// DefaultBaseURL is the OpenRouter OpenAI-compatible endpoint.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// OpenRouter is a Backend for the OpenRouter chat completions API.
type OpenRouter struct {
	client *openai.Client
	logger *slog.Logger
}

// headerTransport adds fixed headers to every request.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}
	return t.base.RoundTrip(req)
}

// NewOpenRouter creates an OpenRouter backend. OpenRouter uses the
// HTTP-Referer and X-Title headers to attribute traffic to the app.
func NewOpenRouter(cfg Config, logger *slog.Logger) *OpenRouter {
	if logger == nil {
		logger = slog.Default()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	if clientCfg.BaseURL == "" {
		clientCfg.BaseURL = DefaultBaseURL
	}
	clientCfg.HTTPClient = &http.Client{
		Transport: &headerTransport{
			base: http.DefaultTransport,
			headers: map[string]string{
				"HTTP-Referer": cfg.SiteURL,
				"X-Title":      cfg.AppName,
			},
		},
	}

	return &OpenRouter{
		client: openai.NewClientWithConfig(clientCfg),
		logger: logger,
	}
}

func toChatMessages(messages []domain.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
	}
	return out
}

// CreateCompletion requests a complete reply.
func (o *OpenRouter) CreateCompletion(ctx context.Context, req debate.CompletionRequest) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: toChatMessages(req.Messages),
	})
	if err != nil {
		return "", mapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// StreamCompletion streams reply deltas.
func (o *OpenRouter) StreamCompletion(ctx context.Context, req debate.CompletionRequest) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		stream, err := o.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
			Model:    req.Model,
			Messages: toChatMessages(req.Messages),
			Stream:   true,
		})
		if err != nil {
			yield("", mapError(err))
			return
		}
		defer func() {
			if closeErr := stream.Close(); closeErr != nil {
				o.logger.Debug("failed to close completion stream", "error", closeErr)
			}
		}()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", mapError(err))
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			if !yield(resp.Choices[0].Delta.Content, nil) {
				return
			}
		}
	}
}

// mapError converts client errors into the debate error taxonomy.
func mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &debate.BackendError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &debate.BackendError{StatusCode: reqErr.HTTPStatusCode, Message: http.StatusText(reqErr.HTTPStatusCode)}
	}
	return &debate.TransportError{Err: err}
}

var _ debate.Backend = (*OpenRouter)(nil)
