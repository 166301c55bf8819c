package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ashureev/debate-labs/internal/debate"
	"github.com/ashureev/debate-labs/internal/domain"
)

type capturedRequest struct {
	Referer string
	Title   string
	Auth    string
	Body    map[string]any
}

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, body map[string]any)) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var mu sync.Mutex
	var captured []capturedRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		mu.Lock()
		captured = append(captured, capturedRequest{
			Referer: r.Header.Get("HTTP-Referer"),
			Title:   r.Header.Get("X-Title"),
			Auth:    r.Header.Get("Authorization"),
			Body:    body,
		})
		mu.Unlock()
		handler(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func newTestOpenRouter(srv *httptest.Server) *OpenRouter {
	return NewOpenRouter(Config{
		APIKey:  "test-key",
		BaseURL: srv.URL + "/api/v1",
		SiteURL: "http://localhost:5000",
		AppName: "DebateApp",
	}, nil)
}

var testRequest = debate.CompletionRequest{
	Model: "google/gemma-3-27b-it:free",
	Messages: []domain.Message{
		domain.UserMessage("Topic is X"),
		domain.AssistantMessage(""),
		domain.UserMessage("I disagree"),
	},
}

func TestOpenRouterCreateCompletion(t *testing.T) {
	srv, captured := newTestServer(t, func(w http.ResponseWriter, _ map[string]any) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"  Counterpoint.  "},"finish_reason":"stop"}]}`)
	})

	text, err := newTestOpenRouter(srv).CreateCompletion(context.Background(), testRequest)
	if err != nil {
		t.Fatalf("CreateCompletion failed: %v", err)
	}
	if text != "  Counterpoint.  " {
		t.Fatalf("unexpected text %q", text)
	}

	if len(*captured) != 1 {
		t.Fatalf("expected 1 request, got %d", len(*captured))
	}
	req := (*captured)[0]
	if req.Referer != "http://localhost:5000" || req.Title != "DebateApp" {
		t.Fatalf("missing attribution headers: %+v", req)
	}
	if req.Auth != "Bearer test-key" {
		t.Fatalf("unexpected auth header %q", req.Auth)
	}
	if req.Body["model"] != testRequest.Model {
		t.Fatalf("unexpected model %v", req.Body["model"])
	}
	msgs, _ := req.Body["messages"].([]any)
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %v", req.Body["messages"])
	}
}

func TestOpenRouterStreamCompletion(t *testing.T) {
	srv, captured := newTestServer(t, func(w http.ResponseWriter, _ map[string]any) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, delta := range []string{"Counter", "point", "."} {
			_, _ = fmt.Fprintf(w, "data: {\"id\":\"1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", delta)
		}
		_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	})

	var frags []string
	for frag, err := range newTestOpenRouter(srv).StreamCompletion(context.Background(), testRequest) {
		if err != nil {
			t.Fatalf("stream failed: %v", err)
		}
		frags = append(frags, frag)
	}
	if strings.Join(frags, "") != "Counterpoint." {
		t.Fatalf("unexpected fragments %q", frags)
	}
	if stream, _ := (*captured)[0].Body["stream"].(bool); !stream {
		t.Fatal("expected stream=true in request body")
	}
}

func TestOpenRouterErrorMapping(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, _ map[string]any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = fmt.Fprint(w, `{"error":{"message":"rate limited upstream","type":"rate_limit","code":429}}`)
	})
	backend := newTestOpenRouter(srv)

	_, err := backend.CreateCompletion(context.Background(), testRequest)
	var backendErr *debate.BackendError
	if !errors.As(err, &backendErr) {
		t.Fatalf("expected BackendError, got %T %v", err, err)
	}
	if backendErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", backendErr.StatusCode)
	}

	for _, err := range backend.StreamCompletion(context.Background(), testRequest) {
		if !errors.As(err, &backendErr) || backendErr.StatusCode != http.StatusTooManyRequests {
			t.Fatalf("expected streaming BackendError 429, got %v", err)
		}
	}
}

func TestOpenRouterTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	backend := newTestOpenRouter(srv)
	srv.Close()

	_, err := backend.CreateCompletion(context.Background(), testRequest)
	var transportErr *debate.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %T %v", err, err)
	}
}
