package llm

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/ashureev/debate-labs/internal/debate"
	"github.com/ashureev/debate-labs/internal/domain"
)

// Mock is a deterministic offline Backend. It rebuts the last user turn and
// streams the rebuttal word by word.
type Mock struct {
	delay time.Duration
}

// NewMock creates a mock backend that waits delay between fragments.
func NewMock(delay time.Duration) *Mock {
	return &Mock{delay: delay}
}

func (m *Mock) reply(messages []domain.Message) string {
	last := ""
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == domain.RoleUser && messages[i].Content != "" {
			last = messages[i].Content
			break
		}
	}
	if last == "" || len(messages) <= 2 {
		return "Let me open this debate: the burden of proof lies with the other side."
	}
	if r := []rune(last); len(r) > 40 {
		last = string(r[:40]) + "..."
	}
	return fmt.Sprintf("You claim %q, but that overlooks the strongest counterexample.", last)
}

// CreateCompletion returns the whole rebuttal.
func (m *Mock) CreateCompletion(ctx context.Context, req debate.CompletionRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return m.reply(req.Messages), nil
}

// StreamCompletion yields the rebuttal one word at a time.
func (m *Mock) StreamCompletion(ctx context.Context, req debate.CompletionRequest) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		words := strings.SplitAfter(m.reply(req.Messages), " ")
		for _, w := range words {
			if m.delay > 0 {
				select {
				case <-ctx.Done():
					yield("", ctx.Err())
					return
				case <-time.After(m.delay):
				}
			}
			if !yield(w, nil) {
				return
			}
		}
	}
}

// Disabled is a Backend used when no API key is configured.
type Disabled struct{}

func (Disabled) err() error {
	return &debate.BackendError{StatusCode: 500, Message: "AI service is not configured"}
}

// CreateCompletion always fails.
func (d Disabled) CreateCompletion(context.Context, debate.CompletionRequest) (string, error) {
	return "", d.err()
}

// StreamCompletion always fails.
func (d Disabled) StreamCompletion(context.Context, debate.CompletionRequest) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		yield("", d.err())
	}
}

var (
	_ debate.Backend = (*Mock)(nil)
	_ debate.Backend = Disabled{}
)
