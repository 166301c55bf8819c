package debate

import "github.com/ashureev/debate-labs/internal/domain"

// Adapt rewrites a canonical history into the form accepted by models that
// reject the system role. Each system message becomes a user message, and if
// the message after it is not an assistant turn an empty assistant turn is
// inserted so user and assistant turns keep alternating. All other messages
// pass through in order. The input slice is not modified.
func Adapt(history []domain.Message) []domain.Message {
	out := make([]domain.Message, 0, len(history)+1)
	for i, msg := range history {
		if msg.Role != domain.RoleSystem {
			out = append(out, msg)
			continue
		}

		out = append(out, domain.UserMessage(msg.Content))
		if i+1 >= len(history) || history[i+1].Role != domain.RoleAssistant {
			out = append(out, domain.AssistantMessage(""))
		}
	}
	return out
}
