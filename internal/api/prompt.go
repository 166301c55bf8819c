package api

import (
	"fmt"

	"github.com/ashureev/debate-labs/internal/domain"
)

const systemPromptTemplate = "This is a debate on the topic %q. " +
	"You argue the %s side. The user argues the opposite side. " +
	"Your role is to present persuasive counterarguments based on the information provided and general knowledge. " +
	"Stay calm, reason logically, and keep each rebuttal concise, within 140 characters."

// BuildSystemPrompt returns the framing prompt for a debate where the model
// argues aiPosition.
func BuildSystemPrompt(topic string, aiPosition domain.Position) string {
	return fmt.Sprintf(systemPromptTemplate, topic, aiPosition)
}

// DefaultOpening is the assistant's first message when the caller supplies
// none.
func DefaultOpening(topic string, aiPosition domain.Position) string {
	return fmt.Sprintf("Let's debate %q. I will argue the %s side. Make your case.", topic, aiPosition)
}
