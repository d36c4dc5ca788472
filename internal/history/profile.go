// Package history keeps a model conversation within its token budget. It
// owns the ordered message log for a chat session and the eviction policy
// that makes room for new turns.
package history

import (
	"unicode/utf8"

	"github.com/aish-sh/aish/internal/llm"
)

// replyPrimingTokens is the fixed overhead of the implicit assistant reply
// header primed by the backend.
const replyPrimingTokens = 3

// Profile holds the per-model token accounting constants. Profiles are
// immutable once loaded and are swapped wholesale when the active model
// changes.
type Profile struct {
	Model             string
	TokensPerMessage  int // envelope cost added per message
	TokensPerName     int // extra envelope cost when the name field is set
	ContextLimit      int // total context window of the model
	MaxResponseTokens int // reservation kept free for the model's reply
}

// DefaultProfile returns conservative accounting constants for models
// without an explicit profile.
func DefaultProfile(model string) Profile {
	return Profile{
		Model:             model,
		TokensPerMessage:  3,
		TokensPerName:     1,
		ContextLimit:      128000,
		MaxResponseTokens: 4096,
	}
}

// EstimateCost returns the estimated token cost of sending messages to
// this model: the per-message envelope and field costs plus the fixed
// reply priming constant. It is a pure function of its input.
func (p Profile) EstimateCost(messages []llm.Message) int {
	return p.messagesCost(messages) + replyPrimingTokens
}

// messagesCost is EstimateCost without the shared reply priming constant.
// The admission bound is enforced on this sum so that costs stay additive
// across messages.
func (p Profile) messagesCost(messages []llm.Message) int {
	total := 0
	for _, msg := range messages {
		total += p.messageCost(msg)
	}
	return total
}

func (p Profile) messageCost(msg llm.Message) int {
	cost := p.TokensPerMessage + textTokens(msg.Content)
	if msg.Name != "" {
		cost += p.TokensPerName + textTokens(msg.Name)
	}
	if msg.ToolCallID != "" {
		cost += textTokens(msg.ToolCallID)
	}
	for _, tc := range msg.ToolCalls {
		cost += textTokens(tc.Name) + textTokens(string(tc.Arguments))
	}
	return cost
}

// textTokens estimates token usage from rune length. Roughly four
// characters per token, rounded up; matches the coarse accounting used
// for budget decisions, not any backend's exact tokenizer.
func textTokens(s string) int {
	if s == "" {
		return 0
	}
	n := utf8.RuneCountInString(s)
	return (n + 3) / 4
}
