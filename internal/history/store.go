package history

import (
	"errors"

	"github.com/aish-sh/aish/internal/llm"
)

// ErrInputTooLarge means the new message alone cannot fit in the model's
// context window even with an empty history. The turn is aborted and
// nothing is added.
var ErrInputTooLarge = errors.New("input exceeds the model's context window")

// errNothingEvictable is an invariant violation: eviction ran out of
// non-system messages while still over budget. Callers guarantee at least
// one evictable message exists whenever Admit is reachable.
var errNothingEvictable = errors.New("history over budget with nothing evictable")

// Store is the ordered, mutable log of conversation turns. Insertion
// order is conversation order. It is owned by a single chat session and
// is not safe for concurrent use.
type Store struct {
	profile  Profile
	messages []llm.Message
}

func NewStore(profile Profile) *Store {
	return &Store{profile: profile}
}

func (s *Store) Profile() Profile { return s.profile }

func (s *Store) Len() int { return len(s.messages) }

// Messages returns a copy of the log in conversation order.
func (s *Store) Messages() []llm.Message {
	out := make([]llm.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Load replaces the log with previously persisted messages, applying the
// message invariants: assistant messages with no content and no tool
// calls are dropped.
func (s *Store) Load(messages []llm.Message) {
	s.messages = s.messages[:0]
	for _, msg := range messages {
		if msg.Role == llm.RoleAssistant && msg.IsEmpty() {
			continue
		}
		s.messages = append(s.messages, msg)
	}
}

// Append adds a completed message without triggering eviction. Empty
// assistant messages are discarded (backend anomaly).
func (s *Store) Append(msg llm.Message) {
	if msg.Role == llm.RoleAssistant && msg.IsEmpty() {
		return
	}
	s.messages = append(s.messages, msg)
}

// Reset clears the log, keeping the active profile.
func (s *Store) Reset() {
	s.messages = nil
}

// Reconfigure installs a new token profile and clears the log. Token
// accounting and tool eligibility are model specific, so history cannot
// survive a model switch.
func (s *Store) Reconfigure(profile Profile) {
	s.profile = profile
	s.messages = nil
}

// Admit appends msg, then evicts oldest non-system messages until the
// history plus the response reservation fits the context window. An
// evicted assistant message takes its trailing tool messages with it.
// Returns ErrInputTooLarge (history unchanged) if msg alone cannot fit.
func (s *Store) Admit(msg llm.Message) error {
	p := s.profile
	if p.messageCost(msg)+p.MaxResponseTokens >= p.ContextLimit {
		return ErrInputTooLarge
	}

	s.messages = append(s.messages, msg)
	for p.messagesCost(s.messages)+p.MaxResponseTokens > p.ContextLimit {
		if !s.evictOldest() {
			// Undo the append so a caller observing the invariant
			// violation still sees its history intact.
			s.messages = s.messages[:len(s.messages)-1]
			return errNothingEvictable
		}
	}
	return nil
}

// evictOldest removes the oldest non-system message, pairing an assistant
// message with the contiguous run of tool messages that follows it. The
// newest message (the one just admitted) is never a candidate. Reports
// false when nothing is evictable.
func (s *Store) evictOldest() bool {
	idx := -1
	for i := 0; i < len(s.messages)-1; i++ {
		if s.messages[i].Role != llm.RoleSystem {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	end := idx + 1
	if s.messages[idx].Role == llm.RoleAssistant {
		for end < len(s.messages) && s.messages[end].Role == llm.RoleTool {
			end++
		}
	}
	s.messages = append(s.messages[:idx], s.messages[end:]...)
	return true
}
