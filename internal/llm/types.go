package llm

import (
	"context"
	"encoding/json"
)

// Provider streams model output events for a request.
type Provider interface {
	Name() string
	Capabilities() Capabilities
	Stream(ctx context.Context, req Request) (Stream, error)
}

// Capabilities describe optional provider features.
type Capabilities struct {
	ToolCalls bool
	Reasoning bool
}

// Stream yields events until io.EOF. A chunked stream is terminated by an
// explicit EventDone before EOF; a stream that ends without one was cut
// short by the backend. Recv is the sole suspension point of a chat turn
// and must unblock promptly when the context is cancelled.
type Stream interface {
	Recv() (Event, error)
	Close() error
}

// Request represents a single model turn.
type Request struct {
	Model           string
	Messages        []Message
	Temperature     float32
	MaxOutputTokens int
	ToolCalls       bool // whether the model may emit tool calls this turn
	Tool            *ToolSpec
}

// Role identifies a message role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one conversation turn as sent to a backend.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// IsEmpty reports whether the message carries neither content nor tool
// calls. An assistant message in this state signals a backend anomaly and
// must never be persisted to history.
func (m Message) IsEmpty() bool {
	return m.Content == "" && len(m.ToolCalls) == 0
}

// ToolCall is a model-requested tool invocation.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ToolSpec describes a callable tool offered to the model.
type ToolSpec struct {
	Name        string
	Description string
	Schema      map[string]interface{}
}

// EventType describes streaming events.
type EventType string

const (
	EventTextDelta      EventType = "text_delta"
	EventReasoningDelta EventType = "reasoning_delta"
	EventToolCallStart  EventType = "tool_call_start"
	EventToolCallEnd    EventType = "tool_call_end"
	EventError          EventType = "error"
	EventDone           EventType = "done"
)

// Event represents one streamed output delta.
type Event struct {
	Type EventType
	Text string
	Tool *ToolCall // set on EventToolCallEnd with the assembled call
	Err  error
}

func SystemText(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

func UserText(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

func AssistantText(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

// ToolResultMessage creates the tool-role message carrying a tool's output.
func ToolResultMessage(callID, name, content string) Message {
	return Message{Role: RoleTool, Name: name, Content: content, ToolCallID: callID}
}
