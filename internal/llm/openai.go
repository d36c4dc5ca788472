package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIProvider implements Provider over the OpenAI chat completions API.
type OpenAIProvider struct {
	client openai.Client
	model  string
}

func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	return &OpenAIProvider{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (p *OpenAIProvider) Name() string {
	return fmt.Sprintf("OpenAI (%s)", p.model)
}

func (p *OpenAIProvider) Capabilities() Capabilities {
	return Capabilities{ToolCalls: true, Reasoning: true}
}

func (p *OpenAIProvider) Stream(ctx context.Context, req Request) (Stream, error) {
	return newEventStream(ctx, func(ctx context.Context, events chan<- Event) error {
		params := openai.ChatCompletionNewParams{
			Model:    openai.ChatModel(chooseModel(req.Model, p.model)),
			Messages: buildOpenAIMessages(req.Messages),
		}
		if req.Temperature > 0 {
			params.Temperature = openai.Float(float64(req.Temperature))
		}
		if req.MaxOutputTokens > 0 {
			params.MaxCompletionTokens = openai.Int(int64(req.MaxOutputTokens))
		}
		if req.ToolCalls && req.Tool != nil {
			params.Tools = []openai.ChatCompletionToolParam{{
				Function: openai.FunctionDefinitionParam{
					Name:        req.Tool.Name,
					Description: openai.String(req.Tool.Description),
					Parameters:  openai.FunctionParameters(req.Tool.Schema),
				},
			}}
		}

		state := newToolCallState()
		stream := p.client.Chat.Completions.NewStreaming(ctx, params)
		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta
			if delta.Content != "" {
				if !send(ctx, events, Event{Type: EventTextDelta, Text: delta.Content}) {
					return nil
				}
			}
			// OpenAI-compatible servers surface reasoning as an extra
			// delta field; treat it as a reasoning delta when present.
			if field, ok := delta.JSON.ExtraFields["reasoning_content"]; ok {
				if text, err := strconv.Unquote(field.Raw()); err == nil && text != "" {
					if !send(ctx, events, Event{Type: EventReasoningDelta, Text: text}) {
						return nil
					}
				}
			}
			for _, tc := range delta.ToolCalls {
				if state.Append(int(tc.Index), tc.ID, tc.Function.Name, tc.Function.Arguments) {
					if !send(ctx, events, Event{Type: EventToolCallStart}) {
						return nil
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			var apierr *openai.Error
			if errors.As(err, &apierr) {
				return backendErr("openai", apierr.StatusCode, err)
			}
			return backendErr("openai", 0, err)
		}
		for _, call := range state.Calls() {
			if !send(ctx, events, Event{Type: EventToolCallEnd, Tool: &call}) {
				return nil
			}
		}
		if !send(ctx, events, Event{Type: EventDone}) {
			return nil
		}
		return nil
	}), nil
}

func buildOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			result = append(result, openai.SystemMessage(msg.Content))
		case RoleUser:
			result = append(result, openai.UserMessage(msg.Content))
		case RoleAssistant:
			if len(msg.ToolCalls) > 0 {
				assistant := openai.ChatCompletionAssistantMessageParam{}
				if msg.Content != "" {
					assistant.Content.OfString = openai.String(msg.Content)
				}
				for _, tc := range msg.ToolCalls {
					assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
						ID: tc.ID,
						Function: openai.ChatCompletionMessageToolCallFunctionParam{
							Name:      tc.Name,
							Arguments: string(tc.Arguments),
						},
					})
				}
				result = append(result, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
				continue
			}
			result = append(result, openai.AssistantMessage(msg.Content))
		case RoleTool:
			result = append(result, openai.ToolMessage(msg.Content, msg.ToolCallID))
		}
	}
	return result
}

func chooseModel(requested, configured string) string {
	if requested != "" {
		return requested
	}
	return configured
}

// toolCallState assembles streamed tool-call fragments keyed by index.
type toolCallState struct {
	byIndex map[int]*toolCallParts
	order   []int
}

type toolCallParts struct {
	id   string
	name string
	args strings.Builder
}

func newToolCallState() *toolCallState {
	return &toolCallState{byIndex: make(map[int]*toolCallParts)}
}

// Append merges one fragment and reports whether it opened a new call.
func (s *toolCallState) Append(index int, id, name, args string) bool {
	parts, ok := s.byIndex[index]
	opened := false
	if !ok {
		parts = &toolCallParts{}
		s.byIndex[index] = parts
		s.order = append(s.order, index)
		opened = true
	}
	if id != "" {
		parts.id = id
	}
	if name != "" {
		parts.name = name
	}
	if args != "" {
		parts.args.WriteString(args)
	}
	return opened
}

func (s *toolCallState) Calls() []ToolCall {
	if len(s.order) == 0 {
		return nil
	}
	sort.Ints(s.order)
	calls := make([]ToolCall, 0, len(s.order))
	for _, idx := range s.order {
		parts := s.byIndex[idx]
		calls = append(calls, ToolCall{
			ID:        parts.id,
			Name:      parts.name,
			Arguments: json.RawMessage(parts.args.String()),
		})
	}
	return calls
}
