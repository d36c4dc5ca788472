package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider implements Provider over the Anthropic messages API.
// Thinking blocks map to reasoning deltas.
type AnthropicProvider struct {
	client anthropic.Client
	model  string
}

func NewAnthropicProvider(apiKey, model string) *AnthropicProvider {
	return &AnthropicProvider{
		client: anthropic.NewClient(anthropicoption.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (p *AnthropicProvider) Name() string {
	return fmt.Sprintf("Anthropic (%s)", p.model)
}

func (p *AnthropicProvider) Capabilities() Capabilities {
	return Capabilities{ToolCalls: true, Reasoning: true}
}

func (p *AnthropicProvider) Stream(ctx context.Context, req Request) (Stream, error) {
	return newEventStream(ctx, func(ctx context.Context, events chan<- Event) error {
		system, messages := buildAnthropicMessages(req.Messages)

		params := anthropic.MessageNewParams{
			Model:     anthropic.Model(chooseModel(req.Model, p.model)),
			MaxTokens: int64(maxTokens(req.MaxOutputTokens, 4096)),
			Messages:  messages,
		}
		if system != "" {
			params.System = []anthropic.TextBlockParam{{Text: system}}
		}
		if req.Temperature > 0 {
			params.Temperature = anthropic.Float(float64(req.Temperature))
		}
		if req.ToolCalls && req.Tool != nil {
			schema, err := json.Marshal(req.Tool.Schema)
			if err != nil {
				return fmt.Errorf("marshal tool schema %s: %w", req.Tool.Name, err)
			}
			var input anthropic.ToolInputSchemaParam
			if err := json.Unmarshal(schema, &input); err != nil {
				return fmt.Errorf("tool schema %s: %w", req.Tool.Name, err)
			}
			params.Tools = []anthropic.ToolUnionParam{{
				OfTool: &anthropic.ToolParam{
					Name:        req.Tool.Name,
					Description: anthropic.String(req.Tool.Description),
					InputSchema: input,
				},
			}}
		}

		pending := make(map[int64]ToolCall)
		args := make(map[int64]string)
		stream := p.client.Messages.NewStreaming(ctx, params)
		for stream.Next() {
			event := stream.Current()
			switch variant := event.AsAny().(type) {
			case anthropic.ContentBlockStartEvent:
				switch block := variant.ContentBlock.AsAny().(type) {
				case anthropic.ThinkingBlock:
					if block.Thinking != "" {
						if !send(ctx, events, Event{Type: EventReasoningDelta, Text: block.Thinking}) {
							return nil
						}
					}
				case anthropic.ToolUseBlock:
					pending[variant.Index] = ToolCall{ID: block.ID, Name: block.Name}
					if !send(ctx, events, Event{Type: EventToolCallStart}) {
						return nil
					}
				}
			case anthropic.ContentBlockDeltaEvent:
				switch delta := variant.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					if delta.Text != "" {
						if !send(ctx, events, Event{Type: EventTextDelta, Text: delta.Text}) {
							return nil
						}
					}
				case anthropic.ThinkingDelta:
					if delta.Thinking != "" {
						if !send(ctx, events, Event{Type: EventReasoningDelta, Text: delta.Thinking}) {
							return nil
						}
					}
				case anthropic.InputJSONDelta:
					args[variant.Index] += delta.PartialJSON
				}
			case anthropic.ContentBlockStopEvent:
				if call, ok := pending[variant.Index]; ok {
					call.Arguments = json.RawMessage(args[variant.Index])
					delete(pending, variant.Index)
					delete(args, variant.Index)
					if !send(ctx, events, Event{Type: EventToolCallEnd, Tool: &call}) {
						return nil
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			var apierr *anthropic.Error
			if errors.As(err, &apierr) {
				return backendErr("anthropic", apierr.StatusCode, err)
			}
			return backendErr("anthropic", 0, err)
		}
		if !send(ctx, events, Event{Type: EventDone}) {
			return nil
		}
		return nil
	}), nil
}

func buildAnthropicMessages(messages []Message) (string, []anthropic.MessageParam) {
	var system string
	var result []anthropic.MessageParam
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += msg.Content
		case RoleUser:
			result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case RoleAssistant:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, 1+len(msg.ToolCalls))
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, json.RawMessage(tc.Arguments), tc.Name))
			}
			if len(blocks) > 0 {
				result = append(result, anthropic.NewAssistantMessage(blocks...))
			}
		case RoleTool:
			result = append(result, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false)))
		}
	}
	return system, result
}

func maxTokens(requested, fallback int) int {
	if requested > 0 {
		return requested
	}
	return fallback
}
