package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/aish-sh/aish/internal/debuglog"
	"github.com/aish-sh/aish/internal/history"
	"github.com/aish-sh/aish/internal/llm"
)

const defaultMaxToolTurns = 8

// ToolRunner executes one tool call and returns its textual output.
type ToolRunner func(ctx context.Context, call llm.ToolCall) (string, error)

// Options configures a Session.
type Options struct {
	Provider    llm.Provider
	Store       *history.Store
	Coordinator *Coordinator
	// Runner and Tool enable the tool-call loop. With a nil Runner the
	// assistant's tool calls are recorded in history but not executed.
	Runner ToolRunner
	Tool   *llm.ToolSpec
	// Temperature is passed through to the backend.
	Temperature float32
	// MaxToolTurns bounds the request/tool-result loop within one Ask.
	MaxToolTurns int
	Log          *debuglog.Logger
}

// Session owns one conversation: its history, the active backend, and the
// coordinator that streams each turn to the terminal.
type Session struct {
	provider     llm.Provider
	store        *history.Store
	coord        *Coordinator
	runner       ToolRunner
	tool         *llm.ToolSpec
	temperature  float32
	maxToolTurns int
	log          *debuglog.Logger
}

func NewSession(opts Options) *Session {
	s := &Session{
		provider:     opts.Provider,
		store:        opts.Store,
		coord:        opts.Coordinator,
		runner:       opts.Runner,
		tool:         opts.Tool,
		temperature:  opts.Temperature,
		maxToolTurns: opts.MaxToolTurns,
		log:          opts.Log,
	}
	if s.maxToolTurns <= 0 {
		s.maxToolTurns = defaultMaxToolTurns
	}
	return s
}

// Store exposes the session's history.
func (s *Session) Store() *history.Store { return s.store }

// Ask runs one full round: admit the user message, stream the response,
// execute any tool calls, and commit the final assistant message. On any
// failure, including cancellation, history is restored to its state from
// before the call.
func (s *Session) Ask(ctx context.Context, input string) (llm.Message, error) {
	before := s.store.Messages()

	if err := s.store.Admit(llm.UserText(input)); err != nil {
		return llm.Message{}, err
	}

	var final llm.Message
	for turn := 0; turn < s.maxToolTurns; turn++ {
		res, err := s.runTurn(ctx)
		if err != nil {
			s.store.Load(before)
			return llm.Message{}, err
		}
		s.store.Append(res.Message)
		final = res.Message

		if len(res.Message.ToolCalls) == 0 || s.runner == nil {
			return final, nil
		}
		if err := s.runToolCalls(ctx, res.Message.ToolCalls); err != nil {
			s.store.Load(before)
			return llm.Message{}, err
		}
	}
	return final, nil
}

func (s *Session) runTurn(ctx context.Context) (Result, error) {
	profile := s.store.Profile()
	req := llm.Request{
		Model:           profile.Model,
		Messages:        s.store.Messages(),
		Temperature:     s.temperature,
		MaxOutputTokens: profile.MaxResponseTokens,
		ToolCalls:       s.tool != nil && s.provider.Capabilities().ToolCalls,
		Tool:            s.tool,
	}
	s.log.Event("request", map[string]any{
		"provider": s.provider.Name(),
		"model":    req.Model,
		"messages": len(req.Messages),
	})

	stream, err := s.provider.Stream(ctx, req)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return Result{}, ErrStreamCancelled
		}
		return Result{}, fmt.Errorf("opening stream: %w", err)
	}
	return s.coord.Run(ctx, stream)
}

// runToolCalls executes each call and admits its output as a tool message,
// truncated so an oversized result cannot blow the response budget.
func (s *Session) runToolCalls(ctx context.Context, calls []llm.ToolCall) error {
	profile := s.store.Profile()
	// The runner owns the terminal while it executes: confirmation
	// prompts and command output must not race the waiter's redraws.
	if w := s.coord.waiter; w != nil {
		w.Suspend()
		defer w.Resume()
	}
	for _, call := range calls {
		out, err := s.runner(ctx, call)
		if err != nil {
			if ctx.Err() != nil {
				return ErrStreamCancelled
			}
			// The model sees tool failures as output and can react.
			out = "error: " + err.Error()
		}
		out = profile.TruncateOversizedToolOutput(out)
		s.log.Event("tool_result", map[string]any{
			"tool":  call.Name,
			"bytes": len(out),
		})
		if err := s.store.Admit(llm.ToolResultMessage(call.ID, call.Name, out)); err != nil {
			return err
		}
	}
	return nil
}

// SetProvider swaps the active backend. Callers switching models must also
// Reconfigure with the new model's profile.
func (s *Session) SetProvider(provider llm.Provider) { s.provider = provider }

// Reset clears the conversation, keeping the active profile.
func (s *Session) Reset() { s.store.Reset() }

// Reconfigure switches the active model profile. Token accounting is
// model-specific, so the history is cleared.
func (s *Session) Reconfigure(profile history.Profile) {
	s.store.Reconfigure(profile)
}
