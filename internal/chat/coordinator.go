// Package chat runs interactive turns: it admits user input into history,
// consumes the backend delta stream, and forwards accumulated text to the
// terminal renderer.
package chat

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/aish-sh/aish/internal/debuglog"
	"github.com/aish-sh/aish/internal/llm"
)

// ErrStreamCancelled reports a turn aborted by the user or the host before
// the backend finished. Nothing from the turn is committed to history.
var ErrStreamCancelled = errors.New("stream cancelled")

const (
	thinkingOpen  = "<Thinking>\n"
	thinkingClose = "\n</Thinking>\n\n"
)

// Display receives the full text accumulated so far after every delta and
// paints the changed part.
type Display interface {
	Refresh(accumulated string) error
	Finish() error
}

// Waiter is the idle indicator shown while the turn waits on the backend.
// Suspensions nest.
type Waiter interface {
	Suspend()
	Resume()
}

// Result is what one completed stream produced.
type Result struct {
	// Display is everything that was shown, including thinking markers.
	Display string
	// Message is the assistant message to append to history: the answer
	// text without reasoning, plus any tool calls.
	Message llm.Message
}

// Coordinator consumes one delta stream, classifying deltas into reasoning
// and answer segments, tracking open tool calls, and driving the display.
type Coordinator struct {
	display Display
	waiter  Waiter
	log     *debuglog.Logger
}

func NewCoordinator(display Display, waiter Waiter, log *debuglog.Logger) *Coordinator {
	return &Coordinator{display: display, waiter: waiter, log: log}
}

// Run pulls the stream to completion. On cancellation it returns
// ErrStreamCancelled and leaves whatever was already painted on screen.
func (c *Coordinator) Run(ctx context.Context, stream llm.Stream) (Result, error) {
	defer stream.Close()

	var display, answer strings.Builder
	var calls []llm.ToolCall
	inThinking := false
	openCalls := 0
	streamSuspended := false
	toolSuspended := false
	done := false

	defer func() {
		if streamSuspended {
			c.waiter.Resume()
		}
		if toolSuspended {
			c.waiter.Resume()
		}
	}()

	for {
		ev, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return Result{}, ErrStreamCancelled
			}
			return Result{}, err
		}

		switch ev.Type {
		case llm.EventReasoningDelta:
			if !inThinking {
				display.WriteString(thinkingOpen)
				inThinking = true
			}
			display.WriteString(ev.Text)
			if err := c.paint(&streamSuspended, display.String()); err != nil {
				return Result{}, err
			}

		case llm.EventTextDelta:
			if inThinking {
				display.WriteString(thinkingClose)
				inThinking = false
			}
			display.WriteString(ev.Text)
			answer.WriteString(ev.Text)
			if err := c.paint(&streamSuspended, display.String()); err != nil {
				return Result{}, err
			}

		case llm.EventToolCallStart:
			openCalls++
			if openCalls == 1 && !toolSuspended {
				c.waiter.Suspend()
				toolSuspended = true
			}

		case llm.EventToolCallEnd:
			if ev.Tool != nil {
				calls = append(calls, *ev.Tool)
			}
			if openCalls > 0 {
				openCalls--
			}
			if openCalls == 0 && toolSuspended {
				c.waiter.Resume()
				toolSuspended = false
			}

		case llm.EventError:
			return Result{}, ev.Err

		case llm.EventDone:
			done = true

		default:
			// Unexpected delta shape from the backend. Treat it as an
			// empty text delta and keep going.
			c.log.Eventf("malformed_delta", "unknown event type %q", ev.Type)
		}
	}

	if !done {
		if ctx.Err() != nil {
			return Result{}, ErrStreamCancelled
		}
		return Result{}, errors.New("stream ended without completion")
	}

	if inThinking {
		display.WriteString(thinkingClose)
	}
	if display.Len() > 0 {
		if err := c.display.Refresh(display.String()); err != nil {
			return Result{}, err
		}
		if err := c.display.Finish(); err != nil {
			return Result{}, err
		}
	}

	return Result{
		Display: display.String(),
		Message: llm.Message{
			Role:      llm.RoleAssistant,
			Content:   answer.String(),
			ToolCalls: calls,
		},
	}, nil
}

// paint suspends the waiter on first visible output, then refreshes.
func (c *Coordinator) paint(streamSuspended *bool, accumulated string) error {
	if !*streamSuspended {
		c.waiter.Suspend()
		*streamSuspended = true
	}
	return c.display.Refresh(accumulated)
}
