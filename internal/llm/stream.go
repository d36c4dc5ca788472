package llm

import (
	"context"
	"io"
)

// eventStream is a channel-backed Stream fed by a producer goroutine.
// Cancelling the context unblocks a pending Recv immediately; anything the
// producer had buffered is discarded when the channel drains.
type eventStream struct {
	ctx    context.Context
	cancel context.CancelFunc
	events chan Event
}

// newEventStream starts produce in a goroutine and returns a Stream over
// its events. If produce returns an error it surfaces as a final
// EventError; otherwise the stream ends with io.EOF after the channel
// closes. Producers are expected to emit EventDone themselves before
// returning nil.
func newEventStream(ctx context.Context, produce func(ctx context.Context, events chan<- Event) error) Stream {
	ctx, cancel := context.WithCancel(ctx)
	s := &eventStream{
		ctx:    ctx,
		cancel: cancel,
		events: make(chan Event, 64),
	}
	go func() {
		defer close(s.events)
		if err := produce(ctx, s.events); err != nil && ctx.Err() == nil {
			select {
			case s.events <- Event{Type: EventError, Err: err}:
			case <-ctx.Done():
			}
		}
	}()
	return s
}

// send delivers ev to the stream unless it has been cancelled. Producers
// stop when it returns false.
func send(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *eventStream) Recv() (Event, error) {
	select {
	case <-s.ctx.Done():
		return Event{}, s.ctx.Err()
	case ev, ok := <-s.events:
		if !ok {
			return Event{}, io.EOF
		}
		return ev, nil
	}
}

func (s *eventStream) Close() error {
	s.cancel()
	return nil
}

// singleResponseStream adapts a whole, already-complete response to the
// Stream contract. It yields the response content as one text delta, then
// the assembled tool calls, then EventDone.
type singleResponseStream struct {
	ctx    context.Context
	events []Event
	pos    int
}

// NewSingleResponseStream wraps a completed assistant message in a Stream.
func NewSingleResponseStream(ctx context.Context, msg Message) Stream {
	var events []Event
	if msg.Content != "" {
		events = append(events, Event{Type: EventTextDelta, Text: msg.Content})
	}
	for i := range msg.ToolCalls {
		tc := msg.ToolCalls[i]
		events = append(events, Event{Type: EventToolCallStart})
		events = append(events, Event{Type: EventToolCallEnd, Tool: &tc})
	}
	events = append(events, Event{Type: EventDone})
	return &singleResponseStream{ctx: ctx, events: events}
}

func (s *singleResponseStream) Recv() (Event, error) {
	if err := s.ctx.Err(); err != nil {
		return Event{}, err
	}
	if s.pos >= len(s.events) {
		return Event{}, io.EOF
	}
	ev := s.events[s.pos]
	s.pos++
	return ev, nil
}

func (s *singleResponseStream) Close() error { return nil }
