package session

import (
	"context"

	"github.com/aish-sh/aish/internal/llm"
)

// NoopStore discards everything. Used when session persistence is disabled.
type NoopStore struct{}

func (n *NoopStore) Create(ctx context.Context, s *Session) error { return nil }

func (n *NoopStore) Get(ctx context.Context, id string) (*Session, error) { return nil, nil }

func (n *NoopStore) Delete(ctx context.Context, id string) error { return nil }

func (n *NoopStore) List(ctx context.Context, limit int) ([]Session, error) { return nil, nil }

func (n *NoopStore) AddMessage(ctx context.Context, sessionID string, msg llm.Message) error {
	return nil
}

func (n *NoopStore) Messages(ctx context.Context, sessionID string) ([]llm.Message, error) {
	return nil, nil
}

func (n *NoopStore) SetCurrent(ctx context.Context, sessionID string) error { return nil }

func (n *NoopStore) GetCurrent(ctx context.Context) (*Session, error) { return nil, nil }

func (n *NoopStore) Close() error { return nil }
