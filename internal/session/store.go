// Package session persists conversations so a chat can be resumed across
// process restarts.
package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aish-sh/aish/internal/llm"
)

// Session is one saved conversation.
type Session struct {
	ID        string
	Provider  string
	Model     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is the interface for session persistence.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit int) ([]Session, error)

	// AddMessage appends one message to a session's transcript.
	AddMessage(ctx context.Context, sessionID string, msg llm.Message) error
	// Messages returns a session's transcript in conversation order.
	Messages(ctx context.Context, sessionID string) ([]llm.Message, error)

	// Current session tracking, for resume.
	SetCurrent(ctx context.Context, sessionID string) error
	GetCurrent(ctx context.Context) (*Session, error)

	Close() error
}

// Config holds session storage configuration.
type Config struct {
	Enabled  bool `mapstructure:"enabled"`
	MaxCount int  `mapstructure:"max_count"` // keep at most N sessions (0=unlimited)
}

// GetDataDir returns the XDG data directory for aish.
func GetDataDir() (string, error) {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "aish"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "aish"), nil
}

// GetDBPath returns the path to the sessions database.
func GetDBPath() (string, error) {
	dataDir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "sessions.db"), nil
}

// NewStore creates a Store based on the configuration. If sessions are
// disabled, it returns a no-op store.
func NewStore(cfg Config) (Store, error) {
	if !cfg.Enabled {
		return &NoopStore{}, nil
	}
	dbPath, err := GetDBPath()
	if err != nil {
		return nil, err
	}
	return NewSQLiteStore(dbPath, cfg)
}
