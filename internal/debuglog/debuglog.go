// Package debuglog writes per-session JSONL trace files for debugging
// backend traffic. Logging is opt-in; a nil *Logger is safe to use and
// records nothing.
package debuglog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type Logger struct {
	sessionID string

	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	closed bool
}

type entry struct {
	Timestamp string `json:"timestamp"`
	SessionID string `json:"session_id"`
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
}

// Open creates a logger writing to <baseDir>/<sessionID>.jsonl.
func Open(baseDir, sessionID string) (*Logger, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating debug log dir: %w", err)
	}
	path := filepath.Join(baseDir, sessionID+".jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening debug log: %w", err)
	}
	return &Logger{
		sessionID: sessionID,
		file:      f,
		writer:    bufio.NewWriter(f),
	}, nil
}

// Event appends one entry. The payload must be JSON-marshalable.
func (l *Logger) Event(kind string, data any) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	line, err := json.Marshal(entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		SessionID: l.sessionID,
		Type:      kind,
		Data:      data,
	})
	if err != nil {
		return
	}
	l.writer.Write(line)
	l.writer.WriteByte('\n')
	l.writer.Flush()
}

// Eventf appends a formatted text entry.
func (l *Logger) Eventf(kind, format string, args ...any) {
	l.Event(kind, fmt.Sprintf(format, args...))
}

func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	l.writer.Flush()
	return l.file.Close()
}
