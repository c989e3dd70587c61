// This file contains helpers for capturing log output in tests. The captured
// lines come from the production zerolog encoder, so assertions see the same
// JSON a user would.

package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

// TestLogger is a Logger that captures every record in memory.
// Loggers derived from it through With write to the same buffer.
//
// Example:
//
//	logger := log.NewTestLogger(log.LevelDebug)
//	logger.Info("test message", "key", "value")
//	if !logger.ContainsField("key", "value") { ... }
type TestLogger struct {
	Logger
	out *syncBuffer
}

// NewTestLogger creates a TestLogger with the specified minimum level.
func NewTestLogger(level Level) *TestLogger {
	out := &syncBuffer{}
	return &TestLogger{
		Logger: NewZerologLogger(out, level),
		out:    out,
	}
}

// Output returns the raw captured JSON lines.
func (t *TestLogger) Output() string {
	return t.out.String()
}

// Entries parses the captured output into one map per record.
func (t *TestLogger) Entries() ([]map[string]interface{}, error) {
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(t.out.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ContainsMessage reports whether any record has exactly this message.
func (t *TestLogger) ContainsMessage(message string) bool {
	entries, err := t.Entries()
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if entry["message"] == message {
			return true
		}
	}
	return false
}

// ContainsField reports whether any record carries key with the given value.
// Numbers decode as float64.
func (t *TestLogger) ContainsField(key string, value interface{}) bool {
	entries, err := t.Entries()
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if v, ok := entry[key]; ok && v == value {
			return true
		}
	}
	return false
}

// Clear discards all captured output.
func (t *TestLogger) Clear() {
	t.out.Reset()
}
