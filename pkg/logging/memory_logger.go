package logging

import (
	"strings"
	"sync"
)

// MemoryLogger keeps every entry in memory. Packages use it in
// tests to assert on what was logged.
type MemoryLogger struct {
	mu      *sync.Mutex
	entries *[]LogEntry
	fields  map[string]any
}

// NewMemoryLogger returns an empty MemoryLogger.
func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{
		mu:      &sync.Mutex{},
		entries: &[]LogEntry{},
		fields:  map[string]any{},
	}
}

func (m *MemoryLogger) add(level LogLevel, msg string, fields []Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*m.entries = append(*m.entries, LogEntry{
		Level:   level.String(),
		Message: msg,
		Fields:  mergeFields(m.fields, fields),
	})
}

func (m *MemoryLogger) Info(msg string, fields ...Field)  { m.add(LevelInfo, msg, fields) }
func (m *MemoryLogger) Warn(msg string, fields ...Field)  { m.add(LevelWarn, msg, fields) }
func (m *MemoryLogger) Error(msg string, fields ...Field) { m.add(LevelError, msg, fields) }
func (m *MemoryLogger) Debug(msg string, fields ...Field) { m.add(LevelDebug, msg, fields) }

// WithFields returns a child that records into the same slice.
func (m *MemoryLogger) WithFields(fields ...Field) Logger {
	return &MemoryLogger{
		mu:      m.mu,
		entries: m.entries,
		fields:  mergeFields(m.fields, fields),
	}
}

func (m *MemoryLogger) LogAPIRequest(_ APIRequestLog)   {}
func (m *MemoryLogger) LogAPIResponse(_ APIResponseLog) {}
func (m *MemoryLogger) Close() error                    { return nil }

// Entries returns a copy of the recorded entries.
func (m *MemoryLogger) Entries() []LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]LogEntry, len(*m.entries))
	copy(out, *m.entries)
	return out
}

// Count returns how many entries at level contain substr.
func (m *MemoryLogger) Count(level LogLevel, substr string) int {
	n := 0
	for _, e := range m.Entries() {
		if e.Level == level.String() && strings.Contains(e.Message, substr) {
			n++
		}
	}
	return n
}
