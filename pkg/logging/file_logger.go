package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultLogFile is the centralized log file shared by every test
// in a run. Its contents are attached to remote test results.
const DefaultLogFile = "harness.log"

// jsonMarshal is a variable for dependency injection in tests.
var jsonMarshal = json.Marshal

// LogEntry represents a single JSON log line.
type LogEntry struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// FileLoggerConfig configures a FileLogger.
type FileLoggerConfig struct {
	// Path is the log file. Empty means DefaultLogFile.
	Path string
	// APIRequestLog and APIResponseLog are optional dedicated
	// files for REST traffic.
	APIRequestLog  string
	APIResponseLog string
	Level          LogLevel
	Fields         map[string]any
}

// fileSink is shared between a FileLogger and the children
// produced by WithFields.
type fileSink struct {
	mu       sync.Mutex
	path     string
	out      *os.File
	requests io.WriteCloser
	replies  io.WriteCloser
	closed   bool
}

// FileLogger writes JSON Lines to the centralized log file.
type FileLogger struct {
	sink   *fileSink
	level  LogLevel
	fields map[string]any
}

// NewFileLogger opens (or creates) the log file in append mode.
func NewFileLogger(config FileLoggerConfig) (*FileLogger, error) {
	path := config.Path
	if path == "" {
		path = DefaultLogFile
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf(
				"failed to create log directory: %w", err,
			)
		}
	}
	out, err := openAppend(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	sink := &fileSink{path: path, out: out}

	if config.APIRequestLog != "" {
		if sink.requests, err = openAppend(config.APIRequestLog); err != nil {
			out.Close()
			return nil, fmt.Errorf(
				"failed to open API request log: %w", err,
			)
		}
	}
	if config.APIResponseLog != "" {
		if sink.replies, err = openAppend(config.APIResponseLog); err != nil {
			out.Close()
			return nil, fmt.Errorf(
				"failed to open API response log: %w", err,
			)
		}
	}

	fields := config.Fields
	if fields == nil {
		fields = make(map[string]any)
	}
	return &FileLogger{sink: sink, level: config.Level, fields: fields}, nil
}

func openAppend(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// Path returns the log file location.
func (l *FileLogger) Path() string { return l.sink.path }

// Truncate empties the log file so a run starts with a clean
// log. Subsequent writes continue to append.
func (l *FileLogger) Truncate() error {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	if l.sink.closed {
		return fmt.Errorf("log file %s is closed", l.sink.path)
	}
	if err := l.sink.out.Truncate(0); err != nil {
		return fmt.Errorf("truncate %s: %w", l.sink.path, err)
	}
	_, err := l.sink.out.Seek(0, io.SeekStart)
	return err
}

func (l *FileLogger) log(level LogLevel, msg string, fields ...Field) {
	if level < l.level {
		return
	}
	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level.String(),
		Message:   msg,
		Fields:    mergeFields(l.fields, fields),
	}
	data, err := jsonMarshal(entry)
	if err != nil {
		return
	}

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	if l.sink.closed {
		return
	}
	l.sink.out.Write(append(data, '\n'))
}

// Info logs an informational message.
func (l *FileLogger) Info(msg string, fields ...Field) {
	l.log(LevelInfo, msg, fields...)
}

// Warn logs a warning message.
func (l *FileLogger) Warn(msg string, fields ...Field) {
	l.log(LevelWarn, msg, fields...)
}

// Error logs an error message.
func (l *FileLogger) Error(msg string, fields ...Field) {
	l.log(LevelError, msg, fields...)
}

// Debug logs a debug message.
func (l *FileLogger) Debug(msg string, fields ...Field) {
	l.log(LevelDebug, msg, fields...)
}

// WithFields returns a child logger writing to the same file.
func (l *FileLogger) WithFields(fields ...Field) Logger {
	return &FileLogger{
		sink:   l.sink,
		level:  l.level,
		fields: mergeFields(l.fields, fields),
	}
}

func (l *FileLogger) writeAPI(w io.Writer, v any) {
	if w == nil {
		return
	}
	data, err := jsonMarshal(v)
	if err != nil {
		return
	}
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	if l.sink.closed {
		return
	}
	w.Write(append(data, '\n'))
}

// LogAPIRequest appends the request to the dedicated request log.
func (l *FileLogger) LogAPIRequest(request APIRequestLog) {
	if l.sink.requests == nil {
		return
	}
	l.writeAPI(l.sink.requests, request)
}

// LogAPIResponse appends the response to the dedicated response log.
func (l *FileLogger) LogAPIResponse(response APIResponseLog) {
	if l.sink.replies == nil {
		return
	}
	l.writeAPI(l.sink.replies, response)
}

// Close closes every file owned by the logger. Children created
// with WithFields share the files and stop writing as well.
func (l *FileLogger) Close() error {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	if l.sink.closed {
		return nil
	}
	l.sink.closed = true

	closers := []io.Closer{l.sink.out}
	if l.sink.requests != nil {
		closers = append(closers, l.sink.requests)
	}
	if l.sink.replies != nil {
		closers = append(closers, l.sink.replies)
	}

	var first error
	for _, c := range closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
