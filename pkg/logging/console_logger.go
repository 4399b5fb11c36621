package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// ANSI color codes.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorGray   = "\033[90m"
)

// Well-known field keys rendered in the line prefix rather than
// in the trailing field list.
const (
	KeyEnvironment = "env"
	KeyExecutionID = "execution_id"
	KeySessionID   = "session_id"
)

// ConsoleLogger writes human-readable lines of the form
//
//	[ qa | 2025-01-02T15:04:05Z | <id> ] [INFO] message {k=v}
//
// where id is the execution id of the current test, or the
// process session id outside of a test.
type ConsoleLogger struct {
	mu      *sync.Mutex
	output  io.Writer
	level   LogLevel
	noColor bool
	fields  map[string]any
}

// NewConsoleLogger creates a console logger writing to stdout.
// When verbose is true, debug messages are emitted.
func NewConsoleLogger(verbose bool) *ConsoleLogger {
	level := LevelInfo
	if verbose {
		level = LevelDebug
	}
	return &ConsoleLogger{
		mu:     &sync.Mutex{},
		output: os.Stdout,
		level:  level,
		fields: make(map[string]any),
	}
}

// SetOutput redirects output, mostly for tests.
func (c *ConsoleLogger) SetOutput(w io.Writer) { c.output = w }

// DisableColor turns off ANSI escapes.
func (c *ConsoleLogger) DisableColor() { c.noColor = true }

func (c *ConsoleLogger) paint(color, s string) string {
	if c.noColor {
		return s
	}
	return color + s + colorReset
}

func (c *ConsoleLogger) log(
	level LogLevel, color, msg string, fields ...Field,
) {
	if level < c.level {
		return
	}
	all := mergeFields(c.fields, fields)

	env := "unknown"
	if v, ok := all[KeyEnvironment]; ok {
		env = fmt.Sprint(v)
	}
	id := ""
	if v, ok := all[KeyExecutionID]; ok {
		id = fmt.Sprint(v)
	} else if v, ok := all[KeySessionID]; ok {
		id = fmt.Sprint(v)
	}

	keys := make([]string, 0, len(all))
	for k := range all {
		switch k {
		case KeyEnvironment, KeyExecutionID, KeySessionID:
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var fieldStr string
	if len(keys) > 0 {
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, all[k]))
		}
		fieldStr = " " + c.paint(
			colorGray, "{"+strings.Join(parts, ", ")+"}",
		)
	}

	prefix := fmt.Sprintf(
		"[ %s | %s | %s ]",
		env, time.Now().UTC().Format(time.RFC3339), id,
	)

	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(
		c.output, "%s [%s] %s%s\n",
		c.paint(colorGray, prefix),
		c.paint(color, level.String()),
		msg, fieldStr,
	)
}

// Info logs an informational message.
func (c *ConsoleLogger) Info(msg string, fields ...Field) {
	c.log(LevelInfo, colorBlue, msg, fields...)
}

// Warn logs a warning message.
func (c *ConsoleLogger) Warn(msg string, fields ...Field) {
	c.log(LevelWarn, colorYellow, msg, fields...)
}

// Error logs an error message.
func (c *ConsoleLogger) Error(msg string, fields ...Field) {
	c.log(LevelError, colorRed, msg, fields...)
}

// Debug logs a debug message when the level allows it.
func (c *ConsoleLogger) Debug(msg string, fields ...Field) {
	c.log(LevelDebug, colorGray, msg, fields...)
}

// WithFields returns a new Logger sharing the output with
// additional default fields.
func (c *ConsoleLogger) WithFields(fields ...Field) Logger {
	return &ConsoleLogger{
		mu:      c.mu,
		output:  c.output,
		level:   c.level,
		noColor: c.noColor,
		fields:  mergeFields(c.fields, fields),
	}
}

// LogAPIRequest logs a one-line request summary at debug level.
func (c *ConsoleLogger) LogAPIRequest(request APIRequestLog) {
	c.Debug("API request",
		StringField("request_id", request.RequestID),
		StringField("method", request.Method),
		StringField("url", request.URL),
	)
}

// LogAPIResponse logs a one-line response summary at debug level.
func (c *ConsoleLogger) LogAPIResponse(response APIResponseLog) {
	c.Debug("API response",
		StringField("request_id", response.RequestID),
		IntField("status", response.StatusCode),
		Int64Field("time_ms", response.ResponseTimeMs),
	)
}

// Close is a no-op for ConsoleLogger.
func (c *ConsoleLogger) Close() error {
	return nil
}
