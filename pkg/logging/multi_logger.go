package logging

import "errors"

// MultiLogger fans out log calls to several loggers, typically the
// console and the centralized log file.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a logger writing to every non-nil
// destination.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	kept := make([]Logger, 0, len(loggers))
	for _, l := range loggers {
		if l != nil {
			kept = append(kept, l)
		}
	}
	return &MultiLogger{loggers: kept}
}

func (m *MultiLogger) each(fn func(Logger)) {
	for _, l := range m.loggers {
		fn(l)
	}
}

// Info logs to all loggers.
func (m *MultiLogger) Info(msg string, fields ...Field) {
	m.each(func(l Logger) { l.Info(msg, fields...) })
}

// Warn logs to all loggers.
func (m *MultiLogger) Warn(msg string, fields ...Field) {
	m.each(func(l Logger) { l.Warn(msg, fields...) })
}

// Error logs to all loggers.
func (m *MultiLogger) Error(msg string, fields ...Field) {
	m.each(func(l Logger) { l.Error(msg, fields...) })
}

// Debug logs to all loggers.
func (m *MultiLogger) Debug(msg string, fields ...Field) {
	m.each(func(l Logger) { l.Debug(msg, fields...) })
}

// WithFields returns a MultiLogger where each inner logger has the
// given fields applied.
func (m *MultiLogger) WithFields(fields ...Field) Logger {
	children := make([]Logger, len(m.loggers))
	for i, l := range m.loggers {
		children[i] = l.WithFields(fields...)
	}
	return &MultiLogger{loggers: children}
}

// LogAPIRequest logs to all loggers.
func (m *MultiLogger) LogAPIRequest(request APIRequestLog) {
	m.each(func(l Logger) { l.LogAPIRequest(request) })
}

// LogAPIResponse logs to all loggers.
func (m *MultiLogger) LogAPIResponse(response APIResponseLog) {
	m.each(func(l Logger) { l.LogAPIResponse(response) })
}

// Close closes all loggers and joins their errors.
func (m *MultiLogger) Close() error {
	var errs []error
	for _, l := range m.loggers {
		if err := l.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
