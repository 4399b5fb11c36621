package logging

import (
	"regexp"
	"strings"
)

// sanitizer rewrites a recognizable class of personal or
// credential data.
type sanitizer struct {
	pattern     *regexp.Regexp
	replacement string
}

var sanitizers = []sanitizer{
	{
		regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
		"***@***.com",
	},
	{
		regexp.MustCompile(`\b\d{3}\.\d{3}\.\d{3}-\d{2}\b`),
		"***.***.***-**",
	},
	{
		regexp.MustCompile(`(?i)(["']?password["']?\s*[:=]\s*["']?).+?(["'])`),
		"${1}******${2}",
	},
	{
		regexp.MustCompile(`(?i)\bBearer\s+[a-zA-Z0-9\-._~+/]+=*`),
		"Bearer ******",
	},
}

// Sanitize masks e-mail addresses, CPF numbers, quoted password
// values and bearer tokens.
func Sanitize(msg string) string {
	for _, s := range sanitizers {
		msg = s.pattern.ReplaceAllString(msg, s.replacement)
	}
	return msg
}

// RedactingLogger is a decorator that redacts configured secrets
// and sanitizes personal data from messages and string field values
// before passing them to the inner logger.
type RedactingLogger struct {
	inner   Logger
	secrets []string
}

// NewRedactingLogger creates a logger that redacts the given
// secrets from all messages and string field values. Empty
// secrets are ignored.
func NewRedactingLogger(inner Logger, secrets ...string) *RedactingLogger {
	kept := make([]string, 0, len(secrets))
	for _, s := range secrets {
		if s != "" {
			kept = append(kept, s)
		}
	}
	return &RedactingLogger{inner: inner, secrets: kept}
}

func (r *RedactingLogger) redact(msg string) string {
	for _, secret := range r.secrets {
		msg = strings.ReplaceAll(msg, secret, redactValue(secret))
	}
	return Sanitize(msg)
}

// redactValue masks all but the first 4 characters.
func redactValue(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-4)
}

func (r *RedactingLogger) redactFields(fields []Field) []Field {
	result := make([]Field, len(fields))
	for i, f := range fields {
		if str, ok := f.Value.(string); ok {
			result[i] = Field{Key: f.Key, Value: r.redact(str)}
		} else {
			result[i] = f
		}
	}
	return result
}

// Info logs a redacted informational message.
func (r *RedactingLogger) Info(msg string, fields ...Field) {
	r.inner.Info(r.redact(msg), r.redactFields(fields)...)
}

// Warn logs a redacted warning message.
func (r *RedactingLogger) Warn(msg string, fields ...Field) {
	r.inner.Warn(r.redact(msg), r.redactFields(fields)...)
}

// Error logs a redacted error message.
func (r *RedactingLogger) Error(msg string, fields ...Field) {
	r.inner.Error(r.redact(msg), r.redactFields(fields)...)
}

// Debug logs a redacted debug message.
func (r *RedactingLogger) Debug(msg string, fields ...Field) {
	r.inner.Debug(r.redact(msg), r.redactFields(fields)...)
}

// WithFields returns a RedactingLogger wrapping a new inner
// logger with the given fields applied.
func (r *RedactingLogger) WithFields(fields ...Field) Logger {
	return &RedactingLogger{
		inner:   r.inner.WithFields(r.redactFields(fields)...),
		secrets: r.secrets,
	}
}

// LogAPIRequest logs an API request with redacted headers and URL.
func (r *RedactingLogger) LogAPIRequest(request APIRequestLog) {
	request.Headers = redactHeaders(request.Headers)
	request.URL = r.redact(request.URL)
	r.inner.LogAPIRequest(request)
}

// LogAPIResponse logs an API response with a redacted body preview.
func (r *RedactingLogger) LogAPIResponse(response APIResponseLog) {
	response.BodyPreview = r.redact(response.BodyPreview)
	r.inner.LogAPIResponse(response)
}

// Close closes the inner logger.
func (r *RedactingLogger) Close() error {
	return r.inner.Close()
}

var sensitiveHeaders = map[string]bool{
	"authorization":  true,
	"x-api-key":      true,
	"api-key":        true,
	"x-auth-token":   true,
	"x-access-token": true,
	"cookie":         true,
}

// redactHeaders replaces values of sensitive headers with "****".
func redactHeaders(headers map[string]string) map[string]string {
	if headers == nil {
		return nil
	}
	result := make(map[string]string, len(headers))
	for k, v := range headers {
		if sensitiveHeaders[strings.ToLower(k)] {
			result[k] = "****"
		} else {
			result[k] = v
		}
	}
	return result
}
