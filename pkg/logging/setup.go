package logging

import "github.com/google/uuid"

// sessionID identifies this process in every log line emitted
// outside of a test.
var sessionID = uuid.NewString()

// SessionID returns the process-wide session id.
func SessionID() string { return sessionID }

// NewExecutionID returns a fresh per-test execution id.
func NewExecutionID() string { return uuid.NewString() }

// Options configures Setup.
type Options struct {
	Environment string
	LogFile     string
	Verbose     bool
	Secrets     []string
}

// Setup builds the harness logger: console plus the centralized
// JSON log file, wrapped in a RedactingLogger. The returned
// FileLogger is exposed so the before-all hook can truncate it.
func Setup(opts Options) (Logger, *FileLogger, error) {
	file, err := NewFileLogger(FileLoggerConfig{
		Path:  opts.LogFile,
		Level: LevelDebug,
	})
	if err != nil {
		return nil, nil, err
	}
	console := NewConsoleLogger(opts.Verbose)

	env := opts.Environment
	if env == "" {
		env = "unknown"
	}
	base := NewMultiLogger(console, file).WithFields(
		StringField(KeyEnvironment, env),
		StringField(KeySessionID, sessionID),
	)
	return NewRedactingLogger(base, opts.Secrets...), file, nil
}
