// Package env resolves harness settings from the process
// environment and optional .env files.
package env

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// Loader defines the interface for environment variable access.
type Loader interface {
	// Load merges variables from one or more .env files. Files
	// that do not exist are an error.
	Load(paths ...string) error
	// Get retrieves a variable; the OS environment takes
	// precedence over loaded files.
	Get(key string) string
	// GetRequired retrieves a variable or returns an error.
	GetRequired(key string) (string, error)
	// GetWithDefault retrieves a variable with a fallback.
	GetWithDefault(key, defaultValue string) string
	// GetBool reports whether the variable equals "true"
	// (case-insensitive) or "1".
	GetBool(key string) bool
	// GetInt parses the variable as an integer, falling back
	// when unset or malformed.
	GetInt(key string, fallback int) int
	// Set sets a variable in both the loader and the process.
	Set(key, value string) error
	// All returns all loaded file variables.
	All() map[string]string
}

// DefaultLoader implements Loader on top of godotenv.
type DefaultLoader struct {
	mu   sync.RWMutex
	vars map[string]string
}

// NewLoader creates an empty DefaultLoader.
func NewLoader() *DefaultLoader {
	return &DefaultLoader{vars: make(map[string]string)}
}

// LoadOptional loads a .env file if it exists. It is what the
// CLI calls for the conventional ./.env.
func (l *DefaultLoader) LoadOptional(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return l.Load(path)
}

func (l *DefaultLoader) Load(paths ...string) error {
	vars, err := godotenv.Read(paths...)
	if err != nil {
		return fmt.Errorf("read env files %v: %w", paths, err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, v := range vars {
		l.vars[k] = v
	}
	return nil
}

func (l *DefaultLoader) Get(key string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.vars[key]
}

func (l *DefaultLoader) GetRequired(key string) (string, error) {
	v := l.Get(key)
	if v == "" {
		return "", fmt.Errorf(
			"required environment variable %s is not set", key,
		)
	}
	return v, nil
}

func (l *DefaultLoader) GetWithDefault(key, defaultValue string) string {
	if v := l.Get(key); v != "" {
		return v
	}
	return defaultValue
}

func (l *DefaultLoader) GetBool(key string) bool {
	v := strings.TrimSpace(l.Get(key))
	return strings.EqualFold(v, "true") || v == "1"
}

func (l *DefaultLoader) GetInt(key string, fallback int) int {
	v := strings.TrimSpace(l.Get(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func (l *DefaultLoader) Set(key, value string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.vars[key] = value
	return os.Setenv(key, value)
}

func (l *DefaultLoader) All() map[string]string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	result := make(map[string]string, len(l.vars))
	for k, v := range l.vars {
		result[k] = v
	}
	return result
}
