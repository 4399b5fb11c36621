// Package config resolves environment URLs, credentials, device
// capability profiles and dotted configuration keys from the YAML
// files under the resources directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefaultRoot is the resources directory used when none is given.
const DefaultRoot = "resources"

// KeyError reports a dotted key or block that does not resolve.
type KeyError struct {
	File string
	Key  string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("key %q not found in %s", e.Key, e.File)
}

// ErrNotFound is wrapped by every KeyError.
var ErrNotFound = errors.New("config key not found")

// Unwrap lets callers test with errors.Is(err, ErrNotFound).
func (e *KeyError) Unwrap() error { return ErrNotFound }

// Resolver reads the harness YAML files. The consolidated
// config.yml document is parsed once and cached.
type Resolver struct {
	root   string
	runEnv string

	mu     sync.Mutex
	cached map[string]any
}

// NewResolver creates a Resolver rooted at root. runEnv selects the
// credentials data set (data/<runEnv>/credentials.yml).
func NewResolver(root, runEnv string) *Resolver {
	if root == "" {
		root = DefaultRoot
	}
	if runEnv == "" {
		runEnv = "qa"
	}
	return &Resolver{root: root, runEnv: runEnv}
}

// Root returns the resources directory.
func (r *Resolver) Root() string { return r.root }

func (r *Resolver) path(parts ...string) string {
	return filepath.Join(append([]string{r.root}, parts...)...)
}

func readYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// URL returns the base URL of the given environment from
// config/url-<environment>.yml.
func (r *Resolver) URL(environment string) (string, error) {
	path := r.path("config", fmt.Sprintf("url-%s.yml", environment))
	var doc struct {
		URL string `yaml:"url"`
	}
	if err := readYAML(path, &doc); err != nil {
		return "", err
	}
	if doc.URL == "" {
		return "", &KeyError{File: path, Key: "url"}
	}
	return doc.URL, nil
}

// Credentials returns the named block of the credentials file.
// The block must be a mapping.
func (r *Resolver) Credentials(key string) (map[string]string, error) {
	path := r.path("data", r.runEnv, "credentials.yml")
	var doc map[string]yaml.Node
	if err := readYAML(path, &doc); err != nil {
		return nil, err
	}
	node, ok := doc[key]
	if !ok || node.Kind != yaml.MappingNode {
		return nil, &KeyError{File: path, Key: key}
	}
	block := make(map[string]string)
	if err := node.Decode(&block); err != nil {
		return nil, fmt.Errorf("decode %s in %s: %w", key, path, err)
	}
	return block, nil
}

// Capabilities returns the device-farm capability profile of the
// given device from config/capabilities/<device>.yml.
func (r *Resolver) Capabilities(device string) (map[string]any, error) {
	path := r.CapabilitiesPath(device)
	caps := make(map[string]any)
	if err := readYAML(path, &caps); err != nil {
		return nil, err
	}
	return caps, nil
}

// CapabilitiesPath returns where the profile of device lives.
func (r *Resolver) CapabilitiesPath(device string) string {
	return r.path("config", "capabilities", device+".yml")
}

func (r *Resolver) rootDocument() (map[string]any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cached != nil {
		return r.cached, nil
	}
	doc := make(map[string]any)
	if err := readYAML(r.path("config", "config.yml"), &doc); err != nil {
		return nil, err
	}
	r.cached = doc
	return doc, nil
}

// Value resolves a dotted key such as "project.build" against the
// cached config.yml document.
func (r *Resolver) Value(key string) (any, error) {
	doc, err := r.rootDocument()
	if err != nil {
		return nil, err
	}
	var cur any = doc
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, &KeyError{File: r.path("config", "config.yml"), Key: key}
		}
		if cur, ok = m[part]; !ok {
			return nil, &KeyError{File: r.path("config", "config.yml"), Key: key}
		}
	}
	return cur, nil
}

// String resolves a dotted key and formats scalar values as text.
// Missing keys and unreadable files yield fallback.
func (r *Resolver) String(key, fallback string) string {
	v, err := r.Value(key)
	if err != nil || v == nil {
		return fallback
	}
	switch t := v.(type) {
	case string:
		return t
	case map[string]any, []any:
		return fallback
	default:
		return fmt.Sprint(t)
	}
}

// Reset drops the cached config.yml document.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cached = nil
}
