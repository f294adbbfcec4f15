package telemetry

import (
	"path/filepath"
	"sync"
)

// Config controls JSONL event emission.
type Config struct {
	Enabled bool
	// Dir receives events.jsonl. Defaults to ".agent".
	Dir string
}

const defaultDir = ".agent"

var (
	mu  sync.Mutex
	cfg Config
)

// Configure replaces the process-wide settings. Safe to call at any time;
// later events use the new settings.
func Configure(c Config) {
	if c.Dir == "" {
		c.Dir = defaultDir
	}
	mu.Lock()
	defer mu.Unlock()
	cfg = c
}

// Enabled reports whether Emit writes anything.
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return cfg.Enabled
}

// Path returns the events file location.
func Path() string {
	mu.Lock()
	defer mu.Unlock()
	dir := cfg.Dir
	if dir == "" {
		dir = defaultDir
	}
	return filepath.Join(dir, "events.jsonl")
}
