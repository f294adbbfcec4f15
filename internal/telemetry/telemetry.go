// Package telemetry appends structured events to a local JSONL file.
// Events carry sizes, durations and identifiers, never message text.
package telemetry

import (
	"os"
	"path/filepath"
	"time"

	"github.com/petasbytes/shop-agent/internal/jsonutil"
	"github.com/petasbytes/shop-agent/internal/logger"
)

// Emit writes one JSON line when telemetry is enabled. It adds RFC3339Nano
// "time" and the "event" name; fields is not modified. Failures are logged
// and otherwise ignored.
func Emit(name string, fields map[string]any) {
	mu.Lock()
	defer mu.Unlock()
	if !cfg.Enabled {
		return
	}

	m := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		m[k] = v
	}
	m["time"] = time.Now().UTC().Format(time.RFC3339Nano)
	m["event"] = name

	b, err := jsonutil.Marshal(m)
	if err != nil {
		logger.WarnX("telemetry", "marshal %s: %v", name, err)
		return
	}

	dir := cfg.Dir
	if dir == "" {
		dir = defaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.WarnX("telemetry", "mkdir %s: %v", dir, err)
		return
	}
	path := filepath.Join(dir, "events.jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger.WarnX("telemetry", "open %s: %v", path, err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(b, '\n')); err != nil {
		logger.WarnX("telemetry", "write %s: %v", path, err)
	}
}
