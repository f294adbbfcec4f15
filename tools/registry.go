package tools

import (
	"strings"
	"sync"
)

// Registry maps tool names to implementations. It is filled at startup and
// read concurrently afterwards.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	byName map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Tool)}
}

// Register adds t under its declared name.
func (r *Registry) Register(t Tool) error {
	name := t.Declaration().Name
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Tool: "registry", Field: "name", Reason: "tool name is empty"}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[name]; ok {
		return &DuplicateToolError{Name: name}
	}
	r.byName[name] = t
	r.order = append(r.order, name)
	return nil
}

// Resolve returns the tool registered under name.
func (r *Registry) Resolve(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byName[name]
	if !ok {
		return nil, &UnknownToolError{Name: name}
	}
	return t, nil
}

// Declarations lists every tool's declaration in registration order.
func (r *Registry) Declarations() []Declaration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Declaration, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name].Declaration())
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
