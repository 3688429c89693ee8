// Package capability defines the prompt-backed operations the workflow dispatcher runs and the
// tagged-union results they produce.
package capability

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"brainstorm-api/internal/domain/conversation"
	"brainstorm-api/internal/domain/project"
)

// Capability is a named operation that sends a prompt and context to an LLM and returns a parsed
// result. Invoke returns an error only for transport or provider failures; malformed output is
// reported through a degraded Result.
type Capability interface {
	Name() Name
	Invoke(ctx context.Context, in Input) (Result, error)
}

// Input is what a capability sees for one invocation.
type Input struct {
	Message string
	History []conversation.Message
	Project *project.Project
	Prior   map[Name]Result
}

// Func adapts a function to Capability. Used by tests and simple built-ins.
type Func struct {
	CapabilityName Name
	Fn             func(ctx context.Context, in Input) (Result, error)
}

// Name returns the capability name.
func (f Func) Name() Name { return f.CapabilityName }

// Invoke calls Fn.
func (f Func) Invoke(ctx context.Context, in Input) (Result, error) {
	return f.Fn(ctx, in)
}

// Registry resolves capabilities by name.
type Registry interface {
	Register(c Capability) error
	Get(name Name) (Capability, bool)
	List() []Name
}

// DefaultRegistry is the default implementation of Registry.
type DefaultRegistry struct {
	mu           sync.RWMutex
	capabilities map[Name]Capability
}

// NewRegistry creates an empty registry.
func NewRegistry() *DefaultRegistry {
	return &DefaultRegistry{capabilities: make(map[Name]Capability)}
}

// Register adds a capability. Names must be unique.
func (r *DefaultRegistry) Register(c Capability) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Name()
	if _, exists := r.capabilities[name]; exists {
		return fmt.Errorf("capability already registered: %s", name)
	}
	r.capabilities[name] = c
	return nil
}

// Get retrieves a capability by name.
func (r *DefaultRegistry) Get(name Name) (Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.capabilities[name]
	return c, ok
}

// List returns registered capability names, sorted.
func (r *DefaultRegistry) List() []Name {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]Name, 0, len(r.capabilities))
	for name := range r.capabilities {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
