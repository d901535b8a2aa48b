package command

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownCommandType is returned when a factory is asked for a type tag
// that was never registered.
var ErrUnknownCommandType = errors.New("unknown command type")

// Constructor builds a command from a spec.
type Constructor func(spec Spec) (Command, error)

// Registry maps command type tags to constructors. Each factory owns its own
// registry; there is no process-wide table.
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// Register maps tag to ctor, replacing any previous registration.
func (r *Registry) Register(tag string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[tag] = ctor
}

// Lookup returns the constructor for tag.
func (r *Registry) Lookup(tag string) (Constructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ctor, ok := r.ctors[tag]
	return ctor, ok
}

// Types returns the registered tags in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tags := make([]string, 0, len(r.ctors))
	for tag := range r.ctors {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Factory produces configured commands from a registry.
type Factory struct {
	registry *Registry
}

// NewFactory creates a factory backed by reg.
func NewFactory(reg *Registry) *Factory {
	return &Factory{registry: reg}
}

// Registry returns the registry backing the factory.
func (f *Factory) Registry() *Registry {
	return f.registry
}

// Create builds a command of the given type with no parameters.
func (f *Factory) Create(typeTag, taskID, name, description string) (Command, error) {
	return f.CreateWithParams(typeTag, Spec{
		TaskID:      taskID,
		Name:        name,
		Description: description,
	})
}

// CreateWithParams builds a command of the given type from a full spec.
func (f *Factory) CreateWithParams(typeTag string, spec Spec) (Command, error) {
	ctor, ok := f.registry.Lookup(typeTag)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommandType, typeTag)
	}
	cmd, err := ctor(spec)
	if err != nil {
		return nil, fmt.Errorf("create %s command for task %s: %w", typeTag, spec.TaskID, err)
	}
	return cmd, nil
}
