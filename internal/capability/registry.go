package capability

import (
	"fmt"
	"sort"
)

// Registry maps capability names to factory functions. It replaces runtime
// plugin scanning: every adapter is registered at program start, and an
// unknown name is a configuration error surfaced before anything runs.
type Registry[T any] struct {
	kind      string
	factories map[string]func() (T, error)
}

// NewRegistry creates an empty registry for one capability kind.
// The kind string appears in error messages ("news source", "platform", ...).
func NewRegistry[T any](kind string) *Registry[T] {
	return &Registry[T]{
		kind:      kind,
		factories: make(map[string]func() (T, error)),
	}
}

// Register adds a named factory. Registering the same name twice is a
// programming error and panics.
func (r *Registry[T]) Register(name string, factory func() (T, error)) {
	if _, ok := r.factories[name]; ok {
		panic(fmt.Sprintf("%s %q registered twice", r.kind, name))
	}
	r.factories[name] = factory
}

// Build instantiates the named capability.
func (r *Registry[T]) Build(name string) (T, error) {
	var zero T
	factory, ok := r.factories[name]
	if !ok {
		return zero, fmt.Errorf("unknown %s %q (known: %v)", r.kind, name, r.Names())
	}
	return factory()
}

// Names returns the registered names, sorted.
func (r *Registry[T]) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
