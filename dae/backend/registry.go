package backend

import (
	"fmt"
	"strings"
)

// Descriptor registers one backend implementation: its canonical name, its
// capability flags, and a factory that builds a configured instance from a
// keyword-style parameter map. Factories must reject unrecognized keys.
type Descriptor struct {
	Name string
	Caps Capabilities
	New  func(params map[string]any) (Backend, error)
}

// Registry is an ordered table of backend descriptors. Lookup is by
// case-insensitive exact match first, then prefix match in registration
// order. The empty name matches the first registered backend.
//
// A Registry is populated once during initialization and is read-only
// afterwards; lookups are pure.
type Registry struct {
	table []Descriptor
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a descriptor. Registering the same name twice is a
// no-op for the second call, so initialization order cannot change lookup
// results.
func (r *Registry) Register(d Descriptor) {
	for _, have := range r.table {
		if strings.EqualFold(have.Name, d.Name) {
			return
		}
	}
	r.table = append(r.table, d)
}

// Find resolves a name to a descriptor.
func (r *Registry) Find(name string) (Descriptor, error) {
	if len(r.table) == 0 {
		return Descriptor{}, fmt.Errorf("%w: %q (empty registry)", ErrNotFound, name)
	}
	if name == "" {
		return r.table[0], nil
	}
	lower := strings.ToLower(name)
	for _, d := range r.table {
		if strings.ToLower(d.Name) == lower {
			return d, nil
		}
	}
	for _, d := range r.table {
		if strings.HasPrefix(strings.ToLower(d.Name), lower) {
			return d, nil
		}
	}
	return Descriptor{}, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// Names lists the registered backends in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.table))
	for _, d := range r.table {
		names = append(names, d.Name)
	}
	return names
}
