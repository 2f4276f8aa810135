// Package discriminator resolves the concrete type behind an abstract mapped
// type from a value stored in the document.
//
// Concrete types are registered under a name; abstract types (interfaces, or
// structs registered as abstract) get a Map from discriminator value to type
// name. Resolution follows the maps until a concrete type is reached, so a
// resolved type may itself be abstract with its own map.
package discriminator

import (
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"sync"
)

// Map belongs to one abstract type.
type Map struct {
	// Property is the document key holding the discriminator.
	Property string
	// Types maps a discriminator value (in its string form) to a registered type name.
	Types map[string]string
}

// Registry holds named types and discriminator maps.
type Registry struct {
	mu     sync.RWMutex
	types  map[string]reflect.Type
	maps   map[reflect.Type]Map
	logger *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		types:  make(map[string]reflect.Type),
		maps:   make(map[reflect.Type]Map),
		logger: logger,
	}
}

// RegisterType makes t available under name. Pointer types are stored as
// their element type; the mapper decides on the pointer form when assigning.
func (r *Registry) RegisterType(name string, t reflect.Type) error {
	if name == "" {
		return fmt.Errorf("type name cannot be empty")
	}
	t = indirect(t)
	if t == nil {
		return fmt.Errorf("type %q: nil type", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.types[name]; ok && prev != t {
		return fmt.Errorf("type name %q already registered for %s", name, prev)
	}
	r.types[name] = t
	return nil
}

// Register registers T under name.
func Register[T any](r *Registry, name string) error {
	return r.RegisterType(name, reflect.TypeFor[T]())
}

// RegisterMap declares t abstract and attaches its discriminator map.
func (r *Registry) RegisterMap(t reflect.Type, property string, types map[string]string) error {
	t = indirect(t)
	if t == nil {
		return fmt.Errorf("abstract type cannot be nil")
	}
	if property == "" {
		return fmt.Errorf("%s: discriminator property cannot be empty", t)
	}

	table := make(map[string]string, len(types))
	for k, v := range types {
		table[k] = v
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.maps[t] = Map{Property: property, Types: table}
	return nil
}

// Abstract attaches a discriminator map to T.
func Abstract[T any](r *Registry, property string, types map[string]string) error {
	return r.RegisterMap(reflect.TypeFor[T](), property, types)
}

// Lookup returns the type registered under name.
func (r *Registry) Lookup(name string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	return t, ok
}

// MapFor returns the discriminator map of t.
func (r *Registry) MapFor(t reflect.Type) (Map, bool) {
	t = indirect(t)
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.maps[t]
	return m, ok
}

// IsAbstract reports whether t needs resolution before it can be built:
// it has a discriminator map, or it is a non-empty interface.
func (r *Registry) IsAbstract(t reflect.Type) bool {
	t = indirect(t)
	if t == nil {
		return false
	}
	if _, ok := r.MapFor(t); ok {
		return true
	}
	return t.Kind() == reflect.Interface && t.NumMethod() > 0
}

// Names lists the registered type names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.types))
	for n := range r.types {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Abstracts lists the types that carry a discriminator map.
func (r *Registry) Abstracts() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.maps))
	for t := range r.maps {
		names = append(names, t.String())
	}
	sort.Strings(names)
	return names
}

func indirect(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
