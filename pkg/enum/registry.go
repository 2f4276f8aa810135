// Package enum keeps the declared choices of backed-choice types so a stored
// scalar can be turned back into one of them.
package enum

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/aretw0/odm/pkg/core"
)

// Registry maps an enum type to its choices.
type Registry struct {
	mu      sync.RWMutex
	choices map[reflect.Type][]core.Enum
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{choices: make(map[reflect.Type][]core.Enum)}
}

// Add registers choices for their dynamic type. Choices of different types
// may be mixed in one call.
func (r *Registry) Add(choices ...core.Enum) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range choices {
		t := reflect.TypeOf(c)
		r.choices[t] = append(r.choices[t], c)
	}
}

// Register is the typed form of Registry.Add.
func Register[E core.Enum](r *Registry, choices ...E) {
	list := make([]core.Enum, 0, len(choices))
	for _, c := range choices {
		list = append(list, c)
	}
	r.Add(list...)
}

// Has reports whether t is an enum type this registry knows about.
func (r *Registry) Has(t reflect.Type) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.choices[t]
	return ok
}

// IsEnum reports whether t behaves as an enum: registered, or implementing core.Enum.
func (r *Registry) IsEnum(t reflect.Type) bool {
	if t == nil || t.Kind() == reflect.Interface {
		return false
	}
	return r.Has(t) || t.Implements(reflect.TypeFor[core.Enum]())
}

// Lookup returns the choice of type t whose backing value equals v.
// Numbers compare by value regardless of their Go width (int32(1) matches int(1)).
func (r *Registry) Lookup(t reflect.Type, v any) (core.Enum, error) {
	r.mu.RLock()
	choices := r.choices[t]
	r.mu.RUnlock()

	for _, c := range choices {
		if Equal(c.EnumValue(), v) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %v (%T) for %s", core.ErrUnmatchedEnum, v, v, t)
}

// Types lists the registered enum types.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.choices))
	for t := range r.choices {
		names = append(names, t.String())
	}
	sort.Strings(names)
	return names
}

// Equal compares two backing scalars. Integers and floats of any width are
// compared numerically, everything else with ==.
func Equal(a, b any) bool {
	if fa, ok := number(a); ok {
		fb, ok := number(b)
		return ok && fa == fb
	}
	if a == nil || b == nil {
		return a == b
	}
	if !reflect.TypeOf(a).Comparable() || !reflect.TypeOf(b).Comparable() {
		return false
	}
	return a == b
}

func number(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}
