package discriminator

import (
	"fmt"
	"reflect"

	"github.com/aretw0/odm/pkg/core"
)

// Resolve returns the concrete type to build for value when the target is t.
// Non-abstract types are returned unchanged. value is a generic record
// (bson.D, bson.M or map[string]any).
func (r *Registry) Resolve(value any, t reflect.Type) (reflect.Type, error) {
	r.mu.RLock()
	limit := len(r.maps) + 1
	r.mu.RUnlock()

	for hops := 0; ; hops++ {
		if !r.IsAbstract(t) {
			return t, nil
		}
		if hops > limit {
			return nil, fmt.Errorf("%w: discriminator chain from %s does not terminate", core.ErrUnresolvableDiscriminator, t)
		}

		m, ok := r.MapFor(t)
		if !ok {
			return nil, fmt.Errorf("%w: %s is abstract and has no discriminator map", core.ErrUnresolvableDiscriminator, t)
		}

		raw, ok := core.Lookup(value, m.Property)
		if !ok || raw == nil {
			return nil, fmt.Errorf("%w: %s needs property %q", core.ErrUnresolvableDiscriminator, t, m.Property)
		}

		key := fmt.Sprint(raw)
		name, ok := m.Types[key]
		if !ok {
			return nil, fmt.Errorf("%w: %s has no entry for %s=%q", core.ErrUnresolvableDiscriminator, t, m.Property, key)
		}

		next, ok := r.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s maps %q to unregistered type %q", core.ErrUnresolvableDiscriminator, t, key, name)
		}

		r.logger.Debug("resolved discriminator", "abstract", t.String(), "property", m.Property, "value", key, "concrete", next.String())
		t = next
	}
}
