package mapper

import (
	"github.com/aretw0/introspection"
)

// MapperState exposes internal state for observability.
type MapperState struct {
	CachedTypes  int      `json:"cached_types"`
	MappedTypes  []string `json:"mapped_types"`
	TypeNames    []string `json:"type_names"`
	Abstracts    []string `json:"abstracts,omitempty"`
	Enums        []string `json:"enums,omitempty"`
	StrictNames  bool     `json:"strict_names"`
	Milliseconds bool     `json:"milliseconds"`
}

// State implements introspection.Introspectable.
func (m *Mapper) State() any {
	return MapperState{
		CachedTypes:  m.fields.Len(),
		MappedTypes:  m.fields.Types(),
		TypeNames:    m.types.Names(),
		Abstracts:    m.types.Abstracts(),
		Enums:        m.enums.Types(),
		StrictNames:  m.fields.Strict(),
		Milliseconds: m.millis,
	}
}

// ComponentType implements introspection.Component.
func (m *Mapper) ComponentType() string {
	return "mapper"
}

var _ introspection.Introspectable = (*Mapper)(nil)
var _ introspection.Component = (*Mapper)(nil)
