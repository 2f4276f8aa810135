// Package mapper converts between mapped Go values and BSON documents.
//
// ToDocument walks the persisted fields of a value (see package schema) and
// encodes each one; Decode and FromDocument do the reverse, using the static
// field types as hints and the discriminator registry to pick concrete types
// for abstract ones.
package mapper

import (
	"fmt"
	"log/slog"
	"reflect"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/aretw0/odm/pkg/bsonutil"
	"github.com/aretw0/odm/pkg/core"
	"github.com/aretw0/odm/pkg/discriminator"
	"github.com/aretw0/odm/pkg/enum"
	"github.com/aretw0/odm/pkg/schema"
)

// Config holds the collaborators of a Mapper. Nil members get defaults.
type Config struct {
	Logger *slog.Logger
	Fields *schema.Introspector
	Types  *discriminator.Registry
	Enums  *enum.Registry

	// MillisecondPrecision keeps milliseconds when encoding time.Time.
	// By default dates are truncated to whole seconds.
	MillisecondPrecision bool
}

// Mapper is safe for concurrent use.
type Mapper struct {
	logger *slog.Logger
	fields *schema.Introspector
	types  *discriminator.Registry
	enums  *enum.Registry
	millis bool
}

// New creates a Mapper from cfg.
func New(cfg Config) *Mapper {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	m := &Mapper{
		logger: logger,
		fields: cfg.Fields,
		types:  cfg.Types,
		enums:  cfg.Enums,
		millis: cfg.MillisecondPrecision,
	}
	if m.fields == nil {
		m.fields = schema.New(logger, false)
	}
	if m.types == nil {
		m.types = discriminator.NewRegistry(logger)
	}
	if m.enums == nil {
		m.enums = enum.NewRegistry()
	}
	return m
}

// Fields returns the persisted fields of t.
func (m *Mapper) Fields(t reflect.Type) ([]schema.Field, error) {
	return m.fields.Fields(t)
}

// Types returns the discriminator and type-name registry.
func (m *Mapper) Types() *discriminator.Registry {
	return m.types
}

// Enums returns the enum registry.
func (m *Mapper) Enums() *enum.Registry {
	return m.enums
}

// ToDocument converts a mapped value (struct or pointer to struct) into a
// document. Values that only implement core.Serializable are accepted when
// they serialize to a record.
func (m *Mapper) ToDocument(v any) (bson.D, error) {
	e := newEncoder(m)

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, fmt.Errorf("%w: nil %s", core.ErrUnsupportedValue, rv.Type())
		}
		if rv.Kind() == reflect.Pointer {
			if err := e.enter(rv); err != nil {
				return nil, err
			}
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil, fmt.Errorf("%w: nil", core.ErrUnsupportedValue)
	}

	if m.fields.Mapped(rv.Type()) {
		return e.document(rv)
	}

	enc, err := newEncoder(m).encode(reflect.ValueOf(v))
	if err != nil {
		return nil, err
	}
	if core.IsRecord(enc) {
		return core.Ordered(enc), nil
	}
	return nil, fmt.Errorf("%w: %T does not produce a document", core.ErrUnsupportedValue, v)
}

// SerializeValue converts any supported value into its document form.
func (m *Mapper) SerializeValue(v any) (any, error) {
	return newEncoder(m).encode(reflect.ValueOf(v))
}

// DeserializeValue converts a document value into a Go value, guided by hint
// when it is not nil. The result is not yet converted to hint; Decode and
// FromDocument do that when writing fields.
func (m *Mapper) DeserializeValue(v any, hint reflect.Type) (any, error) {
	return m.decoder().decode(v, hint)
}

// Decode populates target, a non-nil pointer to a mapped struct, from data.
// data may be bson.D, bson.M, map[string]any, bson.Raw or raw bytes.
// Keys absent from data leave their fields untouched.
func (m *Mapper) Decode(data any, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("%w: got %T", core.ErrInvalidTarget, target)
	}

	rec, err := record(data)
	if err != nil {
		return err
	}

	elem := rv.Elem()
	if !m.fields.Mapped(elem.Type()) {
		if u, ok := target.(core.Unserializable); ok {
			return u.BSONUnserialize(core.Ordered(rec))
		}
		if _, err := m.fields.Fields(elem.Type()); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s is not a mapped type", core.ErrInvalidTarget, elem.Type())
	}

	return m.decoder().populate(rec, elem)
}

// FromDocument builds a new T from data. Abstract T (an interface or a type
// with a discriminator map) is resolved to its concrete type first.
func FromDocument[T any](m *Mapper, data any) (T, error) {
	var zero T
	t := reflect.TypeFor[T]()

	rec, err := record(data)
	if err != nil {
		return zero, err
	}

	d := m.decoder()
	if !d.buildable(t) {
		return zero, fmt.Errorf("%w: %s is not a mapped type", core.ErrInvalidTarget, t)
	}

	val, err := d.decode(rec, t)
	if err != nil {
		return zero, err
	}

	out, err := coerce(val, t)
	if err != nil {
		return zero, err
	}
	res, _ := out.Interface().(T)
	return res, nil
}

func (m *Mapper) decoder() *decoder {
	return &decoder{m: m}
}

// record accepts the generic record forms and raw BSON.
func record(data any) (any, error) {
	switch x := data.(type) {
	case bson.D, bson.M, map[string]any:
		return x, nil
	case bson.Raw:
		return bsonutil.RawDocument(x)
	case []byte:
		return bsonutil.RawDocument(bson.Raw(x))
	case nil:
		return nil, fmt.Errorf("%w: nil document", core.ErrTypeMismatch)
	}
	return nil, fmt.Errorf("%w: %T is not a document", core.ErrTypeMismatch, data)
}
