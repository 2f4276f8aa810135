package mapper

import (
	"fmt"
	"reflect"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/aretw0/odm/pkg/bsonutil"
	"github.com/aretw0/odm/pkg/core"
	"github.com/aretw0/odm/pkg/schema"
)

var (
	dateTimeType       = reflect.TypeFor[primitive.DateTime]()
	rawType            = reflect.TypeFor[bson.Raw]()
	unserializableType = reflect.TypeFor[core.Unserializable]()
)

type decoder struct {
	m *Mapper
}

func (d *decoder) decode(v any, hint reflect.Type) (any, error) {
	if hint != nil && hint.Kind() == reflect.Interface && hint.NumMethod() == 0 {
		hint = nil
	}

	switch x := v.(type) {
	case nil:
		return nil, nil
	case primitive.DateTime:
		if hint == dateTimeType {
			return x, nil
		}
		return x.Time().UTC(), nil
	case bson.Raw:
		if hint == rawType {
			return x, nil
		}
		doc, err := bsonutil.RawDocument(x)
		if err != nil {
			return nil, err
		}
		return d.decode(doc, hint)
	case bson.D, bson.M, map[string]any:
		return d.record(x, hint)
	case bson.A:
		return d.sequence(x, hint)
	case []any:
		return d.sequence(x, hint)
	}

	rv := reflect.ValueOf(v)
	if d.rebuildable(rv.Type()) {
		return d.rebuild(rv)
	}

	if hint != nil {
		base := indirect(hint)
		if d.m.enums.IsEnum(base) && isScalar(rv.Kind()) {
			choice, err := d.m.enums.Lookup(base, v)
			if err != nil {
				return nil, err
			}
			return choice, nil
		}
	}

	return v, nil
}

// record handles a generic record: built into a mapped type when the hint
// asks for one, into a map when the hint is a map, kept generic otherwise.
func (d *decoder) record(rec any, hint reflect.Type) (any, error) {
	if hint != nil {
		if d.buildable(hint) {
			concrete, err := d.m.types.Resolve(rec, hint)
			if err != nil {
				return nil, err
			}
			return d.construct(rec, concrete)
		}
		if hint.Kind() == reflect.Map {
			return d.mapping(rec, hint.Elem())
		}
	}
	return d.generic(rec)
}

func (d *decoder) mapping(rec any, elem reflect.Type) (map[string]any, error) {
	src := core.Ordered(rec)
	out := make(map[string]any, len(src))
	for _, e := range src {
		v, err := d.decode(e.Value, elem)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Key, err)
		}
		out[e.Key] = v
	}
	return out, nil
}

// generic keeps the shape of the record and decodes its values without hint.
func (d *decoder) generic(rec any) (any, error) {
	switch r := rec.(type) {
	case bson.D:
		out := make(bson.D, 0, len(r))
		for _, e := range r {
			v, err := d.decode(e.Value, nil)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", e.Key, err)
			}
			out = append(out, bson.E{Key: e.Key, Value: v})
		}
		return out, nil
	case bson.M:
		return d.mapping(r, nil)
	case map[string]any:
		return d.mapping(r, nil)
	}
	return rec, nil
}

func (d *decoder) sequence(seq []any, hint reflect.Type) (any, error) {
	if hint != nil && !isCollection(hint) && d.buildable(hint) {
		rec := make(bson.D, len(seq))
		for i, v := range seq {
			rec[i] = bson.E{Key: strconv.Itoa(i), Value: v}
		}
		concrete, err := d.m.types.Resolve(rec, hint)
		if err != nil {
			return nil, err
		}
		return d.construct(rec, concrete)
	}

	var elem reflect.Type
	if hint != nil && isCollection(hint) {
		elem = hint.Elem()
	}

	out := make(bson.A, len(seq))
	for i, v := range seq {
		dv, err := d.decode(v, elem)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = dv
	}
	return out, nil
}

// construct builds a fresh concrete instance from rec and returns a pointer to it.
func (d *decoder) construct(rec any, concrete reflect.Type) (any, error) {
	base := indirect(concrete)
	ptr := reflect.New(base)

	if u, ok := ptr.Interface().(core.Unserializable); ok {
		if err := u.BSONUnserialize(core.Ordered(rec)); err != nil {
			return nil, fmt.Errorf("%s: %w", base, err)
		}
		return ptr.Interface(), nil
	}

	if !d.m.fields.Mapped(base) {
		return nil, fmt.Errorf("%w: %s is not a mapped type", core.ErrTypeMismatch, base)
	}
	if err := d.populate(rec, ptr.Elem()); err != nil {
		return nil, err
	}
	return ptr.Interface(), nil
}

// populate writes the fields of target found in rec. A decoded nil is only
// written into nullable fields; missing keys are never written.
func (d *decoder) populate(rec any, target reflect.Value) error {
	t := target.Type()
	fields, err := d.m.fields.Fields(t)
	if err != nil {
		return err
	}

	for _, f := range fields {
		if !f.Writable() {
			continue
		}
		raw, ok := core.Lookup(rec, f.DocName)
		if !ok {
			continue
		}

		val, err := d.decode(raw, d.hint(f))
		if err != nil {
			return fmt.Errorf("%s.%s: %w", t, f.Name, err)
		}
		if val == nil && !f.Nullable {
			continue
		}

		x, err := coerce(val, f.SetType())
		if err != nil {
			return fmt.Errorf("%s.%s: %w", t, f.Name, err)
		}
		if err := f.Set(target, x); err != nil {
			return err
		}
	}
	return nil
}

// hint is the type guiding the decoding of f: the first declared type name
// when the tag names one (as element type for collections and maps), else
// the static type.
func (d *decoder) hint(f schema.Field) reflect.Type {
	if len(f.TypeNames) == 0 {
		return f.Type
	}

	named, ok := d.m.types.Lookup(f.TypeNames[0])
	if !ok {
		d.m.logger.Debug("declared type not registered, using the field type",
			"field", f.Name, "type", f.TypeNames[0])
		return f.Type
	}

	switch {
	case f.Collection():
		return reflect.SliceOf(named)
	case f.Type.Kind() == reflect.Map:
		return reflect.MapOf(f.Type.Key(), named)
	}
	return named
}

// buildable reports whether values of t are constructed from records:
// abstract types, mapped structs and self-deserializing types.
func (d *decoder) buildable(t reflect.Type) bool {
	base := indirect(t)
	if base == nil {
		return false
	}
	if d.m.types.IsAbstract(base) {
		return true
	}
	if base.Kind() == reflect.Interface {
		return false
	}
	return d.m.fields.Mapped(base) || reflect.PointerTo(base).Implements(unserializableType)
}

// rebuildable reports whether a runtime value that is not a document already
// carries its type: a mapped struct, or a type able to deserialize itself
// from the document it serializes to.
func (d *decoder) rebuildable(t reflect.Type) bool {
	base := indirect(t)
	if base.Kind() == reflect.Struct && d.m.fields.Mapped(base) {
		return true
	}
	return reflect.PointerTo(base).Implements(unserializableType) &&
		reflect.PointerTo(base).Implements(reflect.TypeFor[core.Serializable]())
}

// rebuild builds a fresh instance of the runtime type of v from its document form.
func (d *decoder) rebuild(v reflect.Value) (any, error) {
	if v.Kind() == reflect.Pointer && v.IsNil() {
		return nil, nil
	}
	doc, err := d.m.ToDocument(v.Interface())
	if err != nil {
		return nil, err
	}
	return d.construct(doc, v.Type())
}

func indirect(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

func isCollection(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Slice:
		return t.Elem().Kind() != reflect.Uint8
	case reflect.Array:
		return true
	}
	return false
}

func isScalar(k reflect.Kind) bool {
	switch k {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
