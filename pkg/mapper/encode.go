package mapper

import (
	"fmt"
	"reflect"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/aretw0/odm/pkg/bsonutil"
	"github.com/aretw0/odm/pkg/core"
)

type visit struct {
	ptr uintptr
	typ reflect.Type
	len int
}

// encoder carries the per-call state of one serialization: the pointers,
// maps and slices on the current path, to stop on cycles.
type encoder struct {
	m    *Mapper
	seen map[visit]struct{}
}

func newEncoder(m *Mapper) *encoder {
	return &encoder{m: m, seen: make(map[visit]struct{})}
}

func (e *encoder) enter(v reflect.Value) error {
	key := visit{ptr: v.Pointer(), typ: v.Type()}
	if v.Kind() == reflect.Slice {
		key.len = v.Len()
	}
	if _, ok := e.seen[key]; ok {
		return fmt.Errorf("%w: %s revisited", core.ErrCyclicStructure, v.Type())
	}
	e.seen[key] = struct{}{}
	return nil
}

func (e *encoder) leave(v reflect.Value) {
	key := visit{ptr: v.Pointer(), typ: v.Type()}
	if v.Kind() == reflect.Slice {
		key.len = v.Len()
	}
	delete(e.seen, key)
}

// document encodes the persisted fields of the struct value v.
func (e *encoder) document(v reflect.Value) (bson.D, error) {
	t := v.Type()
	fields, err := e.m.fields.Fields(t)
	if err != nil {
		return nil, err
	}

	if !v.CanAddr() {
		tmp := reflect.New(t).Elem()
		tmp.Set(v)
		v = tmp
	}

	doc := make(bson.D, 0, len(fields))
	for _, f := range fields {
		fv, ok, err := f.Get(v)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", t, f.Name, err)
		}
		if !ok {
			continue
		}

		enc, err := e.encode(fv)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", t, f.Name, err)
		}
		doc = core.Set(doc, f.DocName, enc)
	}
	return doc, nil
}

func (e *encoder) encode(v reflect.Value) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return nil, nil
		}
		return e.encode(v.Elem())
	case reflect.Pointer, reflect.Map, reflect.Slice:
		if v.IsNil() {
			return nil, nil
		}
	}

	if !v.CanInterface() {
		return nil, fmt.Errorf("%w: unexported %s", core.ErrUnsupportedValue, v.Type())
	}

	switch x := v.Interface().(type) {
	case time.Time:
		return e.date(x), nil
	case primitive.ObjectID, primitive.DateTime, primitive.Timestamp, primitive.Decimal128,
		primitive.Binary, primitive.Regex, primitive.JavaScript, primitive.CodeWithScope,
		primitive.Symbol, primitive.DBPointer, primitive.MinKey, primitive.MaxKey,
		primitive.Null, primitive.Undefined, bson.Raw, bson.RawValue, []byte:
		return x, nil
	}

	if s, ok := capability[core.Serializable](v); ok {
		out, err := s.BSONSerialize()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", v.Type(), err)
		}
		if reflect.TypeOf(out) == v.Type() {
			return nil, fmt.Errorf("%w: %s serializes to itself", core.ErrCyclicStructure, v.Type())
		}
		return e.encode(reflect.ValueOf(out))
	}

	if en, ok := capability[core.Enum](v); ok {
		return e.encode(reflect.ValueOf(en.EnumValue()))
	}

	switch v.Kind() {
	case reflect.Pointer:
		if err := e.enter(v); err != nil {
			return nil, err
		}
		defer e.leave(v)
		return e.encode(v.Elem())

	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return scalar(v), nil

	case reflect.Struct:
		if e.m.fields.Mapped(v.Type()) {
			return e.document(v)
		}

	case reflect.Map:
		if err := e.enter(v); err != nil {
			return nil, err
		}
		defer e.leave(v)
		return e.record(v)

	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice {
			if err := e.enter(v); err != nil {
				return nil, err
			}
			defer e.leave(v)
		}
		if d, ok := v.Interface().(bson.D); ok {
			return e.ordered(d)
		}
		if v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8 {
			return v.Bytes(), nil
		}
		return e.sequence(v)
	}

	return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedValue, v.Type())
}

func (e *encoder) date(t time.Time) primitive.DateTime {
	if e.m.millis {
		return bsonutil.DateMillis(t)
	}
	return bsonutil.Date(t)
}

func (e *encoder) ordered(d bson.D) (bson.D, error) {
	out := make(bson.D, 0, len(d))
	for _, el := range d {
		enc, err := e.encode(reflect.ValueOf(el.Value))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", el.Key, err)
		}
		out = append(out, bson.E{Key: el.Key, Value: enc})
	}
	return out, nil
}

func (e *encoder) record(v reflect.Value) (bson.M, error) {
	out := make(bson.M, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		k, err := e.encode(iter.Key())
		if err != nil {
			return nil, err
		}
		key := fmt.Sprint(k)

		enc, err := e.encode(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out[key] = enc
	}
	return out, nil
}

func (e *encoder) sequence(v reflect.Value) (bson.A, error) {
	out := make(bson.A, v.Len())
	for i := range out {
		enc, err := e.encode(v.Index(i))
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = enc
	}
	return out, nil
}

var basicTypes = map[reflect.Kind]reflect.Type{
	reflect.Bool:    reflect.TypeFor[bool](),
	reflect.String:  reflect.TypeFor[string](),
	reflect.Int:     reflect.TypeFor[int](),
	reflect.Int8:    reflect.TypeFor[int8](),
	reflect.Int16:   reflect.TypeFor[int16](),
	reflect.Int32:   reflect.TypeFor[int32](),
	reflect.Int64:   reflect.TypeFor[int64](),
	reflect.Uint:    reflect.TypeFor[uint](),
	reflect.Uint8:   reflect.TypeFor[uint8](),
	reflect.Uint16:  reflect.TypeFor[uint16](),
	reflect.Uint32:  reflect.TypeFor[uint32](),
	reflect.Uint64:  reflect.TypeFor[uint64](),
	reflect.Float32: reflect.TypeFor[float32](),
	reflect.Float64: reflect.TypeFor[float64](),
}

// scalar returns v as its built-in type, so named types (type Color string)
// are stored as their underlying scalar.
func scalar(v reflect.Value) any {
	basic := basicTypes[v.Kind()]
	if v.Type() == basic {
		return v.Interface()
	}
	return v.Convert(basic).Interface()
}

// capability returns v as T, trying the pointer form of addressable values so
// methods with pointer receivers are found.
func capability[T any](v reflect.Value) (T, bool) {
	if c, ok := v.Interface().(T); ok {
		return c, true
	}
	if v.Kind() != reflect.Pointer && v.CanAddr() && v.Addr().CanInterface() {
		if c, ok := v.Addr().Interface().(T); ok {
			return c, true
		}
	}
	var zero T
	return zero, false
}
