package schema

import (
	"fmt"
	"reflect"
)

// Field describes one persisted field of a mapped type.
type Field struct {
	Name      string       // Go field name
	DocName   string       // Document key
	Index     []int        // Index path from the mapped type, through embedded parents
	Type      reflect.Type // Static Go type of the field
	TypeNames []string     // Declared type names from the tag (type=A|B); the first one wins
	Nullable  bool         // Pointer field or tagged nullable
	Declaring reflect.Type // Struct that declares the field
	Tag       string       // Raw odm tag

	getter string
	setter string
	direct bool
}

// Readable reports whether the field can be read for serialization.
func (f Field) Readable() bool {
	return f.direct || f.getter != ""
}

// Writable reports whether the field can be written during deserialization.
func (f Field) Writable() bool {
	return f.direct || f.setter != ""
}

// Collection reports whether the field holds an ordered sequence.
// []byte is binary data, not a collection.
func (f Field) Collection() bool {
	switch f.Type.Kind() {
	case reflect.Slice:
		return f.Type.Elem().Kind() != reflect.Uint8
	case reflect.Array:
		return true
	}
	return false
}

// Elem returns the element type of a collection field, or nil.
func (f Field) Elem() reflect.Type {
	if !f.Collection() {
		return nil
	}
	return f.Type.Elem()
}

// Get reads the field from v, a value of the mapped struct type.
// It returns false when the field cannot be reached, for instance through a
// nil embedded pointer, or has no read access.
func (f Field) Get(v reflect.Value) (reflect.Value, bool, error) {
	if !f.Readable() {
		return reflect.Value{}, false, nil
	}

	if f.direct {
		fv, err := v.FieldByIndexErr(f.Index)
		if err != nil {
			return reflect.Value{}, false, nil
		}
		return fv, true, nil
	}

	owner, err := v.FieldByIndexErr(f.Index[:len(f.Index)-1])
	if err != nil {
		return reflect.Value{}, false, nil
	}
	if owner.Kind() == reflect.Pointer {
		if owner.IsNil() {
			return reflect.Value{}, false, nil
		}
		owner = owner.Elem()
	}
	m := method(owner, f.getter)
	if !m.IsValid() {
		return reflect.Value{}, false, fmt.Errorf("getter %s not callable on %s", f.getter, owner.Type())
	}
	return m.Call(nil)[0], true, nil
}

// Set writes x into the field of v, allocating nil embedded pointers on the way.
// v must be addressable.
func (f Field) Set(v reflect.Value, x reflect.Value) error {
	if !f.Writable() {
		return fmt.Errorf("field %s is not writable", f.Name)
	}

	owner, err := ownerAlloc(v, f.Index[:len(f.Index)-1])
	if err != nil {
		return fmt.Errorf("field %s: %w", f.Name, err)
	}

	if f.direct {
		fv := owner.Field(f.Index[len(f.Index)-1])
		if !fv.CanSet() {
			return fmt.Errorf("field %s is not settable", f.Name)
		}
		fv.Set(x)
		return nil
	}

	m := method(owner, f.setter)
	if !m.IsValid() {
		return fmt.Errorf("setter %s not callable on %s", f.setter, owner.Type())
	}
	m.Call([]reflect.Value{x})
	return nil
}

// SetType is the type a value must have to be written: the setter parameter
// for accessor fields, the field type otherwise.
func (f Field) SetType() reflect.Type {
	if f.direct || f.setter == "" {
		return f.Type
	}
	m, ok := reflect.PointerTo(f.Declaring).MethodByName(f.setter)
	if !ok {
		return f.Type
	}
	return m.Type.In(1)
}

func method(owner reflect.Value, name string) reflect.Value {
	if owner.CanAddr() {
		if m := owner.Addr().MethodByName(name); m.IsValid() {
			return m
		}
	}
	return owner.MethodByName(name)
}

func ownerAlloc(v reflect.Value, index []int) (reflect.Value, error) {
	for _, x := range index {
		if v.Kind() == reflect.Pointer {
			if v.IsNil() {
				if !v.CanSet() {
					return reflect.Value{}, fmt.Errorf("cannot allocate embedded %s", v.Type())
				}
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			if !v.CanSet() {
				return reflect.Value{}, fmt.Errorf("cannot allocate embedded %s", v.Type())
			}
			v.Set(reflect.New(v.Type().Elem()))
		}
		v = v.Elem()
	}
	return v, nil
}
