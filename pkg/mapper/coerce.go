package mapper

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/aretw0/odm/pkg/core"
)

var timeType = reflect.TypeFor[time.Time]()

// coerce turns a decoded value into a value assignable to t.
func coerce(val any, t reflect.Type) (reflect.Value, error) {
	if val == nil {
		return reflect.Zero(t), nil
	}
	return convert(reflect.ValueOf(val), t)
}

func convert(rv reflect.Value, t reflect.Type) (reflect.Value, error) {
	for rv.Kind() == reflect.Interface && !rv.IsNil() {
		rv = rv.Elem()
	}
	if !rv.IsValid() || (rv.Kind() == reflect.Interface && rv.IsNil()) {
		return reflect.Zero(t), nil
	}

	if rv.Kind() == reflect.Pointer && !rv.IsNil() && rv.Elem().Type().AssignableTo(t) {
		return rv.Elem(), nil
	}
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}

	switch t.Kind() {
	case reflect.Pointer:
		x, err := convert(rv, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(t.Elem())
		p.Elem().Set(x)
		return p, nil

	case reflect.Interface:
		if rv.Kind() != reflect.Pointer {
			p := reflect.New(rv.Type())
			p.Elem().Set(rv)
			if p.Type().Implements(t) {
				return p, nil
			}
		}

	case reflect.Slice:
		if bin, ok := rv.Interface().(primitive.Binary); ok && t.Elem().Kind() == reflect.Uint8 {
			return reflect.ValueOf(bin.Data).Convert(t), nil
		}
		if isSequence(rv) {
			out := reflect.MakeSlice(t, rv.Len(), rv.Len())
			for i := 0; i < rv.Len(); i++ {
				x, err := convert(rv.Index(i), t.Elem())
				if err != nil {
					return reflect.Value{}, fmt.Errorf("[%d]: %w", i, err)
				}
				out.Index(i).Set(x)
			}
			return out, nil
		}

	case reflect.Array:
		if isSequence(rv) && rv.Len() <= t.Len() {
			out := reflect.New(t).Elem()
			for i := 0; i < rv.Len(); i++ {
				x, err := convert(rv.Index(i), t.Elem())
				if err != nil {
					return reflect.Value{}, fmt.Errorf("[%d]: %w", i, err)
				}
				out.Index(i).Set(x)
			}
			return out, nil
		}

	case reflect.Map:
		if rv.CanInterface() && core.IsRecord(rv.Interface()) {
			src := core.Ordered(rv.Interface())
			out := reflect.MakeMapWithSize(t, len(src))
			for _, e := range src {
				k, err := mapKey(e.Key, t.Key())
				if err != nil {
					return reflect.Value{}, err
				}
				x, err := coerce(e.Value, t.Elem())
				if err != nil {
					return reflect.Value{}, fmt.Errorf("%s: %w", e.Key, err)
				}
				out.SetMapIndex(k, x)
			}
			return out, nil
		}

	case reflect.Struct:
		if t == timeType && rv.Type() == dateTimeType {
			return reflect.ValueOf(rv.Interface().(primitive.DateTime).Time().UTC()), nil
		}

	default:
		if isScalar(t.Kind()) && isScalar(rv.Kind()) {
			return numeric(rv, t)
		}
	}

	return reflect.Value{}, fmt.Errorf("%w: cannot use %s as %s", core.ErrTypeMismatch, rv.Type(), t)
}

func isSequence(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Slice:
		return rv.Type().Elem().Kind() != reflect.Uint8
	case reflect.Array:
		return true
	}
	return false
}

func mapKey(key string, t reflect.Type) (reflect.Value, error) {
	switch t.Kind() {
	case reflect.String:
		return reflect.ValueOf(key).Convert(t), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(key, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%w: map key %q: %v", core.ErrTypeMismatch, key, err)
		}
		return reflect.ValueOf(n).Convert(t), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(key, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%w: map key %q: %v", core.ErrTypeMismatch, key, err)
		}
		return reflect.ValueOf(n).Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("%w: unsupported map key %s", core.ErrTypeMismatch, t)
}

type class int

const (
	classBool class = iota
	classString
	classInt
	classUint
	classFloat
)

func classOf(k reflect.Kind) class {
	switch k {
	case reflect.Bool:
		return classBool
	case reflect.String:
		return classString
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return classInt
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return classUint
	}
	return classFloat
}

// numeric converts between scalars of the same family. Numbers convert
// across widths and signedness as long as the value survives the trip.
func numeric(rv reflect.Value, t reflect.Type) (reflect.Value, error) {
	from, to := classOf(rv.Kind()), classOf(t.Kind())
	mismatch := fmt.Errorf("%w: cannot use %v (%s) as %s", core.ErrTypeMismatch, rv, rv.Type(), t)

	if from == classBool || from == classString || to == classBool || to == classString {
		if from != to {
			return reflect.Value{}, mismatch
		}
		return rv.Convert(t), nil
	}

	out := reflect.New(t).Elem()
	switch to {
	case classInt:
		var n int64
		switch from {
		case classInt:
			n = rv.Int()
		case classUint:
			if rv.Uint() > math.MaxInt64 {
				return reflect.Value{}, mismatch
			}
			n = int64(rv.Uint())
		case classFloat:
			f := rv.Float()
			if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
				return reflect.Value{}, mismatch
			}
			n = int64(f)
		}
		if out.OverflowInt(n) {
			return reflect.Value{}, mismatch
		}
		out.SetInt(n)

	case classUint:
		var n uint64
		switch from {
		case classInt:
			if rv.Int() < 0 {
				return reflect.Value{}, mismatch
			}
			n = uint64(rv.Int())
		case classUint:
			n = rv.Uint()
		case classFloat:
			f := rv.Float()
			if f != math.Trunc(f) || f < 0 || f >= math.MaxUint64 {
				return reflect.Value{}, mismatch
			}
			n = uint64(f)
		}
		if out.OverflowUint(n) {
			return reflect.Value{}, mismatch
		}
		out.SetUint(n)

	case classFloat:
		var f float64
		switch from {
		case classInt:
			f = float64(rv.Int())
		case classUint:
			f = float64(rv.Uint())
		case classFloat:
			f = rv.Float()
		}
		if out.OverflowFloat(f) {
			return reflect.Value{}, mismatch
		}
		out.SetFloat(f)
	}
	return out, nil
}
