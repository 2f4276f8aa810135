// Package schema discovers the persisted fields of mapped types.
//
// A field takes part in persistence when it carries an `odm` struct tag:
//
//	type Person struct {
//		ID        primitive.ObjectID `odm:"_id"`
//		Name      string             `odm:""`
//		CreatedAt time.Time          `odm:""`
//		Nickname  *string            `odm:"nick,nullable"`
//		Pet       Animal             `odm:"pet,type=Dog|Cat"`
//		note      string             `odm:""` // through Note() / SetNote()
//	}
//
// Untagged embedded structs act as parent types: their fields come first.
package schema

import (
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/aretw0/odm/pkg/core"
)

// TagName is the struct tag key that marks a persisted field.
const TagName = "odm"

type typeInfo struct {
	fields []Field
	err    error
}

// Introspector computes and caches the field list of mapped types.
// It is safe for concurrent use; computing the same type twice yields equal results.
type Introspector struct {
	cache  sync.Map // reflect.Type -> *typeInfo
	logger *slog.Logger
	strict bool
}

// New creates an Introspector. With strict set, two persisted fields sharing a
// document name make the type invalid instead of logging a warning.
func New(logger *slog.Logger, strict bool) *Introspector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Introspector{logger: logger, strict: strict}
}

// Strict reports whether duplicate document names are rejected.
func (in *Introspector) Strict() bool {
	return in.strict
}

// Fields returns the ordered persisted fields of t (or of the struct t points to).
// Non-struct types have no fields.
func (in *Introspector) Fields(t reflect.Type) ([]Field, error) {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, nil
	}

	if cached, ok := in.cache.Load(t); ok {
		info := cached.(*typeInfo)
		return info.fields, info.err
	}

	fields := collect(t, nil, map[reflect.Type]bool{})
	info := &typeInfo{fields: fields, err: in.checkNames(t, fields)}

	actual, loaded := in.cache.LoadOrStore(t, info)
	if !loaded {
		in.logger.Debug("introspected mapped type", "type", t.String(), "fields", len(fields))
	}
	info = actual.(*typeInfo)
	return info.fields, info.err
}

// Mapped reports whether t declares at least one persisted field.
func (in *Introspector) Mapped(t reflect.Type) bool {
	fields, _ := in.Fields(t)
	return len(fields) > 0
}

// Len returns the number of cached types.
func (in *Introspector) Len() int {
	n := 0
	in.cache.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Types returns the names of the cached mapped types.
func (in *Introspector) Types() []string {
	var names []string
	in.cache.Range(func(k, v any) bool {
		if len(v.(*typeInfo).fields) > 0 {
			names = append(names, k.(reflect.Type).String())
		}
		return true
	})
	return names
}

func (in *Introspector) checkNames(t reflect.Type, fields []Field) error {
	seen := make(map[string]string, len(fields))
	for _, f := range fields {
		prev, dup := seen[f.DocName]
		if !dup {
			seen[f.DocName] = f.Name
			continue
		}
		if in.strict {
			return fmt.Errorf("%w: %s.%s and %s both map to %q", core.ErrNameCollision, t, prev, f.Name, f.DocName)
		}
		in.logger.Warn("persisted fields share a document name, the last one wins",
			"type", t.String(), "key", f.DocName, "first", prev, "second", f.Name)
	}
	return nil
}

// collect walks parents (untagged embedded structs) first, then the own fields of t.
func collect(t reflect.Type, prefix []int, path map[reflect.Type]bool) []Field {
	if path[t] {
		return nil
	}
	path[t] = true
	defer delete(path, t)

	var fields []Field

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if _, tagged := sf.Tag.Lookup(TagName); tagged || !sf.Anonymous {
			continue
		}
		parent := sf.Type
		if parent.Kind() == reflect.Pointer {
			parent = parent.Elem()
		}
		if parent.Kind() != reflect.Struct {
			continue
		}
		fields = append(fields, collect(parent, appendIndex(prefix, i), path)...)
	}

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag, ok := sf.Tag.Lookup(TagName)
		if !ok || tag == "-" {
			continue
		}
		fields = append(fields, describe(t, sf, appendIndex(prefix, i), tag))
	}

	return fields
}

func describe(owner reflect.Type, sf reflect.StructField, index []int, tag string) Field {
	parts := strings.Split(tag, ",")

	f := Field{
		Name:      sf.Name,
		DocName:   strings.TrimSpace(parts[0]),
		Index:     index,
		Type:      sf.Type,
		Nullable:  sf.Type.Kind() == reflect.Pointer,
		Declaring: owner,
		Tag:       tag,
		direct:    sf.IsExported(),
	}
	if f.DocName == "" {
		f.DocName = SnakeCase(sf.Name)
	}

	for _, opt := range parts[1:] {
		opt = strings.TrimSpace(opt)
		switch {
		case opt == "nullable":
			f.Nullable = true
		case strings.HasPrefix(opt, "type="):
			for _, name := range strings.Split(strings.TrimPrefix(opt, "type="), "|") {
				if name = strings.TrimSpace(name); name != "" {
					f.TypeNames = append(f.TypeNames, name)
				}
			}
		}
	}

	if !f.direct {
		f.getter, f.setter = accessors(owner, sf)
	}

	return f
}

// accessors finds the getter (Name or GetName) and setter (SetName) of an
// unexported field on the declaring struct.
func accessors(owner reflect.Type, sf reflect.StructField) (getter, setter string) {
	exported := exportName(sf.Name)
	ptr := reflect.PointerTo(owner)

	for _, name := range []string{exported, "Get" + exported} {
		if m, ok := ptr.MethodByName(name); ok && m.Type.NumIn() == 1 && m.Type.NumOut() == 1 {
			getter = name
			break
		}
	}

	if m, ok := ptr.MethodByName("Set" + exported); ok && m.Type.NumIn() == 2 {
		setter = "Set" + exported
	}

	return getter, setter
}

func exportName(name string) string {
	r := []rune(name)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func appendIndex(prefix []int, i int) []int {
	index := make([]int, len(prefix)+1)
	copy(index, prefix)
	index[len(prefix)] = i
	return index
}
