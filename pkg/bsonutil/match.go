package bsonutil

import (
	"reflect"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/aretw0/odm/pkg/core"
	"github.com/aretw0/odm/pkg/enum"
)

// Match reports whether raw satisfies filter, a generic record of equality
// conditions. Keys may be dotted paths into embedded documents and numbers
// compare by value regardless of width. A nil filter matches everything.
func Match(raw bson.Raw, filter any) bool {
	if filter == nil {
		return true
	}
	doc, err := Normalize(raw)
	if err != nil {
		return false
	}

	for _, cond := range core.Ordered(filter) {
		got, ok := Path(doc, cond.Key)
		if !ok {
			return false
		}
		want, err := Normalize(cond.Value)
		if err != nil || !equal(got, want) {
			return false
		}
	}
	return true
}

// Path reads a dotted key path from a generic record.
func Path(doc any, key string) (any, bool) {
	cur := doc
	for _, part := range strings.Split(key, ".") {
		v, ok := core.Lookup(cur, part)
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

func equal(a, b any) bool {
	if enum.Equal(a, b) {
		return true
	}
	return reflect.DeepEqual(a, b)
}
