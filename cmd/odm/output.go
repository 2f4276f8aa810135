package main

import (
	"encoding/json"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"gopkg.in/yaml.v3"
)

// writeDocs prints normalized documents as a YAML stream, or as a JSON array
// when asJSON is set.
func writeDocs(w io.Writer, docs []any, asJSON bool) error {
	if asJSON {
		out := make([]any, len(docs))
		for i, d := range docs {
			out[i] = display(d)
		}
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(out)
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	for _, d := range docs {
		if err := encoder.Encode(display(d)); err != nil {
			return err
		}
	}
	return encoder.Close()
}

// display replaces driver values that would print as raw structs.
func display(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = display(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = display(e)
		}
		return out
	case primitive.ObjectID:
		return x.Hex()
	case primitive.Decimal128:
		return x.String()
	case primitive.Timestamp:
		return time.Unix(int64(x.T), 0).UTC()
	case primitive.Binary:
		return x.Data
	}
	return v
}
