// Package editing tracks edits to JSON resources and computes the minimal
// changesets sent to PATCH-style endpoints.
//
// Resources are handled as JSON trees: Object for records, []any for arrays,
// and string, float64, bool or nil for leaves, the shapes encoding/json
// produces when decoding into an interface value.
package editing

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mitchellh/copystructure"
)

type Object = map[string]any

// ToObject converts any JSON-marshalable value (typically an API resource
// struct) into an Object tree.
func ToObject(v any) (Object, error) {
	if o, ok := v.(Object); ok {
		return CloneObject(o), nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("editing: marshal resource: %w", err)
	}
	var out Object
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("editing: resource is not an object: %w", err)
	}
	if out == nil {
		out = Object{}
	}
	return out, nil
}

// FromObject decodes an Object tree into out.
func FromObject(o Object, out any) error {
	raw, err := json.Marshal(o)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// Clone returns a structural deep copy of a JSON tree.
func Clone(v any) any {
	if v == nil {
		return nil
	}
	return copystructure.Must(copystructure.Copy(v))
}

// CloneObject is Clone for records. A nil record clones to an empty one.
func CloneObject(o Object) Object {
	if o == nil {
		return Object{}
	}
	return Clone(o).(Object)
}

func equalJSON(a, b any) bool {
	ra, errA := json.Marshal(a)
	rb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ra, rb)
}

func isPrimitive(v any) bool {
	switch v.(type) {
	case string, bool, float64, float32, int, int32, int64, json.Number:
		return true
	}
	return false
}

func asArray(v any) ([]any, bool) {
	a, ok := v.([]any)
	return a, ok
}

func asObject(v any) (Object, bool) {
	o, ok := v.(Object)
	return o, ok && o != nil
}

// IDOf returns the string id of a record, or "" if it has none.
func IDOf(v any) string {
	o, ok := asObject(v)
	if !ok {
		return ""
	}
	switch id := o["id"].(type) {
	case string:
		return id
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}
