package view

import (
	"bytes"
	"encoding/json"
)

// Object is a rendered record. Keys keep template field order, which is also
// the order used when marshaling to JSON.
type Object struct {
	keys   []string
	values map[string]any
}

func newObject(size int) *Object {
	return &Object{
		keys:   make([]string, 0, size),
		values: make(map[string]any, size),
	}
}

func (o *Object) set(key string, value any) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

// Get returns the value of a field and whether the field exists.
func (o *Object) Get(key string) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Keys returns the field names in order.
func (o *Object) Keys() []string {
	keys := make([]string, len(o.keys))
	copy(keys, o.keys)
	return keys
}

// Len returns the number of fields.
func (o *Object) Len() int {
	return len(o.keys)
}

// Map converts the object, and any rendered objects nested in it, to plain maps.
func (o *Object) Map() map[string]any {
	m := make(map[string]any, len(o.keys))
	for _, k := range o.keys {
		m[k] = Plain(o.values[k])
	}
	return m
}

// MarshalJSON encodes the object with keys in template order.
func (o *Object) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		value, err := json.Marshal(o.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Plain converts rendered output into plain maps and slices.
func Plain(v any) any {
	switch val := v.(type) {
	case *Object:
		if val == nil {
			return nil
		}
		return val.Map()
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Plain(item)
		}
		return out
	default:
		return v
	}
}
