package contact

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Fields is an ordered mapping from field name to Value. The zero value is empty
// and ready to use.
type Fields struct {
	keys   []string
	values map[string]Value
}

func NewFields() Fields { return Fields{} }

func (f Fields) Len() int { return len(f.keys) }

func (f Fields) Keys() []string {
	out := make([]string, len(f.keys))
	copy(out, f.keys)
	return out
}

func (f Fields) Get(key string) (Value, bool) {
	v, ok := f.values[key]
	if !ok {
		return Value{}, false
	}
	return v.clone(), true
}

// Set replaces the value in place when key exists and appends it otherwise.
func (f *Fields) Set(key string, v Value) {
	if f.values == nil {
		f.values = make(map[string]Value)
	}
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = v.clone()
}

func (f *Fields) Delete(key string) {
	if _, ok := f.values[key]; !ok {
		return
	}
	delete(f.values, key)
	for i, k := range f.keys {
		if k == key {
			f.keys = append(f.keys[:i:i], f.keys[i+1:]...)
			break
		}
	}
}

// Clone returns a deep copy; edits to the copy never reach f.
func (f Fields) Clone() Fields {
	out := Fields{
		keys:   make([]string, len(f.keys)),
		values: make(map[string]Value, len(f.values)),
	}
	copy(out.keys, f.keys)
	for k, v := range f.values {
		out.values[k] = v.clone()
	}
	return out
}

func (f Fields) Equal(other Fields) bool {
	if len(f.keys) != len(other.keys) {
		return false
	}
	for i, k := range f.keys {
		if other.keys[i] != k {
			return false
		}
		if !f.values[k].Equal(other.values[k]) {
			return false
		}
	}
	return true
}

// Map converts the fields to plain Go values for storage marshalling.
func (f Fields) Map() map[string]interface{} {
	out := make(map[string]interface{}, len(f.keys))
	for _, k := range f.keys {
		out[k] = f.values[k].Any()
	}
	return out
}

// FieldsFromMap rebuilds Fields from a storage map, using order for key
// sequence. Keys missing from order are appended in sorted order.
func FieldsFromMap(raw map[string]interface{}, order []string) (Fields, error) {
	nested, err := FromAny(raw)
	if err != nil {
		return Fields{}, err
	}
	sorted, _ := nested.NestedValue()

	var out Fields
	seen := make(map[string]bool, len(order))
	for _, k := range order {
		if v, ok := sorted.Get(k); ok && !seen[k] {
			out.Set(k, v)
			seen[k] = true
		}
	}
	for _, k := range sorted.Keys() {
		if !seen[k] {
			v, _ := sorted.Get(k)
			out.Set(k, v)
		}
	}
	return out, nil
}

func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range f.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := f.values[k].MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (f *Fields) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*f = Fields{}
		return nil
	}
	var v Value
	if err := v.UnmarshalJSON(data); err != nil {
		return err
	}
	if v.kind != KindNested {
		return fmt.Errorf("%w: fields must be an object, got %s", ErrUnsupportedValue, v.kind)
	}
	*f = *v.nested
	return nil
}
