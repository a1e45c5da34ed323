// Package contact holds the schema-less contact model shared by the API server
// and the governance workflow: tagged field values, ordered field sets,
// "key:value" criteria and grouped boolean filters.
package contact

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
)

type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindNested
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindNested:
		return "nested"
	default:
		return "null"
	}
}

var ErrUnsupportedValue = errors.New("contact: unsupported field value")

// Value is a single contact field value. The zero Value is Null.
type Value struct {
	kind   Kind
	str    string
	num    float64
	b      bool
	nested *Fields
}

func String(s string) Value  { return Value{kind: KindString, str: s} }
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }
func Bool(b bool) Value      { return Value{kind: KindBool, b: b} }
func Null() Value            { return Value{} }

func Nested(f Fields) Value {
	c := f.Clone()
	return Value{kind: KindNested, nested: &c}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) StringValue() (string, bool) { return v.str, v.kind == KindString }

func (v Value) NumberValue() (float64, bool) { return v.num, v.kind == KindNumber }

func (v Value) BoolValue() (bool, bool) { return v.b, v.kind == KindBool }

func (v Value) NestedValue() (Fields, bool) {
	if v.kind != KindNested || v.nested == nil {
		return Fields{}, false
	}
	return v.nested.Clone(), true
}

// Text renders the value the way it is matched, suggested and exported.
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNested:
		data, err := json.Marshal(v.nested)
		if err != nil {
			return ""
		}
		return string(data)
	default:
		return ""
	}
}

func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == other.str
	case KindNumber:
		return v.num == other.num
	case KindBool:
		return v.b == other.b
	case KindNested:
		return v.nested.Equal(*other.nested)
	default:
		return true
	}
}

func (v Value) clone() Value {
	if v.kind == KindNested && v.nested != nil {
		c := v.nested.Clone()
		v.nested = &c
	}
	return v
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return nil, fmt.Errorf("%w: non-finite number", ErrUnsupportedValue)
		}
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	case KindNested:
		return json.Marshal(v.nested)
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	decoded, err := decodeValue(dec)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Value{}, fmt.Errorf("%w: unexpected end of input", ErrUnsupportedValue)
		}
		return Value{}, err
	}

	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("%w: %v", ErrUnsupportedValue, err)
		}
		return Number(n), nil
	case json.Delim:
		if t != '{' {
			return Value{}, fmt.Errorf("%w: lists are not supported", ErrUnsupportedValue)
		}
		var fields Fields
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return Value{}, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return Value{}, fmt.Errorf("%w: object key %v", ErrUnsupportedValue, keyTok)
			}
			child, err := decodeValue(dec)
			if err != nil {
				return Value{}, err
			}
			fields.Set(key, child)
		}
		if _, err := dec.Token(); err != nil {
			return Value{}, err
		}
		return Value{kind: KindNested, nested: &fields}, nil
	default:
		return Value{}, fmt.Errorf("%w: %T", ErrUnsupportedValue, tok)
	}
}

// FromAny converts a decoded storage value (as produced by attributevalue or
// encoding/json into interface{}) into a Value. Map keys are sorted because
// their original order is not recoverable.
func FromAny(raw interface{}) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Null(), nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("%w: %v", ErrUnsupportedValue, err)
		}
		return Number(n), nil
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var fields Fields
		for _, k := range keys {
			child, err := FromAny(t[k])
			if err != nil {
				return Value{}, err
			}
			fields.Set(k, child)
		}
		return Value{kind: KindNested, nested: &fields}, nil
	default:
		return Value{}, fmt.Errorf("%w: %T", ErrUnsupportedValue, raw)
	}
}

// Any is the inverse of FromAny.
func (v Value) Any() interface{} {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindNested:
		return v.nested.Map()
	default:
		return nil
	}
}
