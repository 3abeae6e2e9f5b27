package where

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"time"
)

// Entry is one key of a filter object
type Entry struct {
	Key   string
	Value any
}

// Spec is a filter object with its key order preserved.
// Values are literals, slices, or nested Spec / map[string]any objects.
type Spec []Entry

// S builds a Spec from alternating keys and values.
// A trailing key without a value gets a nil value.
func S(kv ...any) Spec {
	s := make(Spec, 0, (len(kv)+1)/2)
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		var val any
		if i+1 < len(kv) {
			val = kv[i+1]
		}
		s = append(s, Entry{Key: key, Value: val})
	}
	return s
}

// Get returns the value of the first entry named key
func (s Spec) Get(key string) (any, bool) {
	for _, e := range s {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// UnmarshalJSON decodes a JSON object keeping key order.
// Numbers decode as json.Number so integers keep their exact text.
func (s *Spec) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("filter must be a JSON object")
	}
	out, err := decodeObject(dec)
	if err != nil {
		return err
	}
	*s = out
	return nil
}

func decodeObject(dec *json.Decoder) (Spec, error) {
	out := Spec{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}
		val, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		out = append(out, Entry{Key: key, Value: val})
	}
	// closing '}'
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	d, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch d {
	case '{':
		return decodeObject(dec)
	case '[':
		list := []any{}
		for dec.More() {
			v, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return list, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %v", d)
	}
}

// asObject returns v as an ordered object when it is one.
// map[string]any is visited in sorted key order.
func asObject(v any) (Spec, bool) {
	switch x := v.(type) {
	case Spec:
		return x, true
	case *Spec:
		if x == nil {
			return nil, false
		}
		return *x, true
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		s := make(Spec, 0, len(keys))
		for _, k := range keys {
			s = append(s, Entry{Key: k, Value: x[k]})
		}
		return s, true
	}
	return nil, false
}

// asList returns v as a list when it is a slice or array (byte slices excluded)
func asList(v any) ([]any, bool) {
	switch x := v.(type) {
	case []any:
		return x, true
	case []string:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out, true
	case []int:
		out := make([]any, len(x))
		for i, n := range x {
			out[i] = n
		}
		return out, true
	case Spec, *Spec, map[string]any, []byte, nil:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// isNumberOrBool reports whether a literal is written without quotes
func isNumberOrBool(v any) bool {
	switch v.(type) {
	case bool, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}

// truthy mirrors the loose presence checks filter objects rely on
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case json.Number:
		f, err := x.Float64()
		return err != nil || f != 0
	case time.Time:
		return true
	}
	if isNumberOrBool(v) {
		return reflect.ValueOf(v).Convert(reflect.TypeOf(float64(0))).Float() != 0
	}
	return true
}

// present reports whether key exists in s with a non-nil value
func present(s Spec, key string) (any, bool) {
	v, ok := s.Get(key)
	return v, ok && v != nil
}
