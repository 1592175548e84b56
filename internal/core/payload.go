package core

import (
	"bytes"
	"fmt"
	"reflect"
	"strconv"
)

// Kind tags the variant held by a Payload.
type Kind uint8

const (
	KindBytes Kind = iota
	KindText
	KindStructured
)

func (k Kind) String() string {
	switch k {
	case KindBytes:
		return "bytes"
	case KindText:
		return "text"
	case KindStructured:
		return "structured"
	default:
		return "unknown"
	}
}

// Payload is the value handed from one layer to the next. Exactly one of
// the variants is meaningful, selected by Kind. A Payload is treated as
// immutable: codecs never write into the byte slice they receive.
type Payload struct {
	kind  Kind
	data  []byte
	text  string
	value any
}

// BytesPayload wraps raw bytes.
func BytesPayload(b []byte) Payload {
	return Payload{kind: KindBytes, data: b}
}

// TextPayload wraps a string.
func TextPayload(s string) Payload {
	return Payload{kind: KindText, text: s}
}

// StructuredPayload wraps a structured value after normalizing it into
// the JSON data model (map[string]any, []any, string, float64, bool, nil).
func StructuredPayload(v any) (Payload, error) {
	n, err := Normalize(v)
	if err != nil {
		return Payload{}, err
	}
	return Payload{kind: KindStructured, value: n}, nil
}

func (p Payload) Kind() Kind { return p.kind }

// Bytes returns the raw bytes or ErrUnsupportedInput for other kinds.
func (p Payload) Bytes() ([]byte, error) {
	if p.kind != KindBytes {
		return nil, fmt.Errorf("%w: expected bytes, got %s", ErrUnsupportedInput, p.kind)
	}
	return p.data, nil
}

// Text returns the string or ErrUnsupportedInput for other kinds.
func (p Payload) Text() (string, error) {
	if p.kind != KindText {
		return "", fmt.Errorf("%w: expected text, got %s", ErrUnsupportedInput, p.kind)
	}
	return p.text, nil
}

// Value returns the structured value or ErrUnsupportedInput for other kinds.
func (p Payload) Value() (any, error) {
	if p.kind != KindStructured {
		return nil, fmt.Errorf("%w: expected structured, got %s", ErrUnsupportedInput, p.kind)
	}
	return p.value, nil
}

// Len is the byte length for bytes and text, 0 for structured values.
func (p Payload) Len() int {
	switch p.kind {
	case KindBytes:
		return len(p.data)
	case KindText:
		return len(p.text)
	default:
		return 0
	}
}

// Equal compares kind and content.
func (p Payload) Equal(o Payload) bool {
	if p.kind != o.kind {
		return false
	}
	switch p.kind {
	case KindBytes:
		return bytes.Equal(p.data, o.data)
	case KindText:
		return p.text == o.text
	default:
		return reflect.DeepEqual(p.value, o.value)
	}
}

func (p Payload) String() string {
	switch p.kind {
	case KindBytes:
		return strconv.Quote(string(p.data))
	case KindText:
		return p.text
	default:
		return fmt.Sprintf("%v", p.value)
	}
}

// Normalize converts v into the JSON data model so values survive every
// presentation format unchanged. Integers become float64; maps must have
// string keys. Values nested deeper than MaxNestingDepth, which includes
// any self-referencing map or slice, are rejected.
func Normalize(v any) (any, error) {
	return normalize(v, 0)
}

// MaxNestingDepth bounds how deep Normalize descends into a value.
const MaxNestingDepth = 512

func normalize(v any, depth int) (any, error) {
	if depth > MaxNestingDepth {
		return nil, fmt.Errorf("%w: value nested deeper than %d levels", ErrUnsupportedInput, MaxNestingDepth)
	}
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string, bool, float64:
		return t, nil
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			n, err := normalize(e, depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			n, err := normalize(e, depth+1)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	case reflect.Float32:
		return rv.Float(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return nil, fmt.Errorf("%w: raw bytes inside a structured value", ErrUnsupportedInput)
		}
		out := make([]any, rv.Len())
		for i := range out {
			n, err := normalize(rv.Index(i).Interface(), depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key()
			if k.Kind() == reflect.Interface && !k.IsNil() {
				k = k.Elem()
			}
			if k.Kind() != reflect.String {
				return nil, fmt.Errorf("%w: map key of type %s", ErrUnsupportedInput, k.Type())
			}
			n, err := normalize(iter.Value().Interface(), depth+1)
			if err != nil {
				return nil, err
			}
			out[k.String()] = n
		}
		return out, nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return normalize(rv.Elem().Interface(), depth+1)
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedInput, v)
}
