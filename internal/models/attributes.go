package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrDecode marks a structural failure while decoding a provider body.
var ErrDecode = errors.New("decode error")

// DecodeError describes which part of a provider body could not be decoded.
type DecodeError struct {
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("decode %s", e.Source)
	}
	return fmt.Sprintf("decode %s: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDecode}
	}
	return []error{ErrDecode, e.Err}
}

// NewDecodeError wraps err as a decode failure of source
func NewDecodeError(source string, err error) error {
	return &DecodeError{Source: source, Err: err}
}

// MissingKeyError reports a required key absent from a provider body
func MissingKeyError(source, key string) error {
	return &DecodeError{Source: source, Err: fmt.Errorf("missing required key %q", key)}
}

// Attributes is a decoded JSON object. Numbers are kept as json.Number so
// identifiers and millisecond timestamps survive without float rounding.
type Attributes map[string]any

// DecodeAttributes decodes exactly one JSON object
func DecodeAttributes(data []byte) (Attributes, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if rest := bytes.TrimSpace(data[dec.InputOffset():]); len(rest) > 0 {
		return nil, errors.New("unexpected data after JSON object")
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected JSON object, got %T", v)
	}
	return Attributes(obj), nil
}

// Has reports whether key is present with a non-null value
func (a Attributes) Has(key string) bool {
	v, ok := a[key]
	return ok && v != nil
}

func (a Attributes) String(key string) (string, bool) {
	switch v := a[key].(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	default:
		return "", false
	}
}

func (a Attributes) Int64(key string) (int64, bool) {
	return toInt64(a[key])
}

func (a Attributes) Int(key string) (int, bool) {
	v, ok := toInt64(a[key])
	return int(v), ok
}

func (a Attributes) Bool(key string) (bool, bool) {
	switch v := a[key].(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(v)
		return b, err == nil
	case json.Number, float64:
		n, ok := toInt64(v)
		if !ok || (n != 0 && n != 1) {
			return false, false
		}
		return n == 1, true
	default:
		return false, false
	}
}

func (a Attributes) Time(key string) (Time, bool) {
	ms, ok := toInt64(a[key])
	return Time(ms), ok
}

// Map returns a nested object
func (a Attributes) Map(key string) (Attributes, bool) {
	m, ok := a[key].(map[string]any)
	return Attributes(m), ok
}

// Slice returns a nested array
func (a Attributes) Slice(key string) ([]any, bool) {
	s, ok := a[key].([]any)
	return s, ok
}

// Clone returns a deep copy, so callers can hand out maps without exposing
// the decoded original.
func (a Attributes) Clone() map[string]any {
	if a == nil {
		return nil
	}
	return cloneValue(map[string]any(a)).(map[string]any)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = cloneValue(item)
		}
		return out
	case Attributes:
		return cloneValue(map[string]any(t))
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// floatToInt64 accepts whole numbers in [-2^63, 2^63).
func floatToInt64(f float64) (int64, bool) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt64(f)
	case float64:
		return floatToInt64(n)
	case int64:
		return n, true
	case int:
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}
