package plugin

import "fmt"

// Kind identifies the scalar type carried by a Value.
type Kind int

const (
	// KindInt is a signed 64-bit integer metric.
	KindInt Kind = iota
	// KindFloat is a 64-bit float metric.
	KindFloat
	// KindString is a string-like identifier metric.
	KindString
)

// Value is a typed scalar metric value: integer, float, or string.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
}

// IntValue wraps an integer metric value.
func IntValue(v int64) Value { return Value{kind: KindInt, i: v} }

// FloatValue wraps a float metric value.
func FloatValue(v float64) Value { return Value{kind: KindFloat, f: v} }

// StringValue wraps a string metric value.
func StringValue(v string) Value { return Value{kind: KindString, s: v} }

// Kind returns the scalar type of the value.
func (v Value) Kind() Kind { return v.kind }

// Int returns the integer payload. Valid only for KindInt.
func (v Value) Int() int64 { return v.i }

// Float returns the float payload. Valid only for KindFloat.
func (v Value) Float() float64 { return v.f }

// String returns a display form for any kind.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	default:
		return v.s
	}
}

// Driver returns the value in a form accepted by database/sql drivers.
func (v Value) Driver() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	default:
		return v.s
	}
}

// FromDriver converts a scanned database value back into a Value.
func FromDriver(raw any) (Value, error) {
	switch t := raw.(type) {
	case int64:
		return IntValue(t), nil
	case float64:
		return FloatValue(t), nil
	case string:
		return StringValue(t), nil
	case []byte:
		return StringValue(string(t)), nil
	default:
		return Value{}, fmt.Errorf("unsupported metric value type %T", raw)
	}
}
