package devices

import (
	"encoding/json"
)

// Mode tells whether a configuration value is owned by the device type or
// by the operator.
type Mode int

const (
	ModeEditable Mode = iota
	ModeFixed
)

func (m Mode) String() string {
	switch m {
	case ModeFixed:
		return "fixed"
	case ModeEditable:
		return "editable"
	default:
		return "unknown"
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Field is either Fixed(value) or Editable(default). The zero value is
// Editable with a zero default.
type Field[T comparable] struct {
	mode  Mode
	value T
}

func Fixed[T comparable](v T) Field[T] {
	return Field[T]{mode: ModeFixed, value: v}
}

func Editable[T comparable](def T) Field[T] {
	return Field[T]{mode: ModeEditable, value: def}
}

func (f Field[T]) Mode() Mode { return f.mode }

func (f Field[T]) IsFixed() bool { return f.mode == ModeFixed }

// Value returns the fixed value or the default.
func (f Field[T]) Value() T { return f.value }

// Resolve picks the effective value for a record that currently holds
// current. A zero current counts as "not entered yet".
func (f Field[T]) Resolve(current T) T {
	var zero T
	if f.mode == ModeFixed || current == zero {
		return f.value
	}
	return current
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Mode  Mode `json:"mode"`
		Value T    `json:"value"`
	}{f.mode, f.value})
}
