package httputil

import (
	"bytes"
	"encoding/json"
)

// Optional is a PATCH body field that tells an absent key apart from an
// explicit null (RFC 7396).
type Optional[T any] struct {
	Set   bool // key present in the body
	Null  bool // key present with value null
	Value T
}

// UnmarshalJSON is only called when the key is present
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		var zero T
		o.Value = zero
		return nil
	}
	o.Null = false
	return json.Unmarshal(data, &o.Value)
}

// Ptr returns the sent value, or nil when the key was absent or null
func (o Optional[T]) Ptr() *T {
	if !o.Set || o.Null {
		return nil
	}
	v := o.Value
	return &v
}
