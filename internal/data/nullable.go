package data

import (
	"bytes"

	"github.com/goccy/go-json"
)

// Nullable tells an omitted JSON field apart from an explicit null.
//
//	omitted: Set == false
//	null:    Set == true, Valid == false
//	value:   Set == true, Valid == true
type Nullable[T any] struct {
	Set   bool
	Valid bool
	Value T
}

func Present[T any](v T) Nullable[T] {
	return Nullable[T]{Set: true, Valid: true, Value: v}
}

func Null[T any]() Nullable[T] {
	return Nullable[T]{Set: true}
}

// UnmarshalJSON is only invoked for keys present in the document, which is
// what makes Set meaningful.
func (n *Nullable[T]) UnmarshalJSON(jsonValue []byte) error {
	n.Set = true

	if bytes.Equal(bytes.TrimSpace(jsonValue), []byte("null")) {
		var zero T
		n.Valid = false
		n.Value = zero
		return nil
	}

	if err := json.Unmarshal(jsonValue, &n.Value); err != nil {
		return err
	}

	n.Valid = true
	return nil
}

func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}

	return json.Marshal(n.Value)
}
