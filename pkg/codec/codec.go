// Package codec implements the text-structured wire encoding shared by
// every state-sync and tenant-notification payload: a small, named
// field vocabulary serialized as JSON. Readers are forward-compatible
// (unknown fields ignored, missing fields default); writers emit exactly
// the fields their payload type declares.
package codec

import (
	"encoding/json"
	"fmt"
)

// Node is the generic structured-data tree every payload reads from and
// writes to. It is a thin, JSON-backed stand-in for the original
// self-describing message-body format.
type Node map[string]any

// Reader is implemented by payload types that can populate themselves
// from a Node.
type Reader interface {
	ReadFrom(Node) error
}

// Writer is implemented by payload types that can serialize themselves
// to a Node.
type Writer interface {
	WriteTo() Node
}

// Marshal encodes a Writer to JSON bytes.
func Marshal(w Writer) ([]byte, error) {
	return json.Marshal(w.WriteTo())
}

// Unmarshal decodes JSON bytes into a Node and feeds it to r.
func Unmarshal(data []byte, r Reader) error {
	var n Node
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("codec: malformed payload: %w", err)
	}
	return r.ReadFrom(n)
}

// String reads a string field, defaulting to "".
func (n Node) String(field string) string {
	v, ok := n[field]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// Uint32 reads a field as a uint32, defaulting to 0. Handles both
// json.Number-free float64 (the default decode of encoding/json numeric
// literals) and already-typed integers, so a Node built in-process
// (rather than round-tripped through JSON bytes) behaves identically.
func (n Node) Uint32(field string) uint32 {
	switch v := n[field].(type) {
	case float64:
		return uint32(v)
	case uint32:
		return v
	case int:
		return uint32(v)
	case int64:
		return uint32(v)
	default:
		return 0
	}
}

// Uint64 reads a field as a uint64, defaulting to 0.
func (n Node) Uint64(field string) uint64 {
	switch v := n[field].(type) {
	case float64:
		return uint64(v)
	case uint64:
		return v
	case int:
		return uint64(v)
	case int64:
		return uint64(v)
	default:
		return 0
	}
}

// Int64 reads a field as an int64, defaulting to 0.
func (n Node) Int64(field string) int64 {
	switch v := n[field].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}

// Bool reads a field as a bool, defaulting to false.
func (n Node) Bool(field string) bool {
	b, _ := n[field].(bool)
	return b
}

// StringSlice reads a field as a []string, defaulting to nil.
func (n Node) StringSlice(field string) []string {
	v, ok := n[field]
	if !ok {
		return nil
	}
	switch items := v.(type) {
	case []string:
		return items
	case []any:
		out := make([]string, 0, len(items))
		for _, it := range items {
			if s, ok := it.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
