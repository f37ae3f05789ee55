// Package json is the codec used for cache files and API bodies.
package json

import (
	stdjson "encoding/json"

	"github.com/bytedance/sonic"
)

// RawMessage is re-exported so callers never import encoding/json directly.
type RawMessage = stdjson.RawMessage

var api = sonic.Config{
	EscapeHTML:       false,
	SortMapKeys:      true,
	UseInt64:         true,
	CopyString:       true,
	ValidateString:   true,
	NoNullSliceOrMap: false,
}.Froze()

func Marshal(v any) ([]byte, error) { return api.Marshal(v) }

func Unmarshal(data []byte, v any) error { return api.Unmarshal(data, v) }

func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return api.MarshalIndent(v, prefix, indent)
}

// Valid reports whether data is a syntactically valid JSON document.
func Valid(data []byte) bool { return api.Valid(data) }
