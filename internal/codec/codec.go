// Package codec turns whole record collections into persisted bytes and back.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"fintrack/internal/core"
)

// Version of the JSON envelope written by JSON.
const Version = 1

// Codec serialises a whole collection. Encode must be deterministic for equal input.
type Codec[T any] interface {
	Encode(items []T) ([]byte, error)
	Decode(data []byte) ([]T, error)
}

// JSON stores a collection as {"version":1,"items":[...]}.
type JSON[T any] struct{}

type envelope[T any] struct {
	Version int `json:"version"`
	Items   []T `json:"items"`
}

func (JSON[T]) Encode(items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	b, err := json.Marshal(envelope[T]{Version: Version, Items: items})
	if err != nil {
		return nil, fmt.Errorf("encode collection: %w", err)
	}
	return b, nil
}

// Decode accepts empty input as an empty collection. Anything malformed is reported
// as core.ErrDecode.
func (JSON[T]) Decode(data []byte) ([]T, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []T{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var env envelope[T]
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrDecode, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after collection", core.ErrDecode)
	}
	if env.Version != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", core.ErrDecode, env.Version)
	}
	if env.Items == nil {
		env.Items = []T{}
	}
	return env.Items, nil
}
