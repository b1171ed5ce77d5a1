package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Store persists artifacts by key. Get returns ErrNotFound (possibly wrapped)
// when nothing is stored for the key.
type Store interface {
	Get(ctx context.Context, key Key) ([]byte, error)
	Put(ctx context.Context, key Key, data []byte) error
	Delete(ctx context.Context, key Key) error
	Close() error
}

// IsNotFound reports whether err is a cache miss
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// GetJSON loads and decodes a JSON artifact into v.
// It returns (false, nil) on a cache miss.
func GetJSON(ctx context.Context, s Store, key Key, v any) (bool, error) {
	data, err := s.Get(ctx, key)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, &OpError{Op: "decode", Key: key, Cause: err}
	}
	return true, nil
}

// PutJSON encodes v as indented JSON and stores it.
// The encoding is deterministic for identical values.
func PutJSON(ctx context.Context, s Store, key Key, v any) error {
	data, err := MarshalArtifact(v)
	if err != nil {
		return &OpError{Op: "encode", Key: key, Cause: err}
	}
	return s.Put(ctx, key, data)
}

// MarshalArtifact returns the canonical encoding used for JSON artifacts
func MarshalArtifact(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal artifact: %w", err)
	}
	return append(data, '\n'), nil
}
