// Package snapshot stores serialized indexes under relative names in a local
// directory, memory or an object store.
package snapshot

import (
	"context"
	"encoding"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a named snapshot does not exist.
var ErrNotFound = errors.New("snapshot not found")

// Store persists opaque blobs by relative name.
type Store interface {
	// Put writes data under name, replacing any previous content.
	Put(ctx context.Context, name string, data []byte) error

	// Get reads the blob stored under name or returns ErrNotFound.
	Get(ctx context.Context, name string) ([]byte, error)

	// Delete removes name. Removing a missing name is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the sorted names starting with prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Save marshals m and stores it under name. It returns the stored size.
func Save(ctx context.Context, store Store, name string, m encoding.BinaryMarshaler) (int, error) {
	data, err := m.MarshalBinary()
	if err != nil {
		return 0, fmt.Errorf("snapshot: marshal %s: %w", name, err)
	}
	if err := store.Put(ctx, name, data); err != nil {
		return 0, fmt.Errorf("snapshot: put %s: %w", name, err)
	}
	return len(data), nil
}

// Load reads name and unmarshals it into u. It returns the stored size.
func Load(ctx context.Context, store Store, name string, u encoding.BinaryUnmarshaler) (int, error) {
	data, err := store.Get(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("snapshot: get %s: %w", name, err)
	}
	if err := u.UnmarshalBinary(data); err != nil {
		return 0, fmt.Errorf("snapshot: unmarshal %s: %w", name, err)
	}
	return len(data), nil
}
