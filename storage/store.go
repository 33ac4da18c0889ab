// Package storage provides the key-value preference store widgets persist
// small blobs through: theme mode, collapse flags, chat transcripts. A
// backend fault never surfaces to the user; the Fallback wrapper silently
// degrades to an in-memory stand-in for the remainder of the process.
package storage

import (
	"context"
	"encoding/json"

	"github.com/milodocs/pagekit/errors"
)

// Store is the key-value abstraction. Values are opaque blobs; callers that
// persist structures use the JSON helpers and tolerate absent or malformed
// entries by falling back to defaults.
type Store interface {
	// Get returns the value for a key, or errors.ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put creates or replaces a key.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys returns all keys with the given prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases backend resources.
	Close() error
}

// GetJSON reads a key and unmarshals it into out. Absent keys return
// errors.ErrKeyNotFound; malformed blobs return an invalid error. Callers
// treat both as "use defaults".
func GetJSON(ctx context.Context, s Store, key string, out any) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.WrapInvalid(err, "Store", "GetJSON", "decode "+key)
	}
	return nil
}

// PutJSON marshals v and writes it under key.
func PutJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.WrapInvalid(err, "Store", "PutJSON", "encode "+key)
	}
	return s.Put(ctx, key, data)
}
