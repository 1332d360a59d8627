// Package store persists address records in a key-value backend.
package store

import (
	"context"
	"errors"
)

var (
	// ErrPersistence wraps every serialization or I/O failure of the record store.
	ErrPersistence = errors.New("persistence failure")
	// ErrNotConfigured is returned by a nil or closed backend.
	ErrNotConfigured = errors.New("storage is not configured")
)

// Backend is durable key-value storage of raw values.
type Backend interface {
	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// Get returns the value under key and whether it exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Keys lists every stored key in no particular order.
	Keys(ctx context.Context) ([]string, error)
	// MultiGet returns values in the order of keys; missing keys yield nil.
	MultiGet(ctx context.Context, keys []string) ([][]byte, error)
}
