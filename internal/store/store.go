// Package store persists small string values across process restarts.
//
// The session manager keeps the signed-in user and token here. Backends
// must apply SetMany and Delete to all given keys together, so that a
// reader never sees one half of a pair.
package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("key not found")
	ErrStorage  = errors.New("storage failure")
)

type Store interface {
	// Get returns ErrNotFound when key is absent.
	Get(ctx context.Context, key string) (string, error)
	SetMany(ctx context.Context, entries map[string]string) error
	// Delete removes keys; absent keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}
