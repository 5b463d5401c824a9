// Package kv provides the durable key-value storage the cart persists its
// state into. Implementations: Redis for shared terminals, File for a
// standalone terminal, Memory for tests.
package kv

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned by Get when the key has no stored value.
var ErrNotFound = errors.New("key not found")

// Store is a minimal durable key-value store. Writes are blocking local I/O
// with no partial-failure recovery; callers treat unreadable data as absent.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
