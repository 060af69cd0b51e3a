// Package state holds the durable key-value stores behind alert deduplication.
//
// A store maps string keys to presence. A store that does not exist yet reads as
// empty. Has followed by Put is a plain read-then-write: two processes racing on
// the same key can both see it as absent.
package state

import (
	"context"
	"errors"
	"fmt"
)

// Store is a durable set of string keys.
type Store interface {
	Has(ctx context.Context, key string) (bool, error)
	Put(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

// Deleter is implemented by stores that support pruning.
type Deleter interface {
	Delete(ctx context.Context, keys ...string) error
}

// ErrPersistence is matched by every PersistenceError.
var ErrPersistence = errors.New("persistence error")

// PersistenceError wraps a failure to read or write durable state.
type PersistenceError struct {
	Backend string
	Op      string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s store %s: %v", e.Backend, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

func persistErr(backend, op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Backend: backend, Op: op, Err: err}
}
