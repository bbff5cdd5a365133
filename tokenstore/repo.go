// Package tokenstore holds custody of the current bearer token. It is the only
// package that reads or writes durable client storage; everything else obtains
// the token through a Store.
package tokenstore

import (
	"context"
	"errors"
)

// StorageKey is the fixed name the token is persisted under.
const StorageKey = "token"

var (
	ErrEmptyToken    = errors.New("token cannot be empty")
	ErrCorruptStore  = errors.New("token store corrupt")
	ErrDecryptFailed = errors.New("token decryption failed")
)

// Store is the durable key-value custody of the current token.
// Every call is atomic with respect to a single caller: a concurrent reader sees
// either the previous value or the new one, never a partial write.
// Readers must call Token for every use rather than caching the value.
type Store interface {
	// Token returns the persisted token. ok is false when no token is stored.
	Token(ctx context.Context) (token string, ok bool, err error)
	// SetToken replaces the persisted token.
	SetToken(ctx context.Context, token string) error
	// ClearToken removes the persisted token. Clearing an empty store is not an error.
	ClearToken(ctx context.Context) error
}
