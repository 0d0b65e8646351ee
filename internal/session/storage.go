package session

import (
	"context"
	"errors"
)

// Storage persists raw identity records by session token.
type Storage interface {
	Get(ctx context.Context, token string) ([]byte, error)
	Set(ctx context.Context, token string, value []byte) error
	Delete(ctx context.Context, token string) error
}

var ErrNotFound = errors.New("session not found")
