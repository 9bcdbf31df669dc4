package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("not found")
)

// Keys persisted across restarts.
const (
	KeyToken                = "token"
	KeyUser                 = "user"
	KeyDarkMode             = "darkMode"
	KeyStarredConfessionIDs = "starredConfessionIds"
	KeyNotificationChannels = "realtimeNotificationChannels"
)

// KV is a durable string key/value store.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
