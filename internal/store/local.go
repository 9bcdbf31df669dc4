package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Semkufu95/confessions/internal/model"
)

// DefaultNotificationChannels is used when no allow-list is stored.
var DefaultNotificationChannels = []string{
	"confessions:confession:created",
	"confessions:comment:created",
}

// Local exposes the typed client state kept in a KV.
type Local struct {
	kv KV

	// serializes read-modify-write of list values
	mu sync.Mutex
}

func NewLocal(kv KV) *Local {
	return &Local{kv: kv}
}

func (l *Local) Token(ctx context.Context) (string, error) {
	return l.optional(ctx, KeyToken)
}

func (l *Local) SetToken(ctx context.Context, token string) error {
	return l.kv.Set(ctx, KeyToken, token)
}

// User returns the stored profile snapshot, or nil when none is stored.
func (l *Local) User(ctx context.Context) (*model.User, error) {
	raw, err := l.optional(ctx, KeyUser)
	if err != nil || raw == "" {
		return nil, err
	}
	var u model.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, nil
	}
	return &u, nil
}

func (l *Local) SetUser(ctx context.Context, u model.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return l.kv.Set(ctx, KeyUser, string(data))
}

// ClearAuth removes the stored token and user snapshot.
func (l *Local) ClearAuth(ctx context.Context) error {
	return l.kv.Delete(ctx, KeyToken, KeyUser)
}

func (l *Local) DarkMode(ctx context.Context) (bool, error) {
	raw, err := l.optional(ctx, KeyDarkMode)
	if err != nil || raw == "" {
		return false, err
	}
	var v bool
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return false, nil
	}
	return v, nil
}

func (l *Local) SetDarkMode(ctx context.Context, on bool) error {
	data, _ := json.Marshal(on)
	return l.kv.Set(ctx, KeyDarkMode, string(data))
}

func (l *Local) StarredIDs(ctx context.Context) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.starredLocked(ctx)
}

// AddStarredID appends id to the starred set unless already present and
// returns the resulting set.
func (l *Local) AddStarredID(ctx context.Context, id string) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids, err := l.starredLocked(ctx)
	if err != nil {
		return nil, err
	}
	for _, existing := range ids {
		if existing == id {
			return ids, nil
		}
	}
	ids = append(ids, id)
	data, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}
	if err := l.kv.Set(ctx, KeyStarredConfessionIDs, string(data)); err != nil {
		return nil, fmt.Errorf("save starred ids: %w", err)
	}
	return ids, nil
}

func (l *Local) starredLocked(ctx context.Context) ([]string, error) {
	raw, err := l.optional(ctx, KeyStarredConfessionIDs)
	if err != nil {
		return nil, err
	}
	return decodeStrings(raw), nil
}

// NotificationChannels returns the realtime channel allow-list, falling back
// to the defaults when nothing usable is stored.
func (l *Local) NotificationChannels(ctx context.Context) ([]string, error) {
	raw, err := l.optional(ctx, KeyNotificationChannels)
	if err != nil {
		return nil, err
	}
	if channels := decodeStrings(raw); len(channels) > 0 {
		return channels, nil
	}
	return append([]string(nil), DefaultNotificationChannels...), nil
}

func (l *Local) SetNotificationChannels(ctx context.Context, channels []string) error {
	clean := make([]string, 0, len(channels))
	for _, ch := range channels {
		if ch = strings.TrimSpace(ch); ch != "" {
			clean = append(clean, ch)
		}
	}
	data, err := json.Marshal(clean)
	if err != nil {
		return err
	}
	return l.kv.Set(ctx, KeyNotificationChannels, string(data))
}

func (l *Local) optional(ctx context.Context, key string) (string, error) {
	v, err := l.kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return v, err
}

// decodeStrings reads a JSON array and keeps its non-blank, unique strings.
func decodeStrings(raw string) []string {
	if raw == "" {
		return []string{}
	}
	var items []any
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return []string{}
	}
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok || strings.TrimSpace(s) == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
