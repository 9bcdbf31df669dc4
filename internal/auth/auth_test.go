package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Semkufu95/confessions/internal/bus"
	"github.com/Semkufu95/confessions/internal/model"
	"github.com/Semkufu95/confessions/internal/store"
	"github.com/Semkufu95/confessions/internal/store/sqlite"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "u1",
		"exp":     exp.Unix(),
	}).SignedString([]byte("not-the-server-secret"))
	require.NoError(t, err)
	return tok
}

func openLocal(t *testing.T, name string) *store.Local {
	t.Helper()
	st, err := sqlite.Open("file:" + name + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return store.NewLocal(st)
}

func TestSessionLoadsSnapshot(t *testing.T) {
	ctx := context.Background()
	local := openLocal(t, "auth_session_load")
	require.NoError(t, local.SetToken(ctx, signedToken(t, time.Now().Add(time.Hour))))
	require.NoError(t, local.SetUser(ctx, model.User{ID: "u1", Username: "ana"}))

	s := NewSession(local, nil, nil)
	_, ok := s.User()
	assert.False(t, ok)

	require.NoError(t, s.Load(ctx))
	u, ok := s.User()
	require.True(t, ok)
	assert.Equal(t, "ana", u.Username)
	assert.True(t, s.Authenticated())
	assert.Len(t, s.Fingerprint(), 12)
}

func TestSessionExpiredTokenIsSignedOut(t *testing.T) {
	s := NewSession(openLocal(t, "auth_session_expired"), nil, nil)
	s.Set(signedToken(t, time.Now().Add(-time.Minute)), model.User{ID: "u1"})

	assert.False(t, s.Authenticated())
	_, ok := s.User()
	assert.False(t, ok)

	exp, ok := s.ExpiresAt()
	require.True(t, ok)
	assert.True(t, exp.Before(time.Now()))
}

func TestSessionOpaqueTokenHasNoExpiry(t *testing.T) {
	s := NewSession(openLocal(t, "auth_session_opaque"), nil, nil)
	s.Set("opaque-session-token", model.User{ID: "u1"})
	assert.True(t, s.Authenticated())
	_, ok := s.ExpiresAt()
	assert.False(t, ok)
}

func TestSessionLogoutBroadcast(t *testing.T) {
	b := bus.New()
	s := NewSession(openLocal(t, "auth_session_logout"), b, nil)
	s.Set("tok", model.User{ID: "u1"})

	b.Publish(bus.TopicLogout)
	_, ok := s.User()
	assert.False(t, ok)
	assert.Empty(t, s.Fingerprint())

	s.Close()
	s.Set("tok", model.User{ID: "u1"})
	b.Publish(bus.TopicLogout)
	assert.True(t, s.Authenticated())
}

func TestTokenExpiry(t *testing.T) {
	_, ok := TokenExpiry("")
	assert.False(t, ok)
	_, ok = TokenExpiry("a.b.c")
	assert.False(t, ok)

	want := time.Now().Add(time.Hour).Truncate(time.Second)
	got, ok := TokenExpiry(signedToken(t, want))
	require.True(t, ok)
	assert.True(t, want.Equal(got))
}
