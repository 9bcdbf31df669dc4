package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Semkufu95/confessions/internal/model"
	"github.com/Semkufu95/confessions/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_").Replace(t.Name())
	st, err := Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestKVLifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.Get(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, st.Set(ctx, "a", "1"))
	require.NoError(t, st.Set(ctx, "a", "2"))
	require.NoError(t, st.Set(ctx, "b", "3"))

	v, err := st.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "2", v)

	keys, err := st.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	require.NoError(t, st.Delete(ctx, "a", "b", "never-set"))
	keys, err = st.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestReopenKeepsValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	ctx := context.Background()

	st, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, st.Set(ctx, store.KeyDarkMode, "true"))
	require.NoError(t, st.Close())

	st, err = Open(path)
	require.NoError(t, err)
	defer st.Close()
	v, err := st.Get(ctx, store.KeyDarkMode)
	require.NoError(t, err)
	assert.Equal(t, "true", v)
}

func TestLocalStarredIDsAreDeduplicated(t *testing.T) {
	local := store.NewLocal(newTestStore(t))
	ctx := context.Background()

	ids, err := local.StarredIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = local.AddStarredID(ctx, "c1")
	require.NoError(t, err)
	ids, err = local.AddStarredID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, ids)

	_, err = local.AddStarredID(ctx, "c2")
	require.NoError(t, err)
	ids, err = local.StarredIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, ids)
}

func TestLocalAuthSnapshot(t *testing.T) {
	st := newTestStore(t)
	local := store.NewLocal(st)
	ctx := context.Background()

	u, err := local.User(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)

	require.NoError(t, local.SetToken(ctx, "tok"))
	require.NoError(t, local.SetUser(ctx, model.User{ID: "u1", Username: "sam"}))

	u, err = local.User(ctx)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "sam", u.Username)

	require.NoError(t, local.ClearAuth(ctx))
	tok, err := local.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)
	u, err = local.User(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestLocalNotificationChannels(t *testing.T) {
	st := newTestStore(t)
	local := store.NewLocal(st)
	ctx := context.Background()

	channels, err := local.NotificationChannels(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.DefaultNotificationChannels, channels)

	require.NoError(t, st.Set(ctx, store.KeyNotificationChannels, `["", 4, "confessions:confession:deleted"]`))
	channels, err = local.NotificationChannels(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"confessions:confession:deleted"}, channels)

	require.NoError(t, st.Set(ctx, store.KeyNotificationChannels, `not json`))
	channels, err = local.NotificationChannels(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.DefaultNotificationChannels, channels)

	require.NoError(t, local.SetNotificationChannels(ctx, []string{" "}))
	channels, err = local.NotificationChannels(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.DefaultNotificationChannels, channels)
}

func TestLocalDarkMode(t *testing.T) {
	local := store.NewLocal(newTestStore(t))
	ctx := context.Background()

	on, err := local.DarkMode(ctx)
	require.NoError(t, err)
	assert.False(t, on)

	require.NoError(t, local.SetDarkMode(ctx, true))
	on, err = local.DarkMode(ctx)
	require.NoError(t, err)
	assert.True(t, on)
}
