package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Semkufu95/confessions/internal/bus"
	"github.com/Semkufu95/confessions/internal/fakeapi"
	"github.com/Semkufu95/confessions/internal/model"
	"github.com/Semkufu95/confessions/internal/realtime"
	"github.com/Semkufu95/confessions/internal/store"
	"github.com/Semkufu95/confessions/internal/store/sqlite"
)

var errBoom = errors.New("boom")

type stubConfessions struct {
	mu     sync.Mutex
	list   []model.Confession
	fail   error
	getAll func(ctx context.Context) ([]model.Confession, error)
	star   func(ctx context.Context, id string) (model.Confession, error)
	react  func(ctx context.Context, id string, rt model.ReactionType) (model.Confession, error)
	calls  atomic.Int32
}

func (s *stubConfessions) GetAll(ctx context.Context) ([]model.Confession, error) {
	s.calls.Add(1)
	if s.getAll != nil {
		return s.getAll(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	return cloneConfessions(s.list), nil
}

func (s *stubConfessions) find(id string) (model.Confession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return model.Confession{}, s.fail
	}
	for _, c := range s.list {
		if c.ID == id {
			return c.Clone(), nil
		}
	}
	return model.Confession{}, errors.New("not found")
}

func (s *stubConfessions) GetWithComments(ctx context.Context, id string) (model.Confession, error) {
	return s.find(id)
}

func (s *stubConfessions) Create(ctx context.Context, content string, category model.Category, anonymous bool) (model.Confession, error) {
	return model.Confession{ID: "new", Content: content, Category: category}, nil
}

func (s *stubConfessions) Star(ctx context.Context, id string) (model.Confession, error) {
	if s.star != nil {
		return s.star(ctx, id)
	}
	c, err := s.find(id)
	c.Stars = 7
	return c, err
}

func (s *stubConfessions) React(ctx context.Context, id string, t model.ReactionType) (model.Confession, error) {
	if s.react != nil {
		return s.react(ctx, id, t)
	}
	c, err := s.find(id)
	if t == model.ReactionLike {
		c.Likes = 10
	} else {
		c.Boos = 10
	}
	return c, err
}

func (s *stubConfessions) Comment(ctx context.Context, confessionID, content string) (model.Comment, error) {
	if _, err := s.find(confessionID); err != nil {
		return model.Comment{}, err
	}
	return model.Comment{ID: "cm-new", Content: content}, nil
}

func (s *stubConfessions) ReactComment(ctx context.Context, commentID string, t model.ReactionType) (model.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return model.Comment{}, s.fail
	}
	return model.Comment{ID: commentID, Likes: 3}, nil
}

func (s *stubConfessions) setFail(err error) {
	s.mu.Lock()
	s.fail = err
	s.mu.Unlock()
}

type stubConnections struct {
	list    []model.Connection
	friends model.FriendsOverview
	fail    error
}

func (s *stubConnections) GetAll(ctx context.Context) ([]model.Connection, error) {
	return s.list, s.fail
}

func (s *stubConnections) Create(ctx context.Context, in model.CreateConnectionInput) (model.Connection, error) {
	return model.Connection{ID: "conn-new", Title: in.Title}, s.fail
}

func (s *stubConnections) GetMyFriends(ctx context.Context) (model.FriendsOverview, error) {
	return s.friends, s.fail
}

func (s *stubConnections) RespondToFriendRequest(ctx context.Context, requestID string, action model.RequestAction) (model.ConnectionRequestResult, error) {
	if action == model.ActionAccept {
		return model.ConnectionRequestResult{Status: "accepted", Message: "Request accepted"}, s.fail
	}
	return model.ConnectionRequestResult{Status: "declined", Message: "Request declined"}, s.fail
}

func seedList() []model.Confession {
	return []model.Confession{
		{ID: "c1", Content: "first", Likes: 1, Comments: []model.Comment{{ID: "cm1", Content: "hey"}}, CommentsCount: 1},
		{ID: "c2", Content: "second", Stars: 2},
	}
}

func openLocal(t *testing.T) *store.Local {
	t.Helper()
	kv, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	return store.NewLocal(kv)
}

func newState(t *testing.T, deps Deps) *State {
	t.Helper()
	if deps.Confessions == nil {
		deps.Confessions = &stubConfessions{list: seedList()}
	}
	if deps.Connections == nil {
		deps.Connections = &stubConnections{}
	}
	if deps.Local == nil {
		deps.Local = openLocal(t)
	}
	if deps.Bus == nil {
		deps.Bus = bus.New()
	}
	if deps.RefreshWindow == 0 {
		deps.RefreshWindow = 10 * time.Millisecond
	}
	if deps.NotificationTTL == 0 {
		deps.NotificationTTL = time.Minute
	}
	s := New(deps)
	t.Cleanup(s.Close)
	return s
}

func TestStartLoadsPersistedState(t *testing.T) {
	ctx := context.Background()
	local := openLocal(t)
	require.NoError(t, local.SetDarkMode(ctx, true))
	_, err := local.AddStarredID(ctx, "c2")
	require.NoError(t, err)

	s := newState(t, Deps{Local: local})
	require.NoError(t, s.Start(ctx))

	assert.True(t, s.DarkMode())
	list := s.Confessions()
	require.Len(t, list, 2)
	assert.False(t, list[0].IsStarred)
	assert.True(t, list[1].IsStarred)
	assert.Equal(t, []string{"c2"}, s.StarredIDs())
	require.Len(t, s.StarredConfessions(), 1)
	assert.False(t, s.Loading())

	assert.Error(t, s.Start(ctx), "second start")
}

func TestRefreshKeepsReactionFlags(t *testing.T) {
	ctx := context.Background()
	s := newState(t, Deps{})
	require.NoError(t, s.RefreshConfessions(ctx))
	require.NoError(t, s.ToggleLike(ctx, "c1", model.ReactionLike))

	require.NoError(t, s.RefreshConfessions(ctx))
	list := s.Confessions()
	assert.True(t, list[0].IsLiked)
	assert.False(t, list[0].IsBooed)
	assert.Equal(t, 1, list[0].Likes, "server counts win on refresh")
	assert.False(t, list[1].IsLiked)
}

func TestToggleStarTwiceKeepsSingleID(t *testing.T) {
	ctx := context.Background()
	local := openLocal(t)
	s := newState(t, Deps{Local: local})
	require.NoError(t, s.RefreshConfessions(ctx))

	require.NoError(t, s.ToggleStar(ctx, "c1"))
	require.NoError(t, s.ToggleStar(ctx, "c1"))

	assert.Equal(t, []string{"c1"}, s.StarredIDs())
	persisted, err := local.StarredIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, persisted)

	c := s.Confessions()[0]
	assert.True(t, c.IsStarred)
	assert.Equal(t, 7, c.Stars)
	assert.False(t, s.Pending("c1"))
}

func TestToggleStarRollsBack(t *testing.T) {
	ctx := context.Background()
	api := &stubConfessions{list: seedList()}
	s := newState(t, Deps{Confessions: api})
	require.NoError(t, s.RefreshConfessions(ctx))
	api.setFail(errBoom)

	require.ErrorIs(t, s.ToggleStar(ctx, "c2"), errBoom)
	c := s.Confessions()[1]
	assert.False(t, c.IsStarred)
	assert.Equal(t, 2, c.Stars)
	assert.Empty(t, s.StarredIDs())
}

func TestToggleLikeRollsBack(t *testing.T) {
	ctx := context.Background()
	api := &stubConfessions{list: seedList()}
	s := newState(t, Deps{Confessions: api})
	require.NoError(t, s.RefreshConfessions(ctx))
	api.setFail(errBoom)

	require.ErrorIs(t, s.ToggleLike(ctx, "c1", model.ReactionBoo), errBoom)
	c := s.Confessions()[0]
	assert.Equal(t, 1, c.Likes)
	assert.Equal(t, 0, c.Boos)
	assert.False(t, c.IsBooed)
	assert.False(t, s.Pending("c1"))
}

func TestOverlappingLikeFailuresRestoreBaseline(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	var entered atomic.Int32
	api := &stubConfessions{list: seedList()}
	api.react = func(ctx context.Context, id string, rt model.ReactionType) (model.Confession, error) {
		entered.Add(1)
		<-release
		return model.Confession{}, errBoom
	}
	s := newState(t, Deps{Confessions: api})
	require.NoError(t, s.RefreshConfessions(ctx))

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() { errs <- s.ToggleLike(ctx, "c1", model.ReactionLike) }()
	}
	require.Eventually(t, func() bool { return entered.Load() == 2 }, time.Second, time.Millisecond)
	assert.True(t, s.Pending("c1"))
	assert.Equal(t, 2, s.Confessions()[0].Likes)

	close(release)
	require.ErrorIs(t, <-errs, errBoom)
	require.ErrorIs(t, <-errs, errBoom)

	c := s.Confessions()[0]
	assert.Equal(t, 1, c.Likes)
	assert.False(t, c.IsLiked)
	assert.False(t, s.Pending("c1"))
}

func TestFailedStarKeepsConfirmedLike(t *testing.T) {
	ctx := context.Background()
	entered := make(chan struct{})
	release := make(chan struct{})
	api := &stubConfessions{list: seedList()}
	api.star = func(ctx context.Context, id string) (model.Confession, error) {
		close(entered)
		<-release
		return model.Confession{}, errBoom
	}
	s := newState(t, Deps{Confessions: api})
	require.NoError(t, s.RefreshConfessions(ctx))

	errc := make(chan error, 1)
	go func() { errc <- s.ToggleStar(ctx, "c1") }()
	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("star call not made")
	}

	require.NoError(t, s.ToggleLike(ctx, "c1", model.ReactionLike))
	close(release)
	require.ErrorIs(t, <-errc, errBoom)

	c := s.Confessions()[0]
	assert.Equal(t, 10, c.Likes, "server count from the like survives")
	assert.True(t, c.IsLiked)
	assert.Equal(t, 0, c.Stars)
	assert.False(t, c.IsStarred)
	assert.Empty(t, s.StarredIDs())
	assert.False(t, s.Pending("c1"))
}

func TestToggleLikeSwitchesReaction(t *testing.T) {
	ctx := context.Background()
	s := newState(t, Deps{})
	require.NoError(t, s.RefreshConfessions(ctx))

	require.NoError(t, s.ToggleLike(ctx, "c1", model.ReactionLike))
	require.NoError(t, s.ToggleLike(ctx, "c1", model.ReactionBoo))
	c := s.Confessions()[0]
	assert.False(t, c.IsLiked)
	assert.True(t, c.IsBooed)
	assert.Equal(t, 10, c.Boos)

	assert.Error(t, s.ToggleLike(ctx, "c1", model.ReactionType("meh")))
}

func TestToggleCommentLike(t *testing.T) {
	ctx := context.Background()
	api := &stubConfessions{list: seedList()}
	s := newState(t, Deps{Confessions: api})
	require.NoError(t, s.RefreshConfessions(ctx))

	require.NoError(t, s.ToggleCommentLike(ctx, "c1", "cm1", model.ReactionLike))
	cm := s.Confessions()[0].Comments[0]
	assert.True(t, cm.IsLiked)
	assert.Equal(t, 3, cm.Likes)

	api.setFail(errBoom)
	require.ErrorIs(t, s.ToggleCommentLike(ctx, "c1", "cm1", model.ReactionBoo), errBoom)
	cm = s.Confessions()[0].Comments[0]
	assert.True(t, cm.IsLiked)
	assert.False(t, cm.IsBooed)
	assert.Equal(t, 3, cm.Likes)
}

func TestAddConfessionAndComment(t *testing.T) {
	ctx := context.Background()
	s := newState(t, Deps{})
	require.NoError(t, s.RefreshConfessions(ctx))

	created, err := s.AddConfession(ctx, "hello", model.CategoryWork, true)
	require.NoError(t, err)
	assert.Equal(t, "new", created.ID)
	assert.Equal(t, "new", s.Confessions()[0].ID)

	_, err = s.AddComment(ctx, "c1", "reply")
	require.NoError(t, err)
	c1 := s.Confessions()[1]
	assert.Equal(t, 2, c1.CommentsCount)
	require.Len(t, c1.Comments, 2)
	assert.Equal(t, "cm-new", c1.Comments[0].ID)
}

func TestGetConfessionByIDKeepsFlags(t *testing.T) {
	ctx := context.Background()
	s := newState(t, Deps{})
	require.NoError(t, s.RefreshConfessions(ctx))
	require.NoError(t, s.ToggleLike(ctx, "c1", model.ReactionLike))
	require.NoError(t, s.ToggleCommentLike(ctx, "c1", "cm1", model.ReactionLike))

	got, err := s.GetConfessionByID(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, got.IsLiked)
	assert.True(t, got.Comments[0].IsLiked)

	_, err = s.GetConfessionByID(ctx, "missing")
	assert.Error(t, err)
}

func TestStaleRefreshIsDiscarded(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	api := &stubConfessions{}
	api.getAll = func(ctx context.Context) ([]model.Confession, error) {
		if api.calls.Load() == 1 {
			<-release
			return []model.Confession{{ID: "old"}}, nil
		}
		return []model.Confession{{ID: "fresh"}}, nil
	}
	s := newState(t, Deps{Confessions: api})

	done := make(chan error, 1)
	go func() { done <- s.RefreshConfessions(ctx) }()
	require.Eventually(t, func() bool { return api.calls.Load() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, s.RefreshConfessions(ctx))
	close(release)
	require.NoError(t, <-done)

	list := s.Confessions()
	require.Len(t, list, 1)
	assert.Equal(t, "fresh", list[0].ID)
	assert.False(t, s.Loading())
}

func TestStaleRefreshFailureIsReturned(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	api := &stubConfessions{}
	api.getAll = func(ctx context.Context) ([]model.Confession, error) {
		if api.calls.Load() == 1 {
			<-release
			return nil, errBoom
		}
		return []model.Confession{{ID: "fresh"}}, nil
	}
	s := newState(t, Deps{Confessions: api})

	done := make(chan error, 1)
	go func() { done <- s.RefreshConfessions(ctx) }()
	require.Eventually(t, func() bool { return api.calls.Load() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, s.RefreshConfessions(ctx))
	close(release)
	require.ErrorIs(t, <-done, errBoom)

	list := s.Confessions()
	require.Len(t, list, 1)
	assert.Equal(t, "fresh", list[0].ID)
	assert.Empty(t, s.ConfessionsError())
}

func TestRefreshFailureKeepsList(t *testing.T) {
	ctx := context.Background()
	api := &stubConfessions{list: seedList()}
	s := newState(t, Deps{Confessions: api})
	require.NoError(t, s.RefreshConfessions(ctx))

	api.setFail(errBoom)
	require.ErrorIs(t, s.RefreshConfessions(ctx), errBoom)
	assert.Equal(t, ConfessionsLoadError, s.ConfessionsError())
	assert.Len(t, s.Confessions(), 2)

	api.setFail(nil)
	require.NoError(t, s.RefreshConfessions(ctx))
	assert.Empty(t, s.ConfessionsError())
}

func TestConnectionsAndFriends(t *testing.T) {
	ctx := context.Background()
	conns := &stubConnections{
		list: []model.Connection{{ID: "k1", Title: "Coffee"}},
		friends: model.FriendsOverview{
			Friends: []model.FriendFollower{{SenderID: "u2", Username: "zed"}},
			Pending: []model.FriendRequestInboxItem{{RequestID: "r1", Status: model.RequestPending}},
		},
	}
	b := bus.New()
	s := newState(t, Deps{Connections: conns, Bus: b})
	require.NoError(t, s.Start(ctx))
	require.Len(t, s.Connections(), 1)

	_, err := s.AddConnection(ctx, model.CreateConnectionInput{Title: "Tea"})
	require.NoError(t, err)
	assert.Equal(t, "conn-new", s.Connections()[0].ID)

	ov, err := s.RefreshFriends(ctx)
	require.NoError(t, err)
	require.Len(t, ov.Friends, 1)

	res, err := s.RespondToFriendRequest(ctx, "r1", model.ActionDecline)
	require.NoError(t, err)
	assert.Equal(t, "declined", res.Status)
	assert.Equal(t, model.RequestDeclined, s.Friends().Pending[0].Status)

	conns.fail = errBoom
	_, err = s.RefreshFriends(ctx)
	require.Error(t, err)
	assert.Len(t, s.Friends().Friends, 1, "kept on failure")

	require.Error(t, s.RefreshConnections(ctx))
	assert.Empty(t, s.Connections())

	b.Publish(bus.TopicLogout)
	assert.Empty(t, s.Friends().Friends)
	assert.Empty(t, s.Friends().Pending)
}

func TestToggleDarkModePersists(t *testing.T) {
	ctx := context.Background()
	local := openLocal(t)
	s := newState(t, Deps{Local: local})

	on, err := s.ToggleDarkMode(ctx)
	require.NoError(t, err)
	assert.True(t, on)
	stored, err := local.DarkMode(ctx)
	require.NoError(t, err)
	assert.True(t, stored)

	on, err = s.ToggleDarkMode(ctx)
	require.NoError(t, err)
	assert.False(t, on)
}

func TestRealtimeRefreshAndNotifications(t *testing.T) {
	fake := fakeapi.New()
	srv := httptest.NewServer(fake)
	defer srv.Close()

	api := &stubConfessions{list: seedList()}
	var changes atomic.Int32
	s := newState(t, Deps{
		Confessions:      api,
		WebSocketURL:     "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		Reconnect:        20 * time.Millisecond,
		MaxNotifications: 4,
		RefreshWindow:    30 * time.Millisecond,
		OnChange:         func() { changes.Add(1) },
	})
	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return fake.Online() == 1 }, 2*time.Second, 5*time.Millisecond)
	require.EqualValues(t, 1, api.calls.Load())

	for i := 0; i < 3; i++ {
		require.NoError(t, fake.Broadcast(realtime.ConfessionCreated, map[string]any{"id": "x", "content": "new one"}))
	}
	require.NoError(t, fake.Broadcast(realtime.ConfessionStarred, map[string]any{"id": "x"}))

	require.Eventually(t, func() bool { return api.calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(s.Notifications()) == 3 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.LessOrEqual(t, api.calls.Load(), int32(3), "burst coalesced")

	for i := 0; i < 3; i++ {
		require.NoError(t, fake.Broadcast(realtime.CommentCreated, map[string]any{"id": "y", "confession_id": "c1", "content": "hi"}))
	}
	require.Eventually(t, func() bool {
		comments := 0
		for _, n := range s.Notifications() {
			if n.Title == "New comment" {
				comments++
			}
		}
		return comments == 3
	}, 2*time.Second, 5*time.Millisecond)
	items := s.Notifications()
	require.Len(t, items, 4)
	assert.Equal(t, "New confession", items[3].Title)

	s.DismissNotification(s.Notifications()[0].ID)
	assert.Len(t, s.Notifications(), 3)
	assert.Positive(t, changes.Load())

	s.Close()
	s.Close()
	require.Eventually(t, func() bool { return fake.Online() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestCloseDuringStartSkipsListener(t *testing.T) {
	fake := fakeapi.New()
	srv := httptest.NewServer(fake)
	defer srv.Close()

	release := make(chan struct{})
	api := &stubConfessions{}
	api.getAll = func(ctx context.Context) ([]model.Confession, error) {
		<-release
		return seedList(), nil
	}
	s := newState(t, Deps{
		Confessions:  api,
		WebSocketURL: "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
	})

	started := make(chan error, 1)
	go func() { started <- s.Start(context.Background()) }()
	require.Eventually(t, func() bool { return api.calls.Load() == 1 }, time.Second, time.Millisecond)

	s.Close()
	close(release)
	require.NoError(t, <-started)

	assert.Never(t, func() bool { return fake.Online() > 0 }, 100*time.Millisecond, 5*time.Millisecond)
	s.mu.RLock()
	assert.Nil(t, s.listener)
	s.mu.RUnlock()
	assert.ErrorContains(t, s.Start(context.Background()), "closed")
}

func TestListenerUsesStoredToken(t *testing.T) {
	ctx := context.Background()
	auth := make(chan string, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case auth <- r.Header.Get("Authorization"):
		default:
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	local := openLocal(t)
	require.NoError(t, local.SetToken(ctx, "tok-123"))
	s := newState(t, Deps{Local: local, WebSocketURL: "ws" + strings.TrimPrefix(srv.URL, "http")})
	require.NoError(t, s.Start(ctx))

	select {
	case got := <-auth:
		assert.Equal(t, "Bearer tok-123", got)
	case <-time.After(2 * time.Second):
		t.Fatal("listener never dialed")
	}
	s.Close()
}
