// Package app owns the client's working set: confessions, connections,
// friends, the starred set, the dark-mode flag and live notifications.
// All mutation goes through State's methods.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Semkufu95/confessions/internal/bus"
	"github.com/Semkufu95/confessions/internal/model"
	"github.com/Semkufu95/confessions/internal/notify"
	"github.com/Semkufu95/confessions/internal/rate"
	"github.com/Semkufu95/confessions/internal/realtime"
	"github.com/Semkufu95/confessions/internal/store"
)

const ConfessionsLoadError = "Could not load confessions. Please try again."

// backgroundTimeout bounds refreshes that no caller is waiting on.
const backgroundTimeout = 30 * time.Second

type ConfessionAPI interface {
	GetAll(ctx context.Context) ([]model.Confession, error)
	GetWithComments(ctx context.Context, id string) (model.Confession, error)
	Create(ctx context.Context, content string, category model.Category, anonymous bool) (model.Confession, error)
	Star(ctx context.Context, id string) (model.Confession, error)
	React(ctx context.Context, id string, t model.ReactionType) (model.Confession, error)
	Comment(ctx context.Context, confessionID, content string) (model.Comment, error)
	ReactComment(ctx context.Context, commentID string, t model.ReactionType) (model.Comment, error)
}

type ConnectionAPI interface {
	GetAll(ctx context.Context) ([]model.Connection, error)
	Create(ctx context.Context, in model.CreateConnectionInput) (model.Connection, error)
	GetMyFriends(ctx context.Context) (model.FriendsOverview, error)
	RespondToFriendRequest(ctx context.Context, requestID string, action model.RequestAction) (model.ConnectionRequestResult, error)
}

type Deps struct {
	Confessions ConfessionAPI
	Connections ConnectionAPI
	Local       *store.Local
	Bus         *bus.Bus

	// WebSocketURL enables the realtime listener when non-empty.
	WebSocketURL string
	Reconnect    time.Duration
	Metrics      *realtime.Metrics

	MaxNotifications int
	NotificationTTL  time.Duration
	RefreshWindow    time.Duration

	Logger *slog.Logger

	// OnChange is called, outside any lock, after state changes.
	OnChange func()
}

type State struct {
	deps Deps
	log  *slog.Logger

	queue     *notify.Queue
	refresher *rate.Coalescer

	mu             sync.RWMutex
	confessions    []model.Confession
	connections    []model.Connection
	friends        model.FriendsOverview
	starred        []string
	darkMode       bool
	loadingCount   int
	confessionsErr string
	pending        map[string]*inflight
	issuedSeq      uint64
	appliedSeq     uint64
	policy         *notify.Policy

	started     bool
	closed      bool
	listener    *realtime.Listener
	stopListen  context.CancelFunc
	listenDone  chan struct{}
	unsubscribe func()
}

func New(deps Deps) *State {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	s := &State{
		deps:    deps,
		log:     log,
		pending: make(map[string]*inflight),
		friends: emptyFriends(),
	}
	s.queue = notify.NewQueue(deps.MaxNotifications, deps.NotificationTTL,
		notify.OnChange(func([]model.Notification) { s.changed() }))
	s.refresher = rate.NewCoalescer(deps.RefreshWindow, s.backgroundRefresh)
	s.policy = notify.NewPolicy(s.queue, store.DefaultNotificationChannels)
	return s
}

// Start loads persisted state, fetches the initial working set and opens the
// realtime listener. Fetch failures are logged; only storage errors are
// returned.
func (s *State) Start(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return fmt.Errorf("app: state is closed")
	case s.started:
		s.mu.Unlock()
		return fmt.Errorf("app: state already started")
	}
	s.started = true
	s.mu.Unlock()

	dark, err := s.deps.Local.DarkMode(ctx)
	if err != nil {
		return fmt.Errorf("load dark mode: %w", err)
	}
	starred, err := s.deps.Local.StarredIDs(ctx)
	if err != nil {
		return fmt.Errorf("load starred ids: %w", err)
	}
	channels, err := s.deps.Local.NotificationChannels(ctx)
	if err != nil {
		return fmt.Errorf("load notification channels: %w", err)
	}
	token, err := s.deps.Local.Token(ctx)
	if err != nil {
		return fmt.Errorf("load token: %w", err)
	}

	s.mu.Lock()
	s.darkMode = dark
	s.starred = starred
	s.policy = notify.NewPolicy(s.queue, channels)
	s.mu.Unlock()

	if s.deps.Bus != nil {
		unsubscribe := s.deps.Bus.Subscribe(bus.TopicLogout, s.onLogout)
		s.mu.Lock()
		closed := s.closed
		if !closed {
			s.unsubscribe = unsubscribe
		}
		s.mu.Unlock()
		if closed {
			unsubscribe()
		}
	}

	if err := s.RefreshConfessions(ctx); err != nil {
		s.log.Warn("initial confessions refresh", "error", err)
	}
	if err := s.RefreshConnections(ctx); err != nil {
		s.log.Warn("initial connections refresh", "error", err)
	}

	if s.deps.WebSocketURL != "" {
		s.startListener(token)
	}
	s.changed()
	return nil
}

// startListener opens the socket unless Close already ran. A non-empty token
// is sent as a bearer credential on the upgrade request.
func (s *State) startListener(token string) {
	opts := []realtime.Option{realtime.WithLogger(s.log), realtime.WithReconnect(s.deps.Reconnect)}
	if s.deps.Metrics != nil {
		opts = append(opts, realtime.WithMetrics(s.deps.Metrics))
	}
	if token != "" {
		opts = append(opts, realtime.WithHeader(http.Header{"Authorization": {"Bearer " + token}}))
	}
	l := realtime.NewListener(s.deps.WebSocketURL, s.handleEvent, opts...)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		return
	}
	s.listener, s.stopListen, s.listenDone = l, cancel, done
	s.mu.Unlock()

	go func() {
		defer close(done)
		if err := l.Run(ctx); err != nil {
			s.log.Warn("realtime unavailable", "url", s.deps.WebSocketURL, "error", err)
		}
	}()
}

// Close stops timers, the refresh coalescer and the socket. HTTP calls
// already in flight are left to finish.
func (s *State) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	stop, done, l, unsubscribe := s.stopListen, s.listenDone, s.listener, s.unsubscribe
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	s.refresher.Close()
	s.queue.Close()
	if l != nil {
		_ = l.Close()
		stop()
		<-done
	}
}

// handleEvent runs for every decoded realtime frame.
func (s *State) handleEvent(ev realtime.Event) {
	s.log.Debug("realtime event", "channel", ev.Channel)
	s.refresher.Trigger()

	s.mu.RLock()
	policy := s.policy
	s.mu.RUnlock()
	policy.Handle(ev)
}

func (s *State) backgroundRefresh() {
	ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
	defer cancel()
	if err := s.RefreshConfessions(ctx); err != nil {
		s.log.Warn("background refresh", "error", err)
	}
}

func (s *State) onLogout() {
	s.mu.Lock()
	s.friends = emptyFriends()
	s.mu.Unlock()
	s.changed()
}

func (s *State) changed() {
	if s.deps.OnChange != nil {
		s.deps.OnChange()
	}
}

func (s *State) DismissNotification(id string) {
	s.queue.Dismiss(id)
}

// ToggleDarkMode flips and persists the preference, returning the new value.
func (s *State) ToggleDarkMode(ctx context.Context) (bool, error) {
	s.mu.Lock()
	next := !s.darkMode
	s.darkMode = next
	s.mu.Unlock()

	if err := s.deps.Local.SetDarkMode(ctx, next); err != nil {
		return next, fmt.Errorf("save dark mode: %w", err)
	}
	s.changed()
	return next, nil
}

func (s *State) Confessions() []model.Confession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneConfessions(s.confessions)
}

// StarredConfessions returns the loaded confessions in the starred set, in
// list order.
func (s *State) StarredConfessions() []model.Confession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Confession
	for _, c := range s.confessions {
		if contains(s.starred, c.ID) {
			out = append(out, c.Clone())
		}
	}
	return out
}

func (s *State) StarredIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.starred...)
}

func (s *State) Connections() []model.Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Connection, len(s.connections))
	for i, c := range s.connections {
		c.Interests = append([]string(nil), c.Interests...)
		out[i] = c
	}
	return out
}

func (s *State) Friends() model.FriendsOverview {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.FriendsOverview{
		Friends: append([]model.FriendFollower{}, s.friends.Friends...),
		Pending: append([]model.FriendRequestInboxItem{}, s.friends.Pending...),
	}
}

func (s *State) Notifications() []model.Notification {
	return s.queue.Items()
}

func (s *State) DarkMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.darkMode
}

func (s *State) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadingCount > 0
}

// ConfessionsError is the message from the last failed list refresh, or "".
func (s *State) ConfessionsError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.confessionsErr
}

// Pending reports whether a reaction or star on the confession or comment
// with this id is awaiting the server.
func (s *State) Pending(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e := s.pending[id]
	return e != nil && e.count > 0
}

func emptyFriends() model.FriendsOverview {
	return model.FriendsOverview{
		Friends: []model.FriendFollower{},
		Pending: []model.FriendRequestInboxItem{},
	}
}

func cloneConfessions(in []model.Confession) []model.Confession {
	out := make([]model.Confession, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
