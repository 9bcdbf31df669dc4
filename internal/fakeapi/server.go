// Package fakeapi is an in-memory confessions backend. It serves the REST
// routes under /api and the realtime socket at /ws, with the same JSON
// shapes the production backend sends. Tests and the seed tool run against
// it through httptest or a local listener.
package fakeapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	tokenTTL          = 24 * time.Hour
	trendingThreshold = 10
)

type Server struct {
	secret []byte
	log    *slog.Logger
	now    func() time.Time

	upgrader websocket.Upgrader

	mu          sync.Mutex
	users       map[string]*user // by email
	usersByID   map[string]*user
	sessions    map[string]string // session id -> user id
	confessions []*confession     // newest first
	comments    map[string][]*comment
	reactions   map[string]string // entity:user -> like|boo
	stars       map[string]bool   // confession:user
	connections []*connection
	requests    []*friendRequest
	settings    map[string]settings
	contacts    []ContactMessage
	failures    []failure
	peakOnline  int

	wsMu    sync.Mutex
	sockets map[*websocket.Conn]struct{}
}

type failure struct {
	method string
	path   string
	status int
}

type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithSecret sets the HS256 signing key for access tokens.
func WithSecret(secret []byte) Option {
	return func(s *Server) { s.secret = secret }
}

func New(opts ...Option) *Server {
	s := &Server{
		secret:    []byte("fakeapi-secret"),
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:       time.Now,
		users:     make(map[string]*user),
		usersByID: make(map[string]*user),
		sessions:  make(map[string]string),
		comments:  make(map[string][]*comment),
		reactions: make(map[string]string),
		stars:     make(map[string]bool),
		settings:  make(map[string]settings),
		sockets:   make(map[*websocket.Conn]struct{}),
	}
	s.upgrader.CheckOrigin = func(*http.Request) bool { return true }
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/ws" {
		s.handleSocket(w, r)
		return
	}
	if !strings.HasPrefix(r.URL.Path, "/api/") {
		notFound(w)
		return
	}
	if status, ok := s.takeFailure(r.Method, strings.TrimPrefix(r.URL.Path, "/api")); ok {
		writeError(w, status, errors.New(http.StatusText(status)))
		return
	}
	s.handleAPI(w, r)
}

// FailNext makes the next request matching method and path (relative to
// /api, without trailing slash) fail with status.
func (s *Server) FailNext(method, path string, status int) {
	s.mu.Lock()
	s.failures = append(s.failures, failure{method: method, path: strings.TrimSuffix(path, "/"), status: status})
	s.mu.Unlock()
}

func (s *Server) takeFailure(method, path string) (int, bool) {
	path = strings.TrimSuffix(path, "/")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, f := range s.failures {
		if f.method == method && f.path == path {
			s.failures = append(s.failures[:i], s.failures[i+1:]...)
			return f.status, true
		}
	}
	return 0, false
}

func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api")
	segments := splitPath(path)

	switch {
	case len(segments) == 1 && segments[0] == "login":
		if r.Method == http.MethodPost {
			s.handleLogin(w, r)
			return
		}
	case len(segments) == 1 && segments[0] == "register":
		if r.Method == http.MethodPost {
			s.handleRegister(w, r)
			return
		}
	case len(segments) == 1 && segments[0] == "logout":
		if r.Method == http.MethodPost {
			s.handleLogout(w, r)
			return
		}
	case len(segments) == 1 && segments[0] == "confessions":
		if r.Method == http.MethodGet {
			s.handleListConfessions(w, r)
			return
		}
		if r.Method == http.MethodPost {
			s.handleCreateConfession(w, r)
			return
		}
	case len(segments) == 2 && segments[0] == "confessions":
		if r.Method == http.MethodPut {
			s.handleUpdateConfession(w, r, segments[1])
			return
		}
		if r.Method == http.MethodDelete {
			s.handleDeleteConfession(w, r, segments[1])
			return
		}
	case len(segments) == 3 && segments[0] == "confessions" && segments[2] == "comments":
		if r.Method == http.MethodGet {
			s.handleConfessionDetail(w, r, segments[1])
			return
		}
	case len(segments) == 3 && segments[0] == "confessions" && segments[2] == "star":
		if r.Method == http.MethodPost {
			s.handleStar(w, r, segments[1])
			return
		}
	case len(segments) == 3 && segments[0] == "confessions" && segments[2] == "react":
		if r.Method == http.MethodPost {
			s.handleReactConfession(w, r, segments[1])
			return
		}
	case len(segments) == 3 && segments[0] == "confessions" && segments[2] == "share":
		if r.Method == http.MethodPost {
			s.handleShare(w, r, segments[1])
			return
		}
	case len(segments) == 2 && segments[0] == "comments":
		if r.Method == http.MethodPost {
			s.handleCreateComment(w, r, segments[1])
			return
		}
	case len(segments) == 3 && segments[0] == "comments" && segments[2] == "react":
		if r.Method == http.MethodPost {
			s.handleReactComment(w, r, segments[1])
			return
		}
	case len(segments) == 1 && segments[0] == "connections":
		if r.Method == http.MethodGet {
			s.handleListConnections(w, r)
			return
		}
		if r.Method == http.MethodPost {
			s.handleCreateConnection(w, r)
			return
		}
	case len(segments) == 3 && segments[0] == "connections" && segments[2] == "connect":
		if r.Method == http.MethodPost {
			s.handleConnect(w, r, segments[1])
			return
		}
	case len(segments) == 3 && segments[0] == "connections" && segments[2] == "profile":
		if r.Method == http.MethodGet {
			s.handleProfile(w, r, segments[1])
			return
		}
	case len(segments) == 2 && segments[0] == "me" && segments[1] == "friends":
		if r.Method == http.MethodGet {
			s.handleFriends(w, r)
			return
		}
	case len(segments) == 5 && segments[0] == "me" && segments[1] == "friends" && segments[2] == "requests" && segments[4] == "respond":
		if r.Method == http.MethodPost {
			s.handleRespond(w, r, segments[3])
			return
		}
	case len(segments) == 2 && segments[0] == "me" && segments[1] == "settings":
		if r.Method == http.MethodGet {
			s.handleGetSettings(w, r)
			return
		}
		if r.Method == http.MethodPut {
			s.handleUpdateSettings(w, r)
			return
		}
	case len(segments) == 1 && segments[0] == "contact":
		if r.Method == http.MethodPost {
			s.handleContact(w, r)
			return
		}
	case len(segments) == 1 && segments[0] == "stats":
		if r.Method == http.MethodGet {
			s.handleStats(w, r)
			return
		}
	}

	notFound(w)
}

// issueToken opens a session for userID and signs an access token naming it.
func (s *Server) issueToken(userID string) (sessionID, token string, err error) {
	sessionID = uuid.NewString()
	now := s.now()
	claims := jwt.RegisteredClaims{
		ID:        sessionID,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", "", err
	}
	s.sessions[sessionID] = userID
	return sessionID, token, nil
}

// ExpireSessions invalidates every issued token.
func (s *Server) ExpireSessions() {
	s.mu.Lock()
	clear(s.sessions)
	s.mu.Unlock()
}

// requireAuth resolves the bearer token to a user id. Callers must not hold mu.
func (s *Server) requireAuth(w http.ResponseWriter, r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
		return "", false
	}
	bearer := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(bearer, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		writeError(w, http.StatusUnauthorized, errors.New("invalid token"))
		return "", false
	}

	s.mu.Lock()
	userID, ok := s.sessions[claims.ID]
	s.mu.Unlock()
	if !ok || userID != claims.Subject {
		writeError(w, http.StatusUnauthorized, errors.New("session expired"))
		return "", false
	}
	return userID, true
}

func sessionClaims(r *http.Request) (string, bool) {
	bearer := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	if bearer == "" {
		return "", false
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(bearer, claims); err != nil {
		return "", false
	}
	return claims.ID, claims.ID != ""
}

func readJSON(body io.ReadCloser, dest any) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, errors.New("not found"))
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
