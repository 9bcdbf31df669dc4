package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Semkufu95/confessions/internal/bus"
	"github.com/Semkufu95/confessions/internal/client"
	"github.com/Semkufu95/confessions/internal/model"
	"github.com/Semkufu95/confessions/internal/normalize"
)

// Credentials is where a successful login is persisted.
type Credentials interface {
	SetToken(ctx context.Context, token string) error
	SetUser(ctx context.Context, u model.User) error
	ClearAuth(ctx context.Context) error
}

type Auth struct {
	api   API
	creds Credentials
	bus   *bus.Bus
	log   *slog.Logger
}

func NewAuth(api API, creds Credentials, b *bus.Bus, log *slog.Logger) *Auth {
	if log == nil {
		log = slog.Default()
	}
	return &Auth{api: api, creds: creds, bus: b, log: log}
}

type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

func (s *Auth) Login(ctx context.Context, email, password string) (model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return model.User{}, invalid("email", "Email and password are required")
	}
	body := map[string]string{"email": email, "password": password}
	return s.authenticate(ctx, "/login", body)
}

func (s *Auth) Register(ctx context.Context, in RegisterInput) (model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	switch {
	case in.Username == "" || in.Email == "" || in.Password == "":
		return model.User{}, invalid("username", "Username, email, and password are required")
	case !validEmail(in.Email):
		return model.User{}, invalid("email", "Invalid email format")
	case in.Password != in.ConfirmPassword:
		return model.User{}, invalid("confirmPassword", "Passwords do not match")
	}
	body := map[string]string{"username": in.Username, "email": in.Email, "password": in.Password}
	return s.authenticate(ctx, "/register", body)
}

// Logout ends the server session when possible and always clears local
// credentials. A 401 from the server has already signalled the logout
// through the client, so it is not published again.
func (s *Auth) Logout(ctx context.Context) error {
	serverErr := s.api.Do(ctx, http.MethodPost, "/logout", nil, nil)
	if serverErr != nil {
		s.log.Debug("server logout", "error", serverErr)
	}
	err := s.creds.ClearAuth(ctx)
	if s.bus != nil && !errors.Is(serverErr, client.ErrUnauthorized) {
		s.bus.Publish(bus.TopicLogout)
	}
	return err
}

func (s *Auth) authenticate(ctx context.Context, path string, body any) (model.User, error) {
	var raw normalize.Record
	if err := s.api.Do(ctx, http.MethodPost, path, body, &raw); err != nil {
		return model.User{}, err
	}
	token, _ := raw["access_token"].(string)
	if token == "" {
		token, _ = raw["token"].(string)
	}
	if token == "" {
		return model.User{}, fmt.Errorf("POST %s: response carried no access token", path)
	}
	user := normalize.User(normalize.AsRecord(raw["user"]))

	if err := s.creds.SetToken(ctx, token); err != nil {
		return model.User{}, fmt.Errorf("save token: %w", err)
	}
	if err := s.creds.SetUser(ctx, user); err != nil {
		return model.User{}, fmt.Errorf("save user: %w", err)
	}
	return user, nil
}
