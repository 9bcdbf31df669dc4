// Package client provides the shared HTTP client for the confessions API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Semkufu95/confessions/internal/bus"
)

const (
	DefaultBaseURL      = "http://localhost:5000/api"
	DefaultWebSocketURL = "ws://localhost:5000/ws"
)

// Errors
var (
	ErrUnauthorized = errors.New("unauthorized")
)

// HTTPError is returned for every non-2xx response.
type HTTPError struct {
	Op      string
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s failed (%d): %s", e.Op, e.Status, e.Message)
}

func (e *HTTPError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// TokenStore is where the bearer credential lives between requests.
type TokenStore interface {
	Token(ctx context.Context) (string, error)
	ClearAuth(ctx context.Context) error
}

// Client is a confessions API client. Authorization is enforced server-side;
// requests without a token are sent as-is.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	tokens TokenStore
	bus    *bus.Bus
	log    *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

func WithTokens(ts TokenStore) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithBus sets the bus that receives bus.TopicLogout on a 401.
func WithBus(b *bus.Bus) Option {
	return func(c *Client) { c.bus = b }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a new client. An empty baseURL selects DefaultBaseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WebSocketURL derives the realtime endpoint from the REST base URL.
func (c *Client) WebSocketURL() string {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Host == "" {
		return DefaultWebSocketURL
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return scheme + "://" + u.Host + "/ws"
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out)
}

// Do performs one JSON request. out may be nil to discard the body.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	op := method + " " + path

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			c.log.Warn("read token", "error", err)
		} else if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read body: %w", op, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.expireSession(ctx)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{Op: op, Status: resp.StatusCode, Message: errorMessage(respBody)}
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func (c *Client) expireSession(ctx context.Context) {
	if c.tokens != nil {
		if err := c.tokens.ClearAuth(context.WithoutCancel(ctx)); err != nil {
			c.log.Error("clear credentials after 401", "error", err)
		}
	}
	if c.bus != nil {
		c.bus.Publish(bus.TopicLogout)
	}
}

// errorMessage extracts {"error": "..."} or {"message": "..."} when present.
func errorMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return strings.TrimSpace(string(body))
}
