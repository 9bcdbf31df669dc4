package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIURL      string
	StateDB     string
	HTTPTimeout time.Duration
	LogLevel    slog.Level
	LogFormat   string

	Notifications Notifications
	RefreshWindow time.Duration
	Reconnect     time.Duration
}

type Notifications struct {
	Max int
	TTL time.Duration
}

// Load reads CONFESSIONS_* variables. Values from a .env file in the working
// directory fill in anything the environment leaves unset.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		APIURL:      strings.TrimSuffix(envString("CONFESSIONS_API_URL", "http://localhost:5000/api"), "/"),
		StateDB:     envString("CONFESSIONS_STATE_DB", defaultStateDB()),
		HTTPTimeout: envDuration("CONFESSIONS_HTTP_TIMEOUT", 15*time.Second),
		LogLevel:    envLevel("CONFESSIONS_LOG_LEVEL", slog.LevelWarn),
		LogFormat:   envString("CONFESSIONS_LOG_FORMAT", "text"),
		Notifications: Notifications{
			Max: envInt("CONFESSIONS_MAX_NOTIFICATIONS", 4),
			TTL: envDuration("CONFESSIONS_NOTIFICATION_TTL", 6*time.Second),
		},
		RefreshWindow: envDuration("CONFESSIONS_REFRESH_DEBOUNCE", 250*time.Millisecond),
		Reconnect:     envDuration("CONFESSIONS_WS_RECONNECT", 5*time.Second),
	}

	return cfg
}

// Logger builds the process logger described by cfg.
func (c Config) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func defaultStateDB() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "confessions.db"
	}
	return filepath.Join(dir, "confessions", "state.db")
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envLevel(key string, def slog.Level) slog.Level {
	if v := os.Getenv(key); v != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(v)); err == nil {
			return lvl
		}
	}
	return def
}
