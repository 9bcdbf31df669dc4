package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/Semkufu95/confessions/internal/app"
	"github.com/Semkufu95/confessions/internal/auth"
	"github.com/Semkufu95/confessions/internal/bus"
	"github.com/Semkufu95/confessions/internal/client"
	"github.com/Semkufu95/confessions/internal/config"
	"github.com/Semkufu95/confessions/internal/model"
	"github.com/Semkufu95/confessions/internal/service"
	"github.com/Semkufu95/confessions/internal/store"
	"github.com/Semkufu95/confessions/internal/store/sqlite"
)

const version = "confessify v0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "-h", "--help", "help":
		printUsage()
	case "-v", "--version", "version":
		fmt.Println(version)
	case "mock", "serve":
		cmdMock(args)
	case "login":
		cmdLogin(args)
	case "register":
		cmdRegister(args)
	case "logout":
		cmdLogout(args)
	case "status", "whoami":
		cmdStatus(args)
	case "list", "read":
		cmdList(args)
	case "show":
		cmdShow(args)
	case "post":
		cmdPost(args)
	case "edit":
		cmdEdit(args)
	case "delete", "rm":
		cmdDelete(args)
	case "comment":
		cmdComment(args)
	case "react":
		cmdReact(args)
	case "star":
		cmdStar(args)
	case "starred":
		cmdList(append([]string{"--starred"}, args...))
	case "share":
		cmdShare(args)
	case "connections":
		cmdConnections(args)
	case "offer":
		cmdOffer(args)
	case "connect":
		cmdConnect(args)
	case "profile":
		cmdProfile(args)
	case "friends":
		cmdFriends(args)
	case "respond":
		cmdRespond(args)
	case "settings":
		cmdSettings(args)
	case "contact":
		cmdContact(args)
	case "stats":
		cmdStats(args)
	case "channels":
		cmdChannels(args)
	case "darkmode":
		cmdDarkMode(args)
	case "watch":
		cmdWatch(args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`confessify - anonymous confessions from the terminal

Usage: confessify <command> [options]

Account:
  register            Create an account and sign in
  login               Sign in with email and password
  logout              Sign out and clear local credentials
  status              Show the signed-in user and token expiry

Confessions:
  list                List confessions (--starred for your starred set)
  show                Show one confession with its comments
  post                Post a confession
  edit                Edit your confession
  delete              Delete your confession
  comment             Comment on a confession
  react               Like or boo a confession or comment
  star                Star a confession
  starred             List starred confessions
  share               Get a share link for a confession

Connections:
  connections         List connection posts
  offer               Post a connection
  connect             Send a connection request
  profile             Show the profile behind a connection
  friends             List followers and pending requests
  respond             Accept or decline a request

Other:
  settings            Show or change notification settings
  contact             Send a message to the team
  stats               Show community stats
  channels            Show or set realtime notification channels
  darkmode            Toggle the dark mode preference
  watch               Stream live notifications
  mock                Run an in-memory backend for local testing

Examples:
  confessify register --username ghost --email ghost@example.com --password s3cret
  confessify post --text "I still sleep with a night light" --category general
  confessify react --id <confession-id> --type like
  confessify watch --metrics :9090

Environment Variables:
  CONFESSIONS_API_URL              REST base URL (default: http://localhost:5000/api)
  CONFESSIONS_STATE_DB             Local state database path
  CONFESSIONS_HTTP_TIMEOUT         Request timeout (default: 15s)
  CONFESSIONS_LOG_LEVEL            debug, info, warn or error (default: warn)
  CONFESSIONS_LOG_FORMAT           text or json (default: text)
  CONFESSIONS_MAX_NOTIFICATIONS    Visible notification cap (default: 4)
  CONFESSIONS_NOTIFICATION_TTL     Notification lifetime (default: 6s)
  CONFESSIONS_REFRESH_DEBOUNCE     Realtime refresh window (default: 250ms)
  CONFESSIONS_WS_RECONNECT         Socket reconnect delay (default: 5s)`)
}

// ============================================================================
// WIRING
// ============================================================================

// env is the process-wide set of collaborators every command works through.
type env struct {
	cfg         config.Config
	log         *slog.Logger
	kv          *sqlite.Store
	local       *store.Local
	bus         *bus.Bus
	client      *client.Client
	session     *auth.Session
	auth        *service.Auth
	confessions *service.Confessions
	connections *service.Connections
}

func openEnv() *env {
	cfg := config.Load()
	logger := cfg.Logger(os.Stderr)
	slog.SetDefault(logger)

	kv, err := sqlite.Open(cfg.StateDB)
	if err != nil {
		fatal(fmt.Errorf("open state db: %w", err))
	}
	local := store.NewLocal(kv)
	b := bus.New()

	c := client.New(cfg.APIURL,
		client.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		client.WithTokens(local),
		client.WithBus(b),
		client.WithLogger(logger),
	)

	session := auth.NewSession(local, b, logger)
	if err := session.Load(context.Background()); err != nil {
		logger.Warn("load session", "error", err)
	}

	return &env{
		cfg:         cfg,
		log:         logger,
		kv:          kv,
		local:       local,
		bus:         b,
		client:      c,
		session:     session,
		auth:        service.NewAuth(c, local, b, logger),
		confessions: service.NewConfessions(c),
		connections: service.NewConnections(c),
	}
}

func (e *env) close() {
	e.session.Close()
	_ = e.kv.Close()
}

// state builds the working set. A non-empty wsURL also opens the socket.
func (e *env) state(ctx context.Context, wsURL string, deps app.Deps) *app.State {
	deps.Confessions = e.confessions
	deps.Connections = e.connections
	deps.Local = e.local
	deps.Bus = e.bus
	deps.WebSocketURL = wsURL
	deps.Reconnect = e.cfg.Reconnect
	deps.MaxNotifications = e.cfg.Notifications.Max
	deps.NotificationTTL = e.cfg.Notifications.TTL
	deps.RefreshWindow = e.cfg.RefreshWindow
	deps.Logger = e.log

	s := app.New(deps)
	if err := s.Start(ctx); err != nil {
		fatal(err)
	}
	return s
}

// signedIn hands the freshly stored token and user to the session.
func (e *env) signedIn(u model.User) {
	token, err := e.local.Token(context.Background())
	if err != nil {
		fatal(fmt.Errorf("read token: %w", err))
	}
	e.session.Set(token, u)
}

func (e *env) requireLogin() {
	if !e.session.Authenticated() {
		fatal(fmt.Errorf("not signed in; run 'confessify login' first"))
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func required(name, value, usage string) {
	if strings.TrimSpace(value) == "" {
		fmt.Fprintf(os.Stderr, "Error: --%s is required\n", name)
		fmt.Fprintf(os.Stderr, "Usage: %s\n", usage)
		os.Exit(1)
	}
}
