package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
)

const maxFrameSize = 1 << 20

var ErrClosed = errors.New("realtime: listener closed")

// Metrics counts frames seen by a Listener.
type Metrics struct {
	Frames    prometheus.Counter
	Decoded   *prometheus.CounterVec
	Dropped   prometheus.Counter
	Connected prometheus.Gauge
}

// NewMetrics builds the listener counters and registers them on reg when it
// is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Frames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "confessions_realtime_frames_total",
			Help: "Total number of WebSocket frames received",
		}),
		Decoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "confessions_realtime_events_total",
			Help: "Total decoded realtime events by channel",
		}, []string{"channel"}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "confessions_realtime_dropped_total",
			Help: "Total frames discarded as undecodable",
		}),
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "confessions_realtime_connected",
			Help: "1 while the realtime socket is open",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Frames, m.Decoded, m.Dropped, m.Connected)
	}
	return m
}

type Handler func(Event)

type Option func(*Listener)

func WithLogger(l *slog.Logger) Option {
	return func(ln *Listener) { ln.log = l }
}

func WithMetrics(m *Metrics) Option {
	return func(ln *Listener) { ln.metrics = m }
}

func WithHeader(h http.Header) Option {
	return func(ln *Listener) { ln.header = h }
}

// WithReconnect redials after the socket drops. Zero disables it.
func WithReconnect(delay time.Duration) Option {
	return func(ln *Listener) { ln.reconnect = delay }
}

// Listener holds one WebSocket connection and hands each decoded event to
// its handler. Handlers run on the read goroutine.
type Listener struct {
	url       string
	handler   Handler
	dialer    *websocket.Dialer
	header    http.Header
	reconnect time.Duration
	metrics   *Metrics
	log       *slog.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
	done   chan struct{}
}

func NewListener(url string, h Handler, opts ...Option) *Listener {
	l := &Listener{
		url:     url,
		handler: h,
		dialer:  websocket.DefaultDialer,
		log:     slog.Default(),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.metrics == nil {
		l.metrics = NewMetrics(nil)
	}
	return l
}

// Run dials and reads until ctx is cancelled or Close is called. Without a
// reconnect delay the first dial or read error is returned.
func (l *Listener) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = l.Close() })
	defer stop()

	for {
		err := l.session(ctx)
		if l.isClosed() {
			return nil
		}
		if l.reconnect <= 0 {
			return err
		}
		l.log.Warn("realtime connection lost", "url", l.url, "error", err, "retry_in", l.reconnect)
		select {
		case <-time.After(l.reconnect):
		case <-l.done:
			return nil
		}
	}
}

func (l *Listener) session(ctx context.Context) error {
	conn, _, err := l.dialer.DialContext(ctx, l.url, l.header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", l.url, err)
	}
	if !l.attach(conn) {
		_ = conn.Close()
		return ErrClosed
	}
	l.metrics.Connected.Set(1)
	defer l.metrics.Connected.Set(0)
	l.log.Debug("realtime connected", "url", l.url)

	conn.SetReadLimit(maxFrameSize)
	for {
		kind, frame, err := conn.ReadMessage()
		if err != nil {
			l.detach(conn)
			return err
		}
		l.metrics.Frames.Inc()
		if kind != websocket.TextMessage {
			l.metrics.Dropped.Inc()
			continue
		}
		ev, ok := Decode(frame)
		if !ok {
			l.metrics.Dropped.Inc()
			continue
		}
		l.metrics.Decoded.WithLabelValues(ev.Channel).Inc()
		if l.handler != nil {
			l.handler(ev)
		}
	}
}

// Close closes the socket and stops Run. It is safe to call more than once.
func (l *Listener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	close(l.done)
	if l.conn == nil {
		return nil
	}
	deadline := time.Now().Add(time.Second)
	_ = l.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	err := l.conn.Close()
	l.conn = nil
	return err
}

func (l *Listener) attach(conn *websocket.Conn) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	l.conn = conn
	return true
}

func (l *Listener) detach(conn *websocket.Conn) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == conn {
		_ = conn.Close()
		l.conn = nil
	}
}

func (l *Listener) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}
