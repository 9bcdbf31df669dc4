package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Semkufu95/confessions/internal/app"
	"github.com/Semkufu95/confessions/internal/config"
	"github.com/Semkufu95/confessions/internal/fakeapi"
	"github.com/Semkufu95/confessions/internal/realtime"
)

// cmdWatch keeps the socket open and prints each notification once.
func cmdWatch(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	metricsAddr := fs.String("metrics", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	fs.Parse(args)

	e := openEnv()
	defer e.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var deps app.Deps
	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		deps.Metrics = realtime.NewMetrics(reg)
		srv := serveMetrics(*metricsAddr, reg, e.log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	var (
		mu    sync.Mutex
		seen  = make(map[string]bool)
		state *app.State
	)
	deps.OnChange = func() {
		mu.Lock()
		defer mu.Unlock()
		if state == nil {
			return
		}
		items := state.Notifications()
		for i := len(items) - 1; i >= 0; i-- {
			n := items[i]
			if seen[n.ID] {
				continue
			}
			seen[n.ID] = true
			fmt.Printf("%s  %-20s %s\n", time.Now().Format("15:04:05"), n.Title, n.Message)
		}
	}

	s := e.state(ctx, e.client.WebSocketURL(), deps)
	mu.Lock()
	state = s
	mu.Unlock()
	defer s.Close()

	fmt.Printf("Watching %s (%d confessions loaded). Ctrl-C to stop.\n", e.client.WebSocketURL(), len(s.Confessions()))
	<-ctx.Done()
	fmt.Println("\nstopped")
}

func serveMetrics(addr string, reg *prometheus.Registry, log *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server", "error", err)
		}
	}()
	return srv
}

// ============================================================================
// MOCK BACKEND
// ============================================================================

func cmdMock(args []string) {
	fs := flag.NewFlagSet("mock", flag.ExitOnError)
	addr := fs.String("addr", ":5000", "Listen address")
	secret := fs.String("secret", "", "Token signing secret")
	fs.Parse(args)

	cfg := config.Load()
	logger := cfg.Logger(os.Stderr)

	opts := []fakeapi.Option{fakeapi.WithLogger(logger)}
	if *secret != "" {
		opts = append(opts, fakeapi.WithSecret([]byte(*secret)))
	}
	server := fakeapi.New(opts...)

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           server,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("mock backend listening", "addr", *addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(fmt.Errorf("server error: %w", err))
		}
	}()
	fmt.Printf("Mock backend on %s (REST under /api, socket at /ws)\n", *addr)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down")
	server.CloseSockets()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctx)
}
