// Package gateway exposes the daemon's read-only HTTP surface: liveness,
// per-pair duplication status, and Prometheus metrics.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/mirrorgram/mirrorgram/internal/driver"
	"github.com/mirrorgram/mirrorgram/internal/offset"
)

// StatusSource reports per-pair worker snapshots.
type StatusSource interface {
	Status() []driver.PairStatus
}

// Config is the gateway's listen configuration.
type Config struct {
	// Listen is the bind address, e.g. "127.0.0.1:8080".
	Listen string

	// AuthToken, when set, gates /status behind a bearer token. /health and
	// /metrics stay public.
	AuthToken string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
	return c
}

// Gateway is the HTTP server. It only reads daemon state; nothing mutates
// through it.
type Gateway struct {
	cfg       Config
	source    StatusSource
	store     offset.Store
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time
}

// New creates a Gateway over the given status source and offset store.
func New(cfg Config, source StatusSource, store offset.Store, logger *slog.Logger) *Gateway {
	return &Gateway{
		cfg:    cfg.withDefaults(),
		source: source,
		store:  store,
		logger: logger,
	}
}

// Start binds the listen address and serves in the background.
func (g *Gateway) Start() error {
	g.startedAt = time.Now()

	g.server = &http.Server{
		Addr:         g.cfg.Listen,
		Handler:      g.buildRouter(),
		ReadTimeout:  g.cfg.ReadTimeout,
		WriteTimeout: g.cfg.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.cfg.Listen)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}

	go func() {
		g.logger.Info("gateway listening", "addr", g.cfg.Listen)
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Stop shuts the server down gracefully.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.cfg.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}
