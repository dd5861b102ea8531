// Package daemon runs the background authority: the delivery worker, its
// notification backends and the loopback JSON-RPC server sessions talk to.
package daemon

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/randalarm/randalarm/internal/background"
	"github.com/randalarm/randalarm/internal/notify"
	"github.com/randalarm/randalarm/internal/server"
	"github.com/randalarm/randalarm/pkg/logger"
)

// Sentinel errors for the daemon runner.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running daemon.
	ErrAlreadyRunning = errors.New("daemon is already running")

	// ErrNotRunning is returned when Shutdown() is called on a stopped daemon.
	ErrNotRunning = errors.New("daemon is not running")

	// ErrShutdownTimeout is returned when shutdown exceeds the configured timeout.
	ErrShutdownTimeout = errors.New("shutdown timed out")

	// ErrNoSecret is returned when Start() is called without an RPC secret.
	ErrNoSecret = errors.New("rpc secret is required")
)

// Config holds the configuration for the daemon runner.
type Config struct {
	// Port is the loopback port. A negative value picks a free one.
	Port int

	// MaxConns caps concurrent session connections.
	MaxConns int

	// Secret is the bearer token sessions must present.
	Secret string

	// Housekeeping is the cron expression of the ledger pruning job.
	Housekeeping string

	// MissedGrace bounds how late a snapshot occurrence may still ring.
	MissedGrace time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// A zero value means no timeout.
	ShutdownTimeout time.Duration
}

// Dependencies holds the external dependencies for the daemon runner.
// This enables dependency injection for testing.
type Dependencies struct {
	// Notifier shows notifications. If nil, only sessions ring.
	Notifier notify.Notifier

	// Log receives daemon logs. If nil, logs are discarded.
	Log logger.Logger

	// ShutdownFunc is called during shutdown to clean up resources.
	// If nil, no cleanup function is called.
	ShutdownFunc func() error
}

// Runner manages the daemon lifecycle.
type Runner struct {
	config  *Config
	deps    *Dependencies
	running bool
	mu      sync.Mutex
	cancel  context.CancelFunc
	server  *server.Server
	worker  *background.Worker
	ready   chan struct{}
}

// New creates a new daemon runner with the given configuration and dependencies.
// If config is nil, default values are used.
func New(config *Config, deps *Dependencies) *Runner {
	if config == nil {
		config = &Config{}
	}
	if deps == nil {
		deps = &Dependencies{}
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	if deps.Log == nil {
		deps.Log = logger.NewNopLogger()
	}
	return &Runner{
		config: config,
		deps:   deps,
		ready:  make(chan struct{}),
	}
}

// Config returns the runner's configuration.
func (r *Runner) Config() *Config {
	return r.config
}

// Start builds the worker and server and serves until the context is
// canceled. Returns ErrAlreadyRunning if the daemon is already started.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	if r.config.Secret == "" {
		r.mu.Unlock()
		return ErrNoSecret
	}

	ctx, r.cancel = context.WithCancel(ctx)
	log := r.deps.Log

	hub := server.NewSessionHub(logger.Component(log, "server"))
	worker, err := background.New(ctx, background.Config{
		Notifier:     r.deps.Notifier,
		Hub:          hub,
		Log:          logger.Component(log, "background"),
		Housekeeping: r.config.Housekeeping,
		MissedGrace:  r.config.MissedGrace,
	})
	if err != nil {
		r.cancel()
		r.mu.Unlock()
		return err
	}
	srv := server.NewServer(logger.Component(log, "server"), &server.RPCConfig{
		Secret:   r.config.Secret,
		Port:     r.config.Port,
		MaxConns: r.config.MaxConns,
	}, worker, hub)

	// Bind BEFORE setting running=true so a failed listen leaves us stopped
	if err := srv.Listen(); err != nil {
		r.cancel()
		r.mu.Unlock()
		return err
	}
	r.server, r.worker = srv, worker
	r.running = true
	select {
	case <-r.ready:
	default:
		close(r.ready)
	}
	r.mu.Unlock()

	log.Info("daemon: serving on %s", srv.Addr())
	err = srv.Start(ctx)

	r.cleanupOnStop()
	if err != nil {
		return err
	}
	return ctx.Err()
}

// Ready is closed once Start has bound its listener.
func (r *Runner) Ready() <-chan struct{} {
	return r.ready
}

// Addr returns the bound address while running.
func (r *Runner) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.server == nil {
		return nil
	}
	return r.server.Addr()
}

// Worker returns the background worker while running.
func (r *Runner) Worker() *background.Worker {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.worker
}

// cleanupOnStop performs cleanup when the daemon stops.
func (r *Runner) cleanupOnStop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.running = false
	r.closeServer()
	if err := r.deps.Notifier.Shutdown(); err != nil {
		r.deps.Log.Warning("daemon: notifier shutdown: %v", err)
	}
}

// closeServer shuts the server down if it exists.
// Caller must hold the mutex.
func (r *Runner) closeServer() {
	if r.server != nil {
		_ = r.server.Shutdown()
		r.server = nil
	}
}

// Shutdown gracefully stops the daemon.
// Returns ErrNotRunning if the daemon is not running.
// Returns ErrShutdownTimeout if the shutdown function exceeds the configured timeout.
func (r *Runner) Shutdown() error {
	if err := r.validateRunning(); err != nil {
		return err
	}
	if err := r.executeShutdownFunc(); err != nil {
		return err
	}
	r.performShutdown()
	return nil
}

// validateRunning checks if the daemon is running.
func (r *Runner) validateRunning() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return ErrNotRunning
	}
	return nil
}

// executeShutdownFunc runs the shutdown function with timeout if configured.
func (r *Runner) executeShutdownFunc() error {
	if r.deps.ShutdownFunc == nil {
		return nil
	}
	if r.config.ShutdownTimeout > 0 {
		return r.executeWithTimeout(r.deps.ShutdownFunc, r.config.ShutdownTimeout)
	}
	// The shutdown must proceed regardless of cleanup errors.
	_ = r.deps.ShutdownFunc()
	return nil
}

// executeWithTimeout runs a function with a timeout.
func (r *Runner) executeWithTimeout(fn func() error, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		r.forceStop()
		return ErrShutdownTimeout
	}
}

// forceStop forces the daemon to stop without waiting for cleanup.
func (r *Runner) forceStop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.running = false
	if r.cancel != nil {
		r.cancel()
	}
}

// performShutdown cancels the serving context; Start finishes the cleanup.
func (r *Runner) performShutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.running = false
	if r.cancel != nil {
		r.cancel()
	}
}

// IsRunning returns true if the daemon is currently running.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
