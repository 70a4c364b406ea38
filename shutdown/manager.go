// Package shutdown coordinates graceful termination: the first SIGINT or
// SIGTERM cancels the process context, in-flight generations are given time
// to finish, and registered cleanup steps run in priority order. A second
// signal exits immediately.
package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"img2img/logging"
)

// Priorities for common cleanup steps. Lower runs first.
const (
	PriorityServer   = 10 // stop accepting requests
	PriorityClients  = 20 // websocket clients
	PriorityPipeline = 30 // release backend resources
	PriorityLogger   = 90 // flush logs last
)

// Manager owns the process-lifetime context.
type Manager struct {
	logger  *logging.Logger
	timeout time.Duration
	exit    func(int)

	ctx    context.Context
	cancel context.CancelFunc

	tracker  *Tracker
	registry *Registry

	mu       sync.Mutex
	started  bool
	done     bool
	signals  int
	received os.Signal
	sigChan  chan os.Signal
}

// Option configures a Manager.
type Option func(*Manager)

// WithTimeout bounds the whole shutdown sequence. Default 30s.
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) { m.timeout = d }
}

// WithExit replaces os.Exit for the forced exit on a second signal.
func WithExit(fn func(int)) Option {
	return func(m *Manager) { m.exit = fn }
}

// NewManager returns a manager whose context is live until a signal arrives
// or Trigger is called.
func NewManager(logger *logging.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		logger:   logger.Named("shutdown"),
		timeout:  30 * time.Second,
		exit:     os.Exit,
		ctx:      ctx,
		cancel:   cancel,
		tracker:  NewTracker(),
		registry: NewRegistry(),
		sigChan:  make(chan os.Signal, 2),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Context is cancelled when shutdown begins.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Tracker counts in-flight work that shutdown waits for.
func (m *Manager) Tracker() *Tracker {
	return m.tracker
}

// Register adds a cleanup step.
func (m *Manager) Register(name string, priority int, fn Func) {
	m.registry.Register(name, priority, fn)
	m.logger.Debug("registered shutdown step",
		zap.String("name", name),
		zap.Int("priority", priority))
}

// Start listens for SIGINT and SIGTERM. Calling it again has no effect.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true

	signal.Notify(m.sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		for sig := range m.sigChan {
			m.handleSignal(sig)
		}
	}()
}

func (m *Manager) handleSignal(sig os.Signal) {
	m.mu.Lock()
	m.signals++
	n := m.signals
	if n == 1 {
		m.received = sig
	}
	m.mu.Unlock()

	if n == 1 {
		m.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		m.cancel()
		return
	}
	m.logger.Warn("received second signal, exiting immediately", zap.String("signal", sig.String()))
	m.exit(1)
}

// Trigger begins shutdown without a signal, e.g. when a service manager
// asks the program to stop.
func (m *Manager) Trigger() {
	m.cancel()
}

// Signal returns the signal that started shutdown, or nil.
func (m *Manager) Signal() os.Signal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.received
}

// Shutdown cancels the context, waits for tracked work and runs the cleanup
// steps. Later calls return nil.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return nil
	}
	m.done = true
	started := m.started
	m.mu.Unlock()

	start := time.Now()
	m.cancel()
	m.tracker.Close()

	if active := m.tracker.Active(); active > 0 {
		m.logger.Info("waiting for in-flight generations", zap.Int64("active", active))
	}
	if err := m.tracker.Wait(m.timeout); err != nil {
		m.logger.Warn("in-flight generations still running",
			zap.Int64("active", m.tracker.Active()),
			zap.Duration("waited", time.Since(start)))
	}

	remaining := max(m.timeout-time.Since(start), time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), remaining)
	defer cancel()

	m.logger.Info("running shutdown steps", zap.Strings("steps", m.registry.Names()))
	errs := m.registry.Run(ctx)
	for _, err := range errs {
		m.logger.Error("shutdown step failed", zap.Error(err))
	}

	if started {
		signal.Stop(m.sigChan)
	}
	if len(errs) > 0 {
		return fmt.Errorf("shutdown finished with %d errors", len(errs))
	}
	m.logger.Info("shutdown complete", zap.Duration("duration", time.Since(start)))
	return nil
}

// WrapOperation runs fn as tracked work. It returns ErrClosed without
// calling fn once shutdown has begun.
func (m *Manager) WrapOperation(ctx context.Context, fn func(context.Context) error) error {
	if !m.tracker.Start() {
		return ErrClosed
	}
	defer m.tracker.Done()
	return fn(ctx)
}
