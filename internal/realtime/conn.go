package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/identity"
	"github.com/KoreaLSW/Socialspace-FE-sub000/internal/models"
)

// Status is the externally visible connection state.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
)

const (
	DefaultBackoffBase      = 500 * time.Millisecond
	DefaultBackoffCap       = 30 * time.Second
	DefaultMaxAttempts      = 5
	DefaultHandshakeTimeout = 10 * time.Second
)

// ManagerConfig tunes the reconnection state machine.
type ManagerConfig struct {
	BackoffBase      time.Duration
	BackoffCap       time.Duration
	MaxAttempts      int
	HandshakeTimeout time.Duration
	Logger           *slog.Logger
}

func (c *ManagerConfig) defaults() {
	if c.BackoffBase <= 0 {
		c.BackoffBase = DefaultBackoffBase
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = DefaultBackoffCap
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager owns one realtime connection: it resolves identity, drives the
// connect/reconnect state machine and gates event delivery into the bus.
// No events reach subscribers while the manager is not Connected.
type Manager struct {
	transport Transport
	ident     identity.Provider
	bus       *Bus
	cfg       ManagerConfig

	mu         sync.Mutex
	status     Status
	attempt    int
	inFlight   bool
	intended   bool // user asked to disconnect; suppress auto-reconnect
	statusSubs []func(Status)
}

func NewManager(transport Transport, ident identity.Provider, bus *Bus, cfg ManagerConfig) *Manager {
	cfg.defaults()
	m := &Manager{
		transport: transport,
		ident:     ident,
		bus:       bus,
		cfg:       cfg,
		status:    StatusDisconnected,
	}
	transport.SetHooks(Hooks{
		OnEvent:      m.handleEvent,
		OnDisconnect: m.handleDisconnect,
	})
	return m
}

// Status returns the current connection state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// OnStatusChange registers a callback invoked on every state transition.
func (m *Manager) OnStatusChange(fn func(Status)) {
	m.mu.Lock()
	m.statusSubs = append(m.statusSubs, fn)
	m.mu.Unlock()
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	if m.status == s {
		m.mu.Unlock()
		return
	}
	m.status = s
	subs := make([]func(Status), len(m.statusSubs))
	copy(subs, m.statusSubs)
	m.mu.Unlock()

	for _, fn := range subs {
		fn(s)
	}
}

// Connect establishes the connection, retrying with exponential backoff up to
// MaxAttempts consecutive failures before settling in the Error state. A call
// while a connect is already in flight (or the connection is up) is a no-op.
// Identity resolution failure fails fast with no handshake attempt.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.inFlight || m.status == StatusConnected {
		m.mu.Unlock()
		return nil
	}
	m.inFlight = true
	m.intended = false
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight = false
		m.mu.Unlock()
	}()

	id, err := m.ident.Resolve(ctx)
	if err != nil {
		// No handshake attempt without an identity.
		return fmt.Errorf("resolve identity: %w", err)
	}

	return m.connectLoop(ctx, id)
}

// connectLoop runs up to MaxAttempts handshake attempts. The attempt counter
// carries across drops only within one loop; it resets to zero the moment a
// handshake succeeds.
func (m *Manager) connectLoop(ctx context.Context, id models.Identity) error {
	var lastErr error
	for {
		m.mu.Lock()
		attempt := m.attempt
		m.mu.Unlock()

		if attempt >= m.cfg.MaxAttempts {
			m.setStatus(StatusError)
			return &models.ConnectionError{Attempt: attempt, Err: lastErr}
		}

		if attempt > 0 {
			delay := min(m.cfg.BackoffBase<<(attempt-1), m.cfg.BackoffCap)
			m.cfg.Logger.Info("reconnecting", "attempt", attempt, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				m.setStatus(StatusDisconnected)
				return ctx.Err()
			}
		}

		m.setStatus(StatusConnecting)

		hsCtx, cancel := context.WithTimeout(ctx, m.cfg.HandshakeTimeout)
		err := m.transport.Connect(hsCtx, id)
		cancel()

		if err == nil {
			m.mu.Lock()
			m.attempt = 0
			m.mu.Unlock()
			m.setStatus(StatusConnected)
			m.cfg.Logger.Info("connected", "user_id", id.UserID)
			return nil
		}

		lastErr = err
		m.mu.Lock()
		m.attempt++
		m.mu.Unlock()
		m.setStatus(StatusDisconnected)
		m.cfg.Logger.Warn("connect failed", "attempt", attempt+1, "error", err)

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Disconnect closes the connection deliberately. No auto-reconnect follows.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	m.intended = true
	m.mu.Unlock()

	err := m.transport.Close()
	m.setStatus(StatusDisconnected)
	return err
}

// Reconnect is the explicit retry affordance once the manager has given up
// and settled in Error. It resets the attempt counter and connects again.
func (m *Manager) Reconnect(ctx context.Context) error {
	m.mu.Lock()
	m.attempt = 0
	m.mu.Unlock()
	m.setStatus(StatusDisconnected)
	return m.Connect(ctx)
}

func (m *Manager) handleEvent(ev models.Event) {
	if m.Status() != StatusConnected {
		return
	}
	m.bus.Publish(ev)
}

func (m *Manager) handleDisconnect(graceful bool, err error) {
	m.mu.Lock()
	intended := m.intended
	m.mu.Unlock()

	m.setStatus(StatusDisconnected)

	if intended {
		return
	}
	if graceful {
		// The server explicitly ended the session. Respect it.
		m.cfg.Logger.Info("server closed connection", "error", err)
		return
	}

	m.cfg.Logger.Warn("connection dropped", "error", err)
	go func() {
		if err := m.Connect(context.Background()); err != nil {
			m.cfg.Logger.Error("auto-reconnect gave up", "error", err)
		}
	}()
}
