// Package cooldown provides a fail-fast window after repeated model-service
// failure, so a degraded dependency is not hammered with further calls.
package cooldown

import (
	"sync"
	"time"
)

// Config defines cooldown behavior for one logical caller.
type Config struct {
	Window time.Duration `json:"window"` // how long calls fail fast after retries are exhausted
}

// DefaultConfig provides a reasonable default cooldown window.
//
//nolint:gochecknoglobals // sensible default config pattern
var DefaultConfig = Config{
	Window: 30 * time.Second,
}

// Gate tracks the cooldown state for one logical caller. Each agent that
// opts into cooldown owns its own Gate; state lives for the process
// lifetime and resets only on restart. Not shared between agents, so
// multiple concurrent sessions later cannot interfere through it.
type Gate struct {
	mu    sync.Mutex
	until time.Time
	cfg   Config
	now   func() time.Time // injectable clock for tests
}

// New creates a cooldown gate with the given configuration.
func New(cfg Config) *Gate {
	if cfg.Window <= 0 {
		cfg.Window = DefaultConfig.Window
	}
	return &Gate{cfg: cfg, now: time.Now}
}

// NewWithClock creates a gate using the given clock. Test hook.
func NewWithClock(cfg Config, now func() time.Time) *Gate {
	g := New(cfg)
	g.now = now
	return g
}

// Allow reports whether a call may proceed. When false, the caller must fail
// immediately without contacting the service.
func (g *Gate) Allow() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.now().Before(g.until)
}

// Trip starts the cooldown window. Called after the retry budget for one
// request is exhausted.
func (g *Gate) Trip() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.until = g.now().Add(g.cfg.Window)
}

// Reset clears the cooldown window.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.until = time.Time{}
}

// Remaining returns how long until calls are allowed again, zero if open.
func (g *Gate) Remaining() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	if remaining := g.until.Sub(g.now()); remaining > 0 {
		return remaining
	}
	return 0
}
