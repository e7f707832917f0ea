package app

import (
	"context"
	"log"
	"time"

	"github.com/Christian7h/backend-luxurymotors-react-nodejs-webpay/internal/clock"
)

type SessionSweeper interface {
	SweepExpired(now time.Time, ttl time.Duration) int
}

// Sweeper periodically evicts abandoned checkouts from the session store. It is
// housekeeping only: a confirm racing the sweeper near expiry is resolved by the
// store's idempotent delete, not by the sweeper.
type Sweeper struct {
	store    SessionSweeper
	clock    clock.Clock
	logger   *log.Logger
	ttl      time.Duration
	interval time.Duration
}

const (
	defaultSessionTTL    = 30 * time.Minute
	defaultSweepInterval = 30 * time.Minute
)

func NewSweeper(store SessionSweeper, clk clock.Clock, opts ...SweeperOption) *Sweeper {
	sw := &Sweeper{
		store:    store,
		clock:    clk,
		logger:   log.Default(),
		ttl:      defaultSessionTTL,
		interval: defaultSweepInterval,
	}
	for _, opt := range opts {
		opt(sw)
	}
	return sw
}

type SweeperOption func(*Sweeper)

// WithSessionTTL overrides the age at which a pending purchase expires.
func WithSessionTTL(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithSweepInterval overrides how often the sweeper runs.
func WithSweepInterval(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithSweeperLogger overrides the logger used to report evictions.
func WithSweeperLogger(logger *log.Logger) SweeperOption {
	return func(s *Sweeper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Run sweeps on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep evicts expired sessions once and reports the eviction count.
func (s *Sweeper) Sweep() int {
	removed := s.store.SweepExpired(s.clock.Now(), s.ttl)
	if removed > 0 {
		s.logger.Printf("sweeper evicted %d expired checkout sessions", removed)
	}
	return removed
}
