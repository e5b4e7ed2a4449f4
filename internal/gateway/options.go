package gateway

import (
	"time"

	"github.com/courtside/courtside/internal/domain/dedupe"
	"github.com/courtside/courtside/pkg/logger"
)

// Option applies a configuration option to the Gateway.
type Option func(*Gateway)

// WithTolerance sets the out-of-order tolerance window: events may arrive
// up to this long behind the latest accepted timestamp before they are
// rejected as stale.
func WithTolerance(window time.Duration) Option {
	return func(g *Gateway) {
		if window >= 0 {
			g.tolerance = window
		}
	}
}

// WithLockTimeout bounds how long Submit waits for the per-game section.
func WithLockTimeout(timeout time.Duration) Option {
	return func(g *Gateway) {
		if timeout > 0 {
			g.lockTimeout = timeout
		}
	}
}

// WithDeduper sets the idempotency cache.
func WithDeduper(d dedupe.Deduper) Option {
	return func(g *Gateway) {
		if d != nil {
			g.deduper = d
		}
	}
}

// WithPublisher wires the broadcast path at construction time.
func WithPublisher(p Publisher) Option {
	return func(g *Gateway) {
		g.publisher = p
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}
