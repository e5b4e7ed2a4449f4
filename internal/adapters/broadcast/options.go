package broadcast

import "github.com/courtside/courtside/pkg/logger"

// Option applies a configuration option to the Broadcaster.
type Option func(*Broadcaster)

// WithBlockedPolicy selects the blocked-subscriber policy.
func WithBlockedPolicy(policy BlockedPolicy) Option {
	return func(b *Broadcaster) {
		if policy == PolicyResync || policy == PolicyDisconnect {
			b.policy = policy
		}
	}
}

// WithOutboxBuffer sets the per-game delta queue capacity.
func WithOutboxBuffer(size int) Option {
	return func(b *Broadcaster) {
		if size > 0 {
			b.outboxBuffer = size
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(b *Broadcaster) {
		if l != nil {
			b.logger = l
		}
	}
}
