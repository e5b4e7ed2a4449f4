// Package service wires the live core together: catalog, event store,
// aggregator, ingestion gateway and broadcaster. It implements the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/courtside/courtside/internal/adapters/broadcast"
	"github.com/courtside/courtside/internal/adapters/catalog"
	"github.com/courtside/courtside/internal/adapters/eventstore"
	"github.com/courtside/courtside/internal/domain/aggregate"
	"github.com/courtside/courtside/internal/domain/dedupe"
	"github.com/courtside/courtside/internal/domain/model"
	"github.com/courtside/courtside/internal/gateway"
	"github.com/courtside/courtside/pkg/logger"
	"github.com/courtside/courtside/pkg/metrics"
)

// Service implements the API dependencies for the live game core.
type Service struct {
	mu sync.RWMutex

	// Core components
	catalog  *catalog.Catalog
	store    eventstore.Store
	agg      *aggregate.Aggregator
	gateway  *gateway.Gateway
	registry *broadcast.Registry
	caster   *broadcast.Broadcaster
	deduper  dedupe.Deduper

	// Configuration
	tolerance        time.Duration
	lockTimeout      time.Duration
	dedupeSize       int
	subscriberBuffer int
	outboxBuffer     int
	blockedPolicy    broadcast.BlockedPolicy

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore injects the event log backend. Defaults to the in-memory
// store when unset.
func WithStore(store eventstore.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithTolerance sets the out-of-order tolerance window.
func WithTolerance(window time.Duration) Option {
	return func(s *Service) {
		if window >= 0 {
			s.tolerance = window
		}
	}
}

// WithLockTimeout bounds how long one submission waits for its game's
// ingestion turn.
func WithLockTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.lockTimeout = timeout
		}
	}
}

// WithDedupeSize sets the size of the idempotency cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithSubscriberBuffer sets the per-subscriber channel capacity.
func WithSubscriberBuffer(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.subscriberBuffer = size
		}
	}
}

// WithOutboxBuffer sets the per-game delta queue capacity.
func WithOutboxBuffer(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.outboxBuffer = size
		}
	}
}

// WithBlockedPolicy picks the slow-subscriber policy.
func WithBlockedPolicy(policy broadcast.BlockedPolicy) Option {
	return func(s *Service) {
		switch policy {
		case broadcast.PolicyResync, broadcast.PolicyDisconnect:
			s.blockedPolicy = policy
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		tolerance:        30 * time.Second,
		lockTimeout:      5 * time.Second,
		dedupeSize:       500_000,
		subscriberBuffer: 64,
		outboxBuffer:     1024,
		blockedPolicy:    broadcast.PolicyResync,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting live game service...")

	s.catalog = catalog.New()
	if s.store == nil {
		s.store = eventstore.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory event store")
	}
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.agg = aggregate.New(s.catalog)

	s.gateway = gateway.New(s.store, s.agg, s.catalog,
		gateway.WithTolerance(s.tolerance),
		gateway.WithLockTimeout(s.lockTimeout),
		gateway.WithDeduper(s.deduper),
		gateway.WithLogger(s.logger.Named("gateway")),
	)

	s.registry = broadcast.NewRegistry(s.subscriberBuffer)
	s.caster = broadcast.New(s.registry, s.gateway.Snapshot,
		broadcast.WithBlockedPolicy(s.blockedPolicy),
		broadcast.WithOutboxBuffer(s.outboxBuffer),
		broadcast.WithLogger(s.logger.Named("broadcast")),
	)
	s.gateway.SetPublisher(s.caster)

	s.started = true
	s.logger.Info(ctx, "live game service started",
		logger.Duration("tolerance", s.tolerance),
		logger.Duration("lockTimeout", s.lockTimeout),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.String("blockedPolicy", string(s.blockedPolicy)),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping live game service...")

	// Drain the delta pumps before closing anything downstream.
	if s.caster != nil {
		s.caster.Stop()
	}

	if closer, ok := s.store.(interface{ Close() error }); ok {
		_ = closer.Close()
	}

	s.started = false
	s.logger.Info(context.Background(), "live game service stopped")
}

// Submit runs one event draft through the ingestion gateway.
func (s *Service) Submit(ctx context.Context, draft model.EventDraft) (gateway.SubmitResult, error) {
	return s.gateway.Submit(ctx, draft)
}

// Snapshot returns a consistent copy of one game's aggregated state.
func (s *Service) Snapshot(ctx context.Context, gameID string) (*model.GameState, error) {
	return s.gateway.Snapshot(ctx, gameID)
}

// History returns the ordered event slice [fromSeq, toSeq] of one game.
func (s *Service) History(ctx context.Context, gameID string, fromSeq, toSeq uint64) ([]model.StatEvent, error) {
	return s.gateway.History(ctx, gameID, fromSeq, toSeq)
}

// CreateGame registers a game in the catalog.
func (s *Service) CreateGame(ctx context.Context, info model.GameInfo) error {
	if err := s.catalog.CreateGame(ctx, info); err != nil {
		return err
	}
	metrics.UpdateTotalGames(s.catalog.Count())
	return nil
}

// AddPlayer adds one player to a game's roster.
func (s *Service) AddPlayer(ctx context.Context, gameID, playerID string, side model.TeamSide) error {
	return s.catalog.AddPlayer(ctx, gameID, playerID, side)
}

// ListGames lists all registered games.
func (s *Service) ListGames(ctx context.Context) []model.GameInfo {
	return s.catalog.List(ctx)
}

// Subscribe opens a live feed subscription for one (connection, game)
// pair. The first message is always a catch-up snapshot.
func (s *Service) Subscribe(ctx context.Context, connID, gameID string) (*broadcast.Subscriber, error) {
	return s.caster.Subscribe(ctx, connID, gameID)
}

// Unsubscribe ends one live feed subscription.
func (s *Service) Unsubscribe(connID, gameID string) {
	s.caster.Unsubscribe(connID, gameID)
}

// DropConnection ends every subscription of a lost connection.
func (s *Service) DropConnection(connID string) {
	s.caster.DropConnection(connID)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":          s.started,
		"toleranceSeconds": s.tolerance.Seconds(),
		"dedupeSize":       s.dedupeSize,
		"blockedPolicy":    string(s.blockedPolicy),
	}

	if s.started {
		stats["totalGames"] = s.catalog.Count()
		stats["subscribers"] = s.registry.Count()
		stats["dedupeEntries"] = s.deduper.Size()

		metrics.UpdateTotalGames(s.catalog.Count())
		metrics.UpdateSubscriberCount(s.registry.Count())
	}

	return stats
}
