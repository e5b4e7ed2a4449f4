// Package gateway validates, sequences and applies incoming stat events.
//
// One logical writer exists per game: sequence assignment and state
// application for a game are serialized through that game's session,
// while different games proceed fully in parallel. The gateway is also
// the boundary that turns internal failures into the public rejection
// taxonomy defined in errors.go.
package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/courtside/courtside/internal/adapters/eventstore"
	"github.com/courtside/courtside/internal/domain/aggregate"
	"github.com/courtside/courtside/internal/domain/dedupe"
	"github.com/courtside/courtside/internal/domain/model"
	"github.com/courtside/courtside/pkg/logger"
	"github.com/courtside/courtside/pkg/metrics"
)

// Default gateway configuration constants.
const (
	defaultTolerance   = 30 * time.Second
	defaultLockTimeout = 5 * time.Second
)

// Catalog is the game registry view the gateway validates against.
type Catalog interface {
	Game(ctx context.Context, gameID string) (model.GameInfo, bool)
}

// Publisher receives one delta per accepted event, in sequence order per
// game. Implementations must not block on slow consumers.
type Publisher interface {
	Publish(ctx context.Context, delta *model.Delta)
}

// SubmitResult is the acceptance acknowledgement for one submission.
type SubmitResult struct {
	Seq       uint64
	Duplicate bool
}

// session is the single-writer context of one game. The slot channel is
// the per-game exclusive section; stateMu only guards the brief in-place
// state mutation so snapshot readers never observe a half-applied event.
type session struct {
	slot    chan struct{}
	stateMu sync.RWMutex
	state   *model.GameState
}

// Gateway implements the ingestion path: validate, sequence, persist,
// apply, broadcast.
type Gateway struct {
	store     eventstore.Store
	agg       *aggregate.Aggregator
	catalog   Catalog
	deduper   dedupe.Deduper
	publisher Publisher

	tolerance   time.Duration
	lockTimeout time.Duration

	mu       sync.Mutex
	sessions map[string]*session

	logger logger.Logger
}

// New creates a Gateway. The publisher may be nil for ingest-only use.
func New(store eventstore.Store, agg *aggregate.Aggregator, cat Catalog, opts ...Option) *Gateway {
	g := &Gateway{
		store:       store,
		agg:         agg,
		catalog:     cat,
		deduper:     dedupe.NewInMemoryDeduper(),
		tolerance:   defaultTolerance,
		lockTimeout: defaultLockTimeout,
		sessions:    make(map[string]*session),
		logger:      logger.Get().Named("gateway"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SetPublisher wires the broadcast path. Must be called before the first
// Submit that should fan out.
func (g *Gateway) SetPublisher(p Publisher) {
	g.publisher = p
}

// Submit validates one event draft and, if accepted, assigns the next
// sequence number for its game, persists the event, applies it to the
// running state and queues the delta for broadcast. Exactly one state
// update and at most one broadcast happen per accepted event.
func (g *Gateway) Submit(ctx context.Context, draft model.EventDraft) (SubmitResult, error) {
	if err := validateDraft(draft); err != nil {
		metrics.RecordEventRejected(ReasonOf(err))
		return SubmitResult{}, err
	}

	info, ok := g.catalog.Game(ctx, draft.GameID)
	if !ok {
		metrics.RecordEventRejected(ReasonOf(ErrUnknownGame))
		return SubmitResult{}, ErrUnknownGame
	}
	if !draft.Type.Control() {
		if _, rostered := info.Roster[draft.PlayerID]; !rostered {
			metrics.RecordEventRejected(ReasonOf(ErrUnknownPlayer))
			return SubmitResult{}, ErrUnknownPlayer
		}
	}

	// Answer retried submissions from the idempotency cache without
	// consuming a new sequence number.
	if draft.DedupKey != "" {
		if seq, seen := g.deduper.Lookup(ctx, draft.DedupKey); seen {
			metrics.RecordEventDuplicate()
			return SubmitResult{Seq: seq, Duplicate: true}, nil
		}
	}

	sess, err := g.session(ctx, draft.GameID)
	if err != nil {
		return SubmitResult{}, err
	}

	if err := g.acquire(ctx, sess); err != nil {
		metrics.RecordEventRejected(ReasonOf(err))
		return SubmitResult{}, err
	}
	defer g.release(sess)

	// Re-check under the exclusive section: a retry racing its original
	// in-flight submission misses the lookup above, and both must not be
	// accepted. Keys are recorded inside this same section, so whichever
	// submission got here first has already recorded its key.
	if draft.DedupKey != "" {
		if seq, seen := g.deduper.Lookup(ctx, draft.DedupKey); seen {
			metrics.RecordEventDuplicate()
			return SubmitResult{Seq: seq, Duplicate: true}, nil
		}
	}

	seq, delta, err := g.accept(ctx, sess, draft)
	if err != nil {
		metrics.RecordEventRejected(ReasonOf(err))
		return SubmitResult{}, err
	}

	metrics.RecordEventAccepted()
	if delta.Type == model.StatGameStart || delta.Terminal() {
		metrics.UpdateLiveGames(g.liveGames())
	}

	// Publishing before the slot is released keeps deltas in sequence
	// order per game. Publish only enqueues into the game's outbox; the
	// fan-out to subscribers happens on the broadcaster's pump, so slow
	// subscribers cannot stall ingestion here.
	if g.publisher != nil {
		g.publisher.Publish(ctx, delta)
	}

	// A finished game takes no more writes; drop its session rather than
	// holding one state copy per finished game forever. Readers rebuild
	// it from the log on demand.
	if delta.Terminal() {
		g.retireSession(draft.GameID)
	}

	return SubmitResult{Seq: seq}, nil
}

func (g *Gateway) retireSession(gameID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.sessions, gameID)
}

// accept runs inside the per-game exclusive section.
func (g *Gateway) accept(ctx context.Context, sess *session, draft model.EventDraft) (uint64, *model.Delta, error) {
	state := sess.state

	if state.Status == model.StatusFinished {
		return 0, nil, ErrGameClosed
	}
	if !draft.Type.Control() && state.Status != model.StatusLive {
		return 0, nil, ErrGameNotLive
	}
	if draft.Timestamp.Before(state.LastTimestamp.Add(-g.tolerance)) {
		return 0, nil, ErrStaleEvent
	}

	ev := model.StatEvent{
		GameID:    draft.GameID,
		PlayerID:  draft.PlayerID,
		Type:      draft.Type,
		Value:     draft.Value,
		Timestamp: draft.Timestamp,
		Seq:       state.LastSeq + 1,
		DedupKey:  draft.DedupKey,
	}

	appendStart := time.Now()
	if err := g.store.Append(ctx, ev); err != nil {
		// No sequence number was consumed; the caller may retry the
		// identical payload.
		return 0, nil, fmt.Errorf("%w: append seq %d", ErrStorageUnavailable, ev.Seq)
	}
	metrics.RecordAppendLatency(float64(time.Since(appendStart).Milliseconds()))

	applyStart := time.Now()
	sess.stateMu.Lock()
	delta, err := g.agg.Apply(state, ev)
	sess.stateMu.Unlock()
	metrics.RecordApplyLatency(float64(time.Since(applyStart).Milliseconds()))
	if err != nil {
		// Cannot happen after the checks above; if it does, the log has
		// an event the state refused, which replay would refuse too.
		g.logger.Error(ctx, "apply failed after append",
			logger.String("game_id", ev.GameID),
			logger.Uint64("seq", ev.Seq),
			logger.Error(err),
		)
		return 0, nil, mapAggregateErr(err)
	}

	if ev.DedupKey != "" {
		g.deduper.Record(ctx, ev.DedupKey, ev.Seq)
	}

	return ev.Seq, delta, nil
}

// Snapshot returns a consistent copy of the game's current state: it
// reflects every applied event up to and including LastSeq and nothing
// partial beyond it.
func (g *Gateway) Snapshot(ctx context.Context, gameID string) (*model.GameState, error) {
	if _, ok := g.catalog.Game(ctx, gameID); !ok {
		return nil, ErrUnknownGame
	}

	sess, err := g.session(ctx, gameID)
	if err != nil {
		return nil, err
	}

	sess.stateMu.RLock()
	defer sess.stateMu.RUnlock()
	return sess.state.Clone(), nil
}

// History returns the ordered event slice [fromSeq, toSeq] for a game;
// toSeq 0 reads to the end of the log.
func (g *Gateway) History(ctx context.Context, gameID string, fromSeq, toSeq uint64) ([]model.StatEvent, error) {
	if _, ok := g.catalog.Game(ctx, gameID); !ok {
		return nil, ErrUnknownGame
	}

	events, err := g.store.Read(ctx, gameID, fromSeq, toSeq)
	if err != nil {
		return nil, fmt.Errorf("%w: read history", ErrStorageUnavailable)
	}
	return events, nil
}

// session returns the single-writer session for gameID, rebuilding its
// state from the event log on first use. Replaying the log is what makes
// restarts safe: the rebuilt state equals the live one event for event.
func (g *Gateway) session(ctx context.Context, gameID string) (*session, error) {
	g.mu.Lock()
	if sess, ok := g.sessions[gameID]; ok {
		g.mu.Unlock()
		return sess, nil
	}
	g.mu.Unlock()

	events, err := g.store.Read(ctx, gameID, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: read log for recovery", ErrStorageUnavailable)
	}
	state, err := g.agg.Replay(gameID, events)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", gameID, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if sess, ok := g.sessions[gameID]; ok {
		return sess, nil // lost the race; the other replay wins
	}
	sess := &session{
		slot:  make(chan struct{}, 1),
		state: state,
	}
	g.sessions[gameID] = sess
	return sess, nil
}

// acquire takes the per-game exclusive slot, giving up after the
// configured timeout rather than queuing indefinitely.
func (g *Gateway) acquire(ctx context.Context, sess *session) error {
	timer := time.NewTimer(g.lockTimeout)
	defer timer.Stop()

	select {
	case sess.slot <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrIngestionTimeout
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrIngestionTimeout, ctx.Err())
	}
}

func (g *Gateway) release(sess *session) {
	<-sess.slot
}

// liveGames counts sessions currently in the LIVE state.
func (g *Gateway) liveGames() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := 0
	for _, sess := range g.sessions {
		sess.stateMu.RLock()
		if sess.state.Status == model.StatusLive {
			n++
		}
		sess.stateMu.RUnlock()
	}
	return n
}

// validateDraft checks shape and physical consistency before any lookup.
func validateDraft(draft model.EventDraft) error {
	switch {
	case strings.TrimSpace(draft.GameID) == "":
		return fmt.Errorf("%w: missing game_id", ErrValidation)
	case !draft.Type.Valid():
		return fmt.Errorf("%w: unknown stat type %q", ErrValidation, draft.Type)
	case draft.Timestamp.IsZero():
		return fmt.Errorf("%w: missing timestamp", ErrValidation)
	}

	if draft.Type.Control() {
		if draft.PlayerID != "" {
			return fmt.Errorf("%w: control events carry no player_id", ErrValidation)
		}
	} else if strings.TrimSpace(draft.PlayerID) == "" {
		return fmt.Errorf("%w: missing player_id", ErrValidation)
	}

	if !draft.Type.ValidValue(draft.Value) {
		return fmt.Errorf("%w: %q cannot have value %d", ErrInvalidValue, draft.Type, draft.Value)
	}
	return nil
}

// mapAggregateErr translates aggregator sentinels into the public taxonomy.
func mapAggregateErr(err error) error {
	switch err {
	case aggregate.ErrGameClosed:
		return ErrGameClosed
	case aggregate.ErrNotLive, aggregate.ErrNotScheduled:
		return ErrGameNotLive
	case aggregate.ErrUnknownSide:
		return ErrUnknownPlayer
	default:
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
}
