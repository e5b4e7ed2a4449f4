package broadcast

import (
	"context"
	"sync"

	"github.com/courtside/courtside/internal/domain/model"
	"github.com/courtside/courtside/pkg/logger"
	"github.com/courtside/courtside/pkg/metrics"
)

// Default buffer sizes.
const (
	defaultSubscriberBuffer = 64
	defaultOutboxBuffer     = 1024
)

// BlockedPolicy selects what happens to a subscriber whose channel is full
// when a delta arrives.
type BlockedPolicy string

const (
	// PolicyResync drops the delta and schedules a fresh snapshot for
	// that subscriber, so it never observes a gap. The default.
	PolicyResync BlockedPolicy = "resync"
	// PolicyDisconnect closes the subscription instead.
	PolicyDisconnect BlockedPolicy = "disconnect"
)

// SnapshotFunc returns a consistent state snapshot for catch-up delivery.
type SnapshotFunc func(ctx context.Context, gameID string) (*model.GameState, error)

// Broadcaster delivers deltas to subscribers in sequence order per game.
// Publish only enqueues into the game's outbox; a per-game pump goroutine
// does the fan-out so slow subscribers cannot stall ingestion.
type Broadcaster struct {
	registry *Registry
	snapshot SnapshotFunc
	policy   BlockedPolicy

	outboxBuffer int

	mu       sync.Mutex
	outboxes map[string]chan *model.Delta
	stopped  bool
	wg       sync.WaitGroup

	logger logger.Logger
}

// New creates a Broadcaster over registry, using snapshot for catch-up
// and resync messages.
func New(registry *Registry, snapshot SnapshotFunc, opts ...Option) *Broadcaster {
	b := &Broadcaster{
		registry:     registry,
		snapshot:     snapshot,
		policy:       PolicyResync,
		outboxBuffer: defaultOutboxBuffer,
		outboxes:     make(map[string]chan *model.Delta),
		logger:       logger.Get().Named("broadcast"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a subscription and queues its catch-up snapshot as
// the first message. The snapshot reflects every event applied so far;
// deltas at or below its sequence are skipped for this subscriber.
func (b *Broadcaster) Subscribe(ctx context.Context, connID, gameID string) (*Subscriber, error) {
	state, err := b.snapshot(ctx, gameID)
	if err != nil {
		return nil, err
	}

	sub := b.registry.Subscribe(connID, gameID)
	sub.lastSeq.Store(state.LastSeq)
	select {
	case sub.ch <- Message{
		Kind:   KindSnapshot,
		GameID: gameID,
		Seq:    state.LastSeq,
		State:  state,
	}:
	default:
		// Duplicate subscribe with a full buffer; the pump will resync.
		sub.resync.Store(true)
	}
	return sub, nil
}

// Unsubscribe ends one subscription.
func (b *Broadcaster) Unsubscribe(connID, gameID string) {
	b.registry.Unsubscribe(connID, gameID)
}

// DropConnection ends every subscription of a lost connection.
func (b *Broadcaster) DropConnection(connID string) {
	b.registry.DropConnection(connID)
}

// Publish enqueues one delta for fan-out. Callers invoke it once per
// accepted event, in sequence order per game; that order is preserved all
// the way to each subscriber. Publish never blocks on subscribers.
func (b *Broadcaster) Publish(ctx context.Context, delta *model.Delta) {
	out := b.outbox(ctx, delta.GameID)
	if out == nil {
		return // stopped
	}

	select {
	case out <- delta:
	default:
		// Outbox overflow: subscribers of this game would miss the delta,
		// so force them all onto the snapshot path.
		metrics.RecordBroadcastDrop()
		for _, sub := range b.registry.SubscribersOf(delta.GameID) {
			sub.resync.Store(true)
		}
		b.logger.Warn(ctx, "outbox overflow, scheduling resync",
			logger.String("game_id", delta.GameID),
			logger.Uint64("seq", delta.Seq),
		)
	}
}

// Stop closes all outboxes and waits for the pumps to drain.
func (b *Broadcaster) Stop() {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.stopped = true
	for _, out := range b.outboxes {
		close(out)
	}
	b.mu.Unlock()

	b.wg.Wait()
}

// outbox returns the delta queue for gameID, starting its pump on first use.
func (b *Broadcaster) outbox(ctx context.Context, gameID string) chan *model.Delta {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stopped {
		return nil
	}
	out, ok := b.outboxes[gameID]
	if !ok {
		out = make(chan *model.Delta, b.outboxBuffer)
		b.outboxes[gameID] = out
		b.wg.Add(1)
		go b.pump(context.WithoutCancel(ctx), gameID, out)
	}
	return out
}

// pump drains one game's outbox, delivering each delta to every current
// subscriber in order. It retires itself after the terminal delta: no
// further deltas are accepted for a finished game, so keeping the
// goroutine and outbox alive would only leak them.
func (b *Broadcaster) pump(ctx context.Context, gameID string, out chan *model.Delta) {
	defer b.wg.Done()

	for delta := range out {
		for _, sub := range b.registry.SubscribersOf(gameID) {
			b.deliver(ctx, sub, delta)
		}
		if delta.Terminal() {
			b.retireOutbox(gameID, out)
			return
		}
	}
}

// retireOutbox removes a finished game's outbox so Stop will not close
// it a second time. A no-op when Stop already ran.
func (b *Broadcaster) retireOutbox(gameID string, out chan *model.Delta) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stopped {
		return
	}
	if cur, ok := b.outboxes[gameID]; ok && cur == out {
		delete(b.outboxes, gameID)
	}
}

// deliver sends one delta (or a replacement snapshot) to one subscriber.
func (b *Broadcaster) deliver(ctx context.Context, sub *Subscriber, delta *model.Delta) {
	// A hole between what the subscriber has seen and this delta means an
	// earlier delta was pumped before the subscription registered (or was
	// dropped); a fresh snapshot covers it either way.
	if !sub.resync.Load() && delta.Seq > sub.lastSeq.Load()+1 {
		sub.resync.Store(true)
	}

	if sub.resync.Load() {
		b.resyncSubscriber(ctx, sub)
		if sub.resync.Load() {
			return // still behind; this delta is covered by the next snapshot
		}
	}

	// Already covered by the catch-up snapshot or a resync.
	if delta.Seq <= sub.lastSeq.Load() {
		return
	}

	kind := KindDelta
	if delta.Terminal() {
		kind = KindFinal
	}
	msg := Message{
		Kind:   kind,
		GameID: delta.GameID,
		Seq:    delta.Seq,
		Delta:  delta,
	}

	select {
	case sub.ch <- msg:
		sub.lastSeq.Store(delta.Seq)
		metrics.RecordBroadcastDelivery()
	default:
		metrics.RecordBroadcastDrop()
		switch b.policy {
		case PolicyDisconnect:
			b.logger.Warn(ctx, "disconnecting blocked subscriber",
				logger.String("conn_id", sub.ConnID),
				logger.String("game_id", sub.GameID),
			)
			b.registry.Unsubscribe(sub.ConnID, sub.GameID)
		default:
			sub.resync.Store(true)
		}
	}
}

// resyncSubscriber replaces a gap with a fresh snapshot. The resync flag
// stays set if the snapshot cannot be fetched or delivered yet.
func (b *Broadcaster) resyncSubscriber(ctx context.Context, sub *Subscriber) {
	state, err := b.snapshot(ctx, sub.GameID)
	if err != nil {
		b.logger.Error(ctx, "resync snapshot failed",
			logger.String("game_id", sub.GameID),
			logger.Error(err),
		)
		return
	}

	msg := Message{
		Kind:   KindSnapshot,
		GameID: sub.GameID,
		Seq:    state.LastSeq,
		State:  state,
	}
	select {
	case sub.ch <- msg:
		sub.lastSeq.Store(state.LastSeq)
		sub.resync.Store(false)
		metrics.RecordBroadcastResync()
	default:
		// Channel still full; try again on the next delta.
	}
}
