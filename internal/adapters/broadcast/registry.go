// Package broadcast fans aggregated deltas out to live subscribers.
package broadcast

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/courtside/courtside/internal/domain/model"
	"github.com/courtside/courtside/pkg/metrics"
)

// MessageKind tags the payload of a live feed message.
type MessageKind string

const (
	// KindSnapshot carries the full game state; sent as the first message
	// to a new subscriber and again after a dropped delta.
	KindSnapshot MessageKind = "snapshot"
	// KindDelta carries one applied event's diff.
	KindDelta MessageKind = "delta"
	// KindFinal marks the game as finished; the last message of a feed.
	KindFinal MessageKind = "final"
)

// Message is the envelope written to a subscriber's channel.
type Message struct {
	Kind   MessageKind      `json:"kind"`
	GameID string           `json:"game_id"`
	Seq    uint64           `json:"seq"`
	State  *model.GameState `json:"state,omitempty"`
	Delta  *model.Delta     `json:"delta,omitempty"`
}

// Subscriber is one (connection, game) subscription with its own outbound
// buffer. Slow subscribers never block the fan-out; they fall behind and
// are resynced or disconnected per policy.
type Subscriber struct {
	ConnID   string
	GameID   string
	JoinedAt time.Time

	ch        chan Message
	closeOnce sync.Once

	// lastSeq is the highest sequence this subscriber has been sent,
	// either as a delta or as part of a snapshot.
	lastSeq atomic.Uint64
	// resync is set when a delta had to be dropped; the pump replaces the
	// gap with a fresh snapshot.
	resync atomic.Bool
}

// C returns the subscriber's receive channel. It is closed when the
// subscription ends.
func (s *Subscriber) C() <-chan Message {
	return s.ch
}

// LastSeq returns the highest sequence delivered to this subscriber.
func (s *Subscriber) LastSeq() uint64 {
	return s.lastSeq.Load()
}

func (s *Subscriber) close() {
	s.closeOnce.Do(func() { close(s.ch) })
}

// Registry tracks which connections watch which games. A connection may
// watch any number of games; each pair has exactly one Subscriber.
type Registry struct {
	mu     sync.RWMutex
	byGame map[string]map[string]*Subscriber // gameID -> connID -> sub
	byConn map[string]map[string]*Subscriber // connID -> gameID -> sub

	bufferSize int
}

// NewRegistry creates an empty registry. bufferSize is the per-subscriber
// channel capacity.
func NewRegistry(bufferSize int) *Registry {
	if bufferSize <= 0 {
		bufferSize = defaultSubscriberBuffer
	}
	return &Registry{
		byGame:     make(map[string]map[string]*Subscriber),
		byConn:     make(map[string]map[string]*Subscriber),
		bufferSize: bufferSize,
	}
}

// Subscribe registers connID for gameID and returns the subscription.
// Subscribing twice to the same pair returns the existing subscription.
func (r *Registry) Subscribe(connID, gameID string) *Subscriber {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conns, ok := r.byGame[gameID]; ok {
		if sub, ok := conns[connID]; ok {
			return sub
		}
	}

	sub := &Subscriber{
		ConnID:   connID,
		GameID:   gameID,
		JoinedAt: time.Now(),
		ch:       make(chan Message, r.bufferSize),
	}

	if r.byGame[gameID] == nil {
		r.byGame[gameID] = make(map[string]*Subscriber)
	}
	r.byGame[gameID][connID] = sub

	if r.byConn[connID] == nil {
		r.byConn[connID] = make(map[string]*Subscriber)
	}
	r.byConn[connID][gameID] = sub

	metrics.UpdateSubscriberCount(r.countLocked())
	return sub
}

// Unsubscribe removes one (connection, game) subscription and closes its
// channel. Unknown pairs are no-ops.
func (r *Registry) Unsubscribe(connID, gameID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(connID, gameID)
	metrics.UpdateSubscriberCount(r.countLocked())
}

// DropConnection removes every subscription held by connID. Called by the
// transport when a connection is lost.
func (r *Registry) DropConnection(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for gameID := range r.byConn[connID] {
		r.removeLocked(connID, gameID)
	}
	metrics.UpdateSubscriberCount(r.countLocked())
}

// SubscribersOf returns the current subscribers of gameID.
func (r *Registry) SubscribersOf(gameID string) []*Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := r.byGame[gameID]
	out := make([]*Subscriber, 0, len(conns))
	for _, sub := range conns {
		out = append(out, sub)
	}
	return out
}

// Count returns the total number of live subscriptions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.countLocked()
}

func (r *Registry) countLocked() int {
	n := 0
	for _, conns := range r.byGame {
		n += len(conns)
	}
	return n
}

func (r *Registry) removeLocked(connID, gameID string) {
	conns, ok := r.byGame[gameID]
	if !ok {
		return
	}
	sub, ok := conns[connID]
	if !ok {
		return
	}

	delete(conns, connID)
	if len(conns) == 0 {
		delete(r.byGame, gameID)
	}

	games := r.byConn[connID]
	delete(games, gameID)
	if len(games) == 0 {
		delete(r.byConn, connID)
	}

	sub.close()
}
