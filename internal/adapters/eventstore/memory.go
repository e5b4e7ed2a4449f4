package eventstore

import (
	"context"
	"sync"

	"github.com/courtside/courtside/internal/domain/model"
)

// MemoryStore keeps per-game logs in process memory. It is the default
// backend and the reference implementation for the contiguity contract.
type MemoryStore struct {
	mu   sync.RWMutex
	logs map[string][]model.StatEvent
}

// NewMemoryStore creates an empty in-memory event store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		logs: make(map[string][]model.StatEvent),
	}
}

// Append persists one event, enforcing contiguous sequences per game.
func (s *MemoryStore) Append(_ context.Context, ev model.StatEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.logs[ev.GameID]
	if ev.Seq != uint64(len(log))+1 {
		return ErrSequenceGap
	}
	s.logs[ev.GameID] = append(log, ev)
	return nil
}

// Read returns the ordered slice [fromSeq, toSeq]; toSeq 0 reads to the end.
func (s *MemoryStore) Read(_ context.Context, gameID string, fromSeq, toSeq uint64) ([]model.StatEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.logs[gameID]
	last := uint64(len(log))
	if fromSeq == 0 {
		fromSeq = 1
	}
	if toSeq == 0 || toSeq > last {
		toSeq = last
	}
	if fromSeq > toSeq {
		return nil, nil
	}

	out := make([]model.StatEvent, toSeq-fromSeq+1)
	copy(out, log[fromSeq-1:toSeq])
	return out, nil
}

// LastSeq returns the highest appended sequence for gameID.
func (s *MemoryStore) LastSeq(_ context.Context, gameID string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.logs[gameID])), nil
}
