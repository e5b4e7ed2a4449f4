package eventstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/courtside/courtside/internal/domain/model"
)

// RedisStore persists each game's log as a Redis stream. Stream entry IDs
// are "<seq>-0", so Redis itself refuses out-of-order appends and XRANGE
// reads come back in sequence order.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore creates a store over an existing client.
func NewRedisStore(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "courtside"
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix}
}

func (s *RedisStore) streamKey(gameID string) string {
	return fmt.Sprintf("%s:events:%s", s.keyPrefix, gameID)
}

// Append writes the event as a stream entry keyed by its sequence.
func (s *RedisStore) Append(ctx context.Context, ev model.StatEvent) error {
	last, err := s.LastSeq(ctx, ev.GameID)
	if err != nil {
		return err
	}
	if ev.Seq != last+1 {
		return ErrSequenceGap
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.streamKey(ev.GameID),
		ID:     fmt.Sprintf("%d-0", ev.Seq),
		Values: map[string]interface{}{"event": payload},
	}).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// Read fetches the [fromSeq, toSeq] slice via XRANGE.
func (s *RedisStore) Read(ctx context.Context, gameID string, fromSeq, toSeq uint64) ([]model.StatEvent, error) {
	if fromSeq == 0 {
		fromSeq = 1
	}
	start := fmt.Sprintf("%d-0", fromSeq)
	stop := "+"
	if toSeq > 0 {
		stop = fmt.Sprintf("%d-0", toSeq)
	}

	msgs, err := s.client.XRange(ctx, s.streamKey(gameID), start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	out := make([]model.StatEvent, 0, len(msgs))
	for _, msg := range msgs {
		raw, ok := msg.Values["event"].(string)
		if !ok {
			return nil, fmt.Errorf("%w: malformed stream entry %s", ErrStorageUnavailable, msg.ID)
		}
		var ev model.StatEvent
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			return nil, fmt.Errorf("decode stream entry %s: %w", msg.ID, err)
		}
		out = append(out, ev)
	}
	return out, nil
}

// LastSeq reads the ID of the newest stream entry.
func (s *RedisStore) LastSeq(ctx context.Context, gameID string) (uint64, error) {
	msgs, err := s.client.XRevRangeN(ctx, s.streamKey(gameID), "+", "-", 1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if len(msgs) == 0 {
		return 0, nil
	}

	var seq uint64
	if _, err := fmt.Sscanf(msgs[0].ID, "%d-0", &seq); err != nil {
		return 0, fmt.Errorf("%w: malformed stream ID %s", ErrStorageUnavailable, msgs[0].ID)
	}
	return seq, nil
}
