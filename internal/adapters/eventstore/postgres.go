package eventstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/courtside/courtside/internal/domain/model"
)

const pgUniqueViolation = "23505"

// PostgresStore persists events in a stat_events table keyed by
// (game_id, seq). The primary key makes duplicate sequences impossible.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store over an existing connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// InitSchema creates the stat_events table when it does not exist.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS stat_events (
			game_id    TEXT        NOT NULL,
			seq        BIGINT      NOT NULL,
			player_id  TEXT        NOT NULL DEFAULT '',
			stat_type  TEXT        NOT NULL,
			value      INT         NOT NULL,
			ts         TIMESTAMPTZ NOT NULL,
			dedup_key  TEXT        NOT NULL DEFAULT '',
			PRIMARY KEY (game_id, seq)
		)`)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// Append inserts one event row.
func (s *PostgresStore) Append(ctx context.Context, ev model.StatEvent) error {
	last, err := s.LastSeq(ctx, ev.GameID)
	if err != nil {
		return err
	}
	if ev.Seq != last+1 {
		return ErrSequenceGap
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO stat_events (game_id, seq, player_id, stat_type, value, ts, dedup_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ev.GameID, ev.Seq, ev.PlayerID, string(ev.Type), ev.Value, ev.Timestamp, ev.DedupKey,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrSequenceGap
		}
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// Read returns the ordered [fromSeq, toSeq] slice; toSeq 0 reads to the end.
func (s *PostgresStore) Read(ctx context.Context, gameID string, fromSeq, toSeq uint64) ([]model.StatEvent, error) {
	if fromSeq == 0 {
		fromSeq = 1
	}

	rows, err := s.pool.Query(ctx, `
		SELECT game_id, seq, player_id, stat_type, value, ts, dedup_key
		FROM stat_events
		WHERE game_id = $1 AND seq >= $2 AND ($3 = 0 OR seq <= $3)
		ORDER BY seq`,
		gameID, fromSeq, toSeq,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var out []model.StatEvent
	for rows.Next() {
		var ev model.StatEvent
		var statType string
		if err := rows.Scan(&ev.GameID, &ev.Seq, &ev.PlayerID, &statType, &ev.Value, &ev.Timestamp, &ev.DedupKey); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		ev.Type = model.StatType(statType)
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return out, nil
}

// LastSeq returns the highest stored sequence for gameID.
func (s *PostgresStore) LastSeq(ctx context.Context, gameID string) (uint64, error) {
	var last uint64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM stat_events WHERE game_id = $1`,
		gameID,
	).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return last, nil
}
