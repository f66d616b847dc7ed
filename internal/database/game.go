// internal/database/game.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/tripeaks/internal/cache"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS games (
	id          UUID PRIMARY KEY,
	status      TEXT NOT NULL DEFAULT 'in_progress',
	final_score INTEGER,
	start_time  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	end_time    TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS game_events (
	game_id    UUID NOT NULL REFERENCES games (id) ON DELETE CASCADE,
	seq        INTEGER NOT NULL,
	event_type TEXT NOT NULL,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (game_id, seq)
);
`

// Store writes history to PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps an open pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the history tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, pgSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// WriteBatch persists records in a single transaction. Records already stored
// are skipped, so a batch may be retried.
func (s *Store) WriteBatch(ctx context.Context, records []cache.EventRecord) error {
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range records {
			if err := insertEventTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insertEventTx: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write batch of %d: %w", len(records), err)
	}
	return nil
}

// insertEventTx inserts a single record into game_events and upserts the game
// row if necessary. A terminal record finalizes the game.
func insertEventTx(ctx context.Context, tx pgx.Tx, rec cache.EventRecord) error {
	at := time.UnixMilli(rec.Timestamp).UTC()

	upsertGameQ := `
		INSERT INTO games (id, status, start_time)
		VALUES ($1, 'in_progress', $2)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := tx.Exec(ctx, upsertGameQ, rec.GameID, at); err != nil {
		return err
	}

	eventInsertQ := `
		INSERT INTO game_events (game_id, seq, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (game_id, seq) DO NOTHING
	`
	if _, err := tx.Exec(ctx, eventInsertQ, rec.GameID, rec.Seq, rec.EventType, []byte(rec.Payload), at); err != nil {
		return err
	}

	if status, ok := terminalStatus(rec.EventType); ok {
		finalizeQ := `
			UPDATE games
			SET status = $2, final_score = $3, end_time = $4
			WHERE id = $1 AND status = 'in_progress'
		`
		if _, err := tx.Exec(ctx, finalizeQ, rec.GameID, status, rec.Value, at); err != nil {
			return err
		}
	}
	return nil
}

// MarkAbandoned marks a game as 'abandoned' if it was still 'in_progress'.
func (s *Store) MarkAbandoned(ctx context.Context, gameID uuid.UUID) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			UPDATE games
			SET status = 'abandoned', end_time = NOW()
			WHERE id = $1 AND status = 'in_progress'
		`
		_, err := tx.Exec(ctx, q, gameID)
		return err
	})
}

// RecentGames lists the latest games, newest first.
func (s *Store) RecentGames(ctx context.Context, limit int) ([]GameSummary, error) {
	q := `
		SELECT g.id, g.status, g.final_score, g.start_time, g.end_time,
		       (SELECT COUNT(*) FROM game_events e WHERE e.game_id = g.id)
		FROM games g
		ORDER BY g.start_time DESC
		LIMIT $1
	`
	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent games: %w", err)
	}
	defer rows.Close()

	var out []GameSummary
	for rows.Next() {
		var g GameSummary
		if err := rows.Scan(&g.ID, &g.Status, &g.FinalScore, &g.StartTime, &g.EndTime, &g.Events); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
