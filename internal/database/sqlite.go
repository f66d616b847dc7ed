package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/tripeaks/internal/cache"
	_ "modernc.org/sqlite"
)

// timeFormat is fixed width so stored times sort as text.
const timeFormat = "2006-01-02T15:04:05.000Z"

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS games (
		id          TEXT PRIMARY KEY,
		status      TEXT NOT NULL DEFAULT 'in_progress',
		final_score INTEGER,
		start_time  TEXT NOT NULL,
		end_time    TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS game_events (
		game_id    TEXT NOT NULL REFERENCES games (id) ON DELETE CASCADE,
		seq        INTEGER NOT NULL,
		event_type TEXT NOT NULL,
		payload    TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (game_id, seq)
	)`,
	`CREATE INDEX IF NOT EXISTS games_start_time ON games (start_time)`,
}

// SQLiteStore writes history to a local SQLite file.
type SQLiteStore struct {
	sqlDB *sql.DB
}

// OpenSQLite opens (creating if needed) the history database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	dsn := cleanPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &SQLiteStore{sqlDB: sqlDB}
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) ensureSchema(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := s.sqlDB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// Close closes the underlying SQLite database.
func (s *SQLiteStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// WriteBatch persists records in one transaction, skipping ones already stored.
func (s *SQLiteStore) WriteBatch(ctx context.Context, records []cache.EventRecord) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	for _, rec := range records {
		if err := s.insertEventTx(ctx, tx, rec); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				return fmt.Errorf("tx rollback error: %v; original error: %w", rbErr, err)
			}
			return fmt.Errorf("write batch of %d: %w", len(records), err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) insertEventTx(ctx context.Context, tx *sql.Tx, rec cache.EventRecord) error {
	at := time.UnixMilli(rec.Timestamp).UTC().Format(timeFormat)
	id := rec.GameID.String()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO games (id, status, start_time) VALUES (?, 'in_progress', ?)
		ON CONFLICT (id) DO NOTHING`, id, at); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO game_events (game_id, seq, event_type, payload, created_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (game_id, seq) DO NOTHING`, id, rec.Seq, rec.EventType, string(rec.Payload), at); err != nil {
		return err
	}

	if status, ok := terminalStatus(rec.EventType); ok {
		var score sql.NullInt64
		if rec.Value != nil {
			score = sql.NullInt64{Int64: int64(*rec.Value), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE games SET status = ?, final_score = ?, end_time = ?
			WHERE id = ? AND status = 'in_progress'`, status, score, at, id); err != nil {
			return err
		}
	}
	return nil
}

// MarkAbandoned marks a game as 'abandoned' if it was still 'in_progress'.
func (s *SQLiteStore) MarkAbandoned(ctx context.Context, gameID uuid.UUID) error {
	_, err := s.sqlDB.ExecContext(ctx, `
		UPDATE games SET status = 'abandoned', end_time = ?
		WHERE id = ? AND status = 'in_progress'`,
		time.Now().UTC().Format(timeFormat), gameID.String())
	if err != nil {
		return fmt.Errorf("mark game %s abandoned: %w", gameID, err)
	}
	return nil
}

// RecentGames lists the latest games, newest first.
func (s *SQLiteStore) RecentGames(ctx context.Context, limit int) ([]GameSummary, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
		SELECT g.id, g.status, g.final_score, g.start_time, g.end_time,
		       (SELECT COUNT(*) FROM game_events e WHERE e.game_id = g.id)
		FROM games g
		ORDER BY g.start_time DESC, g.rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent games: %w", err)
	}
	defer rows.Close()

	var out []GameSummary
	for rows.Next() {
		var (
			id, status, start string
			score             sql.NullInt64
			end               sql.NullString
			g                 GameSummary
		)
		if err := rows.Scan(&id, &status, &score, &start, &end, &g.Events); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}

		if g.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse game id %q: %w", id, err)
		}
		g.Status = status
		if score.Valid {
			v := int(score.Int64)
			g.FinalScore = &v
		}
		if g.StartTime, err = time.Parse(timeFormat, start); err != nil {
			return nil, fmt.Errorf("parse start time: %w", err)
		}
		if end.Valid {
			t, err := time.Parse(timeFormat, end.String)
			if err != nil {
				return nil, fmt.Errorf("parse end time: %w", err)
			}
			g.EndTime = &t
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// GameEvents returns the stored event types of one game in sequence order.
func (s *SQLiteStore) GameEvents(ctx context.Context, gameID uuid.UUID) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
		SELECT event_type FROM game_events WHERE game_id = ? ORDER BY seq`, gameID.String())
	if err != nil {
		return nil, fmt.Errorf("query game events: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
