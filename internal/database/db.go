// Package database persists game history: one row per game and one row per
// engine event, in PostgreSQL (Store) or SQLite (SQLiteStore).
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/tripeaks/internal/game"
	"github.com/sirupsen/logrus"
)

// Game statuses.
const (
	StatusInProgress = "in_progress"
	StatusWon        = "won"
	StatusLost       = "lost"
	StatusAbandoned  = "abandoned"
)

// GameSummary is one row of the history listing.
type GameSummary struct {
	ID         uuid.UUID
	Status     string
	FinalScore *int
	Events     int
	StartTime  time.Time
	EndTime    *time.Time
}

// Connect opens a pgx pool for url and pings it.
func Connect(ctx context.Context, url string, logger *logrus.Logger) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("unable to parse pgx config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"host":     config.ConnConfig.Host,
		"database": config.ConnConfig.Database,
	}).Info("connected to database")
	return pool, nil
}

// terminalStatus maps a terminal event type to the game status it sets.
func terminalStatus(eventType string) (string, bool) {
	switch game.GameEventType(eventType) {
	case game.EventGameWon:
		return StatusWon, true
	case game.EventGameLost:
		return StatusLost, true
	}
	return "", false
}
