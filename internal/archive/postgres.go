// internal/archive/postgres.go

// Package archive persists finished and abandoned matches to Postgres. All
// writes happen off the room's mutation queue; a missing or slow database
// never affects live play.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// Store wraps the archive connection pool.
type Store struct {
	pool   *pgxpool.Pool
	logger *logrus.Logger
}

// MatchRecord is the archived summary of one room at teardown or GameEnd.
type MatchRecord struct {
	RoomID    string
	Status    string // "completed" or "abandoned"
	Winner    string // empty when abandoned before GameEnd
	RoundsWon map[string]int
	Snapshot  json.RawMessage // final broadcast snapshot
}

// Connect builds the pool from POSTGRES_USER, POSTGRES_PASSWORD, PG_HOST,
// PG_PORT and PG_DATABASE.
func Connect(ctx context.Context, logger *logrus.Logger) (*Store, error) {
	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		os.Getenv("POSTGRES_USER"),
		os.Getenv("POSTGRES_PASSWORD"),
		os.Getenv("PG_HOST"),
		os.Getenv("PG_PORT"),
		os.Getenv("PG_DATABASE"),
	)

	config, err := pgxpool.ParseConfig(connStr)
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
		return nil, fmt.Errorf("archive db ping error: %w", err)
	}
	return &Store{pool: pool, logger: logger}, nil
}

// RecordMatch upserts the match row, its final snapshot and per-player
// results in one transaction.
func (s *Store) RecordMatch(ctx context.Context, rec MatchRecord) error {
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		upsertMatch := `
			INSERT INTO matches (room_id, status, final_state, archived_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (room_id) DO UPDATE
			SET status = $2, final_state = $3, archived_at = now()
		`
		if _, e := tx.Exec(ctx, upsertMatch, rec.RoomID, rec.Status, rec.Snapshot); e != nil {
			return e
		}

		for playerID, roundsWon := range rec.RoundsWon {
			didWin := rec.Winner == playerID
			q := `
				INSERT INTO match_results (room_id, player_id, rounds_won, did_win)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (room_id, player_id)
				DO UPDATE SET rounds_won = $3, did_win = $4
			`
			if _, e := tx.Exec(ctx, q, rec.RoomID, playerID, roundsWon, didWin); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx upsert match or results: %w", err)
	}
	return nil
}

// RecordMatchAsync archives in the background. The record must already own
// its snapshot bytes; live game state is never referenced off-queue.
func (s *Store) RecordMatchAsync(rec MatchRecord) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.RecordMatch(ctx, rec); err != nil {
			s.logger.Warnf("failed to archive match for room %s: %v", rec.RoomID, err)
		}
	}()
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}
