// internal/database/database.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/jason-s-yu/boardshow/internal/scores"
)

// DB is the shared pool. It stays nil when no database is configured.
var DB *pgxpool.Pool

// Connect opens the pool, pings it and ensures the schema exists.
func Connect(ctx context.Context, url string) error {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("ping database: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return err
	}
	DB = pool
	log.Infof("Connected to postgres")
	return nil
}

// Close releases the pool.
func Close() {
	if DB != nil {
		DB.Close()
		DB = nil
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS scores (
	channel    TEXT   NOT NULL,
	player_id  UUID   NOT NULL,
	name       TEXT   NOT NULL,
	money      BIGINT NOT NULL,
	booster    INT    NOT NULL,
	win_streak INT    NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (channel, player_id)
)`

// Migrate creates the scores table if it is missing.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate scores: %w", err)
	}
	return nil
}

// ScoreStore is one channel's score table.
type ScoreStore struct {
	pool    *pgxpool.Pool
	channel string
}

// NewScoreStore binds a store to channel.
func NewScoreStore(pool *pgxpool.Pool, channel string) *ScoreStore {
	return &ScoreStore{pool: pool, channel: channel}
}

// Lookup returns the stored row for id.
func (s *ScoreStore) Lookup(ctx context.Context, id uuid.UUID) (scores.Record, bool, error) {
	r := scores.Record{ID: id}
	err := s.pool.QueryRow(ctx,
		`SELECT name, money, booster, win_streak FROM scores WHERE channel = $1 AND player_id = $2`,
		s.channel, id,
	).Scan(&r.Name, &r.Money, &r.Booster, &r.WinStreak)
	if errors.Is(err, pgx.ErrNoRows) {
		return scores.Record{}, false, nil
	}
	if err != nil {
		return scores.Record{}, false, fmt.Errorf("lookup %s: %w", id, err)
	}
	return r, true, nil
}

// Load returns every row, richest first.
func (s *ScoreStore) Load(ctx context.Context) ([]scores.Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT player_id, name, money, booster, win_streak FROM scores WHERE channel = $1 ORDER BY money DESC`,
		s.channel)
	if err != nil {
		return nil, fmt.Errorf("load scores: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (scores.Record, error) {
		var r scores.Record
		err := row.Scan(&r.ID, &r.Name, &r.Money, &r.Booster, &r.WinStreak)
		return r, err
	})
}

// Save upserts recs in one batch.
func (s *ScoreStore) Save(ctx context.Context, recs []scores.Record) error {
	if len(recs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range recs {
		batch.Queue(`
			INSERT INTO scores (channel, player_id, name, money, booster, win_streak)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (channel, player_id) DO UPDATE
			SET name = EXCLUDED.name, money = EXCLUDED.money, booster = EXCLUDED.booster,
			    win_streak = EXCLUDED.win_streak, updated_at = now()`,
			s.channel, r.ID, r.Name, r.Money, r.Booster, r.WinStreak)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save %d scores: %w", len(recs), err)
	}
	return nil
}
