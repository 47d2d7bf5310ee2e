// Package store persists level completions in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no completion exists for a player and level.
var ErrNotFound = errors.New("completion not found")

// Completion is the persisted sync status of one level for one player.
type Completion struct {
	PlayerID    string    `json:"playerId"`
	LevelID     string    `json:"levelId"`
	Completed   bool      `json:"completed"`
	CompletedAt time.Time `json:"completedAt"`
}

// Store manages the SQLite connection and schema.
type Store struct {
	db *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}
	return s, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS completions (
		player_id TEXT NOT NULL,
		level_id TEXT NOT NULL,
		completed INTEGER NOT NULL DEFAULT 0,
		completed_at INTEGER NOT NULL,
		PRIMARY KEY (player_id, level_id)
	);`)
	return err
}

// RecordCompletion marks the level as completed for the player. A repeated
// completion refreshes the timestamp.
func (s *Store) RecordCompletion(ctx context.Context, playerID, levelID string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	playerID = strings.TrimSpace(playerID)
	levelID = strings.TrimSpace(levelID)
	if playerID == "" {
		return fmt.Errorf("player id is required")
	}
	if levelID == "" {
		return fmt.Errorf("level id is required")
	}

	_, err := s.db.ExecContext(ctx, `
	INSERT INTO completions (player_id, level_id, completed, completed_at)
	VALUES (?, ?, 1, ?)
	ON CONFLICT(player_id, level_id) DO UPDATE SET
		completed = 1,
		completed_at = excluded.completed_at`,
		playerID, levelID, toMillis(at))
	if err != nil {
		return fmt.Errorf("record completion: %w", err)
	}
	return nil
}

// Completion returns the stored completion for the player and level.
func (s *Store) Completion(ctx context.Context, playerID, levelID string) (Completion, error) {
	if err := ctx.Err(); err != nil {
		return Completion{}, err
	}
	if s == nil || s.db == nil {
		return Completion{}, fmt.Errorf("storage is not configured")
	}

	var (
		completed int
		at        int64
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT completed, completed_at FROM completions WHERE player_id = ? AND level_id = ?`,
		playerID, levelID)
	if err := row.Scan(&completed, &at); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Completion{}, ErrNotFound
		}
		return Completion{}, fmt.Errorf("query completion: %w", err)
	}
	return Completion{
		PlayerID:    playerID,
		LevelID:     levelID,
		Completed:   completed != 0,
		CompletedAt: fromMillis(at),
	}, nil
}

// Completions lists every completion recorded for a player, oldest first.
func (s *Store) Completions(ctx context.Context, playerID string) ([]Completion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT level_id, completed, completed_at FROM completions
		WHERE player_id = ? ORDER BY completed_at, level_id`, playerID)
	if err != nil {
		return nil, fmt.Errorf("query completions: %w", err)
	}
	defer rows.Close()

	var out []Completion
	for rows.Next() {
		var (
			c         Completion
			completed int
			at        int64
		)
		if err := rows.Scan(&c.LevelID, &completed, &at); err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		c.PlayerID = playerID
		c.Completed = completed != 0
		c.CompletedAt = fromMillis(at)
		out = append(out, c)
	}
	return out, rows.Err()
}
