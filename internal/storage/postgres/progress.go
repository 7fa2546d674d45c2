// Package postgres keeps leveling progress in PostgreSQL for deployments
// that run several bot shards against one database.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Mitake-ktm/Tsukihane/internal/storage"
)

//go:embed schema.sql
var schema string

type ProgressStore struct {
	pool *pgxpool.Pool
}

func Connect(ctx context.Context, dsn string) (*ProgressStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	return &ProgressStore{pool: pool}, nil
}

func (s *ProgressStore) Close() {
	s.pool.Close()
}

func (s *ProgressStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

const progressColumns = `guild_id, user_id, xp, level, total_xp, last_xp_gain, message_count, version`

func scanProgress(row pgx.Row) (storage.UserProgress, error) {
	var p storage.UserProgress
	err := row.Scan(&p.GuildID, &p.UserID, &p.XP, &p.Level, &p.TotalXP, &p.LastXPGain, &p.MessageCount, &p.Version)
	return p, err
}

func (s *ProgressStore) GetProgress(ctx context.Context, guildID, userID string) (storage.UserProgress, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+progressColumns+` FROM user_progress WHERE guild_id = $1 AND user_id = $2`, guildID, userID)
	p, err := scanProgress(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.UserProgress{}, storage.ErrNotFound
	}
	return p, err
}

func (s *ProgressStore) EnsureProgress(ctx context.Context, guildID, userID string) (storage.UserProgress, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_progress (guild_id, user_id) VALUES ($1, $2)
		ON CONFLICT (guild_id, user_id) DO NOTHING
	`, guildID, userID)
	if err != nil {
		return storage.UserProgress{}, err
	}
	return s.GetProgress(ctx, guildID, userID)
}

func (s *ProgressStore) IncrementMessageCount(ctx context.Context, guildID, userID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE user_progress
		SET message_count = message_count + 1, version = version + 1, updated_at = now()
		WHERE guild_id = $1 AND user_id = $2
	`, guildID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *ProgressStore) SwapProgress(ctx context.Context, p storage.UserProgress) (storage.UserProgress, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE user_progress
		SET xp = $1, level = $2, total_xp = $3, last_xp_gain = $4, message_count = $5,
			version = version + 1, updated_at = now()
		WHERE guild_id = $6 AND user_id = $7 AND version = $8
	`, p.XP, p.Level, p.TotalXP, p.LastXPGain, p.MessageCount, p.GuildID, p.UserID, p.Version)
	if err != nil {
		return storage.UserProgress{}, err
	}
	if tag.RowsAffected() == 0 {
		return storage.UserProgress{}, storage.ErrVersionConflict
	}
	p.Version++
	return p, nil
}

func (s *ProgressStore) CountProgressAbove(ctx context.Context, guildID string, totalXP int64) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM user_progress WHERE guild_id = $1 AND total_xp > $2`, guildID, totalXP).Scan(&count)
	return count, err
}

func (s *ProgressStore) CountProgress(ctx context.Context, guildID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM user_progress WHERE guild_id = $1`, guildID).Scan(&count)
	return count, err
}

func (s *ProgressStore) Leaderboard(ctx context.Context, guildID string, limit, offset int) ([]storage.UserProgress, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+progressColumns+`
		FROM user_progress
		WHERE guild_id = $1
		ORDER BY total_xp DESC, seq ASC
		LIMIT $2 OFFSET $3
	`, guildID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.UserProgress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
