package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// UserProgress is the leveling record of one member in one guild.
// LastXPGain is a unix timestamp in milliseconds.
type UserProgress struct {
	GuildID      string
	UserID       string
	XP           int64
	Level        int
	TotalXP      int64
	LastXPGain   int64
	MessageCount int64
	Version      int64
}

const progressColumns = `guild_id, user_id, xp, level, total_xp, last_xp_gain, message_count, version`

func scanProgress(row interface{ Scan(...any) error }) (UserProgress, error) {
	var p UserProgress
	err := row.Scan(&p.GuildID, &p.UserID, &p.XP, &p.Level, &p.TotalXP, &p.LastXPGain, &p.MessageCount, &p.Version)
	return p, err
}

func (s *Store) GetProgress(ctx context.Context, guildID, userID string) (UserProgress, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+progressColumns+` FROM user_progress WHERE guild_id = ? AND user_id = ?`, guildID, userID)
	p, err := scanProgress(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return UserProgress{}, ErrNotFound
		}
		return UserProgress{}, err
	}
	return p, nil
}

// EnsureProgress returns the record, creating a zeroed one on first sight.
func (s *Store) EnsureProgress(ctx context.Context, guildID, userID string) (UserProgress, error) {
	now := time.Now().UnixMilli()
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO user_progress (guild_id, user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, guildID, userID, now, now)
	if err != nil {
		return UserProgress{}, err
	}
	return s.GetProgress(ctx, guildID, userID)
}

func (s *Store) IncrementMessageCount(ctx context.Context, guildID, userID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE user_progress
		SET message_count = message_count + 1, version = version + 1, updated_at = ?
		WHERE guild_id = ? AND user_id = ?
	`, time.Now().UnixMilli(), guildID, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// SwapProgress writes p only if the stored version still equals p.Version.
func (s *Store) SwapProgress(ctx context.Context, p UserProgress) (UserProgress, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE user_progress
		SET xp = ?, level = ?, total_xp = ?, last_xp_gain = ?, message_count = ?,
			version = version + 1, updated_at = ?
		WHERE guild_id = ? AND user_id = ? AND version = ?
	`, p.XP, p.Level, p.TotalXP, p.LastXPGain, p.MessageCount, time.Now().UnixMilli(), p.GuildID, p.UserID, p.Version)
	if err != nil {
		return UserProgress{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return UserProgress{}, err
	}
	if n == 0 {
		return UserProgress{}, ErrVersionConflict
	}
	p.Version++
	return p, nil
}

func (s *Store) CountProgressAbove(ctx context.Context, guildID string, totalXP int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_progress WHERE guild_id = ? AND total_xp > ?`, guildID, totalXP).Scan(&count)
	return count, err
}

func (s *Store) CountProgress(ctx context.Context, guildID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_progress WHERE guild_id = ?`, guildID).Scan(&count)
	return count, err
}

// Leaderboard orders by total XP, ties in insertion order.
func (s *Store) Leaderboard(ctx context.Context, guildID string, limit, offset int) ([]UserProgress, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+progressColumns+`
		FROM user_progress
		WHERE guild_id = ?
		ORDER BY total_xp DESC, rowid ASC
		LIMIT ? OFFSET ?
	`, guildID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UserProgress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
