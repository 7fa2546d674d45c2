package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Warning struct {
	ID          string
	GuildID     string
	UserID      string
	ModeratorID string
	Reason      string
	CreatedAt   time.Time
}

func (s *Store) AddWarning(ctx context.Context, guildID, userID, moderatorID, reason string) (Warning, error) {
	warning := Warning{
		ID:          uuid.NewString(),
		GuildID:     guildID,
		UserID:      userID,
		ModeratorID: moderatorID,
		Reason:      reason,
		CreatedAt:   time.Now(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO warnings (id, guild_id, user_id, moderator_id, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, warning.ID, guildID, userID, moderatorID, reason, warning.CreatedAt.UnixMilli())
	if err != nil {
		return Warning{}, err
	}
	return warning, nil
}

// ListWarnings returns the member's warnings, newest first.
func (s *Store) ListWarnings(ctx context.Context, guildID, userID string) ([]Warning, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guild_id, user_id, moderator_id, reason, created_at
		FROM warnings
		WHERE guild_id = ? AND user_id = ?
		ORDER BY created_at DESC, rowid DESC
	`, guildID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var warnings []Warning
	for rows.Next() {
		var w Warning
		var created int64
		if err := rows.Scan(&w.ID, &w.GuildID, &w.UserID, &w.ModeratorID, &w.Reason, &created); err != nil {
			return nil, err
		}
		w.CreatedAt = time.UnixMilli(created)
		warnings = append(warnings, w)
	}
	return warnings, rows.Err()
}

func (s *Store) ClearWarnings(ctx context.Context, guildID, userID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM warnings WHERE guild_id = ? AND user_id = ?`, guildID, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
