package storage

import (
	"context"
	"strings"
	"time"
)

func (s *Store) AddBlacklistWord(ctx context.Context, guildID, word, addedBy string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO blacklist_words (guild_id, word, added_by, created_at)
		VALUES (?, ?, ?, ?)
	`, guildID, strings.ToLower(word), addedBy, time.Now().UnixMilli())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *Store) RemoveBlacklistWord(ctx context.Context, guildID, word string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM blacklist_words WHERE guild_id = ? AND word = ?`, guildID, strings.ToLower(word))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *Store) ListBlacklist(ctx context.Context, guildID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT word FROM blacklist_words WHERE guild_id = ? ORDER BY created_at, word`, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var words []string
	for rows.Next() {
		var word string
		if err := rows.Scan(&word); err != nil {
			return nil, err
		}
		words = append(words, word)
	}
	return words, rows.Err()
}
