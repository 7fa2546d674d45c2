package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

var (
	ErrNotFound        = errors.New("storage: not found")
	ErrVersionConflict = errors.New("storage: version conflict")
)

type Store struct {
	db *sql.DB
}

type GuildSettings struct {
	GuildID      string
	LogChannelID string
	Language     string
	EmbedColor   int
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// One connection: SQLite serializes writers anyway and ":memory:" is per connection.
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

func (s *Store) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Migrate() error {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return err
	}

	var files []string
	for _, entry := range entries {
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := migrations.ReadFile(path.Join("migrations", file))
		if err != nil {
			return err
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			if isIgnorableMigrationError(err) {
				continue
			}
			return fmt.Errorf("migration %s failed: %w", file, err)
		}
	}
	return nil
}

func (s *Store) GetGuildSettings(ctx context.Context, guildID string, defaults GuildSettings) (GuildSettings, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT log_channel_id, language, embed_color
		FROM guild_settings WHERE guild_id = ?`, guildID)

	result := defaults
	result.GuildID = guildID

	err := row.Scan(&result.LogChannelID, &result.Language, &result.EmbedColor)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return result, nil
		}
		return GuildSettings{}, err
	}
	if result.Language == "" {
		result.Language = defaults.Language
	}
	if result.LogChannelID == "" {
		result.LogChannelID = defaults.LogChannelID
	}
	if result.EmbedColor == 0 {
		result.EmbedColor = defaults.EmbedColor
	}
	return result, nil
}

func (s *Store) UpsertGuildSettings(ctx context.Context, settings GuildSettings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO guild_settings (guild_id, log_channel_id, language, embed_color)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			log_channel_id = excluded.log_channel_id,
			language = excluded.language,
			embed_color = excluded.embed_color
	`, settings.GuildID, settings.LogChannelID, settings.Language, settings.EmbedColor)
	return err
}

func isIgnorableMigrationError(err error) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	return strings.Contains(message, "duplicate column name") || strings.Contains(message, "already exists")
}
