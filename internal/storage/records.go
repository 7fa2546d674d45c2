package storage

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ModAction struct {
	ID          string
	GuildID     string
	UserID      string
	ModeratorID string
	Action      string
	Reason      string
	Details     string
	CreatedAt   time.Time
}

type ServerLog struct {
	ID          string
	GuildID     string
	Type        string
	Category    string
	Severity    string
	ExecutorID  string
	TargetID    string
	ChannelID   string
	Description string
	Details     map[string]string
	CreatedAt   time.Time
}

type ServerLogFilter struct {
	Type     string
	Category string
	Since    time.Time
	Limit    int
}

const (
	SeverityInfo     = "INFO"
	SeverityWarning  = "WARNING"
	SeverityError    = "ERROR"
	SeverityCritical = "CRITICAL"
)

var errorLogTypes = map[string]struct{}{
	"MESSAGE_DELETE": {}, "MESSAGE_BULK_DELETE": {}, "CHANNEL_DELETE": {}, "ROLE_DELETE": {},
	"MEMBER_BAN": {}, "MEMBER_KICK": {}, "MEMBER_LEAVE": {}, "VOICE_DISCONNECT": {},
	"VOICE_SERVER_MUTE": {}, "VOICE_SERVER_DEAFEN": {}, "EMOJI_DELETE": {}, "STICKER_DELETE": {},
	"THREAD_DELETE": {}, "WEBHOOK_DELETE": {},
}

var warningLogTypes = map[string]struct{}{
	"MESSAGE_UPDATE": {}, "CHANNEL_UPDATE": {}, "ROLE_UPDATE": {}, "MEMBER_UPDATE": {},
	"MEMBER_TIMEOUT": {}, "GUILD_UPDATE": {}, "EMOJI_UPDATE": {}, "STICKER_UPDATE": {}, "THREAD_UPDATE": {},
}

// LogCategory derives the filter category from a server log type prefix.
func LogCategory(logType string) string {
	switch {
	case strings.HasPrefix(logType, "MESSAGE"):
		return "MESSAGE"
	case strings.HasPrefix(logType, "CHANNEL"):
		return "CHANNEL"
	case strings.HasPrefix(logType, "ROLE"):
		return "ROLE"
	case strings.HasPrefix(logType, "MEMBER"):
		return "MEMBER"
	case strings.HasPrefix(logType, "VOICE"):
		return "VOICE"
	case strings.HasPrefix(logType, "GUILD"), strings.HasPrefix(logType, "INVITE"):
		return "GUILD"
	case strings.HasPrefix(logType, "EMOJI"), strings.HasPrefix(logType, "STICKER"):
		return "EMOJI"
	case strings.HasPrefix(logType, "THREAD"):
		return "THREAD"
	case strings.HasPrefix(logType, "MODERATION"), strings.HasPrefix(logType, "AUTOMOD"):
		return "MODERATION"
	default:
		return "OTHER"
	}
}

func LogSeverity(logType string) string {
	if logType == "MODERATION_ACTION" || logType == "AUTOMOD_ACTION" {
		return SeverityCritical
	}
	if _, ok := errorLogTypes[logType]; ok {
		return SeverityError
	}
	if _, ok := warningLogTypes[logType]; ok {
		return SeverityWarning
	}
	return SeverityInfo
}

func (s *Store) AddModAction(ctx context.Context, action ModAction) (ModAction, error) {
	if action.ID == "" {
		action.ID = uuid.NewString()
	}
	if action.CreatedAt.IsZero() {
		action.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mod_actions (id, guild_id, user_id, moderator_id, action, reason, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, action.ID, action.GuildID, action.UserID, action.ModeratorID, action.Action, action.Reason, action.Details, action.CreatedAt.UnixMilli())
	if err != nil {
		return ModAction{}, err
	}
	return action, nil
}

func (s *Store) ListModActions(ctx context.Context, guildID string, since time.Time) ([]ModAction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guild_id, user_id, moderator_id, action, reason, details, created_at
		FROM mod_actions
		WHERE guild_id = ? AND created_at >= ?
		ORDER BY created_at DESC
	`, guildID, since.UnixMilli())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []ModAction
	for rows.Next() {
		var action ModAction
		var created int64
		if err := rows.Scan(&action.ID, &action.GuildID, &action.UserID, &action.ModeratorID, &action.Action, &action.Reason, &action.Details, &created); err != nil {
			return nil, err
		}
		action.CreatedAt = time.UnixMilli(created)
		actions = append(actions, action)
	}
	return actions, rows.Err()
}

func (s *Store) AddServerLog(ctx context.Context, log ServerLog) (ServerLog, error) {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	if log.Category == "" {
		log.Category = LogCategory(log.Type)
	}
	if log.Severity == "" {
		log.Severity = LogSeverity(log.Type)
	}
	details := "{}"
	if len(log.Details) > 0 {
		raw, err := json.Marshal(log.Details)
		if err != nil {
			return ServerLog{}, err
		}
		details = string(raw)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO server_logs (id, guild_id, type, category, severity, executor_id, target_id, channel_id, description, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, log.ID, log.GuildID, log.Type, log.Category, log.Severity, log.ExecutorID, log.TargetID, log.ChannelID, log.Description, details, log.CreatedAt.UnixMilli())
	if err != nil {
		return ServerLog{}, err
	}
	return log, nil
}

func (s *Store) ListServerLogs(ctx context.Context, guildID string, filter ServerLogFilter) ([]ServerLog, error) {
	query := `
		SELECT id, guild_id, type, category, severity, executor_id, target_id, channel_id, description, details, created_at
		FROM server_logs
		WHERE guild_id = ? AND created_at >= ?`
	args := []any{guildID, filter.Since.UnixMilli()}
	if filter.Type != "" {
		query += ` AND type = ?`
		args = append(args, filter.Type)
	}
	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []ServerLog
	for rows.Next() {
		var log ServerLog
		var details string
		var created int64
		if err := rows.Scan(&log.ID, &log.GuildID, &log.Type, &log.Category, &log.Severity, &log.ExecutorID, &log.TargetID, &log.ChannelID, &log.Description, &details, &created); err != nil {
			return nil, err
		}
		if details != "" && details != "{}" {
			_ = json.Unmarshal([]byte(details), &log.Details)
		}
		log.CreatedAt = time.UnixMilli(created)
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

// CleanupLogs drops moderation and server logs older than retentionDays.
func (s *Store) CleanupLogs(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays).UnixMilli()
	var total int64
	for _, table := range []string{"mod_actions", "server_logs"} {
		res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE created_at < ?`, cutoff)
		if err != nil {
			return total, err
		}
		if n, err := res.RowsAffected(); err == nil {
			total += n
		}
	}
	return total, nil
}
