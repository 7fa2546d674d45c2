package audit

import (
	"context"
	"fmt"

	"github.com/Mitake-ktm/Tsukihane/internal/storage"

	"go.uber.org/zap"
)

const (
	ActorSystem = "SYSTEM"

	ActionAutoDelete = "AUTO_DELETE"
	ActionWarn       = "WARN"
	ActionMute       = "MUTE"
	ActionClearWarns = "CLEAR_WARNINGS"

	TypeAutomod    = "AUTOMOD_ACTION"
	TypeModeration = "MODERATION_ACTION"
)

type Store interface {
	AddModAction(ctx context.Context, action storage.ModAction) (storage.ModAction, error)
	AddServerLog(ctx context.Context, log storage.ServerLog) (storage.ServerLog, error)
	AddWarning(ctx context.Context, guildID, userID, moderatorID, reason string) (storage.Warning, error)
}

type Logger struct {
	store  Store
	logger *zap.Logger
	notify func(context.Context, storage.ServerLog)
}

func NewLogger(store Store, logger *zap.Logger) *Logger {
	return &Logger{store: store, logger: logger}
}

// SetNotifier is called with every server log after it is stored.
func (l *Logger) SetNotifier(notify func(context.Context, storage.ServerLog)) {
	l.notify = notify
}

// RecordAction appends a moderation action. A failed append is returned; the
// mirrored server log entry is best-effort.
func (l *Logger) RecordAction(ctx context.Context, action storage.ModAction) (storage.ModAction, error) {
	saved, err := l.store.AddModAction(ctx, action)
	if err != nil {
		return storage.ModAction{}, fmt.Errorf("append mod action: %w", err)
	}
	l.logger.Info("audit",
		zap.String("guild_id", saved.GuildID),
		zap.String("user_id", saved.UserID),
		zap.String("moderator_id", saved.ModeratorID),
		zap.String("action", saved.Action),
		zap.String("reason", saved.Reason),
	)

	logType := TypeModeration
	if saved.ModeratorID == ActorSystem {
		logType = TypeAutomod
	}
	details := map[string]string{"action": saved.Action, "mod_action_id": saved.ID}
	if saved.Details != "" {
		details["details"] = saved.Details
	}
	if _, err := l.Event(ctx, storage.ServerLog{
		GuildID:     saved.GuildID,
		Type:        logType,
		ExecutorID:  saved.ModeratorID,
		TargetID:    saved.UserID,
		Description: saved.Reason,
		Details:     details,
		CreatedAt:   saved.CreatedAt,
	}); err != nil {
		l.logger.Warn("server log append failed", zap.String("guild_id", saved.GuildID), zap.Error(err))
	}
	return saved, nil
}

func (l *Logger) Warn(ctx context.Context, guildID, userID, moderatorID, reason string) (storage.Warning, error) {
	warning, err := l.store.AddWarning(ctx, guildID, userID, moderatorID, reason)
	if err != nil {
		return storage.Warning{}, fmt.Errorf("append warning: %w", err)
	}
	_, err = l.RecordAction(ctx, storage.ModAction{
		GuildID:     guildID,
		UserID:      userID,
		ModeratorID: moderatorID,
		Action:      ActionWarn,
		Reason:      reason,
		Details:     warning.ID,
	})
	return warning, err
}

// Event appends a server log and forwards it to the notifier.
func (l *Logger) Event(ctx context.Context, entry storage.ServerLog) (storage.ServerLog, error) {
	saved, err := l.store.AddServerLog(ctx, entry)
	if err != nil {
		return storage.ServerLog{}, err
	}
	if l.notify != nil {
		l.notify(ctx, saved)
	}
	l.logger.Debug("server log", zap.String("guild_id", saved.GuildID), zap.String("type", saved.Type), zap.String("severity", saved.Severity))
	return saved, nil
}
