package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Mitake-ktm/Tsukihane/internal/storage"

	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestRecordActionMirrorsServerLog(t *testing.T) {
	store := newTestStore(t)
	logger := NewLogger(store, zap.NewNop())
	var notified []storage.ServerLog
	logger.SetNotifier(func(_ context.Context, entry storage.ServerLog) {
		notified = append(notified, entry)
	})
	ctx := context.Background()

	saved, err := logger.RecordAction(ctx, storage.ModAction{GuildID: "g1", UserID: "u1", ModeratorID: ActorSystem, Action: ActionAutoDelete, Reason: "Spam détecté"})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if saved.ID == "" {
		t.Fatalf("expected id")
	}

	logs, err := store.ListServerLogs(ctx, "g1", storage.ServerLogFilter{Since: time.Now().Add(-time.Hour)})
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	if len(logs) != 1 || logs[0].Type != TypeAutomod || logs[0].Details["mod_action_id"] != saved.ID {
		t.Fatalf("unexpected logs %+v", logs)
	}
	if len(notified) != 1 || notified[0].Severity != storage.SeverityCritical {
		t.Fatalf("expected critical notification, got %+v", notified)
	}
}

func TestWarnRecordsWarningAndAction(t *testing.T) {
	store := newTestStore(t)
	logger := NewLogger(store, zap.NewNop())
	ctx := context.Background()

	warning, err := logger.Warn(ctx, "g1", "u1", "m1", "langage")
	if err != nil {
		t.Fatalf("warn: %v", err)
	}
	warnings, err := store.ListWarnings(ctx, "g1", "u1")
	if err != nil || len(warnings) != 1 || warnings[0].ID != warning.ID {
		t.Fatalf("expected stored warning, got %+v %v", warnings, err)
	}
	actions, err := store.ListModActions(ctx, "g1", time.Time{})
	if err != nil || len(actions) != 1 || actions[0].Action != ActionWarn {
		t.Fatalf("expected WARN action, got %+v %v", actions, err)
	}
	logs, err := store.ListServerLogs(ctx, "g1", storage.ServerLogFilter{Type: TypeModeration})
	if err != nil || len(logs) != 1 {
		t.Fatalf("expected moderation log, got %+v %v", logs, err)
	}
}

type failingStore struct {
	*storage.Store
}

func (failingStore) AddModAction(context.Context, storage.ModAction) (storage.ModAction, error) {
	return storage.ModAction{}, errors.New("db down")
}

func TestRecordActionPropagatesAppendFailure(t *testing.T) {
	logger := NewLogger(failingStore{Store: newTestStore(t)}, zap.NewNop())

	if _, err := logger.RecordAction(context.Background(), storage.ModAction{GuildID: "g1", UserID: "u1", ModeratorID: ActorSystem, Action: ActionAutoDelete}); err == nil {
		t.Fatalf("expected append failure")
	}
}
