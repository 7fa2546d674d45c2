package automod

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Mitake-ktm/Tsukihane/internal/config"
	"github.com/Mitake-ktm/Tsukihane/internal/modules/antispam"
	"github.com/Mitake-ktm/Tsukihane/internal/modules/audit"
	"github.com/Mitake-ktm/Tsukihane/internal/modules/blacklist"
	"github.com/Mitake-ktm/Tsukihane/internal/platform/platformtest"
	"github.com/Mitake-ktm/Tsukihane/internal/storage"
	"github.com/Mitake-ktm/Tsukihane/internal/utils"

	"go.uber.org/zap"
)

type fakeTimer struct{ fn func() }

func (t *fakeTimer) Stop() bool { return true }

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
	delays []time.Duration
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) AfterFunc(d time.Duration, fn func()) utils.Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{fn: fn}
	f.timers = append(f.timers, t)
	f.delays = append(f.delays, d)
	return t
}

func (f *fakeClock) Fire() {
	f.mu.Lock()
	pending := f.timers
	f.timers = nil
	f.mu.Unlock()
	for _, timer := range pending {
		timer.fn()
	}
}

type fixture struct {
	pipeline *Pipeline
	store    *storage.Store
	recorder *platformtest.Recorder
	clock    *fakeClock
}

func newFixture(t *testing.T, mutate func(*config.ModerationConfig)) fixture {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := config.DefaultConfig().Moderation
	cfg.Blacklist = []string{"interdit"}
	if mutate != nil {
		mutate(&cfg)
	}
	logger := zap.NewNop()
	recorder := platformtest.NewRecorder()
	clock := &fakeClock{now: time.UnixMilli(1_000_000)}
	pipeline := New(cfg, blacklist.New(cfg.Blacklist, store, logger), antispam.NewTracker(cfg.AntiSpam), audit.NewLogger(store, logger), recorder, logger).WithClock(clock)
	return fixture{pipeline: pipeline, store: store, recorder: recorder, clock: clock}
}

func message(content string, at time.Time) Message {
	return Message{GuildID: "g1", ChannelID: "c1", MessageID: "m1", AuthorID: "u1", Content: content, Now: at}
}

func TestBlacklistDeletesWarnsAndRecords(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	result, err := f.pipeline.Process(ctx, message("un mot INTERDIT", f.clock.now))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !result.Moderated || result.Rule != RuleBlacklist || result.Reason != "Mot interdit: interdit" {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(f.recorder.Deleted) != 1 || f.recorder.Deleted[0] != "c1/m1" {
		t.Fatalf("expected original deleted, got %v", f.recorder.Deleted)
	}
	if len(f.recorder.Sent) != 1 || !strings.Contains(f.recorder.Sent[0].Message.Content, "mot interdit") {
		t.Fatalf("expected warning, got %+v", f.recorder.Sent)
	}
	if len(f.clock.delays) != 1 || f.clock.delays[0] != 5*time.Second {
		t.Fatalf("expected warning cleanup after 5s, got %v", f.clock.delays)
	}
	f.clock.Fire()
	if f.recorder.DeletedCount() != 2 || f.recorder.Deleted[1] != "c1/"+f.recorder.Sent[0].MessageID {
		t.Fatalf("expected warning deleted, got %v", f.recorder.Deleted)
	}

	actions, err := f.store.ListModActions(ctx, "g1", time.Time{})
	if err != nil {
		t.Fatalf("list actions: %v", err)
	}
	if len(actions) != 1 || actions[0].ModeratorID != "SYSTEM" || actions[0].Action != "AUTO_DELETE" {
		t.Fatalf("unexpected actions %+v", actions)
	}
}

func TestFirstMatchWins(t *testing.T) {
	f := newFixture(t, nil)

	result, err := f.pipeline.Process(context.Background(), message("CE MOT EST INTERDIT", f.clock.now))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if result.Rule != RuleBlacklist {
		t.Fatalf("expected blacklist to win over caps, got %s", result.Rule)
	}
	if f.pipeline.spam.Len() != 0 {
		t.Fatalf("spam tracker must not see messages stopped by the blacklist")
	}
}

func TestDuplicateSpam(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	var result Result
	for i := 0; i < 3; i++ {
		var err error
		result, err = f.pipeline.Process(ctx, message("salut", f.clock.now.Add(time.Duration(i)*6*time.Second)))
		if err != nil {
			t.Fatalf("process: %v", err)
		}
		if i < 2 && result.Moderated {
			t.Fatalf("message %d: unexpected moderation", i+1)
		}
	}
	if !result.Moderated || result.Rule != RuleSpam || result.Reason != "Spam détecté" {
		t.Fatalf("expected spam on third duplicate, got %+v", result)
	}
}

func TestCapsAbuse(t *testing.T) {
	f := newFixture(t, nil)

	short, err := f.pipeline.Process(context.Background(), message("ABCDEFGHI", f.clock.now))
	if err != nil || short.Moderated {
		t.Fatalf("expected nine capitals to pass, got %+v %v", short, err)
	}
	long, err := f.pipeline.Process(context.Background(), message("ABCDEFGHIJ", f.clock.now.Add(10*time.Second)))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !long.Moderated || long.Rule != RuleCaps || long.Reason != "Abus de majuscules" {
		t.Fatalf("expected caps moderation, got %+v", long)
	}
}

func TestSkippedAuthors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	bypass := message("interdit", f.clock.now)
	bypass.HasBypass = true
	bot := message("interdit", f.clock.now)
	bot.IsBot = true
	dm := message("interdit", f.clock.now)
	dm.GuildID = ""

	for _, msg := range []Message{bypass, bot, dm} {
		result, err := f.pipeline.Process(ctx, msg)
		if err != nil || result.Moderated {
			t.Fatalf("expected %+v to be skipped, got %+v %v", msg, result, err)
		}
	}
	if len(f.recorder.Deleted) != 0 {
		t.Fatalf("expected no deletions, got %v", f.recorder.Deleted)
	}
}

func TestDisabledChecks(t *testing.T) {
	f := newFixture(t, func(cfg *config.ModerationConfig) {
		cfg.AntiSpam.Enabled = false
		cfg.CapsDetection.Enabled = false
	})
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		result, err := f.pipeline.Process(ctx, message("CRIER TRES FORT", f.clock.now))
		if err != nil || result.Moderated {
			t.Fatalf("message %d: expected disabled checks to pass, got %+v %v", i+1, result, err)
		}
	}
}

func TestPlatformFailuresAreSwallowed(t *testing.T) {
	f := newFixture(t, nil)
	f.recorder.Fail = true

	result, err := f.pipeline.Process(context.Background(), message("interdit", f.clock.now))
	if err != nil {
		t.Fatalf("expected platform failures to be swallowed, got %v", err)
	}
	if !result.Moderated {
		t.Fatalf("expected moderation despite platform failures")
	}
	if len(f.clock.delays) != 0 {
		t.Fatalf("did not expect a cleanup timer without a warning")
	}
	actions, _ := f.store.ListModActions(context.Background(), "g1", time.Time{})
	if len(actions) != 1 {
		t.Fatalf("expected record to be written, got %d", len(actions))
	}
}

func TestEvictIdle(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.pipeline.Process(context.Background(), message("bonjour", f.clock.now)); err != nil {
		t.Fatalf("process: %v", err)
	}
	if evicted := f.pipeline.EvictIdle(f.clock.now.Add(11 * time.Minute)); evicted != 1 {
		t.Fatalf("expected one idle member evicted, got %d", evicted)
	}
}
