package antispam

import (
	"testing"
	"time"

	"github.com/Mitake-ktm/Tsukihane/internal/config"
)

func defaultTracker() *Tracker {
	return NewTracker(config.DefaultConfig().Moderation.AntiSpam)
}

func TestFloodWithinWindow(t *testing.T) {
	tracker := defaultTracker()
	start := time.UnixMilli(1_000_000)

	for i := 0; i < 4; i++ {
		if v := tracker.Check("g1", "u1", string(rune('a'+i)), start.Add(time.Duration(i)*500*time.Millisecond)); v.Spam() {
			t.Fatalf("message %d: unexpected spam %+v", i+1, v)
		}
	}
	v := tracker.Check("g1", "u1", "e", start.Add(2*time.Second))
	if !v.Flood || v.Messages != 5 {
		t.Fatalf("expected flood on fifth message, got %+v", v)
	}
}

func TestWindowExpiresOldMessages(t *testing.T) {
	tracker := defaultTracker()
	start := time.UnixMilli(1_000_000)

	for i := 0; i < 4; i++ {
		tracker.Check("g1", "u1", string(rune('a'+i)), start)
	}
	// Exactly one window later the first four no longer count.
	v := tracker.Check("g1", "u1", "e", start.Add(5*time.Second))
	if v.Flood || v.Messages != 1 {
		t.Fatalf("expected old messages to expire, got %+v", v)
	}
}

func TestDuplicateCounterResets(t *testing.T) {
	tracker := defaultTracker()
	at := time.UnixMilli(1_000_000)
	step := func() time.Time {
		at = at.Add(6 * time.Second)
		return at
	}

	if v := tracker.Check("g1", "u1", "same", step()); v.Spam() {
		t.Fatalf("unexpected spam on first message")
	}
	if v := tracker.Check("g1", "u1", "same", step()); v.Spam() {
		t.Fatalf("unexpected spam on second duplicate")
	}
	if v := tracker.Check("g1", "u1", "same", step()); !v.Duplicate || v.Duplicates != 3 {
		t.Fatalf("expected duplicate spam on third message, got %+v", v)
	}

	if v := tracker.Check("g1", "u1", "other", step()); v.Spam() || v.Duplicates != 1 {
		t.Fatalf("expected counter reset to 1, got %+v", v)
	}
	if v := tracker.Check("g1", "u1", "other", step()); v.Spam() || v.Duplicates != 2 {
		t.Fatalf("expected two duplicates without spam, got %+v", v)
	}
}

func TestTrackerKeyedByGuildAndUser(t *testing.T) {
	tracker := defaultTracker()
	now := time.UnixMilli(1_000_000)

	tracker.Check("g1", "u1", "same", now)
	tracker.Check("g1", "u1", "same", now)
	if v := tracker.Check("g2", "u1", "same", now); v.Spam() || v.Duplicates != 1 {
		t.Fatalf("expected separate state per guild, got %+v", v)
	}
}

func TestCapacityDropsLeastRecent(t *testing.T) {
	cfg := config.DefaultConfig().Moderation.AntiSpam
	cfg.MaxTrackedUsers = 2
	tracker := NewTracker(cfg)
	now := time.UnixMilli(1_000_000)

	tracker.Check("g1", "a", "x", now)
	tracker.Check("g1", "b", "x", now)
	tracker.Check("g1", "a", "y", now)
	tracker.Check("g1", "c", "x", now)

	if tracker.Len() != 2 {
		t.Fatalf("expected 2 tracked members, got %d", tracker.Len())
	}
	if v := tracker.Check("g1", "b", "x", now); v.Duplicates != 1 || v.Messages != 1 {
		t.Fatalf("expected b to have been evicted, got %+v", v)
	}
}

func TestEvictIdle(t *testing.T) {
	tracker := defaultTracker()
	start := time.UnixMilli(1_000_000)

	tracker.Check("g1", "old", "x", start)
	tracker.Check("g1", "fresh", "x", start.Add(9*time.Minute))

	evicted := tracker.EvictIdle(start.Add(11*time.Minute), 10*time.Minute)
	if evicted != 1 || tracker.Len() != 1 {
		t.Fatalf("expected one eviction, got %d (len %d)", evicted, tracker.Len())
	}
}
