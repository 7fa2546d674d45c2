package antispam

import (
	"sync"
	"time"

	"github.com/Mitake-ktm/Tsukihane/internal/config"
	"github.com/Mitake-ktm/Tsukihane/internal/utils"

	lru "github.com/hashicorp/golang-lru/v2"
)

type Verdict struct {
	Flood      bool
	Duplicate  bool
	Messages   int
	Duplicates int
}

func (v Verdict) Spam() bool {
	return v.Flood || v.Duplicate
}

type entry struct {
	window      *utils.SlidingWindow
	lastContent string
	duplicates  int
	lastSeen    time.Time
}

const defaultMaxTracked = 10000

// Tracker keeps recent activity per guild member, bounded to MaxTrackedUsers
// with least recently active members dropped first.
type Tracker struct {
	mu      sync.Mutex
	config  config.AntiSpamConfig
	entries *lru.Cache[string, *entry]
}

func NewTracker(cfg config.AntiSpamConfig) *Tracker {
	size := cfg.MaxTrackedUsers
	if size <= 0 {
		size = defaultMaxTracked
	}
	// lru.New only fails on a non-positive size.
	entries, _ := lru.New[string, *entry](size)
	return &Tracker{config: cfg, entries: entries}
}

// Check records the message and reports whether it crosses either limit.
// The first message seen from a member never does.
func (t *Tracker) Check(guildID, userID, content string, now time.Time) Verdict {
	key := guildID + ":" + userID

	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.entries.Get(key); ok {
		e.lastSeen = now

		count := e.window.Add(now)
		if content == e.lastContent {
			e.duplicates++
		} else {
			e.duplicates = 1
		}
		e.lastContent = content

		return Verdict{
			Flood:      count >= t.config.MessageLimit,
			Duplicate:  e.duplicates >= t.config.DuplicateLimit,
			Messages:   count,
			Duplicates: e.duplicates,
		}
	}

	e := &entry{
		window:      utils.NewSlidingWindow(time.Duration(t.config.TimeWindowMs) * time.Millisecond),
		lastContent: content,
		duplicates:  1,
		lastSeen:    now,
	}
	e.window.Add(now)
	t.entries.Add(key, e)
	return Verdict{Messages: 1, Duplicates: 1}
}

// EvictIdle drops members not seen for longer than idle and returns how many went.
func (t *Tracker) EvictIdle(now time.Time, idle time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := now.Add(-idle)
	evicted := 0
	// Keys runs from least to most recently used.
	for _, key := range t.entries.Keys() {
		e, ok := t.entries.Peek(key)
		if !ok {
			continue
		}
		if e.lastSeen.After(cutoff) {
			break
		}
		t.entries.Remove(key)
		evicted++
	}
	return evicted
}

func (t *Tracker) Len() int {
	return t.entries.Len()
}
