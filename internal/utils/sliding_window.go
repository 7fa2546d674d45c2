package utils

import (
	"sync"
	"time"
)

// SlidingWindow counts hits strictly younger than the window.
type SlidingWindow struct {
	mu     sync.Mutex
	window time.Duration
	hits   []time.Time
}

func NewSlidingWindow(window time.Duration) *SlidingWindow {
	return &SlidingWindow{window: window}
}

func (w *SlidingWindow) Add(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pruneLocked(now)
	w.hits = append(w.hits, now)
	return len(w.hits)
}

func (w *SlidingWindow) Count(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pruneLocked(now)
	return len(w.hits)
}

// Last returns the most recent hit, zero when empty.
func (w *SlidingWindow) Last() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.hits) == 0 {
		return time.Time{}
	}
	return w.hits[len(w.hits)-1]
}

func (w *SlidingWindow) pruneLocked(now time.Time) {
	cutoff := now.Add(-w.window)
	idx := 0
	for _, hit := range w.hits {
		if hit.After(cutoff) {
			break
		}
		idx++
	}
	w.hits = w.hits[idx:]
}
