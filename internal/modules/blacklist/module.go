package blacklist

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/cases"
)

var ErrEmptyWord = errors.New("blacklist: empty word")

type WordStore interface {
	ListBlacklist(ctx context.Context, guildID string) ([]string, error)
	AddBlacklistWord(ctx context.Context, guildID, word, addedBy string) (bool, error)
	RemoveBlacklistWord(ctx context.Context, guildID, word string) (bool, error)
}

type Module struct {
	static []string
	store  WordStore
	logger *zap.Logger

	loads singleflight.Group
	mu    sync.RWMutex
	guild map[string][]string
	// gen is bumped on every change so loads that started earlier are not cached.
	gen map[string]uint64
}

func New(static []string, store WordStore, logger *zap.Logger) *Module {
	m := &Module{store: store, logger: logger, guild: make(map[string][]string), gen: make(map[string]uint64)}
	for _, word := range static {
		if folded := fold(word); folded != "" {
			m.static = append(m.static, folded)
		}
	}
	return m
}

// Match reports the first blacklisted word contained in content.
func (m *Module) Match(ctx context.Context, guildID, content string) (string, bool) {
	if content == "" {
		return "", false
	}
	folded := fold(content)
	for _, word := range m.static {
		if strings.Contains(folded, word) {
			return word, true
		}
	}
	for _, word := range m.guildWords(ctx, guildID) {
		if strings.Contains(folded, word) {
			return word, true
		}
	}
	return "", false
}

// Words lists the static words followed by the guild's own.
func (m *Module) Words(ctx context.Context, guildID string) ([]string, error) {
	persisted, err := m.store.ListBlacklist(ctx, guildID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(m.static)+len(persisted))
	words := make([]string, 0, len(m.static)+len(persisted))
	for _, word := range append(append([]string{}, m.static...), persisted...) {
		if _, ok := seen[word]; ok {
			continue
		}
		seen[word] = struct{}{}
		words = append(words, word)
	}
	return words, nil
}

func (m *Module) AddWord(ctx context.Context, guildID, word, addedBy string) (bool, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return false, ErrEmptyWord
	}
	added, err := m.store.AddBlacklistWord(ctx, guildID, word, addedBy)
	if err != nil {
		return false, err
	}
	m.invalidate(guildID)
	return added, nil
}

func (m *Module) RemoveWord(ctx context.Context, guildID, word string) (bool, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return false, ErrEmptyWord
	}
	removed, err := m.store.RemoveBlacklistWord(ctx, guildID, word)
	if err != nil {
		return false, err
	}
	m.invalidate(guildID)
	return removed, nil
}

func (m *Module) guildWords(ctx context.Context, guildID string) []string {
	m.mu.RLock()
	words, ok := m.guild[guildID]
	m.mu.RUnlock()
	if ok {
		return words
	}

	loaded, err, _ := m.loads.Do(guildID, func() (any, error) {
		m.mu.RLock()
		gen := m.gen[guildID]
		m.mu.RUnlock()

		persisted, err := m.store.ListBlacklist(ctx, guildID)
		if err != nil {
			return nil, err
		}
		folded := make([]string, 0, len(persisted))
		for _, word := range persisted {
			if f := fold(word); f != "" {
				folded = append(folded, f)
			}
		}
		m.mu.Lock()
		if m.gen[guildID] == gen {
			m.guild[guildID] = folded
		}
		m.mu.Unlock()
		return folded, nil
	})
	if err != nil {
		// Static words still apply while the store is unavailable.
		m.logger.Warn("guild blacklist load failed", zap.String("guild_id", guildID), zap.Error(err))
		return nil
	}
	return loaded.([]string)
}

func (m *Module) invalidate(guildID string) {
	m.mu.Lock()
	m.gen[guildID]++
	delete(m.guild, guildID)
	m.mu.Unlock()
	m.loads.Forget(guildID)
}

func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}
