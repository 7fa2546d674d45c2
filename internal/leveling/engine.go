package leveling

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/Mitake-ktm/Tsukihane/internal/config"
	"github.com/Mitake-ktm/Tsukihane/internal/platform"
	"github.com/Mitake-ktm/Tsukihane/internal/storage"
	"github.com/Mitake-ktm/Tsukihane/internal/utils"

	"go.uber.org/zap"
)

var ErrInvalidInput = errors.New("leveling: invalid input")

const (
	MaxLevel        = 1000
	MaxLeaderboard  = 100
	maxSwapAttempts = 3
)

// Store is satisfied by both the SQLite store and the Postgres progress store.
type Store interface {
	GetProgress(ctx context.Context, guildID, userID string) (storage.UserProgress, error)
	EnsureProgress(ctx context.Context, guildID, userID string) (storage.UserProgress, error)
	IncrementMessageCount(ctx context.Context, guildID, userID string) error
	SwapProgress(ctx context.Context, p storage.UserProgress) (storage.UserProgress, error)
	CountProgressAbove(ctx context.Context, guildID string, totalXP int64) (int, error)
	CountProgress(ctx context.Context, guildID string) (int, error)
	Leaderboard(ctx context.Context, guildID string, limit, offset int) ([]storage.UserProgress, error)
}

// Award describes what a message or an admin override did to a member.
type Award struct {
	Awarded   bool
	XPGained  int64
	OldLevel  int
	NewLevel  int
	LeveledUp bool
	Progress  storage.UserProgress
}

type Engine struct {
	cfg       config.LevelingConfig
	formula   Formula
	store     Store
	messenger platform.Messenger
	clock     utils.Clock
	int64n    func(n int64) int64
	logger    *zap.Logger
}

func NewEngine(cfg config.LevelingConfig, store Store, messenger platform.Messenger, logger *zap.Logger) *Engine {
	return &Engine{
		cfg:       cfg,
		formula:   Formula{Base: cfg.LevelFormula.Base, Exponent: cfg.LevelFormula.Exponent},
		store:     store,
		messenger: messenger,
		clock:     utils.SystemClock(),
		int64n:    rand.Int64N,
		logger:    logger,
	}
}

func (e *Engine) WithClock(clock utils.Clock) *Engine {
	if clock != nil {
		e.clock = clock
	}
	return e
}

// WithRand pins the XP roll to src. The resulting engine must not award XP concurrently.
func (e *Engine) WithRand(src rand.Source) *Engine {
	e.int64n = rand.New(src).Int64N
	return e
}

func (e *Engine) Formula() Formula {
	return e.formula
}

// ProcessMessage runs the cooldown gate and, when eligible, awards XP.
func (e *Engine) ProcessMessage(ctx context.Context, guildID, userID, channelID string, now time.Time) (Award, error) {
	nowMs := now.UnixMilli()
	for attempt := 0; attempt < maxSwapAttempts; attempt++ {
		current, err := e.store.EnsureProgress(ctx, guildID, userID)
		if err != nil {
			return Award{}, fmt.Errorf("load progress: %w", err)
		}

		if nowMs-current.LastXPGain < e.cfg.XPCooldownMs {
			if err := e.store.IncrementMessageCount(ctx, guildID, userID); err != nil {
				return Award{}, fmt.Errorf("count message: %w", err)
			}
			current.MessageCount++
			current.Version++
			return Award{OldLevel: current.Level, NewLevel: current.Level, Progress: current}, nil
		}

		gain := e.rollXP(channelID)
		next := e.withTotal(current, current.TotalXP+gain)
		next.LastXPGain = nowMs
		next.MessageCount++

		saved, err := e.store.SwapProgress(ctx, next)
		if errors.Is(err, storage.ErrVersionConflict) {
			e.logger.Debug("progress changed concurrently, retrying", zap.String("guild_id", guildID), zap.String("user_id", userID), zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return Award{}, fmt.Errorf("save progress: %w", err)
		}
		return Award{
			Awarded:   true,
			XPGained:  gain,
			OldLevel:  current.Level,
			NewLevel:  saved.Level,
			LeveledUp: saved.Level > current.Level,
			Progress:  saved,
		}, nil
	}
	return Award{}, fmt.Errorf("save progress: %w", storage.ErrVersionConflict)
}

func (e *Engine) rollXP(channelID string) int64 {
	low := int64(e.cfg.XPPerMessage.Min)
	high := int64(e.cfg.XPPerMessage.Max)
	gain := low
	if high > low {
		gain += e.int64n(high - low + 1)
	}
	multiplier, ok := e.cfg.ChannelMultipliers[channelID]
	if !ok {
		multiplier = 1
	}
	return int64(math.Floor(float64(gain) * multiplier))
}

func (e *Engine) withTotal(p storage.UserProgress, total int64) storage.UserProgress {
	p.TotalXP = total
	p.Level = e.formula.LevelFromTotalXP(total)
	p.XP = e.formula.XPWithinLevel(total, p.Level)
	return p
}

// update applies mutate to a fresh copy of the record until the swap wins.
// A mutate error aborts without writing.
func (e *Engine) update(ctx context.Context, guildID, userID string, mutate func(storage.UserProgress) (storage.UserProgress, error)) (Award, error) {
	for attempt := 0; attempt < maxSwapAttempts; attempt++ {
		current, err := e.store.EnsureProgress(ctx, guildID, userID)
		if err != nil {
			return Award{}, fmt.Errorf("load progress: %w", err)
		}
		next, err := mutate(current)
		if err != nil {
			return Award{}, err
		}
		saved, err := e.store.SwapProgress(ctx, next)
		if errors.Is(err, storage.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return Award{}, fmt.Errorf("save progress: %w", err)
		}
		return Award{
			Awarded:   saved.TotalXP > current.TotalXP,
			XPGained:  saved.TotalXP - current.TotalXP,
			OldLevel:  current.Level,
			NewLevel:  saved.Level,
			LeveledUp: saved.Level > current.Level,
			Progress:  saved,
		}, nil
	}
	return Award{}, fmt.Errorf("save progress: %w", storage.ErrVersionConflict)
}

// SetLevel places the member at the start of level.
func (e *Engine) SetLevel(ctx context.Context, guildID, userID string, level int) (Award, error) {
	if level < 0 || level > MaxLevel {
		return Award{}, fmt.Errorf("%w: level must be between 0 and %d", ErrInvalidInput, MaxLevel)
	}
	total := e.formula.TotalXPForLevel(level)
	return e.update(ctx, guildID, userID, func(p storage.UserProgress) (storage.UserProgress, error) {
		p.Level = level
		p.TotalXP = total
		p.XP = 0
		return p, nil
	})
}

// MaxTotalXP is the largest total XP that still sits within MaxLevel.
func (e *Engine) MaxTotalXP() int64 {
	return e.formula.TotalXPForLevel(MaxLevel+1) - 1
}

// AddXP grants amount on top of the member's total. Grants that would carry
// the member past MaxLevel are rejected.
func (e *Engine) AddXP(ctx context.Context, guildID, userID string, amount int64) (Award, error) {
	if amount <= 0 {
		return Award{}, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	ceiling := e.MaxTotalXP()
	if amount > ceiling {
		return Award{}, fmt.Errorf("%w: amount exceeds %d", ErrInvalidInput, ceiling)
	}
	return e.update(ctx, guildID, userID, func(p storage.UserProgress) (storage.UserProgress, error) {
		if p.TotalXP > ceiling-amount {
			return p, fmt.Errorf("%w: total would pass level %d", ErrInvalidInput, MaxLevel)
		}
		return e.withTotal(p, p.TotalXP+amount), nil
	})
}

// ResetUser zeroes XP, level, total XP and the message count. Members without
// a record are left untouched.
func (e *Engine) ResetUser(ctx context.Context, guildID, userID string) (storage.UserProgress, error) {
	if _, err := e.store.GetProgress(ctx, guildID, userID); errors.Is(err, storage.ErrNotFound) {
		return storage.UserProgress{GuildID: guildID, UserID: userID}, nil
	} else if err != nil {
		return storage.UserProgress{}, fmt.Errorf("load progress: %w", err)
	}
	award, err := e.update(ctx, guildID, userID, func(p storage.UserProgress) (storage.UserProgress, error) {
		p.XP = 0
		p.Level = 0
		p.TotalXP = 0
		p.MessageCount = 0
		return p, nil
	})
	return award.Progress, err
}

// Progress returns the member's record, zeroed when none exists yet.
func (e *Engine) Progress(ctx context.Context, guildID, userID string) (storage.UserProgress, error) {
	p, err := e.store.GetProgress(ctx, guildID, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.UserProgress{GuildID: guildID, UserID: userID}, nil
	}
	return p, err
}

// Rank is 1 + the number of members with strictly more total XP, or 0 without a record.
func (e *Engine) Rank(ctx context.Context, guildID, userID string) (int, error) {
	p, err := e.store.GetProgress(ctx, guildID, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	above, err := e.store.CountProgressAbove(ctx, guildID, p.TotalXP)
	if err != nil {
		return 0, err
	}
	return above + 1, nil
}

func (e *Engine) Leaderboard(ctx context.Context, guildID string, limit, offset int) ([]storage.UserProgress, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > MaxLeaderboard {
		limit = MaxLeaderboard
	}
	if offset < 0 {
		return nil, fmt.Errorf("%w: negative offset", ErrInvalidInput)
	}
	return e.store.Leaderboard(ctx, guildID, limit, offset)
}

func (e *Engine) CountMembers(ctx context.Context, guildID string) (int, error) {
	return e.store.CountProgress(ctx, guildID)
}
