// Package automod runs the ordered auto-moderation checks on inbound messages.
package automod

import (
	"context"
	"time"

	"github.com/Mitake-ktm/Tsukihane/internal/config"
	"github.com/Mitake-ktm/Tsukihane/internal/modules/antispam"
	"github.com/Mitake-ktm/Tsukihane/internal/modules/audit"
	"github.com/Mitake-ktm/Tsukihane/internal/modules/blacklist"
	"github.com/Mitake-ktm/Tsukihane/internal/modules/caps"
	"github.com/Mitake-ktm/Tsukihane/internal/platform"
	"github.com/Mitake-ktm/Tsukihane/internal/storage"
	"github.com/Mitake-ktm/Tsukihane/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	RuleBlacklist = "blacklist"
	RuleSpam      = "spam"
	RuleCaps      = "caps"
)

type Message struct {
	GuildID   string
	ChannelID string
	MessageID string
	AuthorID  string
	Content   string
	IsBot     bool
	HasBypass bool
	Now       time.Time
}

type Result struct {
	Moderated bool
	Rule      string
	Reason    string
}

type Pipeline struct {
	config    config.ModerationConfig
	blacklist *blacklist.Module
	spam      *antispam.Tracker
	caps      caps.Detector
	audit     *audit.Logger
	messenger platform.Messenger
	clock     utils.Clock
	logger    *zap.Logger
}

func New(cfg config.ModerationConfig, words *blacklist.Module, spam *antispam.Tracker, auditLogger *audit.Logger, messenger platform.Messenger, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		config:    cfg,
		blacklist: words,
		spam:      spam,
		caps:      caps.NewDetector(cfg.CapsDetection),
		audit:     auditLogger,
		messenger: messenger,
		clock:     utils.SystemClock(),
		logger:    logger,
	}
}

func (p *Pipeline) WithClock(clock utils.Clock) *Pipeline {
	if clock != nil {
		p.clock = clock
	}
	return p
}

// Process stops at the first rule that fires. Platform failures are swallowed;
// only a failed moderation record is returned as an error.
func (p *Pipeline) Process(ctx context.Context, msg Message) (Result, error) {
	if msg.IsBot || msg.GuildID == "" || msg.HasBypass {
		return Result{}, nil
	}
	now := msg.Now
	if now.IsZero() {
		now = p.clock.Now()
	}

	if word, ok := p.blacklist.Match(ctx, msg.GuildID, msg.Content); ok {
		return p.enforce(ctx, msg, RuleBlacklist, "ton message contenait un mot interdit.", "Mot interdit: "+word)
	}

	if p.config.AntiSpam.Enabled {
		if verdict := p.spam.Check(msg.GuildID, msg.AuthorID, msg.Content, now); verdict.Spam() {
			return p.enforce(ctx, msg, RuleSpam, "merci de ne pas spammer.", "Spam détecté")
		}
	}

	if p.config.CapsDetection.Enabled {
		if _, abusive := p.caps.Check(msg.Content); abusive {
			return p.enforce(ctx, msg, RuleCaps, "merci de ne pas abuser des majuscules.", "Abus de majuscules")
		}
	}

	return Result{}, nil
}

func (p *Pipeline) enforce(ctx context.Context, msg Message, rule, warning, reason string) (Result, error) {
	result := Result{Moderated: true, Rule: rule, Reason: reason}
	fields := []zap.Field{zap.String("guild_id", msg.GuildID), zap.String("user_id", msg.AuthorID), zap.String("channel_id", msg.ChannelID)}

	if err := p.messenger.DeleteMessage(msg.ChannelID, msg.MessageID); err != nil {
		p.logger.Debug("automod delete failed", append(fields, zap.Error(err))...)
	}

	sentID, err := p.messenger.SendMessage(msg.ChannelID, &discordgo.MessageSend{
		Content:         "⚠️ <@" + msg.AuthorID + ">, " + warning,
		AllowedMentions: &discordgo.MessageAllowedMentions{Users: []string{msg.AuthorID}},
	})
	if err != nil {
		p.logger.Debug("automod warning failed", append(fields, zap.Error(err))...)
	} else if ttl := time.Duration(p.config.WarningTTLSeconds) * time.Second; ttl > 0 {
		channelID := msg.ChannelID
		p.clock.AfterFunc(ttl, func() {
			_ = p.messenger.DeleteMessage(channelID, sentID)
		})
	}

	if _, err := p.audit.RecordAction(ctx, storage.ModAction{
		GuildID:     msg.GuildID,
		UserID:      msg.AuthorID,
		ModeratorID: audit.ActorSystem,
		Action:      audit.ActionAutoDelete,
		Reason:      reason,
		Details:     rule,
		CreatedAt:   msg.Now,
	}); err != nil {
		return result, err
	}
	return result, nil
}

// EvictIdle forwards to the spam tracker for the maintenance scheduler.
func (p *Pipeline) EvictIdle(now time.Time) int {
	idle := time.Duration(p.config.AntiSpam.IdleEvictSeconds) * time.Second
	if idle <= 0 {
		return 0
	}
	return p.spam.EvictIdle(now, idle)
}
