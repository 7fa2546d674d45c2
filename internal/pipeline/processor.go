// Package pipeline is the single entry point for inbound chat messages.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Mitake-ktm/Tsukihane/internal/config"
	"github.com/Mitake-ktm/Tsukihane/internal/leveling"
	"github.com/Mitake-ktm/Tsukihane/internal/modules/automod"
	"github.com/Mitake-ktm/Tsukihane/internal/platform"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
)

type Message struct {
	GuildID   string
	ChannelID string
	MessageID string
	AuthorID  string
	Username  string
	Content   string
	IsBot     bool
	HasBypass bool
	Now       time.Time
}

type Result struct {
	Moderated bool
	Rule      string
	Award     leveling.Award
	Reaction  string
}

type Processor struct {
	automod   *automod.Pipeline
	leveling  *leveling.Engine
	levelOn   bool
	reactions []config.KeywordReaction
	messenger platform.Messenger
	logger    *zap.Logger
}

func NewProcessor(moderation *automod.Pipeline, engine *leveling.Engine, cfg config.Config, messenger platform.Messenger, logger *zap.Logger) *Processor {
	reactions := make([]config.KeywordReaction, 0, len(cfg.Reactions))
	for _, reaction := range cfg.Reactions {
		folded := config.KeywordReaction{Emoji: reaction.Emoji}
		for _, keyword := range reaction.Keywords {
			folded.Keywords = append(folded.Keywords, cases.Fold().String(keyword))
		}
		reactions = append(reactions, folded)
	}
	return &Processor{
		automod:   moderation,
		leveling:  engine,
		levelOn:   cfg.Leveling.Enabled,
		reactions: reactions,
		messenger: messenger,
		logger:    logger,
	}
}

// OnMessage moderates the message and, if it survives, awards XP and reacts.
// Errors mean the moderation record or the progress write did not complete.
func (p *Processor) OnMessage(ctx context.Context, msg Message) (Result, error) {
	if msg.IsBot || msg.GuildID == "" {
		return Result{}, nil
	}
	if msg.Now.IsZero() {
		msg.Now = time.Now()
	}

	moderation, err := p.automod.Process(ctx, automod.Message{
		GuildID:   msg.GuildID,
		ChannelID: msg.ChannelID,
		MessageID: msg.MessageID,
		AuthorID:  msg.AuthorID,
		Content:   msg.Content,
		HasBypass: msg.HasBypass,
		Now:       msg.Now,
	})
	if err != nil {
		return Result{Moderated: moderation.Moderated, Rule: moderation.Rule}, fmt.Errorf("automod: %w", err)
	}
	if moderation.Moderated {
		return Result{Moderated: true, Rule: moderation.Rule}, nil
	}
	if strings.HasPrefix(msg.Content, "/") {
		return Result{}, nil
	}

	var result Result
	if p.levelOn {
		award, err := p.leveling.ProcessMessage(ctx, msg.GuildID, msg.AuthorID, msg.ChannelID, msg.Now)
		if err != nil {
			return Result{}, fmt.Errorf("leveling: %w", err)
		}
		result.Award = award
		if award.LeveledUp {
			p.leveling.HandleLevelUp(leveling.LevelUp{
				GuildID:   msg.GuildID,
				UserID:    msg.AuthorID,
				Username:  msg.Username,
				ChannelID: msg.ChannelID,
				Level:     award.NewLevel,
			})
		}
	}

	result.Reaction = p.react(msg)
	return result, nil
}

func (p *Processor) react(msg Message) string {
	if len(p.reactions) == 0 || msg.Content == "" {
		return ""
	}
	content := cases.Fold().String(msg.Content)
	for _, reaction := range p.reactions {
		for _, keyword := range reaction.Keywords {
			if keyword == "" || !strings.Contains(content, keyword) {
				continue
			}
			if err := p.messenger.AddReaction(msg.ChannelID, msg.MessageID, reaction.Emoji); err != nil {
				p.logger.Debug("keyword reaction failed", zap.String("channel_id", msg.ChannelID), zap.Error(err))
			}
			return reaction.Emoji
		}
	}
	return ""
}
