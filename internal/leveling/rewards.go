package leveling

import (
	"fmt"
	"sort"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const levelUpColor = 0x7F0799

var levelUpMessages = []string{
	"🎉 Félicitations ! Tu viens d'atteindre le niveau **%d** !",
	"🚀 Incroyable ! Tu es maintenant niveau **%d** !",
	"⭐ Bravo ! Tu as grimpé au niveau **%d** !",
	"🏆 Excellent travail ! Niveau **%d** atteint !",
}

type LevelUp struct {
	GuildID   string
	UserID    string
	Username  string
	ChannelID string
	Level     int
}

// HandleLevelUp announces the new level and grants rank roles. Delivery
// failures are logged and dropped.
func (e *Engine) HandleLevelUp(event LevelUp) []string {
	if e.messenger == nil {
		return nil
	}
	msg := e.levelUpMessage(event)
	if e.cfg.AnnounceInChannel && event.ChannelID != "" {
		msg.Content = "<@" + event.UserID + ">"
		msg.AllowedMentions = &discordgo.MessageAllowedMentions{Users: []string{event.UserID}}
		if _, err := e.messenger.SendMessage(event.ChannelID, msg); err != nil {
			e.logger.Debug("level up announcement failed", zap.String("guild_id", event.GuildID), zap.String("channel_id", event.ChannelID), zap.Error(err))
		}
	} else if err := e.messenger.SendDirectMessage(event.UserID, msg); err != nil {
		e.logger.Debug("level up dm failed", zap.String("guild_id", event.GuildID), zap.String("user_id", event.UserID), zap.Error(err))
	}
	return e.AssignRankRoles(event.GuildID, event.UserID, event.Level)
}

func (e *Engine) levelUpMessage(event LevelUp) *discordgo.MessageSend {
	text := levelUpMessages[e.int64n(int64(len(levelUpMessages)))]
	name := event.Username
	if name == "" {
		name = "<@" + event.UserID + ">"
	}
	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "🎊 Niveau Supérieur !",
			Description: fmt.Sprintf(text, event.Level),
			Color:       levelUpColor,
			Footer:      &discordgo.MessageEmbedFooter{Text: "Continue comme ça, " + name + " !"},
			Timestamp:   e.clock.Now().Format(time.RFC3339),
		}},
	}
}

// AssignRankRoles adds every configured rank role at or below level that the
// member does not hold yet. Roles are never removed.
func (e *Engine) AssignRankRoles(guildID, userID string, level int) []string {
	if e.messenger == nil {
		return nil
	}
	thresholds := make([]int, 0, len(e.cfg.RankRoles))
	for required := range e.cfg.RankRoles {
		thresholds = append(thresholds, required)
	}
	sort.Ints(thresholds)

	var added []string
	for _, required := range thresholds {
		if level < required {
			break
		}
		role := e.cfg.RankRoles[required]
		if role.RoleID == "" || !e.messenger.RoleExists(guildID, role.RoleID) {
			continue
		}
		if e.messenger.MemberHasRole(guildID, userID, role.RoleID) {
			continue
		}
		if err := e.messenger.AddMemberRole(guildID, userID, role.RoleID); err != nil {
			e.logger.Warn("rank role add failed", zap.String("guild_id", guildID), zap.String("user_id", userID), zap.String("role_id", role.RoleID), zap.Error(err))
			continue
		}
		added = append(added, role.RoleID)
	}
	return added
}
