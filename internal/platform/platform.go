// Package platform is the outbound side of the bot: every call the core makes
// against Discord goes through Messenger so engines can run without a gateway.
package platform

import (
	"slices"
	"time"

	"github.com/bwmarrin/discordgo"
)

type Messenger interface {
	DeleteMessage(channelID, messageID string) error
	SendMessage(channelID string, msg *discordgo.MessageSend) (string, error)
	SendDirectMessage(userID string, msg *discordgo.MessageSend) error
	AddMemberRole(guildID, userID, roleID string) error
	MemberHasRole(guildID, userID, roleID string) bool
	RoleExists(guildID, roleID string) bool
	AddReaction(channelID, messageID, emoji string) error
	TimeoutMember(guildID, userID string, until time.Time) error
}

type Discord struct {
	session *discordgo.Session
}

func NewDiscord(session *discordgo.Session) *Discord {
	return &Discord{session: session}
}

func (d *Discord) DeleteMessage(channelID, messageID string) error {
	return d.session.ChannelMessageDelete(channelID, messageID)
}

func (d *Discord) SendMessage(channelID string, msg *discordgo.MessageSend) (string, error) {
	sent, err := d.session.ChannelMessageSendComplex(channelID, msg)
	if err != nil {
		return "", err
	}
	return sent.ID, nil
}

func (d *Discord) SendDirectMessage(userID string, msg *discordgo.MessageSend) error {
	channel, err := d.session.UserChannelCreate(userID)
	if err != nil {
		return err
	}
	_, err = d.session.ChannelMessageSendComplex(channel.ID, msg)
	return err
}

func (d *Discord) AddMemberRole(guildID, userID, roleID string) error {
	return d.session.GuildMemberRoleAdd(guildID, userID, roleID)
}

func (d *Discord) MemberHasRole(guildID, userID, roleID string) bool {
	member, err := d.session.State.Member(guildID, userID)
	if err != nil {
		member, err = d.session.GuildMember(guildID, userID)
		if err != nil {
			return false
		}
	}
	return slices.Contains(member.Roles, roleID)
}

func (d *Discord) RoleExists(guildID, roleID string) bool {
	if roleID == "" {
		return false
	}
	if _, err := d.session.State.Role(guildID, roleID); err == nil {
		return true
	}
	roles, err := d.session.GuildRoles(guildID)
	if err != nil {
		return false
	}
	for _, role := range roles {
		if role.ID == roleID {
			return true
		}
	}
	return false
}

func (d *Discord) AddReaction(channelID, messageID, emoji string) error {
	return d.session.MessageReactionAdd(channelID, messageID, emoji)
}

func (d *Discord) TimeoutMember(guildID, userID string, until time.Time) error {
	return d.session.GuildMemberTimeout(guildID, userID, &until)
}
