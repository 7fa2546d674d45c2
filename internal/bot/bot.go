package bot

import (
	"context"
	"time"

	"github.com/Mitake-ktm/Tsukihane/internal/config"
	"github.com/Mitake-ktm/Tsukihane/internal/leveling"
	"github.com/Mitake-ktm/Tsukihane/internal/modules/audit"
	"github.com/Mitake-ktm/Tsukihane/internal/modules/blacklist"
	"github.com/Mitake-ktm/Tsukihane/internal/pipeline"
	"github.com/Mitake-ktm/Tsukihane/internal/platform"
	"github.com/Mitake-ktm/Tsukihane/internal/storage"
	"github.com/Mitake-ktm/Tsukihane/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	colorPrimary  = 0x7F0799
	colorSuccess  = 0x57F287
	colorError    = 0xED4245
	colorInfo     = 0x3498DB
	colorWarning  = 0xF1C40F
	colorCritical = 0x992D22

	logMessageDelete = "MESSAGE_DELETE"
	logMemberJoin    = "MEMBER_JOIN"
	logMemberLeave   = "MEMBER_LEAVE"
)

type Deps struct {
	Store     *storage.Store
	Leveling  *leveling.Engine
	Blacklist *blacklist.Module
	Audit     *audit.Logger
	Processor *pipeline.Processor
	Messenger platform.Messenger
}

type Bot struct {
	cfg       config.Config
	logger    *zap.Logger
	store     *storage.Store
	leveling  *leveling.Engine
	blacklist *blacklist.Module
	audit     *audit.Logger
	processor *pipeline.Processor
	messenger platform.Messenger
	session   *discordgo.Session
	clock     utils.Clock
}

// NewSession opens nothing; it only prepares a session with the intents the bot reads.
func NewSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsMessageContent
	return session, nil
}

func New(cfg config.Config, logger *zap.Logger, session *discordgo.Session, deps Deps) *Bot {
	b := &Bot{
		cfg:       cfg,
		logger:    logger,
		store:     deps.Store,
		leveling:  deps.Leveling,
		blacklist: deps.Blacklist,
		audit:     deps.Audit,
		processor: deps.Processor,
		messenger: deps.Messenger,
		session:   session,
		clock:     utils.SystemClock(),
	}
	if b.audit != nil {
		b.audit.SetNotifier(b.notifyLog)
	}
	return b
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onMessageDelete)
	b.session.AddHandler(b.onGuildMemberAdd)
	b.session.AddHandler(b.onGuildMemberRemove)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	return b.registerCommands()
}

func (b *Bot) Close(ctx context.Context) {
	_ = ctx
	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready", zap.String("user", event.User.Username), zap.Int("guilds", len(event.Guilds)))
}

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.Author.Bot {
		return
	}
	if msg.GuildID == "" {
		return
	}

	ctx := context.Background()
	result, err := b.processor.OnMessage(ctx, pipeline.Message{
		GuildID:   msg.GuildID,
		ChannelID: msg.ChannelID,
		MessageID: msg.ID,
		AuthorID:  msg.Author.ID,
		Username:  msg.Author.Username,
		Content:   msg.Content,
		HasBypass: b.hasBypass(msg.GuildID, msg.Author.ID, msg.Member),
		Now:       b.clock.Now(),
	})
	if err != nil {
		b.logger.Error("message processing failed", zap.String("guild_id", msg.GuildID), zap.String("user_id", msg.Author.ID), zap.Error(err))
		return
	}
	if result.Moderated {
		b.logger.Debug("message moderated", zap.String("guild_id", msg.GuildID), zap.String("user_id", msg.Author.ID), zap.String("rule", result.Rule))
	}
}

func (b *Bot) onMessageDelete(session *discordgo.Session, event *discordgo.MessageDelete) {
	if event.GuildID == "" {
		return
	}
	entry := storage.ServerLog{
		GuildID:   event.GuildID,
		Type:      logMessageDelete,
		ChannelID: event.ChannelID,
		Details:   map[string]string{"message_id": event.ID},
	}
	lang := b.guildSettings(context.Background(), event.GuildID).Language
	entry.Description = b.t(lang, "log_message_deleted", event.ChannelID)
	if before := event.BeforeDelete; before != nil && before.Author != nil {
		if before.Author.Bot {
			return
		}
		entry.TargetID = before.Author.ID
		entry.Details["content"] = before.Content
	}
	b.recordEvent(entry)
}

func (b *Bot) onGuildMemberAdd(session *discordgo.Session, event *discordgo.GuildMemberAdd) {
	if event.Member == nil || event.User == nil || event.GuildID == "" {
		return
	}
	lang := b.guildSettings(context.Background(), event.GuildID).Language
	b.recordEvent(storage.ServerLog{
		GuildID:     event.GuildID,
		Type:        logMemberJoin,
		TargetID:    event.User.ID,
		Description: b.t(lang, "log_member_joined", "<@"+event.User.ID+">"),
		Details:     map[string]string{"username": event.User.Username},
	})
}

func (b *Bot) onGuildMemberRemove(session *discordgo.Session, event *discordgo.GuildMemberRemove) {
	if event.Member == nil || event.User == nil || event.GuildID == "" {
		return
	}
	lang := b.guildSettings(context.Background(), event.GuildID).Language
	b.recordEvent(storage.ServerLog{
		GuildID:     event.GuildID,
		Type:        logMemberLeave,
		TargetID:    event.User.ID,
		Description: b.t(lang, "log_member_left", "<@"+event.User.ID+">"),
		Details:     map[string]string{"username": event.User.Username},
	})
}

func (b *Bot) recordEvent(entry storage.ServerLog) {
	if b.audit == nil {
		return
	}
	if _, err := b.audit.Event(context.Background(), entry); err != nil {
		b.logger.Warn("server log failed", zap.String("guild_id", entry.GuildID), zap.String("type", entry.Type), zap.Error(err))
	}
}

// hasBypass reports whether the author may skip auto-moderation.
func (b *Bot) hasBypass(guildID, userID string, member *discordgo.Member) bool {
	if member == nil || b.session == nil || b.session.State == nil {
		return false
	}
	guild, err := b.session.State.Guild(guildID)
	if err != nil || guild == nil {
		return false
	}
	if guild.OwnerID == userID {
		return true
	}
	perms := memberPermissions(guild, member.Roles)
	return perms&(discordgo.PermissionAdministrator|discordgo.PermissionModerateMembers) != 0
}

// memberPermissions folds the @everyone role and the member's roles together.
func memberPermissions(guild *discordgo.Guild, roleIDs []string) int64 {
	if guild == nil {
		return 0
	}
	perms := int64(0)
	roleMap := make(map[string]*discordgo.Role, len(guild.Roles))
	for _, role := range guild.Roles {
		roleMap[role.ID] = role
		if role.ID == guild.ID {
			perms |= role.Permissions
		}
	}
	for _, roleID := range roleIDs {
		if role := roleMap[roleID]; role != nil {
			perms |= role.Permissions
		}
	}
	return perms
}

func (b *Bot) guildSettings(ctx context.Context, guildID string) storage.GuildSettings {
	defaults := storage.GuildSettings{
		GuildID:      guildID,
		LogChannelID: b.cfg.Moderation.LogChannelID,
		Language:     b.cfg.DefaultLanguage,
		EmbedColor:   colorPrimary,
	}
	if b.store == nil {
		return defaults
	}
	settings, err := b.store.GetGuildSettings(ctx, guildID, defaults)
	if err != nil {
		b.logger.Warn("guild settings fallback", zap.String("guild_id", guildID), zap.Error(err))
		return defaults
	}
	if settings.Language == "" {
		settings.Language = b.cfg.DefaultLanguage
	}
	if settings.LogChannelID == "" {
		settings.LogChannelID = b.cfg.Moderation.LogChannelID
	}
	return settings
}

// notifyLog mirrors a stored server log into the guild's log channel.
func (b *Bot) notifyLog(ctx context.Context, entry storage.ServerLog) {
	settings := b.guildSettings(ctx, entry.GuildID)
	if settings.LogChannelID == "" || b.messenger == nil {
		return
	}
	if entry.ChannelID == settings.LogChannelID && entry.Type == logMessageDelete {
		return
	}
	embed := b.logEmbed(settings.Language, entry)
	if _, err := b.messenger.SendMessage(settings.LogChannelID, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}}); err != nil {
		b.logger.Debug("log channel post failed", zap.String("guild_id", entry.GuildID), zap.String("channel_id", settings.LogChannelID), zap.Error(err))
	}
}

func (b *Bot) logEmbed(lang string, entry storage.ServerLog) *discordgo.MessageEmbed {
	var fields []*discordgo.MessageEmbedField
	if entry.ExecutorID != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: b.t(lang, "log_field_executor"), Value: mention(entry.ExecutorID), Inline: true})
	}
	if entry.TargetID != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: b.t(lang, "log_field_target"), Value: "<@" + entry.TargetID + ">", Inline: true})
	}
	if entry.ChannelID != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: b.t(lang, "log_field_channel"), Value: "<#" + entry.ChannelID + ">", Inline: true})
	}
	fields = append(fields, &discordgo.MessageEmbedField{Name: b.t(lang, "log_field_severity"), Value: entry.Severity, Inline: true})

	created := entry.CreatedAt
	if created.IsZero() {
		created = b.clock.Now()
	}
	return &discordgo.MessageEmbed{
		Title:       b.t(lang, "log_title", entry.Type),
		Description: entry.Description,
		Color:       severityColor(entry.Severity),
		Fields:      fields,
		Footer:      &discordgo.MessageEmbedFooter{Text: b.t(lang, "footer_brand")},
		Timestamp:   created.Format(time.RFC3339),
	}
}

func severityColor(severity string) int {
	switch severity {
	case storage.SeverityCritical:
		return colorCritical
	case storage.SeverityError:
		return colorError
	case storage.SeverityWarning:
		return colorWarning
	default:
		return colorInfo
	}
}

func mention(userID string) string {
	if userID == audit.ActorSystem {
		return userID
	}
	return "<@" + userID + ">"
}

func (b *Bot) respond(session *discordgo.Session, interaction *discordgo.InteractionCreate, data *discordgo.InteractionResponseData) {
	if data == nil {
		return
	}
	if err := session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}); err != nil {
		b.logger.Debug("interaction respond failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
	}
}

func (b *Bot) commandEmbed(title, description string, color int, fields []*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   b.clock.Now().Format(time.RFC3339),
		Fields:      fields,
	}
}

func embedReply(embed *discordgo.MessageEmbed, ephemeral bool) *discordgo.InteractionResponseData {
	data := &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return data
}
