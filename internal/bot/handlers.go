package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Mitake-ktm/Tsukihane/internal/leveling"
	"github.com/Mitake-ktm/Tsukihane/internal/modules/audit"
	"github.com/Mitake-ktm/Tsukihane/internal/modules/blacklist"
	"github.com/Mitake-ktm/Tsukihane/internal/storage"
	"github.com/Mitake-ktm/Tsukihane/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	leaderboardPageSize = 10
	maxListedWarnings   = 10
	maxMute             = 28 * 24 * time.Hour
)

type option = discordgo.ApplicationCommandInteractionDataOption

// invocation is the part of an interaction the command handlers read.
type invocation struct {
	guildID     string
	userID      string
	username    string
	permissions int64
	lang        string
	command     string
	sub         string
	options     map[string]*option
	resolved    *discordgo.ApplicationCommandInteractionDataResolved
}

func newInvocation(interaction *discordgo.InteractionCreate) invocation {
	data := interaction.ApplicationCommandData()
	inv := invocation{
		guildID:  interaction.GuildID,
		command:  data.Name,
		resolved: data.Resolved,
	}
	if member := interaction.Member; member != nil {
		inv.permissions = member.Permissions
		if member.User != nil {
			inv.userID = member.User.ID
			inv.username = member.User.Username
		}
	} else if interaction.User != nil {
		inv.userID = interaction.User.ID
		inv.username = interaction.User.Username
	}
	inv.sub, inv.options = flattenOptions(data.Options)
	return inv
}

// flattenOptions unwraps a single subcommand level and indexes options by name.
func flattenOptions(opts []*option) (string, map[string]*option) {
	sub := ""
	if len(opts) == 1 && opts[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		sub = opts[0].Name
		opts = opts[0].Options
	}
	indexed := make(map[string]*option, len(opts))
	for _, opt := range opts {
		indexed[opt.Name] = opt
	}
	return sub, indexed
}

func (inv invocation) user(name string) string {
	opt := inv.options[name]
	if opt == nil || opt.Type != discordgo.ApplicationCommandOptionUser {
		return ""
	}
	return opt.UserValue(nil).ID
}

func (inv invocation) integer(name string, fallback int64) int64 {
	opt := inv.options[name]
	if opt == nil || opt.Type != discordgo.ApplicationCommandOptionInteger {
		return fallback
	}
	return opt.IntValue()
}

func (inv invocation) str(name string) string {
	opt := inv.options[name]
	if opt == nil || opt.Type != discordgo.ApplicationCommandOptionString {
		return ""
	}
	return strings.TrimSpace(opt.StringValue())
}

func (inv invocation) boolean(name string) bool {
	opt := inv.options[name]
	if opt == nil || opt.Type != discordgo.ApplicationCommandOptionBoolean {
		return false
	}
	return opt.BoolValue()
}

func (inv invocation) isBot(userID string) bool {
	if inv.resolved == nil {
		return false
	}
	user := inv.resolved.Users[userID]
	return user != nil && user.Bot
}

func (inv invocation) has(perm int64) bool {
	return inv.permissions&(perm|discordgo.PermissionAdministrator) != 0
}

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}

	ctx := context.Background()
	inv := newInvocation(interaction)
	inv.lang = b.cfg.DefaultLanguage
	if inv.guildID != "" {
		inv.lang = b.guildSettings(ctx, inv.guildID).Language
	}
	b.respond(session, interaction, b.handleCommand(ctx, inv))
}

func (b *Bot) handleCommand(ctx context.Context, inv invocation) *discordgo.InteractionResponseData {
	if inv.guildID == "" {
		return b.errorReply(inv.lang, "error_only_guild")
	}
	switch inv.command {
	case "level":
		return b.handleLevel(ctx, inv)
	case "leaderboard":
		return b.handleLeaderboard(ctx, inv)
	case "filter":
		if !inv.has(discordgo.PermissionManageMessages) {
			return b.errorReply(inv.lang, "error_permission")
		}
		return b.handleFilter(ctx, inv)
	case "warn":
		if !inv.has(discordgo.PermissionModerateMembers) {
			return b.errorReply(inv.lang, "error_permission")
		}
		return b.handleWarn(ctx, inv)
	case "warnings":
		if !inv.has(discordgo.PermissionModerateMembers) {
			return b.errorReply(inv.lang, "error_permission")
		}
		return b.handleWarnings(ctx, inv)
	case "mute":
		if !inv.has(discordgo.PermissionModerateMembers) {
			return b.errorReply(inv.lang, "error_permission")
		}
		return b.handleMute(ctx, inv)
	default:
		return b.errorReply(inv.lang, "error_unknown")
	}
}

func (b *Bot) handleLevel(ctx context.Context, inv invocation) *discordgo.InteractionResponseData {
	lang := inv.lang
	if inv.sub == "view" || inv.sub == "" {
		return b.levelView(ctx, inv)
	}
	if !inv.has(discordgo.PermissionAdministrator) {
		return b.errorReply(lang, "error_permission")
	}
	target := inv.user("utilisateur")
	if target == "" {
		return b.errorReply(lang, "error_invalid_input")
	}

	switch inv.sub {
	case "set":
		award, err := b.leveling.SetLevel(ctx, inv.guildID, target, int(inv.integer("niveau", -1)))
		if errors.Is(err, leveling.ErrInvalidInput) {
			return b.errorReply(lang, "error_invalid_level", leveling.MaxLevel)
		}
		if err != nil {
			return b.failed(lang, "level set failed", inv, err)
		}
		b.grantRankRoles(inv.guildID, target, award)
		return b.successReply(b.t(lang, "level_set_title"), b.t(lang, "level_set_desc", "<@"+target+">", award.Progress.Level))
	case "add":
		amount := inv.integer("xp", 0)
		award, err := b.leveling.AddXP(ctx, inv.guildID, target, amount)
		if errors.Is(err, leveling.ErrInvalidInput) {
			return b.errorReply(lang, "error_invalid_xp", leveling.MaxLevel)
		}
		if err != nil {
			return b.failed(lang, "xp add failed", inv, err)
		}
		b.grantRankRoles(inv.guildID, target, award)
		return b.successReply(b.t(lang, "level_add_title"), b.t(lang, "level_add_desc", amount, "<@"+target+">", award.Progress.Level))
	case "reset":
		if _, err := b.leveling.ResetUser(ctx, inv.guildID, target); err != nil {
			return b.failed(lang, "level reset failed", inv, err)
		}
		return b.successReply(b.t(lang, "level_reset_title"), b.t(lang, "level_reset_desc", "<@"+target+">"))
	default:
		return b.errorReply(lang, "error_unknown")
	}
}

func (b *Bot) grantRankRoles(guildID, userID string, award leveling.Award) {
	if award.LeveledUp {
		b.leveling.AssignRankRoles(guildID, userID, award.NewLevel)
	}
}

func (b *Bot) levelView(ctx context.Context, inv invocation) *discordgo.InteractionResponseData {
	lang := inv.lang
	progress, err := b.leveling.Progress(ctx, inv.guildID, inv.userID)
	if err != nil {
		return b.failed(lang, "level view failed", inv, err)
	}
	rank, err := b.leveling.Rank(ctx, inv.guildID, inv.userID)
	if err != nil {
		return b.failed(lang, "rank lookup failed", inv, err)
	}
	rankValue := b.t(lang, "value_none")
	if rank > 0 {
		rankValue = "#" + strconv.Itoa(rank)
	}
	next := b.leveling.Formula().XPForLevel(progress.Level + 1)
	fields := []*discordgo.MessageEmbedField{
		{Name: b.t(lang, "field_level"), Value: strconv.Itoa(progress.Level), Inline: true},
		{Name: b.t(lang, "field_xp"), Value: fmt.Sprintf("%d / %d", progress.XP, next), Inline: true},
		{Name: b.t(lang, "field_rank"), Value: rankValue, Inline: true},
		{Name: b.t(lang, "field_total_xp"), Value: strconv.FormatInt(progress.TotalXP, 10), Inline: true},
		{Name: b.t(lang, "field_messages"), Value: strconv.FormatInt(progress.MessageCount, 10), Inline: true},
	}
	name := inv.username
	if name == "" {
		name = inv.userID
	}
	return embedReply(b.commandEmbed(b.t(lang, "level_title", name), "", colorPrimary, fields), false)
}

func (b *Bot) handleLeaderboard(ctx context.Context, inv invocation) *discordgo.InteractionResponseData {
	lang := inv.lang
	total, err := b.leveling.CountMembers(ctx, inv.guildID)
	if err != nil {
		return b.failed(lang, "leaderboard count failed", inv, err)
	}
	pages := (total + leaderboardPageSize - 1) / leaderboardPageSize
	if pages < 1 {
		pages = 1
	}
	page := int(inv.integer("page", 1))
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}

	offset := (page - 1) * leaderboardPageSize
	entries, err := b.leveling.Leaderboard(ctx, inv.guildID, leaderboardPageSize, offset)
	if err != nil {
		return b.failed(lang, "leaderboard failed", inv, err)
	}
	description := b.t(lang, "leaderboard_empty")
	if len(entries) > 0 {
		lines := make([]string, 0, len(entries))
		for i, entry := range entries {
			lines = append(lines, b.t(lang, "leaderboard_line", medal(offset+i+1), "<@"+entry.UserID+">", entry.Level, entry.TotalXP))
		}
		description = strings.Join(lines, "\n")
	}
	embed := b.commandEmbed(b.t(lang, "leaderboard_title"), description, colorPrimary, nil)
	embed.Footer = &discordgo.MessageEmbedFooter{Text: b.t(lang, "leaderboard_footer", page, pages)}
	return embedReply(embed, false)
}

func medal(position int) string {
	switch position {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return "**#" + strconv.Itoa(position) + "**"
	}
}

func (b *Bot) handleFilter(ctx context.Context, inv invocation) *discordgo.InteractionResponseData {
	lang := inv.lang
	switch inv.sub {
	case "add":
		word := inv.str("mot")
		added, err := b.blacklist.AddWord(ctx, inv.guildID, word, inv.userID)
		if errors.Is(err, blacklist.ErrEmptyWord) {
			return b.errorReply(lang, "error_invalid_input")
		}
		if err != nil {
			return b.failed(lang, "blacklist add failed", inv, err)
		}
		if !added {
			return b.errorReply(lang, "error_word_exists")
		}
		return embedReply(b.commandEmbed(b.t(lang, "filter_added_title"), b.t(lang, "filter_added_desc", word), colorSuccess, nil), true)
	case "remove":
		word := inv.str("mot")
		removed, err := b.blacklist.RemoveWord(ctx, inv.guildID, word)
		if errors.Is(err, blacklist.ErrEmptyWord) {
			return b.errorReply(lang, "error_invalid_input")
		}
		if err != nil {
			return b.failed(lang, "blacklist remove failed", inv, err)
		}
		if !removed {
			return b.errorReply(lang, "error_word_missing")
		}
		return embedReply(b.commandEmbed(b.t(lang, "filter_removed_title"), b.t(lang, "filter_removed_desc", word), colorSuccess, nil), true)
	case "list":
		words, err := b.blacklist.Words(ctx, inv.guildID)
		if err != nil {
			return b.failed(lang, "blacklist list failed", inv, err)
		}
		description := b.t(lang, "filter_list_empty")
		if len(words) > 0 {
			spoilered := make([]string, len(words))
			for i, word := range words {
				spoilered[i] = "||" + word + "||"
			}
			description = strings.Join(spoilered, ", ")
		}
		return embedReply(b.commandEmbed(b.t(lang, "filter_list_title"), description, colorPrimary, nil), true)
	default:
		return b.errorReply(lang, "error_unknown")
	}
}

func (b *Bot) handleWarn(ctx context.Context, inv invocation) *discordgo.InteractionResponseData {
	lang := inv.lang
	target := inv.user("utilisateur")
	reason := inv.str("raison")
	switch {
	case target == "" || reason == "":
		return b.errorReply(lang, "error_invalid_input")
	case inv.isBot(target):
		return b.errorReply(lang, "error_warn_bot")
	case target == inv.userID:
		return b.errorReply(lang, "error_warn_self")
	}

	if _, err := b.audit.Warn(ctx, inv.guildID, target, inv.userID, reason); err != nil {
		return b.failed(lang, "warn failed", inv, err)
	}
	warnings, err := b.store.ListWarnings(ctx, inv.guildID, target)
	if err != nil {
		b.logger.Warn("warning count failed", zap.String("guild_id", inv.guildID), zap.String("user_id", target), zap.Error(err))
	}

	dm := b.commandEmbed(b.t(lang, "warn_title"), b.t(lang, "warn_dm_desc"), colorWarning, []*discordgo.MessageEmbedField{
		{Name: b.t(lang, "field_reason"), Value: reason},
	})
	if err := b.messenger.SendDirectMessage(target, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{dm}}); err != nil {
		b.logger.Debug("warning dm failed", zap.String("guild_id", inv.guildID), zap.String("user_id", target), zap.Error(err))
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: b.t(lang, "field_reason"), Value: reason},
		{Name: b.t(lang, "field_total"), Value: strconv.Itoa(len(warnings)), Inline: true},
	}
	return embedReply(b.commandEmbed(b.t(lang, "warn_title"), b.t(lang, "warn_desc", "<@"+target+">"), colorWarning, fields), false)
}

func (b *Bot) handleWarnings(ctx context.Context, inv invocation) *discordgo.InteractionResponseData {
	lang := inv.lang
	target := inv.user("utilisateur")
	if target == "" {
		return b.errorReply(lang, "error_invalid_input")
	}

	if inv.boolean("effacer") {
		count, err := b.store.ClearWarnings(ctx, inv.guildID, target)
		if err != nil {
			return b.failed(lang, "warnings clear failed", inv, err)
		}
		if _, err := b.audit.RecordAction(ctx, storage.ModAction{
			GuildID:     inv.guildID,
			UserID:      target,
			ModeratorID: inv.userID,
			Action:      audit.ActionClearWarns,
			Details:     strconv.FormatInt(count, 10),
		}); err != nil {
			b.logger.Warn("clear warnings record failed", zap.String("guild_id", inv.guildID), zap.String("user_id", target), zap.Error(err))
		}
		return embedReply(b.commandEmbed(b.t(lang, "warnings_clear_title"), b.t(lang, "warnings_cleared", count, "<@"+target+">"), colorSuccess, nil), false)
	}

	warnings, err := b.store.ListWarnings(ctx, inv.guildID, target)
	if err != nil {
		return b.failed(lang, "warnings list failed", inv, err)
	}
	if len(warnings) == 0 {
		return embedReply(b.commandEmbed(b.t(lang, "warnings_title"), b.t(lang, "warnings_none"), colorSuccess, nil), true)
	}
	lines := make([]string, 0, maxListedWarnings)
	for i, warning := range warnings {
		if i == maxListedWarnings {
			break
		}
		lines = append(lines, b.t(lang, "warnings_line", i+1, utils.DiscordTimestamp(warning.CreatedAt, "d"), warning.Reason, warning.ModeratorID))
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: b.t(lang, "field_user"), Value: "<@" + target + ">", Inline: true},
		{Name: b.t(lang, "field_total"), Value: strconv.Itoa(len(warnings)), Inline: true},
	}
	return embedReply(b.commandEmbed(b.t(lang, "warnings_title"), strings.Join(lines, "\n"), colorWarning, fields), true)
}

func (b *Bot) handleMute(ctx context.Context, inv invocation) *discordgo.InteractionResponseData {
	lang := inv.lang
	target := inv.user("utilisateur")
	if target == "" {
		return b.errorReply(lang, "error_invalid_input")
	}
	duration, ok := utils.ParseDuration(inv.str("durée"))
	if !ok {
		return b.errorReply(lang, "error_invalid_time")
	}
	if duration > maxMute {
		return b.errorReply(lang, "error_mute_too_long")
	}
	reason := inv.str("raison")
	if reason == "" {
		reason = b.t(lang, "reason_none")
	}

	if err := b.messenger.TimeoutMember(inv.guildID, target, b.clock.Now().Add(duration)); err != nil {
		b.logger.Warn("timeout failed", zap.String("guild_id", inv.guildID), zap.String("user_id", target), zap.Error(err))
		return b.errorReply(lang, "error_mute_failed")
	}
	formatted := utils.FormatDuration(duration)
	if _, err := b.audit.RecordAction(ctx, storage.ModAction{
		GuildID:     inv.guildID,
		UserID:      target,
		ModeratorID: inv.userID,
		Action:      audit.ActionMute,
		Reason:      reason,
		Details:     formatted,
	}); err != nil {
		b.logger.Warn("mute record failed", zap.String("guild_id", inv.guildID), zap.String("user_id", target), zap.Error(err))
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: b.t(lang, "field_duration"), Value: formatted, Inline: true},
		{Name: b.t(lang, "field_reason"), Value: reason},
	}
	return embedReply(b.commandEmbed(b.t(lang, "mute_title"), b.t(lang, "mute_desc", "<@"+target+">", formatted), colorSuccess, fields), false)
}

func (b *Bot) successReply(title, description string) *discordgo.InteractionResponseData {
	return embedReply(b.commandEmbed(title, description, colorSuccess, nil), false)
}

func (b *Bot) errorReply(lang, key string, args ...any) *discordgo.InteractionResponseData {
	return embedReply(b.commandEmbed(b.t(lang, "error_title"), b.t(lang, key, args...), colorError, nil), true)
}

func (b *Bot) failed(lang, msg string, inv invocation, err error) *discordgo.InteractionResponseData {
	b.logger.Error(msg, zap.String("guild_id", inv.guildID), zap.String("user_id", inv.userID), zap.String("command", inv.command), zap.Error(err))
	return b.errorReply(lang, "error_failed")
}
