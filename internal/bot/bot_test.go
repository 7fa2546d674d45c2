package bot

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Mitake-ktm/Tsukihane/internal/config"
	"github.com/Mitake-ktm/Tsukihane/internal/leveling"
	"github.com/Mitake-ktm/Tsukihane/internal/modules/audit"
	"github.com/Mitake-ktm/Tsukihane/internal/modules/blacklist"
	"github.com/Mitake-ktm/Tsukihane/internal/platform/platformtest"
	"github.com/Mitake-ktm/Tsukihane/internal/storage"
	"github.com/Mitake-ktm/Tsukihane/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func (c fixedClock) AfterFunc(time.Duration, func()) utils.Timer { return nil }

type harness struct {
	bot      *Bot
	store    *storage.Store
	recorder *platformtest.Recorder
	now      time.Time
}

func newHarness(t *testing.T, mutate func(*config.Config)) harness {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Leveling.RankRoles = map[int]config.RankRole{5: {RoleID: "r5"}}
	if mutate != nil {
		mutate(&cfg)
	}

	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logger := zap.NewNop()
	recorder := platformtest.NewRecorder()
	recorder.Roles["r5"] = true
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b := New(cfg, logger, nil, Deps{
		Store:     store,
		Leveling:  leveling.NewEngine(cfg.Leveling, store, recorder, logger),
		Blacklist: blacklist.New(cfg.Moderation.Blacklist, store, logger),
		Audit:     audit.NewLogger(store, logger),
		Messenger: recorder,
	})
	b.clock = fixedClock{now: now}
	return harness{bot: b, store: store, recorder: recorder, now: now}
}

func userOpt(name, id string) *option {
	return &option{Name: name, Type: discordgo.ApplicationCommandOptionUser, Value: id}
}

func intOpt(name string, value int) *option {
	return &option{Name: name, Type: discordgo.ApplicationCommandOptionInteger, Value: float64(value)}
}

func strOpt(name, value string) *option {
	return &option{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: value}
}

func boolOpt(name string, value bool) *option {
	return &option{Name: name, Type: discordgo.ApplicationCommandOptionBoolean, Value: value}
}

func subOpt(name string, opts ...*option) *option {
	return &option{Name: name, Type: discordgo.ApplicationCommandOptionSubCommand, Options: opts}
}

func invoke(command string, perms int64, opts ...*option) invocation {
	inv := invocation{guildID: "g1", userID: "mod", username: "mika", permissions: perms, lang: "fr", command: command}
	inv.sub, inv.options = flattenOptions(opts)
	return inv
}

func description(t *testing.T, data *discordgo.InteractionResponseData) string {
	t.Helper()
	if data == nil || len(data.Embeds) == 0 {
		t.Fatalf("expected an embed reply, got %+v", data)
	}
	return data.Embeds[0].Description
}

func isError(data *discordgo.InteractionResponseData) bool {
	return data != nil && len(data.Embeds) > 0 && data.Embeds[0].Color == colorError
}

func TestCommandRequiresGuild(t *testing.T) {
	h := newHarness(t, nil)
	inv := invoke("leaderboard", 0)
	inv.guildID = ""
	reply := h.bot.handleCommand(context.Background(), inv)
	if !isError(reply) || reply.Flags != discordgo.MessageFlagsEphemeral {
		t.Fatalf("expected ephemeral error, got %+v", reply)
	}
}

func TestLevelViewForNewMember(t *testing.T) {
	h := newHarness(t, nil)
	reply := h.bot.handleCommand(context.Background(), invoke("level", 0, subOpt("view")))
	if isError(reply) {
		t.Fatalf("unexpected error reply: %q", description(t, reply))
	}
	fields := reply.Embeds[0].Fields
	if fields[0].Value != "0" || fields[1].Value != "0 / 100" || fields[2].Value != "—" {
		t.Fatalf("unexpected profile fields %+v %+v %+v", fields[0], fields[1], fields[2])
	}
}

func TestLevelAdminSubcommandsRequireAdministrator(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	denied := h.bot.handleCommand(ctx, invoke("level", discordgo.PermissionModerateMembers, subOpt("set", userOpt("utilisateur", "u2"), intOpt("niveau", 5))))
	if !isError(denied) {
		t.Fatalf("expected permission error, got %q", description(t, denied))
	}

	reply := h.bot.handleCommand(ctx, invoke("level", discordgo.PermissionAdministrator, subOpt("set", userOpt("utilisateur", "u2"), intOpt("niveau", 5))))
	if isError(reply) || !strings.Contains(description(t, reply), "**5**") {
		t.Fatalf("expected level set reply, got %q", description(t, reply))
	}
	progress, err := h.bot.leveling.Progress(ctx, "g1", "u2")
	if err != nil || progress.Level != 5 {
		t.Fatalf("expected stored level 5, got %+v %v", progress, err)
	}
	if len(h.recorder.Added) != 1 || h.recorder.Added[0] != "r5" {
		t.Fatalf("expected rank role r5, got %v", h.recorder.Added)
	}

	invalid := h.bot.handleCommand(ctx, invoke("level", discordgo.PermissionAdministrator, subOpt("set", userOpt("utilisateur", "u2"), intOpt("niveau", 5000))))
	if !isError(invalid) || !strings.Contains(description(t, invalid), "1000") {
		t.Fatalf("expected invalid level reply, got %+v", invalid)
	}
}

func TestLevelAddAndReset(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	reply := h.bot.handleCommand(ctx, invoke("level", discordgo.PermissionAdministrator, subOpt("add", userOpt("utilisateur", "u2"), intOpt("xp", 400))))
	if isError(reply) || !strings.Contains(description(t, reply), "**2**") {
		t.Fatalf("expected level 2 after 400 xp, got %q", description(t, reply))
	}
	zero := h.bot.handleCommand(ctx, invoke("level", discordgo.PermissionAdministrator, subOpt("add", userOpt("utilisateur", "u2"), intOpt("xp", 0))))
	if !isError(zero) {
		t.Fatalf("expected invalid xp reply")
	}
	huge := h.bot.handleCommand(ctx, invoke("level", discordgo.PermissionAdministrator, subOpt("add", userOpt("utilisateur", "u2"), intOpt("xp", 5_000_000_000))))
	if !isError(huge) {
		t.Fatalf("expected invalid xp reply for an oversized grant")
	}
	if progress, _ := h.bot.leveling.Progress(ctx, "g1", "u2"); progress.Level != 2 || progress.TotalXP < 0 {
		t.Fatalf("expected progress untouched by the oversized grant, got %+v", progress)
	}

	h.bot.handleCommand(ctx, invoke("level", discordgo.PermissionAdministrator, subOpt("reset", userOpt("utilisateur", "u2"))))
	progress, err := h.bot.leveling.Progress(ctx, "g1", "u2")
	if err != nil || progress.TotalXP != 0 || progress.Level != 0 {
		t.Fatalf("expected reset progress, got %+v %v", progress, err)
	}
}

func TestLeaderboardPages(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		if _, err := h.bot.leveling.AddXP(ctx, "g1", fmt.Sprintf("u%02d", i), int64(1000-i)); err != nil {
			t.Fatalf("add xp: %v", err)
		}
	}

	first := h.bot.handleCommand(ctx, invoke("leaderboard", 0))
	lines := strings.Split(description(t, first), "\n")
	if len(lines) != 10 || !strings.HasPrefix(lines[0], "🥇 <@u00>") {
		t.Fatalf("unexpected first page %q", lines)
	}

	second := h.bot.handleCommand(ctx, invoke("leaderboard", 0, intOpt("page", 2)))
	lines = strings.Split(description(t, second), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "**#11**") {
		t.Fatalf("unexpected second page %q", lines)
	}
	if footer := second.Embeds[0].Footer.Text; footer != "Page 2/2" {
		t.Fatalf("expected page 2/2, got %q", footer)
	}

	clamped := h.bot.handleCommand(ctx, invoke("leaderboard", 0, intOpt("page", 9)))
	if footer := clamped.Embeds[0].Footer.Text; footer != "Page 2/2" {
		t.Fatalf("expected out of range page to clamp, got %q", footer)
	}
}

func TestLeaderboardEmptyGuild(t *testing.T) {
	h := newHarness(t, nil)
	reply := h.bot.handleCommand(context.Background(), invoke("leaderboard", 0))
	if description(t, reply) != messages["fr"]["leaderboard_empty"] {
		t.Fatalf("expected empty leaderboard text, got %q", description(t, reply))
	}
	if reply.Embeds[0].Footer.Text != "Page 1/1" {
		t.Fatalf("expected page 1/1, got %q", reply.Embeds[0].Footer.Text)
	}
}

func TestFilterLifecycle(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	perms := int64(discordgo.PermissionManageMessages)

	if reply := h.bot.handleCommand(ctx, invoke("filter", 0, subOpt("list"))); !isError(reply) {
		t.Fatalf("expected permission error without manage messages")
	}
	if reply := h.bot.handleCommand(ctx, invoke("filter", perms, subOpt("add", strOpt("mot", "Spoil")))); isError(reply) {
		t.Fatalf("expected word added, got %q", description(t, reply))
	}
	if reply := h.bot.handleCommand(ctx, invoke("filter", perms, subOpt("add", strOpt("mot", "spoil")))); !isError(reply) {
		t.Fatalf("expected duplicate word error")
	}
	list := h.bot.handleCommand(ctx, invoke("filter", perms, subOpt("list")))
	if !strings.Contains(description(t, list), "||spoil||") {
		t.Fatalf("expected spoilered word in list, got %q", description(t, list))
	}
	if reply := h.bot.handleCommand(ctx, invoke("filter", perms, subOpt("remove", strOpt("mot", "spoil")))); isError(reply) {
		t.Fatalf("expected word removed, got %q", description(t, reply))
	}
	if reply := h.bot.handleCommand(ctx, invoke("filter", perms, subOpt("remove", strOpt("mot", "spoil")))); !isError(reply) {
		t.Fatalf("expected missing word error")
	}
	if reply := h.bot.handleCommand(ctx, invoke("filter", perms, subOpt("add", strOpt("mot", "   ")))); !isError(reply) {
		t.Fatalf("expected empty word error")
	}
}

func TestWarnAndWarnings(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	perms := int64(discordgo.PermissionModerateMembers)

	self := h.bot.handleCommand(ctx, invoke("warn", perms, userOpt("utilisateur", "mod"), strOpt("raison", "spam")))
	if !isError(self) || description(t, self) != messages["fr"]["error_warn_self"] {
		t.Fatalf("expected self warn error, got %+v", self)
	}

	botInv := invoke("warn", perms, userOpt("utilisateur", "robot"), strOpt("raison", "spam"))
	botInv.resolved = &discordgo.ApplicationCommandInteractionDataResolved{Users: map[string]*discordgo.User{"robot": {ID: "robot", Bot: true}}}
	if reply := h.bot.handleCommand(ctx, botInv); description(t, reply) != messages["fr"]["error_warn_bot"] {
		t.Fatalf("expected bot warn error, got %q", description(t, reply))
	}

	reply := h.bot.handleCommand(ctx, invoke("warn", perms, userOpt("utilisateur", "u2"), strOpt("raison", "flood")))
	if isError(reply) {
		t.Fatalf("unexpected warn error %q", description(t, reply))
	}
	if len(h.recorder.Direct) != 1 || h.recorder.Direct[0].ChannelID != "u2" {
		t.Fatalf("expected warning dm, got %+v", h.recorder.Direct)
	}
	actions, err := h.store.ListModActions(ctx, "g1", time.Time{})
	if err != nil || len(actions) != 1 || actions[0].Action != audit.ActionWarn {
		t.Fatalf("expected one WARN action, got %+v %v", actions, err)
	}

	list := h.bot.handleCommand(ctx, invoke("warnings", perms, userOpt("utilisateur", "u2")))
	if !strings.Contains(description(t, list), "flood") {
		t.Fatalf("expected warning in list, got %q", description(t, list))
	}

	cleared := h.bot.handleCommand(ctx, invoke("warnings", perms, userOpt("utilisateur", "u2"), boolOpt("effacer", true)))
	if !strings.HasPrefix(description(t, cleared), "1 avertissement") {
		t.Fatalf("expected one cleared warning, got %q", description(t, cleared))
	}
	remaining, err := h.store.ListWarnings(ctx, "g1", "u2")
	if err != nil || len(remaining) != 0 {
		t.Fatalf("expected no warnings left, got %+v %v", remaining, err)
	}
}

func TestMute(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	perms := int64(discordgo.PermissionModerateMembers)

	invalid := h.bot.handleCommand(ctx, invoke("mute", perms, userOpt("utilisateur", "u2"), strOpt("durée", "soon")))
	if !isError(invalid) || invalid.Flags != discordgo.MessageFlagsEphemeral {
		t.Fatalf("expected ephemeral invalid duration reply, got %+v", invalid)
	}
	tooLong := h.bot.handleCommand(ctx, invoke("mute", perms, userOpt("utilisateur", "u2"), strOpt("durée", "5w")))
	if description(t, tooLong) != messages["fr"]["error_mute_too_long"] {
		t.Fatalf("expected max duration error, got %q", description(t, tooLong))
	}

	reply := h.bot.handleCommand(ctx, invoke("mute", perms, userOpt("utilisateur", "u2"), strOpt("durée", "10m")))
	if isError(reply) || !strings.Contains(description(t, reply), "10 minutes") {
		t.Fatalf("expected mute reply, got %q", description(t, reply))
	}
	if until := h.recorder.Timeouts["g1:u2"]; !until.Equal(h.now.Add(10 * time.Minute)) {
		t.Fatalf("expected timeout until %v, got %v", h.now.Add(10*time.Minute), until)
	}

	h.recorder.Fail = true
	failed := h.bot.handleCommand(ctx, invoke("mute", perms, userOpt("utilisateur", "u3"), strOpt("durée", "1h")))
	if description(t, failed) != messages["fr"]["error_mute_failed"] {
		t.Fatalf("expected platform failure reply, got %q", description(t, failed))
	}
}

func TestServerLogsReachLogChannel(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) { cfg.Moderation.LogChannelID = "logs" })
	ctx := context.Background()

	h.bot.recordEvent(storage.ServerLog{GuildID: "g1", Type: logMemberJoin, TargetID: "u2", Description: "joined"})
	if len(h.recorder.Sent) != 1 || h.recorder.Sent[0].ChannelID != "logs" {
		t.Fatalf("expected post to default log channel, got %+v", h.recorder.Sent)
	}
	embed := h.recorder.Sent[0].Message.Embeds[0]
	if !strings.Contains(embed.Title, logMemberJoin) || embed.Color != colorInfo {
		t.Fatalf("unexpected log embed %+v", embed)
	}

	if err := h.store.UpsertGuildSettings(ctx, storage.GuildSettings{GuildID: "g1", LogChannelID: "custom", Language: "en"}); err != nil {
		t.Fatalf("upsert settings: %v", err)
	}
	h.bot.recordEvent(storage.ServerLog{GuildID: "g1", Type: logMemberLeave, TargetID: "u2"})
	last := h.recorder.Sent[len(h.recorder.Sent)-1]
	if last.ChannelID != "custom" || last.Message.Embeds[0].Color != colorError {
		t.Fatalf("expected error-colored post to guild log channel, got %+v", last)
	}

	logs, err := h.store.ListServerLogs(ctx, "g1", storage.ServerLogFilter{})
	if err != nil || len(logs) != 2 {
		t.Fatalf("expected two stored server logs, got %d %v", len(logs), err)
	}
}

func TestMemberPermissions(t *testing.T) {
	guild := &discordgo.Guild{
		ID: "g1",
		Roles: []*discordgo.Role{
			{ID: "g1", Permissions: discordgo.PermissionSendMessages},
			{ID: "mods", Permissions: discordgo.PermissionModerateMembers},
			{ID: "admins", Permissions: discordgo.PermissionAdministrator},
		},
	}
	cases := []struct {
		roles []string
		want  int64
	}{
		{nil, discordgo.PermissionSendMessages},
		{[]string{"mods"}, discordgo.PermissionSendMessages | discordgo.PermissionModerateMembers},
		{[]string{"mods", "admins", "ghost"}, discordgo.PermissionSendMessages | discordgo.PermissionModerateMembers | discordgo.PermissionAdministrator},
	}
	for _, tc := range cases {
		if got := memberPermissions(guild, tc.roles); got != tc.want {
			t.Fatalf("roles %v: expected %d, got %d", tc.roles, tc.want, got)
		}
	}
	if memberPermissions(nil, []string{"mods"}) != 0 {
		t.Fatalf("expected no permissions without a guild")
	}
}

func TestCommandDefinitions(t *testing.T) {
	seen := map[string]*discordgo.ApplicationCommand{}
	for _, cmd := range commandDefinitions() {
		if _, dup := seen[cmd.Name]; dup {
			t.Fatalf("duplicate command %s", cmd.Name)
		}
		seen[cmd.Name] = cmd
	}
	for _, name := range []string{"level", "leaderboard", "filter", "warn", "warnings", "mute"} {
		if seen[name] == nil {
			t.Fatalf("missing command %s", name)
		}
	}
	if perms := seen["filter"].DefaultMemberPermissions; perms == nil || *perms != discordgo.PermissionManageMessages {
		t.Fatalf("expected filter to default to manage messages")
	}
	for _, sub := range seen["level"].Options {
		if sub.Name != "add" {
			continue
		}
		if xp := sub.Options[1]; xp.Name != "xp" || xp.MaxValue != maxXPGrant {
			t.Fatalf("expected xp option bounded by %d, got %+v", maxXPGrant, xp)
		}
	}
	if seen["level"].DefaultMemberPermissions != nil {
		t.Fatalf("expected level to be open to everyone")
	}
}
