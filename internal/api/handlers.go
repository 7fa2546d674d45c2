package api

import (
	"sort"
	"time"

	"github.com/Mitake-ktm/Tsukihane/internal/storage"

	"github.com/gofiber/fiber/v2"
)

type progressView struct {
	Position     int    `json:"position,omitempty"`
	UserID       string `json:"user_id"`
	Level        int    `json:"level"`
	XP           int64  `json:"xp"`
	XPForNext    int64  `json:"xp_for_next"`
	TotalXP      int64  `json:"total_xp"`
	MessageCount int64  `json:"message_count"`
}

func (s *Server) view(p storage.UserProgress) progressView {
	return progressView{
		UserID:       p.UserID,
		Level:        p.Level,
		XP:           p.XP,
		XPForNext:    s.deps.Leveling.Formula().XPForLevel(p.Level + 1),
		TotalXP:      p.TotalXP,
		MessageCount: p.MessageCount,
	}
}

func (s *Server) leaderboard(c *fiber.Ctx) error {
	guildID := c.Params("guildId")
	limit := c.QueryInt("limit", 10)
	offset := c.QueryInt("offset", 0)

	entries, err := s.deps.Leveling.Leaderboard(c.UserContext(), guildID, limit, offset)
	if err != nil {
		return err
	}
	total, err := s.deps.Leveling.CountMembers(c.UserContext(), guildID)
	if err != nil {
		return err
	}
	views := make([]progressView, 0, len(entries))
	for i, entry := range entries {
		v := s.view(entry)
		v.Position = offset + i + 1
		views = append(views, v)
	}
	return c.JSON(fiber.Map{"total": total, "entries": views})
}

func (s *Server) rank(c *fiber.Ctx) error {
	guildID, userID := c.Params("guildId"), c.Params("userId")
	rank, err := s.deps.Leveling.Rank(c.UserContext(), guildID, userID)
	if err != nil {
		return err
	}
	progress, err := s.deps.Leveling.Progress(c.UserContext(), guildID, userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"rank": rank, "progress": s.view(progress)})
}

type rankRoleView struct {
	Level  int    `json:"level"`
	RoleID string `json:"role_id"`
	Name   string `json:"name"`
	Emoji  string `json:"emoji"`
}

func (s *Server) levelingSettings(c *fiber.Ctx) error {
	cfg := s.cfg.Leveling
	roles := make([]rankRoleView, 0, len(cfg.RankRoles))
	for level, role := range cfg.RankRoles {
		roles = append(roles, rankRoleView{Level: level, RoleID: role.RoleID, Name: role.Name, Emoji: role.Emoji})
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Level < roles[j].Level })
	return c.JSON(fiber.Map{
		"enabled":             cfg.Enabled,
		"xp_per_message":      fiber.Map{"min": cfg.XPPerMessage.Min, "max": cfg.XPPerMessage.Max},
		"xp_cooldown_ms":      cfg.XPCooldownMs,
		"level_formula":       fiber.Map{"base": cfg.LevelFormula.Base, "exponent": cfg.LevelFormula.Exponent},
		"channel_multipliers": cfg.ChannelMultipliers,
		"rank_roles":          roles,
		"announce_in_channel": cfg.AnnounceInChannel,
	})
}

func (s *Server) listBlacklist(c *fiber.Ctx) error {
	words, err := s.deps.Blacklist.Words(c.UserContext(), c.Params("guildId"))
	if err != nil {
		return err
	}
	if words == nil {
		words = []string{}
	}
	return c.JSON(fiber.Map{"words": words})
}

type blacklistRequest struct {
	Word    string `json:"word" validate:"required,max=100"`
	AddedBy string `json:"added_by" validate:"omitempty,max=32"`
}

func (s *Server) addBlacklist(c *fiber.Ctx) error {
	var req blacklistRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if err := s.validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if req.AddedBy == "" {
		req.AddedBy = "dashboard"
	}
	added, err := s.deps.Blacklist.AddWord(c.UserContext(), c.Params("guildId"), req.Word, req.AddedBy)
	if err != nil {
		return err
	}
	if !added {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "word already blacklisted"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"word": req.Word})
}

func (s *Server) removeBlacklist(c *fiber.Ctx) error {
	removed, err := s.deps.Blacklist.RemoveWord(c.UserContext(), c.Params("guildId"), pathParam(c, "word"))
	if err != nil {
		return err
	}
	if !removed {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "word not found"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type serverLogView struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	Category    string            `json:"category"`
	Severity    string            `json:"severity"`
	ExecutorID  string            `json:"executor_id,omitempty"`
	TargetID    string            `json:"target_id,omitempty"`
	ChannelID   string            `json:"channel_id,omitempty"`
	Description string            `json:"description"`
	Details     map[string]string `json:"details,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

func (s *Server) serverLogs(c *fiber.Ctx) error {
	since, err := sinceParam(c, 24*time.Hour)
	if err != nil {
		return err
	}
	limit := c.QueryInt("limit", 100)
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	logs, err := s.deps.Logs.ListServerLogs(c.UserContext(), c.Params("guildId"), storage.ServerLogFilter{
		Type:     c.Query("type"),
		Category: c.Query("category"),
		Since:    since,
		Limit:    limit,
	})
	if err != nil {
		return err
	}
	views := make([]serverLogView, 0, len(logs))
	for _, log := range logs {
		views = append(views, serverLogView{
			ID:          log.ID,
			Type:        log.Type,
			Category:    log.Category,
			Severity:    log.Severity,
			ExecutorID:  log.ExecutorID,
			TargetID:    log.TargetID,
			ChannelID:   log.ChannelID,
			Description: log.Description,
			Details:     log.Details,
			CreatedAt:   log.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"logs": views})
}

func (s *Server) report(c *fiber.Ctx) error {
	since, err := sinceParam(c, 7*24*time.Hour)
	if err != nil {
		return err
	}
	report, err := s.deps.Analytics.Report(c.UserContext(), c.Params("guildId"), since)
	if err != nil {
		return err
	}
	return c.JSON(report)
}
