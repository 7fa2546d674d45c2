// Package api serves the dashboard's read/write pass-through over leveling and
// moderation data.
package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/Mitake-ktm/Tsukihane/internal/analytics"
	"github.com/Mitake-ktm/Tsukihane/internal/config"
	"github.com/Mitake-ktm/Tsukihane/internal/leveling"
	"github.com/Mitake-ktm/Tsukihane/internal/modules/blacklist"
	"github.com/Mitake-ktm/Tsukihane/internal/storage"
	"github.com/Mitake-ktm/Tsukihane/internal/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

type LogSource interface {
	ListServerLogs(ctx context.Context, guildID string, filter storage.ServerLogFilter) ([]storage.ServerLog, error)
	Ping(ctx context.Context) error
}

type Deps struct {
	Leveling  *leveling.Engine
	Blacklist *blacklist.Module
	Logs      LogSource
	Analytics *analytics.Service
}

type Server struct {
	app      *fiber.App
	cfg      config.Config
	deps     Deps
	validate *validator.Validate
	logger   *zap.Logger
}

func NewServer(cfg config.Config, deps Deps, logger *zap.Logger) *Server {
	s := &Server{
		app: fiber.New(fiber.Config{
			AppName:               "tsukihane",
			DisableStartupMessage: true,
			ErrorHandler:          errorHandler(logger),
		}),
		cfg:      cfg,
		deps:     deps,
		validate: validator.New(),
		logger:   logger,
	}
	s.routes()
	return s
}

func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.API.Addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) routes() {
	s.app.Use(recover.New())
	s.app.Use(cors.New())

	s.app.Get("/health", s.health)

	guild := s.app.Group("/api/guilds/:guildId", bearerAuth(s.cfg.API.Token, s.logger))
	guild.Get("/leveling/leaderboard", s.leaderboard)
	guild.Get("/leveling/rank/:userId", s.rank)
	guild.Get("/leveling/settings", s.levelingSettings)
	guild.Get("/moderation/blacklist", s.listBlacklist)
	guild.Post("/moderation/blacklist", s.addBlacklist)
	guild.Delete("/moderation/blacklist/:word", s.removeBlacklist)
	guild.Get("/moderation/logs", s.serverLogs)
	guild.Get("/moderation/report", s.report)
}

func bearerAuth(expected string, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if header == "" || !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing bearer token"})
		}
		if expected == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			logger.Warn("api token rejected", zap.String("path", c.Path()), zap.String("ip", c.IP()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid bearer token"})
		}
		return c.Next()
	}
}

func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}
		if errors.Is(err, leveling.ErrInvalidInput) || errors.Is(err, blacklist.ErrEmptyWord) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		logger.Error("api request failed", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}

func (s *Server) health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()
	if err := s.deps.Logs.Ping(ctx); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// sinceParam reads a relative window like "24h" or "7d".
func sinceParam(c *fiber.Ctx, fallback time.Duration) (time.Time, error) {
	raw := c.Query("since")
	if raw == "" {
		return time.Now().Add(-fallback), nil
	}
	d, ok := utils.ParseDuration(raw)
	if !ok {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, "invalid since duration")
	}
	return time.Now().Add(-d), nil
}

func pathParam(c *fiber.Ctx, name string) string {
	raw := c.Params(name)
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}
