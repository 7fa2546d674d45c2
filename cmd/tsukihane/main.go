package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Mitake-ktm/Tsukihane/internal/analytics"
	"github.com/Mitake-ktm/Tsukihane/internal/api"
	"github.com/Mitake-ktm/Tsukihane/internal/bot"
	"github.com/Mitake-ktm/Tsukihane/internal/config"
	"github.com/Mitake-ktm/Tsukihane/internal/jobs"
	"github.com/Mitake-ktm/Tsukihane/internal/leveling"
	"github.com/Mitake-ktm/Tsukihane/internal/modules/antispam"
	"github.com/Mitake-ktm/Tsukihane/internal/modules/audit"
	"github.com/Mitake-ktm/Tsukihane/internal/modules/automod"
	"github.com/Mitake-ktm/Tsukihane/internal/modules/blacklist"
	"github.com/Mitake-ktm/Tsukihane/internal/pipeline"
	"github.com/Mitake-ktm/Tsukihane/internal/platform"
	"github.com/Mitake-ktm/Tsukihane/internal/storage"
	"github.com/Mitake-ktm/Tsukihane/internal/storage/postgres"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := config.BuildLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("storage init failed", zap.Error(err))
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	var progress leveling.Store = store
	if cfg.DatabaseURL != "" {
		pg, err := postgres.Connect(context.Background(), cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("postgres connect failed", zap.Error(err))
		}
		defer pg.Close()
		if err := pg.Migrate(context.Background()); err != nil {
			logger.Fatal("postgres migrations failed", zap.Error(err))
		}
		progress = pg
		logger.Info("progress stored in postgres")
	}

	session, err := bot.NewSession(cfg.DiscordToken)
	if err != nil {
		logger.Fatal("discord session init failed", zap.Error(err))
	}
	messenger := platform.NewDiscord(session)

	auditLogger := audit.NewLogger(store, logger)
	words := blacklist.New(cfg.Moderation.Blacklist, store, logger)
	engine := leveling.NewEngine(cfg.Leveling, progress, messenger, logger)
	moderation := automod.New(cfg.Moderation, words, antispam.NewTracker(cfg.Moderation.AntiSpam), auditLogger, messenger, logger)
	processor := pipeline.NewProcessor(moderation, engine, cfg, messenger, logger)

	botSvc := bot.New(cfg, logger, session, bot.Deps{
		Store:     store,
		Leveling:  engine,
		Blacklist: words,
		Audit:     auditLogger,
		Processor: processor,
		Messenger: messenger,
	})
	if err := botSvc.Start(); err != nil {
		logger.Fatal("bot start failed", zap.Error(err))
	}
	logger.Info("bot started")

	runner, err := jobs.New(moderation, store, cfg.RetentionDays, logger)
	if err != nil {
		logger.Fatal("scheduler init failed", zap.Error(err))
	}
	runner.Start()

	var server *api.Server
	if cfg.API.Enabled {
		server = api.NewServer(cfg, api.Deps{
			Leveling:  engine,
			Blacklist: words,
			Logs:      store,
			Analytics: analytics.New(store),
		}, logger)
		go func() {
			logger.Info("dashboard api enabled", zap.String("addr", cfg.API.Addr))
			if err := server.Listen(); err != nil {
				logger.Error("dashboard api error", zap.Error(err))
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown requested")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if server != nil {
		_ = server.Shutdown(ctx)
	}
	if err := runner.Shutdown(); err != nil {
		logger.Warn("scheduler shutdown failed", zap.Error(err))
	}
	botSvc.Close(ctx)
}
