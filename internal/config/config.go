package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken    string            `yaml:"discord_token"`
	DatabasePath    string            `yaml:"database_path" validate:"required"`
	DatabaseURL     string            `yaml:"database_url"`
	LogLevel        string            `yaml:"log_level"`
	DefaultLanguage string            `yaml:"default_language" validate:"oneof=fr en"`
	RetentionDays   int               `yaml:"retention_days" validate:"gte=0"`
	API             APIConfig         `yaml:"api"`
	Leveling        LevelingConfig    `yaml:"leveling"`
	Moderation      ModerationConfig  `yaml:"moderation"`
	Reactions       []KeywordReaction `yaml:"reactions" validate:"dive"`
}

type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Token   string `yaml:"token"`
}

type XPRange struct {
	Min int `yaml:"min" validate:"gte=0"`
	Max int `yaml:"max" validate:"gtefield=Min"`
}

type LevelFormula struct {
	Base     float64 `yaml:"base" validate:"gte=1"`
	Exponent float64 `yaml:"exponent" validate:"gt=0"`
}

type RankRole struct {
	RoleID string `yaml:"role_id"`
	Name   string `yaml:"name"`
	Emoji  string `yaml:"emoji"`
}

type LevelingConfig struct {
	Enabled            bool               `yaml:"enabled"`
	XPPerMessage       XPRange            `yaml:"xp_per_message"`
	XPCooldownMs       int64              `yaml:"xp_cooldown_ms" validate:"gte=0"`
	LevelFormula       LevelFormula       `yaml:"level_formula"`
	ChannelMultipliers map[string]float64 `yaml:"channel_multipliers" validate:"dive,gte=0"`
	RankRoles          map[int]RankRole   `yaml:"rank_roles"`
	RemovePreviousRole bool               `yaml:"remove_previous_role"`
	AnnounceInChannel  bool               `yaml:"announce_in_channel"`
}

type AntiSpamConfig struct {
	Enabled          bool  `yaml:"enabled"`
	MessageLimit     int   `yaml:"message_limit" validate:"gt=0"`
	TimeWindowMs     int64 `yaml:"time_window_ms" validate:"gt=0"`
	DuplicateLimit   int   `yaml:"duplicate_limit" validate:"gt=0"`
	MaxTrackedUsers  int   `yaml:"max_tracked_users" validate:"gt=0"`
	IdleEvictSeconds int   `yaml:"idle_evict_seconds" validate:"gte=0"`
}

type CapsConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Threshold float64 `yaml:"threshold" validate:"gt=0,lte=1"`
	MinLength int     `yaml:"min_length" validate:"gte=0"`
}

type ModerationConfig struct {
	Blacklist         []string       `yaml:"blacklist"`
	AntiSpam          AntiSpamConfig `yaml:"anti_spam"`
	CapsDetection     CapsConfig     `yaml:"caps_detection"`
	WarningTTLSeconds int            `yaml:"warning_ttl_seconds" validate:"gte=0"`
	LogChannelID      string         `yaml:"log_channel_id"`
}

type KeywordReaction struct {
	Keywords []string `yaml:"keywords" validate:"min=1"`
	Emoji    string   `yaml:"emoji" validate:"required"`
}

func DefaultConfig() Config {
	return Config{
		DatabasePath:    "/data/tsukihane.db",
		LogLevel:        "info",
		DefaultLanguage: "fr",
		RetentionDays:   30,
		API:             APIConfig{Enabled: false, Addr: ":8080"},
		Leveling: LevelingConfig{
			Enabled:            true,
			XPPerMessage:       XPRange{Min: 15, Max: 25},
			XPCooldownMs:       60000,
			LevelFormula:       LevelFormula{Base: 100, Exponent: 1.5},
			ChannelMultipliers: map[string]float64{},
			RankRoles: map[int]RankRole{
				5:   {Name: "Nouveau Locataire", Emoji: "🚪"},
				15:  {Name: "Explorateur", Emoji: "🔦"},
				30:  {Name: "Survivant", Emoji: "👁️"},
				50:  {Name: "Gardien des Secrets", Emoji: "🗝️"},
				75:  {Name: "Combattant de l'Ombre", Emoji: "⚔️"},
				100: {Name: "Entity", Emoji: "🔴"},
			},
			RemovePreviousRole: true,
			AnnounceInChannel:  true,
		},
		Moderation: ModerationConfig{
			Blacklist: []string{},
			AntiSpam: AntiSpamConfig{
				Enabled:          true,
				MessageLimit:     5,
				TimeWindowMs:     5000,
				DuplicateLimit:   3,
				MaxTrackedUsers:  10000,
				IdleEvictSeconds: 600,
			},
			CapsDetection:     CapsConfig{Enabled: true, Threshold: 0.7, MinLength: 10},
			WarningTTLSeconds: 5,
		},
		Reactions: []KeywordReaction{
			{Keywords: []string{"bonjour", "salut", "hey", "coucou", "ohayo"}, Emoji: "👋"},
			{Keywords: []string{"merci", "thanks", "arigatou", "thx"}, Emoji: "❤️"},
			{Keywords: []string{"gg", "bravo", "bien joué"}, Emoji: "🎉"},
		},
	}
}

func Load() (Config, error) {
	cfg := DefaultConfig()

	// .env is optional, real environment variables win.
	_ = godotenv.Load()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.API.Enabled && c.API.Token == "" {
		return errors.New("invalid config: api.token is required when the api is enabled")
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.DatabasePath = envString("DATABASE_PATH", cfg.DatabasePath)
	cfg.DatabaseURL = envString("DATABASE_URL", cfg.DatabaseURL)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.DefaultLanguage = envString("DEFAULT_LANGUAGE", cfg.DefaultLanguage)
	cfg.RetentionDays = envInt("RETENTION_DAYS", cfg.RetentionDays)
	cfg.API.Enabled = envBool("API_ENABLED", cfg.API.Enabled)
	cfg.API.Addr = envString("API_ADDR", cfg.API.Addr)
	cfg.API.Token = envString("API_TOKEN", cfg.API.Token)
	cfg.Leveling.Enabled = envBool("LEVELING_ENABLED", cfg.Leveling.Enabled)
	cfg.Leveling.XPPerMessage.Min = envInt("XP_MIN", cfg.Leveling.XPPerMessage.Min)
	cfg.Leveling.XPPerMessage.Max = envInt("XP_MAX", cfg.Leveling.XPPerMessage.Max)
	cfg.Leveling.XPCooldownMs = int64(envInt("XP_COOLDOWN_MS", int(cfg.Leveling.XPCooldownMs)))
	cfg.Leveling.LevelFormula.Base = envFloat("LEVEL_BASE", cfg.Leveling.LevelFormula.Base)
	cfg.Leveling.LevelFormula.Exponent = envFloat("LEVEL_EXPONENT", cfg.Leveling.LevelFormula.Exponent)
	cfg.Leveling.AnnounceInChannel = envBool("ANNOUNCE_IN_CHANNEL", cfg.Leveling.AnnounceInChannel)
	cfg.Moderation.AntiSpam.Enabled = envBool("ANTI_SPAM_ENABLED", cfg.Moderation.AntiSpam.Enabled)
	cfg.Moderation.AntiSpam.MessageLimit = envInt("SPAM_MESSAGE_LIMIT", cfg.Moderation.AntiSpam.MessageLimit)
	cfg.Moderation.AntiSpam.TimeWindowMs = int64(envInt("SPAM_TIME_WINDOW_MS", int(cfg.Moderation.AntiSpam.TimeWindowMs)))
	cfg.Moderation.AntiSpam.DuplicateLimit = envInt("SPAM_DUPLICATE_LIMIT", cfg.Moderation.AntiSpam.DuplicateLimit)
	cfg.Moderation.CapsDetection.Enabled = envBool("CAPS_DETECTION_ENABLED", cfg.Moderation.CapsDetection.Enabled)
	cfg.Moderation.CapsDetection.Threshold = envFloat("CAPS_THRESHOLD", cfg.Moderation.CapsDetection.Threshold)
	cfg.Moderation.CapsDetection.MinLength = envInt("CAPS_MIN_LENGTH", cfg.Moderation.CapsDetection.MinLength)
	cfg.Moderation.LogChannelID = envString("MOD_LOG_CHANNEL", cfg.Moderation.LogChannelID)
	if words := envString("BLACKLIST", ""); words != "" {
		cfg.Moderation.Blacklist = splitList(words)
	}
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(strings.ToLower(level)))
	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
