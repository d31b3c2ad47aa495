package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the full application configuration, loaded from the
// environment (optionally via a .env file).
type Config struct {
	Telegram TelegramConfig
	Owner    OwnerConfig
	BotName  string
	Webhook  WebhookConfig
	AI       AIConfig
	Server   ServerConfig
	Database DatabaseConfig
	LogLevel string

	// InitialGroups are chat references monitored from startup,
	// comma-separated in TELEGRAM_GROUPS.
	InitialGroups []string
}

// TelegramConfig holds the MTProto credentials.
type TelegramConfig struct {
	APIID       int
	APIHash     string
	PhoneNumber string
	SessionFile string
}

// OwnerConfig identifies the single privileged user.
type OwnerConfig struct {
	ID int64
}

// WebhookConfig holds the outbound webhook settings.
type WebhookConfig struct {
	URL             string
	IntervalMinutes int
}

// AIConfig holds the OpenAI-compatible provider pair. The fallback is
// attempted only when the primary fails; either half may be absent.
type AIConfig struct {
	APIBase string
	APIKey  string
	Model   string

	FallbackAPIBase string
	FallbackAPIKey  string
	FallbackModel   string
}

// Configured reports whether a primary provider is set.
func (c *AIConfig) Configured() bool {
	return c.APIKey != "" && c.APIBase != ""
}

// HasFallback reports whether a fallback provider is set.
func (c *AIConfig) HasFallback() bool {
	return c.FallbackAPIKey != ""
}

// ServerConfig holds the status endpoint settings.
type ServerConfig struct {
	Addr string
}

// DatabaseConfig holds the sqlite path.
type DatabaseConfig struct {
	Path string
}

// Load reads configuration from a .env file (if present) and the
// environment. Returned errors name every missing required variable, so a
// bad deployment fails once with the complete list.
func Load() (*Config, error) {
	// Absence of .env is fine, the environment alone may be complete.
	_ = godotenv.Load()

	cfg := &Config{
		BotName:  getEnv("BOT_NAME", "observer"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Telegram: TelegramConfig{
			APIHash:     os.Getenv("API_HASH"),
			PhoneNumber: os.Getenv("PHONE_NUMBER"),
			SessionFile: getEnv("SESSION_FILE", "data/tg.session"),
		},
		Webhook: WebhookConfig{
			URL: os.Getenv("WEBHOOK_URL"),
		},
		AI: AIConfig{
			APIBase:         os.Getenv("AI_API_BASE"),
			APIKey:          os.Getenv("AI_API_KEY"),
			Model:           getEnv("AI_MODEL", "gpt-4o-mini"),
			FallbackAPIBase: os.Getenv("FALLBACK_AI_API_BASE"),
			FallbackAPIKey:  os.Getenv("FALLBACK_AI_API_KEY"),
			FallbackModel:   os.Getenv("FALLBACK_AI_MODEL"),
		},
		Server:   ServerConfig{Addr: getEnv("SERVER_ADDR", ":8080")},
		Database: DatabaseConfig{Path: getEnv("DATABASE_PATH", "data/observations.db")},
	}

	var missing []string
	require := func(name, value string) {
		if value == "" {
			missing = append(missing, name)
		}
	}
	require("API_ID", os.Getenv("API_ID"))
	require("API_HASH", cfg.Telegram.APIHash)
	require("PHONE_NUMBER", cfg.Telegram.PhoneNumber)
	require("OWNER_ID", os.Getenv("OWNER_ID"))
	require("WEBHOOK_URL", cfg.Webhook.URL)
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	apiID, err := strconv.Atoi(os.Getenv("API_ID"))
	if err != nil {
		return nil, fmt.Errorf("invalid API_ID %q: must be an integer", os.Getenv("API_ID"))
	}
	cfg.Telegram.APIID = apiID

	ownerID, err := strconv.ParseInt(os.Getenv("OWNER_ID"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid OWNER_ID %q: must be an integer", os.Getenv("OWNER_ID"))
	}
	cfg.Owner.ID = ownerID

	interval, err := strconv.Atoi(getEnv("WEBHOOK_INTERVAL_MINUTES", "60"))
	if err != nil || interval <= 0 {
		return nil, fmt.Errorf("invalid WEBHOOK_INTERVAL_MINUTES %q: must be a positive integer",
			getEnv("WEBHOOK_INTERVAL_MINUTES", "60"))
	}
	cfg.Webhook.IntervalMinutes = interval

	if groups := os.Getenv("TELEGRAM_GROUPS"); groups != "" {
		for _, g := range strings.Split(groups, ",") {
			if g = strings.TrimSpace(g); g != "" {
				cfg.InitialGroups = append(cfg.InitialGroups, g)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges after parsing.
func (c *Config) Validate() error {
	if c.Telegram.APIID <= 0 {
		return fmt.Errorf("API_ID must be positive")
	}
	if c.Owner.ID == 0 {
		return fmt.Errorf("OWNER_ID must be a non-zero Telegram user id")
	}
	if c.Webhook.IntervalMinutes <= 0 {
		return fmt.Errorf("WEBHOOK_INTERVAL_MINUTES must be positive")
	}
	if c.AI.HasFallback() && !c.AI.Configured() {
		return fmt.Errorf("fallback AI provider configured without a primary (set AI_API_BASE/AI_API_KEY)")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
