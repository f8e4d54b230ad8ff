package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string

	SQLitePath     string
	MenuJSONPath   string
	MenuJSONBackup string

	RedisAddr string
	RedisPass string
	RedisDB   int
	CacheTTL  time.Duration

	SessionSecret   string
	RememberDays    int
	BootstrapUser   string
	BootstrapPass   string
	BootstrapName   string
	FeedbackPerMin  int

	ImagesDir string
	AudioDir  string
	MenusDir  string
	StaticDir string

	DeployEnabled  bool
	DeployToken    string
	DeployCommands []string

	TelegramToken  string
	TelegramChatID int64
}

func Load() Config {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ""),

		SQLitePath:     env("SQLITE_PATH", "data/database.db"),
		MenuJSONPath:   env("MENU_JSON_PATH", "data/menu-database.json"),
		MenuJSONBackup: env("MENU_JSON_BACKUP_PATH", "frontend/public/data/menu-database.json"),

		RedisAddr: env("REDIS_ADDR", ""),
		RedisPass: env("REDIS_PASSWORD", ""),
		RedisDB:   atoi("REDIS_DB", 0),
		CacheTTL:  time.Duration(atoi("CACHE_TTL_SECONDS", 300)) * time.Second,

		SessionSecret:  env("SESSION_SECRET", ""),
		RememberDays:   atoi("SESSION_REMEMBER_DAYS", 30),
		BootstrapUser:  env("ADMIN_BOOTSTRAP_USER", ""),
		BootstrapPass:  env("ADMIN_BOOTSTRAP_PASSWORD", ""),
		BootstrapName:  env("ADMIN_BOOTSTRAP_NAME", ""),
		FeedbackPerMin: atoi("FEEDBACK_RATE_PER_MIN", 30),

		ImagesDir: env("IMAGES_DIR", "images"),
		AudioDir:  env("AUDIO_DIR", "audio"),
		MenusDir:  env("MENUS_DIR", "frontend/public/menus"),
		StaticDir: env("STATIC_DIR", "frontend/dist"),

		DeployEnabled: env("DEPLOY_ENABLED", "false") == "true",
		DeployToken:   env("DEPLOY_TOKEN", ""),

		TelegramToken: env("TELEGRAM_BOT_TOKEN", ""),
	}
	if v := env("DEPLOY_COMMANDS", ""); v != "" {
		for _, s := range strings.Split(v, ";") {
			if s = strings.TrimSpace(s); s != "" {
				c.DeployCommands = append(c.DeployCommands, s)
			}
		}
	}
	if v := env("TELEGRAM_CHAT_ID", ""); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.TelegramChatID = id
		}
	}
	if c.SessionSecret == "" {
		log.Warn().Msg("SESSION_SECRET is empty, sessions will not survive restarts")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
