// Package config загружает конфигурацию бота из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"serotonyl.ru/kudos-bot/internal/common"
)

// Хранилища, которые умеет поднимать app.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Slack ---
	SlackBotToken      string `envconfig:"SLACK_BOT_TOKEN" required:"true"`
	SlackSigningSecret string `envconfig:"SLACK_SIGNING_SECRET" required:"true"`
	// Если задан — команды из других воркспейсов игнорируются
	SlackTeamID string `envconfig:"SLACK_TEAM_ID"`

	// --- HTTP ---
	HTTPHost string `envconfig:"HTTP_HOST" default:"0.0.0.0"`
	HTTPPort int    `envconfig:"HTTP_PORT" default:"3000"`

	// --- Database ---
	// DATABASE_URL имеет приоритет над DB_* (так задаёт Heroku/Aiven)
	DatabaseURL string `envconfig:"DATABASE_URL"`
	DBHost      string `envconfig:"DB_HOST" default:"postgres"`
	DBPort      int    `envconfig:"DB_PORT" default:"5432"`
	DBUser      string `envconfig:"DB_USER" default:"kudos"`
	DBPassword  string `envconfig:"DB_PASSWORD"`
	DBName      string `envconfig:"DB_NAME" default:"kudos"`
	DBSSLMode   string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"5"`
	DBMinConns  int32  `envconfig:"DB_MIN_CONNS" default:"1"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	// Часовой пояс планировщика задач
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"UTC"`
	// postgres | memory (memory — для локального запуска без БД)
	AppStore   string `envconfig:"APP_STORE" default:"postgres"`
	BotVersion string `envconfig:"BOT_VERSION" default:"dev"`

	// --- Bot runtime ---
	// Сколько команд обрабатываем параллельно
	BotMaxInflight int `envconfig:"BOT_MAX_INFLIGHT" default:"64"`
	// Таймаут на обработку одной команды (БД + Slack API)
	BotCommandTimeout time.Duration `envconfig:"BOT_COMMAND_TIMEOUT" default:"30s"`

	// --- Kudos defaults (переопределяются настройками канала) ---
	MonthlyQuota       int    `envconfig:"MONTHLY_QUOTA" default:"10"`
	LeaderboardLimit   int    `envconfig:"LEADERBOARD_LIMIT" default:"10"`
	Timezone           string `envconfig:"TIMEZONE" default:"UTC"`
	DefaultPersonality string `envconfig:"BOT_PERSONALITY" default:"crab"`
	// Каталог с дополнительными *.toml персонажностями (необязательно)
	PersonalityDir string `envconfig:"PERSONALITY_DIR"`

	// --- Directory cache ---
	// Пусто — кэш в памяти процесса
	RedisURL          string        `envconfig:"REDIS_URL"`
	DirectoryCacheTTL time.Duration `envconfig:"DIRECTORY_CACHE_TTL" default:"1h"`

	// --- Retention ---
	// 0 — не удалять старые kudos
	RetentionMonths int `envconfig:"RETENTION_MONTHS" default:"0"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"10"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
}

// Defaults — глобальные значения настроек канала.
type Defaults struct {
	Personality      string
	MonthlyQuota     int
	LeaderboardLimit int
	Timezone         string
}

// ChannelDefaults возвращает значения, которые действуют, пока канал не настроен.
func (c *Config) ChannelDefaults() Defaults {
	return Defaults{
		Personality:      c.DefaultPersonality,
		MonthlyQuota:     c.MonthlyQuota,
		LeaderboardLimit: c.LeaderboardLimit,
		Timezone:         c.Timezone,
	}
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// ListenAddr — адрес HTTP-сервера для колбэков Slack.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTPHost, c.HTTPPort)
}

func (c *Config) Validate() error {
	if c.SlackBotToken == "" || c.SlackSigningSecret == "" {
		return fmt.Errorf("SLACK_BOT_TOKEN и SLACK_SIGNING_SECRET обязательны")
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if c.BotMaxInflight <= 0 {
		return fmt.Errorf("BOT_MAX_INFLIGHT должен быть > 0")
	}
	if c.BotCommandTimeout <= 0 {
		return fmt.Errorf("BOT_COMMAND_TIMEOUT должен быть > 0")
	}
	if c.MonthlyQuota <= 0 {
		return fmt.Errorf("MONTHLY_QUOTA должен быть > 0")
	}
	if c.LeaderboardLimit <= 0 {
		return fmt.Errorf("LEADERBOARD_LIMIT должен быть > 0")
	}
	if _, err := common.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE: %w", err)
	}
	if _, err := common.LoadLocation(c.AppTimezone); err != nil {
		return fmt.Errorf("APP_TIMEZONE: %w", err)
	}
	if c.RetentionMonths < 0 {
		return fmt.Errorf("RETENTION_MONTHS не может быть отрицательным")
	}
	return nil
}

// validateStorage — только то, что нужно для подключения к хранилищу.
func (c *Config) validateStorage() error {
	if c.AppStore != StorePostgres && c.AppStore != StoreMemory {
		return fmt.Errorf("APP_STORE должен быть %q или %q", StorePostgres, StoreMemory)
	}
	if c.AppStore == StorePostgres && c.DatabaseURL == "" && c.DBPassword == "" {
		return fmt.Errorf("нужен DATABASE_URL или DB_PASSWORD")
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	return nil
}

// LoadStorage читает окружение для kudosctl: токены Slack не нужны.
func LoadStorage() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}
	if err := cfg.validateStorage(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
