package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env           string
	Port          int
	APIPrefix     string
	RunMigrations bool

	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	Log          LogConfig
	Availability AvailabilityConfig
	Settlement   SettlementConfig
	Notify       NotifyConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience []string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AvailabilityConfig tunes the teacher calendar endpoints.
type AvailabilityConfig struct {
	DefaultTimezone string
	CacheEnabled    bool
	CacheTTL        time.Duration
	MaxRangeDays    int
}

// SettlementConfig governs the hold period and the payout batch job.
type SettlementConfig struct {
	HoldDays         int
	SchedulerEnabled bool
	SchedulerEvery   time.Duration
	BatchSize        int
}

// NotifyConfig configures teacher notification channels. Empty credentials disable a channel.
type NotifyConfig struct {
	Workers          int
	Retries          int
	TelegramBotToken string
	SendgridAPIKey   string
	MailFromAddress  string
	MailFromName     string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.RunMigrations = v.GetBool("RUN_MIGRATIONS")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:   v.GetString("JWT_SECRET"),
		Issuer:   v.GetString("JWT_ISSUER"),
		Audience: splitAndTrim(v.GetString("JWT_AUDIENCE")),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Availability = AvailabilityConfig{
		DefaultTimezone: v.GetString("DEFAULT_TIMEZONE"),
		CacheEnabled:    v.GetBool("ENABLE_TIMETABLE_CACHE"),
		CacheTTL:        parseDuration(v.GetString("AVAILABILITY_CACHE_TTL"), time.Minute),
		MaxRangeDays:    v.GetInt("AVAILABILITY_MAX_RANGE_DAYS"),
	}

	holdDays := v.GetInt("SETTLEMENT_HOLD_DAYS")
	if holdDays <= 0 {
		holdDays = 3
	}
	cfg.Settlement = SettlementConfig{
		HoldDays:         holdDays,
		SchedulerEnabled: v.GetBool("PAYOUT_SCHEDULER_ENABLED"),
		SchedulerEvery:   parseDuration(v.GetString("PAYOUT_SCHEDULER_INTERVAL"), 15*time.Minute),
		BatchSize:        v.GetInt("PAYOUT_BATCH_SIZE"),
	}

	cfg.Notify = NotifyConfig{
		Workers:          v.GetInt("NOTIFY_WORKERS"),
		Retries:          v.GetInt("NOTIFY_RETRIES"),
		TelegramBotToken: v.GetString("TELEGRAM_BOT_TOKEN"),
		SendgridAPIKey:   v.GetString("SENDGRID_API_KEY"),
		MailFromAddress:  v.GetString("MAIL_FROM_ADDRESS"),
		MailFromName:     v.GetString("MAIL_FROM_NAME"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("RUN_MIGRATIONS", true)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "tutoring")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("JWT_AUDIENCE", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("DEFAULT_TIMEZONE", "UTC")
	v.SetDefault("ENABLE_TIMETABLE_CACHE", true)
	v.SetDefault("AVAILABILITY_CACHE_TTL", "1m")
	v.SetDefault("AVAILABILITY_MAX_RANGE_DAYS", 31)

	v.SetDefault("SETTLEMENT_HOLD_DAYS", 3)
	v.SetDefault("PAYOUT_SCHEDULER_ENABLED", false)
	v.SetDefault("PAYOUT_SCHEDULER_INTERVAL", "15m")
	v.SetDefault("PAYOUT_BATCH_SIZE", 100)

	v.SetDefault("NOTIFY_WORKERS", 2)
	v.SetDefault("NOTIFY_RETRIES", 3)
	v.SetDefault("TELEGRAM_BOT_TOKEN", "")
	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("MAIL_FROM_ADDRESS", "no-reply@tutoring.local")
	v.SetDefault("MAIL_FROM_NAME", "Tutoring Payouts")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
