package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Platform identifiers selectable at startup.
const (
	PlatformZalo = "zalo"
	PlatformWeb  = "web"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Stats    StatsConfig
	Reports  ReportsConfig
	Platform PlatformConfig
	Notify   NotifyConfig
}

type DatabaseConfig struct {
	Host          string
	Port          int
	User          string
	Password      string
	Name          string
	SSLMode       string
	MaxOpenConns  int
	MaxIdleConns  int
	MigrationsDir string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// StatsConfig tunes the statistics aggregation and its caches.
type StatsConfig struct {
	CacheTTL        time.Duration
	TrendDays       int
	ResponseCache   bool
	ResponseCacheTL time.Duration
}

// ReportsConfig configures the AI report generator.
type ReportsConfig struct {
	APIBaseURL string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxTokens  int
}

// PlatformConfig selects the runtime platform adapter.
type PlatformConfig struct {
	Name           string
	ZaloAppID      string
	ZaloAppSecret  string
	ZaloOAToken    string
	ZaloAPIBaseURL string
	Timeout        time.Duration
}

// NotifyConfig tunes the notification dispatch queue.
type NotifyConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
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
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:          v.GetString("DB_HOST"),
		Port:          v.GetInt("DB_PORT"),
		User:          v.GetString("DB_USER"),
		Password:      v.GetString("DB_PASSWORD"),
		Name:          v.GetString("DB_NAME"),
		SSLMode:       v.GetString("DB_SSL_MODE"),
		MaxOpenConns:  v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:  v.GetInt("DB_MAX_IDLE_CONNS"),
		MigrationsDir: v.GetString("DB_MIGRATIONS_DIR"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 7*24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Stats = StatsConfig{
		CacheTTL:        parseDuration(v.GetString("STATS_CACHE_TTL"), 24*time.Hour),
		TrendDays:       v.GetInt("STATS_TREND_DAYS"),
		ResponseCache:   v.GetBool("STATS_RESPONSE_CACHE"),
		ResponseCacheTL: parseDuration(v.GetString("STATS_RESPONSE_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Reports = ReportsConfig{
		APIBaseURL: v.GetString("REPORTS_API_BASE_URL"),
		APIKey:     v.GetString("REPORTS_API_KEY"),
		Model:      v.GetString("REPORTS_MODEL"),
		Timeout:    parseDuration(v.GetString("REPORTS_TIMEOUT"), 30*time.Second),
		MaxTokens:  v.GetInt("REPORTS_MAX_TOKENS"),
	}

	cfg.Platform = PlatformConfig{
		Name:           strings.ToLower(v.GetString("PLATFORM")),
		ZaloAppID:      v.GetString("ZALO_APP_ID"),
		ZaloAppSecret:  v.GetString("ZALO_APP_SECRET"),
		ZaloOAToken:    v.GetString("ZALO_OA_TOKEN"),
		ZaloAPIBaseURL: v.GetString("ZALO_API_BASE_URL"),
		Timeout:        parseDuration(v.GetString("PLATFORM_TIMEOUT"), 10*time.Second),
	}

	cfg.Notify = NotifyConfig{
		Workers:    v.GetInt("NOTIFY_WORKERS"),
		MaxRetries: v.GetInt("NOTIFY_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("NOTIFY_RETRY_DELAY"), 2*time.Second),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "studynote")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_MIGRATIONS_DIR", "migrations")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "168h")
	v.SetDefault("JWT_ISSUER", "studynote-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("STATS_CACHE_TTL", "24h")
	v.SetDefault("STATS_TREND_DAYS", 7)
	v.SetDefault("STATS_RESPONSE_CACHE", false)
	v.SetDefault("STATS_RESPONSE_CACHE_TTL", "5m")

	v.SetDefault("REPORTS_API_BASE_URL", "https://api.openai.com/v1")
	v.SetDefault("REPORTS_API_KEY", "")
	v.SetDefault("REPORTS_MODEL", "gpt-4o-mini")
	v.SetDefault("REPORTS_TIMEOUT", "30s")
	v.SetDefault("REPORTS_MAX_TOKENS", 800)

	v.SetDefault("PLATFORM", PlatformWeb)
	v.SetDefault("ZALO_APP_ID", "")
	v.SetDefault("ZALO_APP_SECRET", "")
	v.SetDefault("ZALO_OA_TOKEN", "")
	v.SetDefault("ZALO_API_BASE_URL", "https://graph.zalo.me")
	v.SetDefault("PLATFORM_TIMEOUT", "10s")

	v.SetDefault("NOTIFY_WORKERS", 2)
	v.SetDefault("NOTIFY_MAX_RETRIES", 3)
	v.SetDefault("NOTIFY_RETRY_DELAY", "2s")
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
