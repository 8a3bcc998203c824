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

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Upstream  UpstreamConfig
	Quota     QuotaConfig
	Reconcile ReconcileConfig
	Export    ExportConfig
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
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// UpstreamConfig points at the hostel-core backend this gateway fronts.
type UpstreamConfig struct {
	BaseURL      string
	Timeout      time.Duration
	ServiceToken string
	HealthPath   string
}

// QuotaConfig tunes the weekly outpass allowance.
type QuotaConfig struct {
	WeeklyLimit int
	Window      time.Duration
}

// ReconcileConfig drives the fallback-record reconciliation worker.
type ReconcileConfig struct {
	Enabled    bool
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// ExportConfig gates the history export endpoint.
type ExportConfig struct {
	Enabled bool
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
		Secret: v.GetString("JWT_SECRET"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Upstream = UpstreamConfig{
		BaseURL:      strings.TrimRight(v.GetString("HOSTEL_CORE_BASE_URL"), "/"),
		Timeout:      parseDuration(v.GetString("HOSTEL_CORE_TIMEOUT"), 10*time.Second),
		ServiceToken: v.GetString("HOSTEL_CORE_SERVICE_TOKEN"),
		HealthPath:   v.GetString("HOSTEL_CORE_HEALTH_PATH"),
	}

	cfg.Quota = QuotaConfig{
		WeeklyLimit: v.GetInt("OUTPASS_WEEKLY_LIMIT"),
		Window:      parseDuration(v.GetString("OUTPASS_QUOTA_WINDOW"), 7*24*time.Hour),
	}

	cfg.Reconcile = ReconcileConfig{
		Enabled:    v.GetBool("ENABLE_RECONCILE"),
		Workers:    v.GetInt("RECONCILE_WORKERS"),
		MaxRetries: v.GetInt("RECONCILE_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("RECONCILE_RETRY_DELAY"), 30*time.Second),
	}

	cfg.Export = ExportConfig{
		Enabled: v.GetBool("ENABLE_HISTORY_EXPORT"),
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
	v.SetDefault("DB_NAME", "hostelhaven_outpass")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("HOSTEL_CORE_BASE_URL", "http://localhost:3000/api")
	v.SetDefault("HOSTEL_CORE_TIMEOUT", "10s")
	v.SetDefault("HOSTEL_CORE_SERVICE_TOKEN", "")
	v.SetDefault("HOSTEL_CORE_HEALTH_PATH", "/health")

	v.SetDefault("OUTPASS_WEEKLY_LIMIT", 3)
	v.SetDefault("OUTPASS_QUOTA_WINDOW", "168h")

	v.SetDefault("ENABLE_RECONCILE", true)
	v.SetDefault("RECONCILE_WORKERS", 1)
	v.SetDefault("RECONCILE_MAX_RETRIES", 5)
	v.SetDefault("RECONCILE_RETRY_DELAY", "30s")

	v.SetDefault("ENABLE_HISTORY_EXPORT", true)
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
