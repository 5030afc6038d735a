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

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Engine   EngineConfig
	Runs     RunsConfig
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
	Enabled  bool
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

// EngineConfig tunes the constraint solver. Soft-constraint weights are
// deliberately configuration, not code constants, so institutions can tune
// them without a rebuild.
type EngineConfig struct {
	DefaultLevel        string
	BacktrackMultiplier int
	ThoroughRestarts    int
	Weights             WeightConfig
}

// WeightConfig holds the penalty weight for each soft constraint.
type WeightConfig struct {
	PreferredSlot   float64
	MinimizeGaps    float64
	WorkloadBalance float64
	LabAfternoon    float64
	AvoidMorning    float64
}

// RunsConfig governs the generation run store and async workers.
type RunsConfig struct {
	TTL               time.Duration
	WorkerConcurrency int
	QueueBuffer       int
	CacheTTL          time.Duration
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
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Engine = EngineConfig{
		DefaultLevel:        v.GetString("ENGINE_DEFAULT_LEVEL"),
		BacktrackMultiplier: v.GetInt("ENGINE_BACKTRACK_MULTIPLIER"),
		ThoroughRestarts:    v.GetInt("ENGINE_THOROUGH_RESTARTS"),
		Weights: WeightConfig{
			PreferredSlot:   v.GetFloat64("WEIGHT_PREFERRED_SLOT"),
			MinimizeGaps:    v.GetFloat64("WEIGHT_MINIMIZE_GAPS"),
			WorkloadBalance: v.GetFloat64("WEIGHT_WORKLOAD_BALANCE"),
			LabAfternoon:    v.GetFloat64("WEIGHT_LAB_AFTERNOON"),
			AvoidMorning:    v.GetFloat64("WEIGHT_AVOID_MORNING"),
		},
	}

	cfg.Runs = RunsConfig{
		TTL:               parseDuration(v.GetString("RUNS_TTL"), time.Hour),
		WorkerConcurrency: v.GetInt("RUNS_WORKER_CONCURRENCY"),
		QueueBuffer:       v.GetInt("RUNS_QUEUE_BUFFER"),
		CacheTTL:          parseDuration(v.GetString("RUNS_CACHE_TTL"), 30*time.Minute),
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
	v.SetDefault("DB_NAME", "acadgrid")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "timetable-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENGINE_DEFAULT_LEVEL", "balanced")
	v.SetDefault("ENGINE_BACKTRACK_MULTIPLIER", 3)
	v.SetDefault("ENGINE_THOROUGH_RESTARTS", 5)
	v.SetDefault("WEIGHT_PREFERRED_SLOT", 2.0)
	v.SetDefault("WEIGHT_MINIMIZE_GAPS", 1.5)
	v.SetDefault("WEIGHT_WORKLOAD_BALANCE", 1.0)
	v.SetDefault("WEIGHT_LAB_AFTERNOON", 1.0)
	v.SetDefault("WEIGHT_AVOID_MORNING", 1.0)

	v.SetDefault("RUNS_TTL", "1h")
	v.SetDefault("RUNS_WORKER_CONCURRENCY", 2)
	v.SetDefault("RUNS_QUEUE_BUFFER", 16)
	v.SetDefault("RUNS_CACHE_TTL", "30m")
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
