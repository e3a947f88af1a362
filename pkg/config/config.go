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

// Store backends for approval data.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
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
	Approvals ApprovalsConfig
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

// JWTConfig describes how identity-provider tokens are verified.
type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ApprovalsConfig tunes the dual-control engine.
type ApprovalsConfig struct {
	Store              string
	PolicyCacheEnabled bool
	PolicyCacheTTL     time.Duration
	ConflictRetries    int
	AllowSelfApproval  bool
	BaselineRoles      []string
	AuditAsync         bool
	AuditWorkers       int
	AuditRetries       int
	DefaultPageSize    int
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
		Secret:   v.GetString("JWT_SECRET"),
		Issuer:   v.GetString("JWT_ISSUER"),
		Audience: v.GetString("JWT_AUDIENCE"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	store := strings.ToLower(strings.TrimSpace(v.GetString("APPROVALS_STORE")))
	if store != StoreMemory {
		store = StorePostgres
	}
	retries := v.GetInt("APPROVALS_CONFLICT_RETRIES")
	if retries <= 0 {
		retries = 3
	}
	pageSize := v.GetInt("APPROVALS_DEFAULT_PAGE_SIZE")
	if pageSize <= 0 {
		pageSize = 25
	}
	cfg.Approvals = ApprovalsConfig{
		Store:              store,
		PolicyCacheEnabled: v.GetBool("APPROVALS_POLICY_CACHE_ENABLED"),
		PolicyCacheTTL:     parseDuration(v.GetString("APPROVALS_POLICY_CACHE_TTL"), time.Minute),
		ConflictRetries:    retries,
		AllowSelfApproval:  v.GetBool("APPROVALS_ALLOW_SELF_APPROVAL"),
		BaselineRoles:      splitAndTrim(v.GetString("APPROVALS_BASELINE_ROLES")),
		AuditAsync:         v.GetBool("APPROVALS_AUDIT_ASYNC"),
		AuditWorkers:       v.GetInt("APPROVALS_AUDIT_WORKERS"),
		AuditRetries:       v.GetInt("APPROVALS_AUDIT_RETRIES"),
		DefaultPageSize:    pageSize,
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "campground_approvals")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", false)
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

	v.SetDefault("APPROVALS_STORE", StorePostgres)
	v.SetDefault("APPROVALS_POLICY_CACHE_ENABLED", true)
	v.SetDefault("APPROVALS_POLICY_CACHE_TTL", "1m")
	v.SetDefault("APPROVALS_CONFLICT_RETRIES", 3)
	v.SetDefault("APPROVALS_ALLOW_SELF_APPROVAL", false)
	v.SetDefault("APPROVALS_BASELINE_ROLES", "owner,manager,finance,platform_admin")
	v.SetDefault("APPROVALS_AUDIT_ASYNC", false)
	v.SetDefault("APPROVALS_AUDIT_WORKERS", 2)
	v.SetDefault("APPROVALS_AUDIT_RETRIES", 3)
	v.SetDefault("APPROVALS_DEFAULT_PAGE_SIZE", 25)
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
