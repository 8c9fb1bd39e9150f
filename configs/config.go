package configs

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Auth     AuthConfig     `yaml:"auth"`
	Storage  StorageConfig  `yaml:"storage"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Reset    ResetConfig    `yaml:"reset"`
	Market   MarketConfig   `yaml:"market"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string        `yaml:"port" default:"5000"`
	OpsPort         string        `yaml:"ops_port" default:"9090"`
	Env             string        `yaml:"env" default:"development"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"15s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
}

// DefaultJWTSecret is only accepted in development
const DefaultJWTSecret = "default-secret-change-in-production"

// AuthConfig holds session token configuration
type AuthConfig struct {
	JWTSecret    string        `yaml:"jwt_secret" default:"default-secret-change-in-production"`
	TokenTTL     time.Duration `yaml:"token_ttl" default:"24h"`
	SecureCookie bool          `yaml:"secure_cookie"`
}

// StorageConfig selects the user store backend
type StorageConfig struct {
	Driver    string `yaml:"driver" default:"json"` // json or postgres
	UsersFile string `yaml:"users_file" default:"users.json"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL string `yaml:"url"`
}

// ResetConfig holds password reset configuration
type ResetConfig struct {
	Store         string        `yaml:"store" default:"memory"` // memory or redis
	CodeTTL       time.Duration `yaml:"code_ttl" default:"10m"`
	ExposeCode    *bool         `yaml:"expose_code"` // unset: on in development only
	PurgeSchedule string        `yaml:"purge_schedule" default:"@every 1m"`
}

// MarketConfig holds settings of the simulated market
type MarketConfig struct {
	ValuationDate  string        `yaml:"valuation_date" default:"2022-11-16"`
	Timezone       string        `yaml:"timezone" default:"America/Mexico_City"`
	StreamInterval time.Duration `yaml:"stream_interval" default:"5s"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string `yaml:"level" default:"info"`
	Format string `yaml:"format" default:"console"`
	Output string `yaml:"output" default:"stdout"`
}

// Load builds the configuration from struct defaults, an optional YAML file
// and environment variables, in that order of precedence.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("set config defaults: %w", err)
	}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)

	if cfg.Reset.ExposeCode == nil {
		expose := cfg.IsDevelopment()
		cfg.Reset.ExposeCode = &expose
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Server.OpsPort = getEnv("OPS_PORT", cfg.Server.OpsPort)
	cfg.Server.Env = getEnv("GO_ENV", cfg.Server.Env)
	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.SecureCookie = getEnvBool("SECURE_COOKIE", cfg.Auth.SecureCookie)
	cfg.Storage.Driver = getEnv("STORAGE_DRIVER", cfg.Storage.Driver)
	cfg.Storage.UsersFile = getEnv("USERS_FILE", cfg.Storage.UsersFile)
	cfg.Database.URL = getEnv("DATABASE_URL", cfg.Database.URL)
	cfg.Redis.URL = getEnv("REDIS_URL", cfg.Redis.URL)
	cfg.Reset.Store = getEnv("RESET_STORE", cfg.Reset.Store)
	if value := os.Getenv("RESET_EXPOSE_CODE"); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			cfg.Reset.ExposeCode = &b
		}
	}
	cfg.Market.ValuationDate = getEnv("VALUATION_DATE", cfg.Market.ValuationDate)
	cfg.Market.Timezone = getEnv("MARKET_TIMEZONE", cfg.Market.Timezone)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)
}

// Validate checks if the configuration is usable
func (c *Config) Validate() error {
	if !c.IsDevelopment() && (c.Auth.JWTSecret == "" || c.Auth.JWTSecret == DefaultJWTSecret) {
		return fmt.Errorf("auth.jwt_secret must be set outside development")
	}

	switch c.Storage.Driver {
	case "json":
		if c.Storage.UsersFile == "" {
			return fmt.Errorf("storage.users_file is required for the json driver")
		}
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("storage.driver must be 'json' or 'postgres', got '%s'", c.Storage.Driver)
	}

	switch c.Reset.Store {
	case "memory":
	case "redis":
		if c.Redis.URL == "" {
			return fmt.Errorf("redis.url is required for the redis reset store")
		}
	default:
		return fmt.Errorf("reset.store must be 'memory' or 'redis', got '%s'", c.Reset.Store)
	}

	if c.Reset.CodeTTL <= 0 {
		return fmt.Errorf("reset.code_ttl must be positive")
	}
	if _, err := c.Market.Valuation(); err != nil {
		return err
	}
	if c.Market.StreamInterval <= 0 {
		return fmt.Errorf("market.stream_interval must be positive")
	}
	return nil
}

// ExposesCode reports whether verification codes are echoed in responses
func (r ResetConfig) ExposesCode() bool {
	return r.ExposeCode != nil && *r.ExposeCode
}

// Valuation parses the configured valuation date
func (m MarketConfig) Valuation() (time.Time, error) {
	t, err := time.Parse("2006-01-02", m.ValuationDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("market.valuation_date: %w", err)
	}
	return t, nil
}

// IsDevelopment reports whether the service runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
