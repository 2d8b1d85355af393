// Package config loads service configuration from an optional .env file and
// the environment using viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultJWTSecret = "change-me-in-production"

// Config holds all application configuration.
type Config struct {
	App          AppConfig
	Server       ServerConfig
	Store        StoreConfig
	Database     DatabaseConfig
	Auth         AuthConfig
	Redis        RedisConfig
	Kafka        KafkaConfig
	Registration RegistrationConfig
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	LogLevel    string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	ConnectRetries  int
	RetryInterval   time.Duration
}

// DSN builds a libpq-compatible connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// AuthConfig holds bearer-token verification settings.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// RedisConfig holds the idempotency store settings. An empty Addr disables it.
type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	IdempotencyTTL time.Duration
	ProcessingTTL  time.Duration
}

// Enabled reports whether a Redis address was configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// KafkaConfig holds lifecycle event publishing settings. No brokers means
// events are only logged.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Enabled reports whether any broker was configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// RegistrationConfig tunes registration behaviour.
type RegistrationConfig struct {
	// AutoPromote runs waitlist promotion after every deregistration.
	AutoPromote bool
}

// Load reads configuration from path (a .env file; "" means ./.env) and the
// environment. A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		path = ".env"
	}
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	cfg := bind(v)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "club-events")
	v.SetDefault("APP_ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_READ_TIMEOUT", "15s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "15s")
	v.SetDefault("SERVER_IDLE_TIMEOUT", "60s")
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "10s")

	v.SetDefault("STORE_DRIVER", DriverPostgres)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "clubevents")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("DB_MAX_CONN_LIFETIME", "30m")
	v.SetDefault("DB_MAX_CONN_IDLE_TIME", "5m")
	v.SetDefault("DB_CONNECT_RETRIES", 5)
	v.SetDefault("DB_RETRY_INTERVAL", "2s")

	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("IDEMPOTENCY_TTL", "24h")
	v.SetDefault("IDEMPOTENCY_PROCESSING_TTL", "60s")

	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "club-events.lifecycle")

	v.SetDefault("REGISTRATION_AUTO_PROMOTE", false)
}

func bind(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.App.Name = v.GetString("APP_NAME")
	cfg.App.Environment = v.GetString("APP_ENVIRONMENT")
	cfg.App.LogLevel = v.GetString("LOG_LEVEL")

	cfg.Server.Port = v.GetInt("SERVER_PORT")
	cfg.Server.ReadTimeout = v.GetDuration("SERVER_READ_TIMEOUT")
	cfg.Server.WriteTimeout = v.GetDuration("SERVER_WRITE_TIMEOUT")
	cfg.Server.IdleTimeout = v.GetDuration("SERVER_IDLE_TIMEOUT")
	cfg.Server.ShutdownTimeout = v.GetDuration("SERVER_SHUTDOWN_TIMEOUT")

	cfg.Store.Driver = strings.ToLower(v.GetString("STORE_DRIVER"))

	cfg.Database.Host = v.GetString("DB_HOST")
	cfg.Database.Port = v.GetInt("DB_PORT")
	cfg.Database.User = v.GetString("DB_USER")
	cfg.Database.Password = v.GetString("DB_PASSWORD")
	cfg.Database.Name = v.GetString("DB_NAME")
	cfg.Database.SSLMode = v.GetString("DB_SSLMODE")
	cfg.Database.MaxConns = v.GetInt32("DB_MAX_CONNS")
	cfg.Database.MinConns = v.GetInt32("DB_MIN_CONNS")
	cfg.Database.MaxConnLifetime = v.GetDuration("DB_MAX_CONN_LIFETIME")
	cfg.Database.MaxConnIdleTime = v.GetDuration("DB_MAX_CONN_IDLE_TIME")
	cfg.Database.ConnectRetries = v.GetInt("DB_CONNECT_RETRIES")
	cfg.Database.RetryInterval = v.GetDuration("DB_RETRY_INTERVAL")

	cfg.Auth.JWTSecret = v.GetString("JWT_SECRET")
	cfg.Auth.Issuer = v.GetString("JWT_ISSUER")

	cfg.Redis.Addr = v.GetString("REDIS_ADDR")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")
	cfg.Redis.IdempotencyTTL = v.GetDuration("IDEMPOTENCY_TTL")
	cfg.Redis.ProcessingTTL = v.GetDuration("IDEMPOTENCY_PROCESSING_TTL")

	cfg.Kafka.Brokers = splitList(v.GetString("KAFKA_BROKERS"))
	cfg.Kafka.Topic = v.GetString("KAFKA_TOPIC")

	cfg.Registration.AutoPromote = v.GetBool("REGISTRATION_AUTO_PROMOTE")

	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	switch c.Store.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if c.IsProduction() && c.Auth.JWTSecret == defaultJWTSecret {
		return fmt.Errorf("JWT secret must be changed in production")
	}
	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		return fmt.Errorf("kafka topic is required when brokers are set")
	}
	return nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// isMissingFile matches the fs error viper returns for an explicit
// SetConfigFile path that does not exist.
func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist) ||
		strings.Contains(err.Error(), "no such file or directory")
}
