package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "club-events", cfg.App.Name)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, int32(20), cfg.Database.MaxConns)
	assert.Equal(t, 5, cfg.Database.ConnectRetries)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Kafka.Enabled())
	assert.False(t, cfg.Registration.AutoPromote)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.env")
	content := "SERVER_PORT=9090\nSTORE_DRIVER=memory\nKAFKA_BROKERS=a:9092, b:9092\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("REGISTRATION_AUTO_PROMOTE", "true")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Registration.AutoPromote)
	assert.True(t, cfg.Redis.Enabled())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			App:    AppConfig{Name: "x", Environment: "development"},
			Server: ServerConfig{Port: 8080},
			Store:  StoreConfig{Driver: DriverMemory},
			Auth:   AuthConfig{JWTSecret: "s"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, true},
		{"unknown driver", func(c *Config) { c.Store.Driver = "mongo" }, true},
		{"empty secret", func(c *Config) { c.Auth.JWTSecret = "" }, true},
		{"default secret in production", func(c *Config) {
			c.App.Environment = "production"
			c.Auth.JWTSecret = defaultJWTSecret
		}, true},
		{"brokers without topic", func(c *Config) { c.Kafka.Brokers = []string{"k:9092"} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{Host: "h", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=h port=5432 user=u password=p dbname=n sslmode=disable", d.DSN())
}
