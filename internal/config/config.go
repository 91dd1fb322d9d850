package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/ArowuTest/srandom/internal/rng"
)

// AppConfig holds all environment variables.
type AppConfig struct {
	Port       string `env:"PORT" envDefault:"8080"`
	DeviceName string `env:"DEVICE_NAME" envDefault:"srandom"`

	Lanes        int    `env:"SRANDOM_LANES" envDefault:"16"`
	LaneWords    int    `env:"SRANDOM_LANE_WORDS" envDefault:"64"`
	MaxReadBytes int    `env:"SRANDOM_MAX_READ_BYTES" envDefault:"1048576"`
	ReseedSpan   uint64 `env:"SRANDOM_RESEED_SPAN" envDefault:"255"`

	SnapshotInterval time.Duration `env:"SNAPSHOT_INTERVAL" envDefault:"1m"`
	ShutdownTimeout  time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`

	DBHost     string `env:"DB_HOST"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER"`
	DBName     string `env:"DB_NAME"`
	DBPassword string `env:"DB_PASSWORD"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	JWTSecret         string `env:"JWT_SECRET_KEY"`
	AdminUsername     string `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH"`
	FrontendURL       string `env:"FRONTEND_URL" envDefault:"*"`
}

// Load reads environment variables (and .env if present).
func Load() (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that would otherwise fail deep inside startup.
func (c *AppConfig) Validate() error {
	if err := c.PoolConfig().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.MaxReadBytes <= 0 {
		return errors.New("config: SRANDOM_MAX_READ_BYTES must be positive")
	}
	if c.SnapshotInterval < 0 {
		return errors.New("config: SNAPSHOT_INTERVAL must not be negative")
	}
	if c.ReseedSpan > math.MaxInt16 {
		return fmt.Errorf("config: SRANDOM_RESEED_SPAN must not exceed %d", math.MaxInt16)
	}
	if c.FrontendURL != "" && c.FrontendURL != "*" && !strings.HasPrefix(c.FrontendURL, "http://") && !strings.HasPrefix(c.FrontendURL, "https://") {
		return errors.New("config: FRONTEND_URL must be * or an http(s) origin")
	}
	return nil
}

// PoolConfig returns the lane geometry.
func (c *AppConfig) PoolConfig() rng.PoolConfig {
	return rng.PoolConfig{Lanes: c.Lanes, LaneWords: c.LaneWords}
}

// DatabaseEnabled reports whether a database is configured.
func (c *AppConfig) DatabaseEnabled() bool {
	return c.DBHost != ""
}

// AdminEnabled reports whether admin login can succeed.
func (c *AppConfig) AdminEnabled() bool {
	return c.AdminPasswordHash != "" && c.JWTSecret != ""
}

// DSN builds the postgres connection string.
func (c *AppConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode,
	)
}
