// Package config loads server configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the game server.
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`

	JWTSecret string        `env:"JWT_SECRET,required"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"24h"`

	PhaseSeconds     int           `env:"PHASE_SECONDS" envDefault:"30"`
	TickInterval     time.Duration `env:"TICK_INTERVAL" envDefault:"1s"`
	MinPlayers       int           `env:"MIN_PLAYERS" envDefault:"2"`
	MaxPlayers       int           `env:"MAX_PLAYERS" envDefault:"6"`
	IdleStartTimeout time.Duration `env:"IDLE_START_TIMEOUT" envDefault:"60s"`

	SnapshotCacheTTL time.Duration `env:"SNAPSHOT_CACHE_TTL" envDefault:"30s"`
}

// Load reads an optional .env file and parses the environment.
func Load() (Config, error) {
	// Absent .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	if cfg.PhaseSeconds <= 0 {
		return Config{}, fmt.Errorf("config: PHASE_SECONDS must be positive, got %d", cfg.PhaseSeconds)
	}
	if cfg.MinPlayers < 1 || cfg.MaxPlayers < cfg.MinPlayers {
		return Config{}, fmt.Errorf("config: bad player bounds [%d, %d]", cfg.MinPlayers, cfg.MaxPlayers)
	}
	return cfg, nil
}
