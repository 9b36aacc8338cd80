// Package config loads the server configuration from the environment,
// with an optional .env file for local development.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full configuration surface of the server.
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	// HeartbeatIntervalMs controls both the expected client heartbeat
	// cadence and the eviction threshold (twice this value).
	HeartbeatIntervalMs int `env:"HEARTBEAT_INTERVAL_MS" envDefault:"15000"`

	// RatePerSecond is the per-session token-bucket capacity and
	// refill amount.
	RatePerSecond int `env:"RATE_PER_SECOND" envDefault:"10"`

	// MaxAudioBytes caps the audio-ingest request body.
	MaxAudioBytes int64 `env:"MAX_AUDIO_BYTES" envDefault:"10485760"`

	JWTSecret string `env:"JWT_SECRET" envDefault:"dev-secret"`

	DefaultSTTProvider string `env:"STT_PROVIDER" envDefault:"google"`
	DefaultTTSProvider string `env:"TTS_PROVIDER" envDefault:"elevenlabs"`
}

// Load reads .env if present, then parses the environment.
func Load() (Config, error) {
	// A missing .env is fine; real deployments set the environment
	// directly.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// HeartbeatInterval returns the heartbeat cadence as a duration.
func (c Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatIntervalMs) * time.Millisecond
}
