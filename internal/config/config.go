package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the variable pointing at an optional YAML file
const ConfigFileEnv = "DICE_CONFIG_FILE"

const (
	RegistryMemory = "memory"
	RegistryRedis  = "redis"
)

// Config is the server configuration. Values come from defaults, then the
// optional YAML file, then the environment.
type Config struct {
	Port           int      `yaml:"port" env:"PORT"`
	AllowedOrigins []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`

	// Registry is memory or redis
	Registry string `yaml:"registry" env:"REGISTRY"`

	// SessionTTL expires idle sessions in the redis registry; zero keeps them
	SessionTTL time.Duration `yaml:"session_ttl" env:"SESSION_TTL"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`

	Redis RedisConfig `yaml:"redis" envPrefix:"REDIS_"`
	Lock  LockConfig  `yaml:"lock" envPrefix:"LOCK_"`
	Game  GameConfig  `yaml:"game"`
	Media MediaConfig `yaml:"media" envPrefix:"MEDIA_"`
	Log   LogConfig   `yaml:"log" envPrefix:"LOG_"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`

	// RelayChannel carries events between gateway instances
	RelayChannel string `yaml:"relay_channel" env:"RELAY_CHANNEL"`
}

type LockConfig struct {
	Expiry time.Duration `yaml:"expiry" env:"EXPIRY"`
	Tries  int           `yaml:"tries" env:"TRIES"`
}

type GameConfig struct {
	// TieBreak is host or reroll
	TieBreak           string `yaml:"tie_break" env:"TIE_BREAK"`
	NotifyOpponentLeft bool   `yaml:"notify_opponent_left" env:"NOTIFY_OPPONENT_LEFT"`

	// DiceSeed makes rolls reproducible when non-zero
	DiceSeed uint64 `yaml:"dice_seed" env:"DICE_SEED"`
}

type MediaConfig struct {
	// APIKey enables result media; empty disables it
	APIKey   string        `yaml:"api_key" env:"API_KEY"`
	Endpoint string        `yaml:"endpoint" env:"ENDPOINT"`
	Timeout  time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Port:            3000,
		AllowedOrigins:  []string{"http://localhost:5173"},
		Registry:        RegistryMemory,
		ShutdownTimeout: 10 * time.Second,
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			RelayChannel: "d20duel:events",
		},
		Lock: LockConfig{
			Expiry: 8 * time.Second,
			Tries:  32,
		},
		Game: GameConfig{
			TieBreak: "host",
		},
		Media: MediaConfig{
			Endpoint: "https://api.giphy.com/v1/gifs/random",
			Timeout:  3 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration. envFiles are loaded into the process
// environment first without overriding variables already set; missing
// files are skipped.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := Default()

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks values the server cannot start with
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	switch c.Registry {
	case RegistryMemory, RegistryRedis:
	default:
		return fmt.Errorf("unknown registry %q", c.Registry)
	}
	switch c.Game.TieBreak {
	case "host", "reroll":
	default:
		return fmt.Errorf("unknown tie break %q", c.Game.TieBreak)
	}
	if c.Registry == RegistryRedis && c.Redis.Addr == "" {
		return errors.New("redis address is required for the redis registry")
	}
	return nil
}

// Addr is the HTTP listen address
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
