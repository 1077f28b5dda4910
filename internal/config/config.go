package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Sources of trivia questions.
const (
	SourceOpenTDB = "opentdb"
	SourceOffline = "offline"
)

type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	} `yaml:"log"`
	Source  string `yaml:"source" validate:"oneof=opentdb offline"`
	OpenTDB struct {
		BaseURL string `yaml:"base_url" validate:"omitempty,url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"opentdb"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db" validate:"gte=0"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Categories struct {
		TTL string `yaml:"ttl"`
	} `yaml:"categories"`
	Game struct {
		DefaultAmount int `yaml:"default_amount" validate:"gte=0"`
		MaxAmount     int `yaml:"max_amount" validate:"gte=0"`
	} `yaml:"game"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads YAML config from path, fills defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default.
func LoadOrDefault(path string) (Config, error) {
	cfg, err := Load(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	return cfg, err
}

var validate = validator.New()

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Game.MaxAmount > 0 && c.Game.DefaultAmount > c.Game.MaxAmount {
		return fmt.Errorf("invalid config: game.default_amount %d exceeds game.max_amount %d", c.Game.DefaultAmount, c.Game.MaxAmount)
	}
	if c.Source == SourceOffline && c.Postgres.URL == "" {
		return fmt.Errorf("invalid config: source %q needs postgres.url", SourceOffline)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Source == "" {
		c.Source = SourceOpenTDB
	}
	if c.Game.DefaultAmount == 0 {
		c.Game.DefaultAmount = 10
	}
	if c.Game.MaxAmount == 0 {
		c.Game.MaxAmount = 200
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
