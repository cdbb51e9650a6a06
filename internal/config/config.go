// Package config loads the front-end configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Remote kinds.
const (
	RemoteHTTP     = "http"
	RemoteInMemory = "in-memory"
)

var validate = validator.New()

// Config holds the application configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Remote RemoteConfig `yaml:"remote"`
	Viewer ViewerConfig `yaml:"viewer"`
	Pages  PagesConfig  `yaml:"pages"`
	Loader LoaderConfig `yaml:"loader"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr         string        `yaml:"addr" validate:"required"`
	ReadTimeout  time.Duration `yaml:"read_timeout" validate:"gt=0"`
	WriteTimeout time.Duration `yaml:"write_timeout" validate:"gt=0"`
}

// RemoteConfig selects and configures the blog service.
type RemoteConfig struct {
	Kind         string        `yaml:"kind" validate:"oneof=http in-memory"`
	BaseURL      string        `yaml:"base_url" validate:"omitempty,url"`
	Timeout      time.Duration `yaml:"timeout" validate:"gt=0"`
	ViewerCookie string        `yaml:"viewer_cookie" validate:"required"`
}

// ViewerConfig sets who is looking at pages when the browser sends no user cookie.
type ViewerConfig struct {
	DefaultUserID string `yaml:"default_user_id"`
}

// PagesConfig controls how long idle page sessions are kept.
type PagesConfig struct {
	TTL           time.Duration `yaml:"ttl" validate:"gt=0"`
	SweepInterval time.Duration `yaml:"sweep_interval" validate:"gt=0"`
}

// LoaderConfig tunes post fetch coalescing.
type LoaderConfig struct {
	Wait          time.Duration `yaml:"wait" validate:"gte=0"`
	BatchCapacity int           `yaml:"batch_capacity" validate:"gte=0"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Remote: RemoteConfig{
			Kind:         RemoteInMemory,
			Timeout:      10 * time.Second,
			ViewerCookie: "userId",
		},
		Viewer: ViewerConfig{
			DefaultUserID: "kyle",
		},
		Pages: PagesConfig{
			TTL:           30 * time.Minute,
			SweepInterval: time.Minute,
		},
		Loader: LoaderConfig{
			Wait: 2 * time.Millisecond,
		},
	}
}

// Load reads configuration from the given path. If configPath is empty or
// doesn't exist, returns defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults fills zero values a partial file left behind.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Server.Addr == "" {
		c.Server.Addr = defaults.Server.Addr
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = defaults.Server.ReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = defaults.Server.WriteTimeout
	}
	if c.Remote.Kind == "" {
		c.Remote.Kind = defaults.Remote.Kind
	}
	if c.Remote.Timeout == 0 {
		c.Remote.Timeout = defaults.Remote.Timeout
	}
	if c.Remote.ViewerCookie == "" {
		c.Remote.ViewerCookie = defaults.Remote.ViewerCookie
	}
	if c.Pages.TTL == 0 {
		c.Pages.TTL = defaults.Pages.TTL
	}
	if c.Pages.SweepInterval == 0 {
		c.Pages.SweepInterval = defaults.Pages.SweepInterval
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s failed %q check", fe.Namespace(), fe.Tag())
		}
		return err
	}

	if c.Remote.Kind == RemoteHTTP && c.Remote.BaseURL == "" {
		return fmt.Errorf("remote.base_url is required when remote.kind is %q", RemoteHTTP)
	}

	if c.Pages.SweepInterval > c.Pages.TTL {
		return fmt.Errorf("pages.sweep_interval (%s) cannot exceed pages.ttl (%s)", c.Pages.SweepInterval, c.Pages.TTL)
	}

	return nil
}
