// Package config resolves runtime settings.
//
// Precedence, highest first: environment variables (including ones loaded
// from a .env file), the YAML file, built-in defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDir  = ".badgekeeper"
	DefaultAddr = "127.0.0.1:8787"
)

// DefaultDB is the database path used when nothing else is configured.
var DefaultDB = filepath.Join(DefaultDir, "badgekeeper.db")

// Config is the resolved configuration.
type Config struct {
	DB   string `yaml:"db"`
	User string `yaml:"user"`

	Banner struct {
		ShowMS int `yaml:"show_ms"`
		HideMS int `yaml:"hide_ms"`
	} `yaml:"banner"`

	Remote struct {
		URL        string `yaml:"url"`
		Token      string `yaml:"token"`
		TimeoutMS  int    `yaml:"timeout_ms"`
		IntervalMS int    `yaml:"min_interval_ms"`
	} `yaml:"remote"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
}

// ShowFor is the banner display duration.
func (c *Config) ShowFor() time.Duration { return ms(c.Banner.ShowMS) }

// HideFor is the banner hide animation duration.
func (c *Config) HideFor() time.Duration { return ms(c.Banner.HideMS) }

// RemoteTimeout bounds one remote stats fetch.
func (c *Config) RemoteTimeout() time.Duration { return ms(c.Remote.TimeoutMS) }

// RemoteInterval is the minimum time between fetches for one user.
func (c *Config) RemoteInterval() time.Duration { return ms(c.Remote.IntervalMS) }

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// Load reads path (if non-empty; BADGEKEEPER_CONFIG otherwise) and applies
// .env and environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("BADGEKEEPER_CONFIG")
	}
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	setStr(&c.DB, "BADGEKEEPER_DB")
	setStr(&c.User, "BADGEKEEPER_USER")
	setStr(&c.Remote.URL, "BADGEKEEPER_REMOTE_URL")
	setStr(&c.Remote.Token, "BADGEKEEPER_REMOTE_TOKEN")
	setStr(&c.Server.Addr, "BADGEKEEPER_ADDR")
	for key, dst := range map[string]*int{
		"BADGEKEEPER_BANNER_SHOW_MS":     &c.Banner.ShowMS,
		"BADGEKEEPER_BANNER_HIDE_MS":     &c.Banner.HideMS,
		"BADGEKEEPER_REMOTE_TIMEOUT_MS":  &c.Remote.TimeoutMS,
		"BADGEKEEPER_REMOTE_INTERVAL_MS": &c.Remote.IntervalMS,
	} {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("%s: want a non-negative integer, got %q", key, v)
		}
		*dst = n
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.DB == "" {
		c.DB = DefaultDB
	}
	if c.Banner.ShowMS <= 0 {
		c.Banner.ShowMS = 3000
	}
	if c.Banner.HideMS <= 0 {
		c.Banner.HideMS = 350
	}
	if c.Remote.TimeoutMS <= 0 {
		c.Remote.TimeoutMS = 5000
	}
	if c.Remote.IntervalMS <= 0 {
		c.Remote.IntervalMS = 60000
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
