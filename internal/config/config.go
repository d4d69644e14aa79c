// Package config loads RentBuddy settings with viper and exposes a nil-safe
// read-only view of them.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides: server.addr is read from
// RENTBUDDY_SERVER_ADDR.
const EnvPrefix = "RENTBUDDY"

// Defaults applied by Load.
var Defaults = map[string]any{
	"server.addr":              "0.0.0.0:8080",
	"server.rate_limit":        20.0,
	"server.rate_burst":        40,
	"server.shutdown_timeout":  "10s",
	"database.path":            "rentbuddy.db",
	"catalog.csv":              "",
	"auth.secret":              "",
	"auth.default_user":        "1",
	"auth.token_ttl":           "720h",
	"log.level":                "info",
	"log.development":          false,
	"plugins.rewards.cooldown": "24h",
	"plugins.geo.timeout":      "10s",
	"plugins.booking.timezone": "Asia/Kolkata",
}

// Load reads the YAML config file at path, when given, on top of Defaults.
// Environment variables override both.
func Load(path string) (*viper.Viper, error) {
	v := viper.New()
	for k, val := range Defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				return nil, fmt.Errorf("config file %s not found", path)
			}
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return v, nil
}

// Config is a read-only view over a viper instance. The zero value and a
// Config over a nil viper return zero values.
type Config struct {
	v *viper.Viper
}

// New wraps v, which may be nil.
func New(v *viper.Viper) *Config {
	return &Config{v: v}
}

// Viper returns the wrapped instance, or an empty one.
func (c *Config) Viper() *viper.Viper {
	if c.v == nil {
		return viper.New()
	}
	return c.v
}

func (c *Config) GetString(key string) string {
	if c.v == nil {
		return ""
	}
	return c.v.GetString(key)
}

func (c *Config) GetInt(key string) int {
	if c.v == nil {
		return 0
	}
	return c.v.GetInt(key)
}

func (c *Config) GetFloat64(key string) float64 {
	if c.v == nil {
		return 0
	}
	return c.v.GetFloat64(key)
}

func (c *Config) GetBool(key string) bool {
	if c.v == nil {
		return false
	}
	return c.v.GetBool(key)
}

func (c *Config) GetDuration(key string) time.Duration {
	if c.v == nil {
		return 0
	}
	return c.v.GetDuration(key)
}

func (c *Config) IsSet(key string) bool {
	return c.v != nil && c.v.IsSet(key)
}

// Sub returns the subtree at key. A missing subtree yields an empty Config,
// never nil.
func (c *Config) Sub(key string) *Config {
	if c.v == nil {
		return New(nil)
	}
	return New(c.v.Sub(key))
}

// Unmarshal decodes the whole config into target using mapstructure tags.
func (c *Config) Unmarshal(target any) error {
	if c.v == nil {
		return nil
	}
	return c.v.Unmarshal(target)
}
