// Package config loads process settings for the oboe command from the
// environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	oboe "github.com/JustHoIt/oboe-vintage"
	"github.com/spf13/viper"
)

// Environment keys.
const (
	KeyBaseURL  = "OBOE_API_BASE_URL"
	KeyTimeout  = "OBOE_API_TIMEOUT"
	KeyLogLevel = "OBOE_LOG_LEVEL"
	KeyDebug    = "OBOE_DEBUG"
)

// DefaultEnvFile is read when present.
const DefaultEnvFile = ".env"

// Config holds the settings the command builds its client from.
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	LogLevel slog.Level
	Debug    bool
}

// Load reads envFile (DefaultEnvFile when empty) if it exists, then the
// environment, which takes precedence.
func Load(envFile string) (*Config, error) {
	v := viper.New()
	v.SetDefault(KeyBaseURL, "")
	v.SetDefault(KeyTimeout, oboe.DefaultTimeout.String())
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyDebug, false)
	v.AutomaticEnv()

	if envFile == "" {
		envFile = DefaultEnvFile
	}
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", envFile, err)
	}

	timeout, err := time.ParseDuration(strings.TrimSpace(v.GetString(KeyTimeout)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", KeyTimeout, err)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("%s must be positive, got %s", KeyTimeout, timeout)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(v.GetString(KeyLogLevel)))); err != nil {
		return nil, fmt.Errorf("%s: %w", KeyLogLevel, err)
	}

	return &Config{
		BaseURL:  strings.TrimSpace(v.GetString(KeyBaseURL)),
		Timeout:  timeout,
		LogLevel: level,
		Debug:    v.GetBool(KeyDebug),
	}, nil
}

// ClientOptions turns the config into client options. logger may be nil.
func (c *Config) ClientOptions(logger oboe.Logger) []oboe.Option {
	opts := []oboe.Option{
		oboe.WithBaseURL(c.BaseURL),
		oboe.WithTimeout(c.Timeout),
	}
	if logger != nil {
		opts = append(opts, oboe.WithLogger(logger))
		if c.Debug {
			opts = append(opts, oboe.WithDebug())
		}
	}
	return opts
}
