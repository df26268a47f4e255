package config

import (
	"fmt"
	"net/url"

	"github.com/spf13/viper"
)

type Config struct {
	BaseURL        string `mapstructure:"OPAL_BASE_URL"`
	Token          string `mapstructure:"OPAL_TOKEN"`
	TimeoutSeconds int    `mapstructure:"HTTP_TIMEOUT_SECONDS"`
	LogLevel       string `mapstructure:"LOG_LEVEL"`
	Env            string `mapstructure:"ENV"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("ENV", "development")
	v.SetDefault("HTTP_TIMEOUT_SECONDS", 30)
	v.SetDefault("LOG_LEVEL", "info")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("OPAL_BASE_URL")
	v.BindEnv("OPAL_TOKEN")
	v.BindEnv("HTTP_TIMEOUT_SECONDS")
	v.BindEnv("LOG_LEVEL")
	v.BindEnv("ENV")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration can reach a server. OPAL_BASE_URL
// must be an absolute http(s) URL.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("OPAL_BASE_URL is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("OPAL_BASE_URL is not a valid URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("OPAL_BASE_URL must be an absolute http(s) URL, got %q", c.BaseURL)
	}
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT_SECONDS must be positive, got %d", c.TimeoutSeconds)
	}
	return nil
}
