// Package config provides configuration loading, validation, and management
// for the featbot service. It handles reading from YAML files, BOT_-prefixed
// environment variables, default values, and validation of the result.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// ErrConfiguration indicates a configuration loading or validation failure.
var ErrConfiguration = errors.New("configuration error")

// Config defines the application configuration. Values can be set via
// config.yaml or environment variables prefixed with BOT_
// (e.g. BOT_TELEGRAM_TOKEN).
type Config struct {
	Environment string `mapstructure:"environment" validate:"oneof=production development"`

	Logger    LoggerConfig    `mapstructure:"logger"`
	Server    ServerConfig    `mapstructure:"server"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Client    ClientConfig    `mapstructure:"client"`
	Queue     QueueConfig     `mapstructure:"queue"`
	KeepAlive KeepAliveConfig `mapstructure:"keepalive"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Webhook   WebhookConfig   `mapstructure:"webhook"`
	Features  FeaturesConfig  `mapstructure:"features"`
}

// LoggerConfig controls log output.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// ServerConfig controls the HTTP listener and ingress classification.
type ServerConfig struct {
	Addr        string   `mapstructure:"addr"       validate:"required"`
	PublicURL   string   `mapstructure:"public_url" validate:"required,url"`
	IPBlocklist []string `mapstructure:"ip_blocklist"`
	UABlocklist []string `mapstructure:"ua_blocklist"`
}

// TelegramConfig holds the bot credentials and the operator audit chat.
type TelegramConfig struct {
	Token     string `mapstructure:"token"       validate:"required"`
	LogChatID int64  `mapstructure:"log_chat_id" validate:"required"`
	LinkName  string `mapstructure:"link_name"`
	LinkURL   string `mapstructure:"link_url"    validate:"omitempty,url"`
}

// ClientConfig bounds every outbound third-party call.
type ClientConfig struct {
	Timeout time.Duration `mapstructure:"timeout" validate:"min=1s,max=10s"`
	Retries int           `mapstructure:"retries" validate:"min=0,max=2"`
}

// QueueConfig bounds concurrent provider executions and the per-call
// throttle delay applied inside an admitted slot.
type QueueConfig struct {
	Concurrency int           `mapstructure:"concurrency" validate:"min=1"`
	DelayMin    time.Duration `mapstructure:"delay_min"   validate:"min=0"`
	DelayMax    time.Duration `mapstructure:"delay_max"   validate:"min=0,gtefield=DelayMin"`
}

// KeepAliveConfig controls the periodic self-ping.
type KeepAliveConfig struct {
	Interval time.Duration `mapstructure:"interval" validate:"min=1h,max=6h"`
	Timeout  time.Duration `mapstructure:"timeout"  validate:"min=1s,max=3s"`
}

// NotifyConfig bounds the audit notification attempt.
type NotifyConfig struct {
	Timeout time.Duration `mapstructure:"timeout" validate:"min=1s"`
}

// WebhookConfig controls inbound bot message admission.
type WebhookConfig struct {
	MaxAge         time.Duration `mapstructure:"max_age" validate:"min=1m"`
	BlockedPhrases []string      `mapstructure:"blocked_phrases"`
}

// FeaturesConfig holds third-party API credentials for feature lookups.
type FeaturesConfig struct {
	SpamwatchURL   string `mapstructure:"spamwatch_url"   validate:"required,url"`
	SpamwatchToken string `mapstructure:"spamwatch_token"`
	GeniusURL      string `mapstructure:"genius_url"      validate:"required,url"`
	GeniusToken    string `mapstructure:"genius_token"`
}

// IsProduction reports whether the service runs against the live bot API.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// LoadConfig loads and validates configuration from:
// 1. Default values
// 2. The YAML file at path (optional)
// 3. BOT_* environment variables
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Allow a missing config file; env and defaults still apply.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !strings.Contains(err.Error(), "no such file") {
			return nil, fmt.Errorf("%w: failed to read config file: %v", ErrConfiguration, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.json", true)

	v.SetDefault("server.addr", ":3000")

	v.SetDefault("client.timeout", 6*time.Second)
	v.SetDefault("client.retries", 0)

	v.SetDefault("queue.concurrency", 3)
	v.SetDefault("queue.delay_min", 150*time.Millisecond)
	v.SetDefault("queue.delay_max", 500*time.Millisecond)

	v.SetDefault("keepalive.interval", 6*time.Hour)
	v.SetDefault("keepalive.timeout", 3*time.Second)

	v.SetDefault("notify.timeout", 10*time.Second)

	v.SetDefault("webhook.max_age", 5*time.Minute)

	v.SetDefault("features.spamwatch_url", "https://api.spamwat.ch")
	v.SetDefault("features.genius_url", "https://api.genius.com")
}
