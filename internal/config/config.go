// Package config loads the application configuration from an optional YAML
// file layered under environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when neither file nor environment provides a value.
const (
	DefaultListen            = ":8080"
	DefaultRetentionDays     = 30
	DefaultMaxRecipients     = 1000
	DefaultMaxAttachmentSize = 25 << 20
	DefaultMaxMessageSize    = 25 << 20
	DefaultSMTPTimeout       = 30 // seconds
)

// Config holds the complete application configuration.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Storage StorageConfig `yaml:"storage"`
	Limits  LimitsConfig  `yaml:"limits"`
	SMTP    SMTPConfig    `yaml:"smtp"`
	Resend  ResendConfig  `yaml:"resend"`
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig holds the HTTP server settings, including the Basic auth
// credentials every request must present.
type APIConfig struct {
	Listen        string `yaml:"listen"`
	Username      string `yaml:"username"`
	Password      string `yaml:"password"`
	DefaultDomain string `yaml:"default_domain"`
}

// StorageConfig holds the flat-file store settings.
type StorageConfig struct {
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

// LimitsConfig holds the validator limits.
type LimitsConfig struct {
	MaxRecipients     int   `yaml:"max_recipients"`
	MaxAttachmentSize int64 `yaml:"max_attachment_size"`
	MaxMessageSize    int64 `yaml:"max_message_size"`
}

// SMTPConfig holds the outbound relay settings. The relay is active only
// when Enabled is set and the host and username are both present; otherwise
// requests run in simulation mode.
type SMTPConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Provider       string `yaml:"provider"` // "smtp" (default) or "resend"
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Encryption     string `yaml:"encryption"` // "tls", "ssl", or ""
	Auth           bool   `yaml:"auth"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	FromName       string `yaml:"from_name"`
	FromEmail      string `yaml:"from_email"`
	TimeoutSeconds int    `yaml:"timeout"`
	Debug          bool   `yaml:"debug"`
	VerifyPeer     *bool  `yaml:"verify_peer"` // nil means verify
}

// ResendConfig holds credentials for the alternate HTTP-API relay provider.
type ResendConfig struct {
	APIKey string `yaml:"api_key"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load builds the configuration from defaults and environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnvVars()
	return cfg, nil
}

// LoadFromFile layers a YAML file over the defaults, then applies
// environment-variable overrides on top.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	cfg.applyEnvVars()
	return cfg, nil
}

// SMTPConfigured reports whether the relay can actually be used. An enabled
// relay with missing host or username is treated as disabled, not as an
// error; the "resend" provider needs an API key instead.
func (c *Config) SMTPConfigured() bool {
	if !c.SMTP.Enabled {
		return false
	}
	if c.SMTP.Provider == "resend" {
		return c.Resend.APIKey != ""
	}
	return c.SMTP.Host != "" && c.SMTP.Username != ""
}

// SMTPTimeout returns the relay timeout as a duration.
func (c *Config) SMTPTimeout() time.Duration {
	return time.Duration(c.SMTP.TimeoutSeconds) * time.Second
}

// Retention returns the storage retention window as a duration.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Storage.RetentionDays) * 24 * time.Hour
}

// VerifyPeerEnabled reports whether TLS peer verification is on (the default).
func (c *Config) VerifyPeerEnabled() bool {
	return c.SMTP.VerifyPeer == nil || *c.SMTP.VerifyPeer
}

func (c *Config) applyDefaults() {
	c.API.Listen = DefaultListen
	c.Storage.Path = "./storage"
	c.Storage.RetentionDays = DefaultRetentionDays
	c.Limits.MaxRecipients = DefaultMaxRecipients
	c.Limits.MaxAttachmentSize = DefaultMaxAttachmentSize
	c.Limits.MaxMessageSize = DefaultMaxMessageSize
	c.SMTP.Provider = "smtp"
	c.SMTP.Port = 587
	c.SMTP.TimeoutSeconds = DefaultSMTPTimeout
	c.Logging.Level = "info"
}

func (c *Config) applyEnvVars() {
	setString(&c.API.Listen, "MAILROOM_LISTEN")
	setString(&c.API.Username, "MAILROOM_AUTH_USERNAME")
	setString(&c.API.Password, "MAILROOM_AUTH_PASSWORD")
	setString(&c.API.DefaultDomain, "MAILROOM_DEFAULT_DOMAIN")

	setString(&c.Storage.Path, "MAILROOM_STORAGE_PATH")
	setInt(&c.Storage.RetentionDays, "MAILROOM_RETENTION_DAYS")

	setInt(&c.Limits.MaxRecipients, "MAILROOM_MAX_RECIPIENTS")
	setInt64(&c.Limits.MaxAttachmentSize, "MAILROOM_MAX_ATTACHMENT_SIZE")
	setInt64(&c.Limits.MaxMessageSize, "MAILROOM_MAX_MESSAGE_SIZE")

	setBool(&c.SMTP.Enabled, "MAILROOM_SMTP_ENABLED")
	setString(&c.SMTP.Provider, "MAILROOM_SMTP_PROVIDER")
	setString(&c.SMTP.Host, "MAILROOM_SMTP_HOST")
	setInt(&c.SMTP.Port, "MAILROOM_SMTP_PORT")
	setString(&c.SMTP.Encryption, "MAILROOM_SMTP_ENCRYPTION")
	setBool(&c.SMTP.Auth, "MAILROOM_SMTP_AUTH")
	setString(&c.SMTP.Username, "MAILROOM_SMTP_USERNAME")
	setString(&c.SMTP.Password, "MAILROOM_SMTP_PASSWORD")
	setString(&c.SMTP.FromName, "MAILROOM_SMTP_FROM_NAME")
	setString(&c.SMTP.FromEmail, "MAILROOM_SMTP_FROM_EMAIL")
	setInt(&c.SMTP.TimeoutSeconds, "MAILROOM_SMTP_TIMEOUT")
	setBool(&c.SMTP.Debug, "MAILROOM_SMTP_DEBUG")
	if v, ok := os.LookupEnv("MAILROOM_SMTP_VERIFY_PEER"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.SMTP.VerifyPeer = &b
		}
	}

	setString(&c.Resend.APIKey, "MAILROOM_RESEND_API_KEY")
	setString(&c.Logging.Level, "MAILROOM_LOG_LEVEL")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
