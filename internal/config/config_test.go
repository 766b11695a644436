package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mailroom/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.API.Listen)
	assert.Equal(t, "./storage", cfg.Storage.Path)
	assert.Equal(t, 30, cfg.Storage.RetentionDays)
	assert.Equal(t, 1000, cfg.Limits.MaxRecipients)
	assert.Equal(t, int64(25<<20), cfg.Limits.MaxAttachmentSize)
	assert.Equal(t, "smtp", cfg.SMTP.Provider)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Equal(t, 30*time.Second, cfg.SMTPTimeout())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.SMTPConfigured())
	assert.True(t, cfg.VerifyPeerEnabled())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
api:
  listen: ":9090"
  username: api
  password: secret
  default_domain: mail.example.com
storage:
  path: /var/lib/mailroom
  retention_days: 7
limits:
  max_recipients: 50
smtp:
  enabled: true
  host: smtp.example.com
  port: 465
  encryption: ssl
  auth: true
  username: relay@example.com
  password: relaypass
  from_name: Mailroom
  from_email: noreply@example.com
  timeout: 10
  verify_peer: false
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := config.LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.API.Listen)
	assert.Equal(t, "api", cfg.API.Username)
	assert.Equal(t, "mail.example.com", cfg.API.DefaultDomain)
	assert.Equal(t, "/var/lib/mailroom", cfg.Storage.Path)
	assert.Equal(t, 7, cfg.Storage.RetentionDays)
	assert.Equal(t, 7*24*time.Hour, cfg.Retention())
	assert.Equal(t, 50, cfg.Limits.MaxRecipients)
	assert.Equal(t, int64(25<<20), cfg.Limits.MaxAttachmentSize, "unset limits keep defaults")
	assert.Equal(t, 465, cfg.SMTP.Port)
	assert.Equal(t, "ssl", cfg.SMTP.Encryption)
	assert.Equal(t, 10*time.Second, cfg.SMTPTimeout())
	assert.False(t, cfg.VerifyPeerEnabled())
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.SMTPConfigured())
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := config.LoadFromFile("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoadFromFileInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api: [broken"), 0o644))

	_, err := config.LoadFromFile(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MAILROOM_LISTEN", ":7070")
	t.Setenv("MAILROOM_SMTP_ENABLED", "true")
	t.Setenv("MAILROOM_SMTP_HOST", "env.example.com")
	t.Setenv("MAILROOM_SMTP_USERNAME", "env-user")
	t.Setenv("MAILROOM_MAX_RECIPIENTS", "5")
	t.Setenv("MAILROOM_SMTP_VERIFY_PEER", "false")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.API.Listen)
	assert.Equal(t, "env.example.com", cfg.SMTP.Host)
	assert.Equal(t, 5, cfg.Limits.MaxRecipients)
	assert.False(t, cfg.VerifyPeerEnabled())
	assert.True(t, cfg.SMTPConfigured())
}

func TestSMTPConfiguredResendProvider(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	cfg.SMTP.Enabled = true
	cfg.SMTP.Provider = "resend"
	assert.False(t, cfg.SMTPConfigured(), "resend provider needs an API key")

	cfg.Resend.APIKey = "re_123"
	assert.True(t, cfg.SMTPConfigured())
}

func TestSMTPConfiguredIncomplete(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	cfg.SMTP.Enabled = true
	cfg.SMTP.Host = "smtp.example.com"
	assert.False(t, cfg.SMTPConfigured(), "missing username disables the relay")
}
