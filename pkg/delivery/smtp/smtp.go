// Package smtp implements the delivery Transport over a real SMTP server,
// with STARTTLS/implicit-TLS encryption modes, optional PLAIN auth, and a
// fixed connect/IO timeout. Each Send opens a fresh session, so a failed
// recipient never poisons the next one.
package smtp

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/dmitrymomot/mailroom/pkg/delivery"
)

// Encryption modes.
const (
	EncryptionNone     = ""
	EncryptionStartTLS = "tls" // explicit TLS via STARTTLS
	EncryptionSSL      = "ssl" // implicit TLS on connect
)

// DefaultTimeout bounds connect and IO when the config leaves it unset.
const DefaultTimeout = 30 * time.Second

// Config holds the SMTP server settings, supplied once at construction.
type Config struct {
	Host               string
	Port               int
	Encryption         string // "tls", "ssl", or "" for plaintext
	Auth               bool
	Username           string
	Password           string
	Timeout            time.Duration
	InsecureSkipVerify bool // disable TLS peer verification
	Debug              bool
}

// Transport sends email through an SMTP server. It implements
// delivery.Transport.
type Transport struct {
	cfg Config
	log *slog.Logger
}

// New creates an SMTP transport. A nil logger discards debug output.
func New(cfg Config, log *slog.Logger) *Transport {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Transport{cfg: cfg, log: log}
}

// Send composes the email and transmits it in a fresh session.
func (t *Transport) Send(ctx context.Context, email *delivery.Email) error {
	data, err := compose(email)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrComposeFailed, err)
	}

	client, err := t.dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Mail(email.From.Email); err != nil {
		return fmt.Errorf("%w: MAIL FROM: %v", ErrSendFailed, err)
	}
	for _, rcpt := range envelopeRecipients(email) {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("%w: RCPT TO %s: %v", ErrSendFailed, rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("%w: DATA: %v", ErrSendFailed, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	if t.cfg.Debug {
		t.log.DebugContext(ctx, "smtp message transmitted",
			slog.String("host", t.cfg.Host),
			slog.String("to", email.To.Email),
			slog.Int("bytes", len(data)),
		)
	}
	return client.Quit()
}

// Ping opens and immediately closes a session without sending a message.
func (t *Transport) Ping(ctx context.Context) error {
	client, err := t.dial(ctx)
	if err != nil {
		return err
	}
	return client.Quit()
}

// dial connects, negotiates TLS per the configured mode, and authenticates.
func (t *Transport) dial(ctx context.Context) (*smtp.Client, error) {
	addr := net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.Port))
	dialer := &net.Dialer{Timeout: t.cfg.Timeout}

	var conn net.Conn
	var err error
	if t.cfg.Encryption == EncryptionSSL {
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, t.tlsConfig())
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}

	// One deadline covers the whole session; no finer-grained cancellation.
	_ = conn.SetDeadline(time.Now().Add(t.cfg.Timeout))

	client, err := smtp.NewClient(conn, t.cfg.Host)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}

	if t.cfg.Encryption == EncryptionStartTLS {
		if ok, _ := client.Extension("STARTTLS"); !ok {
			client.Close()
			return nil, ErrTLSUnsupported
		}
		if err := client.StartTLS(t.tlsConfig()); err != nil {
			client.Close()
			return nil, fmt.Errorf("%w: %v", ErrConnectFailed, err)
		}
	}

	if t.cfg.Auth && t.cfg.Username != "" {
		auth := smtp.PlainAuth("", t.cfg.Username, t.cfg.Password, t.cfg.Host)
		if err := client.Auth(auth); err != nil {
			client.Close()
			return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
		}
	}

	if t.cfg.Debug {
		t.log.DebugContext(ctx, "smtp session established",
			slog.String("host", t.cfg.Host),
			slog.Int("port", t.cfg.Port),
			slog.String("encryption", t.cfg.Encryption),
		)
	}
	return client, nil
}

func (t *Transport) tlsConfig() *tls.Config {
	return &tls.Config{
		ServerName:         t.cfg.Host,
		InsecureSkipVerify: t.cfg.InsecureSkipVerify,
	}
}

// envelopeRecipients collects every RCPT TO address: the single primary
// recipient plus the shared cc/bcc sets.
func envelopeRecipients(email *delivery.Email) []string {
	rcpts := make([]string, 0, 1+len(email.CC)+len(email.BCC))
	rcpts = append(rcpts, email.To.Email)
	for _, a := range email.CC {
		rcpts = append(rcpts, a.Email)
	}
	for _, a := range email.BCC {
		rcpts = append(rcpts, a.Email)
	}
	return rcpts
}
