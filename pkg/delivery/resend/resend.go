// Package resend implements the delivery Transport over the Resend HTTP API,
// as an alternative to a raw SMTP relay.
package resend

import (
	"context"
	"errors"
	"fmt"

	"github.com/resend/resend-go/v3"

	"github.com/dmitrymomot/mailroom/pkg/delivery"
	"github.com/dmitrymomot/mailroom/pkg/mailaddr"
)

// Sentinel errors for the Resend transport.
var (
	// ErrMissingAPIKey indicates the transport was constructed without credentials.
	ErrMissingAPIKey = errors.New("resend: missing API key")

	// ErrRawMIMEUnsupported indicates a MIME passthrough send was attempted;
	// the Resend API only accepts structured messages.
	ErrRawMIMEUnsupported = errors.New("resend: raw MIME passthrough not supported")
)

// Config holds Resend API credentials.
type Config struct {
	APIKey string
}

// Transport sends email through the Resend API. It implements
// delivery.Transport.
type Transport struct {
	client *resend.Client
	cfg    Config
}

// New creates a Resend transport.
func New(cfg Config) *Transport {
	return &Transport{
		client: resend.NewClient(cfg.APIKey),
		cfg:    cfg,
	}
}

// Send implements delivery.Transport.
func (t *Transport) Send(ctx context.Context, email *delivery.Email) error {
	if len(email.RawMIME) > 0 {
		return ErrRawMIMEUnsupported
	}

	req := &resend.SendEmailRequest{
		From:    email.From.String(),
		To:      []string{email.To.String()},
		Subject: email.Subject,
		Html:    email.HTML,
		Text:    email.Text,
		ReplyTo: email.ReplyTo,
		Cc:      addressStrings(email.CC),
		Bcc:     addressStrings(email.BCC),
		Headers: headerMap(email),
	}

	if len(email.Attachments) > 0 {
		req.Attachments = convertAttachments(email.Attachments)
	}

	if _, err := t.client.Emails.SendWithContext(ctx, req); err != nil {
		return fmt.Errorf("resend: failed to send email: %w", err)
	}
	return nil
}

// Ping verifies the transport is usable. The Resend API has no dedicated
// health endpoint, so this only checks that credentials are present.
func (t *Transport) Ping(context.Context) error {
	if t.cfg.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

func addressStrings(addrs []mailaddr.Address) []string {
	if len(addrs) == 0 {
		return nil
	}
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.String()
	}
	return out
}

func headerMap(email *delivery.Email) map[string]string {
	if len(email.Headers) == 0 {
		return nil
	}
	headers := make(map[string]string, len(email.Headers))
	for _, h := range email.Headers {
		headers[h.Name] = h.Value
	}
	return headers
}

func convertAttachments(attachments []delivery.Attachment) []*resend.Attachment {
	result := make([]*resend.Attachment, len(attachments))
	for i, a := range attachments {
		result[i] = &resend.Attachment{
			Filename:    a.Filename,
			Content:     a.Content,
			ContentType: a.ContentType,
		}
	}
	return result
}
