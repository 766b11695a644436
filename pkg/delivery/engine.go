// Package delivery sends validated messages through an outbound transport,
// one physical email per distinct "to" recipient. Per-recipient failures are
// aggregated into a single outcome and never abort the remaining recipients:
// the API accepted the message before delivery was attempted, so delivery
// failure is diagnostic, not fatal.
package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrymomot/mailroom/pkg/mailaddr"
	"github.com/dmitrymomot/mailroom/pkg/message"
)

// ErrNoRecipients indicates the message's "to" field parsed to nothing.
var ErrNoRecipients = errors.New(`delivery: no valid recipients found in "to" field`)

// Config holds the engine's default sender identity, used when a message
// carries no usable from address.
type Config struct {
	FromName  string
	FromEmail string
}

// Engine fans a message out to its recipients through a Transport.
// Recipient iteration is sequential; each iteration builds a complete fresh
// envelope, so the transport never inherits state from the previous send.
type Engine struct {
	transport Transport
	cfg       Config
	log       *slog.Logger
}

// New creates a delivery engine. A nil logger discards engine logs.
func New(transport Transport, cfg Config, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Engine{transport: transport, cfg: cfg, log: log}
}

// headers the transport composes itself; custom copies are dropped.
var transportManagedHeaders = map[string]struct{}{
	"mime-version":              {},
	"subject":                   {},
	"from":                      {},
	"to":                        {},
	"content-transfer-encoding": {},
}

// Deliver sends one email per recipient of msg.To, applying per-recipient
// variable substitution, and returns the aggregated outcome. A recipient's
// transport failure is recorded and iteration continues.
func (e *Engine) Deliver(ctx context.Context, msg *message.Message) *Outcome {
	recipients := mailaddr.ParseList(msg.To)
	if len(recipients) == 0 {
		return &Outcome{Errors: []string{ErrNoRecipients.Error()}}
	}

	outcome := &Outcome{TotalRecipients: len(recipients)}
	vars := decodeRecipientVariables(msg.RecipientVariables)
	cc := mailaddr.ParseList(msg.CC)
	bcc := mailaddr.ParseList(msg.BCC)

	for i, recipient := range recipients {
		email := e.buildEmail(msg, recipient, cc, bcc, vars[recipient.Email])

		err := e.transport.Send(ctx, email)
		outcome.record(recipient.Email, err)

		if err != nil {
			e.log.ErrorContext(ctx, "failed to send email",
				slog.String("message_id", msg.ID),
				slog.String("to", recipient.Email),
				slog.Int("recipient_index", i+1),
				slog.Int("total_recipients", len(recipients)),
				slog.String("error", err.Error()),
			)
			continue
		}
		e.log.InfoContext(ctx, "email sent",
			slog.String("message_id", msg.ID),
			slog.String("to", recipient.Email),
			slog.Int("recipient_index", i+1),
			slog.Int("total_recipients", len(recipients)),
		)
	}
	return outcome
}

// DeliverMIME fans out an already-composed raw message body. No
// personalization or header injection happens; accounting and the
// continue-on-failure policy are identical to Deliver.
func (e *Engine) DeliverMIME(ctx context.Context, msg *message.Message) *Outcome {
	recipients := mailaddr.ParseList(msg.To)
	if len(recipients) == 0 {
		return &Outcome{Errors: []string{ErrNoRecipients.Error()}}
	}

	outcome := &Outcome{TotalRecipients: len(recipients)}
	from := e.sender(msg)

	for _, recipient := range recipients {
		email := &Email{
			From:    from,
			To:      recipient,
			RawMIME: []byte(msg.MIMEContent),
		}
		outcome.record(recipient.Email, e.transport.Send(ctx, email))
	}
	return outcome
}

// TestConnection opens and closes a transport session without sending.
func (e *Engine) TestConnection(ctx context.Context) error {
	return e.transport.Ping(ctx)
}

// buildEmail assembles the fresh per-recipient envelope: narrowed "to",
// shared cc/bcc and headers, personalized subject and bodies, and whatever
// referenced attachments still exist on disk.
func (e *Engine) buildEmail(msg *message.Message, recipient mailaddr.Address, cc, bcc []mailaddr.Address, vars map[string]any) *Email {
	subject, html, text := msg.Subject, msg.HTML, msg.Text
	if len(vars) > 0 {
		subject = substitute(subject, vars)
		html = substitute(html, vars)
		text = substitute(text, vars)
	}

	var headers []message.Header
	for _, h := range msg.Headers {
		if _, managed := transportManagedHeaders[strings.ToLower(h.Name)]; managed {
			continue
		}
		headers = append(headers, h)
	}

	var replyTo string
	if msg.ReplyTo != "" {
		replyTo = mailaddr.ExtractEmail(msg.ReplyTo)
	}

	return &Email{
		From:        e.sender(msg),
		To:          recipient,
		CC:          cc,
		BCC:         bcc,
		ReplyTo:     replyTo,
		Subject:     subject,
		HTML:        html,
		Text:        text,
		Headers:     headers,
		Attachments: e.loadAttachments(msg.Attachments),
	}
}

func (e *Engine) sender(msg *message.Message) mailaddr.Address {
	from := mailaddr.Parse(msg.From)
	if from.Email == "" {
		from = mailaddr.Address{Email: e.cfg.FromEmail, Name: e.cfg.FromName}
	}
	return from
}

// loadAttachments reads referenced files into memory, skipping any whose
// stored file has gone missing.
func (e *Engine) loadAttachments(refs []message.Attachment) []Attachment {
	var attachments []Attachment
	for _, ref := range refs {
		content, err := os.ReadFile(ref.Path)
		if err != nil {
			e.log.Debug("skipping unreadable attachment",
				slog.String("path", ref.Path),
				slog.String("error", err.Error()),
			)
			continue
		}
		name := ref.Name
		if name == "" {
			name = filepath.Base(ref.Path)
		}
		contentType := ref.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		attachments = append(attachments, Attachment{
			Filename:    name,
			ContentType: contentType,
			Content:     content,
		})
	}
	return attachments
}

// substitute replaces %recipient.<key>% and bare %<key>% placeholders with
// the recipient's variable values. Unmatched placeholders stay verbatim.
func substitute(content string, vars map[string]any) string {
	for key, value := range vars {
		val := stringify(value)
		content = strings.ReplaceAll(content, "%recipient."+key+"%", val)
		content = strings.ReplaceAll(content, "%"+key+"%", val)
	}
	return content
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		// JSON numbers decode as float64; render integers without a fraction.
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprint(val)
	}
}

func decodeRecipientVariables(raw string) map[string]map[string]any {
	if raw == "" || raw == "{}" {
		return nil
	}
	var vars map[string]map[string]any
	if err := json.Unmarshal([]byte(raw), &vars); err != nil {
		return nil
	}
	return vars
}
