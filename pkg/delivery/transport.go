package delivery

import (
	"context"

	"github.com/dmitrymomot/mailroom/pkg/mailaddr"
	"github.com/dmitrymomot/mailroom/pkg/message"
)

// Email is one physical outbound email, addressed to exactly one primary
// recipient. The delivery engine builds a fresh Email per recipient, so
// transports never carry state between sends.
type Email struct {
	From        mailaddr.Address
	To          mailaddr.Address
	CC          []mailaddr.Address
	BCC         []mailaddr.Address
	ReplyTo     string
	Subject     string
	HTML        string
	Text        string
	Headers     []message.Header
	Attachments []Attachment

	// RawMIME carries an already-composed message body for the passthrough
	// variant. When set, Subject, bodies, headers, and attachments are
	// ignored and the content is transmitted verbatim.
	RawMIME []byte
}

// Attachment is file content loaded into memory for transmission.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Transport is the outbound session abstraction the delivery engine drives.
type Transport interface {
	// Send delivers one email. Implementations own their connect and IO
	// timeouts; the engine never retries a failed send.
	Send(ctx context.Context, email *Email) error

	// Ping opens and immediately closes a session without sending anything.
	// Used for health checks only.
	Ping(ctx context.Context) error
}
