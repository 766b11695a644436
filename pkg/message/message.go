// Package message defines the canonical record of a single send request and
// its construction from raw API request fields.
package message

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/mailroom/pkg/mailaddr"
)

// Content types recorded on stored messages.
const (
	ContentTypeForm = "multipart/form-data"
	ContentTypeMIME = "message/rfc822"
)

// Message is the immutable record of one send request. It is persisted
// exactly once per request; re-sends create new records.
type Message struct {
	ID                 string       `json:"message_id"`
	Domain             string       `json:"domain"`
	From               string       `json:"from,omitempty"`
	To                 string       `json:"to"`
	CC                 string       `json:"cc,omitempty"`
	BCC                string       `json:"bcc,omitempty"`
	Subject            string       `json:"subject,omitempty"`
	Text               string       `json:"text,omitempty"`
	HTML               string       `json:"html,omitempty"`
	Sender             string       `json:"sender,omitempty"`
	Recipients         string       `json:"recipients,omitempty"`
	Timestamp          int64        `json:"timestamp"`
	ContentType        string       `json:"content_type"`
	Headers            []Header     `json:"headers"`
	Tags               string       `json:"tags,omitempty"`
	Template           string       `json:"template,omitempty"`
	TemplateVariables  string       `json:"template_variables,omitempty"`
	RecipientVariables string       `json:"recipient_variables,omitempty"`
	ReplyTo            string       `json:"reply_to,omitempty"`
	Attachments        []Attachment `json:"attachments,omitempty"`
	MIMEContent        string       `json:"mime_content,omitempty"`
}

// Header is an ordered name/value pair. It marshals as a two-element array to
// match the Mailgun message-headers wire format.
type Header struct {
	Name  string
	Value string
}

func (h Header) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{h.Name, h.Value})
}

func (h *Header) UnmarshalJSON(data []byte) error {
	var pair [2]string
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	h.Name, h.Value = pair[0], pair[1]
	return nil
}

// Attachment describes an uploaded file that was copied into storage and is
// referenced by the owning message. The file itself lives at Path; deleting
// the message does not remove it.
type Attachment struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"type"`
	Path        string `json:"path"`
}

// SendRequest is the typed form of the API's dynamic field bag: recognized
// fields plus the ordered list of custom "h:"-prefixed headers.
type SendRequest struct {
	From               string
	To                 []string // repeated form fields or one comma-separated value
	CC                 string
	BCC                string
	Subject            string
	Text               string
	HTML               string
	Template           string
	TemplateVariables  string // t:variables, JSON-encoded
	RecipientVariables string // recipient-variables, JSON-encoded
	Tags               string // o:tag
	DeliveryTime       string // o:deliverytime, RFC 2822
	ReplyTo            string // h:Reply-To
	Headers            []Header
}

// NewID generates a Mailgun-style message id embedding the sending domain.
func NewID(domain string) string {
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
}

// New builds the canonical Message for a regular send request. Recipients are
// normalized to one comma-separated string, the standard header list is
// assembled ahead of any custom headers, and per-recipient template variables
// are synthesized when the request carried multiple "to" fields without an
// explicit recipient-variables mapping.
func New(domain string, req SendRequest, attachments []Attachment) *Message {
	to := mailaddr.Normalize(req.To)

	headers := []Header{
		{"Mime-Version", "1.0"},
		{"Subject", req.Subject},
		{"From", req.From},
		{"To", to},
		{"Content-Transfer-Encoding", "7bit"},
	}
	headers = append(headers, req.Headers...)

	return &Message{
		ID:                 NewID(domain),
		Domain:             domain,
		From:               req.From,
		To:                 to,
		CC:                 req.CC,
		BCC:                req.BCC,
		Subject:            req.Subject,
		Text:               req.Text,
		HTML:               req.HTML,
		Sender:             mailaddr.ExtractEmail(req.From),
		Recipients:         mailaddr.ExtractEmails(to),
		Timestamp:          time.Now().Unix(),
		ContentType:        ContentTypeForm,
		Headers:            headers,
		Tags:               req.Tags,
		Template:           req.Template,
		TemplateVariables:  defaultJSON(req.TemplateVariables),
		RecipientVariables: recipientVariables(req),
		ReplyTo:            req.ReplyTo,
		Attachments:        attachments,
	}
}

// NewMIME builds the record for a MIME passthrough request: the raw message
// body is kept verbatim and no header list is assembled.
func NewMIME(domain, to string, mimeContent []byte, req SendRequest) *Message {
	return &Message{
		ID:                NewID(domain),
		Domain:            domain,
		To:                to,
		Timestamp:         time.Now().Unix(),
		ContentType:       ContentTypeMIME,
		Headers:           []Header{},
		Tags:              req.Tags,
		Template:          req.Template,
		TemplateVariables: defaultJSON(req.TemplateVariables),
		MIMEContent:       string(mimeContent),
	}
}

// recipientVariables returns the JSON-encoded per-recipient variable mapping.
// An explicit mapping wins; otherwise one is generated for multi-field "to"
// requests with first/last derived from display names and a positional id.
func recipientVariables(req SendRequest) string {
	if req.RecipientVariables != "" {
		return req.RecipientVariables
	}
	if len(req.To) < 2 {
		return "{}"
	}

	vars := make(map[string]map[string]string, len(req.To))
	idx := 1
	for _, raw := range req.To {
		addr := mailaddr.Parse(raw)
		if addr.Email == "" {
			continue
		}
		first, last := mailaddr.SplitName(mailaddr.DisplayName(raw))
		vars[addr.Email] = map[string]string{
			"first": first,
			"last":  last,
			"id":    fmt.Sprintf("to_%d", idx),
		}
		idx++
	}

	data, err := json.Marshal(vars)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func defaultJSON(s string) string {
	if s == "" {
		return "{}"
	}
	return s
}
