// Package validator enforces the message-acceptance rules of the messages
// API. Checks run in a fixed order and short-circuit on the first failure;
// every rejection carries a single human-readable reason. Malformed input is
// a normal outcome here, never a fault.
package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dmitrymomot/mailroom/pkg/mailaddr"
	"github.com/dmitrymomot/mailroom/pkg/message"
)

// Default limits applied when the config leaves them unset.
const (
	DefaultMaxRecipients     = 1000
	DefaultMaxAttachmentSize = 25 << 20 // 25MB

	maxTagLength      = 128
	maxScheduleWindow = 7 * 24 * time.Hour
)

// Config holds the externally configured limits.
type Config struct {
	MaxRecipients     int
	MaxAttachmentSize int64
}

// Validator checks send requests against syntax rules and configured limits.
type Validator struct {
	cfg Config
	now func() time.Time
}

// New creates a Validator, filling in default limits for zero config values.
func New(cfg Config) *Validator {
	if cfg.MaxRecipients <= 0 {
		cfg.MaxRecipients = DefaultMaxRecipients
	}
	if cfg.MaxAttachmentSize <= 0 {
		cfg.MaxAttachmentSize = DefaultMaxAttachmentSize
	}
	return &Validator{cfg: cfg, now: time.Now}
}

// emailPattern is a deliberately lax RFC 5322 subset: local@domain with the
// domain containing at least one dot.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

var tagPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// deliveryTimeLayouts are the RFC 2822 shapes accepted for o:deliverytime.
var deliveryTimeLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	time.RFC822Z,
	time.RFC822,
}

// ValidateSend checks a send request. It returns nil when the request is
// acceptable, or an error whose text is the rejection reason for the caller's
// 400 response.
func (v *Validator) ValidateSend(req message.SendRequest) error {
	to := mailaddr.Normalize(req.To)

	required := []struct{ name, value string }{
		{"from", req.From},
		{"to", to},
		{"subject", req.Subject},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("Missing required field: %s", f.name)
		}
	}

	if req.Text == "" && req.HTML == "" && req.Template == "" {
		return errors.New("Must provide at least one of: text, html, or template")
	}

	if err := validateEmail(req.From); err != nil {
		return fmt.Errorf("Invalid from email: %w", err)
	}
	if err := validateEmailList(to); err != nil {
		return fmt.Errorf("Invalid to email: %w", err)
	}
	if req.CC != "" {
		if err := validateEmailList(req.CC); err != nil {
			return fmt.Errorf("Invalid cc email: %w", err)
		}
	}
	if req.BCC != "" {
		if err := validateEmailList(req.BCC); err != nil {
			return fmt.Errorf("Invalid bcc email: %w", err)
		}
	}

	if n := countRecipients(to, req.CC, req.BCC); n > v.cfg.MaxRecipients {
		return fmt.Errorf("Too many recipients. Maximum allowed: %d", v.cfg.MaxRecipients)
	}

	if req.DeliveryTime != "" {
		if err := v.validateDeliveryTime(req.DeliveryTime); err != nil {
			return fmt.Errorf("Invalid delivery time: %w", err)
		}
	}

	if req.Tags != "" {
		if err := validateTags(req.Tags); err != nil {
			return fmt.Errorf("Invalid tags: %w", err)
		}
	}

	return nil
}

// ValidateAttachments checks the combined size of uploaded files against the
// configured limit.
func (v *Validator) ValidateAttachments(sizes []int64) error {
	var total int64
	for _, s := range sizes {
		total += s
	}
	if total > v.cfg.MaxAttachmentSize {
		return fmt.Errorf("Total attachment size exceeds limit of %dMB", v.cfg.MaxAttachmentSize>>20)
	}
	return nil
}

func validateEmail(addr string) error {
	email := mailaddr.ExtractEmail(addr)
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", addr)
	}
	return nil
}

func validateEmailList(list string) error {
	for seg := range strings.SplitSeq(list, ",") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		if err := validateEmail(seg); err != nil {
			return err
		}
	}
	return nil
}

func (v *Validator) validateDeliveryTime(value string) error {
	var when time.Time
	var parsed bool
	for _, layout := range deliveryTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			when, parsed = t, true
			break
		}
	}
	if !parsed {
		return errors.New("invalid date format, use RFC 2822")
	}

	now := v.now()
	if !when.After(now) {
		return errors.New("delivery time must be in the future")
	}
	if when.After(now.Add(maxScheduleWindow)) {
		return errors.New("delivery time cannot be more than 7 days in the future")
	}
	return nil
}

func validateTags(tags string) error {
	for tag := range strings.SplitSeq(tags, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if !tagPattern.MatchString(tag) {
			return fmt.Errorf("invalid tag format: %s, use only alphanumeric characters, hyphens, and underscores", tag)
		}
		if len(tag) > maxTagLength {
			return fmt.Errorf("tag too long: %s, maximum length is %d characters", tag, maxTagLength)
		}
	}
	return nil
}

// countRecipients counts the non-empty comma-split segments of to, cc, bcc.
func countRecipients(fields ...string) int {
	n := 0
	for _, field := range fields {
		if field == "" {
			continue
		}
		for seg := range strings.SplitSeq(field, ",") {
			if strings.TrimSpace(seg) != "" {
				n++
			}
		}
	}
	return n
}
