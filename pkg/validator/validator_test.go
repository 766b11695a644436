package validator_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mailroom/pkg/message"
	"github.com/dmitrymomot/mailroom/pkg/validator"
)

func validRequest() message.SendRequest {
	return message.SendRequest{
		From:    "s@example.com",
		To:      []string{"r@example.com"},
		Subject: "Hello",
		Text:    "body",
	}
}

func TestValidateSend_OK(t *testing.T) {
	t.Parallel()

	v := validator.New(validator.Config{})
	require.NoError(t, v.ValidateSend(validRequest()))
}

func TestValidateSend_RequiredFields(t *testing.T) {
	t.Parallel()

	v := validator.New(validator.Config{})

	tests := []struct {
		name   string
		mutate func(*message.SendRequest)
		want   string
	}{
		{"missing from", func(r *message.SendRequest) { r.From = "" }, "Missing required field: from"},
		{"missing to", func(r *message.SendRequest) { r.To = nil }, "Missing required field: to"},
		{"missing subject", func(r *message.SendRequest) { r.Subject = "" }, "Missing required field: subject"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := validRequest()
			tt.mutate(&req)
			err := v.ValidateSend(req)
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestValidateSend_ContentRequired(t *testing.T) {
	t.Parallel()

	v := validator.New(validator.Config{})
	req := validRequest()
	req.Text = ""

	err := v.ValidateSend(req)
	require.Error(t, err)
	assert.Equal(t, "Must provide at least one of: text, html, or template", err.Error())

	// Any one content field is enough.
	req.Template = "welcome"
	require.NoError(t, v.ValidateSend(req))
}

func TestValidateSend_AddressSyntax(t *testing.T) {
	t.Parallel()

	v := validator.New(validator.Config{})

	req := validRequest()
	req.From = "not-an-email"
	err := v.ValidateSend(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid from email")

	req = validRequest()
	req.From = "Sender <s@example>" // domain without a dot
	require.Error(t, v.ValidateSend(req))

	req = validRequest()
	req.To = []string{"ok@example.com", "bad@@example.com"}
	err = v.ValidateSend(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid to email")

	req = validRequest()
	req.CC = "broken"
	err = v.ValidateSend(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid cc email")

	req = validRequest()
	req.BCC = "broken"
	err = v.ValidateSend(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid bcc email")

	// Display-name forms are validated on the bare email.
	req = validRequest()
	req.To = []string{`"Jane Doe" <jane@example.com>`}
	require.NoError(t, v.ValidateSend(req))
}

func TestValidateSend_RecipientLimit(t *testing.T) {
	t.Parallel()

	v := validator.New(validator.Config{MaxRecipients: 3})

	req := validRequest()
	req.To = []string{"a@x.com", "b@x.com"}
	req.CC = "c@x.com"
	require.NoError(t, v.ValidateSend(req))

	req.BCC = "d@x.com"
	err := v.ValidateSend(req)
	require.Error(t, err)
	assert.Equal(t, "Too many recipients. Maximum allowed: 3", err.Error())
}

func TestValidateSend_DeliveryTime(t *testing.T) {
	t.Parallel()

	v := validator.New(validator.Config{})

	req := validRequest()
	req.DeliveryTime = "not a date"
	err := v.ValidateSend(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid delivery time")

	req.DeliveryTime = time.Now().Add(-time.Hour).Format(time.RFC1123Z)
	err = v.ValidateSend(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be in the future")

	req.DeliveryTime = time.Now().Add(8 * 24 * time.Hour).Format(time.RFC1123Z)
	err = v.ValidateSend(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "more than 7 days")

	req.DeliveryTime = time.Now().Add(time.Hour).Format(time.RFC1123Z)
	require.NoError(t, v.ValidateSend(req))
}

func TestValidateSend_Tags(t *testing.T) {
	t.Parallel()

	v := validator.New(validator.Config{})

	req := validRequest()
	req.Tags = "welcome,new_user,promo-2024"
	require.NoError(t, v.ValidateSend(req))

	req.Tags = "bad tag!"
	err := v.ValidateSend(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid tags")

	req.Tags = strings.Repeat("a", 129)
	err = v.ValidateSend(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too long")
}

func TestValidateAttachments(t *testing.T) {
	t.Parallel()

	v := validator.New(validator.Config{MaxAttachmentSize: 1 << 20})

	require.NoError(t, v.ValidateAttachments(nil))
	require.NoError(t, v.ValidateAttachments([]int64{512 << 10, 512 << 10}))

	err := v.ValidateAttachments([]int64{1 << 20, 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "attachment size exceeds limit")
}
