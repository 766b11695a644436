package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/mailroom/pkg/message"
	"github.com/dmitrymomot/mailroom/pkg/store"
)

// handleRetrieveMessage serves a stored message in the Mailgun retrieval
// shape. stripped-html is the sanitized HTML body; stripped-text mirrors the
// plain body since stored messages carry no signature to strip.
func (s *Server) handleRetrieveMessage(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	msg, err := s.store.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]any{"message": "Message not found"})
			return
		}
		s.log.Error("failed to retrieve message", "storage_key", key, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "Internal server error"})
		return
	}

	contentType := msg.ContentType
	if contentType == "" {
		contentType = "text/plain"
	}
	templateVars := msg.TemplateVariables
	if templateVars == "" {
		templateVars = "{}"
	}
	headers := msg.Headers
	if headers == nil {
		headers = []message.Header{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"Content-Transfer-Encoding":    "7bit",
		"Content-Type":                 contentType,
		"From":                         msg.From,
		"Message-Id":                   msg.ID,
		"Mime-Version":                 "1.0",
		"Subject":                      msg.Subject,
		"To":                           msg.To,
		"X-Mailgun-Tag":                msg.Tags,
		"sender":                       msg.Sender,
		"recipients":                   msg.Recipients,
		"body-html":                    msg.HTML,
		"body-plain":                   msg.Text,
		"stripped-html":                s.sanitizer.Sanitize(msg.HTML),
		"stripped-text":                msg.Text,
		"stripped-signature":           "",
		"message-headers":              headers,
		"X-Mailgun-Template-Name":      msg.Template,
		"X-Mailgun-Template-Variables": templateVars,
	})
}
