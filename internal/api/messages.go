package api

import (
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/mailroom/pkg/delivery"
	"github.com/dmitrymomot/mailroom/pkg/message"
)

// multipartMemoryLimit caps how much of an upload is held in memory before
// spilling to temp files.
const multipartMemoryLimit = 10 << 20

// handleSendMessage accepts a form-encoded send request: validate, copy the
// attachments into storage, persist the canonical record, then fan out to the
// relay when one is configured. The request is acknowledged with 200 even
// when every relay send fails; the smtp_* response fields carry the real
// outcome.
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")

	if err := s.parseForm(w, r); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Invalid request body"})
		return
	}

	req := sendRequestFromForm(r)
	if err := s.validator.ValidateSend(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": err.Error()})
		return
	}

	attachments, err := s.storeAttachments(r)
	if err != nil {
		var reason *validationError
		if errors.As(err, &reason) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"message": reason.Error()})
			return
		}
		s.log.Error("failed to store attachments", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "Internal server error"})
		return
	}

	msg := message.New(domain, req, attachments)

	key, err := s.store.Put(r.Context(), msg)
	if err != nil {
		s.log.Error("failed to store message", "message_id", msg.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "Internal server error"})
		return
	}

	var outcome *delivery.Outcome
	if s.engine != nil {
		outcome = s.engine.Deliver(r.Context(), msg)
	}

	s.logSendResult(msg, key, outcome)
	writeJSON(w, http.StatusOK, sendResponse(msg.ID, outcome))
}

// handleSendMIME accepts a pre-composed RFC 2822 message uploaded as the
// "message" file and relays it verbatim to the listed recipients.
func (s *Server) handleSendMIME(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")

	if err := s.parseForm(w, r); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Invalid request body"})
		return
	}

	to := r.PostFormValue("to")
	file, _, err := r.FormFile("message")
	if to == "" || err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Missing required fields: to, message"})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		s.log.Error("failed to read uploaded message", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "Internal server error"})
		return
	}

	req := message.SendRequest{
		Tags:              r.PostFormValue("o:tag"),
		Template:          r.PostFormValue("template"),
		TemplateVariables: r.PostFormValue("t:variables"),
	}
	msg := message.NewMIME(domain, to, content, req)

	key, err := s.store.Put(r.Context(), msg)
	if err != nil {
		s.log.Error("failed to store message", "message_id", msg.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "Internal server error"})
		return
	}

	var outcome *delivery.Outcome
	if s.engine != nil {
		outcome = s.engine.DeliverMIME(r.Context(), msg)
	}

	s.logSendResult(msg, key, outcome)
	writeJSON(w, http.StatusOK, sendResponse(msg.ID, outcome))
}

// parseForm reads either multipart or urlencoded bodies, bounded by the
// configured message size limit.
func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) error {
	if s.cfg.Limits.MaxMessageSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Limits.MaxMessageSize)
	}
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		if !errors.Is(err, http.ErrNotMultipart) {
			return err
		}
		return r.ParseForm()
	}
	return nil
}

// sendRequestFromForm maps the dynamic field bag onto the typed request.
// Repeated "to" fields are kept separate so per-recipient variables can be
// synthesized later. Custom header names are sorted for a stable record.
func sendRequestFromForm(r *http.Request) message.SendRequest {
	form := r.PostForm

	req := message.SendRequest{
		From:               form.Get("from"),
		To:                 form["to"],
		CC:                 form.Get("cc"),
		BCC:                form.Get("bcc"),
		Subject:            form.Get("subject"),
		Text:               form.Get("text"),
		HTML:               form.Get("html"),
		Template:           form.Get("template"),
		TemplateVariables:  form.Get("t:variables"),
		RecipientVariables: form.Get("recipient-variables"),
		Tags:               form.Get("o:tag"),
		DeliveryTime:       form.Get("o:deliverytime"),
		ReplyTo:            form.Get("h:Reply-To"),
	}

	var headerNames []string
	for name := range form {
		if strings.HasPrefix(name, "h:") {
			headerNames = append(headerNames, name)
		}
	}
	sort.Strings(headerNames)
	for _, name := range headerNames {
		req.Headers = append(req.Headers, message.Header{
			Name:  strings.TrimPrefix(name, "h:"),
			Value: form.Get(name),
		})
	}

	return req
}

// validationError marks a rejection the client caused, as opposed to a
// storage fault.
type validationError struct{ reason string }

func (e *validationError) Error() string { return e.reason }

// storeAttachments checks the combined upload size and copies each uploaded
// "attachment" file into the store.
func (s *Server) storeAttachments(r *http.Request) ([]message.Attachment, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	files := r.MultipartForm.File["attachment"]
	if len(files) == 0 {
		return nil, nil
	}

	sizes := make([]int64, 0, len(files))
	for _, fh := range files {
		sizes = append(sizes, fh.Size)
	}
	if err := s.validator.ValidateAttachments(sizes); err != nil {
		return nil, &validationError{reason: err.Error()}
	}

	attachments := make([]message.Attachment, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}

		stored, err := s.store.PutAttachment(r.Context(), fh.Filename, f, fh.Size, fh.Header.Get("Content-Type"))
		f.Close()
		if err != nil {
			return nil, err
		}

		attachments = append(attachments, message.Attachment{
			Name:        fh.Filename,
			Size:        stored.Size,
			ContentType: stored.ContentType,
			Path:        stored.Path,
		})
	}

	return attachments, nil
}

// sendResponse builds the acknowledgement body. The smtp_* fields appear only
// when a relay attempt was made.
func sendResponse(messageID string, outcome *delivery.Outcome) map[string]any {
	resp := map[string]any{
		"id":      messageID,
		"message": "Queued. Thank you.",
	}
	if outcome == nil {
		return resp
	}

	status := "sent"
	if !outcome.OverallSuccess {
		status = "partial_or_failed"
	}
	resp["smtp_status"] = status
	resp["smtp_total_recipients"] = outcome.TotalRecipients
	resp["smtp_successful_sends"] = outcome.SuccessfulSends
	resp["smtp_failed_sends"] = outcome.FailedSends
	if !outcome.OverallSuccess {
		resp["smtp_errors"] = outcome.Errors
	}
	return resp
}

func (s *Server) logSendResult(msg *message.Message, key string, outcome *delivery.Outcome) {
	attrs := []any{
		"message_id", msg.ID,
		"domain", msg.Domain,
		"to", msg.To,
		"storage_key", key,
		"smtp_enabled", outcome != nil,
	}
	if outcome != nil {
		attrs = append(attrs,
			"smtp_success", outcome.OverallSuccess,
			"total_recipients", outcome.TotalRecipients,
			"successful_sends", outcome.SuccessfulSends,
			"failed_sends", outcome.FailedSends,
		)
		if !outcome.OverallSuccess {
			attrs = append(attrs, "smtp_errors", outcome.Errors)
		}
	}
	s.log.Info("message processed", attrs...)
}