package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// queueState mirrors the Mailgun sending-queues shape. There is no real
// queue behind it; both queues always report enabled.
type queueState struct {
	IsDisabled bool    `json:"is_disabled"`
	Disabled   *string `json:"disabled"`
}

func (s *Server) handleQueueStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"regular":   queueState{},
		"scheduled": queueState{},
	})
}

// handleSMTPStatus reports the relay configuration without attempting a
// connection. The username is disclosed only when the relay is enabled.
func (s *Server) handleSMTPStatus(w http.ResponseWriter, _ *http.Request) {
	var username any
	if s.cfg.SMTP.Enabled {
		username = s.cfg.SMTP.Username
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"smtp_enabled":    s.cfg.SMTP.Enabled,
		"smtp_configured": s.cfg.SMTPConfigured(),
		"smtp_host":       s.cfg.SMTP.Host,
		"smtp_port":       s.cfg.SMTP.Port,
		"smtp_encryption": s.cfg.SMTP.Encryption,
		"smtp_username":   username,
	})
}

// handleSMTPTest opens and closes a relay session to verify connectivity.
func (s *Server) handleSMTPTest(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"message":      "SMTP is not enabled",
			"smtp_enabled": false,
		})
		return
	}

	resp := map[string]any{
		"smtp_enabled":    true,
		"smtp_host":       s.cfg.SMTP.Host,
		"smtp_port":       s.cfg.SMTP.Port,
		"smtp_encryption": s.cfg.SMTP.Encryption,
	}

	status := http.StatusOK
	if err := s.engine.TestConnection(r.Context()); err != nil {
		status = http.StatusInternalServerError
		resp["message"] = "SMTP connection failed"
		resp["success"] = false
		resp["error"] = err.Error()
	} else {
		resp["message"] = "SMTP connection successful"
		resp["success"] = true
		resp["error"] = nil
	}

	writeJSON(w, status, resp)
}

// handleDeleteEnvelopes acknowledges scheduled-send deletion. Nothing is
// actually scheduled, so there is nothing to delete.
func (s *Server) handleDeleteEnvelopes(w http.ResponseWriter, r *http.Request) {
	s.log.Info("deleted envelopes", "domain", chi.URLParam(r, "domain"))
	writeJSON(w, http.StatusOK, map[string]any{"message": "done"})
}
