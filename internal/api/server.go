// Package api exposes the Mailgun-compatible HTTP surface: the messages
// endpoints under /v3 plus the status and maintenance endpoints the dashboard
// clients probe. Every route sits behind HTTP Basic auth.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/microcosm-cc/bluemonday"

	"github.com/dmitrymomot/mailroom/internal/config"
	"github.com/dmitrymomot/mailroom/pkg/delivery"
	"github.com/dmitrymomot/mailroom/pkg/store"
	"github.com/dmitrymomot/mailroom/pkg/validator"
)

// Server wires the message pipeline behind the HTTP routes. The delivery
// engine is optional: when nil, sends are stored and acknowledged without any
// relay attempt (simulation mode).
type Server struct {
	cfg       *config.Config
	store     store.Store
	engine    *delivery.Engine
	validator *validator.Validator
	sanitizer *bluemonday.Policy
	log       *slog.Logger
}

// NewServer assembles a Server. A nil logger discards request logs.
func NewServer(cfg *config.Config, st store.Store, engine *delivery.Engine, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Server{
		cfg:    cfg,
		store:  st,
		engine: engine,
		validator: validator.New(validator.Config{
			MaxRecipients:     cfg.Limits.MaxRecipients,
			MaxAttachmentSize: cfg.Limits.MaxAttachmentSize,
		}),
		sanitizer: bluemonday.UGCPolicy(),
		log:       log,
	}
}

// Router builds the route tree with the shared middleware chain applied.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(s.basicAuth)

	r.Route("/v3", func(r chi.Router) {
		r.Post("/{domain}/messages", s.handleSendMessage)
		r.Post("/{domain}/messages.mime", s.handleSendMIME)
		r.Get("/{domain}/messages/{key}", s.handleRetrieveMessage)
		r.Get("/domains/{domain}/messages/{key}", s.handleRetrieveMessage)
		r.Get("/{domain}/sending_queues", s.handleQueueStatus)
		r.Get("/{domain}/smtp", s.handleSMTPStatus)
		r.Get("/{domain}/smtp/test", s.handleSMTPTest)
		r.Delete("/{domain}/envelopes", s.handleDeleteEnvelopes)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"message": "Method not allowed"})
	})

	return r
}
