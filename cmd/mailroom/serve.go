package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/mailroom/internal/api"
	"github.com/dmitrymomot/mailroom/internal/config"
	"github.com/dmitrymomot/mailroom/pkg/delivery"
	"github.com/dmitrymomot/mailroom/pkg/delivery/resend"
	"github.com/dmitrymomot/mailroom/pkg/delivery/smtp"
	"github.com/dmitrymomot/mailroom/pkg/logger"
	"github.com/dmitrymomot/mailroom/pkg/store"
)

const shutdownTimeout = 10 * time.Second

// retentionSchedule runs the cleanup job daily at 03:00 local time.
const retentionSchedule = "0 3 * * *"

func newServeCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := logger.New(cfg.Logging.Level)
	st := store.NewFileStore(cfg.Storage.Path)

	engine, err := buildEngine(cfg, log)
	if err != nil {
		return err
	}
	if engine == nil {
		log.Info("no relay configured, running in simulation mode")
	}

	srv := &http.Server{
		Addr:              cfg.API.Listen,
		Handler:           api.NewServer(cfg, st, engine, log).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(retentionSchedule, func() {
		deleted, err := st.Cleanup(context.Background(), cfg.Retention())
		if err != nil {
			log.Error("retention cleanup failed", "error", err)
			return
		}
		log.Info("retention cleanup finished", "deleted", deleted, "retention_days", cfg.Storage.RetentionDays)
	}); err != nil {
		return fmt.Errorf("failed to schedule retention job: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.API.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// buildEngine constructs the delivery engine for the configured provider, or
// returns nil when no relay is usable.
func buildEngine(cfg *config.Config, log *slog.Logger) (*delivery.Engine, error) {
	if !cfg.SMTPConfigured() {
		return nil, nil
	}

	var transport delivery.Transport
	switch cfg.SMTP.Provider {
	case "resend":
		transport = resend.New(resend.Config{APIKey: cfg.Resend.APIKey})
	case "", "smtp":
		transport = smtp.New(smtp.Config{
			Host:               cfg.SMTP.Host,
			Port:               cfg.SMTP.Port,
			Encryption:         cfg.SMTP.Encryption,
			Auth:               cfg.SMTP.Auth,
			Username:           cfg.SMTP.Username,
			Password:           cfg.SMTP.Password,
			Timeout:            cfg.SMTPTimeout(),
			InsecureSkipVerify: !cfg.VerifyPeerEnabled(),
			Debug:              cfg.SMTP.Debug,
		}, log)
	default:
		return nil, fmt.Errorf("unknown relay provider %q", cfg.SMTP.Provider)
	}

	return delivery.New(transport, delivery.Config{
		FromName:  cfg.SMTP.FromName,
		FromEmail: cfg.SMTP.FromEmail,
	}, log), nil
}
