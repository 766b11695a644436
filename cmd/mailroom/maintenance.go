package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/mailroom/internal/config"
	"github.com/dmitrymomot/mailroom/pkg/store"
)

func newStatsCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print storage usage",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			stats, err := store.NewFileStore(cfg.Storage.Path).Stats(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Storage path:  %s\n", stats.StoragePath)
			fmt.Fprintf(cmd.OutOrStdout(), "Messages:      %d\n", stats.TotalMessages)
			fmt.Fprintf(cmd.OutOrStdout(), "Attachments:   %d\n", stats.TotalAttachments)
			fmt.Fprintf(cmd.OutOrStdout(), "Total size:    %.2f MB\n", stats.TotalSizeMB)
			return nil
		},
	}
}

func newCleanupCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete messages older than the retention window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			retention := cfg.Retention()
			if days > 0 {
				retention = time.Duration(days) * 24 * time.Hour
			}

			deleted, err := store.NewFileStore(cfg.Storage.Path).Cleanup(cmd.Context(), retention)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d message(s)\n", deleted)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "override the configured retention window (days)")

	return cmd
}

func newClearCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all stored messages and attachments",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !force {
				return errors.New("refusing to delete all data without --force")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			messages, attachments, err := store.NewFileStore(cfg.Storage.Path).ClearAll(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d message(s) and %d attachment(s)\n", messages, attachments)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "confirm deletion of all stored data")

	return cmd
}
