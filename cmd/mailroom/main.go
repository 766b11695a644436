// Command mailroom runs the Mailgun-compatible sending API and its storage
// maintenance tools.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/mailroom/internal/config"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "mailroom",
		Short: "Transactional email API emulator",
		Long: `Mailroom exposes a Mailgun-compatible HTTP API that accepts, stores,
and optionally relays transactional email. Without a configured relay it runs
in simulation mode: every message is persisted and acknowledged, nothing
leaves the host.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")

	loadConfig := func() (*config.Config, error) {
		if configPath != "" {
			return config.LoadFromFile(configPath)
		}
		return config.Load()
	}

	rootCmd.AddCommand(newServeCmd(loadConfig))
	rootCmd.AddCommand(newStatsCmd(loadConfig))
	rootCmd.AddCommand(newCleanupCmd(loadConfig))
	rootCmd.AddCommand(newClearCmd(loadConfig))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
