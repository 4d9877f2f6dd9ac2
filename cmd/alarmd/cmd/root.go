package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-clock/internal/config"
	"github.com/oshokin/alarm-clock/internal/service/alarmd"
	"github.com/oshokin/alarm-clock/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// databasePath to the SQLite alarm database.
	databasePath string

	// rootCmd represents the base command for running the alarm engine.
	rootCmd = &cobra.Command{
		Use:   "alarmd [listen-address]",
		Short: "Run the alarm scheduling and trigger-delivery engine.",
		Long: `Starts the alarm engine: alarms stored in SQLite are expanded into timed
occurrences over a rolling horizon, ringing sessions are driven through their
full lifecycle (pending, active, dismissed, snoozed or auto-expired) and a
session interrupted by a restart is recovered on startup.

The HTTP control API listens on the configured address or on the address
given as argument (e.g., 127.0.0.1:9425).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use listen address argument if provided, otherwise rely on config.
			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &alarmd.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				DatabasePath:  databasePath,
			}

			return alarmd.Run(ctx, options)
		},
	}
)

// Execute runs the alarmd CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().
		StringVarP(&databasePath, "database", "d", "", "path to the alarm database (defaults to the configured value)")
}
