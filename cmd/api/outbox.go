package main

import (
	"context"
	"encoding/json"
	"os"

	"mindtrack/infrastructure/di"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var outboxCmd = &cobra.Command{
	Use:   "outbox",
	Short: "Inspect and drain pending secondary-store writes",
}

var outboxStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print outbox depth and processor settings",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		container := mustContainer(cmd.Context())
		defer shutdown(container)

		stats, err := container.Processor.GetStats(cmd.Context())
		if err != nil {
			fatal("Error reading outbox", err)
		}
		stats["backend"] = container.Stores.Types["outbox"]
		printJSON(stats)
	},
}

var outboxDrainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Retry every pending secondary-store write once, ignoring backoff",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		container := mustContainer(cmd.Context())
		defer shutdown(container)

		stats, err := container.Processor.Drain(cmd.Context())
		if err != nil {
			fatal("Error draining outbox", err)
		}

		printJSON(stats)
	},
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatal("Error encoding result", err)
	}
}

func mustContainer(ctx context.Context) *di.Container {
	cfg, err := loadConfig()
	if err != nil {
		fatal("Error loading configuration", err)
	}
	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		fatal("Error initializing", err)
	}
	return container
}

func shutdown(container *di.Container) {
	if err := container.Shutdown(context.Background()); err != nil {
		container.Logger.Warn("Cleanup failed", zap.Error(err))
	}
	_ = container.Logger.Sync()
}

func init() {
	outboxCmd.AddCommand(outboxStatusCmd)
	outboxCmd.AddCommand(outboxDrainCmd)
	rootCmd.AddCommand(outboxCmd)
}
