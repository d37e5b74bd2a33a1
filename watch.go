package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kindlepost/kindlepost/internal/delivery"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the source directory and send new e-books as they arrive",
		RunE:  runWatch,
	}
}

func runWatch(_ *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := shutdownContext(context.Background(), logger)

	orch, cleanup := buildOrchestrator(ctx, loadedCfg, logger)
	defer cleanup()

	watcher := delivery.NewWatcher(loadedCfg.SourceDir, func(ctx context.Context) error {
		outcome, err := orch.Run(ctx)
		statusf("Sent: %d, Failed: %d\n", outcome.Sent, outcome.Failed)

		return err
	}, logger)

	return watcher.Watch(ctx)
}
