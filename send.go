package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kindlepost/kindlepost/internal/config"
	"github.com/kindlepost/kindlepost/internal/delivery"
	"github.com/kindlepost/kindlepost/internal/graph"
	"github.com/kindlepost/kindlepost/internal/msauth"
)

func newSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send",
		Short: "Send pending e-books to the configured Kindle addresses",
		RunE:  runSend,
	}
}

func runSend(_ *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := context.Background()

	orch, cleanup := buildOrchestrator(ctx, loadedCfg, logger)
	defer cleanup()

	outcome, err := orch.Run(ctx)

	statusf("Sent: %d, Failed: %d\n", outcome.Sent, outcome.Failed)

	return err
}

// buildOrchestrator wires the full delivery stack from the loaded config.
// The returned cleanup closes the history ledger; a ledger that fails to
// open degrades to no recording rather than blocking delivery.
func buildOrchestrator(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*delivery.Orchestrator, func()) {
	store := msauth.NewStore(config.CredentialPath())
	identity := msauth.NewIdentityClient(
		cfg.Azure.ClientID, cfg.Azure.ClientSecret, cfg.Azure.TenantID, cfg.RedirectURI, logger)
	manager := msauth.NewManager(store, identity, cfg.RedirectURI, openBrowser, logger)

	newSender := func(token string) delivery.Sender {
		client := graph.NewClient(graph.DefaultBaseURL, defaultHTTPClient(), graph.StaticToken(token), logger)

		return delivery.NewMailer(client, cfg.Recipients, cfg.Subject, logger)
	}

	var recorder delivery.Recorder

	cleanup := func() {}

	hist, err := delivery.OpenHistory(ctx, config.HistoryDBPath(), cfg.Recipients, logger)
	if err != nil {
		logger.Warn("history ledger unavailable, continuing without it",
			slog.String("error", err.Error()),
		)
	} else {
		recorder = hist
		cleanup = func() { hist.Close() }
	}

	orch := delivery.NewOrchestrator(
		cfg.SourceDir, cfg.SentDir, manager, delivery.OSFiler{}, newSender, recorder, logger)

	return orch, cleanup
}
