package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kindlepost/kindlepost/internal/config"
	"github.com/kindlepost/kindlepost/internal/delivery"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent delivery outcomes",
		RunE:  runHistory,
	}

	cmd.Flags().IntP("limit", "n", 20, "maximum entries to show")

	return cmd
}

// historyOutput is the JSON schema for `history --json`.
type historyOutput struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
	Stage    string `json:"stage,omitempty"`
	Detail   string `json:"detail,omitempty"`
	SentAt   string `json:"sent_at"`
}

func runHistory(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := context.Background()

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	hist, err := delivery.OpenHistory(ctx, config.HistoryDBPath(), nil, logger)
	if err != nil {
		return err
	}
	defer hist.Close()

	entries, err := hist.Recent(ctx, limit)
	if err != nil {
		return err
	}

	if flagJSON {
		out := make([]historyOutput, 0, len(entries))
		for _, e := range entries {
			out = append(out, historyOutput{
				Filename: e.Filename,
				Status:   e.Status,
				Stage:    e.Stage,
				Detail:   e.Detail,
				SentAt:   e.SentAt.UTC().Format(time.RFC3339),
			})
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(out)
	}

	if len(entries) == 0 {
		fmt.Println("No deliveries recorded.")

		return nil
	}

	for _, e := range entries {
		line := fmt.Sprintf("%s  %-6s  %s", e.SentAt.Local().Format("2006-01-02 15:04"), e.Status, e.Filename)
		if e.Status != "sent" && e.Stage != "" {
			line += fmt.Sprintf("  (%s: %s)", e.Stage, e.Detail)
		}

		fmt.Println(line)
	}

	return nil
}
