package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kindlepost/kindlepost/internal/config"
	"github.com/kindlepost/kindlepost/internal/delivery"
	"github.com/kindlepost/kindlepost/internal/msauth"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show credential state and pending file count",
		RunE:  runStatus,
	}
}

// statusOutput is the JSON schema for `status --json`.
type statusOutput struct {
	LoggedIn     bool   `json:"logged_in"`
	TokenValid   bool   `json:"token_valid"`
	TokenExpires string `json:"token_expires,omitempty"`
	PendingFiles int    `json:"pending_files"`
	SourceDir    string `json:"source_dir"`
}

func runStatus(_ *cobra.Command, _ []string) error {
	store := msauth.NewStore(config.CredentialPath())

	cred, err := store.Load()
	if err != nil {
		return err
	}

	files, err := delivery.OSFiler{}.List(loadedCfg.SourceDir)
	if err != nil {
		return err
	}

	out := statusOutput{
		LoggedIn:     cred != nil,
		TokenValid:   cred.ValidAt(time.Now()),
		PendingFiles: len(files),
		SourceDir:    loadedCfg.SourceDir,
	}

	if cred != nil && cred.ExpiresAt != 0 {
		out.TokenExpires = time.Unix(cred.ExpiresAt, 0).UTC().Format(time.RFC3339)
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(out)
	}

	switch {
	case !out.LoggedIn:
		fmt.Println("Credential: none (run 'kindlepost login')")
	case out.TokenValid:
		fmt.Printf("Credential: valid until %s\n", out.TokenExpires)
	default:
		fmt.Printf("Credential: expired at %s (will refresh on next send)\n", out.TokenExpires)
	}

	fmt.Printf("Pending:    %d file(s) in %s\n", out.PendingFiles, out.SourceDir)

	return nil
}
