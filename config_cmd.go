package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kindlepost/kindlepost/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration after all overrides",
		RunE:  runConfigShow,
	}
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	if loadedCfg == nil {
		return fmt.Errorf("no configuration loaded")
	}

	if flagJSON {
		// Redact the secret in JSON output too.
		redacted := *loadedCfg
		if redacted.Azure.ClientSecret != "" {
			redacted.Azure.ClientSecret = "<redacted>"
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(redacted)
	}

	return config.RenderEffective(loadedCfg, os.Stdout)
}
