package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kindlepost/kindlepost/internal/config"
	"github.com/kindlepost/kindlepost/internal/msauth"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authenticate with Microsoft using the browser flow",
		RunE:  runLogin,
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the saved credential",
		RunE:  runLogout,
	}
}

func runLogin(_ *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := context.Background()

	cfg := loadedCfg
	store := msauth.NewStore(config.CredentialPath())
	identity := msauth.NewIdentityClient(
		cfg.Azure.ClientID, cfg.Azure.ClientSecret, cfg.Azure.TenantID, cfg.RedirectURI, logger)
	manager := msauth.NewManager(store, identity, cfg.RedirectURI, openBrowser, logger)

	if err := manager.Login(ctx); err != nil {
		return err
	}

	statusf("Login successful.\n")

	return nil
}

func runLogout(_ *cobra.Command, _ []string) error {
	logger := buildLogger()

	store := msauth.NewStore(config.CredentialPath())
	if err := store.Remove(); err != nil {
		return err
	}

	logger.Info("removed credential file", "path", store.Path())
	statusf("Logged out.\n")

	return nil
}
