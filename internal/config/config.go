// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for kindlepost. Values resolve through a
// three-layer override chain (defaults -> config file -> environment), with
// CLI flags applied by the caller on top.
package config

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	// SourceDir is the directory scanned for e-books waiting to be sent.
	SourceDir string `toml:"source_dir"`
	// SentDir is where files are moved after a confirmed successful send.
	SentDir string `toml:"sent_dir"`
	// Recipients are the Kindle inbox addresses every file is sent to.
	Recipients []string `toml:"recipients"`
	// RedirectURI is the OAuth2 redirect the local listener binds to.
	// Must match the redirect URI registered on the Azure application.
	RedirectURI string `toml:"redirect_uri"`
	// Subject is the email subject line used for every delivery.
	Subject string `toml:"subject"`

	Azure   AzureConfig   `toml:"azure"`
	Logging LoggingConfig `toml:"logging"`
}

// AzureConfig identifies the Azure AD application used for authentication.
type AzureConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	// TenantID is usually "common" for multi-tenant + personal accounts.
	TenantID string `toml:"tenant_id"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`
	// LogFormat is one of auto, text, json. "auto" picks text on a
	// terminal and JSON otherwise.
	LogFormat string `toml:"log_format"`
}

// Default values for configuration options. These are the "layer 0" of the
// override chain and work out of the box for everything except the Azure
// application credentials and recipient addresses, which the user must set.
const (
	defaultRedirectURI = "http://localhost:8080/callback"
	defaultSubject     = "Your Kindle File"
	defaultTenantID    = "common"
	defaultLogLevel    = "info"
	defaultLogFormat   = "auto"
)

// DefaultConfig returns a Config populated with all default values. Used as
// the starting point for TOML decoding so unset fields retain defaults.
func DefaultConfig() *Config {
	return &Config{
		RedirectURI: defaultRedirectURI,
		Subject:     defaultSubject,
		Azure: AzureConfig{
			TenantID: defaultTenantID,
		},
		Logging: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
	}
}
