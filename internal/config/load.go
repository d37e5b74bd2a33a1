package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, applies env overrides, expands
// tildes, and validates the result. This is the single entry point used by
// the CLI; commands that can run without a config file (login, logout,
// status) still call it because the Azure application section is required
// for every network operation.
func Load(path string, env EnvOverrides) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}

		// A typo silently ignored leads to hard-to-debug behavior, so
		// unknown keys are fatal.
		return nil, fmt.Errorf("config: unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}

	applyEnvOverrides(cfg, env)

	cfg.SourceDir = expandTilde(cfg.SourceDir)
	cfg.SentDir = expandTilde(cfg.SentDir)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides replaces config-file values with environment values
// where set. Environment wins over the file, CLI flags (applied by the
// caller) win over the environment.
func applyEnvOverrides(cfg *Config, env EnvOverrides) {
	if env.SourceDir != "" {
		cfg.SourceDir = env.SourceDir
	}

	if env.SentDir != "" {
		cfg.SentDir = env.SentDir
	}
}

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so users
// see a complete report and can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.SourceDir == "" {
		errs = append(errs, errors.New("source_dir: required"))
	}

	if cfg.SentDir == "" {
		errs = append(errs, errors.New("sent_dir: required"))
	}

	if len(cfg.Recipients) == 0 {
		errs = append(errs, errors.New("recipients: at least one address required"))
	}

	for _, addr := range cfg.Recipients {
		if !strings.Contains(addr, "@") {
			errs = append(errs, fmt.Errorf("recipients: %q is not an email address", addr))
		}
	}

	if cfg.Azure.ClientID == "" {
		errs = append(errs, errors.New("azure.client_id: required"))
	}

	if cfg.Azure.TenantID == "" {
		errs = append(errs, errors.New("azure.tenant_id: required"))
	}

	errs = append(errs, validateRedirectURI(cfg.RedirectURI)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)

	return errors.Join(errs...)
}

// validateRedirectURI checks the redirect URI parses and points at a
// loopback host. The local listener binds whatever host:port is configured
// here, so a non-loopback host would expose the authorization code.
func validateRedirectURI(raw string) []error {
	if raw == "" {
		return []error{errors.New("redirect_uri: required")}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return []error{fmt.Errorf("redirect_uri: %w", err)}
	}

	var errs []error

	if u.Scheme != "http" {
		errs = append(errs, fmt.Errorf("redirect_uri: scheme must be http, got %q", u.Scheme))
	}

	host := u.Hostname()
	if host != "localhost" && host != "127.0.0.1" {
		errs = append(errs, fmt.Errorf("redirect_uri: host must be loopback, got %q", host))
	}

	return errs
}

func validateLogging(lc *LoggingConfig) []error {
	var errs []error

	levels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(levels, lc.LogLevel) {
		errs = append(errs, fmt.Errorf("logging.log_level: must be one of %s, got %q",
			strings.Join(levels, "/"), lc.LogLevel))
	}

	formats := []string{"auto", "text", "json"}
	if !slices.Contains(formats, lc.LogFormat) {
		errs = append(errs, fmt.Errorf("logging.log_format: must be one of %s, got %q",
			strings.Join(formats, "/"), lc.LogFormat))
	}

	return errs
}

// expandTilde replaces a leading "~" with the user's home directory.
func expandTilde(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}

		return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	}

	return path
}
