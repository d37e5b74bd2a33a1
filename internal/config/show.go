package config

import (
	"fmt"
	"io"
)

// redacted replaces secret values in rendered output.
const redacted = "<redacted>"

// RenderEffective writes the effective configuration as a human-readable
// summary to w. This powers the "config show" command, giving users
// visibility into the values after defaults, file, and env overrides have
// been applied. The client secret is never printed.
func RenderEffective(cfg *Config, w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("source_dir   = %q\n", cfg.SourceDir)
	ew.printf("sent_dir     = %q\n", cfg.SentDir)
	ew.printf("redirect_uri = %q\n", cfg.RedirectURI)
	ew.printf("subject      = %q\n", cfg.Subject)

	ew.printf("recipients   = [")

	for i, r := range cfg.Recipients {
		if i > 0 {
			ew.printf(", ")
		}

		ew.printf("%q", r)
	}

	ew.printf("]\n\n")

	ew.printf("[azure]\n")
	ew.printf("  client_id     = %q\n", cfg.Azure.ClientID)

	secret := ""
	if cfg.Azure.ClientSecret != "" {
		secret = redacted
	}

	ew.printf("  client_secret = %q\n", secret)
	ew.printf("  tenant_id     = %q\n", cfg.Azure.TenantID)

	ew.printf("\n[logging]\n")
	ew.printf("  log_level  = %q\n", cfg.Logging.LogLevel)
	ew.printf("  log_format = %q\n", cfg.Logging.LogFormat)

	return ew.err
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops, so callers can chain
// printf calls without checking each one individually.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
