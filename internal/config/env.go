package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig    = "KINDLEPOST_CONFIG"
	EnvSourceDir = "KINDLEPOST_SOURCE_DIR"
	EnvSentDir   = "KINDLEPOST_SENT_DIR"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string // KINDLEPOST_CONFIG: override config file path
	SourceDir  string // KINDLEPOST_SOURCE_DIR: override source directory
	SentDir    string // KINDLEPOST_SENT_DIR: override sent directory
}

// ReadEnvOverrides reads environment variables and returns any overrides
// found. This does not modify a Config; Load applies the relevant fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		SourceDir:  os.Getenv(EnvSourceDir),
		SentDir:    os.Getenv(EnvSentDir),
	}
}
