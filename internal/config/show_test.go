package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderEffectiveRedactsSecret(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SourceDir = "/in"
	cfg.SentDir = "/sent"
	cfg.Recipients = []string{"a@kindle.com", "b@kindle.com"}
	cfg.Azure.ClientID = "client-123"
	cfg.Azure.ClientSecret = "super-secret"

	var buf strings.Builder
	require.NoError(t, RenderEffective(cfg, &buf))

	out := buf.String()
	assert.NotContains(t, out, "super-secret")
	assert.Contains(t, out, `client_secret = "<redacted>"`)
	assert.Contains(t, out, `client_id     = "client-123"`)
	assert.Contains(t, out, `"a@kindle.com", "b@kindle.com"`)
}

func TestRenderEffectiveEmptySecretStaysEmpty(t *testing.T) {
	cfg := DefaultConfig()

	var buf strings.Builder
	require.NoError(t, RenderEffective(cfg, &buf))

	assert.Contains(t, buf.String(), `client_secret = ""`)
}

// brokenWriter fails after n successful writes.
type brokenWriter struct {
	n int
}

func (w *brokenWriter) Write(p []byte) (int, error) {
	if w.n <= 0 {
		return 0, errors.New("pipe closed")
	}

	w.n--

	return len(p), nil
}

func TestRenderEffectiveSurfacesWriteError(t *testing.T) {
	err := RenderEffective(DefaultConfig(), &brokenWriter{n: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipe closed")
}
