package logger

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ratespy/ratespy-bot/pkg/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("anything else"))
}

func TestNew_WithSentryFanout(t *testing.T) {
	cfg := config.Config{}
	cfg.Logger.Level = "info"
	cfg.Logger.Format = "json"
	cfg.Sentry.Enabled = true

	log := New(cfg)
	require.NotNil(t, log)

	// Records below the Sentry threshold stay on the primary handler only.
	log.Info("fanout smoke check")
}
