package logger

import (
	"context"
	"log/slog"
	"testing"

	"github.com/mwarren/clipforge/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestSetupLevels(t *testing.T) {
	cases := []struct {
		level   string
		enabled slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}

	for _, tc := range cases {
		t.Run(tc.level, func(t *testing.T) {
			logger := Setup(config.ServerConfig{Port: 8080, LogLevel: tc.level})
			assert.NotNil(t, logger)
			assert.True(t, logger.Enabled(context.Background(), tc.enabled))
		})
	}
}

func TestSetupInvalidLevelFallsBackToInfo(t *testing.T) {
	logger := Setup(config.ServerConfig{Port: 8080, LogLevel: "verbose"})
	assert.NotNil(t, logger)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
}
