package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/partydamage/internal/config"
)

func TestNewLogger_Formats(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		logger, err := NewLogger(config.LoggingConfig{Level: "info", Format: format})
		require.NoError(t, err, "format %q", format)
		assert.Equal(t, LoggerName, logger.Name())
	}
}

func TestNewLogger_LevelIsApplied(t *testing.T) {
	for _, tc := range []struct {
		level   string
		enabled zapcore.Level
		hidden  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel, zapcore.DebugLevel - 1},
		{"info", zapcore.InfoLevel, zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel, zapcore.InfoLevel},
		{"error", zapcore.ErrorLevel, zapcore.WarnLevel},
	} {
		logger, err := NewLogger(config.LoggingConfig{Level: tc.level, Format: "json"})
		require.NoError(t, err, "level %q", tc.level)
		assert.True(t, logger.Core().Enabled(tc.enabled), "level %q", tc.level)
		assert.False(t, logger.Core().Enabled(tc.hidden), "level %q", tc.level)
	}
}

func TestNewLogger_Invalid(t *testing.T) {
	_, err := NewLogger(config.LoggingConfig{Level: "trace", Format: "json"})
	assert.Error(t, err)
	_, err = NewLogger(config.LoggingConfig{Level: "info", Format: "xml"})
	assert.Error(t, err)
}
