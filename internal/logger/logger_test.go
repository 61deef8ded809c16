package logger_test

import (
	"testing"

	"github.com/quinedb/quinedb/internal/logger"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestSetLevelChangesVerbosityInPlace(t *testing.T) {
	h := logger.New("info", "console")

	assert.False(t, h.Core().Enabled(zap.DebugLevel))

	h.SetLevel("debug")
	assert.True(t, h.Core().Enabled(zap.DebugLevel))

	h.SetLevel("warn")
	assert.False(t, h.Core().Enabled(zap.InfoLevel))
	assert.True(t, h.Core().Enabled(zap.WarnLevel))
}

func TestSetLevelIgnoresUnknownLevel(t *testing.T) {
	h := logger.New("info", "console")

	h.SetLevel("not-a-level")
	assert.True(t, h.Core().Enabled(zap.InfoLevel))
	assert.False(t, h.Core().Enabled(zap.DebugLevel))
}
