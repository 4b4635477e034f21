package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestInitBuildsLoggerAtConfiguredLevel(t *testing.T) {
	log, level, err := Init(Config{Level: zapcore.WarnLevel})
	require.NoError(t, err)
	require.NotNil(t, log)
	require.Equal(t, zapcore.WarnLevel, level.Level())
}

func TestInitAtomicLevelIsMutable(t *testing.T) {
	_, level, err := Init(Config{Level: zapcore.InfoLevel})
	require.NoError(t, err)

	level.SetLevel(zapcore.ErrorLevel)
	require.Equal(t, zapcore.ErrorLevel, level.Level())
}
