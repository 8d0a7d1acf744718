package logger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"dbcontrol/pkg/dbcontrol/util/logger"
)

// observe はテスト中だけ observer にログを流し込みます。
func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	logger.SetLogger(zap.New(core))
	t.Cleanup(func() {
		logger.SetLogger(nil)
		logger.SetLogLevel("INFO")
	})
	return logs
}

func TestSetLogLevel_FiltersBelowLevel(t *testing.T) {
	logs := observe(t)

	logger.SetLogLevel("WARN")
	logger.Debugf("debug %d", 1)
	logger.Infof("info %d", 2)
	logger.Warnf("warn %d", 3)
	logger.Errorf("error %d", 4)

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, "warn 3", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "error 4", entries[1].Message)
	assert.Equal(t, logger.LevelWarn, logger.GetLogLevel())
}

func TestSetLogLevel_DebugEnablesEverything(t *testing.T) {
	logs := observe(t)

	logger.SetLogLevel("debug")
	logger.Debugf("statement")

	assert.Equal(t, 1, logs.FilterMessage("statement").Len())
	assert.Equal(t, logger.LevelDebug, logger.GetLogLevel())
}

func TestSetLogLevel_UnknownFallsBackToInfo(t *testing.T) {
	logs := observe(t)

	logger.SetLogLevel("VERBOSE")

	assert.Equal(t, logger.LevelInfo, logger.GetLogLevel())
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}

func TestDriverLogger_Print(t *testing.T) {
	logs := observe(t)

	logger.DriverLogger{}.Print("packets.go:37: ", "unexpected EOF\n")

	entries := logs.AllUntimed()
	require.Len(t, entries, 1)
	assert.Equal(t, "[mysql] packets.go:37: unexpected EOF", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
}
