package logging

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	cfgpkg "github.com/taoyao-code/ev3-gateway/internal/config"
	"github.com/taoyao-code/ev3-gateway/internal/protocol/ev3"
)

func TestInitLogger(t *testing.T) {
	cfg := cfgpkg.LoggingConfig{
		Level:  "debug",
		Format: "console",
		File:   cfgpkg.LumberjackConfig{Filename: filepath.Join(t.TempDir(), "ev3.log"), MaxSizeMB: 1},
	}
	logger, err := InitLogger(cfg)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
	logger.Info("hello")
	_ = logger.Sync()
}

func TestErrorSink_Levels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sink := NewErrorSink(zap.New(core))

	sink.ReportError("Motors", "SetPower", ev3.CodeIllegalMotorPort, "AE")
	sink.ReportError("Sensor", "Read", ev3.CodeInvalidReply)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "SetPower", entries[0].ContextMap()["operation"])
	assert.Equal(t, int64(ev3.CodeIllegalMotorPort), entries[0].ContextMap()["code"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
}

func TestErrorSink_LinkSuspectAtDebug(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sink := NewErrorSink(zap.New(core))

	sink.ReportError("Sensor", "ReadSI", ev3.CodeLinkSuspect, "2")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
}

func TestErrorSink_SamplesRepeatedFailures(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sink := NewErrorSink(zap.New(core))

	for i := 0; i < 50; i++ {
		sink.ReportError("Sensor", "ReadPercentage", ev3.CodeInvalidReply, "1")
	}

	n := logs.FilterMessage("ev3 request failed").Len()
	assert.GreaterOrEqual(t, n, sampleFirst)
	assert.Less(t, n, 50)
}
