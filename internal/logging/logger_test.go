package logging

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"info", zapcore.InfoLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"verbose", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInitializeSilentWithoutLevel(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")
	require.NoError(t, Initialize(""))
	assert.False(t, GetLogger().Core().Enabled(zapcore.ErrorLevel))
}

func TestInitializeRejectsUnknownFormat(t *testing.T) {
	err := InitializeWithOptions(Options{Level: "info", Format: "xml"})
	assert.Error(t, err)
}

func TestLogFrameOnlyAtDebug(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := zap.New(core)

	LogFrame(l, "rx", 0x0001, "RegisterMessage", []byte{0x53, 0x45, 0x50})
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "SCCP frame", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, "0x0001", fields["message_id"])
	assert.Equal(t, "534550", fields["hex_dump"])

	infoCore, infoLogs := observer.New(zapcore.InfoLevel)
	LogFrame(zap.New(infoCore), "tx", 0x0100, "KeepAliveAckMessage", nil)
	assert.Equal(t, 0, infoLogs.Len())
}

func TestHexDumpTruncates(t *testing.T) {
	data := make([]byte, 300)
	dump := hexDump(data)
	assert.True(t, strings.HasSuffix(dump, "..."))
	assert.Len(t, dump, 512+3)
	assert.Equal(t, "", hexDump(nil))
}

func TestAsciiDump(t *testing.T) {
	assert.Equal(t, "SEP..", asciiDump([]byte{'S', 'E', 'P', 0x00, 0xff}))
}
