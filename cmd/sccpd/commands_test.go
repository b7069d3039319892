package main

import (
	"bytes"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/sccpd/internal/config"
	"github.com/muurk/sccpd/internal/discovery"
	"github.com/muurk/sccpd/internal/protocol"
)

func init() {
	// Plain output regardless of what the test runner's stdout is.
	lipgloss.SetColorProfile(termenv.Ascii)
}

func TestDecodeFrames(t *testing.T) {
	a, err := protocol.Encode(&protocol.KeepAlive{})
	require.NoError(t, err)
	b, err := protocol.AppendFrame(nil, 17, &protocol.RegisterAvailableLines{MaxLines: 2})
	require.NoError(t, err)

	h := hex.EncodeToString(append(a, b...))
	input := h[:10] + " " + h[10:30] + "\n" + h[30:]

	frames, rest, err := decodeFrames(input)
	require.NoError(t, err)
	assert.Zero(t, rest)
	require.Len(t, frames, 2)
	assert.IsType(t, &protocol.KeepAlive{}, frames[0].Message)
	lines, ok := frames[1].Message.(*protocol.RegisterAvailableLines)
	require.True(t, ok)
	assert.Equal(t, uint32(2), lines.MaxLines)
	assert.Equal(t, uint32(17), frames[1].Reserved)
}

func TestDecodeFramesTrailingBytes(t *testing.T) {
	frames, rest, err := decodeFrames("08000000 00000000 2d000000 01000000 0800")
	require.NoError(t, err)
	assert.Len(t, frames, 1)
	assert.Equal(t, 2, rest)
}

func TestDecodeFramesErrors(t *testing.T) {
	_, _, err := decodeFrames("zz")
	assert.Error(t, err)

	// Declared length below the four byte id.
	_, _, err = decodeFrames("02000000 00000000 00000000")
	assert.Error(t, err)
}

func TestDecodeCommand(t *testing.T) {
	var out bytes.Buffer
	decodeCmd.SetOut(&out)
	decodeCmd.SetIn(strings.NewReader("0x08000000:00000000:2d000000:01000000\n"))
	t.Cleanup(func() {
		decodeCmd.SetOut(nil)
		decodeCmd.SetIn(nil)
	})

	require.NoError(t, runDecode(decodeCmd, nil))
	assert.Contains(t, out.String(), "0x002D")
	assert.Contains(t, out.String(), "RegisterAvailableLinesMessage")
}

func TestDecodeReadsPipedStdin(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	_, err = w.WriteString("08000000 00000000 2d000000 01000000")
	require.NoError(t, err)
	require.NoError(t, w.Close())
	t.Cleanup(func() { _ = r.Close() })

	assert.False(t, isTerminal(r))
	assert.False(t, isTerminal(strings.NewReader("")))

	var out bytes.Buffer
	decodeCmd.SetOut(&out)
	decodeCmd.SetIn(r)
	t.Cleanup(func() {
		decodeCmd.SetOut(nil)
		decodeCmd.SetIn(nil)
	})

	require.NoError(t, runDecode(decodeCmd, nil))
	assert.Contains(t, out.String(), "RegisterAvailableLinesMessage")
	assert.NotContains(t, out.String(), "Usage:")
}

func TestPrintServers(t *testing.T) {
	var out bytes.Buffer
	printServers(&out, nil, MinTerminalWidth)
	assert.Contains(t, out.String(), "No servers found.")

	out.Reset()
	printServers(&out, []*discovery.Instance{{
		Name: "sccpd on pbx1",
		IP:   "192.168.1.5",
		Port: 2000,
		Metadata: map[string]string{
			discovery.TXTVersion:  "1.2.0",
			discovery.TXTProtocol: "21",
			discovery.TXTDevices:  "3",
		},
	}}, MinTerminalWidth)

	got := out.String()
	assert.Contains(t, got, "Found 1 server(s):")
	assert.Contains(t, got, "1. sccpd on pbx1")
	assert.Contains(t, got, "Address:    192.168.1.5:2000")
	assert.Contains(t, got, "Version:    1.2.0")
	assert.Contains(t, got, "Protocol:   21")
	assert.Contains(t, got, "Phones:     3")
	assert.Contains(t, got, strings.Repeat("─", MinTerminalWidth))
}

func TestCheckConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sccpd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 2000
lines:
  - name: "100"
devices:
  - name: SEP000000000001
    buttons:
      - {type: line, name: "100"}
dialplan:
  default: ["1XX"]
`), 0o600))

	configPath = path
	t.Cleanup(func() { configPath = "" })

	var out bytes.Buffer
	checkConfigCmd.SetOut(&out)
	t.Cleanup(func() { checkConfigCmd.SetOut(nil) })

	require.NoError(t, runCheckConfig(checkConfigCmd, nil))
	assert.Contains(t, out.String(), "OK")
	assert.Contains(t, out.String(), "Devices:    1")
	assert.Contains(t, out.String(), "Dial plan:  default")
}

func TestCheckConfigFix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sccpd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("lines:\n  - name: \"100\"\n"), 0o600))

	configPath = path
	fixConfig = true
	t.Cleanup(func() {
		configPath = ""
		fixConfig = false
	})

	var out bytes.Buffer
	checkConfigCmd.SetOut(&out)
	t.Cleanup(func() { checkConfigCmd.SetOut(nil) })

	require.NoError(t, runCheckConfig(checkConfigCmd, nil))
	assert.Contains(t, out.String(), "Rewrote")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "keepalive: 60")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultPort, cfg.Server.Port)
	require.Len(t, cfg.Lines, 1)
}
