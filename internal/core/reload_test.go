package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/sccpd/internal/config"
	"github.com/muurk/sccpd/internal/event"
	"github.com/muurk/sccpd/internal/protocol"
)

const reloadedConfig = `
server:
  keepalive: 60
lines:
  - name: "100"
    cid_name: Front Desk
    cid_num: "100"
  - name: "102"
    cid_name: Lab
devices:
  - name: SEP000000000001
    buttons:
      - {type: line, name: "100"}
      - {type: speeddial, number: "5550000", label: Home}
      - {type: feature, name: dnd}
dialplan:
  default: ["7XX"]
`

func parseConfig(t *testing.T, data string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(data))
	require.NoError(t, err)
	return cfg
}

func TestReloadAddsChangesAndRemoves(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.core.Reload(parseConfig(t, reloadedConfig)))

	created := h.eventsOf(event.LineCreated)
	require.Len(t, created, 3)
	assert.Equal(t, "102", created[2].LineName)

	changed := h.eventsOf(event.LineChanged)
	require.Len(t, changed, 1)
	assert.Equal(t, "100", changed[0].LineName)

	line, ok := h.core.Line("100")
	require.True(t, ok)
	assert.Equal(t, "Front Desk", line.Value().Config().CIDName)
	line.Release()

	// Removed entries linger until reaped.
	old, ok := h.core.Line("101")
	require.True(t, ok)
	assert.True(t, old.PendingDelete())
	old.Release()

	devices, lines := h.core.Reap()
	assert.Equal(t, []string{"SEP000000000002", "SEP0000000000AC"}, devices)
	assert.Equal(t, []string{"101"}, lines)
	assert.Len(t, h.eventsOf(event.LineDeleted), 1)

	_, ok = h.core.Line("101")
	assert.False(t, ok)
	assert.Equal(t, []string{"SEP000000000001"}, h.core.DeviceNames())

	// The dial plan follows the reload.
	assert.Equal(t, ExactMatch, h.core.dialPlan.Resolve("default", "700"))
	assert.Equal(t, NoMatch, h.core.dialPlan.Resolve("default", "5551212"))
}

func TestReloadRejectsInvalidConfig(t *testing.T) {
	h := newHarness(t)
	before := h.core.Config()

	bad := parseConfig(t, reloadedConfig)
	bad.Server.KeepAlive = 5
	require.Error(t, h.core.Reload(bad))
	assert.Same(t, before, h.core.Config())
}

func TestReloadWaitsForBusyLine(t *testing.T) {
	h := newHarness(t)
	ref, _ := h.register("SEP000000000001", 17)
	d := ref.Value()

	require.NoError(t, d.Handle(&protocol.OffHook{}))
	ch := channelOf(t, d)

	require.NoError(t, h.core.Reload(parseConfig(t, reloadedConfig)))
	assert.Empty(t, h.eventsOf(event.LineChanged))

	line, ok := h.core.Line("100")
	require.True(t, ok)
	defer line.Release()
	assert.Equal(t, "Reception", line.Value().Config().CIDName)
	assert.True(t, line.PendingUpdate())

	require.NoError(t, d.Handle(&protocol.OnHook{CallReference: ch.ID()}))
	assert.Equal(t, "Front Desk", line.Value().Config().CIDName)
	assert.False(t, line.PendingUpdate())
	assert.Len(t, h.eventsOf(event.LineChanged), 1)
}

func TestReloadResetsChangedDevice(t *testing.T) {
	h := newHarness(t)
	_, s := h.register("SEP000000000002", 17)

	cfg := parseConfig(t, testConfig)
	dev := cfg.Device("SEP000000000002")
	dev.Buttons = dev.Buttons[:1]
	require.NoError(t, h.core.Reload(cfg))

	resets := sentOf[*protocol.Reset](s)
	require.Len(t, resets, 1)
	assert.Equal(t, protocol.ResetRestart, resets[0].Type)

	ref, ok := h.core.Device("SEP000000000002")
	require.True(t, ok)
	defer ref.Release()
	assert.Len(t, ref.Value().Buttons(), 1)
	assert.False(t, ref.PendingUpdate())
}

func TestReloadDefersDeviceChangeUntilOnHook(t *testing.T) {
	h := newHarness(t)
	ref, s := h.register("SEP000000000002", 17)
	d := ref.Value()

	require.NoError(t, d.Handle(&protocol.OffHook{LineInstance: 1}))
	ch := channelOf(t, d)
	press(t, d, "5551212")
	h.advance(8 * time.Second)
	require.NoError(t, h.core.Indicate(ch.ID(), StateRingOut))
	require.NoError(t, h.core.Indicate(ch.ID(), StateConnected))
	s.reset()

	cfg := parseConfig(t, testConfig)
	dev := cfg.Device("SEP000000000002")
	dev.Buttons = dev.Buttons[:1]
	require.NoError(t, h.core.Reload(cfg))

	// The live call keeps the old layout and the phone is not reset.
	assert.True(t, ref.PendingUpdate())
	assert.Len(t, d.Buttons(), 2)
	assert.Empty(t, sentOf[*protocol.Reset](s))
	assert.Equal(t, StateConnected, ch.State())

	require.NoError(t, d.Handle(&protocol.OnHook{CallReference: ch.ID()}))
	assert.False(t, ref.PendingUpdate())
	assert.Len(t, d.Buttons(), 1)
	resets := sentOf[*protocol.Reset](s)
	require.Len(t, resets, 1)
	assert.Equal(t, protocol.ResetRestart, resets[0].Type)
}

func TestReapTimerCollectsRemovedDevices(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.core.Reload(parseConfig(t, reloadedConfig)))
	require.Len(t, h.core.DeviceNames(), 3)

	h.advance(ReapInterval)
	assert.Equal(t, []string{"SEP000000000001"}, h.core.DeviceNames())
	assert.NotContains(t, h.core.LineNames(), "101")
}

func TestReapKeepsRegisteredDevice(t *testing.T) {
	h := newHarness(t)
	ref, s := h.register("SEP000000000002", 17)

	require.NoError(t, h.core.Reload(parseConfig(t, reloadedConfig)))
	// The phone is told to restart; it stays until its session ends.
	assert.Len(t, sentOf[*protocol.Reset](s), 1)

	devices, _ := h.core.Reap()
	assert.NotContains(t, devices, "SEP000000000002")

	h.core.SessionClosed(ref, s)
}
