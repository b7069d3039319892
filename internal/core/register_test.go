package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/sccpd/internal/config"
	"github.com/muurk/sccpd/internal/event"
	"github.com/muurk/sccpd/internal/protocol"
	"github.com/muurk/sccpd/internal/sccperr"
)

func TestNegotiateVersion(t *testing.T) {
	tests := []struct {
		name      string
		requested uint8
		serverMax uint8
		want      uint8
	}{
		{"newer phone is capped", 30, 21, 21},
		{"ancient phone is raised", 2, 21, 3},
		{"supported version kept", 15, 21, 15},
		{"server limit applies", 17, 10, 10},
		{"unset server limit", 0, 0, 3},
		{"server limit above maximum", 22, 40, 21},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NegotiateVersion(tt.requested, tt.serverMax))
		})
	}
}

func TestFeatureBytes(t *testing.T) {
	assert.Equal(t, [3]uint8{0, 0, 0}, featureBytes(3))
	assert.Equal(t, [3]uint8{0x20, 0x00, 0xFE}, featureBytes(10))
	assert.Equal(t, [3]uint8{0x20, 0xF1, 0xFF}, featureBytes(11))
	assert.Equal(t, [3]uint8{0x20, 0xF1, 0xFF}, featureBytes(21))
}

func TestRegisterHandshake(t *testing.T) {
	h := newHarness(t)
	s := newFakeSender("192.168.1.50:51000")

	ref, err := h.core.Register(s, &protocol.Register{
		Station:         protocol.StationIdentifier{DeviceName: "SEP000000000001"},
		DeviceType:      protocol.DeviceType7960,
		ProtocolVersion: 30,
	})
	require.NoError(t, err)
	t.Cleanup(func() { h.core.SessionClosed(ref, s) })
	d := ref.Value()

	sent := s.messages()
	require.Len(t, sent, 2)
	ack, ok := sent[0].(*protocol.RegisterAck)
	require.True(t, ok, "first message is %T", sent[0])
	assert.Equal(t, uint8(21), ack.ProtocolVersion)
	assert.Equal(t, uint32(60), ack.KeepAlive)
	assert.Equal(t, uint32(60), ack.SecondaryKeepAlive)
	assert.Equal(t, "D.M.Y", ack.DateTemplate)
	assert.Equal(t, [3]uint8{0x20, 0xF1, 0xFF}, ack.Features)
	assert.IsType(t, &protocol.CapabilitiesReq{}, sent[1])

	assert.Equal(t, uint8(21), s.version)
	assert.Equal(t, uint8(21), d.ProtocolVersion())
	assert.Equal(t, DeviceRegistering, d.State())
	assert.Same(t, s, d.Sender())
	assert.Len(t, h.eventsOf(event.DevicePreregistered), 1)

	attached := h.eventsOf(event.DeviceAttached)
	require.Len(t, attached, 1)
	assert.Equal(t, "100", attached[0].LineName)
	assert.Equal(t, uint32(1), attached[0].Instance)

	// The request for the last line button completes registration.
	require.NoError(t, d.Handle(&protocol.LineStatReq{LineNumber: 1}))
	stats := sentOf[*protocol.LineStat](s)
	require.Len(t, stats, 1)
	assert.Equal(t, "100", stats[0].DirNumber)
	assert.Equal(t, DeviceRegistered, d.State())

	registered := h.eventsOf(event.DeviceRegistered)
	require.Len(t, registered, 1)
	assert.Equal(t, "SEP000000000001", registered[0].DeviceName)
	assert.Equal(t, "Registered", registered[0].RegistrationState)

	// A second completion does not publish again.
	require.NoError(t, d.Handle(&protocol.RegisterAvailableLines{MaxLines: 1}))
	assert.Len(t, h.eventsOf(event.DeviceRegistered), 1)
}

func TestRegisterUnknownDevice(t *testing.T) {
	h := newHarness(t)
	s := newFakeSender("192.168.1.50:51000")

	ref, err := h.core.Register(s, &protocol.Register{
		Station:         protocol.StationIdentifier{DeviceName: "SEPFFFFFFFFFFFF"},
		ProtocolVersion: 17,
	})
	require.Error(t, err)
	assert.Nil(t, ref)
	assert.True(t, sccperr.IsRejected(err))

	rejects := sentOf[*protocol.RegisterReject](s)
	require.Len(t, rejects, 1)
	assert.Equal(t, RejectUnknownDevice, rejects[0].Text)
	assert.Empty(t, h.eventsOf(event.DevicePreregistered))
}

func TestRegisterDeviceACL(t *testing.T) {
	h := newHarness(t)

	denied := newFakeSender("192.168.1.50:51000")
	_, err := h.core.Register(denied, &protocol.Register{
		Station:         protocol.StationIdentifier{DeviceName: "SEP0000000000AC"},
		ProtocolVersion: 17,
	})
	require.Error(t, err)
	assert.True(t, sccperr.IsAclDenied(err))
	rejects := sentOf[*protocol.RegisterReject](denied)
	require.Len(t, rejects, 1)
	assert.Equal(t, RejectACL, rejects[0].Text)

	allowed := newFakeSender("10.1.2.3:51000")
	ref, err := h.core.Register(allowed, &protocol.Register{
		Station:         protocol.StationIdentifier{DeviceName: "SEP0000000000AC"},
		ProtocolVersion: 17,
	})
	require.NoError(t, err)
	t.Cleanup(func() { h.core.SessionClosed(ref, allowed) })
	assert.Equal(t, DeviceRegistering, ref.Value().State())
}

func TestRegisterReplacesStaleSession(t *testing.T) {
	h := newHarness(t)
	ref, first := h.register("SEP000000000001", 17)

	second := newFakeSender("192.168.1.51:52000")
	ref2, err := h.core.Register(second, &protocol.Register{
		Station:         protocol.StationIdentifier{DeviceName: "SEP000000000001"},
		ProtocolVersion: 17,
	})
	require.NoError(t, err)
	t.Cleanup(func() { h.core.SessionClosed(ref2, second) })

	assert.Len(t, first.closed, 1)
	assert.Same(t, second, ref.Value().Sender())
	assert.Len(t, h.eventsOf(event.DeviceUnregistered), 1)
}

func TestSessionClosedIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ref, s := h.register("SEP000000000001", 17)
	d := ref.Value()

	h.core.SessionClosed(ref, s)
	h.core.SessionClosed(ref, s)

	assert.Nil(t, d.Sender())
	assert.Equal(t, DeviceUnregistered, d.State())
	assert.Len(t, h.eventsOf(event.DeviceUnregistered), 1)
	assert.Len(t, h.eventsOf(event.DeviceDetached), 1)

	line, ok := h.core.Line("100")
	require.True(t, ok)
	defer line.Release()
	assert.Empty(t, line.Value().LineDevices())
}

func TestSessionClosedEndsCalls(t *testing.T) {
	h := newHarness(t)
	ref, s := h.register("SEP000000000001", 17)
	d := ref.Value()

	require.NoError(t, d.Handle(&protocol.OffHook{}))
	press(t, d, "5551212#")
	id := channelOf(t, d).ID()

	h.core.SessionClosed(ref, s)

	assert.Zero(t, h.core.ChannelCount())
	assert.Equal(t, []uint32{id}, h.bridge.hangups)
	assert.Contains(t, h.bridge.notified, StateDown)
}

func TestUnregister(t *testing.T) {
	h := newHarness(t)
	ref, s := h.register("SEP000000000001", 17)
	d := ref.Value()

	require.NoError(t, d.Handle(&protocol.OffHook{}))
	require.NoError(t, d.Handle(&protocol.Unregister{}))
	acks := sentOf[*protocol.UnregisterAck](s)
	require.Len(t, acks, 1)
	assert.Equal(t, protocol.UnregisterNAK, acks[0].Status)

	require.NoError(t, d.Handle(&protocol.OnHook{}))
	assert.Zero(t, h.core.ChannelCount())

	err := d.Handle(&protocol.Unregister{})
	assert.ErrorIs(t, err, ErrUnregister)
	acks = sentOf[*protocol.UnregisterAck](s)
	require.Len(t, acks, 2)
	assert.Equal(t, protocol.UnregisterOK, acks[1].Status)
}

func TestRegisterToken(t *testing.T) {
	h := newHarness(t)

	s := newFakeSender("192.168.1.50:51000")
	require.NoError(t, h.core.RegisterToken(s, &protocol.RegisterTokenReq{
		Station: protocol.StationIdentifier{DeviceName: "SEP000000000001"},
	}))
	assert.Len(t, sentOf[*protocol.RegisterTokenAck](s), 1)

	ref, ok := h.core.Device("SEP000000000001")
	require.True(t, ok)
	assert.Equal(t, DeviceTokenPending, ref.Value().State())
	ref.Release()

	unknown := newFakeSender("192.168.1.50:51001")
	err := h.core.RegisterToken(unknown, &protocol.RegisterTokenReq{
		Station: protocol.StationIdentifier{DeviceName: "SEPFFFFFFFFFFFF"},
	})
	require.Error(t, err)
	rejects := sentOf[*protocol.RegisterTokenReject](unknown)
	require.Len(t, rejects, 1)
	assert.Equal(t, uint32(TokenWaitTime), rejects[0].WaitTime)
}

func TestRegisteredPhoneRejectsSecondRegister(t *testing.T) {
	h := newHarness(t)
	ref, _ := h.register("SEP000000000001", 17)

	err := ref.Value().Handle(&protocol.Register{
		Station: protocol.StationIdentifier{DeviceName: "SEP000000000001"},
	})
	assert.True(t, sccperr.IsProtocolViolation(err))
}

func TestAnonymousHotlineDevice(t *testing.T) {
	cfg := parseConfig(t, testConfig)
	cfg.Server.AllowAnonymous = true
	cfg.Server.Hotline = &config.HotlineConfig{Line: "100", Extension: "101"}
	require.NoError(t, cfg.Validate())
	h := newHarnessWithConfig(t, cfg)

	ref, s := h.register("SEPABCDEF012345", 17)
	d := ref.Value()
	assert.True(t, d.Anonymous())

	require.NoError(t, d.Handle(&protocol.OffHook{}))
	require.Len(t, h.bridge.allocated, 1)
	assert.Equal(t, "101", h.bridge.allocated[0].Dialed)

	h.core.SessionClosed(ref, s)
	_, ok := h.core.Device("SEPABCDEF012345")
	assert.False(t, ok, "anonymous devices are dropped with their session")
}

func TestAnonymousDeviceDroppedOnReject(t *testing.T) {
	cfg := parseConfig(t, testConfig)
	cfg.Server.AllowAnonymous = true
	cfg.Server.Hotline = &config.HotlineConfig{Line: "100", Extension: "101"}
	cfg.Server.Deny = []string{"10.9.0.0/16"}
	require.NoError(t, cfg.Validate())
	h := newHarnessWithConfig(t, cfg)

	s := newFakeSender("10.9.1.1:51000")
	ref, err := h.core.Register(s, &protocol.Register{
		Station:         protocol.StationIdentifier{DeviceName: "SEPBADBADBAD001"},
		ProtocolVersion: 17,
	})
	require.Error(t, err)
	assert.Nil(t, ref)
	assert.True(t, sccperr.IsAclDenied(err))

	reject := sentOf[*protocol.RegisterReject](s)
	require.Len(t, reject, 1)
	assert.Equal(t, RejectACL, reject[0].Text)

	assert.NotContains(t, h.core.DeviceNames(), "SEPBADBADBAD001")
	_, ok := h.core.Device("SEPBADBADBAD001")
	assert.False(t, ok)
}

func TestHandleAfterUnregisterIsDropped(t *testing.T) {
	h := newHarness(t)
	ref, s := h.register("SEP000000000001", 17)
	d := ref.Value()

	h.core.SessionClosed(ref, s)
	require.Equal(t, DeviceUnregistered, d.State())
	s.reset()

	err := d.Handle(&protocol.OffHook{})
	assert.True(t, sccperr.IsRejected(err))
	assert.Empty(t, s.messages())
	assert.Empty(t, h.bridge.allocated)

	assert.True(t, sccperr.IsRejected(d.Handle(&protocol.KeepAlive{})))
	assert.Empty(t, s.messages())
}
