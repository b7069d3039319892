package core

import (
	"context"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/muurk/sccpd/internal/config"
	"github.com/muurk/sccpd/internal/event"
	"github.com/muurk/sccpd/internal/protocol"
	"github.com/muurk/sccpd/internal/refcount"
	"github.com/muurk/sccpd/internal/sched"
)

const testConfig = `
server:
  keepalive: 60
lines:
  - name: "100"
    cid_name: Reception
    cid_num: "100"
  - name: "101"
    cid_name: Office
    cid_num: "101"
devices:
  - name: SEP000000000001
    buttons:
      - {type: line, name: "100"}
      - {type: speeddial, number: "5550000", label: Home}
      - {type: feature, name: dnd}
  - name: SEP000000000002
    buttons:
      - {type: line, name: "101"}
      - {type: line, name: "100"}
    softkeys:
      transfer: false
  - name: SEP0000000000AC
    permit: [10.0.0.0/8]
    deny: [0.0.0.0/0]
    buttons:
      - {type: line, name: "101"}
dialplan:
  default: ["555XXXX", "1XX"]
`

// fakeSender records everything sent to a phone.
type fakeSender struct {
	mu      sync.Mutex
	sent    []protocol.Message
	version uint8
	closed  []string
	remote  netip.AddrPort
	local   netip.AddrPort
}

func newFakeSender(remote string) *fakeSender {
	return &fakeSender{
		remote: netip.MustParseAddrPort(remote),
		local:  netip.MustParseAddrPort("192.168.1.1:2000"),
	}
}

func (s *fakeSender) Send(m protocol.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, m)
	return nil
}

func (s *fakeSender) SetProtocolVersion(v uint8) {
	s.mu.Lock()
	s.version = v
	s.mu.Unlock()
}

func (s *fakeSender) Close(reason string) {
	s.mu.Lock()
	s.closed = append(s.closed, reason)
	s.mu.Unlock()
}

func (s *fakeSender) RemoteAddr() netip.AddrPort { return s.remote }
func (s *fakeSender) LocalAddr() netip.AddrPort  { return s.local }

func (s *fakeSender) messages() []protocol.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.Message(nil), s.sent...)
}

func (s *fakeSender) reset() {
	s.mu.Lock()
	s.sent = nil
	s.mu.Unlock()
}

// sentOf returns the messages of type T sent to s.
func sentOf[T protocol.Message](s *fakeSender) []T {
	var out []T
	for _, m := range s.messages() {
		if v, ok := m.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

// callStates returns the CallStateMessage values sent for callRef.
func callStates(s *fakeSender, callRef uint32) []protocol.CallState {
	var out []protocol.CallState
	for _, m := range sentOf[*protocol.CallStateMsg](s) {
		if m.CallReference == callRef {
			out = append(out, m.State)
		}
	}
	return out
}

// fakeBridge records the calls Core makes into the PBX.
type fakeBridge struct {
	mu          sync.Mutex
	allocated   []ChannelInfo
	allocErr    error
	mediaOpen   []ChannelInfo
	notified    []ChannelState
	receive     []netip.AddrPort
	digits      []byte
	transfers   [][2]uint32
	transferErr error
	hangups     []uint32
}

func (b *fakeBridge) AllocateLeg(_ context.Context, ch ChannelInfo) (LegHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.allocErr != nil {
		return "", b.allocErr
	}
	b.allocated = append(b.allocated, ch)
	return LegHandle("leg/" + ch.Dialed), nil
}

func (b *fakeBridge) RequestMediaOpen(ch ChannelInfo, _ []protocol.Codec) error {
	b.mu.Lock()
	b.mediaOpen = append(b.mediaOpen, ch)
	b.mu.Unlock()
	return nil
}

func (b *fakeBridge) NotifyCallState(_ ChannelInfo, state ChannelState) {
	b.mu.Lock()
	b.notified = append(b.notified, state)
	b.mu.Unlock()
}

func (b *fakeBridge) MediaReceiveReady(_ ChannelInfo, addr netip.AddrPort) {
	b.mu.Lock()
	b.receive = append(b.receive, addr)
	b.mu.Unlock()
}

func (b *fakeBridge) SendDigit(_ ChannelInfo, digit byte) {
	b.mu.Lock()
	b.digits = append(b.digits, digit)
	b.mu.Unlock()
}

func (b *fakeBridge) Transfer(from, to ChannelInfo) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.transferErr != nil {
		return b.transferErr
	}
	b.transfers = append(b.transfers, [2]uint32{from.CallID, to.CallID})
	return nil
}

func (b *fakeBridge) Hangup(ch ChannelInfo) {
	b.mu.Lock()
	b.hangups = append(b.hangups, ch.CallID)
	b.mu.Unlock()
}

// fakeFeatures records feature requests and answers with err.
type fakeFeatures struct {
	mu       sync.Mutex
	err      error
	requests []FeatureRequest
	parked   []ChannelInfo
}

func (f *fakeFeatures) Complete(_ context.Context, req FeatureRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.err
}

func (f *fakeFeatures) Park(_ context.Context, ch ChannelInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.parked = append(f.parked, ch)
	return f.err
}

func (f *fakeFeatures) completed() []FeatureRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FeatureRequest(nil), f.requests...)
}

// harness is a Core with a controllable clock.
type harness struct {
	t        *testing.T
	core     *Core
	bridge   *fakeBridge
	features *fakeFeatures
	clock    time.Time
	sched    *sched.Scheduler
	events   []event.Event
	evMu     sync.Mutex
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg, err := config.Parse([]byte(testConfig))
	require.NoError(t, err)
	return newHarnessWithConfig(t, cfg)
}

func newHarnessWithConfig(t *testing.T, cfg *config.Config) *harness {
	t.Helper()
	h := &harness{
		t:        t,
		bridge:   &fakeBridge{},
		features: &fakeFeatures{},
		clock:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	h.sched = sched.New(sched.WithClock(func() time.Time { return h.clock }))
	bus := event.NewBus()
	bus.Subscribe(event.All, func(ev event.Event) {
		h.evMu.Lock()
		h.events = append(h.events, ev)
		h.evMu.Unlock()
	})
	c, err := New(cfg,
		WithBridge(h.bridge),
		WithFeatures(h.features),
		WithScheduler(h.sched),
		WithBus(bus),
		WithLogger(zap.NewNop()),
	)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	h.core = c
	return h
}

// advance moves the clock and runs due timers.
func (h *harness) advance(d time.Duration) {
	h.clock = h.clock.Add(d)
	h.sched.RunDue(h.clock)
}

func (h *harness) eventsOf(typ event.Type) []event.Event {
	h.evMu.Lock()
	defer h.evMu.Unlock()
	var out []event.Event
	for _, ev := range h.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

// register runs a full registration for name and returns its session.
func (h *harness) register(name string, version uint8) (*refcount.Ref[*Device], *fakeSender) {
	h.t.Helper()
	s := newFakeSender("192.168.1.50:51000")
	ref, err := h.core.Register(s, &protocol.Register{
		Station:         protocol.StationIdentifier{DeviceName: name},
		DeviceType:      protocol.DeviceType7960,
		ProtocolVersion: version,
	})
	require.NoError(h.t, err)
	d := ref.Value()
	require.NoError(h.t, d.Handle(&protocol.RegisterAvailableLines{MaxLines: 2}))
	require.Equal(h.t, DeviceRegistered, d.State())
	s.reset()
	h.t.Cleanup(func() {
		h.core.SessionClosed(ref, s)
		ref.Release()
	})
	return ref, s
}

// press sends keypad digits from d.
func press(t *testing.T, d *Device, digits string) {
	t.Helper()
	for _, c := range digits {
		var button uint32
		switch {
		case c == '0':
			button = protocol.KeypadZero
		case c == '*':
			button = protocol.KeypadStar
		case c == '#':
			button = protocol.KeypadPound
		default:
			button = uint32(c - '0')
		}
		require.NoError(t, d.Handle(&protocol.KeypadButton{Button: button}))
	}
}

// channelOf returns the single live channel of d.
func channelOf(t *testing.T, d *Device) *Channel {
	t.Helper()
	refs := d.channels()
	defer releaseAll(refs)
	require.Len(t, refs, 1)
	return refs[0].Value()
}
