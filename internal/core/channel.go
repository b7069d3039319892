package core

import (
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/sccpd/internal/event"
	"github.com/muurk/sccpd/internal/refcount"
	"github.com/muurk/sccpd/internal/sccperr"
	"github.com/muurk/sccpd/internal/sched"
)

// Party is one end of a call as shown on the phone display.
type Party struct {
	Name   string
	Number string
}

// Channel is one call leg. It belongs to one line for its whole life; the
// controlling device may change (answer on a shared line, pickup).
type Channel struct {
	core     *Core
	id       uint32
	line     string
	lineRef  *refcount.Ref[*Line]
	context  string
	callType CallType

	mu           sync.Mutex
	device       string
	instance     uint32
	ringing      []string // devices presenting an inbound call
	state        ChannelState
	prev         ChannelState
	mode         SimpleSwitchMode
	modeParam    int
	digits       []byte
	partialRetry bool
	digitTimer   *sched.Timer
	digitGen     uint64
	leg          LegHandle
	calling      Party
	called       Party
	passThru     uint32
	receiveOpen  bool
	transmitting bool
	rejected     int
}

// ID returns the call id, also used as the wire call reference.
func (ch *Channel) ID() uint32 { return ch.id }

// Line returns the owning line name.
func (ch *Channel) Line() string { return ch.line }

// Type returns the call direction.
func (ch *Channel) Type() CallType { return ch.callType }

// State returns the current state.
func (ch *Channel) State() ChannelState {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.state
}

// PreviousState returns the state before the last transition.
func (ch *Channel) PreviousState() ChannelState {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.prev
}

// Device returns the controlling device name.
func (ch *Channel) Device() string {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.device
}

// Dialed returns the digits collected so far.
func (ch *Channel) Dialed() string {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return string(ch.digits)
}

// Mode returns the digit collection mode and its parameter.
func (ch *Channel) Mode() (SimpleSwitchMode, int) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.mode, ch.modeParam
}

// Rejected returns how many transitions were refused.
func (ch *Channel) Rejected() int {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.rejected
}

// Info returns a snapshot for collaborators.
func (ch *Channel) Info() ChannelInfo {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.infoLocked()
}

func (ch *Channel) infoLocked() ChannelInfo {
	return ChannelInfo{
		CallID:        ch.id,
		Line:          ch.line,
		Device:        ch.device,
		Instance:      ch.instance,
		Type:          ch.callType,
		State:         ch.state,
		Context:       ch.context,
		Dialed:        string(ch.digits),
		Leg:           ch.leg,
		CallingName:   ch.calling.Name,
		CallingNumber: ch.calling.Number,
		CalledName:    ch.called.Name,
		CalledNumber:  ch.called.Number,
	}
}

// involves reports whether name controls the channel or is being offered it.
func (ch *Channel) involves(name string) bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.device == name {
		return true
	}
	for _, r := range ch.ringing {
		if r == name {
			return true
		}
	}
	return false
}

// offeredTo returns the devices an inbound call is presented to.
func (ch *Channel) offeredTo() []string {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return append([]string(nil), ch.ringing...)
}

// SetState moves the channel to s if the transition table allows it. A
// refused transition leaves the state unchanged and is counted.
func (ch *Channel) SetState(s ChannelState) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.setStateLocked(s)
}

func (ch *Channel) setStateLocked(s ChannelState) error {
	if !canTransition(ch.state, s) {
		ch.rejected++
		return rejectTransition(ch.state, s)
	}
	ch.core.metrics.ChannelState(ch.state.String(), s.String())
	ch.prev, ch.state = ch.state, s
	return nil
}

// cancelTimerLocked stops the digit timer. A timer that already fired but
// has not taken ch.mu yet sees the bumped generation and does nothing.
func (ch *Channel) cancelTimerLocked() {
	ch.digitGen++
	if ch.digitTimer != nil {
		ch.digitTimer.Cancel()
		ch.digitTimer = nil
	}
}

// newChannel allocates a channel on line, initially Down. The returned
// reference belongs to the caller; the store keeps its own until the
// channel is ended.
func (c *Core) newChannel(line string, typ CallType) (*refcount.Ref[*Channel], error) {
	lineRef, ok := c.lines.Get(line)
	if !ok {
		return nil, sccperr.Exhausted("channel", "line %q not available", line)
	}
	if lineRef.PendingDelete() {
		lineRef.Release()
		return nil, sccperr.Exhausted("channel", "line %q is being removed", line)
	}
	l := lineRef.Value()
	lcfg := l.Config()

	id := c.callIDs.Inc()
	ch := &Channel{
		core:     c,
		id:       id,
		line:     line,
		lineRef:  lineRef,
		context:  c.Config().LineContext(&lcfg),
		callType: typ,
	}
	ref, err := c.channels.Insert(channelKey(id), ch, func(ch *Channel) {
		c.metrics.ChannelState(StateDown.String(), "")
		ch.lineRef.Release()
	})
	if err != nil {
		lineRef.Release()
		return nil, sccperr.Exhausted("channel", "call id %d in use", id)
	}
	c.metrics.ChannelState("", StateDown.String())
	l.addChannel(id)
	return ref, nil
}

// transition applies s to ch, sends the matching indications and notifies
// the bridge. It reports whether the state changed.
func (c *Core) transition(ch *Channel, s ChannelState) bool {
	ch.mu.Lock()
	if err := ch.setStateLocked(s); err != nil {
		ch.mu.Unlock()
		c.log.Debug("Channel transition rejected", zap.Uint32("call_id", ch.id), zap.Error(err))
		return false
	}
	info := ch.infoLocked()
	prev := ch.prev
	ch.mu.Unlock()

	c.indicate(ch, info, prev)
	c.publish(event.Event{
		Type:       event.LineStatusChanged,
		DeviceName: info.Device,
		LineName:   info.Line,
		Instance:   info.Instance,
		LineStatus: s.String(),
	})
	return true
}

// end hangs ch up. When notify is set the bridge is told to drop its leg.
// Ending a channel twice is a no-op.
func (c *Core) end(ch *Channel, notify bool) {
	ch.mu.Lock()
	if ch.state == StateDown {
		ch.mu.Unlock()
		return
	}
	ch.cancelTimerLocked()
	_ = ch.setStateLocked(StateDown)
	info := ch.infoLocked()
	prev := ch.prev
	targets := append([]string(nil), ch.ringing...)
	ch.ringing = nil
	media := ch.receiveOpen || ch.transmitting
	ch.mu.Unlock()

	if info.Device != "" && !contains(targets, info.Device) {
		targets = append(targets, info.Device)
	}
	if media {
		c.closeMedia(ch)
	}
	for _, name := range targets {
		if ref, ok := c.devices.Get(name); ok {
			c.indicateDown(ref.Value(), ch, info, prev)
			ref.Release()
		}
	}
	if notify && info.Leg != "" {
		c.bridge.Hangup(info)
	}
	if notify {
		c.bridge.NotifyCallState(info, StateDown)
	}

	if ch.lineRef.Value().removeChannel(ch.id) {
		c.lines.ClearPendingUpdate(ch.line)
		c.publish(event.Event{Type: event.LineChanged, LineName: ch.line})
	}
	c.channels.Remove(channelKey(ch.id))

	c.publish(event.Event{
		Type:       event.LineStatusChanged,
		DeviceName: info.Device,
		LineName:   info.Line,
		Instance:   info.Instance,
		LineStatus: StateDown.String(),
	})

	for _, name := range targets {
		if ref, ok := c.devices.Get(name); ok {
			c.channelEnded(ref.Value(), ch.id)
			ref.Release()
		}
	}
}

// channelEnded updates device bookkeeping after a channel went Down.
func (c *Core) channelEnded(d *Device, id uint32) {
	d.mu.Lock()
	if d.active == id {
		d.active = 0
	}
	restore := uint32(0)
	switch d.transferFrom {
	case 0:
	case id:
		d.transferFrom = 0
	default:
		restore = d.transferFrom
		d.transferFrom = 0
	}
	d.mu.Unlock()

	// The consultation call ended: the transferred call goes back on hold.
	if restore != 0 {
		if ref, ok := c.Channel(restore); ok {
			if ref.Value().State() == StateCallTransfer {
				c.transition(ref.Value(), StateHold)
			}
			ref.Release()
		}
	}

	if !d.hasChannels() {
		c.applyPendingDevice(d)
	}
}

// Hangup ends the channel from the PBX side.
func (c *Core) Hangup(callID uint32) error {
	ref, ok := c.Channel(callID)
	if !ok {
		return sccperr.Rejected("hangup", "unknown call id %d", callID)
	}
	defer ref.Release()
	c.end(ref.Value(), false)
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
