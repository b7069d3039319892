package core

import (
	"go.uber.org/zap"

	"github.com/muurk/sccpd/internal/protocol"
	"github.com/muurk/sccpd/internal/refcount"
	"github.com/muurk/sccpd/internal/sccperr"
)

// newCall takes d off-hook on the line at instance. An off-hook channel the
// device is already dialing on is reused; a connected call is put on hold.
// The returned reference belongs to the caller.
func (c *Core) newCall(d *Device, instance uint32, mode SimpleSwitchMode, param int) (*refcount.Ref[*Channel], error) {
	if active := d.ActiveCall(); active != 0 {
		if ref, ok := c.Channel(active); ok {
			ch := ref.Value()
			switch st := ch.State(); {
			case st.collecting() && mode == SwitchPlain:
				return ref, nil
			case st == StateConnected:
				c.hold(d, ch)
			case st.collecting():
				c.end(ch, true)
			}
			ref.Release()
		}
	}

	ld, ok := d.lineBinding(instance)
	if !ok {
		d.prompt("No line available", 0, 0)
		return nil, sccperr.Rejected("newcall", "device %s has no line", d.name)
	}
	ref, err := c.newChannel(ld.line, CallOutbound)
	if err != nil {
		d.prompt("No line available", ld.instance, 0)
		return nil, err
	}
	ch := ref.Value()

	lcfg := ld.lineRef.Value().Config()
	ch.mu.Lock()
	ch.device = d.name
	ch.instance = ld.instance
	ch.mode = mode
	ch.modeParam = param
	ch.calling = Party{Name: lcfg.CIDName, Number: lcfg.CIDNum}
	ch.mu.Unlock()
	d.setActive(ch.id)

	d.log.Debug("New call", zap.Uint32("call_id", ch.id), zap.String("line", ld.line), zap.Stringer("mode", mode))
	c.transition(ch, StateOffHook)
	if mode != SwitchPlain {
		c.transition(ch, StateGetDigits)
	}

	d.mu.Lock()
	hotline := d.hotline
	d.mu.Unlock()

	ch.mu.Lock()
	c.armDigitTimerLocked(ch, true)
	if hotline != "" && mode == SwitchPlain {
		ch.digits = []byte(hotline)
	}
	ch.mu.Unlock()
	if hotline != "" && mode == SwitchPlain {
		c.dialComplete(ch)
	}
	return ref, nil
}

// dialNumber starts a call and dials number at once.
func (c *Core) dialNumber(d *Device, instance uint32, number string) {
	if number == "" {
		d.prompt("No number", instance, 0)
		return
	}
	ref, err := c.newCall(d, instance, SwitchPlain, 0)
	if err != nil {
		return
	}
	defer ref.Release()
	ch := ref.Value()
	ch.mu.Lock()
	ch.digits = []byte(number)
	ch.mu.Unlock()
	c.dialComplete(ch)
}

// redial dials the last number again.
func (c *Core) redial(d *Device, instance uint32) {
	number := d.LastNumber()
	if number == "" {
		d.prompt("No number to redial", instance, 0)
		return
	}
	c.dialNumber(d, instance, number)
}

// answer connects d to a call ringing on it. Other devices the call was
// offered to stop ringing.
func (c *Core) answer(d *Device, ch *Channel) {
	ld, ok := d.bindingFor(ch.line)
	if !ok {
		return
	}
	ch.mu.Lock()
	if !ch.state.Ringing() || !contains(ch.ringing, d.name) {
		ch.mu.Unlock()
		return
	}
	var others []string
	for _, name := range ch.ringing {
		if name != d.name {
			others = append(others, name)
		}
	}
	ch.ringing = nil
	ch.device = d.name
	ch.instance = ld.instance
	info := ch.infoLocked()
	ch.mu.Unlock()

	for _, name := range others {
		if ref, ok := c.devices.Get(name); ok {
			c.indicateDown(ref.Value(), ch, info, info.State)
			ref.Release()
		}
	}

	c.holdOthers(d, ch.id)
	d.setActive(ch.id)
	if !c.transition(ch, StateConnected) {
		return
	}
	info = ch.Info()
	c.bridge.NotifyCallState(info, StateConnected)
	if err := c.bridge.RequestMediaOpen(info, d.Capabilities()); err != nil {
		d.log.Warn("Media request failed", zap.Uint32("call_id", ch.id), zap.Error(err))
	}
}

// decline stops a call ringing on d. When d was the last device it was
// offered to, the call is hung up.
func (c *Core) decline(d *Device, ch *Channel) {
	ch.mu.Lock()
	if !ch.state.Ringing() {
		ch.mu.Unlock()
		return
	}
	var rest []string
	for _, name := range ch.ringing {
		if name != d.name {
			rest = append(rest, name)
		}
	}
	ch.ringing = rest
	if ch.device == d.name && len(rest) > 0 {
		ch.device = rest[0]
		ch.instance = 0
	}
	info := ch.infoLocked()
	ch.mu.Unlock()

	if len(rest) == 0 {
		c.end(ch, true)
		return
	}
	c.indicateDown(d, ch, info, info.State)
}

// holdOthers puts every connected call of d except id on hold.
func (c *Core) holdOthers(d *Device, id uint32) {
	refs := d.channels()
	defer releaseAll(refs)
	for _, r := range refs {
		ch := r.Value()
		if ch.id != id && ch.Device() == d.name && ch.State() == StateConnected {
			c.hold(d, ch)
		}
	}
}

func (c *Core) hold(d *Device, ch *Channel) {
	if !c.transition(ch, StateHold) {
		return
	}
	c.closeMedia(ch)
	d.clearActive(ch.id)
	c.bridge.NotifyCallState(ch.Info(), StateHold)
}

func (c *Core) resume(d *Device, ch *Channel) {
	if ch.State() != StateHold {
		return
	}
	c.holdOthers(d, ch.id)
	if !c.transition(ch, StateConnected) {
		return
	}
	d.setActive(ch.id)
	info := ch.Info()
	c.bridge.NotifyCallState(info, StateConnected)
	if err := c.bridge.RequestMediaOpen(info, d.Capabilities()); err != nil {
		d.log.Warn("Media request failed", zap.Uint32("call_id", ch.id), zap.Error(err))
	}
}

// transfer runs the two-step transfer. The first press parks ch in
// CallTransfer and starts the consultation call; the second press joins
// the two far ends.
func (c *Core) transfer(d *Device, ch *Channel) {
	d.mu.Lock()
	from := d.transferFrom
	d.mu.Unlock()

	if from == 0 || from == ch.id {
		st := ch.State()
		if st != StateConnected && st != StateHold {
			d.prompt("Transfer not possible", 0, ch.id)
			return
		}
		if st == StateConnected {
			c.closeMedia(ch)
		}
		if !c.transition(ch, StateCallTransfer) {
			return
		}
		d.mu.Lock()
		d.transferFrom = ch.id
		d.mu.Unlock()
		d.clearActive(ch.id)

		ref, err := c.newCall(d, ch.Info().Instance, SwitchPlain, 0)
		if err != nil {
			c.transition(ch, StateHold)
			d.mu.Lock()
			d.transferFrom = 0
			d.mu.Unlock()
			return
		}
		ref.Release()
		return
	}

	fromRef, ok := c.Channel(from)
	if !ok {
		d.mu.Lock()
		d.transferFrom = 0
		d.mu.Unlock()
		return
	}
	defer fromRef.Release()
	a := fromRef.Value()

	if err := c.bridge.Transfer(a.Info(), ch.Info()); err != nil {
		d.log.Info("Transfer failed", zap.Uint32("from", a.id), zap.Uint32("to", ch.id), zap.Error(err))
		d.prompt("Transfer failed", 0, ch.id)
		return
	}
	d.mu.Lock()
	d.transferFrom = 0
	d.mu.Unlock()
	c.end(a, false)
	c.end(ch, false)
	d.notify("Transferred")
}

// park hands ch to the park feature. A parked channel leaves the phone
// without tearing down the PBX leg.
func (c *Core) park(d *Device, ch *Channel) {
	st := ch.State()
	if st != StateConnected && st != StateHold {
		return
	}
	if err := c.features.Park(c.ctx, ch.Info()); err != nil {
		d.log.Info("Park failed", zap.Uint32("call_id", ch.id), zap.Error(err))
		d.prompt("Key Is Not Active", 0, ch.id)
		return
	}
	c.closeMedia(ch)
	c.transition(ch, StateCallPark)
	c.end(ch, false)
}

// onHook hangs up the active call of d unless it is on hold.
func (c *Core) onHook(d *Device, callRef uint32) {
	id := callRef
	if id == 0 {
		id = d.ActiveCall()
	}
	ref, ok := c.Channel(id)
	if !ok {
		d.send(&protocol.SetSpeakerMode{Mode: protocol.SpeakerOff}, d.selectKeys(0, 0, protocol.KeySetOnHook))
		return
	}
	defer ref.Release()
	ch := ref.Value()
	switch {
	case ch.State().Ringing():
		c.decline(d, ch)
	case ch.Device() != d.name:
	case ch.State() == StateHold:
	default:
		c.end(ch, true)
	}
}

// endCall is the EndCall softkey: like on-hook but also ends held calls.
func (c *Core) endCall(d *Device, ch *Channel) {
	switch {
	case ch.State().Ringing():
		c.decline(d, ch)
	case ch.Device() == d.name:
		c.end(ch, true)
	}
}

// ringingOn returns a call being offered to d, preferring callRef.
func (c *Core) ringingOn(d *Device, callRef uint32) (*refcount.Ref[*Channel], bool) {
	refs := d.channels()
	var found *refcount.Ref[*Channel]
	for _, r := range refs {
		ch := r.Value()
		if !ch.State().Ringing() || !contains(ch.offeredTo(), d.name) {
			continue
		}
		if found == nil || ch.id == callRef {
			found = r
		}
	}
	for _, r := range refs {
		if r != found {
			r.Release()
		}
	}
	return found, found != nil
}
