package core

import (
	"go.uber.org/zap"

	"github.com/muurk/sccpd/internal/event"
	"github.com/muurk/sccpd/internal/protocol"
)

// MaxDigits is the longest number collected before dialing starts.
const MaxDigits = 24

// armDigitTimerLocked (re)starts the digit timeout. The caller holds ch.mu.
func (c *Core) armDigitTimerLocked(ch *Channel, first bool) {
	ch.cancelTimerLocked()
	srv := c.Config().Server
	timeout := srv.DigitTimeout
	if first {
		timeout = srv.FirstDigitTimeout
	}
	id, gen := ch.id, ch.digitGen
	ch.digitTimer = c.sched.After(timeout, func() { c.digitTimeout(id, gen) })
}

// digitTimeout runs when the digit timer armed at generation gen fires.
func (c *Core) digitTimeout(id uint32, gen uint64) {
	ref, ok := c.Channel(id)
	if !ok {
		return
	}
	defer ref.Release()
	ch := ref.Value()
	ch.mu.Lock()
	if ch.digitGen != gen {
		ch.mu.Unlock()
		return
	}
	ch.digitTimer = nil
	ch.mu.Unlock()
	c.dialComplete(ch)
}

// digit handles one keypad press on ch from d.
func (c *Core) digit(d *Device, ch *Channel, key byte) {
	ch.mu.Lock()
	state := ch.state
	switch {
	case state == StateConnected || state == StateRingOut || state == StateProceed:
		info := ch.infoLocked()
		ch.mu.Unlock()
		c.bridge.SendDigit(info, key)
		return
	case !state.collecting():
		ch.mu.Unlock()
		return
	}

	terminator := c.Config().Server.DigitTimeoutChar
	if terminator != "" && key == terminator[0] && len(ch.digits) > 0 {
		ch.mu.Unlock()
		c.dialComplete(ch)
		return
	}
	first := len(ch.digits) == 0
	ch.digits = append(ch.digits, key)
	ch.partialRetry = false
	full := len(ch.digits) >= MaxDigits
	if !full {
		c.armDigitTimerLocked(ch, false)
	}
	instance, callRef := ch.instance, ch.id
	ch.mu.Unlock()

	if first {
		d.send(
			&protocol.StopTone{LineInstance: instance, CallReference: callRef},
			d.selectKeys(instance, callRef, protocol.KeySetDigitsFoll),
		)
	}
	if full {
		c.dialComplete(ch)
	}
}

// backspace drops the last collected digit.
func (c *Core) backspace(d *Device, ch *Channel) {
	ch.mu.Lock()
	if !ch.state.collecting() || len(ch.digits) == 0 {
		ch.mu.Unlock()
		return
	}
	ch.digits = ch.digits[:len(ch.digits)-1]
	c.armDigitTimerLocked(ch, len(ch.digits) == 0)
	instance, callRef := ch.instance, ch.id
	ch.mu.Unlock()
	d.send(&protocol.BackSpaceReq{LineInstance: instance, CallReference: callRef})
}

// dialComplete ends digit collection on ch: the number is dialed, stored as
// a call forward target or handed to the feature handler depending on the
// channel's mode.
func (c *Core) dialComplete(ch *Channel) {
	ch.mu.Lock()
	if !ch.state.collecting() {
		ch.mu.Unlock()
		return
	}
	ch.cancelTimerLocked()
	mode, param := ch.mode, ch.modeParam
	number := string(ch.digits)
	state := ch.state
	devName := ch.device
	ch.mu.Unlock()

	ref, ok := c.devices.Get(devName)
	if !ok {
		c.end(ch, true)
		return
	}
	defer ref.Release()
	d := ref.Value()

	switch {
	case mode.forward():
		c.completeForward(d, ch, mode, number)
		return
	case mode != SwitchPlain:
		c.completeFeature(d, ch, mode, param, number)
		return
	}

	if state != StateDialing && !c.transition(ch, StateDialing) {
		return
	}
	if number == "" {
		c.transition(ch, StateInvalidNumber)
		return
	}

	res := c.dialPlan.Resolve(ch.context, number)
	c.log.Debug("Dial plan lookup",
		zap.Uint32("call_id", ch.id),
		zap.String("context", ch.context),
		zap.String("number", number),
		zap.Stringer("result", res),
	)
	switch res {
	case ExactMatch:
		c.proceed(d, ch, number)
	case PartialMatch:
		ch.mu.Lock()
		retry := !ch.partialRetry
		if retry {
			ch.partialRetry = true
			c.armDigitTimerLocked(ch, false)
		}
		ch.mu.Unlock()
		if !retry {
			c.transition(ch, StateInvalidNumber)
		}
	default:
		c.transition(ch, StateInvalidNumber)
	}
}

// proceed hands an outbound call with a complete number to the bridge.
func (c *Core) proceed(d *Device, ch *Channel, number string) {
	ch.mu.Lock()
	ch.called = Party{Number: number}
	ch.mu.Unlock()

	d.mu.Lock()
	d.lastNumber = number
	d.mu.Unlock()

	if !c.transition(ch, StateProceed) {
		return
	}
	leg, err := c.bridge.AllocateLeg(c.ctx, ch.Info())
	if err != nil {
		c.log.Warn("Leg allocation failed", zap.Uint32("call_id", ch.id), zap.Error(err))
		c.transition(ch, StateCongestion)
		return
	}
	ch.mu.Lock()
	ch.leg = leg
	info := ch.infoLocked()
	ch.mu.Unlock()
	c.bridge.NotifyCallState(info, StateProceed)
}

// completeForward stores number as the call forward target of the line the
// channel was started on. An empty number clears it.
func (c *Core) completeForward(d *Device, ch *Channel, mode SimpleSwitchMode, number string) {
	if ld, ok := d.bindingFor(ch.line); ok {
		c.setForward(d, ld, mode, number)
	}
	c.end(ch, false)
}

// setForward updates one call forward target and tells the phone.
func (c *Core) setForward(d *Device, ld *LineDevice, mode SimpleSwitchMode, target string) {
	ld.setForward(mode, target)
	d.send(forwardStat(ld))

	status := uint32(0)
	text := "Call forward cleared"
	if target != "" {
		status = 1
		text = "Forwarded to " + target
	}
	d.notify(text)
	c.publish(event.Event{
		Type:          event.FeatureChanged,
		DeviceName:    d.name,
		LineName:      ld.line,
		Instance:      ld.instance,
		Feature:       mode.String(),
		FeatureStatus: status,
		FeatureOption: target,
	})
}

func forwardStat(ld *LineDevice) *protocol.ForwardStat {
	all, busy, noAnswer := ld.forwardStat()
	m := &protocol.ForwardStat{
		LineNumber:     ld.instance,
		AllNumber:      all,
		BusyNumber:     busy,
		NoAnswerNumber: noAnswer,
	}
	if all != "" {
		m.AllStatus = protocol.ForwardActive
	}
	if busy != "" {
		m.BusyStatus = protocol.ForwardActive
	}
	if noAnswer != "" {
		m.NoAnswerStatus = protocol.ForwardActive
	}
	if all != "" || busy != "" || noAnswer != "" {
		m.Active = protocol.ForwardActive
	}
	return m
}

// completeFeature passes collected digits to the feature handler.
func (c *Core) completeFeature(d *Device, ch *Channel, mode SimpleSwitchMode, param int, number string) {
	req := FeatureRequest{
		Mode:    mode,
		Param:   param,
		Digits:  number,
		Device:  d.name,
		Channel: ch.Info(),
	}
	if mode == SwitchPickup && param == pickupGroup {
		req.PickupGroups = ch.lineRef.Value().Config().PickupGroup
	}
	err := c.features.Complete(c.ctx, req)
	c.end(ch, false)
	if err != nil {
		d.log.Info("Feature request failed", zap.Stringer("mode", mode), zap.Error(err))
		d.prompt("Key Is Not Active", 0, 0)
	}
}
