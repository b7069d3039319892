package core

import (
	"go.uber.org/zap"

	"github.com/muurk/sccpd/internal/refcount"
	"github.com/muurk/sccpd/internal/sccperr"
)

// CallerInfo identifies the calling party of an inbound call.
type CallerInfo struct {
	Name   string
	Number string
}

// OfferResult is the outcome of offering a call to a line. When ForwardTo
// is set no channel was created and the PBX should route the call there.
type OfferResult struct {
	CallID          uint32
	ForwardTo       string
	NoAnswerForward string
}

// Offer presents an inbound call on line to every registered device that
// has a button for it.
func (c *Core) Offer(line string, caller CallerInfo) (OfferResult, error) {
	lineRef, ok := c.lines.Get(line)
	if !ok {
		return OfferResult{}, sccperr.Rejected("offer", "unknown line %q", line)
	}
	defer lineRef.Release()
	if lineRef.PendingDelete() {
		return OfferResult{}, sccperr.Rejected("offer", "line %q is being removed", line)
	}
	l := lineRef.Value()
	lcfg := l.Config()

	var (
		bindings  []*refcount.Ref[*LineDevice]
		available []*LineDevice
		busyFwd   string
		noAnsFwd  string
		anyDevice bool
	)
	defer func() { releaseAll(bindings) }()
	for _, key := range l.LineDevices() {
		if ref, ok := c.lineDevices.Get(key); ok {
			bindings = append(bindings, ref)
		}
	}
	for _, ref := range bindings {
		ld := ref.Value()
		if target := ld.Forward(SwitchCallForwardAll); target != "" {
			return OfferResult{ForwardTo: target}, nil
		}
		if busyFwd == "" {
			busyFwd = ld.Forward(SwitchCallForwardBusy)
		}
		if noAnsFwd == "" {
			noAnsFwd = ld.Forward(SwitchCallForwardNoAnswer)
		}
		devRef, ok := c.devices.Get(ld.device)
		if !ok {
			continue
		}
		d := devRef.Value()
		if d.State() == DeviceRegistered && d.Sender() != nil {
			anyDevice = true
			if !d.DND() {
				available = append(available, ld)
			}
		}
		devRef.Release()
	}

	switch {
	case !anyDevice:
		return OfferResult{}, sccperr.Rejected("offer", "no registered device on line %q", line)
	case len(available) == 0:
		return OfferResult{}, sccperr.Rejected("offer", "line %q: do not disturb", line)
	}

	if lcfg.IncomingLimit > 0 && c.inboundCount(l) >= lcfg.IncomingLimit {
		if busyFwd != "" {
			return OfferResult{ForwardTo: busyFwd}, nil
		}
		return OfferResult{}, sccperr.Exhausted("offer", "line %q: incoming limit %d reached", line, lcfg.IncomingLimit)
	}

	ref, err := c.newChannel(line, CallInbound)
	if err != nil {
		return OfferResult{}, err
	}
	defer ref.Release()
	ch := ref.Value()

	allBusy := true
	names := make([]string, len(available))
	for i, ld := range available {
		names[i] = ld.device
		if devRef, ok := c.devices.Get(ld.device); ok {
			if !devRef.Value().busy() {
				allBusy = false
			}
			devRef.Release()
		}
	}

	ch.mu.Lock()
	ch.ringing = names
	ch.device = available[0].device
	ch.instance = available[0].instance
	ch.calling = Party{Name: caller.Name, Number: caller.Number}
	ch.called = Party{Name: lcfg.CIDName, Number: lcfg.CIDNum}
	ch.mu.Unlock()

	state := StateRingIn
	if allBusy {
		state = StateCallWaiting
	}
	c.log.Debug("Offering call",
		zap.Uint32("call_id", ch.id),
		zap.String("line", line),
		zap.Strings("devices", names),
		zap.Stringer("state", state),
	)
	c.transition(ch, state)
	return OfferResult{CallID: ch.id, NoAnswerForward: noAnsFwd}, nil
}

// inboundCount returns the number of live inbound channels on l.
func (c *Core) inboundCount(l *Line) int {
	n := 0
	for _, id := range l.Channels() {
		if ref, ok := c.Channel(id); ok {
			if ref.Value().callType == CallInbound {
				n++
			}
			ref.Release()
		}
	}
	return n
}

// Indicate applies a state reported by the PBX for callID. Down ends the
// channel without calling back into the bridge.
func (c *Core) Indicate(callID uint32, state ChannelState) error {
	ref, ok := c.Channel(callID)
	if !ok {
		return sccperr.Rejected("indicate", "unknown call id %d", callID)
	}
	defer ref.Release()
	ch := ref.Value()

	switch state {
	case StateDown:
		c.end(ch, false)
		return nil
	case StateConnected:
		if !c.transition(ch, StateConnected) {
			return rejectTransition(ch.State(), state)
		}
		info := ch.Info()
		if devRef, ok := c.devices.Get(info.Device); ok {
			d := devRef.Value()
			d.setActive(ch.id)
			if err := c.bridge.RequestMediaOpen(info, d.Capabilities()); err != nil {
				d.log.Warn("Media request failed", zap.Uint32("call_id", ch.id), zap.Error(err))
			}
			devRef.Release()
		}
		return nil
	case StateRingOut, StateBusy, StateCongestion, StateProceed:
		if !c.transition(ch, state) {
			return rejectTransition(ch.State(), state)
		}
		return nil
	}
	return sccperr.Rejected("indicate", "state %s cannot be indicated", state)
}
