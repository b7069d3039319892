package core

import (
	"github.com/muurk/sccpd/internal/protocol"
)

// indication is what a phone is told when a channel enters a state.
type indication struct {
	callState protocol.CallState // 0: no CallStateMessage
	tone      protocol.Tone
	toneOn    bool
	stopTone  bool
	keySet    protocol.KeySetMode
	keySetOn  bool
	lamp      protocol.LampMode // 0: lamp untouched
	callInfo  bool
	prompt    string
}

var indications = map[ChannelState]indication{
	StateOffHook: {
		callState: protocol.CallStateOffHook,
		tone:      protocol.ToneInsideDialTone,
		toneOn:    true,
		keySet:    protocol.KeySetOffHook,
		keySetOn:  true,
		lamp:      protocol.LampOn,
		prompt:    "Enter number",
	},
	StateGetDigits: {
		callState: protocol.CallStateOffHook,
		tone:      protocol.ToneZipZip,
		toneOn:    true,
		keySet:    protocol.KeySetDigitsFoll,
		keySetOn:  true,
		lamp:      protocol.LampOn,
		prompt:    "Enter number",
	},
	StateDialing: {
		callState: protocol.CallStateProceed,
		stopTone:  true,
		keySet:    protocol.KeySetDigitsFoll,
		keySetOn:  true,
	},
	StateProceed: {
		callState: protocol.CallStateProceed,
		stopTone:  true,
		keySet:    protocol.KeySetRingOut,
		keySetOn:  true,
		callInfo:  true,
		prompt:    "Call Proceed",
	},
	StateRingOut: {
		callState: protocol.CallStateRingOut,
		tone:      protocol.ToneAlertingTone,
		toneOn:    true,
		keySet:    protocol.KeySetRingOut,
		keySetOn:  true,
		callInfo:  true,
		prompt:    "Ring Out",
	},
	StateRingIn: {
		callState: protocol.CallStateRingIn,
		keySet:    protocol.KeySetRingIn,
		keySetOn:  true,
		lamp:      protocol.LampBlink,
		callInfo:  true,
		prompt:    "From",
	},
	StateCallWaiting: {
		callState: protocol.CallStateRingIn,
		keySet:    protocol.KeySetRingIn,
		keySetOn:  true,
		lamp:      protocol.LampBlink,
		callInfo:  true,
		prompt:    "Call Waiting",
	},
	StateConnected: {
		callState: protocol.CallStateConnected,
		stopTone:  true,
		keySet:    protocol.KeySetConnected,
		keySetOn:  true,
		lamp:      protocol.LampOn,
		callInfo:  true,
		prompt:    "Connected",
	},
	StateBusy: {
		callState: protocol.CallStateBusy,
		tone:      protocol.ToneLineBusyTone,
		toneOn:    true,
		prompt:    "Busy",
	},
	StateHold: {
		callState: protocol.CallStateHold,
		stopTone:  true,
		keySet:    protocol.KeySetOnHold,
		keySetOn:  true,
		lamp:      protocol.LampWink,
		prompt:    "Hold",
	},
	StateCallTransfer: {
		callState: protocol.CallStateHold,
		stopTone:  true,
		keySet:    protocol.KeySetOnHold,
		keySetOn:  true,
		lamp:      protocol.LampWink,
		prompt:    "Transfer",
	},
	StateCallPark: {
		callState: protocol.CallStateCallPark,
		stopTone:  true,
		prompt:    "Call Park",
	},
	StateCongestion: {
		callState: protocol.CallStateCongestion,
		tone:      protocol.ToneReorderTone,
		toneOn:    true,
		prompt:    "Temp Fail",
	},
	StateInvalidNumber: {
		callState: protocol.CallStateInvalidNumber,
		tone:      protocol.ToneReorderTone,
		toneOn:    true,
		prompt:    "Unknown Number",
	},
}

// WireCallState returns the CallStateMessage value for s on a phone
// speaking version. ok is false when the phone is not sent a call state.
func WireCallState(s ChannelState, version uint8) (protocol.CallState, bool) {
	if s == StateDown {
		return protocol.CallStateOnHook, true
	}
	ind, ok := indications[s]
	if !ok || ind.callState == 0 {
		return 0, false
	}
	// Newer phones show their own dialing progress.
	if s == StateDialing && version >= 11 {
		return 0, false
	}
	return ind.callState, true
}

// indicate tells every phone concerned by ch about its new state.
func (c *Core) indicate(ch *Channel, info ChannelInfo, prev ChannelState) {
	if info.State.Ringing() {
		for _, name := range ch.offeredTo() {
			ref, ok := c.devices.Get(name)
			if !ok {
				continue
			}
			d := ref.Value()
			if ld, ok := d.bindingFor(info.Line); ok {
				c.indicateTo(d, info, prev, ld.instance)
			}
			ref.Release()
		}
		return
	}
	if info.Device == "" {
		return
	}
	ref, ok := c.devices.Get(info.Device)
	if !ok {
		return
	}
	defer ref.Release()
	c.indicateTo(ref.Value(), info, prev, info.Instance)
}

// indicateTo sends the messages for info.State to one phone.
func (c *Core) indicateTo(d *Device, info ChannelInfo, prev ChannelState, instance uint32) {
	ind, ok := indications[info.State]
	if !ok {
		return
	}
	callRef := info.CallID
	var msgs []protocol.Message

	if st, ok := WireCallState(info.State, d.ProtocolVersion()); ok {
		msgs = append(msgs, &protocol.CallStateMsg{
			State:         st,
			LineInstance:  instance,
			CallReference: callRef,
			Visibility:    0,
			Priority:      4,
		})
	}
	if ind.lamp != 0 {
		msgs = append(msgs, &protocol.SetLamp{Stimulus: protocol.StimulusLine, Instance: instance, Mode: ind.lamp})
	}

	switch info.State {
	case StateOffHook:
		msgs = append(msgs, &protocol.ActivateCallPlane{LineInstance: instance})
	case StateDialing:
		msgs = append(msgs, &protocol.DialedNumber{CalledParty: info.Dialed, LineInstance: instance, CallReference: callRef})
	case StateRingIn, StateCallWaiting:
		if d.busy() {
			msgs = append(msgs, &protocol.StartTone{Tone: protocol.ToneCallWaitingTone, LineInstance: instance, CallReference: callRef})
		} else {
			msgs = append(msgs, &protocol.SetRinger{Mode: protocol.RingInside, Duration: 1, LineInstance: instance, CallReference: callRef})
		}
	case StateConnected:
		if prev.Ringing() {
			msgs = append(msgs, &protocol.SetRinger{Mode: protocol.RingOff, Duration: 1, LineInstance: instance, CallReference: callRef})
		}
	}

	switch {
	case ind.toneOn:
		msgs = append(msgs, &protocol.StartTone{Tone: ind.tone, LineInstance: instance, CallReference: callRef})
	case ind.stopTone:
		msgs = append(msgs, &protocol.StopTone{LineInstance: instance, CallReference: callRef})
	}
	if ind.keySetOn {
		msgs = append(msgs, d.selectKeys(instance, callRef, ind.keySet))
	}
	if ind.callInfo {
		msgs = append(msgs, callInfo(info, instance))
	}
	if ind.prompt != "" {
		msgs = append(msgs, &protocol.DisplayPromptStatus{Timeout: 0, Text: ind.prompt, LineInstance: instance, CallReference: callRef})
	}
	d.send(msgs...)
}

// indicateDown clears ch from one phone. The channel may still be in the
// store; it does not count as another call.
func (c *Core) indicateDown(d *Device, ch *Channel, info ChannelInfo, prev ChannelState) {
	instance := info.Instance
	if d.name != info.Device || instance == 0 {
		if ld, ok := d.bindingFor(info.Line); ok {
			instance = ld.instance
		}
	}
	callRef := info.CallID
	msgs := []protocol.Message{
		&protocol.StopTone{LineInstance: instance, CallReference: callRef},
		&protocol.SetRinger{Mode: protocol.RingOff, Duration: 1, LineInstance: instance, CallReference: callRef},
		&protocol.CallStateMsg{State: protocol.CallStateOnHook, LineInstance: instance, CallReference: callRef, Priority: 4},
		d.selectKeys(instance, callRef, protocol.KeySetOnHook),
		&protocol.ClearPromptStatus{LineInstance: instance, CallReference: callRef},
	}
	if !d.hasOtherChannels(ch.id) {
		msgs = append(msgs,
			&protocol.SetSpeakerMode{Mode: protocol.SpeakerOff},
			&protocol.DeactivateCallPlane{},
			&protocol.SetLamp{Stimulus: protocol.StimulusLine, Instance: instance, Mode: protocol.LampOff},
		)
	}
	d.send(msgs...)
}

func callInfo(info ChannelInfo, instance uint32) *protocol.CallInfo {
	typ := protocol.CallTypeOutbound
	switch info.Type {
	case CallInbound:
		typ = protocol.CallTypeInbound
	case CallForward:
		typ = protocol.CallTypeForward
	}
	return &protocol.CallInfo{
		CallingPartyName: info.CallingName,
		CallingParty:     info.CallingNumber,
		CalledPartyName:  info.CalledName,
		CalledParty:      info.CalledNumber,
		LineInstance:     instance,
		CallReference:    info.CallID,
		CallType:         typ,
		CallInstance:     info.CallID,
	}
}
