package core

import (
	"go.uber.org/zap"

	"github.com/muurk/sccpd/internal/config"
	"github.com/muurk/sccpd/internal/event"
	"github.com/muurk/sccpd/internal/protocol"
	"github.com/muurk/sccpd/internal/refcount"
	"github.com/muurk/sccpd/internal/sccperr"
	"github.com/muurk/sccpd/internal/version"
)

// ServerName is announced in ConfigStat and ServerRes.
const ServerName = "sccpd"

// Handle processes one message from the phone after registration started.
// A returned error of kind ProtocolViolation, or ErrUnregister, means the
// session must close; other errors are informational. Messages that arrive
// after the device unregistered are dropped.
func (d *Device) Handle(m protocol.Message) error {
	if d.State() == DeviceUnregistered {
		return sccperr.Rejected("dispatch", "%s for unregistered device %s", m.ID(), d.name)
	}
	c := d.core
	switch m := m.(type) {
	case *protocol.KeepAlive:
		d.send(&protocol.KeepAliveAck{})

	case *protocol.Register:
		return sccperr.ProtocolViolation("register", "device %s is already registered", d.name)
	case *protocol.RegisterTokenReq:
		d.log.Debug("Ignoring token request on registered session")

	case *protocol.IpPort:
		d.mu.Lock()
		d.rtpPort = m.RTPMediaPort
		d.mu.Unlock()

	case *protocol.CapabilitiesRes:
		codecs := make([]protocol.Codec, len(m.Capabilities))
		for i, mc := range m.Capabilities {
			codecs[i] = mc.PayloadCapability
		}
		d.mu.Lock()
		d.capabilities = codecs
		d.mu.Unlock()

	case *protocol.ButtonTemplateReq:
		d.send(d.buttonTemplate())
	case *protocol.SoftKeyTemplateReq:
		d.send(SoftKeyTemplate())
	case *protocol.SoftKeySetReq:
		d.send(SoftKeySets(), d.selectKeys(0, 0, protocol.KeySetOnHook))
	case *protocol.ConfigStatReq:
		d.send(d.configStat())
	case *protocol.TimeDateReq:
		d.send(timeDate(c.now()))
	case *protocol.VersionReq:
		d.send(&protocol.Version{Version: version.Version})
	case *protocol.ServerReq:
		d.send(d.serverRes())
	case *protocol.LineStatReq:
		d.lineStat(m.LineNumber)
	case *protocol.SpeedDialStatReq:
		d.speedDialStat(m.Number)
	case *protocol.ForwardStatReq:
		if ld, ok := d.lineBinding(m.LineNumber); ok {
			d.send(forwardStat(ld))
		}
	case *protocol.ServiceURLStatReq:
		if b, ok := d.button(m.Index); ok && b.Type == config.ButtonService {
			d.send(&protocol.ServiceURLStat{Index: m.Index, URL: b.URL, Label: b.Label})
		}
	case *protocol.FeatureStatReq:
		if b, ok := d.button(m.Index); ok && b.Type == config.ButtonFeature {
			d.send(d.featureStat(b))
		}
	case *protocol.RegisterAvailableLines:
		c.finishRegistration(d)

	case *protocol.OffHook:
		d.offHook(m.LineInstance, m.CallReference)
	case *protocol.OffHookWithCgpn:
		c.dialNumber(d, 0, m.CalledParty)
	case *protocol.OnHook:
		c.onHook(d, m.CallReference)
	case *protocol.HookFlash:
		if ref, ok := d.channelFor(m.CallReference); ok {
			c.transfer(d, ref.Value())
			ref.Release()
		}
	case *protocol.KeypadButton:
		d.keypad(m)
	case *protocol.EnblocCall:
		c.dialNumber(d, 0, m.CalledParty)
	case *protocol.StimulusMsg:
		d.stimulus(m.Stimulus, m.Instance)
	case *protocol.SoftKeyEvent:
		d.softKey(m.Event, m.LineInstance, m.CallReference)

	case *protocol.OpenReceiveChannelAck:
		c.receiveChannelAck(d, m)
	case *protocol.StartMediaTransmissionAck:
		d.log.Debug("Media transmission started", zap.Uint32("call_ref", m.CallReference), zap.Uint32("status", m.Status))
	case *protocol.ConnectionStatisticsRes:
		d.log.Info("Call statistics",
			zap.Uint32("call_id", m.CallIdentifier),
			zap.Uint32("sent_packets", m.SentPackets),
			zap.Uint32("recv_packets", m.RecvdPackets),
			zap.Uint32("lost_packets", m.LostPackets),
			zap.Uint32("jitter", m.Jitter),
		)

	case *protocol.Alarm:
		d.log.Info("Phone alarm", zap.Uint32("severity", m.Severity), zap.String("text", m.Text))
	case *protocol.HeadsetStatus, *protocol.AccessoryStatus, *protocol.UpdateCapabilities:
		d.log.Debug("Ignoring status message", zap.Stringer("message", m.ID()))

	case *protocol.Unregister:
		if d.hasChannels() {
			d.send(&protocol.UnregisterAck{Status: protocol.UnregisterNAK})
			return nil
		}
		d.send(&protocol.UnregisterAck{Status: protocol.UnregisterOK})
		return ErrUnregister

	case *protocol.Unrecognized:
		return sccperr.Unrecognized("dispatch", uint32(m.MsgID))
	default:
		d.log.Debug("Unhandled message", zap.Stringer("message", m.ID()))
	}
	return nil
}

// channelFor returns the channel callRef names if it involves d, else the
// device's active call.
func (d *Device) channelFor(callRef uint32) (*refcount.Ref[*Channel], bool) {
	if callRef != 0 {
		if ref, ok := d.core.Channel(callRef); ok {
			if ref.Value().involves(d.name) {
				return ref, true
			}
			ref.Release()
		}
	}
	if active := d.ActiveCall(); active != 0 {
		return d.core.Channel(active)
	}
	return nil, false
}

func (d *Device) offHook(instance, callRef uint32) {
	c := d.core
	if ref, ok := c.ringingOn(d, callRef); ok {
		c.answer(d, ref.Value())
		ref.Release()
		return
	}
	if ref, err := c.newCall(d, instance, SwitchPlain, 0); err == nil {
		ref.Release()
	}
}

func (d *Device) keypad(m *protocol.KeypadButton) {
	key, ok := protocol.KeypadDigit(m.Button)
	if !ok {
		return
	}
	ref, ok := d.channelFor(m.CallReference)
	if !ok {
		// Dialing on-hook opens a call first.
		var err error
		if ref, err = d.core.newCall(d, m.LineInstance, SwitchPlain, 0); err != nil {
			return
		}
	}
	defer ref.Release()
	d.core.digit(d, ref.Value(), key)
}

func (d *Device) stimulus(s protocol.Stimulus, instance uint32) {
	c := d.core
	switch s {
	case protocol.StimulusLastNumberRedial:
		c.redial(d, 0)
	case protocol.StimulusSpeedDial:
		if b, ok := d.button(instance); ok && b.Type == config.ButtonSpeedDial {
			c.dialNumber(d, 0, b.Number)
		}
	case protocol.StimulusLine:
		if ref, ok := c.ringingOn(d, 0); ok {
			c.answer(d, ref.Value())
			ref.Release()
			return
		}
		if ref, err := c.newCall(d, instance, SwitchPlain, 0); err == nil {
			ref.Release()
		}
	case protocol.StimulusHold:
		if ref, ok := d.channelFor(0); ok {
			ch := ref.Value()
			if ch.State() == StateHold {
				c.resume(d, ch)
			} else {
				c.hold(d, ch)
			}
			ref.Release()
		}
	case protocol.StimulusTransfer:
		if ref, ok := d.transferTarget(0); ok {
			c.transfer(d, ref.Value())
			ref.Release()
		}
	case protocol.StimulusForwardAll:
		d.forwardKey(0, SwitchCallForwardAll)
	case protocol.StimulusForwardBusy:
		d.forwardKey(0, SwitchCallForwardBusy)
	case protocol.StimulusForwardNoAnswer:
		d.forwardKey(0, SwitchCallForwardNoAnswer)
	case protocol.StimulusVoicemail:
		if ld, ok := d.lineBinding(instance); ok {
			c.dialNumber(d, ld.instance, ld.lineRef.Value().Config().VoicemailNumber)
		}
	case protocol.StimulusFeature:
		if b, ok := d.button(instance); ok && b.Type == config.ButtonFeature {
			d.toggleFeature(b)
		}
	case protocol.StimulusCallPark:
		if ref, ok := d.channelFor(0); ok {
			c.park(d, ref.Value())
			ref.Release()
		}
	case protocol.StimulusCallPickup:
		d.featureCall(0, SwitchPickup, 0)
	case protocol.StimulusGroupCallPickup:
		d.groupPickup(0)
	case protocol.StimulusMeetMe:
		d.meetMe(0)
	default:
		d.prompt("Key Is Not Active", 0, 0)
	}
}

func (d *Device) softKey(k protocol.SoftKey, instance, callRef uint32) {
	c := d.core
	withChannel := func(fn func(*Channel)) {
		if ref, ok := d.channelFor(callRef); ok {
			fn(ref.Value())
			ref.Release()
		}
	}
	switch k {
	case protocol.SoftKeyRedial:
		c.redial(d, instance)
	case protocol.SoftKeyNewCall:
		if ref, err := c.newCall(d, instance, SwitchPlain, 0); err == nil {
			ref.Release()
		}
	case protocol.SoftKeyHold:
		withChannel(func(ch *Channel) { c.hold(d, ch) })
	case protocol.SoftKeyResume:
		withChannel(func(ch *Channel) { c.resume(d, ch) })
	case protocol.SoftKeyTransfer, protocol.SoftKeyDirTrfr:
		if ref, ok := d.transferTarget(callRef); ok {
			c.transfer(d, ref.Value())
			ref.Release()
		}
	case protocol.SoftKeyCfwdAll:
		d.forwardKey(instance, SwitchCallForwardAll)
	case protocol.SoftKeyCfwdBusy:
		d.forwardKey(instance, SwitchCallForwardBusy)
	case protocol.SoftKeyCfwdNoAnswer:
		d.forwardKey(instance, SwitchCallForwardNoAnswer)
	case protocol.SoftKeyBackspace:
		withChannel(func(ch *Channel) { c.backspace(d, ch) })
	case protocol.SoftKeyEndCall:
		withChannel(func(ch *Channel) { c.endCall(d, ch) })
	case protocol.SoftKeyAnswer:
		if ref, ok := c.ringingOn(d, callRef); ok {
			c.answer(d, ref.Value())
			ref.Release()
		}
	case protocol.SoftKeyPark:
		withChannel(func(ch *Channel) { c.park(d, ch) })
	case protocol.SoftKeyPickup:
		d.featureCall(instance, SwitchPickup, 0)
	case protocol.SoftKeyGPickup:
		d.groupPickup(instance)
	case protocol.SoftKeyMeetMe:
		d.meetMe(instance)
	case protocol.SoftKeyTrnsfVM, protocol.SoftKeyIDivert:
		c.transferToVoicemail(d, instance, callRef)
	case protocol.SoftKeyBarge:
		d.featureCall(instance, SwitchBarge, 0)
	case protocol.SoftKeyDND:
		d.setFlag("dnd", instance)
	case protocol.SoftKeyPrivate:
		d.setFlag("privacy", instance)
	default:
		d.log.Debug("Softkey not supported", zap.Uint32("softkey", uint32(k)))
		d.prompt("Key Is Not Active", instance, callRef)
	}
}

// transferTarget picks the channel a transfer key applies to: the
// consultation call when one is in progress, else the addressed call.
func (d *Device) transferTarget(callRef uint32) (*refcount.Ref[*Channel], bool) {
	d.mu.Lock()
	from, active := d.transferFrom, d.active
	d.mu.Unlock()
	if from != 0 && active != 0 && active != from {
		return d.core.Channel(active)
	}
	if from != 0 && callRef == 0 {
		return d.core.Channel(from)
	}
	return d.channelFor(callRef)
}

// forwardKey toggles a call forward mode: a set target is cleared, else the
// phone collects the target number.
func (d *Device) forwardKey(instance uint32, mode SimpleSwitchMode) {
	ld, ok := d.lineBinding(instance)
	if !ok {
		return
	}
	if ld.Forward(mode) != "" {
		d.core.setForward(d, ld, mode, "")
		return
	}
	d.featureCall(ld.instance, mode, 0)
}

func (d *Device) featureCall(instance uint32, mode SimpleSwitchMode, param int) {
	if ref, err := d.core.newCall(d, instance, mode, param); err == nil {
		ref.Release()
	}
}

// toggleFeature handles a feature button press.
func (d *Device) toggleFeature(b Button) {
	name, _ := config.ParseFeature(b.Name)
	switch name {
	case "cfwdall":
		d.forwardKey(0, SwitchCallForwardAll)
	case "":
		d.prompt("Key Is Not Active", 0, 0)
	default:
		d.setFlag(name, b.Instance)
	}
}

// setFlag flips an on/off feature and reports it to the phone and the bus.
func (d *Device) setFlag(name string, instance uint32) {
	d.mu.Lock()
	var on bool
	switch name {
	case "dnd":
		d.dnd = !d.dnd
		on = d.dnd
	case "privacy":
		d.privacy = !d.privacy
		on = d.privacy
	default:
		if d.flags == nil {
			d.flags = make(map[string]bool)
		}
		d.flags[name] = !d.flags[name]
		on = d.flags[name]
	}
	fb, hasButton := d.featureButton(name)
	d.mu.Unlock()

	status := uint32(0)
	text := name + " off"
	if on {
		status = 1
		text = name + " on"
	}
	if hasButton {
		d.send(d.featureStat(fb))
	}
	if name == "dnd" {
		if on {
			d.send(&protocol.DisplayPromptStatus{Text: "Do Not Disturb", LineInstance: instance})
		} else {
			d.send(&protocol.ClearPromptStatus{LineInstance: instance})
		}
	}
	d.notify(text)
	d.core.publish(event.Event{
		Type:          event.FeatureChanged,
		DeviceName:    d.name,
		Instance:      instance,
		Feature:       name,
		FeatureStatus: status,
	})
}

// featureButton finds the feature button bound to name. The caller holds d.mu.
func (d *Device) featureButton(name string) (Button, bool) {
	for _, b := range d.buttons {
		if b.Type != config.ButtonFeature {
			continue
		}
		if n, _ := config.ParseFeature(b.Name); n == name {
			return b, true
		}
	}
	return Button{}, false
}

func (d *Device) featureStat(b Button) *protocol.FeatureStat {
	name, _ := config.ParseFeature(b.Name)
	d.mu.Lock()
	var on bool
	switch name {
	case "dnd":
		on = d.dnd
	case "privacy":
		on = d.privacy
	default:
		on = d.flags[name]
	}
	d.mu.Unlock()
	label := b.Label
	if label == "" {
		label = name
	}
	status := uint32(0)
	if on {
		status = 1
	}
	return &protocol.FeatureStat{
		Instance:  b.Instance,
		FeatureID: uint32(protocol.ButtonFeature),
		Label:     label,
		Status:    status,
	}
}
