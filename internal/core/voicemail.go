package core

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/muurk/sccpd/internal/event"
	"github.com/muurk/sccpd/internal/protocol"
	"github.com/muurk/sccpd/internal/sccperr"
)

// mwiPriority is the DisplayPriNotify priority of the message waiting text.
const mwiPriority = 5

// pickupGroup is the FeatureRequest.Param of a group pickup.
const pickupGroup = 1

// SetMessageWaiting records the mailbox counts of line and updates the
// voicemail lamp and priority notify text on every device the line is
// attached to.
func (c *Core) SetMessageWaiting(line string, newMsgs, oldMsgs int) error {
	ref, ok := c.lines.Get(line)
	if !ok {
		return sccperr.Rejected("mwi", "unknown line %q", line)
	}
	defer ref.Release()
	l := ref.Value()

	l.mu.Lock()
	changed := l.newMsgs != newMsgs || l.oldMsgs != oldMsgs
	l.newMsgs, l.oldMsgs = newMsgs, oldMsgs
	l.mu.Unlock()

	c.log.Debug("Message waiting",
		zap.String("line", line),
		zap.Int("new", newMsgs),
		zap.Int("old", oldMsgs),
	)
	for _, key := range l.LineDevices() {
		ldRef, ok := c.lineDevices.Get(key)
		if !ok {
			continue
		}
		ld := ldRef.Value()
		if devRef, ok := c.devices.Get(ld.device); ok {
			d := devRef.Value()
			d.send(d.messageWaiting(ld, newMsgs, oldMsgs)...)
			if changed {
				c.publish(event.Event{
					Type:          event.FeatureChanged,
					DeviceName:    d.name,
					LineName:      line,
					Instance:      ld.instance,
					Feature:       "mwi",
					FeatureStatus: uint32(newMsgs),
				})
			}
			devRef.Release()
		}
		ldRef.Release()
	}
	return nil
}

// SetMailboxWaiting applies SetMessageWaiting to every line whose mailbox
// is mailbox. A line without a mailbox uses its own name.
func (c *Core) SetMailboxWaiting(mailbox string, newMsgs, oldMsgs int) error {
	matched := 0
	for _, name := range c.LineNames() {
		ref, ok := c.lines.Get(name)
		if !ok {
			continue
		}
		box := ref.Value().Config().Mailbox
		ref.Release()
		if box == "" {
			box = name
		}
		if box != mailbox {
			continue
		}
		if err := c.SetMessageWaiting(name, newMsgs, oldMsgs); err == nil {
			matched++
		}
	}
	if matched == 0 {
		return sccperr.Rejected("mwi", "no line uses mailbox %q", mailbox)
	}
	return nil
}

// messageWaiting returns the lamp and notify messages for ld. The lamp at
// instance 0 is the handset indicator; it stays lit while any line of the
// device has new messages.
func (d *Device) messageWaiting(ld *LineDevice, newMsgs, oldMsgs int) []protocol.Message {
	lamp := protocol.LampOff
	if newMsgs > 0 {
		lamp = protocol.LampOn
	}
	msgs := []protocol.Message{
		&protocol.SetLamp{Stimulus: protocol.StimulusVoicemail, Instance: ld.instance, Mode: lamp},
		&protocol.SetLamp{Stimulus: protocol.StimulusVoicemail, Instance: 0, Mode: d.deviceLamp()},
	}
	if newMsgs > 0 {
		return append(msgs, &protocol.DisplayPriNotify{
			Priority: mwiPriority,
			Text:     fmt.Sprintf("Voicemail: %d new, %d old", newMsgs, oldMsgs),
		})
	}
	return append(msgs, &protocol.ClearPriNotify{Priority: mwiPriority})
}

// deviceLamp is the handset indicator state over every bound line.
func (d *Device) deviceLamp() protocol.LampMode {
	for _, ld := range d.lineBindings() {
		if n, _ := ld.lineRef.Value().MessageWaiting(); n > 0 {
			return protocol.LampOn
		}
	}
	return protocol.LampOff
}

// pendingMessages returns the message waiting state of every bound line
// that has new messages, for a phone that just registered.
func (d *Device) pendingMessages() []protocol.Message {
	var msgs []protocol.Message
	for _, ld := range d.lineBindings() {
		if n, o := ld.lineRef.Value().MessageWaiting(); n > 0 {
			msgs = append(msgs, d.messageWaiting(ld, n, o)...)
		}
	}
	return msgs
}

// transferToVoicemail hands the ringing or connected call addressed by
// callRef to the line's transfer_voicemail number, or its voicemail_number
// when that is unset.
func (c *Core) transferToVoicemail(d *Device, instance, callRef uint32) {
	ref, ok := c.ringingOn(d, callRef)
	if !ok {
		ref, ok = d.channelFor(callRef)
	}
	if !ok {
		d.prompt("Key Is Not Active", instance, callRef)
		return
	}
	defer ref.Release()
	ch := ref.Value()

	lcfg := ch.lineRef.Value().Config()
	target := lcfg.TransferVoicemail
	if target == "" {
		target = lcfg.VoicemailNumber
	}
	if target == "" {
		d.prompt("No voicemail", instance, ch.id)
		return
	}

	err := c.features.Complete(c.ctx, FeatureRequest{
		Mode:    SwitchTransferVoicemail,
		Digits:  target,
		Device:  d.name,
		Channel: ch.Info(),
	})
	if err != nil {
		d.log.Info("Transfer to voicemail failed", zap.Uint32("call_id", ch.id), zap.Error(err))
		d.prompt("Key Is Not Active", instance, ch.id)
		return
	}
	d.log.Info("Call sent to voicemail", zap.Uint32("call_id", ch.id), zap.String("target", target))
	c.end(ch, false)
}

// meetMe joins the conference of the line's meetme_number, or collects the
// conference number when none is configured.
func (d *Device) meetMe(instance uint32) {
	if ld, ok := d.lineBinding(instance); ok {
		if number := ld.lineRef.Value().Config().MeetMeNumber; number != "" {
			d.core.dialNumber(d, ld.instance, number)
			return
		}
	}
	d.featureCall(instance, SwitchMeetMe, 0)
}

// groupPickup asks the feature handler to pick up a call ringing in one of
// the line's pickup groups. No digits are collected.
func (d *Device) groupPickup(instance uint32) {
	ld, ok := d.lineBinding(instance)
	if !ok || len(ld.lineRef.Value().Config().PickupGroup) == 0 {
		d.prompt("Key Is Not Active", instance, 0)
		return
	}
	ref, err := d.core.newCall(d, ld.instance, SwitchPickup, pickupGroup)
	if err != nil {
		return
	}
	defer ref.Release()
	d.core.dialComplete(ref.Value())
}
