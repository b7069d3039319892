package core

import (
	"net/netip"

	"go.uber.org/zap"

	"github.com/muurk/sccpd/internal/protocol"
	"github.com/muurk/sccpd/internal/sccperr"
)

// DTMFPayload is the RTP payload type announced for out-of-band digits.
const DTMFPayload = 101

func mediaParams(codec protocol.Codec, packetMs uint32) protocol.MediaParams {
	if packetMs == 0 {
		packetMs = 20
	}
	return protocol.MediaParams{
		PacketSizeMs: packetMs,
		Payload:      codec,
		DTMFPayload:  DTMFPayload,
	}
}

// mediaTarget resolves the channel and its controlling device.
func (c *Core) mediaTarget(op string, callID uint32) (*Channel, *Device, func(), error) {
	ref, ok := c.Channel(callID)
	if !ok {
		return nil, nil, nil, sccperr.Rejected(op, "unknown call id %d", callID)
	}
	ch := ref.Value()
	devRef, ok := c.devices.Get(ch.Device())
	if !ok {
		ref.Release()
		return nil, nil, nil, sccperr.Rejected(op, "call %d has no device", callID)
	}
	release := func() {
		devRef.Release()
		ref.Release()
	}
	return ch, devRef.Value(), release, nil
}

// OpenMedia asks the phone to open its RTP receive port for callID. The
// phone answers with OpenReceiveChannelAck, which is passed on to the
// bridge as MediaReceiveReady.
func (c *Core) OpenMedia(callID uint32, codec protocol.Codec, packetMs uint32) error {
	ch, d, release, err := c.mediaTarget("openmedia", callID)
	if err != nil {
		return err
	}
	defer release()

	passThru := c.passThru.Inc()
	ch.mu.Lock()
	ch.passThru = passThru
	ch.receiveOpen = true
	ch.mu.Unlock()

	m := &protocol.OpenReceiveChannel{
		V17:             d.ProtocolVersion() >= 17,
		ConferenceID:    callID,
		PassThruPartyID: passThru,
		Media:           mediaParams(codec, packetMs),
		ConferenceID1:   callID,
	}
	if s := d.Sender(); s != nil {
		m.SourceIP = s.LocalAddr().Addr()
	}
	d.send(m)
	return nil
}

// StartMedia tells the phone where to send RTP for callID.
func (c *Core) StartMedia(callID uint32, remote netip.AddrPort, codec protocol.Codec, packetMs uint32) error {
	ch, d, release, err := c.mediaTarget("startmedia", callID)
	if err != nil {
		return err
	}
	defer release()

	ch.mu.Lock()
	passThru := ch.passThru
	ch.transmitting = true
	ch.mu.Unlock()

	d.send(&protocol.StartMediaTransmission{
		V17:             d.ProtocolVersion() >= 17,
		ConferenceID:    callID,
		PassThruPartyID: passThru,
		RemoteIP:        remote.Addr(),
		RemotePort:      uint32(remote.Port()),
		Media:           mediaParams(codec, packetMs),
		ConferenceID1:   callID,
	})
	return nil
}

// closeMedia stops both RTP directions on the controlling device.
func (c *Core) closeMedia(ch *Channel) {
	ch.mu.Lock()
	passThru, recv, tx := ch.passThru, ch.receiveOpen, ch.transmitting
	ch.receiveOpen, ch.transmitting = false, false
	name := ch.device
	ch.mu.Unlock()
	if !recv && !tx {
		return
	}
	ref, ok := c.devices.Get(name)
	if !ok {
		return
	}
	defer ref.Release()
	d := ref.Value()
	if recv {
		d.send(&protocol.CloseReceiveChannel{ConferenceID: ch.id, PassThruPartyID: passThru, ConferenceID1: ch.id})
	}
	if tx {
		d.send(&protocol.StopMediaTransmission{ConferenceID: ch.id, PassThruPartyID: passThru, ConferenceID1: ch.id})
	}
}

// receiveChannelAck matches an OpenReceiveChannelAck to its channel by
// pass-through id and hands the address to the bridge.
func (c *Core) receiveChannelAck(d *Device, m *protocol.OpenReceiveChannelAck) {
	refs := d.channels()
	defer releaseAll(refs)
	for _, r := range refs {
		ch := r.Value()
		ch.mu.Lock()
		match := ch.passThru == m.PassThruPartyID && ch.receiveOpen
		info := ch.infoLocked()
		ch.mu.Unlock()
		if !match {
			continue
		}
		if m.Status != 0 {
			d.log.Warn("Phone refused receive channel", zap.Uint32("call_id", ch.id), zap.Uint32("status", m.Status))
			return
		}
		c.bridge.MediaReceiveReady(info, netip.AddrPortFrom(m.IP, uint16(m.Port)))
		return
	}
	d.log.Debug("Receive channel ack for unknown pass-through id", zap.Uint32("pass_thru", m.PassThruPartyID))
}
