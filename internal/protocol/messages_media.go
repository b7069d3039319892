package protocol

import (
	"fmt"
	"net/netip"
)

// Payload sizes that distinguish the protocol 17 media layouts.
const (
	openReceiveChannelV17Size     = 128
	startMediaTransmissionV17Size = 132

	// orcTrailer is sent after the address in every OpenReceiveChannel.
	orcTrailer = 0x0FA0
)

// MediaParams are the codec settings shared by the media setup messages.
type MediaParams struct {
	PacketSizeMs       uint32
	Payload            Codec
	G723BitRate        uint32
	DTMFPayload        uint32
	RTPTimeout         uint32
	MaxFramesPerPacket uint32
}

// OpenReceiveChannel (0x0105) asks the phone to open an RTP receiver.
// V17 selects the protocol 17 layout.
type OpenReceiveChannel struct {
	V17             bool
	ConferenceID    uint32
	PassThruPartyID uint32
	Media           MediaParams
	VAD             uint32
	ConferenceID1   uint32
	SourceIP        netip.Addr
}

func (*OpenReceiveChannel) ID() MessageID { return MsgOpenReceiveChannel }

func (m *OpenReceiveChannel) encode(w *writer) {
	w.u32(m.ConferenceID)
	w.u32(m.PassThruPartyID)
	w.u32(m.Media.PacketSizeMs)
	w.u32(uint32(m.Media.Payload))
	w.u32(m.VAD)
	w.u32(m.Media.G723BitRate)
	w.u32(m.ConferenceID1)
	w.zero(14 * 4)
	w.u32(m.Media.DTMFPayload)
	w.u32(m.Media.RTPTimeout)
	if m.V17 {
		w.zero(3 * 4)
		w.ip16(m.SourceIP)
		w.u32(orcTrailer)
		w.zero(4)
		return
	}
	w.zero(2 * 4)
	w.ip16(m.SourceIP)
	w.u32(orcTrailer)
}

func (m *OpenReceiveChannel) decode(r *reader) {
	m.V17 = r.remaining() >= openReceiveChannelV17Size
	m.ConferenceID = r.u32()
	m.PassThruPartyID = r.u32()
	m.Media.PacketSizeMs = r.u32()
	m.Media.Payload = Codec(r.u32())
	m.VAD = r.u32()
	m.Media.G723BitRate = r.u32()
	m.ConferenceID1 = r.u32()
	r.skip(14 * 4)
	m.Media.DTMFPayload = r.u32()
	m.Media.RTPTimeout = r.u32()
	if m.V17 {
		r.skip(3 * 4)
	} else {
		r.skip(2 * 4)
	}
	m.SourceIP = r.ip16()
}

func (m *OpenReceiveChannel) String() string {
	return fmt.Sprintf("OpenReceiveChannel{conference=%d, party=%d, codec=%d, ms=%d, v17=%t}",
		m.ConferenceID, m.PassThruPartyID, m.Media.Payload, m.Media.PacketSizeMs, m.V17)
}

// CloseReceiveChannel (0x0106)
type CloseReceiveChannel struct {
	ConferenceID    uint32
	PassThruPartyID uint32
	ConferenceID1   uint32
}

func (*CloseReceiveChannel) ID() MessageID { return MsgCloseReceiveChannel }

func (m *CloseReceiveChannel) encode(w *writer) {
	w.u32(m.ConferenceID)
	w.u32(m.PassThruPartyID)
	w.u32(m.ConferenceID1)
}

func (m *CloseReceiveChannel) decode(r *reader) {
	m.ConferenceID = r.u32()
	m.PassThruPartyID = r.u32()
	m.ConferenceID1 = r.u32()
}

// StartMediaTransmission (0x008A) points the phone's RTP sender at the
// remote endpoint. V17 selects the layout with a 16-byte address.
type StartMediaTransmission struct {
	V17                bool
	ConferenceID       uint32
	PassThruPartyID    uint32
	RemoteIP           netip.Addr
	RemotePort         uint32
	Media              MediaParams
	Precedence         uint32
	SilenceSuppression uint32
	ConferenceID1      uint32
}

func (*StartMediaTransmission) ID() MessageID { return MsgStartMediaTransmission }

func (m *StartMediaTransmission) encode(w *writer) {
	w.u32(m.ConferenceID)
	w.u32(m.PassThruPartyID)
	if m.V17 {
		w.ipWide(m.RemoteIP)
	} else {
		w.ip4(m.RemoteIP)
	}
	w.u32(m.RemotePort)
	w.u32(m.Media.PacketSizeMs)
	w.u32(uint32(m.Media.Payload))
	w.u32(m.Precedence)
	w.u32(m.SilenceSuppression)
	w.u32(m.Media.MaxFramesPerPacket)
	w.u32(m.Media.G723BitRate)
	w.u32(m.ConferenceID1)
	w.zero(14 * 4)
	w.u32(m.Media.DTMFPayload)
	w.u32(m.Media.RTPTimeout)
	w.zero(2 * 4)
}

func (m *StartMediaTransmission) decode(r *reader) {
	m.V17 = r.remaining() >= startMediaTransmissionV17Size
	m.ConferenceID = r.u32()
	m.PassThruPartyID = r.u32()
	if m.V17 {
		m.RemoteIP = r.ipWide()
	} else {
		m.RemoteIP = r.ip4()
	}
	m.RemotePort = r.u32()
	m.Media.PacketSizeMs = r.u32()
	m.Media.Payload = Codec(r.u32())
	m.Precedence = r.u32()
	m.SilenceSuppression = r.u32()
	m.Media.MaxFramesPerPacket = r.u32()
	m.Media.G723BitRate = r.u32()
	m.ConferenceID1 = r.u32()
	r.skip(14 * 4)
	m.Media.DTMFPayload = r.u32()
	m.Media.RTPTimeout = r.u32()
}

func (m *StartMediaTransmission) String() string {
	return fmt.Sprintf("StartMediaTransmission{conference=%d, remote=%s:%d, codec=%d, v17=%t}",
		m.ConferenceID, m.RemoteIP, m.RemotePort, m.Media.Payload, m.V17)
}

// StopMediaTransmission (0x008B)
type StopMediaTransmission struct {
	ConferenceID    uint32
	PassThruPartyID uint32
	ConferenceID1   uint32
}

func (*StopMediaTransmission) ID() MessageID { return MsgStopMediaTransmission }

func (m *StopMediaTransmission) encode(w *writer) {
	w.u32(m.ConferenceID)
	w.u32(m.PassThruPartyID)
	w.u32(m.ConferenceID1)
	w.zero(4)
}

func (m *StopMediaTransmission) decode(r *reader) {
	m.ConferenceID = r.u32()
	m.PassThruPartyID = r.u32()
	m.ConferenceID1 = r.u32()
	r.skip(4)
}

// ConnectionStatisticsReq (0x0107) asks for RTP counters.
type ConnectionStatisticsReq struct {
	DirectoryNumber string
	CallReference   uint32
	StatsProcessing uint32
}

func (*ConnectionStatisticsReq) ID() MessageID { return MsgConnectionStatisticsReq }

func (m *ConnectionStatisticsReq) encode(w *writer) {
	w.str(m.DirectoryNumber, DirNumberSize)
	w.u32(m.CallReference)
	w.u32(m.StatsProcessing)
}

func (m *ConnectionStatisticsReq) decode(r *reader) {
	m.DirectoryNumber = r.str(DirNumberSize)
	m.CallReference = r.u32()
	m.StatsProcessing = r.u32()
}
