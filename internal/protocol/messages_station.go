package protocol

import (
	"fmt"
	"net/netip"
)

// Field widths shared by several records.
const (
	DeviceNameSize   = 16
	DirNumberSize    = 24
	NameSize         = 40
	ButtonNameSize   = 44
	DisplayTextSize  = 32
	VersionSize      = 16
	ServerNameSize   = 48
	ServiceURLSize   = 256
	AlarmTextSize    = 80
	DateTemplateSize = 6
	SoftKeyLabelSize = 16
	MaxButtons       = 42
	MaxCapabilities  = 18
	MaxSoftKeys      = 32
	MaxSoftKeySets   = 16
	SoftKeysPerSet   = 16
	MaxServers       = 5

	// UpdateCapabilitiesSize is the largest payload in the protocol.
	UpdateCapabilitiesSize = 1844
)

// StationIdentifier names a device in registration records.
type StationIdentifier struct {
	DeviceName string
	UserID     uint32
	Instance   uint32
}

func (s *StationIdentifier) encode(w *writer) {
	w.str(s.DeviceName, DeviceNameSize)
	w.u32(s.UserID)
	w.u32(s.Instance)
}

func (s *StationIdentifier) decode(r *reader) {
	s.DeviceName = r.str(DeviceNameSize)
	s.UserID = r.u32()
	s.Instance = r.u32()
}

// KeepAlive (0x0000)
type KeepAlive struct{}

func (*KeepAlive) ID() MessageID  { return MsgKeepAlive }
func (*KeepAlive) encode(*writer) {}
func (*KeepAlive) decode(*reader) {}

// Register (0x0001) opens the registration handshake.
type Register struct {
	Station         StationIdentifier
	StationIP       netip.Addr // big-endian on the wire
	DeviceType      uint32
	MaxStreams      uint32
	ActiveStreams   uint32
	ProtocolVersion uint8
	PhoneFeatures   [3]uint8
	Extra           [3]uint32
}

func (*Register) ID() MessageID { return MsgRegister }

func (m *Register) encode(w *writer) {
	m.Station.encode(w)
	w.ip4(m.StationIP)
	w.u32(m.DeviceType)
	w.u32(m.MaxStreams)
	w.u32(m.ActiveStreams)
	w.u8(m.ProtocolVersion)
	for _, b := range m.PhoneFeatures {
		w.u8(b)
	}
	for _, v := range m.Extra {
		w.u32(v)
	}
}

func (m *Register) decode(r *reader) {
	m.Station.decode(r)
	m.StationIP = r.ip4()
	m.DeviceType = r.u32()
	m.MaxStreams = r.u32()
	m.ActiveStreams = r.u32()
	m.ProtocolVersion = r.u8()
	for i := range m.PhoneFeatures {
		m.PhoneFeatures[i] = r.u8()
	}
	for i := range m.Extra {
		m.Extra[i] = r.u32()
	}
}

func (m *Register) String() string {
	return fmt.Sprintf("Register{device=%s, ip=%s, type=%d, protocol=%d}",
		m.Station.DeviceName, m.StationIP, m.DeviceType, m.ProtocolVersion)
}

// IpPort (0x0002) reports the phone's RTP port.
type IpPort struct {
	RTPMediaPort uint16
}

func (*IpPort) ID() MessageID { return MsgIpPort }
func (m *IpPort) encode(w *writer) {
	w.u16(m.RTPMediaPort)
	w.zero(2)
}
func (m *IpPort) decode(r *reader) {
	m.RTPMediaPort = r.u16()
	r.skip(2)
}

// KeypadButton (0x0003)
type KeypadButton struct {
	Button        uint32
	LineInstance  uint32
	CallReference uint32
}

func (*KeypadButton) ID() MessageID { return MsgKeypadButton }
func (m *KeypadButton) encode(w *writer) {
	w.u32(m.Button)
	w.u32(m.LineInstance)
	w.u32(m.CallReference)
}
func (m *KeypadButton) decode(r *reader) {
	m.Button = r.u32()
	m.LineInstance = r.u32()
	m.CallReference = r.u32()
}

func (m *KeypadButton) String() string {
	return fmt.Sprintf("KeypadButton{button=%d, line=%d, call=%d}", m.Button, m.LineInstance, m.CallReference)
}

// EnblocCall (0x0004) carries a complete number dialed before off-hook.
type EnblocCall struct {
	CalledParty string
}

func (*EnblocCall) ID() MessageID      { return MsgEnblocCall }
func (m *EnblocCall) encode(w *writer) { w.str(m.CalledParty, DirNumberSize) }
func (m *EnblocCall) decode(r *reader) { m.CalledParty = r.str(DirNumberSize) }

// StimulusMsg (0x0005) reports a feature button press.
type StimulusMsg struct {
	Stimulus Stimulus
	Instance uint32
}

func (*StimulusMsg) ID() MessageID { return MsgStimulus }
func (m *StimulusMsg) encode(w *writer) {
	w.u32(uint32(m.Stimulus))
	w.u32(m.Instance)
}
func (m *StimulusMsg) decode(r *reader) {
	m.Stimulus = Stimulus(r.u32())
	m.Instance = r.u32()
}

// OffHook (0x0006). Older firmware sends an empty payload.
type OffHook struct {
	LineInstance  uint32
	CallReference uint32
}

func (*OffHook) ID() MessageID { return MsgOffHook }

func (m *OffHook) encode(w *writer) {
	w.u32(m.LineInstance)
	w.u32(m.CallReference)
}

func (m *OffHook) decode(r *reader) {
	m.LineInstance = r.u32()
	m.CallReference = r.u32()
}

// OnHook (0x0007)
type OnHook struct {
	LineInstance  uint32
	CallReference uint32
}

func (*OnHook) ID() MessageID { return MsgOnHook }

func (m *OnHook) encode(w *writer) {
	w.u32(m.LineInstance)
	w.u32(m.CallReference)
}

func (m *OnHook) decode(r *reader) {
	m.LineInstance = r.u32()
	m.CallReference = r.u32()
}

// HookFlash (0x0008)
type HookFlash struct {
	LineInstance  uint32
	CallReference uint32
}

func (*HookFlash) ID() MessageID { return MsgHookFlash }

func (m *HookFlash) encode(w *writer) {
	w.u32(m.LineInstance)
	w.u32(m.CallReference)
}

func (m *HookFlash) decode(r *reader) {
	m.LineInstance = r.u32()
	m.CallReference = r.u32()
}

// ForwardStatReq (0x0009)
type ForwardStatReq struct {
	LineNumber uint32
}

func (*ForwardStatReq) ID() MessageID { return MsgForwardStatReq }

func (m *ForwardStatReq) encode(w *writer) { w.u32(m.LineNumber) }

func (m *ForwardStatReq) decode(r *reader) { m.LineNumber = r.u32() }

// SpeedDialStatReq (0x000A)
type SpeedDialStatReq struct {
	Number uint32
}

func (*SpeedDialStatReq) ID() MessageID { return MsgSpeedDialStatReq }

func (m *SpeedDialStatReq) encode(w *writer) { w.u32(m.Number) }

func (m *SpeedDialStatReq) decode(r *reader) { m.Number = r.u32() }

// LineStatReq (0x000B)
type LineStatReq struct {
	LineNumber uint32
}

func (*LineStatReq) ID() MessageID { return MsgLineStatReq }

func (m *LineStatReq) encode(w *writer) { w.u32(m.LineNumber) }

func (m *LineStatReq) decode(r *reader) { m.LineNumber = r.u32() }

// empty is embedded by records without payload.
type empty struct{}

func (empty) encode(*writer) {}
func (empty) decode(*reader) {}

// ConfigStatReq (0x000C)
type ConfigStatReq struct{ empty }

func (*ConfigStatReq) ID() MessageID { return MsgConfigStatReq }

// TimeDateReq (0x000D)
type TimeDateReq struct{ empty }

func (*TimeDateReq) ID() MessageID { return MsgTimeDateReq }

// ButtonTemplateReq (0x000E)
type ButtonTemplateReq struct{ empty }

func (*ButtonTemplateReq) ID() MessageID { return MsgButtonTemplateReq }

// VersionReq (0x000F)
type VersionReq struct{ empty }

func (*VersionReq) ID() MessageID { return MsgVersionReq }

// MediaCapability is one audio capability entry.
type MediaCapability struct {
	PayloadCapability  Codec
	MaxFramesPerPacket uint32
	G723BitRate        uint32
}

// CapabilitiesRes (0x0010) lists the codecs the phone supports.
type CapabilitiesRes struct {
	Capabilities []MediaCapability
}

func (*CapabilitiesRes) ID() MessageID { return MsgCapabilitiesRes }

func (m *CapabilitiesRes) encode(w *writer) {
	n := len(m.Capabilities)
	if n > MaxCapabilities {
		n = MaxCapabilities
	}
	w.u32(uint32(n))
	for i := 0; i < MaxCapabilities; i++ {
		if i < n {
			c := m.Capabilities[i]
			w.u32(uint32(c.PayloadCapability))
			w.u32(c.MaxFramesPerPacket)
			w.u32(c.G723BitRate)
			w.zero(4)
			continue
		}
		w.zero(16)
	}
}

func (m *CapabilitiesRes) decode(r *reader) {
	n := int(r.u32())
	if n > MaxCapabilities {
		n = MaxCapabilities
	}
	if n > 0 {
		m.Capabilities = make([]MediaCapability, n)
	}
	for i := 0; i < n; i++ {
		m.Capabilities[i].PayloadCapability = Codec(r.u32())
		m.Capabilities[i].MaxFramesPerPacket = r.u32()
		m.Capabilities[i].G723BitRate = r.u32()
		r.skip(4)
	}
}

// ServerReq (0x0012)
type ServerReq struct{ empty }

func (*ServerReq) ID() MessageID { return MsgServerReq }

// Alarm (0x0020)
type Alarm struct {
	Severity uint32
	Text     string
	Param1   uint32
	Param2   uint32
}

func (*Alarm) ID() MessageID { return MsgAlarm }
func (m *Alarm) encode(w *writer) {
	w.u32(m.Severity)
	w.str(m.Text, AlarmTextSize)
	w.u32(m.Param1)
	w.u32(m.Param2)
}
func (m *Alarm) decode(r *reader) {
	m.Severity = r.u32()
	m.Text = r.str(AlarmTextSize)
	m.Param1 = r.u32()
	m.Param2 = r.u32()
}

// OpenReceiveChannelAck (0x0022) returns the phone's RTP receive address.
// V17 selects the layout with a 16-byte address field.
type OpenReceiveChannelAck struct {
	V17             bool
	Status          uint32
	IP              netip.Addr
	Port            uint32
	PassThruPartyID uint32
	CallReference   uint32
}

const openReceiveChannelAckV17Size = 36

func (*OpenReceiveChannelAck) ID() MessageID { return MsgOpenReceiveChannelAck }

func (m *OpenReceiveChannelAck) encode(w *writer) {
	w.u32(m.Status)
	if m.V17 {
		w.ipWide(m.IP)
	} else {
		w.ip4(m.IP)
	}
	w.u32(m.Port)
	w.u32(m.PassThruPartyID)
	w.u32(m.CallReference)
}

func (m *OpenReceiveChannelAck) decode(r *reader) {
	m.V17 = r.remaining() >= openReceiveChannelAckV17Size
	m.Status = r.u32()
	if m.V17 {
		m.IP = r.ipWide()
	} else {
		m.IP = r.ip4()
	}
	m.Port = r.u32()
	m.PassThruPartyID = r.u32()
	m.CallReference = r.u32()
}

// ConnectionStatisticsRes (0x0023) reports RTP counters at call end.
type ConnectionStatisticsRes struct {
	DirectoryNumber     string
	CallIdentifier      uint32
	StatsProcessingType uint32
	SentPackets         uint32
	SentOctets          uint32
	RecvdPackets        uint32
	RecvdOctets         uint32
	LostPackets         uint32
	Jitter              uint32
	Latency             uint32
}

func (*ConnectionStatisticsRes) ID() MessageID { return MsgConnectionStatisticsRes }
func (m *ConnectionStatisticsRes) encode(w *writer) {
	w.str(m.DirectoryNumber, DirNumberSize)
	for _, v := range []uint32{m.CallIdentifier, m.StatsProcessingType, m.SentPackets, m.SentOctets,
		m.RecvdPackets, m.RecvdOctets, m.LostPackets, m.Jitter, m.Latency} {
		w.u32(v)
	}
}
func (m *ConnectionStatisticsRes) decode(r *reader) {
	m.DirectoryNumber = r.str(DirNumberSize)
	for _, p := range []*uint32{&m.CallIdentifier, &m.StatsProcessingType, &m.SentPackets, &m.SentOctets,
		&m.RecvdPackets, &m.RecvdOctets, &m.LostPackets, &m.Jitter, &m.Latency} {
		*p = r.u32()
	}
}

// OffHookWithCgpn (0x0024)
type OffHookWithCgpn struct {
	CalledParty string
}

func (*OffHookWithCgpn) ID() MessageID      { return MsgOffHookWithCgpn }
func (m *OffHookWithCgpn) encode(w *writer) { w.str(m.CalledParty, DirNumberSize) }
func (m *OffHookWithCgpn) decode(r *reader) { m.CalledParty = r.str(DirNumberSize) }

// SoftKeySetReq (0x0025)
type SoftKeySetReq struct{ empty }

func (*SoftKeySetReq) ID() MessageID { return MsgSoftKeySetReq }

// SoftKeyEvent (0x0026)
type SoftKeyEvent struct {
	Event         SoftKey
	LineInstance  uint32
	CallReference uint32
}

func (*SoftKeyEvent) ID() MessageID { return MsgSoftKeyEvent }
func (m *SoftKeyEvent) encode(w *writer) {
	w.u32(uint32(m.Event))
	w.u32(m.LineInstance)
	w.u32(m.CallReference)
}
func (m *SoftKeyEvent) decode(r *reader) {
	m.Event = SoftKey(r.u32())
	m.LineInstance = r.u32()
	m.CallReference = r.u32()
}

func (m *SoftKeyEvent) String() string {
	return fmt.Sprintf("SoftKeyEvent{event=%d, line=%d, call=%d}", m.Event, m.LineInstance, m.CallReference)
}

// Unregister (0x0027)
type Unregister struct{ empty }

func (*Unregister) ID() MessageID { return MsgUnregister }

// SoftKeyTemplateReq (0x0028)
type SoftKeyTemplateReq struct{ empty }

func (*SoftKeyTemplateReq) ID() MessageID { return MsgSoftKeyTemplateReq }

// RegisterTokenReq (0x0029)
type RegisterTokenReq struct {
	Station    StationIdentifier
	StationIP  netip.Addr
	DeviceType uint32
}

func (*RegisterTokenReq) ID() MessageID { return MsgRegisterTokenReq }
func (m *RegisterTokenReq) encode(w *writer) {
	m.Station.encode(w)
	w.ip4(m.StationIP)
	w.u32(m.DeviceType)
}
func (m *RegisterTokenReq) decode(r *reader) {
	m.Station.decode(r)
	m.StationIP = r.ip4()
	m.DeviceType = r.u32()
}

// HeadsetStatus (0x002B)
type HeadsetStatus struct {
	Mode uint32
}

func (*HeadsetStatus) ID() MessageID { return MsgHeadsetStatus }

func (m *HeadsetStatus) encode(w *writer) { w.u32(m.Mode) }

func (m *HeadsetStatus) decode(r *reader) { m.Mode = r.u32() }

// RegisterAvailableLines (0x002D)
type RegisterAvailableLines struct {
	MaxLines uint32
}

func (*RegisterAvailableLines) ID() MessageID { return MsgRegisterAvailableLines }

func (m *RegisterAvailableLines) encode(w *writer) { w.u32(m.MaxLines) }

func (m *RegisterAvailableLines) decode(r *reader) { m.MaxLines = r.u32() }

// UpdateCapabilities (0x0030) is kept opaque. It is the largest record
// in the protocol and fixes the frame size ceiling.
type UpdateCapabilities struct {
	Data [UpdateCapabilitiesSize]byte
}

func (*UpdateCapabilities) ID() MessageID      { return MsgUpdateCapabilities }
func (m *UpdateCapabilities) encode(w *writer) { w.buf = append(w.buf, m.Data[:]...) }
func (m *UpdateCapabilities) decode(r *reader) { copy(m.Data[:], r.take(UpdateCapabilitiesSize)) }

// ServiceURLStatReq (0x0033)
type ServiceURLStatReq struct {
	Index uint32
}

func (*ServiceURLStatReq) ID() MessageID { return MsgServiceURLStatReq }

func (m *ServiceURLStatReq) encode(w *writer) { w.u32(m.Index) }

func (m *ServiceURLStatReq) decode(r *reader) { m.Index = r.u32() }

// FeatureStatReq (0x0034)
type FeatureStatReq struct {
	Index uint32
}

func (*FeatureStatReq) ID() MessageID { return MsgFeatureStatReq }

func (m *FeatureStatReq) encode(w *writer) { w.u32(m.Index) }

func (m *FeatureStatReq) decode(r *reader) { m.Index = r.u32() }

// AccessoryStatus (0x0049)
type AccessoryStatus struct {
	AccessoryID uint32
	Status      uint32
}

func (*AccessoryStatus) ID() MessageID { return MsgAccessoryStatus }
func (m *AccessoryStatus) encode(w *writer) {
	w.u32(m.AccessoryID)
	w.u32(m.Status)
	w.zero(4)
}
func (m *AccessoryStatus) decode(r *reader) {
	m.AccessoryID = r.u32()
	m.Status = r.u32()
	r.skip(4)
}

// StartMediaTransmissionAck (0x0154)
type StartMediaTransmissionAck struct {
	CallReference   uint32
	PassThruPartyID uint32
	CallReference1  uint32
	IP              netip.Addr
	Port            uint32
	Status          uint32
}

func (*StartMediaTransmissionAck) ID() MessageID { return MsgStartMediaTransmissionAck }
func (m *StartMediaTransmissionAck) encode(w *writer) {
	w.u32(m.CallReference)
	w.u32(m.PassThruPartyID)
	w.u32(m.CallReference1)
	w.ipWide(m.IP)
	w.u32(m.Port)
	w.u32(m.Status)
	w.zero(4)
}
func (m *StartMediaTransmissionAck) decode(r *reader) {
	m.CallReference = r.u32()
	m.PassThruPartyID = r.u32()
	m.CallReference1 = r.u32()
	m.IP = r.ipWide()
	m.Port = r.u32()
	m.Status = r.u32()
	r.skip(4)
}
