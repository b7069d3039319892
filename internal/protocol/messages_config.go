package protocol

import (
	"fmt"
	"net/netip"
	"time"
)

// RegisterAck (0x0081) accepts a registration and fixes the protocol
// version and keepalive interval for the session.
type RegisterAck struct {
	KeepAlive          uint32
	DateTemplate       string
	SecondaryKeepAlive uint32
	ProtocolVersion    uint8
	Features           [3]uint8
}

func (*RegisterAck) ID() MessageID { return MsgRegisterAck }

func (m *RegisterAck) encode(w *writer) {
	w.u32(m.KeepAlive)
	w.str(m.DateTemplate, DateTemplateSize)
	w.zero(2)
	w.u32(m.SecondaryKeepAlive)
	w.u8(m.ProtocolVersion)
	for _, b := range m.Features {
		w.u8(b)
	}
}

func (m *RegisterAck) decode(r *reader) {
	m.KeepAlive = r.u32()
	m.DateTemplate = r.str(DateTemplateSize)
	r.skip(2)
	m.SecondaryKeepAlive = r.u32()
	m.ProtocolVersion = r.u8()
	for i := range m.Features {
		m.Features[i] = r.u8()
	}
}

func (m *RegisterAck) String() string {
	return fmt.Sprintf("RegisterAck{keepalive=%d, protocol=%d, features=% X}", m.KeepAlive, m.ProtocolVersion, m.Features[:])
}

// RegisterReject (0x009D)
type RegisterReject struct {
	Text string
}

func (*RegisterReject) ID() MessageID      { return MsgRegisterReject }
func (m *RegisterReject) encode(w *writer) { w.str(m.Text, DisplayTextSize) }
func (m *RegisterReject) decode(r *reader) { m.Text = r.str(DisplayTextSize) }

// ForwardStat (0x0090)
type ForwardStat struct {
	Active         uint32
	LineNumber     uint32
	AllStatus      uint32
	AllNumber      string
	BusyStatus     uint32
	BusyNumber     string
	NoAnswerStatus uint32
	NoAnswerNumber string
}

func (*ForwardStat) ID() MessageID { return MsgForwardStat }

func (m *ForwardStat) encode(w *writer) {
	w.u32(m.Active)
	w.u32(m.LineNumber)
	w.u32(m.AllStatus)
	w.str(m.AllNumber, DirNumberSize)
	w.u32(m.BusyStatus)
	w.str(m.BusyNumber, DirNumberSize)
	w.u32(m.NoAnswerStatus)
	w.str(m.NoAnswerNumber, DirNumberSize)
}

func (m *ForwardStat) decode(r *reader) {
	m.Active = r.u32()
	m.LineNumber = r.u32()
	m.AllStatus = r.u32()
	m.AllNumber = r.str(DirNumberSize)
	m.BusyStatus = r.u32()
	m.BusyNumber = r.str(DirNumberSize)
	m.NoAnswerStatus = r.u32()
	m.NoAnswerNumber = r.str(DirNumberSize)
}

// SpeedDialStat (0x0091)
type SpeedDialStat struct {
	Number      uint32
	DirNumber   string
	DisplayName string
}

func (*SpeedDialStat) ID() MessageID { return MsgSpeedDialStat }

func (m *SpeedDialStat) encode(w *writer) {
	w.u32(m.Number)
	w.str(m.DirNumber, DirNumberSize)
	w.str(m.DisplayName, NameSize)
}

func (m *SpeedDialStat) decode(r *reader) {
	m.Number = r.u32()
	m.DirNumber = r.str(DirNumberSize)
	m.DisplayName = r.str(NameSize)
}

// LineStat (0x0092)
type LineStat struct {
	LineNumber                uint32
	DirNumber                 string
	FullyQualifiedDisplayName string
	DisplayName               string
}

func (*LineStat) ID() MessageID { return MsgLineStat }

func (m *LineStat) encode(w *writer) {
	w.u32(m.LineNumber)
	w.str(m.DirNumber, DirNumberSize)
	w.str(m.FullyQualifiedDisplayName, NameSize)
	w.str(m.DisplayName, ButtonNameSize)
}

func (m *LineStat) decode(r *reader) {
	m.LineNumber = r.u32()
	m.DirNumber = r.str(DirNumberSize)
	m.FullyQualifiedDisplayName = r.str(NameSize)
	m.DisplayName = r.str(ButtonNameSize)
}

// ConfigStat (0x0093)
type ConfigStat struct {
	Station          StationIdentifier
	UserName         string
	ServerName       string
	NumberLines      uint32
	NumberSpeedDials uint32
}

func (*ConfigStat) ID() MessageID { return MsgConfigStat }

func (m *ConfigStat) encode(w *writer) {
	m.Station.encode(w)
	w.str(m.UserName, NameSize)
	w.str(m.ServerName, NameSize)
	w.u32(m.NumberLines)
	w.u32(m.NumberSpeedDials)
}

func (m *ConfigStat) decode(r *reader) {
	m.Station.decode(r)
	m.UserName = r.str(NameSize)
	m.ServerName = r.str(NameSize)
	m.NumberLines = r.u32()
	m.NumberSpeedDials = r.u32()
}

// DefineTimeDate (0x0094)
type DefineTimeDate struct {
	Year         uint32
	Month        uint32
	DayOfWeek    uint32
	Day          uint32
	Hour         uint32
	Minute       uint32
	Seconds      uint32
	Milliseconds uint32
	SystemTime   uint32
}

// NewDefineTimeDate fills the record from t in its own location.
func NewDefineTimeDate(t time.Time) *DefineTimeDate {
	return &DefineTimeDate{
		Year:         uint32(t.Year()),
		Month:        uint32(t.Month()),
		DayOfWeek:    uint32(t.Weekday()),
		Day:          uint32(t.Day()),
		Hour:         uint32(t.Hour()),
		Minute:       uint32(t.Minute()),
		Seconds:      uint32(t.Second()),
		Milliseconds: uint32(t.Nanosecond() / int(time.Millisecond)),
		SystemTime:   uint32(t.Unix()),
	}
}

func (*DefineTimeDate) ID() MessageID { return MsgDefineTimeDate }

func (m *DefineTimeDate) encode(w *writer) {
	for _, v := range m.fields() {
		w.u32(*v)
	}
}

func (m *DefineTimeDate) decode(r *reader) {
	for _, v := range m.fields() {
		*v = r.u32()
	}
}

func (m *DefineTimeDate) fields() []*uint32 {
	return []*uint32{&m.Year, &m.Month, &m.DayOfWeek, &m.Day, &m.Hour,
		&m.Minute, &m.Seconds, &m.Milliseconds, &m.SystemTime}
}

// ButtonDefinition is one slot of the button template.
type ButtonDefinition struct {
	Instance uint8
	Type     ButtonType
}

// ButtonTemplate (0x0097) describes the phone's programmable buttons.
type ButtonTemplate struct {
	Offset  uint32
	Total   uint32
	Buttons []ButtonDefinition
}

func (*ButtonTemplate) ID() MessageID { return MsgButtonTemplate }

func (m *ButtonTemplate) encode(w *writer) {
	n := len(m.Buttons)
	if n > MaxButtons {
		n = MaxButtons
	}
	w.u32(m.Offset)
	w.u32(uint32(n))
	w.u32(m.Total)
	for i := 0; i < MaxButtons; i++ {
		if i < n {
			w.u8(m.Buttons[i].Instance)
			w.u8(uint8(m.Buttons[i].Type))
			continue
		}
		w.zero(2)
	}
}

func (m *ButtonTemplate) decode(r *reader) {
	m.Offset = r.u32()
	n := int(r.u32())
	m.Total = r.u32()
	if n > MaxButtons {
		n = MaxButtons
	}
	if n > 0 {
		m.Buttons = make([]ButtonDefinition, n)
	}
	for i := 0; i < n; i++ {
		m.Buttons[i].Instance = r.u8()
		m.Buttons[i].Type = ButtonType(r.u8())
	}
}

// Version (0x0098)
type Version struct {
	Version string
}

func (*Version) ID() MessageID      { return MsgVersion }
func (m *Version) encode(w *writer) { w.str(m.Version, VersionSize) }
func (m *Version) decode(r *reader) { m.Version = r.str(VersionSize) }

// DisplayText (0x0099)
type DisplayText struct {
	Text string
}

func (*DisplayText) ID() MessageID      { return MsgDisplayText }
func (m *DisplayText) encode(w *writer) { w.str(m.Text, DisplayTextSize) }
func (m *DisplayText) decode(r *reader) { m.Text = r.str(DisplayTextSize) }

// ClearDisplay (0x009A)
type ClearDisplay struct{ empty }

func (*ClearDisplay) ID() MessageID { return MsgClearDisplay }

// CapabilitiesReq (0x009B)
type CapabilitiesReq struct{ empty }

func (*CapabilitiesReq) ID() MessageID { return MsgCapabilitiesReq }

// ServerEntry is one server advertised in ServerRes.
type ServerEntry struct {
	Name string
	Port uint32
	IP   netip.Addr
}

// ServerRes (0x009E) lists up to five call managers.
type ServerRes struct {
	Servers []ServerEntry
}

func (*ServerRes) ID() MessageID { return MsgServerRes }

func (m *ServerRes) encode(w *writer) {
	entry := func(i int) ServerEntry {
		if i < len(m.Servers) {
			return m.Servers[i]
		}
		return ServerEntry{}
	}
	for i := 0; i < MaxServers; i++ {
		w.str(entry(i).Name, ServerNameSize)
	}
	for i := 0; i < MaxServers; i++ {
		w.u32(entry(i).Port)
	}
	for i := 0; i < MaxServers; i++ {
		w.ip4(entry(i).IP)
	}
}

func (m *ServerRes) decode(r *reader) {
	var all [MaxServers]ServerEntry
	for i := range all {
		all[i].Name = r.str(ServerNameSize)
	}
	for i := range all {
		all[i].Port = r.u32()
	}
	for i := range all {
		all[i].IP = r.ip4()
	}
	for _, e := range all {
		if e.Name != "" {
			m.Servers = append(m.Servers, e)
		}
	}
}

// Reset (0x009F)
type Reset struct {
	Type uint32
}

func (*Reset) ID() MessageID      { return MsgReset }
func (m *Reset) encode(w *writer) { w.u32(m.Type) }
func (m *Reset) decode(r *reader) { m.Type = r.u32() }

// KeepAliveAck (0x0100)
type KeepAliveAck struct{ empty }

func (*KeepAliveAck) ID() MessageID { return MsgKeepAliveAck }

// SoftKeyDefinition is one entry of the softkey template.
type SoftKeyDefinition struct {
	Label string
	Event SoftKey
}

// SoftKeyTemplateRes (0x0108)
type SoftKeyTemplateRes struct {
	Offset      uint32
	Total       uint32
	Definitions []SoftKeyDefinition
}

func (*SoftKeyTemplateRes) ID() MessageID { return MsgSoftKeyTemplateRes }

func (m *SoftKeyTemplateRes) encode(w *writer) {
	n := len(m.Definitions)
	if n > MaxSoftKeys {
		n = MaxSoftKeys
	}
	w.u32(m.Offset)
	w.u32(uint32(n))
	w.u32(m.Total)
	for i := 0; i < MaxSoftKeys; i++ {
		if i < n {
			w.str(m.Definitions[i].Label, SoftKeyLabelSize)
			w.u32(uint32(m.Definitions[i].Event))
			continue
		}
		w.zero(SoftKeyLabelSize + 4)
	}
}

func (m *SoftKeyTemplateRes) decode(r *reader) {
	m.Offset = r.u32()
	n := int(r.u32())
	m.Total = r.u32()
	if n > MaxSoftKeys {
		n = MaxSoftKeys
	}
	if n > 0 {
		m.Definitions = make([]SoftKeyDefinition, n)
	}
	for i := 0; i < n; i++ {
		m.Definitions[i].Label = r.str(SoftKeyLabelSize)
		m.Definitions[i].Event = SoftKey(r.u32())
	}
}

// SoftKeySet lists the template positions shown in one keyset mode.
// TemplateIndex holds 1-based softkey event values, zero for an empty slot.
type SoftKeySet struct {
	TemplateIndex [SoftKeysPerSet]uint8
	InfoIndex     [SoftKeysPerSet]uint16
}

// SoftKeySetRes (0x0109)
type SoftKeySetRes struct {
	Offset uint32
	Total  uint32
	Sets   []SoftKeySet
}

func (*SoftKeySetRes) ID() MessageID { return MsgSoftKeySetRes }

func (m *SoftKeySetRes) encode(w *writer) {
	n := len(m.Sets)
	if n > MaxSoftKeySets {
		n = MaxSoftKeySets
	}
	w.u32(m.Offset)
	w.u32(uint32(n))
	w.u32(m.Total)
	for i := 0; i < MaxSoftKeySets; i++ {
		var set SoftKeySet
		if i < n {
			set = m.Sets[i]
		}
		for _, b := range set.TemplateIndex {
			w.u8(b)
		}
		for _, v := range set.InfoIndex {
			w.u16(v)
		}
	}
}

func (m *SoftKeySetRes) decode(r *reader) {
	m.Offset = r.u32()
	n := int(r.u32())
	m.Total = r.u32()
	if n > MaxSoftKeySets {
		n = MaxSoftKeySets
	}
	if n > 0 {
		m.Sets = make([]SoftKeySet, n)
	}
	for i := 0; i < n; i++ {
		for j := range m.Sets[i].TemplateIndex {
			m.Sets[i].TemplateIndex[j] = r.u8()
		}
		for j := range m.Sets[i].InfoIndex {
			m.Sets[i].InfoIndex[j] = r.u16()
		}
	}
}

// UnregisterAck (0x0118)
type UnregisterAck struct {
	Status uint32
}

func (*UnregisterAck) ID() MessageID      { return MsgUnregisterAck }
func (m *UnregisterAck) encode(w *writer) { w.u32(m.Status) }
func (m *UnregisterAck) decode(r *reader) { m.Status = r.u32() }

// RegisterTokenAck (0x011A)
type RegisterTokenAck struct{ empty }

func (*RegisterTokenAck) ID() MessageID { return MsgRegisterTokenAck }

// RegisterTokenReject (0x011B)
type RegisterTokenReject struct {
	WaitTime uint32
}

func (*RegisterTokenReject) ID() MessageID      { return MsgRegisterTokenReject }
func (m *RegisterTokenReject) encode(w *writer) { w.u32(m.WaitTime) }
func (m *RegisterTokenReject) decode(r *reader) { m.WaitTime = r.u32() }

// FeatureStat (0x011F)
type FeatureStat struct {
	Instance  uint32
	FeatureID uint32
	Label     string
	Status    uint32
}

func (*FeatureStat) ID() MessageID { return MsgFeatureStat }

func (m *FeatureStat) encode(w *writer) {
	w.u32(m.Instance)
	w.u32(m.FeatureID)
	w.str(m.Label, NameSize)
	w.u32(m.Status)
}

func (m *FeatureStat) decode(r *reader) {
	m.Instance = r.u32()
	m.FeatureID = r.u32()
	m.Label = r.str(NameSize)
	m.Status = r.u32()
}

// ServiceURLStat (0x012F)
type ServiceURLStat struct {
	Index uint32
	URL   string
	Label string
}

func (*ServiceURLStat) ID() MessageID { return MsgServiceURLStat }

func (m *ServiceURLStat) encode(w *writer) {
	w.u32(m.Index)
	w.str(m.URL, ServiceURLSize)
	w.str(m.Label, NameSize)
}

func (m *ServiceURLStat) decode(r *reader) {
	m.Index = r.u32()
	m.URL = r.str(ServiceURLSize)
	m.Label = r.str(NameSize)
}
