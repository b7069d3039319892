package protocol

import "fmt"

// StartTone (0x0082)
type StartTone struct {
	Tone          Tone
	Timeout       uint32
	LineInstance  uint32
	CallReference uint32
}

func (*StartTone) ID() MessageID { return MsgStartTone }

func (m *StartTone) encode(w *writer) {
	w.u32(uint32(m.Tone))
	w.u32(m.Timeout)
	w.u32(m.LineInstance)
	w.u32(m.CallReference)
}

func (m *StartTone) decode(r *reader) {
	m.Tone = Tone(r.u32())
	m.Timeout = r.u32()
	m.LineInstance = r.u32()
	m.CallReference = r.u32()
}

// StopTone (0x0083)
type StopTone struct {
	LineInstance  uint32
	CallReference uint32
}

func (*StopTone) ID() MessageID { return MsgStopTone }

func (m *StopTone) encode(w *writer) {
	w.u32(m.LineInstance)
	w.u32(m.CallReference)
	w.zero(4)
}

func (m *StopTone) decode(r *reader) {
	m.LineInstance = r.u32()
	m.CallReference = r.u32()
	r.skip(4)
}

// SetRinger (0x0085). Duration 1 rings once, 2 rings continuously.
type SetRinger struct {
	Mode          RingMode
	Duration      uint32
	LineInstance  uint32
	CallReference uint32
}

func (*SetRinger) ID() MessageID { return MsgSetRinger }

func (m *SetRinger) encode(w *writer) {
	w.u32(uint32(m.Mode))
	w.u32(m.Duration)
	w.u32(m.LineInstance)
	w.u32(m.CallReference)
}

func (m *SetRinger) decode(r *reader) {
	m.Mode = RingMode(r.u32())
	m.Duration = r.u32()
	m.LineInstance = r.u32()
	m.CallReference = r.u32()
}

// SetLamp (0x0086)
type SetLamp struct {
	Stimulus Stimulus
	Instance uint32
	Mode     LampMode
}

func (*SetLamp) ID() MessageID { return MsgSetLamp }

func (m *SetLamp) encode(w *writer) {
	w.u32(uint32(m.Stimulus))
	w.u32(m.Instance)
	w.u32(uint32(m.Mode))
}

func (m *SetLamp) decode(r *reader) {
	m.Stimulus = Stimulus(r.u32())
	m.Instance = r.u32()
	m.Mode = LampMode(r.u32())
}

// SetSpeakerMode (0x0088)
type SetSpeakerMode struct {
	Mode uint32
}

func (*SetSpeakerMode) ID() MessageID      { return MsgSetSpeakerMode }
func (m *SetSpeakerMode) encode(w *writer) { w.u32(m.Mode) }
func (m *SetSpeakerMode) decode(r *reader) { m.Mode = r.u32() }

// SetMicroMode (0x0089)
type SetMicroMode struct {
	Mode uint32
}

func (*SetMicroMode) ID() MessageID      { return MsgSetMicroMode }
func (m *SetMicroMode) encode(w *writer) { w.u32(m.Mode) }
func (m *SetMicroMode) decode(r *reader) { m.Mode = r.u32() }

// CallInfo (0x008F) tells the phone who is on the call.
type CallInfo struct {
	CallingPartyName            string
	CallingParty                string
	CalledPartyName             string
	CalledParty                 string
	LineInstance                uint32
	CallReference               uint32
	CallType                    uint32
	OriginalCalledPartyName     string
	OriginalCalledParty         string
	LastRedirectingPartyName    string
	LastRedirectingParty        string
	OriginalCdpnRedirectReason  uint32
	LastRedirectingReason       uint32
	CgpnVoiceMailbox            string
	CdpnVoiceMailbox            string
	OriginalCdpnVoiceMailbox    string
	LastRedirectingVoiceMailbox string
	CallInstance                uint32
	CallSecurityStatus          uint32
	PartyPIRestrictionBits      uint32
}

func (*CallInfo) ID() MessageID { return MsgCallInfo }

func (m *CallInfo) encode(w *writer) {
	w.str(m.CallingPartyName, NameSize)
	w.str(m.CallingParty, DirNumberSize)
	w.str(m.CalledPartyName, NameSize)
	w.str(m.CalledParty, DirNumberSize)
	w.u32(m.LineInstance)
	w.u32(m.CallReference)
	w.u32(m.CallType)
	w.str(m.OriginalCalledPartyName, NameSize)
	w.str(m.OriginalCalledParty, DirNumberSize)
	w.str(m.LastRedirectingPartyName, NameSize)
	w.str(m.LastRedirectingParty, DirNumberSize)
	w.u32(m.OriginalCdpnRedirectReason)
	w.u32(m.LastRedirectingReason)
	w.str(m.CgpnVoiceMailbox, DirNumberSize)
	w.str(m.CdpnVoiceMailbox, DirNumberSize)
	w.str(m.OriginalCdpnVoiceMailbox, DirNumberSize)
	w.str(m.LastRedirectingVoiceMailbox, DirNumberSize)
	w.u32(m.CallInstance)
	w.u32(m.CallSecurityStatus)
	w.u32(m.PartyPIRestrictionBits)
}

func (m *CallInfo) decode(r *reader) {
	m.CallingPartyName = r.str(NameSize)
	m.CallingParty = r.str(DirNumberSize)
	m.CalledPartyName = r.str(NameSize)
	m.CalledParty = r.str(DirNumberSize)
	m.LineInstance = r.u32()
	m.CallReference = r.u32()
	m.CallType = r.u32()
	m.OriginalCalledPartyName = r.str(NameSize)
	m.OriginalCalledParty = r.str(DirNumberSize)
	m.LastRedirectingPartyName = r.str(NameSize)
	m.LastRedirectingParty = r.str(DirNumberSize)
	m.OriginalCdpnRedirectReason = r.u32()
	m.LastRedirectingReason = r.u32()
	m.CgpnVoiceMailbox = r.str(DirNumberSize)
	m.CdpnVoiceMailbox = r.str(DirNumberSize)
	m.OriginalCdpnVoiceMailbox = r.str(DirNumberSize)
	m.LastRedirectingVoiceMailbox = r.str(DirNumberSize)
	m.CallInstance = r.u32()
	m.CallSecurityStatus = r.u32()
	m.PartyPIRestrictionBits = r.u32()
}

func (m *CallInfo) String() string {
	return fmt.Sprintf("CallInfo{line=%d, call=%d, type=%d, calling=%q <%s>, called=%q <%s>}",
		m.LineInstance, m.CallReference, m.CallType,
		m.CallingPartyName, m.CallingParty, m.CalledPartyName, m.CalledParty)
}

// SelectSoftKeys (0x0110)
type SelectSoftKeys struct {
	LineInstance  uint32
	CallReference uint32
	SetIndex      KeySetMode
	ValidKeyMask  uint32
}

func (*SelectSoftKeys) ID() MessageID { return MsgSelectSoftKeys }

func (m *SelectSoftKeys) encode(w *writer) {
	w.u32(m.LineInstance)
	w.u32(m.CallReference)
	w.u32(uint32(m.SetIndex))
	w.u32(m.ValidKeyMask)
}

func (m *SelectSoftKeys) decode(r *reader) {
	m.LineInstance = r.u32()
	m.CallReference = r.u32()
	m.SetIndex = KeySetMode(r.u32())
	m.ValidKeyMask = r.u32()
}

// CallStateMsg (0x0111)
type CallStateMsg struct {
	State         CallState
	LineInstance  uint32
	CallReference uint32
	Visibility    uint32
	Priority      uint32
}

func (*CallStateMsg) ID() MessageID { return MsgCallState }

func (m *CallStateMsg) encode(w *writer) {
	w.u32(uint32(m.State))
	w.u32(m.LineInstance)
	w.u32(m.CallReference)
	w.u32(m.Visibility)
	w.u32(m.Priority)
	w.zero(4)
}

func (m *CallStateMsg) decode(r *reader) {
	m.State = CallState(r.u32())
	m.LineInstance = r.u32()
	m.CallReference = r.u32()
	m.Visibility = r.u32()
	m.Priority = r.u32()
	r.skip(4)
}

func (m *CallStateMsg) String() string {
	return fmt.Sprintf("CallState{state=%s, line=%d, call=%d}", m.State, m.LineInstance, m.CallReference)
}

// DisplayPromptStatus (0x0112)
type DisplayPromptStatus struct {
	Timeout       uint32
	Text          string
	LineInstance  uint32
	CallReference uint32
}

func (*DisplayPromptStatus) ID() MessageID { return MsgDisplayPromptStatus }

func (m *DisplayPromptStatus) encode(w *writer) {
	w.u32(m.Timeout)
	w.str(m.Text, DisplayTextSize)
	w.u32(m.LineInstance)
	w.u32(m.CallReference)
}

func (m *DisplayPromptStatus) decode(r *reader) {
	m.Timeout = r.u32()
	m.Text = r.str(DisplayTextSize)
	m.LineInstance = r.u32()
	m.CallReference = r.u32()
}

// ClearPromptStatus (0x0113)
type ClearPromptStatus struct {
	LineInstance  uint32
	CallReference uint32
}

func (*ClearPromptStatus) ID() MessageID { return MsgClearPromptStatus }

func (m *ClearPromptStatus) encode(w *writer) {
	w.u32(m.LineInstance)
	w.u32(m.CallReference)
}

func (m *ClearPromptStatus) decode(r *reader) {
	m.LineInstance = r.u32()
	m.CallReference = r.u32()
}

// DisplayNotify (0x0114)
type DisplayNotify struct {
	Timeout uint32
	Text    string
}

func (*DisplayNotify) ID() MessageID { return MsgDisplayNotify }

func (m *DisplayNotify) encode(w *writer) {
	w.u32(m.Timeout)
	w.str(m.Text, DisplayTextSize)
}

func (m *DisplayNotify) decode(r *reader) {
	m.Timeout = r.u32()
	m.Text = r.str(DisplayTextSize)
}

// ClearNotify (0x0115)
type ClearNotify struct{ empty }

func (*ClearNotify) ID() MessageID { return MsgClearNotify }

// ActivateCallPlane (0x0116)
type ActivateCallPlane struct {
	LineInstance uint32
}

func (*ActivateCallPlane) ID() MessageID      { return MsgActivateCallPlane }
func (m *ActivateCallPlane) encode(w *writer) { w.u32(m.LineInstance) }
func (m *ActivateCallPlane) decode(r *reader) { m.LineInstance = r.u32() }

// DeactivateCallPlane (0x0117)
type DeactivateCallPlane struct{ empty }

func (*DeactivateCallPlane) ID() MessageID { return MsgDeactivateCallPlane }

// BackSpaceReq (0x0119) removes the last dialed digit from the display.
type BackSpaceReq struct {
	LineInstance  uint32
	CallReference uint32
}

func (*BackSpaceReq) ID() MessageID { return MsgBackSpaceReq }

func (m *BackSpaceReq) encode(w *writer) {
	w.u32(m.LineInstance)
	w.u32(m.CallReference)
}

func (m *BackSpaceReq) decode(r *reader) {
	m.LineInstance = r.u32()
	m.CallReference = r.u32()
}

// DialedNumber (0x011D) echoes the number being called.
type DialedNumber struct {
	CalledParty   string
	LineInstance  uint32
	CallReference uint32
}

func (*DialedNumber) ID() MessageID { return MsgDialedNumber }

func (m *DialedNumber) encode(w *writer) {
	w.str(m.CalledParty, DirNumberSize)
	w.u32(m.LineInstance)
	w.u32(m.CallReference)
}

func (m *DialedNumber) decode(r *reader) {
	m.CalledParty = r.str(DirNumberSize)
	m.LineInstance = r.u32()
	m.CallReference = r.u32()
}

// DisplayPriNotify (0x0120)
type DisplayPriNotify struct {
	Timeout  uint32
	Priority uint32
	Text     string
}

func (*DisplayPriNotify) ID() MessageID { return MsgDisplayPriNotify }

func (m *DisplayPriNotify) encode(w *writer) {
	w.u32(m.Timeout)
	w.u32(m.Priority)
	w.str(m.Text, DisplayTextSize)
}

func (m *DisplayPriNotify) decode(r *reader) {
	m.Timeout = r.u32()
	m.Priority = r.u32()
	m.Text = r.str(DisplayTextSize)
}

// ClearPriNotify (0x0121)
type ClearPriNotify struct {
	Priority uint32
}

func (*ClearPriNotify) ID() MessageID      { return MsgClearPriNotify }
func (m *ClearPriNotify) encode(w *writer) { w.u32(m.Priority) }
func (m *ClearPriNotify) decode(r *reader) { m.Priority = r.u32() }

// CallSelectStat (0x0130)
type CallSelectStat struct {
	Status        uint32
	CallReference uint32
	LineInstance  uint32
}

func (*CallSelectStat) ID() MessageID { return MsgCallSelectStat }

func (m *CallSelectStat) encode(w *writer) {
	w.u32(m.Status)
	w.u32(m.CallReference)
	w.u32(m.LineInstance)
}

func (m *CallSelectStat) decode(r *reader) {
	m.Status = r.u32()
	m.CallReference = r.u32()
	m.LineInstance = r.u32()
}
