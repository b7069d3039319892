package protocol

// CallState is the call state value carried by CallStateMessage.
type CallState uint32

const (
	CallStateOffHook             CallState = 1
	CallStateOnHook              CallState = 2
	CallStateRingOut             CallState = 3
	CallStateRingIn              CallState = 4
	CallStateConnected           CallState = 5
	CallStateBusy                CallState = 6
	CallStateCongestion          CallState = 7
	CallStateHold                CallState = 8
	CallStateCallWaiting         CallState = 9
	CallStateCallTransfer        CallState = 10
	CallStateCallPark            CallState = 11
	CallStateProceed             CallState = 12
	CallStateCallRemoteMultiline CallState = 13
	CallStateInvalidNumber       CallState = 14
)

var callStateNames = map[CallState]string{
	CallStateOffHook:             "OffHook",
	CallStateOnHook:              "OnHook",
	CallStateRingOut:             "RingOut",
	CallStateRingIn:              "RingIn",
	CallStateConnected:           "Connected",
	CallStateBusy:                "Busy",
	CallStateCongestion:          "Congestion",
	CallStateHold:                "Hold",
	CallStateCallWaiting:         "CallWaiting",
	CallStateCallTransfer:        "CallTransfer",
	CallStateCallPark:            "CallPark",
	CallStateProceed:             "Proceed",
	CallStateCallRemoteMultiline: "CallRemoteMultiline",
	CallStateInvalidNumber:       "InvalidNumber",
}

func (s CallState) String() string {
	if name, ok := callStateNames[s]; ok {
		return name
	}
	return "CallState(?)"
}

// Tone values for StartToneMessage.
type Tone uint32

const (
	ToneSilence          Tone = 0x00
	ToneInsideDialTone   Tone = 0x21
	ToneOutsideDialTone  Tone = 0x22
	ToneLineBusyTone     Tone = 0x23
	ToneAlertingTone     Tone = 0x24
	ToneReorderTone      Tone = 0x25
	ToneCallWaitingTone  Tone = 0x2D
	ToneConfirmationTone Tone = 0x2E
	ToneZipZip           Tone = 0x31
	ToneZip              Tone = 0x32
	ToneBeepBonk         Tone = 0x33
	ToneHoldTone         Tone = 0x35
	ToneNoTone           Tone = 0x7F
)

// LampMode values for SetLampMessage.
type LampMode uint32

const (
	LampOff   LampMode = 1
	LampOn    LampMode = 2
	LampWink  LampMode = 3
	LampFlash LampMode = 4
	LampBlink LampMode = 5
)

// RingMode values for SetRingerMessage.
type RingMode uint32

const (
	RingOff     RingMode = 1
	RingInside  RingMode = 2
	RingOutside RingMode = 3
	RingFeature RingMode = 4
)

// Speaker and microphone modes.
const (
	SpeakerOn  uint32 = 1
	SpeakerOff uint32 = 2
	MicOn      uint32 = 1
	MicOff     uint32 = 2
)

// ButtonType is the button definition byte in ButtonTemplateMessage.
type ButtonType uint8

const (
	ButtonUnused           ButtonType = 0x00
	ButtonLastNumberRedial ButtonType = 0x01
	ButtonSpeedDial        ButtonType = 0x02
	ButtonHold             ButtonType = 0x03
	ButtonTransfer         ButtonType = 0x04
	ButtonForwardAll       ButtonType = 0x05
	ButtonForwardBusy      ButtonType = 0x06
	ButtonForwardNoAnswer  ButtonType = 0x07
	ButtonDisplay          ButtonType = 0x08
	ButtonLine             ButtonType = 0x09
	ButtonVoicemail        ButtonType = 0x0F
	ButtonFeature          ButtonType = 0x13
	ButtonServiceURL       ButtonType = 0x14
	ButtonKeypad           ButtonType = 0xF0
	ButtonUndefined        ButtonType = 0xFF
)

// Stimulus values for StimulusMessage and SetLampMessage.
type Stimulus uint32

const (
	StimulusLastNumberRedial Stimulus = 0x01
	StimulusSpeedDial        Stimulus = 0x02
	StimulusHold             Stimulus = 0x03
	StimulusTransfer         Stimulus = 0x04
	StimulusForwardAll       Stimulus = 0x05
	StimulusForwardBusy      Stimulus = 0x06
	StimulusForwardNoAnswer  Stimulus = 0x07
	StimulusDisplay          Stimulus = 0x08
	StimulusLine             Stimulus = 0x09
	StimulusVoicemail        Stimulus = 0x0F
	StimulusAutoAnswer       Stimulus = 0x11
	StimulusFeature          Stimulus = 0x13
	StimulusServiceURL       Stimulus = 0x14
	StimulusMeetMe           Stimulus = 0x7B
	StimulusConference       Stimulus = 0x7D
	StimulusCallPark         Stimulus = 0x7E
	StimulusCallPickup       Stimulus = 0x7F
	StimulusGroupCallPickup  Stimulus = 0x80
)

// KeypadButton values. Digits 1-9 map to themselves.
const (
	KeypadZero  uint32 = 0x0A
	KeypadStar  uint32 = 0x0E
	KeypadPound uint32 = 0x0F
)

// KeypadDigit converts a keypad button code to its dial character.
// ok is false for codes that are not dial keys.
func KeypadDigit(button uint32) (c byte, ok bool) {
	switch {
	case button >= 1 && button <= 9:
		return byte('0' + button), true
	case button == KeypadZero:
		return '0', true
	case button == KeypadStar:
		return '*', true
	case button == KeypadPound:
		return '#', true
	}
	return 0, false
}

// KeySetMode selects the softkey set shown by SelectSoftKeysMessage.
type KeySetMode uint32

const (
	KeySetOnHook      KeySetMode = 0
	KeySetConnected   KeySetMode = 1
	KeySetOnHold      KeySetMode = 2
	KeySetRingIn      KeySetMode = 3
	KeySetOffHook     KeySetMode = 4
	KeySetConnTrans   KeySetMode = 5
	KeySetDigitsFoll  KeySetMode = 6
	KeySetConnConf    KeySetMode = 7
	KeySetRingOut     KeySetMode = 8
	KeySetOffHookFeat KeySetMode = 9
	KeySetInUseHint   KeySetMode = 10
)

// CallType values for CallInfoMessage.
const (
	CallTypeInbound  uint32 = 1
	CallTypeOutbound uint32 = 2
	CallTypeForward  uint32 = 3
)

// Reset types for ResetMessage.
const (
	ResetHard    uint32 = 1
	ResetRestart uint32 = 2
)

// Unregister status values.
const (
	UnregisterOK    uint32 = 0
	UnregisterError uint32 = 1
	UnregisterNAK   uint32 = 2
)

// Forward status values.
const (
	ForwardInactive uint32 = 0
	ForwardActive   uint32 = 1
)

// Media payload types used in capability exchange and media setup.
type Codec uint32

const (
	CodecG711Alaw64k Codec = 2
	CodecG711Alaw56k Codec = 3
	CodecG711Ulaw64k Codec = 4
	CodecG711Ulaw56k Codec = 5
	CodecG722_64k    Codec = 6
	CodecG723_1      Codec = 9
	CodecG729        Codec = 11
	CodecG729A       Codec = 12
	CodecG729B       Codec = 15
	CodecG729AB      Codec = 16
	CodecWideband256 Codec = 25
)

// Alarm severities.
const (
	AlarmCritical      uint32 = 0
	AlarmWarning       uint32 = 1
	AlarmInformational uint32 = 2
	AlarmUnknown       uint32 = 4
	AlarmMajor         uint32 = 7
	AlarmMinor         uint32 = 8
	AlarmMarginal      uint32 = 10
	AlarmTraceInfo     uint32 = 20
)

// Device types reported in RegisterMessage.
const (
	DeviceType7910           uint32 = 6
	DeviceType7960           uint32 = 7
	DeviceType7940           uint32 = 8
	DeviceType7935           uint32 = 9
	DeviceTypeATA186         uint32 = 12
	DeviceType7941           uint32 = 115
	DeviceType7971           uint32 = 119
	DeviceType7914           uint32 = 124
	DeviceType7911           uint32 = 307
	DeviceType7961GE         uint32 = 308
	DeviceType7941GE         uint32 = 309
	DeviceType7921           uint32 = 365
	DeviceType7906           uint32 = 369
	DeviceType7962           uint32 = 404
	DeviceType7942           uint32 = 434
	DeviceType7945           uint32 = 435
	DeviceType7965           uint32 = 436
	DeviceType7975           uint32 = 437
	DeviceType7905           uint32 = 20000
	DeviceType7920           uint32 = 30002
	DeviceType7970           uint32 = 30006
	DeviceType7912           uint32 = 30007
	DeviceType7902           uint32 = 30008
	DeviceTypeIPCommunicator uint32 = 30016
	DeviceType7961           uint32 = 30018
	DeviceType7936           uint32 = 30019
	DeviceTypeGatewayAnalog  uint32 = 30027
)

// Softkey event values. A SoftKeyEventMessage carries the 1-based index of
// the softkey in SoftKeyTemplate, so the order here is wire-visible.
type SoftKey uint32

const (
	SoftKeyRedial SoftKey = iota + 1
	SoftKeyNewCall
	SoftKeyHold
	SoftKeyTransfer
	SoftKeyCfwdAll
	SoftKeyCfwdBusy
	SoftKeyCfwdNoAnswer
	SoftKeyBackspace
	SoftKeyEndCall
	SoftKeyResume
	SoftKeyAnswer
	SoftKeyInfo
	SoftKeyConfrn
	SoftKeyPark
	SoftKeyJoin
	SoftKeyMeetMe
	SoftKeyPickup
	SoftKeyGPickup
	SoftKeyRmLstC
	SoftKeyCallback
	SoftKeyBarge
	SoftKeyDND
	SoftKeyAcct
	SoftKeyFlash
	SoftKeyLogin
	SoftKeyHLog
	SoftKeyConfList
	SoftKeySelect
	SoftKeyPrivate
	SoftKeyTrnsfVM
	SoftKeyDirTrfr
	SoftKeyIDivert
)

// SoftKeyCount is the number of softkeys in the template.
const SoftKeyCount = int(SoftKeyIDivert)

// softKeyLabels maps each softkey to the phone's built-in label id.
var softKeyLabels = [SoftKeyCount]uint8{
	101, 102, 103, 104, 105, 106, 107, 108, 109, 110, 111, 112, 113, 114, 115, 116,
	117, 118, 157, 165, 167, 163, 171, 172, 173, 0, 179, 178, 154, 162, 177, 180,
}

// Label returns the two-byte template label ("\x80" + label id) that makes
// the phone render its localized text for k.
func (k SoftKey) Label() string {
	if k < 1 || int(k) > SoftKeyCount {
		return ""
	}
	return string([]byte{0x80, softKeyLabels[k-1]})
}
