package protocol

import "fmt"

// MessageID is the 32-bit message identifier carried in every frame header.
type MessageID uint32

// Station to server messages
const (
	MsgKeepAlive               MessageID = 0x0000
	MsgRegister                MessageID = 0x0001
	MsgIpPort                  MessageID = 0x0002
	MsgKeypadButton            MessageID = 0x0003
	MsgEnblocCall              MessageID = 0x0004
	MsgStimulus                MessageID = 0x0005
	MsgOffHook                 MessageID = 0x0006
	MsgOnHook                  MessageID = 0x0007
	MsgHookFlash               MessageID = 0x0008
	MsgForwardStatReq          MessageID = 0x0009
	MsgSpeedDialStatReq        MessageID = 0x000A
	MsgLineStatReq             MessageID = 0x000B
	MsgConfigStatReq           MessageID = 0x000C
	MsgTimeDateReq             MessageID = 0x000D
	MsgButtonTemplateReq       MessageID = 0x000E
	MsgVersionReq              MessageID = 0x000F
	MsgCapabilitiesRes         MessageID = 0x0010
	MsgServerReq               MessageID = 0x0012
	MsgAlarm                   MessageID = 0x0020
	MsgOpenReceiveChannelAck   MessageID = 0x0022
	MsgConnectionStatisticsRes MessageID = 0x0023
	MsgOffHookWithCgpn         MessageID = 0x0024
	MsgSoftKeySetReq           MessageID = 0x0025
	MsgSoftKeyEvent            MessageID = 0x0026
	MsgUnregister              MessageID = 0x0027
	MsgSoftKeyTemplateReq      MessageID = 0x0028
	MsgRegisterTokenReq        MessageID = 0x0029
	MsgHeadsetStatus           MessageID = 0x002B
	MsgRegisterAvailableLines  MessageID = 0x002D
	MsgUpdateCapabilities      MessageID = 0x0030
	MsgServiceURLStatReq       MessageID = 0x0033
	MsgFeatureStatReq          MessageID = 0x0034
	MsgAccessoryStatus         MessageID = 0x0049

	MsgStartMediaTransmissionAck MessageID = 0x0154
)

// Server to station messages
const (
	MsgRegisterAck             MessageID = 0x0081
	MsgStartTone               MessageID = 0x0082
	MsgStopTone                MessageID = 0x0083
	MsgSetRinger               MessageID = 0x0085
	MsgSetLamp                 MessageID = 0x0086
	MsgSetSpeakerMode          MessageID = 0x0088
	MsgSetMicroMode            MessageID = 0x0089
	MsgStartMediaTransmission  MessageID = 0x008A
	MsgStopMediaTransmission   MessageID = 0x008B
	MsgCallInfo                MessageID = 0x008F
	MsgForwardStat             MessageID = 0x0090
	MsgSpeedDialStat           MessageID = 0x0091
	MsgLineStat                MessageID = 0x0092
	MsgConfigStat              MessageID = 0x0093
	MsgDefineTimeDate          MessageID = 0x0094
	MsgButtonTemplate          MessageID = 0x0097
	MsgVersion                 MessageID = 0x0098
	MsgDisplayText             MessageID = 0x0099
	MsgClearDisplay            MessageID = 0x009A
	MsgCapabilitiesReq         MessageID = 0x009B
	MsgRegisterReject          MessageID = 0x009D
	MsgServerRes               MessageID = 0x009E
	MsgReset                   MessageID = 0x009F
	MsgKeepAliveAck            MessageID = 0x0100
	MsgOpenReceiveChannel      MessageID = 0x0105
	MsgCloseReceiveChannel     MessageID = 0x0106
	MsgConnectionStatisticsReq MessageID = 0x0107
	MsgSoftKeyTemplateRes      MessageID = 0x0108
	MsgSoftKeySetRes           MessageID = 0x0109
	MsgSelectSoftKeys          MessageID = 0x0110
	MsgCallState               MessageID = 0x0111
	MsgDisplayPromptStatus     MessageID = 0x0112
	MsgClearPromptStatus       MessageID = 0x0113
	MsgDisplayNotify           MessageID = 0x0114
	MsgClearNotify             MessageID = 0x0115
	MsgActivateCallPlane       MessageID = 0x0116
	MsgDeactivateCallPlane     MessageID = 0x0117
	MsgUnregisterAck           MessageID = 0x0118
	MsgBackSpaceReq            MessageID = 0x0119
	MsgRegisterTokenAck        MessageID = 0x011A
	MsgRegisterTokenReject     MessageID = 0x011B
	MsgDialedNumber            MessageID = 0x011D
	MsgFeatureStat             MessageID = 0x011F
	MsgDisplayPriNotify        MessageID = 0x0120
	MsgClearPriNotify          MessageID = 0x0121
	MsgServiceURLStat          MessageID = 0x012F
	MsgCallSelectStat          MessageID = 0x0130
)

var messageNames = map[MessageID]string{
	MsgKeepAlive:                 "KeepAliveMessage",
	MsgRegister:                  "RegisterMessage",
	MsgIpPort:                    "IpPortMessage",
	MsgKeypadButton:              "KeypadButtonMessage",
	MsgEnblocCall:                "EnblocCallMessage",
	MsgStimulus:                  "StimulusMessage",
	MsgOffHook:                   "OffHookMessage",
	MsgOnHook:                    "OnHookMessage",
	MsgHookFlash:                 "HookFlashMessage",
	MsgForwardStatReq:            "ForwardStatReqMessage",
	MsgSpeedDialStatReq:          "SpeedDialStatReqMessage",
	MsgLineStatReq:               "LineStatReqMessage",
	MsgConfigStatReq:             "ConfigStatReqMessage",
	MsgTimeDateReq:               "TimeDateReqMessage",
	MsgButtonTemplateReq:         "ButtonTemplateReqMessage",
	MsgVersionReq:                "VersionReqMessage",
	MsgCapabilitiesRes:           "CapabilitiesResMessage",
	MsgServerReq:                 "ServerReqMessage",
	MsgAlarm:                     "AlarmMessage",
	MsgOpenReceiveChannelAck:     "OpenReceiveChannelAck",
	MsgConnectionStatisticsRes:   "ConnectionStatisticsRes",
	MsgOffHookWithCgpn:           "OffHookWithCgpnMessage",
	MsgSoftKeySetReq:             "SoftKeySetReqMessage",
	MsgSoftKeyEvent:              "SoftKeyEventMessage",
	MsgUnregister:                "UnregisterMessage",
	MsgSoftKeyTemplateReq:        "SoftKeyTemplateReqMessage",
	MsgRegisterTokenReq:          "RegisterTokenReq",
	MsgHeadsetStatus:             "HeadsetStatusMessage",
	MsgRegisterAvailableLines:    "RegisterAvailableLinesMessage",
	MsgUpdateCapabilities:        "UpdateCapabilitiesMessage",
	MsgServiceURLStatReq:         "ServiceURLStatReqMessage",
	MsgFeatureStatReq:            "FeatureStatReqMessage",
	MsgAccessoryStatus:           "AccessoryStatusMessage",
	MsgStartMediaTransmissionAck: "StartMediaTransmissionAck",

	MsgRegisterAck:             "RegisterAckMessage",
	MsgStartTone:               "StartToneMessage",
	MsgStopTone:                "StopToneMessage",
	MsgSetRinger:               "SetRingerMessage",
	MsgSetLamp:                 "SetLampMessage",
	MsgSetSpeakerMode:          "SetSpeakerModeMessage",
	MsgSetMicroMode:            "SetMicroModeMessage",
	MsgStartMediaTransmission:  "StartMediaTransmission",
	MsgStopMediaTransmission:   "StopMediaTransmission",
	MsgCallInfo:                "CallInfoMessage",
	MsgForwardStat:             "ForwardStatMessage",
	MsgSpeedDialStat:           "SpeedDialStatMessage",
	MsgLineStat:                "LineStatMessage",
	MsgConfigStat:              "ConfigStatMessage",
	MsgDefineTimeDate:          "DefineTimeDate",
	MsgButtonTemplate:          "ButtonTemplateMessage",
	MsgVersion:                 "VersionMessage",
	MsgDisplayText:             "DisplayTextMessage",
	MsgClearDisplay:            "ClearDisplay",
	MsgCapabilitiesReq:         "CapabilitiesReqMessage",
	MsgRegisterReject:          "RegisterRejectMessage",
	MsgServerRes:               "ServerResMessage",
	MsgReset:                   "Reset",
	MsgKeepAliveAck:            "KeepAliveAckMessage",
	MsgOpenReceiveChannel:      "OpenReceiveChannel",
	MsgCloseReceiveChannel:     "CloseReceiveChannel",
	MsgConnectionStatisticsReq: "ConnectionStatisticsReq",
	MsgSoftKeyTemplateRes:      "SoftKeyTemplateResMessage",
	MsgSoftKeySetRes:           "SoftKeySetResMessage",
	MsgSelectSoftKeys:          "SelectSoftKeysMessage",
	MsgCallState:               "CallStateMessage",
	MsgDisplayPromptStatus:     "DisplayPromptStatusMessage",
	MsgClearPromptStatus:       "ClearPromptStatusMessage",
	MsgDisplayNotify:           "DisplayNotifyMessage",
	MsgClearNotify:             "ClearNotifyMessage",
	MsgActivateCallPlane:       "ActivateCallPlaneMessage",
	MsgDeactivateCallPlane:     "DeactivateCallPlaneMessage",
	MsgUnregisterAck:           "UnregisterAckMessage",
	MsgBackSpaceReq:            "BackSpaceReqMessage",
	MsgRegisterTokenAck:        "RegisterTokenAck",
	MsgRegisterTokenReject:     "RegisterTokenReject",
	MsgDialedNumber:            "DialedNumberMessage",
	MsgFeatureStat:             "FeatureStatMessage",
	MsgDisplayPriNotify:        "DisplayPriNotifyMessage",
	MsgClearPriNotify:          "ClearPriNotifyMessage",
	MsgServiceURLStat:          "ServiceURLStatMessage",
	MsgCallSelectStat:          "CallSelectStatMessage",
}

// String returns the protocol name of the message id.
func (id MessageID) String() string {
	if name, ok := messageNames[id]; ok {
		return name
	}
	return fmt.Sprintf("UnknownMessage(0x%04X)", uint32(id))
}
