package protocol

// factories maps every known message id to a constructor for an empty
// record. Ids not listed here decode to *Unrecognized.
var factories = map[MessageID]func() Message{
	MsgKeepAlive:                 func() Message { return &KeepAlive{} },
	MsgRegister:                  func() Message { return &Register{} },
	MsgIpPort:                    func() Message { return &IpPort{} },
	MsgKeypadButton:              func() Message { return &KeypadButton{} },
	MsgEnblocCall:                func() Message { return &EnblocCall{} },
	MsgStimulus:                  func() Message { return &StimulusMsg{} },
	MsgOffHook:                   func() Message { return &OffHook{} },
	MsgOnHook:                    func() Message { return &OnHook{} },
	MsgHookFlash:                 func() Message { return &HookFlash{} },
	MsgForwardStatReq:            func() Message { return &ForwardStatReq{} },
	MsgSpeedDialStatReq:          func() Message { return &SpeedDialStatReq{} },
	MsgLineStatReq:               func() Message { return &LineStatReq{} },
	MsgConfigStatReq:             func() Message { return &ConfigStatReq{} },
	MsgTimeDateReq:               func() Message { return &TimeDateReq{} },
	MsgButtonTemplateReq:         func() Message { return &ButtonTemplateReq{} },
	MsgVersionReq:                func() Message { return &VersionReq{} },
	MsgCapabilitiesRes:           func() Message { return &CapabilitiesRes{} },
	MsgServerReq:                 func() Message { return &ServerReq{} },
	MsgAlarm:                     func() Message { return &Alarm{} },
	MsgOpenReceiveChannelAck:     func() Message { return &OpenReceiveChannelAck{} },
	MsgConnectionStatisticsRes:   func() Message { return &ConnectionStatisticsRes{} },
	MsgOffHookWithCgpn:           func() Message { return &OffHookWithCgpn{} },
	MsgSoftKeySetReq:             func() Message { return &SoftKeySetReq{} },
	MsgSoftKeyEvent:              func() Message { return &SoftKeyEvent{} },
	MsgUnregister:                func() Message { return &Unregister{} },
	MsgSoftKeyTemplateReq:        func() Message { return &SoftKeyTemplateReq{} },
	MsgRegisterTokenReq:          func() Message { return &RegisterTokenReq{} },
	MsgHeadsetStatus:             func() Message { return &HeadsetStatus{} },
	MsgRegisterAvailableLines:    func() Message { return &RegisterAvailableLines{} },
	MsgUpdateCapabilities:        func() Message { return &UpdateCapabilities{} },
	MsgServiceURLStatReq:         func() Message { return &ServiceURLStatReq{} },
	MsgFeatureStatReq:            func() Message { return &FeatureStatReq{} },
	MsgAccessoryStatus:           func() Message { return &AccessoryStatus{} },
	MsgStartMediaTransmissionAck: func() Message { return &StartMediaTransmissionAck{} },

	MsgRegisterAck:             func() Message { return &RegisterAck{} },
	MsgStartTone:               func() Message { return &StartTone{} },
	MsgStopTone:                func() Message { return &StopTone{} },
	MsgSetRinger:               func() Message { return &SetRinger{} },
	MsgSetLamp:                 func() Message { return &SetLamp{} },
	MsgSetSpeakerMode:          func() Message { return &SetSpeakerMode{} },
	MsgSetMicroMode:            func() Message { return &SetMicroMode{} },
	MsgStartMediaTransmission:  func() Message { return &StartMediaTransmission{} },
	MsgStopMediaTransmission:   func() Message { return &StopMediaTransmission{} },
	MsgCallInfo:                func() Message { return &CallInfo{} },
	MsgForwardStat:             func() Message { return &ForwardStat{} },
	MsgSpeedDialStat:           func() Message { return &SpeedDialStat{} },
	MsgLineStat:                func() Message { return &LineStat{} },
	MsgConfigStat:              func() Message { return &ConfigStat{} },
	MsgDefineTimeDate:          func() Message { return &DefineTimeDate{} },
	MsgButtonTemplate:          func() Message { return &ButtonTemplate{} },
	MsgVersion:                 func() Message { return &Version{} },
	MsgDisplayText:             func() Message { return &DisplayText{} },
	MsgClearDisplay:            func() Message { return &ClearDisplay{} },
	MsgCapabilitiesReq:         func() Message { return &CapabilitiesReq{} },
	MsgRegisterReject:          func() Message { return &RegisterReject{} },
	MsgServerRes:               func() Message { return &ServerRes{} },
	MsgReset:                   func() Message { return &Reset{} },
	MsgKeepAliveAck:            func() Message { return &KeepAliveAck{} },
	MsgOpenReceiveChannel:      func() Message { return &OpenReceiveChannel{} },
	MsgCloseReceiveChannel:     func() Message { return &CloseReceiveChannel{} },
	MsgConnectionStatisticsReq: func() Message { return &ConnectionStatisticsReq{} },
	MsgSoftKeyTemplateRes:      func() Message { return &SoftKeyTemplateRes{} },
	MsgSoftKeySetRes:           func() Message { return &SoftKeySetRes{} },
	MsgSelectSoftKeys:          func() Message { return &SelectSoftKeys{} },
	MsgCallState:               func() Message { return &CallStateMsg{} },
	MsgDisplayPromptStatus:     func() Message { return &DisplayPromptStatus{} },
	MsgClearPromptStatus:       func() Message { return &ClearPromptStatus{} },
	MsgDisplayNotify:           func() Message { return &DisplayNotify{} },
	MsgClearNotify:             func() Message { return &ClearNotify{} },
	MsgActivateCallPlane:       func() Message { return &ActivateCallPlane{} },
	MsgDeactivateCallPlane:     func() Message { return &DeactivateCallPlane{} },
	MsgUnregisterAck:           func() Message { return &UnregisterAck{} },
	MsgBackSpaceReq:            func() Message { return &BackSpaceReq{} },
	MsgRegisterTokenAck:        func() Message { return &RegisterTokenAck{} },
	MsgRegisterTokenReject:     func() Message { return &RegisterTokenReject{} },
	MsgDialedNumber:            func() Message { return &DialedNumber{} },
	MsgFeatureStat:             func() Message { return &FeatureStat{} },
	MsgDisplayPriNotify:        func() Message { return &DisplayPriNotify{} },
	MsgClearPriNotify:          func() Message { return &ClearPriNotify{} },
	MsgServiceURLStat:          func() Message { return &ServiceURLStat{} },
	MsgCallSelectStat:          func() Message { return &CallSelectStat{} },
}

// newMessage returns an empty record for id, or *Unrecognized.
func newMessage(id MessageID) Message {
	if f, ok := factories[id]; ok {
		return f()
	}
	return &Unrecognized{MsgID: id}
}

// Known reports whether id has a registered layout.
func Known(id MessageID) bool {
	_, ok := factories[id]
	return ok
}

// KnownIDs returns every registered message id.
func KnownIDs() []MessageID {
	ids := make([]MessageID, 0, len(factories))
	for id := range factories {
		ids = append(ids, id)
	}
	return ids
}
