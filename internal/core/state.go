package core

import (
	"fmt"

	"github.com/muurk/sccpd/internal/sccperr"
)

// DeviceState is the registration state of a phone.
type DeviceState int

const (
	DeviceUnknown DeviceState = iota
	DeviceTokenPending
	DeviceRegistering
	DeviceRegistered
	DeviceUnregistering
	DeviceUnregistered
)

var deviceStateNames = [...]string{
	DeviceUnknown:       "Unknown",
	DeviceTokenPending:  "TokenPending",
	DeviceRegistering:   "RegistrationInProgress",
	DeviceRegistered:    "Registered",
	DeviceUnregistering: "Unregistering",
	DeviceUnregistered:  "Unregistered",
}

func (s DeviceState) String() string {
	if s >= 0 && int(s) < len(deviceStateNames) {
		return deviceStateNames[s]
	}
	return fmt.Sprintf("DeviceState(%d)", int(s))
}

// ChannelState is the internal call state. It is a superset of the wire
// call states; see indicate.go for the translation.
type ChannelState int

const (
	StateDown ChannelState = iota
	StateOffHook
	StateGetDigits
	StateDialing
	StateProceed
	StateRingOut
	StateRingIn
	StateConnected
	StateHold
	StateCallWaiting
	StateCallTransfer
	StateCallPark
	StateBusy
	StateCongestion
	StateInvalidNumber
)

var channelStateNames = [...]string{
	StateDown:          "Down",
	StateOffHook:       "OffHook",
	StateGetDigits:     "GetDigits",
	StateDialing:       "Dialing",
	StateProceed:       "Proceed",
	StateRingOut:       "RingOut",
	StateRingIn:        "RingIn",
	StateConnected:     "Connected",
	StateHold:          "Hold",
	StateCallWaiting:   "CallWaiting",
	StateCallTransfer:  "CallTransfer",
	StateCallPark:      "CallPark",
	StateBusy:          "Busy",
	StateCongestion:    "Congestion",
	StateInvalidNumber: "InvalidNumber",
}

func (s ChannelState) String() string {
	if s >= 0 && int(s) < len(channelStateNames) {
		return channelStateNames[s]
	}
	return fmt.Sprintf("ChannelState(%d)", int(s))
}

// transitions lists the allowed successor states. Down is reachable from
// every other state and is added by canTransition.
var transitions = map[ChannelState][]ChannelState{
	StateDown:          {StateOffHook, StateRingIn, StateCallWaiting},
	StateOffHook:       {StateGetDigits, StateDialing},
	StateGetDigits:     {StateDialing, StateInvalidNumber},
	StateDialing:       {StateProceed, StateRingOut, StateConnected, StateBusy, StateCongestion, StateInvalidNumber},
	StateProceed:       {StateRingOut, StateConnected, StateBusy, StateCongestion},
	StateRingOut:       {StateConnected, StateBusy, StateCongestion},
	StateRingIn:        {StateConnected, StateCallWaiting},
	StateCallWaiting:   {StateConnected, StateRingIn},
	StateConnected:     {StateHold, StateCallTransfer, StateCallPark},
	StateHold:          {StateConnected, StateCallTransfer, StateCallPark},
	StateCallTransfer:  {StateConnected, StateHold},
	StateCallPark:      {},
	StateBusy:          {},
	StateCongestion:    {},
	StateInvalidNumber: {},
}

// canTransition reports whether from -> to is in the transition table.
func canTransition(from, to ChannelState) bool {
	if to == StateDown {
		return from != StateDown
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func rejectTransition(from, to ChannelState) error {
	return sccperr.Rejected("channel", "transition %s -> %s not allowed", from, to)
}

// Active reports whether s is a live call state.
func (s ChannelState) Active() bool { return s != StateDown }

// Ringing reports whether s presents an unanswered inbound call.
func (s ChannelState) Ringing() bool { return s == StateRingIn || s == StateCallWaiting }

// collecting reports whether digits typed now belong to the dialed number.
func (s ChannelState) collecting() bool {
	return s == StateOffHook || s == StateGetDigits || s == StateDialing
}

// SimpleSwitchMode selects what collected digits are used for.
type SimpleSwitchMode int

const (
	SwitchPlain SimpleSwitchMode = iota
	SwitchCallForwardAll
	SwitchCallForwardBusy
	SwitchCallForwardNoAnswer
	SwitchPickup
	SwitchMeetMe
	SwitchBarge
	SwitchTransferVoicemail
)

var switchModeNames = [...]string{
	SwitchPlain:               "plain",
	SwitchCallForwardAll:      "cfwdall",
	SwitchCallForwardBusy:     "cfwdbusy",
	SwitchCallForwardNoAnswer: "cfwdnoanswer",
	SwitchPickup:              "pickup",
	SwitchMeetMe:              "meetme",
	SwitchBarge:               "barge",
	SwitchTransferVoicemail:   "trnsfvm",
}

func (m SimpleSwitchMode) String() string {
	if m >= 0 && int(m) < len(switchModeNames) {
		return switchModeNames[m]
	}
	return fmt.Sprintf("SimpleSwitchMode(%d)", int(m))
}

// forward reports whether m stores a call forward target.
func (m SimpleSwitchMode) forward() bool {
	return m == SwitchCallForwardAll || m == SwitchCallForwardBusy || m == SwitchCallForwardNoAnswer
}

// CallType is the direction of a call leg.
type CallType int

const (
	CallOutbound CallType = iota + 1
	CallInbound
	CallForward
)

func (t CallType) String() string {
	switch t {
	case CallOutbound:
		return "outbound"
	case CallInbound:
		return "inbound"
	case CallForward:
		return "forward"
	}
	return fmt.Sprintf("CallType(%d)", int(t))
}
