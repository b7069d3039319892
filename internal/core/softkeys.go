package core

import (
	"github.com/muurk/sccpd/internal/config"
	"github.com/muurk/sccpd/internal/protocol"
)

// softKeySets lists the softkeys of each key set mode, indexed by
// protocol.KeySetMode.
var softKeySets = [...][]protocol.SoftKey{
	protocol.KeySetOnHook: {
		protocol.SoftKeyRedial, protocol.SoftKeyNewCall, protocol.SoftKeyCfwdAll,
		protocol.SoftKeyPickup, protocol.SoftKeyGPickup, protocol.SoftKeyDND,
	},
	protocol.KeySetConnected: {
		protocol.SoftKeyHold, protocol.SoftKeyEndCall, protocol.SoftKeyPark, protocol.SoftKeySelect,
		protocol.SoftKeyCfwdAll, protocol.SoftKeyCfwdBusy, protocol.SoftKeyIDivert,
		protocol.SoftKeyTrnsfVM,
	},
	protocol.KeySetOnHold: {
		protocol.SoftKeyResume, protocol.SoftKeyNewCall, protocol.SoftKeyEndCall, protocol.SoftKeyTransfer,
		protocol.SoftKeyConfList, protocol.SoftKeySelect, protocol.SoftKeyDirTrfr, protocol.SoftKeyIDivert,
	},
	protocol.KeySetRingIn: {
		protocol.SoftKeyAnswer, protocol.SoftKeyEndCall, protocol.SoftKeyIDivert,
		protocol.SoftKeyTrnsfVM,
	},
	protocol.KeySetOffHook: {
		protocol.SoftKeyRedial, protocol.SoftKeyEndCall, protocol.SoftKeyPrivate,
		protocol.SoftKeyCfwdAll, protocol.SoftKeyCfwdBusy, protocol.SoftKeyPickup,
		protocol.SoftKeyGPickup, protocol.SoftKeyMeetMe, protocol.SoftKeyBarge,
	},
	protocol.KeySetConnTrans: {
		protocol.SoftKeyHold, protocol.SoftKeyEndCall, protocol.SoftKeyTransfer,
		protocol.SoftKeyConfrn, protocol.SoftKeyPark, protocol.SoftKeySelect,
		protocol.SoftKeyDirTrfr, protocol.SoftKeyCfwdAll, protocol.SoftKeyCfwdBusy,
	},
	protocol.KeySetDigitsFoll: {
		protocol.SoftKeyBackspace, protocol.SoftKeyEndCall,
	},
	protocol.KeySetConnConf: {
		protocol.SoftKeyHold, protocol.SoftKeyEndCall, protocol.SoftKeyJoin,
	},
	protocol.KeySetRingOut: {
		protocol.SoftKeyEndCall, protocol.SoftKeyTransfer, protocol.SoftKeyCfwdAll, protocol.SoftKeyIDivert,
	},
	protocol.KeySetOffHookFeat: {
		protocol.SoftKeyRedial, protocol.SoftKeyEndCall,
	},
	protocol.KeySetInUseHint: {
		protocol.SoftKeyPickup, protocol.SoftKeyBarge,
	},
}

// SoftKeyTemplate returns the template every phone receives. A softkey's
// event id is its 1-based position here.
func SoftKeyTemplate() *protocol.SoftKeyTemplateRes {
	defs := make([]protocol.SoftKeyDefinition, protocol.SoftKeyCount)
	for i := range defs {
		k := protocol.SoftKey(i + 1)
		defs[i] = protocol.SoftKeyDefinition{Label: k.Label(), Event: k}
	}
	return &protocol.SoftKeyTemplateRes{Offset: 0, Total: uint32(len(defs)), Definitions: defs}
}

// SoftKeySets returns the key set layout every phone receives.
func SoftKeySets() *protocol.SoftKeySetRes {
	sets := make([]protocol.SoftKeySet, len(softKeySets))
	for i, keys := range softKeySets {
		for slot, k := range keys {
			sets[i].TemplateIndex[slot] = uint8(k)
			sets[i].InfoIndex[slot] = uint16(300 + k)
		}
	}
	return &protocol.SoftKeySetRes{Offset: 0, Total: uint32(len(sets)), Sets: sets}
}

// softKeyEnabled reports whether the device configuration shows k.
func softKeyEnabled(cfg config.SoftkeyConfig, k protocol.SoftKey) bool {
	switch k {
	case protocol.SoftKeyTransfer, protocol.SoftKeyDirTrfr:
		return cfg.TransferEnabled()
	case protocol.SoftKeyPark:
		return cfg.ParkEnabled()
	case protocol.SoftKeyCfwdAll:
		return cfg.CfwdAllEnabled()
	case protocol.SoftKeyCfwdBusy:
		return cfg.CfwdBusyEnabled()
	case protocol.SoftKeyCfwdNoAnswer:
		return cfg.CfwdNoAnswerEnabled()
	case protocol.SoftKeyDND:
		return cfg.DNDEnabled()
	case protocol.SoftKeyPickup, protocol.SoftKeyGPickup:
		return cfg.PickupEnabled()
	case protocol.SoftKeyPrivate:
		return cfg.PrivateEnabled()
	}
	return true
}

// keyMask returns the valid key mask for set on this device: bit i is set
// when slot i of the set is shown.
func keyMask(cfg config.SoftkeyConfig, set protocol.KeySetMode) uint32 {
	if int(set) >= len(softKeySets) {
		return 0
	}
	var mask uint32
	for slot, k := range softKeySets[set] {
		if softKeyEnabled(cfg, k) {
			mask |= 1 << uint(slot)
		}
	}
	return mask
}

// selectKeys builds the SelectSoftKeys message for set.
func (d *Device) selectKeys(instance, callRef uint32, set protocol.KeySetMode) *protocol.SelectSoftKeys {
	d.mu.Lock()
	cfg := d.cfg.Softkeys
	d.mu.Unlock()
	return &protocol.SelectSoftKeys{
		LineInstance:  instance,
		CallReference: callRef,
		SetIndex:      set,
		ValidKeyMask:  keyMask(cfg, set),
	}
}
