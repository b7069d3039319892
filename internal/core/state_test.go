package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/sccpd/internal/config"
	"github.com/muurk/sccpd/internal/protocol"
	"github.com/muurk/sccpd/internal/sccperr"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to ChannelState
		want     bool
	}{
		{StateDown, StateOffHook, true},
		{StateDown, StateRingIn, true},
		{StateDown, StateConnected, false},
		{StateDown, StateDown, false},
		{StateOffHook, StateDialing, true},
		{StateOffHook, StateRingOut, false},
		{StateDialing, StateProceed, true},
		{StateProceed, StateRingOut, true},
		{StateRingOut, StateConnected, true},
		{StateRingIn, StateConnected, true},
		{StateConnected, StateHold, true},
		{StateHold, StateConnected, true},
		{StateConnected, StateRingIn, false},
		{StateBusy, StateConnected, false},
		{StateBusy, StateDown, true},
		{StateCallPark, StateDown, true},
	}
	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, canTransition(tt.from, tt.to))
		})
	}
}

func TestEveryStateReachesDown(t *testing.T) {
	for s := StateOffHook; s <= StateInvalidNumber; s++ {
		assert.True(t, canTransition(s, StateDown), s.String())
	}
}

func TestSetStateCountsRejections(t *testing.T) {
	ch := &Channel{core: &Core{}}
	require.NoError(t, ch.SetState(StateOffHook))

	err := ch.SetState(StateConnected)
	assert.True(t, sccperr.IsRejected(err))
	assert.Equal(t, StateOffHook, ch.State())
	assert.Equal(t, 1, ch.Rejected())

	require.NoError(t, ch.SetState(StateDialing))
	assert.Equal(t, StateOffHook, ch.PreviousState())
}

func TestStateNames(t *testing.T) {
	assert.Equal(t, "RegistrationInProgress", DeviceRegistering.String())
	assert.Equal(t, "CallWaiting", StateCallWaiting.String())
	assert.Equal(t, "ChannelState(99)", ChannelState(99).String())
	assert.Equal(t, "cfwdbusy", SwitchCallForwardBusy.String())
	assert.Equal(t, "inbound", CallInbound.String())
}

func TestWireCallState(t *testing.T) {
	tests := []struct {
		state   ChannelState
		version uint8
		want    protocol.CallState
		ok      bool
	}{
		{StateDown, 17, protocol.CallStateOnHook, true},
		{StateOffHook, 17, protocol.CallStateOffHook, true},
		{StateDialing, 5, protocol.CallStateProceed, true},
		{StateDialing, 11, 0, false},
		{StateRingIn, 17, protocol.CallStateRingIn, true},
		{StateCallWaiting, 17, protocol.CallStateRingIn, true},
		{StateCallTransfer, 17, protocol.CallStateHold, true},
		{StateInvalidNumber, 17, protocol.CallStateInvalidNumber, true},
	}
	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			got, ok := WireCallState(tt.state, tt.version)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeyMask(t *testing.T) {
	all := keyMask(config.SoftkeyConfig{}, protocol.KeySetOnHold)
	assert.Equal(t, uint32(1)<<len(softKeySets[protocol.KeySetOnHold])-1, all)

	off := false
	mask := keyMask(config.SoftkeyConfig{Transfer: &off}, protocol.KeySetOnHold)
	// Transfer and DirTrfr sit in slots 3 and 6 of the on-hold set.
	assert.Equal(t, all&^(1<<3|1<<6), mask)

	assert.Zero(t, keyMask(config.SoftkeyConfig{}, protocol.KeySetMode(99)))
}

func TestSoftKeySets(t *testing.T) {
	sets := SoftKeySets()
	require.Len(t, sets.Sets, len(softKeySets))
	assert.Equal(t, uint32(len(softKeySets)), sets.Total)

	onHook := sets.Sets[protocol.KeySetOnHook]
	assert.Equal(t, uint8(protocol.SoftKeyRedial), onHook.TemplateIndex[0])
	assert.Equal(t, uint16(300+protocol.SoftKeyRedial), onHook.InfoIndex[0])

	tmpl := SoftKeyTemplate()
	require.Len(t, tmpl.Definitions, int(protocol.SoftKeyCount))
	assert.Equal(t, protocol.SoftKey(1), tmpl.Definitions[0].Event)
}

func TestDisabledSoftkeyHiddenOnPhone(t *testing.T) {
	h := newHarness(t)
	ref, s := h.register("SEP000000000002", 17)
	d := ref.Value()

	require.NoError(t, d.Handle(&protocol.OffHook{}))
	press(t, d, "5551212#")
	ch := channelOf(t, d)
	require.NoError(t, h.core.Indicate(ch.ID(), StateConnected))
	require.NoError(t, d.Handle(&protocol.SoftKeyEvent{Event: protocol.SoftKeyHold, CallReference: ch.ID()}))

	var held *protocol.SelectSoftKeys
	for _, m := range sentOf[*protocol.SelectSoftKeys](s) {
		if m.SetIndex == protocol.KeySetOnHold {
			held = m
		}
	}
	require.NotNil(t, held)
	assert.Zero(t, held.ValidKeyMask&(1<<3), "transfer is disabled for this phone")
	assert.NotZero(t, held.ValidKeyMask&1, "resume stays enabled")
}

func TestPatternDialPlan(t *testing.T) {
	p := NewPatternDialPlan(map[string][]string{
		"default":  {"555XXXX", "1XX", "9."},
		"internal": {"2XX"},
	})

	tests := []struct {
		context, number string
		want            MatchResult
	}{
		{"default", "5551212", ExactMatch},
		{"default", "555", PartialMatch},
		{"default", "55512123", NoMatch},
		{"default", "101", ExactMatch},
		{"default", "10", PartialMatch},
		{"default", "1A1", NoMatch},
		{"default", "9", PartialMatch},
		{"default", "90044", ExactMatch},
		{"default", "200", NoMatch},
		{"internal", "200", ExactMatch},
		{"missing", "200", NoMatch},
	}
	for _, tt := range tests {
		t.Run(tt.context+"/"+tt.number, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Resolve(tt.context, tt.number))
		})
	}

	assert.Equal(t, []string{"default", "internal"}, p.Contexts())

	p.Update(map[string][]string{"default": {"7XX"}})
	assert.Equal(t, NoMatch, p.Resolve("default", "5551212"))
	assert.Equal(t, ExactMatch, p.Resolve("default", "700"))
}
