package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/sccpd/internal/config"
	"github.com/muurk/sccpd/internal/event"
	"github.com/muurk/sccpd/internal/protocol"
	"github.com/muurk/sccpd/internal/sccperr"
)

// harnessWithLines returns a harness whose lines were adjusted by edit.
func harnessWithLines(t *testing.T, edit func(lines []config.LineConfig)) *harness {
	t.Helper()
	cfg, err := config.Parse([]byte(testConfig))
	require.NoError(t, err)
	edit(cfg.Lines)
	require.NoError(t, cfg.Validate())
	return newHarnessWithConfig(t, cfg)
}

func voicemailLamps(s *fakeSender) []*protocol.SetLamp {
	var out []*protocol.SetLamp
	for _, l := range sentOf[*protocol.SetLamp](s) {
		if l.Stimulus == protocol.StimulusVoicemail {
			out = append(out, l)
		}
	}
	return out
}

func TestSetMessageWaiting(t *testing.T) {
	h := newHarness(t)
	_, s1 := h.register("SEP000000000001", 17)
	_, s2 := h.register("SEP000000000002", 17)

	require.NoError(t, h.core.SetMessageWaiting("100", 2, 1))

	assert.Equal(t, []*protocol.SetLamp{
		{Stimulus: protocol.StimulusVoicemail, Instance: 1, Mode: protocol.LampOn},
		{Stimulus: protocol.StimulusVoicemail, Instance: 0, Mode: protocol.LampOn},
	}, voicemailLamps(s1))
	notify := sentOf[*protocol.DisplayPriNotify](s1)
	require.Len(t, notify, 1)
	assert.Equal(t, "Voicemail: 2 new, 1 old", notify[0].Text)

	// Line 100 is the second button of the other phone.
	lamps := voicemailLamps(s2)
	require.NotEmpty(t, lamps)
	assert.Equal(t, uint32(2), lamps[0].Instance)
	assert.Equal(t, protocol.LampOn, lamps[0].Mode)

	var mwi []event.Event
	for _, ev := range h.eventsOf(event.FeatureChanged) {
		if ev.Feature == "mwi" {
			mwi = append(mwi, ev)
		}
	}
	require.Len(t, mwi, 2)
	assert.Equal(t, "100", mwi[0].LineName)
	assert.Equal(t, uint32(2), mwi[0].FeatureStatus)

	s1.reset()
	require.NoError(t, h.core.SetMessageWaiting("100", 0, 3))
	assert.Equal(t, []*protocol.SetLamp{
		{Stimulus: protocol.StimulusVoicemail, Instance: 1, Mode: protocol.LampOff},
		{Stimulus: protocol.StimulusVoicemail, Instance: 0, Mode: protocol.LampOff},
	}, voicemailLamps(s1))
	assert.Len(t, sentOf[*protocol.ClearPriNotify](s1), 1)

	err := h.core.SetMessageWaiting("999", 1, 0)
	assert.True(t, sccperr.IsRejected(err))
}

func TestHandsetLampCoversEveryLine(t *testing.T) {
	h := newHarness(t)
	_, s := h.register("SEP000000000002", 17)

	require.NoError(t, h.core.SetMessageWaiting("101", 1, 0))
	s.reset()

	// Clearing line 100 leaves the handset lit for line 101.
	require.NoError(t, h.core.SetMessageWaiting("100", 0, 0))
	assert.Equal(t, []*protocol.SetLamp{
		{Stimulus: protocol.StimulusVoicemail, Instance: 2, Mode: protocol.LampOff},
		{Stimulus: protocol.StimulusVoicemail, Instance: 0, Mode: protocol.LampOn},
	}, voicemailLamps(s))
}

func TestMessageWaitingSentOnRegistration(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.core.SetMessageWaiting("100", 4, 0))

	s := newFakeSender("192.168.1.50:51000")
	ref, err := h.core.Register(s, &protocol.Register{
		Station:         protocol.StationIdentifier{DeviceName: "SEP000000000001"},
		ProtocolVersion: 17,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		h.core.SessionClosed(ref, s)
		ref.Release()
	})
	require.NoError(t, ref.Value().Handle(&protocol.RegisterAvailableLines{MaxLines: 2}))

	lamps := voicemailLamps(s)
	require.Len(t, lamps, 2)
	assert.Equal(t, protocol.LampOn, lamps[0].Mode)
	notify := sentOf[*protocol.DisplayPriNotify](s)
	require.Len(t, notify, 1)
	assert.Equal(t, "Voicemail: 4 new, 0 old", notify[0].Text)
}

func TestSetMailboxWaiting(t *testing.T) {
	h := harnessWithLines(t, func(lines []config.LineConfig) {
		lines[1].Mailbox = "500"
	})
	_, s := h.register("SEP000000000002", 17)

	require.NoError(t, h.core.SetMailboxWaiting("500", 1, 0))
	lamps := voicemailLamps(s)
	require.NotEmpty(t, lamps)
	assert.Equal(t, uint32(1), lamps[0].Instance, "mailbox 500 belongs to line 101")

	s.reset()
	require.NoError(t, h.core.SetMailboxWaiting("100", 1, 0))
	lamps = voicemailLamps(s)
	require.NotEmpty(t, lamps)
	assert.Equal(t, uint32(2), lamps[0].Instance, "a line without a mailbox uses its name")

	assert.True(t, sccperr.IsRejected(h.core.SetMailboxWaiting("101", 1, 0)))
}

func TestTransferToVoicemail(t *testing.T) {
	tests := []struct {
		name   string
		edit   func(lines []config.LineConfig)
		key    protocol.SoftKey
		target string
	}{
		{
			name:   "transfer_voicemail",
			edit:   func(lines []config.LineConfig) { lines[0].TransferVoicemail = "8000" },
			key:    protocol.SoftKeyTrnsfVM,
			target: "8000",
		},
		{
			name:   "falls back to voicemail_number",
			edit:   func(lines []config.LineConfig) { lines[0].VoicemailNumber = "8100" },
			key:    protocol.SoftKeyIDivert,
			target: "8100",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := harnessWithLines(t, tt.edit)
			ref, s := h.register("SEP000000000001", 17)

			res, err := h.core.Offer("100", CallerInfo{Name: "Alice", Number: "5550001"})
			require.NoError(t, err)

			require.NoError(t, ref.Value().Handle(&protocol.SoftKeyEvent{
				Event:         tt.key,
				LineInstance:  1,
				CallReference: res.CallID,
			}))

			reqs := h.features.completed()
			require.Len(t, reqs, 1)
			assert.Equal(t, SwitchTransferVoicemail, reqs[0].Mode)
			assert.Equal(t, tt.target, reqs[0].Digits)
			assert.Equal(t, "SEP000000000001", reqs[0].Device)
			assert.Equal(t, res.CallID, reqs[0].Channel.CallID)

			_, ok := h.core.Channel(res.CallID)
			assert.False(t, ok, "the diverted call is gone locally")
			assert.Empty(t, h.bridge.hangups, "the PBX leg now belongs to voicemail")
			assert.NotEmpty(t, sentOf[*protocol.CallStateMsg](s))
		})
	}
}

func TestTransferToVoicemailWithoutNumber(t *testing.T) {
	h := newHarness(t)
	ref, s := h.register("SEP000000000001", 17)

	res, err := h.core.Offer("100", CallerInfo{Number: "5550001"})
	require.NoError(t, err)
	require.NoError(t, ref.Value().Handle(&protocol.SoftKeyEvent{Event: protocol.SoftKeyTrnsfVM, CallReference: res.CallID}))

	assert.Empty(t, h.features.completed())
	prompts := sentOf[*protocol.DisplayPromptStatus](s)
	require.NotEmpty(t, prompts)
	assert.Equal(t, "No voicemail", prompts[len(prompts)-1].Text)

	chRef, ok := h.core.Channel(res.CallID)
	require.True(t, ok)
	defer chRef.Release()
	assert.Equal(t, StateRingIn, chRef.Value().State())
}

func TestMeetMeNumber(t *testing.T) {
	h := harnessWithLines(t, func(lines []config.LineConfig) {
		lines[0].MeetMeNumber = "5550100"
	})
	ref, _ := h.register("SEP000000000001", 17)

	require.NoError(t, ref.Value().Handle(&protocol.SoftKeyEvent{Event: protocol.SoftKeyMeetMe, LineInstance: 1}))
	require.Len(t, h.bridge.allocated, 1)
	assert.Equal(t, "5550100", h.bridge.allocated[0].Dialed)
	assert.Empty(t, h.features.completed())
}

func TestMeetMeCollectsDigitsWithoutNumber(t *testing.T) {
	h := newHarness(t)
	ref, _ := h.register("SEP000000000001", 17)
	d := ref.Value()

	require.NoError(t, d.Handle(&protocol.SoftKeyEvent{Event: protocol.SoftKeyMeetMe, LineInstance: 1}))
	ch := channelOf(t, d)
	assert.Equal(t, StateGetDigits, ch.State())

	press(t, d, "42")
	require.NoError(t, d.Handle(&protocol.SoftKeyEvent{Event: protocol.SoftKeyEndCall, CallReference: ch.ID()}))
	assert.Empty(t, h.bridge.allocated)
}

func TestGroupPickup(t *testing.T) {
	h := harnessWithLines(t, func(lines []config.LineConfig) {
		lines[0].PickupGroup = []int{1, 3}
	})
	ref, _ := h.register("SEP000000000001", 17)

	require.NoError(t, ref.Value().Handle(&protocol.SoftKeyEvent{Event: protocol.SoftKeyGPickup, LineInstance: 1}))

	reqs := h.features.completed()
	require.Len(t, reqs, 1)
	assert.Equal(t, SwitchPickup, reqs[0].Mode)
	assert.Equal(t, pickupGroup, reqs[0].Param)
	assert.Equal(t, []int{1, 3}, reqs[0].PickupGroups)
	assert.Empty(t, reqs[0].Digits)
	assert.Equal(t, "100", reqs[0].Channel.Line)
	assert.Zero(t, ref.Value().ActiveCall())
}

func TestGroupPickupWithoutGroup(t *testing.T) {
	h := newHarness(t)
	ref, s := h.register("SEP000000000001", 17)

	require.NoError(t, ref.Value().Handle(&protocol.StimulusMsg{Stimulus: protocol.StimulusGroupCallPickup}))
	assert.Empty(t, h.features.completed())
	prompts := sentOf[*protocol.DisplayPromptStatus](s)
	require.NotEmpty(t, prompts)
	assert.Equal(t, "Key Is Not Active", prompts[len(prompts)-1].Text)
}
