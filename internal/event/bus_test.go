package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestPublishMaskFiltering(t *testing.T) {
	b := NewBus()
	var devices, lines []Event
	b.Subscribe(DeviceRegistered|DeviceUnregistered, func(e Event) { devices = append(devices, e) })
	b.Subscribe(LineCreated, func(e Event) { lines = append(lines, e) })

	b.Publish(Event{Type: DeviceRegistered, DeviceName: "SEP1"})
	b.Publish(Event{Type: LineCreated, LineName: "100"})
	b.Publish(Event{Type: FeatureChanged, DeviceName: "SEP1"})

	require.Len(t, devices, 1)
	require.Len(t, lines, 1)
	assert.Equal(t, "SEP1", devices[0].DeviceName)
	assert.NotEmpty(t, devices[0].ID)
	assert.False(t, devices[0].Time.IsZero())
	assert.Equal(t, uint64(3), b.Published())
}

func TestUnsubscribe(t *testing.T) {
	b := NewBus()
	n := 0
	unsub := b.Subscribe(All, func(Event) { n++ })

	b.Publish(Event{Type: LineChanged})
	unsub()
	unsub()
	b.Publish(Event{Type: LineChanged})

	assert.Equal(t, 1, n)
	assert.Zero(t, b.Subscribers())
}

func TestSubscribeDuringDelivery(t *testing.T) {
	b := NewBus()
	late := 0
	b.Subscribe(All, func(Event) {
		b.Subscribe(All, func(Event) { late++ })
	})

	b.Publish(Event{Type: LineChanged})
	assert.Zero(t, late, "subscribers added during delivery miss the current event")

	b.Publish(Event{Type: LineChanged})
	assert.Equal(t, 1, late)
}

func TestUnsubscribeSelfDuringDelivery(t *testing.T) {
	b := NewBus()
	calls := 0
	var unsub func()
	unsub = b.Subscribe(All, func(Event) {
		calls++
		unsub()
	})

	b.Publish(Event{Type: DeviceAttached})
	b.Publish(Event{Type: DeviceAttached})
	assert.Equal(t, 1, calls)
}

func TestUnsubscribeOtherDuringDelivery(t *testing.T) {
	b := NewBus()
	second := 0
	var unsubSecond func()
	b.Subscribe(All, func(Event) { unsubSecond() })
	unsubSecond = b.Subscribe(All, func(Event) { second++ })

	b.Publish(Event{Type: DeviceAttached})
	assert.Zero(t, second, "removed before its turn")
}

func TestHandlerPanicIsolated(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	b := NewBus()
	b.SetLogger(zap.New(core))

	ran := false
	b.Subscribe(All, func(Event) { panic("boom") })
	b.Subscribe(All, func(Event) { ran = true })

	b.Publish(Event{Type: DeviceDetached})
	assert.True(t, ran)
	assert.Equal(t, 1, logs.FilterMessage("Event handler panicked").Len())
}

func TestTypeStringAndParse(t *testing.T) {
	assert.Equal(t, "device_registered", DeviceRegistered.String())
	assert.Equal(t, "line_created|line_deleted", (LineCreated | LineDeleted).String())

	mask, err := ParseMask("device_registered, device_unregistered")
	require.NoError(t, err)
	assert.Equal(t, DeviceRegistered|DeviceUnregistered, mask)

	mask, err = ParseMask("")
	require.NoError(t, err)
	assert.Equal(t, All, mask)

	_, err = ParseMask("bogus")
	assert.Error(t, err)
}

func TestEventJSON(t *testing.T) {
	data, err := Event{ID: "x", Type: FeatureChanged, DeviceName: "SEP1", Feature: "dnd", FeatureStatus: 1}.JSON()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "feature_changed", decoded["type"])
	assert.Equal(t, "SEP1", decoded["device"])
	assert.Equal(t, "dnd", decoded["feature"])
	assert.NotContains(t, decoded, "line")

	var back Event
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, FeatureChanged, back.Type)
}
