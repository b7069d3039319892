// Package event implements the in-process notification bus that lets
// devices, lines and external observers learn about each other's changes
// without holding references across packages.
//
// Payloads carry entity ids only. A subscriber that needs the entity looks
// it up (and retains it) itself.
package event

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Type identifies an event. Types are bit flags so a subscription can
// cover several with one mask.
type Type uint32

const (
	LineCreated Type = 1 << iota
	LineChanged
	LineDeleted
	DeviceAttached
	DeviceDetached
	DevicePreregistered
	DeviceRegistered
	DeviceUnregistered
	FeatureChanged
	LineStatusChanged

	// All matches every event type.
	All Type = 1<<iota - 1
)

var typeNames = []struct {
	t    Type
	name string
}{
	{LineCreated, "line_created"},
	{LineChanged, "line_changed"},
	{LineDeleted, "line_deleted"},
	{DeviceAttached, "device_attached"},
	{DeviceDetached, "device_detached"},
	{DevicePreregistered, "device_preregistered"},
	{DeviceRegistered, "device_registered"},
	{DeviceUnregistered, "device_unregistered"},
	{FeatureChanged, "feature_changed"},
	{LineStatusChanged, "line_status_changed"},
}

// String returns the snake_case name, or names joined with "|" for masks.
func (t Type) String() string {
	var parts []string
	for _, n := range typeNames {
		if t&n.t != 0 {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("event(0x%x)", uint32(t))
	}
	return strings.Join(parts, "|")
}

// ParseType parses a single event name as produced by String.
func ParseType(s string) (Type, error) {
	for _, n := range typeNames {
		if n.name == s {
			return n.t, nil
		}
	}
	return 0, fmt.Errorf("unknown event type %q", s)
}

// ParseMask parses a comma separated list of event names. An empty string
// or "all" selects every type.
func ParseMask(s string) (Type, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "all" {
		return All, nil
	}
	var mask Type
	for _, part := range strings.Split(s, ",") {
		t, err := ParseType(strings.TrimSpace(part))
		if err != nil {
			return 0, err
		}
		mask |= t
	}
	return mask, nil
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(b []byte) error {
	v, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Event is one notification.
type Event struct {
	ID   string    `json:"id"`
	Type Type      `json:"type"`
	Time time.Time `json:"time"`

	DeviceName string `json:"device,omitempty"`
	LineName   string `json:"line,omitempty"`
	Instance   uint32 `json:"instance,omitempty"`

	// RegistrationState is the device state name for registration events.
	RegistrationState string `json:"registration_state,omitempty"`

	// Feature fields for FeatureChanged.
	Feature       string `json:"feature,omitempty"`
	FeatureStatus uint32 `json:"feature_status,omitempty"`
	FeatureOption string `json:"feature_option,omitempty"`

	// LineStatus is the channel state name for LineStatusChanged.
	LineStatus string `json:"line_status,omitempty"`
}

// JSON encodes the event for external observers.
func (e Event) JSON() ([]byte, error) {
	return json.Marshal(e)
}
