package core

import (
	"net/netip"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/muurk/sccpd/internal/acl"
	"github.com/muurk/sccpd/internal/config"
	"github.com/muurk/sccpd/internal/event"
	"github.com/muurk/sccpd/internal/protocol"
	"github.com/muurk/sccpd/internal/refcount"
)

// Sender is the session side of a registered device. Core holds it as a
// non-owning link and never blocks on it.
type Sender interface {
	// Send queues m for the phone.
	Send(m protocol.Message) error
	// SetProtocolVersion sets the version stamped into outgoing headers.
	SetProtocolVersion(v uint8)
	// Close tears the session down asynchronously.
	Close(reason string)
	RemoteAddr() netip.AddrPort
	LocalAddr() netip.AddrPort
}

type senderBox struct{ s Sender }

// Button is one configured button with its 1-based instance.
type Button struct {
	Instance uint32
	config.ButtonConfig
}

func (b Button) wireType() protocol.ButtonType {
	switch b.Type {
	case config.ButtonLine:
		return protocol.ButtonLine
	case config.ButtonSpeedDial:
		return protocol.ButtonSpeedDial
	case config.ButtonService:
		return protocol.ButtonServiceURL
	case config.ButtonFeature:
		return protocol.ButtonFeature
	}
	return protocol.ButtonUndefined
}

// Device is a phone identity. Its registration state changes as its Session
// delivers messages; its Sender link is set while a Session is bound.
type Device struct {
	core *Core
	name string
	log  *zap.Logger

	mu           sync.Mutex
	cfg          *config.DeviceConfig
	next         *config.DeviceConfig
	anonymous    bool
	hotline      string
	acl          *acl.List
	state        DeviceState
	deviceType   uint32
	remote       netip.Addr
	rtpPort      uint16
	capabilities []protocol.Codec
	buttons      []Button
	lineDevs     []*refcount.Ref[*LineDevice]
	keepAlive    uint32
	dnd          bool
	privacy      bool
	flags        map[string]bool // feature button toggles other than dnd and privacy
	lastNumber   string
	active       uint32
	transferFrom uint32
	registeredAt time.Time

	version atomic.Uint32
	sender  atomic.Pointer[senderBox]
}

func newDevice(c *Core, cfg *config.DeviceConfig, anonymous bool) *Device {
	d := &Device{
		core:      c,
		name:      cfg.Name,
		log:       c.log.With(zap.String("device", cfg.Name)),
		anonymous: anonymous,
	}
	d.applyConfig(cfg)
	return d
}

// applyConfig swaps in cfg. The caller holds d.mu or owns d exclusively.
func (d *Device) applyConfig(cfg *config.DeviceConfig) {
	d.cfg = cfg
	d.dnd = cfg.DND
	d.buttons = make([]Button, len(cfg.Buttons))
	for i, b := range cfg.Buttons {
		d.buttons[i] = Button{Instance: uint32(i + 1), ButtonConfig: b}
	}
	list, err := acl.New(cfg.Permit, cfg.Deny)
	if err != nil {
		// Validation already rejected malformed lists.
		d.log.Warn("Ignoring invalid device ACL", zap.Error(err))
		list = nil
	}
	d.acl = list
}

// Name returns the device name.
func (d *Device) Name() string { return d.name }

// State returns the registration state.
func (d *Device) State() DeviceState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// ProtocolVersion returns the negotiated protocol version.
func (d *Device) ProtocolVersion() uint8 { return uint8(d.version.Load()) }

// KeepAlive returns the negotiated keepalive interval.
func (d *Device) KeepAlive() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return time.Duration(d.keepAlive) * time.Second
}

// Sender returns the bound session, or nil.
func (d *Device) Sender() Sender {
	if b := d.sender.Load(); b != nil {
		return b.s
	}
	return nil
}

// Anonymous reports whether the device registered without configuration.
func (d *Device) Anonymous() bool { return d.anonymous }

// DND reports whether do-not-disturb is on.
func (d *Device) DND() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dnd
}

// Buttons returns the button layout.
func (d *Device) Buttons() []Button {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Button(nil), d.buttons...)
}

// ActiveCall returns the call id of the channel in use, or 0.
func (d *Device) ActiveCall() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// LastNumber returns the redial number.
func (d *Device) LastNumber() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastNumber
}

// Capabilities returns the codecs the phone reported.
func (d *Device) Capabilities() []protocol.Codec {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]protocol.Codec(nil), d.capabilities...)
}

// send queues messages on the bound session. Messages for a device without
// a session are dropped.
func (d *Device) send(msgs ...protocol.Message) {
	s := d.Sender()
	if s == nil {
		return
	}
	for _, m := range msgs {
		if err := s.Send(m); err != nil {
			d.log.Debug("Send failed", zap.Stringer("message", m.ID()), zap.Error(err))
			return
		}
	}
}

// prompt shows a status line on the phone.
func (d *Device) prompt(text string, instance, callID uint32) {
	d.send(&protocol.DisplayPromptStatus{Timeout: 10, Text: text, LineInstance: instance, CallReference: callID})
}

// notify shows a transient message on the phone.
func (d *Device) notify(text string) {
	d.send(&protocol.DisplayNotify{Timeout: 5, Text: text})
}

func (d *Device) button(instance uint32) (Button, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if instance == 0 || int(instance) > len(d.buttons) {
		return Button{}, false
	}
	return d.buttons[instance-1], true
}

// lineBinding returns the LineDevice for instance, or for the first line
// button when instance is 0 or not a line.
func (d *Device) lineBinding(instance uint32) (*LineDevice, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range d.lineDevs {
		if r.Value().instance == instance {
			return r.Value(), true
		}
	}
	if len(d.lineDevs) > 0 {
		return d.lineDevs[0].Value(), true
	}
	return nil, false
}

// bindingFor returns the LineDevice for a line name.
func (d *Device) bindingFor(line string) (*LineDevice, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range d.lineDevs {
		if r.Value().line == line {
			return r.Value(), true
		}
	}
	return nil, false
}

func (d *Device) lineBindings() []*LineDevice {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*LineDevice, len(d.lineDevs))
	for i, r := range d.lineDevs {
		out[i] = r.Value()
	}
	return out
}

func (d *Device) setActive(id uint32) {
	d.mu.Lock()
	d.active = id
	d.mu.Unlock()
}

// clearActive resets the active call if it is id.
func (d *Device) clearActive(id uint32) {
	d.mu.Lock()
	if d.active == id {
		d.active = 0
	}
	d.mu.Unlock()
}

// attachLines creates a LineDevice for every line button. Lines missing
// from the store are skipped with a warning.
func (d *Device) attachLines() {
	c := d.core
	var attached []*LineDevice

	d.mu.Lock()
	for _, b := range d.buttons {
		if b.Type != config.ButtonLine {
			continue
		}
		lineRef, ok := c.lines.Get(b.Name)
		if !ok {
			d.log.Warn("Button references unknown line", zap.String("line", b.Name))
			continue
		}
		if lineRef.PendingDelete() {
			lineRef.Release()
			continue
		}
		key := lineDeviceKey(d.name, b.Name)
		ld := &LineDevice{device: d.name, line: b.Name, instance: b.Instance, lineRef: lineRef}
		ref, err := c.lineDevices.Insert(key, ld, func(ld *LineDevice) { ld.lineRef.Release() })
		if err != nil {
			lineRef.Release()
			d.log.Warn("Line already attached", zap.String("line", b.Name), zap.Error(err))
			continue
		}
		lineRef.Value().attach(key)
		d.lineDevs = append(d.lineDevs, ref)
		attached = append(attached, ld)
	}
	d.mu.Unlock()

	for _, ld := range attached {
		c.publish(event.Event{Type: event.DeviceAttached, DeviceName: d.name, LineName: ld.line, Instance: ld.instance})
	}
}

// detachLines undoes attachLines.
func (d *Device) detachLines() {
	c := d.core
	d.mu.Lock()
	refs := d.lineDevs
	d.lineDevs = nil
	d.mu.Unlock()

	for _, ref := range refs {
		ld := ref.Value()
		ld.lineRef.Value().detach(ref.ID())
		c.lineDevices.Remove(ref.ID())
		ref.Release()
		c.publish(event.Event{Type: event.DeviceDetached, DeviceName: d.name, LineName: ld.line, Instance: ld.instance})
	}
}

// channels returns references to the channels this device controls or is
// being offered. The caller releases them.
func (d *Device) channels() []*refcount.Ref[*Channel] {
	var out []*refcount.Ref[*Channel]
	d.core.channels.Range(func(_ string, ch *Channel) bool {
		if ch.involves(d.name) {
			if ref, ok := d.core.channels.Get(channelKey(ch.id)); ok {
				out = append(out, ref)
			}
		}
		return true
	})
	return out
}

// busy reports whether the device controls a live, non-ringing channel.
func (d *Device) busy() bool {
	refs := d.channels()
	defer releaseAll(refs)
	for _, r := range refs {
		ch := r.Value()
		if ch.Device() == d.name && !ch.State().Ringing() && ch.State().Active() {
			return true
		}
	}
	return false
}

// hasChannels reports whether any live channel involves the device.
func (d *Device) hasChannels() bool {
	refs := d.channels()
	releaseAll(refs)
	return len(refs) > 0
}

// hasOtherChannels reports whether a live channel other than id involves
// the device.
func (d *Device) hasOtherChannels(id uint32) bool {
	refs := d.channels()
	defer releaseAll(refs)
	for _, r := range refs {
		if r.Value().id != id {
			return true
		}
	}
	return false
}

func releaseAll[T any](refs []*refcount.Ref[T]) {
	for _, r := range refs {
		r.Release()
	}
}
