package core

import (
	"errors"
	"net/netip"

	"go.uber.org/zap"

	"github.com/muurk/sccpd/internal/acl"
	"github.com/muurk/sccpd/internal/config"
	"github.com/muurk/sccpd/internal/event"
	"github.com/muurk/sccpd/internal/protocol"
	"github.com/muurk/sccpd/internal/refcount"
	"github.com/muurk/sccpd/internal/sccperr"
)

// ErrUnregister is returned by Device.Handle after the phone unregistered
// cleanly. The session should close.
var ErrUnregister = errors.New("device unregistered")

// TokenWaitTime is the back-off sent in RegisterTokenReject, in seconds.
const TokenWaitTime = 60

// Registration reject texts shown by the phone.
const (
	RejectUnknownDevice = "Unknown Device"
	RejectACL           = "Device ip not authorized"
	RejectPendingDelete = "Device is pending delete"
	RejectInUse         = "Device already registered"
)

// NegotiateVersion clamps the phone's protocol version to what the server
// speaks.
func NegotiateVersion(requested, serverMax uint8) uint8 {
	if serverMax == 0 || serverMax > config.MaxProtocolVersion {
		serverMax = config.MaxProtocolVersion
	}
	switch {
	case requested < config.MinProtocolVersion:
		return config.MinProtocolVersion
	case requested > serverMax:
		return serverMax
	}
	return requested
}

// featureBytes returns the RegisterAck feature flags for version.
func featureBytes(version uint8) [3]uint8 {
	switch {
	case version <= 3:
		return [3]uint8{0, 0, 0}
	case version <= 10:
		return [3]uint8{0x20, 0x00, 0xFE}
	}
	return [3]uint8{0x20, 0xF1, 0xFF}
}

// lookupDevice returns the device for a registration attempt, creating an
// anonymous hotline device when the configuration allows it. created reports
// whether this call inserted the device.
func (c *Core) lookupDevice(name string) (ref *refcount.Ref[*Device], created, ok bool) {
	if ref, ok := c.devices.Get(name); ok {
		return ref, false, true
	}
	srv := c.Config().Server
	if !srv.AllowAnonymous || srv.Hotline == nil {
		return nil, false, false
	}
	cfg := &config.DeviceConfig{
		Name:        name,
		Description: "anonymous",
		Buttons:     []config.ButtonConfig{{Type: config.ButtonLine, Name: srv.Hotline.Line}},
	}
	ref, err := c.addDevice(cfg, true)
	if err != nil {
		// Lost a race with another session for the same name.
		ref, ok = c.devices.Get(name)
		return ref, false, ok
	}
	d := ref.Value()
	d.mu.Lock()
	d.hotline = srv.Hotline.Extension
	d.mu.Unlock()
	return ref, true, true
}

// admit checks a registration attempt and returns the text to reject it
// with, or "".
func (c *Core) admit(ref *refcount.Ref[*Device], addr netip.Addr) (string, error) {
	if ref.PendingDelete() {
		return RejectPendingDelete, sccperr.Rejected("register", "device %s is pending delete", ref.ID())
	}
	srv := c.Config().Server
	global, err := acl.New(srv.Permit, srv.Deny)
	if err != nil {
		global = nil
	}
	d := ref.Value()
	d.mu.Lock()
	local := d.acl
	d.mu.Unlock()
	if !global.Allowed(addr) || !local.Allowed(addr) {
		c.metrics.ACLDenied()
		return RejectACL, sccperr.AclDenied("register", "device %s from %s", ref.ID(), addr)
	}
	return "", nil
}

// Register binds s to the device named in msg and starts the registration
// handshake. On success the returned reference belongs to the session; it
// must hand it back through SessionClosed. On failure a RegisterReject has
// already been sent.
func (c *Core) Register(s Sender, msg *protocol.Register) (*refcount.Ref[*Device], error) {
	name := msg.Station.DeviceName
	addr := s.RemoteAddr().Addr()
	reject := func(text string, err error) (*refcount.Ref[*Device], error) {
		c.metrics.Registration("rejected")
		c.log.Info("Registration rejected",
			zap.String("device", name),
			zap.Stringer("remote", s.RemoteAddr()),
			zap.String("reason", text),
		)
		_ = s.Send(&protocol.RegisterReject{Text: text})
		return nil, err
	}

	ref, created, ok := c.lookupDevice(name)
	if !ok {
		return reject(RejectUnknownDevice, sccperr.Rejected("register", "unknown device %q", name))
	}
	if text, err := c.admit(ref, addr); err != nil {
		ref.Release()
		if created {
			c.devices.Remove(name)
		}
		return reject(text, err)
	}
	d := ref.Value()

	// A phone that reconnects replaces its stale session.
	if old := d.Sender(); old != nil && old != s {
		d.log.Info("Replacing existing session", zap.Stringer("old", old.RemoteAddr()))
		c.SessionClosed(ref, old)
		old.Close("replaced by new registration")
	}
	if !d.sender.CompareAndSwap(nil, &senderBox{s: s}) {
		ref.Release()
		return reject(RejectInUse, sccperr.Rejected("register", "device %s is registering elsewhere", name))
	}

	cfg := c.Config()
	version := NegotiateVersion(msg.ProtocolVersion, cfg.Server.ProtocolVersion)
	d.version.Store(uint32(version))
	s.SetProtocolVersion(version)

	d.mu.Lock()
	keepAlive := cfg.DeviceKeepAlive(d.cfg)
	if keepAlive < config.MinKeepAlive {
		keepAlive = config.MinKeepAlive
	}
	d.keepAlive = keepAlive
	d.state = DeviceRegistering
	d.deviceType = msg.DeviceType
	d.remote = addr
	if msg.StationIP.IsValid() && !msg.StationIP.IsUnspecified() {
		d.remote = msg.StationIP
	}
	d.registeredAt = c.now()
	d.mu.Unlock()

	d.log.Info("Device registering",
		zap.Stringer("remote", s.RemoteAddr()),
		zap.Uint8("requested_version", msg.ProtocolVersion),
		zap.Uint8("version", version),
		zap.Uint32("device_type", msg.DeviceType),
		zap.Uint32("keepalive", keepAlive),
	)
	d.send(
		&protocol.RegisterAck{
			KeepAlive:          keepAlive,
			DateTemplate:       cfg.Server.DateFormat,
			SecondaryKeepAlive: keepAlive,
			ProtocolVersion:    version,
			Features:           featureBytes(version),
		},
		&protocol.CapabilitiesReq{},
	)
	d.attachLines()
	c.publish(event.Event{
		Type:              event.DevicePreregistered,
		DeviceName:        d.name,
		RegistrationState: DeviceRegistering.String(),
	})
	c.metrics.Registration("accepted")
	return ref, nil
}

// RegisterToken answers a token request. A phone the server would accept
// gets a RegisterTokenAck; anything else is told to retry later.
func (c *Core) RegisterToken(s Sender, msg *protocol.RegisterTokenReq) error {
	name := msg.Station.DeviceName
	ref, ok := c.devices.Get(name)
	if !ok {
		_ = s.Send(&protocol.RegisterTokenReject{WaitTime: TokenWaitTime})
		return sccperr.Rejected("token", "unknown device %q", name)
	}
	defer ref.Release()
	if _, err := c.admit(ref, s.RemoteAddr().Addr()); err != nil {
		_ = s.Send(&protocol.RegisterTokenReject{WaitTime: TokenWaitTime})
		return err
	}
	d := ref.Value()
	d.mu.Lock()
	if d.state == DeviceUnknown || d.state == DeviceUnregistered {
		d.state = DeviceTokenPending
	}
	d.mu.Unlock()
	return s.Send(&protocol.RegisterTokenAck{})
}

// finishRegistration completes the handshake once the phone has fetched its
// line configuration.
func (c *Core) finishRegistration(d *Device) {
	d.mu.Lock()
	if d.state != DeviceRegistering {
		d.mu.Unlock()
		return
	}
	d.state = DeviceRegistered
	dnd := d.dnd
	d.mu.Unlock()

	c.metrics.DeviceRegistered(1)
	d.log.Info("Device registered", zap.Uint8("version", d.ProtocolVersion()))

	msgs := []protocol.Message{d.selectKeys(0, 0, protocol.KeySetOnHook)}
	for _, ld := range d.lineBindings() {
		if all, busy, noAnswer := ld.forwardStat(); all != "" || busy != "" || noAnswer != "" {
			msgs = append(msgs, forwardStat(ld))
		}
	}
	if dnd {
		msgs = append(msgs, &protocol.DisplayPromptStatus{Text: "Do Not Disturb"})
	}
	msgs = append(msgs, d.pendingMessages()...)
	d.send(msgs...)
	c.publish(event.Event{
		Type:              event.DeviceRegistered,
		DeviceName:        d.name,
		RegistrationState: DeviceRegistered.String(),
	})
}

// SessionClosed unbinds s from the device and tears down everything the
// registration created. It does nothing when s is no longer the device's
// session, so it is safe to call from every session exit path.
func (c *Core) SessionClosed(ref *refcount.Ref[*Device], s Sender) {
	d := ref.Value()
	box := d.sender.Load()
	if box == nil || box.s != s || !d.sender.CompareAndSwap(box, nil) {
		return
	}

	d.mu.Lock()
	wasRegistered := d.state == DeviceRegistered
	d.state = DeviceUnregistering
	d.mu.Unlock()

	refs := d.channels()
	for _, r := range refs {
		ch := r.Value()
		switch {
		case ch.State().Ringing():
			c.decline(d, ch)
		case ch.Device() == d.name:
			c.end(ch, true)
		}
	}
	releaseAll(refs)
	d.detachLines()

	d.mu.Lock()
	d.state = DeviceUnregistered
	d.active = 0
	d.transferFrom = 0
	d.mu.Unlock()

	if wasRegistered {
		c.metrics.DeviceRegistered(-1)
	}
	d.log.Info("Device unregistered")
	c.publish(event.Event{
		Type:              event.DeviceUnregistered,
		DeviceName:        d.name,
		RegistrationState: DeviceUnregistered.String(),
	})

	if d.anonymous {
		c.devices.Remove(d.name)
		if dcfg := c.Config().Device(d.name); dcfg != nil {
			if ref, err := c.addDevice(dcfg, false); err == nil {
				ref.Release()
			}
		}
		return
	}
	c.applyPendingDevice(d)
}
