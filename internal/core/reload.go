package core

import (
	"reflect"

	"go.uber.org/zap"

	"github.com/muurk/sccpd/internal/config"
	"github.com/muurk/sccpd/internal/event"
	"github.com/muurk/sccpd/internal/protocol"
)

// Reload applies a new configuration. New lines and devices appear at once.
// Removed ones are marked pending-delete and reaped when nothing uses them.
// Changed ones are swapped when idle, otherwise after their last call ends;
// a registered device whose configuration changed is reset so it fetches
// the new layout.
func (c *Core) Reload(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.reloadMu.Lock()
	defer c.reloadMu.Unlock()

	c.cfg.Store(cfg)
	if p, ok := c.dialPlan.(*PatternDialPlan); ok {
		p.Update(cfg.DialPlan)
	}

	c.reloadLines(cfg)
	c.reloadDevices(cfg)
	c.log.Info("Configuration reloaded",
		zap.Int("lines", len(cfg.Lines)),
		zap.Int("devices", len(cfg.Devices)),
	)
	return nil
}

func (c *Core) reloadLines(cfg *config.Config) {
	for i := range cfg.Lines {
		lcfg := &cfg.Lines[i]
		ref, ok := c.lines.Get(lcfg.Name)
		if !ok {
			if err := c.addLine(lcfg); err != nil {
				c.log.Warn("Adding line failed", zap.String("line", lcfg.Name), zap.Error(err))
			}
			continue
		}
		c.lines.ClearPendingDelete(lcfg.Name)
		l := ref.Value()

		l.mu.Lock()
		changed := !reflect.DeepEqual(*l.cfg, *lcfg)
		swapped := false
		switch {
		case !changed:
			l.next = nil
		case len(l.channels) == 0:
			l.cfg, l.next = lcfg, nil
			swapped = true
		default:
			l.next = lcfg
		}
		l.mu.Unlock()
		ref.Release()

		switch {
		case swapped:
			c.lines.ClearPendingUpdate(lcfg.Name)
			c.publish(event.Event{Type: event.LineChanged, LineName: lcfg.Name})
		case changed:
			c.lines.MarkPendingUpdate(lcfg.Name)
		}
	}
	for _, name := range c.lines.IDs() {
		if cfg.Line(name) == nil && c.lines.MarkPendingDelete(name) {
			c.log.Info("Line marked for removal", zap.String("line", name))
		}
	}
}

func (c *Core) reloadDevices(cfg *config.Config) {
	for i := range cfg.Devices {
		dcfg := &cfg.Devices[i]
		ref, ok := c.devices.Get(dcfg.Name)
		if !ok {
			ref, err := c.addDevice(dcfg, false)
			if err != nil {
				c.log.Warn("Adding device failed", zap.String("device", dcfg.Name), zap.Error(err))
				continue
			}
			ref.Release()
			continue
		}
		d := ref.Value()
		if d.Anonymous() {
			// Recreated from the configuration once the session ends.
			ref.Release()
			continue
		}
		c.devices.ClearPendingDelete(dcfg.Name)

		d.mu.Lock()
		changed := !reflect.DeepEqual(*d.cfg, *dcfg)
		if changed {
			d.next = dcfg
		} else {
			d.next = nil
		}
		d.mu.Unlock()

		if changed {
			c.devices.MarkPendingUpdate(dcfg.Name)
			if !d.hasChannels() {
				c.applyPendingDevice(d)
			}
		}
		ref.Release()
	}

	for _, name := range c.devices.IDs() {
		if cfg.Device(name) != nil {
			continue
		}
		ref, ok := c.devices.Get(name)
		if !ok {
			continue
		}
		d := ref.Value()
		if !d.Anonymous() && c.devices.MarkPendingDelete(name) {
			d.log.Info("Device marked for removal")
			if !d.hasChannels() {
				c.applyPendingDevice(d)
			}
		}
		ref.Release()
	}
}

// applyPendingDevice runs once d is idle: a staged configuration is swapped
// in, and a registered device that changed or was removed is reset.
func (c *Core) applyPendingDevice(d *Device) {
	d.mu.Lock()
	next := d.next
	if next != nil {
		d.next = nil
		d.applyConfig(next)
	}
	d.mu.Unlock()

	ref, ok := c.devices.Get(d.name)
	if !ok {
		return
	}
	pendingDelete := ref.PendingDelete()
	ref.Release()
	if next != nil {
		c.devices.ClearPendingUpdate(d.name)
	}
	if (next == nil && !pendingDelete) || d.Sender() == nil {
		return
	}
	d.log.Info("Resetting device after configuration change", zap.Bool("removed", pendingDelete))
	d.send(&protocol.Reset{Type: protocol.ResetRestart})
}

// Reap destroys pending-delete devices and lines nothing references any
// more. It returns the ids removed.
func (c *Core) Reap() (devices, lines []string) {
	devices = c.devices.Reap(func(_ string, d *Device) bool {
		return !d.hasChannels()
	})
	for _, name := range devices {
		c.log.Info("Device removed", zap.String("device", name))
	}
	lines = c.lines.Reap(func(_ string, l *Line) bool {
		return len(l.Channels()) == 0
	})
	for _, name := range lines {
		c.log.Info("Line removed", zap.String("line", name))
		c.publish(event.Event{Type: event.LineDeleted, LineName: name})
	}
	return devices, lines
}
