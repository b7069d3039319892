package core

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/muurk/sccpd/internal/config"
	"github.com/muurk/sccpd/internal/event"
	"github.com/muurk/sccpd/internal/logging"
	"github.com/muurk/sccpd/internal/metrics"
	"github.com/muurk/sccpd/internal/refcount"
	"github.com/muurk/sccpd/internal/sched"
)

// ReapInterval is how often pending-delete devices and lines are collected.
const ReapInterval = 5 * time.Second

// Core is the application context: the entity stores, the current
// configuration and the collaborators. Everything that used to be global
// hangs off a Core.
type Core struct {
	cfg atomic.Pointer[config.Config]

	bus      *event.Bus
	sched    *sched.Scheduler
	metrics  *metrics.Metrics
	bridge   Bridge
	dialPlan DialPlan
	features Features
	log      *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	devices     *refcount.Store[*Device]
	lines       *refcount.Store[*Line]
	lineDevices *refcount.Store[*LineDevice]
	channels    *refcount.Store[*Channel]

	callIDs   atomic.Uint32
	passThru  atomic.Uint32
	reapTimer *sched.Timer

	reloadMu sync.Mutex
}

// Option configures a Core.
type Option func(*Core)

// WithBridge sets the PBX bridge. The default is NopBridge.
func WithBridge(b Bridge) Option { return func(c *Core) { c.bridge = b } }

// WithDialPlan replaces the pattern dial plan built from the configuration.
func WithDialPlan(p DialPlan) Option { return func(c *Core) { c.dialPlan = p } }

// WithFeatures sets the feature handler. The default is NopFeatures.
func WithFeatures(f Features) Option { return func(c *Core) { c.features = f } }

// WithScheduler sets the scheduler used for digit timeouts and reaping.
func WithScheduler(s *sched.Scheduler) Option { return func(c *Core) { c.sched = s } }

// WithBus sets the event bus.
func WithBus(b *event.Bus) Option { return func(c *Core) { c.bus = b } }

// WithMetrics sets the metrics sink. nil disables metrics.
func WithMetrics(m *metrics.Metrics) Option { return func(c *Core) { c.metrics = m } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(c *Core) { c.log = l } }

// New builds a Core from cfg, creating every configured line and device.
func New(cfg *config.Config, opts ...Option) (*Core, error) {
	c := &Core{
		devices:     refcount.NewStore[*Device]("device"),
		lines:       refcount.NewStore[*Line]("line"),
		lineDevices: refcount.NewStore[*LineDevice]("linedevice"),
		channels:    refcount.NewStore[*Channel]("channel"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.bus == nil {
		c.bus = event.NewBus()
	}
	if c.sched == nil {
		c.sched = sched.New()
	}
	if c.bridge == nil {
		c.bridge = NopBridge{}
	}
	if c.features == nil {
		c.features = NopFeatures{}
	}
	if c.dialPlan == nil {
		c.dialPlan = NewPatternDialPlan(cfg.DialPlan)
	}
	if c.log == nil {
		c.log = logging.GetLogger()
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.cfg.Store(cfg)

	for i := range cfg.Lines {
		if err := c.addLine(&cfg.Lines[i]); err != nil {
			return nil, err
		}
	}
	for i := range cfg.Devices {
		if _, err := c.addDevice(&cfg.Devices[i], false); err != nil {
			return nil, err
		}
	}

	c.reapTimer = c.sched.Every(ReapInterval, func() { c.Reap() })
	return c, nil
}

// Close stops background work. Open sessions are not touched.
func (c *Core) Close() {
	c.reapTimer.Cancel()
	c.cancel()
}

// Config returns the active configuration snapshot.
func (c *Core) Config() *config.Config { return c.cfg.Load() }

// Bus returns the event bus.
func (c *Core) Bus() *event.Bus { return c.bus }

// Scheduler returns the scheduler driving digit timeouts and reaping.
func (c *Core) Scheduler() *sched.Scheduler { return c.sched }

// Metrics returns the metrics sink, possibly nil.
func (c *Core) Metrics() *metrics.Metrics { return c.metrics }

// Device returns a reference to the named device. The caller must Release it.
func (c *Core) Device(name string) (*refcount.Ref[*Device], bool) { return c.devices.Get(name) }

// Line returns a reference to the named line. The caller must Release it.
func (c *Core) Line(name string) (*refcount.Ref[*Line], bool) { return c.lines.Get(name) }

// Channel returns a reference to the channel with callID. The caller must
// Release it.
func (c *Core) Channel(callID uint32) (*refcount.Ref[*Channel], bool) {
	return c.channels.Get(channelKey(callID))
}

// DeviceNames returns the names of all known devices.
func (c *Core) DeviceNames() []string { return c.devices.IDs() }

// LineNames returns the names of all known lines.
func (c *Core) LineNames() []string { return c.lines.IDs() }

// ChannelCount returns the number of live channels.
func (c *Core) ChannelCount() int { return c.channels.Len() }

func channelKey(id uint32) string { return strconv.FormatUint(uint64(id), 10) }

func lineDeviceKey(device, line string) string { return device + "/" + line }

func (c *Core) now() time.Time { return c.sched.Now() }

func (c *Core) publish(ev event.Event) {
	c.metrics.Event(ev.Type.String())
	c.bus.Publish(ev)
}

// addLine creates a line entity and publishes LineCreated.
func (c *Core) addLine(cfg *config.LineConfig) error {
	l := &Line{name: cfg.Name, cfg: cfg}
	ref, err := c.lines.Insert(cfg.Name, l, func(l *Line) {
		c.log.Debug("Line destroyed", zap.String("line", l.name))
	})
	if err != nil {
		return err
	}
	ref.Release()
	c.publish(event.Event{Type: event.LineCreated, LineName: cfg.Name})
	return nil
}

// addDevice creates a device entity. The returned reference belongs to the
// caller.
func (c *Core) addDevice(cfg *config.DeviceConfig, anonymous bool) (*refcount.Ref[*Device], error) {
	d := newDevice(c, cfg, anonymous)
	return c.devices.Insert(cfg.Name, d, func(d *Device) {
		d.log.Debug("Device destroyed")
	})
}
