// Package metrics exposes sccpd counters and gauges to Prometheus.
//
// Every Metrics value owns its own registry so tests can create one per
// case without colliding on the default registerer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sccpd"

// Metrics holds the collectors updated by the session and core layers.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	framesIn       *prometheus.CounterVec
	framesOut      *prometheus.CounterVec
	codecErrors    prometheus.Counter
	sessions       prometheus.Gauge
	sessionsClosed *prometheus.CounterVec
	aclDenied      prometheus.Counter
	registered     prometheus.Gauge
	registrations  *prometheus.CounterVec
	channels       *prometheus.GaugeVec
	keepaliveLost  prometheus.Counter
	events         *prometheus.CounterVec
}

// New creates and registers all collectors, plus the Go runtime and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		framesIn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_received_total",
			Help:      "Frames decoded from phones, by message name.",
		}, []string{"message"}),
		framesOut: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_sent_total",
			Help:      "Frames written to phones, by message name.",
		}, []string{"message"}),
		codecErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "codec_errors_total",
			Help:      "Malformed or oversized frames.",
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Open TCP sessions.",
		}),
		sessionsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_closed_total",
			Help:      "Closed sessions, by reason.",
		}, []string{"reason"}),
		aclDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "acl_denied_total",
			Help:      "Connections or registrations refused by a permit/deny list.",
		}),
		registered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "devices_registered",
			Help:      "Devices currently registered.",
		}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Registration attempts, by result.",
		}, []string{"result"}),
		channels: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "channels",
			Help:      "Live channels, by state.",
		}, []string{"state"}),
		keepaliveLost: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "keepalive_expired_total",
			Help:      "Sessions closed because the phone stopped sending keepalives.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Events published on the bus, by type.",
		}, []string{"type"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.framesIn, m.framesOut, m.codecErrors,
		m.sessions, m.sessionsClosed, m.aclDenied,
		m.registered, m.registrations, m.channels,
		m.keepaliveLost, m.events,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// FrameIn counts a decoded frame.
func (m *Metrics) FrameIn(name string) {
	if m != nil {
		m.framesIn.WithLabelValues(name).Inc()
	}
}

// FrameOut counts a written frame.
func (m *Metrics) FrameOut(name string) {
	if m != nil {
		m.framesOut.WithLabelValues(name).Inc()
	}
}

// CodecError counts a frame that failed to decode.
func (m *Metrics) CodecError() {
	if m != nil {
		m.codecErrors.Inc()
	}
}

// SessionOpened tracks a new connection.
func (m *Metrics) SessionOpened() {
	if m != nil {
		m.sessions.Inc()
	}
}

// SessionClosed tracks a closed connection.
func (m *Metrics) SessionClosed(reason string) {
	if m != nil {
		m.sessions.Dec()
		m.sessionsClosed.WithLabelValues(reason).Inc()
	}
}

// ACLDenied counts a refused peer.
func (m *Metrics) ACLDenied() {
	if m != nil {
		m.aclDenied.Inc()
	}
}

// Registration counts a registration attempt; result is "accepted" or a
// rejection reason.
func (m *Metrics) Registration(result string) {
	if m != nil {
		m.registrations.WithLabelValues(result).Inc()
	}
}

// DeviceRegistered adjusts the registered-device gauge by delta.
func (m *Metrics) DeviceRegistered(delta int) {
	if m != nil {
		m.registered.Add(float64(delta))
	}
}

// ChannelState moves one channel from one state gauge to another. Either
// state may be empty, for creation and destruction.
func (m *Metrics) ChannelState(from, to string) {
	if m == nil {
		return
	}
	if from != "" {
		m.channels.WithLabelValues(from).Dec()
	}
	if to != "" {
		m.channels.WithLabelValues(to).Inc()
	}
}

// KeepAliveExpired counts a keepalive timeout.
func (m *Metrics) KeepAliveExpired() {
	if m != nil {
		m.keepaliveLost.Inc()
	}
}

// Event counts a published event.
func (m *Metrics) Event(typ string) {
	if m != nil {
		m.events.WithLabelValues(typ).Inc()
	}
}
