// Package server accepts SCCP connections from phones and runs one Session
// per connection on top of a core.Core.
//
// # Session Lifecycle
//
// Each session moves through a small state machine:
//
//	connecting -> awaiting_registration -> registered -> closing -> closed
//
// The global permit/deny list is checked on accept; a refused peer is
// closed before any byte is read. Until the phone registers only Register,
// RegisterTokenReq, KeepAlive, Alarm and IpPort are accepted. Anything else
// closes the session as a protocol violation.
//
// Once registered, every frame is handed to core.Device.Handle in arrival
// order. Outbound frames go through a per-session queue drained by a
// writer goroutine, so the core never blocks on a slow socket. Frames sent
// to firmware speaking protocol 17 or later carry the version in the header
// reserved word.
//
// # Keepalive Supervision
//
// A periodic check on the core scheduler closes sessions whose phone has
// sent no KeepAlive for KeepAliveGrace times the negotiated interval.
//
// # Usage Example
//
//	c, err := core.New(cfg, core.WithMetrics(m))
//	if err != nil {
//	    return err
//	}
//	srv := server.New(c)
//	go func() { _ = server.NewMonitor(srv).ListenAndServe(ctx, ":9120") }()
//	return srv.ListenAndServe(ctx)
//
// # Secure Listener
//
// When tls_port is configured and WithTLSConfig is given, a second listener
// serves the same protocol over TLS 1.2, the only version the phone cipher
// list and firmware agree on.
//
// # Logging
//
//   - debug: frame hex dumps, session state transitions
//   - info: connection events, registration results, close reasons
//   - warn: codec errors, keepalive expiry, slow event observers
//   - error: listener failures
//
// # Monitor Endpoints
//
// Monitor serves /metrics (Prometheus), /events (websocket feed of event
// bus notifications as JSON), /sessions and /healthz.
package server
