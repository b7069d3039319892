// Package logging provides structured logging for sccpd.
//
// The package wraps a process-wide zap logger with convenience functions
// used by the server, the session layer and the call-control core.
//
// # Log Levels
//
//   - Debug: frame hex dumps, per-message dispatch, timer activity
//   - Info: connections, registrations, call state changes
//   - Warn: rejected transitions, unrecognized messages, ACL refusals
//   - Error: socket failures, startup failures
//
// # Scoped Loggers
//
// Sessions and devices log through child loggers so every line carries the
// identifying fields:
//
//	log := logging.With(
//	    zap.String("session_id", id),
//	    zap.String("remote_addr", addr),
//	)
//	log.Info("Device registered", zap.String("device", "SEP001122334455"))
//
// # Frame Logging
//
//	logging.LogFrame(log, "rx", uint32(msg.ID()), msg.ID().String(), payload)
//
// Payload hex dumps are limited to 256 bytes and only rendered when debug
// logging is enabled.
//
// # Configuration
//
//	if err := logging.InitializeWithOptions(logging.Options{Level: "info", Format: "json"}); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// When no level is given the SCCPD_LOG_LEVEL environment variable is
// consulted; if that is empty too, logging is silent.
package logging
