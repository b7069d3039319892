package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/sccpd/internal/event"
	"github.com/muurk/sccpd/internal/metrics"
	"github.com/muurk/sccpd/internal/version"
)

// Monitor serves the observation endpoints:
//
//	/metrics   Prometheus exposition
//	/events    websocket feed of event bus notifications
//	/sessions  JSON snapshot of open sessions
//	/healthz   liveness probe
type Monitor struct {
	srv     *Server
	bus     *event.Bus
	metrics *metrics.Metrics
	log     *zap.Logger
}

// NewMonitor creates the monitor for srv.
func NewMonitor(srv *Server) *Monitor {
	return &Monitor{
		srv:     srv,
		bus:     srv.core.Bus(),
		metrics: srv.metrics,
		log:     srv.log.Named("monitor"),
	}
}

// Handler returns the monitor routes.
func (m *Monitor) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.metrics.Handler())
	mux.HandleFunc("/events", m.serveEvents)
	mux.HandleFunc("/sessions", m.serveSessions)
	mux.HandleFunc("/healthz", m.serveHealth)
	return mux
}

// ListenAndServe serves the monitor on addr until ctx is cancelled.
func (m *Monitor) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on monitor address %s: %w", addr, err)
	}
	hs := &http.Server{
		Handler:           m.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	m.log.Info("Monitor listening", zap.String("addr", ln.Addr().String()))

	errc := make(chan error, 1)
	go func() { errc <- hs.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := hs.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (m *Monitor) serveSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, m.srv.Sessions())
}

func (m *Monitor) serveHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]interface{}{
		"status":   "ok",
		"version":  version.Version,
		"sessions": m.srv.SessionCount(),
		"devices":  len(m.srv.core.DeviceNames()),
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
