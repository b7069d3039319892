package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/sccpd/internal/acl"
	"github.com/muurk/sccpd/internal/core"
	"github.com/muurk/sccpd/internal/logging"
	"github.com/muurk/sccpd/internal/metrics"
	"github.com/muurk/sccpd/internal/sched"
)

const (
	// KeepAliveGrace multiplies the negotiated keepalive interval before a
	// silent phone is dropped.
	KeepAliveGrace = 2

	// KeepAliveCheckInterval is how often sessions are checked for expiry.
	KeepAliveCheckInterval = time.Second

	// shutdownTimeout bounds Shutdown when the caller's context has none.
	shutdownTimeout = 10 * time.Second
)

// Server accepts phone connections and runs one Session per connection.
type Server struct {
	core      *core.Core
	metrics   *metrics.Metrics
	log       *zap.Logger
	tlsConfig *tls.Config

	mu        sync.Mutex
	listeners []net.Listener
	sessions  map[string]*Session
	wg        sync.WaitGroup
	closed    *atomic.Bool
	monitor   *sched.Timer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. The default is the process logger.
func WithLogger(l *zap.Logger) Option { return func(s *Server) { s.log = l } }

// WithTLSConfig enables the secure SCCP listener on tls_port.
func WithTLSConfig(c *tls.Config) Option { return func(s *Server) { s.tlsConfig = c } }

// New creates a Server on top of c and starts keepalive supervision on the
// core's scheduler.
func New(c *core.Core, opts ...Option) *Server {
	s := &Server{
		core:     c,
		metrics:  c.Metrics(),
		log:      logging.GetLogger(),
		sessions: make(map[string]*Session),
		closed:   atomic.NewBool(false),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.monitor = c.Scheduler().Every(KeepAliveCheckInterval, s.CheckKeepAlives)
	return s
}

func (s *Server) now() time.Time { return s.core.Scheduler().Now() }

// ListenAndServe binds the configured listeners and serves until ctx is
// cancelled or a listener fails, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context) error {
	cfg := s.core.Config().Server
	addr := net.JoinHostPort(cfg.BindAddress, strconv.Itoa(cfg.Port))

	var tln net.Listener
	if cfg.TLSPort != 0 && s.tlsConfig != nil {
		tlsAddr := net.JoinHostPort(cfg.BindAddress, strconv.Itoa(cfg.TLSPort))
		l, err := tls.Listen("tcp", tlsAddr, s.tlsConfig)
		if err != nil {
			return fmt.Errorf("failed to create TLS listener: %w", err)
		}
		s.log.Info("Secure listener ready",
			zap.String("addr", l.Addr().String()),
			zap.Any("tls_info", GetTLSInfo(s.tlsConfig)),
		)
		tln = l
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		if tln != nil {
			_ = tln.Close()
		}
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.log.Info("Server listening for connections",
		zap.String("addr", ln.Addr().String()),
		zap.Uint8("protocol_version", cfg.ProtocolVersion),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.Serve(ln) })
	if tln != nil {
		g.Go(func() error { return s.Serve(tln) })
	}
	g.Go(func() error {
		<-ctx.Done()
		return s.Shutdown(context.Background())
	})
	return g.Wait()
}

// Serve accepts connections on ln until it is closed.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		_ = ln.Close()
		return nil
	}
	s.listeners = append(s.listeners, ln)
	s.mu.Unlock()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || s.closed.Load() {
				return nil
			}
			s.log.Error("Failed to accept connection", zap.Error(err))
			continue
		}
		s.ServeConn(conn)
	}
}

// ServeConn starts a session on conn. It returns nil when the peer address
// is refused by the global ACL; the connection is then closed unread.
func (s *Server) ServeConn(conn net.Conn) *Session {
	sess := newSession(s, conn)
	remote := sess.remote.String()

	srv := s.core.Config().Server
	list, err := acl.New(srv.Permit, srv.Deny)
	if err != nil {
		list = nil
	}
	if !list.Allowed(sess.remote.Addr()) {
		s.metrics.ACLDenied()
		s.log.Info("Connection refused by ACL", zap.String("remote_addr", remote))
		_ = conn.Close()
		return nil
	}

	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	s.sessions[sess.id] = sess
	s.wg.Add(1)
	s.mu.Unlock()

	s.metrics.SessionOpened()
	logging.LogConnection(remote, "connection_accepted")
	sess.fire(eventAccept)

	go func() {
		defer s.wg.Done()
		sess.run()
	}()
	return sess
}

func (s *Server) untrack(sess *Session) {
	s.mu.Lock()
	delete(s.sessions, sess.id)
	s.mu.Unlock()
}

// CheckKeepAlives closes every session whose phone has been silent for
// longer than its keepalive interval times KeepAliveGrace.
func (s *Server) CheckKeepAlives() {
	now := s.now()
	for _, sess := range s.snapshot() {
		limit := sess.keepAliveInterval() * KeepAliveGrace
		if idle := now.Sub(sess.LastKeepAlive()); idle > limit {
			s.metrics.KeepAliveExpired()
			sess.log.Info("Keepalive expired",
				zap.Duration("idle", idle),
				zap.Duration("limit", limit),
			)
			sess.Close(ReasonKeepAlive)
		}
	}
}

func (s *Server) snapshot() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out
}

// Sessions returns a snapshot of every open session, ordered by remote
// address.
func (s *Server) Sessions() []Info {
	sessions := s.snapshot()
	out := make([]Info, len(sessions))
	for i, sess := range sessions {
		out[i] = sess.Info()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Remote < out[j].Remote })
	return out
}

// SessionCount returns the number of open sessions.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Shutdown stops the listeners, closes every session and waits for them to
// finish or for ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed.Swap(true) {
		s.mu.Unlock()
		return nil
	}
	listeners := s.listeners
	s.listeners = nil
	s.mu.Unlock()

	s.log.Info("Shutting down server...")
	s.monitor.Cancel()

	for _, ln := range listeners {
		if err := ln.Close(); err != nil {
			s.log.Error("Error closing listener", zap.Error(err))
		}
	}
	for _, sess := range s.snapshot() {
		sess.Close(ReasonShutdown)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("All sessions closed gracefully")
	case <-ctx.Done():
		s.log.Warn("Shutdown timeout, forcing close")
		return ctx.Err()
	case <-time.After(shutdownTimeout):
		s.log.Warn("Shutdown timeout after 10 seconds, forcing close")
	}
	return nil
}
