package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/muurk/sccpd/internal/core"
	"github.com/muurk/sccpd/internal/logging"
	"github.com/muurk/sccpd/internal/protocol"
	"github.com/muurk/sccpd/internal/refcount"
	"github.com/muurk/sccpd/internal/sccperr"
)

// Session states.
const (
	StateConnecting           = "connecting"
	StateAwaitingRegistration = "awaiting_registration"
	StateRegistered           = "registered"
	StateClosing              = "closing"
	StateClosed               = "closed"
)

const (
	eventAccept   = "accept"
	eventRegister = "register"
	eventClose    = "close"
	eventFinish   = "finish"
)

// Close reasons, also used as the metrics label.
const (
	ReasonPeerClosed        = "peer_closed"
	ReasonReadError         = "read_error"
	ReasonWriteError        = "write_error"
	ReasonCodecError        = "codec_error"
	ReasonProtocolViolation = "protocol_violation"
	ReasonRejected          = "registration_rejected"
	ReasonUnregistered      = "unregistered"
	ReasonKeepAlive         = "keepalive_timeout"
	ReasonQueueFull         = "write_queue_full"
	ReasonShutdown          = "shutdown"
)

const (
	// Time allowed to write one frame to the phone
	writeWait = 10 * time.Second

	// Outbound frames buffered per session
	sendQueueSize = 256

	readBufferSize = 4096
)

// ErrSessionClosed is returned by Send once the session is closing.
var ErrSessionClosed = errors.New("session closed")

// errStop ends the read loop after the session closed itself.
var errStop = errors.New("stop reading")

// Session is one TCP connection from a phone. It implements core.Sender.
type Session struct {
	id     string
	conn   net.Conn
	srv    *Server
	log    *zap.Logger
	remote netip.AddrPort
	local  netip.AddrPort
	state  *fsm.FSM

	out     chan []byte
	done    chan struct{} // closed by Close
	stopped chan struct{} // closed once both loops exited

	version       *atomic.Uint32
	lastKeepAlive *atomic.Time
	closing       *atomic.Bool
	reason        *atomic.String
	closeOnce     sync.Once

	mu     sync.Mutex
	device *refcount.Ref[*core.Device]
}

var _ core.Sender = (*Session)(nil)

func newSession(srv *Server, conn net.Conn) *Session {
	s := &Session{
		id:            uuid.NewString(),
		conn:          conn,
		srv:           srv,
		remote:        addrPort(conn.RemoteAddr()),
		local:         addrPort(conn.LocalAddr()),
		out:           make(chan []byte, sendQueueSize),
		done:          make(chan struct{}),
		stopped:       make(chan struct{}),
		version:       atomic.NewUint32(0),
		lastKeepAlive: atomic.NewTime(srv.now()),
		closing:       atomic.NewBool(false),
		reason:        atomic.NewString(""),
	}
	s.log = srv.log.With(
		zap.String("session_id", s.id),
		zap.Stringer("remote", s.remote),
	)
	s.state = fsm.NewFSM(StateConnecting, fsm.Events{
		{Name: eventAccept, Src: []string{StateConnecting}, Dst: StateAwaitingRegistration},
		{Name: eventRegister, Src: []string{StateAwaitingRegistration}, Dst: StateRegistered},
		{Name: eventClose, Src: []string{StateConnecting, StateAwaitingRegistration, StateRegistered}, Dst: StateClosing},
		{Name: eventFinish, Src: []string{StateClosing}, Dst: StateClosed},
	}, fsm.Callbacks{
		"enter_state": s.onStateChange,
	})
	return s
}

func (s *Session) onStateChange(_ context.Context, e *fsm.Event) {
	s.log.Debug("Session state transition",
		zap.String("from", e.Src),
		zap.String("to", e.Dst),
		zap.String("event", e.Event),
	)
}

func (s *Session) fire(event string) {
	if err := s.state.Event(context.Background(), event); err != nil {
		s.log.Debug("Ignored session event", zap.String("event", event), zap.Error(err))
	}
}

// addrPort converts a socket address, unmapping IPv4-in-IPv6 forms.
func addrPort(a net.Addr) netip.AddrPort {
	var ap netip.AddrPort
	switch a := a.(type) {
	case *net.TCPAddr:
		ap = a.AddrPort()
	case nil:
		return ap
	default:
		ap, _ = netip.ParseAddrPort(a.String())
	}
	return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// State returns the lifecycle state name.
func (s *Session) State() string { return s.state.Current() }

// RemoteAddr implements core.Sender.
func (s *Session) RemoteAddr() netip.AddrPort { return s.remote }

// LocalAddr implements core.Sender.
func (s *Session) LocalAddr() netip.AddrPort { return s.local }

// SetProtocolVersion implements core.Sender.
func (s *Session) SetProtocolVersion(v uint8) { s.version.Store(uint32(v)) }

// LastKeepAlive returns when the phone last sent a KeepAlive.
func (s *Session) LastKeepAlive() time.Time { return s.lastKeepAlive.Load() }

// Done is closed once the session has fully shut down.
func (s *Session) Done() <-chan struct{} { return s.stopped }

// Reason returns why the session closed, or "".
func (s *Session) Reason() string { return s.reason.Load() }

// Device returns the bound device reference, or nil before registration.
// The reference stays owned by the session.
func (s *Session) Device() *refcount.Ref[*core.Device] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.device
}

// DeviceName returns the registered device name, or "".
func (s *Session) DeviceName() string {
	if ref := s.Device(); ref != nil {
		return ref.ID()
	}
	return ""
}

// Send implements core.Sender. It encodes m and queues it for the writer;
// it never blocks.
func (s *Session) Send(m protocol.Message) error {
	if s.closing.Load() {
		return ErrSessionClosed
	}
	var reserved uint32
	if v := s.version.Load(); v >= 17 {
		reserved = v
	}
	frame, err := protocol.AppendFrame(nil, reserved, m)
	if err != nil {
		s.srv.metrics.CodecError()
		s.log.Error("Failed to encode message", zap.Stringer("message", m.ID()), zap.Error(err))
		return err
	}
	logging.LogFrame(s.log, "tx", uint32(m.ID()), m.ID().String(), frame[protocol.HeaderSize:])

	select {
	case s.out <- frame:
		s.srv.metrics.FrameOut(m.ID().String())
		return nil
	case <-s.done:
		return ErrSessionClosed
	default:
		s.log.Warn("Outbound queue full", zap.Int("queued", len(s.out)))
		s.Close(ReasonQueueFull)
		return sccperr.Exhausted("send", "outbound queue full")
	}
}

// Close implements core.Sender. The first call unbinds the device, which
// publishes DeviceUnregistered, and starts the shutdown; later calls do
// nothing. Queued frames are still flushed.
func (s *Session) Close(reason string) {
	s.closeOnce.Do(func() {
		s.closing.Store(true)
		s.reason.Store(reason)
		s.fire(eventClose)
		s.log.Info("Closing session", zap.String("reason", reason))

		s.mu.Lock()
		ref := s.device
		s.mu.Unlock()
		if ref != nil {
			s.srv.core.SessionClosed(ref, s)
		}
		close(s.done)
	})
}

// run drives the session until both loops exit.
func (s *Session) run() {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.writeLoop()
	}()
	go func() {
		defer wg.Done()
		s.readLoop()
	}()
	wg.Wait()
	s.finish()
}

// finish releases everything the session held.
func (s *Session) finish() {
	s.Close(ReasonShutdown)

	s.mu.Lock()
	ref := s.device
	s.device = nil
	s.mu.Unlock()
	if ref != nil {
		ref.Release()
	}

	s.fire(eventFinish)
	s.srv.untrack(s)
	s.srv.metrics.SessionClosed(s.Reason())
	logging.LogConnection(s.remote.String(), "connection_closed")
	close(s.stopped)
}

func (s *Session) writeLoop() {
	defer func() { _ = s.conn.Close() }()
	for {
		select {
		case frame := <-s.out:
			if err := s.write(frame); err != nil {
				s.log.Info("Write failed", zap.Error(err))
				s.Close(ReasonWriteError)
				return
			}
		case <-s.done:
			s.flush()
			return
		}
	}
}

// flush writes whatever is still queued, stopping at the first error.
func (s *Session) flush() {
	for {
		select {
		case frame := <-s.out:
			if err := s.write(frame); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (s *Session) write(frame []byte) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	_, err := s.conn.Write(frame)
	return err
}

func (s *Session) readLoop() {
	var dec protocol.Decoder
	buf := make([]byte, readBufferSize)
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			dec.Feed(buf[:n])
			if s.drain(&dec) != nil {
				return
			}
		}
		if err != nil {
			switch {
			case s.closing.Load():
			case errors.Is(err, io.EOF):
				s.log.Info("Connection closed by phone")
				s.Close(ReasonPeerClosed)
			default:
				s.log.Info("Read failed", zap.Error(err))
				s.Close(ReasonReadError)
			}
			return
		}
	}
}

// drain dispatches every complete frame in dec, in arrival order.
func (s *Session) drain(dec *protocol.Decoder) error {
	for {
		f, err := dec.Next()
		if errors.Is(err, protocol.ErrIncomplete) {
			return nil
		}
		if err != nil {
			s.srv.metrics.CodecError()
			s.log.Warn("Undecodable frame", zap.Int("buffered", dec.Buffered()), zap.Error(err))
			s.Close(ReasonCodecError)
			return err
		}
		if s.closing.Load() {
			return errStop
		}
		if err := s.dispatch(f); err != nil {
			switch {
			case errors.Is(err, errStop):
				return err
			case errors.Is(err, core.ErrUnregister):
				s.Close(ReasonUnregistered)
				return err
			case sccperr.Fatal(err):
				s.log.Warn("Closing session after error", zap.Error(err))
				s.Close(ReasonProtocolViolation)
				return err
			case sccperr.IsUnrecognized(err):
				s.log.Debug("Unrecognized message", zap.Error(err))
			default:
				s.log.Debug("Message not applied", zap.Error(err))
			}
		}
	}
}

func (s *Session) dispatch(f protocol.Frame) error {
	m := f.Message
	name := m.ID().String()
	s.srv.metrics.FrameIn(name)
	logging.LogFrame(s.log, "rx", uint32(m.ID()), name, f.Payload)

	if _, ok := m.(*protocol.KeepAlive); ok {
		s.lastKeepAlive.Store(s.srv.now())
	}
	if ref := s.Device(); ref != nil {
		return ref.Value().Handle(m)
	}
	return s.handleUnregistered(m)
}

// handleUnregistered accepts the few messages a phone may send before it
// has registered.
func (s *Session) handleUnregistered(m protocol.Message) error {
	switch m := m.(type) {
	case *protocol.Register:
		return s.register(m)
	case *protocol.RegisterTokenReq:
		if err := s.srv.core.RegisterToken(s, m); err != nil {
			s.log.Info("Token request refused", zap.String("device", m.Station.DeviceName), zap.Error(err))
		}
		return nil
	case *protocol.KeepAlive:
		return s.Send(&protocol.KeepAliveAck{})
	case *protocol.Alarm:
		s.log.Info("Phone alarm before registration", zap.Uint32("severity", m.Severity), zap.String("text", m.Text))
		return nil
	case *protocol.IpPort:
		s.log.Debug("RTP port before registration", zap.Uint16("port", m.RTPMediaPort))
		return nil
	default:
		return sccperr.ProtocolViolation("session", "%s before registration", m.ID())
	}
}

func (s *Session) register(m *protocol.Register) error {
	ref, err := s.srv.core.Register(s, m)
	if err != nil {
		s.log.Info("Registration failed", zap.String("device", m.Station.DeviceName), zap.Error(err))
		s.Close(ReasonRejected)
		return errStop
	}

	s.mu.Lock()
	if s.closing.Load() {
		s.mu.Unlock()
		s.srv.core.SessionClosed(ref, s)
		ref.Release()
		return errStop
	}
	s.device = ref
	s.mu.Unlock()

	s.fire(eventRegister)
	return nil
}

// keepAliveInterval is the interval the phone was told to use.
func (s *Session) keepAliveInterval() time.Duration {
	if ref := s.Device(); ref != nil {
		return ref.Value().KeepAlive()
	}
	return time.Duration(s.srv.core.Config().Server.KeepAlive) * time.Second
}

// Info is a snapshot of a session for the monitor.
type Info struct {
	ID            string    `json:"id"`
	Remote        string    `json:"remote"`
	State         string    `json:"state"`
	Device        string    `json:"device,omitempty"`
	Version       uint8     `json:"protocol_version,omitempty"`
	LastKeepAlive time.Time `json:"last_keepalive"`
}

// Info returns a snapshot of the session.
func (s *Session) Info() Info {
	return Info{
		ID:            s.id,
		Remote:        s.remote.String(),
		State:         s.State(),
		Device:        s.DeviceName(),
		Version:       uint8(s.version.Load()),
		LastKeepAlive: s.LastKeepAlive(),
	}
}
