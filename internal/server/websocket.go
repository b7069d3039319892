package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/muurk/sccpd/internal/event"
)

const (
	// Time allowed to write a message to the observer
	wsWriteWait = 10 * time.Second

	// Time allowed to read the next pong message from the observer
	pongWait = 60 * time.Second

	// Send pings to the observer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size accepted from the observer
	maxMessageSize = 512

	// Events buffered per observer before it is considered too slow
	eventQueueSize = 128
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// serveEvents streams event bus notifications as JSON text messages. The
// optional "types" query parameter takes a comma separated list of event
// names (see event.ParseMask).
func (m *Monitor) serveEvents(w http.ResponseWriter, r *http.Request) {
	mask, err := event.ParseMask(r.URL.Query().Get("types"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	queue := make(chan []byte, eventQueueSize)
	overflow := make(chan struct{})
	dropped := atomic.NewBool(false)
	// Subscribe before the upgrade so that an observer never misses events
	// published right after its handshake completes.
	unsubscribe := m.bus.Subscribe(mask, func(ev event.Event) {
		if dropped.Load() {
			return
		}
		data, err := ev.JSON()
		if err != nil {
			return
		}
		select {
		case queue <- data:
		default:
			if dropped.CompareAndSwap(false, true) {
				close(overflow)
			}
		}
	})
	defer unsubscribe()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.log.Info("Event feed upgrade failed", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	remote := r.RemoteAddr
	m.log.Info("Event observer connected", zap.String("remote_addr", remote), zap.Stringer("types", mask))

	closed := make(chan struct{})
	go m.readObserver(conn, closed)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data := <-queue:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				m.log.Info("Event observer write failed", zap.String("remote_addr", remote), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-overflow:
			m.log.Warn("Event observer too slow, disconnecting", zap.String("remote_addr", remote))
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "event queue overflow"),
				time.Now().Add(wsWriteWait))
			return
		case <-closed:
			m.log.Info("Event observer disconnected", zap.String("remote_addr", remote))
			return
		}
	}
}

// readObserver consumes control frames so pongs and close frames are
// processed; observers have nothing to send.
func (m *Monitor) readObserver(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
