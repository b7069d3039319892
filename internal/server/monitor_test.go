package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/sccpd/internal/event"
	"github.com/muurk/sccpd/internal/protocol"
)

func newMonitorServer(t *testing.T, h *harness) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(NewMonitor(h.srv).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, v interface{}) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestMonitorHealth(t *testing.T) {
	h := newHarness(t, testConfig)
	ts := newMonitorServer(t, h)

	var health struct {
		Status   string `json:"status"`
		Version  string `json:"version"`
		Sessions int    `json:"sessions"`
		Devices  int    `json:"devices"`
	}
	getJSON(t, ts.URL+"/healthz", &health)
	assert.Equal(t, "ok", health.Status)
	assert.NotEmpty(t, health.Version)
	assert.Zero(t, health.Sessions)
	assert.Equal(t, 2, health.Devices)
}

func TestMonitorMetrics(t *testing.T) {
	h := newHarness(t, testConfig)
	ts := newMonitorServer(t, h)
	h.register(t, "SEP000000000001", "192.168.1.50:51000", 17)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "sccpd_sessions")
	assert.Contains(t, string(body), "sccpd_frames_received_total")
}

func TestMonitorSessions(t *testing.T) {
	h := newHarness(t, testConfig)
	ts := newMonitorServer(t, h)
	_, sess, _, _ := h.register(t, "SEP000000000001", "192.168.1.50:51000", 17)

	var infos []Info
	getJSON(t, ts.URL+"/sessions", &infos)
	require.Len(t, infos, 1)
	assert.Equal(t, sess.ID(), infos[0].ID)
	assert.Equal(t, "192.168.1.50:51000", infos[0].Remote)
	assert.Equal(t, StateRegistered, infos[0].State)
	assert.Equal(t, "SEP000000000001", infos[0].Device)
	assert.Equal(t, uint8(17), infos[0].Version)

	resp, err := http.Post(ts.URL+"/sessions", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestMonitorEventFeed(t *testing.T) {
	h := newHarness(t, testConfig)
	ts := newMonitorServer(t, h)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/events?types=device_registered"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	p, _, _, _ := h.register(t, "SEP000000000001", "192.168.1.50:51000", 17)
	p.send(&protocol.RegisterAvailableLines{MaxLines: 1})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(waitFor)))
	typ, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, typ)

	var ev event.Event
	require.NoError(t, json.Unmarshal(data, &ev))
	assert.Equal(t, event.DeviceRegistered, ev.Type)
	assert.Equal(t, "SEP000000000001", ev.DeviceName)
	assert.NotEmpty(t, ev.ID)
}

func TestMonitorEventFeedRejectsUnknownType(t *testing.T) {
	h := newHarness(t, testConfig)
	ts := newMonitorServer(t, h)

	resp, err := http.Get(ts.URL + "/events?types=bogus")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
