//go:build integration

package server

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/sccpd/internal/protocol"
)

func TestServeOverTCP(t *testing.T) {
	h := newHarness(t, testConfig)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	served := make(chan error, 1)
	go func() { served <- h.srv.Serve(ln) }()

	conn, err := net.DialTimeout("tcp", ln.Addr().String(), waitFor)
	require.NoError(t, err)
	p := newPhone(t, conn)

	p.send(registerMsg("SEP000000000001", 17))
	ack, _ := expect[*protocol.RegisterAck](t, p)
	assert.Equal(t, uint8(17), ack.ProtocolVersion)
	require.Eventually(t, func() bool { return h.srv.SessionCount() == 1 }, waitFor, 5*time.Millisecond)

	p.send(&protocol.KeepAlive{})
	expect[*protocol.KeepAliveAck](t, p)

	require.NoError(t, h.srv.Shutdown(context.Background()))
	p.waitClosed()

	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("Serve did not return after Shutdown")
	}

	_, err = net.DialTimeout("tcp", ln.Addr().String(), 200*time.Millisecond)
	var opErr *net.OpError
	assert.True(t, errors.As(err, &opErr), "listener still accepting: %v", err)
}
