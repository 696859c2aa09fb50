package hub

import (
	"context"
	"net"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/rbright/rehearse/internal/fsm"
	"github.com/rbright/rehearse/internal/ipc"
	"github.com/rbright/rehearse/internal/session"
)

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(url, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame Frame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestHubBroadcastsSnapshots(t *testing.T) {
	h := New(ipc.HandlerFunc(func(context.Context, ipc.Request) ipc.Response { return ipc.Response{OK: true} }), nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	first := dial(t, srv.URL)
	second := dial(t, srv.URL)
	require.Eventually(t, func() bool { return h.Clients() == 2 }, time.Second, 5*time.Millisecond)

	h.Observe(session.Snapshot{State: fsm.StateRecording, Index: 1, Total: 3, Remaining: 42})

	for _, conn := range []*websocket.Conn{first, second} {
		frame := readFrame(t, conn)
		require.Equal(t, "snapshot", frame.Type)
		require.NotNil(t, frame.Snapshot)
		require.Equal(t, fsm.StateRecording, frame.Snapshot.State)
		require.Equal(t, 42, frame.Snapshot.Remaining)
	}
}

func TestHubReplaysLatestSnapshotOnConnect(t *testing.T) {
	h := New(nil, nil)
	h.Observe(session.Snapshot{State: fsm.StatePreparing, Total: 2})

	srv := httptest.NewServer(h)
	defer srv.Close()

	frame := readFrame(t, dial(t, srv.URL))
	require.Equal(t, fsm.StatePreparing, frame.Snapshot.State)
}

func TestHubRoutesCommands(t *testing.T) {
	var calls atomic.Int32
	h := New(ipc.HandlerFunc(func(_ context.Context, req ipc.Request) ipc.Response {
		calls.Add(1)
		return ipc.Response{OK: true, Message: req.Command + " requested"}
	}), nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv.URL)
	require.NoError(t, conn.WriteJSON(ipc.Request{Command: ipc.CommandSkip}))

	frame := readFrame(t, conn)
	require.Equal(t, "response", frame.Type)
	require.True(t, frame.Response.OK)
	require.Equal(t, "skip requested", frame.Response.Message)

	require.NoError(t, conn.WriteJSON(ipc.Request{Command: "rewind"}))
	frame = readFrame(t, conn)
	require.False(t, frame.Response.OK)
	require.Equal(t, "unknown command: rewind", frame.Response.Error)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{")))
	frame = readFrame(t, conn)
	require.Contains(t, frame.Response.Error, "decode command")

	require.Equal(t, int32(1), calls.Load())
}

func TestHubUnregistersOnDisconnect(t *testing.T) {
	h := New(nil, nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv.URL)
	require.Eventually(t, func() bool { return h.Clients() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return h.Clients() == 0 }, time.Second, 5*time.Millisecond)
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	h := New(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())

	addrCh := make(chan net.Addr, 1)
	done := make(chan error, 1)
	go func() {
		done <- h.ListenAndServe(ctx, "127.0.0.1:0", func(addr net.Addr) { addrCh <- addr })
	}()

	addr := <-addrCh
	conn := dial(t, "http://"+addr.String()+Path)
	require.Eventually(t, func() bool { return h.Clients() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
}
