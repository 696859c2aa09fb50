// Package hub streams session snapshots to WebSocket clients and routes
// their remote commands back to the controller.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rbright/rehearse/internal/ipc"
	"github.com/rbright/rehearse/internal/session"
)

const (
	// Path is where the feed is mounted.
	Path = "/ws"

	sendBuffer   = 16
	writeTimeout = 5 * time.Second
	pingInterval = 20 * time.Second
	maxFrameSize = 4096
)

// Frame is one server-to-client message.
type Frame struct {
	Type     string            `json:"type"`
	Snapshot *session.Snapshot `json:"snapshot,omitempty"`
	Response *ipc.Response     `json:"response,omitempty"`
}

// Hub fans snapshots out to every connected client.
type Hub struct {
	handler  ipc.Handler
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	last    []byte
}

type client struct {
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// New returns a hub that routes client commands to handler.
func New(handler ipc.Handler, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Hub{
		handler:  handler,
		logger:   logger,
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 4096},
		clients:  make(map[*client]struct{}),
	}
}

// Observe implements session.Observer. It never blocks; a client whose
// buffer is full is disconnected.
func (h *Hub) Observe(snap session.Snapshot) {
	payload, err := json.Marshal(Frame{Type: "snapshot", Snapshot: &snap})
	if err != nil {
		h.logger.Error("encode snapshot", "error", err.Error())
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = payload
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			delete(h.clients, c)
			c.close()
			h.logger.Warn("dropping slow websocket client")
		}
	}
}

// Clients reports the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) register() *client {
	c := &client{send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	if h.last != nil {
		c.send <- h.last
	}
	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
}

// reply queues a response frame for c unless it has been dropped.
func (h *Hub) reply(c *client, resp ipc.Response) {
	payload, err := json.Marshal(Frame{Type: "response", Response: &resp})
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

// ServeHTTP upgrades the request and serves one client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "error", err.Error())
		return
	}
	defer conn.Close()

	c := h.register()
	defer h.unregister(c)
	h.logger.Info("websocket client connected", "remote", r.RemoteAddr)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(conn, c)
	}()

	h.readLoop(r.Context(), conn, c)
	h.unregister(c)
	<-writerDone
	h.logger.Info("websocket client disconnected", "remote", r.RemoteAddr)
}

func (h *Hub) readLoop(ctx context.Context, conn *websocket.Conn, c *client) {
	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(2 * pingInterval))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * pingInterval))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(2 * pingInterval))

		var req ipc.Request
		if err := json.Unmarshal(data, &req); err != nil {
			h.reply(c, ipc.Failure(fmt.Sprintf("decode command: %v", err)))
			continue
		}
		if !ipc.IsCommand(req.Command) {
			h.reply(c, ipc.Failure(fmt.Sprintf("unknown command: %s", req.Command)))
			continue
		}
		h.reply(c, h.handler.Handle(ctx, req))
	}
}

func (h *Hub) writeLoop(conn *websocket.Conn, c *client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case payload, ok := <-c.send:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeTimeout))
				_ = conn.Close()
				return
			}
			if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				_ = conn.Close()
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
}

// ListenAndServe serves the hub at Path on addr until ctx is cancelled.
// ready, when non-nil, receives the bound address.
func (h *Hub) ListenAndServe(ctx context.Context, addr string, ready func(net.Addr)) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle(Path, h)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	if ready != nil {
		ready(listener.Addr())
	}
	h.logger.Info("live feed listening", "addr", listener.Addr().String(), "path", Path)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(listener) }()

	select {
	case <-ctx.Done():
		h.CloseAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown live feed: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
