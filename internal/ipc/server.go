package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"
)

// requestDeadline bounds how long one client may hold a connection.
const requestDeadline = 2 * time.Second

// Handler processes one IPC command request.
type Handler interface {
	Handle(context.Context, Request) Response
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// Server answers one JSON line request per connection.
type Server struct {
	handler Handler
	logger  *slog.Logger
}

// NewServer wraps handler. A nil logger discards request logs.
func NewServer(handler Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{handler: handler, logger: logger}
}

// Serve accepts clients until ctx is cancelled or the listener closes,
// then waits for in-flight requests.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	stop := context.AfterFunc(ctx, func() { _ = listener.Close() })
	defer stop()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept IPC connection: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.serveConn(ctx, conn)
		}()
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(requestDeadline))

	enc := json.NewEncoder(conn)
	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		_ = enc.Encode(Failure(fmt.Sprintf("read request: %v", err)))
		return
	}

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		_ = enc.Encode(Failure(fmt.Sprintf("decode request: %v", err)))
		return
	}

	resp := s.handler.Handle(ctx, req)
	if req.Command != CommandStatus {
		s.logger.Debug("ipc request", "command", req.Command, "ok", resp.OK, "state", resp.State, "error", resp.Error)
	}
	_ = enc.Encode(resp)
}

// Serve runs a Server for handler without request logging.
func Serve(ctx context.Context, listener net.Listener, handler Handler) error {
	return NewServer(handler, nil).Serve(ctx, listener)
}
