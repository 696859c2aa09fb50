package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"time"
)

// DefaultTimeout bounds a forwarded command roundtrip.
const DefaultTimeout = 500 * time.Millisecond

// Send performs one request/response roundtrip on the socket at path.
func Send(ctx context.Context, path string, req Request, timeout time.Duration) (Response, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return Response{}, fmt.Errorf("set deadline: %w", err)
	}

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return Response{}, fmt.Errorf("encode request: %w", err)
	}

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}

// Forward sends command to a running session. ok is false when nothing is
// listening on path, which callers report as "no session running".
func Forward(ctx context.Context, path string, command string, timeout time.Duration) (resp Response, ok bool, err error) {
	resp, err = Send(ctx, path, Request{Command: command}, timeout)
	if err == nil {
		return resp, true, nil
	}
	if NoListener(err) {
		return Response{}, false, nil
	}
	return Response{}, false, fmt.Errorf("forward command %q: %w", command, err)
}

// Probe checks whether a responsive owner is currently listening on path.
func Probe(ctx context.Context, path string, timeout time.Duration) (bool, error) {
	_, err := Send(ctx, path, Request{Command: CommandStatus}, timeout)
	if err == nil {
		return true, nil
	}
	if NoListener(err) {
		return false, nil
	}
	return false, fmt.Errorf("probe socket: %w", err)
}

// NoListener reports dial failures meaning no process owns the socket.
func NoListener(err error) bool {
	return errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ECONNREFUSED)
}
