package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rbright/rehearse/internal/cli"
	"github.com/rbright/rehearse/internal/ipc"
)

// commandRemote forwards a control command to the running session.
func (r Runner) commandRemote(ctx context.Context, command cli.Command) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		if command == cli.CommandStatus {
			fmt.Fprintln(r.Stdout, "idle")
			return 0
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, string(command))
	if !handled {
		if command == cli.CommandStatus {
			fmt.Fprintln(r.Stdout, "idle")
			return 0
		}
		fmt.Fprintln(r.Stderr, "error: no active rehearse session")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	if command == cli.CommandStatus {
		fmt.Fprintln(r.Stdout, formatStatus(resp))
		return 0
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

func formatStatus(resp ipc.Response) string {
	state := resp.State
	if state == "" {
		state = "idle"
	}
	if resp.Total == 0 {
		return state
	}
	line := fmt.Sprintf("%s question=%d/%d", state, resp.Question, resp.Total)
	if resp.Remaining > 0 {
		line += fmt.Sprintf(" remaining=%ds", resp.Remaining)
	}
	return line
}

// tryForward sends command and folds a rejected response into err.
// handled is false when no session owns the socket.
func tryForward(ctx context.Context, socketPath string, command string) (ipc.Response, bool, error) {
	resp, ok, err := ipc.Forward(ctx, socketPath, command, ipc.DefaultTimeout)
	if err != nil {
		return ipc.Response{}, true, err
	}
	if !ok {
		return ipc.Response{}, false, nil
	}
	if !resp.OK {
		return resp, true, errors.New(resp.Error)
	}
	return resp, true, nil
}
