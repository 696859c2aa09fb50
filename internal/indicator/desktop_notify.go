package indicator

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// urgency levels from the freedesktop notification spec.
const (
	urgencyLow      = 0
	urgencyNormal   = 1
	urgencyCritical = 2
)

type notification struct {
	appName   string
	replaceID uint32
	summary   string
	body      string
	urgency   int
	timeoutMS int
}

// notifyArgs builds the busctl argument list for one Notify call.
func notifyArgs(n notification) []string {
	return []string{
		"--user",
		"call",
		"org.freedesktop.Notifications",
		"/org/freedesktop/Notifications",
		"org.freedesktop.Notifications",
		"Notify",
		"susssasa{sv}i",
		n.appName,
		strconv.FormatUint(uint64(n.replaceID), 10),
		"",
		n.summary,
		n.body,
		"0", // actions
		"1", "urgency", "y", strconv.Itoa(n.urgency),
		strconv.Itoa(n.timeoutMS),
	}
}

// desktopNotify sends a freedesktop notification over DBus via busctl and
// returns the id assigned by the notification server.
func desktopNotify(ctx context.Context, n notification) (uint32, error) {
	out, err := exec.CommandContext(ctx, "busctl", notifyArgs(n)...).CombinedOutput()
	if err != nil {
		return 0, commandError("desktop notify", err, out)
	}

	fields := strings.Fields(strings.TrimSpace(string(out)))
	if len(fields) < 2 || fields[0] != "u" {
		return 0, fmt.Errorf("desktop notify invalid response: %q", strings.TrimSpace(string(out)))
	}

	value, parseErr := strconv.ParseUint(fields[1], 10, 32)
	if parseErr != nil {
		return 0, fmt.Errorf("desktop notify parse id %q: %w", fields[1], parseErr)
	}
	return uint32(value), nil
}

// desktopDismiss closes a notification by id.
func desktopDismiss(ctx context.Context, id uint32) error {
	args := []string{
		"--user",
		"call",
		"org.freedesktop.Notifications",
		"/org/freedesktop/Notifications",
		"org.freedesktop.Notifications",
		"CloseNotification",
		"u",
		strconv.FormatUint(uint64(id), 10),
	}

	out, err := exec.CommandContext(ctx, "busctl", args...).CombinedOutput()
	if err != nil {
		return commandError("desktop dismiss", err, out)
	}
	return nil
}

func commandError(op string, err error, out []byte) error {
	trimmed := strings.TrimSpace(string(out))
	if trimmed == "" {
		return fmt.Errorf("%s failed: %w", op, err)
	}
	return fmt.Errorf("%s failed: %w (%s)", op, err, trimmed)
}
