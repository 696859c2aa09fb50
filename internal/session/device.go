package session

import (
	"context"
	"time"

	"github.com/rbright/rehearse/internal/interview"
)

// Recording is the final buffer returned when a Handle stops.
type Recording struct {
	Audio       []byte
	Filename    string
	ContentType string
	Chunks      int
	Bytes       int64
	Duration    time.Duration
	Device      string
}

// Empty reports whether no audio chunk was buffered.
func (r Recording) Empty() bool {
	return r.Chunks == 0
}

// Device acquires capture handles for a modality.
type Device interface {
	Acquire(ctx context.Context, modality interview.Modality) (Handle, error)
}

// Handle is one acquired device stream plus its recorder.
//
// Start may be called again after Stop to record the same question once more.
// Release must be safe to call more than once. Faults delivers fatal recorder
// errors while the handle is live and is never closed before Release.
type Handle interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) (Recording, error)
	GrabFrame(ctx context.Context) ([]byte, error)
	Faults() <-chan error
	Release() error
}

type unavailableDevice struct{}

func (unavailableDevice) Acquire(context.Context, interview.Modality) (Handle, error) {
	return nil, ErrDeviceUnavailable
}
