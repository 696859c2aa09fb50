// Package capture binds Pulse audio recording and camera frame grabs into
// session device handles.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rbright/rehearse/internal/audio"
	"github.com/rbright/rehearse/internal/interview"
	"github.com/rbright/rehearse/internal/session"
	"github.com/rbright/rehearse/internal/video"
)

// ErrNoCamera is returned by GrabFrame on audio-only handles.
var ErrNoCamera = errors.New("camera not acquired for this session")

// Options configures a capture Device.
type Options struct {
	Input     string
	Fallback  string
	Frame     video.Grabber
	AudioDump bool
}

// recorder is the subset of *audio.Capture a handle drives.
type recorder interface {
	Faults() <-chan error
	Chunks() int
	RawPCM() []byte
	Duration() time.Duration
	Stop() error
}

// Device acquires Pulse sources (and the camera when asked) for a session.
type Device struct {
	opts   Options
	logger *slog.Logger

	selectDevice    func(ctx context.Context, input string, fallback string) (audio.Selection, error)
	startCapture    func(ctx context.Context, device audio.Device) (recorder, error)
	probeMicrophone func(ctx context.Context, device audio.Device) error
	checkCamera     func() error
	grabFrame       func(ctx context.Context) ([]byte, error)
}

// NewDevice constructs a capture device backed by Pulse and the frame grabber.
func NewDevice(opts Options, logger *slog.Logger) *Device {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Device{
		opts:         opts,
		logger:       logger,
		selectDevice: audio.SelectDevice,
		startCapture: func(ctx context.Context, device audio.Device) (recorder, error) {
			return audio.StartCapture(ctx, device)
		},
		probeMicrophone: probeMicrophone,
		checkCamera:     opts.Frame.Available,
		grabFrame:       opts.Frame.Grab,
	}
}

// probeMicrophone opens and closes one record stream so a denied or broken
// source fails at acquisition instead of at the first answer.
func probeMicrophone(ctx context.Context, device audio.Device) error {
	rec, err := audio.StartCapture(ctx, device)
	if err != nil {
		return err
	}
	return rec.Stop()
}

// Acquire opens the microphone once and, for audio_video, takes one camera
// frame. Either failing fails the acquisition.
func (d *Device) Acquire(ctx context.Context, modality interview.Modality) (session.Handle, error) {
	selection, err := d.selectDevice(ctx, d.opts.Input, d.opts.Fallback)
	if err != nil {
		return nil, fmt.Errorf("select microphone: %w", err)
	}
	if selection.Warning != "" {
		d.logger.Warn(selection.Warning)
	}

	if err := d.probeMicrophone(ctx, selection.Device); err != nil {
		return nil, fmt.Errorf("open microphone %s: %w", selection.Device.Label(), err)
	}

	if modality.WantsVideo() {
		if err := d.checkCamera(); err != nil {
			return nil, fmt.Errorf("acquire camera: %w", err)
		}
		if _, err := d.grabFrame(ctx); err != nil {
			return nil, fmt.Errorf("acquire camera: %w", err)
		}
	}

	d.logger.Info("capture device acquired",
		"audio_device", selection.Device.Label(),
		"fallback", selection.Fallback,
		"video", modality.WantsVideo(),
	)

	return &Handle{
		device:    d,
		selection: selection,
		video:     modality.WantsVideo(),
		faults:    make(chan error, 1),
		released:  make(chan struct{}),
	}, nil
}

// Handle is one acquired microphone (and optional camera) stream.
type Handle struct {
	device    *Device
	selection audio.Selection
	video     bool

	faults   chan error
	released chan struct{}

	mu          sync.Mutex
	active      recorder
	stopForward chan struct{}
	releaseOnce sync.Once
}

// Start begins buffering a fresh answer.
func (h *Handle) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	select {
	case <-h.released:
		return errors.New("capture handle released")
	default:
	}
	if h.active != nil {
		return errors.New("capture already running")
	}

	rec, err := h.device.startCapture(ctx, h.selection.Device)
	if err != nil {
		return err
	}
	h.active = rec
	h.stopForward = make(chan struct{})
	go h.forward(rec.Faults(), h.stopForward)
	return nil
}

// forward relays recorder faults into the handle's stable channel.
func (h *Handle) forward(src <-chan error, stop <-chan struct{}) {
	select {
	case err, ok := <-src:
		if !ok || err == nil {
			return
		}
		select {
		case h.faults <- err:
		default:
		}
	case <-stop:
	case <-h.released:
	}
}

// Stop ends the running answer and returns it as a mono WAV recording.
func (h *Handle) Stop(_ context.Context) (session.Recording, error) {
	h.mu.Lock()
	rec := h.active
	stop := h.stopForward
	h.active = nil
	h.stopForward = nil
	h.mu.Unlock()

	if rec == nil {
		return session.Recording{}, errors.New("capture not running")
	}
	close(stop)
	if err := rec.Stop(); err != nil {
		return session.Recording{}, fmt.Errorf("stop capture: %w", err)
	}

	pcm := rec.RawPCM()
	h.device.writeDebugAudio(pcm)

	return session.Recording{
		Audio:       audio.EncodeWAV(pcm, audio.SampleRate, audio.Channels),
		Filename:    "answer.wav",
		ContentType: "audio/wav",
		Chunks:      rec.Chunks(),
		Bytes:       int64(len(pcm)),
		Duration:    rec.Duration(),
		Device:      h.selection.Device.Label(),
	}, nil
}

// GrabFrame captures one camera still for the current answer.
func (h *Handle) GrabFrame(ctx context.Context) ([]byte, error) {
	if !h.video {
		return nil, ErrNoCamera
	}
	return h.device.grabFrame(ctx)
}

// Faults delivers fatal recorder errors while the handle is live.
func (h *Handle) Faults() <-chan error {
	return h.faults
}

// Release stops any running capture. It is safe to call more than once.
func (h *Handle) Release() error {
	var err error
	h.releaseOnce.Do(func() {
		h.mu.Lock()
		rec := h.active
		h.active = nil
		h.stopForward = nil
		h.mu.Unlock()

		close(h.released)
		if rec != nil {
			err = rec.Stop()
		}
	})
	return err
}
