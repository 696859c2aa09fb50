package audio

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const (
	SampleRate = 16000
	Channels   = 1

	chunkSizeBytes = 640 // 20ms @ 16kHz mono s16
	bytesPerSecond = SampleRate * Channels * 2

	faultPollInterval = 250 * time.Millisecond
)

// Capture records one answer from a Pulse source into memory.
type Capture struct {
	device Device

	client *pulse.Client
	stream *pulse.RecordStream

	faults chan error
	stopCh chan struct{}

	mu      sync.Mutex
	pcm     []byte
	stopped bool

	inflight sync.WaitGroup
	chunks   atomic.Int64
}

// StartCapture opens a 16kHz mono s16 record stream on the selected source.
func StartCapture(ctx context.Context, selected Device) (*Capture, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}

	source, err := client.SourceByID(selected.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve source %q: %w", selected.ID, err)
	}

	capture := &Capture{
		device: selected,
		client: client,
		faults: make(chan error, 1),
		stopCh: make(chan struct{}),
	}

	writer := pulse.NewWriter(writerFunc(capture.onPCM), pulseproto.FormatInt16LE)
	stream, err := client.NewRecord(
		writer,
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(SampleRate),
		pulse.RecordBufferFragmentSize(chunkSizeBytes),
		pulse.RecordMediaName("rehearse answer"),
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}

	capture.stream = stream
	stream.Start()

	go capture.watch(ctx)
	return capture, nil
}

// watch stops the capture when ctx ends and reports stream errors as faults.
func (c *Capture) watch(ctx context.Context) {
	ticker := time.NewTicker(faultPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = c.Stop()
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			if err := c.stream.Error(); err != nil {
				select {
				case c.faults <- fmt.Errorf("pulse record stream: %w", err):
				default:
				}
				return
			}
		}
	}
}

func (c *Capture) Device() Device {
	return c.device
}

// Faults delivers at most one fatal stream error.
func (c *Capture) Faults() <-chan error {
	return c.faults
}

// Chunks reports how many data callbacks carried audio.
func (c *Capture) Chunks() int {
	return int(c.chunks.Load())
}

// RawPCM returns a copy of the captured little-endian PCM.
func (c *Capture) RawPCM() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.pcm...)
}

// Duration is the length of audio captured so far.
func (c *Capture) Duration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Duration(len(c.pcm)) * time.Second / bytesPerSecond
}

// Stop halts the stream and waits for in-flight callbacks. It is safe to call twice.
func (c *Capture) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	close(c.stopCh)
	c.mu.Unlock()

	if c.stream != nil {
		c.stream.Stop()
		c.stream.Close()
	}
	if c.client != nil {
		c.client.Close()
	}

	c.inflight.Wait()
	return nil
}

// onPCM receives raw Pulse frames.
func (c *Capture) onPCM(buffer []byte) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return 0, io.EOF
	}
	// Add under the same mutex as stopped so Stop's Wait cannot race it.
	c.inflight.Add(1)
	c.pcm = append(c.pcm, buffer...)
	c.mu.Unlock()
	defer c.inflight.Done()

	c.chunks.Add(1)
	return len(buffer), nil
}

// writerFunc adapts a function to io.Writer for pulse.NewWriter.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}
