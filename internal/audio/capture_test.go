package audio

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestCapture() *Capture {
	return &Capture{
		device: Device{ID: "mic-1", Description: "Mic"},
		faults: make(chan error, 1),
		stopCh: make(chan struct{}),
	}
}

func TestCaptureAccumulatesPCMAndCountsChunks(t *testing.T) {
	capture := newTestCapture()

	for i := 0; i < 3; i++ {
		n, err := capture.onPCM(make([]byte, chunkSizeBytes))
		require.NoError(t, err)
		require.Equal(t, chunkSizeBytes, n)
	}
	n, err := capture.onPCM(nil)
	require.NoError(t, err)
	require.Zero(t, n)

	require.Equal(t, 3, capture.Chunks())
	require.Len(t, capture.RawPCM(), 3*chunkSizeBytes)
	require.Equal(t, 60*time.Millisecond, capture.Duration())
	require.Equal(t, "mic-1", capture.Device().ID)
}

func TestCaptureStopIsIdempotentAndRejectsLatePCM(t *testing.T) {
	capture := newTestCapture()

	require.NoError(t, capture.Stop())
	require.NoError(t, capture.Stop())

	n, err := capture.onPCM([]byte{1, 2, 3})
	require.Zero(t, n)
	require.ErrorIs(t, err, io.EOF)
	require.Zero(t, capture.Chunks())
}

func TestWriterFuncDelegatesWrite(t *testing.T) {
	writer := writerFunc(func(b []byte) (int, error) {
		require.Equal(t, []byte{1, 2, 3}, b)
		return len(b), nil
	})

	n, err := writer.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestEncodeWAVHeader(t *testing.T) {
	pcm := []byte{1, 0, 2, 0}
	wav := EncodeWAV(pcm, SampleRate, Channels)

	require.Len(t, wav, 48)
	require.Equal(t, "RIFF", string(wav[0:4]))
	require.Equal(t, uint32(40), binary.LittleEndian.Uint32(wav[4:8]))
	require.Equal(t, "WAVE", string(wav[8:12]))
	require.Equal(t, uint16(1), binary.LittleEndian.Uint16(wav[22:24]))
	require.Equal(t, uint32(16000), binary.LittleEndian.Uint32(wav[24:28]))
	require.Equal(t, uint32(32000), binary.LittleEndian.Uint32(wav[28:32]))
	require.Equal(t, "data", string(wav[36:40]))
	require.Equal(t, uint32(4), binary.LittleEndian.Uint32(wav[40:44]))
	require.True(t, bytes.Equal(pcm, wav[44:]))
}

func TestWriteWAVDefaultsChannels(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWAV(&buf, nil, 8000, 0))
	require.Equal(t, uint16(1), binary.LittleEndian.Uint16(buf.Bytes()[22:24]))
}
