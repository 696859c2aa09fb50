package video

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodeSize(t *testing.T, data []byte) (int, int) {
	t.Helper()

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, "png", format)
	return cfg.Width, cfg.Height
}

func TestNormalizeDownscalesLongestEdge(t *testing.T) {
	out, err := Normalize(encodePNG(t, 200, 100), 50)
	require.NoError(t, err)

	w, h := decodeSize(t, out)
	require.Equal(t, 50, w)
	require.Equal(t, 25, h)
}

func TestNormalizeKeepsSmallFrames(t *testing.T) {
	out, err := Normalize(encodePNG(t, 40, 30), 720)
	require.NoError(t, err)

	w, h := decodeSize(t, out)
	require.Equal(t, 40, w)
	require.Equal(t, 30, h)
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	_, err := Normalize([]byte("not an image"), 100)
	require.ErrorContains(t, err, "decode frame")
}

func TestGrabRunsCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	require.NoError(t, os.WriteFile(path, encodePNG(t, 64, 48), 0o600))

	grabber := Grabber{Command: []string{"cat", path}, MaxDimension: 32, Timeout: 2 * time.Second}
	require.NoError(t, grabber.Available())

	out, err := grabber.Grab(context.Background())
	require.NoError(t, err)
	w, h := decodeSize(t, out)
	require.Equal(t, 32, w)
	require.Equal(t, 24, h)
}

func TestGrabReportsCommandFailure(t *testing.T) {
	grabber := Grabber{Command: []string{"sh", "-c", "echo 'no such device /dev/video9' >&2; exit 1"}}

	_, err := grabber.Grab(context.Background())
	require.ErrorContains(t, err, "no such device /dev/video9")
}

func TestGrabRejectsEmptyOutput(t *testing.T) {
	grabber := Grabber{Command: []string{"true"}}

	_, err := grabber.Grab(context.Background())
	require.ErrorContains(t, err, "no image")
}

func TestAvailable(t *testing.T) {
	require.ErrorContains(t, Grabber{}.Available(), "empty")
	require.ErrorContains(t, Grabber{Command: []string{"definitely-not-a-camera-tool"}}.Available(), "not found")
}
