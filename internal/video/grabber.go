// Package video grabs single camera frames through an external capture command.
package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"math"
	"os/exec"
	"strings"
	"time"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Grabber runs Command once per frame. The command writes one encoded image
// (PNG, JPEG, BMP, or WebP) to stdout.
type Grabber struct {
	Command      []string
	MaxDimension int
	Timeout      time.Duration
}

// Available reports whether the configured command can be found. It does not
// touch the camera; use Grab for that.
func (g Grabber) Available() error {
	if len(g.Command) == 0 || strings.TrimSpace(g.Command[0]) == "" {
		return errors.New("frame command is empty")
	}
	if _, err := exec.LookPath(g.Command[0]); err != nil {
		return fmt.Errorf("frame command %q not found: %w", g.Command[0], err)
	}
	return nil
}

// Grab captures one frame and returns it as PNG, scaled down to MaxDimension.
func (g Grabber) Grab(ctx context.Context) ([]byte, error) {
	if len(g.Command) == 0 {
		return nil, errors.New("frame command is empty")
	}
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, g.Command[0], g.Command[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if detail := strings.TrimSpace(stderr.String()); detail != "" {
			return nil, fmt.Errorf("run frame command: %w: %s", err, lastLine(detail))
		}
		return nil, fmt.Errorf("run frame command: %w", err)
	}
	if stdout.Len() == 0 {
		return nil, errors.New("frame command produced no image")
	}

	return Normalize(stdout.Bytes(), g.MaxDimension)
}

// Normalize decodes an encoded image, bounds its longest edge, and re-encodes it as PNG.
func Normalize(data []byte, maxDim int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	img, err = Downscale(img, maxDim)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

// Downscale shrinks img so its longest edge is at most maxDim. Smaller images pass through.
func Downscale(img image.Image, maxDim int) (image.Image, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid frame bounds: %dx%d", w, h)
	}

	longest := max(w, h)
	if maxDim <= 0 || longest <= maxDim {
		return img, nil
	}

	scale := float64(maxDim) / float64(longest)
	nw := max(1, int(math.Round(float64(w)*scale)))
	nh := max(1, int(math.Round(float64(h)*scale)))

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst, nil
}

func lastLine(text string) string {
	lines := strings.Split(text, "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
