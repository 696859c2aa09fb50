package capture

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rbright/rehearse/internal/audio"
	"github.com/rbright/rehearse/internal/logging"
)

// createDebugFile creates timestamped debug artifacts under state/rehearse/debug.
func createDebugFile(prefix string, extension string) (*os.File, error) {
	stateDir, err := logging.StateDir()
	if err != nil {
		return nil, fmt.Errorf("resolve state dir: %w", err)
	}
	debugDir := filepath.Join(stateDir, "debug")
	if err := os.MkdirAll(debugDir, 0o700); err != nil {
		return nil, fmt.Errorf("create debug dir: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405.000")
	path := filepath.Join(debugDir, fmt.Sprintf("%s-%s.%s", prefix, timestamp, extension))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open debug file %q: %w", path, err)
	}
	return file, nil
}

// writeDebugAudio writes raw PCM to WAV when debug.audio_dump is enabled.
func (d *Device) writeDebugAudio(rawPCM []byte) {
	if !d.opts.AudioDump || len(rawPCM) == 0 {
		return
	}

	file, err := createDebugFile("answer", "wav")
	if err != nil {
		d.logger.Warn("unable to create debug audio dump", "error", err.Error())
		return
	}
	defer file.Close()

	if err := audio.WriteWAV(file, rawPCM, audio.SampleRate, audio.Channels); err != nil {
		d.logger.Warn("unable to write debug audio dump", "error", err.Error())
	}
}
