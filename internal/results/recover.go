package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rbright/rehearse/internal/interview"
	"github.com/rbright/rehearse/internal/logging"
	"github.com/rbright/rehearse/internal/session"
)

// RecoveryDir is where unsaved transcripts are written.
func RecoveryDir() (string, error) {
	dir, err := logging.StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "recovered"), nil
}

// Recover writes an unsaved submission as JSON under dir and returns its path.
func Recover(dir string, sub session.Submission) (string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create recovery dir: %w", err)
	}

	stamp := sub.FinishedAt
	if stamp.IsZero() {
		stamp = time.Now()
	}
	path := filepath.Join(dir, fmt.Sprintf("session-%s.json", stamp.UTC().Format("20060102-150405.000")))

	payload, err := json.MarshalIndent(sub, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode transcript: %w", err)
	}
	if err := os.WriteFile(path, append(payload, '\n'), 0o600); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// Import saves a recovered transcript file and returns the stored id.
func (s *Service) Import(ctx context.Context, path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	var sub session.Submission
	if err := json.Unmarshal(raw, &sub); err != nil {
		return "", fmt.Errorf("decode %s: %w", path, err)
	}
	if len(sub.Transcript) == 0 {
		return "", errors.New("recovered file has no answers")
	}
	if sub.Modality != "" {
		modality, err := interview.ParseModality(string(sub.Modality))
		if err != nil {
			return "", err
		}
		sub.Modality = modality
	}

	return s.SaveSession(ctx, sub)
}
