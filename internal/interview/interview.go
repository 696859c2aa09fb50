// Package interview defines the immutable inputs of a practice session.
package interview

import (
	"errors"
	"fmt"
	"strings"
)

// Question is one prompt with the points a strong answer should cover.
type Question struct {
	Text        string   `json:"question"`
	KeyPoints   []string `json:"keyPoints"`
	ModelAnswer string   `json:"modelAnswer,omitempty"`
}

// Modality selects which capture tracks a session needs.
type Modality string

const (
	ModalityAudioVideo Modality = "audio_video"
	ModalityAudioOnly  Modality = "audio_only"
)

// ParseModality accepts the canonical names plus the short forms used on the command line.
func ParseModality(raw string) (Modality, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "audio_video", "video", "av":
		return ModalityAudioVideo, nil
	case "audio_only", "audio", "voice":
		return ModalityAudioOnly, nil
	default:
		return "", fmt.Errorf("unknown modality %q (want audio_video or audio_only)", raw)
	}
}

// WantsVideo reports whether a camera frame is captured with each answer.
func (m Modality) WantsVideo() bool {
	return m == ModalityAudioVideo
}

// Setup is the session configuration, fixed for the lifetime of one run.
type Setup struct {
	Topic     string
	Modality  Modality
	Questions []Question
}

func (s Setup) Total() int {
	return len(s.Questions)
}

// Validate rejects setups the controller cannot drive.
func (s Setup) Validate() error {
	if len(s.Questions) == 0 {
		return errors.New("session has no questions")
	}
	if _, err := ParseModality(string(s.Modality)); err != nil {
		return err
	}
	for i, q := range s.Questions {
		if strings.TrimSpace(q.Text) == "" {
			return fmt.Errorf("question %d has no text", i+1)
		}
	}
	return nil
}
