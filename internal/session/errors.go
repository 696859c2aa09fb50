package session

import "errors"

var (
	// ErrDevice marks acquisition and recorder faults. The session stops in the error state.
	ErrDevice = errors.New("capture device unavailable")
	// ErrEmptyAnswer marks a recording with no audio. The same question is offered again.
	ErrEmptyAnswer = errors.New("no audio detected")
	// ErrAnalysis marks a failed analysis call. The answer is recorded as a degraded entry.
	ErrAnalysis = errors.New("analysis service failed")
	// ErrPersistence marks a failed final save. The transcript stays on the Result.
	ErrPersistence = errors.New("session results not saved")

	// ErrDeviceUnavailable is returned when no capture device is wired.
	ErrDeviceUnavailable = errors.New("capture device not configured")
	// ErrAnalyzerUnavailable is returned when no analysis service is wired.
	ErrAnalyzerUnavailable = errors.New("analysis service not configured")
)

// EmptyAnswerMessage is shown when a recording produced no audio.
const EmptyAnswerMessage = "No audio detected. Please repeat your answer."

// IsRecoverable reports whether a session error left a transcript worth keeping.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrPersistence)
}
