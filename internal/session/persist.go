package session

import (
	"context"
	"time"

	"github.com/rbright/rehearse/internal/interview"
	"github.com/rbright/rehearse/internal/transcript"
)

// Submission is the finished session handed to persistence. It owns its transcript copy.
type Submission struct {
	Topic      string             `json:"topic"`
	Modality   interview.Modality `json:"modality"`
	Transcript []transcript.Entry `json:"transcript"`
	Early      bool               `json:"early"`
	StartedAt  time.Time          `json:"startedAt"`
	FinishedAt time.Time          `json:"finishedAt"`
}

// Persister stores a finished session and returns its identifier.
type Persister interface {
	SaveSession(context.Context, Submission) (string, error)
}

// PersistFunc adapts a function to the Persister interface.
type PersistFunc func(context.Context, Submission) (string, error)

func (f PersistFunc) SaveSession(ctx context.Context, sub Submission) (string, error) {
	return f(ctx, sub)
}
