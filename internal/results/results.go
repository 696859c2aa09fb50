// Package results turns finished sessions into stored, summarized records.
package results

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/rbright/rehearse/internal/analysis"
	"github.com/rbright/rehearse/internal/session"
	"github.com/rbright/rehearse/internal/store"
	"github.com/rbright/rehearse/internal/transcript"
)

const (
	// NoDataSummary is stored for a session with no answers.
	NoDataSummary = "No data to analyze."
	// FallbackSummary is stored when the summary service is unavailable.
	FallbackSummary = "The AI summary could not be generated, but your results have been saved."
)

// Summarizer produces an overall summary and score for a transcript.
type Summarizer interface {
	Summarize(ctx context.Context, entries []transcript.Entry) (analysis.Summary, error)
}

// Service is the session.Persister used by the controller.
type Service struct {
	store      store.Store
	summarizer Summarizer
	logger     *slog.Logger
}

// NewService builds a persistence service. summarizer may be nil.
func NewService(st store.Store, summarizer Summarizer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{store: st, summarizer: summarizer, logger: logger}
}

// SaveSession summarizes sub and stores it, returning the stored id.
func (s *Service) SaveSession(ctx context.Context, sub session.Submission) (string, error) {
	if s.store == nil {
		return "", errors.New("results store not configured")
	}

	summary := s.summarize(ctx, sub.Transcript)
	finished := sub.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}

	rec, err := s.store.Save(ctx, store.Record{
		Topic:        sub.Topic,
		Modality:     string(sub.Modality),
		OverallScore: summary.OverallScore,
		Summary:      summary.Text,
		Answers:      transcript.Clone(sub.Transcript),
		Early:        sub.Early,
		StartedAt:    sub.StartedAt,
		FinishedAt:   finished,
	})
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (s *Service) summarize(ctx context.Context, entries []transcript.Entry) analysis.Summary {
	if len(entries) == 0 {
		return analysis.Summary{Text: NoDataSummary, OverallScore: 0}
	}
	fallback := analysis.Summary{Text: FallbackSummary, OverallScore: transcript.AverageScore(entries)}
	if s.summarizer == nil {
		return fallback
	}

	summary, err := s.summarizer.Summarize(ctx, entries)
	if err != nil {
		s.logger.Warn("session summary failed; using average score", "error", err.Error())
		return fallback
	}
	if summary.Text == "" {
		summary.Text = FallbackSummary
	}
	return summary
}
