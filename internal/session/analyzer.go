package session

import (
	"context"

	"github.com/rbright/rehearse/internal/interview"
	"github.com/rbright/rehearse/internal/transcript"
)

// Detection is the first analysis call's output for one answer.
type Detection struct {
	Text           string
	Emotion        string
	WordsPerMinute int
	FillerWords    transcript.FillerWords
	Sentiment      float64
}

// ReviewRequest is the second analysis call's input.
type ReviewRequest struct {
	QuestionText    string
	TranscribedText string
	KeyPoints       []string
}

// Review is the second analysis call's output.
type Review struct {
	Relevance string
	Clarity   string
	Feedback  string
	Score     int
}

// Analyzer is the analysis service as consumed by the controller.
type Analyzer interface {
	TranscribeAndDetect(ctx context.Context, audio Recording, frame []byte) (Detection, error)
	Review(ctx context.Context, req ReviewRequest) (Review, error)
}

// PlaceholderAnalyzer fails every call, so every answer is recorded as degraded.
type PlaceholderAnalyzer struct{}

func (PlaceholderAnalyzer) TranscribeAndDetect(context.Context, Recording, []byte) (Detection, error) {
	return Detection{}, ErrAnalyzerUnavailable
}

func (PlaceholderAnalyzer) Review(context.Context, ReviewRequest) (Review, error) {
	return Review{}, ErrAnalyzerUnavailable
}

func mergeAnalysis(q interview.Question, det Detection, rev Review) transcript.Entry {
	return transcript.Echo(transcript.Entry{
		TranscribedText: det.Text,
		DominantEmotion: det.Emotion,
		WordsPerMinute:  det.WordsPerMinute,
		FillerWords:     det.FillerWords,
		SentimentScore:  det.Sentiment,
		Relevance:       rev.Relevance,
		Clarity:         rev.Clarity,
		Feedback:        rev.Feedback,
		AnswerScore:     rev.Score,
	}, q)
}
