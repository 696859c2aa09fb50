package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/rbright/rehearse/internal/interview"
	"github.com/rbright/rehearse/internal/session"
	"github.com/rbright/rehearse/internal/transcript"
)

type analyzeResponse struct {
	DominantEmotion string                  `json:"dominantEmotion"`
	TranscribedText string                  `json:"transcribedText"`
	WordsPerMinute  int                     `json:"wordsPerMinute"`
	FillerWords     *transcript.FillerWords `json:"fillerWords"`
	SentimentScore  float64                 `json:"sentimentScore"`
}

type reviewRequest struct {
	QuestionText    string   `json:"questionText"`
	TranscribedText string   `json:"transcribedText"`
	KeyPoints       []string `json:"keyPoints"`
}

type reviewResponse struct {
	Relevance   string `json:"relevance"`
	Clarity     string `json:"clarity"`
	Feedback    string `json:"feedback"`
	AnswerScore *int   `json:"answerScore"`
}

type summarizeRequest struct {
	SessionData []transcript.Entry `json:"sessionData"`
}

// Summary is the service's overall assessment of a finished session.
type Summary struct {
	Text         string `json:"summary"`
	OverallScore int    `json:"overallScore"`
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

// TranscribeAndDetect uploads one answer (and frame, if any) to /analyze.
func (c *Client) TranscribeAndDetect(ctx context.Context, audio session.Recording, frame []byte) (session.Detection, error) {
	name := audio.Filename
	if name == "" {
		name = "answer.wav"
	}
	contentType := audio.ContentType
	if contentType == "" {
		contentType = "audio/wav"
	}

	body, formType, err := multipartBody(audio.Audio, name, contentType, frame)
	if err != nil {
		return session.Detection{}, err
	}

	var resp analyzeResponse
	if err := c.do(ctx, "/analyze", formType, body, &resp); err != nil {
		return session.Detection{}, err
	}

	detection := session.Detection{
		Text:           strings.TrimSpace(resp.TranscribedText),
		Emotion:        resp.DominantEmotion,
		WordsPerMinute: resp.WordsPerMinute,
		Sentiment:      resp.SentimentScore,
	}
	if resp.FillerWords != nil {
		detection.FillerWords = *resp.FillerWords
	} else {
		detection.FillerWords = transcript.DetectFillers(detection.Text)
	}
	if detection.FillerWords.Words == nil {
		detection.FillerWords.Words = []string{}
	}
	return detection, nil
}

// Review asks /expert-review to score one transcribed answer against its key points.
func (c *Client) Review(ctx context.Context, req session.ReviewRequest) (session.Review, error) {
	keyPoints := req.KeyPoints
	if keyPoints == nil {
		keyPoints = []string{}
	}

	var resp reviewResponse
	if err := c.postJSON(ctx, "/expert-review", reviewRequest{
		QuestionText:    req.QuestionText,
		TranscribedText: req.TranscribedText,
		KeyPoints:       keyPoints,
	}, &resp); err != nil {
		return session.Review{}, err
	}
	if resp.AnswerScore == nil {
		return session.Review{}, fmt.Errorf("/expert-review response missing answerScore")
	}

	return session.Review{
		Relevance: resp.Relevance,
		Clarity:   resp.Clarity,
		Feedback:  strings.TrimSpace(resp.Feedback),
		Score:     *resp.AnswerScore,
	}, nil
}

// Summarize asks /summarize-and-score for a session summary and overall score.
func (c *Client) Summarize(ctx context.Context, entries []transcript.Entry) (Summary, error) {
	if entries == nil {
		entries = []transcript.Entry{}
	}
	var resp Summary
	if err := c.postJSON(ctx, "/summarize-and-score", summarizeRequest{SessionData: entries}, &resp); err != nil {
		return Summary{}, err
	}
	resp.Text = strings.TrimSpace(resp.Text)
	return resp, nil
}

// GenerateQuestions asks /generate-questions for a question set matching prompt.
func (c *Client) GenerateQuestions(ctx context.Context, prompt string) ([]interview.Question, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("prompt required")
	}
	var resp []interview.Question
	if err := c.postJSON(ctx, "/generate-questions", generateRequest{Prompt: prompt}, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}
