// Package transcript models per-question answer analyses and the ordered session transcript.
package transcript

import "github.com/rbright/rehearse/internal/interview"

// Sentinel values used when no real analysis is available for an answer.
const (
	SkippedText     = "[SKIPPED]"
	SkippedVerdict  = "Skipped"
	SkippedFeedback = "Question was skipped by the user."

	FailedText     = "Error: Could not process this answer."
	FailedFeedback = "A technical error occurred during analysis."

	NotAvailable = "N/A"
)

// FillerWords is the filler-word tally for one answer.
type FillerWords struct {
	Count int      `json:"count"`
	Words []string `json:"words"`
}

// Entry is one Answer Analysis record. Field names follow the analysis service payloads.
type Entry struct {
	QuestionText    string      `json:"questionText"`
	TranscribedText string      `json:"transcribedText"`
	DominantEmotion string      `json:"dominantEmotion"`
	WordsPerMinute  int         `json:"wordsPerMinute"`
	FillerWords     FillerWords `json:"fillerWords"`
	Relevance       string      `json:"relevance"`
	Clarity         string      `json:"clarity"`
	Feedback        string      `json:"feedback"`
	AnswerScore     int         `json:"answerScore"`
	SentimentScore  float64     `json:"sentimentScore"`
	KeyPoints       []string    `json:"keyPoints"`
	ModelAnswer     string      `json:"modelAnswer"`
}

// Skipped builds the record for a question the user skipped.
func Skipped(q interview.Question) Entry {
	entry := sentinel(q, SkippedText)
	entry.Relevance = SkippedVerdict
	entry.Clarity = SkippedVerdict
	entry.Feedback = SkippedFeedback
	return entry
}

// Failed builds the degraded record used when either analysis call fails.
func Failed(q interview.Question) Entry {
	entry := sentinel(q, FailedText)
	entry.Relevance = NotAvailable
	entry.Clarity = NotAvailable
	entry.Feedback = FailedFeedback
	return entry
}

func sentinel(q interview.Question, text string) Entry {
	return Entry{
		QuestionText:    q.Text,
		TranscribedText: text,
		DominantEmotion: NotAvailable,
		FillerWords:     FillerWords{Words: []string{}},
		KeyPoints:       keyPoints(q),
		ModelAnswer:     modelAnswer(q),
	}
}

// Sentinel reports whether the entry was synthesized rather than analyzed.
func (e Entry) Sentinel() bool {
	return e.TranscribedText == SkippedText || e.TranscribedText == FailedText
}

// Skipped reports whether the entry records a skipped question.
func (e Entry) Skipped() bool {
	return e.TranscribedText == SkippedText
}

func keyPoints(q interview.Question) []string {
	if len(q.KeyPoints) == 0 {
		return []string{}
	}
	return append([]string(nil), q.KeyPoints...)
}

func modelAnswer(q interview.Question) string {
	if q.ModelAnswer == "" {
		return NotAvailable
	}
	return q.ModelAnswer
}

// Echo copies the question's text, key points, and reference answer onto an analyzed entry.
func Echo(entry Entry, q interview.Question) Entry {
	entry.QuestionText = q.Text
	entry.KeyPoints = keyPoints(q)
	entry.ModelAnswer = modelAnswer(q)
	if entry.FillerWords.Words == nil {
		entry.FillerWords.Words = []string{}
	}
	return entry
}

// Clone returns a copy that shares no slices with entries.
func Clone(entries []Entry) []Entry {
	if entries == nil {
		return nil
	}
	out := make([]Entry, len(entries))
	for i, entry := range entries {
		entry.KeyPoints = append([]string(nil), entry.KeyPoints...)
		entry.FillerWords.Words = append([]string(nil), entry.FillerWords.Words...)
		out[i] = entry
	}
	return out
}
