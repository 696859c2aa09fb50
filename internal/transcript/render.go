package transcript

import (
	"fmt"
	"io"
	"strings"
)

// Render writes a plain-text report of the transcript.
func Render(w io.Writer, entries []Entry) error {
	answered, skipped, failed := Counts(entries)
	if _, err := fmt.Fprintf(w, "%d answered, %d skipped, %d failed, average score %d\n",
		answered, skipped, failed, AverageScore(entries)); err != nil {
		return err
	}

	for i, entry := range entries {
		var b strings.Builder
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, entry.QuestionText)
		if entry.Sentinel() {
			fmt.Fprintf(&b, "   %s\n   %s\n", entry.TranscribedText, entry.Feedback)
		} else {
			fmt.Fprintf(&b, "   answer:    %s\n", Tidy(entry.TranscribedText))
			fmt.Fprintf(&b, "   score:     %d   relevance: %s   clarity: %s\n", entry.AnswerScore, entry.Relevance, entry.Clarity)
			fmt.Fprintf(&b, "   delivery:  %s, %d wpm, %d filler words", entry.DominantEmotion, entry.WordsPerMinute, entry.FillerWords.Count)
			if len(entry.FillerWords.Words) > 0 {
				fmt.Fprintf(&b, " (%s)", strings.Join(entry.FillerWords.Words, ", "))
			}
			fmt.Fprintf(&b, "\n   feedback:  %s\n", entry.Feedback)
		}
		if len(entry.KeyPoints) > 0 {
			fmt.Fprintf(&b, "   key points: %s\n", strings.Join(entry.KeyPoints, "; "))
		}
		if entry.ModelAnswer != "" && entry.ModelAnswer != NotAvailable {
			fmt.Fprintf(&b, "   model answer: %s\n", entry.ModelAnswer)
		}
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
	}
	return nil
}
