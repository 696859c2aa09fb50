package transcript

import "math"

// AverageScore is the rounded mean answer score across entries.
// Sentinel entries count as zero, matching how they are stored.
func AverageScore(entries []Entry) int {
	if len(entries) == 0 {
		return 0
	}

	total := 0
	for _, entry := range entries {
		total += entry.AnswerScore
	}
	return int(math.Round(float64(total) / float64(len(entries))))
}

// Counts tallies analyzed, skipped, and failed entries.
func Counts(entries []Entry) (answered, skipped, failed int) {
	for _, entry := range entries {
		switch entry.TranscribedText {
		case SkippedText:
			skipped++
		case FailedText:
			failed++
		default:
			answered++
		}
	}
	return answered, skipped, failed
}
