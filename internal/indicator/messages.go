package indicator

import "fmt"

type messages struct {
	question   string
	recording  string
	processing string
	errorText  string
}

var defaultMessages = messages{
	question:   "Question %d of %d: get ready",
	recording:  "Recording your answer…",
	processing: "Analyzing your answer…",
	errorText:  "Interview session error",
}

func (m messages) questionText(number, total int) string {
	return fmt.Sprintf(m.question, number, total)
}
