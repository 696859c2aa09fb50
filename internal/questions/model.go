package questions

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rbright/rehearse/internal/interview"
	"github.com/rbright/rehearse/internal/llm"
)

const (
	defaultCount     = 8
	maxModelCalls    = 3
	modelMaxTokens   = 1024
	modelTemperature = 0.7
)

var jsonObject = regexp.MustCompile(`(?s)\{.*?\}`)

// ModelGenerator asks a language model directly for questions.
type ModelGenerator struct {
	completer llm.Completer
	count     int
}

// NewModelGenerator builds a generator that collects count distinct questions.
func NewModelGenerator(completer llm.Completer, count int) *ModelGenerator {
	if count <= 0 {
		count = defaultCount
	}
	return &ModelGenerator{completer: completer, count: count}
}

// Generate collects distinct questions over up to three model calls.
func (g *ModelGenerator) Generate(ctx context.Context, prompt string) ([]interview.Question, error) {
	collected := make([]interview.Question, 0, g.count)
	seen := make(map[string]struct{}, g.count)

	var lastErr error
	for call := 0; call < maxModelCalls && len(collected) < g.count; call++ {
		reply, err := g.completer.Complete(ctx, llm.Request{
			Turns:       []llm.Turn{{Role: llm.RoleUser, Text: buildPrompt(prompt, g.count-len(collected), collected)}},
			Temperature: modelTemperature,
			MaxTokens:   modelMaxTokens,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		for _, q := range extractQuestions(reply) {
			if _, dup := seen[q.Text]; dup {
				continue
			}
			seen[q.Text] = struct{}{}
			collected = append(collected, q)
			if len(collected) == g.count {
				break
			}
		}
	}

	if len(collected) < g.count {
		if lastErr != nil {
			return nil, fmt.Errorf("%w: only %d of %d after retries: %w", ErrTooFewQuestions, len(collected), g.count, lastErr)
		}
		return nil, fmt.Errorf("%w: only %d of %d after retries", ErrTooFewQuestions, len(collected), g.count)
	}
	return collected, nil
}

func buildPrompt(request string, remaining int, have []interview.Question) string {
	existing := make([]string, 0, len(have))
	for _, q := range have {
		existing = append(existing, strconv.Quote(q.Text))
	}
	listed := "[" + strings.Join(existing, ",") + "]"

	var b strings.Builder
	fmt.Fprintf(&b, "Based on the user request: %q, generate %d interview questions.\n", request, remaining)
	fmt.Fprintf(&b, "Only generate questions that are DIFFERENT from the ones already listed below:\n%s\n\n", listed)
	b.WriteString("Respond strictly as a JSON array. Each item must have these three fields:\n")
	b.WriteString(`"question", "keyPoints", and "modelAnswer".`)
	return b.String()
}

// extractQuestions pulls complete question objects out of free-form model text.
func extractQuestions(reply string) []interview.Question {
	cleaned := strings.ReplaceAll(reply, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")

	out := make([]interview.Question, 0)
	for _, raw := range jsonObject.FindAllString(cleaned, -1) {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal([]byte(raw), &fields); err != nil {
			continue
		}
		if !hasFields(fields, "question", "keyPoints", "modelAnswer") {
			continue
		}

		var q interview.Question
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			continue
		}
		q = normalize([]interview.Question{q})[0]
		if q.Text == "" {
			continue
		}
		out = append(out, q)
	}
	return out
}

func hasFields(fields map[string]json.RawMessage, names ...string) bool {
	for _, name := range names {
		if _, ok := fields[name]; !ok {
			return false
		}
	}
	return true
}
