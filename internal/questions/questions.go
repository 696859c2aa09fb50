// Package questions loads and generates interview question sets.
package questions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rbright/rehearse/internal/interview"
)

var (
	// ErrNoFallback is returned when generation fails and no static set covers the domain.
	ErrNoFallback = errors.New("failed to generate interview questions and no fallback is available")
	// ErrTooFewQuestions is returned when a generator cannot reach the requested count.
	ErrTooFewQuestions = errors.New("too few questions generated")
)

// Generator produces questions for a free-form request.
type Generator interface {
	Generate(ctx context.Context, prompt string) ([]interview.Question, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) ([]interview.Question, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) ([]interview.Question, error) {
	return f(ctx, prompt)
}

// LoadFile reads a JSON array of questions.
func LoadFile(path string) ([]interview.Question, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read questions %q: %w", path, err)
	}

	var set []interview.Question
	if err := json.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("decode questions %q: %w", path, err)
	}
	set = normalize(set)
	if len(set) == 0 {
		return nil, fmt.Errorf("questions %q: no questions", path)
	}
	for i, q := range set {
		if q.Text == "" {
			return nil, fmt.Errorf("questions %q: question %d has no text", path, i+1)
		}
	}
	return set, nil
}

// normalize trims text fields and drops blank key points.
func normalize(set []interview.Question) []interview.Question {
	out := make([]interview.Question, 0, len(set))
	for _, q := range set {
		q.Text = strings.TrimSpace(q.Text)
		q.ModelAnswer = strings.TrimSpace(q.ModelAnswer)
		points := make([]string, 0, len(q.KeyPoints))
		for _, point := range q.KeyPoints {
			if point = strings.TrimSpace(point); point != "" {
				points = append(points, point)
			}
		}
		q.KeyPoints = points
		out = append(out, q)
	}
	return out
}
