package questions

import (
	"context"
	"fmt"

	"github.com/rbright/rehearse/internal/interview"
)

// questionService is the analysis service's generation endpoint.
type questionService interface {
	GenerateQuestions(ctx context.Context, prompt string) ([]interview.Question, error)
}

// ServiceGenerator delegates generation to the analysis service.
type ServiceGenerator struct {
	client questionService
}

// NewServiceGenerator wraps an analysis client.
func NewServiceGenerator(client questionService) *ServiceGenerator {
	return &ServiceGenerator{client: client}
}

func (g *ServiceGenerator) Generate(ctx context.Context, prompt string) ([]interview.Question, error) {
	set, err := g.client.GenerateQuestions(ctx, prompt)
	if err != nil {
		return nil, err
	}
	set = normalize(set)
	if len(set) == 0 {
		return nil, fmt.Errorf("%w: service returned none", ErrTooFewQuestions)
	}
	return set, nil
}
