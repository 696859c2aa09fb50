package questions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/rbright/rehearse/internal/interview"
)

// Retry controls how many times generation is attempted before giving up.
type Retry struct {
	Attempts int
	Delay    time.Duration
	Logger   *slog.Logger
}

// DefaultRetry matches two attempts one second apart.
var DefaultRetry = Retry{Attempts: 2, Delay: time.Second}

// CuratedPrompt builds the standard prompt for a domain and difficulty.
func CuratedPrompt(domain string, difficulty string) string {
	return fmt.Sprintf("Generate a standard, 8-question interview for a candidate practicing for a %q role at a %q difficulty level.", domain, difficulty)
}

// Curated generates a standard set for domain and difficulty. When every
// attempt fails it returns the static set for domain, and fallback is true.
func Curated(ctx context.Context, gen Generator, domain string, difficulty string, policy Retry) (set []interview.Question, fallback bool, err error) {
	domain = strings.TrimSpace(domain)
	difficulty = strings.TrimSpace(difficulty)
	if domain == "" || difficulty == "" {
		return nil, false, errors.New("domain and difficulty are required")
	}

	set, err = generate(ctx, gen, CuratedPrompt(domain, difficulty), policy)
	if err == nil {
		return set, false, nil
	}
	if ctx.Err() != nil {
		return nil, false, ctx.Err()
	}

	logger(policy).Warn("question generation failed; using fallback set", "domain", domain, "error", err.Error())
	bank, ok := Fallback(domain)
	if !ok {
		return nil, false, fmt.Errorf("%w: %w", ErrNoFallback, err)
	}
	return bank, true, nil
}

// Custom generates a set for a free-form prompt, with retries but no fallback.
func Custom(ctx context.Context, gen Generator, prompt string, policy Retry) ([]interview.Question, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, errors.New("prompt is required")
	}
	return generate(ctx, gen, prompt, policy)
}

func generate(ctx context.Context, gen Generator, prompt string, policy Retry) ([]interview.Question, error) {
	attempts := max(policy.Attempts, 1)
	delay := max(policy.Delay, time.Millisecond)
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewConstant(delay))

	attempt := 0
	return retry.DoValue(ctx, backoff, func(ctx context.Context) ([]interview.Question, error) {
		attempt++
		set, err := gen.Generate(ctx, prompt)
		if err == nil && len(set) == 0 {
			err = fmt.Errorf("%w: generator returned none", ErrTooFewQuestions)
		}
		if err != nil {
			logger(policy).Warn("question generation attempt failed", "attempt", attempt, "of", attempts, "error", err.Error())
			return nil, retry.RetryableError(err)
		}
		return set, nil
	})
}

func logger(policy Retry) *slog.Logger {
	if policy.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return policy.Logger
}
