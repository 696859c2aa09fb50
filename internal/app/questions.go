package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/rbright/rehearse/internal/analysis"
	"github.com/rbright/rehearse/internal/cli"
	"github.com/rbright/rehearse/internal/config"
	"github.com/rbright/rehearse/internal/interview"
	"github.com/rbright/rehearse/internal/llm"
	"github.com/rbright/rehearse/internal/questions"
)

func (r Runner) commandQuestions(ctx context.Context, src cli.Source, cfg config.Config, logger *slog.Logger) int {
	set, err := r.loadQuestions(ctx, src, cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	payload, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: encode questions: %v\n", err)
		return 1
	}
	fmt.Fprintln(r.Stdout, string(payload))
	return 0
}

// loadQuestions resolves src into a question set. Curated generation falls
// back to the built-in bank and says so on stderr.
func (r Runner) loadQuestions(ctx context.Context, src cli.Source, cfg config.Config, logger *slog.Logger) ([]interview.Question, error) {
	if src.File != "" {
		return questions.LoadFile(src.File)
	}

	gen, err := r.generator(ctx, cfg)
	if err != nil {
		return nil, err
	}
	policy := questions.Retry{
		Attempts: cfg.Questions.Attempts,
		Delay:    millis(cfg.Questions.RetryDelayMS),
		Logger:   logger,
	}

	if src.Prompt != "" {
		return questions.Custom(ctx, gen, src.Prompt, policy)
	}

	set, fallback, err := questions.Curated(ctx, gen, src.Domain, src.Difficulty, policy)
	if err != nil {
		return nil, err
	}
	if fallback {
		logger.Warn("question generation failed; using fallback bank", "domain", src.Domain)
		fmt.Fprintf(r.Stderr, "warning: question generation failed; using the built-in %s questions\n", src.Domain)
	}
	return set, nil
}

func (r Runner) generator(ctx context.Context, cfg config.Config) (questions.Generator, error) {
	switch cfg.Questions.Provider {
	case "gemini", "openai":
		completer, err := r.completer(ctx, cfg.Questions.Provider, cfg.Questions.Model, cfg)
		if err != nil {
			return nil, err
		}
		return questions.NewModelGenerator(completer, cfg.Questions.Count), nil
	default:
		return questions.NewServiceGenerator(analysisClient(cfg)), nil
	}
}

func (r Runner) completer(ctx context.Context, provider string, model string, cfg config.Config) (llm.Completer, error) {
	if r.Completer != nil {
		return r.Completer, nil
	}
	opts := llm.Options{Provider: provider, Model: model}
	if provider == "openai" {
		opts.BaseURL = cfg.Questions.OpenAIBaseURL
	}
	completer, err := llm.New(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%s backend: %w", provider, err)
	}
	return completer, nil
}

func analysisClient(cfg config.Config) *analysis.Client {
	return analysis.New(cfg.Analysis.BaseURL, analysis.WithTimeout(millis(cfg.Analysis.TimeoutMS)))
}

// sessionTopic picks the stored label: flag, then config, then the source.
func sessionTopic(flagTopic string, cfg config.Config, src cli.Source) string {
	for _, topic := range []string{flagTopic, cfg.Session.Topic} {
		if t := strings.TrimSpace(topic); t != "" {
			return t
		}
	}
	switch {
	case src.Domain != "":
		return fmt.Sprintf("%s (%s)", src.Domain, src.Difficulty)
	case src.File != "":
		return strings.TrimSuffix(filepath.Base(src.File), filepath.Ext(src.File))
	default:
		return "Custom interview"
	}
}
