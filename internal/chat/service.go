package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/rbright/rehearse/internal/llm"
)

const (
	chatTemperature = 0.6
	chatMaxTokens   = 512
	openingRequest  = "Begin the interview. Greet me briefly and ask your first question."
)

const systemTemplate = `You are an experienced interviewer for the role described in the job description below.
Conduct a realistic mock interview: ask one question at a time, follow up on my answers,
and keep each reply under 120 words. When I ask for feedback, give specific, honest advice
tied to the job requirements.

Job description:
%s`

// Service runs conversations against a language model.
type Service struct {
	completer llm.Completer
	store     *Store
	logger    *slog.Logger
}

// NewService builds a chat service backed by store.
func NewService(completer llm.Completer, store *Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{completer: completer, store: store, logger: logger}
}

// Start opens a conversation for jd and returns its id and the interviewer's opening line.
func (s *Service) Start(ctx context.Context, jd string) (string, string, error) {
	jd = strings.TrimSpace(jd)
	if jd == "" {
		return "", "", errors.New("job description is required to start chat")
	}

	system := fmt.Sprintf(systemTemplate, jd)
	opener := llm.Turn{Role: llm.RoleUser, Text: openingRequest}
	reply, err := s.completer.Complete(ctx, llm.Request{
		System:      system,
		Turns:       []llm.Turn{opener},
		Temperature: chatTemperature,
		MaxTokens:   chatMaxTokens,
	})
	if err != nil {
		return "", "", fmt.Errorf("start chat: %w", err)
	}

	id := uuid.NewString()
	s.store.put(id, &conversation{
		system: system,
		turns:  []llm.Turn{opener, {Role: llm.RoleAssistant, Text: reply}},
	})
	s.logger.Info("chat started", "id", id)
	return id, reply, nil
}

// Send adds message to conversation id and returns the reply. A failed model
// call leaves the history unchanged.
func (s *Service) Send(ctx context.Context, id string, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", errors.New("message is required")
	}

	c, err := s.store.get(id)
	if err != nil {
		return "", err
	}

	user := llm.Turn{Role: llm.RoleUser, Text: message}
	reply, err := s.completer.Complete(ctx, llm.Request{
		System:      c.system,
		Turns:       append(c.turns, user),
		Temperature: chatTemperature,
		MaxTokens:   chatMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat reply: %w", err)
	}

	if err := s.store.appendTurns(id, user, llm.Turn{Role: llm.RoleAssistant, Text: reply}); err != nil {
		return "", err
	}
	return reply, nil
}

// End removes conversation id.
func (s *Service) End(id string) error {
	if err := s.store.End(id); err != nil {
		return err
	}
	s.logger.Info("chat ended", "id", id)
	return nil
}
