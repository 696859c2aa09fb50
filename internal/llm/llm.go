// Package llm wraps the text-generation backends used for questions and chat.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// ErrNoAPIKey is returned when a provider has no credential in the environment.
var ErrNoAPIKey = errors.New("api key not set")

// ErrEmptyResponse is returned when a backend answers with no text.
var ErrEmptyResponse = errors.New("model returned no text")

// Role marks who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a conversation.
type Turn struct {
	Role Role
	Text string
}

// Request is one completion call.
type Request struct {
	System      string
	Turns       []Turn
	JSON        bool
	Temperature float64
	MaxTokens   int
}

// Completer produces the next assistant message for a conversation.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Options selects and configures a backend.
type Options struct {
	Provider   string
	Model      string
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// New builds the Completer for opts.Provider. An empty APIKey is read from the environment.
func New(ctx context.Context, opts Options) (Completer, error) {
	provider := strings.ToLower(strings.TrimSpace(opts.Provider))
	if opts.APIKey == "" {
		opts.APIKey = APIKeyFromEnv(provider)
	}

	switch provider {
	case "gemini":
		return NewGemini(ctx, opts)
	case "openai":
		return NewOpenAI(opts)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", opts.Provider)
	}
}

// APIKeyFromEnv returns the credential for provider, or "".
func APIKeyFromEnv(provider string) string {
	var names []string
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gemini":
		names = []string{"GOOGLE_API_KEY", "GEMINI_API_KEY"}
	case "openai":
		names = []string{"OPENAI_API_KEY"}
	}
	for _, name := range names {
		if key := strings.TrimSpace(os.Getenv(name)); key != "" {
			return key
		}
	}
	return ""
}

// KeyEnvNames lists the variables APIKeyFromEnv consults for provider.
func KeyEnvNames(provider string) string {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gemini":
		return "GOOGLE_API_KEY or GEMINI_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	default:
		return ""
	}
}
