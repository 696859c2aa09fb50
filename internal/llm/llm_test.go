package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAPIKeyFromEnv(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", " gem ")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	require.Equal(t, "gem", APIKeyFromEnv("gemini"))
	require.Equal(t, "sk-test", APIKeyFromEnv("OpenAI"))
	require.Empty(t, APIKeyFromEnv("service"))

	t.Setenv("GOOGLE_API_KEY", "google")
	require.Equal(t, "google", APIKeyFromEnv("gemini"))
}

func TestNewRejectsUnknownProviderAndMissingKey(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	_, err := New(context.Background(), Options{Provider: "oracle"})
	require.ErrorContains(t, err, "unknown llm provider")

	_, err = New(context.Background(), Options{Provider: "gemini", Model: "m"})
	require.ErrorIs(t, err, ErrNoAPIKey)

	_, err = New(context.Background(), Options{Provider: "openai", Model: "m"})
	require.ErrorIs(t, err, ErrNoAPIKey)
}

func TestOpenAICompleteSendsConversation(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-test","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  Tell me about your last project.  "}}]}`)
	}))
	defer srv.Close()

	completer, err := NewOpenAI(Options{Model: "gpt-test", APIKey: "sk-test", BaseURL: srv.URL})
	require.NoError(t, err)

	reply, err := completer.Complete(context.Background(), Request{
		System: "You are an interviewer.",
		Turns: []Turn{
			{Role: RoleUser, Text: "Hi"},
			{Role: RoleAssistant, Text: "Hello"},
			{Role: RoleUser, Text: "Ask me something"},
		},
		JSON:        true,
		Temperature: 0.7,
		MaxTokens:   256,
	})
	require.NoError(t, err)
	require.Equal(t, "Tell me about your last project.", reply)

	require.Equal(t, "gpt-test", body["model"])
	messages := body["messages"].([]any)
	require.Len(t, messages, 4)
	require.Equal(t, "system", messages[0].(map[string]any)["role"])
	require.Equal(t, "assistant", messages[2].(map[string]any)["role"])
	require.Equal(t, "json_object", body["response_format"].(map[string]any)["type"])
	require.InDelta(t, 0.7, body["temperature"], 1e-9)
}

func TestOpenAIEmptyChoicesIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"m","choices":[]}`)
	}))
	defer srv.Close()

	completer, err := NewOpenAI(Options{Model: "m", APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = completer.Complete(context.Background(), Request{Turns: []Turn{{Role: RoleUser, Text: "x"}}})
	require.ErrorIs(t, err, ErrEmptyResponse)
}

func TestGeminiCompleteSendsConversation(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Contains(t, r.URL.Path, "gemini-test:generateContent")
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"What drew you to this role?"}]}}]}`)
	}))
	defer srv.Close()

	completer, err := NewGemini(context.Background(), Options{Model: "gemini-test", APIKey: "key", BaseURL: srv.URL})
	require.NoError(t, err)

	reply, err := completer.Complete(context.Background(), Request{
		System: "You are an interviewer.",
		Turns: []Turn{
			{Role: RoleUser, Text: "Start"},
			{Role: RoleAssistant, Text: "Welcome"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "What drew you to this role?", reply)

	contents := body["contents"].([]any)
	require.Len(t, contents, 2)
	require.Equal(t, "model", contents[1].(map[string]any)["role"])
	require.NotNil(t, body["systemInstruction"])
}

func TestScriptedReplaysRepliesAndErrors(t *testing.T) {
	boom := errors.New("boom")
	s := NewScripted("one", "two").FailNext(boom)

	_, err := s.Complete(context.Background(), Request{})
	require.ErrorIs(t, err, boom)

	reply, err := s.Complete(context.Background(), Request{})
	require.NoError(t, err)
	require.Equal(t, "one", reply)

	reply, err = s.Complete(context.Background(), Request{})
	require.NoError(t, err)
	require.Equal(t, "two", reply)

	_, err = s.Complete(context.Background(), Request{})
	require.ErrorIs(t, err, ErrEmptyResponse)
	require.Equal(t, 4, s.Calls())
}
