package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	openaigo "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const openAIRequestTimeout = 60 * time.Second

// OpenAI generates text through any OpenAI-compatible chat completions API.
type OpenAI struct {
	client openaigo.Client
	model  string
}

// NewOpenAI builds an OpenAI backend.
func NewOpenAI(opts Options) (*OpenAI, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("openai: %w (%s)", ErrNoAPIKey, KeyEnvNames("openai"))
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(opts.APIKey)),
		option.WithMaxRetries(2),
		option.WithRequestTimeout(openAIRequestTimeout),
	}
	if baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"); baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(baseURL))
	}
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(opts.HTTPClient))
	}

	return &OpenAI{client: openaigo.NewClient(clientOpts...), model: opts.Model}, nil
}

func (o *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	messages := make([]openaigo.ChatCompletionMessageParamUnion, 0, len(req.Turns)+1)
	if req.System != "" {
		messages = append(messages, openaigo.SystemMessage(req.System))
	}
	for _, turn := range req.Turns {
		if turn.Role == RoleAssistant {
			messages = append(messages, openaigo.AssistantMessage(turn.Text))
			continue
		}
		messages = append(messages, openaigo.UserMessage(turn.Text))
	}

	params := openaigo.ChatCompletionNewParams{
		Model:    openaigo.ChatModel(o.model),
		Messages: messages,
	}
	if req.Temperature > 0 {
		params.Temperature = openaigo.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openaigo.Int(int64(req.MaxTokens))
	}
	if req.JSON {
		params.ResponseFormat = openaigo.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
