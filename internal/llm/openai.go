package llm

import (
	"context"
	"errors"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// chatClient captures the subset of the openai-go client the adapter needs.
// The teacher repo's features/model/openai package imports the unrelated
// github.com/sashabaranov/go-openai client even though go.mod only commits
// to github.com/openai/openai-go; this adapter follows go.mod rather than
// that stale import.
type chatClient interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// openaiProvider generates text via the OpenAI Chat Completions API.
type openaiProvider struct {
	chat chatClient
}

func newOpenAIProvider(apiKey string) *openaiProvider {
	c := openai.NewClient(option.WithAPIKey(apiKey))
	return &openaiProvider{chat: &c.Chat.Completions}
}

func (p *openaiProvider) Name() string { return ProviderOpenAI }

func (p *openaiProvider) Generate(ctx context.Context, modelID string, req Request) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(modelID),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	resp, err := p.chat.New(ctx, params)
	if err != nil {
		return "", &ProviderError{Provider: ProviderOpenAI, Retryable: classifyOpenAIErr(err), Err: err}
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", &ProviderError{Provider: ProviderOpenAI, Retryable: false, Err: errors.New("empty choices")}
	}
	return resp.Choices[0].Message.Content, nil
}

func classifyOpenAIErr(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusInternalServerError
	}
	return true
}
