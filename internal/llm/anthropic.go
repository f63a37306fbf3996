package llm

import (
	"context"
	"errors"
	"net/http"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// messagesClient captures the subset of the Anthropic SDK used by the
// adapter, so tests can substitute a fake without a live API key. Grounded
// on features/model/anthropic.MessagesClient in the teacher repo.
type messagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// anthropicProvider generates text via the Anthropic Messages API.
type anthropicProvider struct {
	msg messagesClient
}

func newAnthropicProvider(apiKey string) *anthropicProvider {
	c := sdk.NewClient(option.WithAPIKey(apiKey))
	return &anthropicProvider{msg: &c.Messages}
}

func (p *anthropicProvider) Name() string { return ProviderAnthropic }

func (p *anthropicProvider) Generate(ctx context.Context, modelID string, req Request) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	params := sdk.MessageNewParams{
		MaxTokens: int64(maxTokens),
		Model:     sdk.Model(modelID),
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt)),
		},
	}
	if req.Temperature > 0 {
		params.Temperature = sdk.Float(req.Temperature)
	}
	msg, err := p.msg.New(ctx, params)
	if err != nil {
		return "", &ProviderError{Provider: ProviderAnthropic, Retryable: classifyHTTPErr(err), Err: err}
	}
	var out string
	for _, block := range msg.Content {
		if text := block.AsAny(); text != nil {
			if tb, ok := text.(sdk.TextBlock); ok {
				out += tb.Text
			}
		}
	}
	if out == "" {
		return "", &ProviderError{Provider: ProviderAnthropic, Retryable: false, Err: errors.New("empty response content")}
	}
	return out, nil
}

// classifyHTTPErr inspects an SDK error for an embedded status code and
// reports whether a retry is worthwhile: 5xx and transport errors are
// retryable, 4xx is terminal, matching spec.md §4.5.
func classifyHTTPErr(err error) bool {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusInternalServerError
	}
	// No status code available (DNS failure, connection reset, timeout):
	// treat as a transport error and retry.
	return true
}
