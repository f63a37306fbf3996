package llm

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	smithy "github.com/aws/smithy-go"
)

// runtimeClient mirrors the subset of the AWS Bedrock runtime client the
// adapter needs, grounded on features/model/bedrock.RuntimeClient in the
// teacher repo so a fake can stand in for tests.
type runtimeClient interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// bedrockProvider generates text via the AWS Bedrock Converse API.
type bedrockProvider struct {
	rt runtimeClient
}

func newBedrockProvider(ctx context.Context, region string) (*bedrockProvider, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &bedrockProvider{rt: bedrockruntime.NewFromConfig(cfg)}, nil
}

func (p *bedrockProvider) Name() string { return ProviderBedrock }

func (p *bedrockProvider) Generate(ctx context.Context, modelID string, req Request) (string, error) {
	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(modelID),
		Messages: []brtypes.Message{
			{
				Role:    brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: req.Prompt}},
			},
		},
	}
	if req.MaxTokens > 0 || req.Temperature > 0 {
		cfg := &brtypes.InferenceConfiguration{}
		if req.MaxTokens > 0 {
			mt := int32(req.MaxTokens)
			cfg.MaxTokens = &mt
		}
		if req.Temperature > 0 {
			t := float32(req.Temperature)
			cfg.Temperature = &t
		}
		input.InferenceConfig = cfg
	}

	out, err := p.rt.Converse(ctx, input)
	if err != nil {
		return "", &ProviderError{Provider: ProviderBedrock, Retryable: classifyBedrockErr(err), Err: err}
	}
	msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return "", &ProviderError{Provider: ProviderBedrock, Retryable: false, Err: errors.New("unexpected converse output shape")}
	}
	var text string
	for _, block := range msg.Value.Content {
		if tb, ok := block.(*brtypes.ContentBlockMemberText); ok {
			text += tb.Value
		}
	}
	if text == "" {
		return "", &ProviderError{Provider: ProviderBedrock, Retryable: false, Err: errors.New("empty response content")}
	}
	return text, nil
}

func classifyBedrockErr(err error) bool {
	var internal *brtypes.InternalServerException
	if errors.As(err, &internal) {
		return true
	}
	var serviceUnavailable *brtypes.ServiceUnavailableException
	if errors.As(err, &serviceUnavailable) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		// Validation/access-denied style Bedrock exceptions are terminal.
		return false
	}
	return true
}
