package llm

// Provider name constants, matching the provider keys used in the LLM
// configuration file (spec.md §6) and original_source/llm/llm_facade.py's
// provider dispatch.
const (
	ProviderAnthropic   = "anthropic"
	ProviderOpenAI      = "openai"
	ProviderGoogle      = "google"
	ProviderMeta        = "meta"
	ProviderDeepSeek    = "deepseek"
	ProviderBedrock     = "aws_bedrock"
	ProviderHuggingFace = "huggingface"
	ProviderMock        = "mock"
)
