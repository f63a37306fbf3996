package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// restTimeout matches original_source/llm/llm_facade.py's requests.post
// timeout=60 used across the Meta, DeepSeek and HuggingFace adapters.
const restTimeout = 60 * time.Second

// chatCompletionsProvider is a generic OpenAI-chat-completions-shaped REST
// adapter, grounded on original_source/llm/llm_facade.py::_meta_generate and
// ::_deepseek_generate (both POST {base_url}/chat/completions with a bearer
// token, an OpenAI-style body, and an OpenAI-style choices[0].message.content
// response). No native SDK exists in the corpus for either vendor, so this
// adapter covers both plus any other Llama-hosted/OpenAI-compatible gateway
// named in the LLM config file.
type chatCompletionsProvider struct {
	name    string
	apiKey  string
	baseURL string
	client  *http.Client
}

func newChatCompletionsProvider(name, apiKey, baseURL string) *chatCompletionsProvider {
	return &chatCompletionsProvider{name: name, apiKey: apiKey, baseURL: baseURL, client: &http.Client{Timeout: restTimeout}}
}

func (p *chatCompletionsProvider) Name() string { return p.name }

func (p *chatCompletionsProvider) Generate(ctx context.Context, modelID string, req Request) (string, error) {
	temperature := req.Temperature
	if temperature == 0 {
		temperature = 1.0
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}
	body, err := json.Marshal(map[string]any{
		"model": modelID,
		"messages": []map[string]string{
			{"role": "user", "content": req.Prompt},
		},
		"temperature": temperature,
		"max_tokens":  maxTokens,
	})
	if err != nil {
		return "", &ProviderError{Provider: p.name, Retryable: false, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", &ProviderError{Provider: p.name, Retryable: false, Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", &ProviderError{Provider: p.name, Retryable: true, Err: err}
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return "", &ProviderError{Provider: p.name, Retryable: retryableStatus(resp.StatusCode), Err: fmt.Errorf("status %d: %s", resp.StatusCode, string(data))}
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", &ProviderError{Provider: p.name, Retryable: false, Err: err}
	}
	if len(parsed.Choices) == 0 {
		return "", &ProviderError{Provider: p.name, Retryable: false, Err: errors.New("empty choices")}
	}
	return parsed.Choices[0].Message.Content, nil
}

// geminiProvider talks to the Google Gemini REST API. Grounded on
// original_source/llm/llm_facade.py::_google_generate, which itself uses a
// thin genai client rather than a native transport; no Go Gemini SDK exists
// in the corpus, so this is expressed as a direct REST call (spec.md §4.5a).
type geminiProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func newGeminiProvider(apiKey, baseURL string) *geminiProvider {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta/models"
	}
	return &geminiProvider{apiKey: apiKey, baseURL: baseURL, client: &http.Client{Timeout: restTimeout}}
}

func (p *geminiProvider) Name() string { return ProviderGoogle }

func (p *geminiProvider) Generate(ctx context.Context, modelID string, req Request) (string, error) {
	body, err := json.Marshal(map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": req.Prompt}}},
		},
		"generationConfig": map[string]any{
			"temperature": req.Temperature,
		},
	})
	if err != nil {
		return "", &ProviderError{Provider: ProviderGoogle, Retryable: false, Err: err}
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", p.baseURL, modelID, p.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", &ProviderError{Provider: ProviderGoogle, Retryable: false, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", &ProviderError{Provider: ProviderGoogle, Retryable: true, Err: err}
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return "", &ProviderError{Provider: ProviderGoogle, Retryable: retryableStatus(resp.StatusCode), Err: fmt.Errorf("status %d: %s", resp.StatusCode, string(data))}
	}

	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", &ProviderError{Provider: ProviderGoogle, Retryable: false, Err: err}
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", &ProviderError{Provider: ProviderGoogle, Retryable: false, Err: errors.New("empty candidates")}
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

// huggingFaceProvider talks to the HuggingFace Inference API, whose response
// envelope ({"generated_text": ...} or a list of those) differs from the
// chat-completions shape. Grounded on
// original_source/llm/llm_facade.py::_huggingface_generate.
type huggingFaceProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func newHuggingFaceProvider(apiKey, baseURL string) *huggingFaceProvider {
	return &huggingFaceProvider{apiKey: apiKey, baseURL: baseURL, client: &http.Client{Timeout: restTimeout}}
}

func (p *huggingFaceProvider) Name() string { return ProviderHuggingFace }

func (p *huggingFaceProvider) Generate(ctx context.Context, modelID string, req Request) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}
	body, err := json.Marshal(map[string]any{
		"inputs": req.Prompt,
		"parameters": map[string]any{
			"max_new_tokens": maxTokens,
			"temperature":    req.Temperature,
		},
	})
	if err != nil {
		return "", &ProviderError{Provider: ProviderHuggingFace, Retryable: false, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/"+modelID, bytes.NewReader(body))
	if err != nil {
		return "", &ProviderError{Provider: ProviderHuggingFace, Retryable: false, Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", &ProviderError{Provider: ProviderHuggingFace, Retryable: true, Err: err}
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return "", &ProviderError{Provider: ProviderHuggingFace, Retryable: retryableStatus(resp.StatusCode), Err: fmt.Errorf("status %d: %s", resp.StatusCode, string(data))}
	}

	var list []struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := json.Unmarshal(data, &list); err == nil && len(list) > 0 {
		return list[0].GeneratedText, nil
	}
	var single struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := json.Unmarshal(data, &single); err != nil {
		return "", &ProviderError{Provider: ProviderHuggingFace, Retryable: false, Err: err}
	}
	return single.GeneratedText, nil
}

func retryableStatus(code int) bool {
	return code >= http.StatusInternalServerError
}
