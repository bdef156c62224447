package llm

import (
	"strings"
)

const (
	openAIName           = "openai"
	openAIDefaultBaseURL = "https://api.openai.com/v1"
	openAIDefaultModel   = "gpt-4o-mini"
)

// OpenAIProvider implements Provider over the OpenAI chat completions API
type OpenAIProvider struct {
	apiKey string
	client *chatClient
}

// NewOpenAIProvider creates an OpenAI provider. Empty baseURL and model
// select the defaults.
func NewOpenAIProvider(apiKey, baseURL, model string) *OpenAIProvider {
	if baseURL == "" {
		baseURL = openAIDefaultBaseURL
	}
	if model == "" {
		model = openAIDefaultModel
	}
	return &OpenAIProvider{
		apiKey: apiKey,
		client: newChatClient(strings.TrimSuffix(baseURL, "/"), apiKey, model),
	}
}

// Name returns the registry name
func (p *OpenAIProvider) Name() string {
	return openAIName
}

// Available reports whether an API key is configured
func (p *OpenAIProvider) Available() bool {
	return strings.TrimSpace(p.apiKey) != ""
}

// Analyze classifies the message and drafts a candidate reply
func (p *OpenAIProvider) Analyze(req *AnalysisRequest) (*AnalysisResult, error) {
	messages := []ChatMessage{
		{Role: "system", Content: buildAnalysisPrompt(req)},
		{Role: "user", Content: formatMessage(req)},
	}

	content, err := p.client.send(messages)
	if err != nil {
		return nil, err
	}

	return parseAnalysisContent(content), nil
}

// DraftReply generates only a reply body
func (p *OpenAIProvider) DraftReply(req *AnalysisRequest) (string, error) {
	messages := []ChatMessage{
		{Role: "system", Content: buildReplyPrompt(req)},
		{Role: "user", Content: formatMessage(req)},
	}

	content, err := p.client.send(messages)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(content), nil
}
