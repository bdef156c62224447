package llm

import (
	"strings"
)

const (
	deepSeekName           = "deepseek"
	deepSeekDefaultBaseURL = "https://api.deepseek.com/v1"
	deepSeekDefaultModel   = "deepseek-chat"
)

// DeepSeekProvider implements Provider over the DeepSeek API, which is
// wire-compatible with OpenAI chat completions
type DeepSeekProvider struct {
	apiKey string
	client *chatClient
}

// NewDeepSeekProvider creates a DeepSeek provider. Empty baseURL and model
// select the defaults.
func NewDeepSeekProvider(apiKey, baseURL, model string) *DeepSeekProvider {
	if baseURL == "" {
		baseURL = deepSeekDefaultBaseURL
	}
	if model == "" {
		model = deepSeekDefaultModel
	}
	return &DeepSeekProvider{
		apiKey: apiKey,
		client: newChatClient(strings.TrimSuffix(baseURL, "/"), apiKey, model),
	}
}

// Name returns the registry name
func (p *DeepSeekProvider) Name() string {
	return deepSeekName
}

// Available reports whether an API key is configured
func (p *DeepSeekProvider) Available() bool {
	return strings.TrimSpace(p.apiKey) != ""
}

// Analyze classifies the message and drafts a candidate reply
func (p *DeepSeekProvider) Analyze(req *AnalysisRequest) (*AnalysisResult, error) {
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
func (p *DeepSeekProvider) DraftReply(req *AnalysisRequest) (string, error) {
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
