package llm

import (
	"time"
)

// PreferenceContext carries the preference fields relevant to prompting
type PreferenceContext struct {
	ReplyStyle        string
	AttentionKeywords []string
	TrustedSenders    []string
}

// AnalysisRequest carries one message plus enrichment context to a provider
type AnalysisRequest struct {
	ExternalID  string
	Subject     string
	Content     string
	SenderEmail string
	SenderName  string
	ReceivedAt  time.Time

	Preferences         *PreferenceContext
	HistoricalReplies   []string
	ConversationContext string
}

// AnalysisResult is the structured outcome of analyzing one message
type AnalysisResult struct {
	RequiresAttention bool    `json:"requiresAttention"`
	ConfidenceScore   float64 `json:"confidenceScore"`
	Reason            string  `json:"reason"`
	DraftReply        string  `json:"draftReply"`
	Category          string  `json:"category"`
	Sentiment         string  `json:"sentiment"`

	// Provider is filled in by the router with the provider that produced
	// the result, which may differ from the requested one after fallback
	Provider string `json:"provider,omitempty"`
}
