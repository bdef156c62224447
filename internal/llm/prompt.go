package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// buildAnalysisPrompt builds the system prompt for full message analysis.
// The model is asked for every determination the analysis result carries.
func buildAnalysisPrompt(req *AnalysisRequest) string {
	var b strings.Builder
	b.WriteString("You are an intelligent email assistant. Analyze the following email and determine:\n")
	b.WriteString("1. Whether it requires personal attention from the user\n")
	b.WriteString("2. The confidence level of your decision (0.0 to 1.0)\n")
	b.WriteString("3. The reason for your decision\n")
	b.WriteString("4. An appropriate reply if it doesn't need personal attention\n")
	b.WriteString("5. The email category (business, personal, spam, newsletter, etc.)\n")
	b.WriteString("6. The sentiment (positive, negative, neutral, urgent)\n\n")

	if req.Preferences != nil {
		b.WriteString("User preferences:\n")
		if len(req.Preferences.AttentionKeywords) > 0 {
			b.WriteString("- Keywords requiring attention: " + strings.Join(req.Preferences.AttentionKeywords, ", ") + "\n")
		}
		if req.Preferences.ReplyStyle != "" {
			b.WriteString("- Reply style: " + req.Preferences.ReplyStyle + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("Respond in JSON format with fields: requiresAttention, confidenceScore, reason, draftReply, category, sentiment\n")
	return b.String()
}

// buildReplyPrompt builds the system prompt for drafting a reply only
func buildReplyPrompt(req *AnalysisRequest) string {
	var b strings.Builder
	b.WriteString("You are generating a professional email reply. ")

	if req.Preferences != nil && req.Preferences.ReplyStyle != "" {
		b.WriteString("Use a " + req.Preferences.ReplyStyle + " tone. ")
	}

	if len(req.HistoricalReplies) > 0 {
		b.WriteString("Consider these historical response patterns:\n")
		for _, h := range req.HistoricalReplies {
			b.WriteString("- " + h + "\n")
		}
	}

	if req.ConversationContext != "" {
		b.WriteString("Context: " + req.ConversationContext + "\n")
	}

	b.WriteString("Generate a concise, helpful reply that addresses the sender's needs.")
	return b.String()
}

// formatMessage renders the message itself as the user turn
func formatMessage(req *AnalysisRequest) string {
	return fmt.Sprintf(
		"Subject: %s\nFrom: %s <%s>\nReceived: %s\n\nContent:\n%s",
		req.Subject,
		req.SenderName,
		req.SenderEmail,
		req.ReceivedAt.Format("2006-01-02 15:04:05"),
		req.Content,
	)
}

// parseAnalysisContent parses the model's JSON analysis reply. A parse
// failure never raises: it degrades to a conservative default so that an
// unreadable analysis is treated as needing human review.
func parseAnalysisContent(content string) *AnalysisResult {
	cleaned := stripCodeFence(content)

	var result AnalysisResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return conservativeDefault()
	}

	if result.ConfidenceScore < 0 {
		result.ConfidenceScore = 0
	}
	if result.ConfidenceScore > 1 {
		result.ConfidenceScore = 1
	}

	return &result
}

// conservativeDefault is the fallback when analysis output cannot be
// understood: require attention so nothing is auto-responded unreviewed
func conservativeDefault() *AnalysisResult {
	return &AnalysisResult{
		RequiresAttention: true,
		ConfidenceScore:   0.5,
		Reason:            "unable to analyze",
	}
}

// stripCodeFence removes a surrounding markdown code fence, which chat
// models often wrap JSON in
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
