package services

import (
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/godprim3/intelligent-email-assistant/internal/database/models"
	"github.com/godprim3/intelligent-email-assistant/internal/llm"
	"github.com/godprim3/intelligent-email-assistant/internal/mail"
)

// DefaultReply is used when the provider returns an empty or unusable draft
const DefaultReply = "Thank you for your email. I have received your message and will get back to you as soon as possible."

var rolePrefixPattern = regexp.MustCompile(`(?i)^(system:|assistant:|ai:|response:)\s*`)

// Replier is the outbound surface the responder sends through,
// satisfied by mail.IMAPMailbox
type Replier interface {
	Reply(req mail.ReplyRequest) (bool, error)
}

// AutoResponder drafts and sends replies to messages that do not need
// the user's attention
type AutoResponder struct {
	messages  *MessageStore
	prefs     *PreferencesStore
	analyzer  Analyzer
	replier   Replier
	logSvc    *LogService
	maxLength int
}

// NewAutoResponder creates a new AutoResponder instance
func NewAutoResponder(messages *MessageStore, prefs *PreferencesStore, analyzer Analyzer, replier Replier, logSvc *LogService, maxLength int) *AutoResponder {
	if maxLength <= 0 {
		maxLength = 1000
	}
	return &AutoResponder{
		messages:  messages,
		prefs:     prefs,
		analyzer:  analyzer,
		replier:   replier,
		logSvc:    logSvc,
		maxLength: maxLength,
	}
}

// Run sends auto-responses for every eligible message of an account,
// returning how many were sent. Messages still inside the configured
// delay window are left for a later cycle.
func (r *AutoResponder) Run(accountID string, limit int) (int, error) {
	prefs, found, err := r.prefs.GetOrDefault(accountID)
	if err != nil {
		return 0, err
	}
	if !found {
		// No stored preferences means auto-response has not been opted into
		return 0, nil
	}

	eligible, err := r.messages.ListForAutoResponse(accountID, limit)
	if err != nil {
		return 0, err
	}

	delay := time.Duration(prefs.DelayMinutes()) * time.Minute
	sent := 0
	for i := range eligible {
		msg := &eligible[i]
		if withinDelayWindow(msg, delay) {
			continue
		}
		ok, err := r.respond(msg, prefs)
		if err != nil {
			log.Printf("[AutoResponder] Failed to respond to message %s: %v", msg.ExternalID, err)
			continue
		}
		if ok {
			sent++
		}
	}
	return sent, nil
}

// Respond drafts and sends a reply for a single message regardless of
// the delay window, used for manual force-send
func (r *AutoResponder) Respond(id uint) (bool, error) {
	msg, err := r.messages.FindByID(id)
	if err != nil {
		return false, err
	}
	if msg.Status != models.StatusCompleted {
		return false, fmt.Errorf("message %d is %s, only completed messages can be responded to", id, msg.Status)
	}
	if msg.AutoResponseSent {
		return false, nil
	}

	prefs, _, err := r.prefs.GetOrDefault(msg.AccountID)
	if err != nil {
		return false, err
	}
	return r.respond(msg, prefs)
}

// Preview drafts the reply that would be sent, without sending or
// marking anything
func (r *AutoResponder) Preview(id uint) (string, error) {
	msg, err := r.messages.FindByID(id)
	if err != nil {
		return "", err
	}
	prefs, _, err := r.prefs.GetOrDefault(msg.AccountID)
	if err != nil {
		return "", err
	}

	draft, err := r.draft(msg, prefs)
	if err != nil {
		return "", err
	}
	return personalize(r.sanitize(draft), msg.SenderName), nil
}

// respond runs the full pipeline for one message: draft, sanitize,
// personalize, send, then mark at most once
func (r *AutoResponder) respond(msg *models.Message, prefs *models.Preferences) (bool, error) {
	draft, err := r.draft(msg, prefs)
	if err != nil {
		// 记录保持原样，下个周期重试
		r.logSvc.LogAutoResponse(msg.AccountID, msg.ExternalID, msg.SenderEmail, false, err)
		return false, err
	}
	usedDraft := draft != ""

	body := r.sanitize(draft)
	body = personalize(body, msg.SenderName)

	accepted, err := r.replier.Reply(mail.ReplyRequest{
		InReplyTo: msg.ExternalID,
		To:        msg.SenderEmail,
		Subject:   msg.Subject,
		Body:      body,
	})
	r.logSvc.LogAutoResponse(msg.AccountID, msg.ExternalID, msg.SenderEmail, usedDraft, err)
	if err != nil {
		return false, err
	}
	if !accepted {
		return false, nil
	}

	marked, err := r.messages.MarkResponded(msg.ID)
	if err != nil {
		return false, fmt.Errorf("response sent but flag update failed: %w", err)
	}
	return marked, nil
}

// draft asks the provider for a reply; an empty draft is acceptable
// and turns into the default acknowledgement during sanitization
func (r *AutoResponder) draft(msg *models.Message, prefs *models.Preferences) (string, error) {
	req := &llm.AnalysisRequest{
		ExternalID:  msg.ExternalID,
		Subject:     msg.Subject,
		Content:     msg.Body,
		SenderEmail: msg.SenderEmail,
		SenderName:  msg.SenderName,
		ReceivedAt:  msg.ReceivedAt,
		Preferences: &llm.PreferenceContext{
			ReplyStyle:        prefs.ReplyStyle,
			AttentionKeywords: prefs.KeywordList(),
			TrustedSenders:    prefs.TrustedSenderList(),
		},
		ConversationContext: "Auto-response generation for email that doesn't require personal attention",
	}

	if msg.SenderEmail != "" {
		recent, err := r.messages.RecentFromSender(msg.AccountID, msg.SenderEmail, 5)
		if err == nil {
			var replies []string
			for _, prev := range recent {
				if prev.ID != msg.ID && prev.AutoResponseSent {
					replies = append(replies, fmt.Sprintf("Replied to %q in a %s tone", prev.Subject, prefs.ReplyStyle))
				}
			}
			req.HistoricalReplies = replies
		}
	}

	return r.analyzer.DraftReply(req, prefs.DefaultProvider)
}

// sanitize strips role prefixes, enforces the length cap, and ensures
// terminal punctuation; an empty draft becomes the default reply
func (r *AutoResponder) sanitize(response string) string {
	cleaned := strings.TrimSpace(response)
	if cleaned == "" {
		return DefaultReply
	}

	cleaned = rolePrefixPattern.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return DefaultReply
	}

	// 按字符截断，避免把多字节字符切成非法 UTF-8
	if runes := []rune(cleaned); len(runes) > r.maxLength {
		cleaned = string(runes[:r.maxLength-3]) + "..."
	}

	if !strings.HasSuffix(cleaned, ".") && !strings.HasSuffix(cleaned, "!") && !strings.HasSuffix(cleaned, "?") {
		cleaned += "."
	}

	return cleaned
}

// personalize prepends a greeting with the sender's first name and
// appends a closing, unless the draft already carries them
func personalize(response, senderName string) string {
	if name := strings.TrimSpace(senderName); name != "" {
		firstName := strings.Fields(name)[0]
		lower := strings.ToLower(response)
		if !strings.HasPrefix(lower, "hi") &&
			!strings.HasPrefix(lower, "hello") &&
			!strings.HasPrefix(lower, "dear") {
			response = "Hi " + firstName + ",\n\n" + response
		}
	}

	lower := strings.ToLower(response)
	if !strings.Contains(lower, "best regards") &&
		!strings.Contains(lower, "sincerely") &&
		!strings.Contains(lower, "thank you") {
		response += "\n\nBest regards"
	}

	return response
}

// withinDelayWindow reports whether the message is still too fresh to
// answer
func withinDelayWindow(msg *models.Message, delay time.Duration) bool {
	if msg.ReceivedAt.IsZero() {
		return false
	}
	return msg.ReceivedAt.After(time.Now().Add(-delay))
}
