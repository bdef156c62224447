package services

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/godprim3/intelligent-email-assistant/internal/database/models"
	"github.com/godprim3/intelligent-email-assistant/internal/mail"
)

// fakeReplier records outbound replies
type fakeReplier struct {
	sent []mail.ReplyRequest
	err  error
}

func (f *fakeReplier) Reply(req mail.ReplyRequest) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.sent = append(f.sent, req)
	return true, nil
}

func newResponderFixture(t *testing.T, analyzer Analyzer, replier Replier) (*AutoResponder, *MessageStore, *PreferencesStore, func()) {
	db, cleanup := setupTestDB(t)
	messages := NewMessageStore(db)
	prefs := NewPreferencesStore(db)
	logSvc := NewLogService(db)
	responder := NewAutoResponder(messages, prefs, analyzer, replier, logSvc, 1000)
	return responder, messages, prefs, cleanup
}

func storeCompleted(t *testing.T, messages *MessageStore, externalID string, receivedAt time.Time, requiresAttention bool) *models.Message {
	confidence := 0.8
	msg := &models.Message{
		ExternalID:        externalID,
		AccountID:         "acct-1",
		Subject:           "Meeting notes",
		Body:              "Here are the notes from today.",
		SenderEmail:       "sender@example.com",
		SenderName:        "Sam Sender",
		ReceivedAt:        receivedAt,
		RequiresAttention: &requiresAttention,
		ConfidenceScore:   &confidence,
		Status:            models.StatusCompleted,
	}
	stored, _, err := messages.Create(msg)
	if err != nil {
		t.Fatalf("failed to store message: %v", err)
	}
	return stored
}

func storePrefs(t *testing.T, prefs *PreferencesStore, delayMinutes int) {
	p := &models.Preferences{
		AccountID:            "acct-1",
		ReplyStyle:           "professional",
		ResponseDelayMinutes: delayMinutes,
		DefaultProvider:      "openai",
	}
	if err := prefs.Put(p); err != nil {
		t.Fatalf("failed to store preferences: %v", err)
	}
}

func TestRunHonorsDelayWindow(t *testing.T) {
	analyzer := &countingAnalyzer{draft: "Thanks, noted."}
	replier := &fakeReplier{}
	responder, messages, prefs, cleanup := newResponderFixture(t, analyzer, replier)
	defer cleanup()

	storePrefs(t, prefs, 5)
	fresh := storeCompleted(t, messages, "<fresh@example.com>", time.Now().Add(-1*time.Minute), false)
	aged := storeCompleted(t, messages, "<aged@example.com>", time.Now().Add(-10*time.Minute), false)

	sent, err := responder.Run("acct-1", 50)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if sent != 1 {
		t.Fatalf("expected 1 response, got %d", sent)
	}
	if len(replier.sent) != 1 || replier.sent[0].InReplyTo != aged.ExternalID {
		t.Errorf("expected reply to aged message, got %+v", replier.sent)
	}

	freshStored, _ := messages.FindByID(fresh.ID)
	if freshStored.AutoResponseSent {
		t.Error("message inside delay window must not be responded to")
	}
}

func TestRunMarksAtMostOnce(t *testing.T) {
	analyzer := &countingAnalyzer{draft: "Thanks, noted."}
	replier := &fakeReplier{}
	responder, messages, prefs, cleanup := newResponderFixture(t, analyzer, replier)
	defer cleanup()

	storePrefs(t, prefs, 5)
	storeCompleted(t, messages, "<once@example.com>", time.Now().Add(-30*time.Minute), false)

	first, err := responder.Run("acct-1", 50)
	if err != nil || first != 1 {
		t.Fatalf("first run: sent=%d err=%v", first, err)
	}

	// Replays must find nothing to do
	for i := 0; i < 3; i++ {
		again, err := responder.Run("acct-1", 50)
		if err != nil {
			t.Fatalf("replay run failed: %v", err)
		}
		if again != 0 {
			t.Fatalf("replay run sent %d responses", again)
		}
	}
	if len(replier.sent) != 1 {
		t.Errorf("expected exactly one outbound reply, got %d", len(replier.sent))
	}
}

func TestRunSkipsAttentionMessages(t *testing.T) {
	analyzer := &countingAnalyzer{draft: "Thanks."}
	replier := &fakeReplier{}
	responder, messages, prefs, cleanup := newResponderFixture(t, analyzer, replier)
	defer cleanup()

	storePrefs(t, prefs, 5)
	storeCompleted(t, messages, "<urgent@example.com>", time.Now().Add(-30*time.Minute), true)

	sent, err := responder.Run("acct-1", 50)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if sent != 0 || len(replier.sent) != 0 {
		t.Error("attention-worthy messages must never be auto-responded")
	}
}

func TestRunWithoutPreferencesIsNoOp(t *testing.T) {
	analyzer := &countingAnalyzer{draft: "Thanks."}
	replier := &fakeReplier{}
	responder, messages, _, cleanup := newResponderFixture(t, analyzer, replier)
	defer cleanup()

	storeCompleted(t, messages, "<noprefs@example.com>", time.Now().Add(-30*time.Minute), false)

	sent, err := responder.Run("acct-1", 50)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if sent != 0 {
		t.Error("accounts without stored preferences must not be auto-responded")
	}
}

func TestSendFailureLeavesFlagUnset(t *testing.T) {
	analyzer := &countingAnalyzer{draft: "Thanks."}
	replier := &fakeReplier{err: errors.New("smtp down")}
	responder, messages, prefs, cleanup := newResponderFixture(t, analyzer, replier)
	defer cleanup()

	storePrefs(t, prefs, 5)
	msg := storeCompleted(t, messages, "<undeliverable@example.com>", time.Now().Add(-30*time.Minute), false)

	sent, err := responder.Run("acct-1", 50)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if sent != 0 {
		t.Error("failed send must not count as a response")
	}

	stored, _ := messages.FindByID(msg.ID)
	if stored.AutoResponseSent {
		t.Error("flag must stay unset after a failed send so the next cycle retries")
	}
}

func TestDraftFailureLeavesRecordForRetry(t *testing.T) {
	analyzer := &countingAnalyzer{err: errors.New("provider down")}
	replier := &fakeReplier{}
	responder, messages, prefs, cleanup := newResponderFixture(t, analyzer, replier)
	defer cleanup()

	storePrefs(t, prefs, 5)
	stored := storeCompleted(t, messages, "<retry@example.com>", time.Now().Add(-30*time.Minute), false)

	sent, err := responder.Run("acct-1", 50)
	if err != nil || sent != 0 {
		t.Fatalf("Run: sent=%d err=%v", sent, err)
	}
	if len(replier.sent) != 0 {
		t.Fatalf("expected no dispatch on draft failure, got %d", len(replier.sent))
	}
	reloaded, err := messages.FindByID(stored.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if reloaded.AutoResponseSent {
		t.Error("auto_response_sent must stay false after a draft failure")
	}
}

func TestEmptyDraftSendsDefaultReply(t *testing.T) {
	analyzer := &countingAnalyzer{draft: ""}
	replier := &fakeReplier{}
	responder, messages, prefs, cleanup := newResponderFixture(t, analyzer, replier)
	defer cleanup()

	storePrefs(t, prefs, 5)
	storeCompleted(t, messages, "<empty@example.com>", time.Now().Add(-30*time.Minute), false)

	sent, err := responder.Run("acct-1", 50)
	if err != nil || sent != 1 {
		t.Fatalf("Run: sent=%d err=%v", sent, err)
	}
	if !strings.Contains(replier.sent[0].Body, DefaultReply) {
		t.Errorf("expected default reply in body, got %q", replier.sent[0].Body)
	}
}

func TestSanitizeProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	responder := &AutoResponder{maxLength: 50}

	properties.Property("sanitized_output_never_exceeds_cap", prop.ForAll(
		func(text string) bool {
			out := responder.sanitize(text)
			return len(out) <= 50+1 // +1 for the appended punctuation
		},
		gen.RegexMatch(`[a-z]{1,200}`),
	))

	properties.Property("sanitized_output_ends_with_punctuation", prop.ForAll(
		func(text string) bool {
			out := responder.sanitize(text)
			return strings.HasSuffix(out, ".") || strings.HasSuffix(out, "!") || strings.HasSuffix(out, "?")
		},
		gen.AlphaString(),
	))

	properties.Property("role_prefixes_are_stripped", prop.ForAll(
		func(body string) bool {
			for _, prefix := range []string{"System: ", "assistant: ", "AI: ", "Response: "} {
				out := responder.sanitize(prefix + body)
				if strings.HasPrefix(strings.ToLower(out), strings.ToLower(strings.TrimSpace(prefix))) {
					return false
				}
			}
			return true
		},
		gen.RegexMatch(`[b-z][a-z]{3,20}`),
	))

	properties.TestingRun(t)
}

func TestStatsCountAutoResponsePending(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	messages := NewMessageStore(db)

	received := time.Now().Add(-time.Hour)
	storeCompleted(t, messages, "<pending-1@example.com>", received, false)
	storeCompleted(t, messages, "<pending-2@example.com>", received, false)
	storeCompleted(t, messages, "<attention@example.com>", received, true)

	answered := storeCompleted(t, messages, "<answered@example.com>", received, false)
	if _, err := messages.MarkResponded(answered.ID); err != nil {
		t.Fatalf("MarkResponded: %v", err)
	}

	if _, _, err := messages.Create(&models.Message{
		ExternalID: "<unprocessed@example.com>",
		AccountID:  "acct-1",
		Status:     models.StatusPending,
		ReceivedAt: received,
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	stats, err := messages.GetStats("acct-1")
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.AutoResponsePending != 2 {
		t.Errorf("expected 2 messages awaiting auto-response, got %d", stats.AutoResponsePending)
	}
	if stats.AutoResponded != 1 {
		t.Errorf("expected 1 auto-responded message, got %d", stats.AutoResponded)
	}
	if stats.Pending != 1 {
		t.Errorf("expected 1 pending-status message, got %d", stats.Pending)
	}
}

func TestSanitizeTruncatesOnRuneBoundary(t *testing.T) {
	responder := &AutoResponder{maxLength: 10}

	out := responder.sanitize("aaaaaaé plus du texte à couper")
	if !utf8.ValidString(out) {
		t.Fatalf("sanitize produced invalid UTF-8: %q", out)
	}
	if !strings.HasSuffix(out, "...") {
		t.Errorf("expected ellipsis suffix, got %q", out)
	}
	if utf8.RuneCountInString(out) > 10 {
		t.Errorf("expected at most 10 characters, got %d in %q", utf8.RuneCountInString(out), out)
	}
}

func TestProperty_SanitizeKeepsValidUTF8(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	responder := &AutoResponder{maxLength: 12}

	properties.Property("sanitized_multibyte_input_stays_valid_utf8", prop.ForAll(
		func(text string) bool {
			out := responder.sanitize(text)
			return utf8.ValidString(out) && utf8.RuneCountInString(out) <= 12+1
		},
		gen.RegexMatch(`[aàéü日本語]{1,60}`),
	))

	properties.TestingRun(t)
}

func TestSanitizeEmptyUsesDefault(t *testing.T) {
	responder := &AutoResponder{maxLength: 1000}
	for _, input := range []string{"", "   ", "system: ", "AI:"} {
		if out := responder.sanitize(input); out != DefaultReply {
			t.Errorf("input %q: expected default reply, got %q", input, out)
		}
	}
}

func TestPersonalize(t *testing.T) {
	out := personalize("The report is attached.", "Jordan Blake")
	if !strings.HasPrefix(out, "Hi Jordan,") {
		t.Errorf("expected greeting with first name, got %q", out)
	}
	if !strings.HasSuffix(out, "Best regards") {
		t.Errorf("expected closing, got %q", out)
	}

	already := personalize("Hello Jordan, thank you for reaching out.", "Jordan Blake")
	if strings.HasPrefix(already, "Hi ") {
		t.Errorf("existing greeting must not be duplicated: %q", already)
	}
	if strings.Contains(already, "Best regards") {
		t.Errorf("closing must not be added when thank-you present: %q", already)
	}

	anonymous := personalize("The report is attached.", "")
	if strings.HasPrefix(anonymous, "Hi ") {
		t.Errorf("no greeting without a sender name: %q", anonymous)
	}
}

func TestPreviewDoesNotSendOrMark(t *testing.T) {
	analyzer := &countingAnalyzer{draft: "Here is a preview draft"}
	replier := &fakeReplier{}
	responder, messages, prefs, cleanup := newResponderFixture(t, analyzer, replier)
	defer cleanup()

	storePrefs(t, prefs, 5)
	msg := storeCompleted(t, messages, "<preview@example.com>", time.Now().Add(-30*time.Minute), false)

	body, err := responder.Preview(msg.ID)
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if !strings.Contains(body, "Here is a preview draft") {
		t.Errorf("unexpected preview body: %q", body)
	}
	if len(replier.sent) != 0 {
		t.Error("preview must not send anything")
	}
	stored, _ := messages.FindByID(msg.ID)
	if stored.AutoResponseSent {
		t.Error("preview must not mark the message")
	}
}
