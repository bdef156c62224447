package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/godprim3/intelligent-email-assistant/internal/database/models"
)

// fakeChannel records pushed notifications
type fakeChannel struct {
	configured bool
	sent       []string
	recipients []string
	err        error
}

func (f *fakeChannel) IsConfigured() bool { return f.configured }

func (f *fakeChannel) Send(to, body string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.recipients = append(f.recipients, to)
	f.sent = append(f.sent, body)
	return true, nil
}

func newNotifierFixture(t *testing.T, channel *fakeChannel) (*Notifier, *MessageStore, *PreferencesStore, func()) {
	db, cleanup := setupTestDB(t)
	messages := NewMessageStore(db)
	prefs := NewPreferencesStore(db)
	logSvc := NewLogService(db)
	return NewNotifier(messages, prefs, channel, logSvc), messages, prefs, cleanup
}

func storeNotifyPrefs(t *testing.T, prefs *PreferencesStore, enabled bool, number string) {
	p := &models.Preferences{
		AccountID:     "acct-1",
		NotifyEnabled: enabled,
		NotifyNumber:  number,
	}
	if err := prefs.Put(p); err != nil {
		t.Fatalf("failed to store preferences: %v", err)
	}
}

func TestNotifierSendsForAttentionMessages(t *testing.T) {
	channel := &fakeChannel{configured: true}
	notifier, messages, prefs, cleanup := newNotifierFixture(t, channel)
	defer cleanup()

	storeNotifyPrefs(t, prefs, true, "+15551234567")
	msg := storeCompleted(t, messages, "<alert@example.com>", time.Now().Add(-10*time.Minute), true)

	sent, err := notifier.Run("acct-1", 50)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if sent != 1 {
		t.Fatalf("expected 1 notification, got %d", sent)
	}
	if channel.recipients[0] != "+15551234567" {
		t.Errorf("unexpected recipient: %s", channel.recipients[0])
	}
	if !strings.Contains(channel.sent[0], "Important Email Alert") {
		t.Errorf("unexpected body: %q", channel.sent[0])
	}

	stored, _ := messages.FindByID(msg.ID)
	if !stored.NotificationSent {
		t.Error("notification flag must be set after a successful send")
	}
}

func TestNotifierAtMostOnce(t *testing.T) {
	channel := &fakeChannel{configured: true}
	notifier, messages, prefs, cleanup := newNotifierFixture(t, channel)
	defer cleanup()

	storeNotifyPrefs(t, prefs, true, "+15551234567")
	storeCompleted(t, messages, "<once@example.com>", time.Now().Add(-10*time.Minute), true)

	if sent, _ := notifier.Run("acct-1", 50); sent != 1 {
		t.Fatalf("first run expected 1, got %d", sent)
	}
	for i := 0; i < 3; i++ {
		if sent, _ := notifier.Run("acct-1", 50); sent != 0 {
			t.Fatalf("replay run sent %d notifications", sent)
		}
	}
	if len(channel.sent) != 1 {
		t.Errorf("expected exactly one push, got %d", len(channel.sent))
	}
}

func TestNotifierDisabledIsNoOp(t *testing.T) {
	channel := &fakeChannel{configured: true}
	notifier, messages, prefs, cleanup := newNotifierFixture(t, channel)
	defer cleanup()

	storeNotifyPrefs(t, prefs, false, "+15551234567")
	storeCompleted(t, messages, "<muted@example.com>", time.Now().Add(-10*time.Minute), true)

	sent, err := notifier.Run("acct-1", 50)
	if err != nil || sent != 0 {
		t.Errorf("disabled notifications must be a no-op: sent=%d err=%v", sent, err)
	}
	if len(channel.sent) != 0 {
		t.Error("nothing should be pushed when notifications are disabled")
	}
}

func TestNotifierNoPreferencesIsNoOp(t *testing.T) {
	channel := &fakeChannel{configured: true}
	notifier, messages, _, cleanup := newNotifierFixture(t, channel)
	defer cleanup()

	storeCompleted(t, messages, "<unconfigured@example.com>", time.Now().Add(-10*time.Minute), true)

	sent, err := notifier.Run("acct-1", 50)
	if err != nil || sent != 0 {
		t.Errorf("missing preferences must be a no-op: sent=%d err=%v", sent, err)
	}
}

func TestNotifierSendFailureLeavesFlagUnset(t *testing.T) {
	channel := &fakeChannel{configured: true, err: errors.New("twilio down")}
	notifier, messages, prefs, cleanup := newNotifierFixture(t, channel)
	defer cleanup()

	storeNotifyPrefs(t, prefs, true, "+15551234567")
	msg := storeCompleted(t, messages, "<undelivered@example.com>", time.Now().Add(-10*time.Minute), true)

	sent, err := notifier.Run("acct-1", 50)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if sent != 0 {
		t.Error("failed push must not count")
	}

	stored, _ := messages.FindByID(msg.ID)
	if stored.NotificationSent {
		t.Error("flag must stay unset so the next cycle retries")
	}
}

func TestNotifierSkipsNonAttentionMessages(t *testing.T) {
	channel := &fakeChannel{configured: true}
	notifier, messages, prefs, cleanup := newNotifierFixture(t, channel)
	defer cleanup()

	storeNotifyPrefs(t, prefs, true, "+15551234567")
	storeCompleted(t, messages, "<routine@example.com>", time.Now().Add(-10*time.Minute), false)

	sent, _ := notifier.Run("acct-1", 50)
	if sent != 0 || len(channel.sent) != 0 {
		t.Error("routine messages must not trigger alerts")
	}
}

func TestDailySummaryCounts(t *testing.T) {
	channel := &fakeChannel{configured: true}
	notifier, messages, prefs, cleanup := newNotifierFixture(t, channel)
	defer cleanup()

	storeNotifyPrefs(t, prefs, true, "+15551234567")

	attention := storeCompleted(t, messages, "<s1@example.com>", time.Now().Add(-2*time.Hour), true)
	_ = attention
	routine := storeCompleted(t, messages, "<s2@example.com>", time.Now().Add(-3*time.Hour), false)
	if _, err := messages.MarkResponded(routine.ID); err != nil {
		t.Fatalf("MarkResponded failed: %v", err)
	}

	sent, err := notifier.SendDailySummary("acct-1", time.Now().Add(-24*time.Hour))
	if err != nil || !sent {
		t.Fatalf("SendDailySummary: sent=%v err=%v", sent, err)
	}
	body := channel.sent[0]
	if !strings.Contains(body, "Total emails processed:** 2") {
		t.Errorf("unexpected processed count in %q", body)
	}
	if !strings.Contains(body, "Require your attention:** 1") {
		t.Errorf("unexpected attention count in %q", body)
	}
	if !strings.Contains(body, "Auto-responded:** 1") {
		t.Errorf("unexpected responded count in %q", body)
	}
}
