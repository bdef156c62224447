package services

import (
	"log"
	"strings"
	"time"

	"github.com/godprim3/intelligent-email-assistant/internal/push"
)

// Notifier dispatches out-of-band alerts for messages that need the
// user's attention
type Notifier struct {
	messages *MessageStore
	prefs    *PreferencesStore
	channel  push.Channel
	logSvc   *LogService
}

// NewNotifier creates a new Notifier instance
func NewNotifier(messages *MessageStore, prefs *PreferencesStore, channel push.Channel, logSvc *LogService) *Notifier {
	return &Notifier{
		messages: messages,
		prefs:    prefs,
		channel:  channel,
		logSvc:   logSvc,
	}
}

// ChannelConfigured reports whether the push channel has credentials
func (n *Notifier) ChannelConfigured() bool {
	return n.channel.IsConfigured()
}

// Run sends alerts for every pending attention-worthy message of an
// account, returning how many were sent. Accounts without notification
// preferences are a silent no-op.
func (n *Notifier) Run(accountID string, limit int) (int, error) {
	prefs, found, err := n.prefs.GetOrDefault(accountID)
	if err != nil {
		return 0, err
	}
	if !found || !prefs.NotifyEnabled {
		return 0, nil
	}
	if strings.TrimSpace(prefs.NotifyNumber) == "" {
		log.Printf("[Notifier] Notifications enabled but no number configured for account %s", accountID)
		return 0, nil
	}
	if !n.channel.IsConfigured() {
		return 0, push.ErrNotConfigured
	}

	pending, err := n.messages.ListForNotification(accountID, limit)
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range pending {
		msg := &pending[i]
		body := push.AttentionAlert(msg.SenderName, msg.Subject, attentionReason, time.Now())

		accepted, err := n.channel.Send(prefs.NotifyNumber, body)
		n.logSvc.LogNotification(accountID, msg.ExternalID, prefs.NotifyNumber, "attention_alert", err)
		if err != nil {
			log.Printf("[Notifier] Failed to notify for message %s: %v", msg.ExternalID, err)
			continue
		}
		if !accepted {
			continue
		}

		marked, err := n.messages.MarkNotified(msg.ID)
		if err != nil {
			log.Printf("[Notifier] Notification sent but flag update failed for %s: %v", msg.ExternalID, err)
			continue
		}
		if marked {
			sent++
		}
	}
	return sent, nil
}

// SendDailySummary pushes the end-of-day digest for an account
func (n *Notifier) SendDailySummary(accountID string, since time.Time) (bool, error) {
	prefs, found, err := n.prefs.GetOrDefault(accountID)
	if err != nil {
		return false, err
	}
	if !found || !prefs.NotifyEnabled || strings.TrimSpace(prefs.NotifyNumber) == "" {
		return false, nil
	}
	if !n.channel.IsConfigured() {
		return false, push.ErrNotConfigured
	}

	processed, attention, responded, err := n.messages.CountSince(accountID, since)
	if err != nil {
		return false, err
	}

	body := push.DailySummary(int(processed), int(attention), int(responded), time.Now())
	accepted, err := n.channel.Send(prefs.NotifyNumber, body)
	n.logSvc.LogNotification(accountID, "", prefs.NotifyNumber, "daily_summary", err)
	if err != nil {
		return false, err
	}
	return accepted, nil
}

// SendSystemAlert pushes an operational alert to the account's number
func (n *Notifier) SendSystemAlert(accountID, alertType, detail string) (bool, error) {
	prefs, found, err := n.prefs.GetOrDefault(accountID)
	if err != nil {
		return false, err
	}
	if !found || !prefs.NotifyEnabled || strings.TrimSpace(prefs.NotifyNumber) == "" {
		return false, nil
	}
	if !n.channel.IsConfigured() {
		return false, push.ErrNotConfigured
	}

	body := push.SystemAlert(alertType, detail, time.Now())
	accepted, err := n.channel.Send(prefs.NotifyNumber, body)
	n.logSvc.LogNotification(accountID, "", prefs.NotifyNumber, "system_alert", err)
	if err != nil {
		return false, err
	}
	return accepted, nil
}

// SendTest pushes the connectivity test message to an arbitrary number
func (n *Notifier) SendTest(number string) (bool, error) {
	if !n.channel.IsConfigured() {
		return false, push.ErrNotConfigured
	}
	return n.channel.Send(number, push.TestMessage(time.Now()))
}

const attentionReason = "This email requires your personal attention based on AI analysis."
