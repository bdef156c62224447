package push

import (
	"fmt"
	"strings"
	"time"
)

const messageTimeFormat = "Jan 02, 2006 15:04"

// AttentionAlert formats the notification for a message that needs the
// user's attention
func AttentionAlert(senderName, subject, reason string, at time.Time) string {
	if senderName == "" {
		senderName = "Unknown Sender"
	}
	if subject == "" {
		subject = "No Subject"
	} else {
		subject = Truncate(subject, 50)
	}
	if reason == "" {
		reason = "Requires personal review"
	}

	var b strings.Builder
	b.WriteString("📧 *Important Email Alert*\n\n")
	fmt.Fprintf(&b, "**From:** %s\n", senderName)
	fmt.Fprintf(&b, "**Subject:** %s\n\n", subject)
	b.WriteString("**Why it needs your attention:**\n")
	b.WriteString(reason)
	b.WriteString("\n\n🔗 Check your email to respond\n")
	fmt.Fprintf(&b, "🕒 %s", at.Format(messageTimeFormat))
	return b.String()
}

// DailySummary formats the end-of-day digest
func DailySummary(totalProcessed, requireAttention, autoResponded int, day time.Time) string {
	var b strings.Builder
	b.WriteString("📊 *Daily Email Summary*\n\n")
	fmt.Fprintf(&b, "📬 **Total emails processed:** %d\n", totalProcessed)
	fmt.Fprintf(&b, "⚠️ **Require your attention:** %d\n", requireAttention)
	fmt.Fprintf(&b, "🤖 **Auto-responded:** %d\n\n", autoResponded)

	if requireAttention > 0 {
		plural := ""
		if requireAttention > 1 {
			plural = "s"
		}
		fmt.Fprintf(&b, "💡 You have %d email%s waiting for your review.\n\n", requireAttention, plural)
	} else {
		b.WriteString("✅ All emails have been handled automatically!\n\n")
	}

	fmt.Fprintf(&b, "🕒 %s", day.Format("Jan 02, 2006"))
	return b.String()
}

// SystemAlert formats an operational alert
func SystemAlert(alertType, detail string, at time.Time) string {
	var b strings.Builder
	b.WriteString("🚨 *System Alert*\n\n")
	fmt.Fprintf(&b, "**Type:** %s\n", alertType)
	fmt.Fprintf(&b, "**Details:** %s\n\n", detail)
	b.WriteString("🛠️ Please check the system logs for more information.\n")
	fmt.Fprintf(&b, "🕒 %s", at.Format(messageTimeFormat))
	return b.String()
}

// TestMessage formats the connectivity test message
func TestMessage(at time.Time) string {
	return "🤖 *Email Assistant Test*\n\n" +
		"This is a test message from your Intelligent Email Assistant. " +
		"If you receive this, the WhatsApp integration is working correctly!\n\n" +
		"🕒 " + at.Format(messageTimeFormat)
}

// Truncate shortens text to maxLength characters, replacing the tail
// with an ellipsis. Counting runes keeps multi-byte subjects valid
// UTF-8.
func Truncate(text string, maxLength int) string {
	runes := []rune(text)
	if len(runes) <= maxLength {
		return text
	}
	if maxLength <= 3 {
		return string(runes[:maxLength])
	}
	return string(runes[:maxLength-3]) + "..."
}
