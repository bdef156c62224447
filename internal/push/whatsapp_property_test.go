package push

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestFormatWhatsAppNumberProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	digitsGen := gen.RegexMatch(`[0-9]{6,14}`)

	properties.Property("formatted_number_carries_whatsapp_prefix", prop.ForAll(
		func(digits string) bool {
			formatted, err := FormatWhatsAppNumber(digits)
			if err != nil {
				return false
			}
			return formatted == "whatsapp:+"+digits
		},
		digitsGen,
	))

	properties.Property("formatting_is_idempotent", prop.ForAll(
		func(digits string) bool {
			once, err := FormatWhatsAppNumber("+" + digits)
			if err != nil {
				return false
			}
			twice, err := FormatWhatsAppNumber(once)
			if err != nil {
				return false
			}
			return once == twice
		},
		digitsGen,
	))

	properties.Property("separators_are_stripped", prop.ForAll(
		func(digits string) bool {
			spaced := "+" + digits[:3] + " " + digits[3:] + "-00"
			formatted, err := FormatWhatsAppNumber(spaced)
			if err != nil {
				return false
			}
			return !strings.ContainsAny(formatted, " -")
		},
		digitsGen,
	))

	properties.TestingRun(t)
}

func TestFormatWhatsAppNumberRejectsEmpty(t *testing.T) {
	for _, input := range []string{"", "   ", "abc", "+"} {
		if _, err := FormatWhatsAppNumber(input); err == nil {
			t.Errorf("expected error for input %q", input)
		}
	}
}

func TestTruncateProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("truncated_text_never_exceeds_limit", prop.ForAll(
		func(text string, max int) bool {
			return len(Truncate(text, max)) <= len(text) && (len(text) <= max || len(Truncate(text, max)) == max)
		},
		gen.AlphaString(),
		gen.IntRange(4, 80),
	))

	properties.Property("short_text_is_unchanged", prop.ForAll(
		func(text string) bool {
			return Truncate(text, len(text)+1) == text
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

func TestTruncateKeepsValidUTF8(t *testing.T) {
	out := Truncate("会議の議事録：来週の予定について確認をお願いします", 10)
	if !utf8.ValidString(out) {
		t.Fatalf("Truncate produced invalid UTF-8: %q", out)
	}
	if utf8.RuneCountInString(out) != 10 {
		t.Errorf("expected 10 characters, got %d in %q", utf8.RuneCountInString(out), out)
	}
	if !strings.HasSuffix(out, "...") {
		t.Errorf("expected ellipsis suffix, got %q", out)
	}
}

func TestAttentionAlertFallbacks(t *testing.T) {
	body := AttentionAlert("", "", "", time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC))
	if !strings.Contains(body, "Unknown Sender") {
		t.Error("expected fallback sender name")
	}
	if !strings.Contains(body, "No Subject") {
		t.Error("expected fallback subject")
	}
	if !strings.Contains(body, "Requires personal review") {
		t.Error("expected fallback reason")
	}
}

func TestDailySummaryPluralization(t *testing.T) {
	day := time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)

	one := DailySummary(10, 1, 3, day)
	if !strings.Contains(one, "1 email waiting") {
		t.Errorf("expected singular form, got %q", one)
	}

	many := DailySummary(10, 4, 3, day)
	if !strings.Contains(many, "4 emails waiting") {
		t.Errorf("expected plural form, got %q", many)
	}

	none := DailySummary(10, 0, 10, day)
	if !strings.Contains(none, "handled automatically") {
		t.Errorf("expected all-clear message, got %q", none)
	}
}

func TestSendRequiresConfiguration(t *testing.T) {
	c := NewWhatsAppChannel("", "", "")
	if c.IsConfigured() {
		t.Fatal("empty channel should not report configured")
	}
	if _, err := c.Send("+15551234567", "hello"); err != ErrNotConfigured {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}
