package llm

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property: analysis parsing never panics and never returns nil; any
// payload that is not valid JSON yields the conservative default so an
// unreadable analysis is treated as needing human review.
func TestProperty_MalformedPayloadYieldsConservativeDefault(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	garbageGen := gen.SliceOfN(40, gen.AlphaChar()).Map(func(chars []rune) string {
		// Lead with a brace-less token so the payload is never valid JSON
		return "not-json " + string(chars)
	})

	properties.Property("malformed_payload_is_conservative", prop.ForAll(
		func(payload string) bool {
			result := parseAnalysisContent(payload)
			if result == nil {
				return false
			}
			return result.RequiresAttention &&
				result.ConfidenceScore == 0.5 &&
				result.Reason == "unable to analyze"
		},
		garbageGen,
	))

	properties.TestingRun(t)
}

// Property: a well-formed payload round-trips, with the confidence score
// clamped into [0, 1].
func TestProperty_ConfidenceClamped(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("confidence_clamped_to_unit_interval", prop.ForAll(
		func(confidence float64, attention bool) bool {
			payload := `{"requiresAttention": ` + boolLit(attention) +
				`, "confidenceScore": ` + floatLit(confidence) +
				`, "reason": "ok", "category": "business", "sentiment": "neutral"}`

			result := parseAnalysisContent(payload)
			if result.RequiresAttention != attention {
				return false
			}
			return result.ConfidenceScore >= 0 && result.ConfidenceScore <= 1
		},
		gen.Float64Range(-10, 10),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestParseStripsCodeFence(t *testing.T) {
	payload := "```json\n{\"requiresAttention\": false, \"confidenceScore\": 0.9, \"draftReply\": \"Thanks!\"}\n```"
	result := parseAnalysisContent(payload)
	if result.RequiresAttention {
		t.Fatal("expected requiresAttention=false")
	}
	if result.DraftReply != "Thanks!" {
		t.Fatalf("unexpected draft reply: %q", result.DraftReply)
	}
}

func TestAnalysisPromptEmbedsPreferences(t *testing.T) {
	req := &AnalysisRequest{
		Subject:    "Hello",
		Content:    "Body",
		ReceivedAt: time.Now(),
		Preferences: &PreferenceContext{
			ReplyStyle:        "friendly",
			AttentionKeywords: []string{"urgent", "legal"},
		},
	}

	prompt := buildAnalysisPrompt(req)
	for _, want := range []string{"requiresAttention", "confidenceScore", "draftReply", "category", "sentiment", "friendly", "urgent"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("analysis prompt missing %q", want)
		}
	}
}

func boolLit(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func floatLit(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}
