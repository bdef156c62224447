package services

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/godprim3/intelligent-email-assistant/internal/database/models"
	"github.com/godprim3/intelligent-email-assistant/internal/llm"
	"github.com/godprim3/intelligent-email-assistant/internal/mail"
)

func setupTestDB(t *testing.T) (*gorm.DB, func()) {
	tmpFile, err := os.CreateTemp("", "test_*.db")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	tmpFile.Close()

	db, err := gorm.Open(sqlite.Open(tmpFile.Name()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("Failed to open database: %v", err)
	}

	err = db.AutoMigrate(
		&models.Message{},
		&models.Preferences{},
		&models.Log{},
	)
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("Failed to migrate: %v", err)
	}

	cleanup := func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		os.Remove(tmpFile.Name())
	}

	return db, cleanup
}

// countingAnalyzer records analysis calls and returns a fixed result or
// a configured error
type countingAnalyzer struct {
	calls  int64
	err    error
	result llm.AnalysisResult
	draft  string
}

func (a *countingAnalyzer) Analyze(req *llm.AnalysisRequest, providerName string) (*llm.AnalysisResult, error) {
	atomic.AddInt64(&a.calls, 1)
	if a.err != nil {
		return nil, a.err
	}
	r := a.result
	if r.Provider == "" {
		r.Provider = "openai"
	}
	return &r, nil
}

func (a *countingAnalyzer) DraftReply(req *llm.AnalysisRequest, providerName string) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	return a.draft, nil
}

func newIntakeFixture(t *testing.T, analyzer Analyzer) (*IntakeService, *MessageStore, func()) {
	db, cleanup := setupTestDB(t)
	messages := NewMessageStore(db)
	prefs := NewPreferencesStore(db)
	logSvc := NewLogService(db)
	return NewIntakeService(messages, prefs, analyzer, logSvc), messages, cleanup
}

func rawMessage(externalID string) mail.RawMessage {
	return mail.RawMessage{
		ExternalID:  externalID,
		Subject:     "Subject for " + externalID,
		Body:        "Body for " + externalID,
		SenderEmail: "sender@example.com",
		SenderName:  "Sam Sender",
		ReceivedAt:  time.Now().Add(-30 * time.Minute),
	}
}

func TestIngestIdempotenceProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	properties.Property("repeat_ingest_analyzes_once", prop.ForAll(
		func(suffix string, repeats int) bool {
			analyzer := &countingAnalyzer{result: llm.AnalysisResult{ConfidenceScore: 0.9}}
			intake, _, cleanup := newIntakeFixture(t, analyzer)
			defer cleanup()

			externalID := "<msg-" + suffix + "@example.com>"
			first, err := intake.Ingest("acct-1", rawMessage(externalID))
			if err != nil {
				return false
			}
			for i := 0; i < repeats; i++ {
				again, err := intake.Ingest("acct-1", rawMessage(externalID))
				if err != nil {
					return false
				}
				if again.ID != first.ID {
					return false
				}
			}
			return atomic.LoadInt64(&analyzer.calls) == 1
		},
		gen.Identifier(),
		gen.IntRange(1, 5),
	))

	properties.TestingRun(t)
}

func TestIngestCompletedState(t *testing.T) {
	requires := true
	analyzer := &countingAnalyzer{result: llm.AnalysisResult{
		RequiresAttention: requires,
		ConfidenceScore:   0.85,
		Category:          "urgent",
		Sentiment:         "negative",
	}}
	intake, messages, cleanup := newIntakeFixture(t, analyzer)
	defer cleanup()

	msg, err := intake.Ingest("acct-1", rawMessage("<completed@example.com>"))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if msg.Status != models.StatusCompleted {
		t.Errorf("expected completed status, got %s", msg.Status)
	}
	if !msg.NeedsAttention() {
		t.Error("expected requires_attention to be set")
	}
	if msg.ConfidenceScore == nil || *msg.ConfidenceScore != 0.85 {
		t.Errorf("unexpected confidence score: %v", msg.ConfidenceScore)
	}
	if msg.Provider != "openai" {
		t.Errorf("expected provider to be stamped, got %q", msg.Provider)
	}
	if msg.ProcessedAt == nil {
		t.Error("expected processed_at to be set")
	}

	stored, err := messages.FindByExternalID("<completed@example.com>")
	if err != nil {
		t.Fatalf("FindByExternalID failed: %v", err)
	}
	if stored.Status != models.StatusCompleted {
		t.Errorf("persisted status mismatch: %s", stored.Status)
	}
}

func TestIngestFailureKeepsRecord(t *testing.T) {
	analyzer := &countingAnalyzer{err: errors.New("provider down")}
	intake, messages, cleanup := newIntakeFixture(t, analyzer)
	defer cleanup()

	_, err := intake.Ingest("acct-1", rawMessage("<failing@example.com>"))
	if err == nil {
		t.Fatal("expected ingest error")
	}

	stored, err := messages.FindByExternalID("<failing@example.com>")
	if err != nil {
		t.Fatalf("record should survive a failed analysis: %v", err)
	}
	if stored.Status != models.StatusFailed {
		t.Errorf("expected failed status, got %s", stored.Status)
	}
	if stored.RequiresAttention != nil {
		t.Error("failed record should carry no analysis results")
	}
}

func TestIngestBatchIsolatesFailures(t *testing.T) {
	analyzer := &countingAnalyzer{result: llm.AnalysisResult{ConfidenceScore: 0.7}}
	intake, _, cleanup := newIntakeFixture(t, analyzer)
	defer cleanup()

	raws := []mail.RawMessage{
		rawMessage("<batch-1@example.com>"),
		{}, // no external id, must not abort the rest
		rawMessage("<batch-2@example.com>"),
	}

	results := intake.IngestBatch("acct-1", raws)
	if len(results) != 2 {
		t.Fatalf("expected 2 ingested messages, got %d", len(results))
	}
	for _, msg := range results {
		if msg.Status != models.StatusCompleted {
			t.Errorf("message %s not completed: %s", msg.ExternalID, msg.Status)
		}
	}
}

func TestReprocessFailedRecovers(t *testing.T) {
	analyzer := &countingAnalyzer{err: errors.New("provider down")}
	intake, messages, cleanup := newIntakeFixture(t, analyzer)
	defer cleanup()

	for i := 0; i < 3; i++ {
		intake.Ingest("acct-1", rawMessage(fmt.Sprintf("<retry-%d@example.com>", i)))
	}

	failed, err := messages.ListFailed("acct-1", 10)
	if err != nil || len(failed) != 3 {
		t.Fatalf("expected 3 failed records, got %d (err=%v)", len(failed), err)
	}

	// Provider recovers
	analyzer.err = nil
	analyzer.result = llm.AnalysisResult{ConfidenceScore: 0.6}

	recovered, err := intake.ReprocessFailed("acct-1", 10)
	if err != nil {
		t.Fatalf("ReprocessFailed failed: %v", err)
	}
	if recovered != 3 {
		t.Errorf("expected 3 recovered, got %d", recovered)
	}

	failed, _ = messages.ListFailed("acct-1", 10)
	if len(failed) != 0 {
		t.Errorf("expected no failed records after recovery, got %d", len(failed))
	}
}

func TestReprocessRejectsNonFailed(t *testing.T) {
	analyzer := &countingAnalyzer{result: llm.AnalysisResult{ConfidenceScore: 0.9}}
	intake, _, cleanup := newIntakeFixture(t, analyzer)
	defer cleanup()

	msg, err := intake.Ingest("acct-1", rawMessage("<done@example.com>"))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if _, err := intake.Reprocess(msg.ID); err == nil {
		t.Error("expected error reprocessing a completed message")
	}
}

func TestIngestEnrichesWithSenderHistory(t *testing.T) {
	var lastReq *llm.AnalysisRequest
	analyzer := &recordingAnalyzer{onAnalyze: func(req *llm.AnalysisRequest) {
		lastReq = req
	}}
	intake, messages, cleanup := newIntakeFixture(t, analyzer)
	defer cleanup()

	// Seed earlier completed and responded traffic from the same sender
	for i := 0; i < 3; i++ {
		msg, err := intake.Ingest("acct-1", rawMessage(fmt.Sprintf("<hist-%d@example.com>", i)))
		if err != nil {
			t.Fatalf("seed ingest failed: %v", err)
		}
		if _, err := messages.MarkResponded(msg.ID); err != nil {
			t.Fatalf("MarkResponded failed: %v", err)
		}
	}

	if _, err := intake.Ingest("acct-1", rawMessage("<latest@example.com>")); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if lastReq == nil {
		t.Fatal("analyzer was not called")
	}
	if len(lastReq.HistoricalReplies) != 3 {
		t.Errorf("expected 3 historical replies, got %d", len(lastReq.HistoricalReplies))
	}
	if lastReq.Preferences == nil || lastReq.Preferences.ReplyStyle != "professional" {
		t.Error("expected default preferences in analysis request")
	}
}

// recordingAnalyzer captures the enriched request passed to Analyze
type recordingAnalyzer struct {
	onAnalyze func(req *llm.AnalysisRequest)
}

func (a *recordingAnalyzer) Analyze(req *llm.AnalysisRequest, providerName string) (*llm.AnalysisResult, error) {
	if a.onAnalyze != nil {
		a.onAnalyze(req)
	}
	return &llm.AnalysisResult{ConfidenceScore: 0.8, Provider: "openai"}, nil
}

func (a *recordingAnalyzer) DraftReply(req *llm.AnalysisRequest, providerName string) (string, error) {
	return "", nil
}
