package services

import (
	"fmt"
	"log"
	"time"

	"github.com/godprim3/intelligent-email-assistant/internal/database/models"
	"github.com/godprim3/intelligent-email-assistant/internal/llm"
	"github.com/godprim3/intelligent-email-assistant/internal/mail"
)

// Analyzer is the analysis surface the intake pipeline depends on,
// satisfied by llm.Router
type Analyzer interface {
	Analyze(req *llm.AnalysisRequest, providerName string) (*llm.AnalysisResult, error)
	DraftReply(req *llm.AnalysisRequest, providerName string) (string, error)
}

// IntakeService turns raw inbound messages into analyzed records
type IntakeService struct {
	messages *MessageStore
	prefs    *PreferencesStore
	analyzer Analyzer
	logSvc   *LogService
}

// NewIntakeService creates a new IntakeService instance
func NewIntakeService(messages *MessageStore, prefs *PreferencesStore, analyzer Analyzer, logSvc *LogService) *IntakeService {
	return &IntakeService{
		messages: messages,
		prefs:    prefs,
		analyzer: analyzer,
		logSvc:   logSvc,
	}
}

// Ingest stores and analyzes one message. A message already stored
// under the same external id is returned as-is without reanalysis.
func (s *IntakeService) Ingest(accountID string, raw mail.RawMessage) (*models.Message, error) {
	if raw.ExternalID == "" {
		return nil, fmt.Errorf("message has no external id")
	}

	// Fast path; the unique index on external_id backstops races
	if existing, err := s.messages.FindByExternalID(raw.ExternalID); err == nil {
		return existing, nil
	} else if err != ErrMessageNotFound {
		return nil, err
	}

	msg := &models.Message{
		ExternalID:  raw.ExternalID,
		AccountID:   accountID,
		Subject:     raw.Subject,
		Body:        raw.Body,
		SenderEmail: raw.SenderEmail,
		SenderName:  raw.SenderName,
		ReceivedAt:  raw.ReceivedAt,
		Status:      models.StatusPending,
	}

	stored, created, err := s.messages.Create(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}
	if !created {
		// Another writer got there first
		return stored, nil
	}

	return s.analyze(stored)
}

// IngestBatch processes messages independently so one failure does not
// abort the rest; it returns the records that were stored
func (s *IntakeService) IngestBatch(accountID string, raws []mail.RawMessage) []*models.Message {
	results := make([]*models.Message, 0, len(raws))
	for _, raw := range raws {
		msg, err := s.Ingest(accountID, raw)
		if err != nil {
			log.Printf("[Intake] Failed to ingest message %s: %v", raw.ExternalID, err)
			continue
		}
		results = append(results, msg)
	}
	s.logSvc.LogBatchIngested(accountID, len(results), nil)
	return results
}

// Reprocess re-runs analysis for a stored record, used for manual
// recovery of failed messages
func (s *IntakeService) Reprocess(id uint) (*models.Message, error) {
	msg, err := s.messages.FindByID(id)
	if err != nil {
		return nil, err
	}
	if msg.Status != models.StatusFailed {
		return nil, fmt.Errorf("message %d is %s, only failed messages can be reprocessed", id, msg.Status)
	}
	return s.analyze(msg)
}

// ReprocessFailed re-runs analysis for failed records, returning how
// many recovered
func (s *IntakeService) ReprocessFailed(accountID string, limit int) (int, error) {
	failed, err := s.messages.ListFailed(accountID, limit)
	if err != nil {
		return 0, err
	}

	recovered := 0
	for i := range failed {
		msg, err := s.analyze(&failed[i])
		if err != nil {
			log.Printf("[Intake] Reprocess failed for message %s: %v", failed[i].ExternalID, err)
			continue
		}
		if msg.Status == models.StatusCompleted {
			recovered++
		}
	}
	return recovered, nil
}

// GetStats summarizes stored message counts for an account
func (s *IntakeService) GetStats(accountID string) (*Stats, error) {
	return s.messages.GetStats(accountID)
}

// analyze runs the provider analysis for a stored record and persists
// the outcome. Status moves to processing before the provider call so a
// crash never leaves a completed-looking record without results.
func (s *IntakeService) analyze(msg *models.Message) (*models.Message, error) {
	msg.Status = models.StatusProcessing
	if err := s.messages.Save(msg); err != nil {
		return nil, fmt.Errorf("failed to mark message processing: %w", err)
	}

	req, providerName, err := s.buildAnalysisRequest(msg)
	if err != nil {
		s.markFailed(msg, err)
		return msg, err
	}

	start := time.Now()
	result, err := s.analyzer.Analyze(req, providerName)
	if err != nil {
		s.markFailed(msg, err)
		return msg, fmt.Errorf("analysis failed: %w", err)
	}

	now := time.Now()
	requires := result.RequiresAttention
	confidence := result.ConfidenceScore
	msg.RequiresAttention = &requires
	msg.ConfidenceScore = &confidence
	msg.Category = result.Category
	msg.Sentiment = result.Sentiment
	msg.Provider = result.Provider
	msg.ProcessedAt = &now
	msg.Status = models.StatusCompleted

	if err := s.messages.Save(msg); err != nil {
		return nil, fmt.Errorf("failed to persist analysis: %w", err)
	}

	s.logSvc.LogMessageAnalyzed(msg.AccountID, msg.ExternalID, msg.Subject,
		result.Provider, time.Since(start).Milliseconds())
	return msg, nil
}

// markFailed transitions the record to failed, preserving it for manual
// reprocessing
func (s *IntakeService) markFailed(msg *models.Message, cause error) {
	msg.Status = models.StatusFailed
	if err := s.messages.Save(msg); err != nil {
		log.Printf("[Intake] Failed to mark message %s failed: %v", msg.ExternalID, err)
	}
	s.logSvc.LogMessageFailed(msg.AccountID, msg.ExternalID, cause)
}

// buildAnalysisRequest enriches the raw message with preferences and
// the sender's recent history
func (s *IntakeService) buildAnalysisRequest(msg *models.Message) (*llm.AnalysisRequest, string, error) {
	req := &llm.AnalysisRequest{
		ExternalID:  msg.ExternalID,
		Subject:     msg.Subject,
		Content:     msg.Body,
		SenderEmail: msg.SenderEmail,
		SenderName:  msg.SenderName,
		ReceivedAt:  msg.ReceivedAt,
	}

	prefs, _, err := s.prefs.GetOrDefault(msg.AccountID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load preferences: %w", err)
	}
	req.Preferences = &llm.PreferenceContext{
		ReplyStyle:        prefs.ReplyStyle,
		AttentionKeywords: prefs.KeywordList(),
		TrustedSenders:    prefs.TrustedSenderList(),
	}

	if msg.SenderEmail != "" {
		recent, err := s.messages.RecentFromSender(msg.AccountID, msg.SenderEmail, 5)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load sender history: %w", err)
		}
		var replies []string
		var context string
		for _, prev := range recent {
			if prev.ID == msg.ID {
				continue
			}
			if prev.AutoResponseSent {
				replies = append(replies, fmt.Sprintf("Replied to %q in a %s tone", prev.Subject, prefs.ReplyStyle))
			}
			if context == "" {
				context = fmt.Sprintf("Previous message from this sender: %q (%s)", prev.Subject, prev.Category)
			}
		}
		req.HistoricalReplies = replies
		req.ConversationContext = context
	}

	return req, prefs.DefaultProvider, nil
}
