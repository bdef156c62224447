package services

import (
	"errors"
	"strings"
	"time"

	"github.com/godprim3/intelligent-email-assistant/internal/database/models"
	"gorm.io/gorm"
)

var (
	// ErrMessageNotFound indicates no stored message matched the lookup
	ErrMessageNotFound = errors.New("message not found")
)

// MessageStore handles persistence of inbound messages
type MessageStore struct {
	db *gorm.DB
}

// NewMessageStore creates a new MessageStore instance
func NewMessageStore(db *gorm.DB) *MessageStore {
	return &MessageStore{db: db}
}

// FindByExternalID returns the stored record for a source message id,
// or ErrMessageNotFound
func (s *MessageStore) FindByExternalID(externalID string) (*models.Message, error) {
	var msg models.Message
	err := s.db.Where("external_id = ?", externalID).First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return &msg, nil
}

// FindByID returns the stored record by primary key
func (s *MessageStore) FindByID(id uint) (*models.Message, error) {
	var msg models.Message
	err := s.db.First(&msg, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return &msg, nil
}

// Create inserts a new message record. If another writer already
// inserted the same external id, the existing row wins and is returned.
// 去重依赖 external_id 的唯一索引，这里处理并发插入的竞态
func (s *MessageStore) Create(msg *models.Message) (*models.Message, bool, error) {
	err := s.db.Create(msg).Error
	if err == nil {
		return msg, true, nil
	}
	if isUniqueViolation(err) {
		existing, ferr := s.FindByExternalID(msg.ExternalID)
		if ferr != nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	return nil, false, err
}

// isUniqueViolation matches sqlite's unique constraint error text
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed")
}

// Save persists all fields of an existing record
func (s *MessageStore) Save(msg *models.Message) error {
	return s.db.Save(msg).Error
}

// UpdateStatus transitions a record's processing status only
func (s *MessageStore) UpdateStatus(id uint, status models.ProcessingStatus) error {
	return s.db.Model(&models.Message{}).Where("id = ?", id).
		Update("status", string(status)).Error
}

// MarkNotified flips the notification flag, guarded so the flag is set
// at most once
func (s *MessageStore) MarkNotified(id uint) (bool, error) {
	result := s.db.Model(&models.Message{}).
		Where("id = ? AND notification_sent = ?", id, false).
		Update("notification_sent", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkResponded flips the auto-response flag, guarded so the flag is
// set at most once
func (s *MessageStore) MarkResponded(id uint) (bool, error) {
	result := s.db.Model(&models.Message{}).
		Where("id = ? AND auto_response_sent = ?", id, false).
		Update("auto_response_sent", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// RecentFromSender returns the most recent completed messages from a
// sender, newest first
func (s *MessageStore) RecentFromSender(accountID, senderEmail string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 5
	}
	var msgs []models.Message
	err := s.db.Where("account_id = ? AND sender_email = ? AND status = ?",
		accountID, senderEmail, string(models.StatusCompleted)).
		Order("received_at DESC").Limit(limit).Find(&msgs).Error
	return msgs, err
}

// ListForAutoResponse returns completed messages that do not need
// attention and have not been replied to yet
func (s *MessageStore) ListForAutoResponse(accountID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	var msgs []models.Message
	err := s.db.Where(
		"account_id = ? AND status = ? AND auto_response_sent = ? AND requires_attention = ?",
		accountID, string(models.StatusCompleted), false, false).
		Order("received_at ASC").Limit(limit).Find(&msgs).Error
	return msgs, err
}

// ListForNotification returns completed attention-worthy messages that
// have not been notified yet
func (s *MessageStore) ListForNotification(accountID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	var msgs []models.Message
	err := s.db.Where(
		"account_id = ? AND status = ? AND notification_sent = ? AND requires_attention = ?",
		accountID, string(models.StatusCompleted), false, true).
		Order("received_at ASC").Limit(limit).Find(&msgs).Error
	return msgs, err
}

// ListFailed returns failed records for reprocessing
func (s *MessageStore) ListFailed(accountID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	var msgs []models.Message
	db := s.db.Where("status = ?", string(models.StatusFailed))
	if accountID != "" {
		db = db.Where("account_id = ?", accountID)
	}
	err := db.Order("received_at ASC").Limit(limit).Find(&msgs).Error
	return msgs, err
}

// MessageQuery represents query parameters for message listing
type MessageQuery struct {
	AccountID         string
	Status            string
	Category          string
	Sentiment         string
	SenderEmail       string
	RequiresAttention *bool
	Since             *time.Time
	Page              int
	Limit             int
}

// MessageQueryResult represents the result of a message query
type MessageQueryResult struct {
	Total    int64
	Messages []models.Message
}

// Query retrieves messages based on query parameters, newest first
func (s *MessageStore) Query(query MessageQuery) (*MessageQueryResult, error) {
	db := s.db.Model(&models.Message{})

	if query.AccountID != "" {
		db = db.Where("account_id = ?", query.AccountID)
	}
	if query.Status != "" {
		db = db.Where("status = ?", query.Status)
	}
	if query.Category != "" {
		db = db.Where("category = ?", query.Category)
	}
	if query.Sentiment != "" {
		db = db.Where("sentiment = ?", query.Sentiment)
	}
	if query.SenderEmail != "" {
		db = db.Where("sender_email = ?", query.SenderEmail)
	}
	if query.RequiresAttention != nil {
		db = db.Where("requires_attention = ?", *query.RequiresAttention)
	}
	if query.Since != nil {
		db = db.Where("received_at >= ?", query.Since)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, err
	}

	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 50
	}
	offset := (query.Page - 1) * query.Limit

	var msgs []models.Message
	if err := db.Order("received_at DESC").Offset(offset).Limit(query.Limit).Find(&msgs).Error; err != nil {
		return nil, err
	}

	return &MessageQueryResult{Total: total, Messages: msgs}, nil
}

// Stats summarizes stored message counts
type Stats struct {
	Total            int64 `json:"total"`
	Pending          int64 `json:"pending"`
	Processing       int64 `json:"processing"`
	Completed        int64 `json:"completed"`
	Failed           int64 `json:"failed"`
	RequireAttention int64 `json:"require_attention"`
	AutoResponded    int64 `json:"auto_responded"`
	// Completed, not needing attention, and not yet replied to
	AutoResponsePending int64 `json:"auto_response_pending"`
	Notified            int64 `json:"notified"`
}

// GetStats computes counts across all stored messages for an account;
// an empty accountID covers every account
func (s *MessageStore) GetStats(accountID string) (*Stats, error) {
	stats := &Stats{}

	base := func() *gorm.DB {
		db := s.db.Model(&models.Message{})
		if accountID != "" {
			db = db.Where("account_id = ?", accountID)
		}
		return db
	}

	if err := base().Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	statusCounts := map[models.ProcessingStatus]*int64{
		models.StatusPending:    &stats.Pending,
		models.StatusProcessing: &stats.Processing,
		models.StatusCompleted:  &stats.Completed,
		models.StatusFailed:     &stats.Failed,
	}
	for status, dest := range statusCounts {
		if err := base().Where("status = ?", string(status)).Count(dest).Error; err != nil {
			return nil, err
		}
	}
	if err := base().Where("requires_attention = ?", true).Count(&stats.RequireAttention).Error; err != nil {
		return nil, err
	}
	if err := base().Where("auto_response_sent = ?", true).Count(&stats.AutoResponded).Error; err != nil {
		return nil, err
	}
	if err := base().
		Where("status = ?", string(models.StatusCompleted)).
		Where("auto_response_sent = ?", false).
		Where("requires_attention = ?", false).
		Count(&stats.AutoResponsePending).Error; err != nil {
		return nil, err
	}
	if err := base().Where("notification_sent = ?", true).Count(&stats.Notified).Error; err != nil {
		return nil, err
	}

	return stats, nil
}

// CountSince counts messages in status buckets received at or after a
// cutoff, used for the daily summary
func (s *MessageStore) CountSince(accountID string, since time.Time) (processed, attention, responded int64, err error) {
	base := func() *gorm.DB {
		db := s.db.Model(&models.Message{}).Where("received_at >= ?", since)
		if accountID != "" {
			db = db.Where("account_id = ?", accountID)
		}
		return db
	}

	if err = base().Where("status = ?", string(models.StatusCompleted)).Count(&processed).Error; err != nil {
		return
	}
	if err = base().Where("requires_attention = ?", true).Count(&attention).Error; err != nil {
		return
	}
	err = base().Where("auto_response_sent = ?", true).Count(&responded).Error
	return
}
