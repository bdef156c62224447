package models

import (
	"time"
)

// ProcessingStatus represents the lifecycle status of a message
type ProcessingStatus string

const (
	// StatusPending indicates the message is stored but not yet analyzed
	StatusPending ProcessingStatus = "pending"
	// StatusProcessing indicates analysis is in flight
	StatusProcessing ProcessingStatus = "processing"
	// StatusCompleted indicates analysis finished successfully
	StatusCompleted ProcessingStatus = "completed"
	// StatusFailed indicates analysis failed
	StatusFailed ProcessingStatus = "failed"
)

// IsValid checks if the processing status is valid
func (s ProcessingStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Message represents one inbound email and its analysis/delivery state
type Message struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	ExternalID string `gorm:"uniqueIndex;size:255;not null" json:"external_id"` // message id from the mail source
	AccountID  string `gorm:"index;size:64;not null" json:"account_id"`

	Subject     string    `gorm:"size:500" json:"subject"`
	Body        string    `gorm:"type:text" json:"body"`
	SenderEmail string    `gorm:"index;size:255" json:"sender_email"`
	SenderName  string    `gorm:"size:255" json:"sender_name"`
	ReceivedAt  time.Time `gorm:"index" json:"received_at"`

	// Analysis results, nil until processing completes
	RequiresAttention *bool    `json:"requires_attention"`
	ConfidenceScore   *float64 `json:"confidence_score"`
	Category          string   `gorm:"size:50;index" json:"category,omitempty"`
	Sentiment         string   `gorm:"size:50;index" json:"sentiment,omitempty"`
	Provider          string   `gorm:"size:50" json:"provider,omitempty"`

	Status ProcessingStatus `gorm:"size:20;index;default:'pending'" json:"status"`

	// Delivery flags, set true at most once and never reset
	NotificationSent bool `gorm:"default:false" json:"notification_sent"`
	AutoResponseSent bool `gorm:"default:false" json:"auto_response_sent"`

	ProcessedAt *time.Time `json:"processed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NeedsAttention reports whether analysis marked the message for human review
func (m *Message) NeedsAttention() bool {
	return m.RequiresAttention != nil && *m.RequiresAttention
}
