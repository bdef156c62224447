package models

import (
	"encoding/json"
	"time"
)

// Preferences holds per-account assistant settings
type Preferences struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	AccountID string `gorm:"uniqueIndex;size:64;not null" json:"account_id"`

	ReplyStyle string `gorm:"size:50;default:'professional'" json:"reply_style"`

	// JSON arrays stored as text
	AttentionKeywords string `gorm:"type:text" json:"attention_keywords"`
	TrustedSenders    string `gorm:"type:text" json:"trusted_senders"`
	AutoReplySenders  string `gorm:"type:text" json:"auto_reply_senders"`
	WorkingHours      string `gorm:"type:text" json:"working_hours"`

	NotifyEnabled bool   `gorm:"default:false" json:"notify_enabled"`
	NotifyNumber  string `gorm:"size:32" json:"notify_number"`

	ResponseDelayMinutes int    `gorm:"default:5" json:"response_delay_minutes"`
	Timezone             string `gorm:"size:64;default:'UTC'" json:"timezone"`

	DefaultProvider     string  `gorm:"size:50;default:'openai'" json:"default_provider"`
	ConfidenceThreshold float64 `gorm:"default:0.7" json:"confidence_threshold"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DelayMinutes returns the auto-response delay, falling back to 5 minutes
func (p *Preferences) DelayMinutes() int {
	if p.ResponseDelayMinutes <= 0 {
		return 5
	}
	return p.ResponseDelayMinutes
}

// KeywordList decodes the attention keywords JSON array
func (p *Preferences) KeywordList() []string {
	return decodeStringList(p.AttentionKeywords)
}

// TrustedSenderList decodes the trusted senders JSON array
func (p *Preferences) TrustedSenderList() []string {
	return decodeStringList(p.TrustedSenders)
}

// AutoReplySenderList decodes the auto-reply senders JSON array
func (p *Preferences) AutoReplySenderList() []string {
	return decodeStringList(p.AutoReplySenders)
}

// WorkingHourList decodes the working hours JSON array
func (p *Preferences) WorkingHourList() []string {
	return decodeStringList(p.WorkingHours)
}

// SetKeywordList encodes the attention keywords as JSON
func (p *Preferences) SetKeywordList(keywords []string) {
	p.AttentionKeywords = encodeStringList(keywords)
}

// SetTrustedSenderList encodes the trusted senders as JSON
func (p *Preferences) SetTrustedSenderList(senders []string) {
	p.TrustedSenders = encodeStringList(senders)
}

// SetAutoReplySenderList encodes the auto-reply senders as JSON
func (p *Preferences) SetAutoReplySenderList(senders []string) {
	p.AutoReplySenders = encodeStringList(senders)
}

// SetWorkingHourList encodes the working hours as JSON
func (p *Preferences) SetWorkingHourList(hours []string) {
	p.WorkingHours = encodeStringList(hours)
}

func decodeStringList(raw string) []string {
	if raw == "" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil
	}
	return list
}

func encodeStringList(list []string) string {
	if len(list) == 0 {
		return ""
	}
	data, err := json.Marshal(list)
	if err != nil {
		return ""
	}
	return string(data)
}
