package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/godprim3/intelligent-email-assistant/internal/api/middleware"
	"github.com/godprim3/intelligent-email-assistant/internal/database/models"
	"github.com/godprim3/intelligent-email-assistant/internal/services"
)

// PreferencesHandler serves per-account assistant settings
type PreferencesHandler struct {
	store      *services.PreferencesStore
	logService *services.LogService
}

// NewPreferencesHandler creates a new PreferencesHandler instance
func NewPreferencesHandler(store *services.PreferencesStore, logService *services.LogService) *PreferencesHandler {
	return &PreferencesHandler{
		store:      store,
		logService: logService,
	}
}

// preferencesResponse is the wire form, with the JSON-text lists decoded
type preferencesResponse struct {
	AccountID            string   `json:"account_id"`
	ReplyStyle           string   `json:"reply_style"`
	AttentionKeywords    []string `json:"attention_keywords"`
	TrustedSenders       []string `json:"trusted_senders"`
	AutoReplySenders     []string `json:"auto_reply_senders"`
	WorkingHours         []string `json:"working_hours"`
	NotifyEnabled        bool     `json:"notify_enabled"`
	NotifyNumber         string   `json:"notify_number"`
	ResponseDelayMinutes int      `json:"response_delay_minutes"`
	Timezone             string   `json:"timezone"`
	DefaultProvider      string   `json:"default_provider"`
	ConfidenceThreshold  float64  `json:"confidence_threshold"`
	Stored               bool     `json:"stored"`
}

func toPreferencesResponse(p *models.Preferences, stored bool) preferencesResponse {
	return preferencesResponse{
		AccountID:            p.AccountID,
		ReplyStyle:           p.ReplyStyle,
		AttentionKeywords:    p.KeywordList(),
		TrustedSenders:       p.TrustedSenderList(),
		AutoReplySenders:     p.AutoReplySenderList(),
		WorkingHours:         p.WorkingHourList(),
		NotifyEnabled:        p.NotifyEnabled,
		NotifyNumber:         p.NotifyNumber,
		ResponseDelayMinutes: p.DelayMinutes(),
		Timezone:             p.Timezone,
		DefaultProvider:      p.DefaultProvider,
		ConfidenceThreshold:  p.ConfidenceThreshold,
		Stored:               stored,
	}
}

// GetPreferences handles GET /api/preferences
func (h *PreferencesHandler) GetPreferences(c *gin.Context) {
	accountID, _ := middleware.GetAccountIDFromContext(c)

	prefs, stored, err := h.store.GetOrDefault(accountID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "QUERY_FAILED",
				"message": "Failed to load preferences",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    toPreferencesResponse(prefs, stored),
	})
}

// UpdatePreferencesRequest is the request body for preference updates
type UpdatePreferencesRequest struct {
	ReplyStyle           string   `json:"reply_style"`
	AttentionKeywords    []string `json:"attention_keywords"`
	TrustedSenders       []string `json:"trusted_senders"`
	AutoReplySenders     []string `json:"auto_reply_senders"`
	WorkingHours         []string `json:"working_hours"`
	NotifyEnabled        bool     `json:"notify_enabled"`
	NotifyNumber         string   `json:"notify_number"`
	ResponseDelayMinutes int      `json:"response_delay_minutes"`
	Timezone             string   `json:"timezone"`
	DefaultProvider      string   `json:"default_provider"`
	ConfidenceThreshold  float64  `json:"confidence_threshold"`
}

// UpdatePreferences handles PUT /api/preferences
func (h *PreferencesHandler) UpdatePreferences(c *gin.Context) {
	accountID, _ := middleware.GetAccountIDFromContext(c)

	var req UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Invalid request body",
			},
		})
		return
	}

	prefs := &models.Preferences{
		AccountID:            accountID,
		ReplyStyle:           req.ReplyStyle,
		NotifyEnabled:        req.NotifyEnabled,
		NotifyNumber:         req.NotifyNumber,
		ResponseDelayMinutes: req.ResponseDelayMinutes,
		Timezone:             req.Timezone,
		DefaultProvider:      req.DefaultProvider,
		ConfidenceThreshold:  req.ConfidenceThreshold,
	}
	prefs.SetKeywordList(req.AttentionKeywords)
	prefs.SetTrustedSenderList(req.TrustedSenders)
	prefs.SetAutoReplySenderList(req.AutoReplySenders)
	prefs.SetWorkingHourList(req.WorkingHours)
	applyPreferenceDefaults(prefs)

	if err := h.store.Put(prefs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UPDATE_FAILED",
				"message": "Failed to save preferences",
			},
		})
		return
	}

	h.logService.LogInfo(accountID, models.LogModuleAPI, "update_preferences", "Preferences updated", nil)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    toPreferencesResponse(prefs, true),
	})
}

// applyPreferenceDefaults fills zero values with the documented defaults
func applyPreferenceDefaults(p *models.Preferences) {
	if p.ReplyStyle == "" {
		p.ReplyStyle = "professional"
	}
	if p.ResponseDelayMinutes <= 0 {
		p.ResponseDelayMinutes = 5
	}
	if p.Timezone == "" {
		p.Timezone = "UTC"
	}
	if p.DefaultProvider == "" {
		p.DefaultProvider = "openai"
	}
	if p.ConfidenceThreshold <= 0 {
		p.ConfidenceThreshold = 0.7
	}
}
