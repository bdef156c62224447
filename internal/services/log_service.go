package services

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/godprim3/intelligent-email-assistant/internal/database/models"
	"gorm.io/gorm"
)

// LogService handles logging operations
type LogService struct {
	db       *gorm.DB
	logLevel models.LogLevel
}

// NewLogService creates a new LogService instance
func NewLogService(db *gorm.DB) *LogService {
	return &LogService{
		db:       db,
		logLevel: models.LogLevelInfo, // Default log level
	}
}

// NewLogServiceWithLevel creates a new LogService instance with specified log level
func NewLogServiceWithLevel(db *gorm.DB, level string) *LogService {
	return &LogService{
		db:       db,
		logLevel: parseLogLevel(level),
	}
}

// parseLogLevel converts a string to LogLevel
func parseLogLevel(level string) models.LogLevel {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return models.LogLevelDebug
	case "INFO":
		return models.LogLevelInfo
	case "WARN", "WARNING":
		return models.LogLevelWarn
	case "ERROR":
		return models.LogLevelError
	default:
		return models.LogLevelInfo
	}
}

// SetLogLevel sets the minimum log level
func (s *LogService) SetLogLevel(level string) {
	s.logLevel = parseLogLevel(level)
}

// shouldLog checks if a log entry should be recorded based on log level
func (s *LogService) shouldLog(level models.LogLevel) bool {
	levelPriority := map[models.LogLevel]int{
		models.LogLevelDebug: 0,
		models.LogLevelInfo:  1,
		models.LogLevelWarn:  2,
		models.LogLevelError: 3,
	}

	return levelPriority[level] >= levelPriority[s.logLevel]
}

// LogEntry represents a log entry to be created
type LogEntry struct {
	AccountID string
	Level     models.LogLevel
	Module    models.LogModule
	Action    string
	Message   string
	Details   interface{} // Will be serialized to JSON
}

// Log creates a new log entry
func (s *LogService) Log(entry LogEntry) error {
	if !s.shouldLog(entry.Level) {
		return nil
	}

	var detailsJSON string
	if entry.Details != nil {
		bytes, err := json.Marshal(entry.Details)
		if err != nil {
			detailsJSON = "{}"
		} else {
			detailsJSON = string(bytes)
		}
	}

	log := &models.Log{
		AccountID: entry.AccountID,
		Level:     string(entry.Level),
		Module:    string(entry.Module),
		Action:    entry.Action,
		Message:   entry.Message,
		Details:   detailsJSON,
	}

	return s.db.Create(log).Error
}

// LogInfo creates an INFO level log entry
func (s *LogService) LogInfo(accountID string, module models.LogModule, action, message string, details interface{}) error {
	return s.Log(LogEntry{
		AccountID: accountID,
		Level:     models.LogLevelInfo,
		Module:    module,
		Action:    action,
		Message:   message,
		Details:   details,
	})
}

// LogWarn creates a WARN level log entry
func (s *LogService) LogWarn(accountID string, module models.LogModule, action, message string, details interface{}) error {
	return s.Log(LogEntry{
		AccountID: accountID,
		Level:     models.LogLevelWarn,
		Module:    module,
		Action:    action,
		Message:   message,
		Details:   details,
	})
}

// LogError creates an ERROR level log entry
func (s *LogService) LogError(accountID string, module models.LogModule, action, message string, details interface{}) error {
	return s.Log(LogEntry{
		AccountID: accountID,
		Level:     models.LogLevelError,
		Module:    module,
		Action:    action,
		Message:   message,
		Details:   details,
	})
}

// LogDebug creates a DEBUG level log entry
func (s *LogService) LogDebug(accountID string, module models.LogModule, action, message string, details interface{}) error {
	return s.Log(LogEntry{
		AccountID: accountID,
		Level:     models.LogLevelDebug,
		Module:    module,
		Action:    action,
		Message:   message,
		Details:   details,
	})
}

// ===== Intake Logging =====

// IntakeDetails represents details for message intake logs
type IntakeDetails struct {
	ExternalID string `json:"external_id,omitempty"`
	Subject    string `json:"subject,omitempty"`
	From       string `json:"from,omitempty"`
	Provider   string `json:"provider,omitempty"`
	Status     string `json:"status"`
	ErrorMsg   string `json:"error_msg,omitempty"`
	Count      int    `json:"count,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
}

// LogMessageAnalyzed logs a completed analysis
func (s *LogService) LogMessageAnalyzed(accountID, externalID, subject, provider string, durationMs int64) error {
	return s.LogInfo(accountID, models.LogModuleIntake, "analyze", "Message analyzed", IntakeDetails{
		ExternalID: externalID,
		Subject:    subject,
		Provider:   provider,
		Status:     "completed",
		DurationMs: durationMs,
	})
}

// LogMessageFailed logs a failed analysis
func (s *LogService) LogMessageFailed(accountID, externalID string, err error) error {
	details := IntakeDetails{
		ExternalID: externalID,
		Status:     "failed",
	}
	if err != nil {
		details.ErrorMsg = err.Error()
	}
	return s.LogError(accountID, models.LogModuleIntake, "analyze", "Message analysis failed", details)
}

// LogBatchIngested logs a finished intake batch
func (s *LogService) LogBatchIngested(accountID string, count int, err error) error {
	details := IntakeDetails{Count: count, Status: "success"}
	level := models.LogLevelInfo
	message := "Message batch ingested"
	if err != nil {
		level = models.LogLevelError
		details.Status = "failed"
		details.ErrorMsg = err.Error()
		message = "Message batch ingest failed"
	}
	return s.Log(LogEntry{
		AccountID: accountID,
		Level:     level,
		Module:    models.LogModuleIntake,
		Action:    "ingest_batch",
		Message:   message,
		Details:   details,
	})
}

// ===== Response Logging =====

// ResponseDetails represents details for auto-response logs
type ResponseDetails struct {
	ExternalID string `json:"external_id,omitempty"`
	To         string `json:"to,omitempty"`
	Status     string `json:"status"`
	ErrorMsg   string `json:"error_msg,omitempty"`
	UsedDraft  bool   `json:"used_draft"`
}

// LogAutoResponse logs an auto-response attempt
func (s *LogService) LogAutoResponse(accountID, externalID, to string, usedDraft bool, err error) error {
	details := ResponseDetails{
		ExternalID: externalID,
		To:         to,
		Status:     "sent",
		UsedDraft:  usedDraft,
	}
	level := models.LogLevelInfo
	message := "Auto-response sent"
	if err != nil {
		level = models.LogLevelError
		details.Status = "failed"
		details.ErrorMsg = err.Error()
		message = "Auto-response failed"
	}
	return s.Log(LogEntry{
		AccountID: accountID,
		Level:     level,
		Module:    models.LogModuleRespond,
		Action:    "send",
		Message:   message,
		Details:   details,
	})
}

// ===== Notification Logging =====

// NotificationDetails represents details for notification logs
type NotificationDetails struct {
	ExternalID string `json:"external_id,omitempty"`
	To         string `json:"to,omitempty"`
	Kind       string `json:"kind"`
	Status     string `json:"status"`
	ErrorMsg   string `json:"error_msg,omitempty"`
}

// LogNotification logs a notification dispatch attempt
func (s *LogService) LogNotification(accountID, externalID, to, kind string, err error) error {
	details := NotificationDetails{
		ExternalID: externalID,
		To:         to,
		Kind:       kind,
		Status:     "sent",
	}
	level := models.LogLevelInfo
	message := "Notification sent"
	if err != nil {
		level = models.LogLevelError
		details.Status = "failed"
		details.ErrorMsg = err.Error()
		message = "Notification failed"
	}
	return s.Log(LogEntry{
		AccountID: accountID,
		Level:     level,
		Module:    models.LogModuleNotify,
		Action:    "dispatch",
		Message:   message,
		Details:   details,
	})
}

// ===== Scheduler Logging =====

// SchedulerDetails represents details for scheduler cycle logs
type SchedulerDetails struct {
	Job        string `json:"job"`
	Fetched    int    `json:"fetched,omitempty"`
	Processed  int    `json:"processed,omitempty"`
	Status     string `json:"status"`
	ErrorMsg   string `json:"error_msg,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
}

// LogSchedulerCycle logs one scheduler job run
func (s *LogService) LogSchedulerCycle(job string, fetched, processed int, durationMs int64, err error) error {
	details := SchedulerDetails{
		Job:        job,
		Fetched:    fetched,
		Processed:  processed,
		Status:     "success",
		DurationMs: durationMs,
	}
	level := models.LogLevelInfo
	message := "Scheduler cycle completed"
	if err != nil {
		level = models.LogLevelError
		details.Status = "failed"
		details.ErrorMsg = err.Error()
		message = "Scheduler cycle failed"
	}
	return s.Log(LogEntry{
		Level:   level,
		Module:  models.LogModuleScheduler,
		Action:  job,
		Message: message,
		Details: details,
	})
}

// ===== API Request Logging =====

// APIRequestDetails represents details for API request logs
type APIRequestDetails struct {
	Method     string `json:"method"`
	Path       string `json:"path"`
	StatusCode int    `json:"status_code"`
	Duration   int64  `json:"duration_ms"`
	ClientIP   string `json:"client_ip"`
	UserAgent  string `json:"user_agent,omitempty"`
}

// LogAPIRequest logs an API request
func (s *LogService) LogAPIRequest(method, path string, statusCode int, durationMs int64, clientIP, userAgent string) error {
	level := models.LogLevelInfo
	if statusCode >= 400 && statusCode < 500 {
		level = models.LogLevelWarn
	} else if statusCode >= 500 {
		level = models.LogLevelError
	}

	return s.Log(LogEntry{
		Level:   level,
		Module:  models.LogModuleAPI,
		Action:  "request",
		Message: method + " " + path,
		Details: APIRequestDetails{
			Method:     method,
			Path:       path,
			StatusCode: statusCode,
			Duration:   durationMs,
			ClientIP:   clientIP,
			UserAgent:  userAgent,
		},
	})
}

// LogAPIKeyValidation logs an API key validation attempt
func (s *LogService) LogAPIKeyValidation(success bool, clientIP string, err error) error {
	details := map[string]string{
		"client_ip": clientIP,
		"status":    "valid",
	}

	level := models.LogLevelDebug
	message := "API key validated successfully"

	if !success {
		level = models.LogLevelWarn
		details["status"] = "invalid"
		message = "API key validation failed"
		if err != nil {
			details["error_msg"] = err.Error()
		}
	}

	return s.Log(LogEntry{
		Level:   level,
		Module:  models.LogModuleAPI,
		Action:  "api_key_validation",
		Message: message,
		Details: details,
	})
}

// LogAPIKeyReset logs an API key reset event
func (s *LogService) LogAPIKeyReset() error {
	return s.LogInfo("", models.LogModuleCLI, "api_key_reset", "API key reset", nil)
}

// ===== Log Query Methods =====

// LogQuery represents query parameters for log retrieval
type LogQuery struct {
	AccountID string
	Level     string
	Module    string
	Action    string
	StartTime *time.Time
	EndTime   *time.Time
	Page      int
	Limit     int
}

// LogQueryResult represents the result of a log query
type LogQueryResult struct {
	Total int64
	Logs  []models.Log
}

// QueryLogs retrieves logs based on query parameters
func (s *LogService) QueryLogs(query LogQuery) (*LogQueryResult, error) {
	db := s.db.Model(&models.Log{})

	if query.AccountID != "" {
		db = db.Where("account_id = ?", query.AccountID)
	}
	if query.Level != "" {
		db = db.Where("level = ?", query.Level)
	}
	if query.Module != "" {
		db = db.Where("module = ?", query.Module)
	}
	if query.Action != "" {
		db = db.Where("action = ?", query.Action)
	}
	if query.StartTime != nil {
		db = db.Where("created_at >= ?", query.StartTime)
	}
	if query.EndTime != nil {
		db = db.Where("created_at <= ?", query.EndTime)
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

	var logs []models.Log
	if err := db.Order("created_at DESC").Offset(offset).Limit(query.Limit).Find(&logs).Error; err != nil {
		return nil, err
	}

	return &LogQueryResult{
		Total: total,
		Logs:  logs,
	}, nil
}

// GetRecentLogs retrieves the most recent logs
func (s *LogService) GetRecentLogs(limit int) ([]models.Log, error) {
	if limit <= 0 {
		limit = 100
	}

	var logs []models.Log
	if err := s.db.Order("created_at DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// GetLogsByModule retrieves logs for a specific module
func (s *LogService) GetLogsByModule(module models.LogModule, limit int) ([]models.Log, error) {
	if limit <= 0 {
		limit = 100
	}

	var logs []models.Log
	if err := s.db.Where("module = ?", string(module)).Order("created_at DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
