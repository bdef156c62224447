package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/godprim3/intelligent-email-assistant/internal/llm"
	"github.com/godprim3/intelligent-email-assistant/internal/services"
)

// SystemHandler serves operational endpoints: provider status, the
// scheduler, logs, and notification tests
type SystemHandler struct {
	router     *llm.Router
	scheduler  *services.Scheduler
	notifier   *services.Notifier
	logService *services.LogService
}

// NewSystemHandler creates a new SystemHandler instance
func NewSystemHandler(router *llm.Router, scheduler *services.Scheduler, notifier *services.Notifier, logService *services.LogService) *SystemHandler {
	return &SystemHandler{
		router:     router,
		scheduler:  scheduler,
		notifier:   notifier,
		logService: logService,
	}
}

// GetProviders handles GET /api/providers
func (h *SystemHandler) GetProviders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"default": h.router.DefaultProvider(),
			"status":  h.router.Status(),
		},
	})
}

// GetScheduler handles GET /api/scheduler
func (h *SystemHandler) GetScheduler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    h.scheduler.Snapshot(),
	})
}

// TriggerPoll handles POST /api/scheduler/poll
func (h *SystemHandler) TriggerPoll(c *gin.Context) {
	h.scheduler.TriggerPoll()
	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"data":    gin.H{"triggered": "poll"},
	})
}

// TriggerAutoResponse handles POST /api/scheduler/respond
func (h *SystemHandler) TriggerAutoResponse(c *gin.Context) {
	h.scheduler.TriggerAutoResponse()
	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"data":    gin.H{"triggered": "respond"},
	})
}

// TestNotificationRequest is the request body for a channel test
type TestNotificationRequest struct {
	Number string `json:"number" binding:"required"`
}

// TestNotification handles POST /api/notifications/test
func (h *SystemHandler) TestNotification(c *gin.Context) {
	var req TestNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "number is required",
			},
		})
		return
	}

	sent, err := h.notifier.SendTest(req.Number)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "SEND_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"sent": sent},
	})
}

// ListLogs handles GET /api/logs with filter query params
func (h *SystemHandler) ListLogs(c *gin.Context) {
	query := services.LogQuery{
		AccountID: c.Query("account_id"),
		Level:     c.Query("level"),
		Module:    c.Query("module"),
		Action:    c.Query("action"),
	}
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))

	if raw := c.Query("since"); raw != "" {
		if since, err := time.Parse(time.RFC3339, raw); err == nil {
			query.StartTime = &since
		}
	}

	result, err := h.logService.QueryLogs(query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "QUERY_FAILED",
				"message": "Failed to query logs",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"total": result.Total,
			"logs":  result.Logs,
		},
	})
}
