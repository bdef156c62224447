package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/godprim3/intelligent-email-assistant/internal/api/middleware"
	"github.com/godprim3/intelligent-email-assistant/internal/services"
)

// MessageHandler serves the stored-message read side plus the manual
// pipeline operations
type MessageHandler struct {
	store      *services.MessageStore
	intake     *services.IntakeService
	responder  *services.AutoResponder
	logService *services.LogService
}

// NewMessageHandler creates a new MessageHandler instance
func NewMessageHandler(store *services.MessageStore, intake *services.IntakeService, responder *services.AutoResponder, logService *services.LogService) *MessageHandler {
	return &MessageHandler{
		store:      store,
		intake:     intake,
		responder:  responder,
		logService: logService,
	}
}

// ListMessages handles GET /api/messages with filter query params
func (h *MessageHandler) ListMessages(c *gin.Context) {
	accountID, _ := middleware.GetAccountIDFromContext(c)

	query := services.MessageQuery{
		AccountID:   accountID,
		Status:      c.Query("status"),
		Category:    c.Query("category"),
		Sentiment:   c.Query("sentiment"),
		SenderEmail: c.Query("sender"),
	}
	if raw := c.Query("attention"); raw != "" {
		val := raw == "true" || raw == "1"
		query.RequiresAttention = &val
	}
	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_REQUEST",
					"message": "since must be an RFC3339 timestamp",
				},
			})
			return
		}
		query.Since = &since
	}
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))

	result, err := h.store.Query(query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "QUERY_FAILED",
				"message": "Failed to query messages",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"total":    result.Total,
			"messages": result.Messages,
			"page":     query.Page,
			"limit":    query.Limit,
		},
	})
}

// GetMessage handles GET /api/messages/:id
func (h *MessageHandler) GetMessage(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Invalid message ID",
			},
		})
		return
	}

	msg, err := h.store.FindByID(uint(id))
	if err != nil {
		if errors.Is(err, services.ErrMessageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Message not found",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "QUERY_FAILED",
				"message": "Failed to load message",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": msg})
}

// GetStats handles GET /api/messages/stats
func (h *MessageHandler) GetStats(c *gin.Context) {
	accountID, _ := middleware.GetAccountIDFromContext(c)

	stats, err := h.store.GetStats(accountID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "QUERY_FAILED",
				"message": "Failed to compute stats",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": stats})
}

// PreviewResponse handles GET /api/messages/:id/preview-response
func (h *MessageHandler) PreviewResponse(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Invalid message ID",
			},
		})
		return
	}

	body, err := h.responder.Preview(uint(id))
	if err != nil {
		if errors.Is(err, services.ErrMessageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Message not found",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "PREVIEW_FAILED",
				"message": "Failed to draft response",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"body": body},
	})
}

// SendResponse handles POST /api/messages/:id/send-response, bypassing
// the delay window
func (h *MessageHandler) SendResponse(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Invalid message ID",
			},
		})
		return
	}

	sent, err := h.responder.Respond(uint(id))
	if err != nil {
		if errors.Is(err, services.ErrMessageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Message not found",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
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

// Reprocess handles POST /api/messages/:id/reprocess for a single
// failed message
func (h *MessageHandler) Reprocess(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Invalid message ID",
			},
		})
		return
	}

	msg, err := h.intake.Reprocess(uint(id))
	if err != nil {
		if errors.Is(err, services.ErrMessageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Message not found",
				},
			})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "REPROCESS_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": msg})
}

// ReprocessFailed handles POST /api/messages/reprocess-failed
func (h *MessageHandler) ReprocessFailed(c *gin.Context) {
	accountID, _ := middleware.GetAccountIDFromContext(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	recovered, err := h.intake.ReprocessFailed(accountID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "REPROCESS_FAILED",
				"message": "Failed to reprocess messages",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"recovered": recovered},
	})
}
