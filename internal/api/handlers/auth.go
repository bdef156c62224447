package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/godprim3/intelligent-email-assistant/internal/api/middleware"
	"github.com/godprim3/intelligent-email-assistant/internal/database/models"
	"github.com/godprim3/intelligent-email-assistant/internal/services"
)

// AuthHandler exchanges the API key for account-scoped JWT tokens
type AuthHandler struct {
	jwtManager *middleware.JWTManager
	logService *services.LogService
}

// NewAuthHandler creates a new AuthHandler instance
func NewAuthHandler(jwtManager *middleware.JWTManager, logService *services.LogService) *AuthHandler {
	return &AuthHandler{
		jwtManager: jwtManager,
		logService: logService,
	}
}

// TokenRequest is the request body for token issuance
type TokenRequest struct {
	AccountID string `json:"account_id" binding:"required"`
}

// IssueToken handles POST /api/auth/token. The API key middleware has
// already authenticated the caller.
func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "account_id is required",
			},
		})
		return
	}

	token, expiresAt, err := h.jwtManager.GenerateToken(req.AccountID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "TOKEN_GENERATION_FAILED",
				"message": "Failed to generate token",
			},
		})
		return
	}

	h.logService.LogInfo(req.AccountID, models.LogModuleAPI, "token_issued", "Access token issued", nil)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"token":      token,
			"expires_at": expiresAt,
			"account_id": req.AccountID,
		},
	})
}

// RefreshToken handles POST /api/auth/refresh for an authenticated caller
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	accountID, ok := middleware.GetAccountIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "AUTH_FAILED",
				"message": "Not authenticated",
			},
		})
		return
	}

	token, expiresAt, err := h.jwtManager.GenerateToken(accountID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "TOKEN_GENERATION_FAILED",
				"message": "Failed to refresh token",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"token":      token,
			"expires_at": expiresAt,
			"account_id": accountID,
		},
	})
}
