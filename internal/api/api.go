// Package api implements the authenticated HTTP endpoints for chat history
// and read receipts.
package api

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/samarthnaikk/ychat20/internal/constants"
	"github.com/samarthnaikk/ychat20/internal/history"
	"github.com/samarthnaikk/ychat20/internal/httperrors"
	"github.com/samarthnaikk/ychat20/internal/identity"
	"github.com/samarthnaikk/ychat20/internal/ratelimit"
	"github.com/samarthnaikk/ychat20/internal/util"
)

// contextUserIDKey is the gin context key holding the authenticated user id.
const contextUserIDKey = "user_id"

// AuthMiddleware validates the Authorization header and stores the resolved
// user id in the request context.
func AuthMiddleware(ident *identity.Service, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := util.ExtractBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			httperrors.RespondUnauthorized(c, httperrors.MsgInvalidAuthHeader)
			c.Abort()
			return
		}

		userID, err := ident.Resolve(token)
		if err != nil {
			logger.Warnw("Token validation failed",
				"error", err,
				"component", "auth")
			httperrors.RespondInvalidToken(c)
			c.Abort()
			return
		}

		c.Set(contextUserIDKey, userID)
		c.Next()
	}
}

// RateLimitMiddleware enforces a per-user sliding window on API requests.
// It must run after AuthMiddleware.
func RateLimitMiddleware(limiter *ratelimit.RequestLimiter, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDFromContext(c)
		if !ok {
			c.Next()
			return
		}

		if !limiter.Allow(userID) {
			retryAfter := limiter.RetryAfter(userID)
			retryAfterSeconds := int(retryAfter/time.Second) + 1

			logger.Warnw("API rate limit exceeded",
				"user_id", userID,
				"endpoint", c.Request.URL.Path,
				"retry_after", retryAfter,
				"component", "api")

			c.Header("Retry-After", fmt.Sprintf("%d", retryAfterSeconds))
			httperrors.RespondTooManyRequests(c)
			c.Abort()
			return
		}

		c.Next()
	}
}

// userIDFromContext extracts the authenticated user id set by AuthMiddleware.
func userIDFromContext(c *gin.Context) (int64, bool) {
	v, exists := c.Get(contextUserIDKey)
	if !exists {
		return 0, false
	}
	userID, ok := v.(int64)
	return userID, ok
}

// HandleChatHistory returns a handler serving one page of a conversation
// between the authenticated user and the user named in the path.
func HandleChatHistory(svc *history.Service, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requesterID, ok := userIDFromContext(c)
		if !ok {
			httperrors.RespondUnauthorized(c, "")
			return
		}

		otherID, err := strconv.ParseInt(c.Param("userID"), 10, 64)
		if err != nil || otherID <= 0 {
			httperrors.RespondValidationError(c, "Valid user ID is required")
			return
		}

		// Unparseable limit/offset fall back to defaults rather than failing
		// the request.
		limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(constants.DefaultHistoryLimit)))
		if err != nil {
			limit = constants.DefaultHistoryLimit
		}
		offset, err := strconv.Atoi(c.DefaultQuery("offset", strconv.Itoa(constants.DefaultHistoryOffset)))
		if err != nil {
			offset = constants.DefaultHistoryOffset
		}

		page, err := svc.GetChatHistory(c.Request.Context(), requesterID, otherID, limit, offset)
		if err != nil {
			if errors.Is(err, history.ErrUserNotFound) {
				httperrors.RespondUserNotFound(c)
				return
			}
			util.LogError(logger, "api", "fetch chat history", err,
				"requester_id", requesterID,
				"other_id", otherID)
			httperrors.RespondInternalError(c, "Failed to fetch chat history")
			return
		}

		c.JSON(200, gin.H{
			"messages": page.Messages,
			"pagination": gin.H{
				"limit":  page.Limit,
				"offset": page.Offset,
				"total":  page.Total,
			},
		})
	}
}

// markReadRequest is the body of a read-receipt request.
type markReadRequest struct {
	MessageIDs []int64 `json:"message_ids" binding:"required"`
}

// HandleMarkRead returns a handler marking messages as read by the
// authenticated user.
func HandleMarkRead(svc *history.Service, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		readerID, ok := userIDFromContext(c)
		if !ok {
			httperrors.RespondUnauthorized(c, "")
			return
		}

		var req markReadRequest
		if err := c.ShouldBindJSON(&req); err != nil || len(req.MessageIDs) == 0 {
			httperrors.RespondValidationError(c, "message_ids is required")
			return
		}

		marked, err := svc.MarkMessagesRead(c.Request.Context(), req.MessageIDs, readerID)
		if err != nil {
			util.LogError(logger, "api", "mark messages read", err,
				"reader_id", readerID)
			httperrors.RespondInternalError(c, "Failed to mark messages as read")
			return
		}

		if marked == nil {
			marked = []int64{}
		}
		c.JSON(200, gin.H{
			"read":  marked,
			"count": len(marked),
		})
	}
}
