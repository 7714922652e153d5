package utils

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GuestPrefix marks user ids that belong to unregistered visitors.
const GuestPrefix = "guest_"

const genericServerError = "An unexpected error occurred. Please try again later."

// SendJSONError sends a standardized JSON error response and logs the internal error.
// 5xx responses never echo the internal error to the client.
func SendJSONError(c *gin.Context, log *zap.Logger, statusCode int, publicMsg string, internalError error, details ...any) {
	response := gin.H{"code": statusCode, "message": publicMsg}
	if len(details) > 0 && details[0] != nil {
		response["details"] = details[0]
	}

	fields := []zap.Field{
		zap.Int("status", statusCode),
		zap.String("public_message", publicMsg),
		zap.String("path", c.Request.URL.Path),
	}
	if internalError != nil {
		fields = append(fields, zap.Error(internalError))
		_ = c.Error(internalError)
	}
	if statusCode >= http.StatusInternalServerError {
		log.Error("Handler error", fields...)
		if publicMsg == "" || (internalError != nil && publicMsg == internalError.Error()) {
			response["message"] = genericServerError
		}
	} else {
		log.Info("Handler response", fields...)
	}

	c.AbortWithStatusJSON(statusCode, response)
}

// SendJSON writes the standard success envelope.
func SendJSON(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": message, "data": data})
}

// NewGuestID returns a fresh guest user id.
func NewGuestID() string {
	return GuestPrefix + uuid.NewString()
}

// IsGuestID reports whether userID belongs to a guest.
func IsGuestID(userID string) bool {
	return strings.HasPrefix(userID, GuestPrefix)
}

// FormatDate formats t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}
