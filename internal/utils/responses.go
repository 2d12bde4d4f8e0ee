package utils

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vinumavintel/ums-with-admin-ui/internal/apperr"
	"github.com/vinumavintel/ums-with-admin-ui/internal/constants"
)

type ErrorResponse struct {
	Error     ErrorDetail `json:"error"`
	Status    int         `json:"status"`
	Path      string      `json:"path"`
	Timestamp string      `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func RespondWithError(c *gin.Context, statusCode int, errorCode, message string, details interface{}) {
	response := ErrorResponse{
		Error: ErrorDetail{
			Code:    errorCode,
			Message: message,
			Details: details,
		},
		Status:    statusCode,
		Path:      c.Request.URL.Path,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: GetRequestID(c),
	}

	c.JSON(statusCode, response)
}

// RespondWithAppError maps a taxonomy error onto the envelope. Anything
// outside the taxonomy is surfaced as a 502 without leaking the underlying
// driver or transport error.
func RespondWithAppError(c *gin.Context, err error) {
	if appErr := apperr.As(err); appErr != nil {
		RespondWithError(c, appErr.HTTPStatus(), appErr.Code, appErr.Message, appErr.Details)
		return
	}

	RespondWithError(c, 502, ErrCodeServiceUnavailable, "Upstream dependency failed", nil)
}

func GetRequestID(c *gin.Context) string {
	if requestID, exists := c.Get(constants.ContextKeyRequestID); exists {
		if s, ok := requestID.(string); ok {
			return s
		}
	}

	return c.GetHeader("X-Request-ID")
}

const (
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeInvalidToken       = "INVALID_TOKEN"
	ErrCodeServiceUnavailable = "UPSTREAM_UNAVAILABLE"
)
