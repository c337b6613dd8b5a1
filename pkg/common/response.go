package common

import (
	"net/http"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/richxcame/schoolrun/pkg/logger"
	"go.uber.org/zap"
)

// Response is the envelope for every JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// ErrorInfo describes a failed request
type ErrorInfo struct {
	Code    int    `json:"code"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
}

// Meta carries pagination details
type Meta struct {
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
	Total  int64 `json:"total"`
}

// SuccessResponse writes a 200 response
func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

// SuccessResponseWithStatus writes a success response with a custom status
func SuccessResponseWithStatus(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data})
}

// CreatedResponse writes a 201 response
func CreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

// SuccessResponseWithMeta writes a 200 response with pagination metadata
func SuccessResponseWithMeta(c *gin.Context, data interface{}, meta *Meta) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data, Meta: meta})
}

// ErrorResponse writes an error response
func ErrorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, Response{
		Success: false,
		Error:   &ErrorInfo{Code: status, Message: message},
	})
}

// AppErrorResponse writes an AppError. Only the public message is rendered.
func AppErrorResponse(c *gin.Context, err *AppError) {
	c.JSON(err.Code, Response{
		Success: false,
		Error:   &ErrorInfo{Code: err.Code, Reason: err.Reason, Message: err.Message},
	})
}

// HandleError renders err, logging the full cause. Server errors are also
// reported to Sentry when a hub is attached to the request.
func HandleError(c *gin.Context, err error, fallbackMessage string) {
	appErr, ok := AsAppError(err)
	if !ok {
		appErr = NewInternalError(fallbackMessage, err)
	}

	if appErr.Code >= http.StatusInternalServerError {
		logger.WithContext(c.Request.Context()).Error(fallbackMessage,
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		if hub := sentrygin.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		}
	} else if appErr.Err != nil {
		logger.WithContext(c.Request.Context()).Debug("request rejected",
			zap.String("reason", appErr.Reason),
			zap.Error(appErr.Err),
		)
	}

	AppErrorResponse(c, appErr)
}
