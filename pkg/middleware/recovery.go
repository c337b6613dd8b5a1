package middleware

import (
	"fmt"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/richxcame/schoolrun/pkg/common"
	"github.com/richxcame/schoolrun/pkg/logger"
	"go.uber.org/zap"
)

// Recovery turns panics into a 500 response and reports them
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.WithContext(c.Request.Context()).Error("Panic recovered",
					zap.Any("error", rec),
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
					zap.Stack("stack"),
				)
				if hub := sentrygin.GetHubFromContext(c); hub != nil {
					hub.CaptureException(fmt.Errorf("panic: %v", rec))
				}

				common.AppErrorResponse(c, common.NewInternalServerError("internal server error"))
				c.Abort()
			}
		}()

		c.Next()
	}
}
