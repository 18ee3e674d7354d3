package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/amoylab/atelier/internal/i18n"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Recovery turns panics into a 500. The stack trace is logged always and
// echoed in the response only outside production.
func Recovery(logger *zap.Logger, production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				stack := debug.Stack()
				logger.Error("panic recovered",
					zap.Any("error", rec),
					zap.String("path", c.Request.URL.Path),
					zap.ByteString("stack", stack),
				)

				body := gin.H{"error": i18n.TranslateMessage(c, i18n.ErrInternalServer.MessageID, nil)}
				if !production {
					body["detail"] = fmt.Sprint(rec)
					body["stack"] = string(stack)
				}
				c.AbortWithStatusJSON(http.StatusInternalServerError, body)
			}
		}()
		c.Next()
	}
}
