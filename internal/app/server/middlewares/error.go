package middlewares

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"oip/rfmengine/internal/app/pkg/ginx"
	"oip/rfmengine/pkg/logger"
)

// ErrorHandler 统一错误处理：捕获 panic，并兜底处理未写响应的 c.Errors
func ErrorHandler(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf(requestContext(c), "[HTTP] panic recovered: %v", r)
				c.Abort()
				ginx.InternalError(c, "internal server error")
			}
		}()

		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last()
			log.Errorf(requestContext(c), "[HTTP] unhandled error: %v", err.Err)
			ginx.Error(c, http.StatusInternalServerError, err.Error())
		}
	}
}

func requestContext(c *gin.Context) context.Context {
	if c.Request == nil {
		return context.Background()
	}
	return c.Request.Context()
}
