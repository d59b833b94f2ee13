package routers

import (
	"github.com/gin-gonic/gin"

	"oip/rfmengine/internal/app/pkg/ginx"
	"oip/rfmengine/internal/app/server/handlers/job"
	"oip/rfmengine/internal/app/server/handlers/rfm"
	"oip/rfmengine/internal/app/server/handlers/segment"
	"oip/rfmengine/internal/app/server/middlewares"
	"oip/rfmengine/pkg/logger"
)

// Handlers 路由依赖的处理器
type Handlers struct {
	RFM     *rfm.RFMHandler
	Segment *segment.SegmentHandler
	Job     *job.JobHandler // 未配置异步任务时为 nil
}

// SetupRoutes 配置所有路由，使用 Route Group 分类
func SetupRoutes(h Handlers, log logger.Logger) *gin.Engine {
	r := gin.New()

	r.Use(middlewares.RequestID())
	r.Use(middlewares.CORS())
	r.Use(middlewares.Logger(log))
	r.Use(middlewares.ErrorHandler(log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "rfm-engine",
			"message": "Service is running",
		})
	})

	v1 := r.Group("/api/v1")
	{
		rfmGroup := v1.Group("/rfm")
		{
			rfmGroup.GET("/overview", h.RFM.Overview)
			rfmGroup.GET("/distribution", h.RFM.Distribution)
			rfmGroup.GET("/customers/:id", h.RFM.Customer)
			rfmGroup.POST("/calculate", h.RFM.Calculate)
		}

		segments := v1.Group("/segments")
		{
			segments.GET("", h.Segment.List)
			segments.GET("/:slug/members", h.Segment.Members)
			segments.POST("/seed", h.Segment.Seed)
		}

		if h.Job != nil {
			v1.GET("/jobs/:request_id", h.Job.Get)
		} else {
			v1.GET("/jobs/:request_id", func(c *gin.Context) {
				ginx.ServiceUnavailable(c, "async jobs are not configured")
			})
		}
	}

	return r
}
