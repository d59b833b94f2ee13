package job

import (
	"context"

	"github.com/gin-gonic/gin"

	"oip/rfmengine/internal/app/domains/apimodel/response"
	"oip/rfmengine/internal/app/pkg/ginx"
	"oip/rfmengine/pkg/infra/redis"
)

// Getter 任务状态查询
type Getter interface {
	Get(ctx context.Context, requestID string) (*redis.JobStatus, error)
}

// JobHandler 异步任务 HTTP 处理器
type JobHandler struct {
	jobs Getter
}

// NewJobHandler 创建任务处理器实例
func NewJobHandler(jobs Getter) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// Get godoc
// @Summary      查询异步任务状态
// @Description  calculate / seed 以 async=true 提交后，通过此接口轮询结果
// @Tags         jobs
// @Produce      json
// @Param        request_id path string true "请求 ID"
// @Success      200 {object} ginx.Response{data=response.JobResponse}
// @Failure      404 {object} ginx.Response
// @Router       /jobs/{request_id} [get]
func (h *JobHandler) Get(c *gin.Context) {
	status, err := h.jobs.Get(c.Request.Context(), c.Param("request_id"))
	if err != nil {
		ginx.FromError(c, err, nil)
		return
	}
	ginx.Success(c, response.FromJobStatus(status))
}
