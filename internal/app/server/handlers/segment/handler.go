package segment

import (
	"context"

	"github.com/gin-gonic/gin"

	"oip/rfmengine/common/model"
	"oip/rfmengine/internal/app/domains/apimodel/request"
	"oip/rfmengine/internal/app/pkg/ginx"
	"oip/rfmengine/internal/business"
	"oip/rfmengine/pkg/logger"
)

// Querier 分群读接口
type Querier interface {
	Segments(ctx context.Context, activeOnly bool) ([]business.SegmentView, error)
	SegmentMembers(ctx context.Context, slug string, limit, offset int) (*business.MemberPage, error)
}

// Seeder 初始化分群模板
type Seeder interface {
	SeedSegments(ctx context.Context) (int, error)
}

// JobEnqueuer 异步投递
type JobEnqueuer interface {
	Enqueue(ctx context.Context, actionType string, data interface{}) (string, error)
}

// SegmentHandler 分群 HTTP 处理器
type SegmentHandler struct {
	querier Querier
	seeder  Seeder
	jobs    JobEnqueuer
	log     logger.Logger
}

// NewSegmentHandler 创建分群处理器实例
func NewSegmentHandler(querier Querier, seeder Seeder, jobs JobEnqueuer, log logger.Logger) *SegmentHandler {
	return &SegmentHandler{
		querier: querier,
		seeder:  seeder,
		jobs:    jobs,
		log:     log,
	}
}

// List godoc
// @Summary      分群列表
// @Tags         segments
// @Produce      json
// @Param        active_only query bool false "仅返回启用的分群"
// @Success      200 {object} ginx.Response{data=[]business.SegmentView}
// @Router       /segments [get]
func (h *SegmentHandler) List(c *gin.Context) {
	var q request.SegmentListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		ginx.BadRequestWithValidation(c, err)
		return
	}

	segments, err := h.querier.Segments(c.Request.Context(), q.ActiveOnly)
	if err != nil {
		h.log.Errorf(c.Request.Context(), "[SegmentHandler] List failed: %v", err)
		ginx.FromError(c, err, nil)
		return
	}
	ginx.Success(c, segments)
}

// Members godoc
// @Summary      分群成员
// @Description  当前代次的分群成员，按 RFM 分数倒序分页
// @Tags         segments
// @Produce      json
// @Param        slug path string true "分群标识"
// @Param        limit query int false "每页数量（1-500）"
// @Param        offset query int false "偏移量"
// @Success      200 {object} ginx.Response{data=business.MemberPage}
// @Failure      400 {object} ginx.Response
// @Failure      404 {object} ginx.Response
// @Router       /segments/{slug}/members [get]
func (h *SegmentHandler) Members(c *gin.Context) {
	var q request.MembersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		ginx.BadRequestWithValidation(c, err)
		return
	}

	page, err := h.querier.SegmentMembers(c.Request.Context(), c.Param("slug"), q.Limit, q.Offset)
	if err != nil {
		ginx.FromError(c, err, nil)
		return
	}
	ginx.Success(c, page)
}

// Seed godoc
// @Summary      初始化分群模板
// @Description  按 slug 幂等写入内置分群模板，保留运营修改过的区间、优先级与启用状态
// @Tags         segments
// @Accept       json
// @Produce      json
// @Param        request body request.SeedRequest false "参数"
// @Success      200 {object} ginx.Response
// @Success      202 {object} ginx.Response{data=ginx.AcceptedData}
// @Router       /segments/seed [post]
func (h *SegmentHandler) Seed(c *gin.Context) {
	var req request.SeedRequest
	_ = c.ShouldBindJSON(&req)

	ctx := c.Request.Context()
	if req.Async {
		if h.jobs == nil {
			ginx.ServiceUnavailable(c, "async seeding is not configured")
			return
		}
		requestID, err := h.jobs.Enqueue(ctx, model.ActionSegmentSeed, &model.SegmentSeedData{})
		if err != nil {
			ginx.FromError(c, err, nil)
			return
		}
		ginx.Accepted(c, requestID, "/api/v1/jobs/"+requestID)
		return
	}

	n, err := h.seeder.SeedSegments(ctx)
	if err != nil {
		h.log.Errorf(ctx, "[SegmentHandler] Seed failed: %v", err)
		ginx.FromError(c, err, nil)
		return
	}
	ginx.Success(c, gin.H{"segments": n})
}
