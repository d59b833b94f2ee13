package rfm

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"oip/rfmengine/common/model"
	"oip/rfmengine/internal/app/domains/apimodel/request"
	"oip/rfmengine/internal/app/pkg/ginx"
	"oip/rfmengine/internal/business"
)

// Calculate godoc
// @Summary      触发 RFM 计算
// @Description  默认同步执行并返回运行结果；async=true 时投递到 worker，返回 202 与轮询地址
// @Description
// @Description  - 已有计算在执行：409
// @Description  - 部分客户失败：207，meta.code=206
// @Description  - 没有客户：200，status=NOOP
// @Description  - 没有客户产生有效指标：422
// @Tags         rfm
// @Accept       json
// @Produce      json
// @Param        request body request.CalculateRequest false "计算参数"
// @Success      200 {object} ginx.Response{data=business.RunResult}
// @Success      202 {object} ginx.Response{data=ginx.AcceptedData}
// @Failure      207 {object} ginx.Response{data=business.RunResult}
// @Failure      400 {object} ginx.Response
// @Failure      409 {object} ginx.Response
// @Failure      422 {object} ginx.Response{data=business.RunResult}
// @Failure      500 {object} ginx.Response{data=business.RunResult}
// @Router       /rfm/calculate [post]
func (h *RFMHandler) Calculate(c *gin.Context) {
	var req request.CalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		ginx.BadRequestWithValidation(c, err)
		return
	}
	asOf, err := req.AsOfTime()
	if err != nil {
		ginx.BadRequest(c, "as_of must match 2006-01-02")
		return
	}

	ctx := c.Request.Context()
	if req.Async {
		if h.jobs == nil {
			ginx.ServiceUnavailable(c, "async calculation is not configured")
			return
		}
		requestID, err := h.jobs.Enqueue(ctx, model.ActionRFMCalculate, req.ToJobData())
		if err != nil {
			h.log.Errorf(ctx, "[RFMHandler] Enqueue calculation failed: %v", err)
			ginx.FromError(c, err, nil)
			return
		}
		ginx.Accepted(c, requestID, "/api/v1/jobs/"+requestID)
		return
	}

	result, err := h.calculator.Calculate(ctx, business.CalculateRequest{
		AsOf:    asOf,
		Trigger: model.TriggerAPI,
	})
	if err != nil {
		if errors.Is(err, business.ErrCalculationInProgress) {
			h.log.Warnf(ctx, "[RFMHandler] Calculation rejected, another run holds the lock")
		} else {
			h.log.Errorf(ctx, "[RFMHandler] Calculation failed: %v", err)
		}
		ginx.FromError(c, err, result)
		return
	}
	ginx.Success(c, result)
}
