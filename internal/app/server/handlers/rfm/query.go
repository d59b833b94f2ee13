package rfm

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"oip/rfmengine/internal/app/pkg/ginx"
)

// Overview godoc
// @Summary      RFM 概览
// @Description  客户总数、已评分数、生命周期分布、分群统计、最近一次计算
// @Tags         rfm
// @Produce      json
// @Success      200 {object} ginx.Response{data=business.Overview}
// @Failure      500 {object} ginx.Response
// @Router       /rfm/overview [get]
func (h *RFMHandler) Overview(c *gin.Context) {
	overview, err := h.querier.Overview(c.Request.Context())
	if err != nil {
		h.log.Errorf(c.Request.Context(), "[RFMHandler] Overview failed: %v", err)
		ginx.FromError(c, err, nil)
		return
	}
	ginx.Success(c, overview)
}

// Distribution godoc
// @Summary      RFM 分数分布
// @Tags         rfm
// @Produce      json
// @Success      200 {object} ginx.Response{data=[]mysql.DistributionRow}
// @Router       /rfm/distribution [get]
func (h *RFMHandler) Distribution(c *gin.Context) {
	rows, err := h.querier.Distribution(c.Request.Context())
	if err != nil {
		h.log.Errorf(c.Request.Context(), "[RFMHandler] Distribution failed: %v", err)
		ginx.FromError(c, err, nil)
		return
	}
	ginx.Success(c, rows)
}

// Customer godoc
// @Summary      单个客户的 RFM 结果
// @Tags         rfm
// @Produce      json
// @Param        id path int true "客户 ID"
// @Success      200 {object} ginx.Response{data=business.CustomerRFMView}
// @Failure      400 {object} ginx.Response
// @Failure      404 {object} ginx.Response
// @Router       /rfm/customers/{id} [get]
func (h *RFMHandler) Customer(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		ginx.BadRequest(c, "customer id must be a positive integer")
		return
	}

	view, err := h.querier.Customer(c.Request.Context(), id)
	if err != nil {
		ginx.FromError(c, err, nil)
		return
	}
	ginx.Success(c, view)
}
