package domains

import (
	"oip/rfmengine/common/model"
	"oip/rfmengine/internal/domains/common"
	"oip/rfmengine/internal/domains/handlers/rfm/calculate"
	"oip/rfmengine/internal/domains/handlers/segment/seed"
)

// HandlerMap 路由表（ActionType → Handler 构造函数）
var HandlerMap = map[string]common.HandlerServProc{
	model.ActionRFMCalculate: calculate.NewCalculateHandler,
	model.ActionSegmentSeed:  seed.NewSeedHandler,
}
