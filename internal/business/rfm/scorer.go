package rfm

import "time"

// percentilePlaces 百分位保存精度
const percentilePlaces = 4

// Score 第二遍：将单个客户映射到只读索引上，得到完整评分
// 同一 index 下可并发调用
func (idx *ScoreIndex) Score(m CustomerMetrics, calculatedAt time.Time) CustomerScore {
	// 距今天数越小越好，排名取反；评分基于精确排名，只有保存的百分位做舍入
	recency := idx.Recency.Rank(m.DaysSinceLastOrder).Invert()
	frequency := idx.Frequency.Rank(m.TotalOrders)
	monetary := idx.Monetary.Rank(m.TotalSpentCents)

	r := recency.Score()
	f := frequency.Score()
	mon := monetary.Score()

	return CustomerScore{
		CustomerMetrics:     m,
		RecencyScore:        r,
		FrequencyScore:      f,
		MonetaryScore:       mon,
		RFMScore:            ComposeRFMScore(r, f, mon),
		RecencyPercentile:   roundTo(recency.Percentile(), percentilePlaces),
		FrequencyPercentile: roundTo(frequency.Percentile(), percentilePlaces),
		MonetaryPercentile:  roundTo(monetary.Percentile(), percentilePlaces),
		LifecycleStage:      ClassifyLifecycle(r, f, mon, m.DaysSinceLastOrder),
		ChurnRisk:           EstimateChurnRisk(r, f, m.DaysSinceLastOrder),
		PredictedLTV:        PredictLTV(m.TotalSpentCents, f),
		CalculatedAt:        calculatedAt,
	}
}
