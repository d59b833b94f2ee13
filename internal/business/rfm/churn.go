package rfm

import "math"

// EstimateChurnRisk 流失风险，结果截断到 [0, 1] 并保留两位小数
func EstimateChurnRisk(recencyScore, frequencyScore int, daysSinceLastOrder int64) float64 {
	risk := float64(5-recencyScore) * 0.15

	// 阈值叠加，不互斥
	if daysSinceLastOrder > 90 {
		risk += 0.2
	}
	if daysSinceLastOrder > 180 {
		risk += 0.2
	}
	if daysSinceLastOrder > 365 {
		risk += 0.3
	}
	if frequencyScore >= 4 {
		risk -= 0.15
	}

	risk = math.Max(0, math.Min(1, risk))
	return roundTo(risk, 2)
}

// PredictLTV 预测生命周期价值（分）
func PredictLTV(totalSpentCents int64, frequencyScore int) int64 {
	return int64(math.Round(float64(totalSpentCents) * (1 + float64(frequencyScore)*0.2)))
}
