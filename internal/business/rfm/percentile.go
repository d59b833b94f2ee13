package rfm

import (
	"math"
	"sort"
	"strconv"
)

// Metric 参与排名的原始指标
type Metric int

const (
	MetricRecency Metric = iota
	MetricFrequency
	MetricMonetary
)

// String 指标名称
func (m Metric) String() string {
	switch m {
	case MetricRecency:
		return "recency"
	case MetricFrequency:
		return "frequency"
	case MetricMonetary:
		return "monetary"
	default:
		return "unknown"
	}
}

// Values 提取全体客户某一指标的原始值
func Values(metrics []CustomerMetrics, metric Metric) []int64 {
	out := make([]int64, len(metrics))
	for i, m := range metrics {
		switch metric {
		case MetricRecency:
			out[i] = m.DaysSinceLastOrder
		case MetricFrequency:
			out[i] = m.TotalOrders
		case MetricMonetary:
			out[i] = m.TotalSpentCents
		}
	}
	return out
}

// PercentileIndex 某一指标的只读有序索引（第一遍构建，第二遍只读查询）
type PercentileIndex struct {
	sorted []int64
}

// NewPercentileIndex 基于全体取值构建索引，入参不会被修改
func NewPercentileIndex(values []int64) *PercentileIndex {
	sorted := make([]int64, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return &PercentileIndex{sorted: sorted}
}

// Len 索引中的样本数
func (p *PercentileIndex) Len() int {
	return len(p.sorted)
}

// Rank 排名百分位的精确表示 Below/Span
type Rank struct {
	Below int64 // ≤v 的样本数 - 1
	Span  int64 // N - 1，至少为 1
}

// Invert 反转排名（1 - p），保持整数精度
func (r Rank) Invert() Rank {
	return Rank{Below: r.Span - r.Below, Span: r.Span}
}

// Percentile 浮点百分位，仅用于展示与保存
func (r Rank) Percentile() float64 {
	return float64(r.Below) / float64(r.Span)
}

// Score 按 0.2/0.4/0.6/0.8 阈值量化为 1-5 分，比较在整数上进行
func (r Rank) Score() int {
	for score := 5; score > 1; score-- {
		if 5*r.Below >= int64(score-1)*r.Span {
			return score
		}
	}
	return 1
}

// Rank 基于排名：(≤v 的数量 - 1) / (N - 1)
// 相同取值得到相同排名；N <= 1 或 v 低于全部样本时为 0
func (p *PercentileIndex) Rank(v int64) Rank {
	n := len(p.sorted)
	if n <= 1 {
		return Rank{Below: 0, Span: 1}
	}
	atOrBelow := sort.Search(n, func(i int) bool { return p.sorted[i] > v })
	if atOrBelow == 0 {
		return Rank{Below: 0, Span: int64(n - 1)}
	}
	return Rank{Below: int64(atOrBelow - 1), Span: int64(n - 1)}
}

// Percentile 基于排名的百分位
func (p *PercentileIndex) Percentile(v int64) float64 {
	return p.Rank(v).Percentile()
}

// ScoreIndex 三个指标的索引集合
type ScoreIndex struct {
	Recency   *PercentileIndex
	Frequency *PercentileIndex
	Monetary  *PercentileIndex
}

// NewScoreIndex 顺序构建三个指标的索引
func NewScoreIndex(metrics []CustomerMetrics) *ScoreIndex {
	return &ScoreIndex{
		Recency:   NewPercentileIndex(Values(metrics, MetricRecency)),
		Frequency: NewPercentileIndex(Values(metrics, MetricFrequency)),
		Monetary:  NewPercentileIndex(Values(metrics, MetricMonetary)),
	}
}

// ComposeRFMScore 组合三位 RFM 编码，例如 "435"
func ComposeRFMScore(r, f, m int) string {
	return strconv.Itoa(r) + strconv.Itoa(f) + strconv.Itoa(m)
}

// roundTo 四舍五入到指定小数位
func roundTo(f float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(f*pow) / pow
}
