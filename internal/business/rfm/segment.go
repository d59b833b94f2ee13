package rfm

import (
	"math"
	"sort"
)

// Range 闭区间过滤条件，nil 表示该侧不设上/下限
type Range struct {
	Min *int64
	Max *int64
}

// Contains 判断取值是否落在区间内
func (r Range) Contains(v int64) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

// SegmentRule 分群规则（运营配置）
type SegmentRule struct {
	ID        int64
	Slug      string
	Priority  int
	Recency   Range // 距上次下单天数
	Frequency Range // 有效订单数
	Monetary  Range // 累计消费（分）
}

// Matches 客户原始指标是否同时满足三个区间
func (s SegmentRule) Matches(m CustomerMetrics) bool {
	return s.Recency.Contains(m.DaysSinceLastOrder) &&
		s.Frequency.Contains(m.TotalOrders) &&
		s.Monetary.Contains(m.TotalSpentCents)
}

// Membership 客户命中的唯一分群
type Membership struct {
	SegmentID int64
	CustomerScore
}

// SortByPriority 按 priority 升序排列（priority 相同按 ID），返回副本
func SortByPriority(rules []SegmentRule) []SegmentRule {
	sorted := make([]SegmentRule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority < sorted[j].Priority
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

// MatchSegments 为每个客户分配优先级最高的命中分群
// 每个客户至多一条 Membership；未命中任何分群的客户只计数
func MatchSegments(scores []CustomerScore, rules []SegmentRule) (members []Membership, unmatched int) {
	ordered := SortByPriority(rules)
	members = make([]Membership, 0, len(scores))

	for _, s := range scores {
		matched := false
		for _, rule := range ordered {
			if rule.Matches(s.CustomerMetrics) {
				members = append(members, Membership{SegmentID: rule.ID, CustomerScore: s})
				matched = true
				break
			}
		}
		if !matched {
			unmatched++
		}
	}

	return members, unmatched
}

// SegmentStats 分群统计
type SegmentStats struct {
	SegmentID     int64
	CustomerCount int64
	TotalRevenue  int64
	AvgOrderValue int64
}

// AggregateSegmentStats 基于成员集合重新计算每个分群的统计
// rules 中没有成员的分群统计归零
func AggregateSegmentStats(rules []SegmentRule, members []Membership) []SegmentStats {
	type acc struct {
		count   int64
		revenue int64
		avgSum  int64
	}
	bySegment := make(map[int64]*acc, len(rules))
	for _, r := range rules {
		bySegment[r.ID] = &acc{}
	}

	for _, m := range members {
		a, ok := bySegment[m.SegmentID]
		if !ok {
			continue
		}
		a.count++
		a.revenue += m.TotalSpentCents
		a.avgSum += m.AvgOrderCents
	}

	out := make([]SegmentStats, 0, len(rules))
	for _, r := range SortByPriority(rules) {
		a := bySegment[r.ID]
		st := SegmentStats{
			SegmentID:     r.ID,
			CustomerCount: a.count,
			TotalRevenue:  a.revenue,
		}
		if a.count > 0 {
			st.AvgOrderValue = int64(math.Round(float64(a.avgSum) / float64(a.count)))
		}
		out = append(out, st)
	}
	return out
}
