package rfm

import (
	"fmt"
	"math"
	"time"
)

// CollectMetrics 汇总每个客户的订单指标
// 员工账号不参与；取消/退款订单被过滤；指标异常的客户记入 failures，不影响其他客户
func CollectMetrics(customers []Customer, asOf time.Time) ([]CustomerMetrics, []Failure) {
	metrics := make([]CustomerMetrics, 0, len(customers))
	var failures []Failure

	for _, c := range customers {
		if c.IsStaff {
			continue
		}
		m, err := collectOne(c, asOf)
		if err != nil {
			failures = append(failures, Failure{
				CustomerID: c.ID,
				Stage:      StageMetrics,
				Reason:     err.Error(),
			})
			continue
		}
		metrics = append(metrics, m)
	}

	return metrics, failures
}

func collectOne(c Customer, asOf time.Time) (CustomerMetrics, error) {
	m := CustomerMetrics{
		CustomerID:         c.ID,
		DaysSinceLastOrder: NoOrderSentinel,
	}

	var last time.Time
	for _, o := range c.Orders {
		if !qualifies(o) {
			continue
		}
		if o.TotalCents < 0 {
			return m, fmt.Errorf("order %d has negative total %d", o.ID, o.TotalCents)
		}
		if o.PlacedAt.IsZero() {
			return m, fmt.Errorf("order %d has no placed_at timestamp", o.ID)
		}
		m.TotalOrders++
		m.TotalSpentCents += o.TotalCents
		if o.PlacedAt.After(last) {
			last = o.PlacedAt
		}
	}

	if m.TotalOrders == 0 {
		return m, nil
	}

	m.AvgOrderCents = int64(math.Round(float64(m.TotalSpentCents) / float64(m.TotalOrders)))
	m.DaysSinceLastOrder = daysBetween(last, asOf)
	return m, nil
}

// qualifies 是否为计入指标的订单
func qualifies(o Order) bool {
	return o.Status != OrderStatusCancelled && o.Status != OrderStatusRefunded
}

// daysBetween 整天数（向下取整），未来时间记为 0
func daysBetween(from, to time.Time) int64 {
	d := to.Sub(from)
	if d < 0 {
		return 0
	}
	days := int64(d / (24 * time.Hour))
	if days > NoOrderSentinel-1 {
		// 极早的订单不能与哨兵值重合
		return NoOrderSentinel - 1
	}
	return days
}
