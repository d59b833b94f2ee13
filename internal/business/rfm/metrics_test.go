package rfm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAsOf = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func daysAgo(d int) time.Time {
	return testAsOf.Add(-time.Duration(d) * 24 * time.Hour)
}

func TestCollectMetrics(t *testing.T) {
	customers := []Customer{
		{
			ID: 1,
			Orders: []Order{
				{ID: 10, Status: "delivered", TotalCents: 100, PlacedAt: daysAgo(40)},
				{ID: 11, Status: "delivered", TotalCents: 101, PlacedAt: daysAgo(3).Add(-6 * time.Hour)},
				{ID: 12, Status: OrderStatusCancelled, TotalCents: 90000, PlacedAt: daysAgo(1)},
				{ID: 13, Status: OrderStatusRefunded, TotalCents: 5000, PlacedAt: daysAgo(2)},
			},
		},
		{ID: 2, IsStaff: true, Orders: []Order{{ID: 20, Status: "delivered", TotalCents: 500, PlacedAt: daysAgo(1)}}},
		{ID: 3},
		{
			ID:     4,
			Orders: []Order{{ID: 40, Status: OrderStatusCancelled, TotalCents: 700, PlacedAt: daysAgo(5)}},
		},
	}

	metrics, failures := CollectMetrics(customers, testAsOf)
	require.Empty(t, failures)
	require.Len(t, metrics, 3, "staff accounts are excluded")

	assert.Equal(t, CustomerMetrics{
		CustomerID:         1,
		TotalOrders:        2,
		TotalSpentCents:    201,
		AvgOrderCents:      101,
		DaysSinceLastOrder: 3,
	}, metrics[0])

	for _, m := range metrics[1:] {
		assert.Equal(t, int64(0), m.TotalOrders)
		assert.Equal(t, int64(0), m.TotalSpentCents)
		assert.Equal(t, int64(0), m.AvgOrderCents)
		assert.Equal(t, int64(NoOrderSentinel), m.DaysSinceLastOrder)
	}
}

func TestCollectMetrics_IsolatesMalformedCustomers(t *testing.T) {
	customers := []Customer{
		{ID: 1, Orders: []Order{{ID: 1, Status: "paid", TotalCents: -5, PlacedAt: daysAgo(1)}}},
		{ID: 2, Orders: []Order{{ID: 2, Status: "paid", TotalCents: 100}}},
		{ID: 3, Orders: []Order{{ID: 3, Status: "paid", TotalCents: 100, PlacedAt: daysAgo(7)}}},
		// 已取消订单的异常数据不影响指标
		{ID: 4, Orders: []Order{{ID: 4, Status: OrderStatusCancelled, TotalCents: -100}}},
	}

	metrics, failures := CollectMetrics(customers, testAsOf)
	require.Len(t, failures, 2)
	assert.Equal(t, int64(1), failures[0].CustomerID)
	assert.Equal(t, StageMetrics, failures[0].Stage)
	assert.Contains(t, failures[0].Reason, "negative total")
	assert.Equal(t, int64(2), failures[1].CustomerID)
	assert.Contains(t, failures[1].Reason, "placed_at")

	require.Len(t, metrics, 2)
	assert.Equal(t, int64(3), metrics[0].CustomerID)
	assert.Equal(t, int64(7), metrics[0].DaysSinceLastOrder)
	assert.Equal(t, int64(4), metrics[1].CustomerID)
	assert.Equal(t, int64(NoOrderSentinel), metrics[1].DaysSinceLastOrder)
}

func TestDaysBetween(t *testing.T) {
	tests := []struct {
		name     string
		from     time.Time
		expected int64
	}{
		{name: "same instant", from: testAsOf, expected: 0},
		{name: "partial day floors", from: testAsOf.Add(-47 * time.Hour), expected: 1},
		{name: "future order", from: testAsOf.Add(72 * time.Hour), expected: 0},
		{name: "very old order stays below sentinel", from: testAsOf.AddDate(-100, 0, 0), expected: NoOrderSentinel - 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, daysBetween(tt.from, testAsOf))
		})
	}
}
