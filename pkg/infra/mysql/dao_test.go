package mysql_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"oip/rfmengine/common/entity"
	"oip/rfmengine/pkg/infra/mysql"
	"oip/rfmengine/pkg/infra/mysql/mysqltest"
)

var calcAt = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func seedCustomers(t *testing.T, db *gorm.DB) {
	t.Helper()
	customers := []entity.Customer{
		{ID: 1, Name: "Ann", Email: "ann@example.com", CreatedAt: calcAt},
		{ID: 2, Name: "Bo", Email: "bo@example.com", CreatedAt: calcAt, IsStaff: true},
		{ID: 3, Name: "Cy", Email: "cy@example.com", CreatedAt: calcAt},
		{ID: 4, Name: "Di", Email: "di@example.com", CreatedAt: calcAt},
	}
	require.NoError(t, db.Create(&customers).Error)

	orders := []entity.Order{
		{CustomerID: 1, Status: "delivered", TotalCents: 1200, PlacedAt: calcAt.AddDate(0, 0, -3), CreatedAt: calcAt},
		{CustomerID: 1, Status: "delivered", TotalCents: 800, PlacedAt: calcAt.AddDate(0, 0, -30), CreatedAt: calcAt},
		{CustomerID: 3, Status: entity.OrderStatusRefunded, TotalCents: 500, PlacedAt: calcAt.AddDate(0, 0, -1), CreatedAt: calcAt},
	}
	require.NoError(t, db.Create(&orders).Error)
}

func TestFeedDAO_ListCustomers(t *testing.T) {
	db := mysqltest.NewDB(t)
	seedCustomers(t, db)
	dao := mysql.NewFeedDAO(db)
	ctx := context.Background()

	page, err := dao.ListCustomers(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(1), page[0].ID)
	assert.Equal(t, int64(3), page[1].ID, "staff customers are skipped")
	require.Len(t, page[0].Orders, 2)
	assert.True(t, page[0].Orders[0].PlacedAt.Before(page[0].Orders[1].PlacedAt))
	assert.Len(t, page[1].Orders, 1)

	next, err := dao.ListCustomers(ctx, page[1].ID, 2)
	require.NoError(t, err)
	require.Len(t, next, 1)
	assert.Equal(t, int64(4), next[0].ID)
	assert.Empty(t, next[0].Orders)

	n, err := dao.CountCustomers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func rfmRow(customerID int64, score string, stage string, risk float64, spent int64) entity.CustomerRFM {
	return entity.CustomerRFM{
		CustomerID:         customerID,
		TotalOrders:        2,
		TotalSpentCents:    spent,
		AvgOrderCents:      spent / 2,
		DaysSinceLastOrder: 3,
		RecencyScore:       int(score[0] - '0'),
		FrequencyScore:     int(score[1] - '0'),
		MonetaryScore:      int(score[2] - '0'),
		RFMScore:           score,
		LifecycleStage:     stage,
		ChurnRisk:          risk,
		PredictedLTV:       spent * 2,
		CalculatedAt:       calcAt,
	}
}

func TestRFMDAO_UpsertOverwrites(t *testing.T) {
	db := mysqltest.NewDB(t)
	dao := mysql.NewRFMDAO(db)
	ctx := context.Background()

	require.NoError(t, dao.UpsertScores(ctx, []entity.CustomerRFM{
		rfmRow(1, "555", "champion", 0, 2000),
		rfmRow(3, "111", "churned", 1, 0),
	}))
	require.NoError(t, dao.UpsertScores(ctx, []entity.CustomerRFM{rfmRow(1, "345", "active", 0.3, 2500)}))
	require.NoError(t, dao.UpsertScores(ctx, nil))

	var count int64
	require.NoError(t, db.Model(&entity.CustomerRFM{}).Count(&count).Error)
	assert.Equal(t, int64(2), count, "one row per customer")

	got, err := dao.GetByCustomerID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "345", got.RFMScore)
	assert.Equal(t, "active", got.LifecycleStage)
	assert.Equal(t, int64(2500), got.TotalSpentCents)

	_, err = dao.GetByCustomerID(ctx, 99)
	assert.ErrorIs(t, err, mysql.ErrCustomerRFMNotFound)
}

func TestRFMDAO_Aggregates(t *testing.T) {
	db := mysqltest.NewDB(t)
	dao := mysql.NewRFMDAO(db)
	ctx := context.Background()

	empty, err := dao.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), empty.Analyzed)

	require.NoError(t, dao.UpsertScores(ctx, []entity.CustomerRFM{
		rfmRow(1, "555", "champion", 0, 3000),
		rfmRow(2, "555", "champion", 0.2, 1000),
		rfmRow(3, "111", "churned", 1, 0),
	}))

	s, err := dao.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), s.Analyzed)
	assert.InDelta(t, 11.0/3.0, s.AvgRecency, 1e-9)
	assert.InDelta(t, 0.4, s.AvgChurnRisk, 1e-9)
	assert.InDelta(t, 8000.0/3.0, s.AvgPredictedLTV, 1e-6)

	stages, err := dao.LifecycleCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"champion": 2, "churned": 1}, stages)

	dist, err := dao.Distribution(ctx)
	require.NoError(t, err)
	require.Len(t, dist, 2)
	assert.Equal(t, "555", dist[0].RFMScore)
	assert.Equal(t, int64(2), dist[0].Customers)
	assert.Equal(t, int64(4000), dist[0].TotalSpentCents)
	assert.InDelta(t, 0.1, dist[0].AvgChurnRisk, 1e-9)
	assert.Equal(t, "111", dist[1].RFMScore)
}

func TestRunDAO(t *testing.T) {
	db := mysqltest.NewDB(t)
	dao := mysql.NewRunDAO(db)
	ctx := context.Background()

	latest, err := dao.LatestRun(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	first := &entity.CalculationRun{RunID: "01A", AsOf: calcAt, Trigger: "api", Status: entity.RunStatusRunning, StartedAt: calcAt}
	second := &entity.CalculationRun{RunID: "01B", AsOf: calcAt, Trigger: "cron", Status: entity.RunStatusRunning, StartedAt: calcAt.Add(time.Hour)}
	require.NoError(t, dao.CreateRun(ctx, first))
	require.NoError(t, dao.CreateRun(ctx, second))

	finished := calcAt.Add(2 * time.Hour)
	second.Status = entity.RunStatusPartial
	second.Failed = 1
	second.Failures = []byte(`[{"customer_id":7,"stage":"metrics","reason":"bad"}]`)
	second.FinishedAt = &finished
	require.NoError(t, dao.SaveRun(ctx, second))

	latest, err = dao.LatestRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "01B", latest.RunID)
	assert.Equal(t, entity.RunStatusPartial, latest.Status)
	assert.JSONEq(t, `[{"customer_id":7,"stage":"metrics","reason":"bad"}]`, string(latest.Failures))
	require.NotNil(t, latest.FinishedAt)
}
