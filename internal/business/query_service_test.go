package business

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oip/rfmengine/common/entity"
	"oip/rfmengine/pkg/errorutil"
	"oip/rfmengine/pkg/infra/mysql"
)

func newQueryService(f *fixture) *QueryService {
	return NewQueryService(mysql.NewFeedDAO(f.db), mysql.NewRFMDAO(f.db), f.segments, mysql.NewRunDAO(f.db))
}

func TestQueryService_BeforeFirstRun(t *testing.T) {
	f := newFixture(t)
	seedShop(t, f.db)

	overview, err := newQueryService(f).Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), overview.PopulationSize)
	assert.Zero(t, overview.AnalyzedCount)
	assert.Nil(t, overview.LastRun)
	assert.Len(t, overview.LifecycleDistribution, 6)
	assert.Len(t, overview.Segments, 6)
}

func TestQueryService_AfterRun(t *testing.T) {
	f := newFixture(t)
	seedShop(t, f.db)
	ctx := context.Background()

	res, err := f.service().Calculate(ctx, CalculateRequest{AsOf: asOf})
	require.NoError(t, err)
	q := newQueryService(f)

	overview, err := q.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), overview.AnalyzedCount)
	var staged int64
	for _, n := range overview.LifecycleDistribution {
		staged += n
	}
	assert.Equal(t, int64(5), staged)
	assert.Equal(t, int64(1), overview.LifecycleDistribution["champion"])
	require.NotNil(t, overview.LastRun)
	assert.Equal(t, res.RunID, overview.LastRun.RunID)
	assert.Equal(t, entity.RunStatusCompleted, overview.LastRun.Status)

	dist, err := q.Distribution(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, dist)
	assert.Equal(t, "555", dist[0].RFMScore)
	var customers int64
	for _, row := range dist {
		customers += row.Customers
	}
	assert.Equal(t, int64(5), customers)

	view, err := q.Customer(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "555", view.RFMScore)
	assert.Equal(t, 1.0, view.RecencyPercentile)

	page, err := q.SegmentMembers(ctx, "champions", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, DefaultMemberLimit, page.Limit)
	require.Len(t, page.Members, 1)
	assert.Equal(t, int64(1), page.Members[0].CustomerID)
	assert.Equal(t, "champions", page.Segment.Slug)
}

func TestQueryService_NotFound(t *testing.T) {
	f := newFixture(t)
	q := newQueryService(f)
	ctx := context.Background()

	var e *errorutil.Error

	_, err := q.Customer(ctx, 404)
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errorutil.CodeNotFound, e.Code)

	_, err = q.SegmentMembers(ctx, "whales", 10, 0)
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errorutil.CodeNotFound, e.Code)
}

func TestQueryService_MemberLimitIsClamped(t *testing.T) {
	f := newFixture(t)
	page, err := newQueryService(f).SegmentMembers(context.Background(), "lost", 10_000, -5)
	require.NoError(t, err)
	assert.Equal(t, MaxMemberLimit, page.Limit)
	assert.Zero(t, page.Offset)
	assert.Empty(t, page.Members)
}
