package mysql_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oip/rfmengine/common/entity"
	"oip/rfmengine/pkg/infra/mysql"
	"oip/rfmengine/pkg/infra/mysql/mysqltest"
)

func ptr(v int64) *int64 { return &v }

func templates() []entity.Segment {
	return []entity.Segment{
		{Slug: "champions", Name: "Champions", Priority: 1, IsActive: true, RecencyMax: ptr(30)},
		{Slug: "lost", Name: "Lost", Priority: 2, IsActive: true, RecencyMin: ptr(366)},
	}
}

func TestSegmentDAO_SeedIsIdempotent(t *testing.T) {
	db := mysqltest.NewDB(t)
	dao := mysql.NewSegmentDAO(db)
	ctx := context.Background()

	require.NoError(t, dao.SeedSegments(ctx, templates()))

	// 运营修改区间与优先级
	require.NoError(t, db.Model(&entity.Segment{}).Where("slug = ?", "champions").
		Updates(map[string]interface{}{"recency_max": 14, "priority": 5}).Error)

	again := templates()
	again[0].Name = "Champions v2"
	require.NoError(t, dao.SeedSegments(ctx, again))

	segments, err := dao.ListSegments(ctx, false)
	require.NoError(t, err)
	require.Len(t, segments, 2)

	champ, err := dao.GetSegmentBySlug(ctx, "champions")
	require.NoError(t, err)
	assert.Equal(t, "Champions v2", champ.Name)
	assert.Equal(t, 5, champ.Priority, "operator edits survive reseed")
	require.NotNil(t, champ.RecencyMax)
	assert.Equal(t, int64(14), *champ.RecencyMax)

	_, err = dao.GetSegmentBySlug(ctx, "nope")
	assert.ErrorIs(t, err, mysql.ErrSegmentNotFound)
}

func TestSegmentDAO_ListActiveByPriority(t *testing.T) {
	db := mysqltest.NewDB(t)
	dao := mysql.NewSegmentDAO(db)
	ctx := context.Background()

	require.NoError(t, dao.SeedSegments(ctx, templates()))
	require.NoError(t, db.Model(&entity.Segment{}).Where("slug = ?", "champions").Update("is_active", false).Error)

	active, err := dao.ListSegments(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "lost", active[0].Slug)
}

func member(gen string, customerID, segmentID int64) entity.SegmentMember {
	return entity.SegmentMember{
		Generation:     gen,
		CustomerID:     customerID,
		SegmentID:      segmentID,
		RFMScore:       "111",
		LifecycleStage: "churned",
		CalculatedAt:   calcAt,
	}
}

func TestSegmentDAO_GenerationSwap(t *testing.T) {
	db := mysqltest.NewDB(t)
	dao := mysql.NewSegmentDAO(db)
	ctx := context.Background()

	require.NoError(t, dao.SeedSegments(ctx, templates()))
	segs, err := dao.ListSegments(ctx, false)
	require.NoError(t, err)
	champID, lostID := segs[0].ID, segs[1].ID

	gen, err := dao.CurrentGeneration(ctx)
	require.NoError(t, err)
	assert.Empty(t, gen)

	// 第一代
	require.NoError(t, dao.InsertMembers(ctx, []entity.SegmentMember{
		member("G1", 1, champID), member("G1", 2, lostID),
	}))
	members, err := dao.CurrentMembers(ctx)
	require.NoError(t, err)
	assert.Empty(t, members, "unpublished generation is invisible")

	require.NoError(t, dao.PublishGeneration(ctx, "G1", []mysql.SegmentStatsUpdate{
		{SegmentID: champID, CustomerCount: 1, TotalRevenue: 100, AvgOrderValue: 50},
		{SegmentID: lostID, CustomerCount: 1},
	}, calcAt))

	members, err = dao.CurrentMembers(ctx)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	// 第二代写入后、发布前，读者仍看到第一代
	require.NoError(t, dao.InsertMembers(ctx, []entity.SegmentMember{member("G2", 1, lostID)}))
	page, total, err := dao.ListMembers(ctx, champID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, page, 1)
	assert.Equal(t, "G1", page[0].Generation)

	require.NoError(t, dao.PublishGeneration(ctx, "G2", []mysql.SegmentStatsUpdate{
		{SegmentID: champID},
		{SegmentID: lostID, CustomerCount: 1},
	}, calcAt))

	_, total, err = dao.ListMembers(ctx, champID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)

	deleted, err := dao.DeleteStaleMembers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	var remaining int64
	require.NoError(t, db.Model(&entity.SegmentMember{}).Count(&remaining).Error)
	assert.Equal(t, int64(1), remaining)

	champ, err := dao.GetSegmentBySlug(ctx, "champions")
	require.NoError(t, err)
	assert.Equal(t, int64(0), champ.CustomerCount)
	assert.NotNil(t, champ.StatsUpdatedAt)

	gen, err = dao.CurrentGeneration(ctx)
	require.NoError(t, err)
	assert.Equal(t, "G2", gen)
}

func TestSegmentDAO_DeleteStaleWithoutPointerKeepsRows(t *testing.T) {
	db := mysqltest.NewDB(t)
	dao := mysql.NewSegmentDAO(db)
	ctx := context.Background()

	require.NoError(t, dao.InsertMembers(ctx, []entity.SegmentMember{member("G1", 1, 1)}))
	deleted, err := dao.DeleteStaleMembers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)
}
