package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oip/rfmengine/common/entity"
	"oip/rfmengine/internal/business"
	"oip/rfmengine/pkg/config"
	"oip/rfmengine/pkg/infra/mysql/mysqltest"
	"oip/rfmengine/pkg/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		RFM: config.RFMConfig{
			PageSize:      100,
			BatchSize:     50,
			Concurrency:   2,
			LockKey:       "rfm:calculation:lock",
			LockTTL:       time.Minute,
			NotifyChannel: "rfm:calculation:complete",
		},
	}
}

func TestApp_ServicesWithoutRedis(t *testing.T) {
	app := &App{Cfg: testConfig(), Log: logger.NewNop(), DB: mysqltest.NewDB(t)}
	ctx := context.Background()

	require.NoError(t, app.openRedis(ctx))
	assert.Nil(t, app.Redis)
	require.NoError(t, app.buildServices(ctx))
	require.NoError(t, app.seedSegments(ctx))

	segments, err := app.Query.Segments(ctx, false)
	require.NoError(t, err)
	assert.Len(t, segments, 6)

	res, err := app.Calculation.Calculate(ctx, business.CalculateRequest{})
	require.NoError(t, err)
	assert.Equal(t, entity.RunStatusNoop, res.Status)
}

func TestApp_RedisLockIsShared(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Redis.Addr = mr.Addr()
	ctx := context.Background()

	app := &App{Cfg: cfg, Log: logger.NewNop(), DB: mysqltest.NewDB(t)}
	require.NoError(t, app.openRedis(ctx))
	t.Cleanup(app.Close)
	require.NoError(t, app.buildServices(ctx))

	// 另一实例持有锁
	require.NoError(t, mr.Set(cfg.RFM.LockKey, "other-instance"))
	_, err := app.Calculation.Calculate(ctx, business.CalculateRequest{})
	assert.ErrorIs(t, err, business.ErrCalculationInProgress)
}
