package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oip/rfmengine/common/model"
	"oip/rfmengine/pkg/config"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewClient(context.Background(), config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestLock_MutualExclusion(t *testing.T) {
	_, client := newTestClient(t)
	ctx := context.Background()
	lock := NewLock(client, "rfm:lock", time.Minute)

	token, ok, err := lock.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, token)

	_, ok, err = lock.TryAcquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "second holder is rejected")

	assert.ErrorIs(t, lock.Release(ctx, "someone-else"), ErrLockNotHeld)
	require.NoError(t, lock.Release(ctx, token))

	_, ok, err = lock.TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLock_RefreshExtendsLease(t *testing.T) {
	mr, client := newTestClient(t)
	ctx := context.Background()
	lock := NewLock(client, "rfm:lock", 10*time.Second)

	token, ok, err := lock.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(8 * time.Second)
	require.NoError(t, lock.Refresh(ctx, token))
	mr.FastForward(8 * time.Second)
	assert.True(t, mr.Exists("rfm:lock"), "refreshed lease is still alive")

	mr.FastForward(11 * time.Second)
	assert.False(t, mr.Exists("rfm:lock"))
	assert.ErrorIs(t, lock.Refresh(ctx, token), ErrLockNotHeld)
}

func TestPubSub_PublishCalculationComplete(t *testing.T) {
	_, client := newTestClient(t)
	ctx := context.Background()
	ps := NewPubSub(client)

	sub := ps.Subscribe(ctx, "rfm:calculation:complete")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	event := &model.CalculationCompleted{RunID: "01J", Status: "COMPLETED", Calculated: 3, Timestamp: 1}
	require.NoError(t, ps.PublishCalculationComplete(ctx, "rfm:calculation:complete", event))

	select {
	case msg := <-sub.Channel():
		var got model.CalculationCompleted
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, *event, got)
	case <-time.After(2 * time.Second):
		t.Fatal("notification not received")
	}
}

func TestJobStore_Lifecycle(t *testing.T) {
	mr, client := newTestClient(t)
	ctx := context.Background()
	store := NewJobStore(client, time.Hour)
	enqueuedAt := time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC)

	_, err := store.Get(ctx, "req-1")
	assert.ErrorIs(t, err, ErrJobNotFound)

	require.NoError(t, store.MarkPending(ctx, "req-1", model.ActionRFMCalculate, enqueuedAt))
	status, err := store.Get(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, JobStatusPending, status.Status)

	require.NoError(t, store.SaveCallback(ctx, &model.RFMJobCallback{
		RequestID:   "req-1",
		ActionType:  model.ActionRFMCalculate,
		Status:      model.CallbackStatusSuccess,
		Result:      json.RawMessage(`{"status":"SUCCESS"}`),
		ProcessedAt: enqueuedAt.Add(time.Minute).Unix(),
	}))
	status, err = store.Get(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, model.CallbackStatusSuccess, status.Status)
	assert.Equal(t, enqueuedAt.Unix(), status.EnqueuedAt)
	assert.JSONEq(t, `{"status":"SUCCESS"}`, string(status.Result))

	mr.FastForward(2 * time.Hour)
	_, err = store.Get(ctx, "req-1")
	assert.ErrorIs(t, err, ErrJobNotFound)
}
