package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"

	"oip/rfmengine/common/model"
)

// publishAttempts 发布通知的最大尝试次数
const publishAttempts = 3

// PubSub Redis 发布/订阅客户端
type PubSub struct {
	client *redis.Client
}

// NewPubSub 创建 PubSub 实例
func NewPubSub(client *redis.Client) *PubSub {
	return &PubSub{
		client: client,
	}
}

// PublishCalculationComplete 发布 RFM 计算完成通知，失败时按指数退避重试
// 参数：
//   - ctx: 上下文
//   - channel: Redis 频道名称（默认 rfm:calculation:complete）
//   - event: 通知消息
func (p *PubSub) PublishCalculationComplete(
	ctx context.Context,
	channel string,
	event *model.CalculationCompleted,
) error {
	msgJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = time.Second

	publish := func() error {
		return p.client.Publish(ctx, channel, msgJSON).Err()
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(b, publishAttempts-1), ctx)
	if err := backoff.Retry(publish, policy); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	return nil
}

// Subscribe 订阅 Redis 频道
func (p *PubSub) Subscribe(ctx context.Context, channel string) *redis.PubSub {
	return p.client.Subscribe(ctx, channel)
}

// Close 关闭 Redis 连接
func (p *PubSub) Close() error {
	return p.client.Close()
}
