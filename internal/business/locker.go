package business

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrLeaseLost 令牌已失效
var ErrLeaseLost = errors.New("calculation lease lost")

// LocalLocker 进程内计算锁，未配置 Redis 时使用（CLI、单实例、测试）
type LocalLocker struct {
	mu    sync.Mutex
	token string
}

// NewLocalLocker 创建进程内锁
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{}
}

// TryAcquire 非阻塞加锁
func (l *LocalLocker) TryAcquire(_ context.Context) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.token != "" {
		return "", false, nil
	}
	l.token = uuid.NewString()
	return l.token, true, nil
}

// Refresh 进程内锁无租约，只校验令牌
func (l *LocalLocker) Refresh(_ context.Context, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if token == "" || token != l.token {
		return ErrLeaseLost
	}
	return nil
}

// Release 释放锁
func (l *LocalLocker) Release(_ context.Context, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if token == "" || token != l.token {
		return ErrLeaseLost
	}
	l.token = ""
	return nil
}
