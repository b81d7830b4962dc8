package lock

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

var ErrLockFailed = errors.New("获取分布式锁失败")

// DistributedLock 基于 Redis 的分布式锁
//
// 加锁：SET key value NX EX —— key 不存在才能设置，自带过期防死锁。
// 释放：Lua 脚本里先校验 value 再删除，防止误删别人的锁
// （A 的锁过期后被 B 拿到，A 完工时不能把 B 的锁删掉）。
type DistributedLock struct {
	client     *redis.Client
	key        string
	value      string // 持有者标识，释放时校验
	expiration time.Duration
}

func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TryLock 尝试获取锁（非阻塞）
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
}

// Lock 阻塞式获取锁（带重试）
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return ErrLockFailed
}

// Unlock 释放锁，只删除自己持有的
func (l *DistributedLock) Unlock(ctx context.Context) error {
	script := `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`
	_, err := l.client.Eval(ctx, script, []string{l.key}, l.value).Result()
	return err
}

// NewReconcileLock 对账任务锁
// 多实例部署时保证同一轮对账只有一个实例在跑
func NewReconcileLock(client *redis.Client, holder string, expiration time.Duration) *DistributedLock {
	return NewDistributedLock(client, "job:lock:ledger-reconcile", holder, expiration)
}
