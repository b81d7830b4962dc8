package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ProductCache 商品详情读缓存（cache-aside）
// 详情接口读多写少，短 TTL + 购买时主动失效即可，
// 缓存不可用时静默退化为直查数据库。
type ProductCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewProductCache client 为 nil 时所有操作都是未命中/空操作
func NewProductCache(client *redis.Client, ttl time.Duration) *ProductCache {
	return &ProductCache{client: client, ttl: ttl}
}

func (c *ProductCache) key(productID int64) string {
	return fmt.Sprintf("product:detail:%d", productID)
}

// Get 命中时把缓存 JSON 反序列化进 dest
func (c *ProductCache) Get(ctx context.Context, productID int64, dest interface{}) bool {
	if c == nil || c.client == nil {
		return false
	}
	raw, err := c.client.Get(ctx, c.key(productID)).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

func (c *ProductCache) Set(ctx context.Context, productID int64, value interface{}) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.client.Set(ctx, c.key(productID), raw, c.ttl)
}

// Invalidate 库存变动后删除缓存，下一次读取回源
func (c *ProductCache) Invalidate(ctx context.Context, productID int64) {
	if c == nil || c.client == nil {
		return
	}
	c.client.Del(ctx, c.key(productID))
}
