package adapters

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// LRUCache は expirable.LRU を ImageCacher として扱うアダプターです。
// 有効期限はキャッシュ全体で共通のため Set の d は使いません。
type LRUCache struct {
	lru *expirable.LRU[string, any]
}

// NewLRUCache は最大 size 件、有効期限 ttl のキャッシュを作成します。
func NewLRUCache(size int, ttl time.Duration) *LRUCache {
	return &LRUCache{lru: expirable.NewLRU[string, any](size, nil, ttl)}
}

// Get は key の値を返します。
func (c *LRUCache) Get(key string) (any, bool) {
	return c.lru.Get(key)
}

// Set は key に value を保存します。
func (c *LRUCache) Set(key string, value any, _ time.Duration) {
	c.lru.Add(key, value)
}

var _ ImageCacher = (*LRUCache)(nil)
