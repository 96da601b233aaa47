package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"iap-gateway/pkg/logging"

	"github.com/redis/go-redis/v9"
)

// ReplayGuard 记录已处理的通知，防止平台重复投递导致重复分发
type ReplayGuard interface {
	// Seen 返回 true 表示 key 已处理过；否则记录 key 并返回 false
	Seen(ctx context.Context, key string) (bool, error)
	// Forget 删除记录，分发失败后允许平台重试
	Forget(ctx context.Context, key string) error
}

// MemoryReplayGuard 单实例部署使用的内存重放防护
type MemoryReplayGuard struct {
	processed       map[string]time.Time
	mutex           sync.RWMutex
	cleanupInterval time.Duration
	ttl             time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
}

// NewMemoryReplayGuard 创建内存重放防护实例
func NewMemoryReplayGuard(ttl time.Duration) *MemoryReplayGuard {
	g := &MemoryReplayGuard{
		processed:       make(map[string]time.Time),
		cleanupInterval: time.Hour, // 每小时清理一次
		ttl:             ttl,
		stopCleanup:     make(chan struct{}),
	}

	// 启动清理协程
	go g.startCleanupRoutine()

	return g
}

func (g *MemoryReplayGuard) Seen(ctx context.Context, key string) (bool, error) {
	id := hashKey(key)

	g.mutex.Lock()
	defer g.mutex.Unlock()

	// 过期记录视为未处理
	if processedTime, exists := g.processed[id]; exists && time.Since(processedTime) <= g.ttl {
		logging.Infof("Replay detected - key: %s, previously processed at: %v", key, processedTime)
		return true, nil
	}

	g.processed[id] = time.Now()
	return false, nil
}

func (g *MemoryReplayGuard) Forget(ctx context.Context, key string) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	delete(g.processed, hashKey(key))
	return nil
}

// Len 返回当前记录数
func (g *MemoryReplayGuard) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	return len(g.processed)
}

// startCleanupRoutine 启动清理协程
func (g *MemoryReplayGuard) startCleanupRoutine() {
	ticker := time.NewTicker(g.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.cleanup()
		case <-g.stopCleanup:
			return
		}
	}
}

// cleanup 清理过期的通知记录
func (g *MemoryReplayGuard) cleanup() {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	now := time.Now()
	initialCount := len(g.processed)

	for id, processedTime := range g.processed {
		if now.Sub(processedTime) > g.ttl {
			delete(g.processed, id)
		}
	}

	if cleaned := initialCount - len(g.processed); cleaned > 0 {
		logging.Infof("Replay protection cleanup: removed %d expired notifications, remaining: %d", cleaned, len(g.processed))
	}
}

// Stop 停止清理协程
func (g *MemoryReplayGuard) Stop() {
	g.stopOnce.Do(func() { close(g.stopCleanup) })
}

// RedisReplayGuard 多实例部署共享的重放防护
type RedisReplayGuard struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisReplayGuard(client *redis.Client, ttl time.Duration) *RedisReplayGuard {
	return &RedisReplayGuard{client: client, ttl: ttl, prefix: "iap:replay:"}
}

func (g *RedisReplayGuard) Seen(ctx context.Context, key string) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.prefix+hashKey(key), time.Now().Unix(), g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record notification: %w", err)
	}
	if !ok {
		logging.Infof("Replay detected - key: %s", key)
	}
	return !ok, nil
}

func (g *RedisReplayGuard) Forget(ctx context.Context, key string) error {
	if err := g.client.Del(ctx, g.prefix+hashKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to forget notification: %w", err)
	}
	return nil
}

// hashKey 使用 SHA256 生成固定长度的标识符
func hashKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}
