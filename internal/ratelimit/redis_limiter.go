package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// keyPrefix はRedis上のキーの接頭辞。
const keyPrefix = "coachapi:ratelimit:"

// RedisLimiter はRedisのソート済みセットで件数を数えるLimiter。
type RedisLimiter struct {
	client redis.UniversalClient
}

var _ Limiter = (*RedisLimiter)(nil)

// NewRedisLimiter は新しいRedisLimiterを生成する。
func NewRedisLimiter(client redis.UniversalClient) *RedisLimiter {
	return &RedisLimiter{client: client}
}

// Check はwindow内のリクエスト数がlimit以下かを判定する。
// 拒否されたリクエストは件数に含めない。
func (l *RedisLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	if l.client == nil {
		return nil, errors.New("redisクライアントが設定されていません")
	}
	now := time.Now()
	windowStart := now.Add(-window)
	if limit <= 0 {
		return &Result{ResetAt: now.Add(window)}, nil
	}

	redisKey := keyPrefix + key
	member := uuid.NewString()

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", fmt.Sprintf("(%d", windowStart.UnixMicro()))
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixMicro()), Member: member})
	countCmd := pipe.ZCard(ctx, redisKey)
	oldestCmd := pipe.ZRangeWithScores(ctx, redisKey, 0, 0)
	pipe.Expire(ctx, redisKey, window*2)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("レート制限の更新に失敗: %w", err)
	}

	count := int(countCmd.Val())
	resetAt := now.Add(window)
	if oldest := oldestCmd.Val(); len(oldest) > 0 {
		resetAt = time.UnixMicro(int64(oldest[0].Score)).Add(window)
	}

	if count > limit {
		if err := l.client.ZRem(ctx, redisKey, member).Err(); err != nil {
			return nil, fmt.Errorf("レート制限の取り消しに失敗: %w", err)
		}
		return &Result{Allowed: false, Remaining: 0, ResetAt: resetAt}, nil
	}
	return &Result{Allowed: true, Remaining: limit - count, ResetAt: resetAt}, nil
}

// HealthCheck はRedisへの疎通を確認する。
func (l *RedisLimiter) HealthCheck(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}
