// Package ratelimit はスライディングウィンドウ方式のレート制限を提供する。
//
// Redisが設定されていればRedisのソート済みセットで複数インスタンス間の件数を共有し、
// 未設定またはRedis障害時はプロセス内のメモリで数える。
package ratelimit

import (
	"context"
	"log/slog"
	"time"
)

// Result はレート制限の判定結果。
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter はキーごとのリクエスト数を制限する。
// errはバックエンドの障害を表し、制限超過はResult.Allowedで表す。
type Limiter interface {
	Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}

// FallbackLimiter はprimaryが失敗した場合にfallbackで判定するLimiter。
type FallbackLimiter struct {
	primary  Limiter
	fallback Limiter
	log      *slog.Logger
}

var _ Limiter = (*FallbackLimiter)(nil)

// NewFallbackLimiter は新しいFallbackLimiterを生成する。
func NewFallbackLimiter(primary, fallback Limiter, log *slog.Logger) *FallbackLimiter {
	if log == nil {
		log = slog.Default()
	}
	return &FallbackLimiter{primary: primary, fallback: fallback, log: log}
}

// Check はprimaryで判定し、エラーの場合はfallbackで判定する。
func (l *FallbackLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	res, err := l.primary.Check(ctx, key, limit, window)
	if err == nil {
		return res, nil
	}
	l.log.WarnContext(ctx, "レート制限のバックエンドが利用できないためメモリで判定します",
		slog.String("key", key),
		slog.Any("error", err),
	)
	return l.fallback.Check(ctx, key, limit, window)
}
