package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter はプロセス内で件数を数えるLimiter。
type MemoryLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	now      func() time.Time
}

var _ Limiter = (*MemoryLimiter)(nil)

// NewMemoryLimiter は新しいMemoryLimiterを生成する。
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		requests: make(map[string][]time.Time),
		now:      time.Now,
	}
}

// Check はwindow内のリクエスト数がlimit未満であれば許可して記録する。
func (m *MemoryLimiter) Check(_ context.Context, key string, limit int, window time.Duration) (*Result, error) {
	now := m.now()
	windowStart := now.Add(-window)

	m.mu.Lock()
	defer m.mu.Unlock()

	reqs := keepRecent(m.requests[key], windowStart)
	allowed := len(reqs) < limit
	if allowed {
		reqs = append(reqs, now)
	}
	m.requests[key] = reqs

	resetAt := now.Add(window)
	if len(reqs) > 0 {
		resetAt = reqs[0].Add(window)
	}
	return &Result{
		Allowed:   allowed,
		Remaining: max(limit-len(reqs), 0),
		ResetAt:   resetAt,
	}, nil
}

// Cleanup はmaxAgeより長くリクエストの無いキーを削除する。
func (m *MemoryLimiter) Cleanup(maxAge time.Duration) {
	cutoff := m.now().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()

	for key, reqs := range m.requests {
		if len(reqs) == 0 || reqs[len(reqs)-1].Before(cutoff) {
			delete(m.requests, key)
		}
	}
}

// RunCleanup はctxが終了するまでintervalごとにCleanupを実行する。
func (m *MemoryLimiter) RunCleanup(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Cleanup(maxAge)
		}
	}
}

// keepRecent はwindowStartより前の記録を取り除く。
func keepRecent(reqs []time.Time, windowStart time.Time) []time.Time {
	i := 0
	for i < len(reqs) && reqs[i].Before(windowStart) {
		i++
	}
	return reqs[i:]
}
