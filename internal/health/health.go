// Package health は依存コンポーネントの稼働状況をまとめて確認する。
package health

import (
	"context"
	"database/sql"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// StatusOK は正常なコンポーネントの状態。
const StatusOK = "ok"

// Checkable は稼働状況を報告できるコンポーネント。
type Checkable interface {
	HealthCheck(ctx context.Context) error
}

// CheckFunc は関数をCheckableとして扱う。
type CheckFunc func(ctx context.Context) error

// HealthCheck はf(ctx)を呼ぶ。
func (f CheckFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

// Report は確認結果。
type Report struct {
	Healthy    bool              `json:"healthy"`
	Components map[string]string `json:"components"`
}

// Checker は登録されたコンポーネントを並行して確認する。
type Checker struct {
	mu      sync.RWMutex
	checks  map[string]Checkable
	timeout time.Duration
	log     *slog.Logger
}

// NewChecker は新しいCheckerを生成する。timeoutは各確認の上限時間。
func NewChecker(timeout time.Duration, log *slog.Logger) *Checker {
	if log == nil {
		log = slog.Default()
	}
	return &Checker{checks: make(map[string]Checkable), timeout: timeout, log: log}
}

// Add はコンポーネントを登録する。同名の登録は上書きする。
func (c *Checker) Add(name string, check Checkable) {
	if name == "" || check == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Names は登録済みのコンポーネント名を返す。
func (c *Checker) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check は全コンポーネントを確認する。1つでも失敗すればHealthyはfalse。
func (c *Checker) Check(ctx context.Context) Report {
	c.mu.RLock()
	checks := make(map[string]Checkable, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		report = Report{Healthy: true, Components: make(map[string]string, len(checks))}
	)
	for name, check := range checks {
		wg.Go(func() {
			status := c.run(ctx, name, check)
			mu.Lock()
			defer mu.Unlock()
			report.Components[name] = status
			if status != StatusOK {
				report.Healthy = false
			}
		})
	}
	wg.Wait()
	return report
}

func (c *Checker) run(ctx context.Context, name string, check Checkable) string {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if err := check.HealthCheck(ctx); err != nil {
		c.log.ErrorContext(ctx, "ヘルスチェックに失敗",
			slog.String("component", name),
			slog.Any("error", err),
		)
		return err.Error()
	}
	return StatusOK
}

// DB はデータベースへの疎通を確認する。
func DB(db *sql.DB) Checkable {
	return CheckFunc(func(ctx context.Context) error {
		if db == nil {
			return sql.ErrConnDone
		}
		return db.PingContext(ctx)
	})
}
