// Package push はデバイストークンごとのプッシュ通知送信と結果の集計を行う。
//
// 送信プロバイダーはSenderとして外部から注入する。認証情報が無い場合は
// Senderをnilにしておけば、Dispatcherは送信せずにその旨を結果に記録する。
package push

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/fitcoach/coachapi/pkg/metrics"
)

// 送信しなかった理由として結果に記録する文言。
const (
	NoteNoTokens            = "no device tokens"
	NoteNoValidTokens       = "no valid device tokens"
	NoteProviderUnavailable = "push provider unavailable"
)

// tokenPrefixLen はログに出力するトークン先頭の文字数。
const tokenPrefixLen = 10

// Message は1つのデバイスへ送る通知。
type Message struct {
	Token    string
	Title    string
	Body     string
	ImageURL string
	Data     map[string]string
}

// Sender はプッシュ通知プロバイダー。
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// Content は全デバイス共通の通知内容。
type Content struct {
	Title    string
	Body     string
	ImageURL string
	Data     map[string]string
}

// Result は一括送信の集計結果。
type Result struct {
	Success int    `json:"success"`
	Failure int    `json:"failure"`
	Total   int    `json:"total"`
	Note    string `json:"note,omitempty"`
}

// Options はDispatcherの送信設定。
type Options struct {
	// Concurrency は同時送信数の上限。1未満は1として扱う。
	Concurrency int
	// RatePerSecond は1秒あたりの送信数上限。0以下は無制限。
	RatePerSecond float64
	// SendTimeout は1トークンあたりのタイムアウト。0以下は無制限。
	SendTimeout time.Duration
}

// Dispatcher はトークンごとに独立して通知を送り、成否を数える。
// 1トークンの失敗やパニックは他のトークンの送信に影響しない。
type Dispatcher struct {
	sender      Sender
	limiter     *rate.Limiter
	concurrency int
	sendTimeout time.Duration
	log         *slog.Logger
}

// NewDispatcher は新しいDispatcherを生成する。senderがnilの場合は送信しない。
func NewDispatcher(sender Sender, opts Options, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	var limiter *rate.Limiter
	if opts.RatePerSecond > 0 {
		burst := max(int(opts.RatePerSecond), 1)
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}
	return &Dispatcher{
		sender:      sender,
		limiter:     limiter,
		concurrency: concurrency,
		sendTimeout: opts.SendTimeout,
		log:         log,
	}
}

// Available はプロバイダーが設定されているかを返す。
func (d *Dispatcher) Available() bool {
	return d.sender != nil
}

// SendAll はtokensの各トークンへcontentを送信し、結果を集計する。
// エラーは返さない。送信できなかった理由はResult.Noteに入る。
func (d *Dispatcher) SendAll(ctx context.Context, tokens []string, content Content) Result {
	if len(tokens) == 0 {
		return Result{Note: NoteNoTokens}
	}

	valid := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t != "" {
			valid = append(valid, t)
		}
	}
	if len(valid) == 0 {
		return Result{Note: NoteNoValidTokens}
	}

	if d.sender == nil {
		d.log.WarnContext(ctx, "プッシュ通知プロバイダーが未設定のため送信をスキップします",
			slog.Int("tokens", len(valid)))
		return Result{Note: NoteProviderUnavailable}
	}

	var success, failure atomic.Int64

	// 1件の失敗で他の送信を止めないため、エラーは返さずに数えるだけにする
	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for _, token := range valid {
		g.Go(func() error {
			if err := d.sendOne(ctx, token, content); err != nil {
				failure.Add(1)
				metrics.RecordPush(metrics.PushFailure)
				d.log.WarnContext(ctx, "プッシュ通知の送信に失敗",
					slog.String("token_prefix", TokenPrefix(token)),
					slog.Any("error", err),
				)
				return nil
			}
			success.Add(1)
			metrics.RecordPush(metrics.PushSuccess)
			return nil
		})
	}
	_ = g.Wait()

	return Result{
		Success: int(success.Load()),
		Failure: int(failure.Load()),
		Total:   len(valid),
	}
}

func (d *Dispatcher) sendOne(ctx context.Context, token string, content Content) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("送信中にパニックが発生: %v", r)
		}
	}()

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("送信レートの待機に失敗: %w", err)
		}
	}

	if d.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.sendTimeout)
		defer cancel()
	}

	return d.sender.Send(ctx, &Message{
		Token:    token,
		Title:    content.Title,
		Body:     content.Body,
		ImageURL: content.ImageURL,
		Data:     maps.Clone(content.Data),
	})
}

// TokenPrefix はログ出力用にトークンの先頭だけを返す。
// 短いトークンでも全体は出さず、最大で半分までに留める。
func TokenPrefix(token string) string {
	r := []rune(token)
	n := min(tokenPrefixLen, len(r)/2)
	return string(r[:n]) + "..."
}
