// Package eventbus はドメインイベントをメッセージブローカーへ発行する。
//
// 発行はベストエフォートで、失敗しても呼び出し元の処理は成功として扱う。
package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/fitcoach/coachapi/pkg/event"
)

// Publisher はイベントの発行先。
type Publisher interface {
	Publish(ctx context.Context, ev *event.Event) error
}

// Emit はイベントを生成して発行する。失敗はログに記録するだけで呼び出し元には返さない。
func Emit(ctx context.Context, pub Publisher, log *slog.Logger, ref event.Ref, eventType event.Type, data any) {
	if pub == nil {
		return
	}
	ev, err := event.New(ctx, ref, eventType, data)
	if err != nil {
		log.ErrorContext(ctx, "イベントの生成に失敗", slog.String("event_type", string(eventType)), slog.Any("error", err))
		return
	}
	if err := pub.Publish(ctx, ev); err != nil {
		log.WarnContext(ctx, "イベントの発行に失敗",
			slog.String("event_type", string(eventType)),
			slog.String("aggregate_id", ev.AggregateID),
			slog.Any("error", err),
		)
	}
}

// NopPublisher は何もしないPublisher。ブローカー未設定時に使う。
type NopPublisher struct{}

// Publish は何もせずnilを返す。
func (NopPublisher) Publish(context.Context, *event.Event) error { return nil }

// MemoryPublisher は発行されたイベントをメモリに保持するPublisher。
type MemoryPublisher struct {
	mu     sync.Mutex
	events []*event.Event
}

// Publish はイベントを保持する。
func (m *MemoryPublisher) Publish(_ context.Context, ev *event.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

// Events は保持しているイベントのコピーを返す。
func (m *MemoryPublisher) Events() []*event.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*event.Event(nil), m.events...)
}

// NATSPublisher はNATSへイベントを発行するPublisher。
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

// ConnectNATS はNATSに接続する。再接続はクライアントライブラリに任せる。
func ConnectNATS(url, subjectPrefix string, log *slog.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("coachapi"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATSとの接続が切断されました", slog.Any("error", err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("NATSに再接続しました", slog.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("NATSへの接続に失敗: %w", err)
	}
	return &NATSPublisher{conn: conn, prefix: subjectPrefix}, nil
}

// Publish はイベントをJSONにしてサブジェクトへ発行する。
func (p *NATSPublisher) Publish(_ context.Context, ev *event.Event) error {
	if p.conn == nil || p.conn.IsClosed() {
		return nats.ErrConnectionClosed
	}
	data, err := ev.Encode()
	if err != nil {
		return fmt.Errorf("イベントのシリアライズに失敗: %w", err)
	}
	return p.conn.Publish(ev.Subject(p.prefix), data)
}

// HealthCheck はNATSに接続中かを返す。
func (p *NATSPublisher) HealthCheck(context.Context) error {
	if p.conn == nil || !p.conn.IsConnected() {
		return errors.New("NATSに接続していません")
	}
	return nil
}

// Close は未送信のメッセージを送り切ってから接続を閉じる。
func (p *NATSPublisher) Close() {
	if p.conn == nil {
		return
	}
	_ = p.conn.Drain()
}
