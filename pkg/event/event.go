package event

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fitcoach/coachapi/pkg/logger"
)

// Ref はイベントの対象エンティティを指す。
type Ref struct {
	Type AggregateType
	ID   int64
}

// UserRef はユーザーを指すRefを返す。
func UserRef(id int64) Ref { return Ref{Type: AggregateTypeUser, ID: id} }

// NotificationRef は通知を指すRefを返す。
func NotificationRef(id int64) Ref { return Ref{Type: AggregateTypeNotification, ID: id} }

// MealRef は食事プランを指すRefを返す。
func MealRef(id int64) Ref { return Ref{Type: AggregateTypeMeal, ID: id} }

// Event はブローカーへ発行される不変のイベントレコード。
type Event struct {
	ID            string        `json:"id"`
	AggregateID   string        `json:"aggregate_id"`
	AggregateType AggregateType `json:"aggregate_type"`
	EventType     Type          `json:"event_type"`
	// CorrelationID は発生元リクエストの相関ID。リクエスト外で生成された場合は空。
	CorrelationID string          `json:"correlation_id,omitempty"`
	Data          json.RawMessage `json:"data"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// New はrefに対するイベントを生成する。dataはJSONにシリアライズされる。
// ctxに相関IDがあればイベントに引き継ぐ。
func New(ctx context.Context, ref Ref, eventType Type, data any) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("%sのデータをシリアライズできません: %w", eventType, err)
	}
	return &Event{
		ID:            uuid.NewString(),
		AggregateID:   strconv.FormatInt(ref.ID, 10),
		AggregateType: ref.Type,
		EventType:     eventType,
		CorrelationID: logger.CorrelationIDFromContext(ctx),
		Data:          raw,
		OccurredAt:    time.Now().UTC(),
	}, nil
}

// Subject はprefix配下の発行先サブジェクトを返す。
// NotificationCreated は "<prefix>.notification.created" になる。
func (e *Event) Subject(prefix string) string {
	aggregate := string(e.AggregateType)
	action := strings.TrimPrefix(string(e.EventType), aggregate)
	parts := []string{strings.ToLower(aggregate), strings.ToLower(action)}
	if prefix != "" {
		parts = append([]string{prefix}, parts...)
	}
	return strings.Join(parts, ".")
}

// Encode はイベント全体をワイヤー形式(JSON)にする。
func (e *Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Parse はEncodeの出力からイベントを復元する。
func Parse(b []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, fmt.Errorf("イベントを解析できません: %w", err)
	}
	if e.EventType == "" {
		return nil, fmt.Errorf("イベント種別がありません")
	}
	return &e, nil
}

// Decode はイベントのデータ部をTとして取り出す。
func Decode[T any](e *Event) (T, error) {
	var data T
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return data, fmt.Errorf("%sのデータを解析できません: %w", e.EventType, err)
	}
	return data, nil
}
