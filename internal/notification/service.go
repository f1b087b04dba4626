package notification

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/fitcoach/coachapi/internal/apperr"
	"github.com/fitcoach/coachapi/internal/eventbus"
	"github.com/fitcoach/coachapi/internal/push"
	"github.com/fitcoach/coachapi/internal/store"
	"github.com/fitcoach/coachapi/pkg/auth"
	"github.com/fitcoach/coachapi/pkg/event"
	"github.com/fitcoach/coachapi/pkg/metrics"
)

const (
	// MessageType はプッシュ通知のデータに付与する種別。
	MessageType = "coach_notification"

	// NoteResolveFailed は配信対象の解決に失敗したことを表す注記。
	NoteResolveFailed = "audience resolution failed"
	// NoteDispatchFailed は配信処理が異常終了したことを表す注記。
	NoteDispatchFailed = "dispatch failed"
)

// Dispatcher はトークン群への一括送信を行う。*push.Dispatcherが満たす。
type Dispatcher interface {
	SendAll(ctx context.Context, tokens []string, content push.Content) push.Result
}

// ContentConfig はプッシュ通知の表示内容の設定。
type ContentConfig struct {
	// Title は全通知に共通の送信者タイトル。
	Title string
	// DefaultBody は本文が無い通知に使う文言。
	DefaultBody string
}

// CreateRequest は通知作成の入力。
type CreateRequest struct {
	Text             string
	StoredImageRef   string
	ExternalImageURL string
	Mode             string
	TargetUserID     *int64
}

// CreateResult は通知作成の結果。Pushは参考情報で、作成の成否には影響しない。
type CreateResult struct {
	NotificationID int64
	Record         Record
	Push           push.Result
}

// Service は通知の作成と一覧を扱う。
type Service struct {
	store      Store
	roster     Roster
	resolver   *Resolver
	dispatcher Dispatcher
	publisher  eventbus.Publisher
	content    ContentConfig
	log        *slog.Logger
}

// NewService は新しいServiceを生成する。publisherがnilの場合はイベントを発行しない。
func NewService(st Store, roster Roster, dispatcher Dispatcher, publisher eventbus.Publisher, content ContentConfig, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:      st,
		roster:     roster,
		resolver:   NewResolver(roster),
		dispatcher: dispatcher,
		publisher:  publisher,
		content:    content,
		log:        log,
	}
}

// Create は通知を検証・保存し、送信時点の配信対象へプッシュ送信する。
//
// 検証はコーチ権限、配信対象の種類、specificの宛先、内容の有無の順に行い、
// 失敗した時点で副作用なしにエラーを返す。保存に成功した後は配信の失敗や
// パニックがあってもエラーを返さず、結果はCreateResult.Pushに集計される。
func (s *Service) Create(ctx context.Context, id auth.Identity, req CreateRequest) (*CreateResult, error) {
	if !id.IsCoach() {
		return nil, apperr.Forbidden("coach authorization required")
	}

	targeting, err := ParseTargeting(req.Mode, req.TargetUserID)
	if err != nil {
		return nil, err
	}
	if t, ok := targeting.(Specific); ok {
		if _, err := s.roster.GetUserByID(ctx, t.UserID); err != nil {
			if store.IsNotFound(err) {
				return nil, apperr.NotFound("target user not found")
			}
			return nil, apperr.Storage("failed to look up target user", err)
		}
	}

	draft := Draft{
		Text:      strings.TrimSpace(req.Text),
		ImagePath: strings.TrimSpace(req.StoredImageRef),
		ImageURL:  strings.TrimSpace(req.ExternalImageURL),
		Targeting: targeting,
	}
	if draft.Text == "" && draft.ImagePath == "" && draft.ImageURL == "" {
		return nil, apperr.Validation("notification must have text, an image or an image URL")
	}
	if draft.ImageURL != "" && !isHTTPURL(draft.ImageURL) {
		return nil, apperr.Validation("image_url must be an http or https URL")
	}

	rec, err := s.store.Save(ctx, draft)
	if err != nil {
		return nil, apperr.Storage("failed to save notification", err)
	}
	metrics.RecordNotificationCreated(string(targeting.Mode()))

	result := s.deliver(ctx, rec)
	s.log.InfoContext(ctx, "通知を作成",
		slog.Int64("notification_id", rec.ID),
		slog.String("target_type", string(targeting.Mode())),
		slog.Int("push_success", result.Success),
		slog.Int("push_failure", result.Failure),
		slog.Int("push_total", result.Total),
		slog.String("push_note", result.Note),
	)

	eventbus.Emit(ctx, s.publisher, s.log, event.NotificationRef(rec.ID), event.TypeNotificationCreated,
		event.NotificationCreatedData{
			TargetType:   string(targeting.Mode()),
			TargetUserID: rec.TargetUserID(),
			Success:      result.Success,
			Failure:      result.Failure,
			Total:        result.Total,
		})

	return &CreateResult{NotificationID: rec.ID, Record: rec, Push: result}, nil
}

// deliver は配信対象を解決して送信する。ここで起きた失敗は呼び出し元へ伝播させない。
func (s *Service) deliver(ctx context.Context, rec Record) (result push.Result) {
	defer func() {
		if r := recover(); r != nil {
			s.log.ErrorContext(ctx, "通知の配信中にパニックが発生",
				slog.Int64("notification_id", rec.ID),
				slog.Any("panic", r),
			)
			result = push.Result{Note: NoteDispatchFailed}
		}
	}()

	tokens, err := s.resolver.Resolve(ctx, rec.Targeting)
	if err != nil {
		s.log.ErrorContext(ctx, "配信対象の解決に失敗",
			slog.Int64("notification_id", rec.ID),
			slog.Any("error", err),
		)
		return push.Result{Note: NoteResolveFailed}
	}
	return s.dispatcher.SendAll(ctx, tokens, s.messageContent(rec))
}

func (s *Service) messageContent(rec Record) push.Content {
	body := rec.Text
	if body == "" {
		body = s.content.DefaultBody
	}
	data := map[string]string{
		"notification_id": strconv.FormatInt(rec.ID, 10),
		"type":            MessageType,
	}
	if rec.ImageURL != "" {
		data["image_url"] = rec.ImageURL
	}
	return push.Content{
		Title:    s.content.Title,
		Body:     body,
		ImageURL: rec.ImageURL,
		Data:     data,
	}
}

// ListAll はコーチ向けに全通知を新しい順に返す。
func (s *Service) ListAll(ctx context.Context, id auth.Identity) ([]Record, error) {
	if !id.IsCoach() {
		return nil, apperr.Forbidden("coach authorization required")
	}
	records, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, apperr.Storage("failed to list notifications", err)
	}
	return records, nil
}

// Feed はユーザーが受け取る通知を新しい順に返す。
// 全員向け、有料会員であればpaid向け、本人宛てのspecificを含む。
func (s *Service) Feed(ctx context.Context, id auth.Identity) ([]Record, error) {
	userID, ok := id.UserID()
	if !ok {
		return nil, apperr.Forbidden("user authorization required")
	}
	u, err := s.roster.GetUserByID(ctx, userID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Storage("failed to load user", err)
	}
	records, err := s.store.ListForUser(ctx, u.ID, u.IsPaid != 0)
	if err != nil {
		return nil, apperr.Storage("failed to list notifications", err)
	}
	return records, nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
