package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"

	"github.com/fitcoach/coachapi/internal/apperr"
	"github.com/fitcoach/coachapi/internal/notification"
	"github.com/fitcoach/coachapi/internal/store"
	"github.com/fitcoach/coachapi/internal/upload"
)

// respondError はサービス層のエラーをステータスコードとJSONに変換して返す。
// 内部エラーの詳細はクライアントに返さず、ログとSentryにのみ記録する。
func (s *Server) respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := kind.HTTPStatus()

	message := "Internal server error"
	var appErr *apperr.Error
	if errors.As(err, &appErr) && status < http.StatusInternalServerError {
		message = appErr.Message
	}

	if status >= http.StatusInternalServerError {
		s.log.ErrorContext(c.Request.Context(), "リクエストの処理に失敗",
			slog.String("kind", kind.String()),
			slog.String("path", c.FullPath()),
			slog.Any("error", err),
		)
		if hub := sentry.GetHubFromContext(c.Request.Context()); hub != nil {
			hub.CaptureException(err)
		} else {
			sentry.CaptureException(err)
		}
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// badRequest は400を返す。
func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": message})
}

// paramID はパスパラメーターを正の整数として読み取る。
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

// baseURL は画像URLの組み立てに使う公開URLを返す。
func (s *Server) baseURL(c *gin.Context) string {
	if s.opts.BaseURL != "" {
		return strings.TrimRight(s.opts.BaseURL, "/")
	}
	scheme := "http"
	if c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// userResponse はユーザーのJSON表現。パスワードハッシュとデバイストークンは含めない。
type userResponse struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Phone          string    `json:"phone"`
	IsPaid         bool      `json:"is_paid"`
	HasDeviceToken bool      `json:"has_device_token"`
	CreatedAt      time.Time `json:"created_at"`
}

func toUserResponse(u store.User) userResponse {
	return userResponse{
		ID:             u.ID,
		Name:           u.Name,
		Phone:          u.Phone,
		IsPaid:         u.IsPaid != 0,
		HasDeviceToken: u.DeviceToken.Valid && u.DeviceToken.String != "",
		CreatedAt:      u.CreatedAt,
	}
}

func toUserResponses(users []store.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return out
}

// notificationResponse は通知のJSON表現。
type notificationResponse struct {
	ID           int64     `json:"id"`
	Text         *string   `json:"text"`
	Image        *string   `json:"image"`
	ImageURL     *string   `json:"image_url"`
	TargetType   string    `json:"target_type"`
	TargetUserID *int64    `json:"target_user_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func (s *Server) toNotificationResponse(c *gin.Context, r notification.Record) notificationResponse {
	return notificationResponse{
		ID:           r.ID,
		Text:         optional(r.Text),
		Image:        optional(upload.URL(s.baseURL(c), r.ImagePath)),
		ImageURL:     optional(r.ImageURL),
		TargetType:   string(r.Targeting.Mode()),
		TargetUserID: r.TargetUserID(),
		CreatedAt:    r.CreatedAt,
	}
}

func (s *Server) toNotificationResponses(c *gin.Context, records []notification.Record) []notificationResponse {
	out := make([]notificationResponse, 0, len(records))
	for _, r := range records {
		out = append(out, s.toNotificationResponse(c, r))
	}
	return out
}

// mealResponse は食事プランのJSON表現。
type mealResponse struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Image       *string   `json:"image"`
	Link        *string   `json:"link"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s *Server) toMealResponse(c *gin.Context, m store.Meal) mealResponse {
	return mealResponse{
		ID:          m.ID,
		Title:       m.Title,
		Description: optional(m.Description.String),
		Image:       optional(upload.URL(s.baseURL(c), m.ImagePath.String)),
		Link:        optional(m.Link.String),
		Category:    m.Category,
		CreatedAt:   m.CreatedAt,
	}
}

func (s *Server) toMealResponses(c *gin.Context, meals []store.Meal) []mealResponse {
	out := make([]mealResponse, 0, len(meals))
	for _, m := range meals {
		out = append(out, s.toMealResponse(c, m))
	}
	return out
}

// optional は空文字列をJSONのnullにする。
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
