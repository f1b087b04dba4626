package api

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fitcoach/coachapi/internal/apperr"
	"github.com/fitcoach/coachapi/internal/notification"
	"github.com/fitcoach/coachapi/pkg/middleware"
)

// createNotificationRequest は通知作成リクエストのJSON構造。
type createNotificationRequest struct {
	Text         string `json:"text"`
	ImageURL     string `json:"image_url"`
	TargetType   string `json:"target_type"`
	TargetUserID *int64 `json:"target_user_id"`
}

// setPaidRequest は有料会員フラグ更新リクエストのJSON構造。
type setPaidRequest struct {
	IsPaid *bool `json:"is_paid" binding:"required"`
}

// handleCreateNotification は通知を作成して配信する。
// JSONとmultipart（image フィールドで画像を添付）の両方を受け付ける。
func (s *Server) handleCreateNotification() gin.HandlerFunc {
	return func(c *gin.Context) {
		req, image, ok := readNotificationRequest(c)
		if !ok {
			return
		}
		if image != nil {
			ref, err := s.uploads.Save(image)
			if err != nil {
				s.respondError(c, apperr.Wrap(apperr.KindInternal, "failed to store image", err))
				return
			}
			req.StoredImageRef = ref
		}

		id, _ := middleware.GetIdentity(c)
		res, err := s.notifs.Create(c.Request.Context(), id, req)
		if err != nil {
			s.discardUpload(c, req.StoredImageRef)
			s.respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"message":         "Notification created successfully",
			"notification_id": res.NotificationID,
			"notification":    s.toNotificationResponse(c, res.Record),
			"push_result":     res.Push,
		})
	}
}

// readNotificationRequest はリクエストから通知作成の入力を読み取る。
// target_typeが省略された場合はallとして扱う。
func readNotificationRequest(c *gin.Context) (notification.CreateRequest, *multipart.FileHeader, bool) {
	var req notification.CreateRequest

	if isMultipart(c) {
		if _, err := c.MultipartForm(); err != nil {
			formError(c, err)
			return req, nil, false
		}
		req.Text = c.PostForm("text")
		req.ExternalImageURL = c.PostForm("image_url")
		req.Mode = c.PostForm("target_type")
		if raw := strings.TrimSpace(c.PostForm("target_user_id")); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				badRequest(c, "target_user_id must be an integer")
				return req, nil, false
			}
			req.TargetUserID = &id
		}

		image, err := c.FormFile("image")
		if err != nil && !errors.Is(err, http.ErrMissingFile) {
			formError(c, err)
			return req, nil, false
		}
		if req.Mode == "" {
			req.Mode = string(notification.ModeAll)
		}
		return req, image, true
	}

	var body createNotificationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body")
		return req, nil, false
	}
	req.Text = body.Text
	req.ExternalImageURL = body.ImageURL
	req.Mode = body.TargetType
	req.TargetUserID = body.TargetUserID
	if req.Mode == "" {
		req.Mode = string(notification.ModeAll)
	}
	return req, nil, true
}

// discardUpload は作成に失敗したリクエストで保存した画像を削除する。
func (s *Server) discardUpload(c *gin.Context, ref string) {
	if ref == "" {
		return
	}
	if err := s.uploads.Remove(ref); err != nil {
		s.log.WarnContext(c.Request.Context(), "不要になった画像の削除に失敗",
			slog.String("file", ref),
			slog.Any("error", err),
		)
	}
}

// handleListNotifications はコーチ向けに全通知を返す。
func (s *Server) handleListNotifications() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := middleware.GetIdentity(c)
		records, err := s.notifs.ListAll(c.Request.Context(), id)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"notifications": s.toNotificationResponses(c, records),
			"total":         len(records),
		})
	}
}

// handleFeed はユーザーが受け取る通知を返す。
func (s *Server) handleFeed() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := middleware.GetIdentity(c)
		records, err := s.notifs.Feed(c.Request.Context(), id)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"notifications": s.toNotificationResponses(c, records),
			"total":         len(records),
		})
	}
}

// handleListUsers は全ユーザーを返す。
func (s *Server) handleListUsers() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := middleware.GetIdentity(c)
		users, err := s.users.List(c.Request.Context(), id)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"users": toUserResponses(users),
			"total": len(users),
		})
	}
}

// handleSetPaid はユーザーの有料会員フラグを更新する。
func (s *Server) handleSetPaid() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req setPaidRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "is_paid field is required")
			return
		}

		id, _ := middleware.GetIdentity(c)
		u, err := s.users.SetPaid(c.Request.Context(), id, userID, *req.IsPaid)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "User paid status updated",
			"user":    toUserResponse(u),
		})
	}
}

// handleDeleteUser はユーザーと宛先の通知を削除する。
func (s *Server) handleDeleteUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := paramID(c, "id")
		if !ok {
			return
		}

		id, _ := middleware.GetIdentity(c)
		removed, err := s.users.Delete(c.Request.Context(), id, userID)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message":               "User deleted successfully",
			"removed_notifications": removed,
		})
	}
}
