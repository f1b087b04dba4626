package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fitcoach/coachapi/internal/user"
	"github.com/fitcoach/coachapi/pkg/middleware"
)

// registerRequest はユーザー登録リクエストのJSON構造。
type registerRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// loginRequest はユーザーログインリクエストのJSON構造。
type loginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// coachLoginRequest はコーチログインリクエストのJSON構造。
type coachLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// deviceTokenRequest はデバイストークン登録リクエストのJSON構造。
type deviceTokenRequest struct {
	FCMToken string `json:"fcm_token"`
}

// handleRegister はユーザーを登録する。
func (s *Server) handleRegister() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "No data provided")
			return
		}

		u, err := s.users.Register(c.Request.Context(), user.RegisterRequest{
			Name:     req.Name,
			Phone:    req.Phone,
			Password: req.Password,
		})
		if err != nil {
			s.respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"message": "User registered successfully",
			"user_id": u.ID,
			"user":    toUserResponse(u),
		})
	}
}

// handleLogin はユーザーのログインを行いトークンを返す。
func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "No data provided")
			return
		}

		sess, err := s.users.Login(c.Request.Context(), req.Phone, req.Password)
		if err != nil {
			s.respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "Login successful",
			"token":   sess.Token,
			"user":    toUserResponse(sess.User),
		})
	}
}

// handleMe は認証中のユーザー情報を返す。
func (s *Server) handleMe() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := middleware.GetIdentity(c)
		u, err := s.users.Me(c.Request.Context(), id)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": toUserResponse(u)})
	}
}

// handleSaveDeviceToken はプッシュ通知用のデバイストークンを保存する。
func (s *Server) handleSaveDeviceToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req deviceTokenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "fcm_token is required")
			return
		}

		id, _ := middleware.GetIdentity(c)
		if err := s.users.SaveDeviceToken(c.Request.Context(), id, req.FCMToken); err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Device token saved successfully"})
	}
}

// handleCoachLogin はコーチのログインを行いトークンを返す。
func (s *Server) handleCoachLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req coachLoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "No data provided")
			return
		}

		token, err := s.users.CoachLogin(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			s.respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "Coach login successful",
			"token":   token,
			"coach":   gin.H{"username": req.Username},
		})
	}
}
