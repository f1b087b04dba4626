package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// privacyPolicy はアプリストア審査用のプライバシーポリシー。
const privacyPolicy = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Privacy Policy</title></head>
<body>
<h1>Privacy Policy</h1>
<p>We collect your name, phone number and a push notification token to provide coaching content and notifications.</p>
<p>Passwords are stored only as one-way hashes. Data is not shared with third parties except the push notification provider.</p>
<p>You may ask your coach to delete your account at any time; notifications addressed to you are deleted with it.</p>
</body>
</html>
`

// handleServeUpload はアップロード済みの画像を返す。
func (s *Server) handleServeUpload() gin.HandlerFunc {
	return func(c *gin.Context) {
		path, err := s.uploads.Path(c.Param("filename"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
			return
		}
		c.File(path)
	}
}

// handleHealth は依存コンポーネントの稼働状況を返す。異常があれば503。
func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.health == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "coachapi"})
			return
		}
		report := s.health.Check(c.Request.Context())
		status, code := "ok", http.StatusOK
		if !report.Healthy {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":     status,
			"service":    "coachapi",
			"components": report.Components,
		})
	}
}

// handlePrivacy はプライバシーポリシーを返す。
func (s *Server) handlePrivacy() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(privacyPolicy))
	}
}

// handleIndex はAPIの概要を返す。
func (s *Server) handleIndex() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "coachapi",
			"endpoints": gin.H{
				"auth":          "/api/auth",
				"coach":         "/api/coach",
				"notifications": "/api/notifications",
				"meals":         "/api/meals",
				"health":        "/health",
			},
		})
	}
}
