package middleware

import (
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS はgin-contrib/corsでクロスオリジンリクエストを許可するミドルウェアを返す。
// "*" を含む場合は全オリジンを許可する。空の場合はCORSヘッダーを一切付けない。
// モバイルアプリのWebViewは capacitor:// などのスキームを使うため、
// 明示リストは AllowOriginFunc で照合してスキーム検証を避ける。
func CORS(allowedOrigins []string) gin.HandlerFunc {
	if len(allowedOrigins) == 0 {
		return func(c *gin.Context) { c.Next() }
	}

	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		MaxAge:        24 * time.Hour,
	}
	if slices.Contains(allowedOrigins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		allowed := slices.Clone(allowedOrigins)
		cfg.AllowOriginFunc = func(origin string) bool {
			return slices.Contains(allowed, origin)
		}
	}
	return cors.New(cfg)
}
