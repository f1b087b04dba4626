package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fitcoach/coachapi/pkg/metrics"
)

// limitBody はリクエストボディの大きさをMaxUploadBytesに制限する。
func (s *Server) limitBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.opts.MaxUploadBytes > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUploadBytes)
		}
		c.Next()
	}
}

// rateLimit はクライアントIPごとにリクエスト数を制限するミドルウェアを返す。
// バックエンドの障害時はリクエストを通す。
func (s *Server) rateLimit(scope string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil || limit <= 0 {
			c.Next()
			return
		}

		res, err := s.limiter.Check(c.Request.Context(), scope+":"+c.ClientIP(), limit, window)
		if err != nil {
			s.log.WarnContext(c.Request.Context(), "レート制限の判定に失敗したため許可します",
				slog.String("scope", scope),
				slog.Any("error", err),
			)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			metrics.RecordRateLimited(scope)
			retryAfter := max(int(time.Until(res.ResetAt).Seconds()+0.5), 1)
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, please try again later"})
			return
		}
		c.Next()
	}
}

// formError はmultipartフォームの読み取りエラーを返す。
func formError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large"})
		return
	}
	badRequest(c, "invalid multipart form")
}
