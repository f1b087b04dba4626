package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fitcoach/coachapi/pkg/logger"
	"github.com/fitcoach/coachapi/pkg/metrics"
)

// HeaderRequestID は相関IDを受け渡すHTTPヘッダー。
const HeaderRequestID = "X-Request-ID"

// RequestLogger は相関IDを付与し、リクエストごとに1行の構造化ログとメトリクスを記録する。
// クライアントがX-Request-IDを送った場合はその値を引き継ぐ。
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	if log == nil {
		log = slog.Default()
	}
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(HeaderRequestID, requestID)
		c.Request = c.Request.WithContext(logger.WithCorrelationID(c.Request.Context(), requestID))

		c.Next()

		status := c.Writer.Status()
		elapsed := time.Since(start)
		metrics.ObserveHTTPRequest(c.Request.Method, c.FullPath(), status, elapsed)

		level := slog.LevelInfo
		if status >= 500 {
			level = slog.LevelError
		} else if status >= 400 {
			level = slog.LevelWarn
		}
		log.LogAttrs(c.Request.Context(), level, "HTTPリクエスト",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Duration("elapsed", elapsed),
			slog.String("client_ip", c.ClientIP()),
		)
	}
}
