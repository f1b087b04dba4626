package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/fitcoach/coachapi/pkg/logger"
)

// TestRequestLogger は相関IDの付与とアクセスログを検証する。
func TestRequestLogger(t *testing.T) {
	t.Parallel()

	t.Run("相関IDが生成されレスポンスヘッダーとコンテキストに設定されること", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		router := gin.New()
		router.Use(RequestLogger(slog.New(slog.NewJSONHandler(&buf, nil))))
		var ctxID string
		router.GET("/ping", func(c *gin.Context) {
			ctxID = logger.CorrelationIDFromContext(c.Request.Context())
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

		got := w.Header().Get(HeaderRequestID)
		if got == "" {
			t.Fatal("X-Request-IDが設定されていない")
		}
		if ctxID != got {
			t.Errorf("コンテキストの相関ID = %q, want %q", ctxID, got)
		}

		var entry map[string]any
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("ログのパースに失敗: %v", err)
		}
		if entry["status"] != float64(http.StatusOK) {
			t.Errorf("status = %v, want 200", entry["status"])
		}
	})

	t.Run("クライアントの相関IDを引き継ぐこと", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.Use(RequestLogger(slog.New(slog.DiscardHandler)))
		router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(HeaderRequestID, "client-id-1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if got := w.Header().Get(HeaderRequestID); got != "client-id-1" {
			t.Errorf("X-Request-ID = %q, want %q", got, "client-id-1")
		}
	})
}
