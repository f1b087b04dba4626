package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

// TestCORS はCORSミドルウェアを検証する。
func TestCORS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		allowed     []string
		method      string
		origin      string
		wantStatus  int
		wantOrigin  string
		wantHandler bool
	}{
		{
			name:        "許可されたオリジンにCORSヘッダーが設定されること",
			allowed:     []string{"http://localhost:3000", "https://app.coach.test"},
			method:      http.MethodGet,
			origin:      "https://app.coach.test",
			wantStatus:  http.StatusOK,
			wantOrigin:  "https://app.coach.test",
			wantHandler: true,
		},
		{
			name:       "許可されていないオリジンは403で拒否されること",
			allowed:    []string{"http://localhost:3000"},
			method:     http.MethodGet,
			origin:     "https://evil.test",
			wantStatus: http.StatusForbidden,
		},
		{
			name:        "明示リストにはカスタムスキームも指定できること",
			allowed:     []string{"capacitor://localhost"},
			method:      http.MethodGet,
			origin:      "capacitor://localhost",
			wantStatus:  http.StatusOK,
			wantOrigin:  "capacitor://localhost",
			wantHandler: true,
		},
		{
			name:        "ワイルドカードでは任意のオリジンが許可されること",
			allowed:     []string{"*"},
			method:      http.MethodGet,
			origin:      "https://anything.test",
			wantStatus:  http.StatusOK,
			wantOrigin:  "*",
			wantHandler: true,
		},
		{
			name:        "Originヘッダーが無い場合はそのまま処理されること",
			allowed:     []string{"*"},
			method:      http.MethodGet,
			wantStatus:  http.StatusOK,
			wantHandler: true,
		},
		{
			name:        "オリジン未設定ではヘッダーを付けないこと",
			allowed:     nil,
			method:      http.MethodGet,
			origin:      "https://app.coach.test",
			wantStatus:  http.StatusOK,
			wantHandler: true,
		},
		{
			name:       "プリフライトは204で中断されること",
			allowed:    []string{"http://localhost:3000"},
			method:     http.MethodOptions,
			origin:     "http://localhost:3000",
			wantStatus: http.StatusNoContent,
			wantOrigin: "http://localhost:3000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handlerCalled := false
			router := gin.New()
			router.Use(CORS(tt.allowed))
			router.Handle(tt.method, "/test", func(c *gin.Context) {
				handlerCalled = true
				c.JSON(http.StatusOK, gin.H{"status": "ok"})
			})

			req := httptest.NewRequest(tt.method, "/test", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("ステータスコード = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if handlerCalled != tt.wantHandler {
				t.Errorf("ハンドラー呼び出し = %v, want %v", handlerCalled, tt.wantHandler)
			}
		})
	}
}
