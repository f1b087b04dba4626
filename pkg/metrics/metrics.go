// Package metrics はPrometheus形式のアプリケーションメトリクスを定義する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coachapi_http_requests_total",
			Help: "HTTPリクエスト数（メソッド・ルート・ステータス別）",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coachapi_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	pushMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coachapi_push_messages_total",
			Help: "プッシュ通知の送信結果（success / failure）",
		},
		[]string{"result"},
	)
	notificationsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coachapi_notifications_created_total",
			Help: "作成された通知数（配信対象別）",
		},
		[]string{"target"},
	)
	rateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coachapi_rate_limited_total",
			Help: "レート制限で拒否されたリクエスト数",
		},
		[]string{"scope"},
	)
)

// Push送信結果のラベル値。
const (
	PushSuccess = "success"
	PushFailure = "failure"
)

// ObserveHTTPRequest はHTTPリクエスト1件を記録する。
func ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordPush はプッシュ送信結果を1件記録する。
func RecordPush(result string) {
	pushMessagesTotal.WithLabelValues(result).Inc()
}

// RecordNotificationCreated は通知の作成を記録する。
func RecordNotificationCreated(target string) {
	notificationsCreatedTotal.WithLabelValues(target).Inc()
}

// RecordRateLimited はレート制限による拒否を記録する。
func RecordRateLimited(scope string) {
	rateLimitedTotal.WithLabelValues(scope).Inc()
}

// Handler は/metricsエンドポイント用のハンドラーを返す。
func Handler() http.Handler {
	return promhttp.Handler()
}
