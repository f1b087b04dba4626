// Package api はコーチングアプリのHTTP APIを提供する。
//
// ハンドラーは入力の読み取りとレスポンスの組み立てだけを行い、
// 業務ロジックはnotification・user・mealの各サービスに委ねる。
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fitcoach/coachapi/internal/health"
	"github.com/fitcoach/coachapi/internal/meal"
	"github.com/fitcoach/coachapi/internal/notification"
	"github.com/fitcoach/coachapi/internal/ratelimit"
	"github.com/fitcoach/coachapi/internal/upload"
	"github.com/fitcoach/coachapi/internal/user"
	"github.com/fitcoach/coachapi/pkg/auth"
	"github.com/fitcoach/coachapi/pkg/metrics"
	"github.com/fitcoach/coachapi/pkg/middleware"
)

// Options はHTTP層の設定。
type Options struct {
	// JWTSecret はBearerトークンの検証に使う。
	JWTSecret string
	// BaseURL は画像URLの組み立てに使う公開URL。空の場合はリクエストのホストから求める。
	BaseURL        string
	AllowedOrigins []string
	// MaxUploadBytes はmultipartリクエスト全体の上限。
	MaxUploadBytes int64
	// LoginLimit / LoginWindow はログインAPIのクライアントIPごとの上限。
	LoginLimit  int
	LoginWindow time.Duration
}

// Deps はServerが使うサービス群。
type Deps struct {
	Users         *user.Service
	Notifications *notification.Service
	Meals         *meal.Service
	Uploads       *upload.Storage
	// Limiter がnilの場合はレート制限を行わない。
	Limiter ratelimit.Limiter
	Health  *health.Checker
	Log     *slog.Logger
}

// Server はHTTP APIサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	opts   Options
	users  *user.Service
	notifs *notification.Service
	meals  *meal.Service
	// uploads はアップロード画像の保存先。
	uploads *upload.Storage
	limiter ratelimit.Limiter
	health  *health.Checker
	log     *slog.Logger
}

// NewServer は新しいServerを生成し、ルーティングを設定する。
func NewServer(opts Options, deps Deps) *Server {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}

	router := gin.New()
	router.MaxMultipartMemory = opts.MaxUploadBytes
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.CORS(opts.AllowedOrigins))

	s := &Server{
		router:  router,
		opts:    opts,
		users:   deps.Users,
		notifs:  deps.Notifications,
		meals:   deps.Meals,
		uploads: deps.Uploads,
		limiter: deps.Limiter,
		health:  deps.Health,
		log:     log,
	}
	s.setupRoutes()
	return s
}

// Handler はhttp.Serverに渡すハンドラーを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	requireAuth := middleware.JWTAuth(s.opts.JWTSecret)
	requireUser := middleware.RequireRole(auth.RoleUser)
	requireCoach := middleware.RequireRole(auth.RoleCoach)
	loginLimit := s.rateLimit("login", s.opts.LoginLimit, s.opts.LoginWindow)

	api := s.router.Group("/api")
	api.Use(s.limitBody())

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", s.handleRegister())
		authGroup.POST("/login", loginLimit, s.handleLogin())
		authGroup.GET("/me", requireAuth, requireUser, s.handleMe())
		authGroup.POST("/device-token", requireAuth, requireUser, s.handleSaveDeviceToken())
	}

	api.POST("/coach/login", loginLimit, s.handleCoachLogin())
	coach := api.Group("/coach", requireAuth, requireCoach)
	{
		// 通知の作成と一覧
		coach.POST("/notifications", s.handleCreateNotification())
		coach.GET("/notifications", s.handleListNotifications())
		// 会員管理
		coach.GET("/users", s.handleListUsers())
		coach.PUT("/users/:id/paid", s.handleSetPaid())
		coach.DELETE("/users/:id", s.handleDeleteUser())
	}

	api.GET("/notifications", requireAuth, requireUser, s.handleFeed())

	meals := api.Group("/meals")
	{
		meals.GET("", s.handleListMeals())
		meals.GET("/search", s.handleSearchMeals())
		meals.GET("/:id", s.handleGetMeal())
		meals.POST("", requireAuth, requireCoach, s.handleCreateMeal())
		meals.DELETE("/:id", requireAuth, requireCoach, s.handleDeleteMeal())
	}

	s.router.GET("/uploads/:filename", s.handleServeUpload())
	s.router.GET("/health", s.handleHealth())
	s.router.GET("/metrics", gin.WrapH(metrics.Handler()))
	s.router.GET("/privacy", s.handlePrivacy())
	s.router.GET("/", s.handleIndex())
}
