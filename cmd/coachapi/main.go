// コーチングアプリAPIのエントリポイント。
// 設定を読み込んで依存コンポーネントを組み立て、SIGINT/SIGTERMを受けるまでHTTPサーバーを動かす。
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"

	"github.com/fitcoach/coachapi/internal/api"
	"github.com/fitcoach/coachapi/internal/config"
	"github.com/fitcoach/coachapi/internal/eventbus"
	"github.com/fitcoach/coachapi/internal/health"
	"github.com/fitcoach/coachapi/internal/meal"
	"github.com/fitcoach/coachapi/internal/notification"
	"github.com/fitcoach/coachapi/internal/push"
	"github.com/fitcoach/coachapi/internal/ratelimit"
	"github.com/fitcoach/coachapi/internal/store"
	"github.com/fitcoach/coachapi/internal/upload"
	"github.com/fitcoach/coachapi/internal/user"
	"github.com/fitcoach/coachapi/pkg/graceful"
	"github.com/fitcoach/coachapi/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "coachapi: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, v, err := config.Load("")
	if err != nil {
		return err
	}

	if cfg.Sentry.Enabled() {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.App.Env,
			TracesSampleRate: cfg.Sentry.TracesSampleRate,
		}); err != nil {
			return fmt.Errorf("Sentryの初期化に失敗: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	lg, err := logger.New(logger.Options{
		Level:         cfg.Logger.Level,
		Format:        cfg.Logger.Format,
		File:          cfg.Logger.File,
		MaxSizeMB:     cfg.Logger.MaxSizeMB,
		MaxBackups:    cfg.Logger.MaxBackups,
		MaxAgeDays:    cfg.Logger.MaxAgeDays,
		SentryEnabled: cfg.Sentry.Enabled(),
	}, os.Stdout)
	if err != nil {
		return fmt.Errorf("ロガーの初期化に失敗: %w", err)
	}
	defer lg.Close()
	log := lg.Logger
	slog.SetDefault(log)

	if config.Watch(v, func(next *config.Config) {
		if err := lg.SetLevel(next.Logger.Level); err != nil {
			log.Warn("ログレベルの変更に失敗", slog.Any("error", err))
			return
		}
		log.Info("設定ファイルの変更を反映しました", slog.String("log_level", next.Logger.Level))
	}, func(err error) {
		log.Error("変更後の設定が不正なため反映しません", slog.Any("error", err))
	}) {
		log.Info("設定ファイルの監視を開始", slog.String("file", v.ConfigFileUsed()))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.Database.Path, log)
	if err != nil {
		return err
	}
	defer db.Close()

	checker := health.NewChecker(3*time.Second, log)
	checker.Add("database", health.DB(db))

	memLimiter := ratelimit.NewMemoryLimiter()
	go memLimiter.RunCleanup(ctx, time.Minute, 2*cfg.RateLimit.LoginWindow)
	var limiter ratelimit.Limiter = memLimiter
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		redisLimiter := ratelimit.NewRedisLimiter(rdb)
		limiter = ratelimit.NewFallbackLimiter(redisLimiter, memLimiter, log)
		checker.Add("redis", redisLimiter)
	}

	var publisher eventbus.Publisher = eventbus.NopPublisher{}
	if cfg.NATS.URL != "" {
		nc, err := eventbus.ConnectNATS(cfg.NATS.URL, cfg.NATS.SubjectPrefix, log)
		if err != nil {
			// イベント発行は補助機能なので起動は続ける
			log.Error("NATSに接続できないためイベントを発行しません", slog.Any("error", err))
		} else {
			defer nc.Close()
			publisher = nc
			checker.Add("nats", nc)
		}
	}

	uploads, err := upload.New(cfg.Upload.Dir, cfg.Upload.AllowedExtensions, log)
	if err != nil {
		return err
	}

	sender := push.NewSender(ctx, cfg.Push.CredentialsFile, log)
	dispatcher := push.NewDispatcher(sender, push.Options{
		Concurrency:   cfg.Push.Concurrency,
		RatePerSecond: cfg.Push.RatePerSecond,
		SendTimeout:   cfg.Push.SendTimeout,
	}, log)

	q := store.New(db)
	server := api.NewServer(api.Options{
		JWTSecret:      cfg.Auth.JWTSecret,
		BaseURL:        cfg.App.BaseURL,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		MaxUploadBytes: cfg.HTTP.MaxUploadBytes,
		LoginLimit:     cfg.RateLimit.LoginLimit,
		LoginWindow:    cfg.RateLimit.LoginWindow,
	}, api.Deps{
		Users: user.NewService(db, user.Config{
			JWTSecret:     cfg.Auth.JWTSecret,
			TokenTTL:      cfg.Auth.TokenTTL,
			CoachUsername: cfg.Auth.CoachUsername,
			CoachPassword: cfg.Auth.CoachPassword,
		}, publisher, log),
		Notifications: notification.NewService(notification.NewSQLStore(q), q, dispatcher, publisher,
			notification.ContentConfig{Title: cfg.Push.Title, DefaultBody: cfg.Push.DefaultBody}, log),
		Meals:   meal.NewService(q, uploads, publisher, log),
		Uploads: uploads,
		Limiter: limiter,
		Health:  checker,
		Log:     log,
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info("コーチングAPIを起動します",
		slog.String("env", cfg.App.Env),
		slog.Bool("push_enabled", dispatcher.Available()),
		slog.Any("health_components", checker.Names()),
	)
	if err := graceful.NewServer(log, httpServer, cfg.HTTP.ShutdownTimeout).ListenAndServe(ctx); err != nil {
		return fmt.Errorf("HTTPサーバーの実行に失敗: %w", err)
	}
	log.Info("コーチングAPIを停止しました")
	return nil
}
