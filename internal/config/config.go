// Package config はアプリケーション設定の読み込みと検証を行う。
//
// 優先順位は 環境変数 > 設定ファイル(YAML) > デフォルト値。
// .env.local / .env が存在すれば環境変数として先に読み込む。
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// devJWTSecret は開発用のJWTシークレット。本番環境では使用できない。
const devJWTSecret = "dev-secret-key-change-me"

// Config はアプリケーション全体の設定。
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Push      PushConfig      `mapstructure:"push"`
	Upload    UploadConfig    `mapstructure:"upload"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	NATS      NATSConfig      `mapstructure:"nats"`
}

// AppConfig はアプリケーション共通の設定。
type AppConfig struct {
	// Env は実行環境名。
	Env string `mapstructure:"env" validate:"required,oneof=development test staging production"`
	// BaseURL は画像URLを組み立てる際の公開ベースURL。
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`
}

// HTTPConfig はHTTPサーバーの設定。
type HTTPConfig struct {
	Port            string        `mapstructure:"port" validate:"required,numeric"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	// MaxUploadBytes はmultipartリクエスト全体の上限。
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes" validate:"gt=0"`
}

// DatabaseConfig はSQLiteの設定。
type DatabaseConfig struct {
	// Path はデータベースファイルのパス。":memory:" も指定できる。
	Path string `mapstructure:"path" validate:"required"`
}

// AuthConfig はトークン発行とコーチ認証の設定。
type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret" validate:"required,min=16"`
	TokenTTL      time.Duration `mapstructure:"token_ttl" validate:"gt=0"`
	CoachUsername string        `mapstructure:"coach_username" validate:"required"`
	CoachPassword string        `mapstructure:"coach_password" validate:"required"`
}

// PushConfig はプッシュ通知配信の設定。
type PushConfig struct {
	// CredentialsFile はFirebaseサービスアカウントJSONのパス。空の場合は配信しない。
	CredentialsFile string `mapstructure:"credentials_file"`
	// Title は全通知に共通の送信者タイトル。
	Title string `mapstructure:"title" validate:"required"`
	// DefaultBody は本文が無い通知に使う文言。
	DefaultBody string `mapstructure:"default_body" validate:"required"`
	// Concurrency は同時に送信するトークン数の上限。
	Concurrency int `mapstructure:"concurrency" validate:"min=1"`
	// RatePerSecond は1秒あたりの送信数上限。0は無制限。
	RatePerSecond float64 `mapstructure:"rate_per_second" validate:"gte=0"`
	// SendTimeout は1トークンあたりの送信タイムアウト。
	SendTimeout time.Duration `mapstructure:"send_timeout" validate:"gt=0"`
}

// UploadConfig は画像アップロードの設定。
type UploadConfig struct {
	Dir               string   `mapstructure:"dir" validate:"required"`
	AllowedExtensions []string `mapstructure:"allowed_extensions" validate:"min=1,dive,required"`
}

// RedisConfig はRedisの設定。Addrが空の場合はRedisを使わない。
type RedisConfig struct {
	Addr     string `mapstructure:"addr" validate:"omitempty,hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

// RateLimitConfig はログインAPIのレート制限設定。
type RateLimitConfig struct {
	LoginLimit  int           `mapstructure:"login_limit" validate:"gt=0"`
	LoginWindow time.Duration `mapstructure:"login_window" validate:"gt=0"`
}

// LoggerConfig はロガーの設定。
type LoggerConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
	Format     string `mapstructure:"format" validate:"oneof=json text"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
}

// SentryConfig はエラー報告の設定。DSNが空の場合は無効。
type SentryConfig struct {
	DSN              string  `mapstructure:"dsn" validate:"omitempty,url"`
	TracesSampleRate float64 `mapstructure:"traces_sample_rate" validate:"gte=0,lte=1"`
}

// Enabled はSentryが有効かを返す。
func (s SentryConfig) Enabled() bool { return s.DSN != "" }

// NATSConfig はドメインイベント発行先の設定。URLが空の場合は発行しない。
type NATSConfig struct {
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix" validate:"required"`
}

// setDefaults は全キーのデフォルト値を設定する。
// AutomaticEnvはviperが知っているキーにのみ効くため、全キーをここで登録する。
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.base_url", "")

	v.SetDefault("http.port", "5000")
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("http.allowed_origins", []string{"*"})
	v.SetDefault("http.max_upload_bytes", 16<<20)

	v.SetDefault("database.path", "coach_app.db")

	v.SetDefault("auth.jwt_secret", devJWTSecret)
	v.SetDefault("auth.token_ttl", 30*24*time.Hour)
	v.SetDefault("auth.coach_username", "hany")
	v.SetDefault("auth.coach_password", "Admin@123")

	v.SetDefault("push.credentials_file", "")
	v.SetDefault("push.title", "كوتش هاني الليثي")
	v.SetDefault("push.default_body", "لديك إشعار جديد")
	v.SetDefault("push.concurrency", 8)
	v.SetDefault("push.rate_per_second", 50.0)
	v.SetDefault("push.send_timeout", 10*time.Second)

	v.SetDefault("upload.dir", "uploads")
	v.SetDefault("upload.allowed_extensions", []string{"png", "jpg", "jpeg", "gif", "webp"})

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("ratelimit.login_limit", 10)
	v.SetDefault("ratelimit.login_window", time.Minute)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.file", "")
	v.SetDefault("logger.max_size_mb", 100)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age_days", 28)

	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.traces_sample_rate", 0.0)

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject_prefix", "coachapi")
}

// bindLegacyEnv は既存のデプロイ環境で使われている環境変数名を対応付ける。
func bindLegacyEnv(v *viper.Viper) error {
	aliases := map[string][]string{
		"http.port":             {"HTTP_PORT", "PORT"},
		"auth.jwt_secret":       {"AUTH_JWT_SECRET", "JWT_SECRET_KEY"},
		"push.credentials_file": {"PUSH_CREDENTIALS_FILE", "FIREBASE_CREDENTIALS_PATH"},
		"database.path":         {"DATABASE_PATH", "DATABASE_URL"},
	}
	for key, envs := range aliases {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return err
		}
	}
	return nil
}

// Load は設定を読み込み、検証済みのConfigを返す。
// configFileが空の場合は CONFIG_FILE 環境変数、次に ./configs/<APP_ENV>.yaml を探す。
// 設定ファイルが存在しない場合はデフォルト値と環境変数のみを使う。
func Load(configFile string) (*Config, *viper.Viper, error) {
	// .envファイルが無いのは正常
	_ = godotenv.Load(".env.local", ".env")

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindLegacyEnv(v); err != nil {
		return nil, nil, fmt.Errorf("環境変数のバインドに失敗: %w", err)
	}

	if configFile == "" {
		configFile = os.Getenv("CONFIG_FILE")
	}
	if configFile == "" {
		env := os.Getenv("APP_ENV")
		if env == "" {
			env = "development"
		}
		candidate := fmt.Sprintf("./configs/%s.yaml", env)
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
		}
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("設定の展開に失敗: %w", err)
	}
	cfg.Database.Path = strings.TrimPrefix(cfg.Database.Path, "sqlite:///")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate は設定値を検証する。
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("設定の検証に失敗: %w", err)
	}
	if c.App.Env == "production" && c.Auth.JWTSecret == devJWTSecret {
		return errors.New("本番環境では開発用のJWTシークレットを使用できません")
	}
	return nil
}

// Watch は設定ファイルの変更を監視し、検証に成功した新しい設定でonChangeを呼ぶ。
// 設定ファイルを使っていない場合は何もせずfalseを返す。
func Watch(v *viper.Viper, onChange func(*Config), onError func(error)) bool {
	if v.ConfigFileUsed() == "" {
		return false
	}
	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := decode(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return true
}
