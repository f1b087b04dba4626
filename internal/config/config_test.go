package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 環境変数を書き換えるためt.Parallelは使わない。

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")

	cfg, _, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.App.Env)
	assert.Equal(t, "5000", cfg.HTTP.Port)
	assert.Equal(t, int64(16<<20), cfg.HTTP.MaxUploadBytes)
	assert.Equal(t, 30*24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "لديك إشعار جديد", cfg.Push.DefaultBody)
	assert.Equal(t, []string{"png", "jpg", "jpeg", "gif", "webp"}, cfg.Upload.AllowedExtensions)
	assert.Empty(t, cfg.Push.CredentialsFile)
	assert.False(t, cfg.Sentry.Enabled())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "8088")
	t.Setenv("AUTH_TOKEN_TTL", "2h")
	t.Setenv("FIREBASE_CREDENTIALS_PATH", "/secrets/firebase.json")
	t.Setenv("DATABASE_URL", "sqlite:///coach.db")
	t.Setenv("UPLOAD_ALLOWED_EXTENSIONS", "png,jpg")

	cfg, _, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8088", cfg.HTTP.Port)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "/secrets/firebase.json", cfg.Push.CredentialsFile)
	assert.Equal(t, "coach.db", cfg.Database.Path)
	assert.Equal(t, []string{"png", "jpg"}, cfg.Upload.AllowedExtensions)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "staging.yaml")
	content := `
app:
  env: staging
  base_url: https://coach.example.com
push:
  concurrency: 4
logger:
  level: debug
  format: text
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, v, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.App.Env)
	assert.Equal(t, "https://coach.example.com", cfg.App.BaseURL)
	assert.Equal(t, 4, cfg.Push.Concurrency)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, path, v.ConfigFileUsed())
}

func TestLoad_ValidationErrors(t *testing.T) {
	t.Run("短すぎるJWTシークレット", func(t *testing.T) {
		t.Setenv("AUTH_JWT_SECRET", "short")
		_, _, err := Load("")
		assert.Error(t, err)
	})

	t.Run("本番環境で開発用シークレット", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		_, _, err := Load("")
		assert.Error(t, err)
	})

	t.Run("不正なログ形式", func(t *testing.T) {
		t.Setenv("LOGGER_FORMAT", "xml")
		_, _, err := Load("")
		assert.Error(t, err)
	})

	t.Run("存在しない設定ファイル", func(t *testing.T) {
		_, _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})
}

func TestWatch_WithoutFile(t *testing.T) {
	_, v, err := Load("")
	require.NoError(t, err)

	assert.False(t, Watch(v, func(*Config) {}, nil))
}
