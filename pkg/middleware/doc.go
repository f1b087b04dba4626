// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// JWTによる認証とロール判定、相関ID付きのリクエストログ、パニックリカバリ、
// CORS設定を含む。
package middleware
