// Package auth はリクエスト単位の認証主体（Identity）とJWTトークンの発行・検証を扱う。
//
// ロールはセッションではなくトークンのクレームとして運ばれ、
// ミドルウェアで取り出したIdentityをサービス層へ明示的に渡す。
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role は認証主体の役割を表す。
type Role string

const (
	// RoleUser はアプリの一般ユーザー。
	RoleUser Role = "user"
	// RoleCoach は通知配信やユーザー管理を行うコーチ。
	RoleCoach Role = "coach"
)

// issuer はトークンの発行者名。
const issuer = "coachapi"

// coachSubject はコーチのトークンに設定するsubject。
const coachSubject = "coach"

// ErrInvalidToken はトークンの署名・期限・クレームが不正な場合に返る。
var ErrInvalidToken = errors.New("トークンが無効です")

// Identity はリクエストを行った認証主体。
type Identity struct {
	// Subject はユーザーIDの10進文字列、またはコーチの場合は "coach"。
	Subject string
	// Role は認証主体のロール。
	Role Role
}

// UserIdentity は一般ユーザーのIdentityを返す。
func UserIdentity(userID int64) Identity {
	return Identity{Subject: strconv.FormatInt(userID, 10), Role: RoleUser}
}

// CoachIdentity はコーチのIdentityを返す。
func CoachIdentity() Identity {
	return Identity{Subject: coachSubject, Role: RoleCoach}
}

// IsCoach はコーチロールを持つかを返す。
func (i Identity) IsCoach() bool {
	return i.Role == RoleCoach
}

// UserID は一般ユーザーのIDを返す。ユーザー以外の場合はfalse。
func (i Identity) UserID() (int64, bool) {
	if i.Role != RoleUser {
		return 0, false
	}
	id, err := strconv.ParseInt(i.Subject, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Claims はJWTトークンのクレーム。
type Claims struct {
	jwt.RegisteredClaims
	// Role は認証主体のロール。
	Role Role `json:"role"`
}

// GenerateToken はIdentityから署名済みトークンを生成する。
func GenerateToken(secret string, id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
		Role: id.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("JWTトークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// ParseToken はトークンを検証してIdentityを返す。
func ParseToken(secret, tokenString string) (Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return Identity{}, errors.Join(ErrInvalidToken, err)
	}

	switch claims.Role {
	case RoleUser, RoleCoach:
	default:
		return Identity{}, fmt.Errorf("%w: 不明なロール %q", ErrInvalidToken, claims.Role)
	}
	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: subjectがありません", ErrInvalidToken)
	}

	return Identity{Subject: claims.Subject, Role: claims.Role}, nil
}

type identityKey struct{}

// WithIdentity はIdentityを格納したコンテキストを返す。
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext はコンテキストに格納されたIdentityを返す。
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
