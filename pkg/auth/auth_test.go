package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key-for-unit-tests"

// TestGenerateAndParseToken はトークンの発行と検証を検証する。
func TestGenerateAndParseToken(t *testing.T) {
	t.Parallel()

	t.Run("ユーザートークンからIdentityを復元できること", func(t *testing.T) {
		t.Parallel()

		token, err := GenerateToken(testSecret, UserIdentity(42), time.Hour)
		if err != nil {
			t.Fatalf("GenerateToken()でエラーが発生: %v", err)
		}

		id, err := ParseToken(testSecret, token)
		if err != nil {
			t.Fatalf("ParseToken()でエラーが発生: %v", err)
		}
		if id.Role != RoleUser {
			t.Errorf("Role = %q, want %q", id.Role, RoleUser)
		}
		userID, ok := id.UserID()
		if !ok || userID != 42 {
			t.Errorf("UserID() = (%d, %v), want (42, true)", userID, ok)
		}
		if id.IsCoach() {
			t.Error("ユーザーがコーチと判定された")
		}
	})

	t.Run("コーチトークンはUserIDを持たないこと", func(t *testing.T) {
		t.Parallel()

		token, err := GenerateToken(testSecret, CoachIdentity(), time.Hour)
		if err != nil {
			t.Fatalf("GenerateToken()でエラーが発生: %v", err)
		}

		id, err := ParseToken(testSecret, token)
		if err != nil {
			t.Fatalf("ParseToken()でエラーが発生: %v", err)
		}
		if !id.IsCoach() {
			t.Error("コーチと判定されるべき")
		}
		if _, ok := id.UserID(); ok {
			t.Error("コーチのIdentityがUserIDを返した")
		}
	})

	t.Run("異なるシークレットでは検証に失敗すること", func(t *testing.T) {
		t.Parallel()

		token, _ := GenerateToken("other-secret", UserIdentity(1), time.Hour)
		if _, err := ParseToken(testSecret, token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("err = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("期限切れトークンは検証に失敗すること", func(t *testing.T) {
		t.Parallel()

		token, _ := GenerateToken(testSecret, UserIdentity(1), -time.Minute)
		if _, err := ParseToken(testSecret, token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("err = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("ロールが不明なトークンは拒否されること", func(t *testing.T) {
		t.Parallel()

		claims := Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "1",
				Issuer:    issuer,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
			Role: "admin",
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		if err != nil {
			t.Fatalf("署名に失敗: %v", err)
		}
		if _, err := ParseToken(testSecret, token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("err = %v, want ErrInvalidToken", err)
		}
	})
}

func TestWithIdentity(t *testing.T) {
	t.Parallel()

	ctx := WithIdentity(context.Background(), CoachIdentity())
	id, ok := FromContext(ctx)
	if !ok || !id.IsCoach() {
		t.Errorf("FromContext() = (%+v, %v), want coach", id, ok)
	}

	if _, ok := FromContext(context.Background()); ok {
		t.Error("空のコンテキストからIdentityが取得された")
	}
}
