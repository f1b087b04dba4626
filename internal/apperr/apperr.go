// Package apperr はサービス層が返すエラーの分類を定義する。
//
// HTTP層はKindだけを見てステータスコードを決め、Messageをクライアントへ返す。
// causeは内部ログとSentryにのみ出力する。
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind はエラーの分類。
type Kind int

const (
	// KindInternal は分類されていない内部エラー。
	KindInternal Kind = iota
	// KindUnauthenticated は認証情報が無い、または誤っている。
	KindUnauthenticated
	// KindAuthorization は認証主体に操作の権限が無い。
	KindAuthorization
	// KindValidation は入力値が不正。
	KindValidation
	// KindNotFound は参照先のエンティティが存在しない。
	KindNotFound
	// KindConflict は一意制約などに反する。
	KindConflict
	// KindRateLimited はレート制限を超えた。
	KindRateLimited
	// KindStorage は永続化層の失敗。
	KindStorage
)

// String はKindの名前を返す。
func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindAuthorization:
		return "authorization"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindRateLimited:
		return "rate_limited"
	case KindStorage:
		return "storage"
	default:
		return "internal"
	}
}

// HTTPStatus はKindに対応するHTTPステータスコードを返す。
func (k Kind) HTTPStatus() int {
	switch k {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error はKind付きのアプリケーションエラー。
type Error struct {
	// Kind はエラーの分類。
	Kind Kind
	// Message はクライアントに返してよいメッセージ。
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap は原因となったエラーを返す。
func (e *Error) Unwrap() error {
	return e.cause
}

// New は原因を持たないエラーを生成する。
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap は原因を保持したエラーを生成する。
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// Validation は入力値エラーを生成する。
func Validation(message string) *Error { return New(KindValidation, message) }

// NotFound は存在しないエンティティのエラーを生成する。
func NotFound(message string) *Error { return New(KindNotFound, message) }

// Forbidden は権限エラーを生成する。
func Forbidden(message string) *Error { return New(KindAuthorization, message) }

// Storage は永続化層のエラーを生成する。
func Storage(message string, cause error) *Error { return Wrap(KindStorage, message, cause) }

// KindOf はerrのKindを返す。Errorを含まない場合はKindInternal。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is はerrが指定Kindのエラーかを返す。
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
