package apperr

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("通知の保存: %w", Storage("failed to save notification", sql.ErrConnDone))

	assert.Equal(t, KindStorage, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindStorage))
	assert.True(t, errors.Is(wrapped, sql.ErrConnDone))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.False(t, Is(nil, KindInternal))
}

func TestKind_HTTPStatus(t *testing.T) {
	t.Parallel()

	tests := map[Kind]int{
		KindUnauthenticated: http.StatusUnauthorized,
		KindAuthorization:   http.StatusForbidden,
		KindValidation:      http.StatusBadRequest,
		KindNotFound:        http.StatusNotFound,
		KindConflict:        http.StatusConflict,
		KindRateLimited:     http.StatusTooManyRequests,
		KindStorage:         http.StatusInternalServerError,
		KindInternal:        http.StatusInternalServerError,
	}
	for kind, want := range tests {
		assert.Equal(t, want, kind.HTTPStatus(), kind.String())
	}
}

func TestError_Error(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "validation: text is required", Validation("text is required").Error())
	assert.Contains(t, Storage("save failed", errors.New("disk full")).Error(), "disk full")
}
