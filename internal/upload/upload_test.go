package upload

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitcoach/coachapi/pkg/logger"
)

// fileHeader はmultipartリクエストを組み立て、指定ファイルのFileHeaderを返す。
func fileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	t.Cleanup(func() { req.MultipartForm.RemoveAll() })

	return req.MultipartForm.File["image"][0]
}

func newStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "uploads"), []string{"png", ".JPG"}, logger.Discard())
	require.NoError(t, err)
	return s
}

func TestStorage_Save(t *testing.T) {
	t.Parallel()

	t.Run("許可された拡張子のファイルが生成名で保存されること", func(t *testing.T) {
		t.Parallel()
		s := newStorage(t)

		name, err := s.Save(fileHeader(t, "../../evil Photo.PNG", []byte("png-bytes")))
		require.NoError(t, err)

		assert.True(t, strings.HasSuffix(name, ".png"))
		assert.NotContains(t, name, "evil")
		got, err := os.ReadFile(filepath.Join(s.Dir(), name))
		require.NoError(t, err)
		assert.Equal(t, "png-bytes", string(got))
	})

	t.Run("許可されていない拡張子は保存しないこと", func(t *testing.T) {
		t.Parallel()
		s := newStorage(t)

		name, err := s.Save(fileHeader(t, "script.sh", []byte("#!/bin/sh")))
		require.NoError(t, err)
		assert.Empty(t, name)

		entries, err := os.ReadDir(s.Dir())
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("同じファイルでも毎回別名になること", func(t *testing.T) {
		t.Parallel()
		s := newStorage(t)

		a, err := s.Save(fileHeader(t, "a.jpg", []byte("x")))
		require.NoError(t, err)
		b, err := s.Save(fileHeader(t, "a.jpg", []byte("x")))
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})
}

func TestStorage_PathAndRemove(t *testing.T) {
	t.Parallel()
	s := newStorage(t)

	for _, bad := range []string{"", "..", "../x.png", "a/b.png"} {
		_, err := s.Path(bad)
		assert.ErrorIs(t, err, ErrInvalidName, bad)
	}

	name, err := s.Save(fileHeader(t, "a.png", []byte("x")))
	require.NoError(t, err)
	require.NoError(t, s.Remove(name))
	_, err = os.Stat(filepath.Join(s.Dir(), name))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, s.Remove(name), "存在しないファイルの削除はエラーにしない")
}

func TestURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://coach.example.com/uploads/a.png", URL("https://coach.example.com/", "a.png"))
	assert.Empty(t, URL("https://coach.example.com", ""))
}
