// Package upload はアップロードされた画像をディスクに保存する。
//
// ファイルは元のファイル名を使わず、UUIDと拡張子から生成した名前で保存する。
// 戻り値の名前が通知や食事プランに保存される参照になる。
package upload

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidName は参照名が保存ディレクトリ外を指すなど不正であることを表す。
var ErrInvalidName = errors.New("不正なファイル名です")

// Storage は画像ファイルの保存先。
type Storage struct {
	dir     string
	allowed map[string]struct{}
	log     *slog.Logger
}

// New は保存ディレクトリを作成してStorageを返す。
// allowedExtensionsは先頭のドットの有無・大文字小文字を問わない。
func New(dir string, allowedExtensions []string, log *slog.Logger) (*Storage, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("アップロードディレクトリの作成に失敗: %w", err)
	}
	allowed := make(map[string]struct{}, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}
	return &Storage{dir: dir, allowed: allowed, log: log}, nil
}

// Dir は保存ディレクトリを返す。
func (s *Storage) Dir() string { return s.dir }

// Allowed はファイル名の拡張子が許可されているかを返す。
func (s *Storage) Allowed(filename string) bool {
	_, ok := s.allowed[extension(filename)]
	return ok
}

// Save はアップロードされたファイルを保存し、生成した参照名を返す。
// 拡張子が許可されていないファイルは保存せず、空文字列とnilを返す。
func (s *Storage) Save(fh *multipart.FileHeader) (string, error) {
	if fh == nil || !s.Allowed(fh.Filename) {
		return "", nil
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("アップロードファイルを開けません: %w", err)
	}
	defer src.Close()

	name := uuid.NewString() + "." + extension(fh.Filename)
	path := filepath.Join(s.dir, name)
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("ファイルの作成に失敗: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("ファイルの書き込みに失敗: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("ファイルのクローズに失敗: %w", err)
	}

	s.log.Info("画像を保存", slog.String("file", name), slog.Int64("size", fh.Size))
	return name, nil
}

// Path は参照名に対応するファイルパスを返す。
func (s *Storage) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", ErrInvalidName
	}
	return filepath.Join(s.dir, name), nil
}

// Remove は参照名のファイルを削除する。既に存在しない場合は何もしない。
func (s *Storage) Remove(name string) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("ファイルの削除に失敗: %w", err)
	}
	return nil
}

// URL は参照名の公開URLを返す。nameが空の場合は空文字列。
func URL(baseURL, name string) string {
	if name == "" {
		return ""
	}
	return strings.TrimRight(baseURL, "/") + "/uploads/" + name
}

func extension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}
