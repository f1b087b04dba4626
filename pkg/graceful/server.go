// Package graceful はコンテキストのキャンセルで安全に停止するHTTPサーバーを提供する。
package graceful

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// Server はhttp.Serverにグレースフルシャットダウンを加えたラッパー。
type Server struct {
	httpServer      *http.Server
	log             *slog.Logger
	shutdownTimeout time.Duration
}

// NewServer は新しいServerを生成する。
func NewServer(log *slog.Logger, srv *http.Server, shutdownTimeout time.Duration) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		httpServer:      srv,
		log:             log,
		shutdownTimeout: shutdownTimeout,
	}
}

// ListenAndServe はHTTPサーバーを起動し、ctxがキャンセルされるまでブロックする。
// キャンセル後はshutdownTimeout以内に処理中のリクエストを終えて停止する。
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("HTTPサーバーを起動します", slog.String("addr", s.httpServer.Addr))
		err := s.httpServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		// 起動直後のポート競合などはシャットダウンを待たずに返す
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	s.log.Info("HTTPサーバーを停止します", slog.Duration("timeout", s.shutdownTimeout))
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Error("HTTPサーバーの停止に失敗", slog.Any("error", err))
		return err
	}

	return <-errCh
}
