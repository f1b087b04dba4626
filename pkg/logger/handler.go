package logger

import (
	"context"
	"log/slog"
	"strings"
)

// sensitiveKeys はログ出力時に値を伏せる属性キー。
var sensitiveKeys = []string{
	"password",
	"token",
	"device_token",
	"secret",
	"api_key",
	"authorization",
}

// MaskingHandler は機密属性をマスクし、相関IDを付与してから次のハンドラーへ渡す。
type MaskingHandler struct {
	next slog.Handler
}

// NewMaskingHandler は新しいMaskingHandlerを生成する。
func NewMaskingHandler(next slog.Handler) *MaskingHandler {
	return &MaskingHandler{next: next}
}

// Enabled は指定レベルのログを処理するかを返す。
func (h *MaskingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// WithAttrs は属性を追加したハンドラーを返す。追加される属性もマスク対象。
func (h *MaskingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		masked = append(masked, maskAttr(a))
	}
	return &MaskingHandler{next: h.next.WithAttrs(masked)}
}

// WithGroup はグループ名を追加したハンドラーを返す。
func (h *MaskingHandler) WithGroup(name string) slog.Handler {
	return &MaskingHandler{next: h.next.WithGroup(name)}
}

// Handle は機密属性をマスクしたレコードを次のハンドラーに渡す。
func (h *MaskingHandler) Handle(ctx context.Context, record slog.Record) error {
	masked := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)

	record.Attrs(func(attr slog.Attr) bool {
		masked.AddAttrs(maskAttr(attr))
		return true
	})

	if id := CorrelationIDFromContext(ctx); id != "" {
		masked.AddAttrs(slog.String("correlation_id", id))
	}

	return h.next.Handle(ctx, masked)
}

func maskAttr(attr slog.Attr) slog.Attr {
	if isSensitiveKey(attr.Key) {
		return slog.String(attr.Key, "***")
	}
	if attr.Value.Kind() == slog.KindGroup {
		group := attr.Value.Group()
		masked := make([]any, 0, len(group))
		for _, a := range group {
			masked = append(masked, maskAttr(a))
		}
		return slog.Group(attr.Key, masked...)
	}
	return attr
}

func isSensitiveKey(key string) bool {
	for _, sensitive := range sensitiveKeys {
		if strings.EqualFold(key, sensitive) {
			return true
		}
	}
	return false
}
