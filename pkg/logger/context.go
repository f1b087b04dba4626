package logger

import "context"

// correlationIDKey はコンテキストに相関IDを格納するキー。
type correlationIDKey struct{}

// WithCorrelationID は相関IDを格納したコンテキストを返す。
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationIDFromContext はコンテキストの相関IDを返す。無ければ空文字列。
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(correlationIDKey{}).(string); ok {
		return id
	}
	return ""
}
