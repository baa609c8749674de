// Package ctxmeta — метаданные запроса в context.Context: request_id, order_id, источник команды
// и идентификаторы трейса. HTTP-слой, консьюмер, usecase и логгер зависят от него, но не друг от друга.
package ctxmeta

import "context"

type ctxKey int

const (
	keyRequestID ctxKey = iota
	keyOrderID
	keySource
)

// Source — откуда пришла команда смены статуса.
type Source string

const (
	SourceHTTP  Source = "http"
	SourceKafka Source = "kafka"
	SourceCLI   Source = "cli"
)

// WithRequestID — пустой id контекст не меняет.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withValue(ctx, keyRequestID, requestID)
}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	return valueFrom(ctx, keyRequestID)
}

// WithOrderID помечает контекст заказом, с которым идёт работа.
func WithOrderID(ctx context.Context, orderID string) context.Context {
	return withValue(ctx, keyOrderID, orderID)
}

func OrderIDFromContext(ctx context.Context) (string, bool) {
	return valueFrom(ctx, keyOrderID)
}

func WithSource(ctx context.Context, src Source) context.Context {
	return withValue(ctx, keySource, string(src))
}

func SourceFromContext(ctx context.Context) (Source, bool) {
	v, ok := valueFrom(ctx, keySource)
	return Source(v), ok
}

// Each — обход непустых метаданных в фиксированном порядке (поля логов).
func Each(ctx context.Context, fn func(key, value string)) {
	if ctx == nil {
		return
	}
	for _, f := range fields {
		if v, ok := f.get(ctx); ok {
			fn(f.key, v)
		}
	}
}

var fields = [...]struct {
	key string
	get func(context.Context) (string, bool)
}{
	{"request_id", RequestIDFromContext},
	{"trace_id", TraceIDFromContext},
	{"span_id", SpanIDFromContext},
	{"order_id", OrderIDFromContext},
	{"source", func(ctx context.Context) (string, bool) { return valueFrom(ctx, keySource) }},
}

func withValue(ctx context.Context, key ctxKey, value string) context.Context {
	if ctx == nil || value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func valueFrom(ctx context.Context, key ctxKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(key).(string)
	return v, ok && v != ""
}
