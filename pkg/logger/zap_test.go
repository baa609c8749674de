package logger_test

import (
	"context"
	"testing"

	"github.com/Gunvolt24/agrostore/pkg/ctxmeta"
	"github.com/Gunvolt24/agrostore/pkg/logger"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger_ContextFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := logger.New(zap.New(core), false)

	ctx := ctxmeta.WithRequestID(context.Background(), "req-7")
	ctx = ctxmeta.WithOrderID(ctx, "ord-7")
	l.Infof(ctx, "status changed to %s", "shipped")

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "status changed to shipped", entries[0].Message)

	fields := entries[0].ContextMap()
	require.Equal(t, "req-7", fields["request_id"])
	require.Equal(t, "ord-7", fields["order_id"])
	require.NotContains(t, fields, "trace_id")
}

func TestZapLogger_DebugSuppressedAboveLevel(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := logger.New(zap.New(core), true)

	l.Debugf(context.Background(), "payload=%v", map[string]string{"status": "x"})
	l.Warnf(context.Background(), "visible")

	require.Equal(t, 0, logs.FilterMessageSnippet("payload").Len())
	require.Equal(t, 1, logs.FilterMessage("visible").Len())
}

func TestNewZapLogger_Levels(t *testing.T) {
	l, cleanup, err := logger.NewZapLogger(true, "warn")
	require.NoError(t, err)
	require.NotNil(t, l)
	defer func() { _ = cleanup() }()

	require.False(t, l.Base().Core().Enabled(zapcore.InfoLevel))
	require.True(t, l.Base().Core().Enabled(zapcore.WarnLevel))

	_, _, err = logger.NewZapLogger(false, "loud")
	require.Error(t, err)
}
