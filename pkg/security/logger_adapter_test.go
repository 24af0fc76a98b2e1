package security

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kevin07696/stkpush-service/internal/domain/ports"
)

func TestZapLoggerAdapter_ForwardsFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	adapter := NewZapLogger(zap.New(core)).Named("lipana")

	adapter.Warn("status fetch failed",
		ports.String("tracking_id", "txn_1"),
		ports.Int("page", 2),
		ports.Err(errors.New("connection refused")),
	)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Equal(t, "lipana", entry.LoggerName)

	fields := entry.ContextMap()
	assert.Equal(t, "txn_1", fields["tracking_id"])
	assert.EqualValues(t, 2, fields["page"])
	assert.Equal(t, "connection refused", fields["error"])
}
