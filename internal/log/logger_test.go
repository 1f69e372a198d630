package log

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInit_ReplacesGlobal(t *testing.T) {
	l, err := Init(false)
	require.NoError(t, err)
	assert.Same(t, l, zap.L())
}

func TestWithDD_NoSpanKeepsFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)

	WithDD(context.Background(), base, zap.String("request_id", "r1")).Info("hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "r1", fields["request_id"])
	assert.NotContains(t, fields, "dd.trace_id")
}
