package tui

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestQuietlySwallowsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	fn := quietly(zap.New(core), "sign in", func(context.Context) error {
		return errors.New("popup closed")
	})

	assert.NoError(t, fn(context.Background()))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "sign in", entry.ContextMap()["action"])
	assert.Equal(t, "popup closed", entry.ContextMap()["error"])
}

func TestQuietlyPassesSuccess(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	calls := 0
	fn := quietly(zap.New(core), "send", func(context.Context) error {
		calls++
		return nil
	})

	assert.NoError(t, fn(context.Background()))
	assert.Equal(t, 1, calls)
	assert.Zero(t, logs.Len())
}
