package main

import (
	"context"
	"image"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/nvr-ai/cashvision/inference/detectors"
)

type closingEngine struct {
	err    error
	closed bool
}

func (e *closingEngine) Predict(context.Context, image.Image) (*detectors.Result, error) {
	return &detectors.Result{}, nil
}

func (e *closingEngine) Close() error {
	e.closed = true
	return e.err
}

func TestCloseEngineLogsFailure(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	engine := &closingEngine{err: errors.New("session busy")}

	closeEngine(engine, zap.New(core))
	assert.True(t, engine.closed)

	entries := logs.FilterMessage("close engine").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "session busy", entries[0].ContextMap()["error"])
}

func TestCloseEngineQuietOnSuccess(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	engine := &closingEngine{}

	closeEngine(engine, zap.New(core))
	assert.True(t, engine.closed)
	assert.Zero(t, logs.Len())
}
