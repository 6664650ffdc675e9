package storage

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func newMemEngine(t *testing.T) *BadgerEngine {
	t.Helper()

	cfg := DefaultKVConfig("")
	cfg.InMemory = true

	engine, err := NewBadgerEngine(cfg, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return engine
}
