package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/tssd/internal/cli/command"
	"github.com/yndnr/tssd/internal/core/domain"
	"github.com/yndnr/tssd/internal/storage"
	"github.com/yndnr/tssd/internal/telemetry/logger"
	"github.com/yndnr/tssd/internal/telemetry/metric"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tssd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig_Priority(t *testing.T) {
	fileDir := t.TempDir()
	envDir := t.TempDir()
	path := writeFile(t, `
server:
  port: 6000
storage:
  data_dir: `+fileDir+`
log:
  level: warn
`)
	t.Setenv("TSSD_STORAGE_DATA_DIR", envDir)
	t.Setenv("TSSD_PORT", "7000")

	cfg, err := loadConfig(command.Args{
		ConfigFile: path,
		Overrides:  map[string]any{"log.level": "debug"},
	})
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, envDir, cfg.Storage.DataDir)
	assert.Equal(t, "debug", cfg.Log.Level)

	cfg, err = loadConfig(command.Args{
		ConfigFile: path,
		Overrides:  map[string]any{"server.port": 8000},
	})
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Server.Port, "flag beats env")
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := loadConfig(command.Args{Overrides: map[string]any{
		"storage.in_memory": true,
		"seed.mode":         "bogus",
	}})
	assert.Error(t, err)
}

func TestSeedOptions(t *testing.T) {
	cfg, err := loadConfig(command.Args{Overrides: map[string]any{
		"storage.in_memory": true,
		"seed.mode":         "create",
	}})
	require.NoError(t, err)

	opts, err := seedOptions(cfg, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, storage.SeedModeCreate, opts.Mode)
	assert.Nil(t, opts.Source)

	cfg.Seed.Mode = "vault"
	cfg.Seed.Vault.Address = "http://127.0.0.1:8200"
	opts, err = seedOptions(cfg, slog.Default())
	require.NoError(t, err)
	assert.NotNil(t, opts.Source)

	cfg.Seed.Vault.Address = ""
	_, err = seedOptions(cfg, slog.Default())
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestInitStorage_InMemory(t *testing.T) {
	cfg, err := loadConfig(command.Args{Overrides: map[string]any{
		"storage.in_memory": true,
		"seed.mode":         "create",
	}})
	require.NoError(t, err)

	mgr, err := initStorage(context.Background(), cfg, slog.Default(), metric.NewRegistry())
	require.NoError(t, err)
	defer mgr.Close()

	assert.True(t, mgr.Initialized())
}

func TestInitStorage_ExistingWithoutSeed(t *testing.T) {
	cfg, err := loadConfig(command.Args{Overrides: map[string]any{"storage.in_memory": true}})
	require.NoError(t, err)

	mgr, err := initStorage(context.Background(), cfg, slog.Default(), metric.NewRegistry())
	require.NoError(t, err)
	defer mgr.Close()

	assert.False(t, mgr.Initialized())
}

func TestReloadLogLevel(t *testing.T) {
	path := writeFile(t, "storage:\n  in_memory: true\nlog:\n  level: error\n")
	prev := logger.GetLevel()
	t.Cleanup(func() { logger.SetLevel(prev) })

	logger.SetLevel("info")
	reloadLogLevel(command.Args{ConfigFile: path}, slog.Default())
	assert.Equal(t, "error", logger.GetLevel())

	require.NoError(t, os.WriteFile(path, []byte("storage:\n  in_memory: true\nlog:\n  level: nonsense\n"), 0600))
	reloadLogLevel(command.Args{ConfigFile: path}, slog.Default())
	assert.Equal(t, "error", logger.GetLevel(), "invalid reload keeps the current level")
}
