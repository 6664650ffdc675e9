package config

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DefaultHost, cfg.Server.Host)
	assert.Equal(t, 50051, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:50051", cfg.Server.ListenAddr())
	assert.Equal(t, DefaultDataDir, cfg.Storage.DataDir)
	assert.True(t, cfg.Storage.SyncWrites)
	assert.Equal(t, "existing", cfg.Seed.Mode)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, DefaultLogFormat, cfg.Log.Format)
}

func validConfig(t *testing.T) *ServerConfig {
	cfg := Default()
	cfg.Storage.DataDir = filepath.Join(t.TempDir(), "data")
	return cfg
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ServerConfig)
		wantErr string
	}{
		{"defaults", func(*ServerConfig) {}, ""},
		{"port too large", func(c *ServerConfig) { c.Server.Port = 70000 }, "server.port"},
		{"negative port", func(c *ServerConfig) { c.Server.Port = -1 }, "server.port"},
		{"port zero", func(c *ServerConfig) { c.Server.Port = 0 }, ""},
		{"bad metrics addr", func(c *ServerConfig) { c.Server.MetricsAddr = "nope" }, "metrics_addr"},
		{"rate without burst", func(c *ServerConfig) { c.Server.RateLimit = 10; c.Server.RateBurst = 0 }, "rate_burst"},
		{"negative rate", func(c *ServerConfig) { c.Server.RateLimit = -1 }, "rate_limit"},
		{"no data dir", func(c *ServerConfig) { c.Storage.DataDir = "" }, "data_dir"},
		{"in memory no dir", func(c *ServerConfig) { c.Storage.DataDir = ""; c.Storage.InMemory = true }, ""},
		{"unknown seed mode", func(c *ServerConfig) { c.Seed.Mode = "mnemonic" }, "seed mode"},
		{"import without file", func(c *ServerConfig) { c.Seed.Mode = "import" }, "import_file"},
		{"vault without address", func(c *ServerConfig) { c.Seed.Mode = "vault" }, "vault.address"},
		{"vault ok", func(c *ServerConfig) { c.Seed.Mode = "vault"; c.Seed.Vault.Address = "http://127.0.0.1:8200" }, ""},
		{"bad key hex", func(c *ServerConfig) { c.Security.EncryptionKey = "zz" }, "hex"},
		{"bad key size", func(c *ServerConfig) { c.Security.EncryptionKey = "abcd" }, "16, 24 or 32"},
		{"good key", func(c *ServerConfig) { c.Security.EncryptionKey = strings.Repeat("ab", 32) }, ""},
		{"bad log level", func(c *ServerConfig) { c.Log.Level = "trace" }, "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			err := Verify(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEncryptionKeyBytes(t *testing.T) {
	key, err := SecuritySection{}.EncryptionKeyBytes()
	require.NoError(t, err)
	assert.Nil(t, key)

	key, err = SecuritySection{EncryptionKey: strings.Repeat("0f", 16)}.EncryptionKeyBytes()
	require.NoError(t, err)
	assert.Len(t, key, 16)
}

func TestSanitize(t *testing.T) {
	cfg := Default()
	cfg.Security.EncryptionKey = "super-secret-key-1234567890"
	cfg.Seed.Vault.Token = "s.vaulttoken"

	sanitized := Sanitize(cfg)

	assert.Equal(t, "super-secret-key-1234567890", cfg.Security.EncryptionKey, "original must be unchanged")
	assert.NotEqual(t, cfg.Security.EncryptionKey, sanitized.Security.EncryptionKey)
	assert.Len(t, sanitized.Security.EncryptionKey, len(cfg.Security.EncryptionKey))
	assert.Equal(t, "s.********en", sanitized.Seed.Vault.Token)

	empty := Sanitize(Default())
	assert.Empty(t, empty.Security.EncryptionKey)
	assert.Equal(t, "****", maskSecret("abc"))
}
