package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/yndnr/tssd/internal/storage"
	"github.com/yndnr/tssd/internal/telemetry/logger"
)

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	if err := verifySeed(&cfg.Seed); err != nil {
		return err
	}
	if _, err := cfg.Security.EncryptionKeyBytes(); err != nil {
		return err
	}
	if !logger.ValidLevel(cfg.Log.Level) {
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", cfg.Log.Level)
	}
	return nil
}

func verifyServer(cfg *ServerSection) error {
	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("server.port %d out of range 0-65535", cfg.Port)
	}
	if cfg.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(cfg.MetricsAddr); err != nil {
			return fmt.Errorf("server.metrics_addr: %w", err)
		}
	}
	if cfg.RateLimit < 0 {
		return errors.New("server.rate_limit must not be negative")
	}
	if cfg.RateLimit > 0 && cfg.RateBurst < 1 {
		return errors.New("server.rate_burst must be at least 1 when rate_limit is set")
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	if cfg.InMemory {
		return nil
	}
	if cfg.DataDir == "" {
		return errors.New("storage.data_dir is required")
	}
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return errors.New("cannot create data directory: " + err.Error())
	}
	return nil
}

func verifySeed(cfg *SeedSection) error {
	mode, err := storage.ParseSeedMode(cfg.Mode)
	if err != nil {
		return err
	}
	switch mode {
	case storage.SeedModeImport:
		if cfg.ImportFile == "" {
			return errors.New("seed.import_file is required in import mode")
		}
	case storage.SeedModeVault:
		if cfg.Vault.Address == "" {
			return errors.New("seed.vault.address is required in vault mode")
		}
		if cfg.Vault.Path == "" {
			return errors.New("seed.vault.path is required in vault mode")
		}
	}
	return nil
}

// EncryptionKeyBytes decodes the hex key. An empty key returns nil.
func (s SecuritySection) EncryptionKeyBytes() ([]byte, error) {
	if s.EncryptionKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(strings.TrimSpace(s.EncryptionKey))
	if err != nil {
		return nil, errors.New("security.encryption_key must be hex encoded")
	}
	switch len(key) {
	case 16, 24, 32:
		return key, nil
	default:
		return nil, fmt.Errorf("security.encryption_key must decode to 16, 24 or 32 bytes, got %d", len(key))
	}
}

// ListenAddr returns host:port for the RPC listener.
func (s ServerSection) ListenAddr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
