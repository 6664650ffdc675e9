package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"

	"github.com/yndnr/tssd/internal/core/domain"
)

// VaultConfig locates a hex seed stored in a Vault KV v2 engine.
type VaultConfig struct {
	Address string
	Token   string
	Mount   string        // e.g. "secret"
	Path    string        // e.g. "tssd/seed"
	Field   string        // key inside the secret's data map; default "seed"
	Timeout time.Duration // default 30s
}

// VaultSeedSource reads the daemon seed from HashiCorp Vault.
type VaultSeedSource struct {
	client *api.Client
	mount  string
	path   string
	field  string
	log    *slog.Logger
}

// NewVaultSeedSource creates a Vault client for cfg.
func NewVaultSeedSource(cfg VaultConfig, log *slog.Logger) (*VaultSeedSource, error) {
	if cfg.Address == "" {
		return nil, domain.ErrInvalidArgument.WithDetails("vault address is required")
	}
	if log == nil {
		log = slog.Default()
	}

	config := api.DefaultConfig()
	config.Address = cfg.Address
	config.Timeout = cfg.Timeout
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	}

	field := cfg.Field
	if field == "" {
		field = "seed"
	}

	return &VaultSeedSource{
		client: client,
		mount:  strings.Trim(cfg.Mount, "/"),
		path:   strings.Trim(cfg.Path, "/"),
		field:  field,
		log:    log,
	}, nil
}

// FetchSeed reads and hex-decodes the seed field.
func (s *VaultSeedSource) FetchSeed(ctx context.Context) ([]byte, error) {
	start := time.Now()
	path := fmt.Sprintf("%s/data/%s", s.mount, s.path)

	secret, err := s.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		s.log.Error("failed to read seed from vault", slog.String("path", path), "error", err)
		return nil, domain.ErrStorage.WithDetails("vault read").Wrap(err)
	}
	if secret == nil || secret.Data == nil {
		return nil, domain.ErrUninitialized.WithDetails("no seed at " + path)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, domain.ErrSeedInvalid.WithDetails("vault response is not a kv v2 secret")
	}
	value, ok := data[s.field].(string)
	if !ok {
		return nil, domain.ErrSeedInvalid.WithDetails(fmt.Sprintf("field %q missing in vault secret", s.field))
	}

	seed, err := decodeHexSeed(value)
	if err != nil {
		return nil, err
	}

	s.log.Info("fetched seed from vault",
		slog.String("path", path),
		slog.Duration("duration", time.Since(start)))
	return seed, nil
}
