package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/yndnr/tssd/internal/core/domain"
)

const (
	// SeedLength is the size of a generated seed.
	SeedLength = 64

	// MinSeedLength is the minimum accepted size of an imported seed.
	MinSeedLength = 32
)

// SeedMode selects how the daemon establishes its seed at startup.
type SeedMode string

const (
	// SeedModeExisting loads a stored seed and stays uninitialized if none exists.
	SeedModeExisting SeedMode = "existing"
	// SeedModeCreate generates and stores a fresh seed. Fails if one exists.
	SeedModeCreate SeedMode = "create"
	// SeedModeImport stores a hex seed read from a file. Fails if one exists.
	SeedModeImport SeedMode = "import"
	// SeedModeVault reads the seed from Vault and keeps it in memory only.
	SeedModeVault SeedMode = "vault"
)

// ParseSeedMode validates a mode name.
func ParseSeedMode(s string) (SeedMode, error) {
	switch m := SeedMode(strings.ToLower(strings.TrimSpace(s))); m {
	case SeedModeExisting, SeedModeCreate, SeedModeImport, SeedModeVault:
		return m, nil
	case "":
		return SeedModeExisting, nil
	default:
		return "", domain.ErrInvalidArgument.WithDetails(fmt.Sprintf("unknown seed mode %q", s))
	}
}

// SeedSource supplies seed material from outside the local store.
type SeedSource interface {
	FetchSeed(ctx context.Context) ([]byte, error)
}

// SeedOptions configures InitSeed.
type SeedOptions struct {
	Mode       SeedMode
	ImportFile string
	Source     SeedSource // required for SeedModeVault
}

// InitSeed establishes the daemon seed according to opts.
func (m *Manager) InitSeed(ctx context.Context, opts SeedOptions) error {
	switch opts.Mode {
	case SeedModeExisting, "":
		return m.loadSeed(ctx)

	case SeedModeCreate:
		seed := make([]byte, SeedLength)
		defer clear(seed)
		if _, err := rand.Read(seed); err != nil {
			return fmt.Errorf("generate seed: %w", err)
		}
		return m.storeSeed(ctx, seed)

	case SeedModeImport:
		seed, err := readSeedFile(opts.ImportFile)
		if err != nil {
			return err
		}
		defer clear(seed)
		return m.storeSeed(ctx, seed)

	case SeedModeVault:
		if opts.Source == nil {
			return domain.ErrInvalidArgument.WithDetails("vault seed mode requires a seed source")
		}
		seed, err := opts.Source.FetchSeed(ctx)
		if err != nil {
			return err
		}
		defer clear(seed)
		if err := m.setSeed(seed); err != nil {
			return err
		}
		m.logger.Info("seed loaded from vault")
		return nil

	default:
		return domain.ErrInvalidArgument.WithDetails(fmt.Sprintf("unknown seed mode %q", opts.Mode))
	}
}

func (m *Manager) loadSeed(ctx context.Context) error {
	seed, err := m.seeds.Get(ctx, seedKey)
	if errors.Is(err, domain.ErrKeyNotFound) {
		m.logger.Warn("no stored seed found, keygen requests will fail until a seed is created or imported")
		return nil
	}
	if err != nil {
		return err
	}
	defer clear(seed)

	if err := m.setSeed(seed); err != nil {
		return err
	}
	m.logger.Info("seed loaded from store")
	return nil
}

// storeSeed persists seed through the same reserve/commit path as shares,
// so an existing seed is never overwritten.
func (m *Manager) storeSeed(ctx context.Context, seed []byte) error {
	if len(seed) < MinSeedLength {
		return domain.ErrSeedInvalid.WithDetails("seed too short")
	}

	res, err := m.seeds.ReserveKey(ctx, seedKey)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateKey) {
			return domain.ErrDuplicateKey.WithDetails("a seed already exists; refusing to overwrite")
		}
		return err
	}
	if err := m.seeds.Put(ctx, res, seed); err != nil {
		return err
	}
	if err := m.setSeed(seed); err != nil {
		return err
	}
	m.logger.Info("seed stored")
	return nil
}

func readSeedFile(path string) ([]byte, error) {
	if path == "" {
		return nil, domain.ErrInvalidArgument.WithDetails("seed import file is required")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	defer clear(raw)

	return decodeHexSeed(string(raw))
}

func decodeHexSeed(s string) ([]byte, error) {
	seed, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, domain.ErrSeedInvalid.WithDetails("seed is not valid hex")
	}
	if len(seed) < MinSeedLength {
		clear(seed)
		return nil, domain.ErrSeedInvalid.WithDetails(fmt.Sprintf("seed must be at least %d bytes", MinSeedLength))
	}
	return seed, nil
}
