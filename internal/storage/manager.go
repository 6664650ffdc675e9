package storage

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/yndnr/tssd/internal/core/domain"
)

// Namespace prefixes inside the engine.
const (
	SharesPrefix = "shares/"
	seedPrefix   = "seed/"
	seedKey      = "default"
)

// Manager owns the engine, the share store and the daemon seed.
type Manager struct {
	engine KVEngine
	shares *KV
	seeds  *KV
	logger *slog.Logger

	seed atomic.Pointer[[]byte]
}

// NewManager wraps engine. The seed stays unset until InitSeed succeeds.
func NewManager(engine KVEngine, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		engine: engine,
		shares: NewKV(engine, SharesPrefix),
		seeds:  NewKV(engine, seedPrefix),
		logger: logger,
	}
}

// KV returns the share store.
func (m *Manager) KV() *KV {
	return m.shares
}

// Engine returns the underlying engine.
func (m *Manager) Engine() KVEngine {
	return m.engine
}

// Seed returns a copy of the daemon seed. The caller owns the copy and
// should clear it after use.
// Returns domain.ErrUninitialized until a seed has been established.
func (m *Manager) Seed(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := m.seed.Load()
	if p == nil {
		return nil, domain.ErrUninitialized
	}
	out := make([]byte, len(*p))
	copy(out, *p)
	return out, nil
}

// Initialized reports whether the seed has been established.
func (m *Manager) Initialized() bool {
	return m.seed.Load() != nil
}

// setSeed installs the seed. It can succeed only once per process.
func (m *Manager) setSeed(seed []byte) error {
	if len(seed) < MinSeedLength {
		return domain.ErrSeedInvalid.WithDetails("seed too short")
	}
	b := append([]byte(nil), seed...)
	if !m.seed.CompareAndSwap(nil, &b) {
		clear(b)
		return domain.ErrInternal.WithDetails("seed already established")
	}
	return nil
}

// Close closes the engine.
func (m *Manager) Close() error {
	return m.engine.Close()
}
