package service

import (
	"context"
	"errors"
	"time"

	"github.com/yndnr/tssd/internal/core/behaviour"
	"github.com/yndnr/tssd/internal/core/domain"
	"github.com/yndnr/tssd/internal/storage"
	"github.com/yndnr/tssd/internal/telemetry/logger"
	"github.com/yndnr/tssd/internal/telemetry/metric"
	"github.com/yndnr/tssd/pkg/crypto/ecdsakey"
)

// KeyStore is the two-phase share store.
type KeyStore interface {
	// ReserveKey claims key exclusively. Fails with domain.ErrDuplicateKey
	// when the key is reserved or committed.
	ReserveKey(ctx context.Context, key string) (storage.Reservation, error)

	// Put commits value into a held reservation, at most once.
	Put(ctx context.Context, res storage.Reservation, value []byte) error

	// Exists reports whether key has a committed value.
	Exists(ctx context.Context, key string) (bool, error)
}

// SeedProvider returns the daemon seed. The returned slice is owned by the
// caller. Fails with domain.ErrUninitialized before the seed is set.
type SeedProvider interface {
	Seed(ctx context.Context) ([]byte, error)
}

// KeyDeriver is the cryptography collaborator.
type KeyDeriver interface {
	Derive(seed, sessionNonce []byte) (*ecdsakey.KeyPair, error)
	Serialize(k *ecdsakey.SigningKey) ([]byte, error)
}

// MultisigService creates signing identities.
type MultisigService struct {
	keys      KeyStore
	seeds     SeedProvider
	deriver   KeyDeriver
	behaviour behaviour.Behaviour
	metrics   *metric.Registry
}

// Option configures a MultisigService.
type Option func(*MultisigService)

// WithDeriver replaces the default ecdsakey deriver.
func WithDeriver(d KeyDeriver) Option {
	return func(s *MultisigService) { s.deriver = d }
}

// WithBehaviour sets the configured protocol behaviour.
func WithBehaviour(b behaviour.Behaviour) Option {
	return func(s *MultisigService) { s.behaviour = b }
}

// WithMetrics enables keygen metrics.
func WithMetrics(m *metric.Registry) Option {
	return func(s *MultisigService) { s.metrics = m }
}

// NewMultisigService creates a new MultisigService.
func NewMultisigService(keys KeyStore, seeds SeedProvider, opts ...Option) *MultisigService {
	s := &MultisigService{
		keys:    keys,
		seeds:   seeds,
		deriver: ecdsakey.Deriver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Behaviour returns the configured protocol behaviour.
func (s *MultisigService) Behaviour() behaviour.Behaviour {
	return s.behaviour
}

// Keygen derives the key pair for req.KeyUID, commits the signing-key share
// and returns the encoded verifying key.
//
// The verifying key is returned only after the share is committed. A key
// uid can succeed at most once; later requests fail with
// domain.ErrDuplicateKey.
func (s *MultisigService) Keygen(ctx context.Context, req *domain.KeygenRequest) (vk []byte, err error) {
	start := time.Now()
	log := logger.L(ctx)
	defer func() { s.observe(err, start) }()

	// 1. Session identifier
	if err := req.Validate(); err != nil {
		return nil, err
	}
	keyUID := req.KeyUID
	log = log.With("key_uid", keyUID)

	// 2. Seed; ErrUninitialized passes through unchanged
	seed, err := s.seeds.Seed(ctx)
	if err != nil {
		log.Warn("keygen rejected, seed unavailable", "error", err)
		return nil, err
	}
	defer clear(seed)

	// 3. Derive
	pair, err := s.deriver.Derive(seed, []byte(keyUID))
	if err != nil {
		log.Warn("keygen rejected, derivation failed", "error", err)
		return nil, domain.ErrDerivation.WithDetails(keyUID).Wrap(err)
	}
	defer pair.Zero()

	// 4. Reserve; the derived pair is dropped by the deferred Zero
	res, err := s.keys.ReserveKey(ctx, keyUID)
	if err != nil {
		log.Warn("keygen rejected, reservation failed", "error", err)
		return nil, err
	}

	// 5. Serialize
	share, err := s.deriver.Serialize(pair.SigningKey())
	if err != nil {
		s.orphaned()
		log.Error("share serialization failed, slot left reserved", "error", err)
		return nil, domain.ErrSerialization.WithDetails(keyUID).Wrap(err)
	}
	defer clear(share)

	// 6. Commit; never retried
	if err := s.keys.Put(ctx, res, share); err != nil {
		s.orphaned()
		log.Error("share commit failed, slot left reserved", "error", err)
		return nil, commitError(err)
	}

	// 7. Reveal
	log.Info("keygen completed", "elapsed", time.Since(start))
	return pair.EncodedVerifyingKey(), nil
}

// KeyPresence reports whether a committed share exists for keyUID.
// A reserved but uncommitted slot reports KeyAbsent.
func (s *MultisigService) KeyPresence(ctx context.Context, keyUID string) (domain.KeyPresence, error) {
	if keyUID == "" {
		return domain.KeyAbsent, domain.ErrInvalidArgument.WithDetails("key_uid is required")
	}
	ok, err := s.keys.Exists(ctx, keyUID)
	if err != nil {
		return domain.KeyAbsent, err
	}
	if ok {
		return domain.KeyPresent, nil
	}
	return domain.KeyAbsent, nil
}

func commitError(err error) error {
	if domain.IsDomainError(err, "") {
		return err
	}
	return domain.ErrStorage.WithDetails("commit share").Wrap(err)
}

func (s *MultisigService) orphaned() {
	if s.metrics != nil {
		s.metrics.OrphanedReserved.Inc()
	}
}

func (s *MultisigService) observe(err error, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveKeygen(keygenResult(err), time.Since(start))
}

func keygenResult(err error) string {
	switch {
	case err == nil:
		return metric.ResultOK
	case errors.Is(err, domain.ErrUninitialized):
		return metric.ResultUninitialized
	case errors.Is(err, domain.ErrDerivation):
		return metric.ResultDerivation
	case errors.Is(err, domain.ErrDuplicateKey):
		return metric.ResultDuplicateKey
	case errors.Is(err, domain.ErrSerialization):
		return metric.ResultSerialization
	case errors.Is(err, domain.ErrInvalidReservation):
		return metric.ResultInvalidReservation
	case errors.Is(err, domain.ErrInvalidArgument):
		return metric.ResultInvalidArgument
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metric.ResultCanceled
	default:
		return metric.ResultStorage
	}
}
