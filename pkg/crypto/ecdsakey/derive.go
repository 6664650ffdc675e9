package ecdsakey

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/hkdf"
)

const (
	// MinSeedLength is the minimum accepted seed length in bytes.
	MinSeedLength = 32

	// MinSessionNonceLength and MaxSessionNonceLength bound the session nonce.
	MinSessionNonceLength = 4
	MaxSessionNonceLength = 256

	// ScalarLength is the length of an encoded secp256k1 scalar.
	ScalarLength = 32

	// maxDeriveAttempts caps rejection sampling. A candidate is rejected with
	// probability ~2^-128, so hitting the cap means the reader is broken.
	maxDeriveAttempts = 8
)

// deriveInfo binds derived keys to this scheme and version.
var deriveInfo = []byte("tssd/secp256k1/keygen/v1")

var (
	ErrSeedLength         = errors.New("ecdsakey: seed too short")
	ErrSessionNonceLength = errors.New("ecdsakey: session nonce length out of range")
	ErrNoValidScalar      = errors.New("ecdsakey: no valid scalar produced")
)

// SigningKey is a secp256k1 secret scalar.
type SigningKey struct {
	scalar []byte
}

// Zero overwrites the scalar. The key is unusable afterwards.
func (k *SigningKey) Zero() {
	if k == nil {
		return
	}
	clear(k.scalar)
	k.scalar = nil
}

// IsZero reports whether the key has been zeroed or never set.
func (k *SigningKey) IsZero() bool {
	return k == nil || len(k.scalar) == 0
}

// KeyPair is the output of Derive.
type KeyPair struct {
	signing   *SigningKey
	verifying []byte // SEC1 compressed point
}

// SigningKey returns the secret half of the pair.
func (p *KeyPair) SigningKey() *SigningKey {
	return p.signing
}

// EncodedVerifyingKey returns a copy of the 33-byte compressed public key.
func (p *KeyPair) EncodedVerifyingKey() []byte {
	out := make([]byte, len(p.verifying))
	copy(out, p.verifying)
	return out
}

// Zero drops the secret half. The verifying key is kept.
func (p *KeyPair) Zero() {
	if p == nil {
		return
	}
	p.signing.Zero()
}

// Derive computes the key pair bound to (seed, sessionNonce).
//
// Candidate scalars are read from an HKDF-SHA256 stream keyed by the seed
// with the nonce in the info string; the first candidate in [1, N) wins.
func Derive(seed, sessionNonce []byte) (*KeyPair, error) {
	if len(seed) < MinSeedLength {
		return nil, ErrSeedLength
	}
	if n := len(sessionNonce); n < MinSessionNonceLength || n > MaxSessionNonceLength {
		return nil, fmt.Errorf("%w: got %d bytes", ErrSessionNonceLength, n)
	}

	info := make([]byte, 0, len(deriveInfo)+1+len(sessionNonce))
	info = append(info, deriveInfo...)
	info = append(info, 0)
	info = append(info, sessionNonce...)

	stream := hkdf.New(sha256.New, seed, nil, info)
	candidate := make([]byte, ScalarLength)
	defer clear(candidate)

	for i := 0; i < maxDeriveAttempts; i++ {
		if _, err := io.ReadFull(stream, candidate); err != nil {
			return nil, fmt.Errorf("ecdsakey: read hkdf stream: %w", err)
		}
		priv, err := crypto.ToECDSA(candidate)
		if err != nil {
			continue
		}
		pair := &KeyPair{
			signing:   &SigningKey{scalar: append([]byte(nil), candidate...)},
			verifying: crypto.CompressPubkey(&priv.PublicKey),
		}
		wipe(priv)
		return pair, nil
	}
	return nil, ErrNoValidScalar
}

// wipe clears the big.Int backing the private scalar.
func wipe(priv *ecdsa.PrivateKey) {
	if priv == nil || priv.D == nil {
		return
	}
	clear(priv.D.Bits())
	priv.D.SetInt64(0)
}
